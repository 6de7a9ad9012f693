// Package upstream implements the marketplace API client used for
// candidate discovery, product detail, and review fetching.
package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/lekhuynh/vietchoice/internal/config"
	"github.com/lekhuynh/vietchoice/internal/domain"
	"github.com/lekhuynh/vietchoice/internal/logger"
)

const (
	defaultBaseURL = "https://tiki.vn"

	searchPath  = "/api/v2/products"
	detailPath  = "/api/v2/products/%d"
	reviewsPath = "/api/v2/reviews"

	inventoryAvailable = "available"

	// maxPageSize is the upstream review API's per-page ceiling.
	maxPageSize = 50

	adBadge = "Tiki Ads"

	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
		"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"

	// maxResponseBodyBytes limits the size of upstream responses.
	maxResponseBodyBytes = 4 * 1024 * 1024
)

// Client fetches candidate lists, product detail, and review text from
// the upstream marketplace. One Client owns one connection pool for the
// process lifetime.
type Client struct {
	baseURL      string
	httpClient   *http.Client
	limiter      *rate.Limiter
	log          logger.Interface
	maxRetries   int
	retryBackoff time.Duration
	pageSize     int
	pageFanout   int
	maxPages     int
}

// NewClient creates a new upstream client from configuration.
func NewClient(cfg config.UpstreamConfig, log logger.Interface) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	pageSize := cfg.ReviewPageSize
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: cfg.RequestTimeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 50,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter:      rate.NewLimiter(rate.Limit(cfg.RequestsPerSec), cfg.RequestsPerSec),
		log:          log,
		maxRetries:   cfg.MaxRetries,
		retryBackoff: cfg.RetryBackoff,
		pageSize:     pageSize,
		pageFanout:   cfg.ReviewPageFanout,
		maxPages:     cfg.MaxReviewPages,
	}
}

// DiscoverCandidates searches the marketplace for a keyword and returns
// up to limit external IDs, with sponsored entries filtered out before
// truncation.
func (c *Client) DiscoverCandidates(ctx context.Context, keyword string, limit int) ([]int64, error) {
	params := url.Values{}
	params.Set("q", keyword)
	params.Set("page", "1")

	var resp searchResponse
	if err := c.getJSON(ctx, c.baseURL+searchPath, params, &resp); err != nil {
		return nil, fmt.Errorf("discover candidates: %w", err)
	}

	ids := make([]int64, 0, limit)
	for _, item := range resp.Data {
		if item.ID == 0 || item.Advertisement || hasBadge(item.Badges, adBadge) {
			continue
		}
		ids = append(ids, item.ID)
		if len(ids) >= limit {
			break
		}
	}
	return ids, nil
}

// FetchDetail retrieves and parses the detail payload for one external
// ID. A clean upstream 404 surfaces as ErrNotFound; transient failures
// surface as ErrUnavailable after retries are exhausted.
func (c *Client) FetchDetail(ctx context.Context, externalID int64) (*ProductDetail, error) {
	var resp detailResponse
	endpoint := c.baseURL + fmt.Sprintf(detailPath, externalID)
	if err := c.getJSON(ctx, endpoint, nil, &resp); err != nil {
		return nil, fmt.Errorf("fetch detail %d: %w", externalID, err)
	}
	return parseDetail(c.baseURL, externalID, &resp), nil
}

// FetchReviews retrieves review text for a product along with the
// rating summary. Page 1 establishes the total page count; remaining
// pages are fetched concurrently under a bounded fan-out. Review order
// is irrelevant to scoring, so out-of-order completion is fine.
func (c *Client) FetchReviews(ctx context.Context, externalID int64) ([]string, *domain.ReviewSummary, error) {
	first, err := c.fetchReviewPage(ctx, externalID, 1)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch reviews %d: %w", externalID, err)
	}

	summary := summarize(first)
	texts := extractTexts(first)

	totalPages := pageCount(first.Paging.Total, c.pageSize)
	if totalPages > c.maxPages {
		totalPages = c.maxPages
	}
	if totalPages <= 1 {
		return texts, summary, nil
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.pageFanout)

	for page := 2; page <= totalPages; page++ {
		page := page
		g.Go(func() error {
			resp, pageErr := c.fetchReviewPage(gctx, externalID, page)
			if pageErr != nil {
				// One missing page is not worth failing the whole
				// product; sentiment works on whatever text arrived.
				c.log.Debug("review page fetch failed",
					"external_id", externalID,
					"page", page,
					"error", pageErr.Error(),
				)
				return nil
			}
			pageTexts := extractTexts(resp)
			mu.Lock()
			texts = append(texts, pageTexts...)
			mu.Unlock()
			return nil
		})
	}
	if waitErr := g.Wait(); waitErr != nil {
		return nil, nil, fmt.Errorf("fetch reviews %d: %w", externalID, waitErr)
	}

	return texts, summary, nil
}

func (c *Client) fetchReviewPage(ctx context.Context, externalID int64, page int) (*reviewsResponse, error) {
	params := url.Values{}
	params.Set("product_id", strconv.FormatInt(externalID, 10))
	params.Set("include", "comments")
	params.Set("limit", strconv.Itoa(c.pageSize))
	params.Set("page", strconv.Itoa(page))

	var resp reviewsResponse
	if err := c.getJSON(ctx, c.baseURL+reviewsPath, params, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// getJSON performs a GET with browser-like headers, rate limiting, and
// linear-backoff retries for transient failures.
func (c *Client) getJSON(ctx context.Context, endpoint string, params url.Values, out any) error {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.retryBackoff * time.Duration(attempt)):
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		body, status, err := c.doGet(ctx, endpoint, params)
		if err != nil {
			lastErr = err
			continue
		}

		switch {
		case status == http.StatusOK:
			if jsonErr := json.Unmarshal(body, out); jsonErr != nil {
				lastErr = fmt.Errorf("decode response: %w", jsonErr)
				continue
			}
			return nil
		case status == http.StatusNotFound:
			return ErrNotFound
		case status == http.StatusTooManyRequests || status >= http.StatusInternalServerError:
			lastErr = fmt.Errorf("http status %d", status)
			continue
		default:
			return fmt.Errorf("%w: unexpected http status %d", ErrUnavailable, status)
		}
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, lastErr)
}

func (c *Client) doGet(ctx context.Context, endpoint string, params url.Values) ([]byte, int, error) {
	target := endpoint
	if len(params) > 0 {
		target = endpoint + "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, http.NoBody)
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}
	setBrowserHeaders(req, c.baseURL)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("http fetch: %w", err)
	}
	defer resp.Body.Close()

	body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodyBytes))
	if readErr != nil {
		return nil, resp.StatusCode, fmt.Errorf("read response body: %w", readErr)
	}
	return body, resp.StatusCode, nil
}

// setBrowserHeaders mimics a browser; the upstream API rejects bare
// clients.
func setBrowserHeaders(req *http.Request, referer string) {
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json, text/plain, */*")
	req.Header.Set("Accept-Language", "vi-VN,vi;q=0.9,en-US;q=0.8,en;q=0.7")
	req.Header.Set("Referer", referer+"/")
}

func hasBadge(badges []string, want string) bool {
	for _, b := range badges {
		if b == want {
			return true
		}
	}
	return false
}

func pageCount(total, pageSize int) int {
	if total <= 0 || pageSize <= 0 {
		return 1
	}
	return (total + pageSize - 1) / pageSize
}
