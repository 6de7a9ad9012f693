package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lekhuynh/vietchoice/internal/config"
	"github.com/lekhuynh/vietchoice/internal/logger"
)

func testClient(t *testing.T, server *httptest.Server) *Client {
	t.Helper()
	return NewClient(config.UpstreamConfig{
		BaseURL:          server.URL,
		RequestTimeout:   5 * time.Second,
		MaxRetries:       2,
		RetryBackoff:     time.Millisecond,
		RequestsPerSec:   1000,
		ReviewPageSize:   2,
		ReviewPageFanout: 4,
		MaxReviewPages:   10,
	}, logger.NewNoOp())
}

func TestDiscoverCandidatesFiltersAds(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, searchPath, r.URL.Path)
		assert.Equal(t, "áo thun", r.URL.Query().Get("q"))
		payload := searchResponse{Data: []searchItem{
			{ID: 1},
			{ID: 2, Advertisement: true},
			{ID: 3, Badges: []string{"Freeship", adBadge}},
			{ID: 4},
			{ID: 5},
		}}
		require.NoError(t, json.NewEncoder(w).Encode(payload))
	}))
	defer server.Close()

	ids, err := testClient(t, server).DiscoverCandidates(context.Background(), "áo thun", 2)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 4}, ids)
}

func TestFetchDetailParsesPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v2/products/42", r.URL.Path)
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		fmt.Fprint(w, `{
			"id": 42,
			"name": "  Áo thun nam  ",
			"brand": {"name": "Coolmate"},
			"price": 199000,
			"thumbnail_url": "https://cdn.example/42.jpg",
			"url_path": "ao-thun-nam-p42.html",
			"inventory_status": "available",
			"description": "<p>Chất liệu  <b>cotton</b></p><script>x()</script>",
			"breadcrumbs": [
				{"name": "Thời trang nam", "category_id": 100, "url": "/thoi-trang-nam/c100"},
				{"name": "Áo thun", "category_id": 101, "url": "/ao-thun/c101"},
				{"name": "Áo thun nam", "category_id": 0, "url": "/ao-thun-nam-p42.html"}
			],
			"specifications": [
				{"attributes": [
					{"code": "origin", "value": "Việt Nam"},
					{"code": "brand_country", "value": " Việt Nam "}
				]}
			]
		}`)
	}))
	defer server.Close()

	detail, err := testClient(t, server).FetchDetail(context.Background(), 42)
	require.NoError(t, err)

	assert.Equal(t, int64(42), detail.ExternalID)
	assert.Equal(t, "Áo thun nam", detail.Name)
	require.NotNil(t, detail.Brand)
	assert.Equal(t, "Coolmate", *detail.Brand)
	require.NotNil(t, detail.Price)
	assert.InDelta(t, 199000, *detail.Price, 0.001)
	require.NotNil(t, detail.ProductURL)
	assert.Equal(t, server.URL+"/ao-thun-nam-p42.html", *detail.ProductURL)
	assert.True(t, detail.Available())

	// Product crumb (category_id 0, URL carrying the ID) is dropped.
	assert.Equal(t, []string{"Thời trang nam", "Áo thun"}, detail.Breadcrumbs)

	require.NotNil(t, detail.Origin)
	assert.Equal(t, "Việt Nam", *detail.Origin)
	require.NotNil(t, detail.BrandCountry)
	assert.Equal(t, "Việt Nam", *detail.BrandCountry)

	require.NotNil(t, detail.Description)
	assert.Equal(t, "Chất liệu cotton x()", *detail.Description)
}

func TestFetchDetailDefaultsBlankName(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"id": 4242, "name": "   ", "inventory_status": "available"}`)
	}))
	defer server.Close()

	detail, err := testClient(t, server).FetchDetail(context.Background(), 4242)
	require.NoError(t, err)
	assert.Equal(t, "4242", detail.Name, "a nameless listing falls back to its external id")
}

func TestFetchDetailNotFound(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	_, err := testClient(t, server).FetchDetail(context.Background(), 99)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, int32(1), calls.Load(), "a definitive 404 must not be retried")
}

func TestFetchDetailRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, `{"id": 7, "name": "Đèn bàn", "inventory_status": "available"}`)
	}))
	defer server.Close()

	detail, err := testClient(t, server).FetchDetail(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "Đèn bàn", detail.Name)
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetchDetailUnavailableAfterRetries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := testClient(t, server).FetchDetail(context.Background(), 7)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestFetchReviewsPaginatesAndSummarizes(t *testing.T) {
	pages := map[string]reviewsResponse{
		"1": {
			Data:          []reviewItem{{Title: "Tốt", Content: "Giao nhanh"}, {Content: "Ổn"}},
			Paging:        reviewPaging{Total: 5},
			RatingAverage: floatPtr(4.4),
			ReviewsCount:  intPtr(5),
			Stars: map[string]starEntry{
				"5": {Count: 3}, "4": {Count: 1}, "3": {Count: 0}, "2": {Count: 0}, "1": {Count: 1},
			},
		},
		"2": {Data: []reviewItem{{Title: "Tạm"}, {Title: "", Content: ""}}},
		"3": {Data: []reviewItem{{Content: "Không như hình"}}},
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, reviewsPath, r.URL.Path)
		assert.Equal(t, "88", r.URL.Query().Get("product_id"))
		page, ok := pages[r.URL.Query().Get("page")]
		require.True(t, ok, "unexpected page %q", r.URL.Query().Get("page"))
		require.NoError(t, json.NewEncoder(w).Encode(page))
	}))
	defer server.Close()

	texts, summary, err := testClient(t, server).FetchReviews(context.Background(), 88)
	require.NoError(t, err)

	// Page size 2 and total 5 means 3 pages; pages 2 and 3 arrive in
	// any order, so compare as a set.
	assert.ElementsMatch(t, []string{
		"Tốt, Giao nhanh", "Ổn", "Tạm", "Không như hình",
	}, texts)

	require.NotNil(t, summary.AvgRating)
	assert.InDelta(t, 4.4, *summary.AvgRating, 0.001)
	require.NotNil(t, summary.ReviewCount)
	assert.Equal(t, 5, *summary.ReviewCount)
	require.NotNil(t, summary.PositivePercent)
	assert.InDelta(t, 80.0, *summary.PositivePercent, 0.001)
}

func TestFetchReviewsNoStarsHistogram(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		require.NoError(t, json.NewEncoder(w).Encode(reviewsResponse{
			Paging: reviewPaging{Total: 0},
		}))
	}))
	defer server.Close()

	texts, summary, err := testClient(t, server).FetchReviews(context.Background(), 5)
	require.NoError(t, err)
	assert.Empty(t, texts)
	assert.Nil(t, summary.PositivePercent, "missing histogram must not read as zero percent")
	assert.Nil(t, summary.AvgRating)
}

func TestPageCount(t *testing.T) {
	assert.Equal(t, 1, pageCount(0, 20))
	assert.Equal(t, 1, pageCount(20, 20))
	assert.Equal(t, 2, pageCount(21, 20))
	assert.Equal(t, 3, pageCount(41, 20))
}

func floatPtr(v float64) *float64 { return &v }
func intPtr(v int) *int           { return &v }
