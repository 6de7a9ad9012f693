// Package api exposes the crawl, refresh, and scoring pipeline over
// HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/lekhuynh/vietchoice/internal/crawler"
	"github.com/lekhuynh/vietchoice/internal/database"
	"github.com/lekhuynh/vietchoice/internal/domain"
	"github.com/lekhuynh/vietchoice/internal/logger"
	"github.com/lekhuynh/vietchoice/internal/ranking"
)

const defaultSearchLimit = 10

// Searcher runs a keyword search through the crawl pipeline.
type Searcher interface {
	Search(ctx context.Context, keyword string, limit int) (*crawler.SearchResult, error)
}

// BatchRefresher runs one stale-record refresh pass.
type BatchRefresher interface {
	RunOnce(ctx context.Context) (*domain.BatchStats, error)
}

// ProductReader loads stored products and category price context, and
// persists recomputed sentiment.
type ProductReader interface {
	GetByID(ctx context.Context, id int64) (*domain.Product, error)
	CategoryAvgPrice(ctx context.Context, categoryID int64) (*float64, error)
	UpdateSentiment(ctx context.Context, productID int64, score *float64, label *string) error
}

// SentimentRescorer recomputes a product's sentiment from its current
// review sources.
type SentimentRescorer interface {
	Recompute(ctx context.Context, p *domain.Product) (*float64, *string, error)
}

// Recommender suggests comparable products.
type Recommender interface {
	Recommend(ctx context.Context, productID int64, limit int) ([]domain.ProductProjection, error)
}

// Handler holds the HTTP handlers for the pipeline API.
type Handler struct {
	searcher    Searcher
	refresher   BatchRefresher
	products    ProductReader
	recommender Recommender
	rescorer    SentimentRescorer
	log         logger.Interface
}

// NewHandler creates the API handler set.
func NewHandler(
	searcher Searcher,
	refresher BatchRefresher,
	products ProductReader,
	recommender Recommender,
	rescorer SentimentRescorer,
	log logger.Interface,
) *Handler {
	return &Handler{
		searcher:    searcher,
		refresher:   refresher,
		products:    products,
		recommender: recommender,
		rescorer:    rescorer,
		log:         log,
	}
}

// Search handles GET /api/v1/search?q=...&limit=...
func (h *Handler) Search(c *gin.Context) {
	keyword := c.Query("q")
	if keyword == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query parameter q is required"})
		return
	}
	limit := queryInt(c, "limit", defaultSearchLimit)

	result, err := h.searcher.Search(c.Request.Context(), keyword, limit)
	if err != nil {
		h.log.Error("search failed",
			"keyword", keyword,
			"error", err.Error(),
		)
		c.JSON(http.StatusBadGateway, gin.H{"error": "search failed"})
		return
	}
	c.JSON(http.StatusOK, result)
}

// Refresh handles POST /api/v1/refresh and runs a refresh pass
// synchronously, returning its stats.
func (h *Handler) Refresh(c *gin.Context) {
	stats, err := h.refresher.RunOnce(c.Request.Context())
	if err != nil {
		h.log.Error("refresh run failed", "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "refresh failed"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// Score handles GET /api/v1/products/:id/score, returning the stored
// sentiment alongside a freshly computed risk assessment.
func (h *Handler) Score(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	product, err := h.products.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
			return
		}
		h.log.Error("load product failed", "product_id", id, "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load product"})
		return
	}

	var avgPrice *float64
	if product.CategoryID != nil {
		avgPrice, err = h.products.CategoryAvgPrice(c.Request.Context(), *product.CategoryID)
		if err != nil {
			h.log.Error("category average price failed",
				"product_id", id,
				"error", err.Error(),
			)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to assess risk"})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"product_id":      product.ID,
		"sentiment_score": product.SentimentScore,
		"sentiment_label": product.SentimentLabel,
		"risk":            ranking.AssessRisk(product, avgPrice),
	})
}

// Rescore handles POST /api/v1/products/:id/rescore, recomputing the
// product's sentiment from its current review sources and persisting
// the result.
func (h *Handler) Rescore(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	product, err := h.products.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
			return
		}
		h.log.Error("load product failed", "product_id", id, "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load product"})
		return
	}

	score, label, err := h.rescorer.Recompute(c.Request.Context(), product)
	if err != nil {
		h.log.Error("sentiment recompute failed", "product_id", id, "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to recompute sentiment"})
		return
	}
	if err := h.products.UpdateSentiment(c.Request.Context(), product.ID, score, label); err != nil {
		h.log.Error("sentiment update failed", "product_id", id, "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store sentiment"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"product_id":      product.ID,
		"sentiment_score": score,
		"sentiment_label": label,
	})
}

// Recommendations handles GET /api/v1/products/:id/recommendations.
func (h *Handler) Recommendations(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	limit := queryInt(c, "limit", ranking.DefaultRecommendLimit)

	recs, err := h.recommender.Recommend(c.Request.Context(), id, limit)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
			return
		}
		h.log.Error("recommendations failed", "product_id", id, "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to build recommendations"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"recommendations": recs, "count": len(recs)})
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product id"})
		return 0, false
	}
	return id, true
}

func queryInt(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}
