package ranking

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lekhuynh/vietchoice/internal/database"
	"github.com/lekhuynh/vietchoice/internal/domain"
	"github.com/lekhuynh/vietchoice/internal/logger"
	"github.com/lekhuynh/vietchoice/internal/sentiment"
)

type mockProductStore struct {
	base       *domain.Product
	candidates []*domain.Product
	avgPrice   *float64

	gotMinPrice  float64
	gotMaxPrice  float64
	gotPoorLabel string
}

func (m *mockProductStore) GetByID(_ context.Context, _ int64) (*domain.Product, error) {
	if m.base == nil {
		return nil, database.ErrNotFound
	}
	return m.base, nil
}

func (m *mockProductStore) CategoryAvgPrice(_ context.Context, _ int64) (*float64, error) {
	return m.avgPrice, nil
}

func (m *mockProductStore) ListRecommendationCandidates(
	_ context.Context,
	_ int64,
	_ int64,
	minPrice, maxPrice float64,
	_ int,
	poorLabel string,
) ([]*domain.Product, error) {
	m.gotMinPrice = minPrice
	m.gotMaxPrice = maxPrice
	m.gotPoorLabel = poorLabel
	return m.candidates, nil
}

func catPtr(id int64) *int64 { return &id }

func TestRecommendFiltersByRiskAndKeepsOrder(t *testing.T) {
	store := &mockProductStore{
		base: &domain.Product{ID: 1, CategoryID: catPtr(7), Price: f64(100)},
		// Ordered best-sentiment first, the way the store returns them.
		candidates: []*domain.Product{
			{ID: 2, Price: f64(110), ReviewCount: intp(10), PositivePercent: f64(95), SentimentScore: f64(0.8)},
			// Priced far under the category average and poorly
			// reviewed; risk pushes this one over the ceiling.
			{ID: 3, Price: f64(71), ReviewCount: intp(10), PositivePercent: f64(40), SentimentScore: f64(0.5)},
			{ID: 4, Price: f64(90), ReviewCount: intp(8), PositivePercent: f64(85), SentimentScore: f64(0.2)},
		},
		avgPrice: f64(120),
	}
	rec := NewRecommender(store, logger.NewNoOp())

	got, err := rec.Recommend(context.Background(), 1, 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(2), got[0].ProductID)
	assert.Equal(t, int64(4), got[1].ProductID)

	assert.InDelta(t, 70.0, store.gotMinPrice, 1e-9)
	assert.InDelta(t, 130.0, store.gotMaxPrice, 1e-9)
	assert.Equal(t, sentiment.LabelNegative, store.gotPoorLabel)
}

func TestRecommendLimit(t *testing.T) {
	candidates := make([]*domain.Product, 10)
	for i := range candidates {
		candidates[i] = &domain.Product{
			ID:              int64(i + 2),
			Price:           f64(100),
			ReviewCount:     intp(10),
			PositivePercent: f64(95),
		}
	}
	store := &mockProductStore{
		base:       &domain.Product{ID: 1, CategoryID: catPtr(7), Price: f64(100)},
		candidates: candidates,
		avgPrice:   f64(100),
	}
	rec := NewRecommender(store, logger.NewNoOp())

	got, err := rec.Recommend(context.Background(), 1, 3)
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

func TestRecommendNoCategory(t *testing.T) {
	store := &mockProductStore{base: &domain.Product{ID: 1}}
	rec := NewRecommender(store, logger.NewNoOp())

	got, err := rec.Recommend(context.Background(), 1, 5)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRecommendUnknownProduct(t *testing.T) {
	rec := NewRecommender(&mockProductStore{}, logger.NewNoOp())

	_, err := rec.Recommend(context.Background(), 99, 5)
	assert.ErrorIs(t, err, database.ErrNotFound)
}

func TestRecommendUnpricedReferenceUsesOpenBand(t *testing.T) {
	store := &mockProductStore{
		base: &domain.Product{ID: 1, CategoryID: catPtr(7)},
	}
	rec := NewRecommender(store, logger.NewNoOp())

	_, err := rec.Recommend(context.Background(), 1, 5)
	require.NoError(t, err)
	assert.Zero(t, store.gotMinPrice)
	assert.Greater(t, store.gotMaxPrice, 1e9)
}
