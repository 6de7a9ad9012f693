package crawler

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lekhuynh/vietchoice/internal/domain"
	"github.com/lekhuynh/vietchoice/internal/logger"
	"github.com/lekhuynh/vietchoice/internal/upstream"
)

type fakeStore struct {
	mu       sync.Mutex
	nextID   int64
	products map[int64]*domain.Product // keyed by external ID

	upsertCalls    int
	sentimentCalls int
	sentimentErr   error
}

func newFakeStore() *fakeStore {
	return &fakeStore{products: make(map[int64]*domain.Product)}
}

func (s *fakeStore) ListByExternalIDs(_ context.Context, source string, externalIDs []int64) ([]*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.Product
	for _, id := range externalIDs {
		if p, ok := s.products[id]; ok && p.Source == source {
			copied := *p
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (s *fakeStore) Upsert(_ context.Context, patch *domain.ProductPatch) (*domain.Product, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upsertCalls++

	if existing, ok := s.products[patch.ExternalID]; ok {
		if patch.Price != nil {
			existing.Price = patch.Price
		}
		copied := *existing
		return &copied, false, nil
	}

	s.nextID++
	extID := patch.ExternalID
	p := &domain.Product{
		ID:         s.nextID,
		Source:     patch.Source,
		ExternalID: &extID,
		CategoryID: patch.CategoryID,
		Price:      patch.Price,
		AvgRating:  patch.AvgRating,
		Active:     true,
	}
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	s.products[patch.ExternalID] = p
	copied := *p
	return &copied, true, nil
}

func (s *fakeStore) UpdateSentiment(_ context.Context, productID int64, score *float64, label *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sentimentCalls++
	if s.sentimentErr != nil {
		return s.sentimentErr
	}
	for _, p := range s.products {
		if p.ID == productID {
			p.SentimentScore = score
			p.SentimentLabel = label
		}
	}
	return nil
}

type fakeMarket struct {
	mu          sync.Mutex
	searchIDs   []int64
	searchErr   error
	details     map[int64]*upstream.ProductDetail
	detailErrs  map[int64]error
	reviews     map[int64][]string
	reviewsErr  error
	detailCalls map[int64]int
}

func newFakeMarket() *fakeMarket {
	return &fakeMarket{
		details:     make(map[int64]*upstream.ProductDetail),
		detailErrs:  make(map[int64]error),
		reviews:     make(map[int64][]string),
		detailCalls: make(map[int64]int),
	}
}

func (m *fakeMarket) DiscoverCandidates(_ context.Context, _ string, limit int) ([]int64, error) {
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	if len(m.searchIDs) > limit {
		return m.searchIDs[:limit], nil
	}
	return m.searchIDs, nil
}

func (m *fakeMarket) FetchDetail(_ context.Context, externalID int64) (*upstream.ProductDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.detailCalls[externalID]++
	if err, ok := m.detailErrs[externalID]; ok {
		return nil, err
	}
	if d, ok := m.details[externalID]; ok {
		return d, nil
	}
	return nil, upstream.ErrNotFound
}

func (m *fakeMarket) FetchReviews(_ context.Context, externalID int64) ([]string, *domain.ReviewSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.reviewsErr != nil {
		return nil, nil, m.reviewsErr
	}
	avg := 4.0
	count := 7
	return m.reviews[externalID], &domain.ReviewSummary{AvgRating: &avg, ReviewCount: &count}, nil
}

type fakeResolver struct {
	category *domain.Category
	err      error
}

func (r *fakeResolver) Resolve(_ context.Context, _ string, _ []string) (*domain.Category, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.category, nil
}

type fakeScorer struct{}

func (fakeScorer) ScoreTexts(_ context.Context, texts []string) (*float64, *string) {
	if len(texts) == 0 {
		return nil, nil
	}
	score := 0.5
	label := "positive"
	return &score, &label
}

func detailFor(id int64, price float64) *upstream.ProductDetail {
	p := price
	return &upstream.ProductDetail{
		ExternalID:  id,
		Name:        "item",
		Price:       &p,
		Breadcrumbs: []string{"Điện thoại"},
	}
}

func newTestOrchestrator(store *fakeStore, market *fakeMarket) *Orchestrator {
	resolver := &fakeResolver{category: &domain.Category{ID: 9}}
	return NewOrchestrator("Tiki", 8, store, market, resolver, fakeScorer{}, logger.NewNoOp())
}

func TestSearchCrawlsNewCandidates(t *testing.T) {
	store := newFakeStore()
	market := newFakeMarket()
	market.searchIDs = []int64{10, 11}
	market.details[10] = detailFor(10, 100)
	market.details[11] = detailFor(11, 200)
	market.reviews[10] = []string{"rất tốt"}
	market.reviews[11] = []string{"ổn"}

	result, err := newTestOrchestrator(store, market).Search(context.Background(), "áo", 10)
	require.NoError(t, err)
	assert.Len(t, result.Products, 2)
	assert.Empty(t, result.Reason)
	assert.Equal(t, 2, store.upsertCalls)
	assert.Equal(t, 2, store.sentimentCalls)
}

func TestSearchIsIdempotent(t *testing.T) {
	store := newFakeStore()
	market := newFakeMarket()
	market.searchIDs = []int64{10}
	market.details[10] = detailFor(10, 100)

	orch := newTestOrchestrator(store, market)
	ctx := context.Background()

	first, err := orch.Search(ctx, "áo", 10)
	require.NoError(t, err)
	require.Len(t, first.Products, 1)

	second, err := orch.Search(ctx, "áo", 10)
	require.NoError(t, err)
	require.Len(t, second.Products, 1)

	assert.Equal(t, 1, market.detailCalls[10], "cached candidates must not be re-fetched")
	assert.Equal(t, 1, store.upsertCalls)
}

func TestSearchIsolatesCandidateFailures(t *testing.T) {
	store := newFakeStore()
	market := newFakeMarket()
	market.searchIDs = []int64{10, 11, 12}
	market.details[10] = detailFor(10, 100)
	market.detailErrs[11] = upstream.ErrUnavailable
	market.details[12] = detailFor(12, 300)

	result, err := newTestOrchestrator(store, market).Search(context.Background(), "áo", 10)
	require.NoError(t, err)
	assert.Len(t, result.Products, 2, "one failing candidate must not sink its siblings")
}

func TestSearchNoCandidates(t *testing.T) {
	market := newFakeMarket()

	result, err := newTestOrchestrator(newFakeStore(), market).Search(context.Background(), "xyzzy", 10)
	require.NoError(t, err)
	assert.Empty(t, result.Products)
	assert.Equal(t, ReasonNoCandidates, result.Reason)
}

func TestSearchAllCandidatesFail(t *testing.T) {
	market := newFakeMarket()
	market.searchIDs = []int64{10}
	market.detailErrs[10] = upstream.ErrUnavailable

	result, err := newTestOrchestrator(newFakeStore(), market).Search(context.Background(), "áo", 10)
	require.NoError(t, err)
	assert.Empty(t, result.Products)
	assert.Equal(t, ReasonAllFailed, result.Reason)
}

func TestSearchDiscoveryError(t *testing.T) {
	market := newFakeMarket()
	market.searchErr = errors.New("upstream down")

	_, err := newTestOrchestrator(newFakeStore(), market).Search(context.Background(), "áo", 10)
	assert.Error(t, err)
}

func TestSearchRanksResults(t *testing.T) {
	store := newFakeStore()
	market := newFakeMarket()
	market.searchIDs = []int64{10, 11}
	market.details[10] = detailFor(10, 100)
	market.details[11] = detailFor(11, 200)
	// Only candidate 11 carries review text, so it alone earns a
	// sentiment score and ranks first.
	market.reviews[11] = []string{"tuyệt vời"}

	result, err := newTestOrchestrator(store, market).Search(context.Background(), "áo", 10)
	require.NoError(t, err)
	require.Len(t, result.Products, 2)
	assert.GreaterOrEqual(t, result.Products[0].QualityScore, result.Products[1].QualityScore)
	require.NotNil(t, result.Products[0].ExternalID)
	assert.Equal(t, int64(11), *result.Products[0].ExternalID)
}

func TestSearchSurvivesReviewFetchFailure(t *testing.T) {
	store := newFakeStore()
	market := newFakeMarket()
	market.searchIDs = []int64{10}
	market.details[10] = detailFor(10, 100)
	market.reviewsErr = errors.New("timeout")

	result, err := newTestOrchestrator(store, market).Search(context.Background(), "áo", 10)
	require.NoError(t, err)
	require.Len(t, result.Products, 1, "detail without reviews is still worth persisting")
	assert.Nil(t, result.Products[0].SentimentScore)
	assert.Zero(t, store.sentimentCalls,
		"unfetched reviews must not overwrite sentiment with no-signal")
}

func TestSearchSentimentFailureDoesNotRollBack(t *testing.T) {
	store := newFakeStore()
	store.sentimentErr = errors.New("db write failed")
	market := newFakeMarket()
	market.searchIDs = []int64{10}
	market.details[10] = detailFor(10, 100)
	market.reviews[10] = []string{"rất tốt"}

	result, err := newTestOrchestrator(store, market).Search(context.Background(), "áo", 10)
	require.NoError(t, err)
	assert.Len(t, result.Products, 1)
	assert.Equal(t, 1, store.upsertCalls, "persisted record survives a sentiment write failure")
}
