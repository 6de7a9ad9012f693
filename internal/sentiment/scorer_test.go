package sentiment

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lekhuynh/vietchoice/internal/logger"
)

// mockEmbedder serves fixed vectors per text and records every call.
type mockEmbedder struct {
	mu      sync.Mutex
	vectors map[string][]float64
	err     error
	calls   [][]string
}

func (m *mockEmbedder) Embed(_ context.Context, texts []string) ([][]float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, texts)
	if m.err != nil {
		return nil, m.err
	}
	out := make([][]float64, len(texts))
	for i, t := range texts {
		vec, ok := m.vectors[t]
		if !ok {
			vec = []float64{0, 0}
		}
		out[i] = vec
	}
	return out, nil
}

func testAnchors() Anchors {
	return Anchors{Positive: []string{"good"}, Negative: []string{"bad"}}
}

func newTestEmbedder() *mockEmbedder {
	return &mockEmbedder{vectors: map[string][]float64{
		"good":    {1, 0},
		"bad":     {0, 1},
		"praise":  {1, 0},
		"scorn":   {0, 1},
		"neither": {1, 1},
	}}
}

func TestLabelThresholds(t *testing.T) {
	tests := []struct {
		score float64
		want  string
	}{
		{1.0, LabelPositive},
		{0.4, LabelPositive},
		{0.39, LabelNeutral},
		{0.0, LabelNeutral},
		{-0.1, LabelNeutral},
		{-0.11, LabelNegative},
		{-1.0, LabelNegative},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Label(tt.score), "score %v", tt.score)
	}
}

func TestLabelMonotonicity(t *testing.T) {
	rank := map[string]int{LabelNegative: 0, LabelNeutral: 1, LabelPositive: 2}

	prev := -1
	for score := -1.0; score <= 1.0; score += 0.01 {
		r := rank[Label(score)]
		require.GreaterOrEqual(t, r, prev, "label regressed at score %v", score)
		prev = r
	}
}

func TestScoreEachWithEmbeddings(t *testing.T) {
	embedder := newTestEmbedder()
	scorer := NewScorer(embedder, testAnchors(), logger.NewNoOp())

	scores := scorer.ScoreEach(context.Background(), []string{"praise", "scorn", "neither"})
	require.Len(t, scores, 3)

	assert.Greater(t, scores[0], 0.4, "text aligned with positive anchors must label positive")
	assert.Less(t, scores[1], -0.1, "text aligned with negative anchors must label negative")
	assert.InDelta(t, 0.0, scores[2], 0.01, "equidistant text scores near zero")

	for _, s := range scores {
		assert.GreaterOrEqual(t, s, -1.0)
		assert.LessOrEqual(t, s, 1.0)
	}
}

func TestAnchorsEmbeddedOnce(t *testing.T) {
	embedder := newTestEmbedder()
	scorer := NewScorer(embedder, testAnchors(), logger.NewNoOp())
	ctx := context.Background()

	scorer.ScoreEach(ctx, []string{"praise"})
	scorer.ScoreEach(ctx, []string{"scorn"})

	anchorCalls := 0
	for _, call := range embedder.calls {
		if len(call) == 1 && (call[0] == "good" || call[0] == "bad") {
			anchorCalls++
		}
	}
	assert.Equal(t, 2, anchorCalls, "one call per anchor set, cached afterwards")
}

func TestScoreFallsBackWhenEmbedderFails(t *testing.T) {
	embedder := &mockEmbedder{err: errors.New("boom")}
	scorer := NewScorer(embedder, testAnchors(), logger.NewNoOp())

	scores := scorer.ScoreEach(context.Background(), []string{"sản phẩm rất tốt", "quá tệ"})
	require.Len(t, scores, 2)
	assert.Greater(t, scores[0], 0.0)
	assert.Less(t, scores[1], 0.0)
}

func TestScoreMeanAndNilOnNoText(t *testing.T) {
	scorer := NewScorer(nil, testAnchors(), logger.NewNoOp())
	ctx := context.Background()

	assert.Nil(t, scorer.Score(ctx, nil))
	assert.Nil(t, scorer.Score(ctx, []string{"", "   "}), "blank texts carry no signal")

	score := scorer.Score(ctx, []string{"rất tốt", "quá tệ"})
	require.NotNil(t, score)
	assert.InDelta(t, 0.0, *score, 0.001, "one positive and one negative keyword average out")
}

func TestLexiconScore(t *testing.T) {
	tests := []struct {
		name string
		text string
		want float64
	}{
		{"two positives", "sản phẩm rất tốt, chất lượng", 2.0 / 3.0},
		{"two negatives", "quá tệ, hàng bị lỗi", -2.0 / 3.0},
		{"clamped positive", "tuyệt, tốt, ưng, đẹp, xuất sắc", 1.0},
		{"no keywords", "giao hàng hôm qua", 0.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, LexiconScore(tt.text), 0.001)
		})
	}
}

func TestRatingScore(t *testing.T) {
	assert.InDelta(t, 1.0, RatingScore(5), 0.001)
	assert.InDelta(t, 0.5, RatingScore(4), 0.001)
	assert.InDelta(t, 0.0, RatingScore(3), 0.001)
	assert.InDelta(t, -0.5, RatingScore(2), 0.001)
	assert.InDelta(t, -1.0, RatingScore(1), 0.001)
	assert.InDelta(t, -1.0, RatingScore(0), 0.001, "out-of-range clamps to the valid band")
	assert.InDelta(t, 1.0, RatingScore(9), 0.001)
}
