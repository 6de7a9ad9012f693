// Package sentiment turns review text into bounded polarity scores and
// labels, using anchor-phrase similarity with a deterministic keyword
// fallback.
package sentiment

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/lekhuynh/vietchoice/internal/logger"
)

// Sentiment labels assigned from score thresholds.
const (
	LabelPositive = "positive"
	LabelNeutral  = "neutral"
	LabelNegative = "negative"
)

// Label thresholds. Scores at or above positiveThreshold read as
// positive, at or above neutralThreshold as neutral, below as negative.
const (
	positiveThreshold = 0.4
	neutralThreshold  = -0.1
)

// scoreSharpness stretches the raw anchor-similarity gap before tanh so
// mildly-worded text does not pile up near zero.
const scoreSharpness = 1.5

// lexiconDivisor normalizes the keyword count difference in the
// fallback path.
const lexiconDivisor = 3.0

// Embedder produces one normalized-comparable vector per input text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float64, error)
}

// Anchors holds the exemplar phrases per polarity. They are
// configuration data, not logic; tune them without touching the scorer.
type Anchors struct {
	Positive []string
	Negative []string
}

// DefaultAnchors returns the built-in Vietnamese exemplar phrases.
func DefaultAnchors() Anchors {
	return Anchors{
		Positive: []string{
			"rất tốt", "tuyệt vời", "hài lòng", "xuất sắc",
			"chất lượng", "đáng mua", "ổn",
		},
		Negative: []string{
			"tệ", "kém", "thất vọng", "hỏng",
			"lỗi", "quá tệ", "kém chất lượng",
		},
	}
}

// Fallback keyword lists. Lowercase; matched by substring against
// lowercased input.
var (
	lexiconPositive = []string{"tuyệt", "tốt", "ok", "hài lòng", "ưng", "đẹp", "xuất sắc", "chất lượng"}
	lexiconNegative = []string{"tệ", "kém", "xấu", "thất vọng", "dở", "lỗi", "hỏng", "chậm"}
)

// Scorer scores review texts in [-1, 1]. Anchor embeddings are computed
// once on first use and cached for the Scorer's lifetime.
type Scorer struct {
	embedder Embedder
	anchors  Anchors
	log      logger.Interface

	mu         sync.Mutex
	posAnchors [][]float64
	negAnchors [][]float64
}

// NewScorer creates a scorer over the given embedder. A nil embedder
// forces the lexicon fallback for every call.
func NewScorer(embedder Embedder, anchors Anchors, log logger.Interface) *Scorer {
	if len(anchors.Positive) == 0 && len(anchors.Negative) == 0 {
		anchors = DefaultAnchors()
	}
	return &Scorer{embedder: embedder, anchors: anchors, log: log}
}

// Label maps a score to its sentiment label.
func Label(score float64) string {
	switch {
	case score >= positiveThreshold:
		return LabelPositive
	case score >= neutralThreshold:
		return LabelNeutral
	default:
		return LabelNegative
	}
}

// ScoreEach returns one score per input text, in input order. Empty
// texts score 0. When the embedder is unavailable the deterministic
// lexicon fallback is used instead; it is cruder in magnitude but obeys
// the same label thresholds.
func (s *Scorer) ScoreEach(ctx context.Context, texts []string) []float64 {
	if len(texts) == 0 {
		return nil
	}

	if s.embedder != nil {
		scores, err := s.scoreWithEmbeddings(ctx, texts)
		if err == nil {
			return scores
		}
		s.log.Warn("embedding score failed, using lexicon fallback", "error", err.Error())
	}

	scores := make([]float64, len(texts))
	for i, text := range texts {
		scores[i] = LexiconScore(text)
	}
	return scores
}

// Score returns the mean score across the given texts, or nil when
// there is no non-empty text. Nil means "no signal"; it is never
// conflated with a genuinely neutral 0.
func (s *Scorer) Score(ctx context.Context, texts []string) *float64 {
	kept := make([]string, 0, len(texts))
	for _, t := range texts {
		if strings.TrimSpace(t) != "" {
			kept = append(kept, t)
		}
	}
	if len(kept) == 0 {
		return nil
	}

	scores := s.ScoreEach(ctx, kept)
	sum := 0.0
	for _, v := range scores {
		sum += v
	}
	avg := sum / float64(len(scores))
	return &avg
}

func (s *Scorer) scoreWithEmbeddings(ctx context.Context, texts []string) ([]float64, error) {
	pos, neg, err := s.anchorEmbeddings(ctx)
	if err != nil {
		return nil, err
	}

	vectors, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, err
	}

	scores := make([]float64, len(vectors))
	for i, vec := range vectors {
		raw := meanCosine(vec, pos) - meanCosine(vec, neg)
		scores[i] = math.Tanh(raw * scoreSharpness)
	}
	return scores, nil
}

// anchorEmbeddings returns the cached anchor vectors, embedding them on
// first call. Failures are not cached so a flaky sidecar gets retried.
func (s *Scorer) anchorEmbeddings(ctx context.Context) ([][]float64, [][]float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.posAnchors != nil && s.negAnchors != nil {
		return s.posAnchors, s.negAnchors, nil
	}

	pos, err := s.embedder.Embed(ctx, s.anchors.Positive)
	if err != nil {
		return nil, nil, fmt.Errorf("embed positive anchors: %w", err)
	}
	neg, err := s.embedder.Embed(ctx, s.anchors.Negative)
	if err != nil {
		return nil, nil, fmt.Errorf("embed negative anchors: %w", err)
	}

	s.posAnchors, s.negAnchors = pos, neg
	return pos, neg, nil
}

// LexiconScore is the deterministic fallback: positive keyword hits
// minus negative keyword hits, normalized and clamped to [-1, 1].
func LexiconScore(text string) float64 {
	t := strings.ToLower(text)
	count := 0
	for _, w := range lexiconPositive {
		if strings.Contains(t, w) {
			count++
		}
	}
	for _, w := range lexiconNegative {
		if strings.Contains(t, w) {
			count--
		}
	}
	return clamp(float64(count)/lexiconDivisor, -1, 1)
}

// RatingScore maps a 1..5 star rating onto [-1, 1]. Out-of-range
// ratings clamp to the valid band first.
func RatingScore(rating int) float64 {
	return (clamp(float64(rating), 1, 5) - 3) / 2
}

func meanCosine(vec []float64, anchors [][]float64) float64 {
	if len(anchors) == 0 {
		return 0
	}
	sum := 0.0
	for _, anchor := range anchors {
		sum += cosine(vec, anchor)
	}
	return sum / float64(len(anchors))
}

// cosine computes cosine similarity without assuming the sidecar
// normalizes its vectors.
func cosine(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func clamp(v, low, high float64) float64 {
	if v < low {
		return low
	}
	if v > high {
		return high
	}
	return v
}
