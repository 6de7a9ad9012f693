package domain

// Outcome classifies the result of processing one crawl candidate or
// one refresh item.
type Outcome string

const (
	// OutcomeCreated means a new record was persisted.
	OutcomeCreated Outcome = "created"
	// OutcomeUpdated means an existing record was refreshed.
	OutcomeUpdated Outcome = "updated"
	// OutcomeDeactivated means upstream confirmed removal or unavailability.
	OutcomeDeactivated Outcome = "deactivated"
	// OutcomeSkipped means the item was left untouched (transient failure or dedup hit).
	OutcomeSkipped Outcome = "skipped"
	// OutcomeError means processing failed before a definitive answer.
	OutcomeError Outcome = "error"
)

// ItemResult is the transient result of processing one item. It is
// aggregated into batch statistics and discarded, never persisted.
type ItemResult struct {
	ExternalID int64
	Outcome    Outcome
	Detail     string
}

// BatchStats aggregates per-outcome counters for a batch run. Counters
// are keyed by whatever outcome labels actually occurred.
type BatchStats struct {
	RunID    string         `json:"run_id"`
	Total    int            `json:"total"`
	Outcomes map[string]int `json:"outcomes"`
}

// NewBatchStats creates empty stats for a run.
func NewBatchStats(runID string) *BatchStats {
	return &BatchStats{RunID: runID, Outcomes: make(map[string]int)}
}

// Record tallies one item result.
func (s *BatchStats) Record(res ItemResult) {
	s.Total++
	s.Outcomes[string(res.Outcome)]++
}

// Count returns the tally for one outcome label.
func (s *BatchStats) Count(o Outcome) int {
	return s.Outcomes[string(o)]
}
