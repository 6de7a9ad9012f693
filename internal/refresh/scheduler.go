package refresh

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"

	"github.com/lekhuynh/vietchoice/internal/logger"
)

// Scheduler triggers batch refresh runs on a cron spec.
type Scheduler struct {
	cron      *cron.Cron
	refresher *Refresher
	log       logger.Interface
}

// NewScheduler wires the refresher to a cron entry. The spec uses the
// standard five-field cron format.
func NewScheduler(spec string, refresher *Refresher, log logger.Interface) (*Scheduler, error) {
	s := &Scheduler{
		cron:      cron.New(),
		refresher: refresher,
		log:       log,
	}

	if _, err := s.cron.AddFunc(spec, s.run); err != nil {
		return nil, fmt.Errorf("register refresh cron %q: %w", spec, err)
	}
	return s, nil
}

// Start begins cron scheduling in the background.
func (s *Scheduler) Start() {
	s.log.Info("refresh scheduler started")
	s.cron.Start()
}

// Stop halts scheduling and waits for any in-flight run to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info("refresh scheduler stopped")
}

func (s *Scheduler) run() {
	stats, err := s.refresher.RunOnce(context.Background())
	if err != nil {
		s.log.Error("scheduled refresh run failed", "error", err.Error())
		return
	}
	s.log.Info("scheduled refresh run complete",
		"run_id", stats.RunID,
		"total", stats.Total,
		"outcomes", stats.Outcomes,
	)
}
