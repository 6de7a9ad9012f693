// Package scheduler implements the cron-driven refresh daemon command.
package scheduler

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lekhuynh/vietchoice/cmd/common"
	"github.com/lekhuynh/vietchoice/internal/refresh"
)

// Command returns the scheduler command.
func Command() *cobra.Command {
	return &cobra.Command{
		Use:   "scheduler",
		Short: "Run the cron-driven stale product refresher until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			deps, err := common.Build()
			if err != nil {
				return err
			}
			defer deps.Close()

			sched, err := refresh.NewScheduler(deps.Config.Refresh.CronSpec, deps.Refresher, deps.Log)
			if err != nil {
				return err
			}

			sched.Start()
			deps.Log.Info("scheduler running",
				"cron_spec", deps.Config.Refresh.CronSpec,
			)

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			<-quit

			sched.Stop()
			return nil
		},
	}
}
