// Package refresh implements the one-shot batch refresh command.
package refresh

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lekhuynh/vietchoice/cmd/common"
)

// Command returns the refresh command.
func Command() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Refresh stale products once and print the outcome counters",
		RunE: func(cmd *cobra.Command, _ []string) error {
			deps, err := common.Build()
			if err != nil {
				return err
			}
			defer deps.Close()

			stats, err := deps.Refresher.RunOnce(cmd.Context())
			if err != nil {
				return fmt.Errorf("refresh run: %w", err)
			}

			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			return encoder.Encode(stats)
		},
	}
}
