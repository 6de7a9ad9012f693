// Package crawl implements the one-shot keyword crawl command.
package crawl

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lekhuynh/vietchoice/cmd/common"
)

// Command returns the crawl command.
func Command() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "crawl <keyword>",
		Short: "Crawl marketplace products for a keyword and print ranked results",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := common.Build()
			if err != nil {
				return err
			}
			defer deps.Close()

			keyword := args[0]
			result, err := deps.Orchestrator.Search(cmd.Context(), keyword, limit)
			if err != nil {
				return fmt.Errorf("crawl %q: %w", keyword, err)
			}

			deps.Log.Info("crawl finished",
				"keyword", keyword,
				"products", len(result.Products),
			)

			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			return encoder.Encode(result)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 10, "maximum candidates to crawl")
	return cmd
}
