// Package serve implements the HTTP server command.
package serve

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/lekhuynh/vietchoice/cmd/common"
	"github.com/lekhuynh/vietchoice/internal/api"
)

const shutdownTimeout = 15 * time.Second

// Command returns the serve command.
func Command() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the pipeline HTTP API",
		RunE: func(_ *cobra.Command, _ []string) error {
			deps, err := common.Build()
			if err != nil {
				return err
			}
			defer deps.Close()

			server := api.NewServer(deps.Config.Server, deps.APIHandler, deps.Config.App.Debug, deps.Log)

			errCh := make(chan error, 1)
			go func() {
				errCh <- server.Start()
			}()

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

			select {
			case err := <-errCh:
				if err != nil {
					return fmt.Errorf("http server: %w", err)
				}
				return nil
			case <-quit:
			}

			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return server.Shutdown(ctx)
		},
	}
}
