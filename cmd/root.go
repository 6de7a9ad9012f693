// Package cmd implements the command-line interface for the vietchoice
// pipeline.
package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/lekhuynh/vietchoice/cmd/crawl"
	"github.com/lekhuynh/vietchoice/cmd/refresh"
	"github.com/lekhuynh/vietchoice/cmd/scheduler"
	"github.com/lekhuynh/vietchoice/cmd/serve"
)

var (
	// cfgFile holds the path to the configuration file.
	cfgFile string

	// debug enables debug mode for all commands.
	debug bool

	rootCmd = &cobra.Command{
		Use:   "vietchoice",
		Short: "Marketplace crawl, scoring, and ranking pipeline",
		Long: `vietchoice crawls marketplace products for a keyword, scores review
sentiment, ranks results, and keeps stored records fresh.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
)

// Execute runs the root command.
func Execute() error {
	_ = godotenv.Load()
	_ = rootCmd.ParseFlags(os.Args[1:])

	if err := initConfig(); err != nil {
		return fmt.Errorf("initialize configuration: %w", err)
	}
	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug mode")

	rootCmd.AddCommand(crawl.Command())
	rootCmd.AddCommand(refresh.Command())
	rootCmd.AddCommand(scheduler.Command())
	rootCmd.AddCommand(serve.Command())
}

// initConfig reads the config file and environment variables.
func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("./config")
	}

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults()

	// Config file is optional; defaults and environment cover the rest.
	if err := viper.ReadInConfig(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: config file not found: %v (using defaults and environment variables)\n", err)
	}

	if err := viper.BindPFlag("app.debug", rootCmd.PersistentFlags().Lookup("debug")); err != nil {
		return fmt.Errorf("bind debug flag: %w", err)
	}
	return nil
}

func setDefaults() {
	viper.SetDefault("app.name", "vietchoice")
	viper.SetDefault("app.environment", "development")
	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.encoding", "json")
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", "5432")
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.dbname", "vietchoice")
	viper.SetDefault("database.sslmode", "disable")
}
