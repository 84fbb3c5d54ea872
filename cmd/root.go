package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/psds-microservice/apihub-support/internal/config"
	"github.com/psds-microservice/apihub-support/internal/logger"
)

var rootCmd = &cobra.Command{
	Use:           "apihub-support",
	Short:         "APIHub support chatbot, tickets and usage dashboard",
	RunE:          runAPI,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(apiCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(ticketsCmd)
	rootCmd.AddCommand(replayEventsCmd)
}

// loadConfig reads the environment (and .env) and sets up the global logger.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if _, err := logger.New(cfg.LogLevel, cfg.LogFormat); err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return cfg, nil
}
