package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/whalehunter/whale-tracker/internal/config"
	"github.com/whalehunter/whale-tracker/internal/logger"
)

var validateCmd = &cobra.Command{
	Use:   "validate-config",
	Short: "Validate configuration file",
	Long:  `Validate the configuration file syntax and values without running the application.`,
	RunE:  validateConfig,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func validateConfig(cmd *cobra.Command, args []string) error {
	logger.Setup(logLevel)

	cfg, err := config.Load(cfgFile)
	if err != nil {
		slog.Error("Configuration validation failed", "error", err)
		return err
	}

	tokens := 0
	for _, chain := range cfg.Chains {
		tokens += len(chain.Tokens)
	}

	slog.Info("✓ Configuration valid",
		"chains", len(cfg.Chains),
		"scannable_chains", len(cfg.ScannableChains()),
		"tokens", tokens,
		"interval", cfg.Interval,
		"alert_channels", cfg.Alerts.Channels,
		"log_level", cfg.LogLevel,
	)

	return nil
}
