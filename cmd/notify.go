package cmd

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/whalehunter/whale-tracker/internal/config"
	"github.com/whalehunter/whale-tracker/internal/logger"
	"github.com/whalehunter/whale-tracker/internal/notify"
)

var notifyTestCmd = &cobra.Command{
	Use:   "notify-test",
	Short: "Send a test notification to all configured channels",
	RunE:  runNotifyTest,
}

func init() {
	rootCmd.AddCommand(notifyTestCmd)
}

func runNotifyTest(cmd *cobra.Command, args []string) error {
	logger.Setup(logLevel)

	cfg, err := config.Load(cfgFile)
	if err != nil {
		slog.Error("Configuration error", "error", err)
		return err
	}

	dispatcher := notify.NewDispatcher(cfg.Alerts, slog.Default())
	slog.Info("Sending test notification", "channels", dispatcher.Channels())
	dispatcher.Dispatch(context.Background(), "👋 Test notification from whale-tracker")
	return nil
}
