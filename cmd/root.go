package cmd

import (
	"github.com/spf13/cobra"
)

var (
	cfgFile  string
	logLevel string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "whale-tracker",
	Short: "Multi-chain wallet balance tracker",
	Long: `whale-tracker polls tracked wallet addresses across multiple EVM chains
for native-coin and ERC-20 token balances, persists an append-only time
series to PostgreSQL, and fires multi-channel alerts when a balance
crosses its configured threshold.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.toml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
}
