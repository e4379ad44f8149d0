package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/whalehunter/whale-tracker/internal/blockchain"
	"github.com/whalehunter/whale-tracker/internal/config"
	"github.com/whalehunter/whale-tracker/internal/health"
	"github.com/whalehunter/whale-tracker/internal/logger"
	"github.com/whalehunter/whale-tracker/internal/notify"
	"github.com/whalehunter/whale-tracker/internal/scanner"
	"github.com/whalehunter/whale-tracker/internal/scheduler"
	"github.com/whalehunter/whale-tracker/internal/server"
	"github.com/whalehunter/whale-tracker/internal/storage"
)

var (
	interval string
	once     bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the wallet balance scanner",
	Long:  `Poll tracked wallets across all configured chains and persist results to PostgreSQL.`,
	RunE:  runScanner,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&interval, "interval", "", "scan interval - duration (60s, 5m) or cron (\"*/5 * * * *\") - empty uses config")
	runCmd.Flags().BoolVar(&once, "once", false, "run one scan cycle and exit")
}

func runScanner(cmd *cobra.Command, args []string) error {
	// Setup logger (log-level from global flag)
	logger.Setup(logLevel)

	// Context with graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		sig := <-sigChan
		slog.Info("Signal received, graceful shutdown", "signal", sig)
		cancel()
	}()

	// Load config
	cfg, databaseURL, err := config.LoadWithDefaults(cfgFile)
	if err != nil {
		slog.Error("Configuration error", "error", err)
		return err
	}

	// Override log level if set in config
	if cfg.LogLevel != "" {
		logger.Setup(cfg.LogLevel)
	}

	// Use interval from flag if provided, otherwise from config
	runInterval := interval
	if runInterval == "" {
		runInterval = cfg.Interval
	}

	slog.Info("Configuration loaded",
		"config_path", cfgFile,
		"chains", cfg.ScannableChains(),
		"interval", runInterval,
		"alert_channels", cfg.Alerts.Channels,
	)

	// Connect to PostgreSQL
	store, err := storage.NewStore(ctx, databaseURL)
	if err != nil {
		slog.Error("Failed to connect to PostgreSQL", "error", err)
		return err
	}
	defer store.Close()
	slog.Info("PostgreSQL connection established")

	// Apply pending migrations
	if err := storage.RunMigrations(ctx, databaseURL); err != nil {
		slog.Error("Migration failed", "error", err)
		return err
	}

	// Build the chain client pool once; it is reused across all cycles
	pool, err := blockchain.NewPool(ctx, chainOptions(cfg))
	if err != nil {
		slog.Error("Failed to build chain pool", "error", err)
		return err
	}
	defer pool.Close()

	dispatcher := notify.NewDispatcher(cfg.Alerts, slog.Default())
	slog.Info("Alert channels ready", "channels", dispatcher.Channels())

	chains := make(map[string]scanner.ChainReader)
	for _, name := range pool.Names() {
		client, _ := pool.Get(name)
		chains[name] = client
	}
	engine := scanner.New(chains, store, dispatcher, slog.Default())

	// Run mode: one-time or daemon
	if runInterval == "" || once {
		return engine.Scan(ctx)
	}

	slog.Info("Starting daemon mode", "interval", runInterval)

	var healthChecker *health.Checker
	jobFunc := func(jobCtx context.Context) error {
		err := engine.Scan(jobCtx)
		if healthChecker != nil {
			healthChecker.UpdateLastRun(err == nil)
		}
		return err
	}

	sched, err := scheduler.NewScheduler(ctx, scheduler.Config{
		Interval:       runInterval,
		RunImmediately: true,
		Logger:         slog.Default(),
	}, jobFunc)
	if err != nil {
		slog.Error("Failed to create scheduler", "error", err)
		return fmt.Errorf("scheduler creation failed: %w", err)
	}
	defer sched.Stop()

	healthChecker = health.NewChecker(store, pool, sched.ExpectedInterval())

	// Admin HTTP surface: wallet CRUD, scan-now, export, /health
	srv := server.New(store, engine, dispatcher, cfg, healthChecker.Handler(), slog.Default())

	httpPort := cfg.HTTPPort
	if httpPort == 0 {
		httpPort = 8080
	}
	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", httpPort),
		Handler: srv.Router(),
	}

	go func() {
		slog.Info("Admin server starting", "port", httpPort)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Admin server error", "error", err)
		}
	}()

	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("Admin server shutdown error", "error", err)
		}
	}()

	if err := sched.Start(); err != nil {
		slog.Error("Failed to start scheduler", "error", err)
		return fmt.Errorf("scheduler start failed: %w", err)
	}

	// Wait for shutdown signal
	<-ctx.Done()
	slog.Info("Shutdown requested, stopping daemon")
	return nil
}

// chainOptions converts the chain registry into pool options. Chains
// without an endpoint are excluded here and so never scanned.
func chainOptions(cfg *config.Config) map[string]blockchain.Options {
	out := make(map[string]blockchain.Options, len(cfg.Chains))
	for name, chain := range cfg.Chains {
		if chain.RPCUrl == "" {
			continue
		}
		tokens := make([]blockchain.Token, 0, len(chain.Tokens))
		for _, tok := range chain.Tokens {
			tokens = append(tokens, blockchain.Token{
				Symbol:   tok.Symbol,
				Address:  common.HexToAddress(tok.Address),
				Decimals: tok.Decimals,
			})
		}
		out[name] = blockchain.Options{
			RPCUrl:      chain.RPCUrl,
			Tokens:      tokens,
			MinInterval: chain.RateLimit,
		}
	}
	return out
}
