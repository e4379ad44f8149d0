package scanner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/whalehunter/whale-tracker/internal/storage"
)

// ErrScanInProgress is returned when a cycle is requested while another is
// still running. Cycles never overlap; the edge-trigger state would tear.
var ErrScanInProgress = errors.New("scan cycle already in progress")

// NativeAsset is the asset symbol recorded for native-coin observations.
const NativeAsset = "native"

// stableSymbols are the tokens judged against the wallet's stable threshold.
var stableSymbols = map[string]bool{
	"USDT": true,
	"USDC": true,
	"DAI":  true,
}

// ChainReader is the read surface the engine needs from a chain client.
type ChainReader interface {
	NativeBalance(ctx context.Context, owner common.Address) (decimal.Decimal, error)
	TokenSymbols() []string
	TokenBalance(ctx context.Context, symbol string, owner common.Address) (decimal.Decimal, error)
}

// Store is the persistence surface the engine needs.
type Store interface {
	ListWallets(ctx context.Context) ([]storage.Wallet, error)
	CommitScan(ctx context.Context, up storage.ScanUpdate) error
}

// Alerter fans an alert message out to the configured channels.
type Alerter interface {
	Dispatch(ctx context.Context, message string)
}

// Engine runs scan cycles over every tracked wallet.
type Engine struct {
	chains map[string]ChainReader
	store  Store
	alerts Alerter
	logger *slog.Logger

	mu sync.Mutex // single-flight guard across scheduled and on-demand cycles
}

// New creates a scan engine over a fixed chain set.
func New(chains map[string]ChainReader, store Store, alerts Alerter, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		chains: chains,
		store:  store,
		alerts: alerts,
		logger: logger.With("component", "scanner"),
	}
}

// Scan executes one cycle: a full pass over the current wallet snapshot.
// Per-wallet and per-asset failures are logged and skipped; only a failure
// to load the snapshot or a cancelled context aborts the cycle.
func (e *Engine) Scan(ctx context.Context) error {
	if !e.mu.TryLock() {
		return ErrScanInProgress
	}
	defer e.mu.Unlock()

	wallets, err := e.store.ListWallets(ctx)
	if err != nil {
		return fmt.Errorf("load wallet snapshot: %w", err)
	}

	for _, w := range wallets {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		e.scanWallet(ctx, w)
	}

	e.logger.Info("Scan cycle completed", "wallets", len(wallets))
	return nil
}

func (e *Engine) scanWallet(ctx context.Context, w storage.Wallet) {
	client, ok := e.chains[w.Chain]
	if !ok {
		e.logger.Debug("No client for chain, skipping wallet",
			"wallet", w.Address, "chain", w.Chain)
		return
	}

	owner := common.HexToAddress(w.Address)
	up := storage.ScanUpdate{Address: w.Address, Label: w.Label, Chain: w.Chain}

	// Native balance
	native, err := client.NativeBalance(ctx, owner)
	if err != nil {
		e.logger.Warn("Native balance read failed, skipping asset",
			"wallet", w.Address, "chain", w.Chain, "error", err)
	} else {
		up.Observations = append(up.Observations, storage.Observation{
			Asset:   NativeAsset,
			Balance: native,
		})
		up.Native = &native

		newState := storage.AlertBelow
		if native.GreaterThanOrEqual(w.NativeThreshold) {
			newState = storage.AlertAbove
		}
		if newState == storage.AlertAbove && w.NativeAlertState != storage.AlertAbove {
			e.alerts.Dispatch(ctx, fmt.Sprintf("🚨 %s [%s] Native Balance Alert: %s",
				w.Label, w.Chain, native.StringFixed(4)))
		}
		up.NativeAlertState = newState
	}

	// Token balances, fanned out in parallel; each read retried
	// independently and one failure never blocks the others.
	symbols := client.TokenSymbols()
	balances := e.readTokens(ctx, client, owner, w, symbols)

	for _, sym := range symbols {
		bal, ok := balances[sym]
		if !ok {
			continue
		}
		up.Observations = append(up.Observations, storage.Observation{
			Asset:   sym,
			Balance: bal,
		})
	}

	// Stable-token edge trigger: one state for the stable family, any
	// member at or above the threshold counts as above.
	sawStable := false
	above := false
	var crossedSym string
	var crossedBal decimal.Decimal
	for _, sym := range symbols {
		if !stableSymbols[sym] {
			continue
		}
		bal, ok := balances[sym]
		if !ok {
			continue
		}
		sawStable = true
		if bal.GreaterThanOrEqual(w.StableThreshold) {
			if !above {
				crossedSym, crossedBal = sym, bal
			}
			above = true
		}
	}
	if sawStable {
		newState := storage.AlertBelow
		if above {
			newState = storage.AlertAbove
		}
		if above && w.StableAlertState != storage.AlertAbove {
			e.alerts.Dispatch(ctx, fmt.Sprintf("🚨 %s [%s] %s High Balance: %s",
				w.Label, w.Chain, crossedSym, crossedBal.StringFixed(2)))
		}
		up.StableAlertState = newState
	}

	// Last stable balance comes from the loop's own USDT read; no
	// duplicate round trip.
	if usdt, ok := balances["USDT"]; ok {
		up.Stable = &usdt
	}

	if err := e.store.CommitScan(ctx, up); err != nil {
		e.logger.Error("Failed to persist scan results, continuing",
			"wallet", w.Address, "error", err)
	}
}

func (e *Engine) readTokens(ctx context.Context, client ChainReader, owner common.Address, w storage.Wallet, symbols []string) map[string]decimal.Decimal {
	type tokenResult struct {
		symbol  string
		balance decimal.Decimal
	}

	results := make(chan tokenResult, len(symbols))
	var wg sync.WaitGroup
	for _, sym := range symbols {
		wg.Add(1)
		go func(sym string) {
			defer wg.Done()
			bal, err := client.TokenBalance(ctx, sym, owner)
			if err != nil {
				e.logger.Warn("Token read failed, skipping asset",
					"wallet", w.Address, "chain", w.Chain, "token", sym, "error", err)
				return
			}
			results <- tokenResult{symbol: sym, balance: bal}
		}(sym)
	}
	wg.Wait()
	close(results)

	balances := make(map[string]decimal.Decimal, len(symbols))
	for r := range results {
		balances[r.symbol] = r.balance
	}
	return balances
}
