package storage

import (
	"context"
	"fmt"
	"time"

	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store manages PostgreSQL operations
type Store struct {
	pool *pgxpool.Pool
}

// querier is satisfied by both the pool and a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// NewStore creates a new PostgreSQL store with connection pooling
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Tune connection pool
	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = 1 * time.Hour
	config.MaxConnIdleTime = 30 * time.Minute

	// NUMERIC columns scan into shopspring decimals
	config.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		pgxdecimal.Register(conn.TypeMap())
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping PostgreSQL: %w", err)
	}

	return &Store{pool: pool}, nil
}

// Close closes the connection pool
func (s *Store) Close() {
	s.pool.Close()
}

// Ping verifies the connection is alive
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// AddWallet inserts a wallet. Adding an address that is already tracked is
// a no-op; the first add wins.
func (s *Store) AddWallet(ctx context.Context, w Wallet) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO wallets
		(address, label, chain, native_threshold, stable_threshold)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (address) DO NOTHING`,
		w.Address, w.Label, w.Chain, w.NativeThreshold, w.StableThreshold,
	)
	if err != nil {
		return fmt.Errorf("add wallet: %w", err)
	}
	return nil
}

// RemoveWallet deletes a wallet; removing an unknown address is a no-op.
func (s *Store) RemoveWallet(ctx context.Context, address string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM wallets WHERE address = $1`, address)
	if err != nil {
		return fmt.Errorf("remove wallet: %w", err)
	}
	return nil
}

// ListWallets returns a full snapshot of tracked wallets.
func (s *Store) ListWallets(ctx context.Context) ([]Wallet, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT address, label, chain,
		       native_threshold, stable_threshold,
		       last_native_balance, last_stable_balance,
		       native_alert_state, stable_alert_state,
		       created_at
		FROM wallets
		ORDER BY address`)
	if err != nil {
		return nil, fmt.Errorf("list wallets: %w", err)
	}
	defer rows.Close()

	var wallets []Wallet
	for rows.Next() {
		var w Wallet
		if err := rows.Scan(
			&w.Address, &w.Label, &w.Chain,
			&w.NativeThreshold, &w.StableThreshold,
			&w.LastNativeBalance, &w.LastStableBalance,
			&w.NativeAlertState, &w.StableAlertState,
			&w.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan wallet: %w", err)
		}
		wallets = append(wallets, w)
	}
	return wallets, rows.Err()
}

// appendObservation records one balance observation. The change column is
// the delta from the previous event for the same wallet and asset; the
// first observation's change equals its balance.
func appendObservation(ctx context.Context, q querier, address, label, chain string, obs Observation) error {
	_, err := q.Exec(ctx, `
		INSERT INTO balance_events
		(observed_at, address, label, chain, asset, change, new_balance)
		VALUES (
			now(), $1, $2, $3, $4,
			$5 - COALESCE((
				SELECT new_balance FROM balance_events
				WHERE address = $1 AND asset = $4
				ORDER BY id DESC LIMIT 1
			), 0),
			$5
		)`,
		address, label, chain, obs.Asset, obs.Balance,
	)
	if err != nil {
		return fmt.Errorf("append observation %s/%s: %w", address, obs.Asset, err)
	}
	return nil
}

// RecentObservations returns the newest events first, for display/export.
func (s *Store) RecentObservations(ctx context.Context, limit int) ([]BalanceEvent, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, observed_at, address, label, chain, asset, change, new_balance
		FROM balance_events
		ORDER BY id DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent observations: %w", err)
	}
	defer rows.Close()

	var events []BalanceEvent
	for rows.Next() {
		var ev BalanceEvent
		if err := rows.Scan(
			&ev.ID, &ev.ObservedAt, &ev.Address, &ev.Label, &ev.Chain,
			&ev.Asset, &ev.Change, &ev.NewBalance,
		); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// CommitScan persists one wallet's scan results in a single transaction:
// every observation, the last-known balances, and the alert states move
// together so concurrent cycles cannot tear the edge-trigger memory.
func (s *Store) CommitScan(ctx context.Context, up ScanUpdate) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin scan commit: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, obs := range up.Observations {
		if err := appendObservation(ctx, tx, up.Address, up.Label, up.Chain, obs); err != nil {
			return err
		}
	}

	var nativeState, stableState *string
	if up.NativeAlertState != "" {
		v := string(up.NativeAlertState)
		nativeState = &v
	}
	if up.StableAlertState != "" {
		v := string(up.StableAlertState)
		stableState = &v
	}

	_, err = tx.Exec(ctx, `
		UPDATE wallets SET
			last_native_balance = COALESCE($2, last_native_balance),
			native_alert_state  = COALESCE($3, native_alert_state),
			last_stable_balance = COALESCE($4, last_stable_balance),
			stable_alert_state  = COALESCE($5, stable_alert_state)
		WHERE address = $1`,
		up.Address, up.Native, nativeState, up.Stable, stableState,
	)
	if err != nil {
		return fmt.Errorf("commit scan for %s: %w", up.Address, err)
	}

	return tx.Commit(ctx)
}
