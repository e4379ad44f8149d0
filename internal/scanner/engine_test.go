package scanner

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/whalehunter/whale-tracker/internal/storage"
)

type fakeChain struct {
	native    decimal.Decimal
	nativeErr error
	order     []string
	tokens    map[string]decimal.Decimal
	tokenErrs map[string]error
}

func (c *fakeChain) NativeBalance(ctx context.Context, owner common.Address) (decimal.Decimal, error) {
	if c.nativeErr != nil {
		return decimal.Zero, c.nativeErr
	}
	return c.native, nil
}

func (c *fakeChain) TokenSymbols() []string { return c.order }

func (c *fakeChain) TokenBalance(ctx context.Context, symbol string, owner common.Address) (decimal.Decimal, error) {
	if err := c.tokenErrs[symbol]; err != nil {
		return decimal.Zero, err
	}
	return c.tokens[symbol], nil
}

// fakeStore applies committed updates back onto its wallet set so that a
// second cycle sees the alert states the first one wrote.
type fakeStore struct {
	wallets   []storage.Wallet
	listErr   error
	listGate  chan struct{} // when set, ListWallets blocks until closed
	commitErr error
	commits   []storage.ScanUpdate
}

func (s *fakeStore) ListWallets(ctx context.Context) ([]storage.Wallet, error) {
	if s.listGate != nil {
		<-s.listGate
	}
	if s.listErr != nil {
		return nil, s.listErr
	}
	out := make([]storage.Wallet, len(s.wallets))
	copy(out, s.wallets)
	return out, nil
}

func (s *fakeStore) CommitScan(ctx context.Context, up storage.ScanUpdate) error {
	s.commits = append(s.commits, up)
	if s.commitErr != nil {
		return s.commitErr
	}
	for i := range s.wallets {
		if s.wallets[i].Address != up.Address {
			continue
		}
		if up.Native != nil {
			s.wallets[i].LastNativeBalance = *up.Native
			s.wallets[i].NativeAlertState = up.NativeAlertState
		}
		if up.Stable != nil {
			s.wallets[i].LastStableBalance = *up.Stable
		}
		if up.StableAlertState != "" {
			s.wallets[i].StableAlertState = up.StableAlertState
		}
	}
	return nil
}

type fakeAlerter struct {
	messages []string
}

func (a *fakeAlerter) Dispatch(ctx context.Context, message string) {
	a.messages = append(a.messages, message)
}

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

func whaleWallet(t *testing.T) storage.Wallet {
	t.Helper()
	return storage.Wallet{
		Address:          "0x742d35Cc6634C0532925a3b844Bc9e7595f0bEb0",
		Label:            "Whale #1",
		Chain:            "ethereum",
		NativeThreshold:  dec(t, "1.0"),
		StableThreshold:  dec(t, "100"),
		NativeAlertState: storage.AlertBelow,
		StableAlertState: storage.AlertBelow,
	}
}

func TestScanAlertsOnThresholdCrossing(t *testing.T) {
	chain := &fakeChain{
		native: dec(t, "1.5"),
		order:  []string{"USDT"},
		tokens: map[string]decimal.Decimal{"USDT": dec(t, "150")},
	}
	store := &fakeStore{wallets: []storage.Wallet{whaleWallet(t)}}
	alerts := &fakeAlerter{}

	eng := New(map[string]ChainReader{"ethereum": chain}, store, alerts, nil)
	require.NoError(t, eng.Scan(context.Background()))

	require.Len(t, store.commits, 1)
	up := store.commits[0]

	require.Len(t, up.Observations, 2)
	assert.Equal(t, NativeAsset, up.Observations[0].Asset)
	assert.True(t, up.Observations[0].Balance.Equal(dec(t, "1.5")))
	assert.Equal(t, "USDT", up.Observations[1].Asset)
	assert.True(t, up.Observations[1].Balance.Equal(dec(t, "150")))

	require.NotNil(t, up.Native)
	assert.True(t, up.Native.Equal(dec(t, "1.5")))
	assert.Equal(t, storage.AlertAbove, up.NativeAlertState)
	require.NotNil(t, up.Stable)
	assert.True(t, up.Stable.Equal(dec(t, "150")))
	assert.Equal(t, storage.AlertAbove, up.StableAlertState)

	require.Len(t, alerts.messages, 2)
	assert.Contains(t, alerts.messages[0], "Whale #1 [ethereum] Native Balance Alert: 1.5000")
	assert.Contains(t, alerts.messages[1], "Whale #1 [ethereum] USDT High Balance: 150.00")
}

func TestScanAlertsOnlyOnCrossing(t *testing.T) {
	chain := &fakeChain{
		native: dec(t, "1.5"),
		order:  []string{"USDT"},
		tokens: map[string]decimal.Decimal{"USDT": dec(t, "150")},
	}
	store := &fakeStore{wallets: []storage.Wallet{whaleWallet(t)}}
	alerts := &fakeAlerter{}

	eng := New(map[string]ChainReader{"ethereum": chain}, store, alerts, nil)

	// First cycle crosses both thresholds
	require.NoError(t, eng.Scan(context.Background()))
	require.Len(t, alerts.messages, 2)

	// Balances stay above; no repeat alerts
	require.NoError(t, eng.Scan(context.Background()))
	assert.Len(t, alerts.messages, 2)

	// Dip below resets the edge, no alert on the way down
	chain.native = dec(t, "0.5")
	chain.tokens["USDT"] = dec(t, "50")
	require.NoError(t, eng.Scan(context.Background()))
	assert.Len(t, alerts.messages, 2)
	assert.Equal(t, storage.AlertBelow, store.wallets[0].NativeAlertState)
	assert.Equal(t, storage.AlertBelow, store.wallets[0].StableAlertState)

	// Re-crossing fires again
	chain.native = dec(t, "2")
	chain.tokens["USDT"] = dec(t, "200")
	require.NoError(t, eng.Scan(context.Background()))
	assert.Len(t, alerts.messages, 4)
}

func TestScanExactThresholdTriggers(t *testing.T) {
	chain := &fakeChain{
		native: dec(t, "1.0"),
		order:  []string{"USDT"},
		tokens: map[string]decimal.Decimal{"USDT": dec(t, "100")},
	}
	store := &fakeStore{wallets: []storage.Wallet{whaleWallet(t)}}
	alerts := &fakeAlerter{}

	eng := New(map[string]ChainReader{"ethereum": chain}, store, alerts, nil)
	require.NoError(t, eng.Scan(context.Background()))

	// >= comparison: landing exactly on the threshold counts as above
	assert.Len(t, alerts.messages, 2)
}

func TestScanTokenFailureIsolation(t *testing.T) {
	chain := &fakeChain{
		native: dec(t, "2"),
		order:  []string{"USDT", "USDC"},
		tokens: map[string]decimal.Decimal{
			"USDT": dec(t, "999"),
			"USDC": dec(t, "250"),
		},
		tokenErrs: map[string]error{"USDT": errors.New("rpc: too many requests")},
	}
	store := &fakeStore{wallets: []storage.Wallet{whaleWallet(t)}}
	alerts := &fakeAlerter{}

	eng := New(map[string]ChainReader{"ethereum": chain}, store, alerts, nil)
	require.NoError(t, eng.Scan(context.Background()))

	require.Len(t, store.commits, 1)
	up := store.commits[0]

	// Failed USDT read drops silently; native and USDC survive
	require.Len(t, up.Observations, 2)
	assert.Equal(t, NativeAsset, up.Observations[0].Asset)
	assert.Equal(t, "USDC", up.Observations[1].Asset)

	// USDT failed, so the cached stable balance is left untouched
	assert.Nil(t, up.Stable)
	// USDC still drives the stable-family state
	assert.Equal(t, storage.AlertAbove, up.StableAlertState)

	// USDC crossing alerts even with USDT down
	require.Len(t, alerts.messages, 2)
	assert.Contains(t, alerts.messages[1], "USDC High Balance: 250.00")
}

func TestScanNativeFailureContinuesToTokens(t *testing.T) {
	chain := &fakeChain{
		nativeErr: errors.New("connection refused"),
		order:     []string{"USDT"},
		tokens:    map[string]decimal.Decimal{"USDT": dec(t, "150")},
	}
	store := &fakeStore{wallets: []storage.Wallet{whaleWallet(t)}}
	alerts := &fakeAlerter{}

	eng := New(map[string]ChainReader{"ethereum": chain}, store, alerts, nil)
	require.NoError(t, eng.Scan(context.Background()))

	require.Len(t, store.commits, 1)
	up := store.commits[0]

	require.Len(t, up.Observations, 1)
	assert.Equal(t, "USDT", up.Observations[0].Asset)

	// Nil native means the last-known value and state stay as they were
	assert.Nil(t, up.Native)
	assert.Empty(t, up.NativeAlertState)

	require.Len(t, alerts.messages, 1)
	assert.Contains(t, alerts.messages[0], "USDT High Balance")
}

func TestScanSkipsUnknownChain(t *testing.T) {
	w := whaleWallet(t)
	w.Chain = "solana"
	store := &fakeStore{wallets: []storage.Wallet{w}}
	alerts := &fakeAlerter{}

	eng := New(map[string]ChainReader{"ethereum": &fakeChain{}}, store, alerts, nil)
	require.NoError(t, eng.Scan(context.Background()))

	assert.Empty(t, store.commits)
	assert.Empty(t, alerts.messages)
}

func TestScanSingleFlight(t *testing.T) {
	gate := make(chan struct{})
	store := &fakeStore{listGate: gate}

	eng := New(nil, store, &fakeAlerter{}, nil)

	done := make(chan error, 1)
	go func() {
		done <- eng.Scan(context.Background())
	}()

	// Wait for the first cycle to hold the lock inside ListWallets
	require.Eventually(t, func() bool {
		return errors.Is(eng.Scan(context.Background()), ErrScanInProgress)
	}, time.Second, 5*time.Millisecond)

	close(gate)
	require.NoError(t, <-done)

	// Lock released, the next cycle runs
	require.NoError(t, eng.Scan(context.Background()))
}

func TestScanSnapshotLoadFailureAborts(t *testing.T) {
	store := &fakeStore{listErr: errors.New("connection closed")}

	eng := New(nil, store, &fakeAlerter{}, nil)
	err := eng.Scan(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "wallet snapshot")
}

func TestScanPersistFailureContinues(t *testing.T) {
	w1 := whaleWallet(t)
	w2 := whaleWallet(t)
	w2.Address = "0x53d284357ec70cE289D6D64134DfAc8E511c8a3D"
	w2.Label = "Whale #2"

	chain := &fakeChain{native: dec(t, "5")}
	store := &fakeStore{
		wallets:   []storage.Wallet{w1, w2},
		commitErr: errors.New("disk full"),
	}
	alerts := &fakeAlerter{}

	eng := New(map[string]ChainReader{"ethereum": chain}, store, alerts, nil)

	// A failed write is logged, never fatal to the cycle
	require.NoError(t, eng.Scan(context.Background()))
	assert.Len(t, store.commits, 2)

	// Alerts already went out regardless of the write failure
	assert.Len(t, alerts.messages, 2)
}

func TestScanCancelledContextAborts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	store := &fakeStore{wallets: []storage.Wallet{whaleWallet(t)}}
	eng := New(nil, store, &fakeAlerter{}, nil)

	err := eng.Scan(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, store.commits)
}
