package blockchain

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func fromString(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

func TestFromRaw(t *testing.T) {
	tests := []struct {
		name     string
		raw      *big.Int
		decimals uint8
		want     string
	}{
		{
			name:     "zero balance",
			raw:      big.NewInt(0),
			decimals: 18,
			want:     "0",
		},
		{
			name:     "1 wei with 18 decimals",
			raw:      big.NewInt(1),
			decimals: 18,
			want:     "0.000000000000000001",
		},
		{
			name:     "1.5 native coins",
			raw:      big.NewInt(1500000000000000000),
			decimals: 18,
			want:     "1.5",
		},
		{
			name:     "6 decimals token (USDT-like)",
			raw:      big.NewInt(123456789),
			decimals: 6,
			want:     "123.456789",
		},
		{
			name:     "0 decimals token",
			raw:      big.NewInt(100),
			decimals: 0,
			want:     "100",
		},
		{
			name: "large balance stays exact",
			raw: func() *big.Int {
				v, _ := big.NewInt(0).SetString("123456789000000000000000000", 10)
				return v
			}(),
			decimals: 18,
			want:     "123456789",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FromRaw(tt.raw, tt.decimals)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestFromRawIsExact(t *testing.T) {
	// Raw 123456789 at 6 decimals is exactly 123.456789, never a float
	// approximation.
	raw := big.NewInt(123456789)
	got := FromRaw(raw, 6)
	assert.True(t, got.Equal(fromString(t, "123.456789")))
	assert.Equal(t, "123456789", got.Shift(6).String())
}

// testClient builds a client without dialing, with backoff waits recorded
// instead of slept.
func testClient(waits *[]time.Duration) *Client {
	return &Client{
		chain:   "testnet",
		limiter: rate.NewLimiter(rate.Inf, 1),
		sleep: func(_ context.Context, d time.Duration) error {
			*waits = append(*waits, d)
			return nil
		},
	}
}

func TestTokenRegistry(t *testing.T) {
	var waits []time.Duration
	c := testClient(&waits)
	c.tokens = map[string]Token{
		"USDT": {Symbol: "USDT", Decimals: 6},
		"DAI":  {Symbol: "DAI", Decimals: 18},
	}
	c.tokenOrder = []string{"USDT", "DAI"}

	// Config order is preserved, not sorted
	assert.Equal(t, []string{"USDT", "DAI"}, c.TokenSymbols())

	dec, ok := c.TokenDecimals("USDT")
	assert.True(t, ok)
	assert.Equal(t, uint8(6), dec)

	_, ok = c.TokenDecimals("SHIB")
	assert.False(t, ok)

	// Unknown symbols fail before any RPC round trip
	_, err := c.TokenBalance(context.Background(), "SHIB", [20]byte{})
	assert.Error(t, err)
}

func TestWithRetrySucceedsAfterTransientFailures(t *testing.T) {
	var waits []time.Duration
	c := testClient(&waits)

	calls := 0
	err := c.withRetry(context.Background(), "read", func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("connection refused")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	require.Len(t, waits, 2)
	for _, w := range waits {
		assert.GreaterOrEqual(t, w, 2*time.Second)
		assert.LessOrEqual(t, w, 10*time.Second)
	}
}

func TestWithRetryExhaustsAttempts(t *testing.T) {
	var waits []time.Duration
	c := testClient(&waits)

	calls := 0
	err := c.withRetry(context.Background(), "read", func(context.Context) error {
		calls++
		return errors.New("i/o timeout")
	})

	require.Error(t, err)
	assert.Equal(t, maxAttempts, calls)

	var rre *RemoteReadError
	require.ErrorAs(t, err, &rre)
	assert.Equal(t, "testnet", rre.Chain)
	assert.Equal(t, maxAttempts, rre.Attempts)
}

func TestWithRetryDoesNotRetryNonTransient(t *testing.T) {
	var waits []time.Duration
	c := testClient(&waits)

	calls := 0
	err := c.withRetry(context.Background(), "read", func(context.Context) error {
		calls++
		return errors.New("execution reverted")
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.Empty(t, waits)
	assert.True(t, IsRemoteRead(err))
}

func TestBackoffDelayBounds(t *testing.T) {
	tests := []struct {
		failed int
		want   time.Duration
	}{
		{1, 2 * time.Second},  // 1s clamped up to the floor
		{2, 2 * time.Second},  // exactly at the floor
		{3, 4 * time.Second},
		{4, 8 * time.Second},
		{5, 10 * time.Second}, // 16s clamped down to the cap
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, backoffDelay(tt.failed), "failed=%d", tt.failed)
	}
}
