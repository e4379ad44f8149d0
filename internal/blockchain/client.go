package blockchain

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
)

const (
	rpcTimeout  = 10 * time.Second
	maxAttempts = 3

	backoffBase = 1 * time.Second
	backoffMin  = 2 * time.Second
	backoffMax  = 10 * time.Second

	// Native balances are reported in wei
	nativeDecimals = 18

	defaultMinInterval = 200 * time.Millisecond
)

// Token is one ERC-20 contract tracked on a chain. Decimals are supplied by
// configuration, never queried on-chain.
type Token struct {
	Symbol   string
	Address  common.Address
	Decimals uint8
}

// Options configures a chain client.
type Options struct {
	RPCUrl string
	Tokens []Token
	// MinInterval is the minimum spacing between RPC calls, enforced by a
	// token bucket to stay under provider rate limits.
	MinInterval time.Duration
}

// Client wraps one chain's read-only RPC surface.
type Client struct {
	chain      string
	eth        *ethclient.Client
	parsedABI  abi.ABI
	limiter    *rate.Limiter
	tokens     map[string]Token
	tokenOrder []string

	// sleep is swapped out in tests to observe backoff without waiting
	sleep func(ctx context.Context, d time.Duration) error
}

// NewClient dials the chain's RPC endpoint and prepares its token readers.
func NewClient(ctx context.Context, chain string, opts Options) (*Client, error) {
	if opts.RPCUrl == "" {
		return nil, fmt.Errorf("chain %s: rpc url is required", chain)
	}

	eth, err := ethclient.DialContext(ctx, opts.RPCUrl)
	if err != nil {
		return nil, fmt.Errorf("chain %s: dial %s: %w", chain, opts.RPCUrl, err)
	}

	parsedABI, err := abi.JSON(strings.NewReader(erc20ABI))
	if err != nil {
		eth.Close()
		return nil, fmt.Errorf("failed to parse ABI: %w", err)
	}

	minInterval := opts.MinInterval
	if minInterval <= 0 {
		minInterval = defaultMinInterval
	}

	c := &Client{
		chain:     chain,
		eth:       eth,
		parsedABI: parsedABI,
		limiter:   rate.NewLimiter(rate.Every(minInterval), 1),
		tokens:    make(map[string]Token, len(opts.Tokens)),
		sleep:     sleepContext,
	}
	for _, tok := range opts.Tokens {
		if _, dup := c.tokens[tok.Symbol]; dup {
			continue
		}
		c.tokens[tok.Symbol] = tok
		c.tokenOrder = append(c.tokenOrder, tok.Symbol)
	}
	return c, nil
}

// Chain returns the chain name this client serves.
func (c *Client) Chain() string { return c.chain }

// Close closes the underlying RPC connection.
func (c *Client) Close() {
	c.eth.Close()
}

// IsConnected probes the endpoint. It never propagates transport errors.
func (c *Client) IsConnected(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, rpcTimeout)
	defer cancel()
	_, err := c.eth.ChainID(ctx)
	return err == nil
}

// NativeBalance returns the native-coin balance converted from wei.
func (c *Client) NativeBalance(ctx context.Context, owner common.Address) (decimal.Decimal, error) {
	var wei *big.Int
	err := c.withRetry(ctx, "native balance", func(callCtx context.Context) error {
		var callErr error
		wei, callErr = c.eth.BalanceAt(callCtx, owner, nil)
		return callErr
	})
	if err != nil {
		return decimal.Zero, err
	}
	return FromRaw(wei, nativeDecimals), nil
}

// withRetry runs fn under the per-call timeout, retrying transient failures
// with exponential backoff. The rate limiter gates every attempt.
func (c *Client) withRetry(ctx context.Context, op string, fn func(context.Context) error) error {
	var lastErr error
	attempts := 0

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			if err := c.sleep(ctx, backoffDelay(attempt-1)); err != nil {
				return err
			}
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		callCtx, cancel := context.WithTimeout(ctx, rpcTimeout)
		err := fn(callCtx)
		cancel()

		attempts = attempt
		if err == nil {
			return nil
		}
		lastErr = err
		if !isTransient(err) {
			break
		}
	}

	return &RemoteReadError{Chain: c.chain, Op: op, Attempts: attempts, Err: lastErr}
}

// backoffDelay computes the wait after the given number of failed attempts,
// clamped to [backoffMin, backoffMax].
func backoffDelay(failed int) time.Duration {
	d := backoffBase << uint(failed-1)
	if d < backoffMin {
		d = backoffMin
	}
	if d > backoffMax {
		d = backoffMax
	}
	return d
}

func sleepContext(ctx context.Context, d time.Duration) error {
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// FromRaw converts a raw integer amount to an exact decimal using the given
// base-unit exponent.
func FromRaw(raw *big.Int, decimals uint8) decimal.Decimal {
	return decimal.NewFromBigInt(raw, -int32(decimals))
}
