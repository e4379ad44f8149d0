package blockchain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

const erc20ABI = `[
	{"constant":true,"inputs":[{"name":"_owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"balance","type":"uint256"}],"payable":false,"stateMutability":"view","type":"function"}
]`

// TokenSymbols returns the symbols configured for this chain, in config order.
func (c *Client) TokenSymbols() []string {
	out := make([]string, len(c.tokenOrder))
	copy(out, c.tokenOrder)
	return out
}

// TokenDecimals returns the configured decimal precision for a symbol.
func (c *Client) TokenDecimals(symbol string) (uint8, bool) {
	tok, ok := c.tokens[symbol]
	return tok.Decimals, ok
}

// TokenBalance reads the token's balanceOf for the owner and converts the
// raw integer by the token's configured decimals.
func (c *Client) TokenBalance(ctx context.Context, symbol string, owner common.Address) (decimal.Decimal, error) {
	tok, ok := c.tokens[symbol]
	if !ok {
		return decimal.Zero, fmt.Errorf("token %s is not configured on chain %s", symbol, c.chain)
	}

	contract := bind.NewBoundContract(tok.Address, c.parsedABI, c.eth, c.eth, c.eth)

	var out []any
	err := c.withRetry(ctx, "balanceOf "+symbol, func(callCtx context.Context) error {
		out = out[:0]
		return contract.Call(&bind.CallOpts{Context: callCtx}, &out, "balanceOf", owner)
	})
	if err != nil {
		return decimal.Zero, err
	}

	raw, ok := out[0].(*big.Int)
	if !ok {
		return decimal.Zero, fmt.Errorf("token %s: unexpected balanceOf result type %T", symbol, out[0])
	}
	return FromRaw(raw, tok.Decimals), nil
}
