package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEthAddressValidator(t *testing.T) {
	v := NewValidator()

	type probe struct {
		Address string `validate:"eth_addr"`
	}

	tests := []struct {
		name      string
		address   string
		wantError bool
	}{
		{"checksummed", "0x742d35Cc6634C0532925a3b844Bc9e7595f0bEb0", false},
		{"lowercase", "0x742d35cc6634c0532925a3b844bc9e7595f0beb0", false},
		{"zero address", "0x0000000000000000000000000000000000000000", false},
		{"no 0x prefix", "742d35Cc6634C0532925a3b844Bc9e7595f0bEb0", false},
		{"too short", "0x742d35Cc", true},
		{"not hex", "0xZZZd35Cc6634C0532925a3b844Bc9e7595f0bEb0", true},
		{"empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Struct(probe{Address: tt.address})
			if tt.wantError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDecimalValidator(t *testing.T) {
	v := NewValidator()

	type probe struct {
		Value string `validate:"decimal"`
	}

	tests := []struct {
		name      string
		value     string
		wantError bool
	}{
		{"integer", "100", false},
		{"fractional", "0.001", false},
		{"negative", "-1.5", false},
		{"high precision", "123.456789012345678901", false},
		{"not a number", "abc", true},
		{"empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Struct(probe{Value: tt.value})
			if tt.wantError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestTokenConfigValidation(t *testing.T) {
	v := NewValidator()

	t.Run("valid token", func(t *testing.T) {
		tok := TokenConfig{
			Symbol:   "USDT",
			Address:  "0xdAC17F958D2ee523a2206206994597C13D831ec7",
			Decimals: 6,
		}
		assert.NoError(t, v.Struct(tok))
	})

	t.Run("zero decimals is valid", func(t *testing.T) {
		tok := TokenConfig{
			Symbol:   "NFTISH",
			Address:  "0xdAC17F958D2ee523a2206206994597C13D831ec7",
			Decimals: 0,
		}
		assert.NoError(t, v.Struct(tok))
	})

	t.Run("missing symbol", func(t *testing.T) {
		tok := TokenConfig{
			Address:  "0xdAC17F958D2ee523a2206206994597C13D831ec7",
			Decimals: 6,
		}
		assert.Error(t, v.Struct(tok))
	})

	t.Run("bad contract address", func(t *testing.T) {
		tok := TokenConfig{
			Symbol:   "USDT",
			Address:  "not-an-address",
			Decimals: 6,
		}
		assert.Error(t, v.Struct(tok))
	})
}
