package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScannableChains(t *testing.T) {
	cfg := &Config{
		Chains: map[string]ChainConfig{
			"ethereum": {RPCUrl: "https://rpc.example.com"},
			"bsc":      {RPCUrl: ""},
			"polygon":  {RPCUrl: "https://polygon.example.com"},
		},
	}

	chains := cfg.ScannableChains()
	assert.ElementsMatch(t, []string{"ethereum", "polygon"}, chains)
}

func TestScannableChainsEmptyRegistry(t *testing.T) {
	cfg := &Config{}
	assert.Empty(t, cfg.ScannableChains())
}

func TestDefaultThresholds(t *testing.T) {
	t.Run("configured values parse exactly", func(t *testing.T) {
		cfg := &Config{
			DefaultNativeThreshold: "2.5",
			DefaultStableThreshold: "1000",
		}
		assert.Equal(t, "2.5", cfg.NativeThreshold().String())
		assert.Equal(t, "1000", cfg.StableThreshold().String())
	})

	t.Run("empty values fall back", func(t *testing.T) {
		cfg := &Config{}
		assert.Equal(t, "0.001", cfg.NativeThreshold().String())
		assert.Equal(t, "100", cfg.StableThreshold().String())
	})
}

func TestValidateInterval(t *testing.T) {
	tests := []struct {
		name      string
		interval  string
		wantError bool
	}{
		{"empty means one-shot", "", false},
		{"plain seconds", "60s", false},
		{"plain minutes", "5m", false},
		{"mixed units", "1h30m", false},
		{"cron 5 fields", "*/5 * * * *", false},
		{"cron 6 fields", "*/30 * * * * *", false},
		{"below one second", "500ms", true},
		{"not a duration", "often", true},
		{"negative", "-5m", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateInterval(tt.interval)
			if tt.wantError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
