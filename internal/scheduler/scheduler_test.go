package scheduler

import (
	"context"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateInterval(t *testing.T) {
	tests := []struct {
		name      string
		interval  string
		wantError bool
	}{
		{"empty interval", "", false},
		{"seconds", "30s", false},
		{"minutes", "5m", false},
		{"hours", "1h", false},
		{"mixed units", "1h30m", false},
		{"cron every 5 min", "*/5 * * * *", false},
		{"cron with seconds", "*/30 * * * * *", false},
		{"cron business hours", "0 9,17 * * 1-5", false},
		{"sub-second duration", "500ms", true},
		{"gibberish", "soon", true},
		{"negative duration", "-1m", true},
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

func TestIsCron(t *testing.T) {
	assert.True(t, IsCron("*/5 * * * *"))
	assert.True(t, IsCron("0 0 * * * *"))
	assert.False(t, IsCron("5m"))
	assert.False(t, IsCron(""))
}

func TestNewSchedulerWithDuration(t *testing.T) {
	ctx := context.Background()

	s, err := NewScheduler(ctx, Config{Interval: "1h"}, func(context.Context) error {
		return nil
	})
	require.NoError(t, err)
	defer s.Stop()

	assert.Equal(t, time.Hour, s.ExpectedInterval())
}

func TestNewSchedulerWithCron(t *testing.T) {
	ctx := context.Background()

	s, err := NewScheduler(ctx, Config{Interval: "*/5 * * * *"}, func(context.Context) error {
		return nil
	})
	require.NoError(t, err)
	defer s.Stop()

	// Irregular schedules fall back to the conservative estimate
	assert.Equal(t, 5*time.Minute, s.ExpectedInterval())
}

func TestNewSchedulerRejectsBadInterval(t *testing.T) {
	_, err := NewScheduler(context.Background(), Config{Interval: "whenever"}, func(context.Context) error {
		return nil
	})
	assert.Error(t, err)
}

func TestSchedulerRunImmediately(t *testing.T) {
	ctx := context.Background()

	var runs atomic.Int32
	s, err := NewScheduler(ctx, Config{Interval: "1h", RunImmediately: true}, func(context.Context) error {
		runs.Add(1)
		return nil
	})
	require.NoError(t, err)
	defer s.Stop()

	require.NoError(t, s.Start())

	assert.Eventually(t, func() bool {
		return runs.Load() == 1
	}, 2*time.Second, 10*time.Millisecond)

	next, err := s.NextRun()
	require.NoError(t, err)
	assert.True(t, next.After(time.Now()))
}

func TestGocronLoggerAdapter(t *testing.T) {
	adapter := newGocronLoggerAdapter(slog.Default())

	// Must not panic with gocron's variadic args
	adapter.Debug("debug", "key", "value")
	adapter.Info("info", "key", "value")
	adapter.Warn("warn", "key", "value")
	adapter.Error("error", "key", "value")
}
