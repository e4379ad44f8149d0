package health

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// Pinger is the storage surface the checker needs.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ChainProber reports per-chain endpoint connectivity.
type ChainProber interface {
	Connectivity(ctx context.Context) map[string]bool
}

// Checker performs health checks on application dependencies
type Checker struct {
	store    Pinger
	chains   ChainProber
	interval time.Duration

	mu             sync.RWMutex
	lastRunTime    time.Time
	lastRunSuccess bool
}

// NewChecker creates a health checker. interval is the expected scan
// spacing; zero disables the scan-recency check (one-shot mode).
func NewChecker(store Pinger, chains ChainProber, interval time.Duration) *Checker {
	return &Checker{
		store:    store,
		chains:   chains,
		interval: interval,
	}
}

// UpdateLastRun records the timestamp and outcome of the last scan cycle.
func (c *Checker) UpdateLastRun(success bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastRunTime = time.Now()
	c.lastRunSuccess = success
}

// CheckStatus represents the health status of a component
type CheckStatus string

const (
	StatusOK       CheckStatus = "ok"
	StatusDegraded CheckStatus = "degraded"
	StatusError    CheckStatus = "error"
)

// HealthResponse is the JSON response structure
type HealthResponse struct {
	Status    CheckStatus            `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckDetail `json:"checks"`
	Uptime    string                 `json:"uptime,omitempty"`
}

// CheckDetail contains details about a specific health check
type CheckDetail struct {
	Status  CheckStatus `json:"status"`
	Message string      `json:"message,omitempty"`
}

var startTime = time.Now()

// Check performs all health checks and returns the aggregated status
func (c *Checker) Check(ctx context.Context) HealthResponse {
	checks := make(map[string]CheckDetail)
	overallStatus := StatusOK

	dbCheck := c.checkDatabase(ctx)
	checks["database"] = dbCheck
	if dbCheck.Status != StatusOK {
		overallStatus = StatusError
	}

	chainCheck := c.checkChains(ctx)
	checks["chains"] = chainCheck
	if chainCheck.Status == StatusError {
		overallStatus = StatusError
	} else if chainCheck.Status == StatusDegraded && overallStatus == StatusOK {
		overallStatus = StatusDegraded
	}

	if c.interval > 0 {
		scanCheck := c.checkScanner()
		checks["scanner"] = scanCheck
		if scanCheck.Status != StatusOK && overallStatus == StatusOK {
			overallStatus = StatusDegraded
		}
	}

	return HealthResponse{
		Status:    overallStatus,
		Timestamp: time.Now(),
		Checks:    checks,
		Uptime:    time.Since(startTime).Round(time.Second).String(),
	}
}

// checkDatabase verifies PostgreSQL connectivity
func (c *Checker) checkDatabase(ctx context.Context) CheckDetail {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := c.store.Ping(ctx); err != nil {
		slog.Error("Health check: database ping failed", "error", err)
		return CheckDetail{
			Status:  StatusError,
			Message: "database unreachable: " + err.Error(),
		}
	}
	return CheckDetail{
		Status:  StatusOK,
		Message: "database connection healthy",
	}
}

// checkChains verifies that the pooled chain endpoints respond. Every
// endpoint down is an error; a partial outage is degraded.
func (c *Checker) checkChains(ctx context.Context) CheckDetail {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	connectivity := c.chains.Connectivity(ctx)
	if len(connectivity) == 0 {
		return CheckDetail{
			Status:  StatusError,
			Message: "no chains configured",
		}
	}

	healthy := 0
	for _, ok := range connectivity {
		if ok {
			healthy++
		}
	}

	switch {
	case healthy == len(connectivity):
		return CheckDetail{
			Status:  StatusOK,
			Message: "all chain endpoints healthy",
		}
	case healthy == 0:
		return CheckDetail{
			Status:  StatusError,
			Message: "no chain endpoints responding",
		}
	default:
		return CheckDetail{
			Status:  StatusDegraded,
			Message: fmt.Sprintf("%d/%d chain endpoints healthy", healthy, len(connectivity)),
		}
	}
}

// checkScanner verifies scan cycles are executing at the expected interval
func (c *Checker) checkScanner() CheckDetail {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.lastRunTime.IsZero() {
		return CheckDetail{
			Status:  StatusOK,
			Message: "scanner not yet executed (startup)",
		}
	}

	if !c.lastRunSuccess {
		return CheckDetail{
			Status:  StatusDegraded,
			Message: "last scan cycle failed",
		}
	}

	// Allow a 2x interval grace period
	sinceLast := time.Since(c.lastRunTime)
	if sinceLast > c.interval*2 {
		return CheckDetail{
			Status:  StatusDegraded,
			Message: fmt.Sprintf("no scan in %s (expected every %s)", sinceLast.Round(time.Second), c.interval),
		}
	}

	return CheckDetail{
		Status:  StatusOK,
		Message: fmt.Sprintf("last scan %s ago", sinceLast.Round(time.Second)),
	}
}

// Handler returns an http.HandlerFunc for the health endpoint
func (c *Checker) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := c.Check(r.Context())

		statusCode := http.StatusOK
		if status.Status == StatusError {
			statusCode = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)
		if err := json.NewEncoder(w).Encode(status); err != nil {
			slog.Error("Failed to encode health response", "error", err)
		}
	}
}
