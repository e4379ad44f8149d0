package blockchain

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// ErrNoChains means no chain in the registry could be pooled.
var ErrNoChains = errors.New("no scannable chains configured")

// RemoteReadError is a read failure that survived the retry policy.
type RemoteReadError struct {
	Chain    string
	Op       string
	Attempts int
	Err      error
}

func (e *RemoteReadError) Error() string {
	return fmt.Sprintf("%s: %s failed after %d attempt(s): %v", e.Chain, e.Op, e.Attempts, e.Err)
}

func (e *RemoteReadError) Unwrap() error { return e.Err }

// IsRemoteRead reports whether err is a retry-exhausted read failure.
func IsRemoteRead(err error) bool {
	var rre *RemoteReadError
	return errors.As(err, &rre)
}

// transientMarkers are substrings seen in errors from JSON-RPC transports
// that surface connection-level failures as plain errors.
var transientMarkers = []string{
	"connection refused",
	"connection reset",
	"broken pipe",
	"i/o timeout",
	"EOF",
	"too many requests",
	"502",
	"503",
	"504",
}

// isTransient reports whether err is a transport failure worth retrying.
// Malformed input and contract-level errors fail immediately.
func isTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	msg := err.Error()
	for _, marker := range transientMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
