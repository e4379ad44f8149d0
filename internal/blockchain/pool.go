package blockchain

import (
	"context"
	"log/slog"
	"sort"
)

// Pool holds one client per scannable chain. It is built once at startup
// and reused across scan cycles.
type Pool struct {
	clients map[string]*Client
}

// NewPool dials every chain in the registry that has an RPC endpoint.
// A chain that cannot be dialed is skipped with a warning; the pool errors
// only when no chain is usable at all.
func NewPool(ctx context.Context, chains map[string]Options) (*Pool, error) {
	p := &Pool{clients: make(map[string]*Client, len(chains))}

	for name, opts := range chains {
		if opts.RPCUrl == "" {
			continue
		}
		client, err := NewClient(ctx, name, opts)
		if err != nil {
			slog.Warn("Skipping chain, RPC dial failed", "chain", name, "error", err)
			continue
		}
		if !client.IsConnected(ctx) {
			slog.Warn("Chain endpoint not responding, keeping client for later retries",
				"chain", name, "endpoint", opts.RPCUrl)
		} else {
			slog.Info("Connected to chain", "chain", name, "tokens", len(opts.Tokens))
		}
		p.clients[name] = client
	}

	if len(p.clients) == 0 {
		return nil, ErrNoChains
	}
	return p, nil
}

// Get returns the client for a chain, if one is configured.
func (p *Pool) Get(chain string) (*Client, bool) {
	c, ok := p.clients[chain]
	return c, ok
}

// Names returns the pooled chain names, sorted.
func (p *Pool) Names() []string {
	names := make([]string, 0, len(p.clients))
	for name := range p.clients {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Connectivity probes every pooled chain endpoint. Used by health checks.
func (p *Pool) Connectivity(ctx context.Context) map[string]bool {
	out := make(map[string]bool, len(p.clients))
	for name, c := range p.clients {
		out[name] = c.IsConnected(ctx)
	}
	return out
}

// Close closes every pooled client.
func (p *Pool) Close() {
	for _, c := range p.clients {
		c.Close()
	}
}
