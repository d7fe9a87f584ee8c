package indexer

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/hyperjump/karte/internal/metrics"
)

// Registry maps tenant keys to their live index. Readers load the current map without
// locking; writers build a complete index, copy the map, and swap it in, so a reader
// sees either the old index or the new one, never a partial build.
type Registry struct {
	indexer *Indexer
	current atomic.Pointer[map[string]*TenantIndex]
	mu      sync.Mutex
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithRegistryLogger sets a logger for reindex events.
func WithRegistryLogger(l *zap.Logger) RegistryOption {
	return func(r *Registry) { r.logger = l }
}

// WithMetrics records reindex outcomes and index sizes.
func WithMetrics(m *metrics.Metrics) RegistryOption {
	return func(r *Registry) { r.metrics = m }
}

// NewRegistry returns an empty registry that builds indexes with indexer.
func NewRegistry(indexer *Indexer, opts ...RegistryOption) *Registry {
	r := &Registry{indexer: indexer, logger: zap.NewNop()}
	empty := map[string]*TenantIndex{}
	r.current.Store(&empty)
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Get returns the live index of tenant, if loaded.
func (r *Registry) Get(tenant string) (*TenantIndex, bool) {
	ti, ok := (*r.current.Load())[tenant]
	return ti, ok
}

// Load returns the live index of tenant, building it on first use.
func (r *Registry) Load(ctx context.Context, tenant string) (*TenantIndex, error) {
	if ti, ok := r.Get(tenant); ok {
		return ti, nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if ti, ok := r.Get(tenant); ok {
		return ti, nil
	}
	return r.rebuildLocked(ctx, tenant)
}

// Reindex rebuilds tenant from its knowledge directory and installs the result. On
// failure the previous index, if any, stays live.
func (r *Registry) Reindex(ctx context.Context, tenant string) (*TenantIndex, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rebuildLocked(ctx, tenant)
}

// Install swaps ti in as the live index of its tenant.
func (r *Registry) Install(ti *TenantIndex) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.installLocked(ti)
}

// Tenants returns the loaded tenant keys, sorted.
func (r *Registry) Tenants() []string {
	m := *r.current.Load()
	out := make([]string, 0, len(m))
	for t := range m {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

func (r *Registry) rebuildLocked(ctx context.Context, tenant string) (*TenantIndex, error) {
	ti, err := r.indexer.Build(ctx, tenant)
	if err != nil {
		r.metrics.Reindexed(tenant, 0, err)
		r.logger.Warn("tenant reindex failed", zap.String("tenant", tenant), zap.Error(err))
		return nil, err
	}
	r.installLocked(ti)
	r.metrics.Reindexed(tenant, ti.Size(), nil)
	return ti, nil
}

func (r *Registry) installLocked(ti *TenantIndex) {
	old := *r.current.Load()
	next := make(map[string]*TenantIndex, len(old)+1)
	for k, v := range old {
		next[k] = v
	}
	next[ti.Tenant()] = ti
	r.current.Store(&next)
}
