// Package retrieval implements scoped retrieval: a request's document type fixes the
// categories (and, for disease overviews, the disease) a search may draw from, and that
// scope is applied before any chunk is ranked.
package retrieval

import (
	"context"
	"errors"
	"sort"

	"go.uber.org/zap"

	"github.com/hyperjump/karte/internal/embedding"
	"github.com/hyperjump/karte/internal/indexer"
	"github.com/hyperjump/karte/internal/knowledge"
	"github.com/hyperjump/karte/internal/metrics"
	"github.com/hyperjump/karte/internal/models"
)

// DefaultTopK is the number of chunks returned when none is configured.
const DefaultTopK = 5

// Retriever searches a tenant's live index within the scope of a request.
type Retriever struct {
	registry *indexer.Registry
	embedder embedding.Embedder
	topK     int
	logger   *zap.Logger
	metrics  *metrics.Metrics
}

// Option configures a Retriever.
type Option func(*Retriever)

// WithLogger sets a logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Retriever) { r.logger = l }
}

// WithMetrics records retrieval sizes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Retriever) { r.metrics = m }
}

// New returns a retriever. embedder must be the one the registry's indexes were built with.
func New(registry *indexer.Registry, embedder embedding.Embedder, topK int, opts ...Option) *Retriever {
	if topK <= 0 {
		topK = DefaultTopK
	}
	r := &Retriever{
		registry: registry,
		embedder: embedder,
		topK:     topK,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Retrieve returns up to top-K chunks for req, ranked by similarity to its topic. An
// empty result is not an error. req must already be normalized and validated.
func (r *Retriever) Retrieve(ctx context.Context, req *models.GenerationRequest) (*models.RetrievalResult, error) {
	ti, err := r.Index(ctx, req.Tenant)
	if err != nil {
		return nil, err
	}
	scope, err := ResolveScope(ti, req.DocumentType, req.Disease)
	if err != nil {
		return nil, err
	}
	query, err := r.embedder.Embed(ctx, req.Topic)
	if err != nil {
		return nil, models.NewGenerationUnavailableError(err)
	}
	hits, err := ti.Search(ctx, query, r.topK, scope.Admits)
	if err != nil {
		return nil, models.NewGenerationUnavailableError(err)
	}
	r.metrics.Retrieved(string(req.DocumentType), len(hits))
	r.logger.Debug("scoped retrieval",
		zap.String("tenant", req.Tenant),
		zap.String("document_type", string(req.DocumentType)),
		zap.String("disease", scope.Disease),
		zap.Int("chunks", len(hits)),
	)
	return &models.RetrievalResult{
		DocumentType: req.DocumentType,
		Disease:      scope.Disease,
		Chunks:       hits,
	}, nil
}

// Index returns the tenant's live index, loading it on first use. A tenant without a
// knowledge directory is an invalid scope.
func (r *Retriever) Index(ctx context.Context, tenant string) (*indexer.TenantIndex, error) {
	ti, err := r.registry.Load(ctx, tenant)
	if errors.Is(err, knowledge.ErrTenantNotFound) {
		return nil, models.NewInvalidScopeError("unknown tenant: %s", tenant)
	}
	if err != nil {
		return nil, models.NewGenerationUnavailableError(err)
	}
	return ti, nil
}

// Scope is the set of chunks a document type may retrieve from.
type Scope struct {
	Categories []models.Category
	Disease    string
}

// Admits reports whether ch is inside the scope.
func (s Scope) Admits(ch *models.Chunk) bool {
	if s.Disease != "" && ch.Disease != s.Disease {
		return false
	}
	for _, c := range s.Categories {
		if ch.Category == c {
			return true
		}
	}
	return false
}

// ResolveScope maps a document type to its allowed categories and checks the disease
// linkage. Document types that are not disease-scoped ignore disease.
func ResolveScope(ti *indexer.TenantIndex, docType models.DocumentType, disease string) (Scope, error) {
	cats := docType.AllowedCategories()
	if cats == nil {
		return Scope{}, models.NewValidationError("unknown document type: %q", docType)
	}
	scope := Scope{Categories: cats}
	if !docType.RequiresDisease() {
		return scope, nil
	}
	disease = models.NormalizeDisease(disease)
	if disease == "" {
		return Scope{}, models.NewInvalidScopeError("disease_id is required for %s", docType)
	}
	if !KnownDisease(ti, disease) {
		return Scope{}, models.NewInvalidScopeError("unknown disease: %s", disease)
	}
	scope.Disease = disease
	return scope, nil
}

// KnownDisease reports whether id is in the built-in catalogue or present in the index.
func KnownDisease(ti *indexer.TenantIndex, id string) bool {
	for _, d := range models.Diseases() {
		if d.ID == id {
			return true
		}
	}
	return ti != nil && ti.HasDisease(id)
}

// AvailableDiseases merges the built-in catalogue with diseases found in the tenant's
// index, sorted by id.
func AvailableDiseases(ti *indexer.TenantIndex) []models.DiseaseInfo {
	out := models.Diseases()
	seen := make(map[string]bool, len(out))
	for _, d := range out {
		seen[d.ID] = true
	}
	if ti != nil {
		for _, id := range ti.Diseases() {
			if !seen[id] {
				out = append(out, models.DiseaseInfo{ID: id, Label: models.DiseaseLabel(id)})
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
