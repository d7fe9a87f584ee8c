// Package docgen wires the pipeline: scoped retrieval, prompt construction, generation,
// the safety gate and the document store. Nothing is persisted until the generated text
// has passed the safety filter.
package docgen

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/karte/internal/generation"
	"github.com/hyperjump/karte/internal/indexer"
	"github.com/hyperjump/karte/internal/knowledge"
	"github.com/hyperjump/karte/internal/metrics"
	"github.com/hyperjump/karte/internal/models"
	"github.com/hyperjump/karte/internal/prompt"
	"github.com/hyperjump/karte/internal/retrieval"
	"github.com/hyperjump/karte/internal/safety"
	"github.com/hyperjump/karte/internal/storage"
)

// OneTimeNotice accompanies every newly generated document.
const OneTimeNotice = "Save your Document ID - it will only be shown once."

// GenerateResult is returned once per generated document.
type GenerateResult struct {
	DocumentID   string              `json:"document_id"`
	Content      string              `json:"content"`
	DocumentType models.DocumentType `json:"document_type"`
	Notice       string              `json:"notice"`
}

// Catalog lists what a tenant can request.
type Catalog struct {
	DocumentTypes []models.DocumentTypeInfo `json:"document_types"`
	Diseases      []models.DiseaseInfo      `json:"diseases"`
}

// Service runs document generation and retrieval.
type Service struct {
	registry  *indexer.Registry
	retriever *retrieval.Retriever
	generator *generation.Client
	filter    *safety.Filter
	store     storage.Store
	logger    *zap.Logger
	metrics   *metrics.Metrics
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets a logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithMetrics records pipeline outcomes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// New returns a Service over its collaborators.
func New(
	registry *indexer.Registry,
	retriever *retrieval.Retriever,
	generator *generation.Client,
	filter *safety.Filter,
	store storage.Store,
	opts ...Option,
) *Service {
	s := &Service{
		registry:  registry,
		retriever: retriever,
		generator: generator,
		filter:    filter,
		store:     store,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Generate produces, checks and stores one document. Errors are *models.Error values
// for request failures and plain errors for internal faults.
func (s *Service) Generate(ctx context.Context, req models.GenerationRequest) (*GenerateResult, error) {
	req.Normalize()
	res, err := s.generate(ctx, &req)
	s.metrics.Generation(string(req.DocumentType), outcome(err))
	return res, err
}

func (s *Service) generate(ctx context.Context, req *models.GenerationRequest) (*GenerateResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := s.checkPatient(ctx, req); err != nil {
		return nil, err
	}

	result, err := s.retriever.Retrieve(ctx, req)
	if err != nil {
		return nil, err
	}
	p := prompt.Build(req, result)
	if ti, ok := s.registry.Get(req.Tenant); ok {
		p.Constraints.Conditions = ti.Diseases()
	}
	text, err := s.generator.Generate(ctx, p)
	if err != nil {
		return nil, err
	}

	if err := s.filter.CheckConstraints(p.Constraints, text); err != nil {
		rule := ""
		var e *models.Error
		if errors.As(err, &e) {
			rule = e.Rule
		}
		s.metrics.Violation(rule)
		s.logger.Warn("generated content rejected",
			zap.String("rule", rule),
			zap.String("document_type", string(req.DocumentType)),
			zap.String("tenant", req.Tenant),
			zap.String("backend", s.generator.Backend()),
		)
		return nil, err
	}

	doc := &models.GeneratedDocument{
		Tenant:       req.Tenant,
		DocumentType: req.DocumentType,
		Topic:        req.Topic,
		Content:      text,
	}
	id, err := s.store.Create(ctx, doc)
	if err != nil {
		s.logger.Error("failed to store document", zap.Error(err))
		return nil, fmt.Errorf("store document: %w", err)
	}
	s.metrics.Stored()
	s.logger.Info("document generated",
		zap.String("document_type", string(req.DocumentType)),
		zap.String("tenant", req.Tenant),
		zap.Int("chunks", len(result.Chunks)),
	)
	return &GenerateResult{
		DocumentID:   id,
		Content:      text,
		DocumentType: req.DocumentType,
		Notice:       OneTimeNotice,
	}, nil
}

// checkPatient enforces patient linkage before any retrieval happens.
func (s *Service) checkPatient(ctx context.Context, req *models.GenerationRequest) error {
	if !req.DocumentType.RequiresPatient() {
		return nil
	}
	if req.PatientID == "" {
		return models.NewInvalidScopeError("patient_id is required for %s", req.DocumentType)
	}
	ok, err := s.store.PatientExists(ctx, req.PatientID, req.Tenant)
	if err != nil {
		return fmt.Errorf("patient lookup: %w", err)
	}
	if !ok {
		return models.NewInvalidScopeError("unknown patient: %s", req.PatientID)
	}
	return nil
}

// Retrieve returns a stored document by its exact identifier.
func (s *Service) Retrieve(ctx context.Context, id string) (*models.GeneratedDocument, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, models.NewNotFoundError("document", id)
	}
	return s.store.Get(ctx, id)
}

// Reindex rebuilds the tenant's index from its knowledge directory and swaps it in.
func (s *Service) Reindex(ctx context.Context, tenant string) (models.IndexStats, error) {
	if !models.ValidTenant(tenant) {
		return models.IndexStats{}, models.NewValidationError("invalid tenant id: %q", tenant)
	}
	ti, err := s.registry.Reindex(ctx, tenant)
	if errors.Is(err, knowledge.ErrTenantNotFound) {
		return models.IndexStats{}, models.NewNotFoundError("tenant", tenant)
	}
	if err != nil {
		return models.IndexStats{}, fmt.Errorf("reindex %s: %w", tenant, err)
	}
	return ti.Stats(), nil
}

// Stats describes the tenant's live index, loading it if needed.
func (s *Service) Stats(ctx context.Context, tenant string) (models.IndexStats, error) {
	ti, err := s.load(ctx, tenant)
	if err != nil {
		return models.IndexStats{}, err
	}
	return ti.Stats(), nil
}

// Catalog lists document types and the diseases available to tenant.
func (s *Service) Catalog(ctx context.Context, tenant string) (*Catalog, error) {
	if tenant == "" {
		tenant = models.DefaultTenant
	}
	ti, err := s.load(ctx, tenant)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}
	return &Catalog{
		DocumentTypes: models.DocumentTypes(),
		Diseases:      retrieval.AvailableDiseases(ti),
	}, nil
}

// AddPatient registers a patient in the directory used for certificate linkage.
func (s *Service) AddPatient(ctx context.Context, p *models.Patient) error {
	p.ID = strings.TrimSpace(p.ID)
	p.Name = strings.TrimSpace(p.Name)
	p.Tenant = strings.TrimSpace(p.Tenant)
	if p.Tenant == "" {
		p.Tenant = models.DefaultTenant
	}
	return s.store.AddPatient(ctx, p)
}

// Warmup loads tenants ahead of their first request. Failures are logged, not returned.
func (s *Service) Warmup(ctx context.Context, tenants []string) {
	for _, t := range tenants {
		if _, err := s.registry.Load(ctx, t); err != nil {
			s.logger.Warn("tenant warmup failed", zap.String("tenant", t), zap.Error(err))
		}
	}
}

// Tenants returns the tenants with a live index.
func (s *Service) Tenants() []string {
	return s.registry.Tenants()
}

func (s *Service) load(ctx context.Context, tenant string) (*indexer.TenantIndex, error) {
	if !models.ValidTenant(tenant) {
		return nil, models.NewValidationError("invalid tenant id: %q", tenant)
	}
	ti, err := s.registry.Load(ctx, tenant)
	if errors.Is(err, knowledge.ErrTenantNotFound) {
		return nil, models.NewNotFoundError("tenant", tenant)
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", tenant, err)
	}
	return ti, nil
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	if code := models.CodeOf(err); code != "" {
		return strings.ToLower(string(code))
	}
	return "internal_error"
}
