package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/hyperjump/karte/internal/models"
)

// MemoryStore implements Store in process memory.
type MemoryStore struct {
	mu       sync.RWMutex
	docs     map[string]models.GeneratedDocument
	patients map[string]map[string]models.Patient
	opts     options
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	return &MemoryStore{
		docs:     make(map[string]models.GeneratedDocument),
		patients: make(map[string]map[string]models.Patient),
		opts:     buildOptions(opts),
	}
}

// Create stores a copy of doc under a new identifier.
func (m *MemoryStore) Create(ctx context.Context, doc *models.GeneratedDocument) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := m.opts.prepare(doc); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.docs[doc.ID]; exists {
		return "", fmt.Errorf("%w: %s", ErrIDCollision, doc.ID)
	}
	m.docs[doc.ID] = *doc
	return doc.ID, nil
}

// Get returns a copy of the document with id.
func (m *MemoryStore) Get(ctx context.Context, id string) (*models.GeneratedDocument, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.docs[id]
	if !ok {
		return nil, models.NewNotFoundError("document", id)
	}
	return &doc, nil
}

// PatientExists reports whether tenant has a patient with patientID.
func (m *MemoryStore) PatientExists(ctx context.Context, patientID, tenant string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.patients[tenant][patientID]
	return ok, nil
}

// AddPatient registers a patient.
func (m *MemoryStore) AddPatient(ctx context.Context, p *models.Patient) error {
	if err := validatePatient(p); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	byID, ok := m.patients[p.Tenant]
	if !ok {
		byID = make(map[string]models.Patient)
		m.patients[p.Tenant] = byID
	}
	if _, exists := byID[p.ID]; exists {
		return models.NewValidationError("patient already exists: %s", p.ID)
	}
	p.CreatedAt = m.opts.now().UTC()
	byID[p.ID] = *p
	return nil
}

// Close is a no-op for MemoryStore.
func (m *MemoryStore) Close() error {
	return nil
}
