// Package storage persists generated documents and the patient directory. Documents are
// reachable only by their identifier; no other lookup exists.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hyperjump/karte/internal/config"
	"github.com/hyperjump/karte/internal/models"
)

// ErrIDCollision means a freshly generated identifier already exists. It is an integrity
// failure and is never retried.
var ErrIDCollision = errors.New("document identifier collision")

// DocumentStore is an append-only store of generated documents.
type DocumentStore interface {
	// Create assigns a new identifier to doc, stores it, and returns the identifier.
	Create(ctx context.Context, doc *models.GeneratedDocument) (string, error)
	// Get returns the document with exactly this identifier.
	Get(ctx context.Context, id string) (*models.GeneratedDocument, error)
	Close() error
}

// PatientDirectory answers patient existence checks.
type PatientDirectory interface {
	PatientExists(ctx context.Context, patientID, tenant string) (bool, error)
	AddPatient(ctx context.Context, p *models.Patient) error
}

// Store is a document store that also serves the patient directory.
type Store interface {
	DocumentStore
	PatientDirectory
}

// IDGenerator returns a new document identifier.
type IDGenerator func() (string, error)

// NewID returns a random (version 4) UUID.
func NewID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("generate document id: %w", err)
	}
	return id.String(), nil
}

// Option configures a store.
type Option func(*options)

type options struct {
	newID IDGenerator
	now   func() time.Time
}

// WithIDGenerator replaces the identifier source.
func WithIDGenerator(g IDGenerator) Option {
	return func(o *options) { o.newID = g }
}

func buildOptions(opts []Option) options {
	o := options{newID: NewID, now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// New opens the store selected by cfg.
func New(cfg config.StorageConfig, opts ...Option) (Store, error) {
	switch cfg.Driver {
	case "memory":
		return NewMemoryStore(opts...), nil
	case "sqlite", "":
		return NewSQLiteStore(cfg.DatabasePath, opts...)
	default:
		return nil, fmt.Errorf("unknown storage driver: %q", cfg.Driver)
	}
}

// prepare assigns the identifier and creation time of a new document.
func (o options) prepare(doc *models.GeneratedDocument) error {
	id, err := o.newID()
	if err != nil {
		return err
	}
	doc.ID = id
	doc.CreatedAt = o.now().UTC()
	return nil
}

func validatePatient(p *models.Patient) error {
	if p.ID == "" {
		return models.NewValidationError("patient_id is required")
	}
	if !models.ValidTenant(p.Tenant) {
		return models.NewValidationError("invalid tenant id: %q", p.Tenant)
	}
	return nil
}
