package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mattn/go-sqlite3"

	"github.com/hyperjump/karte/internal/models"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db   *sql.DB
	opts options
}

// NewSQLiteStore opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStore(dbPath string, opts ...Option) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStore{db: db, opts: buildOptions(opts)}, nil
}

// The primary keys are the only indexes.
func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		tenant TEXT NOT NULL,
		document_type TEXT NOT NULL,
		topic TEXT NOT NULL,
		content TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS patients (
		tenant TEXT NOT NULL,
		id TEXT NOT NULL,
		name TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		PRIMARY KEY (tenant, id)
	);
	`
	_, err := db.Exec(schema)
	return err
}

// Create inserts doc under a new identifier.
func (s *SQLiteStore) Create(ctx context.Context, doc *models.GeneratedDocument) (string, error) {
	if err := s.opts.prepare(doc); err != nil {
		return "", err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO documents (id, tenant, document_type, topic, content, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		doc.ID, doc.Tenant, string(doc.DocumentType), doc.Topic, doc.Content, doc.CreatedAt,
	)
	if isConstraintViolation(err) {
		return "", fmt.Errorf("%w: %s", ErrIDCollision, doc.ID)
	}
	if err != nil {
		return "", fmt.Errorf("failed to store document: %w", err)
	}
	return doc.ID, nil
}

// Get returns a document by ID.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*models.GeneratedDocument, error) {
	var doc models.GeneratedDocument
	var docType string

	err := s.db.QueryRowContext(ctx,
		`SELECT id, tenant, document_type, topic, content, created_at
		 FROM documents WHERE id = ?`, id,
	).Scan(&doc.ID, &doc.Tenant, &docType, &doc.Topic, &doc.Content, &doc.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.NewNotFoundError("document", id)
	}
	if err != nil {
		return nil, err
	}
	doc.DocumentType = models.DocumentType(docType)
	doc.CreatedAt = doc.CreatedAt.UTC()
	return &doc, nil
}

// PatientExists reports whether tenant has a patient with patientID.
func (s *SQLiteStore) PatientExists(ctx context.Context, patientID, tenant string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM patients WHERE tenant = ? AND id = ?`, tenant, patientID,
	).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// AddPatient registers a patient. Registering an existing patient is a validation error.
func (s *SQLiteStore) AddPatient(ctx context.Context, p *models.Patient) error {
	if err := validatePatient(p); err != nil {
		return err
	}
	p.CreatedAt = s.opts.now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO patients (tenant, id, name, created_at) VALUES (?, ?, ?, ?)`,
		p.Tenant, p.ID, p.Name, p.CreatedAt,
	)
	if isConstraintViolation(err) {
		return models.NewValidationError("patient already exists: %s", p.ID)
	}
	return err
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func isConstraintViolation(err error) bool {
	var se sqlite3.Error
	return errors.As(err, &se) && se.Code == sqlite3.ErrConstraint
}
