// Package models defines core data structures for chunks, generation requests, and generated documents.
package models

import "time"

// Chunk is a bounded passage of a tenant's knowledge base with its category metadata.
type Chunk struct {
	ID        string    `json:"id"`
	Tenant    string    `json:"tenant"`
	Category  Category  `json:"category"`
	Disease   string    `json:"disease,omitempty"`
	Source    string    `json:"source"`
	Position  int       `json:"position"`
	Content   string    `json:"content"`
	Embedding []float32 `json:"-"`
}

// GeneratedDocument is a validated document as persisted by the document store.
// It carries no patient linkage.
type GeneratedDocument struct {
	ID           string       `json:"document_id" db:"id"`
	Tenant       string       `json:"tenant" db:"tenant"`
	DocumentType DocumentType `json:"document_type" db:"document_type"`
	Topic        string       `json:"topic" db:"topic"`
	Content      string       `json:"content" db:"content"`
	CreatedAt    time.Time    `json:"created_at" db:"created_at"`
}

// Patient is the minimal patient record consulted for existence checks.
type Patient struct {
	ID        string    `json:"patient_id" db:"id"`
	Tenant    string    `json:"tenant" db:"tenant"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
