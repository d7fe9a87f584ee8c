package models

import (
	"strings"
	"unicode/utf8"
)

// DefaultTenant is used when a request does not name a tenant.
const DefaultTenant = "demo_hospital"

const (
	MinTopicLength = 3
	MaxTopicLength = 500
)

// GenerationRequest asks the pipeline for one document.
type GenerationRequest struct {
	DocumentType DocumentType `json:"document_type"`
	Topic        string       `json:"topic"`
	Disease      string       `json:"disease_id,omitempty"`
	PatientID    string       `json:"patient_id,omitempty"`
	Tenant       string       `json:"tenant_id,omitempty"`
}

// Normalize trims fields, canonicalizes the disease id, and applies the default tenant.
func (r *GenerationRequest) Normalize() {
	r.DocumentType = DocumentType(strings.ToLower(strings.TrimSpace(string(r.DocumentType))))
	r.Topic = strings.TrimSpace(r.Topic)
	r.Disease = NormalizeDisease(r.Disease)
	r.PatientID = strings.TrimSpace(r.PatientID)
	r.Tenant = strings.TrimSpace(r.Tenant)
	if r.Tenant == "" {
		r.Tenant = DefaultTenant
	}
}

// Validate checks the request shape. Scope checks (disease and patient linkage) are
// left to the pipeline since they depend on tenant state.
func (r *GenerationRequest) Validate() error {
	if !r.DocumentType.Valid() {
		return NewValidationError("unknown document type: %q", r.DocumentType)
	}
	n := utf8.RuneCountInString(r.Topic)
	if n < MinTopicLength || n > MaxTopicLength {
		return NewValidationError("topic must be between %d and %d characters", MinTopicLength, MaxTopicLength)
	}
	if !ValidTenant(r.Tenant) {
		return NewValidationError("invalid tenant id: %q", r.Tenant)
	}
	return nil
}

// ValidTenant reports whether tenant can name a knowledge directory.
func ValidTenant(tenant string) bool {
	if tenant == "" || tenant == "." || tenant == ".." {
		return false
	}
	return !strings.ContainsAny(tenant, `/\`)
}
