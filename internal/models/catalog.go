package models

import (
	"fmt"
	"strings"
)

// Category classifies a knowledge-base chunk.
type Category string

const (
	CategoryDisease    Category = "disease"
	CategoryTemplate   Category = "template"
	CategoryDisclaimer Category = "disclaimer"
	CategoryGuideline  Category = "guideline"
	CategoryWellness   Category = "wellness"
)

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryDisease, CategoryTemplate, CategoryDisclaimer, CategoryGuideline, CategoryWellness:
		return true
	}
	return false
}

// DocumentType is the kind of document a caller asks for.
type DocumentType string

const (
	DiseaseOverview    DocumentType = "disease_overview"
	MedicalCertificate DocumentType = "medical_certificate"
	HealthSuggestions  DocumentType = "health_suggestions"
	EducationalNotes   DocumentType = "educational_notes"
)

// DocumentTypeInfo describes a document type for catalogue listings.
type DocumentTypeInfo struct {
	Type            DocumentType `json:"value"`
	Label           string       `json:"label"`
	RequiresPatient bool         `json:"requires_patient"`
	RequiresDisease bool         `json:"requires_disease"`
	Categories      []Category   `json:"categories"`
}

// documentTypes is the document type → retrieval scope table. A new document type
// needs an entry here before it can be requested.
var documentTypes = []DocumentTypeInfo{
	{
		Type:            MedicalCertificate,
		Label:           "Medical Certificate (DRAFT)",
		RequiresPatient: true,
		Categories:      []Category{CategoryTemplate, CategoryDisclaimer},
	},
	{
		Type:            DiseaseOverview,
		Label:           "Disease Overview",
		RequiresDisease: true,
		Categories:      []Category{CategoryDisease},
	},
	{
		Type:       HealthSuggestions,
		Label:      "General Health Suggestions",
		Categories: []Category{CategoryWellness, CategoryGuideline},
	},
	{
		Type:       EducationalNotes,
		Label:      "Educational Medical Notes",
		Categories: []Category{CategoryGuideline, CategoryWellness},
	},
}

// DocumentTypes returns the catalogue of supported document types.
func DocumentTypes() []DocumentTypeInfo {
	out := make([]DocumentTypeInfo, len(documentTypes))
	copy(out, documentTypes)
	return out
}

// Info returns the catalogue entry for t.
func (t DocumentType) Info() (DocumentTypeInfo, bool) {
	for _, info := range documentTypes {
		if info.Type == t {
			return info, true
		}
	}
	return DocumentTypeInfo{}, false
}

// Valid reports whether t has a catalogue entry.
func (t DocumentType) Valid() bool {
	_, ok := t.Info()
	return ok
}

// AllowedCategories returns the categories t may retrieve from, or nil for an unknown type.
func (t DocumentType) AllowedCategories() []Category {
	info, ok := t.Info()
	if !ok {
		return nil
	}
	out := make([]Category, len(info.Categories))
	copy(out, info.Categories)
	return out
}

// RequiresDisease reports whether retrieval for t is narrowed to a disease.
func (t DocumentType) RequiresDisease() bool {
	info, _ := t.Info()
	return info.RequiresDisease
}

// RequiresPatient reports whether t must reference an existing patient.
func (t DocumentType) RequiresPatient() bool {
	info, _ := t.Info()
	return info.RequiresPatient
}

// ParseDocumentType converts s to a DocumentType.
func ParseDocumentType(s string) (DocumentType, error) {
	t := DocumentType(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("unknown document type: %q", s)
	}
	return t, nil
}

// DiseaseInfo is a catalogue entry for a supported disease.
type DiseaseInfo struct {
	ID    string `json:"value"`
	Label string `json:"label"`
}

var diseases = []DiseaseInfo{
	{ID: "hypertension", Label: "Hypertension (High Blood Pressure)"},
	{ID: "diabetes", Label: "Type 2 Diabetes"},
	{ID: "respiratory_health", Label: "Respiratory Health"},
}

// Diseases returns the built-in disease catalogue.
func Diseases() []DiseaseInfo {
	out := make([]DiseaseInfo, len(diseases))
	copy(out, diseases)
	return out
}

// DiseaseLabel returns the display label for id, falling back to a title-cased id.
func DiseaseLabel(id string) string {
	id = NormalizeDisease(id)
	for _, d := range diseases {
		if d.ID == id {
			return d.Label
		}
	}
	words := strings.Fields(strings.ReplaceAll(id, "_", " "))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// NormalizeDisease maps a disease identifier to its canonical form:
// trimmed, lower-cased, with spaces and hyphens folded to underscores.
func NormalizeDisease(id string) string {
	id = strings.ToLower(strings.TrimSpace(id))
	id = strings.NewReplacer(" ", "_", "-", "_").Replace(id)
	for strings.Contains(id, "__") {
		id = strings.ReplaceAll(id, "__", "_")
	}
	return id
}
