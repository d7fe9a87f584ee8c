package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/karte/internal/models"
)

func result(docType models.DocumentType, disease string, chunks ...*models.Chunk) *models.RetrievalResult {
	res := &models.RetrievalResult{DocumentType: docType, Disease: disease}
	for i, ch := range chunks {
		res.Chunks = append(res.Chunks, models.ScoredChunk{Chunk: ch, Score: 1 - float64(i)/10})
	}
	return res
}

func TestBuild_EmptyRetrievalIsInsufficient(t *testing.T) {
	req := &models.GenerationRequest{DocumentType: models.HealthSuggestions, Topic: "sleep"}
	p := Build(req, result(models.HealthSuggestions, ""))
	assert.True(t, p.Insufficient)
	assert.Equal(t, models.InsufficientDataMessage, p.Text)
	assert.NotContains(t, p.Text, "sleep")

	p = Build(req, nil)
	assert.True(t, p.Insufficient)
}

func TestBuild_DiseaseOverview(t *testing.T) {
	req := &models.GenerationRequest{DocumentType: models.DiseaseOverview, Topic: "blood pressure", Disease: "hypertension"}
	res := result(models.DiseaseOverview, "hypertension",
		&models.Chunk{Category: models.CategoryDisease, Disease: "hypertension", Content: "first passage"},
		&models.Chunk{Category: models.CategoryDisease, Disease: "hypertension", Content: "second passage"},
	)
	p := Build(req, res)
	require.False(t, p.Insufficient)
	assert.Equal(t, "hypertension", p.Disease)
	assert.Contains(t, p.Text, "[1] (disease: hypertension)\nfirst passage")
	assert.Contains(t, p.Text, "[2] (disease: hypertension)\nsecond passage")
	assert.Less(t, strings.Index(p.Text, "first passage"), strings.Index(p.Text, "second passage"))
	assert.Contains(t, p.Text, "# Hypertension (High Blood Pressure) Overview")
	assert.Contains(t, p.Text, "TOPIC: blood pressure")
	assert.Contains(t, p.Text, "Do not name medications or give doses.")
	assert.False(t, p.Constraints.RequireDraftMarker)
}

func TestBuild_CertificateConstraints(t *testing.T) {
	req := &models.GenerationRequest{DocumentType: models.MedicalCertificate, Topic: "rest period", PatientID: "P001"}
	res := result(models.MedicalCertificate, "",
		&models.Chunk{Category: models.CategoryTemplate, Content: "template body"},
		&models.Chunk{Category: models.CategoryDisclaimer, Content: "disclaimer body"},
	)
	p := Build(req, res)
	assert.True(t, p.Constraints.RequireDraftMarker)
	assert.True(t, p.Constraints.RequireReviewDisclaimer)
	assert.True(t, p.Constraints.RequirePlaceholders)
	assert.Contains(t, p.Text, "[1] (template)\ntemplate body")
	assert.Contains(t, p.Text, "[2] (disclaimer)\ndisclaimer body")
	assert.Contains(t, p.Text, "[DRAFT - FOR CLINICIAN REVIEW ONLY]")
	assert.NotContains(t, p.Text, "P001", "patient identifiers never reach the prompt")
}

func TestBuild_Deterministic(t *testing.T) {
	req := &models.GenerationRequest{DocumentType: models.EducationalNotes, Topic: "screenings"}
	res := result(models.EducationalNotes, "", &models.Chunk{Category: models.CategoryGuideline, Content: "screen regularly"})
	assert.Equal(t, Build(req, res), Build(req, res))
}
