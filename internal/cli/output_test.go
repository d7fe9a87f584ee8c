package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/karte/internal/docgen"
	"github.com/hyperjump/karte/internal/models"
)

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("JSON")
	require.NoError(t, err)
	assert.Equal(t, OutputJSON, f)

	f, err = ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, OutputText, f)

	_, err = ParseFormat("compact")
	assert.Error(t, err)
}

func TestWriteGenerated(t *testing.T) {
	res := &docgen.GenerateResult{
		DocumentID:   "3f1c",
		Content:      "# Sleep\nKeep a regular schedule.",
		DocumentType: models.HealthSuggestions,
		Notice:       docgen.OneTimeNotice,
	}

	var text bytes.Buffer
	require.NoError(t, WriteGenerated(&text, res, OutputText))
	assert.Contains(t, text.String(), "Document ID: 3f1c")
	assert.Contains(t, text.String(), "Keep a regular schedule.")
	assert.True(t, strings.HasSuffix(text.String(), docgen.OneTimeNotice+"\n"))

	var js bytes.Buffer
	require.NoError(t, WriteGenerated(&js, res, OutputJSON))
	var decoded docgen.GenerateResult
	require.NoError(t, json.Unmarshal(js.Bytes(), &decoded))
	assert.Equal(t, *res, decoded)
}

func TestWriteDocument_Text(t *testing.T) {
	doc := &models.GeneratedDocument{
		ID:           "abc",
		DocumentType: models.EducationalNotes,
		Topic:        "hand washing",
		Content:      "Wash for twenty seconds.",
		CreatedAt:    time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC),
	}
	var buf bytes.Buffer
	require.NoError(t, WriteDocument(&buf, doc, OutputText))
	out := buf.String()
	assert.Contains(t, out, "Topic: hand washing")
	assert.Contains(t, out, "2024-03-01 09:30:00")
	assert.Contains(t, out, "Wash for twenty seconds.")
}

func TestWriteStats_SortsCategories(t *testing.T) {
	stats := models.IndexStats{
		Tenant:      "demo_hospital",
		TotalChunks: 5,
		Dimensions:  384,
		Categories:  map[models.Category]int{models.CategoryWellness: 2, models.CategoryDisease: 3},
		Diseases:    []string{"diabetes", "hypertension"},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteStats(&buf, stats, OutputText))
	out := buf.String()
	assert.Less(t, strings.Index(out, "disease"), strings.Index(out, "wellness"))
	assert.Contains(t, out, "Diseases: diabetes, hypertension")
}

func TestWriteCatalog_Text(t *testing.T) {
	cat := &docgen.Catalog{
		DocumentTypes: models.DocumentTypes(),
		Diseases:      []models.DiseaseInfo{{ID: "hypertension", Label: "Hypertension"}},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteCatalog(&buf, cat, OutputText))
	out := buf.String()
	assert.Contains(t, out, "medical_certificate")
	assert.Contains(t, out, "requires patient")
	assert.Contains(t, out, "requires disease")
	assert.Contains(t, out, "hypertension")
}
