// Package e2e runs the full pipeline against generated multi-tenant knowledge bases.
package e2e

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hyperjump/karte/internal/models"
)

// KnowledgeFile is one file of a tenant knowledge base.
type KnowledgeFile struct {
	Tenant string
	Path   string // slash-separated, relative to the tenant directory
	Text   string
}

// ScopeCase is a request and the passages its prompt must and must not contain.
type ScopeCase struct {
	Description    string
	Request        models.GenerationRequest
	MustContain    []string
	MustNotContain []string
}

// Corpus holds knowledge files for several tenants and the scope cases checked against them.
type Corpus struct {
	Files []KnowledgeFile
	Cases []ScopeCase
}

type diseaseEntry struct {
	id        string
	ext       string
	signature string
}

var diseaseEntries = []diseaseEntry{
	{"hypertension", ".txt", "sodium intake and arterial pressure readings"},
	{"diabetes", ".md", "glucose monitoring before meals"},
	{"asthma", ".docx", "inhaler technique and airway triggers"},
	{"migraine", ".txt", "aura phases and light sensitivity"},
	{"arthritis", ".xlsx", "joint stiffness in the morning"},
	{"anemia", ".md", "iron rich foods and fatigue patterns"},
}

const (
	wellnessSignature   = "hydration through the working day"
	guidelineSignature  = "plain language for patient handouts"
	templateSignature   = "certificate body with bracketed placeholders"
	disclaimerSignature = "reviewed by a licensed clinician before use"
	otherTenantMarker   = "northside clinic cardiology pathway"
)

// BuildCorpus returns knowledge bases for "demo_hospital" and "northside". Every passage
// carries a signature phrase so tests can see exactly which passages reached a prompt.
func BuildCorpus() *Corpus {
	var files []KnowledgeFile
	for _, d := range diseaseEntries {
		files = append(files, KnowledgeFile{
			Tenant: models.DefaultTenant,
			Path:   "diseases/" + d.id + d.ext,
			Text:   fmt.Sprintf("Overview of %s covering %s.", d.id, d.signature),
		})
	}
	files = append(files,
		KnowledgeFile{models.DefaultTenant, "wellness/hydration.txt", "Drink water regularly, favouring " + wellnessSignature + "."},
		KnowledgeFile{models.DefaultTenant, "guidelines/writing.md", "Use " + guidelineSignature + "."},
		KnowledgeFile{models.DefaultTenant, "templates/certificate.txt", "Layout: " + templateSignature + "."},
		KnowledgeFile{models.DefaultTenant, "disclaimers.txt", "Every draft must be " + disclaimerSignature + "."},
		KnowledgeFile{"northside", "diseases/hypertension.txt", "Hypertension notes for the " + otherTenantMarker + "."},
		KnowledgeFile{"northside", "wellness/walking.txt", "Daily walking for the " + otherTenantMarker + "."},
	)

	var cases []ScopeCase
	for _, d := range diseaseEntries {
		var others []string
		for _, o := range diseaseEntries {
			if o.id != d.id {
				others = append(others, o.signature)
			}
		}
		others = append(others, wellnessSignature, templateSignature, otherTenantMarker)
		cases = append(cases, ScopeCase{
			Description:    "overview of " + d.id,
			Request:        models.GenerationRequest{DocumentType: models.DiseaseOverview, Disease: d.id, Topic: d.id + " basics"},
			MustContain:    []string{d.signature},
			MustNotContain: others,
		})
	}
	cases = append(cases,
		ScopeCase{
			Description:    "wellness suggestions",
			Request:        models.GenerationRequest{DocumentType: models.HealthSuggestions, Topic: "staying hydrated"},
			MustContain:    []string{wellnessSignature},
			MustNotContain: []string{templateSignature, diseaseEntries[0].signature, otherTenantMarker},
		},
		ScopeCase{
			Description:    "educational notes",
			Request:        models.GenerationRequest{DocumentType: models.EducationalNotes, Topic: "writing handouts"},
			MustContain:    []string{guidelineSignature},
			MustNotContain: []string{templateSignature, disclaimerSignature, otherTenantMarker},
		},
		ScopeCase{
			Description:    "other tenant",
			Request:        models.GenerationRequest{DocumentType: models.DiseaseOverview, Disease: "hypertension", Topic: "pressure", Tenant: "northside"},
			MustContain:    []string{otherTenantMarker},
			MustNotContain: []string{diseaseEntries[0].signature},
		},
	)
	return &Corpus{Files: files, Cases: cases}
}

// Write materializes the corpus under root, one directory per tenant.
func (c *Corpus) Write(root string) error {
	for _, f := range c.Files {
		if err := c.WriteFile(root, f); err != nil {
			return err
		}
	}
	return nil
}

// WriteFile writes one knowledge file in the format its extension names.
func (c *Corpus) WriteFile(root string, f KnowledgeFile) error {
	path := filepath.Join(root, f.Tenant, filepath.FromSlash(f.Path))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := WriteMinimalFile(strings.ToLower(filepath.Ext(path)), f.Text)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Tenants returns the distinct tenants of the corpus in first-seen order.
func (c *Corpus) Tenants() []string {
	seen := make(map[string]bool)
	var out []string
	for _, f := range c.Files {
		if !seen[f.Tenant] {
			seen[f.Tenant] = true
			out = append(out, f.Tenant)
		}
	}
	return out
}
