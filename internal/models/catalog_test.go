package models

import (
	"reflect"
	"testing"
)

func TestAllowedCategories(t *testing.T) {
	tests := []struct {
		docType DocumentType
		want    []Category
	}{
		{DiseaseOverview, []Category{CategoryDisease}},
		{MedicalCertificate, []Category{CategoryTemplate, CategoryDisclaimer}},
		{HealthSuggestions, []Category{CategoryWellness, CategoryGuideline}},
		{EducationalNotes, []Category{CategoryGuideline, CategoryWellness}},
		{"unknown", nil},
	}
	for _, tt := range tests {
		t.Run(string(tt.docType), func(t *testing.T) {
			if got := tt.docType.AllowedCategories(); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("AllowedCategories() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAllowedCategories_ReturnsCopy(t *testing.T) {
	got := DiseaseOverview.AllowedCategories()
	got[0] = CategoryTemplate
	if DiseaseOverview.AllowedCategories()[0] != CategoryDisease {
		t.Fatal("mutating the returned slice changed the table")
	}
}

func TestDocumentTypeFlags(t *testing.T) {
	if !MedicalCertificate.RequiresPatient() || MedicalCertificate.RequiresDisease() {
		t.Error("medical_certificate needs a patient and no disease")
	}
	if !DiseaseOverview.RequiresDisease() || DiseaseOverview.RequiresPatient() {
		t.Error("disease_overview needs a disease and no patient")
	}
	if len(DocumentTypes()) != 4 {
		t.Errorf("expected 4 document types, got %d", len(DocumentTypes()))
	}
}

func TestNormalizeDisease(t *testing.T) {
	cases := map[string]string{
		"Hypertension":         "hypertension",
		" respiratory health ": "respiratory_health",
		"Respiratory-Health":   "respiratory_health",
		"type 2  diabetes":     "type_2_diabetes",
		"":                     "",
	}
	for in, want := range cases {
		if got := NormalizeDisease(in); got != want {
			t.Errorf("NormalizeDisease(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDiseaseLabel(t *testing.T) {
	if got := DiseaseLabel("diabetes"); got != "Type 2 Diabetes" {
		t.Errorf("got %q", got)
	}
	if got := DiseaseLabel("chronic_kidney_disease"); got != "Chronic Kidney Disease" {
		t.Errorf("got %q", got)
	}
}

func TestParseDocumentType(t *testing.T) {
	if dt, err := ParseDocumentType(" Educational_Notes"); err != nil || dt != EducationalNotes {
		t.Errorf("got %q, %v", dt, err)
	}
	if _, err := ParseDocumentType("prescription"); err == nil {
		t.Error("expected error")
	}
}
