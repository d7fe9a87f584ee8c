package models

// Rule identifies a compliance rule category.
type Rule string

const (
	RuleDefinitiveDiagnosis  Rule = "definitive_diagnosis"
	RuleMedicationDosage     Rule = "medication_dosage"
	RuleFitnessDetermination Rule = "fitness_determination"
	RuleDraftMarker          Rule = "missing_draft_marker"
	RuleReviewDisclaimer     Rule = "missing_review_disclaimer"
	RuleAssertedIdentity     Rule = "asserted_identity_field"
	RuleMissingPlaceholder   Rule = "missing_identity_placeholder"
)

// Constraints is the compliance contract of one document. The prompt states it to the
// backend and the safety filter enforces the same value.
type Constraints struct {
	DocumentType            DocumentType `json:"document_type"`
	Prohibited              []Rule       `json:"prohibited"`
	RequireDraftMarker      bool         `json:"require_draft_marker"`
	RequireReviewDisclaimer bool         `json:"require_review_disclaimer"`
	RequirePlaceholders     bool         `json:"require_placeholders"`
	// Conditions are tenant disease ids the diagnosis rules treat as condition names
	// in addition to the built-in list.
	Conditions []string `json:"conditions,omitempty"`
}

// ConstraintsFor returns the constraint set of t.
func ConstraintsFor(t DocumentType) Constraints {
	c := Constraints{
		DocumentType: t,
		Prohibited:   []Rule{RuleDefinitiveDiagnosis, RuleMedicationDosage, RuleFitnessDetermination},
	}
	if t == MedicalCertificate {
		c.RequireDraftMarker = true
		c.RequireReviewDisclaimer = true
		c.RequirePlaceholders = true
	}
	return c
}
