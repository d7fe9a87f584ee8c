package safety

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/karte/internal/config"
	"github.com/hyperjump/karte/internal/models"
)

const cleanCertificate = `[DRAFT - FOR CLINICIAN REVIEW ONLY]
MEDICAL CERTIFICATE - DRAFT

Patient Name: [TO BE COMPLETED BY CLINICIAN]
Patient ID: [AS SPECIFIED]
Purpose: rest period
Clinical Observations: [TO BE COMPLETED BY REVIEWING CLINICIAN]

This certificate is not valid until reviewed and signed by a licensed clinician.
No fitness/unfitness determination has been made.

Attending Physician: ______________________
`

func newFilter(t *testing.T) *Filter {
	t.Helper()
	f, err := New(config.SafetyConfig{})
	require.NoError(t, err)
	return f
}

func TestCheck_ViolatingStringsAlwaysReject(t *testing.T) {
	f := newFilter(t)
	tests := []struct {
		text string
		rule models.Rule
	}{
		{"You have been diagnosed with hypertension.", models.RuleDefinitiveDiagnosis},
		{"The diagnosis is type 2 diabetes.", models.RuleDefinitiveDiagnosis},
		{"The patient suffers from asthma.", models.RuleDefinitiveDiagnosis},
		{"Tests confirm that you have diabetes.", models.RuleDefinitiveDiagnosis},
		{"The patient has hypertension.", models.RuleDefinitiveDiagnosis},
		{"You have type 2 diabetes.", models.RuleDefinitiveDiagnosis},
		{"This confirms hypertension in the patient.", models.RuleDefinitiveDiagnosis},
		{"Unfortunately, she has severe asthma.", models.RuleDefinitiveDiagnosis},
		{"He has high blood pressure.", models.RuleDefinitiveDiagnosis},
		{"The patient has chronic obstructive pulmonary disease.", models.RuleDefinitiveDiagnosis},
		{"The scan confirmed the presence of pneumonia.", models.RuleDefinitiveDiagnosis},
		{"Start METFORMIN with meals.", models.RuleMedicationDosage},
		{"Lisinopril can help.", models.RuleMedicationDosage},
		{"Take 500 mg each morning.", models.RuleMedicationDosage},
		{"Use two puffs when needed.", models.RuleMedicationDosage},
		{"The patient is fit for work.", models.RuleFitnessDetermination},
		{"She was deemed unfit to travel.", models.RuleFitnessDetermination},
		{"He is cleared to return to sports.", models.RuleFitnessDetermination},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			for _, docType := range []models.DocumentType{models.DiseaseOverview, models.HealthSuggestions, models.EducationalNotes} {
				err := f.Check(docType, tt.text)
				require.ErrorIs(t, err, models.ErrComplianceViolation)
				var e *models.Error
				require.ErrorAs(t, err, &e)
				assert.Equal(t, string(tt.rule), e.Rule)
				assert.Equal(t, models.ComplianceMessage, e.Message)
				assert.NotContains(t, e.Error(), tt.text)
			}
		})
	}
}

func TestCheck_CleanStringsAlwaysPass(t *testing.T) {
	f := newFilter(t)
	clean := []string{
		"Regular physical activity supports healthy blood pressure.",
		"Aim for 7-9 hours of sleep and 150 minutes of activity each week.",
		"Talk to a healthcare provider about screening and any symptoms you notice.",
		"Staying fit through walking is a common wellness goal.",
		"Blood sugar is regulated by the hormone insulin.",
		"No diagnosis has been made in this document.",
		"If you have high blood pressure, check it at home regularly.",
		"If you have questions, ask your care team.",
		"Do you have asthma? A clinician can help you plan.",
		"A clinician can confirm diabetes with a blood test.",
		"Many people who have hypertension feel well.",
		"You have a right to ask for a second opinion.",
	}
	for _, text := range clean {
		t.Run(text, func(t *testing.T) {
			assert.NoError(t, f.Check(models.HealthSuggestions, text))
			assert.NoError(t, f.Check(models.EducationalNotes, text))
		})
	}
}

func TestCheck_IsPure(t *testing.T) {
	f := newFilter(t)
	text := "Take 10 mg of amlodipine."
	first := f.Check(models.DiseaseOverview, text)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, f.Check(models.DiseaseOverview, text))
	}
}

func TestCheck_Certificate(t *testing.T) {
	f := newFilter(t)
	require.NoError(t, f.Check(models.MedicalCertificate, cleanCertificate))

	tests := []struct {
		name string
		text string
		rule models.Rule
	}{
		{"missing draft marker", `Patient Name: [TO BE COMPLETED]
Requires clinician review before use.`, models.RuleDraftMarker},
		{"lowercase draft is not a marker", `draft certificate
Patient Name: [TO BE COMPLETED]
Requires clinician review before use.`, models.RuleDraftMarker},
		{"missing review disclaimer", `DRAFT
Patient Name: [TO BE COMPLETED]`, models.RuleReviewDisclaimer},
		{"asserted patient name", `DRAFT
Patient Name: John Smith
Requires clinician review before use.`, models.RuleAssertedIdentity},
		{"asserted doctor in markdown", `DRAFT
**Attending Physician:** Dr. Jane Roe
Requires clinician review before use.`, models.RuleAssertedIdentity},
		{"fitness statement", "DRAFT\nThe patient is fit for duty.\nRequires clinician review.", models.RuleFitnessDetermination},
		{"asserted physician name", certificate("Patient Name: [PATIENT]\nPhysician Name: Dr. Alan Grant"), models.RuleAssertedIdentity},
		{"asserted possessive patient name", certificate("Patient's Name: John Smith\nAttending Physician: ______"), models.RuleAssertedIdentity},
		{"asserted name of patient", certificate("Name of Patient: John Smith\nAttending Physician: ______"), models.RuleAssertedIdentity},
		{"asserted full name", certificate("Patient Full Name: John Smith\nAttending Physician: ______"), models.RuleAssertedIdentity},
		{"placeholder followed by a name", certificate("Patient Name: [PATIENT] John Smith\nAttending Physician: ______"), models.RuleAssertedIdentity},
		{"name in prose", certificate("This certifies that John Smith attended a consultation."), models.RuleAssertedIdentity},
		{"doctor in prose", certificate("Patient Name: [PATIENT]\nAttending Physician: ______\nSeen by Dr. Grant today."), models.RuleAssertedIdentity},
		{"no identity fields", certificate("The above-named person attended a consultation."), models.RuleMissingPlaceholder},
		{"no physician field", certificate("Patient Name: [TO BE COMPLETED]"), models.RuleMissingPlaceholder},
		{"no patient field", certificate("Attending Physician: ______"), models.RuleMissingPlaceholder},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := f.Check(models.MedicalCertificate, tt.text)
			var e *models.Error
			require.ErrorAs(t, err, &e)
			assert.Equal(t, models.CodeComplianceViolation, e.Code)
			assert.Equal(t, string(tt.rule), e.Rule)
		})
	}
}

func certificate(body string) string {
	return "DRAFT\n" + body + "\nRequires clinician review before use."
}

func TestCheck_CertificateLabelVariantsWithPlaceholders(t *testing.T) {
	f := newFilter(t)
	for _, body := range []string{
		"Patient's Name: [PATIENT NAME]\nPhysician Name: ______",
		"Name of Patient: [TO BE COMPLETED]\nDoctor's Name: [TO BE COMPLETED]",
		"**Patient Full Name:** [ ]\nPhysician Signature: ________",
		"Name: [NAME]\nTreating Clinician: [CLINICIAN] / ______",
	} {
		t.Run(body, func(t *testing.T) {
			assert.NoError(t, f.Check(models.MedicalCertificate, certificate(body)))
		})
	}
}

func TestScan_TenantConditions(t *testing.T) {
	f := newFilter(t)
	text := "You have Lyme disease."
	assert.NoError(t, f.Check(models.HealthSuggestions, text))

	c := models.ConstraintsFor(models.HealthSuggestions)
	c.Conditions = []string{"lyme_disease"}
	err := f.CheckConstraints(c, text)
	var e *models.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, string(models.RuleDefinitiveDiagnosis), e.Rule)
	assert.NoError(t, f.CheckConstraints(c, "If you have Lyme disease, see a clinician."))
}

func TestCheck_CertificateRulesOnlyApplyToCertificates(t *testing.T) {
	f := newFilter(t)
	assert.NoError(t, f.Check(models.EducationalNotes, "Patient Name: anyone\nno marker here"))
}

func TestScan_ReportsLines(t *testing.T) {
	f := newFilter(t)
	v := f.Scan(models.ConstraintsFor(models.HealthSuggestions), "line one\nuse ibuprofen\nline three")
	require.Len(t, v, 1)
	assert.Equal(t, models.RuleMedicationDosage, v[0].Rule)
	assert.Equal(t, 2, v[0].Line)
}

func TestNew_ExtraPhrases(t *testing.T) {
	f, err := New(config.SafetyConfig{
		ExtraMedications: []string{"Zyloprim", "  "},
		ExtraDiagnoses:   []string{"confirmed case"},
		ExtraConditions:  []string{"Chagas disease"},
	})
	require.NoError(t, err)

	err = f.Check(models.HealthSuggestions, "Consider zyloprim.")
	assert.ErrorIs(t, err, models.ErrComplianceViolation)
	err = f.Check(models.HealthSuggestions, "This is a confirmed case.")
	assert.ErrorIs(t, err, models.ErrComplianceViolation)
	err = f.Check(models.HealthSuggestions, "The patient has Chagas disease.")
	assert.ErrorIs(t, err, models.ErrComplianceViolation)
}

func TestNewWithRules_InvalidPattern(t *testing.T) {
	_, err := NewWithRules([]Rule{{ID: models.RuleMedicationDosage, Pattern: "("}})
	assert.Error(t, err)
	_, err = NewWithRules([]Rule{{Pattern: "x"}})
	assert.Error(t, err)
	_, err = NewWithRules([]Rule{{ID: models.RuleDefinitiveDiagnosis, Pattern: "(x)", Condition: true}})
	assert.Error(t, err)
}
