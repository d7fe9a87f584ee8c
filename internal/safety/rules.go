package safety

import "github.com/hyperjump/karte/internal/models"

// Rule is one prohibited-content pattern. Several rules may share an ID; the ID is the
// rule category reported on rejection.
type Rule struct {
	ID          models.Rule
	Description string
	Pattern     string
	// Keywords gate the pattern: when set, at least one must occur (case-insensitive)
	// before the regex runs.
	Keywords []string
	// Condition rules match only when a known condition name follows the pattern, with
	// or without the modifiers in its second group. The first group captures the word
	// before the assertion; a match led by one of Hedges ("if you have ...") is ignored.
	Condition bool
	Hedges    []string
}

// medications is the curated list of drug names that must never appear in output.
var medications = []string{
	"acetaminophen", "albuterol", "amlodipine", "amoxicillin", "aspirin", "atenolol",
	"atorvastatin", "azithromycin", "budesonide", "captopril", "cetirizine", "ciprofloxacin",
	"clopidogrel", "dapagliflozin", "diclofenac", "empagliflozin", "enalapril", "fluticasone",
	"furosemide", "glibenclamide", "gliclazide", "glimepiride", "glipizide", "hydrochlorothiazide",
	"ibuprofen", "insulin glargine", "lisinopril", "losartan", "metformin", "metoprolol",
	"montelukast", "naproxen", "omeprazole", "paracetamol", "prednisolone", "prednisone",
	"salbutamol", "simvastatin", "sitagliptin", "telmisartan", "tiotropium", "valsartan",
	"warfarin",
}

// knownConditions names the conditions a diagnosis statement may assert, besides the disease
// catalogue and the tenant's disease ids.
var knownConditions = []string{
	"anemia", "anxiety", "arthritis", "asthma", "bronchitis", "cancer", "chronic kidney disease",
	"chronic obstructive pulmonary disease", "copd", "covid-19", "dementia", "depression",
	"diabetes", "emphysema", "gout", "heart disease", "heart failure", "high blood pressure",
	"high cholesterol", "hypertension", "hypothyroidism", "influenza", "migraine", "obesity",
	"osteoporosis", "pneumonia", "prediabetes", "sleep apnea", "tuberculosis",
}

const (
	// Optional article and severity words between the assertion and the condition name,
	// captured as the second group.
	conditionModifiers = `((?:(?:a|an|the|mild|moderate|severe|chronic|acute|early|advanced|uncontrolled|type\s+[12])\s+)*)`
	leadWord           = `(?:\b([\w']+)[ \t]+)?`
)

// DefaultRules returns the built-in prohibited-content rules.
func DefaultRules() []Rule {
	return []Rule{
		// Diagnosis
		{
			ID:          models.RuleDefinitiveDiagnosis,
			Description: "Statement that someone has been diagnosed",
			Pattern:     `(?i)\bdiagnosed\s+(?:with|as)\b`,
			Keywords:    []string{"diagnosed"},
		},
		{
			ID:          models.RuleDefinitiveDiagnosis,
			Description: "Asserted diagnosis",
			Pattern:     `(?i)\b(?:your|the|a|final|confirmed)\s+diagnosis\s+(?:is|was|of)\b`,
			Keywords:    []string{"diagnosis"},
		},
		{
			ID:          models.RuleDefinitiveDiagnosis,
			Description: "Asserted condition",
			Pattern:     `(?i)\b(?:you|the patient|patient|he|she)\s+(?:(?:is|are)\s+)?(?:suffers?|suffering)\s+from\b`,
			Keywords:    []string{"suffer"},
		},
		{
			ID:          models.RuleDefinitiveDiagnosis,
			Description: "Test result asserting a condition",
			Pattern:     `(?i)\b(?:tests?|results?|findings?)\s+(?:confirms?|confirmed|shows?|showed|indicates?)\s+(?:that\s+)?(?:you|the patient|patient)\s+(?:has|have|had)\b`,
		},
		{
			ID:          models.RuleDefinitiveDiagnosis,
			Description: "Patient stated to have a condition",
			Pattern:     `(?i)` + leadWord + `\b(?:the\s+patient|patient|you|he|she)\s+(?:has|have|is\s+suffering\s+from|is\s+living\s+with)\s+` + conditionModifiers,
			Condition:   true,
			Hedges:      []string{"if", "whether", "when", "whenever", "unless", "do", "does", "did", "case"},
		},
		{
			ID:          models.RuleDefinitiveDiagnosis,
			Description: "Condition confirmed",
			Pattern:     `(?i)` + leadWord + `\bconfirm(?:s|ed)?\s+(?:that\s+)?(?:(?:the\s+)?(?:presence|diagnosis)\s+of\s+)?` + conditionModifiers,
			Condition:   true,
			Hedges:      []string{"can", "cannot", "could", "may", "might", "must", "should", "will", "would", "to", "not", "help", "helps"},
		},

		// Medication and dosage
		{
			ID:          models.RuleMedicationDosage,
			Description: "Named medication",
			Pattern:     wordList(medications),
		},
		{
			ID:          models.RuleMedicationDosage,
			Description: "Dose quantity",
			Pattern:     `(?i)\b\d+(?:[.,]\d+)?\s?(?:mg|mcg|µg|ug|ml|iu|units?)\b`,
		},
		{
			ID:          models.RuleMedicationDosage,
			Description: "Pill count",
			Pattern:     `(?i)\b(?:\d+|one|two|three|four)\s+(?:tablets?|pills?|capsules?|puffs?)\b`,
		},

		// Fitness
		{
			ID:          models.RuleFitnessDetermination,
			Description: "Fitness determination",
			Pattern:     `(?i)\b(?:is|are|was|be|been|deemed|declared|found|medically)\s+(?:medically\s+)?(?:fit|unfit)\b`,
			Keywords:    []string{"fit"},
		},
		{
			ID:          models.RuleFitnessDetermination,
			Description: "Fitness for an activity",
			Pattern:     `(?i)\b(?:fit|unfit)\s+(?:for|to)\s+(?:work|duty|school|travel|return|resume|fly|drive|play|participate|attend)\b`,
			Keywords:    []string{"fit"},
		},
		{
			ID:          models.RuleFitnessDetermination,
			Description: "Clearance for an activity",
			Pattern:     `(?i)\b(?:cleared|clearance)\s+(?:for|to)\s+(?:work|duty|return|resume|travel|fly|sports?)\b`,
			Keywords:    []string{"clear"},
		},
	}
}
