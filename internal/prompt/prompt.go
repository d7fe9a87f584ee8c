// Package prompt assembles generation prompts from scoped retrieval results. Prompts are
// deterministic: the same request and retrieval result always produce the same text.
package prompt

import (
	"fmt"
	"strings"

	"github.com/hyperjump/karte/internal/models"
)

// Prompt is the input to the generation client.
type Prompt struct {
	System       string
	Text         string
	Constraints  models.Constraints
	Insufficient bool
	Topic        string
	Disease      string
}

const systemMessage = "You write structured healthcare documents for a clinic. " +
	"The reference passages in each request are your only source of facts. " +
	"If they do not cover something, say that the reference data is insufficient instead of filling the gap."

var headers = map[models.DocumentType]string{
	models.DiseaseOverview: "Write a patient-education overview of {subject} using only the reference passages below. " +
		"Name {subject} in every section heading.",
	models.MedicalCertificate: "Prepare a DRAFT medical certificate layout for clinician review using only the template " +
		"and disclaimer passages below. Identity, dates and clinical findings stay as blank placeholders.",
	models.HealthSuggestions: "Write general wellness suggestions using only the reference passages below. " +
		"Keep them general; they are not personal medical advice.",
	models.EducationalNotes: "Write educational notes using only the reference passages below, " +
		"aimed at helping a reader prepare questions for their healthcare provider.",
}

var ruleText = map[models.Rule]string{
	models.RuleDefinitiveDiagnosis:  "Do not state or imply that anyone has a condition.",
	models.RuleMedicationDosage:     "Do not name medications or give doses.",
	models.RuleFitnessDetermination: "Do not declare anyone fit or unfit for work, school, travel or any activity.",
}

// Build returns the prompt for req over res. An empty retrieval result yields an
// insufficient-data directive that carries no generation instruction.
func Build(req *models.GenerationRequest, res *models.RetrievalResult) *Prompt {
	p := &Prompt{
		System:      systemMessage,
		Constraints: models.ConstraintsFor(req.DocumentType),
		Topic:       req.Topic,
	}
	if res != nil {
		p.Disease = res.Disease
	}
	if res.Empty() {
		p.Insufficient = true
		p.Text = models.InsufficientDataMessage
		return p
	}

	var b strings.Builder
	subject := req.Topic
	if p.Disease != "" {
		subject = models.DiseaseLabel(p.Disease)
	}
	b.WriteString(strings.ReplaceAll(headers[req.DocumentType], "{subject}", subject))
	b.WriteString("\n\nREFERENCE PASSAGES\n")
	for i, sc := range res.Chunks {
		fmt.Fprintf(&b, "[%d] (%s", i+1, sc.Chunk.Category)
		if sc.Chunk.Disease != "" {
			fmt.Fprintf(&b, ": %s", sc.Chunk.Disease)
		}
		fmt.Fprintf(&b, ")\n%s\n\n", sc.Chunk.Content)
	}
	b.WriteString("RULES\n")
	for _, line := range constraintLines(p.Constraints) {
		fmt.Fprintf(&b, "- %s\n", line)
	}
	fmt.Fprintf(&b, "\nTOPIC: %s\n", req.Topic)
	b.WriteString("\nOUTPUT STRUCTURE\n")
	b.WriteString(structure(req.DocumentType, subject))
	p.Text = b.String()
	return p
}

func constraintLines(c models.Constraints) []string {
	lines := []string{
		"Use only facts found in the reference passages; cite nothing else.",
		"Where the passages are silent, write \"Insufficient reference data available for this section.\"",
	}
	for _, r := range c.Prohibited {
		if t, ok := ruleText[r]; ok {
			lines = append(lines, t)
		}
	}
	if c.RequireDraftMarker {
		lines = append(lines, "Begin with the line \"[DRAFT - FOR CLINICIAN REVIEW ONLY]\".")
	}
	if c.RequireReviewDisclaimer {
		lines = append(lines, "State that the document is not valid until reviewed and signed by a licensed clinician.")
	}
	if c.RequirePlaceholders {
		lines = append(lines, "Leave patient name, doctor name, license and dates as placeholders such as [TO BE COMPLETED BY CLINICIAN] or ______.")
	}
	return lines
}

func structure(t models.DocumentType, subject string) string {
	switch t {
	case models.DiseaseOverview:
		return fmt.Sprintf("# %[1]s Overview\n## About %[1]s\n## %[1]s Risk Factors\n## %[1]s Warning Signs\n"+
			"## Living With %[1]s\n## When to Talk to a Healthcare Provider About %[1]s\n", subject)
	case models.MedicalCertificate:
		return "[DRAFT - FOR CLINICIAN REVIEW ONLY]\nMEDICAL CERTIFICATE - DRAFT\nPatient Name: [TO BE COMPLETED BY CLINICIAN]\n" +
			"Purpose: <topic>\nClinical Observations: [TO BE COMPLETED BY REVIEWING CLINICIAN]\n" +
			"Attending Physician: ______________________\nClinician review notice\n"
	case models.HealthSuggestions:
		return "# Health Suggestions\n## Daily Habits\n## Wellness Considerations\n## When to Consult a Healthcare Provider\n"
	default:
		return "# Educational Notes\n## Key Points\n## Questions to Ask Your Healthcare Provider\n"
	}
}
