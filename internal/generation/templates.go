package generation

import (
	"context"
	"strings"

	"github.com/hyperjump/karte/internal/models"
	"github.com/hyperjump/karte/internal/prompt"
)

// TemplateGenerator renders pre-written documents for offline and demo use. It ignores
// the reference passages and fills in only the topic and disease label.
type TemplateGenerator struct {
	byType    map[models.DocumentType]string
	byDisease map[string]string
}

// NewTemplateGenerator returns a generator over the built-in templates.
func NewTemplateGenerator() *TemplateGenerator {
	return &TemplateGenerator{
		byType: map[models.DocumentType]string{
			models.DiseaseOverview:    genericDiseaseTemplate,
			models.MedicalCertificate: certificateTemplate,
			models.HealthSuggestions:  healthSuggestionsTemplate,
			models.EducationalNotes:   educationalNotesTemplate,
		},
		byDisease: map[string]string{
			"hypertension":       hypertensionTemplate,
			"diabetes":           diabetesTemplate,
			"respiratory_health": respiratoryTemplate,
		},
	}
}

// Name implements Generator.
func (g *TemplateGenerator) Name() string {
	return "template"
}

// Generate implements Generator.
func (g *TemplateGenerator) Generate(ctx context.Context, p *prompt.Prompt) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	docType := p.Constraints.DocumentType
	tmpl, ok := g.byType[docType]
	if !ok {
		return "", models.NewValidationError("no template for document type %q", docType)
	}
	if docType == models.DiseaseOverview {
		if t, ok := g.byDisease[p.Disease]; ok {
			tmpl = t
		}
	}
	r := strings.NewReplacer(
		"{topic}", p.Topic,
		"{disease}", models.DiseaseLabel(p.Disease),
	)
	return r.Replace(tmpl), nil
}

const overviewDisclaimer = `---
**Healthcare disclaimer**
This overview is for general education and does not replace advice from a qualified
healthcare provider. Bring questions about {disease} to your own clinician.`

const hypertensionTemplate = `# Hypertension (High Blood Pressure) Overview

Topic: {topic}

## About Hypertension
Blood pressure is the force of blood pushing against artery walls. Hypertension describes
blood pressure that stays higher than the recommended range over time. It often causes no
noticeable symptoms, which is why regular checks matter.

## Hypertension Risk Factors
- Family history of high blood pressure
- Diets high in salt and low in potassium
- Low physical activity and excess body weight
- Heavy alcohol use and tobacco use
- Ongoing stress

## Hypertension Warning Signs
Most people notice nothing. Very high readings can come with severe headaches, chest
discomfort or vision changes, which need prompt medical attention.

## Living With Hypertension
- Check blood pressure at home and keep a log for appointments
- Choose vegetables, fruit and whole grains, and limit added salt
- Stay active most days of the week
- Limit alcohol and avoid tobacco

## When to Talk to a Healthcare Provider About Hypertension
Arrange a visit if home readings are often above your target, or sooner if you notice
severe headaches, chest pain or shortness of breath.

` + overviewDisclaimer

const diabetesTemplate = `# Type 2 Diabetes Overview

Topic: {topic}

## About Type 2 Diabetes
Type 2 diabetes affects how the body uses glucose for energy. Over time, blood sugar that
stays above the healthy range can affect the heart, kidneys, eyes and nerves.

## Type 2 Diabetes Risk Factors
- Family history of diabetes
- Excess body weight, especially around the waist
- Low physical activity
- Previous high blood sugar during pregnancy

## Type 2 Diabetes Warning Signs
Increased thirst, frequent urination, tiredness, blurred vision and slow-healing cuts can
all be signs worth raising with a clinician.

## Living With Type 2 Diabetes
- Follow a regular meal pattern built around vegetables and whole grains
- Stay active; even short walks after meals help
- Keep scheduled eye, foot and kidney checks

## When to Talk to a Healthcare Provider About Type 2 Diabetes
Seek advice about any of the signs above, and follow the monitoring plan agreed with
your care team.

` + overviewDisclaimer

const respiratoryTemplate = `# Respiratory Health Overview

Topic: {topic}

## About Respiratory Health
Healthy lungs and airways move air in and out with little effort. Many long-term
conditions and infections can make breathing harder.

## Respiratory Health Risk Factors
- Tobacco smoke, including second-hand smoke
- Air pollution and workplace dust or fumes
- Frequent respiratory infections
- Allergies

## Respiratory Health Warning Signs
A cough that lasts for weeks, wheezing, shortness of breath during light activity or
chest tightness should be discussed with a clinician.

## Living With Respiratory Health Concerns
- Avoid smoke and known triggers
- Stay up to date with recommended vaccinations
- Keep active at a comfortable pace

## When to Talk to a Healthcare Provider About Respiratory Health
Get help quickly for severe breathlessness, bluish lips or chest pain.

` + overviewDisclaimer

const genericDiseaseTemplate = `# {disease} Overview

Topic: {topic}

## About {disease}
Reference material for {disease} is summarized by the clinic's knowledge base. Ask your
healthcare provider how it applies to you.

## {disease} Risk Factors
Insufficient reference data available for this section.

## {disease} Warning Signs
Insufficient reference data available for this section.

## Living With {disease}
General healthy habits such as balanced meals, regular activity and good sleep support
overall wellbeing.

## When to Talk to a Healthcare Provider About {disease}
Raise any new or worsening symptoms with your clinician.

` + overviewDisclaimer

const certificateTemplate = `[DRAFT - FOR CLINICIAN REVIEW ONLY]

MEDICAL CERTIFICATE - DRAFT

Date: [DATE TO BE COMPLETED]
Patient Name: [TO BE COMPLETED BY CLINICIAN]
Patient ID: [TO BE COMPLETED BY CLINICIAN]

This is to certify that the above-named patient attended for a medical consultation.

Purpose: {topic}
Date(s) of Consultation: [TO BE COMPLETED BY CLINICIAN]
Clinical Observations: [TO BE COMPLETED BY REVIEWING CLINICIAN]
Recommended Period: [TO BE DETERMINED BY CLINICIAN]

IMPORTANT - THIS IS A DRAFT DOCUMENT
- This certificate is not valid until reviewed and signed by a licensed clinician.
- Clinician review and signature are required before any official use.
- This draft contains no clinical findings, treatment or work-status decision.

Attending Physician: ______________________________
License No.: [TO BE COMPLETED]
Date of Issue: [TO BE COMPLETED AFTER REVIEW]`

const healthSuggestionsTemplate = `# General Health Suggestions

Topic: {topic}

## Daily Habits
- Move your body regularly at a level that feels comfortable
- Eat a varied diet with plenty of vegetables and fruit
- Aim for 7-9 hours of sleep
- Drink water through the day
- Make time to unwind and stay in touch with friends and family

## Wellness Considerations
- Keep up with routine check-ups and recommended screenings
- Limit alcohol and avoid tobacco
- Take short breaks from long periods of sitting

## When to Consult a Healthcare Provider
Speak with a healthcare provider before starting a new exercise program, for personal
recommendations, or about any symptom that does not go away.

---
**Healthcare disclaimer**
These suggestions are general. Individual needs differ; ask your healthcare provider for
advice that fits you.`

const educationalNotesTemplate = `# Educational Notes

Topic: {topic}

## Key Points
- Health conditions affect people in different ways
- Prevention and early detection make a difference
- Everyday habits influence long-term health
- Open conversations with your care team lead to better care

## Questions to Ask Your Healthcare Provider
- What does this mean for my situation?
- What options do I have?
- Which lifestyle changes could help?
- When should I follow up?

---
**Educational disclaimer**
This material is for learning only and does not replace professional medical advice.`
