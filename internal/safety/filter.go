// Package safety is the final compliance gate. A Filter scans generated text for
// prohibited content and, for certificates, for required draft markings. Any match
// rejects the text as a whole; nothing is ever rewritten.
package safety

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/hyperjump/karte/internal/config"
	"github.com/hyperjump/karte/internal/models"
)

var (
	draftMarker      = regexp.MustCompile(`\bDRAFT\b`)
	reviewDisclaimer = regexp.MustCompile(`(?i)(?:\b(?:clinician|physician|doctor)(?:'s)?\s+review\b|\breviewed\s+(?:and\s+signed\s+)?by\s+a\s+(?:licensed\s+)?(?:clinician|physician|doctor)\b)`)
	identityField    = regexp.MustCompile(`(?im)^[ \t*#>•-]*(` + identityLabel + `)[ \t]*\**[ \t]*:[ \t]*\**(.*)$`)
	placeholder      = regexp.MustCompile(`^(?:(?:\[[^\]]*\]|_{3,})[ \t*.,/-]*)+$`)
	physicianLabel   = regexp.MustCompile(`(?i)physician|doctor|clinician|practitioner|signature`)
	// Names stated outside a field: a title or "patient"/"certify that" followed by
	// capitalized words.
	namedPerson = regexp.MustCompile(`\b(?:Mr|Mrs|Ms|Miss|Dr)\.?[ \t]+[A-Z][a-z]+|\b(?:[Pp]atient|[Cc]ertif(?:y|ies)[ \t]+that)[ \t]+[A-Z][a-z]+[ \t]+[A-Z][a-z]+`)
)

const (
	personWord    = `(?:patient|physician|doctor|clinician|practitioner)`
	identityLabel = `(?:(?:attending|treating|examining|referring)[ \t]+)?` + personWord + `(?:'s|’s)?(?:[ \t]+(?:full[ \t]+)?(?:name|id|signature))?` +
		`|(?:full[ \t]+)?name(?:[ \t]+of[ \t]+(?:the[ \t]+)?` + personWord + `)?` +
		`|signature`
)

// Violation is one rule match. The matched text is kept out on purpose.
type Violation struct {
	Rule        models.Rule
	Description string
	Line        int
}

type compiledRule struct {
	Rule
	pattern *regexp.Regexp
	hedges  map[string]bool
}

// Filter checks text against the compiled rule set. It holds no mutable state, so one
// Filter can serve concurrent requests.
type Filter struct {
	rules      []compiledRule
	conditions []string
}

// New compiles the default rules plus the configured extra phrases.
func New(cfg config.SafetyConfig) (*Filter, error) {
	rules := DefaultRules()
	if p := wordList(cfg.ExtraMedications); p != "" {
		rules = append(rules, Rule{
			ID:          models.RuleMedicationDosage,
			Description: "Configured medication",
			Pattern:     p,
		})
	}
	if p := wordList(cfg.ExtraDiagnoses); p != "" {
		rules = append(rules, Rule{
			ID:          models.RuleDefinitiveDiagnosis,
			Description: "Configured diagnosis phrase",
			Pattern:     p,
		})
	}
	f, err := NewWithRules(rules)
	if err != nil {
		return nil, err
	}
	f.conditions = mergeConditions(f.conditions, cfg.ExtraConditions)
	return f, nil
}

// NewWithRules compiles rules as given.
func NewWithRules(rules []Rule) (*Filter, error) {
	f := &Filter{
		rules:      make([]compiledRule, 0, len(rules)),
		conditions: mergeConditions(catalogueConditions(), knownConditions),
	}
	for i, r := range rules {
		if r.ID == "" {
			return nil, fmt.Errorf("rule %d: ID is required", i)
		}
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			return nil, fmt.Errorf("rule %d (%s): invalid pattern: %w", i, r.ID, err)
		}
		kw := make([]string, len(r.Keywords))
		for j, k := range r.Keywords {
			kw[j] = strings.ToLower(k)
		}
		r.Keywords = kw
		if r.Condition && re.NumSubexp() < 2 {
			return nil, fmt.Errorf("rule %d (%s): condition pattern needs lead and modifier groups", i, r.ID)
		}
		hedges := make(map[string]bool, len(r.Hedges))
		for _, h := range r.Hedges {
			hedges[strings.ToLower(h)] = true
		}
		f.rules = append(f.rules, compiledRule{Rule: r, pattern: re, hedges: hedges})
	}
	return f, nil
}

// Check returns nil when text may be released for docType, or a compliance violation
// naming the first violated rule category.
func (f *Filter) Check(docType models.DocumentType, text string) error {
	return f.CheckConstraints(models.ConstraintsFor(docType), text)
}

// CheckConstraints is Check against an explicit constraint set.
func (f *Filter) CheckConstraints(c models.Constraints, text string) error {
	if v := f.Scan(c, text); len(v) > 0 {
		return models.NewComplianceViolationError(string(v[0].Rule))
	}
	return nil
}

// Scan returns every violation of c in text, in rule order.
func (f *Filter) Scan(c models.Constraints, text string) []Violation {
	var out []Violation
	lower := strings.ToLower(text)
	prohibited := make(map[models.Rule]bool, len(c.Prohibited))
	for _, r := range c.Prohibited {
		prohibited[r] = true
	}
	conditions := mergeConditions(f.conditions, c.Conditions)
	for _, r := range f.rules {
		if !prohibited[r.ID] || !hasKeyword(lower, r.Keywords) {
			continue
		}
		start := -1
		if r.Condition {
			start = conditionMatch(r, text, lower, conditions)
		} else if loc := r.pattern.FindStringIndex(text); loc != nil {
			start = loc[0]
		}
		if start >= 0 {
			out = append(out, Violation{Rule: r.ID, Description: r.Description, Line: lineOf(text, start)})
		}
	}
	if c.RequireDraftMarker && !draftMarker.MatchString(text) {
		out = append(out, Violation{Rule: models.RuleDraftMarker, Description: "Missing DRAFT marker"})
	}
	if c.RequireReviewDisclaimer && !reviewDisclaimer.MatchString(text) {
		out = append(out, Violation{Rule: models.RuleReviewDisclaimer, Description: "Missing clinician review disclaimer"})
	}
	if c.RequirePlaceholders {
		out = append(out, scanIdentity(text)...)
	}
	return out
}

// scanIdentity requires every identity field to hold a placeholder, at least one
// patient and one physician field to be present, and no person named in prose.
func scanIdentity(text string) []Violation {
	var out []Violation
	var patient, physician bool
	for _, m := range identityField.FindAllStringSubmatchIndex(text, -1) {
		value := strings.TrimSpace(text[m[4]:m[5]])
		if !placeholder.MatchString(value) {
			out = append(out, Violation{Rule: models.RuleAssertedIdentity, Description: "Identity field is not a placeholder", Line: lineOf(text, m[0])})
			continue
		}
		if physicianLabel.MatchString(text[m[2]:m[3]]) {
			physician = true
		} else {
			patient = true
		}
	}
	for _, m := range namedPerson.FindAllStringIndex(text, -1) {
		if !identityField.MatchString(lineAt(text, m[0])) {
			out = append(out, Violation{Rule: models.RuleAssertedIdentity, Description: "Person named in text", Line: lineOf(text, m[0])})
			break
		}
	}
	if !patient {
		out = append(out, Violation{Rule: models.RuleMissingPlaceholder, Description: "Missing patient placeholder field"})
	}
	if !physician {
		out = append(out, Violation{Rule: models.RuleMissingPlaceholder, Description: "Missing physician placeholder field"})
	}
	return out
}

// conditionMatch returns the offset of the first unhedged match of r followed by a
// condition name, or -1.
func conditionMatch(r compiledRule, text, lower string, conditions []string) int {
	if !containsAny(lower, conditions) {
		return -1
	}
	for _, m := range r.pattern.FindAllStringSubmatchIndex(text, -1) {
		if m[2] >= 0 && r.hedges[strings.ToLower(text[m[2]:m[3]])] {
			continue
		}
		if startsWithCondition(text[m[1]:], conditions) || (m[4] >= 0 && startsWithCondition(text[m[4]:], conditions)) {
			return m[0]
		}
	}
	return -1
}

func startsWithCondition(s string, conditions []string) bool {
	for _, c := range conditions {
		if len(s) < len(c) || !strings.EqualFold(s[:len(c)], c) {
			continue
		}
		next, _ := utf8.DecodeRuneInString(s[len(c):])
		if next == utf8.RuneError || !(unicode.IsLetter(next) || unicode.IsDigit(next)) {
			return true
		}
	}
	return false
}

func containsAny(lower string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(lower, t) {
			return true
		}
	}
	return false
}

// catalogueConditions returns the condition names of the disease catalogue: ids and
// labels, with a parenthesized alias split out.
func catalogueConditions() []string {
	var out []string
	for _, d := range models.Diseases() {
		out = append(out, d.ID)
		label := d.Label
		if i := strings.Index(label, " ("); i >= 0 {
			out = append(out, strings.TrimSuffix(label[i+2:], ")"))
			label = label[:i]
		}
		out = append(out, label)
	}
	return out
}

// mergeConditions returns base plus extra, lower-cased with underscores as spaces,
// without duplicates.
func mergeConditions(base, extra []string) []string {
	seen := make(map[string]bool, len(base)+len(extra))
	out := make([]string, 0, len(base)+len(extra))
	for _, list := range [][]string{base, extra} {
		for _, c := range list {
			c = strings.TrimSpace(strings.ReplaceAll(strings.ToLower(c), "_", " "))
			if c == "" || seen[c] {
				continue
			}
			seen[c] = true
			out = append(out, c)
		}
	}
	return out
}

func hasKeyword(lower string, keywords []string) bool {
	if len(keywords) == 0 {
		return true
	}
	for _, k := range keywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

func lineOf(text string, offset int) int {
	return strings.Count(text[:offset], "\n") + 1
}

func lineAt(text string, offset int) string {
	start := strings.LastIndexByte(text[:offset], '\n') + 1
	end := strings.IndexByte(text[offset:], '\n')
	if end < 0 {
		return text[start:]
	}
	return text[start : offset+end]
}

// wordList builds a case-insensitive whole-word alternation of literal phrases, or ""
// when there are none.
func wordList(words []string) string {
	quoted := make([]string, 0, len(words))
	for _, w := range words {
		if w = strings.TrimSpace(w); w != "" {
			quoted = append(quoted, regexp.QuoteMeta(w))
		}
	}
	if len(quoted) == 0 {
		return ""
	}
	return `(?i)\b(?:` + strings.Join(quoted, "|") + `)\b`
}
