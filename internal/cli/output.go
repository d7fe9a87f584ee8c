// Package cli formats karte results for the terminal.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/hyperjump/karte/internal/docgen"
	"github.com/hyperjump/karte/internal/models"
)

// OutputFormat selects how results are written.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is indented JSON for other programs.
	OutputJSON OutputFormat = "json"
)

// ParseFormat accepts "text" or "json".
func ParseFormat(s string) (OutputFormat, error) {
	switch OutputFormat(strings.ToLower(strings.TrimSpace(s))) {
	case OutputText, "":
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	}
	return "", fmt.Errorf("unknown output format %q; use text or json", s)
}

const rule = "─────────────────────────────────────────────────────────"

// WriteGenerated writes a newly generated document, including its one-time notice.
func WriteGenerated(w io.Writer, res *docgen.GenerateResult, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, res)
	}
	fmt.Fprintf(w, "Document ID: %s\n", res.DocumentID)
	fmt.Fprintf(w, "Type: %s\n", res.DocumentType)
	fmt.Fprintf(w, "%s\n%s\n%s\n", rule, res.Content, rule)
	fmt.Fprintf(w, "%s\n", res.Notice)
	return nil
}

// WriteDocument writes a stored document.
func WriteDocument(w io.Writer, doc *models.GeneratedDocument, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, doc)
	}
	fmt.Fprintf(w, "Document ID: %s\n", doc.ID)
	fmt.Fprintf(w, "Type: %s | Topic: %s | Created: %s\n", doc.DocumentType, doc.Topic, doc.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "%s\n%s\n", rule, doc.Content)
	return nil
}

// WriteStats writes a tenant index summary.
func WriteStats(w io.Writer, stats models.IndexStats, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, stats)
	}
	fmt.Fprintf(w, "Tenant: %s\n", stats.Tenant)
	fmt.Fprintf(w, "Chunks: %d (dimensions %d)\n", stats.TotalChunks, stats.Dimensions)
	cats := make([]string, 0, len(stats.Categories))
	for c := range stats.Categories {
		cats = append(cats, string(c))
	}
	sort.Strings(cats)
	for _, c := range cats {
		fmt.Fprintf(w, "  %-12s %d\n", c, stats.Categories[models.Category(c)])
	}
	if len(stats.Diseases) > 0 {
		fmt.Fprintf(w, "Diseases: %s\n", strings.Join(stats.Diseases, ", "))
	}
	return nil
}

// WriteCatalog writes the document types and diseases a tenant can request.
func WriteCatalog(w io.Writer, cat *docgen.Catalog, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, cat)
	}
	fmt.Fprintln(w, "Document types:")
	for _, t := range cat.DocumentTypes {
		var needs []string
		if t.RequiresDisease {
			needs = append(needs, "disease")
		}
		if t.RequiresPatient {
			needs = append(needs, "patient")
		}
		line := fmt.Sprintf("  %-20s %s", t.Type, t.Label)
		if len(needs) > 0 {
			line += " (requires " + strings.Join(needs, ", ") + ")"
		}
		fmt.Fprintln(w, line)
	}
	fmt.Fprintln(w, "Diseases:")
	for _, d := range cat.Diseases {
		fmt.Fprintf(w, "  %-20s %s\n", d.ID, d.Label)
	}
	return nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
