// Package knowledge reads a tenant's knowledge-base directory into categorized sections.
//
// Layout under <root>/<tenant>/:
//
//	diseases/<disease_id>.<ext>   disease chunks, disease id from the file stem
//	templates/                    certificate templates
//	guidelines/                   general guidelines
//	wellness/                     wellness advice
//	disclaimers.<ext>, disclaimers/   disclaimers
package knowledge

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/karte/internal/extract"
	"github.com/hyperjump/karte/internal/models"
)

// ErrTenantNotFound is returned when a tenant has no knowledge directory.
var ErrTenantNotFound = errors.New("tenant knowledge base not found")

// Source is one knowledge-base file split into sections.
type Source struct {
	Path     string // slash-separated, relative to the tenant directory
	Category models.Category
	Disease  string
	Sections []string
}

// Loader reads tenant directories under a common root.
type Loader struct {
	root       string
	extractor  *extract.Extractor
	extensions map[string]bool
	logger     *zap.Logger
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithLogger sets a logger for skipped-file warnings.
func WithLogger(l *zap.Logger) LoaderOption {
	return func(ld *Loader) { ld.logger = l }
}

// WithExtensions limits loading to the given extensions (with leading dot).
func WithExtensions(exts []string) LoaderOption {
	return func(ld *Loader) {
		if len(exts) == 0 {
			return
		}
		ld.extensions = make(map[string]bool, len(exts))
		for _, e := range exts {
			ld.extensions[strings.ToLower(e)] = true
		}
	}
}

// NewLoader returns a loader for tenant directories under root.
func NewLoader(root string, opts ...LoaderOption) *Loader {
	ld := &Loader{
		root:      root,
		extractor: extract.NewExtractor(),
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(ld)
	}
	return ld
}

// Root returns the directory holding all tenant knowledge bases.
func (ld *Loader) Root() string {
	return ld.root
}

// TenantDir returns the knowledge directory of tenant.
func (ld *Loader) TenantDir(tenant string) string {
	return filepath.Join(ld.root, tenant)
}

// Tenants lists tenant directories under the root, sorted.
func (ld *Loader) Tenants() ([]string, error) {
	entries, err := os.ReadDir(ld.root)
	if err != nil {
		return nil, fmt.Errorf("read knowledge root: %w", err)
	}
	var tenants []string
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			tenants = append(tenants, e.Name())
		}
	}
	return tenants, nil
}

// Load reads every recognized file of tenant in lexical path order. Files outside the
// category layout, with unsupported extensions, or that fail to extract are skipped
// and logged.
func (ld *Loader) Load(ctx context.Context, tenant string) ([]Source, error) {
	if !models.ValidTenant(tenant) {
		return nil, fmt.Errorf("%w: %q", ErrTenantNotFound, tenant)
	}
	dir := ld.TenantDir(tenant)
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrTenantNotFound, tenant)
	}

	var paths []string
	err = filepath.WalkDir(dir, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if strings.HasPrefix(d.Name(), ".") && p != dir {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.IsDir() {
			paths = append(paths, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", dir, err)
	}
	sort.Strings(paths)

	var sources []Source
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			continue
		}
		rel = filepath.ToSlash(rel)
		category, disease, ok := Classify(rel)
		if !ok {
			ld.logger.Debug("skipping file outside category layout", zap.String("tenant", tenant), zap.String("path", rel))
			continue
		}
		ext := strings.ToLower(path.Ext(rel))
		if !extract.Supported(ext) || (ld.extensions != nil && !ld.extensions[ext]) {
			ld.logger.Debug("skipping unsupported file", zap.String("tenant", tenant), zap.String("path", rel))
			continue
		}
		text, err := ld.extractor.Extract(p)
		if err != nil {
			ld.logger.Warn("skipping unreadable knowledge file",
				zap.String("tenant", tenant), zap.String("path", rel), zap.Error(err))
			continue
		}
		sections := SplitSections(text)
		if len(sections) == 0 {
			continue
		}
		sources = append(sources, Source{Path: rel, Category: category, Disease: disease, Sections: sections})
	}
	return sources, nil
}

// Classify derives category and disease id from a tenant-relative slash path.
func Classify(rel string) (models.Category, string, bool) {
	parts := strings.Split(rel, "/")
	stem := strings.TrimSuffix(parts[len(parts)-1], path.Ext(rel))
	if len(parts) == 1 {
		if strings.EqualFold(stem, "disclaimers") {
			return models.CategoryDisclaimer, "", true
		}
		return "", "", false
	}
	switch strings.ToLower(parts[0]) {
	case "diseases":
		disease := models.NormalizeDisease(stem)
		if disease == "" {
			return "", "", false
		}
		return models.CategoryDisease, disease, true
	case "templates":
		return models.CategoryTemplate, "", true
	case "guidelines":
		return models.CategoryGuideline, "", true
	case "wellness":
		return models.CategoryWellness, "", true
	case "disclaimers":
		return models.CategoryDisclaimer, "", true
	}
	return "", "", false
}

// SplitSections splits text on lines consisting of "---" and drops metadata header
// lines ("Category:", "Disease:"). Empty sections are omitted.
func SplitSections(text string) []string {
	var sections []string
	var cur []string
	flush := func() {
		if s := strings.TrimSpace(strings.Join(cur, "\n")); s != "" {
			sections = append(sections, s)
		}
		cur = cur[:0]
	}
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == extract.SectionSeparator {
			flush()
			continue
		}
		if isHeaderLine(trimmed) {
			continue
		}
		cur = append(cur, line)
	}
	flush()
	return sections
}

func isHeaderLine(line string) bool {
	lower := strings.ToLower(line)
	return strings.HasPrefix(lower, "category:") || strings.HasPrefix(lower, "disease:")
}
