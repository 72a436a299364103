// Package catalog discovers skill bundles on disk. The filesystem is the
// sole source of truth: every call re-scans the roots, so there is no
// persisted index and no staleness window.
package catalog

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/starford/sowilo/internal/apperr"
	"github.com/starford/sowilo/internal/manifest"
	"github.com/starford/sowilo/internal/models"
)

// Catalog scans a vendor root and an optional user-managed root for skills.
type Catalog struct {
	vendorRoot string
	userRoot   string
}

// New creates a Catalog over the given roots. userRoot may be empty when no
// user overlay is configured. Roots are resolved to absolute paths so the
// vendor-origin predicate is stable regardless of working directory.
func New(vendorRoot, userRoot string) *Catalog {
	c := &Catalog{}
	if abs, err := filepath.Abs(vendorRoot); err == nil {
		c.vendorRoot = abs
	} else {
		c.vendorRoot = vendorRoot
	}
	if userRoot != "" {
		if abs, err := filepath.Abs(userRoot); err == nil {
			c.userRoot = abs
		} else {
			c.userRoot = userRoot
		}
	}
	return c
}

// VendorRoot returns the absolute path of the primary skills root.
func (c *Catalog) VendorRoot() string { return c.vendorRoot }

// UserRoot returns the absolute path of the user root, or "" if unset.
func (c *Catalog) UserRoot() string { return c.userRoot }

// Discover finds every SKILL.md under both roots and parses each one.
// Invalid manifests are included as error placeholders so one malformed
// skill never hides the rest. The result is sorted by (name, path).
func (c *Catalog) Discover() []models.Skill {
	skills := discoverRoot(c.vendorRoot)
	if c.userRoot != "" {
		skills = append(skills, discoverRoot(c.userRoot)...)
	}
	sort.Slice(skills, func(i, j int) bool {
		if skills[i].Name != skills[j].Name {
			return skills[i].Name < skills[j].Name
		}
		return skills[i].Path < skills[j].Path
	})
	return skills
}

// Get returns the skill with the given name, re-scanning the roots so a
// freshly added skill is visible immediately.
func (c *Catalog) Get(name string) (*models.Skill, error) {
	for _, s := range c.Discover() {
		if s.Name == name {
			return &s, nil
		}
	}
	return nil, fmt.Errorf("%w: skill %q", apperr.ErrNotFound, name)
}

// Search performs a case-insensitive substring match over each skill's
// name, description, and body. A blank query matches nothing.
func (c *Catalog) Search(query string) []models.SearchMatch {
	q := strings.ToLower(strings.TrimSpace(query))
	results := []models.SearchMatch{}
	if q == "" {
		return results
	}
	for _, s := range c.Discover() {
		hay := strings.ToLower(s.Name + "\n" + s.Description + "\n" + s.Body)
		if strings.Contains(hay, q) {
			results = append(results, models.SearchMatch{
				Name:        s.Name,
				Description: s.Description,
				Path:        s.Path,
			})
		}
	}
	return results
}

// ResolveDir returns the directory of the named skill and whether it is
// vendor-origin. Invalid manifests are skipped while resolving.
func (c *Catalog) ResolveDir(name string) (string, bool, error) {
	roots := []string{c.vendorRoot}
	if c.userRoot != "" {
		roots = append(roots, c.userRoot)
	}
	for _, root := range roots {
		for _, mdPath := range manifestPaths(root) {
			data, err := os.ReadFile(mdPath)
			if err != nil {
				continue
			}
			dir := filepath.Dir(mdPath)
			m, err := manifest.Parse(data, filepath.Base(dir))
			if err != nil || m.Name != name {
				continue
			}
			return dir, c.IsVendorOrigin(dir), nil
		}
	}
	return "", false, fmt.Errorf("%w: skill %q", apperr.ErrNotFound, name)
}

// IsVendorOrigin reports whether dir sits under the primary skills root.
// Computed from directory ancestry on every call, never stored, so it
// always reflects the current on-disk layout.
func (c *Catalog) IsVendorOrigin(dir string) bool {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return false
	}
	return abs == c.vendorRoot || strings.HasPrefix(abs, c.vendorRoot+string(os.PathSeparator))
}

// discoverRoot parses every manifest under one root. A missing root is not
// an error; it simply contributes nothing.
func discoverRoot(root string) []models.Skill {
	var skills []models.Skill
	for _, mdPath := range manifestPaths(root) {
		rel, err := filepath.Rel(root, mdPath)
		if err != nil {
			rel = mdPath
		}
		rel = filepath.ToSlash(rel)

		data, readErr := os.ReadFile(mdPath)
		var m *manifest.Manifest
		var parseErr error
		if readErr != nil {
			parseErr = readErr
		} else {
			m, parseErr = manifest.Parse(data, filepath.Base(filepath.Dir(mdPath)))
		}
		if parseErr != nil {
			slog.Error("failed parsing skill manifest",
				slog.String("path", rel),
				slog.String("error", parseErr.Error()))
			skills = append(skills, models.Skill{
				Name:        filepath.Base(filepath.Dir(mdPath)),
				Description: fmt.Sprintf("Invalid SKILL.md: %v", parseErr),
				Metadata:    map[string]any{"error": parseErr.Error(), "path": rel},
				Path:        rel,
			})
			continue
		}
		skills = append(skills, models.Skill{
			Name:         m.Name,
			Description:  m.Description,
			License:      m.License,
			AllowedTools: m.AllowedTools,
			Metadata:     m.Metadata,
			Path:         rel,
			Body:         m.Body,
		})
	}
	return skills
}

// manifestPaths lists every SKILL.md at any depth under root.
func manifestPaths(root string) []string {
	var paths []string
	_ = filepath.WalkDir(root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil
		}
		if !d.IsDir() && d.Name() == manifest.FileName {
			paths = append(paths, p)
		}
		return nil
	})
	return paths
}
