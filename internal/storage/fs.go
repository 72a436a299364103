// Package storage implements the path-safe asset layer for skill bundles:
// listing, reading, and writing files inside a skill directory or its user
// overlay counterpart.
package storage

import (
	"encoding/base64"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"github.com/starford/sowilo/internal/apperr"
	"github.com/starford/sowilo/internal/manifest"
	"github.com/starford/sowilo/internal/models"
)

// UserPrefix marks asset paths that live under the user overlay root
// instead of the skill's own directory.
const UserPrefix = "@user/"

// DefaultMaxBytes caps asset reads when the caller passes no limit.
const DefaultMaxBytes = 1 << 20

// skillNameRe is the hyphen-case shape required for new skill names.
var skillNameRe = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// textualMimeTypes are non-"text/" MIME types still treated as text.
var textualMimeTypes = map[string]bool{
	"application/json":       true,
	"application/xml":        true,
	"application/yaml":       true,
	"application/x-yaml":     true,
	"application/toml":       true,
	"application/javascript": true,
}

// extraMimeTypes supplements the platform MIME table for extensions common
// in skill bundles that may be missing from a bare system.
var extraMimeTypes = map[string]string{
	".md":   "text/markdown",
	".txt":  "text/plain",
	".csv":  "text/csv",
	".yaml": "application/yaml",
	".yml":  "application/yaml",
	".toml": "application/toml",
}

// FS provides asset I/O over skill directories. userRoot is the optional
// overlay root; when empty the @user namespace is disabled.
type FS struct {
	userRoot string
}

// NewFS creates an FS with the given user overlay root ("" to disable).
func NewFS(userRoot string) *FS {
	if userRoot != "" {
		if abs, err := filepath.Abs(userRoot); err == nil {
			userRoot = abs
		}
	}
	return &FS{userRoot: userRoot}
}

// OverlayDir returns the overlay directory for a skill name, or "" when no
// overlay root is configured.
func (f *FS) OverlayDir(name string) string {
	if f.userRoot == "" {
		return ""
	}
	return filepath.Join(f.userRoot, name)
}

// ConstrainPath joins rel onto dir and verifies the canonical result stays
// equal to or under dir. Escapes are rejected, never silently clamped.
func ConstrainPath(dir, rel string) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(rel))
	if filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("%w: absolute paths not allowed: %s", apperr.ErrPathViolation, rel)
	}
	abs, err := filepath.Abs(filepath.Join(dir, cleaned))
	if err != nil {
		return "", fmt.Errorf("%w: resolve %s: %v", apperr.ErrPathViolation, rel, err)
	}
	base, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("%w: resolve dir: %v", apperr.ErrPathViolation, err)
	}
	if abs != base && !strings.HasPrefix(abs, base+string(os.PathSeparator)) {
		return "", fmt.Errorf("%w: path escapes the skill directory: %s", apperr.ErrPathViolation, rel)
	}
	return abs, nil
}

// ListAssets enumerates every non-SKILL.md file under the skill directory,
// plus overlay files prefixed with @user/, sorted by path.
func (f *FS) ListAssets(bundleDir, name string) ([]models.Asset, error) {
	assets := listFilesUnder(bundleDir, "")
	if overlay := f.OverlayDir(name); overlay != "" {
		assets = append(assets, listFilesUnder(overlay, UserPrefix)...)
	}
	sort.Slice(assets, func(i, j int) bool { return assets[i].Path < assets[j].Path })
	return assets, nil
}

// ReadAsset reads at most maxBytes of the asset at rel, which may address
// either the skill directory or the overlay via the @user/ prefix. Content
// is returned as text when the MIME type is textual or the bytes decode as
// UTF-8, otherwise base64.
func (f *FS) ReadAsset(bundleDir, name, rel string, maxBytes int64) (*models.AssetContent, error) {
	dir, sub, err := f.Route(bundleDir, name, rel)
	if err != nil {
		return nil, err
	}
	abs, err := ConstrainPath(dir, sub)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil || !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: file not found: %s", apperr.ErrNotFound, rel)
	}

	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	file, err := os.Open(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: open %s: %w", rel, err)
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", rel, err)
	}
	truncated := int64(len(data)) > maxBytes
	if truncated {
		data = data[:maxBytes]
	}

	mimeType := mimeByName(abs)
	if isTextData(data, mimeType) {
		return &models.AssetContent{
			Encoding:  "text",
			Data:      strings.ToValidUTF8(string(data), "�"),
			MimeType:  mimeType,
			Truncated: truncated,
		}, nil
	}
	return &models.AssetContent{
		Encoding:  "base64",
		Data:      base64.StdEncoding.EncodeToString(data),
		MimeType:  mimeType,
		Truncated: truncated,
	}, nil
}

// WriteAsset creates a file at rel under the skill directory (or the
// overlay via @user/). Failures come back as a result value so bulk callers
// can keep going.
func (f *FS) WriteAsset(bundleDir, name, rel, content, encoding string, overwrite bool) models.WriteResult {
	if strings.TrimSpace(rel) == "" {
		return models.WriteResult{Path: rel, Message: "path must be a non-empty relative path"}
	}
	if filepath.IsAbs(rel) || hasParentSegment(rel) {
		return models.WriteResult{Path: rel, Message: "path must be relative and must not contain '..' segments"}
	}

	dir, sub, err := f.Route(bundleDir, name, rel)
	if err != nil {
		return models.WriteResult{Path: rel, Message: err.Error()}
	}
	abs, err := ConstrainPath(dir, sub)
	if err != nil {
		return models.WriteResult{Path: rel, Message: err.Error()}
	}

	var data []byte
	binary := false
	switch encoding {
	case "", "text":
		data = []byte(content)
	case "base64":
		data, err = base64.StdEncoding.DecodeString(content)
		if err != nil {
			return models.WriteResult{Path: rel, Message: fmt.Sprintf("invalid base64 content: %v", err)}
		}
		binary = true
	default:
		return models.WriteResult{Path: rel, Message: fmt.Sprintf("unsupported encoding %q (use \"text\" or \"base64\")", encoding)}
	}

	if _, statErr := os.Stat(abs); statErr == nil && !overwrite {
		return models.WriteResult{Path: rel, Message: "file already exists (pass overwrite=true to replace)"}
	}

	if err := writeFileAtomic(abs, data); err != nil {
		return models.WriteResult{Path: rel, Message: err.Error()}
	}
	return models.WriteResult{
		Written: true,
		Path:    rel,
		Size:    int64(len(data)),
		Message: "Asset written",
		Binary:  binary,
	}
}

// WriteAssetsBulk applies WriteAsset to each raw entry independently,
// preserving input order. A malformed entry is rejected in place without
// affecting the others.
func (f *FS) WriteAssetsBulk(bundleDir, name string, entries []any, overwrite bool) []models.WriteResult {
	results := make([]models.WriteResult, 0, len(entries))
	for _, raw := range entries {
		entry, ok := raw.(map[string]any)
		if !ok {
			results = append(results, models.WriteResult{Message: "entry must be an object with string 'path' and 'content'"})
			continue
		}
		path, pok := entry["path"].(string)
		content, cok := entry["content"].(string)
		if !pok || !cok {
			results = append(results, models.WriteResult{Message: "entry must be an object with string 'path' and 'content'"})
			continue
		}
		encoding := ""
		if e, ok := entry["encoding"].(string); ok {
			encoding = e
		}
		results = append(results, f.WriteAsset(bundleDir, name, path, content, encoding, overwrite))
	}
	return results
}

// CreateSkill writes a new skill directory with a canonical SKILL.md under
// root. Refusals (bad name, existing directory) are result values.
func CreateSkill(root, name, description, body, license string, allowedTools []string, metadata map[string]any) models.CreateResult {
	if !skillNameRe.MatchString(name) {
		return models.CreateResult{Message: fmt.Sprintf("skill name %q must be hyphen-case (lowercase letters, digits, hyphens)", name)}
	}
	if strings.TrimSpace(description) == "" {
		return models.CreateResult{Message: "description must be a non-empty string"}
	}

	dir := filepath.Join(root, name)
	if _, err := os.Stat(dir); err == nil {
		return models.CreateResult{Message: fmt.Sprintf("skill directory already exists: %s", name)}
	}

	fm, err := yaml.Marshal(skillFrontmatter{
		Name:         name,
		Description:  description,
		License:      license,
		AllowedTools: allowedTools,
		Metadata:     metadata,
	})
	if err != nil {
		return models.CreateResult{Message: fmt.Sprintf("render frontmatter: %v", err)}
	}
	content := "---\n" + string(fm) + "---\n\n" + strings.TrimRight(body, "\n") + "\n"

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return models.CreateResult{Message: fmt.Sprintf("create skill directory: %v", err)}
	}
	mdPath := filepath.Join(dir, manifest.FileName)
	file, err := os.OpenFile(mdPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return models.CreateResult{Message: fmt.Sprintf("create %s: %v", manifest.FileName, err)}
	}
	defer func() { _ = file.Close() }()
	if _, err := file.WriteString(content); err != nil {
		return models.CreateResult{Message: fmt.Sprintf("write %s: %v", manifest.FileName, err)}
	}

	return models.CreateResult{
		Created: true,
		Path:    name + "/" + manifest.FileName,
		Message: "Skill created",
	}
}

type skillFrontmatter struct {
	Name         string         `yaml:"name"`
	Description  string         `yaml:"description"`
	License      string         `yaml:"license,omitempty"`
	AllowedTools []string       `yaml:"allowed-tools,omitempty"`
	Metadata     map[string]any `yaml:"metadata,omitempty"`
}

// Route splits the @user/ namespace off rel and picks the target
// directory: the skill's own directory, or its overlay for @user/ paths.
func (f *FS) Route(bundleDir, name, rel string) (dir, sub string, err error) {
	if strings.HasPrefix(rel, UserPrefix) {
		overlay := f.OverlayDir(name)
		if overlay == "" {
			return "", "", fmt.Errorf("%w: no user overlay configured for %s", apperr.ErrNotFound, rel)
		}
		return overlay, strings.TrimPrefix(rel, UserPrefix), nil
	}
	return bundleDir, rel, nil
}

// listFilesUnder returns every regular file under dir except SKILL.md, with
// paths relative to dir (posix-style) and the given prefix applied.
func listFilesUnder(dir, prefix string) []models.Asset {
	var assets []models.Asset
	_ = filepath.WalkDir(dir, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil || d.IsDir() || d.Name() == manifest.FileName {
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return nil
		}
		var size int64
		if info, err := d.Info(); err == nil {
			size = info.Size()
		}
		assets = append(assets, models.Asset{
			Path:     prefix + filepath.ToSlash(rel),
			Size:     size,
			MimeType: mimeByName(p),
		})
		return nil
	})
	return assets
}

// writeFileAtomic writes data via tmp file + fsync + rename, creating
// parent directories as needed.
func writeFileAtomic(abs string, data []byte) error {
	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("storage: mkdir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".sowilo-tmp-*")
	if err != nil {
		return fmt.Errorf("storage: create temp: %w", err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("storage: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("storage: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: close temp: %w", err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return fmt.Errorf("storage: rename: %w", err)
	}
	success = true
	return nil
}

// hasParentSegment reports whether any path segment is "..".
func hasParentSegment(rel string) bool {
	for _, seg := range strings.Split(filepath.ToSlash(rel), "/") {
		if seg == ".." {
			return true
		}
	}
	return false
}

// mimeByName guesses a MIME type from the filename extension, stripping
// any parameters. Returns "" when unknown.
func mimeByName(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		return ""
	}
	if t, ok := extraMimeTypes[ext]; ok {
		return t
	}
	t := mime.TypeByExtension(ext)
	if i := strings.Index(t, ";"); i >= 0 {
		t = strings.TrimSpace(t[:i])
	}
	return t
}

// isTextData reports whether content should be returned as text, based on
// the MIME guess or UTF-8 decodability.
func isTextData(data []byte, mimeType string) bool {
	if strings.HasPrefix(mimeType, "text/") || textualMimeTypes[mimeType] {
		return true
	}
	return utf8.Valid(data)
}
