// Package manifest parses SKILL.md documents: a YAML frontmatter block
// delimited by '---' lines, followed by a free-form Markdown body.
package manifest

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/starford/sowilo/internal/apperr"
)

// FileName is the manifest file every skill directory must contain.
const FileName = "SKILL.md"

// Manifest holds the parsed fields of a SKILL.md document.
type Manifest struct {
	Name         string
	Description  string
	License      string
	AllowedTools []string
	Metadata     map[string]any
	Body         string
}

// Parse parses raw SKILL.md content and validates it against the Agent
// Skills rules: 'name' and 'description' are required non-empty strings,
// and 'name' must equal the containing directory's base name (dirName).
func Parse(data []byte, dirName string) (*Manifest, error) {
	fm, body, err := splitStrict(string(data))
	if err != nil {
		return nil, err
	}

	name, ok := fm["name"].(string)
	if !ok || name == "" {
		return nil, fmt.Errorf("%w: frontmatter 'name' is required and must be a non-empty string", apperr.ErrValidation)
	}
	description, ok := fm["description"].(string)
	if !ok || description == "" {
		return nil, fmt.Errorf("%w: frontmatter 'description' is required and must be a non-empty string", apperr.ErrValidation)
	}
	if dirName != name {
		return nil, fmt.Errorf("%w: skill directory %q must match frontmatter name %q", apperr.ErrValidation, dirName, name)
	}

	m := &Manifest{
		Name:        name,
		Description: description,
		Body:        body,
	}
	if lic, ok := fm["license"].(string); ok {
		m.License = lic
	}
	m.AllowedTools = stringList(fm["allowed-tools"])
	if md, ok := fm["metadata"].(map[string]any); ok {
		m.Metadata = md
	}
	return m, nil
}

// splitStrict separates frontmatter from body, failing on any structural
// defect: missing opening delimiter, missing closing delimiter, or a header
// that does not parse to a YAML mapping.
func splitStrict(text string) (map[string]any, string, error) {
	lines := strings.Split(text, "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) != "---" {
		return nil, "", fmt.Errorf("%w: SKILL.md must begin with a '---' line for YAML frontmatter", apperr.ErrFormat)
	}

	idx := 1
	for idx < len(lines) && strings.TrimSpace(lines[idx]) != "---" {
		idx++
	}
	if idx >= len(lines) {
		return nil, "", fmt.Errorf("%w: YAML frontmatter must end with a '---' line", apperr.ErrFormat)
	}

	var fm map[string]any
	if err := yaml.Unmarshal([]byte(strings.Join(lines[1:idx], "\n")), &fm); err != nil {
		return nil, "", fmt.Errorf("%w: YAML frontmatter must parse to a mapping: %v", apperr.ErrFormat, err)
	}
	if fm == nil {
		fm = map[string]any{}
	}

	return fm, strings.Join(lines[idx+1:], "\n"), nil
}

// SplitFrontmatter is the lenient variant used for note files: content
// without a leading '---' line is all body (nil fields, no error); a header
// that is present but unterminated or malformed returns an error the caller
// may choose to ignore.
func SplitFrontmatter(data []byte) (map[string]any, string, error) {
	text := string(data)
	lines := strings.Split(text, "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) != "---" {
		return nil, text, nil
	}
	return splitStrict(text)
}

// stringList converts a YAML list value to []string, returning nil unless
// every element is a string.
func stringList(v any) []string {
	raw, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		s, ok := item.(string)
		if !ok {
			return nil
		}
		out = append(out, s)
	}
	return out
}
