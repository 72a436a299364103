// Package testutil provides shared test helpers for building skill trees.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteSkill creates <root>/<name>/SKILL.md with minimal valid frontmatter
// and returns the skill directory.
func WriteSkill(t *testing.T, root, name, description, body string) string {
	t.Helper()
	content := "---\nname: " + name + "\ndescription: " + description + "\n---\n" + body
	return WriteRawSkill(t, root, name, content)
}

// WriteRawSkill creates <root>/<dir>/SKILL.md with the given raw content,
// valid or not, and returns the skill directory.
func WriteRawSkill(t *testing.T, root, dir, content string) string {
	t.Helper()
	skillDir := filepath.Join(root, dir)
	if err := os.MkdirAll(skillDir, 0o755); err != nil {
		t.Fatal(err)
	}
	WriteFile(t, filepath.Join(skillDir, "SKILL.md"), content)
	return skillDir
}

// WriteFile writes content to path, creating parent directories.
func WriteFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}
