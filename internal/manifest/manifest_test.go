package manifest

import (
	"errors"
	"strings"
	"testing"

	"github.com/starford/sowilo/internal/apperr"
)

func TestParse_FullManifest(t *testing.T) {
	input := []byte(`---
name: pdf-extract
description: Extract text from PDFs
license: Apache-2.0
allowed-tools:
  - bash
  - read_file
metadata:
  version: "1.2"
---
# PDF extraction
Body text.
`)
	m, err := Parse(input, "pdf-extract")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Name != "pdf-extract" {
		t.Errorf("name = %q", m.Name)
	}
	if m.Description != "Extract text from PDFs" {
		t.Errorf("description = %q", m.Description)
	}
	if m.License != "Apache-2.0" {
		t.Errorf("license = %q", m.License)
	}
	if len(m.AllowedTools) != 2 || m.AllowedTools[0] != "bash" {
		t.Errorf("allowed-tools = %v", m.AllowedTools)
	}
	if m.Metadata["version"] != "1.2" {
		t.Errorf("metadata = %v", m.Metadata)
	}
	if !strings.HasPrefix(m.Body, "# PDF extraction") {
		t.Errorf("body = %q", m.Body)
	}
}

func TestParse_MissingOpeningDelimiter(t *testing.T) {
	_, err := Parse([]byte("name: x\ndescription: y\n"), "x")
	if !errors.Is(err, apperr.ErrFormat) {
		t.Fatalf("err = %v, want ErrFormat", err)
	}
}

func TestParse_MissingClosingDelimiter(t *testing.T) {
	_, err := Parse([]byte("---\nname: x\ndescription: y\n"), "x")
	if !errors.Is(err, apperr.ErrFormat) {
		t.Fatalf("err = %v, want ErrFormat", err)
	}
}

func TestParse_NonMappingHeader(t *testing.T) {
	_, err := Parse([]byte("---\n- a\n- b\n---\nbody\n"), "x")
	if !errors.Is(err, apperr.ErrFormat) {
		t.Fatalf("err = %v, want ErrFormat", err)
	}
}

func TestParse_RequiredFields(t *testing.T) {
	cases := map[string]string{
		"missing name":        "---\ndescription: y\n---\n",
		"empty name":          "---\nname: \"\"\ndescription: y\n---\n",
		"non-string name":     "---\nname: 42\ndescription: y\n---\n",
		"missing description": "---\nname: x\n---\n",
		"empty description":   "---\nname: x\ndescription: \"\"\n---\n",
	}
	for label, input := range cases {
		if _, err := Parse([]byte(input), "x"); !errors.Is(err, apperr.ErrValidation) {
			t.Errorf("%s: err = %v, want ErrValidation", label, err)
		}
	}
}

func TestParse_DirectoryMismatch(t *testing.T) {
	_, err := Parse([]byte("---\nname: docx\ndescription: y\n---\n"), "document-skills")
	if !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
	// The message must name both the actual directory and the expected name.
	if !strings.Contains(err.Error(), "document-skills") || !strings.Contains(err.Error(), "docx") {
		t.Errorf("message = %q", err.Error())
	}
}

func TestParse_MistypedOptionalsAreAbsent(t *testing.T) {
	input := []byte("---\nname: x\ndescription: y\nlicense: 42\nallowed-tools: nope\nmetadata: [1, 2]\n---\n")
	m, err := Parse(input, "x")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.License != "" || m.AllowedTools != nil || m.Metadata != nil {
		t.Errorf("mistyped optionals should be absent: %+v", m)
	}
}

func TestParse_MixedToolListIsAbsent(t *testing.T) {
	m, err := Parse([]byte("---\nname: x\ndescription: y\nallowed-tools: [bash, 7]\n---\n"), "x")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.AllowedTools != nil {
		t.Errorf("allowed-tools = %v, want nil", m.AllowedTools)
	}
}

func TestParse_EmptyBody(t *testing.T) {
	m, err := Parse([]byte("---\nname: x\ndescription: y\n---"), "x")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Body != "" {
		t.Errorf("body = %q, want empty", m.Body)
	}
}

func TestSplitFrontmatter_NoHeader(t *testing.T) {
	fields, body, err := SplitFrontmatter([]byte("plain text\nno header\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fields != nil {
		t.Errorf("fields = %v, want nil", fields)
	}
	if body != "plain text\nno header\n" {
		t.Errorf("body = %q", body)
	}
}

func TestSplitFrontmatter_Unterminated(t *testing.T) {
	if _, _, err := SplitFrontmatter([]byte("---\ntitle: x\n")); err == nil {
		t.Fatal("expected error for unterminated header")
	}
}

func TestSplitFrontmatter_ValidHeader(t *testing.T) {
	fields, body, err := SplitFrontmatter([]byte("---\ntitle: Note\nkind: note\n---\n\ncontent\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fields["title"] != "Note" || fields["kind"] != "note" {
		t.Errorf("fields = %v", fields)
	}
	if !strings.Contains(body, "content") {
		t.Errorf("body = %q", body)
	}
}
