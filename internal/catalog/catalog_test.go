package catalog

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/starford/sowilo/internal/apperr"
	"github.com/starford/sowilo/internal/testutil"
)

func TestDiscover_SortsByNameThenPath(t *testing.T) {
	vendor := t.TempDir()
	testutil.WriteSkill(t, vendor, "zeta", "last", "")
	testutil.WriteSkill(t, vendor, "alpha", "first", "")
	testutil.WriteSkill(t, filepath.Join(vendor, "nested"), "mid", "nested skill", "")

	cat := New(vendor, "")
	skills := cat.Discover()
	if len(skills) != 3 {
		t.Fatalf("got %d skills, want 3", len(skills))
	}
	if skills[0].Name != "alpha" || skills[1].Name != "mid" || skills[2].Name != "zeta" {
		t.Errorf("order = %s, %s, %s", skills[0].Name, skills[1].Name, skills[2].Name)
	}
	if skills[1].Path != "nested/mid/SKILL.md" {
		t.Errorf("nested path = %q", skills[1].Path)
	}
}

func TestDiscover_InvalidManifestBecomesPlaceholder(t *testing.T) {
	vendor := t.TempDir()
	testutil.WriteSkill(t, vendor, "good", "a valid skill", "body")
	testutil.WriteRawSkill(t, vendor, "broken", "no frontmatter here\n")

	cat := New(vendor, "")
	skills := cat.Discover()
	if len(skills) != 2 {
		t.Fatalf("got %d skills, want 2", len(skills))
	}

	var placeholder *struct {
		desc string
		meta map[string]any
	}
	for _, s := range skills {
		if s.Name == "broken" {
			placeholder = &struct {
				desc string
				meta map[string]any
			}{s.Description, s.Metadata}
		}
	}
	if placeholder == nil {
		t.Fatal("placeholder for broken skill missing")
	}
	if !strings.HasPrefix(placeholder.desc, "Invalid SKILL.md:") {
		t.Errorf("description = %q", placeholder.desc)
	}
	if placeholder.meta["error"] == "" || placeholder.meta["path"] != "broken/SKILL.md" {
		t.Errorf("metadata = %v", placeholder.meta)
	}
}

func TestDiscover_MergesUserRoot(t *testing.T) {
	vendor := t.TempDir()
	user := t.TempDir()
	testutil.WriteSkill(t, vendor, "vendor-skill", "from vendor", "")
	testutil.WriteSkill(t, user, "user-skill", "from user", "")

	cat := New(vendor, user)
	skills := cat.Discover()
	if len(skills) != 2 {
		t.Fatalf("got %d skills, want 2", len(skills))
	}
	if skills[0].Name != "user-skill" || skills[1].Name != "vendor-skill" {
		t.Errorf("order = %s, %s", skills[0].Name, skills[1].Name)
	}
}

func TestDiscover_MissingRootIsEmpty(t *testing.T) {
	cat := New(filepath.Join(t.TempDir(), "does-not-exist"), "")
	if got := cat.Discover(); len(got) != 0 {
		t.Errorf("got %d skills, want 0", len(got))
	}
}

func TestGet(t *testing.T) {
	vendor := t.TempDir()
	testutil.WriteSkill(t, vendor, "pdf-extract", "extract text", "# usage")

	cat := New(vendor, "")
	s, err := cat.Get("pdf-extract")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Description != "extract text" {
		t.Errorf("description = %q", s.Description)
	}

	if _, err := cat.Get("nope"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestSearch(t *testing.T) {
	vendor := t.TempDir()
	testutil.WriteSkill(t, vendor, "pdf-extract", "extract text from PDFs", "uses poppler")
	testutil.WriteSkill(t, vendor, "web-scrape", "fetch pages", "uses chromium")

	cat := New(vendor, "")

	if got := cat.Search("POPPLER"); len(got) != 1 || got[0].Name != "pdf-extract" {
		t.Errorf("body match = %v", got)
	}
	if got := cat.Search("fetch"); len(got) != 1 || got[0].Name != "web-scrape" {
		t.Errorf("description match = %v", got)
	}
	if got := cat.Search("  "); len(got) != 0 {
		t.Errorf("blank query = %v, want empty", got)
	}
	if got := cat.Search("zzz"); got == nil || len(got) != 0 {
		t.Errorf("no-hit query = %v, want empty non-nil slice", got)
	}
}

func TestResolveDir(t *testing.T) {
	vendor := t.TempDir()
	user := t.TempDir()
	vdir := testutil.WriteSkill(t, vendor, "vendor-skill", "v", "")
	udir := testutil.WriteSkill(t, user, "user-skill", "u", "")
	testutil.WriteRawSkill(t, vendor, "broken", "garbage\n")

	cat := New(vendor, user)

	dir, isVendor, err := cat.ResolveDir("vendor-skill")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dir != vdir || !isVendor {
		t.Errorf("dir = %q vendor = %v", dir, isVendor)
	}

	dir, isVendor, err = cat.ResolveDir("user-skill")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dir != udir || isVendor {
		t.Errorf("dir = %q vendor = %v", dir, isVendor)
	}

	// Invalid manifests never resolve, even by directory name.
	if _, _, err := cat.ResolveDir("broken"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestIsVendorOrigin(t *testing.T) {
	vendor := t.TempDir()
	other := t.TempDir()
	cat := New(vendor, "")

	if !cat.IsVendorOrigin(filepath.Join(vendor, "some", "skill")) {
		t.Error("nested vendor dir should be vendor-origin")
	}
	if cat.IsVendorOrigin(other) {
		t.Error("unrelated dir should not be vendor-origin")
	}
	// A sibling sharing the root as a name prefix must not match.
	if cat.IsVendorOrigin(vendor + "-sibling") {
		t.Error("prefix-sibling dir should not be vendor-origin")
	}
}
