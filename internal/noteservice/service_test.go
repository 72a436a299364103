package noteservice

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/starford/sowilo/internal/storage"
	"github.com/starford/sowilo/internal/testutil"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestStore(t *testing.T) {
	dir := testutil.WriteSkill(t, t.TempDir(), "demo", "demo", "")
	svc := New(storage.NewFS(""))
	svc.now = fixedClock(time.Date(2026, 8, 23, 10, 30, 0, 0, time.UTC))

	res := svc.Store(dir, "First Impressions!", "It works well.\n\n")
	if !res.Created {
		t.Fatalf("store failed: %s", res.Message)
	}
	if res.Path != "_notes/20260823T103000Z-first-impressions.md" {
		t.Errorf("path = %q", res.Path)
	}

	data, err := os.ReadFile(filepath.Join(dir, "_notes", "20260823T103000Z-first-impressions.md"))
	if err != nil {
		t.Fatal(err)
	}
	content := string(data)
	if !strings.Contains(content, "title: First Impressions!") {
		t.Errorf("missing title header: %q", content)
	}
	if !strings.Contains(content, "created_at: 20260823T103000Z") {
		t.Errorf("missing created_at header: %q", content)
	}
	if !strings.HasSuffix(content, "It works well.\n") {
		t.Errorf("trailing whitespace not normalised: %q", content)
	}
}

func TestStore_CollisionGetsSuffix(t *testing.T) {
	dir := testutil.WriteSkill(t, t.TempDir(), "demo", "demo", "")
	svc := New(storage.NewFS(""))
	svc.now = fixedClock(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))

	first := svc.Store(dir, "same title", "a")
	second := svc.Store(dir, "same title", "b")
	if !first.Created || !second.Created {
		t.Fatalf("stores failed: %s / %s", first.Message, second.Message)
	}
	if second.Path != "_notes/20260102T030405Z-same-title-1.md" {
		t.Errorf("suffix path = %q", second.Path)
	}

	// A third same-instant note has nowhere to go.
	third := svc.Store(dir, "same title", "c")
	if third.Created {
		t.Error("third colliding store should fail")
	}
}

func TestList(t *testing.T) {
	user := t.TempDir()
	dir := testutil.WriteSkill(t, t.TempDir(), "demo", "demo", "")
	testutil.WriteFile(t, filepath.Join(dir, "_notes", "a.md"),
		"---\ntitle: Alpha\ncreated_at: 20260101T000000Z\nkind: note\n---\n\nbody\n")
	testutil.WriteFile(t, filepath.Join(dir, "notes", "manual.md"), "no header at all\n")
	testutil.WriteFile(t, filepath.Join(user, "demo", "_notes", "mine.md"),
		"---\ntitle: Mine\n---\n\nx\n")

	svc := New(storage.NewFS(user))
	notes := svc.List(dir, "demo")
	if len(notes) != 3 {
		t.Fatalf("got %d notes, want 3", len(notes))
	}
	if notes[0].Path != "@user/_notes/mine.md" || notes[0].Title != "Mine" {
		t.Errorf("notes[0] = %+v", notes[0])
	}
	if notes[1].Path != "_notes/a.md" || notes[1].Title != "Alpha" || notes[1].Kind != "note" {
		t.Errorf("notes[1] = %+v", notes[1])
	}
	// A headerless file is still listed, just without metadata.
	if notes[2].Path != "notes/manual.md" || notes[2].Title != "" {
		t.Errorf("notes[2] = %+v", notes[2])
	}
	if notes[2].Size == 0 {
		t.Error("size not populated")
	}
}

func TestList_EmptyIsNonNil(t *testing.T) {
	dir := testutil.WriteSkill(t, t.TempDir(), "demo", "demo", "")
	svc := New(storage.NewFS(""))
	notes := svc.List(dir, "demo")
	if notes == nil || len(notes) != 0 {
		t.Errorf("notes = %v, want empty non-nil slice", notes)
	}
}

func TestMergeIntoBody(t *testing.T) {
	dir := testutil.WriteSkill(t, t.TempDir(), "demo", "demo", "")
	testutil.WriteFile(t, filepath.Join(dir, "_notes", "n1.md"), "first note\n")
	testutil.WriteFile(t, filepath.Join(dir, "_notes", "n2.md"), "second note\n")

	svc := New(storage.NewFS(""))
	merged := svc.MergeIntoBody(dir, "demo", "# Skill body\n")
	if !strings.Contains(merged, "## Notes") {
		t.Fatalf("missing notes section: %q", merged)
	}
	if !strings.Contains(merged, "### _notes/n1.md\n\nfirst note") {
		t.Errorf("missing first note: %q", merged)
	}
	if !strings.Contains(merged, "### _notes/n2.md\n\nsecond note") {
		t.Errorf("missing second note: %q", merged)
	}
	if strings.Index(merged, "n1.md") > strings.Index(merged, "n2.md") {
		t.Error("notes out of order")
	}
}

func TestMergeIntoBody_NoNotes(t *testing.T) {
	dir := testutil.WriteSkill(t, t.TempDir(), "demo", "demo", "")
	svc := New(storage.NewFS(""))
	if got := svc.MergeIntoBody(dir, "demo", "body"); got != "body" {
		t.Errorf("merged = %q, want body unchanged", got)
	}
}

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Hello World":      "hello-world",
		"  spaced   out  ": "spaced-out",
		"mixed_CASE-Title": "mixed-case-title",
		"!!!":              "note",
		"":                 "note",
		"keep123 numbers":  "keep123-numbers",
		"trim--runs__here": "trim-runs-here",
		"Ünïcödé":          "ünïcödé",
	}
	for in, want := range cases {
		if got := slugify(in); got != want {
			t.Errorf("slugify(%q) = %q, want %q", in, got, want)
		}
	}

	long := strings.Repeat("abcde-", 30)
	if got := slugify(long); len(got) > 80 {
		t.Errorf("slug too long: %d", len(got))
	}
}
