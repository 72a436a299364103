// Package noteservice stores and lists append-only notes attached to a
// skill. Notes live under a reserved sub-directory and are never edited or
// deleted here; removal goes through the trash subsystem.
package noteservice

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
	"unicode"

	"gopkg.in/yaml.v3"

	"github.com/starford/sowilo/internal/manifest"
	"github.com/starford/sowilo/internal/models"
	"github.com/starford/sowilo/internal/storage"
)

// timeLayout is the compact UTC timestamp used in note filenames and
// headers.
const timeLayout = "20060102T150405Z"

// noteDirs are the accepted notes directory names: "_notes" is written by
// the engine, "notes" is accepted for manually placed files.
var noteDirs = []string{"_notes", "notes"}

// Service creates and enumerates notes.
type Service struct {
	fs  *storage.FS
	now func() time.Time
}

// New creates a note service. fs supplies the user overlay lookup.
func New(fs *storage.FS) *Service {
	return &Service{fs: fs, now: time.Now}
}

type noteHeader struct {
	Title     string `yaml:"title"`
	CreatedAt string `yaml:"created_at"`
	Kind      string `yaml:"kind"`
}

// Store writes a new note under <bundleDir>/_notes using an exclusive
// create so concurrent writers never clobber each other. On a same-instant
// filename collision it retries once with a numeric suffix.
func (s *Service) Store(bundleDir, title, content string) models.NoteResult {
	notesDir := filepath.Join(bundleDir, noteDirs[0])
	if err := os.MkdirAll(notesDir, 0o755); err != nil {
		return models.NoteResult{Message: fmt.Sprintf("Failed to store note: %v", err)}
	}

	ts := s.now().UTC().Format(timeLayout)
	slug := slugify(title)

	header, err := yaml.Marshal(noteHeader{Title: title, CreatedAt: ts, Kind: "note"})
	if err != nil {
		return models.NoteResult{Message: fmt.Sprintf("Failed to store note: %v", err)}
	}
	body := "---\n" + string(header) + "---\n\n" + strings.TrimRight(content, " \t\r\n") + "\n"

	filename := ts + "-" + slug + ".md"
	if err := createExclusive(filepath.Join(notesDir, filename), body); err != nil {
		if !os.IsExist(err) {
			return models.NoteResult{Message: fmt.Sprintf("Failed to store note: %v", err)}
		}
		filename = ts + "-" + slug + "-1.md"
		if err := createExclusive(filepath.Join(notesDir, filename), body); err != nil {
			return models.NoteResult{Message: fmt.Sprintf("Failed to store note: %v", err)}
		}
		return models.NoteResult{
			Path:    noteDirs[0] + "/" + filename,
			Created: true,
			Message: "Note stored (with suffix)",
		}
	}
	return models.NoteResult{
		Path:    noteDirs[0] + "/" + filename,
		Created: true,
		Message: "Note stored",
	}
}

// List enumerates note files under both reserved directory names, in the
// skill directory and in its user overlay, sorted by path. Headers are
// parsed best-effort: files without one are listed with empty fields.
func (s *Service) List(bundleDir, name string) []models.Note {
	notes := []models.Note{}
	for _, file := range s.noteFiles(bundleDir, name) {
		note := models.Note{Path: file.label}
		if info, err := os.Stat(file.abs); err == nil {
			note.Size = info.Size()
		}
		if data, err := os.ReadFile(file.abs); err == nil {
			if fields, _, err := manifest.SplitFrontmatter(data); err == nil && fields != nil {
				if v, ok := fields["title"].(string); ok {
					note.Title = v
				}
				if v, ok := fields["created_at"].(string); ok {
					note.CreatedAt = v
				}
				if v, ok := fields["kind"].(string); ok {
					note.Kind = v
				}
			}
		}
		notes = append(notes, note)
	}
	return notes
}

// MergeIntoBody appends a rendered Notes section to body containing every
// readable note, labeled by its relative path. Unreadable notes are
// skipped silently.
func (s *Service) MergeIntoBody(bundleDir, name, body string) string {
	files := s.noteFiles(bundleDir, name)
	if len(files) == 0 {
		return body
	}

	var b strings.Builder
	for _, file := range files {
		data, err := os.ReadFile(file.abs)
		if err != nil {
			continue
		}
		b.WriteString("\n### ")
		b.WriteString(file.label)
		b.WriteString("\n\n")
		b.WriteString(strings.TrimRight(string(data), "\n"))
		b.WriteString("\n")
	}
	if b.Len() == 0 {
		return body
	}
	return strings.TrimRight(body, "\n") + "\n\n## Notes\n" + b.String()
}

type noteFile struct {
	label string // path label relative to the skill, @user/-prefixed for overlay
	abs   string
}

// noteFiles enumerates note files across both directory variants and the
// overlay, sorted by label.
func (s *Service) noteFiles(bundleDir, name string) []noteFile {
	var files []noteFile
	scan := func(base, prefix string) {
		for _, dir := range noteDirs {
			entries, err := os.ReadDir(filepath.Join(base, dir))
			if err != nil {
				continue
			}
			for _, e := range entries {
				if e.IsDir() {
					continue
				}
				files = append(files, noteFile{
					label: prefix + dir + "/" + e.Name(),
					abs:   filepath.Join(base, dir, e.Name()),
				})
			}
		}
	}
	scan(bundleDir, "")
	if overlay := s.fs.OverlayDir(name); overlay != "" {
		scan(overlay, storage.UserPrefix)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].label < files[j].label })
	return files
}

func createExclusive(path, content string) error {
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	defer func() { _ = file.Close() }()
	_, err = file.WriteString(content)
	return err
}

// slugify derives a filesystem-safe slug: lowercase alphanumerics kept,
// spaces/hyphens/underscores collapsed to single hyphens, everything else
// dropped, trimmed and capped at 80 characters. Falls back to "note".
func slugify(title string) string {
	var b strings.Builder
	lastHyphen := false
	for _, r := range strings.TrimSpace(title) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(unicode.ToLower(r))
			lastHyphen = false
		case r == ' ' || r == '-' || r == '_':
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	slug := strings.Trim(b.String(), "-")
	if len(slug) > 80 {
		slug = strings.Trim(slug[:80], "-")
	}
	if slug == "" {
		return "note"
	}
	return slug
}
