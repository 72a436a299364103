// Package trash soft-deletes skills and assets by relocating them into a
// timestamped trash area. Nothing is ever erased; recovery is a manual
// filesystem operation. Every attempt is journaled.
package trash

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/starford/sowilo/internal/journal"
	"github.com/starford/sowilo/internal/manifest"
	"github.com/starford/sowilo/internal/models"
	"github.com/starford/sowilo/internal/storage"
)

const timeLayout = "20060102T150405Z"

// reservedUserTrees are the sub-trees of a vendor-origin skill that hold
// user-contributed content and may therefore be trashed.
var reservedUserTrees = []string{"_notes/", "notes/", "_user/", "user/"}

// Service relocates skills and assets into the trash root.
type Service struct {
	root    string
	journal *journal.Writer
	fs      *storage.FS
	now     func() time.Time
}

// New creates a trash service rooted at root. jw receives one record per
// attempt; a journal failure is logged and never overrides the outcome.
func New(root string, jw *journal.Writer, fs *storage.FS) *Service {
	return &Service{root: root, journal: jw, fs: fs, now: time.Now}
}

// TrashSkill moves an entire skill directory to <trash>/skills/<ts>__<name>.
// Vendor-origin skills are never relocatable; without force the move is
// refused with guidance. Refusals are results, not errors.
func (s *Service) TrashSkill(bundleDir, name string, vendor, force bool) models.TrashSkillResult {
	if vendor {
		return s.skillOutcome(models.TrashSkillResult{
			Name:    name,
			Message: "vendor skills are managed by the mirrored skills root and cannot be trashed",
		})
	}
	if !force {
		return s.skillOutcome(models.TrashSkillResult{
			Name:    name,
			Message: "refusing to trash the skill: pass force=true to move it to the trash",
		})
	}

	target := filepath.Join(s.root, "skills", s.now().UTC().Format(timeLayout)+"__"+name)
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return s.skillOutcome(models.TrashSkillResult{
			Name:    name,
			Message: fmt.Sprintf("trash move failed: %v", err),
		})
	}
	if err := os.Rename(bundleDir, target); err != nil {
		return s.skillOutcome(models.TrashSkillResult{
			Name:    name,
			Message: fmt.Sprintf("trash move failed: %v", err),
		})
	}
	return s.skillOutcome(models.TrashSkillResult{
		Trashed:   true,
		Name:      name,
		TrashPath: target,
		Message:   "Skill moved to trash",
	})
}

// TrashAsset moves one file to <trash>/assets/<name>/<ts>__<flattened>,
// where path separators in the original relative path are flattened to
// "__". For vendor-origin skills only files under the reserved user
// sub-trees may be moved, and never the manifest itself. After a
// successful move, directories left empty are pruned up to the skill root.
// The only error returned is a path violation; everything else is a result.
func (s *Service) TrashAsset(bundleDir, name, rel string, vendor bool) (models.TrashAssetResult, error) {
	if strings.TrimSpace(rel) == "" || filepath.IsAbs(rel) {
		return s.assetOutcome(models.TrashAssetResult{
			Name: name, Path: rel,
			Message: "path must be a non-empty relative path",
		}), nil
	}

	dir, sub, err := s.fs.Route(bundleDir, name, rel)
	if err != nil {
		return s.assetOutcome(models.TrashAssetResult{
			Name: name, Path: rel, Message: err.Error(),
		}), nil
	}
	abs, err := storage.ConstrainPath(dir, sub)
	if err != nil {
		return models.TrashAssetResult{}, err
	}

	info, statErr := os.Stat(abs)
	if statErr != nil || !info.Mode().IsRegular() {
		return s.assetOutcome(models.TrashAssetResult{
			Name: name, Path: rel,
			Message: fmt.Sprintf("file not found: %s", rel),
		}), nil
	}

	// Overlay files live under the user root; the vendor policy applies
	// only to files inside the skill's own directory.
	if vendor && dir == bundleDir {
		cleaned := filepath.ToSlash(filepath.Clean(filepath.FromSlash(sub)))
		if cleaned == manifest.FileName {
			return s.assetOutcome(models.TrashAssetResult{
				Name: name, Path: rel,
				Message: "the SKILL.md manifest of a vendor skill can never be trashed",
			}), nil
		}
		if !underReservedTree(cleaned) {
			return s.assetOutcome(models.TrashAssetResult{
				Name: name, Path: rel,
				Message: "vendor skill files outside the reserved user sub-trees (_notes/, notes/, _user/, user/) cannot be trashed",
			}), nil
		}
	}

	flattened := strings.ReplaceAll(filepath.ToSlash(rel), "/", "__")
	target := filepath.Join(s.root, "assets", name, s.now().UTC().Format(timeLayout)+"__"+flattened)
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return s.assetOutcome(models.TrashAssetResult{
			Name: name, Path: rel,
			Message: fmt.Sprintf("trash move failed: %v", err),
		}), nil
	}
	if err := os.Rename(abs, target); err != nil {
		return s.assetOutcome(models.TrashAssetResult{
			Name: name, Path: rel,
			Message: fmt.Sprintf("trash move failed: %v", err),
		}), nil
	}

	pruneEmptyDirs(filepath.Dir(abs), dir)

	return s.assetOutcome(models.TrashAssetResult{
		Trashed:   true,
		Name:      name,
		Path:      rel,
		TrashPath: target,
		Message:   "Asset moved to trash",
	}), nil
}

func (s *Service) skillOutcome(r models.TrashSkillResult) models.TrashSkillResult {
	s.append("trash_skill", map[string]any{
		"name":       r.Name,
		"trashed":    r.Trashed,
		"trash_path": r.TrashPath,
		"message":    r.Message,
	})
	return r
}

func (s *Service) assetOutcome(r models.TrashAssetResult) models.TrashAssetResult {
	s.append("trash_asset", map[string]any{
		"name":       r.Name,
		"path":       r.Path,
		"trashed":    r.Trashed,
		"trash_path": r.TrashPath,
		"message":    r.Message,
	})
	return r
}

func (s *Service) append(op string, fields map[string]any) {
	if err := s.journal.Append(op, fields); err != nil {
		slog.Error("journal append failed",
			slog.String("op", op),
			slog.String("error", err.Error()))
	}
}

// underReservedTree reports whether rel (cleaned, slash-separated) sits
// inside one of the reserved user sub-trees.
func underReservedTree(rel string) bool {
	for _, tree := range reservedUserTrees {
		if strings.HasPrefix(rel, tree) {
			return true
		}
	}
	return false
}

// pruneEmptyDirs removes now-empty directories walking upward from `from`,
// stopping at `stop` (exclusive) or at the first non-empty directory.
func pruneEmptyDirs(from, stop string) {
	sep := string(os.PathSeparator)
	dir := from
	for dir != stop && strings.HasPrefix(dir, stop+sep) {
		entries, err := os.ReadDir(dir)
		if err != nil || len(entries) > 0 {
			return
		}
		if err := os.Remove(dir); err != nil {
			return
		}
		dir = filepath.Dir(dir)
	}
}
