// Package mirror keeps the vendor skills root in sync with an upstream git
// repository. The sync is best-effort and fire-and-forget: it runs once at
// startup on its own goroutine and its failure is only ever logged.
package mirror

import (
	"context"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Config holds the mirror source. An empty URL disables cloning; an
// existing checkout is still pulled.
type Config struct {
	URL    string
	Branch string
}

// Start launches the one-shot sync in the background and returns
// immediately. The engine must function whether or not it ever completes.
func Start(ctx context.Context, skillsDir string, cfg Config, logger *slog.Logger) {
	go Sync(ctx, skillsDir, cfg, logger)
	logger.Info("background skills mirror started", slog.String("dir", skillsDir))
}

// Sync clones or fast-forwards the skills directory.
func Sync(ctx context.Context, skillsDir string, cfg Config, logger *slog.Logger) {
	branch := cfg.Branch
	if branch == "" {
		branch = "main"
	}

	if isGitRepo(skillsDir) {
		logger.Info("skills root is a git checkout, pulling",
			slog.String("branch", branch))
		run(ctx, skillsDir, logger, "fetch", "origin")
		run(ctx, skillsDir, logger, "checkout", branch)
		run(ctx, skillsDir, logger, "pull", "--ff-only", "origin", branch)
		return
	}

	if cfg.URL == "" {
		logger.Info("no mirror url configured, using local skills root as-is")
		return
	}

	parent := filepath.Dir(skillsDir)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		logger.Error("mirror: create parent dir failed", slog.String("error", err.Error()))
		return
	}
	logger.Info("cloning skills mirror",
		slog.String("url", cfg.URL),
		slog.String("branch", branch))
	run(ctx, parent, logger, "clone", "--depth=1", "-b", branch, cfg.URL, filepath.Base(skillsDir))
}

func isGitRepo(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, ".git"))
	return err == nil && info.IsDir()
}

// run executes one git command, logging its combined output. Errors are
// logged, never returned.
func run(ctx context.Context, dir string, logger *slog.Logger, args ...string) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		logger.Error("git command failed",
			slog.String("args", strings.Join(args, " ")),
			slog.String("output", strings.TrimSpace(string(out))),
			slog.String("error", err.Error()))
		return
	}
	logger.Info("git "+strings.Join(args, " "),
		slog.String("output", strings.TrimSpace(string(out))))
}
