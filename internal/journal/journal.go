// Package journal appends operation records to a JSON-lines file. The
// journal is append-only and never read back by the engine; it exists for
// audit of destructive operations.
package journal

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Writer appends one JSON object per line to a file.
type Writer struct {
	path string
	mu   sync.Mutex
	now  func() time.Time
}

// New creates a Writer for the given file path. The file and its parent
// directory are created on first append.
func New(path string) *Writer {
	return &Writer{path: path, now: time.Now}
}

// Append writes one record tagged with the operation name and a UTC
// timestamp. The fields map is not mutated.
func (w *Writer) Append(op string, fields map[string]any) error {
	record := make(map[string]any, len(fields)+2)
	for k, v := range fields {
		record[k] = v
	}
	record["op"] = op
	record["ts"] = w.now().UTC().Format(time.RFC3339)

	line, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("journal: marshal: %w", err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(w.path), 0o755); err != nil {
		return fmt.Errorf("journal: mkdir: %w", err)
	}
	file, err := os.OpenFile(w.path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("journal: open: %w", err)
	}
	defer func() { _ = file.Close() }()

	if _, err := file.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("journal: write: %w", err)
	}
	return nil
}
