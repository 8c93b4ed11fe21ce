package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"jobapply-backend/internal/shared/telemetry"
)

// FileRepo persists a single-user log as a JSON array. It ignores session IDs
// when reading: the file is one shared log.
type FileRepo struct {
	mu   sync.Mutex
	path string
}

// NewFileRepo returns a FileRepo writing to path.
func NewFileRepo(path string) *FileRepo {
	return &FileRepo{path: path}
}

// Append adds the entry and rewrites the file keeping the last Limit entries.
func (r *FileRepo) Append(ctx context.Context, entry Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	entries := append(r.load(), entry)
	if len(entries) > Limit {
		entries = entries[len(entries)-Limit:]
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}
	if dir := filepath.Dir(r.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir: %w", err)
		}
	}
	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write history: %w", err)
	}
	if err := os.Rename(tmp, r.path); err != nil {
		return fmt.Errorf("replace history: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (r *FileRepo) Recent(ctx context.Context, _ string, limit int) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return newestFirst(r.load(), clampLimit(limit)), nil
}

// load reads the file. A missing or empty file is an empty log; a corrupt file
// is moved aside to <path>.backup and treated as empty.
func (r *FileRepo) load() []Entry {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			telemetry.Warn("history.read_failed", map[string]any{"path": r.path, "error": err})
		}
		return nil
	}
	if strings.TrimSpace(string(data)) == "" {
		return nil
	}

	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		telemetry.Warn("history.corrupt", map[string]any{"path": r.path, "error": err})
		if renameErr := os.Rename(r.path, r.path+".backup"); renameErr != nil {
			telemetry.Error("history.backup_failed", map[string]any{"path": r.path, "error": renameErr})
		}
		return nil
	}
	return entries
}

var _ Repo = (*FileRepo)(nil)
