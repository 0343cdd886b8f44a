package reports

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"LiteratureHarvester/internal/apperr"
	"LiteratureHarvester/internal/ports"
)

// Store keeps rendered report files on the local filesystem. Reports are
// disposable artifacts; the cleanup loop reclaims them after the TTL.
type Store struct {
	root   string
	logger *slog.Logger
}

var _ ports.ReportStore = (*Store)(nil)

// NewStore creates the report directory if needed.
func NewStore(root string, logger *slog.Logger) (*Store, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve report dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create report dir: %w", err)
	}
	return &Store{root: abs, logger: logger}, nil
}

// Save writes a report under the store root. Names with path separators
// are rejected so a caller can never escape the directory.
func (s *Store) Save(name string, content []byte) (string, error) {
	if name == "" || strings.ContainsAny(name, `/\`) || name != filepath.Base(name) {
		return "", fmt.Errorf("invalid report name %q: %w", name, apperr.ErrBadInput)
	}
	path := filepath.Join(s.root, name)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	return path, nil
}

// Latest returns the most recently modified report and its content.
func (s *Store) Latest() (string, []byte, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return "", nil, fmt.Errorf("read report dir: %w", err)
	}

	var (
		newest    string
		newestMod time.Time
	)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if newest == "" || info.ModTime().After(newestMod) {
			newest = entry.Name()
			newestMod = info.ModTime()
		}
	}
	if newest == "" {
		return "", nil, apperr.ErrNotFound
	}

	content, err := os.ReadFile(filepath.Join(s.root, newest))
	if err != nil {
		return "", nil, fmt.Errorf("read report %s: %w", newest, err)
	}
	return newest, content, nil
}

// CleanupOlderThan removes reports whose modification time is older than
// ttl and returns how many were deleted. Individual failures are logged
// and skipped so one stuck file cannot stall the loop.
func (s *Store) CleanupOlderThan(ttl time.Duration) (int, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return 0, fmt.Errorf("read report dir: %w", err)
	}

	cutoff := time.Now().Add(-ttl)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(s.root, entry.Name())
		if err := os.Remove(path); err != nil {
			if s.logger != nil {
				s.logger.Warn("failed to delete report", "file", entry.Name(), "error", err)
			}
			continue
		}
		removed++
		if s.logger != nil {
			s.logger.Info("deleted old report", "file", entry.Name())
		}
	}
	return removed, nil
}
