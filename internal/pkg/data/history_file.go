package data

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/lottosage/lottosage/internal/pkg/models"
)

// HistoryFile persists one rolling history per game type as
// <dir>/<game>.json with the {updated_at, count, data} layout.
// Writes replace the file atomically.
type HistoryFile struct {
	dir string
}

func NewHistoryFile(dir string) (*HistoryFile, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create history dir: %w", err)
	}
	return &HistoryFile{dir: dir}, nil
}

func (f *HistoryFile) path(game models.GameType) string {
	return filepath.Join(f.dir, string(game)+".json")
}

// Load returns the stored history, or nil when the file is missing,
// unreadable or violates the ordering invariant. Corruption reads as
// absence so the caller falls through to the network.
func (f *HistoryFile) Load(game models.GameType) *models.RollingHistory {
	data, err := os.ReadFile(f.path(game))
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			slog.Warn("history file unreadable, treating as absent", "game", game, "error", err)
		}
		return nil
	}
	var h models.RollingHistory
	if err := json.Unmarshal(data, &h); err != nil {
		slog.Warn("history file corrupt, treating as absent", "game", game, "error", err)
		return nil
	}
	checked, err := models.NewRollingHistory(h.Data, h.UpdatedAt)
	if err != nil {
		slog.Warn("history file violates ordering, treating as absent", "game", game, "error", err)
		return nil
	}
	return checked
}

// Save writes the history as a whole-file replace.
func (f *HistoryFile) Save(game models.GameType, h *models.RollingHistory) error {
	data, err := json.MarshalIndent(h, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal history: %w", err)
	}
	path := f.path(game)
	tmp, err := os.CreateTemp(f.dir, string(game)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp history file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write history file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close history file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace history file: %w", err)
	}
	return nil
}
