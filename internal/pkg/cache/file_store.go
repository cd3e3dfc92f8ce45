package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lottosage/lottosage/internal/pkg/models"
)

// FileStore keeps one directory per game type and one JSON file per cache
// kind. Writes replace the file atomically (temp file + rename). No file
// locking: the design assumes a single writer per key.
type FileStore struct {
	dir string
	ttl time.Duration
	now func() time.Time
}

var _ Store = (*FileStore)(nil)

// NewFileStore creates the per-game directories under dir.
func NewFileStore(dir string, ttl time.Duration) (*FileStore, error) {
	for _, game := range models.AllGames {
		if err := os.MkdirAll(filepath.Join(dir, string(game)), 0o755); err != nil {
			return nil, fmt.Errorf("create cache dir: %w", err)
		}
	}
	return &FileStore{dir: dir, ttl: ttl, now: time.Now}, nil
}

func (s *FileStore) path(game models.GameType, kind string) string {
	return filepath.Join(s.dir, string(game), kind+".json")
}

// Save writes the entry as a whole-file replace.
func (s *FileStore) Save(game models.GameType, kind string, payload any) error {
	e, err := newEntry(game, kind, payload, s.now())
	if err != nil {
		return fmt.Errorf("marshal cache payload: %w", err)
	}
	data, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal cache entry: %w", err)
	}

	path := s.path(game, kind)
	tmp, err := os.CreateTemp(filepath.Dir(path), kind+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp cache file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close cache file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace cache file: %w", err)
	}
	return nil
}

// Load reads an entry; a missing or unreadable file is an absent entry,
// never an error.
func (s *FileStore) Load(game models.GameType, kind string, out any) (bool, error) {
	e, ok := s.read(game, kind)
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(e.Data, out); err != nil {
		slog.Warn("cache payload undecodable, treating as miss",
			"game", game, "kind", kind, "error", err)
		return false, nil
	}
	return true, nil
}

func (s *FileStore) IsValid(game models.GameType, kind string) bool {
	e, ok := s.read(game, kind)
	return ok && e.valid(s.now(), s.ttl)
}

func (s *FileStore) read(game models.GameType, kind string) (*entry, bool) {
	data, err := os.ReadFile(s.path(game, kind))
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			slog.Warn("cache file unreadable, treating as miss",
				"game", game, "kind", kind, "error", err)
		}
		return nil, false
	}
	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		slog.Warn("cache file corrupt, treating as miss",
			"game", game, "kind", kind, "error", err)
		return nil, false
	}
	if e.Timestamp.IsZero() {
		return nil, false
	}
	return &e, true
}

// ClearExpired removes every cache file whose entry fails validity.
func (s *FileStore) ClearExpired() error {
	for _, game := range models.AllGames {
		kinds, err := s.kinds(game)
		if err != nil {
			return err
		}
		for _, kind := range kinds {
			if s.IsValid(game, kind) {
				continue
			}
			path := s.path(game, kind)
			if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("remove expired cache %s: %w", path, err)
			}
			slog.Info("removed expired cache entry", "game", game, "kind", kind)
		}
	}
	return nil
}

// ClearAll removes one game's cache files, or every game's when game is "".
func (s *FileStore) ClearAll(game models.GameType) error {
	games := models.AllGames
	if game != "" {
		games = []models.GameType{game}
	}
	for _, g := range games {
		kinds, err := s.kinds(g)
		if err != nil {
			return err
		}
		for _, kind := range kinds {
			if err := os.Remove(s.path(g, kind)); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("remove cache %s/%s: %w", g, kind, err)
			}
		}
	}
	return nil
}

func (s *FileStore) kinds(game models.GameType) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.dir, string(game)))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("list cache dir: %w", err)
	}
	var kinds []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		kinds = append(kinds, strings.TrimSuffix(name, ".json"))
	}
	return kinds, nil
}
