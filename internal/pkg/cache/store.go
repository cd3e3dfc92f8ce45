// Package cache provides TTL-aware key-value persistence keyed by
// (game type, cache kind), with file and Redis backends.
package cache

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/lottosage/lottosage/internal/pkg/models"
)

// Well-known cache kinds.
const (
	KindLatest = "latest"
)

// HistoryKind returns the cache kind for an n-draw history window ("history_N").
func HistoryKind(n int) string {
	return fmt.Sprintf("history_%d", n)
}

// Store is durable key-value persistence with TTL semantics. Entries stay
// readable after expiry so callers can fall back to stale data; only
// ClearExpired removes them.
type Store interface {
	// Save overwrites the entry with the payload stamped at now.
	Save(game models.GameType, kind string, payload any) error
	// Load decodes the stored payload into out, reporting whether an entry
	// existed. Expired entries still load; corrupt entries read as absent.
	Load(game models.GameType, kind string, out any) (bool, error)
	// IsValid reports whether the entry exists and now-timestamp < ttl.
	// The exact-TTL boundary counts as expired.
	IsValid(game models.GameType, kind string) bool
	// ClearExpired removes every entry that fails IsValid.
	ClearExpired() error
	// ClearAll removes one game's entries, or every game's when game is empty.
	ClearAll(game models.GameType) error
}

// entry is the stored envelope: {data, timestamp, cache_type, lottery_type}.
type entry struct {
	Data        json.RawMessage `json:"data"`
	Timestamp   time.Time       `json:"timestamp"`
	CacheType   string          `json:"cache_type"`
	LotteryType string          `json:"lottery_type"`
}

func newEntry(game models.GameType, kind string, payload any, now time.Time) (*entry, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &entry{Data: data, Timestamp: now, CacheType: kind, LotteryType: string(game)}, nil
}

func (e *entry) valid(now time.Time, ttl time.Duration) bool {
	return now.Sub(e.Timestamp) < ttl
}
