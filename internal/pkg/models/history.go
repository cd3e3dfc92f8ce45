package models

import (
	"fmt"
	"time"
)

// RollingHistory is the persisted most-recent-first window of draws for one
// game type. Data[0] is the newest record; periods strictly decrease from
// there. Mutation happens only through Prepend.
type RollingHistory struct {
	UpdatedAt time.Time    `json:"updated_at"`
	Count     int          `json:"count"`
	Data      []DrawRecord `json:"data"`
}

// NewRollingHistory builds a history from records already sorted by period
// descending, rejecting duplicates and ordering violations.
func NewRollingHistory(records []DrawRecord, now time.Time) (*RollingHistory, error) {
	for i := 1; i < len(records); i++ {
		if records[i].PeriodValue() >= records[i-1].PeriodValue() {
			return nil, fmt.Errorf("history not strictly descending at index %d: %s then %s",
				i, records[i-1].Period, records[i].Period)
		}
	}
	data := make([]DrawRecord, len(records))
	copy(data, records)
	return &RollingHistory{UpdatedAt: now, Count: len(data), Data: data}, nil
}

// Head returns the most recent record, or nil for an empty history.
func (h *RollingHistory) Head() *DrawRecord {
	if h == nil || len(h.Data) == 0 {
		return nil
	}
	return &h.Data[0]
}

// Len returns the number of records; safe on a nil history.
func (h *RollingHistory) Len() int {
	if h == nil {
		return 0
	}
	return len(h.Data)
}

// Prepend returns a new history with rec at the head, truncated to at most
// window records. The new record's period must exceed the current head's.
func (h *RollingHistory) Prepend(rec DrawRecord, window int, now time.Time) (*RollingHistory, error) {
	if window < 1 {
		return nil, fmt.Errorf("window must be positive, got %d", window)
	}
	var prior []DrawRecord
	if h != nil {
		prior = h.Data
	}
	if len(prior) > 0 && rec.PeriodValue() <= prior[0].PeriodValue() {
		return nil, fmt.Errorf("period %s does not advance past head %s", rec.Period, prior[0].Period)
	}
	keep := len(prior)
	if keep > window-1 {
		keep = window - 1
	}
	data := make([]DrawRecord, 0, keep+1)
	data = append(data, rec)
	data = append(data, prior[:keep]...)
	return &RollingHistory{UpdatedAt: now, Count: len(data), Data: data}, nil
}
