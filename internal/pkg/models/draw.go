package models

import (
	"fmt"
	"sort"
	"strconv"
)

// GameType identifies one of the two supported lottery schemas.
type GameType string

const (
	GameSSQ GameType = "ssq" // 双色球: 6 of 1-33 + 1 of 1-16
	GameDLT GameType = "dlt" // 大乐透: 5 of 1-35 + 2 of 1-12
)

// AllGames lists every supported game type.
var AllGames = []GameType{GameSSQ, GameDLT}

// GameRules holds the ball-count and range rules for a game type.
type GameRules struct {
	PrimaryCount   int
	PrimaryMax     int
	SecondaryCount int
	SecondaryMax   int
	// Primaries above this value count as "big" in ratio statistics.
	SmallThreshold int
	DisplayName    string
}

var gameRules = map[GameType]GameRules{
	GameSSQ: {PrimaryCount: 6, PrimaryMax: 33, SecondaryCount: 1, SecondaryMax: 16, SmallThreshold: 16, DisplayName: "双色球"},
	GameDLT: {PrimaryCount: 5, PrimaryMax: 35, SecondaryCount: 2, SecondaryMax: 12, SmallThreshold: 17, DisplayName: "大乐透"},
}

// Rules returns the rules for the game type. Unsupported types yield
// the zero value; check Valid first when the type comes from input.
func (g GameType) Rules() GameRules {
	return gameRules[g]
}

// Valid reports whether the game type is one of the supported schemas.
func (g GameType) Valid() bool {
	_, ok := gameRules[g]
	return ok
}

// DrawRecord is one validated drawing event. Instances are only built
// through NewDrawRecord, so a record in memory or on disk always satisfies
// the ball-count, range and ordering rules of its game type.
type DrawRecord struct {
	GameType         GameType `json:"game_type"`
	Period           string   `json:"period"`
	Date             string   `json:"date"`
	OpenTime         string   `json:"open_time,omitempty"`
	PrimaryNumbers   []int    `json:"primary_numbers"`
	SecondaryNumbers []int    `json:"secondary_numbers"`
	SaleAmount       int64    `json:"sale_amount"`
	PoolAmount       int64    `json:"pool_amount"`
}

// NewDrawRecord validates and builds a DrawRecord. Ball slices are copied
// and sorted ascending; duplicates, out-of-range values, wrong counts,
// a non-numeric period or negative amounts are rejected.
func NewDrawRecord(game GameType, period, date string, primaries, secondaries []int, sale, pool int64) (DrawRecord, error) {
	if !game.Valid() {
		return DrawRecord{}, fmt.Errorf("unsupported game type: %q", game)
	}
	rules := game.Rules()
	if _, err := strconv.ParseUint(period, 10, 64); err != nil {
		return DrawRecord{}, fmt.Errorf("period %q is not a plain non-negative integer", period)
	}
	p, err := validateBalls(primaries, rules.PrimaryCount, rules.PrimaryMax)
	if err != nil {
		return DrawRecord{}, fmt.Errorf("%s %s primary numbers: %w", game, period, err)
	}
	s, err := validateBalls(secondaries, rules.SecondaryCount, rules.SecondaryMax)
	if err != nil {
		return DrawRecord{}, fmt.Errorf("%s %s secondary numbers: %w", game, period, err)
	}
	if sale < 0 || pool < 0 {
		return DrawRecord{}, fmt.Errorf("%s %s: negative amount", game, period)
	}
	return DrawRecord{
		GameType:         game,
		Period:           period,
		Date:             date,
		PrimaryNumbers:   p,
		SecondaryNumbers: s,
		SaleAmount:       sale,
		PoolAmount:       pool,
	}, nil
}

func validateBalls(balls []int, count, max int) ([]int, error) {
	if len(balls) != count {
		return nil, fmt.Errorf("want %d balls, got %d", count, len(balls))
	}
	out := make([]int, len(balls))
	copy(out, balls)
	sort.Ints(out)
	for i, b := range out {
		if b < 1 || b > max {
			return nil, fmt.Errorf("ball %d out of range 1-%d", b, max)
		}
		if i > 0 && out[i-1] == b {
			return nil, fmt.Errorf("duplicate ball %d", b)
		}
	}
	return out, nil
}

// PeriodValue returns the numeric value of the period identifier,
// or 0 when it cannot be parsed.
func (r DrawRecord) PeriodValue() int64 {
	v, err := strconv.ParseInt(r.Period, 10, 64)
	if err != nil {
		return 0
	}
	return v
}

// DisplayNumbers renders the draw as "p p p ... | s [s]" for reports.
func (r DrawRecord) DisplayNumbers() string {
	return fmt.Sprintf("%s | %s", joinInts(r.PrimaryNumbers), joinInts(r.SecondaryNumbers))
}

func joinInts(nums []int) string {
	out := ""
	for i, n := range nums {
		if i > 0 {
			out += " "
		}
		out += strconv.Itoa(n)
	}
	return out
}
