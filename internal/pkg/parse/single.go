package parse

import (
	"fmt"
	"log/slog"
	"regexp"
	"strconv"

	"github.com/lottosage/lottosage/internal/pkg/models"
)

var (
	periodRe     = regexp.MustCompile(`期\s+(\d+)`)
	cnDateRe     = regexp.MustCompile(`(\d{4})年(\d{1,2})月(\d{1,2})日`)
	ballMarkerRe = regexp.MustCompile(`class="[^"]*ball[^"]*"[^>]*>(\d{2})`)
)

// ParseSingle extracts one draw record from a per-period detail page.
// The period falls back to fallbackPeriod when the page doesn't carry it.
// Fewer ball markers than the game needs is an extraction failure.
func ParseSingle(content []byte, game models.GameType, fallbackPeriod string) (*models.DrawRecord, error) {
	if !game.Valid() {
		return nil, fmt.Errorf("unsupported game type: %q", game)
	}
	rules := game.Rules()
	page := string(content)

	period := fallbackPeriod
	if m := periodRe.FindStringSubmatch(page); m != nil {
		period = m[1]
	}

	date := ""
	if m := cnDateRe.FindStringSubmatch(page); m != nil {
		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		day, _ := strconv.Atoi(m[3])
		date = fmt.Sprintf("%04d-%02d-%02d", year, month, day)
	}

	need := rules.PrimaryCount + rules.SecondaryCount
	balls := extractBalls(page)
	if len(balls) < need {
		slog.Warn("not enough ball markers on detail page",
			"game", game, "period", period, "found", len(balls), "need", need)
		return nil, fmt.Errorf("%s %s: found %d ball markers, need %d", game, period, len(balls), need)
	}
	primaries := balls[:rules.PrimaryCount]
	secondaries := balls[rules.PrimaryCount:need]

	sale := extractAmount(page, salePatterns)
	pool := extractAmount(page, poolPatterns)

	rec, err := models.NewDrawRecord(game, period, date, primaries, secondaries, sale, pool)
	if err != nil {
		return nil, fmt.Errorf("detail page record rejected: %w", err)
	}
	return &rec, nil
}

func extractBalls(page string) []int {
	matches := ballMarkerRe.FindAllStringSubmatch(page, -1)
	balls := make([]int, 0, len(matches))
	for _, m := range matches {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		balls = append(balls, n)
	}
	return balls
}
