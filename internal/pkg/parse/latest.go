package parse

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/lottosage/lottosage/internal/pkg/models"
)

// Landing pages link every recent draw as /<game>/<period>.shtml; the
// largest linked period is the current one.
var landingPatterns = map[models.GameType]*regexp.Regexp{
	models.GameSSQ: regexp.MustCompile(`/ssq/(\d{5,8})\.shtml`),
	models.GameDLT: regexp.MustCompile(`/dlt/(\d{5,8})\.shtml`),
}

// LatestPeriod scans a landing page for the maximum period identifier.
func LatestPeriod(content []byte, game models.GameType) (string, error) {
	re, ok := landingPatterns[game]
	if !ok {
		return "", fmt.Errorf("unsupported game type: %q", game)
	}
	matches := re.FindAllSubmatch(content, -1)
	if len(matches) == 0 {
		return "", fmt.Errorf("no %s period links found on landing page", game)
	}
	var best string
	var bestVal int64
	for _, m := range matches {
		p := string(m[1])
		v, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			continue
		}
		if v > bestVal {
			bestVal = v
			best = p
		}
	}
	if best == "" {
		return "", fmt.Errorf("no numeric %s period links found on landing page", game)
	}
	return best, nil
}
