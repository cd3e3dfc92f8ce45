package parse

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// yi is the 亿 unit (10^8 yuan) used by the source for large figures.
var yi = decimal.NewFromInt(100_000_000)

// amountPattern pairs a textual pattern with its converter. Patterns are
// tried in order; the first match wins and a failing converter falls
// through to the next pattern.
type amountPattern struct {
	re      *regexp.Regexp
	convert func(match string) (int64, bool)
}

var salePatterns = []amountPattern{
	{regexp.MustCompile(`本期全国销售金额.*?>([0-9.]+)亿`), convertYi},
	{regexp.MustCompile(`本期销量.*?>([0-9,]+)元`), convertPlain},
	{regexp.MustCompile(`销售额.*?>([0-9,]+)元`), convertPlain},
	{regexp.MustCompile(`本期销量[：:]*([0-9,]+)`), convertPlain},
	{regexp.MustCompile(`销售额[：:]*([0-9,]+)`), convertPlain},
}

var poolPatterns = []amountPattern{
	{regexp.MustCompile(`奖池滚存.*?>([0-9.]+)亿`), convertYi},
	{regexp.MustCompile(`奖池.*?>([0-9,]+)元`), convertPlain},
	{regexp.MustCompile(`奖池资金[：:]*([0-9,]+)`), convertPlain},
	{regexp.MustCompile(`滚存[：:]*([0-9,]+)`), convertPlain},
}

// extractAmount tries each pattern in order and returns the first
// successful conversion, defaulting to 0 when nothing matches.
func extractAmount(page string, patterns []amountPattern) int64 {
	for _, p := range patterns {
		m := p.re.FindStringSubmatch(page)
		if m == nil {
			continue
		}
		if v, ok := p.convert(m[1]); ok {
			return v
		}
	}
	return 0
}

// convertYi turns a fractional 亿 figure like "3.25" into whole yuan using
// decimal arithmetic, so "3.25亿" is exactly 325000000.
func convertYi(match string) (int64, bool) {
	d, err := decimal.NewFromString(match)
	if err != nil || d.IsNegative() {
		return 0, false
	}
	return d.Mul(yi).IntPart(), true
}

func convertPlain(match string) (int64, bool) {
	v, err := strconv.ParseInt(strings.ReplaceAll(match, ",", ""), 10, 64)
	if err != nil || v < 0 {
		return 0, false
	}
	return v, true
}
