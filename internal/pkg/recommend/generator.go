package recommend

import (
	"math/rand"
	"sort"
	"strings"

	"github.com/lottosage/lottosage/internal/pkg/analysis"
	"github.com/lottosage/lottosage/internal/pkg/models"
)

// Recommendation is one generated number set with its score and the
// reasons it was picked.
type Recommendation struct {
	Index       int     `json:"index"`
	Primaries   []int   `json:"primaries"`
	Secondaries []int   `json:"secondaries"`
	Stars       string  `json:"stars"`
	Reason      string  `json:"reason"`
	Score       float64 `json:"score"`
}

// Generator produces number sets from an analysis result using one of
// four strategies. The random source is injectable so tests are
// deterministic.
type Generator struct {
	game      models.GameType
	rules     models.GameRules
	result    analysis.Result
	secondary analysis.SecondaryResult
	rng       *rand.Rand
}

func NewGenerator(game models.GameType, result analysis.Result, secondary analysis.SecondaryResult, rng *rand.Rand) *Generator {
	return &Generator{
		game:      game,
		rules:     game.Rules(),
		result:    result,
		secondary: secondary,
		rng:       rng,
	}
}

// Generate produces count recommendations with the named strategy.
// Unknown strategies fall back to mixed.
func (g *Generator) Generate(count int, strategy string) []Recommendation {
	recs := make([]Recommendation, 0, count)
	for i := 1; i <= count; i++ {
		var rec Recommendation
		switch strategy {
		case "hot_first":
			rec = g.hotFirst(i)
		case "balanced":
			rec = g.balanced(i)
		case "random":
			rec = g.randomOptimized(i)
		default:
			rec = g.mixed(i)
		}
		recs = append(recs, rec)
	}
	return recs
}

// TopN returns the n highest-scored recommendations, best first.
func TopN(recs []Recommendation, n int) []Recommendation {
	sorted := make([]Recommendation, len(recs))
	copy(sorted, recs)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Score > sorted[j].Score })
	if n > len(sorted) {
		n = len(sorted)
	}
	return sorted[:n]
}

// hotFirst draws all primaries from the hot pool, falling back to the
// whole range when the analysis produced too few hot numbers.
func (g *Generator) hotFirst(index int) Recommendation {
	pool := g.result.HotNumbers
	if len(pool) > 20 {
		pool = pool[:20]
	}
	if len(pool) < g.rules.PrimaryCount {
		pool = g.fullPrimaryRange()
	}
	primaries := g.sample(pool, g.rules.PrimaryCount)
	sort.Ints(primaries)
	return g.build(index, primaries, "hot_first")
}

// balanced mixes roughly half hot and half cold primaries, topping up
// from the full range when either pool runs short.
func (g *Generator) balanced(index int) Recommendation {
	hotCount := g.rules.PrimaryCount / 2
	if hotCount < 1 {
		hotCount = 1
	}
	if hotCount > len(g.result.HotNumbers) {
		hotCount = len(g.result.HotNumbers)
	}

	primaries := g.sample(g.result.HotNumbers, hotCount)

	coldCount := g.rules.PrimaryCount - len(primaries)
	coldPool := excluding(g.result.ColdNumbers, primaries)
	if coldCount > len(coldPool) {
		coldCount = len(coldPool)
	}
	primaries = append(primaries, g.sample(coldPool, coldCount)...)

	for len(primaries) < g.rules.PrimaryCount {
		rest := excluding(g.fullPrimaryRange(), primaries)
		if len(rest) == 0 {
			break
		}
		primaries = append(primaries, rest[g.rng.Intn(len(rest))])
	}
	sort.Ints(primaries)
	return g.build(index, primaries, "balanced")
}

func (g *Generator) mixed(index int) Recommendation {
	if g.rng.Intn(2) == 0 {
		return g.hotFirst(index)
	}
	return g.balanced(index)
}

// randomOptimized resamples until the set passes the parity, size and
// sum-band constraints, keeping the last attempt if none pass.
func (g *Generator) randomOptimized(index int) Recommendation {
	const maxAttempts = 100
	sumLo, sumHi := 70, 140
	if g.game == models.GameDLT {
		sumLo, sumHi = 50, 110
	}

	var primaries []int
	for attempt := 0; attempt < maxAttempts; attempt++ {
		primaries = g.sample(g.fullPrimaryRange(), g.rules.PrimaryCount)
		sort.Ints(primaries)

		odd := countOdd(primaries)
		if odd < 2 || odd > 4 {
			continue
		}
		big := g.countBig(primaries)
		if big < 2 || big > 4 {
			continue
		}
		sum := sumOf(primaries)
		if sum < sumLo || sum > sumHi {
			continue
		}
		break
	}
	return g.build(index, primaries, "random_optimized")
}

func (g *Generator) build(index int, primaries []int, strategy string) Recommendation {
	secondaries := g.selectSecondaries()
	stars := "⭐"
	if index <= 3 {
		stars = "⭐⭐⭐"
	}
	return Recommendation{
		Index:       index,
		Primaries:   primaries,
		Secondaries: secondaries,
		Stars:       stars,
		Reason:      g.reason(primaries, strategy),
		Score:       g.score(primaries),
	}
}

// selectSecondaries prefers the hot secondary pool, falling back to
// the full range.
func (g *Generator) selectSecondaries() []int {
	pool := g.secondary.HotNumbers
	if len(pool) < g.rules.SecondaryCount {
		pool = make([]int, 0, g.rules.SecondaryMax)
		for n := 1; n <= g.rules.SecondaryMax; n++ {
			pool = append(pool, n)
		}
	}
	picked := g.sample(pool, g.rules.SecondaryCount)
	sort.Ints(picked)
	return picked
}

// score rewards hot hits, parity balance, size balance and a
// consecutive pair, capping at 100.
func (g *Generator) score(primaries []int) float64 {
	score := 0.0

	hotTop := g.result.HotNumbers
	if len(hotTop) > 15 {
		hotTop = hotTop[:15]
	}
	for _, n := range primaries {
		if contains(hotTop, n) {
			score += 10
		}
	}

	if odd := countOdd(primaries); odd >= 2 && odd <= 4 {
		score += 15
	}
	if big := g.countBig(primaries); big >= 2 && big <= 4 {
		score += 15
	}
	if hasConsecutive(primaries) {
		score += 10
	}

	if score > 100 {
		score = 100
	}
	return score
}

func (g *Generator) reason(primaries []int, strategy string) string {
	var reasons []string

	hotTop := g.result.HotNumbers
	if len(hotTop) > 10 {
		hotTop = hotTop[:10]
	}
	hot := 0
	for _, n := range primaries {
		if contains(hotTop, n) {
			hot++
		}
	}
	if hot >= 3 {
		reasons = append(reasons, "热号组合")
	}
	if countOdd(primaries) == g.rules.PrimaryCount/2 {
		reasons = append(reasons, "奇偶均衡")
	}
	if g.countBig(primaries) == g.rules.PrimaryCount/2 {
		reasons = append(reasons, "大小均衡")
	}
	if hasConsecutive(primaries) {
		reasons = append(reasons, "含连号")
	}

	switch strategy {
	case "hot_first":
		reasons = append(reasons, "热号优先")
	case "balanced":
		reasons = append(reasons, "平衡组合")
	case "random_optimized":
		reasons = append(reasons, "随机优化")
	}

	if len(reasons) == 0 {
		return "综合推荐"
	}
	return strings.Join(reasons, "，")
}

func (g *Generator) fullPrimaryRange() []int {
	nums := make([]int, 0, g.rules.PrimaryMax)
	for n := 1; n <= g.rules.PrimaryMax; n++ {
		nums = append(nums, n)
	}
	return nums
}

// sample picks k distinct elements without mutating pool.
func (g *Generator) sample(pool []int, k int) []int {
	if k > len(pool) {
		k = len(pool)
	}
	shuffled := make([]int, len(pool))
	copy(shuffled, pool)
	g.rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	return shuffled[:k]
}

func (g *Generator) countBig(nums []int) int {
	mid := 1 + (g.rules.PrimaryMax-1)/2
	big := 0
	for _, n := range nums {
		if n > mid {
			big++
		}
	}
	return big
}

func countOdd(nums []int) int {
	odd := 0
	for _, n := range nums {
		if n%2 == 1 {
			odd++
		}
	}
	return odd
}

func sumOf(nums []int) int {
	total := 0
	for _, n := range nums {
		total += n
	}
	return total
}

func hasConsecutive(nums []int) bool {
	for i := 0; i < len(nums)-1; i++ {
		if nums[i+1]-nums[i] == 1 {
			return true
		}
	}
	return false
}

func contains(nums []int, target int) bool {
	for _, n := range nums {
		if n == target {
			return true
		}
	}
	return false
}

func excluding(nums, drop []int) []int {
	out := make([]int, 0, len(nums))
	for _, n := range nums {
		if !contains(drop, n) {
			out = append(out, n)
		}
	}
	return out
}
