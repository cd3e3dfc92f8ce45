package analysis

import (
	"fmt"
	"sort"
)

const secondaryTopN = 5

// SecondaryResult holds the statistics for a game's secondary
// numbers. HotCombos is only populated for games drawing more than
// one secondary.
type SecondaryResult struct {
	HotNumbers    []int    `json:"hot_numbers"`
	ColdNumbers   []int    `json:"cold_numbers"`
	OddEvenRatio  string   `json:"odd_even_ratio"`
	BigSmallRatio string   `json:"big_small_ratio"`
	HotCombos     []string `json:"hot_combos,omitempty"`
	TotalDistinct int      `json:"total_distinct"`
}

// AnalyzeSecondary produces hot/cold secondaries plus, for two-ball
// games, the most frequent drawn pairs.
func (a *Analyzer) AnalyzeSecondary() SecondaryResult {
	if len(a.records) == 0 {
		return SecondaryResult{OddEvenRatio: "0:0", BigSmallRatio: "0:0"}
	}

	counts := make(map[int]int)
	for _, rec := range a.records {
		for _, n := range rec.SecondaryNumbers {
			counts[n]++
		}
	}
	hot, cold := hotCold(counts, secondaryTopN)

	odd, big := 0, 0
	mid := a.rules.SecondaryMax / 2
	for n := range counts {
		if n%2 == 1 {
			odd++
		}
		if n > mid {
			big++
		}
	}

	res := SecondaryResult{
		HotNumbers:    hot,
		ColdNumbers:   cold,
		OddEvenRatio:  fmt.Sprintf("%d:%d", odd, len(counts)-odd),
		BigSmallRatio: fmt.Sprintf("%d:%d", big, len(counts)-big),
		TotalDistinct: len(counts),
	}
	if a.rules.SecondaryCount >= 2 {
		res.HotCombos = a.hotCombos(secondaryTopN)
	}
	return res
}

// hotCombos ranks the drawn secondary pairs by frequency.
func (a *Analyzer) hotCombos(topN int) []string {
	comboCounts := make(map[string]int)
	for _, rec := range a.records {
		if len(rec.SecondaryNumbers) < 2 {
			continue
		}
		key := fmt.Sprintf("%d-%d", rec.SecondaryNumbers[0], rec.SecondaryNumbers[1])
		comboCounts[key]++
	}
	combos := make([]string, 0, len(comboCounts))
	for c := range comboCounts {
		combos = append(combos, c)
	}
	sort.Slice(combos, func(i, j int) bool {
		if comboCounts[combos[i]] != comboCounts[combos[j]] {
			return comboCounts[combos[i]] > comboCounts[combos[j]]
		}
		return combos[i] < combos[j]
	})
	if topN > len(combos) {
		topN = len(combos)
	}
	return combos[:topN]
}
