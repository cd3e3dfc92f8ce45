package analysis

import (
	"fmt"
	"sort"

	"github.com/lottosage/lottosage/internal/pkg/models"
)

const hotColdTopN = 10

// Result holds the frequency and ratio statistics for one game's
// primary numbers over the analyzed window.
type Result struct {
	HotNumbers       []int       `json:"hot_numbers"`
	ColdNumbers      []int       `json:"cold_numbers"`
	OddEvenRatio     string      `json:"odd_even_ratio"`
	BigSmallRatio    string      `json:"big_small_ratio"`
	ConsecutiveCount int         `json:"consecutive_count"`
	SumValue         int         `json:"sum_value"`
	SumRange         string      `json:"sum_range"`
	AvgOddCount      float64     `json:"avg_odd_count"`
	AvgBigCount      float64     `json:"avg_big_count"`
	MissingStats     map[int]int `json:"missing_stats"`
}

// Analyzer computes statistics over a window of draws, newest first.
// The game's ball ranges and the big/small threshold come from its
// rules, so one analyzer covers both schemas.
type Analyzer struct {
	game    models.GameType
	rules   models.GameRules
	records []models.DrawRecord
}

func New(game models.GameType, records []models.DrawRecord) *Analyzer {
	return &Analyzer{game: game, rules: game.Rules(), records: records}
}

// Analyze produces the primary-number statistics. An empty window
// yields a zero-valued result rather than an error.
func (a *Analyzer) Analyze() Result {
	if len(a.records) == 0 {
		return Result{OddEvenRatio: "0:0", BigSmallRatio: "0:0", SumRange: "未知", MissingStats: map[int]int{}}
	}

	counts := a.countPrimaries()
	hot, cold := hotCold(counts, hotColdTopN)
	sumValue, sumRange := a.sumStats()

	return Result{
		HotNumbers:       hot,
		ColdNumbers:      cold,
		OddEvenRatio:     fmt.Sprintf("%.1f:%.1f", a.avgOdd(), float64(a.rules.PrimaryCount)-a.avgOdd()),
		BigSmallRatio:    fmt.Sprintf("%.1f:%.1f", a.avgBig(), float64(a.rules.PrimaryCount)-a.avgBig()),
		ConsecutiveCount: a.countConsecutive(),
		SumValue:         sumValue,
		SumRange:         sumRange,
		AvgOddCount:      a.avgOdd(),
		AvgBigCount:      a.avgBig(),
		MissingStats:     a.missingStats(),
	}
}

func (a *Analyzer) countPrimaries() map[int]int {
	counts := make(map[int]int)
	for _, rec := range a.records {
		for _, n := range rec.PrimaryNumbers {
			counts[n]++
		}
	}
	return counts
}

// hotCold ranks numbers by frequency. Ties break on the smaller
// number so results are deterministic.
func hotCold(counts map[int]int, topN int) (hot, cold []int) {
	if len(counts) == 0 {
		return nil, nil
	}
	nums := make([]int, 0, len(counts))
	for n := range counts {
		nums = append(nums, n)
	}

	byCountDesc := make([]int, len(nums))
	copy(byCountDesc, nums)
	sort.Slice(byCountDesc, func(i, j int) bool {
		a, b := byCountDesc[i], byCountDesc[j]
		if counts[a] != counts[b] {
			return counts[a] > counts[b]
		}
		return a < b
	})

	byCountAsc := make([]int, len(nums))
	copy(byCountAsc, nums)
	sort.Slice(byCountAsc, func(i, j int) bool {
		a, b := byCountAsc[i], byCountAsc[j]
		if counts[a] != counts[b] {
			return counts[a] < counts[b]
		}
		return a < b
	})

	if topN > len(nums) {
		topN = len(nums)
	}
	return byCountDesc[:topN], byCountAsc[:topN]
}

func (a *Analyzer) avgOdd() float64 {
	total := 0
	for _, rec := range a.records {
		for _, n := range rec.PrimaryNumbers {
			if n%2 == 1 {
				total++
			}
		}
	}
	return float64(total) / float64(len(a.records))
}

func (a *Analyzer) avgBig() float64 {
	total := 0
	for _, rec := range a.records {
		for _, n := range rec.PrimaryNumbers {
			if n > a.rules.SmallThreshold {
				total++
			}
		}
	}
	return float64(total) / float64(len(a.records))
}

// countConsecutive counts adjacent-number pairs across the whole
// window. Primaries are stored ascending, so a simple neighbor scan
// suffices.
func (a *Analyzer) countConsecutive() int {
	count := 0
	for _, rec := range a.records {
		for i := 0; i < len(rec.PrimaryNumbers)-1; i++ {
			if rec.PrimaryNumbers[i+1]-rec.PrimaryNumbers[i] == 1 {
				count++
			}
		}
	}
	return count
}

// sumStats returns the average primary sum and its band label.
// Bands follow the conventional 和值 split: below 80 偏小, below 120
// 适中, otherwise 偏大.
func (a *Analyzer) sumStats() (int, string) {
	total := 0
	for _, rec := range a.records {
		for _, n := range rec.PrimaryNumbers {
			total += n
		}
	}
	avg := float64(total) / float64(len(a.records))
	switch {
	case avg < 80:
		return int(avg), "偏小"
	case avg < 120:
		return int(avg), "适中"
	default:
		return int(avg), "偏大"
	}
}

// missingStats reports, for every primary number, how many of the
// newest draws have passed since it last appeared. A number in the
// most recent draw scores 0; one absent from the whole window scores
// the window length.
func (a *Analyzer) missingStats() map[int]int {
	missing := make(map[int]int, a.rules.PrimaryMax)
	for n := 1; n <= a.rules.PrimaryMax; n++ {
		missing[n] = len(a.records)
	}
	for i, rec := range a.records {
		for _, n := range rec.PrimaryNumbers {
			if missing[n] == len(a.records) {
				missing[n] = i
			}
		}
	}
	return missing
}
