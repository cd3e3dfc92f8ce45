package recommend

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/lottosage/lottosage/internal/pkg/analysis"
	"github.com/lottosage/lottosage/internal/pkg/models"
)

func testResult() analysis.Result {
	return analysis.Result{
		HotNumbers:  []int{3, 7, 12, 18, 22, 25, 28, 31, 1, 9},
		ColdNumbers: []int{2, 4, 6, 8, 10, 13, 15, 17, 19, 21},
	}
}

func testSecondary() analysis.SecondaryResult {
	return analysis.SecondaryResult{HotNumbers: []int{5, 11, 9, 2, 7}}
}

func newTestGenerator(game models.GameType) *Generator {
	return NewGenerator(game, testResult(), testSecondary(), rand.New(rand.NewSource(1)))
}

func checkRecommendation(t *testing.T, rec Recommendation, rules models.GameRules) {
	t.Helper()
	if len(rec.Primaries) != rules.PrimaryCount {
		t.Errorf("rec %d: %d primaries, want %d", rec.Index, len(rec.Primaries), rules.PrimaryCount)
	}
	if len(rec.Secondaries) != rules.SecondaryCount {
		t.Errorf("rec %d: %d secondaries, want %d", rec.Index, len(rec.Secondaries), rules.SecondaryCount)
	}
	if !sort.IntsAreSorted(rec.Primaries) {
		t.Errorf("rec %d: primaries not ascending: %v", rec.Index, rec.Primaries)
	}
	seen := map[int]bool{}
	for _, n := range rec.Primaries {
		if n < 1 || n > rules.PrimaryMax {
			t.Errorf("rec %d: primary %d out of range 1-%d", rec.Index, n, rules.PrimaryMax)
		}
		if seen[n] {
			t.Errorf("rec %d: duplicate primary %d", rec.Index, n)
		}
		seen[n] = true
	}
	for _, n := range rec.Secondaries {
		if n < 1 || n > rules.SecondaryMax {
			t.Errorf("rec %d: secondary %d out of range 1-%d", rec.Index, n, rules.SecondaryMax)
		}
	}
	if rec.Score < 0 || rec.Score > 100 {
		t.Errorf("rec %d: score %v out of 0-100", rec.Index, rec.Score)
	}
	if rec.Reason == "" {
		t.Errorf("rec %d: empty reason", rec.Index)
	}
}

func TestGenerateStrategies(t *testing.T) {
	strategies := []string{"hot_first", "balanced", "random", "mixed", ""}
	for _, game := range models.AllGames {
		rules := game.Rules()
		for _, strategy := range strategies {
			t.Run(string(game)+"/"+strategy, func(t *testing.T) {
				recs := newTestGenerator(game).Generate(5, strategy)
				if len(recs) != 5 {
					t.Fatalf("Generate() = %d recommendations, want 5", len(recs))
				}
				for i, rec := range recs {
					if rec.Index != i+1 {
						t.Errorf("recs[%d].Index = %d, want %d", i, rec.Index, i+1)
					}
					checkRecommendation(t, rec, rules)
				}
			})
		}
	}
}

func TestGenerateStarDistribution(t *testing.T) {
	recs := newTestGenerator(models.GameSSQ).Generate(5, "hot_first")
	for _, rec := range recs {
		want := "⭐"
		if rec.Index <= 3 {
			want = "⭐⭐⭐"
		}
		if rec.Stars != want {
			t.Errorf("rec %d stars = %q, want %q", rec.Index, rec.Stars, want)
		}
	}
}

func TestHotFirstDrawsFromHotPool(t *testing.T) {
	recs := newTestGenerator(models.GameSSQ).Generate(5, "hot_first")
	hot := testResult().HotNumbers
	for _, rec := range recs {
		for _, n := range rec.Primaries {
			if !contains(hot, n) {
				t.Errorf("rec %d: primary %d not in hot pool %v", rec.Index, n, hot)
			}
		}
	}
}

func TestSecondariesPreferHotPool(t *testing.T) {
	recs := newTestGenerator(models.GameDLT).Generate(5, "balanced")
	hot := testSecondary().HotNumbers
	for _, rec := range recs {
		for _, n := range rec.Secondaries {
			if !contains(hot, n) {
				t.Errorf("rec %d: secondary %d not in hot pool %v", rec.Index, n, hot)
			}
		}
	}
}

func TestGenerateWithEmptyAnalysis(t *testing.T) {
	g := NewGenerator(models.GameSSQ, analysis.Result{}, analysis.SecondaryResult{}, rand.New(rand.NewSource(1)))
	recs := g.Generate(3, "hot_first")
	rules := models.GameSSQ.Rules()
	for _, rec := range recs {
		checkRecommendation(t, rec, rules)
	}
}

func TestTopN(t *testing.T) {
	recs := []Recommendation{
		{Index: 1, Score: 40},
		{Index: 2, Score: 90},
		{Index: 3, Score: 65},
		{Index: 4, Score: 90},
	}
	top := TopN(recs, 3)
	if len(top) != 3 {
		t.Fatalf("TopN() = %d, want 3", len(top))
	}
	// stable sort keeps index 2 ahead of the equal-scored index 4
	wantIdx := []int{2, 4, 3}
	for i, w := range wantIdx {
		if top[i].Index != w {
			t.Errorf("top[%d].Index = %d, want %d", i, top[i].Index, w)
		}
	}
	if recs[0].Index != 1 {
		t.Error("TopN mutated its input")
	}

	if got := TopN(recs, 10); len(got) != len(recs) {
		t.Errorf("TopN(len+): %d, want %d", len(got), len(recs))
	}
}

func TestScoreCapsAtHundred(t *testing.T) {
	g := newTestGenerator(models.GameSSQ)
	for i := 0; i < 50; i++ {
		rec := g.hotFirst(i + 1)
		if rec.Score > 100 {
			t.Fatalf("score %v exceeds cap", rec.Score)
		}
	}
}
