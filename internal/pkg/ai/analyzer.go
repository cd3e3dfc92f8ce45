package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/lottosage/lottosage/internal/pkg/config"
	"github.com/lottosage/lottosage/internal/pkg/models"
	"github.com/lottosage/lottosage/internal/pkg/recommend"
)

const summaryLimit = 500

// Analysis is the free-text report produced from a provider, plus a
// short summary suitable for a notification message.
type Analysis struct {
	GameType     models.GameType `json:"lottery_type"`
	AnalysisTime time.Time       `json:"analysis_time"`
	Summary      string          `json:"summary"`
	Details      string          `json:"details"`
}

// RecommendationSet is the structured output of the recommendation
// prompt.
type RecommendationSet struct {
	Recommendations []ProviderRecommendation `json:"recommendations"`
	TopIndexes      []int                    `json:"top_recommendations"`
	AnalysisSummary string                   `json:"analysis_summary"`
}

// ProviderRecommendation is one number set as returned by a provider.
type ProviderRecommendation struct {
	Index       int    `json:"index"`
	Primaries   []int  `json:"primaries"`
	Secondaries []int  `json:"secondaries"`
	Reason      string `json:"reason"`
	Stars       string `json:"stars"`
}

// Analyzer runs prompts against a primary provider, falling back to
// the backup when the primary is unconfigured or fails.
type Analyzer struct {
	primary Provider
	backup  Provider
	now     func() time.Time
}

// NewAnalyzer builds providers from config. Providers that are
// disabled or carry a placeholder key are skipped; a nil analyzer with
// an error is returned only when no provider at all is usable.
func NewAnalyzer(cfg config.AIConfig) (*Analyzer, error) {
	providers := make(map[string]Provider)
	for name, pc := range cfg.Providers {
		if !pc.Enabled {
			continue
		}
		if pc.APIKey == "" || strings.HasPrefix(pc.APIKey, "YOUR_") {
			slog.Warn("ai provider has no usable api key, skipping", "provider", name)
			continue
		}
		switch name {
		case "deepseek":
			providers[name] = NewDeepSeekClient(pc.APIKey, pc.Model, pc.Temperature, pc.BaseURL)
		case "gemini":
			providers[name] = NewGeminiClient(pc.APIKey, pc.Model, pc.Temperature, pc.BaseURL)
		default:
			slog.Warn("unknown ai provider in config, skipping", "provider", name)
		}
	}
	if len(providers) == 0 {
		return nil, fmt.Errorf("no usable ai provider configured")
	}

	a := &Analyzer{now: time.Now}
	a.primary = providers[cfg.Primary]
	for name, p := range providers {
		if name != cfg.Primary {
			a.backup = p
			break
		}
	}
	if a.primary == nil {
		a.primary = a.backup
		a.backup = nil
	}
	return a, nil
}

// Analyze produces the free-text report with the summary cut for
// notifications. Both providers failing is an error, never a panic.
func (a *Analyzer) Analyze(ctx context.Context, game models.GameType, records []models.DrawRecord) (*Analysis, error) {
	prompt := buildAnalysisPrompt(game, records)
	content, err := a.generate(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("ai analysis for %s: %w", game, err)
	}
	return &Analysis{
		GameType:     game,
		AnalysisTime: a.now(),
		Summary:      extractSummary(content),
		Details:      content,
	}, nil
}

// Recommend asks for count number sets based on a prior analysis.
func (a *Analyzer) Recommend(ctx context.Context, game models.GameType, analysis *Analysis, count int) (*RecommendationSet, error) {
	summary, details := "", ""
	if analysis != nil {
		summary, details = analysis.Summary, analysis.Details
	}
	prompt := buildRecommendationPrompt(game, summary, details, count)

	raw, err := a.generateJSON(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("ai recommendations for %s: %w", game, err)
	}
	var set RecommendationSet
	if err := json.Unmarshal(raw, &set); err != nil {
		return nil, fmt.Errorf("decode ai recommendations: %w", err)
	}
	return &set, nil
}

func (a *Analyzer) generate(ctx context.Context, prompt string) (string, error) {
	content, err := a.primary.GenerateContent(ctx, prompt)
	if err == nil {
		return content, nil
	}
	if a.backup == nil {
		return "", err
	}
	slog.Warn("primary ai provider failed, trying backup", "primary", a.primary.Name(), "backup", a.backup.Name(), "error", err)
	return a.backup.GenerateContent(ctx, prompt)
}

func (a *Analyzer) generateJSON(ctx context.Context, prompt string) (json.RawMessage, error) {
	raw, err := a.primary.GenerateJSON(ctx, prompt)
	if err == nil {
		return raw, nil
	}
	if a.backup == nil {
		return nil, err
	}
	slog.Warn("primary ai provider failed, trying backup", "primary", a.primary.Name(), "backup", a.backup.Name(), "error", err)
	return a.backup.GenerateJSON(ctx, prompt)
}

// extractSummary cuts the report for the notification header,
// preferring a paragraph boundary past the halfway point.
func extractSummary(content string) string {
	runes := []rune(content)
	if len(runes) <= summaryLimit {
		return content
	}
	head := string(runes[:summaryLimit])
	if pos := strings.LastIndex(head, "\n"); pos > summaryLimit/2 {
		return head[:pos] + "..."
	}
	return head + "..."
}

// ConvertRecommendations turns provider output into scored
// recommendations, dropping sets that violate the game's ball rules.
// Fewer than minValid usable sets rejects the batch so the statistical
// generator stays authoritative.
func ConvertRecommendations(set *RecommendationSet, game models.GameType, minValid int) ([]recommend.Recommendation, error) {
	if set == nil {
		return nil, fmt.Errorf("no ai recommendation set")
	}
	rules := game.Rules()
	out := make([]recommend.Recommendation, 0, len(set.Recommendations))
	for _, pr := range set.Recommendations {
		if !validBalls(pr.Primaries, rules.PrimaryCount, rules.PrimaryMax) ||
			!validBalls(pr.Secondaries, rules.SecondaryCount, rules.SecondaryMax) {
			slog.Warn("dropping invalid ai recommendation", "game", game, "index", pr.Index)
			continue
		}
		stars := pr.Stars
		if stars == "" {
			stars = "⭐"
		}
		sort.Ints(pr.Primaries)
		sort.Ints(pr.Secondaries)
		out = append(out, recommend.Recommendation{
			Index:       pr.Index,
			Primaries:   pr.Primaries,
			Secondaries: pr.Secondaries,
			Stars:       stars,
			Reason:      pr.Reason,
			Score:       float64(strings.Count(stars, "⭐") * 30),
		})
	}
	if len(out) < minValid {
		return nil, fmt.Errorf("only %d of %d ai recommendations valid, want at least %d", len(out), len(set.Recommendations), minValid)
	}
	return out, nil
}

func validBalls(balls []int, count, max int) bool {
	if len(balls) != count {
		return false
	}
	seen := make(map[int]bool, count)
	for _, b := range balls {
		if b < 1 || b > max || seen[b] {
			return false
		}
		seen[b] = true
	}
	return true
}
