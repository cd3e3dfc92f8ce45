package data

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/lottosage/lottosage/internal/pkg/cache"
	"github.com/lottosage/lottosage/internal/pkg/config"
	"github.com/lottosage/lottosage/internal/pkg/models"
	"github.com/lottosage/lottosage/internal/pkg/parse"
)

// Extra draws requested by GetAnalysisData beyond what the caller asked
// for, so the window survives dropping the most recent draw.
const analysisOverfetch = 5

// Fetcher retrieves one URL. *fetch.Client satisfies it; tests supply
// their own.
type Fetcher interface {
	Get(ctx context.Context, rawURL string) ([]byte, error)
}

// Orchestrator coordinates fetching, parsing and caching of draw data.
// All of its methods degrade to stored data on network failure; none of
// them panic on unavailability.
type Orchestrator struct {
	fetcher Fetcher
	store   cache.Store
	history *HistoryFile
	sources map[string]config.SourceConfig
	games   map[string]config.GameConfig
	window  int
	ttl     time.Duration
	now     func() time.Time
}

func NewOrchestrator(fetcher Fetcher, store cache.Store, history *HistoryFile, cfg config.DataConfig, sources map[string]config.SourceConfig, games map[string]config.GameConfig) *Orchestrator {
	return &Orchestrator{
		fetcher: fetcher,
		store:   store,
		history: history,
		sources: sources,
		games:   games,
		window:  cfg.Window,
		ttl:     cfg.TTL(),
		now:     time.Now,
	}
}

func (o *Orchestrator) source(game models.GameType) (config.SourceConfig, error) {
	src, ok := o.sources[string(game)]
	if !ok {
		return config.SourceConfig{}, fmt.Errorf("no source configured for game %q", game)
	}
	return src, nil
}

func (o *Orchestrator) historyFresh(h *models.RollingHistory) bool {
	return h != nil && o.now().Sub(h.UpdatedAt) < o.ttl
}

// FetchData returns up to n of the most recent draws, newest first.
// A fresh and deep enough rolling history answers directly; otherwise
// the history is topped up from the network, and only when that still
// falls short is the full range re-fetched. On total network failure
// any stored history is returned in degraded mode.
func (o *Orchestrator) FetchData(ctx context.Context, game models.GameType, n int) ([]models.DrawRecord, error) {
	if !game.Valid() {
		return nil, fmt.Errorf("unsupported game type %q", game)
	}
	if n <= 0 {
		return nil, fmt.Errorf("period count must be positive, got %d", n)
	}

	hist := o.history.Load(game)
	if o.historyFresh(hist) && hist.Len() >= n {
		return hist.Data[:n], nil
	}

	if updated := o.UpdateToLatest(ctx, game); updated.Len() >= n {
		return updated.Data[:n], nil
	}

	records, err := o.fetchBulk(ctx, game, n)
	if err == nil {
		h, herr := models.NewRollingHistory(records, o.now())
		if herr != nil {
			return nil, fmt.Errorf("fetched records unordered: %w", herr)
		}
		if serr := o.history.Save(game, h); serr != nil {
			slog.Warn("history save failed", "game", game, "error", serr)
		}
		if len(records) > n {
			records = records[:n]
		}
		return records, nil
	}

	if hist.Len() > 0 {
		slog.Warn("network unavailable, serving stale history", "game", game, "records", hist.Len(), "error", err)
		if hist.Len() > n {
			return hist.Data[:n], nil
		}
		return hist.Data, nil
	}
	return nil, fmt.Errorf("fetch %s draw data: %w", game, err)
}

// UpdateToLatest brings the rolling history forward by at most one
// draw. It never fails: on any error the prior history (possibly nil)
// is returned unchanged, so repeated calls are idempotent once the
// head matches the published latest period.
func (o *Orchestrator) UpdateToLatest(ctx context.Context, game models.GameType) *models.RollingHistory {
	prior := o.history.Load(game)

	latest, err := o.latestPeriod(ctx, game)
	if err != nil {
		slog.Warn("latest period lookup failed", "game", game, "error", err)
		return prior
	}
	if head := prior.Head(); head != nil && head.Period == latest {
		return prior
	}

	records, err := o.fetchRange(ctx, game, latest, latest)
	if err != nil {
		slog.Warn("latest draw fetch failed", "game", game, "period", latest, "error", err)
		return prior
	}
	rec := records[0]

	if prior.Len() == 0 {
		h, err := models.NewRollingHistory([]models.DrawRecord{rec}, o.now())
		if err != nil {
			slog.Warn("history init failed", "game", game, "error", err)
			return prior
		}
		if err := o.history.Save(game, h); err != nil {
			slog.Warn("history save failed", "game", game, "error", err)
			return prior
		}
		return h
	}

	updated, err := prior.Prepend(rec, o.window, o.now())
	if err != nil {
		slog.Warn("history prepend rejected", "game", game, "period", rec.Period, "error", err)
		return prior
	}
	if err := o.history.Save(game, updated); err != nil {
		slog.Warn("history save failed", "game", game, "error", err)
		return prior
	}
	return updated
}

// FetchLatest returns the most recent draw, serving a valid cached copy
// before touching the network. The fetched draw refreshes the cache.
func (o *Orchestrator) FetchLatest(ctx context.Context, game models.GameType) (*models.DrawRecord, error) {
	if !game.Valid() {
		return nil, fmt.Errorf("unsupported game type %q", game)
	}
	if o.store.IsValid(game, cache.KindLatest) {
		var rec models.DrawRecord
		if ok, err := o.store.Load(game, cache.KindLatest, &rec); ok && err == nil {
			return &rec, nil
		}
	}

	latest, err := o.latestPeriod(ctx, game)
	if err != nil {
		return o.staleLatest(game, err)
	}
	records, err := o.fetchRange(ctx, game, latest, latest)
	if err != nil {
		return o.staleLatest(game, err)
	}
	rec := records[0]
	if err := o.store.Save(game, cache.KindLatest, rec); err != nil {
		slog.Warn("latest cache save failed", "game", game, "error", err)
	}
	return &rec, nil
}

// staleLatest falls back to an expired cache entry when the network is
// down entirely.
func (o *Orchestrator) staleLatest(game models.GameType, cause error) (*models.DrawRecord, error) {
	var rec models.DrawRecord
	if ok, err := o.store.Load(game, cache.KindLatest, &rec); ok && err == nil {
		slog.Warn("network unavailable, serving stale latest draw", "game", game, "period", rec.Period, "error", cause)
		return &rec, nil
	}
	return nil, fmt.Errorf("fetch latest %s draw: %w", game, cause)
}

// GetAnalysisData returns n draws for analysis, excluding the most
// recent draw so recommendations never key off the draw they are
// compared against.
func (o *Orchestrator) GetAnalysisData(ctx context.Context, game models.GameType, n int) ([]models.DrawRecord, error) {
	all, err := o.FetchData(ctx, game, n+analysisOverfetch)
	if err != nil {
		return nil, err
	}
	if len(all) < 2 {
		return nil, fmt.Errorf("not enough %s history for analysis: %d draws", game, len(all))
	}
	end := n + 1
	if end > len(all) {
		end = len(all)
	}
	return all[1:end], nil
}

// InitializeData seeds the rolling history when it is empty. An
// existing history is returned as-is regardless of freshness.
func (o *Orchestrator) InitializeData(ctx context.Context, game models.GameType, n int) ([]models.DrawRecord, error) {
	if !game.Valid() {
		return nil, fmt.Errorf("unsupported game type %q", game)
	}
	if hist := o.history.Load(game); hist.Len() > 0 {
		return hist.Data, nil
	}
	records, err := o.fetchBulk(ctx, game, n)
	if err != nil {
		return nil, fmt.Errorf("initialize %s history: %w", game, err)
	}
	h, err := models.NewRollingHistory(records, o.now())
	if err != nil {
		return nil, fmt.Errorf("fetched records unordered: %w", err)
	}
	if err := o.history.Save(game, h); err != nil {
		return nil, fmt.Errorf("save %s history: %w", game, err)
	}
	return h.Data, nil
}

// DrawSummary is the user-facing digest of the most recent draw.
type DrawSummary struct {
	GameName string          `json:"game_name"`
	GameType models.GameType `json:"game_type"`
	Period   string          `json:"period"`
	Date     string          `json:"date"`
	OpenTime string          `json:"open_time"`
	Numbers  string          `json:"numbers"`
	DrawTime string          `json:"draw_time"`
}

// PreviousDrawInfo returns the most recent draw formatted for reports.
func (o *Orchestrator) PreviousDrawInfo(ctx context.Context, game models.GameType) (*DrawSummary, error) {
	rec, err := o.FetchLatest(ctx, game)
	if err != nil {
		return nil, err
	}
	name := rec.GameType.Rules().DisplayName
	drawTime := ""
	if gc, ok := o.games[string(game)]; ok {
		if gc.Name != "" {
			name = gc.Name
		}
		drawTime = gc.DrawTime
	}
	return &DrawSummary{
		GameName: name,
		GameType: rec.GameType,
		Period:   rec.Period,
		Date:     rec.Date,
		OpenTime: rec.OpenTime,
		Numbers:  rec.DisplayNumbers(),
		DrawTime: drawTime,
	}, nil
}

// FetchSingle backfills one draw from its detail page. Detail pages
// carry amounts the bulk table omits.
func (o *Orchestrator) FetchSingle(ctx context.Context, game models.GameType, period string) (*models.DrawRecord, error) {
	src, err := o.source(game)
	if err != nil {
		return nil, err
	}
	body, err := o.fetcher.Get(ctx, src.DetailURL+period+".shtml")
	if err != nil {
		return nil, fmt.Errorf("fetch %s detail page %s: %w", game, period, err)
	}
	return parse.ParseSingle(body, game, period)
}

// latestPeriod scrapes the landing page for the newest published
// period number.
func (o *Orchestrator) latestPeriod(ctx context.Context, game models.GameType) (string, error) {
	src, err := o.source(game)
	if err != nil {
		return "", err
	}
	body, err := o.fetcher.Get(ctx, src.LandingURL)
	if err != nil {
		return "", fmt.Errorf("fetch %s landing page: %w", game, err)
	}
	return parse.LatestPeriod(body, game)
}

// fetchBulk retrieves the n most recent draws ending at the published
// latest period.
func (o *Orchestrator) fetchBulk(ctx context.Context, game models.GameType, n int) ([]models.DrawRecord, error) {
	latest, err := o.latestPeriod(ctx, game)
	if err != nil {
		return nil, err
	}
	end, err := strconv.ParseInt(latest, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("latest period %q not numeric: %w", latest, err)
	}
	start := end - int64(n) + 1
	if start < 1 {
		start = 1
	}
	return o.fetchRange(ctx, game, strconv.FormatInt(start, 10), latest)
}

// fetchRange retrieves and parses the inclusive start..end history
// table. An empty parse is an error; callers rely on records[0].
func (o *Orchestrator) fetchRange(ctx context.Context, game models.GameType, start, end string) ([]models.DrawRecord, error) {
	src, err := o.source(game)
	if err != nil {
		return nil, err
	}
	url := fmt.Sprintf("%s?start=%s&end=%s", src.HistoryURL, start, end)
	body, err := o.fetcher.Get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("fetch %s history %s-%s: %w", game, start, end, err)
	}
	records, err := parse.ParseBulk(body, game)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("no %s records in history response %s-%s", game, start, end)
	}
	return records, nil
}
