package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lottosage/lottosage/internal/pkg/ai"
	"github.com/lottosage/lottosage/internal/pkg/analysis"
	"github.com/lottosage/lottosage/internal/pkg/cache"
	"github.com/lottosage/lottosage/internal/pkg/config"
	"github.com/lottosage/lottosage/internal/pkg/data"
	"github.com/lottosage/lottosage/internal/pkg/fetch"
	"github.com/lottosage/lottosage/internal/pkg/models"
	"github.com/lottosage/lottosage/internal/pkg/notify"
	"github.com/lottosage/lottosage/internal/pkg/recommend"
	"github.com/lottosage/lottosage/internal/pkg/storage"
)

const defaultConfigPath = "configs/config.yaml"

// At least this many valid AI sets or the statistical generator stays
// authoritative.
const minValidAIRecommendations = 5

type cliConfig struct {
	configPath string
	lottery    string
	periods    int
	testMode   bool
}

func main() {
	if err := run(); err != nil {
		slog.Error("lottosage failed", "error", err)
		os.Exit(1)
	}
}

func parseFlags() cliConfig {
	var cfg cliConfig

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = defaultConfigPath
	}

	flag.StringVar(&cfg.configPath, "config", configPath, "path to YAML config")
	flag.StringVar(&cfg.lottery, "lottery", "", "lottery type: ssq or dlt (required)")
	flag.IntVar(&cfg.periods, "periods", 0, "analysis window size (default from config)")
	flag.BoolVar(&cfg.testMode, "test", false, "print the report instead of sending it")
	flag.Parse()

	return cfg
}

func run() error {
	cli := parseFlags()

	game := models.GameType(cli.lottery)
	if !game.Valid() {
		return fmt.Errorf("-lottery must be one of ssq, dlt; got %q", cli.lottery)
	}

	slog.Info("loading config", "path", cli.configPath)
	cfg, err := config.Load(cli.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	periods := cli.periods
	if periods <= 0 {
		periods = cfg.Data.Periods
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := buildStore(cfg.Data)
	if err != nil {
		return fmt.Errorf("build cache store: %w", err)
	}
	defer closeStore()

	history, err := data.NewHistoryFile(cfg.Data.HistoryDir)
	if err != nil {
		return fmt.Errorf("build history file: %w", err)
	}

	client := fetch.NewClient(cfg.Fetch)
	orch := data.NewOrchestrator(client, store, history, cfg.Data, cfg.Fetch.Sources, cfg.Games)

	slog.Info("updating draw history", "game", game, "periods", periods)
	orch.UpdateToLatest(ctx, game)

	records, err := orch.GetAnalysisData(ctx, game, periods)
	if err != nil {
		return fmt.Errorf("get analysis data: %w", err)
	}
	slog.Info("analysis window ready", "game", game, "records", len(records))

	previous, err := orch.PreviousDrawInfo(ctx, game)
	if err != nil {
		slog.Warn("previous draw unavailable", "game", game, "error", err)
	}

	analyzer := analysis.New(game, records)
	stats := analyzer.Analyze()
	secondary := analyzer.AnalyzeSecondary()

	aiAnalysis, recs := runAI(ctx, cfg.AI, game, records, cfg.Recommend.Count)
	if recs == nil {
		rng := rand.New(rand.NewSource(time.Now().UnixNano()))
		gen := recommend.NewGenerator(game, stats, secondary, rng)
		recs = gen.Generate(cfg.Recommend.Count, cfg.Recommend.Strategy)
	}
	top := recommend.TopN(recs, cfg.Recommend.TopCount)

	report := notify.NewMessageBuilder(game).Build(previous, stats, aiAnalysis, recs, top)

	if cli.testMode {
		fmt.Println(report)
	} else if err := sendReport(ctx, cfg.Notify, report); err != nil {
		return err
	}

	archiveDraws(ctx, cfg.Storage, records, orch, game)

	if err := store.ClearExpired(); err != nil {
		slog.Warn("cache sweep failed", "error", err)
	}
	return nil
}

// buildStore picks Redis when an address is configured, the file store
// otherwise.
func buildStore(cfg config.DataConfig) (cache.Store, func(), error) {
	if cfg.Redis.Addr != "" {
		rs, err := cache.NewRedisStore(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.TTL())
		if err != nil {
			return nil, nil, err
		}
		slog.Info("using redis cache store", "addr", cfg.Redis.Addr)
		return rs, func() { rs.Close() }, nil
	}
	fs, err := cache.NewFileStore(cfg.CacheDir, cfg.TTL())
	if err != nil {
		return nil, nil, err
	}
	slog.Info("using file cache store", "dir", cfg.CacheDir)
	return fs, func() {}, nil
}

// runAI produces the AI analysis and, when enough valid sets come
// back, AI recommendations. Any failure degrades to nil so the
// statistical pipeline carries the report alone.
func runAI(ctx context.Context, cfg config.AIConfig, game models.GameType, records []models.DrawRecord, count int) (*ai.Analysis, []recommend.Recommendation) {
	analyzer, err := ai.NewAnalyzer(cfg)
	if err != nil {
		slog.Warn("ai disabled", "reason", err)
		return nil, nil
	}

	aiAnalysis, err := analyzer.Analyze(ctx, game, records)
	if err != nil {
		slog.Warn("ai analysis failed", "game", game, "error", err)
		return nil, nil
	}

	set, err := analyzer.Recommend(ctx, game, aiAnalysis, count)
	if err != nil {
		slog.Warn("ai recommendations failed, falling back to statistical generator", "game", game, "error", err)
		return aiAnalysis, nil
	}
	recs, err := ai.ConvertRecommendations(set, game, minValidAIRecommendations)
	if err != nil {
		slog.Warn("ai recommendations rejected, falling back to statistical generator", "game", game, "error", err)
		return aiAnalysis, nil
	}
	return aiAnalysis, recs
}

func sendReport(ctx context.Context, cfg config.NotifyConfig, report string) error {
	sent := false

	if cfg.WeChat.WebhookURL != "" {
		if err := notify.NewWeChatSender(cfg.WeChat.WebhookURL).SendMarkdown(ctx, report); err != nil {
			return fmt.Errorf("send wechat report: %w", err)
		}
		slog.Info("wechat report sent")
		sent = true
	}

	if cfg.Telegram.BotToken != "" && cfg.Telegram.ChatID != 0 {
		tn, err := notify.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID)
		if err != nil {
			return fmt.Errorf("init telegram notifier: %w", err)
		}
		if err := tn.SendReport(ctx, report); err != nil {
			return fmt.Errorf("send telegram report: %w", err)
		}
		slog.Info("telegram report sent")
		sent = true
	}

	if !sent {
		slog.Warn("no notification channel configured, printing report")
		fmt.Println(report)
	}
	return nil
}

// archiveDraws writes the analyzed window plus the latest draw to
// Postgres when a DSN is configured. Archive failures never fail the
// run.
func archiveDraws(ctx context.Context, cfg config.StorageConfig, records []models.DrawRecord, orch *data.Orchestrator, game models.GameType) {
	if cfg.Postgres.DSN == "" {
		return
	}
	archive, err := storage.NewDrawArchive(cfg.Postgres.DSN)
	if err != nil {
		slog.Warn("draw archive unavailable", "error", err)
		return
	}
	defer archive.Close()

	toArchive := records
	if latest, err := orch.FetchLatest(ctx, game); err == nil {
		rec := *latest
		// the bulk table omits pool figures; the detail page has them
		if rec.PoolAmount == 0 {
			if full, err := orch.FetchSingle(ctx, game, rec.Period); err == nil {
				rec = *full
			}
		}
		toArchive = append([]models.DrawRecord{rec}, records...)
	}

	before, err := archive.LatestArchived(ctx, game)
	if err != nil {
		slog.Warn("draw archive lookup failed", "game", game, "error", err)
	}
	if err := archive.ArchiveDraws(ctx, toArchive); err != nil {
		slog.Warn("draw archive write failed", "error", err)
		return
	}
	if len(toArchive) > 0 && toArchive[0].Period != before {
		slog.Info("draw archive advanced", "game", game, "from", before, "to", toArchive[0].Period)
	}
}
