package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Data      DataConfig            `yaml:"data"`
	Fetch     FetchConfig           `yaml:"fetch"`
	AI        AIConfig              `yaml:"ai"`
	Recommend RecommendConfig       `yaml:"recommendation"`
	Notify    NotifyConfig          `yaml:"notify"`
	Storage   StorageConfig         `yaml:"storage"`
	Games     map[string]GameConfig `yaml:"games"`
}

type DataConfig struct {
	HistoryDir string      `yaml:"history_dir"`
	CacheDir   string      `yaml:"cache_dir"`
	TTLHours   int         `yaml:"ttl_hours"`
	Periods    int         `yaml:"periods"`
	Window     int         `yaml:"window"`
	Redis      RedisConfig `yaml:"redis"`
}

// RedisConfig selects the Redis cache backend when Addr is set;
// otherwise the file backend under CacheDir is used.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type FetchConfig struct {
	RequestDelayMS int                     `yaml:"request_delay_ms"`
	JitterMS       int                     `yaml:"jitter_ms"`
	RetryDelayMS   int                     `yaml:"retry_delay_ms"`
	MaxRetries     int                     `yaml:"max_retries"`
	TimeoutSeconds int                     `yaml:"timeout_seconds"`
	UserAgent      string                  `yaml:"user_agent"`
	Sources        map[string]SourceConfig `yaml:"sources"`
}

// SourceConfig holds the remote endpoints for one game type.
type SourceConfig struct {
	HistoryURL string `yaml:"history_url"` // bulk table, takes ?start=&end=
	LandingURL string `yaml:"landing_url"` // index page linking the latest period
	DetailURL  string `yaml:"detail_url"`  // per-period page, "<detail_url><period>.shtml"
}

type AIConfig struct {
	Primary   string                    `yaml:"primary_provider"`
	Providers map[string]ProviderConfig `yaml:"providers"`
}

type ProviderConfig struct {
	Enabled     bool    `yaml:"enabled"`
	APIKey      string  `yaml:"api_key"`
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	BaseURL     string  `yaml:"base_url"`
}

type RecommendConfig struct {
	Count    int    `yaml:"count"`
	TopCount int    `yaml:"top_count"`
	Strategy string `yaml:"strategy"`
}

type NotifyConfig struct {
	WeChat   WeChatConfig   `yaml:"wechat"`
	Telegram TelegramConfig `yaml:"telegram"`
}

type WeChatConfig struct {
	WebhookURL string `yaml:"webhook_url"`
}

type TelegramConfig struct {
	BotToken string `yaml:"bot_token"`
	ChatID   int64  `yaml:"chat_id"`
}

type StorageConfig struct {
	Postgres PostgresConfig `yaml:"postgres"`
}

type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

type GameConfig struct {
	Name     string `yaml:"name"`
	DrawTime string `yaml:"draw_time"`
}

// Load reads a YAML config file, expanding ${VAR} references from the
// environment. A .env file in the working directory is honored when present.
func Load(configPath string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	expanded := os.Expand(string(data), os.Getenv)

	var config Config
	if err := yaml.Unmarshal([]byte(expanded), &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	config.applyDefaults()

	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.Data.HistoryDir == "" {
		c.Data.HistoryDir = "./data/history"
	}
	if c.Data.CacheDir == "" {
		c.Data.CacheDir = "./data/cache"
	}
	if c.Data.TTLHours <= 0 {
		c.Data.TTLHours = 24
	}
	if c.Data.Periods <= 0 {
		c.Data.Periods = 30
	}
	if c.Data.Window <= 0 {
		c.Data.Window = 30
	}
	if c.Fetch.RequestDelayMS <= 0 {
		c.Fetch.RequestDelayMS = 2000
	}
	if c.Fetch.JitterMS <= 0 {
		c.Fetch.JitterMS = 1000
	}
	if c.Fetch.RetryDelayMS <= 0 {
		c.Fetch.RetryDelayMS = 3000
	}
	if c.Fetch.MaxRetries <= 0 {
		c.Fetch.MaxRetries = 3
	}
	if c.Fetch.TimeoutSeconds <= 0 {
		c.Fetch.TimeoutSeconds = 30
	}
	if c.Fetch.UserAgent == "" {
		c.Fetch.UserAgent = defaultUserAgent
	}
	if c.Fetch.Sources == nil {
		c.Fetch.Sources = map[string]SourceConfig{}
	}
	for game, def := range defaultSources {
		cur := c.Fetch.Sources[game]
		if cur.HistoryURL == "" {
			cur.HistoryURL = def.HistoryURL
		}
		if cur.LandingURL == "" {
			cur.LandingURL = def.LandingURL
		}
		if cur.DetailURL == "" {
			cur.DetailURL = def.DetailURL
		}
		c.Fetch.Sources[game] = cur
	}
	if c.Recommend.Count <= 0 {
		c.Recommend.Count = 5
	}
	if c.Recommend.TopCount <= 0 {
		c.Recommend.TopCount = 3
	}
	if c.Recommend.Strategy == "" {
		c.Recommend.Strategy = "mixed"
	}
	if c.AI.Primary == "" {
		c.AI.Primary = "deepseek"
	}
	if c.Games == nil {
		c.Games = map[string]GameConfig{}
	}
	for game, def := range defaultGames {
		cur := c.Games[game]
		if cur.Name == "" {
			cur.Name = def.Name
		}
		if cur.DrawTime == "" {
			cur.DrawTime = def.DrawTime
		}
		c.Games[game] = cur
	}
}

// TTL returns the cache validity duration.
func (d DataConfig) TTL() time.Duration {
	return time.Duration(d.TTLHours) * time.Hour
}

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

var defaultSources = map[string]SourceConfig{
	"ssq": {
		HistoryURL: "https://datachart.500.com/ssq/history/newinc/history.php",
		LandingURL: "https://kaijiang.500.com/shtml/ssq/",
		DetailURL:  "https://kaijiang.500.com/shtml/ssq/",
	},
	"dlt": {
		HistoryURL: "https://datachart.500.com/dlt/history/newinc/history.php",
		LandingURL: "https://kaijiang.500.com/shtml/dlt/",
		DetailURL:  "https://kaijiang.500.com/shtml/dlt/",
	},
}

var defaultGames = map[string]GameConfig{
	"ssq": {Name: "双色球", DrawTime: "21:15"},
	"dlt": {Name: "大乐透", DrawTime: "21:25"},
}
