package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Database  DatabaseConfig  `mapstructure:"database"`
	Analytics AnalyticsConfig `mapstructure:"analytics"`
	Anthropic AnthropicConfig `mapstructure:"anthropic"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
	Scoring   ScoringConfig   `mapstructure:"scoring"`
	Curation  CurationConfig  `mapstructure:"curation"`
	Hooks     HooksConfig     `mapstructure:"hooks"`
	Realtime  RealtimeConfig  `mapstructure:"realtime"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Threads   ThreadsConfig   `mapstructure:"threads"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Server    ServerConfig    `mapstructure:"server"`
}

// DatabaseConfig holds plan store connection settings
type DatabaseConfig struct {
	Driver string `mapstructure:"driver"` // sqlite
	DSN    string `mapstructure:"dsn"`    // Connection string
}

// AnalyticsConfig holds ClickHouse connection settings for the analytics store
type AnalyticsConfig struct {
	Addr     []string `mapstructure:"addr"`
	Database string   `mapstructure:"database"`
	Username string   `mapstructure:"username"`
	Password string   `mapstructure:"password"`
	Debug    bool     `mapstructure:"debug"`
}

// AnthropicConfig holds Claude API settings
type AnthropicConfig struct {
	APIKey      string        `mapstructure:"api_key"`
	Model       string        `mapstructure:"model"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Temperature float64       `mapstructure:"temperature"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// PipelineConfig holds generation batch settings
type PipelineConfig struct {
	TargetPostCount         int      `mapstructure:"target_post_count"`
	ScheduleStartHour       int      `mapstructure:"schedule_start_hour"`
	ScheduleIntervalMinutes int      `mapstructure:"schedule_interval_minutes"`
	EnforcedTheme           string   `mapstructure:"enforced_theme"`
	ThemeKeywords           []string `mapstructure:"theme_keywords"` // allowlist for generated themes
	Themes                  []string `mapstructure:"themes"`         // theme catalog for batch selection
}

// ScoringConfig holds tier/evaluation threshold settings.
// The literal numbers are tuned policy, not invariants; keep them here.
type ScoringConfig struct {
	PriorityGenreKeywords []string `mapstructure:"priority_genre_keywords"`

	// Priority-genre posts are tiered on impressions alone
	PriorityTierS int `mapstructure:"priority_tier_s"`
	PriorityTierA int `mapstructure:"priority_tier_a"`
	PriorityTierB int `mapstructure:"priority_tier_b"`

	// Standard posts combine impressions and followers delta
	TierSImpressions int `mapstructure:"tier_s_impressions"`
	TierSDelta       int `mapstructure:"tier_s_delta"`
	TierAImpressions int `mapstructure:"tier_a_impressions"`
	TierADelta       int `mapstructure:"tier_a_delta"`
	TierAAltDelta    int `mapstructure:"tier_a_alt_delta"`
	TierBImpressions int `mapstructure:"tier_b_impressions"`
	TierBDelta       int `mapstructure:"tier_b_delta"`

	// Evaluation label bands
	WinImpressions  int `mapstructure:"win_impressions"`
	WinDelta        int `mapstructure:"win_delta"`
	NicheDelta      int `mapstructure:"niche_delta"`
	NicheImpression int `mapstructure:"niche_impression"`
	GemDelta        int `mapstructure:"gem_delta"`
	FailImpression  int `mapstructure:"fail_impression"`
}

// CurationConfig holds exemplar sampling settings
type CurationConfig struct {
	SampleSize         int    `mapstructure:"sample_size"`
	MaxPerAccountTier  int    `mapstructure:"max_per_account_tier"`
	LookbackDays       int    `mapstructure:"lookback_days"`
	FlagshipAccount    string `mapstructure:"flagship_account"`
	FlagshipMinLength  int    `mapstructure:"flagship_min_length"`
	FlagshipSampleSize int    `mapstructure:"flagship_sample_size"`
}

// HookBucket is one weighted group of hook templates
type HookBucket struct {
	Type      string   `mapstructure:"type"`
	Weight    float64  `mapstructure:"weight"`
	Templates []string `mapstructure:"templates"`
}

// HooksConfig holds the weighted hook pattern settings
type HooksConfig struct {
	Buckets     []HookBucket `mapstructure:"buckets"`
	ForcedCount int          `mapstructure:"forced_count"` // first N themes of a batch
	ForcedType  string       `mapstructure:"forced_type"`
}

// RealtimeFeed is a single RSS source for trend headlines
type RealtimeFeed struct {
	Name string `mapstructure:"name"`
	URL  string `mapstructure:"url"`
}

// RealtimeConfig holds trend headline settings for forced authority hooks
type RealtimeConfig struct {
	Enabled      bool           `mapstructure:"enabled"`
	Feeds        []RealtimeFeed `mapstructure:"feeds"`
	MaxHeadlines int            `mapstructure:"max_headlines"`
}

// ThreadsConfig holds Threads Graph API posting settings.
// PostingEnabled=false keeps the worker in dry-run mode.
type ThreadsConfig struct {
	PostingEnabled bool          `mapstructure:"posting_enabled"`
	BaseURL        string        `mapstructure:"base_url"`
	AccountID      string        `mapstructure:"account_id"`
	AccessToken    string        `mapstructure:"access_token"`
	ReplyDelay     time.Duration `mapstructure:"reply_delay"`
	Timeout        time.Duration `mapstructure:"timeout"`
}

// SchedulerConfig holds cron settings for the daemon
type SchedulerConfig struct {
	GenerateCron string `mapstructure:"generate_cron"`
	WorkerCron   string `mapstructure:"worker_cron"`
}

// RateLimitConfig holds rate limiting settings
type RateLimitConfig struct {
	AnthropicRequestsPerMinute int `mapstructure:"anthropic_requests_per_minute"`
	AnalyticsRequestsPerSecond int `mapstructure:"analytics_requests_per_second"`
	FeedRequestsPerSecond      int `mapstructure:"feed_requests_per_second"`
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json or console
	Output string `mapstructure:"output"` // stdout or file path
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port string `mapstructure:"port"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	// Load .env file if present (ignore errors if not found)
	_ = godotenv.Load()
	_ = godotenv.Load(".env.local")

	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Look for config in current directory and configs folder
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")

		// Also check user's home directory
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".threads-agent"))
		}
	}

	// Environment variables
	v.SetEnvPrefix("THREADS")
	v.AutomaticEnv()

	// Explicit bindings for nested keys (Viper doesn't auto-bind underscored nested keys)
	v.BindEnv("anthropic.api_key", "THREADS_ANTHROPIC_API_KEY")
	v.BindEnv("anthropic.model", "THREADS_ANTHROPIC_MODEL")
	v.BindEnv("database.driver", "THREADS_DATABASE_DRIVER")
	v.BindEnv("database.dsn", "THREADS_DATABASE_DSN")
	v.BindEnv("analytics.database", "THREADS_ANALYTICS_DATABASE")
	v.BindEnv("analytics.username", "THREADS_ANALYTICS_USERNAME")
	v.BindEnv("analytics.password", "THREADS_ANALYTICS_PASSWORD")
	v.BindEnv("server.port", "THREADS_SERVER_PORT")
	v.BindEnv("curation.flagship_account", "THREADS_CURATION_FLAGSHIP_ACCOUNT")
	v.BindEnv("threads.posting_enabled", "THREADS_POSTING_ENABLED")
	v.BindEnv("threads.account_id", "THREADS_ACCOUNT_ID")
	v.BindEnv("threads.access_token", "THREADS_ACCESS_TOKEN")

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if len(config.Hooks.Buckets) == 0 {
		config.Hooks.Buckets = DefaultHookBuckets()
	}
	if len(config.Pipeline.Themes) == 0 {
		config.Pipeline.Themes = DefaultThemes()
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Database defaults
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "./data/threads.db")

	// Analytics store defaults
	v.SetDefault("analytics.addr", []string{"127.0.0.1:9000"})
	v.SetDefault("analytics.database", "autostudio_threads")
	v.SetDefault("analytics.username", "default")
	v.SetDefault("analytics.password", "")
	v.SetDefault("analytics.debug", false)

	// Anthropic defaults
	v.SetDefault("anthropic.model", "claude-sonnet-4-20250514")
	v.SetDefault("anthropic.max_tokens", 8000)
	v.SetDefault("anthropic.temperature", 0.9)
	v.SetDefault("anthropic.timeout", "120s")

	// Pipeline defaults
	v.SetDefault("pipeline.target_post_count", 5)
	v.SetDefault("pipeline.schedule_start_hour", 7)
	v.SetDefault("pipeline.schedule_interval_minutes", 90)
	v.SetDefault("pipeline.enforced_theme", "AI活用で作業時間を削減する")
	v.SetDefault("pipeline.theme_keywords", []string{"ai", "chatgpt", "claude", "llm", "threads", "生成", "自動化"})

	// Scoring defaults: tuned against observed growth metrics, override freely
	v.SetDefault("scoring.priority_genre_keywords", []string{"ai", "生成ai", "ai活用"})
	v.SetDefault("scoring.priority_tier_s", 30000)
	v.SetDefault("scoring.priority_tier_a", 15000)
	v.SetDefault("scoring.priority_tier_b", 5000)
	v.SetDefault("scoring.tier_s_impressions", 30000)
	v.SetDefault("scoring.tier_s_delta", 100)
	v.SetDefault("scoring.tier_a_impressions", 20000)
	v.SetDefault("scoring.tier_a_delta", 50)
	v.SetDefault("scoring.tier_a_alt_delta", 80)
	v.SetDefault("scoring.tier_b_impressions", 20000)
	v.SetDefault("scoring.tier_b_delta", 30)
	v.SetDefault("scoring.win_impressions", 30000)
	v.SetDefault("scoring.win_delta", 40)
	v.SetDefault("scoring.niche_delta", 15)
	v.SetDefault("scoring.niche_impression", 10000)
	v.SetDefault("scoring.gem_delta", 40)
	v.SetDefault("scoring.fail_impression", 10000)

	// Curation defaults
	v.SetDefault("curation.sample_size", 20)
	v.SetDefault("curation.max_per_account_tier", 2)
	v.SetDefault("curation.lookback_days", 30)
	v.SetDefault("curation.flagship_account", "mon_guchi")
	v.SetDefault("curation.flagship_min_length", 500)
	v.SetDefault("curation.flagship_sample_size", 10)

	// Hook defaults
	v.SetDefault("hooks.forced_count", 3)
	v.SetDefault("hooks.forced_type", "authority")

	// Realtime defaults
	v.SetDefault("realtime.enabled", true)
	v.SetDefault("realtime.max_headlines", 3)

	// Threads posting defaults: dry-run until credentials are configured
	v.SetDefault("threads.posting_enabled", false)
	v.SetDefault("threads.base_url", "https://graph.threads.net/v1.0")
	v.SetDefault("threads.reply_delay", "3s")
	v.SetDefault("threads.timeout", "30s")

	// Scheduler defaults
	v.SetDefault("scheduler.generate_cron", "0 6 * * *") // 6am daily - generate before the first slot
	v.SetDefault("scheduler.worker_cron", "*/5 * * * *") // job worker tick

	// Rate limit defaults
	v.SetDefault("rate_limit.anthropic_requests_per_minute", 10)
	v.SetDefault("rate_limit.analytics_requests_per_second", 5)
	v.SetDefault("rate_limit.feed_requests_per_second", 1)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.output", "stdout")

	// Server defaults
	v.SetDefault("server.port", "8080")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Anthropic.APIKey == "" {
		return fmt.Errorf("anthropic.api_key is required")
	}
	if c.Pipeline.TargetPostCount <= 0 {
		return fmt.Errorf("pipeline.target_post_count must be positive")
	}
	if len(c.Hooks.Buckets) == 0 {
		return fmt.Errorf("hooks.buckets must not be empty")
	}
	return nil
}
