package model

import (
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Config holds all runtime settings for shepard
type Config struct {
	Engine     EngineConfig     `yaml:"engine" mapstructure:"engine"`
	Network    NetworkConfig    `yaml:"network" mapstructure:"network"`
	Tracker    TrackerConfig    `yaml:"tracker" mapstructure:"tracker"`
	Index      IndexConfig      `yaml:"index" mapstructure:"index"`
	Cache      CacheConfig      `yaml:"cache" mapstructure:"cache"`
	Validation ValidationConfig `yaml:"validation" mapstructure:"validation"`
	LLM        LLMConfig        `yaml:"llm" mapstructure:"llm"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// EngineConfig configures the Shepardizing engine
type EngineConfig struct {
	CacheTTL         time.Duration `yaml:"cache_ttl" mapstructure:"cache_ttl"`           // Analysis cache lifetime
	LookupTimeout    time.Duration `yaml:"lookup_timeout" mapstructure:"lookup_timeout"` // Deadline per index call
	IncludeHistory   bool          `yaml:"include_history" mapstructure:"include_history"`
	IncludeHeadnotes bool          `yaml:"include_headnotes" mapstructure:"include_headnotes"`
}

// NetworkConfig configures citation network expansion
type NetworkConfig struct {
	Scope    NetworkScope  `yaml:"scope" mapstructure:"scope"`
	MaxDepth int           `yaml:"max_depth" mapstructure:"max_depth"`
	MaxNodes int           `yaml:"max_nodes" mapstructure:"max_nodes"`
	Workers  int           `yaml:"workers" mapstructure:"workers"` // Concurrent lookups per BFS level
	CacheTTL time.Duration `yaml:"cache_ttl" mapstructure:"cache_ttl"`
}

// TrackerConfig configures status history persistence and alerting
type TrackerConfig struct {
	Store             string   `yaml:"store" mapstructure:"store"` // memory, sqlite, postgres
	SQLitePath        string   `yaml:"sqlite_path" mapstructure:"sqlite_path"`
	PostgresDSN       string   `yaml:"postgres_dsn" mapstructure:"postgres_dsn"`
	AlertMinSeverity  Severity `yaml:"alert_min_severity" mapstructure:"alert_min_severity"`
	DefaultPeriodDays int      `yaml:"default_period_days" mapstructure:"default_period_days"`
}

// IndexConfig configures the citation index backend
type IndexConfig struct {
	Provider          string        `yaml:"provider" mapstructure:"provider"`       // static, http
	StaticPath        string        `yaml:"static_path" mapstructure:"static_path"` // YAML citation universe
	BaseURL           string        `yaml:"base_url" mapstructure:"base_url"`
	APIKey            string        `yaml:"api_key,omitempty" mapstructure:"api_key"`
	Timeout           time.Duration `yaml:"timeout" mapstructure:"timeout"`
	UserAgent         string        `yaml:"user_agent" mapstructure:"user_agent"`
	RequestsPerSecond float64       `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int           `yaml:"burst" mapstructure:"burst"`
	MaxRetries        int           `yaml:"max_retries" mapstructure:"max_retries"`
	RespectRobots     bool          `yaml:"respect_robots" mapstructure:"respect_robots"`
	HTTPProxy         string        `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy        string        `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy           string        `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
}

// CacheConfig configures the persistent analysis cache used by the CLI
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	Dir       string        `yaml:"dir" mapstructure:"dir"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
}

// ValidationConfig configures citation validation
type ValidationConfig struct {
	FormatPreference CitationFormat `yaml:"format_preference" mapstructure:"format_preference"`
}

// LLMConfig configures the optional narrative summary
type LLMConfig struct {
	Provider        string `yaml:"provider" mapstructure:"provider"` // "" disables, "openai"
	Model           string `yaml:"model" mapstructure:"model"`
	APIKey          string `yaml:"api_key,omitempty" mapstructure:"api_key"`
	BaseURL         string `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout         int    `yaml:"timeout" mapstructure:"timeout"` // seconds
	StrictCitations bool   `yaml:"strict_citations" mapstructure:"strict_citations"`
	MaxTokens       int    `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// ServerConfig configures the HTTP API
type ServerConfig struct {
	Port         int           `yaml:"port" mapstructure:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
}

// Address returns the listen address
func (c ServerConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// LogConfig configures the zap logger
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`   // debug, info, warn, error
	Format string `yaml:"format" mapstructure:"format"` // console, json
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		Engine: EngineConfig{
			CacheTTL:         6 * time.Hour,
			LookupTimeout:    30 * time.Second,
			IncludeHistory:   true,
			IncludeHeadnotes: true,
		},
		Network: NetworkConfig{
			Scope:    ScopeExtended,
			MaxDepth: 2,
			MaxNodes: 100,
			Workers:  4,
			CacheTTL: time.Hour,
		},
		Tracker: TrackerConfig{
			Store:             "sqlite",
			SQLitePath:        ".shepard/status.db",
			AlertMinSeverity:  SeverityLow,
			DefaultPeriodDays: 365,
		},
		Index: IndexConfig{
			Provider:          "static",
			StaticPath:        "citations.yaml",
			Timeout:           15 * time.Second,
			UserAgent:         "Shepard/0.1 (+https://github.com/ppiankov/shepard)",
			RequestsPerSecond: 5,
			Burst:             5,
			MaxRetries:        3,
			RespectRobots:     true,
		},
		Cache: CacheConfig{
			Enabled:   true,
			Dir:       ".shepard-cache",
			MemoryTTL: 6 * time.Hour,
			DiskTTL:   24 * time.Hour,
		},
		Validation: ValidationConfig{
			FormatPreference: FormatBluebook,
		},
		LLM: LLMConfig{
			Timeout:         30,
			StrictCitations: true,
			MaxTokens:       800,
		},
		Server: ServerConfig{
			Port:         8080,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 2 * time.Minute,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Validate checks the configuration for values the components cannot work with
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(&c.Engine,
		validation.Field(&c.Engine.CacheTTL, validation.Min(time.Duration(0))),
		validation.Field(&c.Engine.LookupTimeout, validation.Required),
	); err != nil {
		return fmt.Errorf("engine: %w", err)
	}
	if err := validation.ValidateStruct(&c.Network,
		validation.Field(&c.Network.Scope, validation.In(ScopeImmediate, ScopeExtended, ScopeComprehensive)),
		validation.Field(&c.Network.MaxDepth, validation.Min(1), validation.Max(3)),
		validation.Field(&c.Network.MaxNodes, validation.Required, validation.Min(1)),
		validation.Field(&c.Network.Workers, validation.Min(1)),
	); err != nil {
		return fmt.Errorf("network: %w", err)
	}
	if err := validation.ValidateStruct(&c.Tracker,
		validation.Field(&c.Tracker.Store, validation.Required, validation.In("memory", "sqlite", "postgres")),
		validation.Field(&c.Tracker.SQLitePath, validation.When(c.Tracker.Store == "sqlite", validation.Required)),
		validation.Field(&c.Tracker.PostgresDSN, validation.When(c.Tracker.Store == "postgres", validation.Required)),
		validation.Field(&c.Tracker.AlertMinSeverity, validation.In(SeverityInfo, SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical)),
		validation.Field(&c.Tracker.DefaultPeriodDays, validation.Min(1)),
	); err != nil {
		return fmt.Errorf("tracker: %w", err)
	}
	if err := validation.ValidateStruct(&c.Index,
		validation.Field(&c.Index.Provider, validation.Required, validation.In("static", "http")),
		validation.Field(&c.Index.BaseURL, validation.When(c.Index.Provider == "http", validation.Required)),
		validation.Field(&c.Index.RequestsPerSecond, validation.Min(0.0)),
		validation.Field(&c.Index.MaxRetries, validation.Min(0)),
	); err != nil {
		return fmt.Errorf("index: %w", err)
	}
	if err := validation.ValidateStruct(&c.Validation,
		validation.Field(&c.Validation.FormatPreference, validation.In(FormatBluebook, FormatALWD, FormatChicago, FormatUnknown)),
	); err != nil {
		return fmt.Errorf("validation: %w", err)
	}
	if err := validation.ValidateStruct(&c.LLM,
		validation.Field(&c.LLM.Provider, validation.In("openai")),
		validation.Field(&c.LLM.MaxTokens, validation.Min(0)),
	); err != nil {
		return fmt.Errorf("llm: %w", err)
	}
	if err := validation.ValidateStruct(&c.Server,
		validation.Field(&c.Server.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	return validation.ValidateStruct(&c.Log,
		validation.Field(&c.Log.Level, validation.In("debug", "info", "warn", "error")),
		validation.Field(&c.Log.Format, validation.In("console", "json")),
	)
}
