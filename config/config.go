package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/itish2003/sectionrag/retrieval"
)

// Config holds all configuration for the sectionrag service and CLI.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Chroma    ChromaConfig    `mapstructure:"chroma"`
	Ollama    OllamaConfig    `mapstructure:"ollama"`
	Gemini    GeminiConfig    `mapstructure:"gemini"`
	Retrieval RetrievalConfig `mapstructure:"retrieval"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Ingest    IngestConfig    `mapstructure:"ingest"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Address         string        `mapstructure:"address"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	CORSOrigin      string        `mapstructure:"cors_origin"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json or text
}

type ChromaConfig struct {
	URL        string `mapstructure:"url"`
	Collection string `mapstructure:"collection"`
}

type OllamaConfig struct {
	URL       string        `mapstructure:"url"`
	Model     string        `mapstructure:"model"`
	KeepAlive string        `mapstructure:"keep_alive"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

type GeminiConfig struct {
	APIKey      string  `mapstructure:"api_key"`
	Model       string  `mapstructure:"model"`
	Temperature float32 `mapstructure:"temperature"`
}

// RetrievalConfig tunes top-K search and dominant-section sweeps.
type RetrievalConfig struct {
	NResults         int                       `mapstructure:"n_results"`
	MaxNResults      int                       `mapstructure:"max_n_results"`
	SweepConcurrency int                       `mapstructure:"sweep_concurrency"`
	Dominance        retrieval.DominanceConfig `mapstructure:"dominance"`
}

// CacheConfig controls the optional Redis cache in front of section lookups.
type CacheConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	RedisURL string        `mapstructure:"redis_url"`
	TTL      time.Duration `mapstructure:"ttl"`
	Prefix   string        `mapstructure:"prefix"`
}

type IngestConfig struct {
	Dir           string `mapstructure:"dir"`
	ChunkSize     int    `mapstructure:"chunk_size"`
	ChunkOverlap  int    `mapstructure:"chunk_overlap"`
	Watch         bool   `mapstructure:"watch"`
	PDFLicenseKey string `mapstructure:"pdf_license_key"`
}

// Normalize applies defaults for unset retrieval values.
func (c RetrievalConfig) Normalize() RetrievalConfig {
	if c.NResults <= 0 {
		c.NResults = retrieval.DefaultNResults
	}
	if c.SweepConcurrency <= 0 {
		c.SweepConcurrency = retrieval.DefaultSweepConcurrency
	}
	c.Dominance = c.Dominance.Normalize()
	return c
}

func (c RetrievalConfig) Validate() error {
	if c.MaxNResults > 0 && c.NResults > c.MaxNResults {
		return fmt.Errorf("retrieval.n_results (%d) exceeds retrieval.max_n_results (%d)", c.NResults, c.MaxNResults)
	}
	return c.Dominance.Validate()
}

func (c CacheConfig) Validate() error {
	if c.Enabled && strings.TrimSpace(c.RedisURL) == "" {
		return errors.New("cache.redis_url is required when the cache is enabled")
	}
	if c.Enabled && c.TTL <= 0 {
		return errors.New("cache.ttl must be > 0 when the cache is enabled")
	}
	return nil
}

func (c IngestConfig) Validate() error {
	if c.ChunkSize <= 0 {
		return errors.New("ingest.chunk_size must be > 0")
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("ingest.chunk_overlap must be in [0, %d)", c.ChunkSize)
	}
	return nil
}

func (c LogConfig) Validate() error {
	switch strings.ToLower(c.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("log.format %q must be json or text", c.Format)
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.Level)); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}

// Validate checks every section and returns the first problem found.
func (c *Config) Validate() error {
	for _, v := range []interface{ Validate() error }{c.Log, c.Retrieval, c.Cache, c.Ingest} {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.cors_origin", "*")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("chroma.url", "http://localhost:8000")
	v.SetDefault("chroma.collection", "medical-reference")
	v.SetDefault("ollama.url", "http://localhost:11434")
	v.SetDefault("ollama.model", "nomic-embed-text:v1.5")
	v.SetDefault("ollama.timeout", 30*time.Second)
	v.SetDefault("gemini.model", "gemini-2.5-flash")
	v.SetDefault("gemini.temperature", 0.2)
	v.SetDefault("retrieval.n_results", retrieval.DefaultNResults)
	v.SetDefault("retrieval.max_n_results", 50)
	v.SetDefault("retrieval.sweep_concurrency", retrieval.DefaultSweepConcurrency)
	v.SetDefault("retrieval.dominance.rule", string(retrieval.RuleFraction))
	v.SetDefault("retrieval.dominance.min_fraction", retrieval.DefaultMinFraction)
	v.SetDefault("retrieval.dominance.min_count", retrieval.DefaultMinCount)
	v.SetDefault("cache.enabled", false)
	v.SetDefault("cache.redis_url", "redis://localhost:6379/0")
	v.SetDefault("cache.ttl", 15*time.Minute)
	v.SetDefault("cache.prefix", "sectionrag:section:")
	v.SetDefault("ingest.dir", "./corpus")
	v.SetDefault("ingest.chunk_size", 1000)
	v.SetDefault("ingest.chunk_overlap", 100)
	v.SetDefault("ingest.watch", false)
}

// Load reads .env, an optional config.yaml (or the file at path) and
// SECTIONRAG_* environment overrides. GEMINI_API_KEY and UNIDOC_LICENSE_KEY
// are honoured under their usual names.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	if path == "" {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	} else {
		v.SetConfigFile(path)
	}

	v.SetEnvPrefix("SECTIONRAG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("gemini.api_key", "SECTIONRAG_GEMINI_API_KEY", "GEMINI_API_KEY")
	_ = v.BindEnv("ingest.pdf_license_key", "SECTIONRAG_INGEST_PDF_LICENSE_KEY", "UNIDOC_LICENSE_KEY")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.Retrieval = cfg.Retrieval.Normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// NewLogger builds the process logger described by c.
func NewLogger(c LogConfig, w io.Writer) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.Level)); err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if strings.EqualFold(c.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
