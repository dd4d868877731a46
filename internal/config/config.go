package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the vibematch service configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Auth      AuthConfig      `yaml:"auth"`
	Ranking   RankingConfig   `yaml:"ranking"`
	History   HistoryConfig   `yaml:"history"`
	Storage   StorageConfig   `yaml:"storage"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int   `yaml:"port"`
	ReadTimeoutSec  int   `yaml:"read_timeout_sec"`
	WriteTimeoutSec int   `yaml:"write_timeout_sec"`
	ShutdownSec     int   `yaml:"shutdown_timeout_sec"`
	MaxBodyBytes    int64 `yaml:"max_body_bytes"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Driver           string   `yaml:"driver"` // valkey, redis (default: valkey)
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// StorageConfig holds storage settings.
type StorageConfig struct {
	KeyPrefix string `yaml:"key_prefix"`
}

// EmbeddingConfig holds embedding settings.
type EmbeddingConfig struct {
	Providers  map[string]ProviderConfig `yaml:"providers"`
	Vectorizer VectorizerConfig          `yaml:"vectorizer"`
	Cache      CacheConfig               `yaml:"cache"`
	Breaker    BreakerConfig             `yaml:"breaker"`
}

// ProviderConfig holds embedding provider settings.
type ProviderConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

// VectorizerConfig selects the provider and model used for profile sentences.
type VectorizerConfig struct {
	Provider   string `yaml:"provider"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"` // 0 = model default
	ChunkSize  int    `yaml:"chunk_size"` // 0 = one request per profile
}

// CacheConfig holds sentence embedding cache settings.
type CacheConfig struct {
	Enabled *bool `yaml:"enabled"`
	TTLSec  int   `yaml:"ttl_sec"` // 0 = no expiry
}

// BreakerConfig holds embedding circuit breaker settings.
type BreakerConfig struct {
	FailureThreshold uint32 `yaml:"failure_threshold"`
	MaxRequests      uint32 `yaml:"half_open_max_requests"`
	IntervalSec      int    `yaml:"interval_sec"`
	TimeoutSec       int    `yaml:"open_timeout_sec"`
}

// RankingConfig holds ranking policy knobs.
type RankingConfig struct {
	DefaultLimit        int      `yaml:"default_limit"`
	MaxLimit            int      `yaml:"max_limit"`
	OppositeGenderBoost *float64 `yaml:"opposite_gender_boost"`
}

// HistoryConfig holds exposure ledger settings.
type HistoryConfig struct {
	Enabled        *bool `yaml:"enabled"`
	ReadTimeoutMS  int   `yaml:"read_timeout_ms"`
	WriteTimeoutMS int   `yaml:"write_timeout_ms"`
}

// Boost returns the configured opposite-gender boost.
func (r RankingConfig) Boost() float64 {
	if r.OppositeGenderBoost == nil {
		return defaultBoost
	}
	return *r.OppositeGenderBoost
}

// IsEnabled reports whether exposure history is read and recorded.
func (h HistoryConfig) IsEnabled() bool { return h.Enabled == nil || *h.Enabled }

// ReadTimeout bounds ledger and exclusion reads.
func (h HistoryConfig) ReadTimeout() time.Duration {
	return time.Duration(h.ReadTimeoutMS) * time.Millisecond
}

// WriteTimeout bounds ledger appends.
func (h HistoryConfig) WriteTimeout() time.Duration {
	return time.Duration(h.WriteTimeoutMS) * time.Millisecond
}

// IsEnabled reports whether sentence embeddings are cached.
func (c CacheConfig) IsEnabled() bool { return c.Enabled == nil || *c.Enabled }

// TTL returns the cache entry lifetime.
func (c CacheConfig) TTL() time.Duration { return time.Duration(c.TTLSec) * time.Second }

const (
	defaultBoost    = 0.10
	maxAllowedLimit = 100
)

// Load reads configuration from a YAML file by environment name (local, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	return Parse(data)
}

// Parse decodes YAML after ${VAR} expansion, then applies defaults and validates.
func Parse(data []byte) (Config, error) {
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.HTTP.MaxBodyBytes <= 0 {
		c.HTTP.MaxBodyBytes = 32 << 20
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "valkey"
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Embedding.Breaker.FailureThreshold == 0 {
		c.Embedding.Breaker.FailureThreshold = 5
	}
	if c.Embedding.Breaker.MaxRequests == 0 {
		c.Embedding.Breaker.MaxRequests = 1
	}
	if c.Embedding.Breaker.IntervalSec <= 0 {
		c.Embedding.Breaker.IntervalSec = 60
	}
	if c.Embedding.Breaker.TimeoutSec <= 0 {
		c.Embedding.Breaker.TimeoutSec = 30
	}
	if c.Ranking.DefaultLimit <= 0 {
		c.Ranking.DefaultLimit = 10
	}
	if c.Ranking.MaxLimit <= 0 {
		c.Ranking.MaxLimit = maxAllowedLimit
	}
	if c.History.ReadTimeoutMS <= 0 {
		c.History.ReadTimeoutMS = 500
	}
	if c.History.WriteTimeoutMS <= 0 {
		c.History.WriteTimeoutMS = 1000
	}
	if c.Storage.KeyPrefix == "" {
		c.Storage.KeyPrefix = "vibematch:"
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Database.Driver {
	case "valkey", "redis":
	default:
		return fmt.Errorf("database.driver must be \"valkey\" or \"redis\", got %q", c.Database.Driver)
	}
	if len(c.Database.Addrs) == 0 {
		return fmt.Errorf("database.addrs is required")
	}

	vec := c.Embedding.Vectorizer
	if vec.Model == "" {
		return fmt.Errorf("embedding.vectorizer.model is required")
	}
	if _, ok := c.Embedding.Providers[vec.Provider]; !ok {
		return fmt.Errorf("embedding.vectorizer.provider %q is not defined in embedding.providers", vec.Provider)
	}
	if vec.Dimensions < 0 || vec.ChunkSize < 0 {
		return fmt.Errorf("embedding.vectorizer dimensions and chunk_size must not be negative")
	}

	if c.Ranking.MaxLimit > maxAllowedLimit {
		return fmt.Errorf("ranking.max_limit must be at most %d, got %d", maxAllowedLimit, c.Ranking.MaxLimit)
	}
	if c.Ranking.DefaultLimit > c.Ranking.MaxLimit {
		return fmt.Errorf("ranking.default_limit (%d) exceeds ranking.max_limit (%d)",
			c.Ranking.DefaultLimit, c.Ranking.MaxLimit)
	}
	if b := c.Ranking.Boost(); b < 0 || b > 1 {
		return fmt.Errorf("ranking.opposite_gender_boost must be between 0 and 1, got %v", b)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
