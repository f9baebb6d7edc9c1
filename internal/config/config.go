// Package config handles configuration loading and management for finval.
// It supports XDG config paths, project-level overrides, .env files and
// environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/ShayCichocki/finval/pkg/models"
)

const (
	appName           = "finval"
	projectConfigName = ".finval.yaml"
)

// Config holds all configuration for finval.
type Config struct {
	LLM        LLMConfig        `mapstructure:"llm"`
	Anthropic  AnthropicConfig  `mapstructure:"anthropic"`
	Gemini     GeminiConfig     `mapstructure:"gemini"`
	Validation ValidationConfig `mapstructure:"validation"`
	Report     ReportConfig     `mapstructure:"report"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Artifact   ArtifactConfig   `mapstructure:"artifact"`
	Server     ServerConfig     `mapstructure:"server"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// LLMConfig selects and tunes the completion provider.
type LLMConfig struct {
	// Provider is "anthropic" or "gemini".
	Provider    string          `mapstructure:"provider"`
	Model       string          `mapstructure:"model"`
	Temperature float64         `mapstructure:"temperature"`
	MaxTokens   int             `mapstructure:"max_tokens"`
	Timeout     time.Duration   `mapstructure:"timeout"`
	Retry       RetryConfig     `mapstructure:"retry"`
	RateLimit   RateLimitConfig `mapstructure:"rate_limit"`
}

// RetryConfig bounds retries around each completion call.
// MaxAttempts 1 disables retries.
type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	BaseDelay   time.Duration `mapstructure:"base_delay"`
}

// RateLimitConfig throttles completion calls. RPS 0 disables the limiter.
type RateLimitConfig struct {
	RPS   float64 `mapstructure:"rps"`
	Burst int     `mapstructure:"burst"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	BaseURL string        `mapstructure:"base_url"`
	Bedrock BedrockConfig `mapstructure:"bedrock"`
}

// BedrockConfig routes Anthropic calls through AWS Bedrock.
type BedrockConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Region  string `mapstructure:"region"`
	Profile string `mapstructure:"profile"`
}

// GeminiConfig holds Gemini API settings.
type GeminiConfig struct {
	APIKey string `mapstructure:"api_key"`
}

// ValidationConfig controls which agents run and how.
type ValidationConfig struct {
	// Agents lists enabled agent kinds; aliases such as "bs" are accepted.
	Agents      []string `mapstructure:"agents"`
	Concurrency int      `mapstructure:"concurrency"`
	// MetaSystemPrompt prepends each agent's meta prompt to its domain prompt.
	MetaSystemPrompt bool `mapstructure:"meta_system_prompt"`
}

// ReportConfig controls report export.
type ReportConfig struct {
	OutputDir string `mapstructure:"output_dir"`
	// Format is "json" or "yaml".
	Format string `mapstructure:"format"`
}

// StorageConfig selects the run history backend.
type StorageConfig struct {
	// Driver is "sqlite", "postgres" or "none".
	Driver string `mapstructure:"driver"`
	// Path is the sqlite database file. Empty uses the data directory.
	Path      string `mapstructure:"path"`
	DSN       string `mapstructure:"dsn"`
	CacheSize int    `mapstructure:"cache_size"`
}

// ArtifactConfig configures report upload to S3-compatible storage.
type ArtifactConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Endpoint  string `mapstructure:"endpoint"`
	Bucket    string `mapstructure:"bucket"`
	Prefix    string `mapstructure:"prefix"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
	// JWTSecret enables bearer authentication when set.
	JWTSecret   string `mapstructure:"jwt_secret"`
	MaxUploadMB int64  `mapstructure:"max_upload_mb"`
}

// LoggingConfig configures the debug log file.
type LoggingConfig struct {
	DebugLog string `mapstructure:"debug_log"`
}

// Load loads configuration from XDG paths, project overrides, and environment variables.
// Precedence (highest to lowest):
// 1. Environment variables (ANTHROPIC_API_KEY, GEMINI_API_KEY, FINVAL_*)
// 2. .env in the current directory
// 3. Project config (.finval.yaml in current directory or parent)
// 4. User config (~/.config/finval/config.yaml)
// 5. Built-in defaults
func Load() (*Config, error) {
	// Missing .env is normal; real environment variables win over it.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(getUserConfigDir())

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	if projectConfig := findProjectConfig(); projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading project config %s: %w", projectConfig, err)
		}
		if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
			return nil, fmt.Errorf("merging project config: %w", err)
		}
	}

	bindEnv(v)

	return unmarshal(v)
}

// LoadFromPath loads configuration from a specific path (for testing).
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	return unmarshal(v)
}

func bindEnv(v *viper.Viper) {
	v.SetEnvPrefix("FINVAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	_ = v.BindEnv("anthropic.api_key", "ANTHROPIC_API_KEY", "FINVAL_ANTHROPIC_API_KEY")
	_ = v.BindEnv("gemini.api_key", "GEMINI_API_KEY", "GOOGLE_API_KEY", "FINVAL_GEMINI_API_KEY")
	_ = v.BindEnv("server.jwt_secret", "FINVAL_JWT_SECRET", "FINVAL_SERVER_JWT_SECRET")
	_ = v.BindEnv("storage.dsn", "DATABASE_URL", "FINVAL_STORAGE_DSN")
	_ = v.BindEnv("artifact.access_key", "MINIO_ACCESS_KEY", "FINVAL_ARTIFACT_ACCESS_KEY")
	_ = v.BindEnv("artifact.secret_key", "MINIO_SECRET_KEY", "FINVAL_ARTIFACT_SECRET_KEY")
}

func unmarshal(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	// Expand ${VAR} references in secrets and connection strings
	cfg.Anthropic.APIKey = expandEnv(cfg.Anthropic.APIKey)
	cfg.Gemini.APIKey = expandEnv(cfg.Gemini.APIKey)
	cfg.Server.JWTSecret = expandEnv(cfg.Server.JWTSecret)
	cfg.Storage.DSN = expandEnv(cfg.Storage.DSN)
	cfg.Artifact.AccessKey = expandEnv(cfg.Artifact.AccessKey)
	cfg.Artifact.SecretKey = expandEnv(cfg.Artifact.SecretKey)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that cannot be caught by unmarshaling.
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case "anthropic", "gemini":
	default:
		return fmt.Errorf("llm.provider: unknown provider %q (want anthropic or gemini)", c.LLM.Provider)
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 1 {
		return fmt.Errorf("llm.temperature: %v is outside [0, 1]", c.LLM.Temperature)
	}
	if c.Validation.Concurrency < 0 {
		return fmt.Errorf("validation.concurrency: must not be negative")
	}
	if _, err := c.EnabledAgents(); err != nil {
		return fmt.Errorf("validation.agents: %w", err)
	}
	switch c.Storage.Driver {
	case "sqlite", "none":
	case "postgres":
		if c.Storage.DSN == "" {
			return fmt.Errorf("storage.dsn: required for the postgres driver")
		}
	default:
		return fmt.Errorf("storage.driver: unknown driver %q", c.Storage.Driver)
	}
	switch c.Report.Format {
	case "json", "yaml":
	default:
		return fmt.Errorf("report.format: unknown format %q", c.Report.Format)
	}
	if c.Artifact.Enabled && (c.Artifact.Endpoint == "" || c.Artifact.Bucket == "") {
		return fmt.Errorf("artifact: endpoint and bucket are required when enabled")
	}
	return nil
}

// EnabledAgents parses Validation.Agents into canonical agent kinds.
func (c *Config) EnabledAgents() ([]models.AgentKind, error) {
	kinds := make([]models.AgentKind, 0, len(c.Validation.Agents))
	for _, s := range c.Validation.Agents {
		k, err := models.ParseAgentKind(s)
		if err != nil {
			return nil, err
		}
		kinds = append(kinds, k)
	}
	return models.CanonicalKinds(kinds), nil
}

// StoragePath returns the sqlite database path.
func (c *Config) StoragePath() string {
	if c.Storage.Path != "" {
		return c.Storage.Path
	}
	return filepath.Join(DataDir(), "finval.db")
}

// Save writes the configuration to the user config file.
func Save(cfg *Config) error {
	userConfigDir := getUserConfigDir()
	if err := os.MkdirAll(userConfigDir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	return SaveTo(cfg, filepath.Join(userConfigDir, "config.yaml"))
}

// SaveTo writes the configuration to path.
func SaveTo(cfg *Config, path string) error {
	v := viper.New()
	v.SetConfigFile(path)

	for _, key := range Keys() {
		val, _ := cfg.Get(key)
		v.Set(key, val)
	}
	v.Set("validation.agents", cfg.Validation.Agents)

	return v.WriteConfig()
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// GetProjectConfigPath returns the path to the project config file if it exists.
func GetProjectConfigPath() string {
	return findProjectConfig()
}

// setDefaults configures default values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("llm.provider", "anthropic")
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.temperature", 0.2)
	v.SetDefault("llm.max_tokens", 4096)
	v.SetDefault("llm.timeout", "5m")
	v.SetDefault("llm.retry.max_attempts", 1)
	v.SetDefault("llm.retry.base_delay", "500ms")
	v.SetDefault("llm.rate_limit.rps", 0)
	v.SetDefault("llm.rate_limit.burst", 1)

	v.SetDefault("anthropic.api_key", "")
	v.SetDefault("anthropic.base_url", "")
	v.SetDefault("anthropic.bedrock.enabled", false)
	v.SetDefault("anthropic.bedrock.region", "us-west-2")
	v.SetDefault("anthropic.bedrock.profile", "")

	v.SetDefault("gemini.api_key", "")

	v.SetDefault("validation.agents", defaultAgentNames())
	v.SetDefault("validation.concurrency", 1)
	v.SetDefault("validation.meta_system_prompt", false)

	v.SetDefault("report.output_dir", ".")
	v.SetDefault("report.format", "json")

	v.SetDefault("storage.driver", "sqlite")
	v.SetDefault("storage.path", "")
	v.SetDefault("storage.dsn", "")
	v.SetDefault("storage.cache_size", 64)

	v.SetDefault("artifact.enabled", false)
	v.SetDefault("artifact.endpoint", "")
	v.SetDefault("artifact.bucket", "finval-reports")
	v.SetDefault("artifact.prefix", "reports/")
	v.SetDefault("artifact.access_key", "")
	v.SetDefault("artifact.secret_key", "")
	v.SetDefault("artifact.use_ssl", true)

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.jwt_secret", "")
	v.SetDefault("server.max_upload_mb", 20)

	v.SetDefault("logging.debug_log", "")
}

func defaultAgentNames() []string {
	kinds := models.AllAgentKinds()
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = string(k)
	}
	return names
}

// getUserConfigDir returns the XDG config directory for finval.
func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, appName)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", appName)
	}
	return filepath.Join(home, ".config", appName)
}

// DataDir returns the XDG data directory for finval (history database, logs).
func DataDir() string {
	if xdgData := os.Getenv("XDG_DATA_HOME"); xdgData != "" {
		return filepath.Join(xdgData, appName)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "."+appName)
	}
	return filepath.Join(home, ".local", "share", appName)
}

// findProjectConfig searches for .finval.yaml in the current directory and parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, projectConfigName)
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}

	return ""
}

// expandEnv expands ${VAR} references in a string.
func expandEnv(s string) string {
	return os.ExpandEnv(s)
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:    "anthropic",
			Temperature: 0.2,
			MaxTokens:   4096,
			Timeout:     5 * time.Minute,
			Retry:       RetryConfig{MaxAttempts: 1, BaseDelay: 500 * time.Millisecond},
			RateLimit:   RateLimitConfig{Burst: 1},
		},
		Anthropic: AnthropicConfig{
			Bedrock: BedrockConfig{Region: "us-west-2"},
		},
		Validation: ValidationConfig{
			Agents:      defaultAgentNames(),
			Concurrency: 1,
		},
		Report: ReportConfig{
			OutputDir: ".",
			Format:    "json",
		},
		Storage: StorageConfig{
			Driver:    "sqlite",
			CacheSize: 64,
		},
		Artifact: ArtifactConfig{
			Bucket: "finval-reports",
			Prefix: "reports/",
			UseSSL: true,
		},
		Server: ServerConfig{
			Addr:        ":8080",
			MaxUploadMB: 20,
		},
	}
}
