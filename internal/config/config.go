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
)

type Config struct {
	HTTPAddr    string `mapstructure:"http_addr"`
	DatabaseURL string `mapstructure:"database_url"`

	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`

	MinioEndpoint  string `mapstructure:"minio_endpoint"`
	MinioBucket    string `mapstructure:"minio_bucket"`
	MinioAccessKey string `mapstructure:"minio_access_key"`
	MinioSecretKey string `mapstructure:"minio_secret_key"`

	APIToken string `mapstructure:"api_token"`

	LLMProvider  string `mapstructure:"llm_provider"`
	LLMModel     string `mapstructure:"llm_model"`
	LLMBaseURL   string `mapstructure:"llm_base_url"`
	LLMAPIKey    string `mapstructure:"llm_api_key"`
	LLMMaxTokens int64  `mapstructure:"llm_max_tokens"`

	EvalConcurrency    int           `mapstructure:"eval_concurrency"`
	EvalUnmatched      bool          `mapstructure:"eval_unmatched"`
	CacheTTL           time.Duration `mapstructure:"cache_ttl"`
	WorkerConcurrency  int           `mapstructure:"worker_concurrency"`
	MaxUploadMegabytes int64         `mapstructure:"max_upload_mb"`

	LocalReportDir      string   `mapstructure:"local_report_dir"`
	LocalKeywords       []string `mapstructure:"local_keywords"`
	LocalDefaultContent string   `mapstructure:"local_default_content"`

	Locale       string `mapstructure:"locale"`
	LogLevel     string `mapstructure:"log_level"`
	LogFormat    string `mapstructure:"log_format"`
	OTelEndpoint string `mapstructure:"otel_endpoint"`

	APIBaseURL string `mapstructure:"api_base_url"`
}

var defaults = map[string]any{
	"http_addr":             ":8000",
	"database_url":          "",
	"redis_addr":            "localhost:6379",
	"redis_password":        "",
	"minio_endpoint":        "localhost:9000",
	"minio_bucket":          "evaluations",
	"minio_access_key":      "",
	"minio_secret_key":      "",
	"api_token":             "",
	"llm_provider":          "gemini",
	"llm_model":             "gemini-2.5-flash",
	"llm_base_url":          "",
	"llm_api_key":           "",
	"llm_max_tokens":        8192,
	"eval_concurrency":      4,
	"eval_unmatched":        false,
	"cache_ttl":             "24h",
	"worker_concurrency":    5,
	"max_upload_mb":         32,
	"local_report_dir":      "",
	"local_keywords":        []string{"스터디"},
	"local_default_content": "한국에 대해 알려줘",
	"locale":                "ko",
	"log_level":             "info",
	"log_format":            "console",
	"otel_endpoint":         "",
	"api_base_url":          "http://localhost:8000",
}

// Load reads configuration from the environment, after loading the first
// .env file found among envFiles (".env" when none are given). An optional
// config.yaml in the working directory or ./configs is merged underneath.
func Load(envFiles ...string) (*Config, error) {
	loadEnvFile(envFiles)

	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("llm_api_key", "LLM_API_KEY", "GOOGLE_API_KEY"); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func loadEnvFile(paths []string) {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			if err := godotenv.Load(p); err == nil {
				return
			}
		}
	}
}

func (c *Config) Validate() error {
	switch c.LLMProvider {
	case "gemini", "anthropic", "openai":
	default:
		return fmt.Errorf("LLM_PROVIDER must be gemini, anthropic or openai, got %q", c.LLMProvider)
	}
	if c.EvalConcurrency < 1 {
		return fmt.Errorf("EVAL_CONCURRENCY must be at least 1, got %d", c.EvalConcurrency)
	}
	if c.WorkerConcurrency < 1 {
		return fmt.Errorf("WORKER_CONCURRENCY must be at least 1, got %d", c.WorkerConcurrency)
	}
	if c.Locale != "ko" && c.Locale != "en" {
		return fmt.Errorf("LOCALE must be ko or en, got %q", c.Locale)
	}
	if c.LogFormat != "json" && c.LogFormat != "console" {
		return fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.LogFormat)
	}
	if c.CacheTTL < 0 {
		return fmt.Errorf("CACHE_TTL must not be negative")
	}
	return nil
}

// ReportDir is the directory searched by the local analysis run; the user's
// Downloads folder when unset.
func (c *Config) ReportDir() string {
	if c.LocalReportDir != "" {
		return c.LocalReportDir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "Downloads"
	}
	return filepath.Join(home, "Downloads")
}

// RequireServer checks the settings the API and worker cannot start without.
func (c *Config) RequireServer() error {
	var missing []string
	if c.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if c.RedisAddr == "" {
		missing = append(missing, "REDIS_ADDR")
	}
	if c.LLMAPIKey == "" && c.LLMBaseURL == "" {
		missing = append(missing, "LLM_API_KEY")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required settings: %s", strings.Join(missing, ", "))
	}
	return nil
}
