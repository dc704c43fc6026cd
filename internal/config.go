package internal

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	Env              string `validate:"oneof=dev prod"`
	LogLevel         string `validate:"oneof=debug info warn error"`
	Port             uint16 `validate:"gt=0"`
	DatabaseUrl      string // Optional: upload history is not kept without it
	RedisURL         string // Optional: sessions stay in process memory without it
	NatsURL          string // Optional: no upload events without it
	CatalogPath      string // Optional: replaces the built-in state/LGA catalog
	SessionTTL       time.Duration `validate:"gt=0"`
	MetricsNamespace string        `validate:"required"`
	HistoryLimit     int           `validate:"gt=0,lte=500"`
	Retention        time.Duration `validate:"gt=0"` // How long source files and error reports are kept
	SweepInterval    time.Duration `validate:"gt=0"`
	AllowedOrigins   []string      // CORS origins allowed to call the API
	Platform         PlatformConfig
	Storage          StorageConfig
	Sentry           SentryConfig
}

// PlatformConfig holds the billing platform API connection.
type PlatformConfig struct {
	BaseURL string        `validate:"required,url"`
	Token   string        // Bearer token, sent when set
	PSPID   string        // Tenant the uploads belong to, sent as X-PSP-ID
	Timeout time.Duration `validate:"gt=0"`
}

// SentryConfig holds configuration for Sentry error tracking
type SentryConfig struct {
	DSN              string
	Enabled          bool
	Environment      string
	Release          string
	SampleRate       float64 `validate:"gte=0,lte=1"`
	TracesSampleRate float64 `validate:"gte=0,lte=1"`
	Debug            bool
}

type StorageConfig struct {
	Provider      string `validate:"oneof=local r2"` // "local" or "r2"
	LocalPath     string `validate:"required_if=Provider local"`
	R2AccountID   string `validate:"required_if=Provider r2"`
	R2AccessKeyID string `validate:"required_if=Provider r2"`
	R2SecretKey   string `validate:"required_if=Provider r2"`
	R2BucketName  string `validate:"required_if=Provider r2"`
}

// NewConfig loads configuration from .env and the environment.
func NewConfig() (*Config, error) {
	return LoadConfig("")
}

// LoadConfig loads configuration from .env, an optional config file
// (YAML, TOML or JSON, keys named like the environment variables) and the
// environment. Environment variables win over the file.
func LoadConfig(file string) (*Config, error) {
	loadDotEnv()

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", file, err)
		}
	}

	cfg := &Config{
		Env:              strings.ToLower(v.GetString("ENV")),
		LogLevel:         strings.ToLower(v.GetString("LOG_LEVEL")),
		Port:             v.GetUint16("PORT"),
		DatabaseUrl:      v.GetString("DATABASE_URL"),
		RedisURL:         v.GetString("REDIS_URL"),
		NatsURL:          v.GetString("NATS_URL"),
		CatalogPath:      v.GetString("CATALOG_PATH"),
		SessionTTL:       v.GetDuration("SESSION_TTL"),
		MetricsNamespace: v.GetString("METRICS_NAMESPACE"),
		HistoryLimit:     v.GetInt("HISTORY_LIMIT"),
		Retention:        v.GetDuration("ARTIFACT_RETENTION"),
		SweepInterval:    v.GetDuration("ARTIFACT_SWEEP_INTERVAL"),
		AllowedOrigins:   splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
		Platform: PlatformConfig{
			BaseURL: v.GetString("PLATFORM_API_URL"),
			Token:   v.GetString("PLATFORM_API_TOKEN"),
			PSPID:   v.GetString("PSP_ID"),
			Timeout: v.GetDuration("PLATFORM_TIMEOUT"),
		},
		Storage: StorageConfig{
			Provider:      v.GetString("STORAGE_PROVIDER"),
			LocalPath:     v.GetString("LOCAL_STORAGE_PATH"),
			R2AccountID:   v.GetString("R2_ACCOUNT_ID"),
			R2AccessKeyID: v.GetString("R2_ACCESS_KEY_ID"),
			R2SecretKey:   v.GetString("R2_SECRET_ACCESS_KEY"),
			R2BucketName:  v.GetString("R2_BUCKET_NAME"),
		},
		Sentry: SentryConfig{
			DSN:              v.GetString("SENTRY_DSN"),
			Enabled:          v.GetBool("SENTRY_ENABLED"),
			Environment:      v.GetString("SENTRY_ENVIRONMENT"),
			Release:          v.GetString("SENTRY_RELEASE"),
			SampleRate:       v.GetFloat64("SENTRY_SAMPLE_RATE"),
			TracesSampleRate: v.GetFloat64("SENTRY_TRACES_SAMPLE_RATE"),
			Debug:            v.GetBool("SENTRY_DEBUG"),
		},
	}

	// Validate env
	if cfg.Env != "dev" && cfg.Env != "prod" {
		log.Warn().Str("env", cfg.Env).Msg("Invalid environment. Using default: prod")
		cfg.Env = "prod"
	}

	// Validate log level
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		log.Warn().Str("value", cfg.LogLevel).Msg("Invalid log level. Using default: info")
		cfg.LogLevel = "info"
	}

	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if cfg.Env == "prod" && cfg.Platform.Token == "" {
		return nil, fmt.Errorf("PLATFORM_API_TOKEN must be set in production environment")
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", "dev")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("PORT", 3000)
	v.SetDefault("SESSION_TTL", "2h")
	v.SetDefault("METRICS_NAMESPACE", "binbill")
	v.SetDefault("HISTORY_LIMIT", 50)
	v.SetDefault("ARTIFACT_RETENTION", "720h")
	v.SetDefault("ARTIFACT_SWEEP_INTERVAL", "1h")
	v.SetDefault("PLATFORM_API_URL", "http://localhost:4000/api/v1")
	v.SetDefault("PLATFORM_TIMEOUT", "60s")
	v.SetDefault("STORAGE_PROVIDER", "local")
	v.SetDefault("LOCAL_STORAGE_PATH", "./data/uploads")
	v.SetDefault("SENTRY_ENVIRONMENT", "development")
	v.SetDefault("SENTRY_SAMPLE_RATE", 1.0)
	v.SetDefault("SENTRY_TRACES_SAMPLE_RATE", 0.0)
}

// splitList splits a comma separated value, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// loadDotEnv loads .env from the current directory or up to two parents.
func loadDotEnv() {
	if err := godotenv.Load(); err == nil {
		return
	}

	dir, _ := os.Getwd()
	for i := 0; i < 2; i++ {
		dir = filepath.Join(dir, "..")
		if err := godotenv.Load(filepath.Join(dir, ".env")); err == nil {
			return
		}
	}
	log.Debug().Msg(".env file not found, using environment variables and defaults")
}
