package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Draft store backends.
const (
	DraftStoreMemory = "memory"
	DraftStoreRedis  = "redis"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database DatabaseConfig
	Redis    RedisConfig
	CORS     CORSConfig
	Log      LogConfig
	Ledger   LedgerConfig
	Payments PaymentsConfig
	Journal  JournalConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// LedgerConfig points at the school ledger backend that owns transactions and payments.
type LedgerConfig struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

// PaymentsConfig tunes the cashier payment workflow.
type PaymentsConfig struct {
	DraftStore         string
	DraftTTL           time.Duration
	RequireExactChange bool
	DefaultMethodID    string
}

// JournalConfig controls the asynchronous commit journal.
type JournalConfig struct {
	Enabled    bool
	Workers    int
	Retries    int
	RetryDelay time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Ledger = LedgerConfig{
		BaseURL: strings.TrimRight(v.GetString("LEDGER_BASE_URL"), "/"),
		Token:   v.GetString("LEDGER_API_TOKEN"),
		Timeout: parseDuration(v.GetString("LEDGER_TIMEOUT"), 15*time.Second),
	}

	store := strings.ToLower(v.GetString("PAYMENTS_DRAFT_STORE"))
	if store != DraftStoreRedis {
		store = DraftStoreMemory
	}
	cfg.Payments = PaymentsConfig{
		DraftStore:         store,
		DraftTTL:           parseDuration(v.GetString("PAYMENTS_DRAFT_TTL"), 2*time.Hour),
		RequireExactChange: v.GetBool("PAYMENTS_REQUIRE_EXACT_CHANGE"),
		DefaultMethodID:    v.GetString("PAYMENTS_DEFAULT_METHOD_ID"),
	}

	cfg.Journal = JournalConfig{
		Enabled:    v.GetBool("ENABLE_COMMIT_JOURNAL"),
		Workers:    v.GetInt("JOURNAL_WORKERS"),
		Retries:    v.GetInt("JOURNAL_RETRIES"),
		RetryDelay: parseDuration(v.GetString("JOURNAL_RETRY_DELAY"), 2*time.Second),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "school_finance")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("LEDGER_BASE_URL", "http://localhost:8000")
	v.SetDefault("LEDGER_API_TOKEN", "")
	v.SetDefault("LEDGER_TIMEOUT", "15s")

	v.SetDefault("PAYMENTS_DRAFT_STORE", DraftStoreMemory)
	v.SetDefault("PAYMENTS_DRAFT_TTL", "2h")
	v.SetDefault("PAYMENTS_REQUIRE_EXACT_CHANGE", false)
	v.SetDefault("PAYMENTS_DEFAULT_METHOD_ID", "")

	v.SetDefault("ENABLE_COMMIT_JOURNAL", false)
	v.SetDefault("JOURNAL_WORKERS", 1)
	v.SetDefault("JOURNAL_RETRIES", 3)
	v.SetDefault("JOURNAL_RETRY_DELAY", "2s")
}

// viper reports a missing explicit config file as an fs error rather than ConfigFileNotFoundError.
func isMissingFile(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
