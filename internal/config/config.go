package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
)

const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"

	minJWTSecretLength = 16
)

type Config struct {
	Environment   string        `mapstructure:"ENV"`
	LogLevel      string        `mapstructure:"LOG_LEVEL"`
	HTTPAddr      string        `mapstructure:"HTTP_ADDR"`
	Store         string        `mapstructure:"STORE"`
	DBDSN         string        `mapstructure:"DB_DSN"`
	MigrationsDir string        `mapstructure:"MIGRATIONS_DIR"`
	JWTSecret     string        `mapstructure:"JWT_SECRET"`
	TokenTTL      time.Duration `mapstructure:"TOKEN_TTL"`
	TelegramToken string        `mapstructure:"TELEGRAM_TOKEN"`
	AuditInterval time.Duration `mapstructure:"AUDIT_INTERVAL"`
}

func Load() (*Config, error) {
	// Пытаемся загрузить .env файл (игнорируем ошибку, если файла нет)
	if err := godotenv.Load(".env"); err != nil {
		log.Println("⚠️  No .env file found, using environment variables")
	} else {
		log.Println("✅ Loaded configuration from .env file")
	}

	return FromEnv(os.Getenv)
}

// FromEnv собирает конфиг из произвольного источника переменных
func FromEnv(getenv func(string) string) (*Config, error) {
	cfg := &Config{
		Environment:   getenv("ENV"),
		LogLevel:      getenv("LOG_LEVEL"),
		HTTPAddr:      getenv("HTTP_ADDR"),
		Store:         getenv("STORE"),
		DBDSN:         getenv("DB_DSN"),
		MigrationsDir: getenv("MIGRATIONS_DIR"),
		JWTSecret:     getenv("JWT_SECRET"),
		TelegramToken: getenv("TELEGRAM_TOKEN"),
	}

	// Устанавливаем дефолтные значения
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8080"
	}
	if cfg.Store == "" {
		cfg.Store = StorePostgres
	}
	if cfg.MigrationsDir == "" {
		cfg.MigrationsDir = "migrations"
	}

	var err error
	if cfg.TokenTTL, err = durationOr(getenv("TOKEN_TTL"), 24*time.Hour); err != nil {
		return nil, fmt.Errorf("TOKEN_TTL: %w", err)
	}
	if cfg.AuditInterval, err = durationOr(getenv("AUDIT_INTERVAL"), 10*time.Minute); err != nil {
		return nil, fmt.Errorf("AUDIT_INTERVAL: %w", err)
	}

	// Проверяем обязательные поля
	switch cfg.Store {
	case StorePostgres:
		if cfg.DBDSN == "" {
			return nil, fmt.Errorf("DB_DSN is required but not set")
		}
	case StoreMemory:
	default:
		return nil, fmt.Errorf("STORE must be %q or %q, got %q", StorePostgres, StoreMemory, cfg.Store)
	}

	if len(cfg.JWTSecret) < minJWTSecretLength {
		return nil, fmt.Errorf("JWT_SECRET must be at least %d characters", minJWTSecretLength)
	}

	return cfg, nil
}

// TelegramEnabled бот и Telegram уведомления включаются только при заданном токене
func (c *Config) TelegramEnabled() bool {
	return c.TelegramToken != ""
}

func durationOr(raw string, def time.Duration) (time.Duration, error) {
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("must be positive, got %s", raw)
	}
	return d, nil
}
