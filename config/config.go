package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gosimple/slug"
	"github.com/joho/godotenv"
)

const (
	StoreFile     = "file"
	StorePostgres = "postgres"
	StoreR2       = "r2"
)

// Config хранит все конфигурационные параметры приложения.
type Config struct {
	ServerPort int
	LogLevel   slog.Level

	StoreBackend   string
	StateFile      string
	DatabaseURL    string
	TournamentName string
	TournamentSlug string

	JWTSecretKey       string
	AdminPasswordHash  string
	CORSAllowedOrigins []string

	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2BucketName      string
	R2PublicBaseURL   string

	BackupInterval time.Duration
	UseTieBreak    bool
	RandomRounds   int
}

// R2Configured сообщает, заданы ли параметры объектного хранилища.
func (c *Config) R2Configured() bool {
	return c.R2AccountID != "" && c.R2AccessKeyID != "" && c.R2SecretAccessKey != "" && c.R2BucketName != ""
}

// AuthEnabled - защищать ли изменяющие маршруты JWT-токеном.
func (c *Config) AuthEnabled() bool {
	return c.JWTSecretKey != ""
}

// Load загружает конфигурацию из переменных окружения.
// Опционально подгружает .env файл (полезно для локальной разработки).
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		StoreBackend:      strings.ToLower(getEnv("STORE_BACKEND", StoreFile)),
		StateFile:         getEnv("TOURNAMENT_FILE", "tournament.json"),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		TournamentName:    getEnv("TOURNAMENT_NAME", "default"),
		JWTSecretKey:      os.Getenv("JWT_SECRET_KEY"),
		AdminPasswordHash: os.Getenv("ADMIN_PASSWORD_HASH"),
		R2AccountID:       os.Getenv("R2_ACCOUNT_ID"),
		R2AccessKeyID:     os.Getenv("R2_ACCESS_KEY_ID"),
		R2SecretAccessKey: os.Getenv("R2_SECRET_ACCESS_KEY"),
		R2BucketName:      os.Getenv("R2_BUCKET_NAME"),
		R2PublicBaseURL:   os.Getenv("R2_PUBLIC_BASE_URL"),
	}
	cfg.TournamentSlug = slug.Make(cfg.TournamentName)
	if cfg.TournamentSlug == "" {
		return nil, fmt.Errorf("TOURNAMENT_NAME %q produces an empty slug", cfg.TournamentName)
	}

	port, err := strconv.Atoi(getEnv("SERVER_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT environment variable: %w", err)
	}
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", port)
	}
	cfg.ServerPort = port

	if err := cfg.LogLevel.UnmarshalText([]byte(getEnv("LOG_LEVEL", "info"))); err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL environment variable: %w", err)
	}

	for _, origin := range strings.Split(getEnv("CORS_ALLOWED_ORIGINS", "*"), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			cfg.CORSAllowedOrigins = append(cfg.CORSAllowedOrigins, origin)
		}
	}

	if cfg.BackupInterval, err = time.ParseDuration(getEnv("BACKUP_INTERVAL", "0s")); err != nil {
		return nil, fmt.Errorf("invalid BACKUP_INTERVAL environment variable: %w", err)
	}
	if cfg.BackupInterval < 0 {
		return nil, fmt.Errorf("BACKUP_INTERVAL must not be negative, got %s", cfg.BackupInterval)
	}

	if cfg.UseTieBreak, err = strconv.ParseBool(getEnv("USE_TIEBREAK", "true")); err != nil {
		return nil, fmt.Errorf("invalid USE_TIEBREAK environment variable: %w", err)
	}

	if cfg.RandomRounds, err = strconv.Atoi(getEnv("RANDOM_ROUNDS", "2")); err != nil {
		return nil, fmt.Errorf("invalid RANDOM_ROUNDS environment variable: %w", err)
	}
	if cfg.RandomRounds < 0 {
		return nil, fmt.Errorf("RANDOM_ROUNDS must not be negative, got %d", cfg.RandomRounds)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate проверяет согласованность выбранного хранилища и его параметров.
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case StoreFile:
		if c.StateFile == "" {
			return fmt.Errorf("TOURNAMENT_FILE must be set for the %s store", StoreFile)
		}
	case StorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL environment variable is not set")
		}
	case StoreR2:
		if !c.R2Configured() {
			return fmt.Errorf("R2_ACCOUNT_ID, R2_ACCESS_KEY_ID, R2_SECRET_ACCESS_KEY and R2_BUCKET_NAME must be set for the %s store", StoreR2)
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q (expected %s, %s or %s)", c.StoreBackend, StoreFile, StorePostgres, StoreR2)
	}

	if c.BackupInterval > 0 && !c.R2Configured() {
		return fmt.Errorf("BACKUP_INTERVAL requires R2 storage settings")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
