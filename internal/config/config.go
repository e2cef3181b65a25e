package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/park285/pokeleague/internal/obslog"
)

const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

type AppConfig struct {
	HTTPAddr string
	WSAddr   string

	StoreBackend string
	DatabaseURL  string
	RedisURL     string
	// RedisBattleTTL expires finished battle documents. 0 keeps them.
	RedisBattleTTL time.Duration

	MessagesDir   string
	AuthJWTSecret string

	PersistRetryMax int
	WriteTimeout    time.Duration
	WinPoints       int

	AllowedOrigins []string

	Log obslog.Options
}

// LoadDotEnv applies KEY=VALUE pairs from path without overriding the real environment.
// A missing file is not an error.
func LoadDotEnv(path string) error {
	if strings.TrimSpace(path) == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	return godotenv.Load(path)
}

func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		HTTPAddr:        ":8080",
		WSAddr:          ":8081",
		StoreBackend:    BackendMemory,
		PersistRetryMax: 3,
		WriteTimeout:    5 * time.Second,
		WinPoints:       1,
		Log:             obslog.OptionsFromEnv(),
	}

	if v := strings.TrimSpace(os.Getenv("HTTP_ADDR")); v != "" {
		cfg.HTTPAddr = v
	}
	if v := strings.TrimSpace(os.Getenv("WS_ADDR")); v != "" {
		cfg.WSAddr = v
	}
	if v := strings.TrimSpace(os.Getenv("STORE_BACKEND")); v != "" {
		cfg.StoreBackend = strings.ToLower(v)
	}
	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	cfg.MessagesDir = strings.TrimSpace(os.Getenv("MESSAGES_DIR"))
	cfg.AuthJWTSecret = strings.TrimSpace(os.Getenv("AUTH_JWT_SECRET"))

	if v := strings.TrimSpace(os.Getenv("PERSIST_RETRY_MAX")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("PERSIST_RETRY_MAX must be a positive integer: %q", v)
		}
		cfg.PersistRetryMax = n
	}
	if v := strings.TrimSpace(os.Getenv("PERSIST_WRITE_TIMEOUT")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("PERSIST_WRITE_TIMEOUT must be a positive duration: %q", v)
		}
		cfg.WriteTimeout = d
	}
	if v := strings.TrimSpace(os.Getenv("REDIS_BATTLE_TTL")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 {
			return nil, fmt.Errorf("REDIS_BATTLE_TTL must be a non-negative duration: %q", v)
		}
		cfg.RedisBattleTTL = d
	}
	if v := strings.TrimSpace(os.Getenv("WIN_POINTS")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("WIN_POINTS must be a positive integer: %q", v)
		}
		cfg.WinPoints = n
	}
	if v := strings.TrimSpace(os.Getenv("ALLOWED_ORIGINS")); v != "" {
		for _, p := range strings.Split(v, ",") {
			if s := strings.TrimSpace(p); s != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, s)
			}
		}
	}

	switch cfg.StoreBackend {
	case BackendMemory:
	case BackendPostgres:
		if cfg.DatabaseURL == "" {
			return nil, errors.New("DATABASE_URL is required for the postgres backend")
		}
	case BackendRedis:
		if cfg.RedisURL == "" {
			return nil, errors.New("REDIS_URL is required for the redis backend")
		}
	default:
		return nil, fmt.Errorf("unknown STORE_BACKEND %q", cfg.StoreBackend)
	}

	return cfg, nil
}
