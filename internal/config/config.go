package config

import (
	"os"
	"strconv"
	"time"

	"todo_webapp/internal/logger"

	"github.com/joho/godotenv"
)

// Storage modes.
const (
	ModeRemote = "remote"
	ModeLocal  = "local"
)

type Config struct {
	AppPort     string
	Mode        string
	DatabaseURL string
	JWTSecret   string
	JWTTTL      time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CacheTTL      time.Duration

	// Local fallback mode
	LocalDBPath string

	APIRateLimit   int
	APIRateWindow  time.Duration
	AuthRateLimit  int
	AuthRateWindow time.Duration

	AllowedOrigin string
	LogLevel      string
	LogJSON       bool
}

// Загрузка конфига из env
func Load() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		AppPort:        getString("APP_PORT", "8080"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		JWTSecret:      os.Getenv("JWT_SECRET"),
		JWTTTL:         time.Duration(getInt("JWT_TTL_HOURS", 24)) * time.Hour,
		RedisAddr:      os.Getenv("REDIS_ADDR"),
		RedisPassword:  os.Getenv("REDIS_PASSWORD"),
		RedisDB:        getInt("REDIS_DB", 0),
		CacheTTL:       time.Duration(getInt("CACHE_TTL_SECONDS", 300)) * time.Second,
		LocalDBPath:    getString("LOCAL_DB_PATH", "todo.db"),
		APIRateLimit:   getInt("API_RATE_LIMIT", 120),
		APIRateWindow:  time.Duration(getInt("API_RATE_WINDOW_SECONDS", 60)) * time.Second,
		AuthRateLimit:  getInt("AUTH_RATE_LIMIT", 5),
		AuthRateWindow: time.Duration(getInt("AUTH_RATE_WINDOW_SECONDS", 60)) * time.Second,
		AllowedOrigin:  os.Getenv("ALLOWED_ORIGIN"),
		LogLevel:       getString("LOG_LEVEL", "info"),
		LogJSON:        os.Getenv("LOG_JSON") == "true",
	}

	cfg.Mode = os.Getenv("STORAGE_MODE")
	if cfg.Mode == "" {
		cfg.Mode = ModeLocal
		if cfg.DatabaseURL != "" {
			cfg.Mode = ModeRemote
		}
	}

	switch cfg.Mode {
	case ModeRemote:
		if cfg.DatabaseURL == "" {
			logger.Fatal("DATABASE_URL is not set")
		}
		if cfg.JWTSecret == "" {
			logger.Fatal("JWT_SECRET is not set")
		}
	case ModeLocal:
	default:
		logger.Fatal("unknown STORAGE_MODE", "mode", cfg.Mode)
	}

	return cfg
}

func getString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// getInt ignores malformed and non-positive values.
func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}
