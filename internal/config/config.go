package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string

	// Udemy Business API
	UdemySubdomain    string
	UdemyOrgID        string
	UdemyClientID     string
	UdemyClientSecret string
	UdemyBaseURL      string // 通常は https://{subdomain}.udemy.com から導出。テスト用に上書き可能。

	// Sync
	SyncPageSize int
	SyncMaxPages int
	SyncTimeout  time.Duration
	SyncInterval time.Duration

	// Rate Limit（req/min単位）
	RateLimitGeneral int
	RateLimitSync    int

	// Server
	ServerPort string

	// CORS
	CORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はまとめてエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.UdemySubdomain = os.Getenv("UDEMY_SUBDOMAIN")
	if cfg.UdemySubdomain == "" {
		missing = append(missing, "UDEMY_SUBDOMAIN")
	}

	cfg.UdemyOrgID = os.Getenv("UDEMY_ORG_ID")
	if cfg.UdemyOrgID == "" {
		missing = append(missing, "UDEMY_ORG_ID")
	}

	cfg.UdemyClientID = os.Getenv("UDEMY_CLIENT_ID")
	if cfg.UdemyClientID == "" {
		missing = append(missing, "UDEMY_CLIENT_ID")
	}

	cfg.UdemyClientSecret = os.Getenv("UDEMY_CLIENT_SECRET")
	if cfg.UdemyClientSecret == "" {
		missing = append(missing, "UDEMY_CLIENT_SECRET")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.UdemyBaseURL = getEnvString("UDEMY_BASE_URL", "https://"+cfg.UdemySubdomain+".udemy.com")
	cfg.SyncPageSize = getEnvInt("SYNC_PAGE_SIZE", 100)
	cfg.SyncMaxPages = getEnvInt("SYNC_MAX_PAGES", 50)
	cfg.SyncTimeout = getEnvDuration("SYNC_TIMEOUT", 45*time.Second)
	cfg.SyncInterval = getEnvDuration("SYNC_INTERVAL", 6*time.Hour)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitSync = getEnvInt("RATE_LIMIT_SYNC", 2)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
