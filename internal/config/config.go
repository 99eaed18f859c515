package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port          string
	DatabaseURL   string
	SettingsDir   string // used when DatabaseURL is empty
	ShareURL      string
	Language      string
	FacebookAppID string

	TwitterURLReserve    int   // characters reserved for a shortened link in tweets
	CaptureOptimizeBytes int64 // captures above this size get a second, smaller encoding pass
	BridgeTimeout        time.Duration
}

func Load() Config {
	cfg := Config{
		Port:                 getEnv("PORT", "8080"),
		DatabaseURL:          os.Getenv("DATABASE_URL"),
		SettingsDir:          os.Getenv("SETTINGS_DIR"),
		ShareURL:             getEnv("SHARE_URL", "https://bubblepop.game/"),
		Language:             getEnv("SHARE_LANGUAGE", "ja"),
		FacebookAppID:        os.Getenv("FACEBOOK_APP_ID"),
		TwitterURLReserve:    getEnvInt("TWITTER_URL_RESERVE", 23),
		CaptureOptimizeBytes: int64(getEnvInt("CAPTURE_OPTIMIZE_BYTES", 1<<20)),
		BridgeTimeout:        time.Duration(getEnvInt("BRIDGE_TIMEOUT", 30)) * time.Second,
	}
	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
