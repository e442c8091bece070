package utils

import (
	"os"
	"strconv"
	"time"
)

type AuthConfig struct {
	JWTSecret   string
	JWTIssuer   string
	JWTDuration time.Duration
}

func LoadAuthConfig() AuthConfig {
	secret := os.Getenv("COMICSHELF_JWT_SECRET")
	if secret == "" {
		// dev default (change for demo / production)
		secret = "dev-secret-change-me"
	}

	issuer := os.Getenv("COMICSHELF_JWT_ISSUER")
	if issuer == "" {
		issuer = "comicshelf"
	}

	ttl := 24 * time.Hour
	if s := os.Getenv("COMICSHELF_JWT_TTL_HOURS"); s != "" {
		if h, err := strconv.Atoi(s); err == nil && h > 0 {
			ttl = time.Duration(h) * time.Hour
		}
	}

	return AuthConfig{
		JWTSecret:   secret,
		JWTIssuer:   issuer,
		JWTDuration: ttl,
	}
}

type ServerConfig struct {
	Port       string
	SyncAddr   string
	NotifyAddr string
	LogLevel   string
}

func LoadServerConfig() ServerConfig {
	return ServerConfig{
		Port:       getEnv("PORT", "3001"),
		SyncAddr:   getEnv("COMICSHELF_SYNC_ADDR", ":7070"),
		NotifyAddr: getEnv("COMICSHELF_NOTIFY_ADDR", ":9090"),
		LogLevel:   getEnv("COMICSHELF_LOG_LEVEL", "info"),
	}
}

// getEnv retrieves environment variable or returns default value
func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
