package config

import (
	"os"
	"strconv"
	"strings"
)

// Config centralizes runtime settings for the API binary.
type Config struct {
	Port string

	AuthToken          string
	CORSAllowedOrigins []string

	DatabaseURL string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	FeedPrefix    string

	ValidationBaseURL string
	LookupURL         string
	LookupTimeoutMS   int

	ParserBaseURL   string
	ParserTimeoutMS int

	StorageDir        string
	StoragePublicBase string
	MaxUploadBytes    int64

	RateLimitRPS   float64
	RateLimitBurst int
}

func Load() Config {
	return Config{
		Port: getEnv("PORT", "8080"),

		AuthToken:          getEnv("API_AUTH_TOKEN", ""),
		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", nil),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		FeedPrefix:    getEnv("FEED_CHANNEL_PREFIX", "changes"),

		ValidationBaseURL: getEnv("INVOICE_SERVER_URL", ""),
		LookupURL:         getEnv("LOOKUP_URL", "https://hoadondientu.gdt.gov.vn:30000/query/guest-invoices"),
		LookupTimeoutMS:   getEnvInt("LOOKUP_TIMEOUT_MS", 20000),

		ParserBaseURL:   getEnv("PARSER_BASE_URL", ""),
		ParserTimeoutMS: getEnvInt("PARSER_TIMEOUT_MS", 10000),

		StorageDir:        getEnv("STORAGE_DIR", "data/uploads"),
		StoragePublicBase: getEnv("STORAGE_PUBLIC_BASE_URL", ""),
		MaxUploadBytes:    getEnvInt64("MAX_UPLOAD_BYTES", 25<<20),

		RateLimitRPS:   getEnvFloat("RATE_LIMIT_RPS", 20),
		RateLimitBurst: getEnvInt("RATE_LIMIT_BURST", 40),
	}
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvInt64(key string, fallback int64) int64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvList(key string, fallback []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	if len(result) == 0 {
		return fallback
	}
	return result
}
