package app

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	HTTPAddr          string
	RequestTimeout    time.Duration
	LogLevel          string
	LogFormat         string
	UserAgent         string
	ProfileDocPath    string
	DefaultProfile    string
	RedisURL          string
	AdvisorAPIKey     string
	AdvisorBaseURL    string
	AdvisorModel      string
	MetadataBaseURL   string
	MetadataUserAgent string
	MaxGroups         int
	SearchConcurrency int
}

func LoadConfig() Config {
	return Config{
		HTTPAddr:          getEnv("HTTP_ADDR", ":8090"),
		RequestTimeout:    time.Duration(getEnvInt("SEARCH_TIMEOUT_SECONDS", 15)) * time.Second,
		LogLevel:          strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat:         strings.ToLower(getEnv("LOG_FORMAT", "text")),
		UserAgent:         getEnv("SEARCH_USER_AGENT", "musicsearchcore/1.0"),
		ProfileDocPath:    getEnv("PROFILE_DOC_PATH", "profiles.yaml"),
		DefaultProfile:    getEnv("DEFAULT_PROFILE", ""),
		RedisURL:          getEnv("REDIS_URL", ""),
		AdvisorAPIKey:     strings.TrimSpace(os.Getenv("ADVISOR_API_KEY")),
		AdvisorBaseURL:    getEnv("ADVISOR_BASE_URL", ""),
		AdvisorModel:      getEnv("ADVISOR_MODEL", ""),
		MetadataBaseURL:   getEnv("METADATA_SERVICE_BASE_URL", "https://musicbrainz.org/ws/2"),
		MetadataUserAgent: getEnv("METADATA_SERVICE_USER_AGENT", "musicsearchcore/1.0 (+https://github.com/musicsearch/searchcore)"),
		MaxGroups:         getEnvInt("GROUPER_MAX_GROUPS", 5),
		SearchConcurrency: getEnvInt("SEARCH_CONCURRENCY", 8),
	}
}

func getEnv(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func getEnvInt(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}
