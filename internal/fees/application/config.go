package application

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	fees "library-fees/internal/fees/domain"
)

// Config defines fee report settings.
type Config struct {
	DateFormat     string        `yaml:"date_format"`
	Currency       string        `yaml:"currency"`
	MaxUploadBytes int64         `yaml:"max_upload_bytes"`
	CacheTTL       time.Duration `yaml:"cache_ttl"`
	ListLimit      int           `yaml:"list_limit"`
}

// LoadConfig loads config from env, overlaid by the YAML file named in FEES_CONFIG.
func LoadConfig() (Config, error) {
	cfg := Config{
		DateFormat:     getenvDefault("FEES_DATE_FORMAT", string(fees.DefaultDateFormat)),
		Currency:       getenvDefault("FEES_CURRENCY", "USD"),
		MaxUploadBytes: int64(getenvIntDefault("FEES_MAX_UPLOAD_BYTES", 10<<20)),
		CacheTTL:       getenvDuration("FEES_CACHE_TTL", 24*time.Hour),
		ListLimit:      getenvIntDefault("FEES_LIST_LIMIT", 50),
	}

	if path := os.Getenv("FEES_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}

	if _, err := cfg.Format(); err != nil {
		return cfg, err
	}
	if cfg.Currency == "" {
		cfg.Currency = "USD"
	}
	if cfg.MaxUploadBytes <= 0 {
		return cfg, fmt.Errorf("fees config: max_upload_bytes must be positive, got %d", cfg.MaxUploadBytes)
	}
	if cfg.ListLimit <= 0 {
		cfg.ListLimit = 50
	}
	return cfg, nil
}

// Format returns the validated date format.
func (c Config) Format() (fees.DateFormat, error) {
	format, err := fees.ParseDateFormat(c.DateFormat)
	if err != nil {
		return "", fmt.Errorf("fees config: date_format %q: %w", c.DateFormat, err)
	}
	return format, nil
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvIntDefault(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}
