package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"go-trustshield/pkg/validation"
)

type Config struct {
	// Analysis service
	APIBaseURL     string
	RequestTimeout time.Duration

	// ProgressTimeline cadence per analyzer
	MessageStageInterval  time.Duration
	DocumentStageInterval time.Duration
	PaymentStageInterval  time.Duration
	URLStageInterval      time.Duration

	// Operator console
	Host               string
	Port               string
	MaxRequestBodySize int64

	// Input collection and rendering
	MaxAttachmentSize int64
	ContainerWidth    int
	SurfaceFallback   bool
	OCREnabled        bool
	OCRLanguage       string

	// Optional Azure artifact storage
	AzureAccountName string
	AzureAccountKey  string

	LogLevel string
}

func (c *Config) ServerAddress() string {
	// Trim any whitespace from host and port
	host := strings.TrimSpace(c.Host)
	port := strings.TrimSpace(c.Port)
	return net.JoinHostPort(host, port)
}

// AzureEnabled reports whether blob references can be resolved
func (c *Config) AzureEnabled() bool {
	return c.AzureAccountName != "" && c.AzureAccountKey != ""
}

func LoadFromEnv() (*Config, error) {
	// Set defaults
	cfg := &Config{
		APIBaseURL:            strings.TrimRight(getEnvOrDefault("TRUSTSHIELD_API_URL", getEnvOrDefault("VITE_API_URL", "http://localhost:8000")), "/"),
		RequestTimeout:        parseDurationOrDefault("REQUEST_TIMEOUT", 120*time.Second),
		MessageStageInterval:  parseDurationOrDefault("MESSAGE_STAGE_INTERVAL", 900*time.Millisecond),
		DocumentStageInterval: parseDurationOrDefault("DOCUMENT_STAGE_INTERVAL", time.Second),
		PaymentStageInterval:  parseDurationOrDefault("PAYMENT_STAGE_INTERVAL", 900*time.Millisecond),
		URLStageInterval:      parseDurationOrDefault("URL_STAGE_INTERVAL", 800*time.Millisecond),
		Host:                  getEnvOrDefault("HOST", "127.0.0.1"),
		Port:                  getEnvOrDefault("PORT", "8090"),
		MaxRequestBodySize:    parseIntOrDefault("MAX_REQUEST_BODY_SIZE", 25*1024*1024), // 25MB
		MaxAttachmentSize:     parseIntOrDefault("MAX_ATTACHMENT_SIZE", 20*1024*1024),   // 20MB
		ContainerWidth:        int(parseIntOrDefault("CONTAINER_WIDTH", 800)),
		SurfaceFallback:       parseBoolOrDefault("SURFACE_FALLBACK", true),
		OCREnabled:            parseBoolOrDefault("OCR_ENABLED", false),
		OCRLanguage:           getEnvOrDefault("OCR_LANGUAGE", "eng"),
		AzureAccountName:      os.Getenv("AZURE_STORAGE_ACCOUNT"),
		AzureAccountKey:       os.Getenv("AZURE_STORAGE_KEY"),
		LogLevel:              getEnvOrDefault("LOG_LEVEL", "info"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks ranges and the service address
func (c *Config) Validate() error {
	p, err := strconv.Atoi(strings.TrimSpace(c.Port))
	if err != nil || p < 1 || p > 65535 {
		return fmt.Errorf("invalid PORT: %q", c.Port)
	}
	if err := validation.ValidateServiceURL(c.APIBaseURL); err != nil {
		return fmt.Errorf("invalid TRUSTSHIELD_API_URL %q: %w", c.APIBaseURL, err)
	}
	if c.MaxRequestBodySize <= 0 || c.MaxAttachmentSize <= 0 {
		return fmt.Errorf("size limits must be > 0 (got body=%d, attachment=%d)", c.MaxRequestBodySize, c.MaxAttachmentSize)
	}
	if c.ContainerWidth <= 0 {
		return fmt.Errorf("CONTAINER_WIDTH must be > 0 (got %d)", c.ContainerWidth)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be > 0 (got %s)", c.RequestTimeout)
	}
	for name, d := range map[string]time.Duration{
		"MESSAGE_STAGE_INTERVAL":  c.MessageStageInterval,
		"DOCUMENT_STAGE_INTERVAL": c.DocumentStageInterval,
		"PAYMENT_STAGE_INTERVAL":  c.PaymentStageInterval,
		"URL_STAGE_INTERVAL":      c.URLStageInterval,
	} {
		if d <= 0 {
			return fmt.Errorf("%s must be > 0 (got %s)", name, d)
		}
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(strings.TrimSpace(value)); err == nil && duration > 0 {
			return duration
		}
	}
	return defaultValue
}

func parseIntOrDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func parseBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			return b
		}
	}
	return defaultValue
}
