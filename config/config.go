// Package config reads service settings from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"resumechat/types"
)

const (
	ConverterPDFCPU  = "pdfcpu"
	ConverterDocling = "docling"
)

type Config struct {
	ServerAddr string `validate:"required"`

	ResumeLocation string `validate:"required"`
	Converter      string `validate:"oneof=pdfcpu docling"`
	DoclingURL     string `validate:"omitempty,url"`
	Watch          bool

	BackendURL         string        `validate:"required,url"`
	BackendTimeout     time.Duration `validate:"gte=0"`
	GroundingEnabled   bool
	GroundingMaxTokens int `validate:"gt=0"`

	MinLatency    time.Duration `validate:"gte=0"`
	LatencyJitter time.Duration `validate:"gte=0"`

	LogLevel       string `validate:"oneof=debug info warn error"`
	LogFile        string
	MetricsEnabled bool
}

// Load reads configuration from environment variables. The caller is
// expected to have loaded any .env file beforehand.
func Load() (*Config, error) {
	cfg := &Config{
		ServerAddr:         getEnv("SERVER_ADDR", ":8080"),
		ResumeLocation:     getEnv("RESUME_LOCATION", "./public/resume.pdf"),
		Converter:          strings.ToLower(getEnv("RESUME_CONVERTER", ConverterPDFCPU)),
		DoclingURL:         getEnv("DOCLING_URL", "http://localhost:5001/v1/convert/file"),
		Watch:              getEnvBool("RESUME_WATCH", false),
		BackendURL:         getEnv("BACKEND_URL", "http://localhost:8000/chat"),
		BackendTimeout:     getEnvDuration("BACKEND_TIMEOUT", 0),
		GroundingEnabled:   getEnvBool("GROUNDING_ENABLED", false),
		GroundingMaxTokens: getEnvInt("GROUNDING_MAX_TOKENS", 3000),
		MinLatency:         getEnvDuration("MIN_LATENCY", time.Second),
		LatencyJitter:      getEnvDuration("LATENCY_JITTER", time.Second),
		LogLevel:           strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFile:            getEnv("LOG_FILE", ""),
		MetricsEnabled:     getEnvBool("METRICS_ENABLED", false),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if errs := types.ValidateStruct(c); len(errs) > 0 {
		parts := make([]string, 0, len(errs))
		for field, msg := range errs {
			parts = append(parts, field+" "+msg)
		}
		return fmt.Errorf("%s", strings.Join(parts, "; "))
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

// getEnvDuration accepts Go durations ("1500ms") or plain milliseconds ("1500").
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	value = strings.TrimSpace(value)
	if ms, err := strconv.Atoi(value); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}
