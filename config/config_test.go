package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.ServerAddr)
	assert.Equal(t, "./public/resume.pdf", cfg.ResumeLocation)
	assert.Equal(t, ConverterPDFCPU, cfg.Converter)
	assert.Equal(t, "http://localhost:8000/chat", cfg.BackendURL)
	assert.Equal(t, time.Second, cfg.MinLatency)
	assert.Equal(t, time.Second, cfg.LatencyJitter)
	assert.Zero(t, cfg.BackendTimeout)
	assert.False(t, cfg.GroundingEnabled)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("RESUME_LOCATION", "https://example.com/resume.pdf")
	t.Setenv("RESUME_CONVERTER", "Docling")
	t.Setenv("MIN_LATENCY", "250")
	t.Setenv("LATENCY_JITTER", "2s")
	t.Setenv("RESUME_WATCH", "yes")
	t.Setenv("GROUNDING_MAX_TOKENS", "800")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://example.com/resume.pdf", cfg.ResumeLocation)
	assert.Equal(t, ConverterDocling, cfg.Converter)
	assert.Equal(t, 250*time.Millisecond, cfg.MinLatency)
	assert.Equal(t, 2*time.Second, cfg.LatencyJitter)
	assert.True(t, cfg.Watch)
	assert.Equal(t, 800, cfg.GroundingMaxTokens)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := map[string][2]string{
		"bad backend url":   {"BACKEND_URL", "not a url"},
		"unknown converter": {"RESUME_CONVERTER", "ocr"},
		"empty location":    {"RESUME_LOCATION", ""},
		"bad log level":     {"LOG_LEVEL", "verbose"},
	}
	for name, kv := range tests {
		t.Run(name, func(t *testing.T) {
			t.Setenv(kv[0], kv[1])
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestBadDurationFallsBack(t *testing.T) {
	t.Setenv("MIN_LATENCY", "soon")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, time.Second, cfg.MinLatency)
}
