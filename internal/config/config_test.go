package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, key := range []string{"HTTP_ADDR", "BACKEND_URL", "SEARCH_DEBOUNCE_MS", "SEARCH_PAGE_SIZE", "CART_DISCARD_STALE", "CORS_ORIGINS"} {
		t.Setenv(key, "")
	}

	cfg := FromEnv()

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "http://localhost:8000", cfg.BackendURL)
	assert.Equal(t, 300*time.Millisecond, cfg.SearchDebounce)
	assert.Equal(t, 20, cfg.SearchPageSize)
	assert.True(t, cfg.DiscardStale)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.CORSOrigins)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("BACKEND_URL", "https://api.example.com/")
	t.Setenv("SEARCH_DEBOUNCE_MS", "150")
	t.Setenv("SEARCH_PAGE_SIZE", "50")
	t.Setenv("CART_DISCARD_STALE", "false")
	t.Setenv("REQUEST_TIMEOUT_SECONDS", "3")
	t.Setenv("CORS_ORIGINS", "https://a.example.com, https://b.example.com,")

	cfg := FromEnv()

	assert.Equal(t, "https://api.example.com", cfg.BackendURL)
	assert.Equal(t, 150*time.Millisecond, cfg.SearchDebounce)
	assert.Equal(t, 50, cfg.SearchPageSize)
	assert.False(t, cfg.DiscardStale)
	assert.Equal(t, 3*time.Second, cfg.RequestTimeout)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.CORSOrigins)
}

func TestFromEnvIgnoresGarbage(t *testing.T) {
	t.Setenv("SEARCH_PAGE_SIZE", "-4")
	t.Setenv("CART_DISCARD_STALE", "maybe")

	cfg := FromEnv()

	assert.Equal(t, 20, cfg.SearchPageSize)
	assert.True(t, cfg.DiscardStale)
}
