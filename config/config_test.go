package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET_KEY", "secret")
	t.Setenv("EVENT_STORE", "memory")
	t.Setenv("FE_ORIGIN", "https://a.example.com, https://b.example.com,")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "memory", cfg.EventStore)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.FrontendOrigins)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, 500, cfg.ScanChunkSize)
	assert.Equal(t, 120, cfg.IngestRatePerMinute)
	assert.Equal(t, 9000, cfg.ClickHouse.Port)
	assert.False(t, cfg.IsRelease())
}

func TestLoadRejectsInvalidSettings(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		msg  string
	}{
		{"missing secret", map[string]string{"EVENT_STORE": "memory"}, "JWT_SECRET_KEY"},
		{"missing clickhouse host", map[string]string{"JWT_SECRET_KEY": "s", "EVENT_STORE": "clickhouse"}, "CLICKHOUSE_HOST"},
		{"unknown store", map[string]string{"JWT_SECRET_KEY": "s", "EVENT_STORE": "sqlite"}, "EVENT_STORE"},
		{"bad port", map[string]string{"JWT_SECRET_KEY": "s", "EVENT_STORE": "memory", "CLICKHOUSE_NATIVE_PORT": "x"}, "CLICKHOUSE_NATIVE_PORT"},
		{"negative rate", map[string]string{"JWT_SECRET_KEY": "s", "EVENT_STORE": "memory", "INGEST_RATE_PER_MINUTE": "-1"}, "INGEST_RATE_PER_MINUTE"},
		{"zero ttl", map[string]string{"JWT_SECRET_KEY": "s", "EVENT_STORE": "memory", "SESSION_TTL_HOURS": "0"}, "SESSION_TTL_HOURS"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("JWT_SECRET_KEY", "")
			t.Setenv("CLICKHOUSE_HOST", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}
