package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, ModeDevelopment, cfg.Mode)
	assert.False(t, cfg.Production())
	assert.Equal(t, 10*time.Second, cfg.RequestTimeout)
	assert.Equal(t, int64(1<<20), cfg.MaxBodyBytes)
	assert.True(t, cfg.Introspection)
	assert.True(t, cfg.GraphiQL)
	assert.Empty(t, cfg.OTELEndpoint)
	assert.Equal(t, "reqgraph", cfg.ServiceName)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("REQGRAPH_ADDR", ":9090")
	t.Setenv("REQGRAPH_MODE", "production")
	t.Setenv("REQGRAPH_REQUEST_TIMEOUT", "2s")
	t.Setenv("REQGRAPH_CORS_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("REQGRAPH_INTROSPECTION", "false")
	t.Setenv("REQGRAPH_OTEL_ENDPOINT", "collector:4317")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Addr)
	assert.True(t, cfg.Production())
	assert.Equal(t, 2*time.Second, cfg.RequestTimeout)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.False(t, cfg.Introspection)
	assert.Equal(t, "collector:4317", cfg.OTELEndpoint)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name, key, value, wantErr string
	}{
		{"unknown mode", "REQGRAPH_MODE", "staging", "REQGRAPH_MODE must be"},
		{"bad duration", "REQGRAPH_REQUEST_TIMEOUT", "soon", "loading config"},
		{"negative body", "REQGRAPH_MAX_BODY_BYTES", "-1", "must not be negative"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			require.ErrorContains(t, err, tt.wantErr)
		})
	}
}
