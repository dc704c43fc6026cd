package internal

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("ENV", "")
	t.Setenv("PLATFORM_API_URL", "")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "dev", cfg.Env)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, uint16(3000), cfg.Port)
	assert.Equal(t, 2*time.Hour, cfg.SessionTTL)
	assert.Equal(t, 60*time.Second, cfg.Platform.Timeout)
	assert.Equal(t, "local", cfg.Storage.Provider)
	assert.Equal(t, "binbill", cfg.MetricsNamespace)
	assert.Empty(t, cfg.DatabaseUrl)
	assert.Equal(t, 30*24*time.Hour, cfg.Retention)
	assert.Equal(t, time.Hour, cfg.SweepInterval)
}

func TestLoadConfig_Environment(t *testing.T) {
	t.Setenv("ENV", "dev")
	t.Setenv("PORT", "8080")
	t.Setenv("PLATFORM_API_URL", "https://api.example.ng/v1")
	t.Setenv("PLATFORM_API_TOKEN", "tok")
	t.Setenv("PSP_ID", "psp_1")
	t.Setenv("PLATFORM_TIMEOUT", "15s")
	t.Setenv("SESSION_TTL", "30m")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, uint16(8080), cfg.Port)
	assert.Equal(t, "https://api.example.ng/v1", cfg.Platform.BaseURL)
	assert.Equal(t, "tok", cfg.Platform.Token)
	assert.Equal(t, "psp_1", cfg.Platform.PSPID)
	assert.Equal(t, 15*time.Second, cfg.Platform.Timeout)
	assert.Equal(t, 30*time.Minute, cfg.SessionTTL)
}

func TestLoadConfig_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("ENV", "staging")
	t.Setenv("LOG_LEVEL", "verbose")
	t.Setenv("PLATFORM_API_TOKEN", "tok")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "prod", cfg.Env)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadConfig_Rejects(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"bad platform url", map[string]string{"PLATFORM_API_URL": "not a url"}},
		{"r2 without credentials", map[string]string{"STORAGE_PROVIDER": "r2"}},
		{"unknown storage provider", map[string]string{"STORAGE_PROVIDER": "ftp"}},
		{"prod without token", map[string]string{"ENV": "prod", "PLATFORM_API_TOKEN": ""}},
		{"sample rate above one", map[string]string{"SENTRY_SAMPLE_RATE": "2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := LoadConfig("")
			assert.Error(t, err)
		})
	}
}

func TestLoadConfig_File(t *testing.T) {
	t.Setenv("PSP_ID", "from-env")

	path := filepath.Join(t.TempDir(), "binbill.yaml")
	doc := "platform_api_url: https://file.example.ng/api\npsp_id: from-file\nport: 9000\n"
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "https://file.example.ng/api", cfg.Platform.BaseURL)
	assert.Equal(t, uint16(9000), cfg.Port)
	assert.Equal(t, "from-env", cfg.Platform.PSPID, "environment wins over file")

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "prod", "warn")

	logger.Info().Msg("hidden")
	logger.Warn().Str("upload_id", "u1").Msg("shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"upload_id":"u1"`)
	assert.Contains(t, out, `"level":"warn"`)

	assert.Equal(t, zerolog.InfoLevel, NewLogger(&buf, "dev", "nonsense").GetLevel())
}

func TestLoadConfig_AllowedOrigins(t *testing.T) {
	t.Setenv("CORS_ALLOWED_ORIGINS", " https://a.example.ng, ,https://b.example.ng ")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a.example.ng", "https://b.example.ng"}, cfg.AllowedOrigins)
}

func TestSplitList_Empty(t *testing.T) {
	assert.Nil(t, splitList(""))
	assert.Nil(t, splitList(" , "))
}
