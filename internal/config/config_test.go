package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromEnv_Defaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.AppEnv)
	assert.Equal(t, "sqlite3", cfg.DBDriver)
	assert.Equal(t, 50051, cfg.GRPCPort)
	assert.True(t, cfg.CacheEnabled)
	assert.Equal(t, "tester@testaccount.com", cfg.TestAccountSuffix)
	assert.Equal(t, 168*time.Hour, cfg.StatsInterval)

	p := cfg.Policy()
	assert.Equal(t, 72, p.MaxAgeMonths)
	assert.Equal(t, 168*time.Hour, p.GracePeriod)
	assert.Equal(t, 336*time.Hour, p.SessionLifetime)
	assert.Equal(t, 1.0, p.SuspiciousThreshold)
	assert.Equal(t, 6, p.GroupAgeWindow)
	assert.Equal(t, 3, p.Relevance.MinSamples)
	assert.Equal(t, 0.8, p.Relevance.AchievedFraction)
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "postgres://localhost/milestones?sslmode=disable")
	t.Setenv("GRPC_PORT", "6000")
	t.Setenv("CACHE_ENABLED", "false")
	t.Setenv("MAX_CHILD_AGE_MONTHS", "48")
	t.Setenv("STATS_GRACE_PERIOD", "24h")
	t.Setenv("ACHIEVED_FRACTION", "0.9")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.Equal(t, "postgres://localhost/milestones?sslmode=disable", cfg.DBPath)
	assert.Equal(t, 6000, cfg.GRPCPort)
	assert.False(t, cfg.CacheEnabled)

	p := cfg.Policy()
	assert.Equal(t, 48, p.MaxAgeMonths)
	assert.Equal(t, 48, p.Relevance.MaxAge)
	assert.Equal(t, 24*time.Hour, p.GracePeriod)
	assert.Equal(t, 0.9, p.Relevance.AchievedFraction)
}

func TestLoadFromEnv_MalformedValuesFallBack(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("GRPC_PORT", "not-a-port")
	t.Setenv("SESSION_LIFETIME", "two weeks")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, 50051, cfg.GRPCPort)
	assert.Equal(t, 336*time.Hour, cfg.Scoring.SessionLifetime)
}

func TestLoadFromEnv_YAMLOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scoring.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
scoring:
  max_child_age_months: 60
  stats_grace_period: 72h
  suspicious_rms_threshold: 1.5
`), 0o600))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("SUSPICIOUS_RMS_THRESHOLD", "2.0")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, 60, cfg.Scoring.MaxChildAgeMonths)
	assert.Equal(t, 72*time.Hour, cfg.Scoring.StatsGracePeriod)
	assert.Equal(t, 2.0, cfg.Scoring.SuspiciousRMSThreshold, "environment wins over the file")
	assert.Equal(t, 6, cfg.Scoring.GroupFeedbackAgeWindow, "unset keys keep defaults")
}

func TestLoadFromEnv_BadFile(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	_, err := LoadFromEnv()
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("scoring: [unclosed"), 0o600))
	t.Setenv("CONFIG_FILE", path)
	_, err = LoadFromEnv()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")

	cases := map[string]string{
		"ACHIEVED_FRACTION":        "1.5",
		"MAX_CHILD_AGE_MONTHS":     "0",
		"SUSPICIOUS_RMS_THRESHOLD": "-1",
		"GRPC_PORT":                "70000",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			_, err := LoadFromEnv()
			assert.Error(t, err)
		})
	}
}

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger(&Config{AppEnv: "production"})
	require.NoError(t, err)
	assert.NotNil(t, logger)

	logger, err = NewLogger(&Config{AppEnv: "development"})
	require.NoError(t, err)
	assert.NotNil(t, logger)
}
