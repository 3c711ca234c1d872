package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_DefaultsNeedOnlyJWTSecret(t *testing.T) {
	t.Setenv(EnvJWTSecret, "")

	cfg := FromEnv("test")
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWTSecret")

	cfg.JWTSecret = "secret"
	assert.NoError(t, cfg.Validate())
}

func TestValidate_InternalBinariesSkipJWTSecret(t *testing.T) {
	t.Setenv(EnvJWTSecret, "")

	cfg := FromEnv("test")
	cfg.requireJWT = false

	assert.NoError(t, cfg.Validate())
}

func TestValidate_AggregatesErrors(t *testing.T) {
	cfg := FromEnv("test")
	cfg.JWTSecret = "secret"
	cfg.Port = "99999"
	cfg.MongoURI = "postgres://localhost"
	cfg.PresenceSweepInterval = time.Minute
	cfg.KeyLookupPolicy = "random"

	err := cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{"Port", "MongoURI", "PresenceSweepInterval", "KeyLookupPolicy"} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestFromEnv_ReadsOverrides(t *testing.T) {
	t.Setenv(EnvNudgePollInterval, "3s")
	t.Setenv(EnvVerifierFailOpen, "true")
	t.Setenv(EnvHistoryLimit, "not-a-number")

	cfg := FromEnv("test")

	assert.Equal(t, 3*time.Second, cfg.NudgePollInterval)
	assert.True(t, cfg.VerifierFailOpen)
	assert.Equal(t, DefaultHistoryLimit, cfg.HistoryLimit)
}

func TestRedactMongoURI(t *testing.T) {
	assert.Equal(t, "mongodb://***:***@db:27017", redactMongoURI("mongodb://admin:hunter2@db:27017"))
	assert.Equal(t, "mongodb://db:27017", redactMongoURI("mongodb://db:27017"))
}

func TestNormalizeHistoryLimit(t *testing.T) {
	assert.Equal(t, DefaultHistoryLimit, NormalizeHistoryLimit(0, 200))
	assert.Equal(t, 200, NormalizeHistoryLimit(500, 200))
	assert.Equal(t, 20, NormalizeHistoryLimit(20, 200))
}
