package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLoad_DefaultValues tests that hardcoded defaults are applied correctly.
// This test doesn't depend on YAML files - it only tests the defaults() function.
func TestLoad_DefaultValues(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	// Check defaults are applied (from defaults() function)
	assert.Equal(t, "quote-service", cfg.App.Name)
	assert.Equal(t, "dev", cfg.App.Version)
	assert.Equal(t, "local", cfg.App.Environment)
	assert.Equal(t, DefaultServerPort, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, DefaultClientRetryMaxAttempts, cfg.Client.Retry.MaxAttempts)
	assert.Equal(t, DefaultClientRetryMultiplier, cfg.Client.Retry.Multiplier)
	assert.Equal(t, DefaultClientCircuitMaxFailures, cfg.Client.CircuitBreaker.MaxFailures)
}

// TestLoad_EnvVarOverrides tests that environment variables override defaults.
func TestLoad_EnvVarOverrides(t *testing.T) {
	t.Setenv("APP_SERVER_PORT", "9090")
	t.Setenv("APP_LOG_LEVEL", "warn")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "warn", cfg.Log.Level)
}

// TestLoad_DurationParsing tests that duration strings are parsed correctly.
func TestLoad_DurationParsing(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 30*time.Second, cfg.Server.WriteTimeout)
	assert.Equal(t, 120*time.Second, cfg.Server.IdleTimeout)
	assert.Equal(t, 15*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, 100*time.Millisecond, cfg.Client.Retry.InitialInterval)
	assert.Equal(t, 5*time.Second, cfg.Client.Retry.MaxInterval)
	assert.Equal(t, 30*time.Second, cfg.Client.Timeout)
}

// TestLoad_NonExistentProfile tests that a missing profile file doesn't cause errors.
func TestLoad_NonExistentProfile(t *testing.T) {
	// Should not error - missing profile file is silently ignored
	cfg, err := Load("nonexistent")
	require.NoError(t, err)

	// Should fall back to defaults
	assert.Equal(t, "quote-service", cfg.App.Name)
}

// TestLoad_BoolEnvVar tests that boolean environment variables are parsed correctly.
func TestLoad_BoolEnvVar(t *testing.T) {
	t.Setenv("APP_TELEMETRY_ENABLED", "true")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.True(t, cfg.Telemetry.Enabled)
}

// TestLoad_StorageDefaults tests that the store driver defaults to memory.
func TestLoad_StorageDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.Storage.Driver)
	assert.Empty(t, cfg.Storage.QuotesTable)
	assert.Empty(t, cfg.Storage.LikesTable)
	assert.Empty(t, cfg.Storage.ViewsTable)
	assert.Empty(t, cfg.Storage.ProgressTable)
}

// TestValidate_DynamoRequiresTables tests that selecting the dynamodb
// driver without table names fails validation.
func TestValidate_DynamoRequiresTables(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	cfg.Storage.Driver = "dynamodb"

	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "storage.quotestable")
}

// TestValidate_DynamoComplete tests that a fully specified dynamodb
// configuration passes validation.
func TestValidate_DynamoComplete(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	cfg.Storage = StorageConfig{
		Driver:        "dynamodb",
		Region:        "eu-north-1",
		QuotesTable:   "quotes",
		LikesTable:    "likes",
		ViewsTable:    "views",
		ProgressTable: "progress",
	}

	assert.NoError(t, cfg.Validate())
}

// TestLoad_LogFileDefaults tests that log file defaults are set correctly.
func TestLoad_LogFileDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.False(t, cfg.Log.File.Enabled)
	assert.Equal(t, "./logs/app.log", cfg.Log.File.Path)
	assert.Equal(t, DefaultLogFileMaxSizeMB, cfg.Log.File.MaxSizeMB)
	assert.Equal(t, DefaultLogFileMaxBackups, cfg.Log.File.MaxBackups)
	assert.Equal(t, DefaultLogFileMaxAgeDays, cfg.Log.File.MaxAgeDays)
	assert.True(t, cfg.Log.File.Compress)
}

// TestLoad_TelemetryDefaults tests that telemetry defaults are set correctly.
func TestLoad_TelemetryDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.False(t, cfg.Telemetry.Enabled)
	assert.Equal(t, "quote-service", cfg.Telemetry.ServiceName)
	assert.Equal(t, 1.0, cfg.Telemetry.SamplingRate)
}

// TestLoad_ClientDefaults tests that HTTP client defaults are set correctly.
func TestLoad_ClientDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 30*time.Second, cfg.Client.Timeout)
	assert.Equal(t, DefaultClientRetryMaxAttempts, cfg.Client.Retry.MaxAttempts)
	assert.Equal(t, 100*time.Millisecond, cfg.Client.Retry.InitialInterval)
	assert.Equal(t, 5*time.Second, cfg.Client.Retry.MaxInterval)
	assert.Equal(t, DefaultClientRetryMultiplier, cfg.Client.Retry.Multiplier)
	assert.Equal(t, DefaultClientCircuitMaxFailures, cfg.Client.CircuitBreaker.MaxFailures)
	assert.Equal(t, 30*time.Second, cfg.Client.CircuitBreaker.Timeout)
	assert.Equal(t, DefaultClientCircuitHalfOpenLimit, cfg.Client.CircuitBreaker.HalfOpenLimit)
}

// TestLoad_QuoteFeedDefaults tests the external feed defaults.
func TestLoad_QuoteFeedDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "https://zenquotes.io", cfg.QuoteFeed.BaseURL)
	assert.Equal(t, "zenquotes", cfg.QuoteFeed.Name)
}

// TestDefaults tests that the defaults map contains expected values.
func TestDefaults(t *testing.T) {
	d := defaults()

	assert.Equal(t, "quote-service", d["app.name"])
	assert.Equal(t, "dev", d["app.version"])
	assert.Equal(t, "local", d["app.environment"])
	assert.Equal(t, DefaultServerPort, d["server.port"])
	assert.Equal(t, "0.0.0.0", d["server.host"])
	assert.Equal(t, "info", d["log.level"])
	assert.Equal(t, "json", d["log.format"])
	assert.Equal(t, "memory", d["storage.driver"])
	assert.Equal(t, DefaultClientRetryMaxAttempts, d["client.retry.max_attempts"])
	assert.Equal(t, DefaultClientRetryMultiplier, d["client.retry.multiplier"])
}
