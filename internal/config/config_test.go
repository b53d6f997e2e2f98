package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testJWTSecret = "q8Zr2vLx9TnB4cWm7HsY1dKp6FgJ3eUa"

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv(envDBPassword, "secret")
	t.Setenv(envAWSBucket, "edrs-documents")
	t.Setenv(envJWTSecret, testJWTSecret)
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "rejlers-abudhabi", cfg.Storage.RootFolder)
	assert.Equal(t, 2*time.Hour, cfg.Storage.SignedURLExpiry)
	assert.Equal(t, int64(50*1024*1024), cfg.Storage.MaxUploadSize)
	assert.Equal(t, "edrs-documents", cfg.AWS.Bucket)
	assert.Empty(t, cfg.Redis.Addr)
	assert.True(t, cfg.Database.AutoMigrate)
}

func TestLoad_Overrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv(envSignedURLExpiry, "30m")
	t.Setenv(envSignAttemptTimeout, "1s")
	t.Setenv(envRoleCacheTTL, "10m")
	t.Setenv(envDBAutoMigrate, "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 30*time.Minute, cfg.Storage.SignedURLExpiry)
	assert.Equal(t, time.Second, cfg.Storage.SignAttemptTimeout)
	assert.Equal(t, 10*time.Minute, cfg.Redis.RoleCacheTTL)
	assert.False(t, cfg.Database.AutoMigrate)
}

func TestLoad_DurationWithoutUnitIsRejected(t *testing.T) {
	for _, key := range []string{envSignedURLExpiry, envSignAttemptTimeout, envRoleCacheTTL} {
		t.Run(key, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv(key, "7200")

			cfg, err := Load()
			require.Error(t, err)
			assert.Nil(t, cfg)
			assert.Contains(t, err.Error(), key)
		})
	}
}

func TestLoad_TrustProxyHeaders(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.Server.TrustProxyHeaders)

	t.Setenv(envTrustProxyHeaders, "true")
	cfg, err = Load()
	require.NoError(t, err)
	assert.True(t, cfg.Server.TrustProxyHeaders)
}

func TestLoadDatabase_IgnoresUnrelatedSettings(t *testing.T) {
	t.Setenv(envDBPassword, "pg-secret")
	t.Setenv(envJWTSecret, "")
	t.Setenv(envAWSBucket, "")
	t.Setenv(envEnablePprof, "true")

	db := LoadDatabase()
	assert.Equal(t, "pg-secret", db.Password)
	assert.Equal(t, defaultDBPort, db.Port)
}

func TestLoad_MissingRequiredPanics(t *testing.T) {
	t.Setenv(envDBPassword, "")
	assert.Panics(t, func() { _, _ = Load() })
}

func TestValidate(t *testing.T) {
	setRequiredEnv(t)

	cases := map[string]func(c *Config){
		"expiry too long":   func(c *Config) { c.Storage.SignedURLExpiry = 8 * 24 * time.Hour },
		"expiry zero":       func(c *Config) { c.Storage.SignedURLExpiry = 0 },
		"half aws keys":     func(c *Config) { c.AWS.AccessKeyID = "AKIA" },
		"weak jwt secret":   func(c *Config) { c.JWT.Secret = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa" },
		"no root folder":    func(c *Config) { c.Storage.RootFolder = "" },
		"zero upload limit": func(c *Config) { c.Storage.MaxUploadSize = 0 },
		"page size":         func(c *Config) { c.App.PageSize = 5000 },
	}
	for name, mutate := range cases {
		cfg, err := Load()
		require.NoError(t, err)
		mutate(cfg)
		assert.Error(t, cfg.Validate(), name)
	}
}

func TestMigrationURL_EscapesCredentials(t *testing.T) {
	db := DatabaseConfig{Host: "db", Port: 5432, User: "edrs", Password: "p@ss/word", Database: "edrs", SSLMode: "disable"}
	assert.Equal(t, "pgx5://edrs:p%40ss%2Fword@db:5432/edrs?sslmode=disable", db.MigrationURL())
}
