package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withEnvFiles(t *testing.T, files ...string) {
	orig := EnvFiles
	EnvFiles = files
	t.Cleanup(func() { EnvFiles = orig })
}

func TestLoad(t *testing.T) {
	withEnvFiles(t)

	t.Run("Success loading from env", func(t *testing.T) {
		t.Setenv("MONGODB_URI", "mongodb://localhost:27017")
		t.Setenv("DB_NAME", "shop")
		t.Setenv("APP_PORT", "9090")
		t.Setenv("APP_ENV", "production")
		t.Setenv("CLOUDINARY_CLOUD_NAME", "demo")
		t.Setenv("CLOUDINARY_API_KEY", "key")
		t.Setenv("CLOUDINARY_API_SECRET", "secret")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "mongodb://localhost:27017", cfg.DatabaseURL)
		assert.Equal(t, "shop", cfg.DBName)
		assert.Equal(t, "9090", cfg.AppPort)
		assert.True(t, cfg.IsProduction())
		assert.Equal(t, "demo", cfg.CloudinaryCloudName)
		assert.Equal(t, "key", cfg.CloudinaryAPIKey)
		assert.Equal(t, "secret", cfg.CloudinaryAPISecret)
	})

	t.Run("Defaults", func(t *testing.T) {
		t.Setenv("MONGODB_URI", "memory://")
		t.Setenv("APP_PORT", "")
		os.Unsetenv("APP_PORT")
		t.Setenv("UPLOAD_MAX_BYTES", "")
		os.Unsetenv("UPLOAD_MAX_BYTES")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "8080", cfg.AppPort)
		assert.Equal(t, "catalog", cfg.DBName)
		assert.Equal(t, "products", cfg.UploadFolder)
		assert.Equal(t, int64(5<<20), cfg.UploadMaxBytes)
		assert.Equal(t, "*", cfg.CORSOrigin)
	})

	t.Run("Missing database url", func(t *testing.T) {
		t.Setenv("MONGODB_URI", "")
		os.Unsetenv("MONGODB_URI")

		cfg, err := Load()
		assert.Error(t, err)
		assert.Nil(t, cfg)
		assert.Contains(t, err.Error(), "MONGODB_URI")
	})

	t.Run("Invalid upload size", func(t *testing.T) {
		t.Setenv("MONGODB_URI", "memory://")
		t.Setenv("UPLOAD_MAX_BYTES", "abc")

		_, err := Load()
		assert.Error(t, err)
	})
}

func TestLoad_EnvFilePrecedence(t *testing.T) {
	dir := t.TempDir()
	local := filepath.Join(dir, ".env.local")
	shared := filepath.Join(dir, ".env")

	require.NoError(t, os.WriteFile(local, []byte("DB_NAME=from_local\n"), 0o644))
	require.NoError(t, os.WriteFile(shared, []byte("DB_NAME=from_shared\nLOG_LEVEL=debug\n"), 0o644))

	withEnvFiles(t, local, shared, filepath.Join(dir, "missing.env"))

	t.Setenv("MONGODB_URI", "memory://")
	// Registered so t.Cleanup restores them after godotenv sets them.
	t.Setenv("DB_NAME", "")
	os.Unsetenv("DB_NAME")
	t.Setenv("LOG_LEVEL", "")
	os.Unsetenv("LOG_LEVEL")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "from_local", cfg.DBName)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, []string{local, shared}, cfg.LoadedFiles)
}
