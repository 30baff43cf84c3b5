package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"catalog-be/internal/config"
	"catalog-be/internal/db"
	"catalog-be/internal/product"
	"catalog-be/internal/utils"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withEnv(t *testing.T, open func(ctx context.Context, uri, dbName string) (*db.Conn, error)) {
	t.Helper()

	origEnvFiles := config.EnvFiles
	origOpen := openDBFunc
	config.EnvFiles = nil
	openDBFunc = open
	t.Cleanup(func() {
		config.EnvFiles = origEnvFiles
		openDBFunc = origOpen
	})
}

func TestLoadInputs_Samples(t *testing.T) {
	inputs, err := loadInputs("")
	require.NoError(t, err)
	require.Len(t, inputs, 8)

	slugs := map[string]bool{}
	for _, in := range inputs {
		require.NotNil(t, in.Price)
		assert.GreaterOrEqual(t, *in.Price, 0.0)
		slugs[utils.Slugify(in.Title)] = true
	}
	assert.Len(t, slugs, 8, "sample slugs must be unique")
	assert.True(t, slugs["cotton-t-shirt"])
}

func TestLoadInputs_File(t *testing.T) {
	dir := t.TempDir()

	t.Run("Custom file", func(t *testing.T) {
		path := filepath.Join(dir, "one.json")
		require.NoError(t, os.WriteFile(path, []byte(`[{"title":"Cap","image":"i","category":"Hats","price":5,"description":"d"}]`), 0o644))

		inputs, err := loadInputs(path)
		require.NoError(t, err)
		require.Len(t, inputs, 1)
		assert.Equal(t, "Cap", inputs[0].Title)
	})

	t.Run("Malformed file", func(t *testing.T) {
		path := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"title":`), 0o644))

		_, err := loadInputs(path)
		assert.ErrorContains(t, err, "invalid product file")
	})

	t.Run("Missing file", func(t *testing.T) {
		_, err := loadInputs(filepath.Join(dir, "nope.json"))
		assert.Error(t, err)
	})
}

func TestApp_MemoryBackend(t *testing.T) {
	withEnv(t, func(ctx context.Context, uri, dbName string) (*db.Conn, error) {
		return &db.Conn{Kind: db.KindMemory}, nil
	})
	t.Setenv("MONGODB_URI", "memory://")

	var out bytes.Buffer
	app := newApp()
	app.Writer = &out

	require.NoError(t, app.Run([]string{"seed"}))
	assert.Contains(t, out.String(), "Successfully seeded 8 products!")
}

func TestApp_InvalidInputWritesNothing(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	withEnv(t, func(ctx context.Context, uri, dbName string) (*db.Conn, error) {
		return &db.Conn{Kind: db.KindPostgres, SQL: sqlDB}, nil
	})
	t.Setenv("MONGODB_URI", "postgres://localhost/catalog")

	path := filepath.Join(t.TempDir(), "invalid.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"title":"Cap","price":5}]`), 0o644))

	mock.ExpectClose()

	app := newApp()
	app.Writer = &bytes.Buffer{}
	err = app.Run([]string{"seed", "--reset", "--file", path})

	require.Error(t, err)
	assert.ErrorIs(t, err, product.ErrValidation)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSeed_PostgresReset(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	withEnv(t, func(ctx context.Context, uri, dbName string) (*db.Conn, error) {
		return &db.Conn{Kind: db.KindPostgres, SQL: sqlDB}, nil
	})
	t.Setenv("MONGODB_URI", "postgres://localhost/catalog")

	inputs, err := loadInputs("")
	require.NoError(t, err)

	mock.ExpectExec("DELETE FROM products").WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectBegin()
	for range inputs {
		mock.ExpectExec("INSERT INTO products").WillReturnResult(sqlmock.NewResult(0, 1))
	}
	mock.ExpectCommit()
	mock.ExpectClose()

	n, err := seed(context.Background(), inputs, true)
	require.NoError(t, err)
	assert.Equal(t, 8, n)
	require.NoError(t, mock.ExpectationsWereMet())
}
