package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "cnpj", cfg.Database.DBName)
	assert.Equal(t, "./data", cfg.InputDir)
	assert.Equal(t, 80.0, cfg.MaxMemoryPercent)
	assert.Zero(t, cfg.BatchSize, "batch size has no default: the selected tier applies")
	assert.Zero(t, cfg.Concurrency, "concurrency has no default: the selected tier applies")
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("CNPJ_DATABASE_HOST", "db.internal")
	t.Setenv("CNPJ_DATABASE_PORT", "5433")
	t.Setenv("CNPJ_INPUT_DIR", "/srv/cnpj/extracted")
	t.Setenv("CNPJ_BATCH_SIZE", "25000")

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 5433, cfg.Database.Port)
	assert.Equal(t, "/srv/cnpj/extracted", cfg.InputDir)
	assert.Equal(t, 25000, cfg.BatchSize)
}

func TestLoad_RejectsBadMemoryPercent(t *testing.T) {
	for _, value := range []string{"0", "-5", "150"} {
		t.Run(value, func(t *testing.T) {
			t.Setenv("CNPJ_MAX_MEMORY_PERCENT", value)
			_, err := Load(t.TempDir())
			assert.Error(t, err)
		})
	}
}

func TestDatabaseDSN(t *testing.T) {
	db := Database{
		Host:     "localhost",
		Port:     5432,
		User:     "postgres",
		Password: "secret",
		DBName:   "cnpj",
		SSLMode:  "disable",
	}
	assert.Equal(t,
		"host=localhost port=5432 user=postgres password=secret dbname=cnpj sslmode=disable",
		db.DSN(),
	)
}
