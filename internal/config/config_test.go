package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, BackendSQLite, cfg.Store.Backend)
	assert.Equal(t, 30*time.Second, cfg.GraphDB.Timeout)
	assert.InDelta(t, 0.5, cfg.Executor.MaxFailureRate, 1e-9)
	assert.Equal(t, 100, cfg.Executor.MaxFanOut)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_FileAndEnvironment(t *testing.T) {
	file := filepath.Join(t.TempDir(), "mapper.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
server:
  addr: ":9000"
graphdb:
  url: http://graph.local
  timeout: 5s
executor:
  workers: 3
log:
  format: json
`), 0o600))

	t.Setenv("MAPPER_EXECUTOR_WORKERS", "7")
	t.Setenv("MAPPER_STORE_BACKEND", "graphdb")

	cfg, err := Load(viper.New(), file)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, "http://graph.local", cfg.GraphDB.URL)
	assert.Equal(t, 5*time.Second, cfg.GraphDB.Timeout)
	assert.Equal(t, 7, cfg.Executor.Workers)
	assert.Equal(t, BackendGraphDB, cfg.Store.Backend)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_Invalid(t *testing.T) {
	tests := map[string]string{
		"MAPPER_STORE_BACKEND":             "postgres",
		"MAPPER_EXECUTOR_MAX_FAILURE_RATE": "1.5",
		"MAPPER_LOG_FORMAT":                "xml",
		"MAPPER_EXECUTOR_WORKERS":          "-1",
	}

	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)

			_, err := Load(viper.New(), "")
			assert.Error(t, err)
		})
	}

	t.Run("graphdb without url", func(t *testing.T) {
		t.Setenv("MAPPER_STORE_BACKEND", BackendGraphDB)

		_, err := Load(viper.New(), "")
		assert.Error(t, err)
	})

	_, err := Load(viper.New(), filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
