package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFile_Defaults(t *testing.T) {
	cfg, err := LoadFile(writeConfig(t, "log:\n  level: debug\n"))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 3, cfg.Board.TxMaxRetries)
	assert.True(t, cfg.Board.AsyncHooks)
	assert.Equal(t, 50, cfg.Board.ActivityPageSize)
	assert.Equal(t, "memory", cfg.Events.Broker)
	assert.Equal(t, uint32(5), cfg.Events.FailureThreshold)
	assert.Equal(t, 15*time.Minute, cfg.Auth.AccessTokenExpiry)
}

func TestLoadFile_FileValues(t *testing.T) {
	path := writeConfig(t, `
server:
  address: ":9090"
database:
  host: db
  database: boards
board:
  tx_max_retries: 7
  async_hooks: false
events:
  broker: redis
  circuit_timeout: 5s
`)

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Address)
	assert.Equal(t, 7, cfg.Board.TxMaxRetries)
	assert.False(t, cfg.Board.AsyncHooks)
	assert.Equal(t, "redis", cfg.Events.Broker)
	assert.Equal(t, 5*time.Second, cfg.Events.CircuitTimeout)
	assert.Contains(t, cfg.Database.DSN(), "host=db")
	assert.Contains(t, cfg.Database.DSN(), "dbname=boards")
}

func TestLoadFile_EnvOverrides(t *testing.T) {
	t.Setenv("TASKBOARD_BOARD_TX_MAX_RETRIES", "9")
	t.Setenv("TASKBOARD_JWT_SECRET", "s3cret")
	t.Setenv("TASKBOARD_DB_PASSWORD", "pw")

	cfg, err := LoadFile(writeConfig(t, "board:\n  tx_max_retries: 1\n"))
	require.NoError(t, err)

	assert.Equal(t, 9, cfg.Board.TxMaxRetries)
	assert.Equal(t, "s3cret", cfg.Auth.JWTSecret)
	assert.Equal(t, "pw", cfg.Database.Password)
}

func TestLoadFile_Invalid(t *testing.T) {
	t.Run("unknown broker", func(t *testing.T) {
		_, err := LoadFile(writeConfig(t, "events:\n  broker: kafka\n"))
		assert.ErrorContains(t, err, "events.broker")
	})

	t.Run("negative retries", func(t *testing.T) {
		_, err := LoadFile(writeConfig(t, "board:\n  tx_max_retries: -1\n"))
		assert.ErrorContains(t, err, "tx_max_retries")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
		assert.Error(t, err)
	})
}
