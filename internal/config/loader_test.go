package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestLoad_WritesDefaultConfigWhenMissing(t *testing.T) {
	req := require.New(t)
	logger := zerolog.Nop()
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, resolved, err := Load(&logger, path)
	req.NoError(err)
	req.Equal(path, resolved)
	req.Equal(Default().Addr, cfg.Addr)
	req.Equal("pyre", cfg.Channel)
	req.Equal(30*24*time.Hour, cfg.TokenTTL)

	_, statErr := os.Stat(path)
	req.NoError(statErr, "default config should be written")
}

func TestLoad_FileAndEnvPrecedence(t *testing.T) {
	req := require.New(t)
	logger := zerolog.Nop()
	path := filepath.Join(t.TempDir(), "config.yaml")

	contents := []byte("addr: \":9999\"\nchannel: lobby\njwt_secret: from-file\nstore:\n  driver: sqlite\n  path: users.db\nwrite_timeout: 3s\n")
	req.NoError(os.WriteFile(path, contents, 0o600))

	t.Setenv("PYRE_JWT_SECRET", "from-env")
	t.Setenv("PYRE_STORE_DRIVER", "badger")

	cfg, _, err := Load(&logger, path)
	req.NoError(err)
	req.Equal(":9999", cfg.Addr)
	req.Equal("lobby", cfg.Channel)
	req.Equal("from-env", cfg.JWTSecret)
	req.Equal(StoreDriverBadger, cfg.Store.Driver)
	req.Equal("users.db", cfg.Store.Path)
	req.Equal(3*time.Second, cfg.WriteTimeout)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	require.Error(t, cfg.Validate(), "missing secret must be rejected")

	cfg.JWTSecret = "secret"
	require.NoError(t, cfg.Validate())

	cfg.Store.Driver = "postgres"
	require.ErrorContains(t, cfg.Validate(), "unknown store driver")

	cfg = Default()
	cfg.JWTSecret = "secret"
	cfg.SendQueueSize = 0
	require.ErrorContains(t, cfg.Validate(), "send_queue_size")
}

func TestUpdateFrom(t *testing.T) {
	cfg := Default()
	cfg.UpdateFrom(Config{Addr: ":1234", LogLevel: "debug"})

	require.Equal(t, ":1234", cfg.Addr)
	require.Equal(t, "debug", cfg.LogLevel)
	require.Equal(t, Default().Channel, cfg.Channel)
}
