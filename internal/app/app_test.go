package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/pyrechat/pyre-server/internal/config"
	"github.com/pyrechat/pyre-server/internal/store"
)

func TestOpenStoreDrivers(t *testing.T) {
	dir := t.TempDir()

	cases := []config.StoreConfig{
		{Driver: config.StoreDriverFile, Path: filepath.Join(dir, "users.json")},
		{Driver: config.StoreDriverSQLite, Path: filepath.Join(dir, "users.db")},
		{Driver: config.StoreDriverBadger, Path: ""},
	}

	for _, tc := range cases {
		t.Run(tc.Driver, func(t *testing.T) {
			st, err := openStore(tc)
			require.NoError(t, err)
			defer st.Close()

			ctx := context.Background()
			require.NoError(t, st.CreateUser(ctx, store.User{Username: "alice", HashedPassword: "h"}))
			require.ErrorIs(t, st.CreateUser(ctx, store.User{Username: "alice", HashedPassword: "x"}), store.ErrUserExists)

			got, err := st.GetUser(ctx, "alice")
			require.NoError(t, err)
			require.Equal(t, "h", got.HashedPassword)
		})
	}
}

func TestOpenStoreUnknownDriver(t *testing.T) {
	_, err := openStore(config.StoreConfig{Driver: "postgres", Path: "x"})
	require.Error(t, err)
}

func TestRunStopsOnCancel(t *testing.T) {
	cfg := config.Default()
	cfg.Addr = "127.0.0.1:0"
	cfg.JWTSecret = "secret"
	cfg.ShutdownTimeout = 2 * time.Second
	cfg.Store.Path = filepath.Join(t.TempDir(), "users.json")

	logger := zerolog.Nop()
	application, err := New(&cfg, &logger)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- application.Run(ctx) }()

	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	require.ErrorIs(t, application.sessionCtx.Err(), context.Canceled)
}
