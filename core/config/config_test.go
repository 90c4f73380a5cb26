package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `
telegram:
  token: "123:abc"
  run_mode: polling
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, RunModeLongpoll, cfg.Telegram.RunMode)
	require.Equal(t, StoreRedis, cfg.Store.Backend)
	require.Equal(t, "localhost:6379", cfg.Store.Redis.Addr)
	require.Equal(t, "gallery:code:", cfg.Store.Redis.KeyPrefix)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	t.Setenv("BOT_TOKEN", "999:env")
	t.Setenv("REDIS_ADDR", "redis:6379")
	path := writeConfig(t, `
telegram:
  token: "123:file"
store:
  redis:
    addr: "file:6379"
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "999:env", cfg.Telegram.Token)
	require.Equal(t, "redis:6379", cfg.Store.Redis.Addr)
}

func TestNormalizeRejectsInvalid(t *testing.T) {
	cases := map[string]Config{
		"missing token": {},
		"bad run mode": {
			Telegram: TelegramConfig{Token: "t", RunMode: "carrier-pigeon"},
		},
		"webhook without url": {
			Telegram: TelegramConfig{Token: "t", RunMode: RunModeWebhook},
		},
		"unknown backend": {
			Telegram: TelegramConfig{Token: "t"},
			Store:    StoreConfig{Backend: "etcd"},
		},
		"postgres without host": {
			Telegram: TelegramConfig{Token: "t"},
			Store:    StoreConfig{Backend: StorePostgres},
		},
	}
	for name, cfg := range cases {
		t.Run(name, func(t *testing.T) {
			require.Error(t, Normalize(&cfg))
		})
	}
}

func TestNormalizePostgresDefaults(t *testing.T) {
	cfg := Config{
		Telegram: TelegramConfig{Token: "t"},
		Store: StoreConfig{
			Backend:  "Postgres",
			Postgres: PostgresConfig{Host: "db", Name: "gallery"},
		},
	}
	require.NoError(t, Normalize(&cfg))
	require.Equal(t, StorePostgres, cfg.Store.Backend)
	require.Equal(t, "5432", cfg.Store.Postgres.Port)
	require.Equal(t, "disable", cfg.Store.Postgres.SSLMode)
	require.Equal(t, 5, cfg.Store.Postgres.MaxConnections)
	require.Equal(t, "migrations", cfg.Store.Postgres.MigrationsDir)
}
