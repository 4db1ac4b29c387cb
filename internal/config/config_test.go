package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"ewaste/internal/config"

	"github.com/stretchr/testify/require"
)

// clearEnv убирает переменные, чтобы тесты не зависели от окружения
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"POSTGRES_CONN", "SERVER_ADDRESS", "APP_ENV", "CLOSE_TIMEOUT", "RUN_MIGRATIONS",
		"DB_MAX_OPEN_CONNS", "DB_MAX_IDLE_CONNS", "DB_CONN_MAX_LIFETIME",
		"NATS_URL", "NATS_SUBJECT_PREFIX", "REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB", "REDIS_CHANNEL_PREFIX",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("POSTGRES_CONN", "postgres://localhost/ewaste")

	cfg, err := config.LoadFiles(nil)
	require.NoError(t, err)
	require.Equal(t, "postgres://localhost/ewaste", cfg.PostgresConn)
	require.Equal(t, "0.0.0.0:8080", cfg.ServerAddress)
	require.Equal(t, config.EnvProduction, cfg.Environment)
	require.False(t, cfg.Development())
	require.Equal(t, 10*time.Second, cfg.CloseTimeout)
	require.True(t, cfg.RunMigrations)
	require.Equal(t, 25, cfg.DBMaxOpenConns)
	require.Equal(t, 5, cfg.DBMaxIdleConns)
	require.Equal(t, 5*time.Minute, cfg.DBConnMaxLifetime)
	require.Empty(t, cfg.NatsURL)
	require.Equal(t, "bidding.closed", cfg.NatsSubject)
	require.Empty(t, cfg.RedisAddr)
	require.Equal(t, "bid_closed", cfg.RedisChannel)
}

func TestLoadRequiresConnString(t *testing.T) {
	clearEnv(t)

	_, err := config.LoadFiles(nil)
	require.Error(t, err)
}

func TestFlagsOverrideEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("POSTGRES_CONN", "postgres://env/ewaste")
	t.Setenv("SERVER_ADDRESS", ":9000")

	cfg, err := config.LoadFiles([]string{"-d", "postgres://flag/ewaste", "-a", ":7000"})
	require.NoError(t, err)
	require.Equal(t, "postgres://flag/ewaste", cfg.PostgresConn)
	require.Equal(t, ":7000", cfg.ServerAddress)
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("POSTGRES_CONN", "postgres://localhost/ewaste")
	t.Setenv("APP_ENV", "development")
	t.Setenv("CLOSE_TIMEOUT", "3s")
	t.Setenv("RUN_MIGRATIONS", "false")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("NATS_URL", "nats://localhost:4222")

	cfg, err := config.LoadFiles(nil)
	require.NoError(t, err)
	require.True(t, cfg.Development())
	require.Equal(t, 3*time.Second, cfg.CloseTimeout)
	require.False(t, cfg.RunMigrations)
	require.Equal(t, "localhost:6379", cfg.RedisAddr)
	require.Equal(t, 2, cfg.RedisDB)
	require.Equal(t, "nats://localhost:4222", cfg.NatsURL)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"CLOSE_TIMEOUT":     "ten seconds",
		"RUN_MIGRATIONS":    "maybe",
		"DB_MAX_OPEN_CONNS": "many",
		"REDIS_DB":          "first",
		"APP_ENV":           "staging",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("POSTGRES_CONN", "postgres://localhost/ewaste")
			t.Setenv(key, value)

			_, err := config.LoadFiles(nil)
			require.Error(t, err)
		})
	}
}

func TestLoadDotEnvFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("SERVER_ADDRESS", ":9100")

	path := filepath.Join(t.TempDir(), ".env")
	content := "POSTGRES_CONN=postgres://dotenv/ewaste\nSERVER_ADDRESS=:1111\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := config.LoadFiles(nil, path, filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	require.Equal(t, "postgres://dotenv/ewaste", cfg.PostgresConn)
	// переменная окружения процесса не перезаписывается
	require.Equal(t, ":9100", cfg.ServerAddress)
}
