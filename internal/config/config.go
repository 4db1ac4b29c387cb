package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	PostgresConn  string
	ServerAddress string
	Environment   string
	CloseTimeout  time.Duration
	RunMigrations bool

	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration

	NatsURL       string
	NatsSubject   string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisChannel  string
}

// Development - в ответах 500 можно отдавать текст ошибки
func (c Config) Development() bool {
	return c.Environment == EnvDevelopment
}

// Load читает флаги, затем переменные окружения, затем .env (если есть).
// Переменные окружения процесса имеют приоритет над .env.
func Load(args []string) (Config, error) {
	return LoadFiles(args, ".env")
}

// LoadFiles как Load, но с явным списком .env файлов
func LoadFiles(args []string, envFiles ...string) (Config, error) {
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	var cfg Config
	fs := flag.NewFlagSet("api-server", flag.ContinueOnError)
	fs.StringVar(&cfg.PostgresConn, "d", "", "Postgres connection string (POSTGRES_CONN)")
	fs.StringVar(&cfg.ServerAddress, "a", "", "Listen address (SERVER_ADDRESS)")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if cfg.PostgresConn == "" {
		cfg.PostgresConn = os.Getenv("POSTGRES_CONN")
	}
	if cfg.PostgresConn == "" {
		return Config{}, errors.New("POSTGRES_CONN env variable is not set")
	}
	if cfg.ServerAddress == "" {
		cfg.ServerAddress = getEnv("SERVER_ADDRESS", "0.0.0.0:8080")
	}

	cfg.Environment = getEnv("APP_ENV", EnvProduction)
	if cfg.Environment != EnvDevelopment && cfg.Environment != EnvProduction {
		return Config{}, fmt.Errorf("invalid APP_ENV %q", cfg.Environment)
	}

	var err error
	if cfg.CloseTimeout, err = getDuration("CLOSE_TIMEOUT", 10*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.RunMigrations, err = getBool("RUN_MIGRATIONS", true); err != nil {
		return Config{}, err
	}
	if cfg.DBMaxOpenConns, err = getInt("DB_MAX_OPEN_CONNS", 25); err != nil {
		return Config{}, err
	}
	if cfg.DBMaxIdleConns, err = getInt("DB_MAX_IDLE_CONNS", 5); err != nil {
		return Config{}, err
	}
	if cfg.DBConnMaxLifetime, err = getDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute); err != nil {
		return Config{}, err
	}

	cfg.NatsURL = os.Getenv("NATS_URL")
	cfg.NatsSubject = getEnv("NATS_SUBJECT_PREFIX", "bidding.closed")
	cfg.RedisAddr = os.Getenv("REDIS_ADDR")
	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")
	cfg.RedisChannel = getEnv("REDIS_CHANNEL_PREFIX", "bid_closed")
	if cfg.RedisDB, err = getInt("REDIS_DB", 0); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getBool(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

func getDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
