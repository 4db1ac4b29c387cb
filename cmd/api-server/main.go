package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ewaste/db"
	"ewaste/db/migrations"
	"ewaste/internal/bidding"
	"ewaste/internal/broadcast"
	"ewaste/internal/config"
	"ewaste/internal/handlers"
	"ewaste/internal/notify"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
)

func main() {
	if err := run(); err != nil {
		slog.Error("api-server stopped", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		return err
	}
	setupLogger(cfg)

	dbConn, err := sqlx.Connect("postgres", cfg.PostgresConn)
	if err != nil {
		return err
	}
	defer dbConn.Close()
	dbConn.SetMaxOpenConns(cfg.DBMaxOpenConns)
	dbConn.SetMaxIdleConns(cfg.DBMaxIdleConns)
	dbConn.SetConnMaxLifetime(cfg.DBConnMaxLifetime)

	if cfg.RunMigrations {
		if err := migrations.Run(dbConn.DB); err != nil {
			return err
		}
	}

	store := db.NewStorage(dbConn)
	hub := broadcast.NewHub()
	defer hub.Close()

	publishers := notify.Multi{hub}

	if cfg.NatsURL != "" {
		nc, err := nats.Connect(cfg.NatsURL, nats.Name("ewaste-admin"))
		if err != nil {
			return err
		}
		defer nc.Drain()
		publishers = append(publishers, notify.NewNATSPublisher(nc, cfg.NatsSubject))
		slog.Info("nats publisher enabled", "url", cfg.NatsURL)
	}

	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rdb.Close()
		publishers = append(publishers, notify.NewRedisPublisher(rdb, cfg.RedisChannel))
		slog.Info("redis publisher enabled", "addr", cfg.RedisAddr)
	}

	svc := bidding.NewService(store, publishers, cfg.CloseTimeout)
	h := handlers.NewHandler(store, svc)
	h.ExposeErrors = cfg.Development()

	srv := &http.Server{
		Addr:              cfg.ServerAddress,
		Handler:           handlers.NewRouter(h, hub.ServeWS),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting server", "addr", cfg.ServerAddress, "env", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	// websocket-соединения не отслеживаются http.Server, закрываем их сами
	hub.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func setupLogger(cfg config.Config) {
	var handler slog.Handler
	if cfg.Development() {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})
	} else {
		handler = slog.NewJSONHandler(os.Stderr, nil)
	}
	slog.SetDefault(slog.New(handler))
}
