package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/skladops/sklad/internal/server"
	"github.com/skladops/sklad/internal/storage"
)

func main() {
	configPath := flag.String("config", "", "path to skladd.yaml")
	flag.Parse()

	cfg := server.MustLoad(*configPath)
	log := mustMakeLogger(cfg.LogLevel)

	log.Info("starting skladd", "address", cfg.HTTP.Address, "db", cfg.DBPath)

	repo, err := storage.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Error("open database", "error", err)
		os.Exit(1)
	}
	defer repo.Close()

	if err := storage.MigrateUp(repo.DB()); err != nil {
		log.Error("apply migrations", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Seed {
		if err := server.Seed(ctx, repo); err != nil {
			log.Error("seed database", "error", err)
			os.Exit(1)
		}
	}

	mux := http.NewServeMux()
	srv := server.NewServer(log, repo, cfg)
	srv.Register(mux)

	httpServer := &http.Server{
		Addr:        cfg.HTTP.Address,
		Handler:     mux,
		ReadTimeout: cfg.HTTP.Timeout,
	}

	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown", "error", err)
	}
}

func mustMakeLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToUpper(level) {
	case "DEBUG":
		lvl = slog.LevelDebug
	case "INFO":
		lvl = slog.LevelInfo
	case "WARN":
		lvl = slog.LevelWarn
	case "ERROR":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
