package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/bwmarrin/discordgo"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"movienight/internal/app"
	"movienight/internal/config"
	"movienight/internal/storage"
	"movienight/internal/tmdb"
	"movienight/internal/trakt"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.FromEnv()
	if err != nil {
		slog.Error("config", "error", err)
		os.Exit(1)
	}

	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if dir := filepath.Dir(cfg.DBPath); dir != "." && dir != "" {
		_ = os.MkdirAll(dir, 0o755)
	}

	db, err := sqlx.Open("sqlite3", cfg.DBPath)
	if err != nil {
		logger.Error("open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	store := storage.New(db)
	if err := store.InitSchema(); err != nil {
		logger.Error("init schema", "error", err)
		os.Exit(1)
	}

	session, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		logger.Error("create discord session", "error", err)
		os.Exit(1)
	}

	tmdbClient := tmdb.NewClient(cfg.TMDBToken)

	var traktClient *trakt.Client
	if cfg.TraktClientID != "" {
		traktClient = trakt.NewClient(cfg.TraktClientID, trakt.WithLogger(logger))
	} else {
		logger.Info("TRAKT_CLIENT_ID not set, watch-history checks disabled")
	}

	bot := app.New(session, store, tmdbClient, traktClient, cfg, logger)
	if err := bot.Start(); err != nil {
		logger.Error("start bot", "error", err)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("shutting down")
	bot.Stop()
}
