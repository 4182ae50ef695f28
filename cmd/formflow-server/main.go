package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/foundersclub/formflow/internal/config"
	"github.com/foundersclub/formflow/internal/server"
	"github.com/foundersclub/formflow/internal/storage"
	"github.com/foundersclub/formflow/internal/upload"
	"github.com/foundersclub/formflow/pkg/schemaio"
)

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: could not load .env file: %v\n", err)
	}

	configPath := flag.String("config", "config.yml", "path to config file")
	publish := flag.String("publish", "", "publish a schema file before serving (json or yaml)")
	autoApprove := flag.Bool("auto-approve", false, "auto-approve submissions for the published schema")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Log)

	store, err := storage.Open(cfg.Database.DSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("open storage")
	}

	if *publish != "" {
		schema, err := schemaio.LoadFile(*publish)
		if err != nil {
			logger.Fatal().Err(err).Str("path", *publish).Msg("load schema")
		}
		if err := store.PublishForm(context.Background(), schema, *autoApprove); err != nil {
			logger.Fatal().Err(err).Str("event_id", schema.EventID).Msg("publish schema")
		}
		logger.Info().Str("event_id", schema.EventID).Msg("schema published")
	}

	uploader, err := upload.New(cfg.Uploads.Dir, cfg.Uploads.BaseURL,
		upload.WithMaxSizeMB(cfg.Uploads.MaxSizeMB),
		upload.WithAcceptedTypes(cfg.Uploads.AcceptedTypes))
	if err != nil {
		logger.Fatal().Err(err).Str("dir", cfg.Uploads.Dir).Msg("build uploader")
	}

	srv, err := server.New(store, logger, server.WithUploader(uploader))
	if err != nil {
		logger.Fatal().Err(err).Msg("build server")
	}

	router := srv.Router()
	router.Handle(uploader.BaseURL()+"/*",
		http.StripPrefix(uploader.BaseURL()+"/", http.FileServer(http.Dir(uploader.Dir()))))

	httpServer := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", cfg.HTTP.Addr).Msg("listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("serve")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSeconds)*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("shutdown")
	}
	logger.Info().Msg("stopped")
}

func newLogger(cfg config.LogConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	var logger zerolog.Logger
	if cfg.Pretty {
		output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
		logger = zerolog.New(output)
	} else {
		logger = zerolog.New(os.Stdout)
	}
	return logger.Level(level).With().Timestamp().Logger()
}
