// Package main implements the EPG guide server.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/savid/epg-guide/config"
	"github.com/savid/epg-guide/handlers"
	"github.com/savid/epg-guide/pkg/data"
	"github.com/savid/epg-guide/pkg/guide"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

func main() {
	// Configure logrus
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	cfg, err := config.New()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}

	closeLog, err := configureLogging(logrus.StandardLogger(), cfg, os.Stderr)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to configure logging")
	}
	// Fatal exits without running deferred calls.
	logrus.RegisterExitHandler(closeLog)
	defer closeLog()

	logger := logrus.StandardLogger()

	if err := run(cfg, logger); err != nil {
		logger.WithError(err).Fatal("Server failed")
	}
	logger.Info("Server stopped")
}

// configureLogging applies the configured level and, when a log file is set,
// tees output to it. The returned func closes the file and is safe to call
// more than once.
func configureLogging(logger *logrus.Logger, cfg *config.Config, stderr io.Writer) (func(), error) {
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}
	logger.SetLevel(level)

	if cfg.LogFile == "" {
		return func() {}, nil
	}

	logFile, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	logger.SetOutput(io.MultiWriter(stderr, logFile))

	var once sync.Once
	return func() {
		once.Do(func() {
			logger.SetOutput(stderr)
			_ = logFile.Close()
		})
	}, nil
}

func run(cfg *config.Config, logger *logrus.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := data.NewStore()
	cache := data.NewCache(cfg.CacheDir)
	fetcher := data.NewFetcher(cfg.FetchTimeout, logger)
	refresher := data.NewRefresher(cfg, store, cache, fetcher, logger)
	session := guide.NewSession(refresher, store, logger)

	// A failed first load leaves the server up; /refresh can retry it.
	logger.WithFields(logrus.Fields{
		"url":       cfg.EPGURL,
		"cache_dir": cfg.CacheDir,
	}).Info("Loading initial EPG data...")
	if err := session.OnRefreshRequested(ctx); err != nil {
		logger.WithError(err).Warn("Initial EPG load failed, serving without data")
	}

	router := handlers.NewRouter(
		handlers.NewEPGHandler(store, refresher, logger),
		handlers.NewGuideHandler(session, logger),
		logger,
	)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  120 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		refresher.Start(gctx)
		return nil
	})

	g.Go(func() error {
		logger.WithField("port", cfg.Port).Info("Starting EPG guide server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Error("Failed to gracefully shutdown")
			return err
		}
		return nil
	})

	return g.Wait()
}
