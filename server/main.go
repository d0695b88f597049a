package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"

	"quiver/ranged"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	defaultTick, _ := strconv.Atoi(getEnvDefault("QUIVER_TICK", strconv.Itoa(DefaultTickRate)))
	defaultBots, _ := strconv.Atoi(getEnvDefault("QUIVER_BOTS", "2"))

	addr := flag.String("addr", getEnvDefault("QUIVER_ADDR", ":8080"), "HTTP listen address")
	dbPath := flag.String("db", getEnvDefault("QUIVER_DB", "quiver.db"), "SQLite database path (empty disables persistence)")
	tickRate := flag.Int("tick", defaultTick, "simulation ticks per second")
	bots := flag.Int("bots", defaultBots, "bots seated in quick-match sessions")
	tuningPath := flag.String("tuning", getEnvDefault("QUIVER_TUNING", ""), "JSON tuning file (default: built-in tuning)")
	otlpEndpoint := flag.String("otlp", getEnvDefault("QUIVER_OTLP_ENDPOINT", ""), "OTLP gRPC collector endpoint (empty logs to stdout)")
	logLevel := flag.String("log-level", getEnvDefault("QUIVER_LOG_LEVEL", "info"), "debug, info, warn or error")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	level, err := parseLevel(*logLevel)
	if err != nil {
		return err
	}
	logger, shutdownTelemetry, err := setupTelemetry(ctx, *otlpEndpoint, level, os.Stdout)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		shutdownTelemetry(sctx)
	}()

	tuning := ranged.DefaultTuning()
	if *tuningPath != "" {
		if tuning, err = ranged.LoadTuning(*tuningPath); err != nil {
			return fmt.Errorf("load tuning %s: %w", *tuningPath, err)
		}
	}

	var db *DB
	if *dbPath != "" {
		if db, err = OpenDB(*dbPath); err != nil {
			return fmt.Errorf("open database %s: %w", *dbPath, err)
		}
		defer db.Close()
	}
	analytics := NewAnalytics(db, logger)
	defer analytics.Stop()

	sessions := NewSessionManager(Env{
		Tuning:    tuning,
		TickRate:  *tickRate,
		Log:       logger,
		Analytics: analytics,
	}, *bots)
	hub := NewHub(sessions, NewAuth(db, logger), analytics, logger)

	server := &http.Server{
		Addr:              *addr,
		Handler:           otelhttp.NewHandler(SetupRoutes(hub), "quiver"),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return hub.Run(gctx) })
	g.Go(func() error { return sessions.RunReaper(gctx, reapInterval, sessionIdleTimeout) })
	g.Go(func() error {
		logger.Info("server starting", "addr", *addr, "tick", *tickRate, "tuning_hash", tuning.Hash())
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		sessions.StopAll()
		return server.Shutdown(sctx)
	})

	return g.Wait()
}
