package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/evanofslack/ddns-sync/config"
	"github.com/evanofslack/ddns-sync/internal/logger"
	"github.com/evanofslack/ddns-sync/metrics"
	"github.com/evanofslack/ddns-sync/provider/cloudflare"
	"github.com/evanofslack/ddns-sync/reconcile"
	"github.com/evanofslack/ddns-sync/resolver"
	"github.com/evanofslack/ddns-sync/schedule"
	"github.com/evanofslack/ddns-sync/state"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	once := flag.Bool("once", false, "run a single pass and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Configure(cfg.Log.Level, cfg.Log.Env)

	metrics := metrics.New()

	history, err := state.New(cfg.StatePath, metrics)
	if err != nil {
		slog.Error("Failed to open state store", "error", err)
		os.Exit(1)
	}
	defer history.Close()

	addressResolver := resolver.New(
		cfg.Resolver.IPv4Endpoints, cfg.Resolver.IPv6Endpoints, cfg.ResolverTimeout(), metrics)

	cf, err := cloudflare.New(cfg.Token, metrics)
	if err != nil {
		slog.Error("Failed to initialize DNS provider", "error", err)
		os.Exit(1)
	}

	targets := make([]reconcile.Target, 0, len(cfg.Targets))
	for _, t := range cfg.Targets {
		targets = append(targets, reconcile.Target{Domain: t.Domain, Type: t.Type})
	}

	settings := reconcile.Settings{Zone: cfg.Zone, TTL: cfg.TTL, Proxied: cfg.Proxied}
	engine := reconcile.NewEngine(addressResolver, cf, history, settings, metrics)

	slog.Info("Starting ddns-sync service",
		"zone", cfg.Zone,
		"targets", len(targets),
		"ttl", cfg.TTL,
		"proxied", cfg.Proxied,
		"interval_seconds", cfg.IntervalSeconds,
		"calendar", cfg.Calendar)

	if *once {
		results := performPass(context.Background(), engine, targets, metrics)
		if !results.OK() {
			os.Exit(1)
		}
		return
	}

	scheduler, err := schedule.New(cfg.Interval(), cfg.Calendar, cfg.RunOnStart)
	if err != nil {
		slog.Error("Invalid schedule configuration", "error", err)
		os.Exit(1)
	}

	// HTTP server for metrics, health and last-change status
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/status", statusHandler(history))

	server := &http.Server{
		Addr:    cfg.MetricsAddr,
		Handler: mux,
	}

	go func() {
		slog.Info("Starting metrics server", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Metrics server failed", "error", err)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	wg := &sync.WaitGroup{}
	wg.Add(1)
	go func() {
		defer wg.Done()
		scheduler.Run(ctx, func(ctx context.Context) {
			performPass(ctx, engine, targets, metrics)
		})
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	slog.Info("Shutdown signal received")
	cancel()

	serverShutdownCtx, cancelServer := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelServer()
	if err := server.Shutdown(serverShutdownCtx); err != nil {
		slog.Error("Metrics server shutdown error", "error", err)
	}

	wg.Wait()
	slog.Info("Service shutdown complete")
}

func performPass(ctx context.Context, engine reconcile.Engine, targets []reconcile.Target, metrics *metrics.Metrics) reconcile.Results {
	slog.Info("Starting reconciliation pass", "targets", len(targets))
	start := time.Now()
	defer func() {
		metrics.SetPassDuration(time.Since(start))
	}()

	results := engine.RunPass(ctx, targets)

	counts := map[reconcile.OutcomeKind]int{}
	for _, outcome := range results {
		counts[outcome.Kind]++
	}
	slog.Info("Pass completed",
		"unchanged", counts[reconcile.Unchanged],
		"updated", counts[reconcile.Updated],
		"created", counts[reconcile.Created],
		"failed", counts[reconcile.Failed])
	metrics.IncPassRun(results.OK())

	return results
}

func statusHandler(history state.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		events, err := history.Events(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(events); err != nil {
			slog.Error("Failed to write status response", "error", err)
		}
	}
}
