package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/ecoquest/ecoquest/internal/catalog"
	"github.com/ecoquest/ecoquest/internal/config"
	"github.com/ecoquest/ecoquest/internal/database"
	"github.com/ecoquest/ecoquest/internal/generate"
	"github.com/ecoquest/ecoquest/internal/geocode"
	"github.com/ecoquest/ecoquest/internal/handler/health"
	"github.com/ecoquest/ecoquest/internal/migrations"
	"github.com/ecoquest/ecoquest/internal/quest"
	"github.com/ecoquest/ecoquest/internal/server"
	"github.com/ecoquest/ecoquest/internal/store"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, stdout io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))

	checks := map[string]health.Checker{}

	// --- Store ---
	var st store.Store
	switch cfg.Store {
	case "memory":
		st = store.NewMemStore()
		logger.Info("using in-memory store")
	default:
		db, err := database.Open(ctx, cfg.DBPath)
		if err != nil {
			return fmt.Errorf("connecting to sqlite: %w", err)
		}
		defer db.Close()

		n, err := migrations.Run(ctx, db)
		if err != nil {
			return fmt.Errorf("running migrations: %w", err)
		}
		logger.Info("connected to sqlite", "path", cfg.DBPath, "migrations_applied", n)
		st = store.NewDocStore(db)
	}
	checks["store"] = health.CheckFunc(st.Ping)

	// --- Redis (optional geocode cache) ---
	geoOpts := []geocode.Option{geocode.WithLogger(logger)}
	if cfg.RedisURL != "" {
		rdb, err := openRedis(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("connecting to redis: %w", err)
		}
		defer rdb.Close()
		logger.Info("connected to redis")

		geoOpts = append(geoOpts, geocode.WithCache(rdb, cfg.GeocodeCacheTTL))
		checks["redis"] = health.CheckFunc(func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		})
	}
	geocoder := geocode.New(cfg.GeocodeURL, cfg.GeocodeTimeout, geoOpts...)

	// --- Generation ---
	cat := catalog.Default()
	var (
		generators []generate.Generator
		hinter     generate.Hinter
	)
	if cfg.AIURL != "" {
		ai := generate.NewAI(generate.AIConfig{
			BaseURL:    cfg.AIURL,
			APIKey:     cfg.AIAPIKey,
			Model:      cfg.AIModel,
			Timeout:    cfg.AITimeout,
			MaxRetries: cfg.AIMaxRetries,
		}, generate.WithAILogger(logger))
		generators = append(generators, ai)
		hinter = ai
		logger.Info("ai generation enabled", "url", cfg.AIURL, "model", cfg.AIModel)
	}
	if cfg.AIURL == "" || cfg.AIFallbackTemplate {
		generators = append(generators, generate.NewTemplates(cat))
	}

	// --- Metrics ---
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// --- Quest service ---
	broker := server.NewBroker()
	svc := quest.New(quest.Deps{
		Store:               st,
		Generator:           generate.NewChain(logger, generators...),
		Geocoder:            geocoder,
		Hinter:              hinter,
		Publisher:           broker,
		Metrics:             quest.NewMetrics(reg),
		Logger:              logger,
		EnforceSingleActive: cfg.EnforceSingleActive,
	})

	// --- HTTP Server ---
	srv := server.New(server.Options{
		Addr:         cfg.HTTPAddr,
		Logger:       logger,
		Quest:        svc,
		Catalog:      cat,
		Broker:       broker,
		HealthChecks: checks,
		Registry:     reg,
		CORSOrigins:  cfg.CORSOrigins,
		SPADir:       cfg.SPADir,
	})

	// --- Run ---
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting http server", "addr", cfg.HTTPAddr)
		return srv.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down http server")
		return srv.Shutdown(context.Background())
	})

	return g.Wait()
}

func openRedis(ctx context.Context, rawURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	return rdb, nil
}
