// Package main provides the entry point for the platform API server.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/redis/go-redis/v9"

	"github.com/vendix/platform/internal/api"
	"github.com/vendix/platform/internal/api/health"
	"github.com/vendix/platform/internal/auth"
	"github.com/vendix/platform/internal/dnscheck"
	"github.com/vendix/platform/internal/events"
	"github.com/vendix/platform/internal/hostname"
	"github.com/vendix/platform/internal/registry"
	"github.com/vendix/platform/internal/resolver"
	"github.com/vendix/platform/internal/shutdown"
	pgstore "github.com/vendix/platform/internal/store/postgres"
	"github.com/vendix/platform/pkg/config"
	"github.com/vendix/platform/pkg/logger"
)

func main() {
	log := logger.New(slog.LevelInfo, true)

	cfg, err := config.Load()
	if err != nil {
		log.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	storeCfg := pgstore.DefaultConfig(cfg.DatabaseDSN)
	store, err := pgstore.NewPostgresStore(storeCfg, log.Logger)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	checker := health.NewChecker(store, api.Version)

	// Invalidation channel and resolution cache. With Redis configured both
	// are shared across instances; otherwise LISTEN/NOTIFY carries
	// invalidations and the cache stays process-local.
	var (
		channel     events.Channel
		cache       resolver.Cache
		redisClient *redis.Client
	)
	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			log.Error("invalid REDIS_URL", "error", err)
			os.Exit(1)
		}
		redisClient = redis.NewClient(opts)
		defer redisClient.Close()

		channel = events.NewRedisChannel(redisClient, log.Logger)
		cache = resolver.NewRedisCache(redisClient, cfg.Domains.ResolveCacheTTL, log.Logger)
		checker.AddOptional("redis", redisPinger{redisClient})
		log.Info("using Redis invalidation channel and shared cache")
	} else {
		pgChannel, err := events.NewPostgresChannel(store.DB(), cfg.DatabaseDSN, log.Logger)
		if err != nil {
			log.Error("failed to start LISTEN/NOTIFY channel", "error", err)
			os.Exit(1)
		}
		channel = pgChannel
		cache = resolver.NewMemoryCache(cfg.Domains.ResolveCacheTTL)
		log.Info("using Postgres invalidation channel and in-process cache")
	}

	classifier := hostname.NewClassifier(cfg.Domains.BaseDomain)
	registrySvc := registry.NewService(store, classifier, channel, log.Logger)
	verifier := dnscheck.NewVerifier(
		store,
		dnscheck.NewNetResolver(cfg.Domains.DNSTimeout),
		channel,
		cfg.Domains.EdgeCNAME,
		cfg.Domains.IngressIPs,
		log.Logger,
	)
	resolverSvc := resolver.NewService(store, cache, classifier, channel, log.Logger)

	authService := auth.NewService(&auth.Config{
		JWTSecret:    []byte(cfg.JWTSecret),
		TokenExpiry:  cfg.JWTExpiry,
		APIKeyHashes: cfg.APIKeyHashes,
	}, log.Logger)

	server := api.NewServer(cfg, registrySvc, resolverSvc, verifier, channel, authService, checker, log.Logger)

	coordinator := shutdown.NewCoordinator(
		shutdown.WithTimeout(cfg.ShutdownTimeout),
		shutdown.WithLogger(log.Logger),
	)
	coordinator.Register(shutdown.NewCloserComponent("store", store))
	coordinator.Register(shutdown.NewCloserComponent("invalidation-channel", channel))
	coordinator.Register(shutdown.NewCloserComponent("resolver", resolverSvc))
	coordinator.Register(shutdown.NewFuncComponent("api-server", server.Shutdown))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		coordinator.WaitForSignal()
		cancel()
	}()

	log.Info("starting API server",
		"host", cfg.APIHost,
		"port", cfg.APIPort,
		"base_domain", cfg.Domains.BaseDomain,
	)

	if err := server.Start(ctx); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}

	coordinator.Wait()
	log.Info("server stopped")
	os.Exit(coordinator.ExitCode())
}

// redisPinger adapts the Redis client to the health.Pinger interface.
type redisPinger struct {
	client *redis.Client
}

func (p redisPinger) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}
