package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/coldwatch/coldwatch-server/internal/alerts"
	"github.com/coldwatch/coldwatch-server/internal/api"
	"github.com/coldwatch/coldwatch-server/internal/config"
	"github.com/coldwatch/coldwatch-server/internal/ingest"
	"github.com/coldwatch/coldwatch-server/internal/metrics"
	"github.com/coldwatch/coldwatch-server/internal/ratelimit"
	"github.com/coldwatch/coldwatch-server/internal/storage"
)

func main() {
	// Command line flags
	var configFile string
	flag.StringVar(&configFile, "config", "config/coldwatch.yml", "Configuration file path")
	flag.Parse()

	// Setup logging
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	// Load configuration
	cfg, err := config.Load(configFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Set log level
	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	metrics.Init()

	// Connect to database
	store, err := storage.NewPostgresStore(cfg.Database.DSN, storage.Options{
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer store.Close()

	log.Info().Msg("Connected to database")

	// Rate limiting and idempotency move to redis when configured, so
	// limits hold across replicas.
	limits := ratelimit.Limits{
		Window:      cfg.RateLimit.Window,
		ReadMax:     cfg.RateLimit.ReadMax,
		MutationMax: cfg.RateLimit.MutationMax,
		ChartMax:    cfg.RateLimit.ChartMax,
		IngestMax:   cfg.RateLimit.IngestMax,
	}

	var limiter ratelimit.Limiter
	var idem ingest.IdempotencyStore

	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer client.Close()

		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := client.Ping(pingCtx).Err(); err != nil {
			cancel()
			log.Fatal().Err(err).Msg("Failed to connect to redis")
		}
		cancel()

		log.Info().Str("addr", cfg.Redis.Addr).Msg("Connected to redis")

		limiter = ratelimit.NewRedisLimiter(client, limits)
		idem = ingest.NewRedisIdempotencyStore(client, cfg.Ingest.IdempotencyTTL)
	} else {
		log.Info().Msg("Redis not configured, using in-process rate limits")
		limiter = ratelimit.NewMemoryLimiter(limits)
		idem = ingest.NewMemoryIdempotencyStore(cfg.Ingest.IdempotencyTTL)
	}
	defer limiter.Close()
	defer idem.Close()

	// Optional NATS connection for alert event publishing
	var nc *nats.Conn
	if cfg.NATS.URL != "" {
		log.Info().Str("url", cfg.NATS.URL).Msg("Connecting to NATS...")

		nc, err = nats.Connect(cfg.NATS.URL,
			nats.Name(cfg.Server.Name),
			nats.UserInfo(cfg.NATS.Username, cfg.NATS.Password),
			nats.ReconnectWait(cfg.NATS.ReconnectInterval),
			nats.MaxReconnects(cfg.NATS.MaxReconnects),
			nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
				log.Warn().Err(err).Msg("Disconnected from NATS")
			}),
			nats.ReconnectHandler(func(nc *nats.Conn) {
				log.Info().Msg("Reconnected to NATS")
			}),
		)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to connect to NATS, alert events disabled")
			nc = nil
		} else {
			defer nc.Close()
			log.Info().Msg("Connected to NATS")
		}
	} else {
		log.Info().Msg("NATS not configured, alert events disabled")
	}

	engine := alerts.NewEngine(store, alerts.NewNATSNotifier(nc))

	// Start REST API server
	apiServer := api.NewRESTServer(cfg, store, limiter, idem, engine)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := apiServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("REST API server failed")
		}
	}()

	// Wait for signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("Received signal, shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("API server shutdown failed")
	}

	wg.Wait()
	log.Info().Msg("Shutdown complete")
}
