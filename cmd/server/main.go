package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"day.glimpse/config"
	"day.glimpse/internal/api"
	"day.glimpse/internal/engine"
	"day.glimpse/internal/events"
	"day.glimpse/internal/identity"
	"day.glimpse/internal/metrics"
	"day.glimpse/internal/oracle"
	"day.glimpse/internal/store"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config error:", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Log.Level)
	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var rdb *redis.Client
	if cfg.NeedsRedis() {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Store.Redis.Addr,
			Password: cfg.Store.Redis.Password,
			DB:       cfg.Store.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			return fmt.Errorf("redis connection failed: %w", err)
		}
	}

	var (
		m          *metrics.Metrics
		metricsMux http.Handler
	)
	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		m = metrics.New(reg)
		metricsMux = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	}

	st, closeStore := initStore(cfg, rdb)
	defer closeStore()

	e, err := engine.New(engine.Deps{
		Store:         st,
		Oracle:        initOracle(cfg, rdb),
		Publisher:     initPublisher(cfg, rdb, logger),
		Logger:        logger,
		Metrics:       m,
		TTL:           cfg.Glimpse.TTL,
		MintEpoch:     cfg.Tokens.MintEpoch,
		OracleTimeout: cfg.Oracle.Timeout,
	})
	if err != nil {
		return err
	}

	router := api.SetupRouter(e, api.RouterConfig{
		RequestTimeout: cfg.Server.RequestTimeout,
		Metrics:        metricsMux,
	}, logger)

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.Info("server starting",
		"addr", cfg.Addr(),
		"store", cfg.Store.Type,
		"oracle", cfg.Oracle.Type,
		"ttl", cfg.Glimpse.TTL.String(),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		logger.Info("server shutting down")
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// initStore returns the store and a cleanup that releases it together with
// the shared Redis client, whichever of the two owns it.
func initStore(cfg *config.Config, rdb *redis.Client) (store.Store, func()) {
	switch cfg.Store.Type {
	case "redis":
		st := store.NewRedisStoreFromClient(rdb, cfg.Store.Redis.KeyPrefix)
		return st, func() { _ = st.Close() }
	default:
		st := store.NewMemoryStore()
		return st, func() {
			_ = st.Close()
			if rdb != nil {
				_ = rdb.Close()
			}
		}
	}
}

func initOracle(cfg *config.Config, rdb *redis.Client) oracle.FollowerOracle {
	switch cfg.Oracle.Type {
	case "redis":
		return oracle.NewRedisOracle(rdb, cfg.Oracle.KeyPrefix)
	default:
		o := oracle.NewStatic()
		for _, pair := range cfg.Oracle.Mutual {
			o.Befriend(identity.Normalize(pair[0]), identity.Normalize(pair[1]))
		}
		return o
	}
}

func initPublisher(cfg *config.Config, rdb *redis.Client, logger *slog.Logger) events.Publisher {
	var pubs events.Fanout
	if cfg.Events.Log {
		pubs = append(pubs, events.NewLogPublisher(logger.With("component", "events")))
	}
	if cfg.Events.RedisStream != "" {
		pubs = append(pubs, events.NewStreamPublisher(rdb, cfg.Events.RedisStream, cfg.Events.StreamMaxLen))
	}
	return pubs
}
