package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/vessel-data-service/internal/adapter/breaker"
	httpadapter "github.com/couchcryptid/vessel-data-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/vessel-data-service/internal/adapter/kafka"
	"github.com/couchcryptid/vessel-data-service/internal/adapter/memstore"
	"github.com/couchcryptid/vessel-data-service/internal/adapter/postgres"
	"github.com/couchcryptid/vessel-data-service/internal/adapter/supabase"
	"github.com/couchcryptid/vessel-data-service/internal/config"
	"github.com/couchcryptid/vessel-data-service/internal/domain"
	"github.com/couchcryptid/vessel-data-service/internal/observability"
	"github.com/couchcryptid/vessel-data-service/internal/queue"
	"github.com/couchcryptid/vessel-data-service/internal/service"
)

const postgresPingRetries = 5

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open store", "backend", cfg.StoreBackend, "error", err)
		os.Exit(1)
	}
	defer closeStore()

	guarded := breaker.New(store, breaker.Settings{
		Name:        cfg.StoreBackend,
		MaxFailures: cfg.BreakerMaxFailures,
		OpenTimeout: cfg.BreakerOpenTimeout,
	}, logger, metrics)

	policy, err := domain.ParseDateFallbackPolicy(cfg.DateFallback)
	if err != nil {
		logger.Error("invalid date fallback policy", "error", err)
		os.Exit(1)
	}
	normalizer := domain.NewNormalizer(domain.VesselProfile{
		DefaultID: cfg.VesselDefaultID,
		Name:      cfg.VesselName,
		Type:      cfg.VesselType,
		Capacity:  cfg.VesselCapacity,
		TankCount: cfg.VesselTankCount,
	}, policy, logger, domain.WithDateFallbackHook(metrics.DateFallbacks.Inc))

	// Snapshot publishing is feature-flagged via KAFKA_ENABLED.
	var writer *kafkaadapter.Writer
	opts := service.Options{
		Queue:           queue.Options{MaxConcurrent: cfg.QueueMaxConcurrent, SettleDelay: cfg.QueueSettleDelay},
		LatestTTL:       cfg.LatestTTL,
		RefreshInterval: cfg.RefreshInterval,
		HistoryDays:     cfg.HistoryDays,
	}
	if cfg.KafkaEnabled {
		writer = kafkaadapter.NewWriter(cfg, logger)
		opts.Publisher = writer
		logger.Info("snapshot publishing enabled", "topic", cfg.KafkaSnapshotTopic, "brokers", cfg.KafkaBrokers)
	} else {
		logger.Info("snapshot publishing disabled")
	}

	svc := service.New(guarded, normalizer, opts, logger, metrics)
	srv := httpadapter.NewServer(cfg.HTTPAddr, svc, logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start warm-up and periodic refresh.
	go func() {
		if err := svc.Run(ctx); err != nil {
			logger.Error("refresh loop error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	svc.Close()
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}

// openStore builds the configured backing store and its cleanup func.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (domain.RecordStore, func(), error) {
	switch cfg.StoreBackend {
	case config.BackendSupabase:
		logger.Info("using supabase store", "table", cfg.StoreTable)
		return supabase.NewClient(cfg.SupabaseURL, cfg.SupabaseKey, cfg.StoreTable, cfg.StoreTimeout, logger), func() {}, nil
	case config.BackendPostgres:
		pg, err := postgres.Open(ctx, cfg.DatabaseURL, cfg.StoreTable, postgresPingRetries, logger)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("using postgres store", "table", cfg.StoreTable)
		return pg, func() {
			if err := pg.Close(); err != nil {
				logger.Error("postgres close error", "error", err)
			}
		}, nil
	case config.BackendMemory:
		mem, err := memstore.LoadFile(cfg.FixturePath)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("using in-memory fixture store", "path", cfg.FixturePath, "rows", mem.Len())
		return mem, func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unsupported store backend %q", cfg.StoreBackend)
	}
}
