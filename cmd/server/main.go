package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/gridwatch/traffic-anomaly-service/internal/adapter/http"
	kafkaadapter "github.com/gridwatch/traffic-anomaly-service/internal/adapter/kafka"
	"github.com/gridwatch/traffic-anomaly-service/internal/adapter/mapbox"
	"github.com/gridwatch/traffic-anomaly-service/internal/config"
	"github.com/gridwatch/traffic-anomaly-service/internal/dataset"
	"github.com/gridwatch/traffic-anomaly-service/internal/observability"
	"github.com/gridwatch/traffic-anomaly-service/internal/view"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	loader := dataset.NewLoader(cfg.DataPath, cfg.InvalidNumericPolicy, logger)

	opts := []view.Option{}

	// Reverse geocoding for map labels (feature-flagged via MAPBOX_ENABLED / MAPBOX_TOKEN).
	if cfg.MapboxEnabled {
		client := mapbox.NewClient(cfg.MapboxToken, cfg.MapboxTimeout, logger, metrics)
		opts = append(opts, view.WithGeocoder(mapbox.NewCachedGeocoder(client, cfg.MapboxCacheSize, metrics)))
		logger.Info("mapbox geocoding enabled", "cache_size", cfg.MapboxCacheSize, "timeout", cfg.MapboxTimeout)
	} else {
		logger.Info("mapbox geocoding disabled")
	}

	// Anomaly-event publishing (feature-flagged via KAFKA_ENABLED / KAFKA_ANOMALY_TOPIC).
	var publisher *kafkaadapter.Publisher
	if cfg.KafkaEnabled {
		publisher = kafkaadapter.NewPublisher(cfg, logger)
		opts = append(opts, view.WithPublisher(publisher))
		logger.Info("anomaly publishing enabled", "topic", cfg.KafkaAnomalyTopic)
	} else {
		logger.Info("anomaly publishing disabled")
	}

	engine := view.New(loader, logger, metrics, opts...)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The base table must load cleanly before serving; a partial table is
	// never served.
	if err := engine.Warmup(ctx); err != nil {
		logger.Error("dataset load failed", "error", err)
		os.Exit(1)
	}
	stats := loader.Stats()
	metrics.DatasetCoerced.WithLabelValues("coerced").Add(float64(stats.Coerced))
	metrics.DatasetCoerced.WithLabelValues("skipped").Add(float64(stats.Skipped))

	srv := httpadapter.NewServer(cfg.HTTPAddr, engine, cfg.DefaultThreshold, logger)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if publisher != nil {
		if err := publisher.Close(); err != nil {
			logger.Error("kafka publisher close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
