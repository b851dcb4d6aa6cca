// Package config loads service settings from environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/gridwatch/traffic-anomaly-service/internal/dataset"
	"github.com/gridwatch/traffic-anomaly-service/internal/domain"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	DataPath        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// DefaultThreshold is used when a request omits the threshold parameter.
	DefaultThreshold float64
	// InvalidNumericPolicy controls handling of unparseable truth/predictions
	// values at load time.
	InvalidNumericPolicy dataset.InvalidNumericPolicy

	// Mapbox reverse-geocoding configuration.
	MapboxToken     string
	MapboxEnabled   bool
	MapboxTimeout   time.Duration
	MapboxCacheSize int

	// Kafka anomaly-event publishing configuration.
	KafkaBrokers      []string
	KafkaAnomalyTopic string
	KafkaEnabled      bool
}

// Load reads configuration from environment variables, applying defaults
// where unset. A .env file in the working directory is honored if present.
func Load() (*Config, error) {
	_ = godotenv.Load() // ignore missing file

	shutdownTimeout, err := parseDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	threshold, err := parseThreshold()
	if err != nil {
		return nil, err
	}

	policy := dataset.InvalidNumericPolicy(envOrDefault("ON_INVALID_NUMERIC", string(dataset.PolicyZero)))
	if !dataset.ValidPolicy(policy) {
		return nil, fmt.Errorf("invalid ON_INVALID_NUMERIC %q (want zero, error, or skip_row)", policy)
	}

	mapboxTimeout, err := parseDuration("MAPBOX_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}

	mapboxToken := os.Getenv("MAPBOX_TOKEN")
	mapboxEnabled := mapboxToken != ""
	if v := os.Getenv("MAPBOX_ENABLED"); v != "" {
		mapboxEnabled = v == "true"
	}

	kafkaTopic := os.Getenv("KAFKA_ANOMALY_TOPIC")
	kafkaEnabled := kafkaTopic != ""
	if v := os.Getenv("KAFKA_ENABLED"); v != "" {
		kafkaEnabled = v == "true"
	}

	cfg := &Config{
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		DataPath:        envOrDefault("DATA_PATH", "data/processed/node_features_with_predictions.csv"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		DefaultThreshold:     threshold,
		InvalidNumericPolicy: policy,

		MapboxToken:     mapboxToken,
		MapboxEnabled:   mapboxEnabled,
		MapboxTimeout:   mapboxTimeout,
		MapboxCacheSize: parseMapboxCacheSize(),

		KafkaBrokers:      parseBrokers(envOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaAnomalyTopic: kafkaTopic,
		KafkaEnabled:      kafkaEnabled,
	}

	if cfg.DataPath == "" {
		return nil, errors.New("DATA_PATH is required")
	}
	if cfg.MapboxEnabled && cfg.MapboxToken == "" {
		return nil, errors.New("MAPBOX_ENABLED is true but MAPBOX_TOKEN is not set")
	}
	if cfg.KafkaEnabled && cfg.KafkaAnomalyTopic == "" {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_ANOMALY_TOPIC is not set")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is empty")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseDuration(key, fallback string) (time.Duration, error) {
	s := envOrDefault(key, fallback)
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseThreshold() (float64, error) {
	s := os.Getenv("DEFAULT_THRESHOLD")
	if s == "" {
		return domain.DefaultThreshold, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < domain.MinThreshold || v > domain.MaxThreshold {
		return 0, fmt.Errorf("invalid DEFAULT_THRESHOLD %q (want a number in [%g, %g])",
			s, domain.MinThreshold, domain.MaxThreshold)
	}
	return v, nil
}

func parseMapboxCacheSize() int {
	if s := os.Getenv("MAPBOX_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 1000
}

func parseBrokers(s string) []string {
	parts := strings.Split(s, ",")
	brokers := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			brokers = append(brokers, p)
		}
	}
	return brokers
}
