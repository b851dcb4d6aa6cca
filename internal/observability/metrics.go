package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// recompute engine and its adapters.
type Metrics struct {
	DatasetRows        prometheus.Gauge
	DatasetCoerced     *prometheus.CounterVec // labels: outcome={coerced,skipped}
	ServiceReady       prometheus.Gauge
	Recomputes         prometheus.Counter
	RecomputeTime      prometheus.Histogram
	ViewRows           prometheus.Histogram
	AnomalyRows        prometheus.Histogram
	ExportsServed      prometheus.Counter
	AnomaliesPublished prometheus.Counter
	PublishErrors      prometheus.Counter

	// Geocoding metrics.
	GeocodeRequests    *prometheus.CounterVec // labels: outcome={success,error,empty}
	GeocodeCache       *prometheus.CounterVec // labels: result={hit,miss}
	GeocodeAPIDuration prometheus.Histogram
}

// NewMetrics creates and registers all service metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		DatasetRows: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "traffic_anomaly",
			Name:      "dataset_rows",
			Help:      "Rows in the loaded base table.",
		}),
		DatasetCoerced: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "traffic_anomaly",
			Name:      "dataset_invalid_values_total",
			Help:      "Invalid numeric values handled at load time, by outcome.",
		}, []string{"outcome"}),
		ServiceReady: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "traffic_anomaly",
			Name:      "service_ready",
			Help:      "1 when the base table has loaded, 0 otherwise.",
		}),
		Recomputes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "traffic_anomaly",
			Name:      "recomputes_total",
			Help:      "Total filter-derive-aggregate recomputations.",
		}),
		RecomputeTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "traffic_anomaly",
			Name:      "recompute_duration_seconds",
			Help:      "Duration of a complete filter-derive-aggregate cycle.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5},
		}),
		ViewRows: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "traffic_anomaly",
			Name:      "view_rows",
			Help:      "Rows in the filtered view per recompute.",
			Buckets:   []float64{0, 10, 50, 100, 500, 1000, 5000, 10000, 50000},
		}),
		AnomalyRows: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "traffic_anomaly",
			Name:      "anomaly_rows",
			Help:      "Flagged rows per recompute.",
			Buckets:   []float64{0, 1, 5, 10, 50, 100, 500, 1000, 5000},
		}),
		ExportsServed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "traffic_anomaly",
			Name:      "exports_served_total",
			Help:      "CSV exports written to clients.",
		}),
		AnomaliesPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "traffic_anomaly",
			Name:      "anomalies_published_total",
			Help:      "Flagged rows published to the anomaly topic.",
		}),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "traffic_anomaly",
			Name:      "publish_errors_total",
			Help:      "Failed publishes to the anomaly topic.",
		}),
		GeocodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "traffic_anomaly",
			Name:      "geocode_requests_total",
			Help:      "Geocoding API requests by outcome.",
		}, []string{"outcome"}),
		GeocodeCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "traffic_anomaly",
			Name:      "geocode_cache_total",
			Help:      "Geocoding cache lookups by result.",
		}, []string{"result"}),
		GeocodeAPIDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "traffic_anomaly",
			Name:      "geocode_api_duration_seconds",
			Help:      "Mapbox API request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
	}

	prometheus.MustRegister(
		m.DatasetRows,
		m.DatasetCoerced,
		m.ServiceReady,
		m.Recomputes,
		m.RecomputeTime,
		m.ViewRows,
		m.AnomalyRows,
		m.ExportsServed,
		m.AnomaliesPublished,
		m.PublishErrors,
		m.GeocodeRequests,
		m.GeocodeCache,
		m.GeocodeAPIDuration,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		DatasetRows:        prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "traffic_anomaly", Name: "dataset_rows"}),
		DatasetCoerced:     prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "traffic_anomaly", Name: "dataset_invalid_values_total"}, []string{"outcome"}),
		ServiceReady:       prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "traffic_anomaly", Name: "service_ready"}),
		Recomputes:         prometheus.NewCounter(prometheus.CounterOpts{Namespace: "traffic_anomaly", Name: "recomputes_total"}),
		RecomputeTime:      prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "traffic_anomaly", Name: "recompute_duration_seconds"}),
		ViewRows:           prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "traffic_anomaly", Name: "view_rows"}),
		AnomalyRows:        prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "traffic_anomaly", Name: "anomaly_rows"}),
		ExportsServed:      prometheus.NewCounter(prometheus.CounterOpts{Namespace: "traffic_anomaly", Name: "exports_served_total"}),
		AnomaliesPublished: prometheus.NewCounter(prometheus.CounterOpts{Namespace: "traffic_anomaly", Name: "anomalies_published_total"}),
		PublishErrors:      prometheus.NewCounter(prometheus.CounterOpts{Namespace: "traffic_anomaly", Name: "publish_errors_total"}),
		GeocodeRequests:    prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "traffic_anomaly", Name: "geocode_requests_total"}, []string{"outcome"}),
		GeocodeCache:       prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "traffic_anomaly", Name: "geocode_cache_total"}, []string{"result"}),
		GeocodeAPIDuration: prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "traffic_anomaly", Name: "geocode_api_duration_seconds"}),
	}
}
