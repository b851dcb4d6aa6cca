// Package view recomputes the filtered, scored, and aggregated dashboard
// view on every interaction.
package view

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/gridwatch/traffic-anomaly-service/internal/dataset"
	"github.com/gridwatch/traffic-anomaly-service/internal/domain"
	"github.com/gridwatch/traffic-anomaly-service/internal/observability"
)

// densityCellSize is the heatmap grid resolution in degrees (~1km of
// latitude).
const densityCellSize = 0.01

// Source supplies the immutable base table. Load must be cheap after the
// first call.
type Source interface {
	Load(ctx context.Context) ([]domain.NodeReading, error)
}

// Publisher emits flagged rows to an external sink.
type Publisher interface {
	PublishBatch(ctx context.Context, flagged []domain.ScoredReading, computedAt time.Time) error
}

// Query is one interaction's filter and threshold state.
type Query struct {
	Selection domain.Selection
	Threshold float64
}

// Result is the fully derived view for one query.
type Result struct {
	Readings      []domain.ScoredReading       `json:"readings"`
	Options       domain.SelectorOptions       `json:"options"`
	ClusterCounts []domain.ClusterAnomalyCount `json:"cluster_counts"`
	HourDayMeans  []domain.HourDayMean         `json:"hour_day_means"`
	Density       []domain.DensityCell         `json:"density"`
	TotalRows     int                          `json:"total_rows"`
	AnomalyCount  int                          `json:"anomaly_count"`
	Threshold     float64                      `json:"threshold"`
	ComputedAt    time.Time                    `json:"computed_at"`
}

// Engine runs the load → filter → derive → aggregate chain per interaction.
// The base table is read once through the Source; everything else is
// recomputed from scratch on each call.
type Engine struct {
	source    Source
	geocoder  domain.Geocoder
	publisher Publisher
	logger    *slog.Logger
	metrics   *observability.Metrics
	clock     clockwork.Clock
	ready     atomic.Bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithGeocoder enables place-name enrichment of view rows.
func WithGeocoder(g domain.Geocoder) Option {
	return func(e *Engine) { e.geocoder = g }
}

// WithPublisher enables publishing of flagged rows after each recompute.
func WithPublisher(p Publisher) Option {
	return func(e *Engine) { e.publisher = p }
}

// WithClock swaps the time source, for deterministic tests.
func WithClock(c clockwork.Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// New creates an Engine over the given source.
func New(source Source, logger *slog.Logger, metrics *observability.Metrics, opts ...Option) *Engine {
	e := &Engine{
		source:  source,
		logger:  logger,
		metrics: metrics,
		clock:   clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ValidateThreshold checks a user-supplied threshold against the control
// surface range.
func ValidateThreshold(v float64) error {
	if v < domain.MinThreshold || v > domain.MaxThreshold {
		return fmt.Errorf("threshold %g out of range [%g, %g]",
			v, domain.MinThreshold, domain.MaxThreshold)
	}
	return nil
}

// Warmup performs the initial dataset load. A *dataset.LoadError here is
// fatal: the service must not serve views from a partial table.
func (e *Engine) Warmup(ctx context.Context) error {
	readings, err := e.source.Load(ctx)
	if err != nil {
		return err
	}
	e.ready.Store(true)
	e.metrics.ServiceReady.Set(1)
	e.metrics.DatasetRows.Set(float64(len(readings)))
	return nil
}

// CheckReadiness returns nil once the base table has loaded.
func (e *Engine) CheckReadiness(_ context.Context) error {
	if !e.ready.Load() {
		return errors.New("dataset has not loaded yet")
	}
	return nil
}

// Months returns the distinct month values of the base table.
func (e *Engine) Months(ctx context.Context) ([]int, error) {
	readings, err := e.source.Load(ctx)
	if err != nil {
		return nil, err
	}
	return domain.Months(readings), nil
}

// Options returns the cascading selector values for sel.
func (e *Engine) Options(ctx context.Context, sel domain.Selection) (domain.SelectorOptions, error) {
	readings, err := e.source.Load(ctx)
	if err != nil {
		return domain.SelectorOptions{}, err
	}
	return domain.Options(readings, sel), nil
}

// Recompute runs one full filter → derive → aggregate cycle for q. An empty
// filter result is a valid empty view, not an error.
func (e *Engine) Recompute(ctx context.Context, q Query) (Result, error) {
	start := time.Now()

	base, err := e.source.Load(ctx)
	if err != nil {
		return Result{}, err
	}

	filtered := domain.Filter(base, q.Selection)
	filtered = domain.LabelNodes(ctx, filtered, e.geocoder, e.logger)
	scored := domain.Score(filtered, q.Threshold)
	flagged := domain.Anomalies(scored)

	result := Result{
		Readings:      scored,
		Options:       domain.Options(base, q.Selection),
		ClusterCounts: domain.CountAnomaliesByCluster(scored),
		HourDayMeans:  domain.MeanTruthByHourDay(scored),
		Density:       domain.AnomalyDensity(scored, densityCellSize),
		TotalRows:     len(scored),
		AnomalyCount:  len(flagged),
		Threshold:     q.Threshold,
		ComputedAt:    e.clock.Now().UTC(),
	}

	e.metrics.Recomputes.Inc()
	e.metrics.RecomputeTime.Observe(time.Since(start).Seconds())
	e.metrics.ViewRows.Observe(float64(result.TotalRows))
	e.metrics.AnomalyRows.Observe(float64(result.AnomalyCount))

	e.publishFlagged(ctx, flagged, result.ComputedAt)

	return result, nil
}

// ExportCSV recomputes the view for q and streams it to w as CSV.
func (e *Engine) ExportCSV(ctx context.Context, q Query, w io.Writer) error {
	result, err := e.Recompute(ctx, q)
	if err != nil {
		return err
	}
	if err := dataset.WriteCSV(w, result.Readings); err != nil {
		return err
	}
	e.metrics.ExportsServed.Inc()
	return nil
}

// publishFlagged forwards flagged rows to the configured publisher, if any.
// Publish failures never fail the view.
func (e *Engine) publishFlagged(ctx context.Context, flagged []domain.ScoredReading, computedAt time.Time) {
	if e.publisher == nil || len(flagged) == 0 {
		return
	}
	if err := e.publisher.PublishBatch(ctx, flagged, computedAt); err != nil {
		e.logger.Warn("anomaly publish failed", "error", err, "rows", len(flagged))
		e.metrics.PublishErrors.Inc()
		return
	}
	e.metrics.AnomaliesPublished.Add(float64(len(flagged)))
}
