package view_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridwatch/traffic-anomaly-service/internal/domain"
	"github.com/gridwatch/traffic-anomaly-service/internal/observability"
	"github.com/gridwatch/traffic-anomaly-service/internal/view"
)

// --- mocks ---

type mockSource struct {
	readings []domain.NodeReading
	err      error
	calls    int
}

func (m *mockSource) Load(_ context.Context) ([]domain.NodeReading, error) {
	m.calls++
	return m.readings, m.err
}

type mockPublisher struct {
	published  []domain.ScoredReading
	computedAt time.Time
	err        error
	calls      int
}

func (m *mockPublisher) PublishBatch(_ context.Context, flagged []domain.ScoredReading, computedAt time.Time) error {
	m.calls++
	if m.err != nil {
		return m.err
	}
	m.published = append(m.published, flagged...)
	m.computedAt = computedAt
	return nil
}

func intPtr(v int) *int { return &v }

func baseReadings() []domain.NodeReading {
	return []domain.NodeReading{
		{NodeID: "n1", Month: 6, DayOfWeek: 0, Hour: 8, SpatialCluster: "1", Truth: 5, Predictions: 2},
		{NodeID: "n2", Month: 6, DayOfWeek: 0, Hour: 9, SpatialCluster: "1", Truth: 3, Predictions: 3},
		{NodeID: "n3", Month: 6, DayOfWeek: 4, Hour: 8, SpatialCluster: "2", Truth: 9, Predictions: 1},
		{NodeID: "n4", Month: 7, DayOfWeek: 2, Hour: 12, SpatialCluster: "2", Truth: 4, Predictions: 4},
	}
}

func newTestEngine(src view.Source, opts ...view.Option) *view.Engine {
	return view.New(src, slog.Default(), observability.NewMetricsForTesting(), opts...)
}

// --- tests ---

func TestEngine_Recompute(t *testing.T) {
	ctx := context.Background()

	t.Run("full cycle", func(t *testing.T) {
		src := &mockSource{readings: baseReadings()}
		fakeClock := clockwork.NewFakeClockAt(time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC))
		e := newTestEngine(src, view.WithClock(fakeClock))

		result, err := e.Recompute(ctx, view.Query{
			Selection: domain.Selection{Month: 6},
			Threshold: 2.0,
		})
		require.NoError(t, err)

		assert.Equal(t, 3, result.TotalRows)
		assert.Equal(t, 2, result.AnomalyCount, "n1 (score 3) and n3 (score 8)")
		assert.Equal(t, 2.0, result.Threshold)
		assert.Equal(t, fakeClock.Now(), result.ComputedAt)

		require.Len(t, result.Readings, 3)
		assert.Equal(t, "n1", result.Readings[0].NodeID)
		assert.True(t, result.Readings[0].Anomaly)
		assert.False(t, result.Readings[1].Anomaly)

		assert.Equal(t, []int{6, 7}, result.Options.Months)
		assert.Equal(t, []int{0, 4}, result.Options.DaysOfWeek)

		require.Len(t, result.ClusterCounts, 2)
		assert.Equal(t, domain.ClusterAnomalyCount{SpatialCluster: "1", Count: 1}, result.ClusterCounts[0])
		assert.Equal(t, domain.ClusterAnomalyCount{SpatialCluster: "2", Count: 1}, result.ClusterCounts[1])

		require.NotEmpty(t, result.HourDayMeans)
	})

	t.Run("empty selection yields valid empty view", func(t *testing.T) {
		src := &mockSource{readings: baseReadings()}
		e := newTestEngine(src)

		result, err := e.Recompute(ctx, view.Query{
			Selection: domain.Selection{Month: 6, DayOfWeek: intPtr(2), Hour: intPtr(3)},
			Threshold: 2.0,
		})
		require.NoError(t, err)

		assert.Zero(t, result.TotalRows)
		assert.Zero(t, result.AnomalyCount)
		assert.Empty(t, result.Readings)
		assert.Empty(t, result.ClusterCounts)
		assert.Empty(t, result.HourDayMeans)
		assert.Empty(t, result.Density)
		assert.Equal(t, []int{6, 7}, result.Options.Months, "options still computed for empty views")
	})

	t.Run("source failure propagates", func(t *testing.T) {
		src := &mockSource{err: errors.New("file vanished")}
		e := newTestEngine(src)

		_, err := e.Recompute(ctx, view.Query{Selection: domain.Selection{Month: 6}})
		require.Error(t, err)
	})
}

func TestEngine_Publishing(t *testing.T) {
	ctx := context.Background()

	t.Run("flagged rows are published with the view timestamp", func(t *testing.T) {
		src := &mockSource{readings: baseReadings()}
		pub := &mockPublisher{}
		fakeClock := clockwork.NewFakeClockAt(time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC))
		e := newTestEngine(src, view.WithPublisher(pub), view.WithClock(fakeClock))

		result, err := e.Recompute(ctx, view.Query{Selection: domain.Selection{Month: 6}, Threshold: 2.0})
		require.NoError(t, err)

		require.Len(t, pub.published, result.AnomalyCount)
		for _, s := range pub.published {
			assert.True(t, s.Anomaly, "only flagged rows are published")
		}
		assert.Equal(t, result.ComputedAt, pub.computedAt)
	})

	t.Run("nothing published for anomaly-free views", func(t *testing.T) {
		src := &mockSource{readings: baseReadings()}
		pub := &mockPublisher{}
		e := newTestEngine(src, view.WithPublisher(pub))

		_, err := e.Recompute(ctx, view.Query{Selection: domain.Selection{Month: 7}, Threshold: 2.0})
		require.NoError(t, err)
		assert.Zero(t, pub.calls)
	})

	t.Run("publish failure does not fail the view", func(t *testing.T) {
		src := &mockSource{readings: baseReadings()}
		pub := &mockPublisher{err: errors.New("broker down")}
		e := newTestEngine(src, view.WithPublisher(pub))

		result, err := e.Recompute(ctx, view.Query{Selection: domain.Selection{Month: 6}, Threshold: 2.0})
		require.NoError(t, err)
		assert.Equal(t, 2, result.AnomalyCount)
	})
}

func TestEngine_Readiness(t *testing.T) {
	ctx := context.Background()

	src := &mockSource{readings: baseReadings()}
	e := newTestEngine(src)

	require.Error(t, e.CheckReadiness(ctx), "not ready before warmup")

	require.NoError(t, e.Warmup(ctx))
	assert.NoError(t, e.CheckReadiness(ctx))
}

func TestEngine_WarmupFailure(t *testing.T) {
	src := &mockSource{err: errors.New("missing columns")}
	e := newTestEngine(src)

	require.Error(t, e.Warmup(context.Background()))
	assert.Error(t, e.CheckReadiness(context.Background()))
}

func TestEngine_MonthsAndOptions(t *testing.T) {
	ctx := context.Background()
	src := &mockSource{readings: baseReadings()}
	e := newTestEngine(src)

	months, err := e.Months(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{6, 7}, months)

	opts, err := e.Options(ctx, domain.Selection{Month: 6, DayOfWeek: intPtr(4)})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 4}, opts.DaysOfWeek)
	assert.Equal(t, []int{8}, opts.Hours)
}

func TestEngine_ExportCSV(t *testing.T) {
	src := &mockSource{readings: baseReadings()}
	e := newTestEngine(src)

	var buf bytes.Buffer
	q := view.Query{Selection: domain.Selection{Month: 6}, Threshold: 2.0}
	require.NoError(t, e.ExportCSV(context.Background(), q, &buf))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 4, "header plus the three June rows")
	assert.Contains(t, lines[0], "anomaly_score")
	assert.Contains(t, lines[1], "n1")
	assert.Contains(t, lines[1], "true")
}

func TestValidateThreshold(t *testing.T) {
	assert.NoError(t, view.ValidateThreshold(0))
	assert.NoError(t, view.ValidateThreshold(2.0))
	assert.NoError(t, view.ValidateThreshold(10))
	assert.Error(t, view.ValidateThreshold(-0.1))
	assert.Error(t, view.ValidateThreshold(10.1))
}
