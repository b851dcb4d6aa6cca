// Package dataset reads the precomputed node-feature CSV into the immutable
// base table and writes the derived-view export.
package dataset

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/gridwatch/traffic-anomaly-service/internal/domain"
)

// Required columns in the source CSV. The _x suffixes are join artifacts
// from the upstream feature pipeline and are part of the file contract.
var requiredColumns = []string{
	"month",
	"day_of_week",
	"hour",
	"latitude_x",
	"longitude_x",
	"node_id",
	"spatial_cluster_x",
	"grid_cluster_x",
	"truth",
	"predictions",
}

// InvalidNumericPolicy controls what happens when a truth or predictions
// value cannot be parsed as numeric.
type InvalidNumericPolicy string

const (
	// PolicyZero coerces the value to 0. This is the compatible default
	// inherited from the source dashboard.
	PolicyZero InvalidNumericPolicy = "zero"
	// PolicyError fails the load.
	PolicyError InvalidNumericPolicy = "error"
	// PolicySkipRow drops the affected row.
	PolicySkipRow InvalidNumericPolicy = "skip_row"
)

// ValidPolicy reports whether p is a recognized policy value.
func ValidPolicy(p InvalidNumericPolicy) bool {
	switch p {
	case PolicyZero, PolicyError, PolicySkipRow:
		return true
	}
	return false
}

// LoadError is a fatal dataset failure: missing or unreadable file, bad
// header, or (under PolicyError) an unparseable numeric value. The caller
// must halt rather than proceed with a partial table.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load dataset %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// LoadStats summarizes a completed load.
type LoadStats struct {
	Rows    int // rows in the base table
	Coerced int // truth/predictions values coerced to 0
	Skipped int // rows dropped under PolicySkipRow
}

// Loader reads the dataset at most once per process. The first Load call
// reads and parses the file; every later call returns the same in-memory
// table. The table is never mutated after load.
type Loader struct {
	path   string
	policy InvalidNumericPolicy
	logger *slog.Logger

	once     sync.Once
	readings []domain.NodeReading
	stats    LoadStats
	err      error
}

// NewLoader creates a Loader for the CSV at path.
func NewLoader(path string, policy InvalidNumericPolicy, logger *slog.Logger) *Loader {
	return &Loader{path: path, policy: policy, logger: logger}
}

// Load returns the base table, reading the backing file on the first call
// only. A failed first load is cached too: the dataset is not retried.
func (l *Loader) Load(_ context.Context) ([]domain.NodeReading, error) {
	l.once.Do(func() {
		l.readings, l.stats, l.err = l.read()
		if l.err != nil {
			return
		}
		l.logger.Info("dataset loaded",
			"path", l.path,
			"rows", l.stats.Rows,
			"coerced_values", l.stats.Coerced,
			"skipped_rows", l.stats.Skipped,
		)
	})
	return l.readings, l.err
}

// Stats returns the load summary. Zero value before the first Load.
func (l *Loader) Stats() LoadStats { return l.stats }

func (l *Loader) read() ([]domain.NodeReading, LoadStats, error) {
	f, err := os.Open(l.path)
	if err != nil {
		return nil, LoadStats{}, &LoadError{Path: l.path, Err: err}
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, LoadStats{}, &LoadError{Path: l.path, Err: fmt.Errorf("parse csv: %w", err)}
	}
	if len(records) == 0 {
		return nil, LoadStats{}, &LoadError{Path: l.path, Err: fmt.Errorf("empty file")}
	}

	cols, err := indexColumns(records[0])
	if err != nil {
		return nil, LoadStats{}, &LoadError{Path: l.path, Err: err}
	}

	var stats LoadStats
	readings := make([]domain.NodeReading, 0, len(records)-1)
	for i, row := range records[1:] {
		reading, coerced, err := l.parseRow(row, cols)
		if err != nil {
			if l.policy == PolicySkipRow {
				stats.Skipped++
				continue
			}
			return nil, LoadStats{}, &LoadError{Path: l.path, Err: fmt.Errorf("row %d: %w", i+2, err)}
		}
		stats.Coerced += coerced
		readings = append(readings, reading)
	}
	stats.Rows = len(readings)
	return readings, stats, nil
}

// indexColumns maps required column names to their positions in the header.
func indexColumns(header []string) (map[string]int, error) {
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(name)] = i
	}

	var missing []string
	for _, name := range requiredColumns {
		if _, ok := cols[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required columns: %s", strings.Join(missing, ", "))
	}
	return cols, nil
}

// parseRow converts one CSV row into a NodeReading, applying the
// invalid-numeric policy to truth and predictions. The returned count is the
// number of values coerced to 0.
func (l *Loader) parseRow(row []string, cols map[string]int) (domain.NodeReading, int, error) {
	field := func(name string) string {
		idx := cols[name]
		if idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	month, err := parseIntField("month", field("month"))
	if err != nil {
		return domain.NodeReading{}, 0, err
	}
	day, err := parseIntField("day_of_week", field("day_of_week"))
	if err != nil {
		return domain.NodeReading{}, 0, err
	}
	hour, err := parseIntField("hour", field("hour"))
	if err != nil {
		return domain.NodeReading{}, 0, err
	}
	lat, err := parseFloatField("latitude_x", field("latitude_x"))
	if err != nil {
		return domain.NodeReading{}, 0, err
	}
	lon, err := parseFloatField("longitude_x", field("longitude_x"))
	if err != nil {
		return domain.NodeReading{}, 0, err
	}

	coerced := 0
	truth, ok := parseFloatOrZero(field("truth"))
	if !ok {
		if l.policy != PolicyZero {
			return domain.NodeReading{}, 0, fmt.Errorf("invalid numeric truth %q", field("truth"))
		}
		coerced++
	}
	predictions, ok := parseFloatOrZero(field("predictions"))
	if !ok {
		if l.policy != PolicyZero {
			return domain.NodeReading{}, 0, fmt.Errorf("invalid numeric predictions %q", field("predictions"))
		}
		coerced++
	}

	return domain.NodeReading{
		NodeID:         field("node_id"),
		Month:          month,
		DayOfWeek:      day,
		Hour:           hour,
		Latitude:       lat,
		Longitude:      lon,
		SpatialCluster: field("spatial_cluster_x"),
		GridCluster:    field("grid_cluster_x"),
		Truth:          truth,
		Predictions:    predictions,
	}, coerced, nil
}

// parseFloatOrZero parses s as float64. Unparseable or missing values
// (including "nan" kinds from the upstream pipeline) yield (0, false).
func parseFloatOrZero(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v != v { // reject NaN
		return 0, false
	}
	return v, true
}

// parseIntField parses a time-dimension value. The upstream pipeline writes
// these as integers or float-formatted integers ("6" or "6.0").
func parseIntField(name, s string) (int, error) {
	v, err := parseFloatField(name, s)
	if err != nil {
		return 0, err
	}
	return int(v), nil
}

func parseFloatField(name, s string) (float64, error) {
	if s == "" {
		return 0, fmt.Errorf("missing %s value", name)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q", name, s)
	}
	return v, nil
}
