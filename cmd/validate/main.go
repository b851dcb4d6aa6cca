// Command validate checks an exported anomaly CSV against the source
// dataset: it reloads the dataset, re-runs the same filter and derivation,
// and verifies that the export's rows, scores, and flags match exactly.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -data data/processed/node_features_with_predictions.csv \
//	  -export filtered_traffic_anomalies.csv \
//	  -month 6 -day 0 -threshold 2.0
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"log/slog"
	"math"
	"os"
	"strconv"

	"github.com/gridwatch/traffic-anomaly-service/internal/dataset"
	"github.com/gridwatch/traffic-anomaly-service/internal/domain"
)

// scoreEpsilon tolerates float formatting round-trips in the export.
const scoreEpsilon = 1e-9

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	dataPath := flag.String("data", "", "path to the source dataset CSV")
	exportPath := flag.String("export", "", "path to the exported anomaly CSV")
	month := flag.Int("month", 0, "month the export was filtered to (required)")
	day := flag.Int("day", -1, "day-of-week filter, -1 if inactive")
	hour := flag.Int("hour", -1, "hour filter, -1 if inactive")
	threshold := flag.Float64("threshold", domain.DefaultThreshold, "anomaly threshold used for the export")
	flag.Parse()

	if *dataPath == "" || *exportPath == "" || *month == 0 {
		flag.Usage()
		fmt.Fprintln(os.Stderr, "missing required flags: -data, -export, -month")
		os.Exit(2)
	}

	sel := domain.Selection{Month: *month}
	if *day >= 0 {
		sel.DayOfWeek = day
	}
	if *hour >= 0 {
		sel.Hour = hour
	}

	phases := []*phase{
		checkDataset(*dataPath),
		checkExport(*dataPath, *exportPath, sel, *threshold),
	}

	failed := 0
	for _, p := range phases {
		if p.passed() {
			fmt.Printf("PASS %s\n", p.name)
			continue
		}
		failed++
		fmt.Printf("FAIL %s\n", p.name)
		for _, e := range p.errors {
			fmt.Printf("  - %s\n", e)
		}
	}
	if failed > 0 {
		os.Exit(1)
	}
}

// checkDataset verifies the source file loads and reports basic shape.
func checkDataset(path string) *phase {
	p := &phase{name: "dataset loads"}

	loader := dataset.NewLoader(path, dataset.PolicyZero, slog.Default())
	readings, err := loader.Load(context.Background())
	if err != nil {
		p.errorf("load failed: %v", err)
		return p
	}
	if len(readings) == 0 {
		p.errorf("dataset has no rows")
		return p
	}
	if months := domain.Months(readings); len(months) == 0 {
		p.errorf("dataset has no month values")
	}
	return p
}

// checkExport re-derives the view and compares it to the exported CSV row
// by row.
func checkExport(dataPath, exportPath string, sel domain.Selection, threshold float64) *phase {
	p := &phase{name: "export matches derivation"}

	loader := dataset.NewLoader(dataPath, dataset.PolicyZero, slog.Default())
	readings, err := loader.Load(context.Background())
	if err != nil {
		p.errorf("load dataset: %v", err)
		return p
	}
	expected := domain.Score(domain.Filter(readings, sel), threshold)

	rows, cols, err := readExport(exportPath)
	if err != nil {
		p.errorf("%v", err)
		return p
	}

	for _, name := range []string{"node_id", "anomaly_score", "anomaly"} {
		if _, ok := cols[name]; !ok {
			p.errorf("export missing column %s", name)
			return p
		}
	}

	if len(rows) != len(expected) {
		p.errorf("row count: export has %d, derivation has %d", len(rows), len(expected))
		return p
	}

	for i, row := range rows {
		want := expected[i]
		if got := row[cols["node_id"]]; got != want.NodeID {
			p.errorf("row %d: node_id %q, want %q", i+1, got, want.NodeID)
			continue
		}
		score, err := strconv.ParseFloat(row[cols["anomaly_score"]], 64)
		if err != nil {
			p.errorf("row %d: unparseable anomaly_score %q", i+1, row[cols["anomaly_score"]])
			continue
		}
		if math.Abs(score-want.AnomalyScore) > scoreEpsilon {
			p.errorf("row %d: anomaly_score %g, want %g", i+1, score, want.AnomalyScore)
		}
		if got := row[cols["anomaly"]] == "true"; got != want.Anomaly {
			p.errorf("row %d: anomaly %v, want %v", i+1, got, want.Anomaly)
		}
	}
	return p
}

func readExport(path string) ([][]string, map[string]int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open export: %w", err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("parse export: %w", err)
	}
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("export is empty")
	}

	cols := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		cols[name] = i
	}
	return records[1:], cols, nil
}
