package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/gridwatch/traffic-anomaly-service/internal/domain"
)

// ExportFilename is the deterministic name of the download artifact.
const ExportFilename = "filtered_traffic_anomalies.csv"

// exportColumns is the fixed column order of the export: every source column
// followed by the derived anomaly fields.
var exportColumns = []string{
	"node_id",
	"month",
	"day_of_week",
	"hour",
	"latitude_x",
	"longitude_x",
	"spatial_cluster_x",
	"grid_cluster_x",
	"truth",
	"predictions",
	"anomaly_score",
	"anomaly",
}

// WriteCSV writes the derived view to w as CSV. The row count equals
// len(scored); an empty view produces the header line only.
func WriteCSV(w io.Writer, scored []domain.ScoredReading) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(exportColumns); err != nil {
		return fmt.Errorf("write export header: %w", err)
	}

	for _, s := range scored {
		row := []string{
			s.NodeID,
			strconv.Itoa(s.Month),
			strconv.Itoa(s.DayOfWeek),
			strconv.Itoa(s.Hour),
			formatFloat(s.Latitude),
			formatFloat(s.Longitude),
			s.SpatialCluster,
			s.GridCluster,
			formatFloat(s.Truth),
			formatFloat(s.Predictions),
			formatFloat(s.AnomalyScore),
			strconv.FormatBool(s.Anomaly),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write export row: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush export: %w", err)
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
