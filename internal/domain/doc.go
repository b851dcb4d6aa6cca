// Package domain models traffic-sensor node readings and the anomaly
// derivation applied to them.
//
// # Data Source
//
// Readings come from a precomputed feature table produced by an offline
// modeling pipeline: one row per (node, month, day-of-week, hour) combination,
// carrying the observed traffic value ("truth") and the model's prediction
// for the same slot. The table is written as a single CSV, typically
// data/processed/node_features_with_predictions.csv, and is the only input
// the service reads. Column names ending in _x (latitude_x, spatial_cluster_x,
// ...) are join artifacts from the upstream pipeline and are preserved as-is
// in the file format.
//
// # Time Dimensions
//
// Each reading is bucketed by three discrete time dimensions:
//
//	month        1–12
//	day_of_week  0–6, Monday = 0 (pandas convention upstream)
//	hour         0–23
//
// Filtering is plain equality over these columns. Month is always selected;
// day-of-week and hour are each independently optional. Selector options
// cascade: the day-of-week values offered for selection come from the
// month-filtered view, and the hour values from the view filtered by month
// and, when active, day-of-week. A combination with no matching rows is a
// valid empty view, not an error.
//
// # Numeric Conventions
//
// Truth and predictions are nominally numeric but the upstream pipeline
// occasionally emits blanks or sentinel strings ("N/A", "nan"). The loader's
// default policy coerces any unparseable value to 0 before scoring. This is
// inherited source behavior, kept as the compatible baseline; stricter
// policies are available (see [github.com/gridwatch/traffic-anomaly-service/internal/dataset]).
//
// # Anomaly Derivation
//
//	anomaly_score = |truth - predictions|
//	anomaly       = anomaly_score > threshold
//
// The inequality is strict: a score exactly equal to the threshold is not
// flagged. The threshold exposed to users ranges over [0, 10] with a default
// of 2.0; [Score] itself accepts any non-negative real. Derivation never
// fails — degenerate inputs were already normalized at load time.
//
// # Clusters
//
// Every node carries two precomputed grouping labels: a spatial cluster and
// a grid cluster. Both are opaque strings to this service; they exist only
// as groupby keys for the summary aggregations consumed by the dashboard.
package domain
