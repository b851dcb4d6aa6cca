package domain

import (
	"math"
	"sort"
)

// ClusterAnomalyCount is the number of flagged rows in one spatial cluster.
type ClusterAnomalyCount struct {
	SpatialCluster string `json:"spatial_cluster"`
	Count          int    `json:"anomaly_count"`
}

// HourDayMean is the mean truth value for one (hour, day-of-week) pair.
type HourDayMean struct {
	Hour      int     `json:"hour"`
	DayOfWeek int     `json:"day_of_week"`
	MeanTruth float64 `json:"mean_truth"`
}

// DensityCell is a geographic grid cell with its flagged-row count, for the
// anomaly heatmap.
type DensityCell struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Count     int     `json:"count"`
}

// CountAnomaliesByCluster groups the flagged rows of scored by spatial
// cluster. Results are sorted by cluster id for stable output.
func CountAnomaliesByCluster(scored []ScoredReading) []ClusterAnomalyCount {
	counts := make(map[string]int)
	for _, s := range scored {
		if s.Anomaly {
			counts[s.SpatialCluster]++
		}
	}

	out := make([]ClusterAnomalyCount, 0, len(counts))
	for cluster, n := range counts {
		out = append(out, ClusterAnomalyCount{SpatialCluster: cluster, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SpatialCluster < out[j].SpatialCluster })
	return out
}

// MeanTruthByHourDay computes the mean truth value per (hour, day-of-week)
// pair over all rows of scored, flagged or not. Sorted by hour, then day.
func MeanTruthByHourDay(scored []ScoredReading) []HourDayMean {
	type key struct{ hour, day int }
	sums := make(map[key]float64)
	counts := make(map[key]int)
	for _, s := range scored {
		k := key{s.Hour, s.DayOfWeek}
		sums[k] += s.Truth
		counts[k]++
	}

	out := make([]HourDayMean, 0, len(sums))
	for k, sum := range sums {
		out = append(out, HourDayMean{
			Hour:      k.hour,
			DayOfWeek: k.day,
			MeanTruth: sum / float64(counts[k]),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Hour != out[j].Hour {
			return out[i].Hour < out[j].Hour
		}
		return out[i].DayOfWeek < out[j].DayOfWeek
	})
	return out
}

// AnomalyDensity bins the flagged rows of scored into a lat/lon grid of the
// given cell size in degrees and counts rows per cell. Cell coordinates are
// the cell's south-west corner. Sorted by latitude, then longitude.
func AnomalyDensity(scored []ScoredReading, cellSize float64) []DensityCell {
	if cellSize <= 0 {
		cellSize = 0.01
	}

	type key struct{ lat, lon float64 }
	counts := make(map[key]int)
	for _, s := range scored {
		if !s.Anomaly {
			continue
		}
		k := key{
			lat: math.Floor(s.Latitude/cellSize) * cellSize,
			lon: math.Floor(s.Longitude/cellSize) * cellSize,
		}
		counts[k]++
	}

	out := make([]DensityCell, 0, len(counts))
	for k, n := range counts {
		out = append(out, DensityCell{Latitude: k.lat, Longitude: k.lon, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Latitude != out[j].Latitude {
			return out[i].Latitude < out[j].Latitude
		}
		return out[i].Longitude < out[j].Longitude
	})
	return out
}
