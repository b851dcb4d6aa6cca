package domain

import (
	"context"
	"log/slog"
)

// PlaceResult contains location data returned by a geocoding provider.
type PlaceResult struct {
	PlaceName        string
	FormattedAddress string
	Confidence       float64 // 0.0–1.0 provider confidence score
}

// Geocoder resolves node coordinates to place details for map labels.
type Geocoder interface {
	ReverseGeocode(ctx context.Context, lat, lon float64) (PlaceResult, error)
}

// LabelNodes attaches a place name to each reading by reverse-geocoding its
// coordinates. A nil geocoder returns the input unchanged; lookup failures
// are logged and leave the affected rows unlabeled.
// Rows sharing a node id are resolved once.
func LabelNodes(ctx context.Context, readings []NodeReading, geocoder Geocoder, logger *slog.Logger) []NodeReading {
	if geocoder == nil || len(readings) == 0 {
		return readings
	}

	names := make(map[string]string)
	out := make([]NodeReading, len(readings))
	for i, r := range readings {
		out[i] = r

		name, seen := names[r.NodeID]
		if !seen {
			result, err := geocoder.ReverseGeocode(ctx, r.Latitude, r.Longitude)
			if err != nil {
				logger.Warn("reverse geocoding failed",
					"node_id", r.NodeID,
					"lat", r.Latitude,
					"lon", r.Longitude,
					"error", err,
				)
				names[r.NodeID] = ""
				continue
			}
			name = result.PlaceName
			names[r.NodeID] = name
		}
		out[i].PlaceName = name
	}
	return out
}
