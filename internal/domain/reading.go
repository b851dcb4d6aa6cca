package domain

// NodeReading is one row of the base table: a traffic-sensor node's observed
// and predicted value for a (month, day-of-week, hour) slot. Truth and
// predictions are already coerced to numeric by the loader.
type NodeReading struct {
	NodeID         string  `json:"node_id"`
	Month          int     `json:"month"`
	DayOfWeek      int     `json:"day_of_week"` // 0–6, Monday = 0
	Hour           int     `json:"hour"`        // 0–23
	Latitude       float64 `json:"latitude"`
	Longitude      float64 `json:"longitude"`
	SpatialCluster string  `json:"spatial_cluster"`
	GridCluster    string  `json:"grid_cluster"`
	Truth          float64 `json:"truth"`
	Predictions    float64 `json:"predictions"`

	// PlaceName is geocoding enrichment for map labels, empty unless a
	// geocoder is configured.
	PlaceName string `json:"place_name,omitempty"`
}

// ScoredReading is a NodeReading with the derived anomaly fields attached.
type ScoredReading struct {
	NodeReading
	AnomalyScore float64 `json:"anomaly_score"`
	Anomaly      bool    `json:"anomaly"`
}
