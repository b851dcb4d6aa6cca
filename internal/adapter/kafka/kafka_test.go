package kafka

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridwatch/traffic-anomaly-service/internal/domain"
)

func TestSerializeToMessage(t *testing.T) {
	computedAt := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	scored := domain.ScoredReading{
		NodeReading: domain.NodeReading{
			NodeID:         "n42",
			Month:          6,
			DayOfWeek:      0,
			Hour:           8,
			SpatialCluster: "3",
			Truth:          5,
			Predictions:    2,
		},
		AnomalyScore: 3,
		Anomaly:      true,
	}

	msg, err := serializeToMessage(scored, computedAt)
	require.NoError(t, err)

	assert.Equal(t, []byte("n42"), msg.Key)
	assert.Contains(t, string(msg.Value), `"node_id":"n42"`)
	assert.Contains(t, string(msg.Value), `"anomaly_score":3`)
	assert.Contains(t, string(msg.Value), `"anomaly":true`)
	assert.Contains(t, string(msg.Value), `"computed_at":"2026-08-29T12:00:00Z"`)

	require.Len(t, msg.Headers, 2)
	assert.Equal(t, "spatial_cluster", msg.Headers[0].Key)
	assert.Equal(t, []byte("3"), msg.Headers[0].Value)
	assert.Equal(t, "computed_at", msg.Headers[1].Key)
	assert.Equal(t, []byte(computedAt.Format(time.RFC3339)), msg.Headers[1].Value)
}
