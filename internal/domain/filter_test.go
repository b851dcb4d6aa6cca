package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func testReadings() []NodeReading {
	return []NodeReading{
		{NodeID: "n1", Month: 6, DayOfWeek: 0, Hour: 8, Truth: 5, Predictions: 2, SpatialCluster: "1"},
		{NodeID: "n2", Month: 6, DayOfWeek: 0, Hour: 17, Truth: 3, Predictions: 3, SpatialCluster: "1"},
		{NodeID: "n3", Month: 6, DayOfWeek: 4, Hour: 8, Truth: 9, Predictions: 1, SpatialCluster: "2"},
		{NodeID: "n4", Month: 7, DayOfWeek: 2, Hour: 12, Truth: 4, Predictions: 4, SpatialCluster: "2"},
		{NodeID: "n5", Month: 7, DayOfWeek: 4, Hour: 8, Truth: 1, Predictions: 6, SpatialCluster: "3"},
	}
}

func TestFilter(t *testing.T) {
	readings := testReadings()

	t.Run("month only returns all matching rows in order", func(t *testing.T) {
		got := Filter(readings, Selection{Month: 6})

		require.Len(t, got, 3)
		assert.Equal(t, "n1", got[0].NodeID)
		assert.Equal(t, "n2", got[1].NodeID)
		assert.Equal(t, "n3", got[2].NodeID)
	})

	t.Run("row content is untouched", func(t *testing.T) {
		got := Filter(readings, Selection{Month: 6})
		assert.Equal(t, readings[0], got[0])
		assert.Equal(t, readings[1], got[1])
		assert.Equal(t, readings[2], got[2])
	})

	t.Run("day of week narrows the month view", func(t *testing.T) {
		got := Filter(readings, Selection{Month: 6, DayOfWeek: intPtr(0)})

		require.Len(t, got, 2)
		assert.Equal(t, "n1", got[0].NodeID)
		assert.Equal(t, "n2", got[1].NodeID)
	})

	t.Run("hour without day of week", func(t *testing.T) {
		got := Filter(readings, Selection{Month: 6, Hour: intPtr(8)})

		require.Len(t, got, 2)
		assert.Equal(t, "n1", got[0].NodeID)
		assert.Equal(t, "n3", got[1].NodeID)
	})

	t.Run("day and hour filters commute", func(t *testing.T) {
		// Applying both is equivalent to applying them one at a time in
		// either order.
		both := Filter(readings, Selection{Month: 6, DayOfWeek: intPtr(0), Hour: intPtr(8)})
		dayFirst := Filter(Filter(readings, Selection{Month: 6, DayOfWeek: intPtr(0)}), Selection{Month: 6, Hour: intPtr(8)})
		hourFirst := Filter(Filter(readings, Selection{Month: 6, Hour: intPtr(8)}), Selection{Month: 6, DayOfWeek: intPtr(0)})

		assert.Equal(t, both, dayFirst)
		assert.Equal(t, both, hourFirst)
		require.Len(t, both, 1)
		assert.Equal(t, "n1", both[0].NodeID)
	})

	t.Run("no matching rows yields empty non-nil view", func(t *testing.T) {
		got := Filter(readings, Selection{Month: 7, DayOfWeek: intPtr(2), Hour: intPtr(8)})
		require.NotNil(t, got)
		assert.Empty(t, got)
	})

	t.Run("base table is not mutated", func(t *testing.T) {
		before := testReadings()
		_ = Filter(readings, Selection{Month: 6, DayOfWeek: intPtr(0)})
		assert.Equal(t, before, readings)
	})
}

func TestMonths(t *testing.T) {
	assert.Equal(t, []int{6, 7}, Months(testReadings()))
	assert.Empty(t, Months(nil))
}

func TestOptions(t *testing.T) {
	readings := testReadings()

	t.Run("days cascade from month filter", func(t *testing.T) {
		opts := Options(readings, Selection{Month: 6})

		assert.Equal(t, []int{6, 7}, opts.Months)
		assert.Equal(t, []int{0, 4}, opts.DaysOfWeek)
		assert.Equal(t, []int{8, 17}, opts.Hours)
	})

	t.Run("hours cascade from month and day filters", func(t *testing.T) {
		opts := Options(readings, Selection{Month: 6, DayOfWeek: intPtr(4)})

		assert.Equal(t, []int{0, 4}, opts.DaysOfWeek, "day options depend on month only")
		assert.Equal(t, []int{8}, opts.Hours)
	})

	t.Run("active hour filter does not constrain hour options", func(t *testing.T) {
		opts := Options(readings, Selection{Month: 6, Hour: intPtr(8)})
		assert.Equal(t, []int{8, 17}, opts.Hours)
	})

	t.Run("month with no rows yields empty downstream options", func(t *testing.T) {
		opts := Options(readings, Selection{Month: 12})
		assert.Empty(t, opts.DaysOfWeek)
		assert.Empty(t, opts.Hours)
	})
}
