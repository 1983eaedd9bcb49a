package derive_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/odclab/dcmon/internal/derive"
	"github.com/odclab/dcmon/internal/model"
)

func at(hour, minute, second int) time.Time {
	return time.Date(2024, 3, 1, hour, minute, second, 0, time.UTC)
}

func TestGroupExact(t *testing.T) {
	readings := []model.Reading{
		{Created: at(10, 0, 0), Location: "dh1", Value: 100},
		{Created: at(10, 0, 0), Location: "dh2", Value: 200},
		{Created: at(10, 5, 0), Location: "dh1", Value: 110},
	}

	buckets := derive.GroupExact(readings)

	require.Len(t, buckets, 2)
	require.Equal(t, at(10, 0, 0), buckets[0].Time)
	require.Equal(t, map[string]float64{"dh1": 100, "dh2": 200}, buckets[0].Values)
	require.Equal(t, map[string]float64{"dh1": 110}, buckets[1].Values)
}

func TestGroupExactEncounterOrder(t *testing.T) {
	readings := []model.Reading{
		{Created: at(10, 5, 0), Location: "dh1", Value: 1},
		{Created: at(10, 0, 0), Location: "dh1", Value: 2},
	}

	buckets := derive.GroupExact(readings)

	require.Len(t, buckets, 2)
	require.Equal(t, at(10, 5, 0), buckets[0].Time)
	require.Equal(t, at(10, 0, 0), buckets[1].Time)
}

func TestGroupExactLastWriteWins(t *testing.T) {
	readings := []model.Reading{
		{Created: at(10, 0, 0), Location: "dh1", Value: 100},
		{Created: at(10, 0, 0), Location: "dh1", Value: 150},
	}

	buckets := derive.GroupExact(readings)

	require.Len(t, buckets, 1)
	require.Equal(t, map[string]float64{"dh1": 150}, buckets[0].Values)
}

func TestGroupExactDoesNotNormalizeTimestamps(t *testing.T) {
	readings := []model.Reading{
		{Created: at(10, 0, 0), Location: "dh1", Value: 1},
		{Created: at(10, 0, 30), Location: "dh1", Value: 2},
	}

	require.Len(t, derive.GroupExact(readings), 2)
}

func TestGroupExactEmpty(t *testing.T) {
	require.Empty(t, derive.GroupExact(nil))
}

func TestGroupSmoothedTruncatesToMinute(t *testing.T) {
	readings := []model.Reading{
		{Created: at(10, 0, 12), Location: "dh3-up", Value: 20},
		{Created: at(10, 0, 48), Location: "dh3-down", Value: 18},
	}

	buckets := derive.GroupSmoothed(readings)

	require.Len(t, buckets, 1)
	require.Equal(t, at(10, 0, 0), buckets[0].Time)
	require.Equal(t, map[string]float64{"dh3-up": 20, "dh3-down": 18}, buckets[0].Values)
}

func TestGroupSmoothedSortedAscending(t *testing.T) {
	readings := []model.Reading{
		{Created: at(10, 20, 0), Location: "dh3-up", Value: 40},
		{Created: at(10, 0, 0), Location: "dh3-up", Value: 20},
		{Created: at(10, 10, 0), Location: "dh3-up", Value: 30},
	}

	buckets := derive.GroupSmoothed(readings)

	require.Len(t, buckets, 3)
	for i := 1; i < len(buckets); i++ {
		require.True(t, buckets[i-1].Time.Before(buckets[i].Time))
	}
}

func TestGroupSmoothedTrailingAverage(t *testing.T) {
	readings := []model.Reading{
		{Created: at(10, 0, 0), Location: "dh3-up", Value: 20},
		{Created: at(10, 20, 0), Location: "dh3-up", Value: 40},
	}

	buckets := derive.GroupSmoothed(readings)

	require.Len(t, buckets, 2)
	require.InDelta(t, 20, buckets[0].Values["dh3-up"], 1e-9)
	// 10:00 falls inside (09:50, 10:20], so the second bucket averages both.
	require.InDelta(t, 30, buckets[1].Values["dh3-up"], 1e-9)
}

func TestGroupSmoothedWindowExcludesExactBoundary(t *testing.T) {
	readings := []model.Reading{
		{Created: at(10, 0, 0), Location: "dh3-up", Value: 20},
		{Created: at(10, 30, 0), Location: "dh3-up", Value: 40},
	}

	buckets := derive.GroupSmoothed(readings)

	require.Len(t, buckets, 2)
	// The window is (10:00, 10:30]; the 10:00 sample sits on the open edge.
	require.InDelta(t, 40, buckets[1].Values["dh3-up"], 1e-9)
}

func TestGroupSmoothedSingleSample(t *testing.T) {
	readings := []model.Reading{
		{Created: at(10, 7, 0), Location: "dh3-up", Value: 21.5},
	}

	buckets := derive.GroupSmoothed(readings)

	require.Len(t, buckets, 1)
	require.InDelta(t, 21.5, buckets[0].Values["dh3-up"], 1e-9)
}

func TestGroupSmoothedOmitsLocationsOutsideWindow(t *testing.T) {
	readings := []model.Reading{
		{Created: at(10, 0, 0), Location: "dh3-up", Value: 20},
		{Created: at(11, 0, 0), Location: "dh4-up", Value: 30},
	}

	buckets := derive.GroupSmoothed(readings)

	require.Len(t, buckets, 2)
	_, present := buckets[1].Values["dh3-up"]
	require.False(t, present, "dh3-up has no samples within 30 minutes of 11:00")
	_, present = buckets[0].Values["dh4-up"]
	require.False(t, present)
}

func TestGroupSmoothedEmpty(t *testing.T) {
	require.Empty(t, derive.GroupSmoothed(nil))
}
