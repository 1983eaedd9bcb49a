package export_test

import (
	"bytes"
	"encoding/csv"
	"regexp"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/odclab/dcmon/internal/export"
	"github.com/odclab/dcmon/internal/model"
)

func historyFixture() []model.CapacityRow {
	return []model.CapacityRow{
		{
			Month: "June 2025",
			Zones: map[string]model.ZoneCapacity{
				"dh1": {Planned: 429, Live: 100.5, Max: 120, Available: 309},
				"dh2": {Planned: 693, Live: 200, Max: 250.333, Available: 442.667},
				"dh3": {Planned: 396, Live: 90, Max: 95, Available: 301},
				"dh4": {Planned: 165, Live: 40, Max: 44, Available: 121},
				"dh5": {Planned: 209, Live: 60, Max: 61, Available: 148},
			},
			AutoSaved: true,
			SavedDate: "2025-07-01T00:00:05",
		},
		{
			Month: "July 2025",
			Zones: map[string]model.ZoneCapacity{
				"dh1": {Planned: 429},
			},
		},
	}
}

func TestWriteHistoryShape(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, export.WriteHistory(&buf, historyFixture()))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)

	require.Len(t, records, 3, "header plus one row per history entry")
	require.Len(t, records[0], 27)
	require.Equal(t, "Month", records[0][0])
	require.Equal(t, "DH1 Planned (kW)", records[0][1])
	require.Equal(t, "Total Planned (kW)", records[0][21])
	require.Equal(t, "Auto Saved", records[0][25])
	require.Equal(t, "Saved Date", records[0][26])
}

func TestWriteHistoryTwoDecimalFormatting(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, export.WriteHistory(&buf, historyFixture()))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)

	numeric := regexp.MustCompile(`^-?\d+\.\d{2}$`)
	for _, record := range records[1:] {
		for col := 1; col <= 24; col++ {
			require.Regexp(t, numeric, record[col], "column %d", col)
		}
	}
}

func TestWriteHistoryTotalsMatchZoneSums(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, export.WriteHistory(&buf, historyFixture()))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)

	// Zone metric columns are 1..20, metric m for zone z at 1+z*4+m;
	// totals occupy 21..24 in the same metric order.
	for _, record := range records[1:] {
		for m := 0; m < 4; m++ {
			var sum float64
			for z := 0; z < 5; z++ {
				v, err := strconv.ParseFloat(record[1+z*4+m], 64)
				require.NoError(t, err)
				sum += v
			}
			total, err := strconv.ParseFloat(record[21+m], 64)
			require.NoError(t, err)
			require.InDelta(t, sum, total, 0.05)
		}
	}
}

func TestWriteHistoryFlagsAndDate(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, export.WriteHistory(&buf, historyFixture()))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)

	require.Equal(t, "Yes", records[1][25])
	require.Equal(t, "2025-07-01T00:00:05", records[1][26])
	require.Equal(t, "No", records[2][25])
	require.Equal(t, "", records[2][26])
}

func TestWriteHistoryEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, export.WriteHistory(&buf, nil))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 1)
}

func TestFilename(t *testing.T) {
	at := time.Date(2025, 7, 9, 15, 30, 0, 0, time.UTC)
	require.Equal(t, "power_capacity_history_2025-07-09.csv", export.Filename(at))
}
