package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/odclab/dcmon/internal/derive"
	"github.com/odclab/dcmon/internal/model"
)

var metricTitles = map[model.Metric]string{
	model.MetricPlanned:   "Planned",
	model.MetricLive:      "Live",
	model.MetricMax:       "Max",
	model.MetricAvailable: "Available",
}

// Header is the fixed export header: the month label followed by the 26 data
// columns (five zones by four metrics, four derived totals, the auto-saved
// flag and the saved date).
func Header() []string {
	header := make([]string, 0, 27)
	header = append(header, "Month")
	for _, zone := range model.Zones {
		for _, m := range model.Metrics {
			header = append(header, fmt.Sprintf("%s %s (kW)", strings.ToUpper(zone), metricTitles[m]))
		}
	}
	for _, m := range model.Metrics {
		header = append(header, fmt.Sprintf("Total %s (kW)", metricTitles[m]))
	}
	header = append(header, "Auto Saved", "Saved Date")
	return header
}

// WriteHistory renders the capacity history as CSV. Every numeric cell is
// formatted to exactly two decimal places; the totals are derived from the
// zone figures, not taken from the wire.
func WriteHistory(w io.Writer, rows []model.CapacityRow) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(Header()); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i := range rows {
		row := &rows[i]

		record := make([]string, 0, 27)
		record = append(record, row.Month)
		for _, zone := range model.Zones {
			for _, m := range model.Metrics {
				record = append(record, formatKW(derive.ValueFor(row, zone, m)))
			}
		}
		for _, m := range model.Metrics {
			record = append(record, formatKW(derive.SumAcrossZones(row, m)))
		}
		record = append(record, yesNo(row.AutoSaved), row.SavedDate)

		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write row %q: %w", row.Month, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// Filename returns the download name for an export generated at t.
func Filename(t time.Time) string {
	return fmt.Sprintf("power_capacity_history_%s.csv", t.Format("2006-01-02"))
}

func formatKW(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
