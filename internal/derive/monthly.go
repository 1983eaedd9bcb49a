package derive

import (
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/odclab/dcmon/internal/model"
)

// GroupStat holds one orientation group's descriptive statistics for a month.
// The average is the unweighted mean of per-location means, so a sensor with
// few samples carries the same weight as one reporting constantly.
type GroupStat struct {
	Sensors int     `json:"sensors"`
	Average float64 `json:"avg"`
	Peak    float64 `json:"peak"`
	Bottom  float64 `json:"bottom"`
	Median  float64 `json:"median"`
}

// MonthlyStat is one calendar month's comparison of the hot and cold groups.
type MonthlyStat struct {
	Month    string    `json:"month"`
	Hot      GroupStat `json:"hot"`
	Cold     GroupStat `json:"cold"`
	Readings int       `json:"readings"`
}

// MonthlyStats derives statistics for the N calendar months ending at the
// month containing now, oldest first. Month windows follow the civil calendar
// (first day 00:00:00 through last day 23:59:59, UTC). Readings whose
// location matches neither orientation suffix are dropped from both groups.
func MonthlyStats(readings []model.Reading, months int, now time.Time) []MonthlyStat {
	if months <= 0 {
		return []MonthlyStat{}
	}

	now = now.UTC()
	stats := make([]MonthlyStat, 0, months)

	for i := 0; i < months; i++ {
		start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -i, 0)
		end := start.AddDate(0, 1, 0).Add(-time.Second)

		var filtered, hot, cold []model.Reading
		for _, r := range readings {
			if r.Created.Before(start) || r.Created.After(end) {
				continue
			}
			filtered = append(filtered, r)
			switch {
			case strings.HasSuffix(r.Location, model.SuffixHot):
				hot = append(hot, r)
			case strings.HasSuffix(r.Location, model.SuffixCold):
				cold = append(cold, r)
			}
		}

		stats = append(stats, MonthlyStat{
			Month:    start.Format("January 2006"),
			Hot:      groupStats(hot),
			Cold:     groupStats(cold),
			Readings: len(filtered),
		})
	}

	// Accumulated newest-first, served oldest-to-newest.
	slices.Reverse(stats)
	return stats
}

func groupStats(readings []model.Reading) GroupStat {
	if len(readings) == 0 {
		return GroupStat{}
	}

	locations, byLocation := GroupBy(readings, func(r model.Reading) string {
		return r.Location
	})

	perLocation := make([]float64, 0, len(locations))
	for _, location := range locations {
		perLocation = append(perLocation, Mean(values(byLocation[location])))
	}

	all := values(readings)

	return GroupStat{
		Sensors: len(locations),
		Average: Mean(perLocation),
		Peak:    slices.Max(all),
		Bottom:  slices.Min(all),
		Median:  Median(all),
	}
}

// HourlyPoint is one merged chart sample. A group with no readings in the
// hour has a nil value, which serializes as absent rather than zero.
type HourlyPoint struct {
	Time time.Time `json:"time"`
	Hot  *float64  `json:"hot,omitempty"`
	Cold *float64  `json:"cold,omitempty"`
}

// HourlySeries buckets each orientation group's readings by clock hour and
// computes the per-hour mean for hot and cold independently, merged into one
// series sorted by time.
func HourlySeries(readings []model.Reading) []HourlyPoint {
	hot := hourlyMeans(readings, model.SuffixHot)
	cold := hourlyMeans(readings, model.SuffixCold)

	instants := make(map[int64]struct{}, len(hot)+len(cold))
	for k := range hot {
		instants[k] = struct{}{}
	}
	for k := range cold {
		instants[k] = struct{}{}
	}

	points := make([]HourlyPoint, 0, len(instants))
	for k := range instants {
		point := HourlyPoint{Time: time.Unix(0, k).UTC()}
		if v, ok := hot[k]; ok {
			point.Hot = &v
		}
		if v, ok := cold[k]; ok {
			point.Cold = &v
		}
		points = append(points, point)
	}

	sort.Slice(points, func(i, j int) bool { return points[i].Time.Before(points[j].Time) })
	return points
}

func hourlyMeans(readings []model.Reading, suffix string) map[int64]float64 {
	var subset []model.Reading
	for _, r := range readings {
		if strings.HasSuffix(r.Location, suffix) {
			subset = append(subset, r)
		}
	}

	keys, groups := GroupBy(subset, func(r model.Reading) int64 {
		return r.Created.Truncate(time.Hour).UnixNano()
	})

	means := make(map[int64]float64, len(keys))
	for _, k := range keys {
		means[k] = Mean(values(groups[k]))
	}
	return means
}

func values(readings []model.Reading) []float64 {
	vals := make([]float64, 0, len(readings))
	for _, r := range readings {
		vals = append(vals, r.Value)
	}
	return vals
}
