package derive

import (
	"sort"
	"time"

	"github.com/odclab/dcmon/internal/model"
)

// SmoothingWindow is the trailing window applied to temperature series.
const SmoothingWindow = 30 * time.Minute

// TimeBucket maps a representative instant to one value per location.
type TimeBucket struct {
	Time   time.Time          `json:"time"`
	Values map[string]float64 `json:"values"`
}

// GroupExact groups readings into buckets keyed by exact timestamp equality,
// in encounter order. A later reading for the same location and instant
// overwrites the earlier one.
func GroupExact(readings []model.Reading) []TimeBucket {
	keys, groups := GroupBy(readings, func(r model.Reading) int64 {
		return r.Created.UnixNano()
	})

	buckets := make([]TimeBucket, 0, len(keys))
	for _, k := range keys {
		members := groups[k]
		values := make(map[string]float64, len(members))
		for _, r := range members {
			values[r.Location] = r.Value
		}
		buckets = append(buckets, TimeBucket{Time: members[0].Created, Values: values})
	}

	return buckets
}

// GroupSmoothed groups readings at minute resolution, sorts the buckets
// ascending, and replaces each bucket's values with the trailing
// 30-minute per-location average over (t-30m, t]. Locations with no samples
// in a bucket's window are omitted from that bucket, not zero-filled.
func GroupSmoothed(readings []model.Reading) []TimeBucket {
	keys, groups := GroupBy(readings, func(r model.Reading) int64 {
		return r.Created.Truncate(time.Minute).UnixNano()
	})

	raw := make([]TimeBucket, 0, len(keys))
	locations := make(map[string]struct{})
	for _, k := range keys {
		values := make(map[string]float64, len(groups[k]))
		for _, r := range groups[k] {
			values[r.Location] = r.Value
			locations[r.Location] = struct{}{}
		}
		raw = append(raw, TimeBucket{Time: time.Unix(0, k).UTC(), Values: values})
	}

	sort.Slice(raw, func(i, j int) bool { return raw[i].Time.Before(raw[j].Time) })

	// Recomputed per bucket; quadratic over bucket count, fine at the data
	// volumes a minute-resolution dashboard window produces.
	smoothed := make([]TimeBucket, 0, len(raw))
	for _, bucket := range raw {
		windowStart := bucket.Time.Add(-SmoothingWindow)
		values := make(map[string]float64, len(locations))

		for location := range locations {
			var samples []float64
			for _, w := range raw {
				if w.Time.After(windowStart) && !w.Time.After(bucket.Time) {
					if v, ok := w.Values[location]; ok {
						samples = append(samples, v)
					}
				}
			}
			if len(samples) > 0 {
				values[location] = Mean(samples)
			}
		}

		smoothed = append(smoothed, TimeBucket{Time: bucket.Time, Values: values})
	}

	return smoothed
}
