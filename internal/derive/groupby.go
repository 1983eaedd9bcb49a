package derive

import "sort"

// GroupBy partitions items by a key function. Returned keys preserve first
// encounter order; every view-level grouping (by instant, by month, by hour,
// by location) goes through here instead of re-implementing the pattern.
func GroupBy[T any, K comparable](items []T, key func(T) K) ([]K, map[K][]T) {
	groups := make(map[K][]T, len(items))
	keys := make([]K, 0, len(items))

	for _, item := range items {
		k := key(item)
		if _, seen := groups[k]; !seen {
			keys = append(keys, k)
		}
		groups[k] = append(groups[k], item)
	}

	return keys, groups
}

// Mean returns the arithmetic mean, zero for an empty slice.
func Mean(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}

	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

// Median returns the median of vals: mean of the two middle values for an
// even count, the middle value for an odd count, zero when empty.
func Median(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}

	sorted := make([]float64, len(vals))
	copy(sorted, vals)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}
