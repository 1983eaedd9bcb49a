package derive

import "github.com/odclab/dcmon/internal/model"

// SumAcrossZones sums a metric over the fixed zone set. Zones absent from the
// row contribute zero, so a partially populated row never errors.
func SumAcrossZones(row *model.CapacityRow, m model.Metric) float64 {
	var sum float64
	for _, zone := range model.Zones {
		sum += row.Zone(zone).Value(m)
	}
	return sum
}

// ValueFor returns the raw figure for a real zone, the derived sum for the
// synthetic total zone, and zero for unknown zone keys.
func ValueFor(row *model.CapacityRow, zoneKey string, m model.Metric) float64 {
	if zoneKey == model.ZoneTotal {
		return SumAcrossZones(row, m)
	}
	return row.Zone(zoneKey).Value(m)
}

// TotalZone derives the synthetic total pseudo-zone for a row.
func TotalZone(row *model.CapacityRow) model.ZoneCapacity {
	return model.ZoneCapacity{
		Planned:   SumAcrossZones(row, model.MetricPlanned),
		Live:      SumAcrossZones(row, model.MetricLive),
		Max:       SumAcrossZones(row, model.MetricMax),
		Available: SumAcrossZones(row, model.MetricAvailable),
	}
}
