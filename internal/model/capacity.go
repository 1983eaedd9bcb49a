package model

import (
	"encoding/json"
	"math"
	"strconv"
)

// Metric identifies one of the four capacity figures tracked per zone.
type Metric int

const (
	MetricPlanned Metric = iota
	MetricLive
	MetricMax
	MetricAvailable
)

var metricNames = [...]string{"planned", "live", "max", "available"}

// Metrics lists all capacity metrics in wire order.
var Metrics = []Metric{MetricPlanned, MetricLive, MetricMax, MetricAvailable}

func (m Metric) String() string {
	if m < 0 || int(m) >= len(metricNames) {
		return "unknown"
	}
	return metricNames[m]
}

// Zones is the fixed set of data halls reported by the backend.
var Zones = []string{"dh1", "dh2", "dh3", "dh4", "dh5"}

// ZoneTotal is the synthetic pseudo-zone summed across all real zones.
const ZoneTotal = "total"

// ZoneCapacity holds one zone's capacity figures for a month, in kilowatts.
type ZoneCapacity struct {
	Planned   float64 `json:"planned"`
	Live      float64 `json:"live"`
	Max       float64 `json:"max"`
	Available float64 `json:"available"`
}

// Value returns the figure for a metric without string-keyed lookup.
func (z ZoneCapacity) Value(m Metric) float64 {
	switch m {
	case MetricPlanned:
		return z.Planned
	case MetricLive:
		return z.Live
	case MetricMax:
		return z.Max
	case MetricAvailable:
		return z.Available
	default:
		return 0
	}
}

// CapacityRow is one calendar month's capacity figures for the fixed zone set.
// Rows are read-only once decoded; totals are derived at render time.
type CapacityRow struct {
	Month     string                  `json:"month"`
	Zones     map[string]ZoneCapacity `json:"zones"`
	AutoSaved bool                    `json:"auto_saved"`
	SavedDate string                  `json:"saved_date,omitempty"`
}

// Zone returns the figures for a zone key, zero-valued when the zone is absent.
func (r *CapacityRow) Zone(key string) ZoneCapacity {
	return r.Zones[key]
}

// UnmarshalJSON decodes the backend's flat "{zone}_{metric}" wire shape into
// the explicit per-zone structure. This is the single place the string-keyed
// convention exists; everything downstream goes through Metric accessors.
// Absent or malformed fields degrade to zero. Rows already in the structured
// form (from the snapshot cache) round-trip unchanged.
func (r *CapacityRow) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	if _, structured := raw["zones"]; structured {
		type plain CapacityRow
		var row plain
		if err := json.Unmarshal(data, &row); err != nil {
			return err
		}
		*r = CapacityRow(row)
		return nil
	}

	r.Month, _ = raw["month"].(string)
	r.SavedDate, _ = raw["saved_date"].(string)
	r.AutoSaved = coerceBool(raw["auto_saved"])

	r.Zones = make(map[string]ZoneCapacity, len(Zones))
	for _, zone := range Zones {
		r.Zones[zone] = ZoneCapacity{
			Planned:   CoerceFloat(raw[zone+"_planned"]),
			Live:      CoerceFloat(raw[zone+"_live"]),
			Max:       CoerceFloat(raw[zone+"_max"]),
			Available: CoerceFloat(raw[zone+"_available"]),
		}
	}

	return nil
}

// CoerceFloat converts a decoded JSON value to float64, treating anything
// absent, malformed, NaN or infinite as zero.
func CoerceFloat(v any) float64 {
	var f float64
	switch val := v.(type) {
	case float64:
		f = val
	case int:
		f = float64(val)
	case int64:
		f = float64(val)
	case json.Number:
		f, _ = val.Float64()
	case string:
		parsed, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return 0
		}
		f = parsed
	default:
		return 0
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

func coerceBool(v any) bool {
	switch val := v.(type) {
	case bool:
		return val
	case string:
		b, err := strconv.ParseBool(val)
		if err != nil {
			return val == "1" || val == "on"
		}
		return b
	case float64:
		return val != 0
	default:
		return false
	}
}
