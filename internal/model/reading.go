package model

import "time"

// Reading is a single sensor sample. Location is an opaque identifier
// encoding physical position and, for temperature, a hot/cold orientation
// suffix. Collections arrive unordered per fetch.
type Reading struct {
	Created  time.Time `json:"created"`
	Location string    `json:"location"`
	Value    float64   `json:"reading"`
}

// Orientation suffixes distinguishing two logical sensor roles at one
// physical location.
const (
	SuffixHot  = "-up"
	SuffixCold = "-down"
)
