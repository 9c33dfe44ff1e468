package processor

import (
	"math"
	"sort"
)

// Adaptive threshold constants.
// The quietest fifth of a recording approximates its noise floor; the threshold
// sits a fixed headroom above it so soft speech is not classified as silence.
const (
	DefaultThresholdDB = -40.0 // used when no finite level exists

	noiseFloorFraction  = 0.2   // share of quietest segments averaged
	thresholdHeadroomDB = 6.0   // dB added above the noise floor estimate
	thresholdMinDB      = -60.0 // never recommend below this
	thresholdMaxDB      = -20.0 // never recommend above this (would cut speech)
)

// CalculateAutoThreshold recommends a silence threshold from segment statistics.
// The result is always within [-60, -20] dB and is -40 when no finite level exists.
func CalculateAutoThreshold(w *WaveformData) float64 {
	levels := make([]float64, 0, w.Len())
	for _, s := range w.segments {
		if math.IsInf(s.AvgDB, 0) || math.IsNaN(s.AvgDB) {
			continue
		}
		levels = append(levels, s.AvgDB)
	}

	if len(levels) == 0 {
		return DefaultThresholdDB
	}

	sort.Float64s(levels)

	// Lowest 20%, rounded down, but always at least one value
	count := int(math.Floor(float64(len(levels)) * noiseFloorFraction))
	if count < 1 {
		count = 1
	}

	var sum float64
	for _, level := range levels[:count] {
		sum += level
	}
	noiseFloor := sum / float64(count)

	return clampThreshold(noiseFloor + thresholdHeadroomDB)
}

// clampThreshold keeps a recommended threshold inside the safe range
func clampThreshold(db float64) float64 {
	if db < thresholdMinDB {
		return thresholdMinDB
	} else if db > thresholdMaxDB {
		return thresholdMaxDB
	}
	return db
}
