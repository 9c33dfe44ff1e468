// Package processor detects silence in recorded audio and renders trimmed copies
package processor

import "math"

// RMSToDB converts a linear RMS amplitude to dBFS.
// Non-positive input is digital silence and maps to -Inf.
func RMSToDB(rms float64) float64 {
	if rms <= 0 {
		return math.Inf(-1)
	}
	return 20.0 * math.Log10(rms)
}

// DBToRMS converts dBFS to a linear RMS amplitude.
//
// It inverts RMSToDB for every finite dB value. At the -Inf boundary the pair is
// not invertible: DBToRMS(-Inf) is 0, but RMSToDB maps both 0 and every negative
// amplitude to -Inf, so a negative RMS never survives the round trip.
func DBToRMS(db float64) float64 {
	return math.Pow(10, db/20.0)
}
