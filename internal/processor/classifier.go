package processor

import (
	"fmt"
	"math"

	"github.com/go-playground/validator/v10"
)

// Trim defaults
const (
	DefaultMinSilenceDuration = 0.6 // seconds
	DefaultSilenceMargin      = 0.2 // seconds

	// segmentEpsilon absorbs float error in duration/width ratios such as 1.1/0.1
	segmentEpsilon = 1e-9
)

var validate = validator.New()

// TrimConfig controls how segments are classified and protected
type TrimConfig struct {
	ThresholdDB        float64 `json:"threshold_db" validate:"gte=-100,lte=0"`
	MinSilenceDuration float64 `json:"min_silence_duration" validate:"gte=0,lte=60"` // seconds
	SilenceMargin      float64 `json:"silence_margin" validate:"gte=0,lte=10"`       // seconds
}

// DefaultTrimConfig returns the standard trim settings
func DefaultTrimConfig() TrimConfig {
	return TrimConfig{
		ThresholdDB:        DefaultThresholdDB,
		MinSilenceDuration: DefaultMinSilenceDuration,
		SilenceMargin:      DefaultSilenceMargin,
	}
}

// Validate checks the configuration ranges
func (c TrimConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid trim config: %w", err)
	}
	return nil
}

// CalculateSilenceSegments labels each segment of w against cfg.ThresholdDB and
// reverts silence runs shorter than cfg.MinSilenceDuration back to speech.
// The result is a new slice; w is never modified.
func CalculateSilenceSegments(w *WaveformData, cfg TrimConfig) []Segment {
	segments := w.Segments()
	for i := range segments {
		segments[i].IsSilence = isRawSilence(segments[i].AvgDB, cfg.ThresholdDB)
	}

	minRun := segmentCount(cfg.MinSilenceDuration, w.segmentSeconds())

	// Single pass: close each run when it ends and revert it if too short.
	// A run exactly minRun long stays silence.
	runStart := -1
	for i := 0; i <= len(segments); i++ {
		if i < len(segments) && segments[i].IsSilence {
			if runStart < 0 {
				runStart = i
			}
			continue
		}
		if runStart >= 0 {
			if i-runStart < minRun {
				for j := runStart; j < i; j++ {
					segments[j].IsSilence = false
				}
			}
			runStart = -1
		}
	}

	return segments
}

// isRawSilence applies the threshold to one level; digital silence always qualifies
func isRawSilence(db, thresholdDB float64) bool {
	return math.IsInf(db, -1) || db <= thresholdDB
}

// segmentCount converts a duration to a whole number of segments, rounding up
func segmentCount(seconds, segmentSeconds float64) int {
	if seconds <= 0 || segmentSeconds <= 0 {
		return 0
	}
	return int(math.Ceil(seconds/segmentSeconds - segmentEpsilon))
}
