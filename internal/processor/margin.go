package processor

// ApplyMargin protects speech boundaries by clearing IsSilence on up to
// marginSeconds worth of segments either side of every speech segment.
//
// Speech is read only from the input and cleared only in the returned copy, so a
// segment un-marked by one margin never extends the margin further. Where two
// margins overlap the later write wins, and since every write clears the flag the
// outcome does not depend on order.
func ApplyMargin(segments []Segment, marginSeconds float64, resolutionMs int) []Segment {
	out := append([]Segment(nil), segments...)

	margin := segmentCount(marginSeconds, float64(resolutionMs)/1000.0)
	if margin == 0 {
		return out
	}

	last := len(segments) - 1
	for i, seg := range segments {
		if seg.IsSilence {
			continue
		}
		lo := max(0, i-margin)
		hi := min(last, i+margin)
		for j := lo; j <= hi; j++ {
			out[j].IsSilence = false
		}
	}

	return out
}

// CalculateTrimRanges classifies w and widens every speech region by cfg.SilenceMargin.
// Always derive from the original WaveformData, never from a previous result,
// or margins and hysteresis compound across edits.
func CalculateTrimRanges(w *WaveformData, cfg TrimConfig) []Segment {
	return ApplyMargin(CalculateSilenceSegments(w, cfg), cfg.SilenceMargin, w.Resolution())
}
