package logging

import (
	"fmt"
	"math"
)

// FormatTimestamp renders a position in seconds as "M:SS.s", or "H:MM:SS" from one hour.
// Negative and NaN input renders as zero.
func FormatTimestamp(seconds float64) string {
	if math.IsNaN(seconds) || seconds < 0 {
		seconds = 0
	}

	tenths := int(math.Round(seconds * 10))
	if tenths < 36000 {
		return fmt.Sprintf("%d:%02d.%d", tenths/600, tenths%600/10, tenths%10)
	}

	total := int(math.Round(seconds))
	return fmt.Sprintf("%d:%02d:%02d", total/3600, total%3600/60, total%60)
}

// formatSpan renders a start-end range with its length, e.g. "0:01.2 - 0:03.0 (1.8s)"
func formatSpan(start, end float64) string {
	return fmt.Sprintf("%s - %s (%.1fs)", FormatTimestamp(start), FormatTimestamp(end), end-start)
}
