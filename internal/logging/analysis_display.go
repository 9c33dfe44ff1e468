// This file provides console display for analysis-only mode.

package logging

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/linuxmatters/jivetrim/internal/processor"
)

// maxListedRuns caps the silence runs printed by DisplayAnalysisResults
const maxListedRuns = 20

// DisplayAnalysisResults outputs pass 1 results and a preview of what cfg would remove.
// Used by --analyze mode for rapid inspection without writing any audio.
// When auto is set the recommended threshold replaces cfg.ThresholdDB.
func DisplayAnalysisResults(w io.Writer, inputPath string, wf *processor.WaveformData, cfg processor.TrimConfig, auto bool) {
	fmt.Fprintln(w, strings.Repeat("=", 70))
	fmt.Fprintf(w, "ANALYSIS: %s\n", filepath.Base(inputPath))
	fmt.Fprintln(w, strings.Repeat("=", 70))

	recommended := processor.CalculateAutoThreshold(wf)
	if auto {
		cfg.ThresholdDB = recommended
	}

	fmt.Fprintf(w, "Duration:    %s\n", FormatTimestamp(wf.Duration()))
	fmt.Fprintf(w, "Segments:    %d x %d ms\n", wf.Len(), wf.Resolution())
	fmt.Fprintln(w)

	writeAnalysisSection(w, "LEVELS")
	fmt.Fprintf(w, "  Loudest:        %s dB\n", formatMetric(wf.MaxDB(), 1))
	fmt.Fprintf(w, "  Quietest:       %s dB\n", formatMetric(wf.MinDB(), 1))
	fmt.Fprintf(w, "  Recommended:    %s dB\n", formatMetric(recommended, 1))
	fmt.Fprintln(w)

	segments := processor.CalculateTrimRanges(wf, cfg)
	stats := processor.CalculateTrimStats(segments, wf.Duration())

	writeAnalysisSection(w, "PREVIEW")
	fmt.Fprintf(w, "  Threshold:      %.1f dB\n", cfg.ThresholdDB)
	fmt.Fprintf(w, "  Min silence:    %.2fs\n", cfg.MinSilenceDuration)
	fmt.Fprintf(w, "  Margin:         %.2fs\n", cfg.SilenceMargin)
	fmt.Fprintf(w, "  Would remove:   %.1fs in %d run(s) (%s)\n",
		stats.RemovedDuration, stats.RemovedSegments, formatPercentage(stats.RemovedPercentage))
	fmt.Fprintf(w, "  New duration:   %s\n", FormatTimestamp(stats.TrimmedDuration))

	runs := silenceRuns(segments)
	for i, run := range runs {
		if i == maxListedRuns {
			fmt.Fprintf(w, "  ... and %d more\n", len(runs)-maxListedRuns)
			break
		}
		fmt.Fprintf(w, "  %3d. %s\n", i+1, formatSpan(run.Start, run.End))
	}
	fmt.Fprintln(w)
}

// writeAnalysisSection writes a section header for analysis output.
func writeAnalysisSection(w io.Writer, title string) {
	fmt.Fprintln(w, title)
}
