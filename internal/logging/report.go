package logging

import (
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/linuxmatters/jivetrim/internal/processor"
)

// ReportSuffix is appended to the input base name for the report file
const ReportSuffix = "-trim.log"

// ReportData contains all the information needed to generate a trim report
type ReportData struct {
	InputPath    string
	OutputPath   string
	StartTime    time.Time
	EndTime      time.Time
	Pass1Time    time.Duration // Analysis
	Pass2Time    time.Duration // Trimming and encoding
	Result       *processor.ProcessingResult
	Config       processor.TrimConfig // settings before any auto threshold
	AutoUsed     bool
	SampleRate   int
	Channels     int
	DurationSecs float64
}

// ReportPath returns where GenerateReport writes the report for inputPath
func ReportPath(inputPath string) string {
	return strings.TrimSuffix(inputPath, filepath.Ext(inputPath)) + ReportSuffix
}

// GenerateReport creates a trim report and saves it alongside the input file.
// The report filename will be <input>-trim.log
//
// Report structure:
// 1. Header - file info and timestamp
// 2. Processing Summary - pass timings
// 3. Trim Settings - threshold, hysteresis and margin
// 4. Level Analysis - measured range and recommended threshold
// 5. Trim Results - Original/Trimmed/Removed table
// 6. Removed Silence - every removed run with timestamps
// 7. Tips - tuning suggestions
func GenerateReport(data ReportData) error {
	logPath := ReportPath(data.InputPath)

	f, err := os.Create(logPath)
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}
	defer f.Close()

	WriteReport(f, data)
	return nil
}

// WriteReport writes the report sections to w
func WriteReport(w io.Writer, data ReportData) {
	writeReportHeader(w, data)
	writeProcessingSummary(w, data)
	writeTrimSettings(w, data)

	if data.Result == nil {
		return
	}

	if data.Result.Waveform != nil {
		writeLevelAnalysis(w, data.Result.Waveform, data.Result.ThresholdDB)
	}
	if data.Result.Result != nil {
		writeTrimResults(w, data.Result.Result)
	}
	writeRemovedSilence(w, data.Result.Segments)
	writeTips(w, GenerateTrimTips(data.Result))
}

// writeSection writes a section header with title and dashed underline.
// The underline length matches the title length.
func writeSection(w io.Writer, title string) {
	fmt.Fprintln(w, title)
	fmt.Fprintln(w, strings.Repeat("-", len(title)))
}

// writeReportHeader outputs the report header with file info and timestamp.
func writeReportHeader(w io.Writer, data ReportData) {
	fmt.Fprintln(w, "Jivetrim Report")
	fmt.Fprintln(w, "===============")
	fmt.Fprintf(w, "File: %s\n", filepath.Base(data.InputPath))
	if data.OutputPath != "" {
		fmt.Fprintf(w, "Output: %s\n", filepath.Base(data.OutputPath))
	}
	fmt.Fprintf(w, "Processed: %s\n", data.EndTime.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(w, "Duration: %s\n", formatDuration(time.Duration(data.DurationSecs*float64(time.Second))))
	if data.SampleRate > 0 {
		fmt.Fprintf(w, "Format: %d Hz, %s\n", data.SampleRate, channelName(data.Channels))
	}
	fmt.Fprintln(w, "")
}

// writeProcessingSummary outputs the processing time summary for both passes.
func writeProcessingSummary(w io.Writer, data ReportData) {
	writeSection(w, "Processing Summary")

	fmt.Fprintf(w, "Pass 1 (Analysis): %s\n", formatDuration(data.Pass1Time))
	fmt.Fprintf(w, "Pass 2 (Trimming): %s\n", formatDuration(data.Pass2Time))

	totalTime := data.EndTime.Sub(data.StartTime)
	fmt.Fprintf(w, "Total:             %s", formatDuration(totalTime))

	if data.DurationSecs > 0 && totalTime > 0 {
		audioDuration := time.Duration(data.DurationSecs * float64(time.Second))
		rtf := float64(audioDuration) / float64(totalTime)
		fmt.Fprintf(w, " (%.0fx real-time)", rtf)
	}
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "")
}

// writeTrimSettings outputs the classification settings in effect.
func writeTrimSettings(w io.Writer, data ReportData) {
	writeSection(w, "Trim Settings")

	threshold := data.Config.ThresholdDB
	if data.Result != nil {
		threshold = data.Result.ThresholdDB
	}
	if data.AutoUsed {
		fmt.Fprintf(w, "Threshold:   %.1f dB (auto)\n", threshold)
	} else {
		fmt.Fprintf(w, "Threshold:   %.1f dB\n", threshold)
	}
	fmt.Fprintf(w, "Min silence: %.2fs\n", data.Config.MinSilenceDuration)
	fmt.Fprintf(w, "Margin:      %.2fs\n", data.Config.SilenceMargin)
	if data.Result != nil && data.Result.Waveform != nil {
		fmt.Fprintf(w, "Resolution:  %d ms\n", data.Result.Waveform.Resolution())
	}
	fmt.Fprintln(w, "")
}

// writeLevelAnalysis outputs the measured level range and recommendation.
func writeLevelAnalysis(w io.Writer, wf *processor.WaveformData, thresholdDB float64) {
	writeSection(w, "Level Analysis")

	auto := processor.CalculateAutoThreshold(wf)
	digital := 0
	for _, s := range wf.Segments() {
		if math.IsInf(s.AvgDB, -1) {
			digital++
		}
	}

	table := NewMetricTable("Value")
	table.AddRow("Segments", []string{fmt.Sprintf("%d", wf.Len())}, "", "")
	table.AddRow("Digital silence", []string{fmt.Sprintf("%d", digital)}, "", "segments of exact zero")
	table.AddRow("Loudest segment", []string{formatMetric(wf.MaxDB(), 1)}, "dB", "")
	table.AddRow("Quietest segment", []string{formatMetric(wf.MinDB(), 1)}, "dB", "excluding digital silence")
	table.AddRow("Recommended", []string{formatMetric(auto, 1)}, "dB", interpretThresholdOffset(thresholdDB-auto))
	fmt.Fprint(w, table.String())
	fmt.Fprintln(w, "")
}

// interpretThresholdOffset describes how the applied threshold compares to the recommendation
func interpretThresholdOffset(offset float64) string {
	switch {
	case math.Abs(offset) < 1:
		return "matches applied threshold"
	case offset > 0:
		return fmt.Sprintf("applied threshold is %s dB more aggressive", formatMetricSigned(offset, 1))
	default:
		return fmt.Sprintf("applied threshold is %s dB more conservative", formatMetricSigned(offset, 1))
	}
}

// writeTrimResults outputs the Original/Trimmed/Removed comparison table.
func writeTrimResults(w io.Writer, r *processor.TrimResult) {
	writeSection(w, "Trim Results")

	table := NewMetricTable("Original", "Trimmed", "Removed")
	table.AddMetricRow("Duration", []float64{r.OriginalDuration, r.TrimmedDuration, r.RemovedDuration}, 2, "s", "")
	table.AddRow("Timestamp", []string{
		FormatTimestamp(r.OriginalDuration),
		FormatTimestamp(r.TrimmedDuration),
		FormatTimestamp(r.RemovedDuration),
	}, "", "")
	table.AddRow("Share", []string{"100.0%", formatPercentage(100 - r.RemovedPercentage), formatPercentage(r.RemovedPercentage)}, "", "")
	fmt.Fprint(w, table.String())
	fmt.Fprintf(w, "Silence runs removed: %d\n", r.RemovedSegments)
	fmt.Fprintln(w, "")
}

// writeRemovedSilence lists every removed run in the original timeline.
func writeRemovedSilence(w io.Writer, segments []processor.Segment) {
	writeSection(w, "Removed Silence")

	runs := silenceRuns(segments)
	if len(runs) == 0 {
		fmt.Fprintln(w, "None")
		fmt.Fprintln(w, "")
		return
	}
	for i, run := range runs {
		fmt.Fprintf(w, "%3d. %s\n", i+1, formatSpan(run.Start, run.End))
	}
	fmt.Fprintln(w, "")
}

// writeTips outputs tuning suggestions, if any.
func writeTips(w io.Writer, tips []TrimTip) {
	if len(tips) == 0 {
		return
	}
	writeSection(w, "Tips")
	for _, tip := range tips {
		fmt.Fprintf(w, "- %s\n", wrapText(tip.Message, 76, "  "))
	}
	fmt.Fprintln(w, "")
}

// silenceRun is a removed interval of the original timeline
type silenceRun struct {
	Start, End float64
}

// silenceRuns merges consecutive silence segments into runs
func silenceRuns(segments []processor.Segment) []silenceRun {
	var runs []silenceRun
	inRun := false
	for _, s := range segments {
		if !s.IsSilence {
			inRun = false
			continue
		}
		if inRun {
			runs[len(runs)-1].End = s.End
		} else {
			runs = append(runs, silenceRun{Start: s.Start, End: s.End})
		}
		inRun = true
	}
	return runs
}

// formatDuration formats a duration in a human-readable way
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}

	minutes := int(d.Minutes())
	seconds := int(d.Seconds()) % 60

	if minutes < 60 {
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}

	hours := minutes / 60
	minutes = minutes % 60
	return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
}

// channelName returns a human-readable channel name
func channelName(channels int) string {
	switch channels {
	case 1:
		return "mono"
	case 2:
		return "stereo"
	default:
		return fmt.Sprintf("%d channels", channels)
	}
}
