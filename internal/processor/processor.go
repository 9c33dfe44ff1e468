package processor

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/linuxmatters/jivetrim/internal/audio"
)

// DefaultOutputSuffix is appended to the input base name for trimmed output
const DefaultOutputSuffix = "-trimmed"

// Options bundles the settings for one file
type Options struct {
	ResolutionMs  int
	Trim          TrimConfig
	AutoThreshold bool // replace Trim.ThresholdDB with CalculateAutoThreshold
	Output        audio.EncodeOptions
	OutputSuffix  string
}

// DefaultOptions returns the standard settings with WAV output
func DefaultOptions() Options {
	return Options{
		ResolutionMs: DefaultResolutionMs,
		Trim:         DefaultTrimConfig(),
		Output:       audio.EncodeOptions{Format: audio.FormatWAV, BitrateKbps: 128},
		OutputSuffix: DefaultOutputSuffix,
	}
}

// ProgressCallback receives per-pass progress: pass 1 analyses, pass 2 trims
type ProgressCallback func(pass int, passName string, progress float64, level float64)

// ProcessingResult describes one processed file
type ProcessingResult struct {
	InputPath   string
	OutputPath  string
	ThresholdDB float64 // threshold actually applied
	Waveform    *WaveformData
	Segments    []Segment // final trim ranges
	Result      *TrimResult
}

// Trimmer runs the analyse, classify and render pipeline with injected codecs
type Trimmer struct {
	decoder audio.Decoder
	encoder audio.Encoder
	logger  *slog.Logger
}

// NewTrimmer creates a Trimmer. A nil logger discards log output.
func NewTrimmer(dec audio.Decoder, enc audio.Encoder, logger *slog.Logger) *Trimmer {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Trimmer{decoder: dec, encoder: enc, logger: logger}
}

// Analyze decodes raw audio and measures it
func (t *Trimmer) Analyze(ctx context.Context, raw []byte, resolutionMs int, progress ProgressFunc) (*WaveformData, error) {
	w, err := AnalyzeWaveform(ctx, t.decoder, raw, resolutionMs, progress)
	if err != nil {
		return nil, err
	}
	t.logger.Debug("waveform analysed",
		"segments", w.Len(),
		"duration", w.Duration(),
		"max_db", w.MaxDB(),
		"min_db", w.MinDB(),
	)
	return w, nil
}

// Plan picks the threshold and computes the final trim ranges for w
func (t *Trimmer) Plan(w *WaveformData, opts Options) (float64, []Segment) {
	cfg := opts.Trim
	if opts.AutoThreshold {
		cfg.ThresholdDB = CalculateAutoThreshold(w)
		t.logger.Debug("auto threshold", "threshold_db", cfg.ThresholdDB)
	}
	return cfg.ThresholdDB, CalculateTrimRanges(w, cfg)
}

// Trim renders raw without the silence segments
func (t *Trimmer) Trim(ctx context.Context, raw []byte, segments []Segment, output audio.EncodeOptions) (*TrimResult, error) {
	result, err := TrimAudio(ctx, t.decoder, t.encoder, raw, segments, output)
	if err != nil {
		return nil, err
	}
	t.logger.Debug("audio trimmed",
		"original", result.OriginalDuration,
		"trimmed", result.TrimmedDuration,
		"removed_pct", result.RemovedPercentage,
		"silence_runs", result.RemovedSegments,
	)
	return result, nil
}

// ProcessFile performs the complete two-pass pipeline on one file:
// - Pass 1: analyse the waveform and plan the trim ranges
// - Pass 2: render the trimmed artifact and write it next to the input
//
// The output is named <basename><suffix>.<format> in the input's directory.
func (t *Trimmer) ProcessFile(ctx context.Context, inputPath string, opts Options, progressCallback ProgressCallback) (*ProcessingResult, error) {
	raw, err := os.ReadFile(inputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read input file: %w", err)
	}

	if progressCallback != nil {
		progressCallback(1, "Analyzing", 0.0, 0.0)
	}

	w, err := t.Analyze(ctx, raw, opts.ResolutionMs, func(progress, level float64) {
		if progressCallback != nil {
			progressCallback(1, "Analyzing", progress, level)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("Pass 1 failed: %w", err)
	}

	threshold, segments := t.Plan(w, opts)
	return t.RenderFile(ctx, inputPath, raw, w, threshold, segments, opts, progressCallback)
}

// RenderFile runs pass 2 for segments planned from w and writes the output file
func (t *Trimmer) RenderFile(ctx context.Context, inputPath string, raw []byte, w *WaveformData, thresholdDB float64, segments []Segment, opts Options, progressCallback ProgressCallback) (*ProcessingResult, error) {
	if progressCallback != nil {
		progressCallback(2, "Trimming", 0.0, 0.0)
	}

	result, err := t.Trim(ctx, raw, segments, opts.Output)
	if err != nil {
		return nil, fmt.Errorf("Pass 2 failed: %w", err)
	}

	outputPath := OutputPath(inputPath, opts.OutputSuffix, opts.Output.Format)
	if err := os.WriteFile(outputPath, result.Trimmed, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write output file: %w", err)
	}

	if progressCallback != nil {
		progressCallback(2, "Trimming", 1.0, 0.0)
	}

	return &ProcessingResult{
		InputPath:   inputPath,
		OutputPath:  outputPath,
		ThresholdDB: thresholdDB,
		Waveform:    w,
		Segments:    segments,
		Result:      result,
	}, nil
}

// OutputPath derives the trimmed file name from the input path
func OutputPath(inputPath, suffix, format string) string {
	if suffix == "" {
		suffix = DefaultOutputSuffix
	}
	ext := filepath.Ext(inputPath)
	if format != "" {
		ext = "." + strings.ToLower(format)
	}
	base := strings.TrimSuffix(inputPath, filepath.Ext(inputPath))
	return base + suffix + ext
}
