package processor

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/linuxmatters/jivetrim/internal/audio"
)

// writeTestWAV encodes opts as a WAV file in a temp dir and returns its path
func writeTestWAV(t *testing.T, name string, opts TestAudioOptions) string {
	t.Helper()

	buf := generateTestBuffer(t, opts)
	raw, err := audio.WAVCodec{}.Encode(context.Background(), buf, audio.EncodeOptions{})
	if err != nil {
		t.Fatalf("failed to encode test audio: %v", err)
	}

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatalf("failed to write test audio: %v", err)
	}
	return path
}

func TestProcessFile(t *testing.T) {
	// 2.0s tone with a 1.0s pause from 0.6s to 1.6s
	inputPath := writeTestWAV(t, "episode.wav", TestAudioOptions{
		DurationSecs: 2.0,
		ToneFreq:     440,
		ToneLevel:    -12,
		SilenceGaps:  []Gap{{Start: 0.6, Duration: 1.0}},
	})

	trimmer := NewTrimmer(audio.WAVCodec{}, audio.WAVCodec{}, nil)
	opts := DefaultOptions()

	passes := map[int]string{}
	var lastProgress float64
	result, err := trimmer.ProcessFile(context.Background(), inputPath, opts, func(pass int, passName string, progress, level float64) {
		passes[pass] = passName
		lastProgress = progress
	})
	if err != nil {
		t.Fatalf("ProcessFile failed: %v", err)
	}

	if passes[1] != "Analyzing" || passes[2] != "Trimming" {
		t.Errorf("passes = %v, want Analyzing and Trimming", passes)
	}
	if lastProgress != 1.0 {
		t.Errorf("final progress = %v, want 1.0", lastProgress)
	}

	wantOutput := filepath.Join(filepath.Dir(inputPath), "episode-trimmed.wav")
	if result.OutputPath != wantOutput {
		t.Errorf("OutputPath = %q, want %q", result.OutputPath, wantOutput)
	}
	if result.ThresholdDB != DefaultThresholdDB {
		t.Errorf("ThresholdDB = %v, want %v", result.ThresholdDB, DefaultThresholdDB)
	}

	// Pause covers segments 3-7; a 200ms margin keeps 3 and 7
	if got := CountSilenceRuns(result.Segments); got != 1 {
		t.Errorf("silence runs = %d, want 1", got)
	}
	if math.Abs(result.Result.RemovedDuration-0.6) > 1e-9 {
		t.Errorf("RemovedDuration = %.4f, want 0.6", result.Result.RemovedDuration)
	}
	if math.Abs(result.Result.RemovedPercentage-30) > 1e-6 {
		t.Errorf("RemovedPercentage = %.4f, want 30", result.Result.RemovedPercentage)
	}

	raw, err := os.ReadFile(result.OutputPath)
	if err != nil {
		t.Fatalf("output not written: %v", err)
	}
	out, err := audio.WAVCodec{}.Decode(context.Background(), raw)
	if err != nil {
		t.Fatalf("output is not valid WAV: %v", err)
	}
	if out.Len() != 22400 {
		t.Errorf("output length = %d samples, want 22400", out.Len())
	}

	t.Logf("trimmed %.2fs to %.2fs (%.1f%% removed)",
		result.Result.OriginalDuration, result.Result.TrimmedDuration, result.Result.RemovedPercentage)
}

func TestProcessFile_AutoThreshold(t *testing.T) {
	inputPath := writeTestWAV(t, "auto.wav", TestAudioOptions{
		DurationSecs: 3.0,
		ToneFreq:     300,
		ToneLevel:    -15,
		NoiseLevel:   -70,
		SilenceGaps:  []Gap{{Start: 1.0, Duration: 1.0}},
	})

	trimmer := NewTrimmer(audio.WAVCodec{}, audio.WAVCodec{}, nil)
	opts := DefaultOptions()
	opts.AutoThreshold = true

	result, err := trimmer.ProcessFile(context.Background(), inputPath, opts, nil)
	if err != nil {
		t.Fatalf("ProcessFile failed: %v", err)
	}

	want := CalculateAutoThreshold(result.Waveform)
	if result.ThresholdDB != want {
		t.Errorf("ThresholdDB = %v, want auto value %v", result.ThresholdDB, want)
	}
	if result.ThresholdDB < -60 || result.ThresholdDB > -20 {
		t.Errorf("ThresholdDB = %v outside the auto range", result.ThresholdDB)
	}
}

func TestProcessFile_Errors(t *testing.T) {
	trimmer := NewTrimmer(audio.WAVCodec{}, audio.WAVCodec{}, nil)

	t.Run("missing file", func(t *testing.T) {
		_, err := trimmer.ProcessFile(context.Background(), filepath.Join(t.TempDir(), "nope.wav"), DefaultOptions(), nil)
		if !errors.Is(err, os.ErrNotExist) {
			t.Errorf("err = %v, want os.ErrNotExist", err)
		}
	})

	t.Run("not audio", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "notes.wav")
		if err := os.WriteFile(path, []byte("this is not a RIFF file"), 0o644); err != nil {
			t.Fatal(err)
		}

		_, err := trimmer.ProcessFile(context.Background(), path, DefaultOptions(), nil)
		var decodeErr *audio.DecodeError
		if !errors.As(err, &decodeErr) {
			t.Errorf("err = %v, want *audio.DecodeError", err)
		}
		if _, statErr := os.Stat(OutputPath(path, "", audio.FormatWAV)); !os.IsNotExist(statErr) {
			t.Error("output file written despite decode failure")
		}
	})
}

func TestPlan(t *testing.T) {
	w := NewWaveformData(segmentsAt(0.2, -10, -50, -50, -50, -50, -10), 1.2, 200)
	trimmer := NewTrimmer(nil, nil, nil)

	opts := DefaultOptions()
	threshold, segments := trimmer.Plan(w, opts)
	if threshold != DefaultThresholdDB {
		t.Errorf("threshold = %v, want %v", threshold, DefaultThresholdDB)
	}
	if got := CountSilenceRuns(segments); got != 1 {
		t.Errorf("silence runs = %d, want 1", got)
	}

	opts.AutoThreshold = true
	threshold, _ = trimmer.Plan(w, opts)
	if threshold != -44 {
		t.Errorf("auto threshold = %v, want -44", threshold)
	}
}

func TestOutputPath(t *testing.T) {
	tests := []struct {
		input, suffix, format string
		want                  string
	}{
		{"/shows/ep1.wav", "-trimmed", "wav", "/shows/ep1-trimmed.wav"},
		{"/shows/ep1.wav", "", "mp3", "/shows/ep1-trimmed.mp3"},
		{"/shows/ep1.flac", "-cut", "", "/shows/ep1-cut.flac"},
		{"ep1.Mix.wav", "-trimmed", "FLAC", "ep1.Mix-trimmed.flac"},
		{"noext", "-trimmed", "wav", "noext-trimmed.wav"},
	}

	for _, tt := range tests {
		if got := OutputPath(tt.input, tt.suffix, tt.format); got != tt.want {
			t.Errorf("OutputPath(%q, %q, %q) = %q, want %q", tt.input, tt.suffix, tt.format, got, tt.want)
		}
	}
}
