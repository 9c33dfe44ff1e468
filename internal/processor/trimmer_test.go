package processor

import (
	"context"
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/linuxmatters/jivetrim/internal/audio"
)

func TestCalculateTrimStats(t *testing.T) {
	tests := []struct {
		name        string
		pattern     []bool
		original    float64
		wantRemoved float64
		wantPct     float64
		wantRuns    int
	}{
		{
			name:        "two fifths silent",
			pattern:     []bool{false, true, true, false, false},
			original:    1.0,
			wantRemoved: 0.4,
			wantPct:     40,
			wantRuns:    1,
		},
		{
			name:        "all speech",
			pattern:     []bool{false, false, false},
			original:    0.6,
			wantRemoved: 0,
			wantPct:     0,
			wantRuns:    0,
		},
		{
			name:        "separate runs are counted once each",
			pattern:     []bool{true, false, true, true, false, true},
			original:    1.2,
			wantRemoved: 0.8,
			wantPct:     66.6667,
			wantRuns:    3,
		},
		{
			name:        "all silence",
			pattern:     []bool{true, true},
			original:    0.4,
			wantRemoved: 0.4,
			wantPct:     100,
			wantRuns:    1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stats := CalculateTrimStats(silenceFlags(tt.pattern...), tt.original)

			if math.Abs(stats.RemovedDuration-tt.wantRemoved) > 1e-9 {
				t.Errorf("RemovedDuration = %.6f, want %.6f", stats.RemovedDuration, tt.wantRemoved)
			}
			if math.Abs(stats.TrimmedDuration-(tt.original-tt.wantRemoved)) > 1e-9 {
				t.Errorf("TrimmedDuration = %.6f, want %.6f", stats.TrimmedDuration, tt.original-tt.wantRemoved)
			}
			if math.Abs(stats.RemovedPercentage-tt.wantPct) > 0.001 {
				t.Errorf("RemovedPercentage = %.4f, want %.4f", stats.RemovedPercentage, tt.wantPct)
			}
			if stats.RemovedSegments != tt.wantRuns {
				t.Errorf("RemovedSegments = %d, want %d", stats.RemovedSegments, tt.wantRuns)
			}
		})
	}
}

func TestCalculateTrimStats_ZeroDuration(t *testing.T) {
	stats := CalculateTrimStats(nil, 0)
	if stats != (TrimStats{}) {
		t.Errorf("got %+v, want zero stats", stats)
	}

	// Removed time larger than the stated original never goes negative
	stats = CalculateTrimStats(silenceFlags(true, true), 0.1)
	if stats.TrimmedDuration != 0 {
		t.Errorf("TrimmedDuration = %v, want 0", stats.TrimmedDuration)
	}
}

func TestKeepRanges(t *testing.T) {
	tests := []struct {
		name     string
		segments []Segment
		want     []KeepRange
	}{
		{
			name:     "adjacent speech merges",
			segments: silenceFlags(false, false, true, true, false),
			want:     []KeepRange{{0, 0.4}, {0.8, 1.0}},
		},
		{
			name:     "all silence keeps nothing",
			segments: silenceFlags(true, true),
			want:     nil,
		},
		{
			name: "sub-millisecond gap merges",
			segments: []Segment{
				{Start: 0, End: 0.2},
				{Start: 0.2005, End: 0.4},
			},
			want: []KeepRange{{0, 0.4}},
		},
		{
			name: "wider gap stays separate",
			segments: []Segment{
				{Start: 0, End: 0.2},
				{Start: 0.25, End: 0.4},
			},
			want: []KeepRange{{0, 0.2}, {0.25, 0.4}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := KeepRanges(tt.segments)
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if math.Abs(got[i].Start-tt.want[i].Start) > 1e-9 || math.Abs(got[i].End-tt.want[i].End) > 1e-9 {
					t.Errorf("range %d = %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestTrimBuffer(t *testing.T) {
	src := audio.NewBuffer(1000, 2, 1000)
	for i := 0; i < 1000; i++ {
		src.Channels[0][i] = float32(i)
		src.Channels[1][i] = float32(-i)
	}

	got := TrimBuffer(src, []KeepRange{{0, 0.1}, {0.5, 0.6}, {0.95, 2.0}})

	if got.NumChannels() != 2 || got.SampleRate != 1000 {
		t.Fatalf("layout = %d channels at %d Hz", got.NumChannels(), got.SampleRate)
	}
	// 100 + 100 + 50 samples, the last range clamped to the source length
	if got.Len() != 250 {
		t.Fatalf("Len = %d, want 250", got.Len())
	}

	checks := map[int]float32{0: 0, 99: 99, 100: 500, 199: 599, 200: 950, 249: 999}
	for i, want := range checks {
		if got.Channels[0][i] != want || got.Channels[1][i] != -want {
			t.Errorf("sample %d = (%v, %v), want (%v, %v)", i, got.Channels[0][i], got.Channels[1][i], want, -want)
		}
	}
}

func TestTrimBuffer_NoRanges(t *testing.T) {
	src := audio.NewBuffer(8000, 1, 800)
	got := TrimBuffer(src, nil)
	if got.Len() != 0 || got.NumChannels() != 1 {
		t.Errorf("got %d channels of %d samples, want 1 empty channel", got.NumChannels(), got.Len())
	}
}

func TestTrimAudio(t *testing.T) {
	src := generateTestBuffer(t, TestAudioOptions{DurationSecs: 1.0, Channels: 2, NoiseLevel: -20})
	codec := &fakeCodec{buf: src}

	segments := silenceFlags(false, true, true, false, false)
	result, err := TrimAudio(context.Background(), codec, codec, []byte("raw"), segments, audio.EncodeOptions{Format: audio.FormatWAV})
	if err != nil {
		t.Fatalf("TrimAudio failed: %v", err)
	}

	// 0.4s of 1.0s at 16kHz removed
	if codec.encoded.Len() != 9600 {
		t.Errorf("encoded length = %d samples, want 9600", codec.encoded.Len())
	}
	if codec.opts.Channels != 2 || codec.opts.SampleRate != 16000 || codec.opts.Format != audio.FormatWAV {
		t.Errorf("encode options = %+v, want source layout with WAV format", codec.opts)
	}

	if math.Abs(result.OriginalDuration-1.0) > 1e-9 {
		t.Errorf("OriginalDuration = %v, want 1.0", result.OriginalDuration)
	}
	if math.Abs(result.RemovedPercentage-40) > 1e-6 {
		t.Errorf("RemovedPercentage = %v, want 40", result.RemovedPercentage)
	}
	if math.Abs(result.TrimmedDuration-0.6) > 1e-9 {
		t.Errorf("TrimmedDuration = %v, want 0.6", result.TrimmedDuration)
	}
	if result.RemovedSegments != 1 {
		t.Errorf("RemovedSegments = %d, want 1", result.RemovedSegments)
	}
	if string(result.Trimmed) != "encoded" {
		t.Errorf("Trimmed = %q, want the encoder output", result.Trimmed)
	}
}

func TestTrimAudio_AllSpeech(t *testing.T) {
	src := generateTestBuffer(t, TestAudioOptions{DurationSecs: 0.6, NoiseLevel: -20})
	codec := &fakeCodec{buf: src}

	result, err := TrimAudio(context.Background(), codec, codec, []byte("raw"), silenceFlags(false, false, false), audio.EncodeOptions{})
	if err != nil {
		t.Fatalf("TrimAudio failed: %v", err)
	}

	if result.RemovedSegments != 0 || result.RemovedDuration != 0 {
		t.Errorf("removed %d runs / %v s, want nothing", result.RemovedSegments, result.RemovedDuration)
	}
	if result.TrimmedDuration != result.OriginalDuration {
		t.Errorf("TrimmedDuration %v != OriginalDuration %v", result.TrimmedDuration, result.OriginalDuration)
	}
	if !reflect.DeepEqual(codec.encoded.Channels, src.Channels) {
		t.Error("encoded buffer differs from the source")
	}
}

func TestTrimAudio_WAVRoundTrip(t *testing.T) {
	src := generateTestBuffer(t, TestAudioOptions{DurationSecs: 1.0, ToneFreq: 440, ToneLevel: -12})
	ctx := context.Background()

	raw, err := audio.WAVCodec{}.Encode(ctx, src, audio.EncodeOptions{})
	if err != nil {
		t.Fatalf("encode fixture: %v", err)
	}

	segments := silenceFlags(false, true, true, false, false)
	result, err := TrimAudio(ctx, audio.WAVCodec{}, audio.WAVCodec{}, raw, segments, audio.EncodeOptions{Format: audio.FormatWAV})
	if err != nil {
		t.Fatalf("TrimAudio failed: %v", err)
	}

	out, err := audio.WAVCodec{}.Decode(ctx, result.Trimmed)
	if err != nil {
		t.Fatalf("decode trimmed output: %v", err)
	}
	if out.Len() != 9600 {
		t.Errorf("trimmed length = %d samples, want 9600", out.Len())
	}
	if math.Abs(out.Duration()-result.TrimmedDuration) > 1.0/16000 {
		t.Errorf("decoded duration %.6f, stats say %.6f", out.Duration(), result.TrimmedDuration)
	}
}

func TestTrimAudio_Errors(t *testing.T) {
	cause := errors.New("codec unavailable")
	src := audio.NewBuffer(16000, 1, 16000)
	segments := silenceFlags(false, false, false, false, false)

	t.Run("decode failure", func(t *testing.T) {
		codec := &fakeCodec{decodeErr: cause}
		_, err := TrimAudio(context.Background(), codec, codec, []byte("raw"), segments, audio.EncodeOptions{})

		var decodeErr *audio.DecodeError
		if !errors.As(err, &decodeErr) || !errors.Is(err, cause) {
			t.Errorf("err = %v, want DecodeError wrapping the cause", err)
		}
	})

	t.Run("encode failure", func(t *testing.T) {
		codec := &fakeCodec{buf: src, encodeErr: cause}
		_, err := TrimAudio(context.Background(), codec, codec, []byte("raw"), segments, audio.EncodeOptions{})

		var encodeErr *audio.EncodeError
		if !errors.As(err, &encodeErr) || !errors.Is(err, cause) {
			t.Errorf("err = %v, want EncodeError wrapping the cause", err)
		}
	})

	t.Run("typed errors are not wrapped twice", func(t *testing.T) {
		typed := &audio.DecodeError{Err: audio.ErrEmptyInput}
		codec := &fakeCodec{decodeErr: typed}
		_, err := TrimAudio(context.Background(), codec, codec, nil, segments, audio.EncodeOptions{})

		if err != typed {
			t.Errorf("err = %v, want the original *audio.DecodeError", err)
		}
	})
}
