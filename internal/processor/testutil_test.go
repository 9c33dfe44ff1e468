package processor

import (
	"context"
	"math"
	"testing"

	"github.com/linuxmatters/jivetrim/internal/audio"
)

// TestAudioOptions configures the synthetic audio to generate
type TestAudioOptions struct {
	DurationSecs float64 // Total duration in seconds
	SampleRate   int     // Sample rate (default: 16000)
	Channels     int     // Channel count (default: 1)
	ToneFreq     float64 // Sine wave frequency in Hz (0 = no tone)
	ToneLevel    float64 // Tone level in dBFS (e.g., -12.0)
	NoiseLevel   float64 // White noise level in dBFS (0 = no noise, -60 = quiet noise)
	SilenceGaps  []Gap   // Digital silence regions
}

// Gap is a region of digital silence
type Gap struct {
	Start    float64 // seconds
	Duration float64 // seconds
}

// generateTestBuffer creates a synthetic in-memory buffer for testing.
// The audio can include a sine wave tone, white noise, and silence gaps.
func generateTestBuffer(t *testing.T, opts TestAudioOptions) *audio.Buffer {
	t.Helper()

	if opts.SampleRate == 0 {
		opts.SampleRate = 16000
	}
	if opts.Channels == 0 {
		opts.Channels = 1
	}

	totalSamples := int(opts.DurationSecs * float64(opts.SampleRate))
	buf := audio.NewBuffer(opts.SampleRate, opts.Channels, totalSamples)

	toneAmp := 0.0
	if opts.ToneFreq > 0 && opts.ToneLevel < 0 {
		toneAmp = math.Pow(10.0, opts.ToneLevel/20.0)
	}
	noiseAmp := 0.0
	if opts.NoiseLevel < 0 {
		noiseAmp = math.Pow(10.0, opts.NoiseLevel/20.0)
	}

	// Simple LCG random number generator for deterministic noise
	rngState := uint32(12345)
	nextRandom := func() float64 {
		rngState = rngState*1664525 + 1013904223
		return (float64(rngState)/float64(0xFFFFFFFF))*2.0 - 1.0
	}

	inGap := func(i int) bool {
		for _, g := range opts.SilenceGaps {
			start := int(g.Start * float64(opts.SampleRate))
			end := int((g.Start + g.Duration) * float64(opts.SampleRate))
			if i >= start && i < end {
				return true
			}
		}
		return false
	}

	for i := 0; i < totalSamples; i++ {
		if inGap(i) {
			continue
		}

		var sample float64
		if toneAmp > 0 {
			ts := float64(i) / float64(opts.SampleRate)
			// Peak amplitude sqrt(2) * RMS so ToneLevel is the RMS level
			sample += toneAmp * math.Sqrt2 * math.Sin(2.0*math.Pi*opts.ToneFreq*ts)
		}
		if noiseAmp > 0 {
			sample += noiseAmp * nextRandom()
		}

		for c := 0; c < opts.Channels; c++ {
			buf.Channels[c][i] = float32(sample)
		}
	}

	return buf
}

// segmentsAt builds contiguous segments of widthSecs from dB levels
func segmentsAt(widthSecs float64, levels ...float64) []Segment {
	segments := make([]Segment, len(levels))
	for i, db := range levels {
		segments[i] = Segment{
			Start: float64(i) * widthSecs,
			End:   float64(i+1) * widthSecs,
			AvgDB: db,
		}
	}
	return segments
}

// silenceFlags builds 200ms segments from a silence pattern
func silenceFlags(pattern ...bool) []Segment {
	segments := make([]Segment, len(pattern))
	for i, silent := range pattern {
		segments[i] = Segment{
			Start:     float64(i) * 0.2,
			End:       float64(i+1) * 0.2,
			IsSilence: silent,
			AvgDB:     -30,
		}
	}
	return segments
}

// flags extracts the IsSilence pattern of segments
func flags(segments []Segment) []bool {
	out := make([]bool, len(segments))
	for i, s := range segments {
		out[i] = s.IsSilence
	}
	return out
}

// fakeCodec returns a fixed buffer and records what it is asked to encode
type fakeCodec struct {
	buf       *audio.Buffer
	decodeErr error
	encodeErr error

	encoded *audio.Buffer
	opts    audio.EncodeOptions
}

func (f *fakeCodec) Decode(context.Context, []byte) (*audio.Buffer, error) {
	if f.decodeErr != nil {
		return nil, f.decodeErr
	}
	return f.buf, nil
}

func (f *fakeCodec) Encode(_ context.Context, buf *audio.Buffer, opts audio.EncodeOptions) ([]byte, error) {
	if f.encodeErr != nil {
		return nil, f.encodeErr
	}
	f.encoded = buf
	f.opts = opts
	return []byte("encoded"), nil
}
