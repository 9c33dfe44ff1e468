package processor

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/linuxmatters/jivetrim/internal/audio"
)

// Analysis defaults and fallbacks
const (
	DefaultResolutionMs = 200 // nominal segment width

	fallbackMaxDB = 0.0   // reported when no finite level was seen
	fallbackMinDB = -60.0 // reported when no finite level was seen

	progressInterval = 256 // windows between progress callbacks
)

// ErrInvalidResolution is returned when the analysis window holds no samples
var ErrInvalidResolution = errors.New("analysis resolution must cover at least one sample")

// ProgressFunc receives analysis progress (0.0 to 1.0) and the level of the latest window in dB
type ProgressFunc func(progress float64, level float64)

// Segment is one fixed-width slice of the recording
type Segment struct {
	Start     float64 `json:"start"` // seconds
	End       float64 `json:"end"`   // seconds
	IsSilence bool    `json:"is_silence"`
	AvgDB     float64 `json:"avg_db"` // -Inf only for exact digital silence
}

// Duration returns the segment width in seconds
func (s Segment) Duration() float64 {
	return s.End - s.Start
}

// WaveformData is the read-only result of one analysis pass.
// Accessors hand out copies, so callers can never mutate the original segments.
type WaveformData struct {
	segments   []Segment
	duration   float64
	maxDB      float64
	minDB      float64
	resolution int
}

// NewWaveformData builds a snapshot from existing segments, deriving the dB range.
// The segments are copied.
func NewWaveformData(segments []Segment, duration float64, resolutionMs int) *WaveformData {
	w := &WaveformData{
		segments:   append([]Segment(nil), segments...),
		duration:   duration,
		resolution: resolutionMs,
	}
	w.maxDB, w.minDB = levelRange(w.segments)
	return w
}

// Segments returns a fresh copy of the analysed segments
func (w *WaveformData) Segments() []Segment {
	return append([]Segment(nil), w.segments...)
}

// Len returns the number of segments
func (w *WaveformData) Len() int { return len(w.segments) }

// Segment returns segment i by value
func (w *WaveformData) Segment(i int) Segment { return w.segments[i] }

// Duration returns the analysed length in seconds
func (w *WaveformData) Duration() float64 { return w.duration }

// MaxDB returns the loudest finite segment level, or 0 when none exists
func (w *WaveformData) MaxDB() float64 { return w.maxDB }

// MinDB returns the quietest finite segment level, or -60 when none exists
func (w *WaveformData) MinDB() float64 { return w.minDB }

// Resolution returns the nominal segment width in milliseconds
func (w *WaveformData) Resolution() int { return w.resolution }

// segmentSeconds returns the nominal segment width in seconds
func (w *WaveformData) segmentSeconds() float64 {
	return float64(w.resolution) / 1000.0
}

// AnalyzeWaveform decodes raw audio and measures its loudness per segment.
// Decoder failures are returned as *audio.DecodeError and are never retried.
func AnalyzeWaveform(ctx context.Context, dec audio.Decoder, raw []byte, resolutionMs int, progress ProgressFunc) (*WaveformData, error) {
	buf, err := dec.Decode(ctx, raw)
	if err != nil {
		return nil, asDecodeError(err)
	}

	return AnalyzeBuffer(buf, resolutionMs, progress)
}

// AnalyzeBuffer splits channel 0 of buf into windows of resolutionMs and measures
// the RMS level of each. Only the first channel is analysed; stereo recordings are
// assumed to carry the same speech on every channel.
func AnalyzeBuffer(buf *audio.Buffer, resolutionMs int, progress ProgressFunc) (*WaveformData, error) {
	if buf.NumChannels() == 0 || buf.Len() == 0 {
		if resolutionMs <= 0 {
			return nil, fmt.Errorf("%w: %d ms", ErrInvalidResolution, resolutionMs)
		}
		return &WaveformData{
			duration:   0,
			maxDB:      fallbackMaxDB,
			minDB:      fallbackMinDB,
			resolution: resolutionMs,
		}, nil
	}

	sampleRate := float64(buf.SampleRate)
	// Integer arithmetic keeps floor(resolution/1000 * rate) exact
	windowSize := resolutionMs * buf.SampleRate / 1000
	if resolutionMs <= 0 || windowSize <= 0 {
		return nil, fmt.Errorf("%w: %d ms at %d Hz", ErrInvalidResolution, resolutionMs, buf.SampleRate)
	}

	samples := buf.Channel(0)
	total := len(samples)
	numWindows := (total + windowSize - 1) / windowSize
	segments := make([]Segment, 0, numWindows)

	for w := 0; w < numWindows; w++ {
		start := w * windowSize
		end := start + windowSize
		if end > total {
			end = total
		}

		var sumSquares float64
		for _, s := range samples[start:end] {
			v := float64(s)
			sumSquares += v * v
		}
		level := RMSToDB(math.Sqrt(sumSquares / float64(end-start)))

		segments = append(segments, Segment{
			Start: float64(start) / sampleRate,
			End:   float64(end) / sampleRate,
			AvgDB: level,
		})

		if progress != nil && w%progressInterval == 0 {
			progress(float64(w)/float64(numWindows), level)
		}
	}

	maxDB, minDB := levelRange(segments)

	if progress != nil {
		progress(1.0, 0)
	}

	return &WaveformData{
		segments:   segments,
		duration:   float64(total) / sampleRate,
		maxDB:      maxDB,
		minDB:      minDB,
		resolution: resolutionMs,
	}, nil
}

// levelRange returns the finite dB range of segments with the 0/-60 fallback
func levelRange(segments []Segment) (float64, float64) {
	maxDB := math.Inf(-1)
	minDB := math.Inf(1)
	for _, s := range segments {
		if math.IsInf(s.AvgDB, 0) || math.IsNaN(s.AvgDB) {
			continue
		}
		maxDB = math.Max(maxDB, s.AvgDB)
		minDB = math.Min(minDB, s.AvgDB)
	}
	if math.IsInf(maxDB, -1) {
		return fallbackMaxDB, fallbackMinDB
	}
	return maxDB, minDB
}
