package processor

import (
	"context"
	"errors"
	"math"

	"github.com/linuxmatters/jivetrim/internal/audio"
)

// abutTolerance is the gap in seconds below which two keep ranges are merged
const abutTolerance = 0.001

// KeepRange is a contiguous interval of the original audio that survives trimming
type KeepRange struct {
	Start float64 // seconds
	End   float64 // seconds
}

// Duration returns the range length in seconds
func (r KeepRange) Duration() float64 {
	return r.End - r.Start
}

// TrimStats summarises what trimming removes
type TrimStats struct {
	TrimmedDuration   float64 `json:"trimmed_duration"`
	RemovedDuration   float64 `json:"removed_duration"`
	RemovedPercentage float64 `json:"removed_percentage"`
	RemovedSegments   int     `json:"removed_segments"` // silence runs, not individual segments
}

// TrimResult is the rendered artifact plus its statistics
type TrimResult struct {
	OriginalDuration  float64 `json:"original_duration"`
	TrimmedDuration   float64 `json:"trimmed_duration"`
	RemovedDuration   float64 `json:"removed_duration"`
	RemovedPercentage float64 `json:"removed_percentage"`
	RemovedSegments   int     `json:"removed_segments"`
	Trimmed           []byte  `json:"-"`
}

// KeepRanges merges consecutive non-silence segments into contiguous ranges
func KeepRanges(segments []Segment) []KeepRange {
	var ranges []KeepRange
	for _, seg := range segments {
		if seg.IsSilence {
			continue
		}
		if n := len(ranges); n > 0 && math.Abs(seg.Start-ranges[n-1].End) < abutTolerance {
			ranges[n-1].End = seg.End
			continue
		}
		ranges = append(ranges, KeepRange{Start: seg.Start, End: seg.End})
	}
	return ranges
}

// CountSilenceRuns counts maximal runs of consecutive silence segments
func CountSilenceRuns(segments []Segment) int {
	runs := 0
	inRun := false
	for _, seg := range segments {
		if seg.IsSilence && !inRun {
			runs++
		}
		inRun = seg.IsSilence
	}
	return runs
}

// CalculateTrimStats computes how much of originalDuration the silence segments remove
func CalculateTrimStats(segments []Segment, originalDuration float64) TrimStats {
	var removed float64
	for _, seg := range segments {
		if seg.IsSilence {
			removed += seg.Duration()
		}
	}

	trimmed := originalDuration - removed
	if trimmed < 0 {
		trimmed = 0
	}

	var percentage float64
	if originalDuration > 0 {
		percentage = removed / originalDuration * 100
	}

	return TrimStats{
		TrimmedDuration:   trimmed,
		RemovedDuration:   removed,
		RemovedPercentage: percentage,
		RemovedSegments:   CountSilenceRuns(segments),
	}
}

// TrimBuffer copies the keep ranges of every channel of src into a new buffer,
// back to back with a hard cut at each boundary
func TrimBuffer(src *audio.Buffer, ranges []KeepRange) *audio.Buffer {
	type span struct{ from, to int }

	total := src.Len()
	rate := float64(src.SampleRate)
	spans := make([]span, 0, len(ranges))
	length := 0
	for _, r := range ranges {
		from := clampSample(int(math.Round(r.Start*rate)), total)
		to := clampSample(int(math.Round(r.End*rate)), total)
		if to <= from {
			continue
		}
		spans = append(spans, span{from, to})
		length += to - from
	}

	dst := audio.NewBuffer(src.SampleRate, src.NumChannels(), length)
	for c := 0; c < src.NumChannels(); c++ {
		in := src.Channel(c)
		out := dst.Channel(c)
		pos := 0
		for _, s := range spans {
			pos += copy(out[pos:], in[s.from:s.to])
		}
	}
	return dst
}

// TrimAudio decodes raw, keeps the non-silence segments and re-encodes the result.
// Statistics use the decoded duration rather than any caller-supplied one.
// Decode and encode are each attempted once.
func TrimAudio(ctx context.Context, dec audio.Decoder, enc audio.Encoder, raw []byte, segments []Segment, opts audio.EncodeOptions) (*TrimResult, error) {
	src, err := dec.Decode(ctx, raw)
	if err != nil {
		return nil, asDecodeError(err)
	}

	trimmed := TrimBuffer(src, KeepRanges(segments))

	if opts.Channels <= 0 {
		opts.Channels = src.NumChannels()
	}
	if opts.SampleRate <= 0 {
		opts.SampleRate = src.SampleRate
	}

	encoded, err := enc.Encode(ctx, trimmed, opts)
	if err != nil {
		return nil, asEncodeError(err)
	}

	originalDuration := src.Duration()
	stats := CalculateTrimStats(segments, originalDuration)

	return &TrimResult{
		OriginalDuration:  originalDuration,
		TrimmedDuration:   stats.TrimmedDuration,
		RemovedDuration:   stats.RemovedDuration,
		RemovedPercentage: stats.RemovedPercentage,
		RemovedSegments:   stats.RemovedSegments,
		Trimmed:           encoded,
	}, nil
}

// clampSample limits a sample index to [0, total]
func clampSample(i, total int) int {
	if i < 0 {
		return 0
	} else if i > total {
		return total
	}
	return i
}

// asDecodeError makes sure collaborator failures surface as *audio.DecodeError
func asDecodeError(err error) error {
	var decodeErr *audio.DecodeError
	if errors.As(err, &decodeErr) {
		return err
	}
	return &audio.DecodeError{Err: err}
}

// asEncodeError makes sure collaborator failures surface as *audio.EncodeError
func asEncodeError(err error) error {
	var encodeErr *audio.EncodeError
	if errors.As(err, &encodeErr) {
		return err
	}
	return &audio.EncodeError{Err: err}
}
