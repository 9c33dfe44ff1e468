// Package audio provides decoded PCM buffers and the codecs that produce and consume them
package audio

import (
	"context"
	"errors"
	"fmt"
)

// Sentinel errors reported inside DecodeError and EncodeError
var (
	ErrEmptyInput          = errors.New("empty input")
	ErrNoAudioStream       = errors.New("no audio stream found")
	ErrUnsupportedFormat   = errors.New("unsupported output format")
	ErrInvalidBufferLayout = errors.New("invalid buffer layout")
)

// Buffer holds decoded audio as planar float32 samples in the range -1.0 to 1.0.
// Every channel slice has the same length.
type Buffer struct {
	SampleRate int
	Channels   [][]float32
}

// NewBuffer allocates a zeroed buffer of the given shape
func NewBuffer(sampleRate, channels, length int) *Buffer {
	planes := make([][]float32, channels)
	for i := range planes {
		planes[i] = make([]float32, length)
	}
	return &Buffer{SampleRate: sampleRate, Channels: planes}
}

// NumChannels returns the channel count
func (b *Buffer) NumChannels() int {
	return len(b.Channels)
}

// Len returns the number of samples per channel
func (b *Buffer) Len() int {
	if len(b.Channels) == 0 {
		return 0
	}
	return len(b.Channels[0])
}

// Duration returns the buffer length in seconds
func (b *Buffer) Duration() float64 {
	if b.SampleRate <= 0 {
		return 0
	}
	return float64(b.Len()) / float64(b.SampleRate)
}

// Channel returns the samples of channel i
func (b *Buffer) Channel(i int) []float32 {
	return b.Channels[i]
}

// validate checks the buffer can be encoded
func (b *Buffer) validate() error {
	if b.SampleRate <= 0 || len(b.Channels) == 0 {
		return fmt.Errorf("%w: %d channel(s) at %d Hz", ErrInvalidBufferLayout, len(b.Channels), b.SampleRate)
	}
	n := len(b.Channels[0])
	for i, ch := range b.Channels {
		if len(ch) != n {
			return fmt.Errorf("%w: channel %d has %d samples, want %d", ErrInvalidBufferLayout, i, len(ch), n)
		}
	}
	return nil
}

// EncodeOptions controls the compressed artifact produced by an Encoder
type EncodeOptions struct {
	Format      string // "wav", "mp3" or "flac"
	Channels    int    // output channel count, 0 keeps the buffer's
	SampleRate  int    // output sample rate, 0 keeps the buffer's
	BitrateKbps int    // ignored by lossless formats
}

// Decoder turns raw container bytes into PCM
type Decoder interface {
	Decode(ctx context.Context, raw []byte) (*Buffer, error)
}

// Encoder turns PCM into container bytes
type Encoder interface {
	Encode(ctx context.Context, buf *Buffer, opts EncodeOptions) ([]byte, error)
}

// DecodeError reports that input audio could not be decoded
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode audio: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// EncodeError reports that an output buffer could not be encoded
type EncodeError struct {
	Err error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("failed to encode audio: %v", e.Err)
}

func (e *EncodeError) Unwrap() error { return e.Err }
