package audio

import (
	"context"
	"fmt"
	"strings"
)

// Codec is both halves of the collaborator pair
type Codec interface {
	Decoder
	Encoder
}

// Output formats understood by CodecFor
const (
	FormatWAV  = "wav"
	FormatMP3  = "mp3"
	FormatFLAC = "flac"
)

// CodecFor returns the codec that can write format.
// WAV stays in pure Go; compressed formats go through ffmpeg.
func CodecFor(format string) (Codec, error) {
	switch strings.ToLower(format) {
	case FormatWAV:
		return WAVCodec{}, nil
	case FormatMP3, FormatFLAC:
		return FFmpegCodec{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

// SniffingDecoder decodes RIFF/WAVE input in pure Go and hands anything else to Fallback
type SniffingDecoder struct {
	Fallback Decoder
}

// Decode picks a decoder from the container magic bytes
func (d SniffingDecoder) Decode(ctx context.Context, raw []byte) (*Buffer, error) {
	if IsWAV(raw) || d.Fallback == nil {
		return WAVCodec{}.Decode(ctx, raw)
	}
	return d.Fallback.Decode(ctx, raw)
}

// IsWAV reports whether raw starts with a RIFF/WAVE header
func IsWAV(raw []byte) bool {
	return len(raw) >= 12 && string(raw[0:4]) == "RIFF" && string(raw[8:12]) == "WAVE"
}
