package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// wavBitDepth is the bit depth written by WAVCodec
const wavBitDepth = 16

// WAVCodec decodes and encodes RIFF/WAVE PCM in pure Go.
// Output is always 16-bit PCM, so EncodeOptions.BitrateKbps has no effect.
type WAVCodec struct{}

// Decode reads a PCM WAV file into a planar float buffer
func (WAVCodec) Decode(ctx context.Context, raw []byte) (*Buffer, error) {
	if err := ctx.Err(); err != nil {
		return nil, &DecodeError{Err: err}
	}
	if len(raw) == 0 {
		return nil, &DecodeError{Err: ErrEmptyInput}
	}

	decoder := wav.NewDecoder(bytes.NewReader(raw))
	if !decoder.IsValidFile() {
		return nil, &DecodeError{Err: errors.New("invalid WAV file")}
	}

	pcm, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, &DecodeError{Err: fmt.Errorf("failed to read PCM buffer: %w", err)}
	}
	if pcm.Format == nil || pcm.Format.NumChannels <= 0 || pcm.Format.SampleRate <= 0 {
		return nil, &DecodeError{Err: errors.New("WAV file has no usable format chunk")}
	}

	return deinterleave(pcm, int(decoder.BitDepth)), nil
}

// Encode writes the buffer as a 16-bit PCM WAV file
func (WAVCodec) Encode(ctx context.Context, buf *Buffer, opts EncodeOptions) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, &EncodeError{Err: err}
	}
	if err := buf.validate(); err != nil {
		return nil, &EncodeError{Err: err}
	}

	channels := opts.Channels
	if channels <= 0 || channels > buf.NumChannels() {
		channels = buf.NumChannels()
	}
	if opts.SampleRate != 0 && opts.SampleRate != buf.SampleRate {
		return nil, &EncodeError{Err: fmt.Errorf("WAV encoder cannot resample %d Hz to %d Hz", buf.SampleRate, opts.SampleRate)}
	}

	out := &memWriteSeeker{}
	encoder := wav.NewEncoder(out, buf.SampleRate, wavBitDepth, channels, 1)
	if err := encoder.Write(interleave(buf, channels)); err != nil {
		return nil, &EncodeError{Err: fmt.Errorf("failed to write PCM data: %w", err)}
	}
	// Close patches the RIFF sizes, so the bytes are only valid afterwards
	if err := encoder.Close(); err != nil {
		return nil, &EncodeError{Err: fmt.Errorf("failed to finalise WAV header: %w", err)}
	}

	return out.Bytes(), nil
}

// deinterleave converts go-audio's interleaved integer samples to planar floats
func deinterleave(pcm *goaudio.IntBuffer, bitDepth int) *Buffer {
	channels := pcm.Format.NumChannels
	frames := len(pcm.Data) / channels
	buf := NewBuffer(pcm.Format.SampleRate, channels, frames)

	var offset, scale float64
	switch bitDepth {
	case 8:
		// 8-bit WAV is unsigned
		offset, scale = 128, 128
	case 24:
		scale = 8388608
	case 32:
		scale = 2147483648
	default:
		scale = 32768
	}

	for i := 0; i < frames; i++ {
		for c := 0; c < channels; c++ {
			buf.Channels[c][i] = float32((float64(pcm.Data[i*channels+c]) - offset) / scale)
		}
	}
	return buf
}

// interleave converts the first n channels to 16-bit interleaved integers
func interleave(buf *Buffer, n int) *goaudio.IntBuffer {
	frames := buf.Len()
	data := make([]int, frames*n)
	for i := 0; i < frames; i++ {
		for c := 0; c < n; c++ {
			s := float64(buf.Channels[c][i])
			if s > 1.0 {
				s = 1.0
			} else if s < -1.0 {
				s = -1.0
			}
			data[i*n+c] = int(s * 32767)
		}
	}

	return &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: n, SampleRate: buf.SampleRate},
		Data:           data,
		SourceBitDepth: wavBitDepth,
	}
}

// memWriteSeeker is an in-memory io.WriteSeeker for the WAV encoder,
// which seeks back to rewrite chunk sizes on Close
type memWriteSeeker struct {
	buf []byte
	pos int
}

func (m *memWriteSeeker) Write(p []byte) (int, error) {
	end := m.pos + len(p)
	if end > len(m.buf) {
		if end > cap(m.buf) {
			grown := make([]byte, end, 2*end)
			copy(grown, m.buf)
			m.buf = grown
		} else {
			m.buf = m.buf[:end]
		}
	}
	copy(m.buf[m.pos:end], p)
	m.pos = end
	return len(p), nil
}

func (m *memWriteSeeker) Seek(offset int64, whence int) (int64, error) {
	var next int64
	switch whence {
	case io.SeekStart:
		next = offset
	case io.SeekCurrent:
		next = int64(m.pos) + offset
	case io.SeekEnd:
		next = int64(len(m.buf)) + offset
	default:
		return 0, fmt.Errorf("invalid whence %d", whence)
	}
	if next < 0 {
		return 0, errors.New("negative seek position")
	}
	m.pos = int(next)
	return next, nil
}

func (m *memWriteSeeker) Bytes() []byte {
	return m.buf
}
