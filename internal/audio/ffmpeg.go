package audio

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"unsafe"

	ffmpeg "github.com/linuxmatters/ffmpeg-statigo"
)

// FFmpegCodec decodes any container ffmpeg understands and encodes MP3 or FLAC.
// ffmpeg works on files, so raw bytes pass through a temporary file that is
// removed on every exit path.
type FFmpegCodec struct {
	// TempDir holds the intermediate files; empty uses os.TempDir()
	TempDir string
}

// Decode demuxes and decodes the first audio stream into planar floats
func (c FFmpegCodec) Decode(ctx context.Context, raw []byte) (*Buffer, error) {
	if err := ctx.Err(); err != nil {
		return nil, &DecodeError{Err: err}
	}
	if len(raw) == 0 {
		return nil, &DecodeError{Err: ErrEmptyInput}
	}

	inputPath, err := c.writeTemp("jivetrim-decode-*", raw)
	if err != nil {
		return nil, &DecodeError{Err: err}
	}
	defer os.Remove(inputPath)

	buf, err := decodeFile(ctx, inputPath)
	if err != nil {
		return nil, &DecodeError{Err: err}
	}
	return buf, nil
}

// Encode writes the buffer through the encoder frame by frame, flushing at the end
func (c FFmpegCodec) Encode(ctx context.Context, buf *Buffer, opts EncodeOptions) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, &EncodeError{Err: err}
	}
	if err := buf.validate(); err != nil {
		return nil, &EncodeError{Err: err}
	}

	if opts.Channels <= 0 || opts.Channels > buf.NumChannels() {
		opts.Channels = buf.NumChannels()
	}
	if opts.SampleRate == 0 {
		opts.SampleRate = buf.SampleRate
	}
	if opts.SampleRate != buf.SampleRate {
		return nil, &EncodeError{Err: fmt.Errorf("cannot resample %d Hz to %d Hz", buf.SampleRate, opts.SampleRate)}
	}

	dir := c.TempDir
	if dir == "" {
		dir = os.TempDir()
	}
	outFile, err := os.CreateTemp(dir, "jivetrim-encode-*."+opts.Format)
	if err != nil {
		return nil, &EncodeError{Err: fmt.Errorf("failed to create temp file: %w", err)}
	}
	outputPath := outFile.Name()
	outFile.Close()
	defer os.Remove(outputPath)

	encoder, err := createOutputEncoder(outputPath, opts)
	if err != nil {
		return nil, &EncodeError{Err: err}
	}
	defer encoder.Close()

	frameSize := encoder.FrameSize()
	total := buf.Len()
	for offset := 0; offset < total; offset += frameSize {
		n := frameSize
		if offset+n > total {
			n = total - offset
		}
		if err := encoder.WriteSamples(buf, offset, n); err != nil {
			return nil, &EncodeError{Err: err}
		}
	}

	if err := encoder.Flush(); err != nil {
		return nil, &EncodeError{Err: err}
	}
	if err := encoder.Close(); err != nil {
		return nil, &EncodeError{Err: err}
	}

	data, err := os.ReadFile(outputPath)
	if err != nil {
		return nil, &EncodeError{Err: fmt.Errorf("failed to read encoded output: %w", err)}
	}
	return data, nil
}

// writeTemp stores data in a new temp file and returns its path
func (c FFmpegCodec) writeTemp(pattern string, data []byte) (string, error) {
	dir := c.TempDir
	if dir == "" {
		dir = os.TempDir()
	}
	f, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	path := f.Name()
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to close temp file: %w", err)
	}
	return filepath.Clean(path), nil
}

// decodeFile reads every frame of path through an fltp conversion graph
func decodeFile(ctx context.Context, path string) (*Buffer, error) {
	reader, metadata, err := OpenAudioFile(path)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	graph, err := newFilterGraph(reader.DecoderContext(), planarFloatFilter)
	if err != nil {
		return nil, fmt.Errorf("failed to create filter graph: %w", err)
	}
	defer graph.Close()

	buf := &Buffer{
		SampleRate: metadata.SampleRate,
		Channels:   make([][]float32, metadata.Channels),
	}
	appendFrame := func(frame *ffmpeg.AVFrame) { appendPlanarFrame(buf, frame) }

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		frame, err := reader.ReadFrame()
		if err != nil {
			return nil, fmt.Errorf("failed to read frame: %w", err)
		}
		if frame == nil {
			break
		}

		if err := graph.push(frame); err != nil {
			return nil, err
		}
		if err := graph.drain(appendFrame); err != nil {
			return nil, err
		}
	}

	if err := graph.push(nil); err != nil {
		return nil, err
	}
	if err := graph.drain(appendFrame); err != nil {
		return nil, err
	}

	if rate := graph.sampleRate(); rate > 0 {
		buf.SampleRate = rate
	}
	for i := range buf.Channels {
		if buf.Channels[i] == nil {
			buf.Channels[i] = []float32{}
		}
	}

	return buf, nil
}

// appendPlanarFrame copies one fltp frame onto the end of buf
func appendPlanarFrame(buf *Buffer, frame *ffmpeg.AVFrame) {
	n := frame.NbSamples()
	if n <= 0 {
		return
	}
	channels := frame.ChLayout().NbChannels()
	if channels > len(buf.Channels) {
		channels = len(buf.Channels)
	}
	for c := 0; c < channels; c++ {
		plane := unsafe.Slice((*float32)(frame.Data().Get(uintptr(c))), n)
		buf.Channels[c] = append(buf.Channels[c], plane...)
	}
}
