package audio

import (
	"errors"
	"fmt"
	"strings"
	"unsafe"

	ffmpeg "github.com/linuxmatters/ffmpeg-statigo"
)

// flacFrameSize is the fixed FLAC block size; other codecs report their own
const flacFrameSize = 4096

// Encoder wraps an ffmpeg encoder and muxer writing to a file
type Encoder struct {
	fmtCtx    *ffmpeg.AVFormatContext
	encCtx    *ffmpeg.AVCodecContext
	stream    *ffmpeg.AVStream
	packet    *ffmpeg.AVPacket
	frame     *ffmpeg.AVFrame
	streamIdx int
	pts       int64
}

// createOutputEncoder creates an MP3 or FLAC encoder writing to outputPath.
// The container is guessed from the output extension.
func createOutputEncoder(outputPath string, opts EncodeOptions) (*Encoder, error) {
	var codecID ffmpeg.AVCodecID
	var sampleFmt ffmpeg.AVSampleFormat
	switch strings.ToLower(opts.Format) {
	case "mp3":
		codecID = ffmpeg.AVCodecIdMp3
		sampleFmt = ffmpeg.AVSampleFmtFltp
	case "flac":
		codecID = ffmpeg.AVCodecIdFlac
		sampleFmt = ffmpeg.AVSampleFmtS16
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, opts.Format)
	}

	outputPathC := ffmpeg.ToCStr(outputPath)
	defer outputPathC.Free()

	var fmtCtx *ffmpeg.AVFormatContext
	if _, err := ffmpeg.AVFormatAllocOutputContext2(&fmtCtx, nil, nil, outputPathC); err != nil {
		return nil, fmt.Errorf("failed to allocate output context: %w", err)
	}

	codec := ffmpeg.AVCodecFindEncoder(codecID)
	if codec == nil {
		ffmpeg.AVFormatFreeContext(fmtCtx)
		return nil, fmt.Errorf("%s encoder not found", opts.Format)
	}

	stream := ffmpeg.AVFormatNewStream(fmtCtx, nil)
	if stream == nil {
		ffmpeg.AVFormatFreeContext(fmtCtx)
		return nil, errors.New("failed to create output stream")
	}

	encCtx := ffmpeg.AVCodecAllocContext3(codec)
	if encCtx == nil {
		ffmpeg.AVFormatFreeContext(fmtCtx)
		return nil, errors.New("failed to allocate encoder context")
	}

	encCtx.SetSampleFmt(sampleFmt)
	encCtx.SetSampleRate(opts.SampleRate)
	ffmpeg.AVChannelLayoutDefault(encCtx.ChLayout(), opts.Channels)

	if codecID == ffmpeg.AVCodecIdMp3 && opts.BitrateKbps > 0 {
		encCtx.SetBitRate(int64(opts.BitrateKbps) * 1000)
	}
	if codecID == ffmpeg.AVCodecIdFlac {
		ffmpeg.AVOptSetInt(encCtx.RawPtr(), ffmpeg.GlobalCStr("compression_level"), 5, 0)
		encCtx.SetFrameSize(flacFrameSize)
	}

	if fmtCtx.Oformat().Flags()&ffmpeg.AVFmtGlobalheader != 0 {
		encCtx.SetFlags(encCtx.Flags() | ffmpeg.AVCodecFlagGlobalHeader)
	}

	// Time base defaults to 1/sample_rate when opened, so frame PTS counts samples
	if _, err := ffmpeg.AVCodecOpen2(encCtx, codec, nil); err != nil {
		ffmpeg.AVCodecFreeContext(&encCtx)
		ffmpeg.AVFormatFreeContext(fmtCtx)
		return nil, fmt.Errorf("failed to open %s encoder for %d channel(s) at %d Hz: %w",
			opts.Format, opts.Channels, opts.SampleRate, err)
	}

	if _, err := ffmpeg.AVCodecParametersFromContext(stream.Codecpar(), encCtx); err != nil {
		ffmpeg.AVCodecFreeContext(&encCtx)
		ffmpeg.AVFormatFreeContext(fmtCtx)
		return nil, fmt.Errorf("failed to copy encoder parameters: %w", err)
	}

	stream.SetTimeBase(encCtx.TimeBase())

	if fmtCtx.Oformat().Flags()&ffmpeg.AVFmtNofile == 0 {
		var pb *ffmpeg.AVIOContext
		if _, err := ffmpeg.AVIOOpen(&pb, outputPathC, ffmpeg.AVIOFlagWrite); err != nil {
			ffmpeg.AVCodecFreeContext(&encCtx)
			ffmpeg.AVFormatFreeContext(fmtCtx)
			return nil, fmt.Errorf("failed to open output file: %w", err)
		}
		fmtCtx.SetPb(pb)
	}

	if _, err := ffmpeg.AVFormatWriteHeader(fmtCtx, nil); err != nil {
		if fmtCtx.Pb() != nil {
			ffmpeg.AVIOClose(fmtCtx.Pb())
		}
		ffmpeg.AVCodecFreeContext(&encCtx)
		ffmpeg.AVFormatFreeContext(fmtCtx)
		return nil, fmt.Errorf("failed to write header: %w", err)
	}

	return &Encoder{
		fmtCtx:    fmtCtx,
		encCtx:    encCtx,
		stream:    stream,
		packet:    ffmpeg.AVPacketAlloc(),
		frame:     ffmpeg.AVFrameAlloc(),
		streamIdx: 0,
	}, nil
}

// FrameSize returns the number of samples per channel the encoder expects per frame
func (e *Encoder) FrameSize() int {
	if n := e.encCtx.FrameSize(); n > 0 {
		return n
	}
	return flacFrameSize
}

// WriteSamples encodes samples [offset, offset+n) of the first channels of buf as one frame
func (e *Encoder) WriteSamples(buf *Buffer, offset, n int) error {
	if e.frame.NbSamples() != n {
		ffmpeg.AVFrameUnref(e.frame)
		e.frame.SetNbSamples(n)
		e.frame.SetFormat(int(e.encCtx.SampleFmt()))
		e.frame.SetSampleRate(e.encCtx.SampleRate())
		ffmpeg.AVChannelLayoutDefault(e.frame.ChLayout(), e.encCtx.ChLayout().NbChannels())
		if _, err := ffmpeg.AVFrameGetBuffer(e.frame, 0); err != nil {
			return fmt.Errorf("failed to allocate frame buffer: %w", err)
		}
	} else if _, err := ffmpeg.AVFrameMakeWritable(e.frame); err != nil {
		return fmt.Errorf("failed to make frame writable: %w", err)
	}

	channels := e.encCtx.ChLayout().NbChannels()
	switch ffmpeg.AVSampleFormat(e.frame.Format()) {
	case ffmpeg.AVSampleFmtFltp:
		for c := 0; c < channels; c++ {
			plane := unsafe.Slice((*float32)(e.frame.Data().Get(uintptr(c))), n)
			copy(plane, buf.Channels[c][offset:offset+n])
		}
	case ffmpeg.AVSampleFmtS16:
		packed := unsafe.Slice((*int16)(e.frame.Data().Get(0)), n*channels)
		for i := 0; i < n; i++ {
			for c := 0; c < channels; c++ {
				packed[i*channels+c] = floatToS16(buf.Channels[c][offset+i])
			}
		}
	default:
		return fmt.Errorf("unsupported encoder sample format %d", e.frame.Format())
	}

	e.frame.SetPts(e.pts)
	e.pts += int64(n)

	if _, err := ffmpeg.AVCodecSendFrame(e.encCtx, e.frame); err != nil {
		return fmt.Errorf("failed to send frame to encoder: %w", err)
	}

	return e.receivePackets()
}

// Flush drains any samples buffered inside the encoder
func (e *Encoder) Flush() error {
	if _, err := ffmpeg.AVCodecSendFrame(e.encCtx, nil); err != nil {
		return fmt.Errorf("failed to flush encoder: %w", err)
	}

	return e.receivePackets()
}

// receivePackets receives and writes packets from the encoder
func (e *Encoder) receivePackets() error {
	for {
		ffmpeg.AVPacketUnref(e.packet)

		if _, err := ffmpeg.AVCodecReceivePacket(e.encCtx, e.packet); err != nil {
			if errors.Is(err, ffmpeg.EAgain) || errors.Is(err, ffmpeg.AVErrorEOF) {
				break
			}
			return fmt.Errorf("failed to receive packet: %w", err)
		}

		e.packet.SetStreamIndex(e.streamIdx)
		ffmpeg.AVPacketRescaleTs(e.packet, e.encCtx.TimeBase(), e.stream.TimeBase())

		if _, err := ffmpeg.AVInterleavedWriteFrame(e.fmtCtx, e.packet); err != nil {
			return fmt.Errorf("failed to write packet: %w", err)
		}
	}

	return nil
}

// Close writes the trailer and releases the encoder.
// Safe to call multiple times - subsequent calls are no-ops.
func (e *Encoder) Close() error {
	if e.fmtCtx == nil {
		return nil
	}

	var trailerErr error
	if _, err := ffmpeg.AVWriteTrailer(e.fmtCtx); err != nil {
		trailerErr = fmt.Errorf("failed to write trailer: %w", err)
	}

	ffmpeg.AVFrameFree(&e.frame)
	ffmpeg.AVPacketFree(&e.packet)
	ffmpeg.AVCodecFreeContext(&e.encCtx)

	if e.fmtCtx.Oformat().Flags()&ffmpeg.AVFmtNofile == 0 && e.fmtCtx.Pb() != nil {
		if _, err := ffmpeg.AVIOClose(e.fmtCtx.Pb()); err != nil && trailerErr == nil {
			trailerErr = fmt.Errorf("failed to close output file: %w", err)
		}
		e.fmtCtx.SetPb(nil)
	}

	ffmpeg.AVFormatFreeContext(e.fmtCtx)
	e.fmtCtx = nil

	return trailerErr
}

// floatToS16 clamps and converts a float sample to signed 16-bit
func floatToS16(s float32) int16 {
	if s > 1.0 {
		s = 1.0
	} else if s < -1.0 {
		s = -1.0
	}
	return int16(s * 32767)
}
