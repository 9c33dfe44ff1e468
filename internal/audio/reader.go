package audio

import (
	"errors"
	"fmt"

	ffmpeg "github.com/linuxmatters/ffmpeg-statigo"
)

// Reader wraps the ffmpeg demuxer and decoder for one audio stream
type Reader struct {
	fmtCtx    *ffmpeg.AVFormatContext
	decCtx    *ffmpeg.AVCodecContext
	streamIdx int
	frame     *ffmpeg.AVFrame
	packet    *ffmpeg.AVPacket
}

// Metadata describes the decoded stream
type Metadata struct {
	Duration   float64 // seconds, as reported by the container
	SampleRate int
	Channels   int
	SampleFmt  string
}

// OpenAudioFile opens the first audio stream of a file for decoding.
// Used by the ffmpeg decoder and for the stream details in trim reports.
func OpenAudioFile(filename string) (*Reader, *Metadata, error) {
	r := &Reader{streamIdx: -1}
	if err := r.open(filename); err != nil {
		r.Close()
		return nil, nil, err
	}

	metadata := &Metadata{
		Duration:   float64(r.fmtCtx.Duration()) / float64(ffmpeg.AVTimeBase),
		SampleRate: r.decCtx.SampleRate(),
		Channels:   r.decCtx.ChLayout().NbChannels(),
		SampleFmt:  ffmpeg.AVGetSampleFmtName(r.decCtx.SampleFmt()).String(),
	}

	r.frame = ffmpeg.AVFrameAlloc()
	r.packet = ffmpeg.AVPacketAlloc()
	return r, metadata, nil
}

// open fills in the demuxer and decoder; Close releases whatever was set up
func (r *Reader) open(filename string) error {
	filenameC := ffmpeg.ToCStr(filename)
	defer filenameC.Free()

	if _, err := ffmpeg.AVFormatOpenInput(&r.fmtCtx, filenameC, nil, nil); err != nil {
		return fmt.Errorf("failed to open input: %w", err)
	}
	if _, err := ffmpeg.AVFormatFindStreamInfo(r.fmtCtx, nil); err != nil {
		return fmt.Errorf("failed to find stream info: %w", err)
	}

	var codecPar *ffmpeg.AVCodecParameters
	streams := r.fmtCtx.Streams()
	for i := 0; i < int(r.fmtCtx.NbStreams()); i++ {
		par := streams.Get(uintptr(i)).Codecpar()
		if par.CodecType() == ffmpeg.AVMediaTypeAudio {
			r.streamIdx = i
			codecPar = par
			break
		}
	}
	if codecPar == nil {
		return ErrNoAudioStream
	}

	decoder := ffmpeg.AVCodecFindDecoder(codecPar.CodecId())
	if decoder == nil {
		return fmt.Errorf("decoder not found for codec ID %d", codecPar.CodecId())
	}

	if r.decCtx = ffmpeg.AVCodecAllocContext3(decoder); r.decCtx == nil {
		return errors.New("failed to allocate decoder context")
	}
	if _, err := ffmpeg.AVCodecParametersToContext(r.decCtx, codecPar); err != nil {
		return fmt.Errorf("failed to copy codec parameters: %w", err)
	}
	if _, err := ffmpeg.AVCodecOpen2(r.decCtx, decoder, nil); err != nil {
		return fmt.Errorf("failed to open decoder: %w", err)
	}
	return nil
}

// ReadFrame reads the next decoded audio frame.
// Returns nil when the end of the stream is reached.
func (r *Reader) ReadFrame() (*ffmpeg.AVFrame, error) {
	for {
		if _, err := ffmpeg.AVCodecReceiveFrame(r.decCtx, r.frame); err == nil {
			r.frame.SetPts(r.frame.BestEffortTimestamp())
			return r.frame, nil
		} else if !errors.Is(err, ffmpeg.EAgain) {
			if errors.Is(err, ffmpeg.AVErrorEOF) {
				return nil, nil
			}
			return nil, fmt.Errorf("failed to receive frame: %w", err)
		}

		if _, err := ffmpeg.AVReadFrame(r.fmtCtx, r.packet); err != nil {
			if errors.Is(err, ffmpeg.AVErrorEOF) {
				// Drain the decoder
				if _, err := ffmpeg.AVCodecSendPacket(r.decCtx, nil); err != nil {
					return nil, fmt.Errorf("failed to flush decoder: %w", err)
				}
				continue
			}
			return nil, fmt.Errorf("failed to read packet: %w", err)
		}

		if r.packet.StreamIndex() != r.streamIdx {
			ffmpeg.AVPacketUnref(r.packet)
			continue
		}

		if _, err := ffmpeg.AVCodecSendPacket(r.decCtx, r.packet); err != nil {
			ffmpeg.AVPacketUnref(r.packet)
			return nil, fmt.Errorf("failed to send packet: %w", err)
		}

		ffmpeg.AVPacketUnref(r.packet)
	}
}

// DecoderContext returns the decoder context used to configure the filter graph
func (r *Reader) DecoderContext() *ffmpeg.AVCodecContext {
	return r.decCtx
}

// Close releases all resources
func (r *Reader) Close() {
	if r.frame != nil {
		ffmpeg.AVFrameFree(&r.frame)
	}
	if r.packet != nil {
		ffmpeg.AVPacketFree(&r.packet)
	}
	if r.decCtx != nil {
		ffmpeg.AVCodecFreeContext(&r.decCtx)
	}
	if r.fmtCtx != nil {
		ffmpeg.AVFormatCloseInput(&r.fmtCtx)
	}
}
