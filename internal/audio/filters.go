package audio

import (
	"errors"
	"fmt"

	ffmpeg "github.com/linuxmatters/ffmpeg-statigo"
)

// planarFloatFilter converts any decoded sample format to planar float32
const planarFloatFilter = "aformat=sample_fmts=fltp"

// filterGraph is an abuffer -> spec -> abuffersink chain fed from one decoder
type filterGraph struct {
	graph *ffmpeg.AVFilterGraph
	src   *ffmpeg.AVFilterContext
	sink  *ffmpeg.AVFilterContext
	out   *ffmpeg.AVFrame
}

// newFilterGraph builds a graph whose source matches the decoder's output format
func newFilterGraph(decCtx *ffmpeg.AVCodecContext, spec string) (*filterGraph, error) {
	g := &filterGraph{graph: ffmpeg.AVFilterGraphAlloc()}
	if g.graph == nil {
		return nil, errors.New("failed to allocate filter graph")
	}

	srcArgs, err := bufferSourceArgs(decCtx)
	if err != nil {
		g.Close()
		return nil, err
	}
	if g.src, err = g.createFilter("abuffer", "in", srcArgs); err != nil {
		g.Close()
		return nil, err
	}
	if g.sink, err = g.createFilter("abuffersink", "out", ""); err != nil {
		g.Close()
		return nil, err
	}
	if err := g.link(spec); err != nil {
		g.Close()
		return nil, err
	}

	g.out = ffmpeg.AVFrameAlloc()
	return g, nil
}

// bufferSourceArgs describes the decoder output for abuffer
func bufferSourceArgs(decCtx *ffmpeg.AVCodecContext) (string, error) {
	layout := ffmpeg.AllocCStr(64)
	defer layout.Free()

	if _, err := ffmpeg.AVChannelLayoutDescribe(decCtx.ChLayout(), layout, 64); err != nil {
		return "", fmt.Errorf("failed to get channel layout: %w", err)
	}

	tb := decCtx.PktTimebase()
	return fmt.Sprintf("time_base=%d/%d:sample_rate=%d:sample_fmt=%s:channel_layout=%s",
		tb.Num(), tb.Den(),
		decCtx.SampleRate(),
		ffmpeg.AVGetSampleFmtName(decCtx.SampleFmt()).String(),
		layout.String(),
	), nil
}

// createFilter adds one named filter instance; empty args passes none
func (g *filterGraph) createFilter(filter, instance, args string) (*ffmpeg.AVFilterContext, error) {
	f := ffmpeg.AVFilterGetByName(ffmpeg.GlobalCStr(filter))
	if f == nil {
		return nil, fmt.Errorf("%s filter not found", filter)
	}

	var argsC *ffmpeg.CStr
	if args != "" {
		argsC = ffmpeg.ToCStr(args)
		defer argsC.Free()
	}

	var ctx *ffmpeg.AVFilterContext
	if _, err := ffmpeg.AVFilterGraphCreateFilter(&ctx, f, ffmpeg.GlobalCStr(instance), argsC, nil, g.graph); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", filter, err)
	}
	return ctx, nil
}

// link parses spec between the source and sink and configures the graph
func (g *filterGraph) link(spec string) error {
	outputs := ffmpeg.AVFilterInoutAlloc()
	inputs := ffmpeg.AVFilterInoutAlloc()
	defer ffmpeg.AVFilterInoutFree(&outputs)
	defer ffmpeg.AVFilterInoutFree(&inputs)

	outputs.SetName(ffmpeg.ToCStr("in"))
	outputs.SetFilterCtx(g.src)
	outputs.SetPadIdx(0)
	outputs.SetNext(nil)

	inputs.SetName(ffmpeg.ToCStr("out"))
	inputs.SetFilterCtx(g.sink)
	inputs.SetPadIdx(0)
	inputs.SetNext(nil)

	specC := ffmpeg.ToCStr(spec)
	defer specC.Free()

	if _, err := ffmpeg.AVFilterGraphParsePtr(g.graph, specC, &inputs, &outputs, nil); err != nil {
		return fmt.Errorf("failed to parse filter graph: %w", err)
	}
	if _, err := ffmpeg.AVFilterGraphConfig(g.graph, nil); err != nil {
		return fmt.Errorf("failed to configure filter graph: %w", err)
	}
	return nil
}

// push feeds one decoded frame into the graph; nil flushes it
func (g *filterGraph) push(frame *ffmpeg.AVFrame) error {
	if _, err := ffmpeg.AVBuffersrcAddFrameFlags(g.src, frame, 0); err != nil {
		if frame == nil {
			return fmt.Errorf("failed to flush filter: %w", err)
		}
		return fmt.Errorf("failed to add frame to filter: %w", err)
	}
	return nil
}

// drain hands every frame currently available at the sink to fn
func (g *filterGraph) drain(fn func(*ffmpeg.AVFrame)) error {
	for {
		if _, err := ffmpeg.AVBuffersinkGetFrame(g.sink, g.out); err != nil {
			if errors.Is(err, ffmpeg.EAgain) || errors.Is(err, ffmpeg.AVErrorEOF) {
				return nil
			}
			return fmt.Errorf("failed to get filtered frame: %w", err)
		}
		fn(g.out)
		ffmpeg.AVFrameUnref(g.out)
	}
}

// sampleRate reports the sink's output rate, or 0 when unknown
func (g *filterGraph) sampleRate() int {
	rate, err := ffmpeg.AVBuffersinkGetSampleRate(g.sink)
	if err != nil {
		return 0
	}
	return rate
}

// Close frees the graph and its filters
func (g *filterGraph) Close() {
	if g.out != nil {
		ffmpeg.AVFrameFree(&g.out)
	}
	if g.graph != nil {
		ffmpeg.AVFilterGraphFree(&g.graph)
	}
}
