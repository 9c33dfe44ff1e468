package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/alecthomas/kong"
	tea "github.com/charmbracelet/bubbletea"
	ffmpeg "github.com/linuxmatters/ffmpeg-statigo"
	"github.com/linuxmatters/jivetrim/internal/audio"
	"github.com/linuxmatters/jivetrim/internal/cli"
	"github.com/linuxmatters/jivetrim/internal/config"
	"github.com/linuxmatters/jivetrim/internal/logging"
	"github.com/linuxmatters/jivetrim/internal/processor"
	"github.com/linuxmatters/jivetrim/internal/ui"
)

var (
	version = "0.0.1"
)

const debugLogName = "jivetrim-debug.log"

// CLI defines the command-line interface
type CLI struct {
	Version    bool     `short:"v" help:"Show version information"`
	Config     string   `short:"c" type:"path" help:"Path to TOML config file (optional)"`
	Threshold  *float64 `short:"t" help:"Silence threshold in dB, e.g. -40"`
	Auto       bool     `short:"a" help:"Derive the threshold from each recording"`
	MinSilence *float64 `name:"min-silence" help:"Shortest pause to remove, in seconds"`
	Margin     *float64 `help:"Audio kept either side of speech, in seconds"`
	Resolution *int     `help:"Analysis window in milliseconds"`
	Format     *string  `short:"f" help:"Output format: wav, mp3 or flac"`
	Bitrate    *int     `help:"MP3 bitrate in kbps"`
	Tune       bool     `help:"Tune the settings interactively before trimming (single file)"`
	Analyze    bool     `help:"Print levels and a trim preview without writing audio"`
	Logs       bool     `help:"Save a detailed trim report next to each input"`
	Files      []string `arg:"" name:"files" help:"Audio files to trim" type:"existingfile" optional:""`
}

// overrides converts the flags that were set into config overrides.
// An explicit --threshold without --auto switches auto threshold off.
func (c *CLI) overrides() config.Overrides {
	o := config.Overrides{
		ThresholdDB:        c.Threshold,
		MinSilenceDuration: c.MinSilence,
		SilenceMargin:      c.Margin,
		ResolutionMs:       c.Resolution,
		Format:             c.Format,
		BitrateKbps:        c.Bitrate,
	}
	switch {
	case c.Auto:
		auto := true
		o.AutoThreshold = &auto
	case c.Threshold != nil:
		auto := false
		o.AutoThreshold = &auto
	}
	return o
}

var helpExtras = cli.HelpExtras{
	Examples: []string{
		"jivetrim episode.flac",
		"jivetrim --auto --format mp3 *.wav",
		"jivetrim --tune --threshold -45 interview.wav",
		"jivetrim --analyze --margin 0.3 episode.wav",
	},
	Environment: []string{
		config.EnvPrefix + "THRESHOLD_DB",
		config.EnvPrefix + "AUTO_THRESHOLD",
		config.EnvPrefix + "MIN_SILENCE",
		config.EnvPrefix + "MARGIN",
		config.EnvPrefix + "RESOLUTION_MS",
		config.EnvPrefix + "FORMAT",
		config.EnvPrefix + "BITRATE_KBPS",
		config.EnvPrefix + "OUTPUT_SUFFIX",
		config.EnvPrefix + "TEMP_DIR",
		config.EnvPrefix + "LOG_FORMAT",
		config.EnvPrefix + "LOG_LEVEL",
	},
}

func main() {
	// Suppress FFmpeg info/verbose logging to keep console clean
	ffmpeg.AVLogSetLevel(ffmpeg.AVLogError)

	cliArgs := &CLI{}
	kctx := kong.Parse(cliArgs,
		kong.Name("jivetrim"),
		kong.Description("Silence trimmer for podcast recordings"),
		kong.UsageOnError(),
		kong.Vars{
			"version": version,
		},
		kong.Help(cli.StyledHelpPrinter(kong.HelpOptions{Compact: true}, helpExtras)),
	)

	if cliArgs.Version {
		cli.PrintVersion(version)
		os.Exit(0)
	}

	if len(cliArgs.Files) == 0 {
		cli.PrintError("No input files specified")
		_ = kctx.PrintUsage(false)
		os.Exit(1)
	}

	if err := run(cliArgs); err != nil {
		cli.PrintError(err.Error())
		os.Exit(1)
	}
}

func run(cliArgs *CLI) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg, err := config.Load(ctx, cliArgs.Config)
	if err != nil {
		return err
	}
	cfg.Apply(cliArgs.overrides())
	if err := cfg.Validate(); err != nil {
		return err
	}

	// stdout belongs to the TUI, so structured logs go to a file
	var logOut io.Writer = io.Discard
	if debugLog, err := os.Create(debugLogName); err == nil {
		defer debugLog.Close()
		logOut = debugLog
	}
	logger := cfg.NewLogger(logOut)
	logger.Info("starting", "version", version, "files", len(cliArgs.Files), "config", cfg.String())

	trimmer, err := newTrimmer(cfg, logger)
	if err != nil {
		return err
	}

	switch {
	case cliArgs.Analyze:
		return runAnalyze(ctx, trimmer, cfg, cliArgs.Files)
	case cliArgs.Tune:
		if len(cliArgs.Files) != 1 {
			return errors.New("--tune works on exactly one file")
		}
		return runTune(ctx, trimmer, cfg, cliArgs.Files[0], cliArgs.Logs, logger)
	default:
		return runBatch(ctx, stop, trimmer, cfg, cliArgs.Files, cliArgs.Logs, logger)
	}
}

// newTrimmer wires WAV input through the pure Go codec and everything else through ffmpeg
func newTrimmer(cfg *config.Config, logger *slog.Logger) (*processor.Trimmer, error) {
	enc, err := audio.CodecFor(cfg.Format)
	if err != nil {
		return nil, err
	}
	if ff, ok := enc.(audio.FFmpegCodec); ok {
		ff.TempDir = cfg.TempDir
		enc = ff
	}
	dec := audio.SniffingDecoder{Fallback: audio.FFmpegCodec{TempDir: cfg.TempDir}}
	return processor.NewTrimmer(dec, enc, logger), nil
}

// runAnalyze prints pass 1 results for every file without writing audio
func runAnalyze(ctx context.Context, trimmer *processor.Trimmer, cfg *config.Config, files []string) error {
	failed := 0
	for _, inputPath := range files {
		raw, err := os.ReadFile(inputPath)
		if err == nil {
			var w *processor.WaveformData
			w, err = trimmer.Analyze(ctx, raw, cfg.ResolutionMs, nil)
			if err == nil {
				logging.DisplayAnalysisResults(os.Stdout, inputPath, w, cfg.TrimConfig(), cfg.AutoThreshold)
				continue
			}
		}
		cli.PrintError(fmt.Sprintf("%s: %v", filepath.Base(inputPath), err))
		failed++
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d file(s) could not be analysed", failed, len(files))
	}
	return nil
}

// runTune analyses one file, lets the user adjust the settings, then trims with them
func runTune(ctx context.Context, trimmer *processor.Trimmer, cfg *config.Config, inputPath string, logs bool, logger *slog.Logger) error {
	start := time.Now()

	raw, err := os.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("failed to read input file: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Analyzing %s...\n", filepath.Base(inputPath))
	w, err := trimmer.Analyze(ctx, raw, cfg.ResolutionMs, nil)
	if err != nil {
		return fmt.Errorf("Pass 1 failed: %w", err)
	}
	pass1Time := time.Since(start)

	opts := cfg.Options()
	initial := opts.Trim
	if opts.AutoThreshold {
		initial.ThresholdDB = processor.CalculateAutoThreshold(w)
	}

	final, err := tea.NewProgram(ui.NewTunerModel(filepath.Base(inputPath), w, initial), tea.WithAltScreen()).Run()
	if err != nil {
		return fmt.Errorf("UI error: %w", err)
	}
	tuned := final.(ui.TunerModel)
	if !tuned.Accepted {
		fmt.Fprintln(os.Stderr, "Cancelled, nothing written.")
		return nil
	}
	logger.Info("tuned settings accepted",
		"threshold_db", tuned.Config.ThresholdDB,
		"min_silence", tuned.Config.MinSilenceDuration,
		"margin", tuned.Config.SilenceMargin,
	)

	pass2Start := time.Now()
	opts.Trim = tuned.Config
	opts.AutoThreshold = false
	result, err := trimmer.RenderFile(ctx, inputPath, raw, w, tuned.Config.ThresholdDB, tuned.Segments, opts, nil)
	if err != nil {
		return err
	}

	r := result.Result
	fmt.Printf("%s → %s\n", filepath.Base(inputPath), filepath.Base(result.OutputPath))
	fmt.Printf("Removed %.1fs (%.1f%%) in %d run(s): %s → %s\n",
		r.RemovedDuration, r.RemovedPercentage, r.RemovedSegments,
		logging.FormatTimestamp(r.OriginalDuration), logging.FormatTimestamp(r.TrimmedDuration))

	if logs {
		err := writeReport(logging.ReportData{
			InputPath:  inputPath,
			OutputPath: result.OutputPath,
			StartTime:  start,
			EndTime:    time.Now(),
			Pass1Time:  pass1Time,
			Pass2Time:  time.Since(pass2Start),
			Result:     result,
			Config:     tuned.Config,
		})
		if err != nil {
			cli.PrintWarning(fmt.Sprintf("report not written: %v", err))
		}
	}
	return nil
}

// runBatch trims every file in the background while the TUI shows progress
func runBatch(ctx context.Context, cancel context.CancelFunc, trimmer *processor.Trimmer, cfg *config.Config, files []string, logs bool, logger *slog.Logger) error {
	model := ui.NewModel(files, logger)
	p := tea.NewProgram(model, tea.WithAltScreen())

	go func() {
		opts := cfg.Options()
		for i, inputPath := range files {
			if ctx.Err() != nil {
				break
			}
			fileStartTime := time.Now()

			logger.Debug("sending FileStartMsg", "index", i, "file", inputPath)
			p.Send(ui.FileStartMsg{
				FileIndex: i,
				FileName:  inputPath,
			})

			ph := &progressHandler{p: p, logger: logger}
			result, err := trimmer.ProcessFile(ctx, inputPath, opts, ph.callback)
			if err != nil {
				logger.Error("trim failed", "file", inputPath, "error", err)
				p.Send(ui.FileCompleteMsg{
					FileIndex: i,
					Error:     err,
				})
				continue
			}

			if logs {
				err := writeReport(logging.ReportData{
					InputPath:  inputPath,
					OutputPath: result.OutputPath,
					StartTime:  fileStartTime,
					EndTime:    time.Now(),
					Pass1Time:  ph.pass1Time,
					Pass2Time:  ph.pass2Time,
					Result:     result,
					Config:     opts.Trim,
					AutoUsed:   opts.AutoThreshold,
				})
				if err != nil {
					logger.Warn("failed to generate report", "file", inputPath, "error", err)
				}
			}

			tips := logging.GenerateTrimTips(result)
			messages := make([]string, len(tips))
			for j, tip := range tips {
				messages[j] = tip.Message
			}

			r := result.Result
			p.Send(ui.FileCompleteMsg{
				FileIndex:         i,
				ThresholdDB:       result.ThresholdDB,
				OriginalDuration:  r.OriginalDuration,
				TrimmedDuration:   r.TrimmedDuration,
				RemovedPercentage: r.RemovedPercentage,
				RemovedSegments:   r.RemovedSegments,
				OutputPath:        result.OutputPath,
				Tips:              messages,
			})
		}

		logger.Debug("sending AllCompleteMsg")
		p.Send(ui.AllCompleteMsg{})
	}()

	final, err := p.Run()
	// Quitting the TUI early stops the remaining files
	cancel()
	if err != nil {
		return fmt.Errorf("UI error: %w", err)
	}
	if m, ok := final.(ui.Model); ok && m.FailedFiles > 0 {
		return fmt.Errorf("%d of %d file(s) failed", m.FailedFiles, m.TotalFiles)
	}
	return nil
}

// writeReport fills in stream metadata and writes the --logs report
func writeReport(data logging.ReportData) error {
	reader, metadata, err := audio.OpenAudioFile(data.InputPath)
	if err == nil {
		data.SampleRate = metadata.SampleRate
		data.Channels = metadata.Channels
		data.DurationSecs = metadata.Duration
		reader.Close()
	} else if data.Result != nil && data.Result.Result != nil {
		data.DurationSecs = data.Result.Result.OriginalDuration
	}

	return logging.GenerateReport(data)
}

// progressHandler forwards trimmer progress to the TUI and times each pass
type progressHandler struct {
	p          *tea.Program
	logger     *slog.Logger
	pass1Start time.Time
	pass1Time  time.Duration
	pass2Start time.Time
	pass2Time  time.Duration
}

func (ph *progressHandler) callback(pass int, passName string, progress float64, level float64) {
	switch {
	case pass == 1 && progress == 0.0:
		ph.pass1Start = time.Now()
	case pass == 2 && progress == 0.0:
		ph.pass1Time = time.Since(ph.pass1Start)
		ph.pass2Start = time.Now()
	case pass == 2 && progress == 1.0:
		ph.pass2Time = time.Since(ph.pass2Start)
		ph.logger.Debug("pass timings", "pass1", ph.pass1Time, "pass2", ph.pass2Time)
	}

	ph.p.Send(ui.ProgressMsg{
		Pass:     pass,
		PassName: passName,
		Progress: progress,
		Level:    level,
	})
}
