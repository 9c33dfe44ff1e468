// Package ui provides the Bubbletea terminal user interface for jivetrim
package ui

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// FileStatus represents the processing state of a single file
type FileStatus int

const (
	StatusQueued FileStatus = iota
	StatusAnalyzing
	StatusTrimming
	StatusComplete
	StatusError
)

// floorDB is the initial peak and the lowest level the meter shows
const floorDB = -60.0

// FileProgress tracks progress for a single audio file
type FileProgress struct {
	InputPath  string
	OutputPath string
	Status     FileStatus

	// Phase tracking
	CurrentPass int // 1 or 2
	PassName    string

	Progress    float64 // 0.0 to 1.0
	StartTime   time.Time
	ElapsedTime time.Duration

	// Window levels seen during analysis
	CurrentLevel float64
	PeakLevel    float64

	// Completion results
	ThresholdDB       float64
	OriginalDuration  float64
	TrimmedDuration   float64
	RemovedPercentage float64
	RemovedSegments   int
	Tips              []string

	Error error
}

// Model is the Bubbletea model for the batch trimming UI
type Model struct {
	// File queue
	Files          []FileProgress
	CurrentIndex   int
	TotalFiles     int
	CompletedFiles int
	FailedFiles    int

	// Global state
	StartTime time.Time
	Done      bool

	// Terminal dimensions
	Width  int
	Height int

	logger *slog.Logger
}

// NewModel creates a new UI model with the given input files. A nil logger
// discards debug output; stdout belongs to the TUI.
func NewModel(inputFiles []string, logger *slog.Logger) Model {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	files := make([]FileProgress, len(inputFiles))
	for i, path := range inputFiles {
		files[i] = FileProgress{
			InputPath: path,
			Status:    StatusQueued,
			PeakLevel: floorDB,
		}
	}

	return Model{
		Files:        files,
		CurrentIndex: -1, // No file processing yet
		TotalFiles:   len(inputFiles),
		StartTime:    time.Now(),
		logger:       logger,
	}
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height

	case ProgressMsg:
		if m.validIndex(m.CurrentIndex) {
			m.Files[m.CurrentIndex] = updateFileProgress(m.Files[m.CurrentIndex], msg)
		}

	case FileStartMsg:
		m.logger.Debug("file started", "index", msg.FileIndex, "file", msg.FileName)
		if !m.validIndex(msg.FileIndex) {
			return m, nil
		}
		m.CurrentIndex = msg.FileIndex
		m.Files[m.CurrentIndex].Status = StatusAnalyzing
		m.Files[m.CurrentIndex].StartTime = time.Now()

	case FileCompleteMsg:
		m.logger.Debug("file complete", "index", msg.FileIndex, "error", msg.Error)
		if !m.validIndex(msg.FileIndex) {
			return m, nil
		}
		fp := &m.Files[msg.FileIndex]
		fp.Error = msg.Error
		if msg.Error != nil {
			fp.Status = StatusError
			m.FailedFiles++
			return m, nil
		}
		fp.Status = StatusComplete
		fp.Progress = 1.0
		fp.OutputPath = msg.OutputPath
		fp.ThresholdDB = msg.ThresholdDB
		fp.OriginalDuration = msg.OriginalDuration
		fp.TrimmedDuration = msg.TrimmedDuration
		fp.RemovedPercentage = msg.RemovedPercentage
		fp.RemovedSegments = msg.RemovedSegments
		fp.Tips = msg.Tips
		m.CompletedFiles++

	case AllCompleteMsg:
		m.logger.Debug("all files complete", "completed", m.CompletedFiles, "failed", m.FailedFiles)
		m.Done = true
		return m, tea.Quit
	}

	return m, nil
}

// View renders the UI
func (m Model) View() string {
	if m.Width == 0 {
		return fmt.Sprintf("Initializing...\nFiles: %d\n", len(m.Files))
	}

	if m.Done {
		return renderCompletionSummary(m)
	}

	return renderProcessingView(m)
}

func (m Model) validIndex(i int) bool {
	return i >= 0 && i < len(m.Files)
}

// updateFileProgress updates a FileProgress based on a ProgressMsg
func updateFileProgress(fp FileProgress, msg ProgressMsg) FileProgress {
	// Reset the start time when transitioning to a new pass
	if msg.Pass != fp.CurrentPass {
		fp.StartTime = time.Now()
	}

	fp.Progress = msg.Progress
	fp.CurrentPass = msg.Pass
	fp.PassName = msg.PassName
	fp.ElapsedTime = time.Since(fp.StartTime)

	// Digital silence reports -Inf; the meter bottoms out at floorDB
	if msg.Level != 0 && !math.IsInf(msg.Level, 0) && !math.IsNaN(msg.Level) {
		fp.CurrentLevel = msg.Level
		fp.PeakLevel = max(fp.PeakLevel, msg.Level)
	}

	switch msg.Pass {
	case 1:
		fp.Status = StatusAnalyzing
	case 2:
		fp.Status = StatusTrimming
	}

	return fp
}
