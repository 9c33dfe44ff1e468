package ui

import (
	"fmt"
	"math"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/linuxmatters/jivetrim/internal/logging"
	"github.com/linuxmatters/jivetrim/internal/processor"
)

// Tuner step sizes and limits
const (
	thresholdStepDB = 1.0
	durationStep    = 0.1 // seconds, margin and minimum silence

	minThresholdDB = -100.0
	maxThresholdDB = 0.0
	maxMargin      = 10.0
	maxMinSilence  = 60.0

	defaultStripWidth = 60
)

// TunerModel lets the user adjust trim settings against an analysed recording.
// The waveform is never modified; every change re-derives Segments from it.
type TunerModel struct {
	FileName string
	Config   processor.TrimConfig

	AutoThresholdDB float64
	Segments        []processor.Segment
	Stats           processor.TrimStats

	// Accepted is set by enter, Aborted by q, esc or ctrl+c
	Accepted bool
	Aborted  bool

	Width int

	waveform *processor.WaveformData
}

// NewTunerModel creates a tuner starting from cfg
func NewTunerModel(fileName string, w *processor.WaveformData, cfg processor.TrimConfig) TunerModel {
	m := TunerModel{
		FileName:        fileName,
		Config:          cfg,
		AutoThresholdDB: processor.CalculateAutoThreshold(w),
		waveform:        w,
	}
	m.recalculate()
	return m
}

// Init initializes the model
func (m TunerModel) Init() tea.Cmd {
	return nil
}

// Update handles key presses
func (m TunerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			m.Aborted = true
			return m, tea.Quit
		case "enter":
			m.Accepted = true
			return m, tea.Quit
		case "left", "h":
			m.Config.ThresholdDB = clampStep(m.Config.ThresholdDB, -thresholdStepDB, minThresholdDB, maxThresholdDB)
		case "right", "l":
			m.Config.ThresholdDB = clampStep(m.Config.ThresholdDB, thresholdStepDB, minThresholdDB, maxThresholdDB)
		case "up", "k":
			m.Config.SilenceMargin = clampStep(m.Config.SilenceMargin, durationStep, 0, maxMargin)
		case "down", "j":
			m.Config.SilenceMargin = clampStep(m.Config.SilenceMargin, -durationStep, 0, maxMargin)
		case "]":
			m.Config.MinSilenceDuration = clampStep(m.Config.MinSilenceDuration, durationStep, 0, maxMinSilence)
		case "[":
			m.Config.MinSilenceDuration = clampStep(m.Config.MinSilenceDuration, -durationStep, 0, maxMinSilence)
		case "a":
			m.Config.ThresholdDB = m.AutoThresholdDB
		default:
			return m, nil
		}
		m.recalculate()
	}

	return m, nil
}

// recalculate re-derives the trim ranges and statistics from the original waveform
func (m *TunerModel) recalculate() {
	m.Segments = processor.CalculateTrimRanges(m.waveform, m.Config)
	m.Stats = processor.CalculateTrimStats(m.Segments, m.waveform.Duration())
}

// clampStep adds step to v, rounds to one decimal place and clamps to [lo, hi]
func clampStep(v, step, lo, hi float64) float64 {
	v = math.Round((v+step)*10) / 10
	return min(max(v, lo), hi)
}

// View renders the tuner
func (m TunerModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Jivetrim ✂️"))
	b.WriteString(" ")
	b.WriteString(subtitleStyle.Render("Tuning " + m.FileName))
	b.WriteString("\n\n")

	width := defaultStripWidth
	if m.Width > 4 {
		width = min(m.Width-4, 120)
	}
	b.WriteString(renderSegmentStrip(m.Segments, width))
	b.WriteString("\n\n")

	stats := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(brandColor).
		Padding(0, 1).
		Width(boxWidth)

	var content strings.Builder
	fmt.Fprintf(&content, "Threshold:   %6.1f dB  (auto %.1f dB)\n", m.Config.ThresholdDB, m.AutoThresholdDB)
	fmt.Fprintf(&content, "Margin:      %6.1f s\n", m.Config.SilenceMargin)
	fmt.Fprintf(&content, "Min silence: %6.1f s\n", m.Config.MinSilenceDuration)
	fmt.Fprintf(&content, "Levels:      %.1f to %.1f dB\n", m.waveform.MinDB(), m.waveform.MaxDB())
	fmt.Fprintf(&content, "Remove:      %s in %d run(s) (%.1f%%)\n",
		logging.FormatTimestamp(m.Stats.RemovedDuration), m.Stats.RemovedSegments, m.Stats.RemovedPercentage)
	fmt.Fprintf(&content, "Result:      %s → %s",
		logging.FormatTimestamp(m.waveform.Duration()), logging.FormatTimestamp(m.Stats.TrimmedDuration))
	b.WriteString(stats.Render(content.String()))
	b.WriteString("\n\n")

	b.WriteString(subtitleStyle.Render("←/→ threshold · ↑/↓ margin · [/] min silence · a auto · enter trim · q quit"))
	b.WriteString("\n")

	return b.String()
}

// stripCells maps segments onto width columns; a column is silence when most
// of the segments it covers are silence
func stripCells(segments []processor.Segment, width int) []bool {
	if len(segments) == 0 || width <= 0 {
		return nil
	}
	width = min(width, len(segments))

	cells := make([]bool, width)
	for col := range cells {
		lo := col * len(segments) / width
		hi := (col + 1) * len(segments) / width
		silent := 0
		for _, s := range segments[lo:hi] {
			if s.IsSilence {
				silent++
			}
		}
		cells[col] = silent*2 > hi-lo
	}
	return cells
}

// renderSegmentStrip draws kept audio in green and removed silence in red
func renderSegmentStrip(segments []processor.Segment, width int) string {
	keep := lipgloss.NewStyle().Foreground(successColor)
	cut := lipgloss.NewStyle().Foreground(brandColor)

	var b strings.Builder
	for _, silent := range stripCells(segments, width) {
		if silent {
			b.WriteString(cut.Render("░"))
		} else {
			b.WriteString(keep.Render("█"))
		}
	}
	return b.String()
}
