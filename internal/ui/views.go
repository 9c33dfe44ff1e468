package ui

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/linuxmatters/jivetrim/internal/logging"
)

// Palette shared by the batch and tuner views
var (
	brandColor   = lipgloss.Color("#A40000")
	activeColor  = lipgloss.Color("#FFA500")
	successColor = lipgloss.Color("#00AA00")
	mutedColor   = lipgloss.Color("#888888")

	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(brandColor)
	subtitleStyle = lipgloss.NewStyle().Foreground(mutedColor).Italic(true)
	tipStyle      = lipgloss.NewStyle().Foreground(activeColor)
)

const boxWidth = 60

// renderProcessingView renders the main processing view
func renderProcessingView(m Model) string {
	var b strings.Builder

	b.WriteString(renderHeader(m))
	b.WriteString("\n\n")

	b.WriteString(renderFileQueue(m))
	b.WriteString("\n\n")

	b.WriteString(renderOverallProgress(m))

	return b.String()
}

// renderHeader renders the application header
func renderHeader(m Model) string {
	title := titleStyle.Render("Jivetrim ✂️ - Podcast Silence Trimmer")
	subtitle := subtitleStyle.Render(fmt.Sprintf("Trimming %d file(s)", m.TotalFiles))
	return title + "\n" + subtitle
}

// renderFileQueue renders the list of files with their status
func renderFileQueue(m Model) string {
	var b strings.Builder

	for _, file := range m.Files {
		b.WriteString(renderFileEntry(file))
		b.WriteString("\n")
	}

	return b.String()
}

// renderFileEntry renders a single file entry in the queue
func renderFileEntry(file FileProgress) string {
	fileName := filepath.Base(file.InputPath)

	switch file.Status {
	case StatusComplete:
		icon := lipgloss.NewStyle().Foreground(successColor).Render("✓")
		return fmt.Sprintf(" %s %s → %s\n   %s",
			icon, fileName, filepath.Base(file.OutputPath), trimSummary(file))

	case StatusAnalyzing, StatusTrimming:
		icon := lipgloss.NewStyle().Foreground(activeColor).Render("⚙")
		return fmt.Sprintf(" %s %s\n%s", icon, fileName, renderFileDetails(file))

	case StatusError:
		icon := lipgloss.NewStyle().Foreground(brandColor).Render("✗")
		return fmt.Sprintf(" %s %s\n   Error: %v", icon, fileName, file.Error)

	default:
		icon := lipgloss.NewStyle().Foreground(mutedColor).Render("○")
		return fmt.Sprintf(" %s %s\n   Queued...", icon, fileName)
	}
}

// trimSummary is the one-line result for a completed file
func trimSummary(file FileProgress) string {
	return fmt.Sprintf("%s → %s | Removed %.1f%% in %d run(s) | Threshold %.1f dB",
		logging.FormatTimestamp(file.OriginalDuration),
		logging.FormatTimestamp(file.TrimmedDuration),
		file.RemovedPercentage, file.RemovedSegments, file.ThresholdDB)
}

// renderFileDetails renders detailed progress for the active file
func renderFileDetails(file FileProgress) string {
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(brandColor).
		Padding(0, 1).
		Width(boxWidth)

	var content strings.Builder

	passName := "Analyzing Levels"
	if file.CurrentPass == 2 {
		passName = "Trimming Silence"
	}
	fmt.Fprintf(&content, "Pass %d/2: %s\n", max(file.CurrentPass, 1), passName)

	content.WriteString(renderProgressBar(file.Progress, 40))
	content.WriteString("\n\n")

	elapsed := file.ElapsedTime.Seconds()
	var remaining float64
	if file.Progress > 0 {
		remaining = (elapsed / file.Progress) - elapsed
	}
	fmt.Fprintf(&content, "⏱  Elapsed: %.1fs | Remaining: ~%.1fs", elapsed, remaining)

	if file.CurrentLevel != 0 {
		fmt.Fprintf(&content, "\n📊 Level: %.1f dB | Peak: %.1f dB", file.CurrentLevel, file.PeakLevel)
	}

	return box.Render(content.String())
}

// renderProgressBar renders a progress bar
func renderProgressBar(progress float64, width int) string {
	progress = min(max(progress, 0), 1)
	filled := int(progress * float64(width))
	empty := width - filled

	bar := strings.Repeat("█", filled) + strings.Repeat("░", empty)
	return fmt.Sprintf("%s %d%%", bar, int(progress*100))
}

// renderOverallProgress renders the overall progress footer
func renderOverallProgress(m Model) string {
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(mutedColor).
		Padding(0, 1).
		Width(boxWidth)

	var content string
	if m.validIndex(m.CurrentIndex) {
		content = fmt.Sprintf("Trimming file %d of %d (%d complete)",
			m.CurrentIndex+1, m.TotalFiles, m.CompletedFiles)
	} else {
		content = fmt.Sprintf("Overall Progress: %d/%d complete", m.CompletedFiles, m.TotalFiles)
	}

	return box.Render(content)
}

// renderCompletionSummary renders the final completion summary
func renderCompletionSummary(m Model) string {
	var b strings.Builder

	header := lipgloss.NewStyle().
		Bold(true).
		Foreground(successColor).
		Render("✨ Trimming Complete!")
	b.WriteString(header)
	b.WriteString("\n\n")

	var original, trimmed float64
	for _, file := range m.Files {
		switch file.Status {
		case StatusComplete:
			b.WriteString(renderCompletedFile(file))
			b.WriteString("\n")
			original += file.OriginalDuration
			trimmed += file.TrimmedDuration
		case StatusError:
			b.WriteString(renderFileEntry(file))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(strings.Repeat("─", boxWidth))
	b.WriteString("\n")
	fmt.Fprintf(&b, "%d trimmed, %d failed | %s of silence removed\n",
		m.CompletedFiles, m.FailedFiles, logging.FormatTimestamp(original-trimmed))

	return b.String()
}

// renderCompletedFile renders a summary for a completed file with its tips
func renderCompletedFile(file FileProgress) string {
	icon := lipgloss.NewStyle().Foreground(successColor).Render("✓")

	var b strings.Builder
	fmt.Fprintf(&b, " %s %s → %s\n   %s",
		icon, filepath.Base(file.InputPath), filepath.Base(file.OutputPath), trimSummary(file))
	for _, tip := range file.Tips {
		b.WriteString("\n   ")
		b.WriteString(tipStyle.Render("💡 " + tip))
	}
	return b.String()
}
