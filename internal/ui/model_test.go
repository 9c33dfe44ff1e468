package ui

import (
	"errors"
	"math"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func send(t *testing.T, m Model, msgs ...tea.Msg) Model {
	t.Helper()
	for _, msg := range msgs {
		updated, _ := m.Update(msg)
		m = updated.(Model)
	}
	return m
}

func TestModel_FileLifecycle(t *testing.T) {
	m := NewModel([]string{"/shows/one.wav", "/shows/two.flac"}, nil)
	if m.CurrentIndex != -1 || m.TotalFiles != 2 {
		t.Fatalf("unexpected initial model: index=%d total=%d", m.CurrentIndex, m.TotalFiles)
	}

	m = send(t, m,
		FileStartMsg{FileIndex: 0, FileName: "one.wav"},
		ProgressMsg{Pass: 1, PassName: "Analyzing", Progress: 0.5, Level: -30},
	)
	if m.Files[0].Status != StatusAnalyzing || m.Files[0].Progress != 0.5 {
		t.Errorf("pass 1: status=%v progress=%v", m.Files[0].Status, m.Files[0].Progress)
	}
	if m.Files[0].PeakLevel != -30 {
		t.Errorf("peak = %v, want -30", m.Files[0].PeakLevel)
	}

	m = send(t, m, ProgressMsg{Pass: 2, PassName: "Trimming", Progress: 0.1})
	if m.Files[0].Status != StatusTrimming || m.Files[0].CurrentPass != 2 {
		t.Errorf("pass 2: status=%v pass=%d", m.Files[0].Status, m.Files[0].CurrentPass)
	}

	m = send(t, m, FileCompleteMsg{
		FileIndex:         0,
		ThresholdDB:       -44,
		OriginalDuration:  120,
		TrimmedDuration:   90,
		RemovedPercentage: 25,
		RemovedSegments:   12,
		OutputPath:        "/shows/one-trimmed.wav",
		Tips:              []string{"Check the threshold."},
	})
	done := m.Files[0]
	if done.Status != StatusComplete || m.CompletedFiles != 1 {
		t.Fatalf("status=%v completed=%d", done.Status, m.CompletedFiles)
	}
	if done.OutputPath != "/shows/one-trimmed.wav" || done.RemovedSegments != 12 || len(done.Tips) != 1 {
		t.Errorf("completion not recorded: %+v", done)
	}

	m = send(t, m,
		FileStartMsg{FileIndex: 1, FileName: "two.flac"},
		FileCompleteMsg{FileIndex: 1, Error: errors.New("decode failed")},
	)
	if m.Files[1].Status != StatusError || m.FailedFiles != 1 {
		t.Errorf("failure not recorded: status=%v failed=%d", m.Files[1].Status, m.FailedFiles)
	}

	updated, cmd := m.Update(AllCompleteMsg{})
	if !updated.(Model).Done || cmd == nil {
		t.Error("AllCompleteMsg should finish and quit")
	}
}

func TestModel_IgnoresOutOfRangeIndex(t *testing.T) {
	m := NewModel([]string{"/shows/one.wav"}, nil)
	m = send(t, m,
		FileStartMsg{FileIndex: 3},
		FileCompleteMsg{FileIndex: -1},
		ProgressMsg{Pass: 1, Progress: 0.5},
	)
	if m.CurrentIndex != -1 || m.CompletedFiles != 0 || m.Files[0].Status != StatusQueued {
		t.Errorf("out of range messages changed the model: %+v", m)
	}
}

func TestUpdateFileProgress_Levels(t *testing.T) {
	fp := FileProgress{PeakLevel: floorDB}

	fp = updateFileProgress(fp, ProgressMsg{Pass: 1, Level: -20})
	fp = updateFileProgress(fp, ProgressMsg{Pass: 1, Level: math.Inf(-1)})
	fp = updateFileProgress(fp, ProgressMsg{Pass: 1, Level: -35})

	if fp.CurrentLevel != -35 || fp.PeakLevel != -20 {
		t.Errorf("current=%v peak=%v, want -35 and -20", fp.CurrentLevel, fp.PeakLevel)
	}
}

func TestModel_Views(t *testing.T) {
	m := NewModel([]string{"/shows/one.wav", "/shows/two.wav"}, nil)
	if !strings.Contains(m.View(), "Initializing") {
		t.Error("expected placeholder before the first window size")
	}

	m = send(t, m,
		tea.WindowSizeMsg{Width: 80, Height: 24},
		FileStartMsg{FileIndex: 0},
		ProgressMsg{Pass: 1, Progress: 0.25, Level: -30},
	)
	view := m.View()
	for _, want := range []string{"Trimming 2 file(s)", "Pass 1/2: Analyzing Levels", "25%", "Trimming file 1 of 2", "Queued..."} {
		if !strings.Contains(view, want) {
			t.Errorf("processing view missing %q\n%s", want, view)
		}
	}

	m = send(t, m,
		FileCompleteMsg{FileIndex: 0, OriginalDuration: 65, TrimmedDuration: 50, RemovedPercentage: 23.1, RemovedSegments: 4, ThresholdDB: -44, OutputPath: "/shows/one-trimmed.wav", Tips: []string{"Lower the threshold."}},
		FileStartMsg{FileIndex: 1},
		FileCompleteMsg{FileIndex: 1, Error: errors.New("boom")},
		AllCompleteMsg{},
	)
	view = m.View()
	for _, want := range []string{
		"Trimming Complete",
		"one.wav → one-trimmed.wav",
		"1:05.0 → 0:50.0 | Removed 23.1% in 4 run(s) | Threshold -44.0 dB",
		"Lower the threshold.",
		"Error: boom",
		"1 trimmed, 1 failed | 0:15.0 of silence removed",
	} {
		if !strings.Contains(view, want) {
			t.Errorf("summary missing %q\n%s", want, view)
		}
	}
}

func TestRenderProgressBar(t *testing.T) {
	if got := renderProgressBar(0.5, 10); got != "█████░░░░░ 50%" {
		t.Errorf("renderProgressBar(0.5) = %q", got)
	}
	if got := renderProgressBar(1.5, 4); got != "████ 100%" {
		t.Errorf("renderProgressBar(1.5) = %q", got)
	}
}
