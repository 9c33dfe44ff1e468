package logging

import (
	"math"
	"strings"
	"testing"

	"github.com/linuxmatters/jivetrim/internal/processor"
)

// processedResult builds a ProcessingResult by running the trim planning on levels
func processedResult(thresholdDB float64, levels ...float64) *processor.ProcessingResult {
	segments := make([]processor.Segment, len(levels))
	for i, db := range levels {
		segments[i] = processor.Segment{Start: float64(i) * 0.2, End: float64(i+1) * 0.2, AvgDB: db}
	}
	duration := 0.2 * float64(len(levels))
	w := processor.NewWaveformData(segments, duration, 200)

	cfg := processor.DefaultTrimConfig()
	cfg.ThresholdDB = thresholdDB
	trimmed := processor.CalculateTrimRanges(w, cfg)
	stats := processor.CalculateTrimStats(trimmed, duration)

	return &processor.ProcessingResult{
		InputPath:   "/shows/episode.wav",
		OutputPath:  "/shows/episode-trimmed.wav",
		ThresholdDB: thresholdDB,
		Waveform:    w,
		Segments:    trimmed,
		Result: &processor.TrimResult{
			OriginalDuration:  duration,
			TrimmedDuration:   stats.TrimmedDuration,
			RemovedDuration:   stats.RemovedDuration,
			RemovedPercentage: stats.RemovedPercentage,
			RemovedSegments:   stats.RemovedSegments,
		},
	}
}

func hasRuleID(tips []TrimTip, ruleID string) bool {
	for _, tip := range tips {
		if tip.RuleID == ruleID {
			return true
		}
	}
	return false
}

func ruleIDs(tips []TrimTip) []string {
	ids := make([]string, len(tips))
	for i, tip := range tips {
		ids[i] = tip.RuleID
	}
	return ids
}

func TestWrapText(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		maxWidth int
		indent   string
		want     string
	}{
		{
			name:     "short_text_no_wrap",
			text:     "Hello world",
			maxWidth: 20,
			indent:   "  ",
			want:     "Hello world",
		},
		{
			name:     "long_text_wraps",
			text:     "Try lowering the threshold for better results",
			maxWidth: 30,
			indent:   "  ",
			want:     "Try lowering the threshold for\n  better results",
		},
		{
			name:     "single_long_word",
			text:     "supercalifragilisticexpialidocious",
			maxWidth: 10,
			indent:   "  ",
			want:     "supercalifragilisticexpialidocious",
		},
		{
			name:     "empty_input",
			text:     "",
			maxWidth: 20,
			indent:   "  ",
			want:     "",
		},
		{
			name:     "multiple_wraps",
			text:     "one two three four five six seven eight nine ten",
			maxWidth: 15,
			indent:   "    ",
			want:     "one two three\n    four five six\n    seven eight\n    nine ten",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := wrapText(tt.text, tt.maxWidth, tt.indent)
			if got != tt.want {
				t.Errorf("wrapText() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTipHeavyTrim(t *testing.T) {
	// Six of eight segments quiet, margin keeps one either side of the voice
	heavy := processedResult(-40, -50, -50, -50, -50, -50, -50, -50, -10)
	if tip := tipHeavyTrim(heavy); tip == nil {
		t.Errorf("expected heavy_trim at %.1f%% removed", heavy.Result.RemovedPercentage)
	} else if !strings.Contains(tip.Message, "-40 dB") {
		t.Errorf("message should quote the threshold: %q", tip.Message)
	}

	light := processedResult(-40, -10, -10, -50, -50, -50, -50, -10, -10)
	if tip := tipHeavyTrim(light); tip != nil {
		t.Errorf("unexpected heavy_trim at %.1f%% removed", light.Result.RemovedPercentage)
	}
}

func TestTipNothingRemoved(t *testing.T) {
	r := processedResult(-60, -35, -30, -20, -35, -30)
	tip := tipNothingRemoved(r)
	if tip == nil {
		t.Fatal("expected nothing_removed when every level is above the threshold")
	}
	if !strings.Contains(tip.Message, "-35 dB") {
		t.Errorf("message should quote the quietest level: %q", tip.Message)
	}

	if tipPausesTooShort(r) != nil {
		t.Error("pauses_too_short must not fire without quiet segments")
	}
}

func TestTipPausesTooShort(t *testing.T) {
	// Quiet runs of one and two segments, both shorter than the 0.6s minimum
	r := processedResult(-40, -10, -50, -10, -50, -50, -10)
	if tipPausesTooShort(r) == nil {
		t.Error("expected pauses_too_short")
	}
	if tipNothingRemoved(r) != nil {
		t.Error("nothing_removed must not fire when quiet segments exist")
	}

	// Digital silence counts as quiet
	r = processedResult(-40, -10, math.Inf(-1), -10)
	if tipPausesTooShort(r) == nil {
		t.Error("expected pauses_too_short for a short digital silence")
	}
}

func TestTipNoisyFloor(t *testing.T) {
	if tipNoisyFloor(processedResult(-40, -22, -18, -20, -15)) == nil {
		t.Error("expected noisy_floor when the quietest segment is -22 dB")
	}
	if tipNoisyFloor(processedResult(-40, -30, -18, -20, -15)) != nil {
		t.Error("unexpected noisy_floor with a -30 dB segment")
	}
	if tipNoisyFloor(processedResult(-40, math.Inf(-1), -18, -20)) != nil {
		t.Error("unexpected noisy_floor with digital silence present")
	}
}

func TestTipFarFromAuto(t *testing.T) {
	// Auto threshold is -44 for this recording
	levels := []float64{-50, -45, -20, -15, -10}

	if tipFarFromAuto(processedResult(-30, levels...)) == nil {
		t.Error("expected far_from_auto 14 dB away")
	}
	if tipFarFromAuto(processedResult(-40, levels...)) != nil {
		t.Error("unexpected far_from_auto 4 dB away")
	}
}

func TestGenerateTrimTips(t *testing.T) {
	t.Run("nil and empty results", func(t *testing.T) {
		if tips := GenerateTrimTips(nil); tips != nil {
			t.Errorf("got %v for nil result", ruleIDs(tips))
		}
		if tips := GenerateTrimTips(processedResult(-40)); tips != nil {
			t.Errorf("got %v for empty waveform", ruleIDs(tips))
		}
	})

	t.Run("nothing removed suppresses related tips", func(t *testing.T) {
		// Loud floor, threshold far below it: nothing_removed, noisy_floor and
		// far_from_auto would all fire on their own
		tips := GenerateTrimTips(processedResult(-60, -24, -20, -18, -22, -24))
		if !hasRuleID(tips, "nothing_removed") {
			t.Errorf("expected nothing_removed in %v", ruleIDs(tips))
		}
		if hasRuleID(tips, "noisy_floor") || hasRuleID(tips, "far_from_auto") {
			t.Errorf("exclusions not applied: %v", ruleIDs(tips))
		}
	})

	t.Run("sorted by priority and capped", func(t *testing.T) {
		tips := GenerateTrimTips(processedResult(-23, -24, -24, -24, -24, -24, -24, -22, -10))
		if len(tips) > MaxTrimTips {
			t.Errorf("got %d tips, cap is %d", len(tips), MaxTrimTips)
		}
		for i := 1; i < len(tips); i++ {
			if tips[i].Priority > tips[i-1].Priority {
				t.Errorf("tips out of order: %v", ruleIDs(tips))
			}
		}
		if len(tips) == 0 || tips[0].RuleID != "heavy_trim" {
			t.Errorf("expected heavy_trim first, got %v", ruleIDs(tips))
		}
	})

	t.Run("well tuned recording", func(t *testing.T) {
		tips := GenerateTrimTips(processedResult(-44, -10, -12, -50, -52, -55, -51, -53, -50, -11, -10))
		if len(tips) != 0 {
			t.Errorf("expected no tips, got %v", ruleIDs(tips))
		}
	})
}
