package logging

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/linuxmatters/jivetrim/internal/processor"
)

// TrimTip is a single piece of actionable tuning advice derived from a trim result
type TrimTip struct {
	Priority int    // Higher = more important (1-10)
	Message  string // Human-readable advice (1-2 sentences)
	RuleID   string // Identifier for testing/logging (e.g., "nothing_removed")
}

// MaxTrimTips is the maximum number of tips to return.
const MaxTrimTips = 3

// Tip thresholds
const (
	heavyTrimPercentage = 50.0  // removing more than this likely cuts speech
	autoDistanceDB      = 10.0  // applied threshold this far from auto is worth a mention
	noisyFloorDB        = -26.0 // quietest segment louder than this means no real pauses
)

// GenerateTrimTips inspects a processed file and returns prioritised tuning suggestions
func GenerateTrimTips(r *processor.ProcessingResult) []TrimTip {
	if r == nil || r.Waveform == nil || r.Result == nil || r.Waveform.Len() == 0 {
		return nil
	}

	var tips []TrimTip
	firedRules := make(map[string]bool)

	rules := []func(*processor.ProcessingResult) *TrimTip{
		tipHeavyTrim,
		tipNothingRemoved,
		tipPausesTooShort,
		tipNoisyFloor,
		tipFarFromAuto,
	}

	for _, rule := range rules {
		if tip := rule(r); tip != nil {
			tips = append(tips, *tip)
			firedRules[tip.RuleID] = true
		}
	}

	tips = applyExclusions(tips, firedRules)

	sort.SliceStable(tips, func(i, j int) bool {
		return tips[i].Priority > tips[j].Priority
	})

	if len(tips) > MaxTrimTips {
		tips = tips[:MaxTrimTips]
	}

	return tips
}

// applyExclusions removes tips that are redundant when a more specific tip
// has already fired. "far_from_auto" adds nothing once "nothing_removed"
// has already suggested the auto threshold.
func applyExclusions(tips []TrimTip, fired map[string]bool) []TrimTip {
	var result []TrimTip
	for _, tip := range tips {
		switch tip.RuleID {
		case "far_from_auto":
			if fired["nothing_removed"] || fired["heavy_trim"] {
				continue
			}
		case "noisy_floor":
			if fired["nothing_removed"] {
				continue
			}
		}
		result = append(result, tip)
	}
	return result
}

// wrapText wraps text at word boundaries to fit within maxWidth columns.
// Continuation lines are prefixed with indent.
func wrapText(text string, maxWidth int, indent string) string {
	words := strings.Fields(text)
	var lines []string
	currentLine := ""

	for _, word := range words {
		if currentLine == "" {
			currentLine = word
		} else if len(currentLine)+1+len(word) <= maxWidth {
			currentLine += " " + word
		} else {
			lines = append(lines, currentLine)
			currentLine = word
		}
	}
	if currentLine != "" {
		lines = append(lines, currentLine)
	}

	return strings.Join(lines, "\n"+indent)
}

// tipHeavyTrim fires when more than half the recording was removed
func tipHeavyTrim(r *processor.ProcessingResult) *TrimTip {
	if r.Result.RemovedPercentage <= heavyTrimPercentage {
		return nil
	}
	return &TrimTip{
		Priority: 10,
		RuleID:   "heavy_trim",
		Message: fmt.Sprintf("%.0f%% of the recording was removed - the threshold of %.0f dB may be cutting quiet speech. Try lowering it by a few dB.",
			r.Result.RemovedPercentage, r.ThresholdDB),
	}
}

// tipNothingRemoved fires when the threshold sits below every measured level
func tipNothingRemoved(r *processor.ProcessingResult) *TrimTip {
	if r.Result.RemovedSegments > 0 || hasQuietSegments(r) {
		return nil
	}
	return &TrimTip{
		Priority: 9,
		RuleID:   "nothing_removed",
		Message: fmt.Sprintf("Nothing was removed - the quietest passage measures %.0f dB, above the %.0f dB threshold. Try --auto or raise the threshold.",
			r.Waveform.MinDB(), r.ThresholdDB),
	}
}

// tipPausesTooShort fires when quiet segments exist but no run is long enough to keep
func tipPausesTooShort(r *processor.ProcessingResult) *TrimTip {
	if r.Result.RemovedSegments > 0 || !hasQuietSegments(r) {
		return nil
	}
	return &TrimTip{
		Priority: 8,
		RuleID:   "pauses_too_short",
		Message:  "Quiet passages were found but none lasted long enough to remove. Lower --min-silence or the margin to trim shorter pauses.",
	}
}

// tipNoisyFloor fires when even the quietest segment is loud
func tipNoisyFloor(r *processor.ProcessingResult) *TrimTip {
	for _, s := range r.Waveform.Segments() {
		if math.IsInf(s.AvgDB, -1) || s.AvgDB <= noisyFloorDB {
			return nil
		}
	}
	return &TrimTip{
		Priority: 7,
		RuleID:   "noisy_floor",
		Message: fmt.Sprintf("The quietest passage measures %.0f dB, so background noise is masking the pauses. Reduce noise before trimming.",
			r.Waveform.MinDB()),
	}
}

// tipFarFromAuto fires when the applied threshold is far from the recommendation
func tipFarFromAuto(r *processor.ProcessingResult) *TrimTip {
	auto := processor.CalculateAutoThreshold(r.Waveform)
	if math.Abs(auto-r.ThresholdDB) < autoDistanceDB {
		return nil
	}
	return &TrimTip{
		Priority: 5,
		RuleID:   "far_from_auto",
		Message: fmt.Sprintf("The recommended threshold for this recording is %.0f dB, %.0f dB away from the one used.",
			auto, math.Abs(auto-r.ThresholdDB)),
	}
}

// hasQuietSegments reports whether any analysed segment is at or below the threshold
func hasQuietSegments(r *processor.ProcessingResult) bool {
	for _, s := range r.Waveform.Segments() {
		if math.IsInf(s.AvgDB, -1) || s.AvgDB <= r.ThresholdDB {
			return true
		}
	}
	return false
}
