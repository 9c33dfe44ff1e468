package ui

// ProgressMsg represents a progress update from the trimmer
type ProgressMsg struct {
	Pass     int     // 1 or 2
	PassName string  // "Analyzing" or "Trimming"
	Progress float64 // 0.0 to 1.0
	Level    float64 // Current window level in dB
}

// FileStartMsg indicates a new file has started processing
type FileStartMsg struct {
	FileIndex int
	FileName  string
}

// FileCompleteMsg indicates a file has finished processing
type FileCompleteMsg struct {
	FileIndex         int
	ThresholdDB       float64
	OriginalDuration  float64 // seconds
	TrimmedDuration   float64 // seconds
	RemovedPercentage float64
	RemovedSegments   int // silence runs
	OutputPath        string
	Tips              []string
	Error             error
}

// AllCompleteMsg indicates all files have been processed
type AllCompleteMsg struct{}
