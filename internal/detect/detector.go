package detect

import "github.com/kikiluvv/cutpoint/internal/frame"

// Metric is a named per-frame value produced by a detector.
type Metric struct {
	Key   string
	Value float64
}

// Result is what a detector reports for a single frame: the frame's score,
// any additional named metrics, and the raw cut events it asserts. Cut events
// are candidates only; the scene manager decides whether they are committed.
type Result struct {
	Score   float64
	Metrics []Metric
	Cuts    []int64
}

// Detector consumes frames in strictly increasing index order and emits a
// per-frame score plus zero or more boundary events. Implementations keep
// private state between calls and share nothing with other detectors.
type Detector interface {
	// Name identifies the detector in logs and stats output.
	Name() string

	// MetricKeys lists the metric names this detector records, primary
	// score first.
	MetricKeys() []string

	// Process scores one frame. The frame buffer is only valid for the
	// duration of the call.
	Process(f *frame.Frame) (Result, error)

	// ProcessScore replays the boundary decision for a frame whose primary
	// score was already computed on a previous run and cached in a stats
	// registry. No pixel data is available on this path.
	ProcessScore(frameNum int64, score float64) Result

	// Reset clears all per-stream state. Called at the start of a scan.
	Reset()
}
