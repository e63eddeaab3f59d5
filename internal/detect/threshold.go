package detect

import (
	"fmt"
	"math"

	"github.com/kikiluvv/cutpoint/internal/frame"
)

// MetricLumaVal is the metric key recorded by the threshold detector.
const MetricLumaVal = "luma_val"

// ThresholdConfig configures the fade (threshold) detector.
type ThresholdConfig struct {
	// Threshold is the mean-intensity level (0-255) separating "black"
	// from picture content.
	Threshold float64
	// Debounce is the number of consecutive frames that must sit on the
	// other side of Threshold before a transition is confirmed as a cut.
	Debounce int
	// FadeBias shifts confirmed cuts within the debounce window. 0 places
	// the cut at the confirmation frame. Negative values pull fade-out
	// (to black) cuts earlier toward the first crossing frame; positive
	// values do the same for fade-in (from black) cuts. Range [-1, 1].
	FadeBias float64
	// LumaOnly selects Rec. 601 luma as the frame intensity instead of the
	// mean of all color channels.
	LumaOnly bool
}

// DefaultThresholdConfig returns the stock fade detector settings.
func DefaultThresholdConfig() ThresholdConfig {
	return ThresholdConfig{
		Threshold: 12.0,
		Debounce:  15,
		FadeBias:  0.0,
		LumaOnly:  false,
	}
}

// ThresholdDetector flags cuts on sustained transitions to or from a
// near-black intensity level, which catches fades that the content detector's
// frame-to-frame delta misses. Single-frame crossings are absorbed by the
// debounce window, so noise does not produce cuts.
type ThresholdDetector struct {
	cfg ThresholdConfig

	started  bool
	below    bool
	runLen   int
	runStart int64
}

// NewThresholdDetector validates the configuration and creates a detector.
func NewThresholdDetector(cfg ThresholdConfig) (*ThresholdDetector, error) {
	if cfg.Threshold < 0 || cfg.Threshold > 255 {
		return nil, fmt.Errorf("threshold detector: threshold must be within [0, 255], got %g", cfg.Threshold)
	}
	if cfg.Debounce < 1 {
		return nil, fmt.Errorf("threshold detector: debounce must be >= 1, got %d", cfg.Debounce)
	}
	if cfg.FadeBias < -1 || cfg.FadeBias > 1 {
		return nil, fmt.Errorf("threshold detector: fade bias must be within [-1, 1], got %g", cfg.FadeBias)
	}
	return &ThresholdDetector{cfg: cfg}, nil
}

func (t *ThresholdDetector) Name() string {
	return "threshold"
}

func (t *ThresholdDetector) MetricKeys() []string {
	return []string{MetricLumaVal}
}

func (t *ThresholdDetector) Reset() {
	t.started = false
	t.below = false
	t.runLen = 0
	t.runStart = 0
}

// Process computes the frame's mean intensity and advances the fade state
// machine. A stream ending mid-fade emits nothing; the scene manager closes
// the final scene at end-of-stream regardless.
func (t *ThresholdDetector) Process(f *frame.Frame) (Result, error) {
	if err := f.Validate(); err != nil {
		return Result{}, fmt.Errorf("threshold detector: %w", err)
	}
	score := t.frameIntensity(f)
	return t.step(f.Num, score), nil
}

// ProcessScore advances the fade state machine from a cached intensity value.
// The state machine depends only on the score sequence, so the cached path
// reproduces the computed path exactly.
func (t *ThresholdDetector) ProcessScore(frameNum int64, score float64) Result {
	return t.step(frameNum, score)
}

func (t *ThresholdDetector) step(frameNum int64, score float64) Result {
	res := Result{
		Score:   score,
		Metrics: []Metric{{Key: MetricLumaVal, Value: score}},
	}

	crossed := score < t.cfg.Threshold

	if !t.started {
		t.started = true
		t.below = crossed
		t.runLen = 0
		return res
	}

	if crossed == t.below {
		t.runLen = 0
		return res
	}

	if t.runLen == 0 {
		t.runStart = frameNum
	}
	t.runLen++

	if t.runLen >= t.cfg.Debounce {
		// Transition confirmed: the stream has held the other side of
		// the threshold for a full debounce window.
		fadeIn := !crossed && t.below
		res.Cuts = append(res.Cuts, t.placeCut(frameNum, fadeIn))
		t.below = crossed
		t.runLen = 0
	}

	return res
}

// placeCut maps a confirmed transition to a cut frame. The default is the
// confirmation frame itself; fade bias pulls the matching transition kind
// back toward the first crossing frame of the debounce run.
func (t *ThresholdDetector) placeCut(confirm int64, fadeIn bool) int64 {
	var pull float64
	if fadeIn && t.cfg.FadeBias > 0 {
		pull = t.cfg.FadeBias
	} else if !fadeIn && t.cfg.FadeBias < 0 {
		pull = -t.cfg.FadeBias
	}
	if pull == 0 {
		return confirm
	}
	offset := int64(math.Round(pull * float64(confirm-t.runStart)))
	return confirm - offset
}

// frameIntensity is the mean of all channels, or Rec. 601 luma when LumaOnly
// is set. Both are on the 0-255 scale.
func (t *ThresholdDetector) frameIntensity(f *frame.Frame) float64 {
	n := f.Width * f.Height
	if n == 0 {
		return 0
	}
	var sum float64
	if t.cfg.LumaOnly {
		for i := 0; i < n; i++ {
			r := float64(f.Pix[i*frame.Channels])
			g := float64(f.Pix[i*frame.Channels+1])
			b := float64(f.Pix[i*frame.Channels+2])
			sum += 0.299*r + 0.587*g + 0.114*b
		}
		return sum / float64(n)
	}
	for _, p := range f.Pix {
		sum += float64(p)
	}
	return sum / float64(len(f.Pix))
}
