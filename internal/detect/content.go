package detect

import (
	"fmt"
	"math"

	"github.com/kikiluvv/cutpoint/internal/frame"
)

// Metric keys recorded by the content detector.
const (
	MetricContentVal = "content_val"
	MetricDeltaHue   = "delta_hue"
	MetricDeltaSat   = "delta_sat"
	MetricDeltaVal   = "delta_val"
)

// Weights sets the relative importance of the hue, saturation and value
// channels when combining per-channel deltas into the content score. They are
// normalized by their sum, so only the ratios matter.
type Weights struct {
	Hue float64
	Sat float64
	Val float64
}

// DefaultWeights weighs all three channels equally.
func DefaultWeights() Weights {
	return Weights{Hue: 1.0, Sat: 1.0, Val: 1.0}
}

func (w Weights) sum() float64 {
	return w.Hue + w.Sat + w.Val
}

// ContentConfig configures the content-change detector.
type ContentConfig struct {
	// Threshold is the content score above which a cut event fires,
	// on a 0-255 metric scale.
	Threshold float64
	Weights   Weights
}

// DefaultContentConfig returns the stock content detector settings.
func DefaultContentConfig() ContentConfig {
	return ContentConfig{
		Threshold: 27.0,
		Weights:   DefaultWeights(),
	}
}

// ContentDetector flags a cut wherever frame-to-frame content changes
// sharply. Each frame is converted to a hue/saturation/value representation
// and scored by the weighted mean absolute per-channel difference against the
// previous frame, which is robust to lighting flicker and compression noise.
type ContentDetector struct {
	cfg  ContentConfig
	prev *hsvPlanes
}

// hsvPlanes is a frame's HSV representation, all channels scaled to 0-255.
type hsvPlanes struct {
	width, height int
	h, s, v       []float32
}

// NewContentDetector validates the configuration and creates a detector.
func NewContentDetector(cfg ContentConfig) (*ContentDetector, error) {
	if cfg.Threshold < 0 {
		return nil, fmt.Errorf("content detector: threshold must be >= 0, got %g", cfg.Threshold)
	}
	if cfg.Weights.Hue < 0 || cfg.Weights.Sat < 0 || cfg.Weights.Val < 0 {
		return nil, fmt.Errorf("content detector: channel weights must be >= 0")
	}
	if cfg.Weights.sum() <= 0 {
		return nil, fmt.Errorf("content detector: channel weights must sum to a positive value")
	}
	return &ContentDetector{cfg: cfg}, nil
}

func (c *ContentDetector) Name() string {
	return "content"
}

func (c *ContentDetector) MetricKeys() []string {
	return []string{MetricContentVal, MetricDeltaHue, MetricDeltaSat, MetricDeltaVal}
}

func (c *ContentDetector) Reset() {
	c.prev = nil
}

// Process scores the frame against the previous one and updates the stored
// representation. The first frame of a stream scores 0 and never fires.
func (c *ContentDetector) Process(f *frame.Frame) (Result, error) {
	if err := f.Validate(); err != nil {
		return Result{}, fmt.Errorf("content detector: %w", err)
	}

	curr := toHSV(f)

	// A previous frame of different dimensions cannot be compared; the
	// stream effectively restarts.
	if c.prev != nil && (c.prev.width != curr.width || c.prev.height != curr.height) {
		c.prev = nil
	}

	if c.prev == nil {
		c.prev = curr
		return Result{
			Score: 0,
			Metrics: []Metric{
				{Key: MetricContentVal, Value: 0},
				{Key: MetricDeltaHue, Value: 0},
				{Key: MetricDeltaSat, Value: 0},
				{Key: MetricDeltaVal, Value: 0},
			},
		}, nil
	}

	dh := meanAbsDiff(c.prev.h, curr.h)
	ds := meanAbsDiff(c.prev.s, curr.s)
	dv := meanAbsDiff(c.prev.v, curr.v)
	w := c.cfg.Weights
	score := (w.Hue*dh + w.Sat*ds + w.Val*dv) / w.sum()

	c.prev = curr

	res := Result{
		Score: score,
		Metrics: []Metric{
			{Key: MetricContentVal, Value: score},
			{Key: MetricDeltaHue, Value: dh},
			{Key: MetricDeltaSat, Value: ds},
			{Key: MetricDeltaVal, Value: dv},
		},
	}
	if score >= c.cfg.Threshold {
		res.Cuts = append(res.Cuts, f.Num)
	}
	return res, nil
}

// ProcessScore replays the cut decision from a cached score. The stored
// previous-frame representation is dropped so that a later computed frame
// scores 0 rather than comparing against a stale frame.
func (c *ContentDetector) ProcessScore(frameNum int64, score float64) Result {
	c.prev = nil
	res := Result{Score: score}
	if score >= c.cfg.Threshold {
		res.Cuts = append(res.Cuts, frameNum)
	}
	return res
}

// toHSV converts a packed RGB frame into separate HSV planes scaled to 0-255.
func toHSV(f *frame.Frame) *hsvPlanes {
	n := f.Width * f.Height
	p := &hsvPlanes{
		width:  f.Width,
		height: f.Height,
		h:      make([]float32, n),
		s:      make([]float32, n),
		v:      make([]float32, n),
	}
	for i := 0; i < n; i++ {
		r := float64(f.Pix[i*frame.Channels])
		g := float64(f.Pix[i*frame.Channels+1])
		b := float64(f.Pix[i*frame.Channels+2])

		maxC := math.Max(r, math.Max(g, b))
		minC := math.Min(r, math.Min(g, b))
		delta := maxC - minC

		var h float64
		if delta > 0 {
			switch maxC {
			case r:
				h = math.Mod((g-b)/delta, 6)
			case g:
				h = (b-r)/delta + 2
			default:
				h = (r-g)/delta + 4
			}
			h *= 60
			if h < 0 {
				h += 360
			}
		}

		var s float64
		if maxC > 0 {
			s = delta / maxC
		}

		p.h[i] = float32(h / 360 * 255)
		p.s[i] = float32(s * 255)
		p.v[i] = float32(maxC)
	}
	return p
}

func meanAbsDiff(a, b []float32) float64 {
	if len(a) == 0 {
		return 0
	}
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		if d < 0 {
			d = -d
		}
		sum += d
	}
	return sum / float64(len(a))
}
