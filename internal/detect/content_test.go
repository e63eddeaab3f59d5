package detect

import (
	"math"
	"testing"

	"github.com/kikiluvv/cutpoint/internal/frame"
)

// solidFrame builds a frame filled with a single RGB color.
func solidFrame(t *testing.T, num int64, r, g, b uint8) *frame.Frame {
	t.Helper()
	f := frame.New(num, 16, 12)
	for i := 0; i < len(f.Pix); i += frame.Channels {
		f.Pix[i] = r
		f.Pix[i+1] = g
		f.Pix[i+2] = b
	}
	return f
}

func TestContentDetectorConfigValidation(t *testing.T) {
	cases := []struct {
		name string
		cfg  ContentConfig
	}{
		{"negative threshold", ContentConfig{Threshold: -1, Weights: DefaultWeights()}},
		{"negative weight", ContentConfig{Threshold: 27, Weights: Weights{Hue: -1, Sat: 1, Val: 1}}},
		{"zero weights", ContentConfig{Threshold: 27, Weights: Weights{}}},
	}
	for _, tc := range cases {
		if _, err := NewContentDetector(tc.cfg); err == nil {
			t.Errorf("%s: expected construction error", tc.name)
		}
	}

	if _, err := NewContentDetector(DefaultContentConfig()); err != nil {
		t.Fatalf("default config rejected: %v", err)
	}
}

func TestContentDetectorIdenticalFrames(t *testing.T) {
	d, err := NewContentDetector(DefaultContentConfig())
	if err != nil {
		t.Fatalf("failed to create detector: %v", err)
	}

	for i := int64(0); i < 50; i++ {
		res, err := d.Process(solidFrame(t, i, 128, 128, 128))
		if err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
		if res.Score != 0 {
			t.Errorf("frame %d: score = %v, want 0", i, res.Score)
		}
		if len(res.Cuts) != 0 {
			t.Errorf("frame %d: unexpected cut events %v", i, res.Cuts)
		}
	}
}

func TestContentDetectorAbruptChange(t *testing.T) {
	d, err := NewContentDetector(DefaultContentConfig())
	if err != nil {
		t.Fatalf("failed to create detector: %v", err)
	}

	var cuts []int64
	for i := int64(0); i < 200; i++ {
		f := solidFrame(t, i, 0, 0, 0)
		if i >= 100 {
			f = solidFrame(t, i, 255, 255, 255)
		}
		res, err := d.Process(f)
		if err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
		cuts = append(cuts, res.Cuts...)
	}

	if len(cuts) != 1 || cuts[0] != 100 {
		t.Fatalf("cuts = %v, want [100]", cuts)
	}
}

func TestContentDetectorFirstFrameScoresZero(t *testing.T) {
	d, err := NewContentDetector(DefaultContentConfig())
	if err != nil {
		t.Fatalf("failed to create detector: %v", err)
	}

	res, err := d.Process(solidFrame(t, 0, 255, 0, 0))
	if err != nil {
		t.Fatalf("first frame: %v", err)
	}
	if res.Score != 0 || len(res.Cuts) != 0 {
		t.Fatalf("first frame: score %v cuts %v, want 0 and none", res.Score, res.Cuts)
	}
	if len(res.Metrics) == 0 || res.Metrics[0].Key != MetricContentVal {
		t.Fatalf("first frame metrics = %v, want %s first", res.Metrics, MetricContentVal)
	}
}

func TestContentDetectorValueOnlyDelta(t *testing.T) {
	// Black to white changes only the value plane: hue and saturation
	// deltas stay zero, and the score is the value delta over the weight sum.
	d, err := NewContentDetector(DefaultContentConfig())
	if err != nil {
		t.Fatalf("failed to create detector: %v", err)
	}

	if _, err := d.Process(solidFrame(t, 0, 0, 0, 0)); err != nil {
		t.Fatalf("frame 0: %v", err)
	}
	res, err := d.Process(solidFrame(t, 1, 255, 255, 255))
	if err != nil {
		t.Fatalf("frame 1: %v", err)
	}

	want := 255.0 / 3.0
	if math.Abs(res.Score-want) > 0.01 {
		t.Errorf("score = %v, want %v", res.Score, want)
	}

	metrics := make(map[string]float64, len(res.Metrics))
	for _, m := range res.Metrics {
		metrics[m.Key] = m.Value
	}
	if metrics[MetricDeltaHue] != 0 || metrics[MetricDeltaSat] != 0 {
		t.Errorf("hue/sat deltas = %v/%v, want 0/0", metrics[MetricDeltaHue], metrics[MetricDeltaSat])
	}
	if math.Abs(metrics[MetricDeltaVal]-255) > 0.01 {
		t.Errorf("value delta = %v, want 255", metrics[MetricDeltaVal])
	}
}

func TestContentDetectorWeights(t *testing.T) {
	// With all weight on value, a black-to-white jump scores the full
	// 255 value delta.
	d, err := NewContentDetector(ContentConfig{
		Threshold: 27,
		Weights:   Weights{Hue: 0, Sat: 0, Val: 1},
	})
	if err != nil {
		t.Fatalf("failed to create detector: %v", err)
	}

	if _, err := d.Process(solidFrame(t, 0, 0, 0, 0)); err != nil {
		t.Fatalf("frame 0: %v", err)
	}
	res, err := d.Process(solidFrame(t, 1, 255, 255, 255))
	if err != nil {
		t.Fatalf("frame 1: %v", err)
	}
	if math.Abs(res.Score-255) > 0.01 {
		t.Errorf("score = %v, want 255", res.Score)
	}
}

func TestContentDetectorReset(t *testing.T) {
	d, err := NewContentDetector(DefaultContentConfig())
	if err != nil {
		t.Fatalf("failed to create detector: %v", err)
	}

	if _, err := d.Process(solidFrame(t, 0, 0, 0, 0)); err != nil {
		t.Fatalf("frame 0: %v", err)
	}
	d.Reset()

	// After reset, a wildly different frame is a "first frame" again.
	res, err := d.Process(solidFrame(t, 0, 255, 255, 255))
	if err != nil {
		t.Fatalf("frame after reset: %v", err)
	}
	if res.Score != 0 || len(res.Cuts) != 0 {
		t.Fatalf("after reset: score %v cuts %v, want 0 and none", res.Score, res.Cuts)
	}
}

func TestContentDetectorProcessScore(t *testing.T) {
	d, err := NewContentDetector(DefaultContentConfig())
	if err != nil {
		t.Fatalf("failed to create detector: %v", err)
	}

	res := d.ProcessScore(42, 80.0)
	if len(res.Cuts) != 1 || res.Cuts[0] != 42 {
		t.Errorf("cached score 80: cuts = %v, want [42]", res.Cuts)
	}

	res = d.ProcessScore(43, 5.0)
	if len(res.Cuts) != 0 {
		t.Errorf("cached score 5: unexpected cuts %v", res.Cuts)
	}
}
