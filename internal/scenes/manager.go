package scenes

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/kikiluvv/cutpoint/internal/detect"
	"github.com/kikiluvv/cutpoint/internal/frame"
	"github.com/kikiluvv/cutpoint/internal/source"
	"github.com/kikiluvv/cutpoint/internal/stats"
)

// DefaultMinSceneLen is the smallest allowed frame count between two
// committed cuts when Options.MinSceneLen is left zero.
const DefaultMinSceneLen = 15

// downscaleTargetWidth is the effective frame width the automatic downscale
// factor aims for.
const downscaleTargetWidth = 256

// Options configures a single detection run.
type Options struct {
	// Start is the absolute frame index to begin at. Scene boundaries are
	// always expressed relative to the original stream's frame 0.
	Start int64
	// End is the exclusive frame index to stop at. 0 means stream end.
	End int64
	// MinSceneLen is the minimum committed-cut spacing in frames.
	// 0 selects DefaultMinSceneLen; negative values are rejected.
	MinSceneLen int
	// PerDetectorMinLen enforces MinSceneLen per detector instead of once
	// globally across all detectors.
	PerDetectorMinLen bool
	// Downscale is the pixel-stride subsampling factor applied before
	// scoring. 0 picks a factor automatically from the frame width; 1
	// disables downscaling.
	Downscale int
	// Progress, if set, is invoked after each frame's boundary decision
	// with the number of frames processed so far. Observational only.
	Progress func(framesDone int64)
	// OnCut, if set, is invoked when a cut is committed. Observational only.
	OnCut func(frameNum int64)
}

// Manager owns a set of detectors, drives frame consumption from a source,
// reconciles raw detector events into committed cuts, and assembles the final
// scene list.
type Manager struct {
	logger    zerolog.Logger
	stats     *stats.Registry
	detectors []detect.Detector

	ran        bool
	fps        float64
	startFrame int64
	endFrame   int64
	cuts       []int64
}

// NewManager creates a manager. The registry is optional; when present,
// per-frame metrics are recorded into it and frames whose metrics already
// exist skip recomputation.
func NewManager(logger zerolog.Logger, registry *stats.Registry) *Manager {
	return &Manager{
		logger: logger.With().Str("component", "scene-manager").Logger(),
		stats:  registry,
	}
}

// AddDetector registers a detector. All registered detectors run on every
// frame of a detection run.
func (m *Manager) AddDetector(d detect.Detector) {
	if m.stats != nil {
		m.stats.RegisterKeys(d.MetricKeys()...)
	}
	m.detectors = append(m.detectors, d)
}

// NumDetectors returns the number of registered detectors.
func (m *Manager) NumDetectors() int {
	return len(m.detectors)
}

// Clear discards the results of any previous run. Detectors stay registered.
func (m *Manager) Clear() {
	m.ran = false
	m.cuts = nil
	m.startFrame = 0
	m.endFrame = 0
}

// DetectScenes pulls frames from src in increasing index order, dispatches
// each to every detector, and commits cuts subject to the minimum-scene-length
// policy. It returns the number of frames processed.
//
// On cancellation or a mid-stream source failure the error is returned, but
// the last open scene is still closed at the last successfully processed
// frame so SceneList remains valid.
func (m *Manager) DetectScenes(ctx context.Context, src source.FrameSource, opts Options) (int64, error) {
	if len(m.detectors) == 0 {
		return 0, fmt.Errorf("no detectors registered")
	}
	if opts.MinSceneLen < 0 {
		return 0, fmt.Errorf("min scene length must be >= 0, got %d", opts.MinSceneLen)
	}
	if opts.Downscale < 0 {
		return 0, fmt.Errorf("downscale factor must be >= 0, got %d", opts.Downscale)
	}
	if opts.Start < 0 {
		return 0, fmt.Errorf("start frame must be >= 0, got %d", opts.Start)
	}
	if opts.End != 0 && opts.End <= opts.Start {
		return 0, fmt.Errorf("end frame %d must be past start frame %d", opts.End, opts.Start)
	}
	minLen := int64(opts.MinSceneLen)
	if minLen == 0 {
		minLen = DefaultMinSceneLen
	}

	m.Clear()
	for _, d := range m.detectors {
		d.Reset()
	}
	m.fps = src.FrameRate()
	m.startFrame = opts.Start

	if opts.Start > 0 {
		if err := src.Seek(opts.Start); err != nil {
			return 0, fmt.Errorf("seek to frame %d: %w", opts.Start, err)
		}
	}

	// Last committed cut per suppression window. Initialized to the start
	// frame so the first cut also honors the minimum scene length.
	lastCut := opts.Start
	lastCutPerDet := make([]int64, len(m.detectors))
	for i := range lastCutPerDet {
		lastCutPerDet[i] = opts.Start
	}

	factor := opts.Downscale
	framesDone := int64(0)
	lastProcessed := opts.Start - 1
	var runErr error

loop:
	for {
		select {
		case <-ctx.Done():
			runErr = ctx.Err()
			break loop
		default:
		}

		f, err := src.NextFrame()
		if errors.Is(err, source.ErrEndOfStream) {
			break
		}
		if err != nil {
			m.logger.Warn().Err(err).Int64("last_frame", lastProcessed).
				Msg("source failed mid-stream, finalizing partial scan")
			runErr = err
			break
		}
		if opts.End > 0 && f.Num >= opts.End {
			break
		}

		if factor == 0 {
			factor = computeDownscaleFactor(f.Width)
			if factor > 1 {
				m.logger.Debug().Int("factor", factor).
					Int("effective_width", f.Width/factor).
					Msg("auto downscale enabled")
			}
		}
		scored := f.Subsample(factor)

		// Every detector runs on every frame, even if an earlier one
		// already produced an event, so metric collection stays complete.
		type candidate struct {
			det   int
			frame int64
		}
		var candidates []candidate
		var pending []detect.Metric
		var pendingFrame int64 = f.Num

		for i, d := range m.detectors {
			keys := d.MetricKeys()
			if m.stats != nil && m.stats.HasAll(f.Num, keys) {
				score, _ := m.stats.Get(f.Num, keys[0])
				res := d.ProcessScore(f.Num, score)
				for _, c := range res.Cuts {
					candidates = append(candidates, candidate{det: i, frame: c})
				}
				continue
			}

			res, err := d.Process(scored)
			if err != nil {
				// Nothing from this frame is recorded; scenes
				// committed so far stay retrievable.
				m.finalize(framesDone, lastProcessed)
				return framesDone, fmt.Errorf("detector %s failed at frame %d: %w", d.Name(), f.Num, err)
			}
			pending = append(pending, res.Metrics...)
			for _, c := range res.Cuts {
				candidates = append(candidates, candidate{det: i, frame: c})
			}
		}

		if m.stats != nil {
			for _, metric := range pending {
				m.stats.Record(pendingFrame, metric.Key, metric.Value)
			}
		}

		for _, cand := range candidates {
			var last *int64
			if opts.PerDetectorMinLen {
				last = &lastCutPerDet[cand.det]
			} else {
				last = &lastCut
			}
			if cand.frame-*last < minLen {
				continue
			}
			*last = cand.frame
			if m.commitCut(cand.frame) && opts.OnCut != nil {
				opts.OnCut(cand.frame)
			}
		}

		lastProcessed = f.Num
		framesDone++
		if opts.Progress != nil {
			opts.Progress(framesDone)
		}
	}

	m.finalize(framesDone, lastProcessed)

	m.logger.Info().
		Int64("frames", framesDone).
		Int("cuts", len(m.cuts)).
		Msg("detection run complete")

	return framesDone, runErr
}

// commitCut appends a cut, keeping the list sorted and unique. Reports
// whether the cut was new.
func (m *Manager) commitCut(frameNum int64) bool {
	for _, c := range m.cuts {
		if c == frameNum {
			return false
		}
	}
	m.cuts = append(m.cuts, frameNum)
	for i := len(m.cuts) - 1; i > 0 && m.cuts[i] < m.cuts[i-1]; i-- {
		m.cuts[i], m.cuts[i-1] = m.cuts[i-1], m.cuts[i]
	}
	return true
}

func (m *Manager) finalize(framesDone, lastProcessed int64) {
	if framesDone == 0 {
		return
	}
	m.endFrame = lastProcessed + 1
	m.ran = true
}

// SceneList returns the committed scenes from the most recent run: contiguous
// half-open intervals from the start frame to one past the last processed
// frame, split at each committed cut. With zero cuts the result is a single
// scene spanning the whole analyzed range. Before any run it returns nil.
// Repeated calls yield identical results without reprocessing.
func (m *Manager) SceneList() []Scene {
	if !m.ran {
		return nil
	}
	scenes := make([]Scene, 0, len(m.cuts)+1)
	last := m.startFrame
	for _, cut := range m.cuts {
		if cut <= last || cut >= m.endFrame {
			continue
		}
		scenes = append(scenes, Scene{
			Start: frame.NewTimecode(last, m.fps),
			End:   frame.NewTimecode(cut, m.fps),
		})
		last = cut
	}
	scenes = append(scenes, Scene{
		Start: frame.NewTimecode(last, m.fps),
		End:   frame.NewTimecode(m.endFrame, m.fps),
	})
	return scenes
}

// CutList returns the committed cut positions from the most recent run.
func (m *Manager) CutList() []frame.Timecode {
	if !m.ran {
		return nil
	}
	out := make([]frame.Timecode, 0, len(m.cuts))
	for _, cut := range m.cuts {
		out = append(out, frame.NewTimecode(cut, m.fps))
	}
	return out
}

// computeDownscaleFactor picks the integer subsampling stride that keeps the
// effective frame width at or above downscaleTargetWidth.
func computeDownscaleFactor(frameWidth int) int {
	if frameWidth < downscaleTargetWidth {
		return 1
	}
	return frameWidth / downscaleTargetWidth
}
