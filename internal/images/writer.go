package images

import (
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"

	"github.com/nfnt/resize"
	"github.com/rs/zerolog"

	"github.com/kikiluvv/cutpoint/internal/scenes"
	"github.com/kikiluvv/cutpoint/internal/source"
	"github.com/kikiluvv/cutpoint/pkg/util"
)

// WriterConfig configures per-scene image export.
type WriterConfig struct {
	// NumImages is how many evenly spaced frames to save per scene.
	NumImages int
	// Format is "jpg" or "png".
	Format string
	// Quality applies to jpg (1-100).
	Quality int
	// Width/Height rescale saved images. One of them zero preserves aspect
	// ratio; both zero disables rescaling.
	Width  int
	Height int
	// FrameMargin nudges a scene's first and last saved frames inward.
	FrameMargin int64
	// OutputDir receives the image files.
	OutputDir string
}

// DefaultWriterConfig returns the stock export settings.
func DefaultWriterConfig() WriterConfig {
	return WriterConfig{
		NumImages:   3,
		Format:      "jpg",
		Quality:     95,
		FrameMargin: 1,
	}
}

// Writer saves representative frames for each detected scene.
type Writer struct {
	logger zerolog.Logger
	cfg    WriterConfig
}

// NewWriter validates the configuration and creates a writer.
func NewWriter(logger zerolog.Logger, cfg WriterConfig) (*Writer, error) {
	if cfg.NumImages < 1 {
		return nil, fmt.Errorf("image writer: num images must be >= 1, got %d", cfg.NumImages)
	}
	if cfg.Format != "jpg" && cfg.Format != "png" {
		return nil, fmt.Errorf("image writer: unsupported format %q", cfg.Format)
	}
	if cfg.Format == "jpg" && (cfg.Quality < 1 || cfg.Quality > 100) {
		return nil, fmt.Errorf("image writer: jpg quality must be within [1, 100], got %d", cfg.Quality)
	}
	if cfg.FrameMargin < 0 {
		return nil, fmt.Errorf("image writer: frame margin must be >= 0, got %d", cfg.FrameMargin)
	}
	return &Writer{
		logger: logger.With().Str("component", "image-writer").Logger(),
		cfg:    cfg,
	}, nil
}

// WriteScenes seeks through the source and saves NumImages frames per scene.
// It returns the written file paths keyed by scene index.
func (w *Writer) WriteScenes(src source.FrameSource, sceneList []scenes.Scene, baseName string) (map[int][]string, error) {
	if len(sceneList) == 0 {
		return map[int][]string{}, nil
	}
	if w.cfg.OutputDir != "" {
		if err := util.EnsureDir(w.cfg.OutputDir); err != nil {
			return nil, fmt.Errorf("image writer: %w", err)
		}
	}

	written := make(map[int][]string, len(sceneList))
	for i, scene := range sceneList {
		for j, frameNum := range w.pickFrames(scene) {
			path := filepath.Join(w.cfg.OutputDir,
				fmt.Sprintf("%s-scene-%03d-%02d.%s", baseName, i+1, j+1, w.cfg.Format))
			if err := w.saveFrame(src, frameNum, path); err != nil {
				return written, fmt.Errorf("scene %d frame %d: %w", i+1, frameNum, err)
			}
			written[i] = append(written[i], path)
		}
	}

	w.logger.Info().
		Int("scenes", len(sceneList)).
		Int("per_scene", w.cfg.NumImages).
		Msg("scene images written")

	return written, nil
}

// pickFrames chooses NumImages frame indices spread evenly across the scene,
// with the first and last pulled inward by the frame margin.
func (w *Writer) pickFrames(scene scenes.Scene) []int64 {
	start, end := scene.StartFrame(), scene.EndFrame()
	last := end - 1
	if last < start {
		last = start
	}

	n := w.cfg.NumImages
	if n == 1 {
		return []int64{start + (last-start)/2}
	}

	first := start + w.cfg.FrameMargin
	if first > last {
		first = last
	}
	final := last - w.cfg.FrameMargin
	if final < first {
		final = first
	}

	out := make([]int64, 0, n)
	span := final - first
	for j := 0; j < n; j++ {
		out = append(out, first+span*int64(j)/int64(n-1))
	}
	return out
}

func (w *Writer) saveFrame(src source.FrameSource, frameNum int64, path string) error {
	if err := src.Seek(frameNum); err != nil {
		return err
	}
	f, err := src.NextFrame()
	if err != nil {
		return err
	}

	var img image.Image = f.ToImage()
	if w.cfg.Width > 0 || w.cfg.Height > 0 {
		img = resize.Resize(uint(w.cfg.Width), uint(w.cfg.Height), img, resize.Bicubic)
	}

	out, err := os.Create(path)
	if err != nil {
		return err
	}
	defer out.Close()

	switch w.cfg.Format {
	case "png":
		return png.Encode(out, img)
	default:
		return jpeg.Encode(out, img, &jpeg.Options{Quality: w.cfg.Quality})
	}
}
