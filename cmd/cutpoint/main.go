package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/kikiluvv/cutpoint/internal/config"
	"github.com/kikiluvv/cutpoint/internal/detect"
	"github.com/kikiluvv/cutpoint/internal/frame"
	"github.com/kikiluvv/cutpoint/internal/images"
	"github.com/kikiluvv/cutpoint/internal/logging"
	"github.com/kikiluvv/cutpoint/internal/scenes"
	"github.com/kikiluvv/cutpoint/internal/source"
	"github.com/kikiluvv/cutpoint/internal/stats"
	"github.com/kikiluvv/cutpoint/pkg/util"
)

var (
	cfgFile string
	verbose bool

	scanDetectors  []string
	scanThreshold  float64
	scanLumaThresh float64
	scanMinLen     int
	scanPerDet     bool
	scanDownscale  int
	scanStart      string
	scanEnd        string
	scanStatsPath  string
	scanOutput     string
	scanSaveImages bool
	scanImagesDir  string
)

func main() {
	ctx := context.Background()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "cutpoint",
	Short: "cutpoint - shot/scene boundary detection for video files",
	Long:  "Detects shot and scene boundaries by scoring decoded frames against their neighbors and assembling the score sequence into a scene list.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Initialize logging
		logging.Init(verbose)

		// Load config
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}

		// Store config in context
		ctx := config.WithConfig(cmd.Context(), cfg)
		cmd.SetContext(ctx)

		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./cutpoint.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	scanCmd.Flags().StringSliceVar(&scanDetectors, "detector", []string{"content"}, "detectors to run (content, threshold)")
	scanCmd.Flags().Float64Var(&scanThreshold, "threshold", 0, "content score threshold (0-255)")
	scanCmd.Flags().Float64Var(&scanLumaThresh, "luma-threshold", 0, "fade luminance threshold (0-255)")
	scanCmd.Flags().IntVar(&scanMinLen, "min-scene-len", 0, "minimum scene length in frames")
	scanCmd.Flags().BoolVar(&scanPerDet, "per-detector-min-len", false, "enforce min scene length per detector")
	scanCmd.Flags().IntVar(&scanDownscale, "downscale", 0, "frame subsampling factor (0 = auto, 1 = off)")
	scanCmd.Flags().StringVar(&scanStart, "start", "", "start position (frames, seconds, or HH:MM:SS)")
	scanCmd.Flags().StringVar(&scanEnd, "end", "", "end position (frames, seconds, or HH:MM:SS)")
	scanCmd.Flags().StringVar(&scanStatsPath, "stats", "", "frame metrics CSV to load/save")
	scanCmd.Flags().StringVar(&scanOutput, "output", "", "scene list CSV output path")
	scanCmd.Flags().BoolVar(&scanSaveImages, "save-images", false, "export representative images per scene")
	scanCmd.Flags().StringVar(&scanImagesDir, "images-dir", "", "directory for exported images")

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(probeCmd)
}

var scanCmd = &cobra.Command{
	Use:   "scan [input video]",
	Short: "Detect scene boundaries in a video",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())
		applyScanFlags(cmd, cfg)

		src, err := source.Open(cmd.Context(), log.Logger, cfg.FFmpeg, args[0])
		if err != nil {
			return err
		}
		defer src.Close()

		opts, err := buildOptions(cfg, src.FrameRate())
		if err != nil {
			return err
		}

		registry, err := openStats(src.FrameRate())
		if err != nil {
			return err
		}

		mgr := scenes.NewManager(log.Logger, registry)
		if err := addDetectors(mgr, cfg); err != nil {
			return err
		}

		total := src.DurationFrames()
		opts.Progress = func(done int64) {
			if done%500 == 0 {
				log.Debug().Int64("frames", done).Int64("total", total).Msg("scanning")
			}
		}
		opts.OnCut = func(frameNum int64) {
			log.Debug().Int64("frame", frameNum).Msg("cut committed")
		}

		framesDone, runErr := mgr.DetectScenes(cmd.Context(), src, opts)
		sceneList := mgr.SceneList()

		log.Info().
			Int64("frames", framesDone).
			Int("scenes", len(sceneList)).
			Msg("scan complete")

		for i, s := range sceneList {
			fmt.Printf("Scene %3d: start %s (frame %d), end %s (frame %d)\n",
				i+1, s.Start, s.StartFrame(), s.End, s.EndFrame())
		}

		if err := writeOutputs(cfg, src, registry, sceneList, args[0]); err != nil {
			return err
		}

		// A partial scan still produced a valid scene list; surface the
		// failure after the results are out.
		return runErr
	},
}

var probeCmd = &cobra.Command{
	Use:   "probe [input video]",
	Short: "Print stream information for a video",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())

		src, err := source.Open(cmd.Context(), log.Logger, cfg.FFmpeg, args[0])
		if err != nil {
			return err
		}
		defer src.Close()

		info := src.Info()
		fmt.Printf("path:        %s\n", info.Path)
		fmt.Printf("codec:       %s\n", info.VideoCodec)
		fmt.Printf("resolution:  %dx%d\n", info.Width, info.Height)
		fmt.Printf("frame rate:  %.3f\n", info.FrameRate)
		fmt.Printf("frames:      %d\n", info.TotalFrames)
		fmt.Printf("duration:    %s\n", util.FormatSeconds(info.Duration))
		return nil
	},
}

// applyScanFlags folds changed command-line flags into the loaded config.
func applyScanFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("threshold") {
		cfg.Detection.ContentThreshold = scanThreshold
	}
	if cmd.Flags().Changed("luma-threshold") {
		cfg.Detection.LumaThreshold = scanLumaThresh
	}
	if cmd.Flags().Changed("min-scene-len") {
		cfg.Detection.MinSceneLen = scanMinLen
	}
	if cmd.Flags().Changed("per-detector-min-len") {
		cfg.Detection.PerDetectorMinLen = scanPerDet
	}
	if cmd.Flags().Changed("downscale") {
		cfg.Detection.Downscale = scanDownscale
	}
	if cmd.Flags().Changed("stats") {
		cfg.Stats.Path = scanStatsPath
	}
}

func buildOptions(cfg *config.Config, fps float64) (scenes.Options, error) {
	opts := scenes.Options{
		MinSceneLen:       cfg.Detection.MinSceneLen,
		PerDetectorMinLen: cfg.Detection.PerDetectorMinLen,
		Downscale:         cfg.Detection.Downscale,
	}
	if scanStart != "" {
		start, err := frame.ParsePosition(scanStart, fps)
		if err != nil {
			return opts, fmt.Errorf("invalid --start: %w", err)
		}
		opts.Start = start
	}
	if scanEnd != "" {
		end, err := frame.ParsePosition(scanEnd, fps)
		if err != nil {
			return opts, fmt.Errorf("invalid --end: %w", err)
		}
		opts.End = end
	}
	return opts, nil
}

func addDetectors(mgr *scenes.Manager, cfg *config.Config) error {
	for _, name := range scanDetectors {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "content":
			d, err := detect.NewContentDetector(detect.ContentConfig{
				Threshold: cfg.Detection.ContentThreshold,
				Weights: detect.Weights{
					Hue: cfg.Detection.Weights.Hue,
					Sat: cfg.Detection.Weights.Sat,
					Val: cfg.Detection.Weights.Val,
				},
			})
			if err != nil {
				return err
			}
			mgr.AddDetector(d)
		case "threshold":
			d, err := detect.NewThresholdDetector(detect.ThresholdConfig{
				Threshold: cfg.Detection.LumaThreshold,
				Debounce:  cfg.Detection.FadeDebounce,
				FadeBias:  cfg.Detection.FadeBias,
				LumaOnly:  cfg.Detection.LumaOnly,
			})
			if err != nil {
				return err
			}
			mgr.AddDetector(d)
		default:
			return fmt.Errorf("unknown detector %q", name)
		}
	}
	return nil
}

// openStats loads an existing stats file if one was given, enabling the
// skip-if-already-computed path on re-scans.
func openStats(fps float64) (*stats.Registry, error) {
	if scanStatsPath == "" {
		return nil, nil
	}
	registry := stats.NewRegistry()
	if util.FileExists(scanStatsPath) {
		f, err := os.Open(scanStatsPath)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		if err := registry.LoadCSV(f, fps); err != nil {
			return nil, err
		}
		log.Info().Str("path", scanStatsPath).Int("frames", registry.FrameCount()).
			Msg("loaded frame metrics")
	}
	return registry, nil
}

func writeOutputs(cfg *config.Config, src *source.FFmpegSource, registry *stats.Registry, sceneList []scenes.Scene, input string) error {
	if registry != nil && scanStatsPath != "" {
		if err := util.EnsureParentDir(scanStatsPath); err != nil {
			return err
		}
		f, err := os.Create(scanStatsPath)
		if err != nil {
			return err
		}
		defer f.Close()
		if err := registry.SaveCSV(f, src.FrameRate()); err != nil {
			return err
		}
		log.Info().Str("path", scanStatsPath).Msg("frame metrics saved")
	}

	if scanOutput != "" {
		if err := util.EnsureParentDir(scanOutput); err != nil {
			return err
		}
		f, err := os.Create(scanOutput)
		if err != nil {
			return err
		}
		defer f.Close()
		if err := scenes.WriteSceneList(f, sceneList, cutStrings(sceneList)); err != nil {
			return err
		}
		log.Info().Str("path", scanOutput).Msg("scene list saved")
	}

	if scanSaveImages {
		wcfg := images.DefaultWriterConfig()
		wcfg.NumImages = cfg.Images.NumImages
		wcfg.Format = cfg.Images.Format
		wcfg.Quality = cfg.Images.Quality
		wcfg.Width = cfg.Images.Width
		wcfg.Height = cfg.Images.Height
		wcfg.OutputDir = scanImagesDir
		if wcfg.OutputDir == "" {
			wcfg.OutputDir = cfg.WorkDir
		}
		writer, err := images.NewWriter(log.Logger, wcfg)
		if err != nil {
			return err
		}
		base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
		if _, err := writer.WriteScenes(src, sceneList, base); err != nil {
			return err
		}
	}

	return nil
}

// cutStrings renders each interior scene boundary as a timecode string.
func cutStrings(sceneList []scenes.Scene) []string {
	out := make([]string, 0, len(sceneList))
	for i, s := range sceneList {
		if i == 0 {
			continue
		}
		out = append(out, s.Start.String())
	}
	return out
}
