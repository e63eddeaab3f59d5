package config

import (
	"context"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type contextKey string

const configKey contextKey = "config"

// Config holds all application configuration
type Config struct {
	// WorkDir is where scene lists, stats files and exported images land
	// unless an absolute path is given on the command line.
	WorkDir string `yaml:"work_dir"`

	Detection DetectionConfig `yaml:"detection"`
	FFmpeg    FFmpegConfig    `yaml:"ffmpeg"`
	Stats     StatsConfig     `yaml:"stats"`
	Images    ImagesConfig    `yaml:"images"`
}

// DetectionConfig covers the detector and boundary-policy knobs.
type DetectionConfig struct {
	// ContentThreshold is the content-change score above which a cut fires
	// (0-255 metric scale).
	ContentThreshold float64 `yaml:"content_threshold"`
	// LumaThreshold is the mean-luminance level used for fade detection
	// (0-255 metric scale).
	LumaThreshold float64 `yaml:"luma_threshold"`
	// MinSceneLen is the smallest allowed frame count between committed cuts.
	MinSceneLen int `yaml:"min_scene_len"`
	// PerDetectorMinLen enforces MinSceneLen independently per detector
	// instead of once globally.
	PerDetectorMinLen bool `yaml:"per_detector_min_len"`
	// LumaOnly makes the fade detector use Rec. 601 luma instead of the
	// mean of all color channels.
	LumaOnly bool `yaml:"luma_only"`
	// FadeBias shifts fade cuts within the debounce window; see detect.ThresholdConfig.
	FadeBias float64 `yaml:"fade_bias"`
	// FadeDebounce is the consecutive-frame count required to confirm a
	// fade transition.
	FadeDebounce int `yaml:"fade_debounce"`
	// Downscale is the integer pixel-stride subsampling factor applied to
	// frames before scoring. 0 selects an automatic factor from the frame width.
	Downscale int `yaml:"downscale"`

	Weights WeightsConfig `yaml:"weights"`
}

// WeightsConfig sets the relative channel importance for content scoring.
type WeightsConfig struct {
	Hue float64 `yaml:"hue"`
	Sat float64 `yaml:"sat"`
	Val float64 `yaml:"val"`
}

type FFmpegConfig struct {
	BinaryPath string `yaml:"binary_path"`
	ProbePath  string `yaml:"probe_path"`
	Threads    int    `yaml:"threads"`
}

type StatsConfig struct {
	// Path of the frame-metrics CSV. Empty disables the stats registry.
	Path string `yaml:"path"`
}

type ImagesConfig struct {
	NumImages int    `yaml:"num_images"`
	Format    string `yaml:"format"`
	Quality   int    `yaml:"quality"`
	Width     int    `yaml:"width"`
	Height    int    `yaml:"height"`
}

// Load reads configuration from file or returns defaults
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	if path == "" {
		path = findConfigFile()
	}

	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes configuration to file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

func defaultConfig() *Config {
	return &Config{
		WorkDir: ".",
		Detection: DetectionConfig{
			ContentThreshold: 27.0,
			LumaThreshold:    12.0,
			MinSceneLen:      15,
			FadeDebounce:     15,
			LumaOnly:         false,
			FadeBias:         0.0,
			Downscale:        0,
			Weights: WeightsConfig{
				Hue: 1.0,
				Sat: 1.0,
				Val: 1.0,
			},
		},
		FFmpeg: FFmpegConfig{
			BinaryPath: "ffmpeg",
			ProbePath:  "ffprobe",
			Threads:    0,
		},
		Stats: StatsConfig{
			Path: "",
		},
		Images: ImagesConfig{
			NumImages: 3,
			Format:    "jpg",
			Quality:   95,
		},
	}
}

func findConfigFile() string {
	candidates := []string{
		"./cutpoint.yaml",
		"./cutpoint.yml",
		filepath.Join(os.Getenv("HOME"), ".cutpoint", "config.yaml"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// WithConfig stores config in context
func WithConfig(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey, cfg)
}

// FromContext retrieves config from context
func FromContext(ctx context.Context) *Config {
	if cfg, ok := ctx.Value(configKey).(*Config); ok {
		return cfg
	}
	return defaultConfig()
}
