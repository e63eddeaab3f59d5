package source

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os/exec"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/kikiluvv/cutpoint/internal/config"
	"github.com/kikiluvv/cutpoint/internal/frame"
	"github.com/kikiluvv/cutpoint/pkg/util"
)

// StreamInfo describes the probed video stream.
type StreamInfo struct {
	Path        string
	Width       int
	Height      int
	FrameRate   float64
	TotalFrames int64
	Duration    float64
	VideoCodec  string
}

// FFmpegSource decodes a video file into raw RGB frames by piping ffmpeg's
// rawvideo output. The core never touches containers or codecs itself; all
// decoding is delegated to the ffmpeg binary.
type FFmpegSource struct {
	logger      zerolog.Logger
	ctx         context.Context
	ffmpegPath  string
	ffprobePath string
	threads     int

	info StreamInfo

	cmd    *exec.Cmd
	stdout io.ReadCloser
	next   int64
}

// Open probes the video and prepares a source for it. Decoding starts lazily
// on the first NextFrame call.
func Open(ctx context.Context, logger zerolog.Logger, cfg config.FFmpegConfig, path string) (*FFmpegSource, error) {
	if path == "" {
		return nil, fmt.Errorf("input path is required")
	}

	ffmpegPath, err := exec.LookPath(cfg.BinaryPath)
	if err != nil {
		return nil, fmt.Errorf("ffmpeg not found in PATH: %w", err)
	}
	ffprobePath, err := exec.LookPath(cfg.ProbePath)
	if err != nil {
		return nil, fmt.Errorf("ffprobe not found in PATH: %w", err)
	}

	s := &FFmpegSource{
		logger:      logger.With().Str("component", "ffmpeg-source").Logger(),
		ctx:         ctx,
		ffmpegPath:  ffmpegPath,
		ffprobePath: ffprobePath,
		threads:     cfg.Threads,
	}

	info, err := s.probe(path)
	if err != nil {
		return nil, err
	}
	s.info = *info

	s.logger.Debug().
		Str("input", path).
		Int("width", info.Width).
		Int("height", info.Height).
		Float64("fps", info.FrameRate).
		Int64("frames", info.TotalFrames).
		Msg("stream opened")

	return s, nil
}

// Info returns the probed stream metadata.
func (s *FFmpegSource) Info() StreamInfo {
	return s.info
}

func (s *FFmpegSource) DurationFrames() int64 {
	return s.info.TotalFrames
}

func (s *FFmpegSource) FrameRate() float64 {
	return s.info.FrameRate
}

// Seek stops any running decode and repositions the stream. The decoder is
// restarted with an input seek on the next NextFrame call.
func (s *FFmpegSource) Seek(frameNum int64) error {
	if frameNum < 0 {
		return fmt.Errorf("seek to negative frame %d", frameNum)
	}
	s.stop()
	s.next = frameNum
	return nil
}

// NextFrame reads one decoded frame from the ffmpeg pipe.
func (s *FFmpegSource) NextFrame() (*frame.Frame, error) {
	if s.cmd == nil {
		if err := s.start(s.next); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorrupted, err)
		}
	}

	f := frame.New(s.next, s.info.Width, s.info.Height)
	n, err := io.ReadFull(s.stdout, f.Pix)
	if err != nil {
		waitErr := s.cmd.Wait()
		s.cmd = nil
		s.stdout = nil
		if n == 0 && (err == io.EOF || err == io.ErrUnexpectedEOF) {
			if waitErr != nil && s.ctx.Err() == nil {
				return nil, fmt.Errorf("%w: decoder exited: %v", ErrCorrupted, waitErr)
			}
			return nil, ErrEndOfStream
		}
		return nil, fmt.Errorf("%w: short frame read (%d of %d bytes): %v",
			ErrCorrupted, n, len(f.Pix), err)
	}

	s.next++
	return f, nil
}

// Close terminates any running decoder process.
func (s *FFmpegSource) Close() error {
	s.stop()
	return nil
}

func (s *FFmpegSource) start(fromFrame int64) error {
	args := []string{"-hide_banner", "-loglevel", "error", "-nostdin"}
	if s.threads > 0 {
		args = append(args, "-threads", strconv.Itoa(s.threads))
	}
	if fromFrame > 0 && s.info.FrameRate > 0 {
		args = append(args, "-ss", util.FormatSeconds(float64(fromFrame)/s.info.FrameRate))
	}
	args = append(args,
		"-i", s.info.Path,
		"-map", "0:v:0",
		"-f", "rawvideo",
		"-pix_fmt", "rgb24",
		"-",
	)

	s.logger.Debug().Strs("args", args).Msg("starting decoder")

	cmd := exec.CommandContext(s.ctx, s.ffmpegPath, args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("failed to create stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	go func() {
		scanner := bufio.NewScanner(stderr)
		for scanner.Scan() {
			s.logger.Debug().Str("ffmpeg", scanner.Text()).Msg("decoder output")
		}
	}()

	s.cmd = cmd
	s.stdout = stdout
	s.next = fromFrame
	return nil
}

func (s *FFmpegSource) stop() {
	if s.cmd == nil {
		return
	}
	if s.cmd.Process != nil {
		_ = s.cmd.Process.Kill()
	}
	_ = s.cmd.Wait()
	s.cmd = nil
	s.stdout = nil
}

// probe extracts stream metadata via ffprobe's JSON output.
func (s *FFmpegSource) probe(path string) (*StreamInfo, error) {
	args := []string{
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	}

	cmd := exec.CommandContext(s.ctx, s.ffprobePath, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("ffprobe failed: %w", err)
	}

	var probe probeResult
	if err := json.Unmarshal(output, &probe); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}

	info := &StreamInfo{Path: path}

	if dur, err := strconv.ParseFloat(probe.Format.Duration, 64); err == nil {
		info.Duration = dur
	}

	for _, stream := range probe.Streams {
		if stream.CodecType != "video" {
			continue
		}
		info.Width = stream.Width
		info.Height = stream.Height
		info.VideoCodec = stream.CodecName
		if stream.RFrameRate != "" {
			info.FrameRate = util.ParseFrameRate(stream.RFrameRate)
		}
		if n, err := strconv.ParseInt(stream.NbFrames, 10, 64); err == nil {
			info.TotalFrames = n
		}
		break
	}

	if info.Width <= 0 || info.Height <= 0 {
		return nil, fmt.Errorf("no video stream found in %s", path)
	}
	if info.TotalFrames == 0 && info.Duration > 0 && info.FrameRate > 0 {
		info.TotalFrames = int64(math.Round(info.Duration * info.FrameRate))
	}

	return info, nil
}

// probeResult matches ffprobe JSON output structure
type probeResult struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
	Streams []struct {
		CodecType  string `json:"codec_type"`
		CodecName  string `json:"codec_name"`
		Width      int    `json:"width"`
		Height     int    `json:"height"`
		RFrameRate string `json:"r_frame_rate"`
		NbFrames   string `json:"nb_frames"`
	} `json:"streams"`
}
