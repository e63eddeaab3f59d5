package source

import (
	"context"
	"errors"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/kikiluvv/cutpoint/internal/config"
)

func requireFFmpeg(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not installed, skipping")
	}
	if _, err := exec.LookPath("ffprobe"); err != nil {
		t.Skip("ffprobe not installed, skipping")
	}
}

// makeTestVideo renders a 2-second 10fps synthetic clip into the test's
// temp dir.
func makeTestVideo(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.mp4")
	cmd := exec.Command("ffmpeg",
		"-f", "lavfi",
		"-i", "testsrc=duration=2:size=64x48:rate=10",
		"-pix_fmt", "yuv420p",
		"-y", path,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("failed to generate test video: %v\n%s", err, out)
	}
	return path
}

func testFFmpegConfig() config.FFmpegConfig {
	return config.FFmpegConfig{BinaryPath: "ffmpeg", ProbePath: "ffprobe"}
}

func TestOpenProbesStream(t *testing.T) {
	requireFFmpeg(t)
	path := makeTestVideo(t)

	src, err := Open(context.Background(), zerolog.Nop(), testFFmpegConfig(), path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer src.Close()

	info := src.Info()
	if info.Width != 64 || info.Height != 48 {
		t.Errorf("dimensions = %dx%d, want 64x48", info.Width, info.Height)
	}
	if info.FrameRate != 10 {
		t.Errorf("frame rate = %v, want 10", info.FrameRate)
	}
	if info.TotalFrames != 20 {
		t.Errorf("total frames = %d, want 20", info.TotalFrames)
	}
}

func TestOpenMissingFile(t *testing.T) {
	requireFFmpeg(t)
	_, err := Open(context.Background(), zerolog.Nop(), testFFmpegConfig(),
		filepath.Join(t.TempDir(), "nope.mp4"))
	if err == nil {
		t.Fatal("expected error for missing input")
	}
}

func TestNextFrameDecodesWholeStream(t *testing.T) {
	requireFFmpeg(t)
	path := makeTestVideo(t)

	src, err := Open(context.Background(), zerolog.Nop(), testFFmpegConfig(), path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer src.Close()

	var count int64
	for {
		f, err := src.NextFrame()
		if errors.Is(err, ErrEndOfStream) {
			break
		}
		if err != nil {
			t.Fatalf("frame %d: %v", count, err)
		}
		if f.Num != count {
			t.Fatalf("frame index = %d, want %d", f.Num, count)
		}
		if err := f.Validate(); err != nil {
			t.Fatalf("frame %d: %v", count, err)
		}
		count++
	}

	if count != 20 {
		t.Fatalf("decoded %d frames, want 20", count)
	}
}

func TestSeekRestartsDecoder(t *testing.T) {
	requireFFmpeg(t)
	path := makeTestVideo(t)

	src, err := Open(context.Background(), zerolog.Nop(), testFFmpegConfig(), path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer src.Close()

	if _, err := src.NextFrame(); err != nil {
		t.Fatalf("first frame: %v", err)
	}

	if err := src.Seek(10); err != nil {
		t.Fatalf("seek: %v", err)
	}
	f, err := src.NextFrame()
	if err != nil {
		t.Fatalf("frame after seek: %v", err)
	}
	if f.Num != 10 {
		t.Fatalf("frame index after seek = %d, want 10", f.Num)
	}

	if err := src.Seek(-1); err == nil {
		t.Fatal("negative seek accepted")
	}
}
