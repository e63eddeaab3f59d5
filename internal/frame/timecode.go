package frame

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/kikiluvv/cutpoint/pkg/util"
)

// Timecode is a position in a video stream, stored as a frame index plus the
// stream frame rate so it can be rendered as either frames or wall time.
type Timecode struct {
	frame int64
	fps   float64
}

// NewTimecode creates a timecode at the given 0-based frame index.
func NewTimecode(frameNum int64, fps float64) Timecode {
	return Timecode{frame: frameNum, fps: fps}
}

// Frames returns the frame index.
func (t Timecode) Frames() int64 {
	return t.frame
}

// FrameRate returns the frame rate the timecode is based on.
func (t Timecode) FrameRate() float64 {
	return t.fps
}

// Seconds returns the position in seconds from the start of the stream.
func (t Timecode) Seconds() float64 {
	if t.fps <= 0 {
		return 0
	}
	return float64(t.frame) / t.fps
}

// String renders the timecode as HH:MM:SS.mmm.
func (t Timecode) String() string {
	return util.FormatSeconds(t.Seconds())
}

// ParsePosition parses a stream position into a frame index. Bare integers are
// frame counts; everything else is handed to the timestamp parser and
// converted using the supplied frame rate.
func ParsePosition(s string, fps float64) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty position")
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		if n < 0 {
			return 0, fmt.Errorf("negative frame index: %d", n)
		}
		return n, nil
	}
	secs, err := util.ParseTimestamp(s)
	if err != nil {
		return 0, err
	}
	if fps <= 0 {
		return 0, fmt.Errorf("frame rate required to parse position %q", s)
	}
	return int64(math.Round(secs * fps)), nil
}
