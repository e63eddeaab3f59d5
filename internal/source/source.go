package source

import (
	"errors"

	"github.com/kikiluvv/cutpoint/internal/frame"
)

// ErrEndOfStream is returned by NextFrame when the source has no more frames.
var ErrEndOfStream = errors.New("end of stream")

// ErrCorrupted is returned when the source fails mid-stream (decode error,
// truncated file). The scene manager treats it as an implicit end-of-stream
// so partial scans still yield a closed scene list.
var ErrCorrupted = errors.New("frame source corrupted")

// FrameSource supplies decoded frames in strictly increasing index order.
// Implementations own the frame buffers; callers must not retain a returned
// frame past the next NextFrame call.
type FrameSource interface {
	// NextFrame returns the next decoded frame, ErrEndOfStream when the
	// stream is exhausted, or an error wrapping ErrCorrupted on failure.
	NextFrame() (*frame.Frame, error)

	// DurationFrames returns the total frame count of the stream, or 0 if
	// unknown (e.g. a live source).
	DurationFrames() int64

	// FrameRate returns the stream's frames per second.
	FrameRate() float64

	// Seek repositions the source so the next NextFrame call returns the
	// frame at the given 0-based index.
	Seek(frameNum int64) error
}
