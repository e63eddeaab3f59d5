package scenes

import (
	"fmt"

	"github.com/kikiluvv/cutpoint/internal/frame"
)

// Scene is a half-open frame interval [Start, End) with derived timecodes.
// Scenes in a committed list are contiguous and non-overlapping, covering the
// analyzed range exactly once.
type Scene struct {
	Start frame.Timecode
	End   frame.Timecode
}

// StartFrame returns the first frame of the scene.
func (s Scene) StartFrame() int64 {
	return s.Start.Frames()
}

// EndFrame returns the frame just past the end of the scene.
func (s Scene) EndFrame() int64 {
	return s.End.Frames()
}

// LenFrames returns the scene length in frames.
func (s Scene) LenFrames() int64 {
	return s.End.Frames() - s.Start.Frames()
}

func (s Scene) String() string {
	return fmt.Sprintf("[%d, %d) %s - %s", s.StartFrame(), s.EndFrame(), s.Start, s.End)
}
