package scenes

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// WriteSceneList writes the scene list as CSV: one row per scene with frame,
// timecode and length columns, preceded by an optional cut-position row.
func WriteSceneList(w io.Writer, scenes []Scene, cuts []string) error {
	cw := csv.NewWriter(w)

	if len(cuts) > 0 {
		if err := cw.Write(append([]string{"Cut List:"}, cuts...)); err != nil {
			return err
		}
	}

	header := []string{
		"Scene Number",
		"Start Frame", "Start Timecode", "Start Time (seconds)",
		"End Frame", "End Timecode", "End Time (seconds)",
		"Length (frames)", "Length (seconds)",
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	for i, s := range scenes {
		row := []string{
			strconv.Itoa(i + 1),
			strconv.FormatInt(s.StartFrame(), 10),
			s.Start.String(),
			fmt.Sprintf("%.3f", s.Start.Seconds()),
			strconv.FormatInt(s.EndFrame(), 10),
			s.End.String(),
			fmt.Sprintf("%.3f", s.End.Seconds()),
			strconv.FormatInt(s.LenFrames(), 10),
			fmt.Sprintf("%.3f", s.End.Seconds()-s.Start.Seconds()),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
