package scenes

import (
	"bytes"
	"strings"
	"testing"

	"github.com/kikiluvv/cutpoint/internal/frame"
)

func testScene(start, end int64, fps float64) Scene {
	return Scene{
		Start: frame.NewTimecode(start, fps),
		End:   frame.NewTimecode(end, fps),
	}
}

func TestWriteSceneList(t *testing.T) {
	sceneList := []Scene{
		testScene(0, 90, 30),
		testScene(90, 150, 30),
	}

	var buf bytes.Buffer
	if err := WriteSceneList(&buf, sceneList, []string{"00:00:03.000"}); err != nil {
		t.Fatalf("write: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("got %d lines, want 4:\n%s", len(lines), buf.String())
	}
	if lines[0] != "Cut List:,00:00:03.000" {
		t.Errorf("cut row = %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "Scene Number,Start Frame,") {
		t.Errorf("header = %q", lines[1])
	}
	if lines[2] != "1,0,00:00:00.000,0.000,90,00:00:03.000,3.000,90,3.000" {
		t.Errorf("scene row 1 = %q", lines[2])
	}
	if !strings.HasPrefix(lines[3], "2,90,") {
		t.Errorf("scene row 2 = %q", lines[3])
	}
}

func TestWriteSceneListNoCuts(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSceneList(&buf, []Scene{testScene(0, 50, 25)}, nil); err != nil {
		t.Fatalf("write: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want header plus one scene:\n%s", len(lines), buf.String())
	}
	if strings.HasPrefix(lines[0], "Cut List:") {
		t.Error("cut row written for empty cut list")
	}
}

func TestSceneAccessors(t *testing.T) {
	s := testScene(30, 120, 30)
	if s.StartFrame() != 30 || s.EndFrame() != 120 || s.LenFrames() != 90 {
		t.Fatalf("scene = %v", s)
	}
	if got := s.String(); !strings.Contains(got, "[30, 120)") {
		t.Fatalf("String() = %q", got)
	}
}
