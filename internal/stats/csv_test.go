package stats

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestCSVRoundTrip(t *testing.T) {
	r := NewRegistry()
	r.RegisterKeys("content_val", "luma_val")
	r.Record(0, "content_val", 0)
	r.Record(0, "luma_val", 128.5)
	r.Record(1, "content_val", 31.254)
	r.Record(1, "luma_val", 90)
	// Frame 2 has only one of the two keys.
	r.Record(2, "content_val", 4)

	var buf bytes.Buffer
	if err := r.SaveCSV(&buf, 29.97); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded := NewRegistry()
	if err := loaded.LoadCSV(&buf, 29.97); err != nil {
		t.Fatalf("load: %v", err)
	}

	if v, ok := loaded.Get(1, "content_val"); !ok || v != 31.254 {
		t.Errorf("loaded (1, content_val) = %v, %v; want 31.254, true", v, ok)
	}
	if v, ok := loaded.Get(0, "luma_val"); !ok || v != 128.5 {
		t.Errorf("loaded (0, luma_val) = %v, %v; want 128.5, true", v, ok)
	}
	if loaded.Has(2, "luma_val") {
		t.Error("empty cell loaded as a value")
	}
	if !loaded.Has(2, "content_val") {
		t.Error("partial row dropped on load")
	}
	if loaded.FrameCount() != 3 {
		t.Errorf("loaded frame count = %d, want 3", loaded.FrameCount())
	}
}

func TestCSVHeaderLayout(t *testing.T) {
	r := NewRegistry()
	r.Record(12, "content_val", 1.5)

	var buf bytes.Buffer
	if err := r.SaveCSV(&buf, 30); err != nil {
		t.Fatalf("save: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3:\n%s", len(lines), buf.String())
	}
	if !strings.HasPrefix(lines[0], "Frame Rate:,30") {
		t.Errorf("first line = %q, want frame rate row", lines[0])
	}
	if lines[1] != "Frame Number,Timecode,content_val" {
		t.Errorf("header = %q", lines[1])
	}
	if !strings.HasPrefix(lines[2], "12,00:00:00.400,") {
		t.Errorf("data row = %q", lines[2])
	}
}

func TestLoadCSVFrameRateMismatch(t *testing.T) {
	r := NewRegistry()
	r.Record(0, "content_val", 1)

	var buf bytes.Buffer
	if err := r.SaveCSV(&buf, 30); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded := NewRegistry()
	err := loaded.LoadCSV(&buf, 23.976)
	if !errors.Is(err, ErrFrameRateMismatch) {
		t.Fatalf("err = %v, want %v", err, ErrFrameRateMismatch)
	}
}

func TestLoadCSVCorruptInput(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"empty", ""},
		{"no rate row", "Frame Number,Timecode,content_val\n"},
		{"bad rate", "Frame Rate:,abc\nFrame Number,Timecode,content_val\n"},
		{"bad frame number", "Frame Rate:,30\nFrame Number,Timecode,content_val\nx,00:00:00.000,1\n"},
		{"bad value", "Frame Rate:,30\nFrame Number,Timecode,content_val\n0,00:00:00.000,nope\n"},
		{"short row", "Frame Rate:,30\nFrame Number,Timecode,content_val\n0,00:00:00.000\n"},
	}
	for _, tc := range cases {
		r := NewRegistry()
		err := r.LoadCSV(strings.NewReader(tc.body), 30)
		if !errors.Is(err, ErrCorruptStatsFile) {
			t.Errorf("%s: err = %v, want %v", tc.name, err, ErrCorruptStatsFile)
		}
	}
}
