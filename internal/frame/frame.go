package frame

import (
	"fmt"
	"image"
	"image/color"
)

// Channels is the number of color channels per pixel. Frames are packed RGB.
const Channels = 3

// Frame is a decoded video frame: an RGB pixel buffer plus the 0-based frame
// index it was decoded at. The buffer is owned by the frame source; detectors
// only hold it transiently while scoring.
type Frame struct {
	Num    int64
	Width  int
	Height int
	Pix    []uint8 // packed RGB, len == Width*Height*Channels
}

// New allocates a zeroed frame of the given dimensions.
func New(num int64, width, height int) *Frame {
	return &Frame{
		Num:    num,
		Width:  width,
		Height: height,
		Pix:    make([]uint8, width*height*Channels),
	}
}

// Validate checks that the buffer length matches the declared dimensions.
func (f *Frame) Validate() error {
	if f.Width <= 0 || f.Height <= 0 {
		return fmt.Errorf("invalid frame dimensions %dx%d", f.Width, f.Height)
	}
	if len(f.Pix) != f.Width*f.Height*Channels {
		return fmt.Errorf("frame %d: buffer length %d does not match %dx%dx%d",
			f.Num, len(f.Pix), f.Width, f.Height, Channels)
	}
	return nil
}

// RGB returns the pixel at (x, y).
func (f *Frame) RGB(x, y int) (r, g, b uint8) {
	i := (y*f.Width + x) * Channels
	return f.Pix[i], f.Pix[i+1], f.Pix[i+2]
}

// Subsample returns a frame downscaled by keeping every factor-th pixel in
// both dimensions. A factor <= 1 returns the receiver unchanged.
func (f *Frame) Subsample(factor int) *Frame {
	if factor <= 1 {
		return f
	}
	w := (f.Width + factor - 1) / factor
	h := (f.Height + factor - 1) / factor
	out := New(f.Num, w, h)
	for y := 0; y < h; y++ {
		srcRow := y * factor * f.Width * Channels
		dstRow := y * w * Channels
		for x := 0; x < w; x++ {
			src := srcRow + x*factor*Channels
			dst := dstRow + x*Channels
			out.Pix[dst] = f.Pix[src]
			out.Pix[dst+1] = f.Pix[src+1]
			out.Pix[dst+2] = f.Pix[src+2]
		}
	}
	return out
}

// ToImage copies the frame into an image.RGBA for encoding or resizing.
func (f *Frame) ToImage() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, f.Width, f.Height))
	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			r, g, b := f.RGB(x, y)
			img.SetRGBA(x, y, color.RGBA{R: r, G: g, B: b, A: 255})
		}
	}
	return img
}

// FromImage converts an image into a packed RGB frame with the given index.
func FromImage(num int64, img image.Image) *Frame {
	bounds := img.Bounds()
	f := New(num, bounds.Dx(), bounds.Dy())
	i := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			f.Pix[i] = uint8(r >> 8)
			f.Pix[i+1] = uint8(g >> 8)
			f.Pix[i+2] = uint8(b >> 8)
			i += Channels
		}
	}
	return f
}
