// Package raster provides the interleaved 8-bit pixel buffers that tiles
// and the merge canvas are built on.
package raster

import (
	"fmt"
	"image"
	"image/color"
	"math"
)

// Buffer is a Height x Width x Channels sample buffer with 8-bit channels,
// stored row-major with interleaved channels. A 3-channel buffer is RGB,
// a 4-channel buffer is non-premultiplied RGBA, a 1-channel buffer is
// grayscale.
type Buffer struct {
	Width    int
	Height   int
	Channels int
	Pix      []uint8
}

// New allocates a zero-initialized buffer.
func New(width, height, channels int) *Buffer {
	return &Buffer{
		Width:    width,
		Height:   height,
		Channels: channels,
		Pix:      make([]uint8, width*height*channels),
	}
}

// FromImage converts a decoded image into a buffer. Grayscale images become
// 1-channel buffers; everything else becomes a 4-channel NRGBA buffer.
func FromImage(img image.Image) *Buffer {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	if gray, ok := img.(*image.Gray); ok {
		buf := New(w, h, 1)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				buf.Pix[y*w+x] = gray.GrayAt(bounds.Min.X+x, bounds.Min.Y+y).Y
			}
		}
		return buf
	}

	buf := New(w, h, 4)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := color.NRGBAModel.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.NRGBA)
			i := (y*w + x) * 4
			buf.Pix[i] = c.R
			buf.Pix[i+1] = c.G
			buf.Pix[i+2] = c.B
			buf.Pix[i+3] = c.A
		}
	}
	return buf
}

// ToImage converts the buffer back to a standard image. 1-channel buffers
// become *image.Gray, 3- and 4-channel buffers become *image.NRGBA (RGB
// buffers get an opaque alpha channel).
func (b *Buffer) ToImage() (image.Image, error) {
	switch b.Channels {
	case 1:
		img := image.NewGray(image.Rect(0, 0, b.Width, b.Height))
		copy(img.Pix, b.Pix)
		return img, nil
	case 3:
		img := image.NewNRGBA(image.Rect(0, 0, b.Width, b.Height))
		for p := 0; p < b.Width*b.Height; p++ {
			img.Pix[p*4] = b.Pix[p*3]
			img.Pix[p*4+1] = b.Pix[p*3+1]
			img.Pix[p*4+2] = b.Pix[p*3+2]
			img.Pix[p*4+3] = 255
		}
		return img, nil
	case 4:
		img := image.NewNRGBA(image.Rect(0, 0, b.Width, b.Height))
		copy(img.Pix, b.Pix)
		return img, nil
	default:
		return nil, fmt.Errorf("cannot convert %d-channel buffer to image", b.Channels)
	}
}

// PixOffset returns the index of the first channel of the pixel at (x, y).
func (b *Buffer) PixOffset(x, y int) int {
	return (y*b.Width + x) * b.Channels
}

// Crop returns a copy of the region [left, right) x [top, bottom).
// The region must lie within the buffer.
func (b *Buffer) Crop(top, left, bottom, right int) (*Buffer, error) {
	if top < 0 || left < 0 || bottom > b.Height || right > b.Width || top >= bottom || left >= right {
		return nil, fmt.Errorf("crop region (t%d l%d b%d r%d) outside %dx%d buffer",
			top, left, bottom, right, b.Width, b.Height)
	}

	out := New(right-left, bottom-top, b.Channels)
	rowLen := (right - left) * b.Channels
	for y := top; y < bottom; y++ {
		src := b.PixOffset(left, y)
		dst := (y - top) * rowLen
		copy(out.Pix[dst:dst+rowLen], b.Pix[src:src+rowLen])
	}
	return out, nil
}

// Clone returns a deep copy of the buffer.
func (b *Buffer) Clone() *Buffer {
	out := New(b.Width, b.Height, b.Channels)
	copy(out.Pix, b.Pix)
	return out
}

// ClampUint8 rounds v to the nearest integer and clamps it into [0, 255].
// Blending arithmetic must clamp rather than wrap on overflow.
func ClampUint8(v float64) uint8 {
	r := math.Round(v)
	if r < 0 {
		return 0
	}
	if r > 255 {
		return 255
	}
	return uint8(r)
}
