// Package synth generates deterministic synthetic images: Perlin noise and
// flat/gradient fills. Used by the synth command and as pipeline test input.
package synth

import (
	"image/color"
	"math"

	"github.com/aquilax/go-perlin"

	"github.com/MeKo-Tech/tilemerge/internal/raster"
)

// Solid returns a buffer filled with a single color.
func Solid(width, height int, c color.NRGBA) *raster.Buffer {
	buf := raster.New(width, height, 4)
	for p := 0; p < width*height; p++ {
		buf.Pix[p*4] = c.R
		buf.Pix[p*4+1] = c.G
		buf.Pix[p*4+2] = c.B
		buf.Pix[p*4+3] = c.A
	}
	return buf
}

// HorizontalGradient returns a buffer fading linearly from one color at the
// left edge to another at the right edge.
func HorizontalGradient(width, height int, from, to color.NRGBA) *raster.Buffer {
	buf := raster.New(width, height, 4)
	for x := 0; x < width; x++ {
		t := 0.0
		if width > 1 {
			t = float64(x) / float64(width-1)
		}
		r := raster.ClampUint8(float64(from.R)*(1-t) + float64(to.R)*t)
		g := raster.ClampUint8(float64(from.G)*(1-t) + float64(to.G)*t)
		b := raster.ClampUint8(float64(from.B)*(1-t) + float64(to.B)*t)
		a := raster.ClampUint8(float64(from.A)*(1-t) + float64(to.A)*t)
		for y := 0; y < height; y++ {
			i := buf.PixOffset(x, y)
			buf.Pix[i] = r
			buf.Pix[i+1] = g
			buf.Pix[i+2] = b
			buf.Pix[i+3] = a
		}
	}
	return buf
}

// PerlinNoise generates a grayscale Perlin noise buffer. Scale controls the
// noise frequency (smaller = more detail); the same seed always produces the
// same image.
func PerlinNoise(width, height int, scale float64, seed int64) *raster.Buffer {
	// alpha: persistence, beta: lacunarity, n: octaves
	p := perlin.NewPerlin(2.0, 2.0, 3, seed)

	buf := raster.New(width, height, 1)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			nx := float64(x) / scale
			ny := float64(y) / scale

			// Noise2D is in roughly [-1, 1]
			val := p.Noise2D(nx, ny)
			normalized := (val + 1.0) / 2.0
			buf.Pix[y*width+x] = uint8(math.Max(0, math.Min(255, normalized*255)))
		}
	}
	return buf
}

// PerlinRGB generates a color Perlin noise buffer by sampling three
// decorrelated noise fields (seed, seed+1, seed+2) for the RGB channels.
func PerlinRGB(width, height int, scale float64, seed int64) *raster.Buffer {
	planes := [3]*raster.Buffer{
		PerlinNoise(width, height, scale, seed),
		PerlinNoise(width, height, scale, seed+1),
		PerlinNoise(width, height, scale, seed+2),
	}

	buf := raster.New(width, height, 4)
	for p := 0; p < width*height; p++ {
		buf.Pix[p*4] = planes[0].Pix[p]
		buf.Pix[p*4+1] = planes[1].Pix[p]
		buf.Pix[p*4+2] = planes[2].Pix[p]
		buf.Pix[p*4+3] = 255
	}
	return buf
}
