package process

import (
	"context"
	"fmt"
	"image"

	xdraw "golang.org/x/image/draw"

	"github.com/MeKo-Tech/tilemerge/internal/raster"
	"github.com/MeKo-Tech/tilemerge/internal/tilegrid"
)

// Upscaler scales each tile by an integer factor using Catmull-Rom
// resampling. Callers must scale the tile descriptors by the same factor
// (tilegrid.Tile.Scaled) before merging, so that tile rectangles keep
// matching their images.
type Upscaler struct {
	factor int
}

// NewUpscaler creates an upscaler with the given integer scale factor.
func NewUpscaler(factor int) (*Upscaler, error) {
	if factor < 1 {
		return nil, fmt.Errorf("scale factor %d must be >= 1", factor)
	}
	return &Upscaler{factor: factor}, nil
}

// Factor returns the scale factor.
func (u *Upscaler) Factor() int {
	return u.factor
}

// Process returns the tile image scaled by the configured factor.
func (u *Upscaler) Process(ctx context.Context, _ tilegrid.Tile, img *raster.Buffer) (*raster.Buffer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if u.factor == 1 {
		return img.Clone(), nil
	}

	src, err := img.ToImage()
	if err != nil {
		return nil, fmt.Errorf("upscale: %w", err)
	}

	bounds := image.Rect(0, 0, img.Width*u.factor, img.Height*u.factor)
	if img.Channels == 1 {
		dst := image.NewGray(bounds)
		xdraw.CatmullRom.Scale(dst, bounds, src, src.Bounds(), xdraw.Src, nil)
		return raster.FromImage(dst), nil
	}

	dst := image.NewNRGBA(bounds)
	xdraw.CatmullRom.Scale(dst, bounds, src, src.Bounds(), xdraw.Src, nil)
	return raster.FromImage(dst), nil
}

// Chain runs several processors in sequence over the same tile.
type Chain []processor

type processor interface {
	Process(ctx context.Context, tile tilegrid.Tile, img *raster.Buffer) (*raster.Buffer, error)
}

// Process feeds the output of each stage into the next.
func (c Chain) Process(ctx context.Context, tile tilegrid.Tile, img *raster.Buffer) (*raster.Buffer, error) {
	out := img
	for _, p := range c {
		var err error
		out, err = p.Process(ctx, tile, out)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}
