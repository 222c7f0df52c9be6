// Package process implements the per-tile processing stage that runs between
// splitting and merging: image filters and upscaling applied independently to
// each tile.
package process

import (
	"context"
	"fmt"
	"image"

	"github.com/disintegration/gift"

	"github.com/MeKo-Tech/tilemerge/internal/raster"
	"github.com/MeKo-Tech/tilemerge/internal/tilegrid"
)

// Filter applies a gift filter chain to each tile. Output dimensions equal
// input dimensions, so tile geometry is unchanged.
type Filter struct {
	g    *gift.GIFT
	name string
}

// NewFilter builds a named filter. Strength is filter-specific: blur/sharpen
// sigma, contrast/saturation percentage.
func NewFilter(name string, strength float32) (*Filter, error) {
	var f gift.Filter
	switch name {
	case "blur":
		f = gift.GaussianBlur(strength)
	case "sharpen":
		f = gift.UnsharpMask(strength, 1.0, 0.05)
	case "contrast":
		f = gift.Contrast(strength)
	case "saturation":
		f = gift.Saturation(strength)
	case "grayscale":
		f = gift.Grayscale()
	default:
		return nil, fmt.Errorf("unknown filter %q", name)
	}

	return &Filter{g: gift.New(f), name: name}, nil
}

// Name returns the filter name.
func (f *Filter) Name() string {
	return f.name
}

// Process applies the filter chain to one tile image.
func (f *Filter) Process(ctx context.Context, _ tilegrid.Tile, img *raster.Buffer) (*raster.Buffer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	src, err := img.ToImage()
	if err != nil {
		return nil, fmt.Errorf("filter %s: %w", f.name, err)
	}

	bounds := f.g.Bounds(src.Bounds())
	var dst image.Image
	if img.Channels == 1 {
		gray := image.NewGray(bounds)
		f.g.Draw(gray, src)
		dst = gray
	} else {
		nrgba := image.NewNRGBA(bounds)
		f.g.Draw(nrgba, src)
		dst = nrgba
	}

	return raster.FromImage(dst), nil
}
