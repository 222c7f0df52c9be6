// Package composite merges processed image tiles into a single canvas,
// blending overlapping seams with a linear alpha ramp.
package composite

import (
	"errors"
	"fmt"

	"github.com/MeKo-Tech/tilemerge/internal/raster"
	"github.com/MeKo-Tech/tilemerge/internal/tilegrid"
)

// ErrChannelMismatch is returned when the tile buffers do not agree on
// channel count, or do not match the canvas.
var ErrChannelMismatch = errors.New("tile channel mismatch")

// ErrInsufficientOverlap is returned when the requested blend amount exceeds
// the recorded overlap between two adjacent tiles present in the merge set.
var ErrInsufficientOverlap = errors.New("insufficient tile overlap for blend amount")

// TileImage pairs a tile descriptor with its processed pixel buffer.
// The buffer dimensions must match the tile rectangle.
type TileImage struct {
	Tile  tilegrid.Tile
	Image *raster.Buffer
}

// Merge composites all tiles into the canvas, mutating it in place.
//
// Tiles are written in the order supplied by the caller; seams against
// already-written tiles are blended across a strip of blendAmount pixels with
// a linear alpha ramp (0 at the outer edge of the incoming tile, 1 at the
// inner end of the strip). Where a vertical and a horizontal strip meet, the
// vertical ramp is applied first and the horizontal second, so corners fall
// off multiplicatively. The result at a seam depends on which tile was
// written first there; any order produces a seam-free image.
//
// The canvas may be partially written when an error is returned.
func Merge(canvas *raster.Buffer, tiles []TileImage, blendAmount int) error {
	if len(tiles) == 0 {
		return fmt.Errorf("no tiles to merge")
	}
	if blendAmount < 0 {
		return fmt.Errorf("blend amount %d must be non-negative", blendAmount)
	}

	channels := tiles[0].Image.Channels
	if canvas.Channels != channels {
		return fmt.Errorf("%w: canvas has %d channels, tiles have %d", ErrChannelMismatch, canvas.Channels, channels)
	}
	for i, ti := range tiles {
		if ti.Image.Channels != channels {
			return fmt.Errorf("%w: tile %d has %d channels, expected %d", ErrChannelMismatch, i, ti.Image.Channels, channels)
		}
		if ti.Image.Width != ti.Tile.Coords.Width() || ti.Image.Height != ti.Tile.Coords.Height() {
			return fmt.Errorf("tile %d image is %dx%d, tile rect %s is %dx%d",
				i, ti.Image.Width, ti.Image.Height, ti.Tile.Coords, ti.Tile.Coords.Width(), ti.Tile.Coords.Height())
		}
	}

	if err := checkOverlaps(tiles, blendAmount); err != nil {
		return err
	}

	written := make([]tilegrid.Rect, 0, len(tiles))
	for _, ti := range tiles {
		writeTile(canvas, ti, blendAmount, written)
		written = append(written, ti.Tile.Coords)
	}
	return nil
}

// checkOverlaps verifies that every edge shared between two tiles in the
// merge set has recorded overlap >= blendAmount. Adjacency is matched by
// coordinates, not by list order.
func checkOverlaps(tiles []TileImage, blendAmount int) error {
	for i := range tiles {
		for j := i + 1; j < len(tiles); j++ {
			a, b := tiles[i].Tile, tiles[j].Tile
			if b.Coords.Left < a.Coords.Left || b.Coords.Top < a.Coords.Top {
				a, b = b, a
			}
			if shared, ok := sharedEdge(a, b); ok && blendAmount > shared {
				return fmt.Errorf("%w: blend amount %d exceeds overlap %d between %s and %s",
					ErrInsufficientOverlap, blendAmount, shared, a.Coords, b.Coords)
			}
		}
	}
	return nil
}

// sharedEdge returns the recorded overlap on the edge shared by a and b,
// where a is the tile closer to the origin. Row neighbors share a vertical
// edge, column neighbors a horizontal one. Touching counts: neighbors from a
// zero-overlap grid record overlap 0, and a positive blend must still fail
// against them. Tiles that only meet diagonally at a corner share no edge.
func sharedEdge(a, b tilegrid.Tile) (int, bool) {
	sameRow := a.Coords.Top == b.Coords.Top && a.Coords.Bottom == b.Coords.Bottom
	sameCol := a.Coords.Left == b.Coords.Left && a.Coords.Right == b.Coords.Right

	if sameRow && a.Coords.Left < b.Coords.Left && a.Coords.Right >= b.Coords.Left {
		return b.Overlap.Left, true
	}
	if sameCol && a.Coords.Top < b.Coords.Top && a.Coords.Bottom >= b.Coords.Top {
		return b.Overlap.Top, true
	}
	return 0, false
}

// writeTile blends one tile into the canvas. Edges whose overlap region
// intersects an already-written tile get a linear ramp of width blendAmount;
// all other pixels are written unconditionally.
func writeTile(canvas *raster.Buffer, ti TileImage, blendAmount int, written []tilegrid.Rect) {
	coords := ti.Tile.Coords
	w := coords.Width()
	h := coords.Height()

	blendTop := blendEdge(ti, edgeTop, blendAmount, written)
	blendBottom := blendEdge(ti, edgeBottom, blendAmount, written)
	blendLeft := blendEdge(ti, edgeLeft, blendAmount, written)
	blendRight := blendEdge(ti, edgeRight, blendAmount, written)

	channels := canvas.Channels
	for y := 0; y < h; y++ {
		wy := 1.0
		if blendTop && y < blendAmount {
			wy *= rampAlpha(y, blendAmount)
		}
		if blendBottom && y >= h-blendAmount {
			wy *= rampAlpha(h-1-y, blendAmount)
		}

		srcRow := y * w * channels
		dstRow := canvas.PixOffset(coords.Left, coords.Top+y)
		for x := 0; x < w; x++ {
			alpha := wy
			if blendLeft && x < blendAmount {
				alpha *= rampAlpha(x, blendAmount)
			}
			if blendRight && x >= w-blendAmount {
				alpha *= rampAlpha(w-1-x, blendAmount)
			}

			src := srcRow + x*channels
			dst := dstRow + x*channels
			if alpha >= 1.0 {
				copy(canvas.Pix[dst:dst+channels], ti.Image.Pix[src:src+channels])
				continue
			}
			for c := 0; c < channels; c++ {
				v := float64(canvas.Pix[dst+c])*(1.0-alpha) + float64(ti.Image.Pix[src+c])*alpha
				canvas.Pix[dst+c] = raster.ClampUint8(v)
			}
		}
	}
}

type edge int

const (
	edgeTop edge = iota
	edgeBottom
	edgeLeft
	edgeRight
)

// blendEdge reports whether the given edge of the tile should be blended:
// the edge must have recorded overlap, and the overlap region must intersect
// a tile that has already been written to the canvas. Edges on the image
// boundary or against not-yet-written neighbors are written unconditionally.
func blendEdge(ti TileImage, e edge, blendAmount int, written []tilegrid.Rect) bool {
	if blendAmount == 0 {
		return false
	}

	coords := ti.Tile.Coords
	var region tilegrid.Rect
	switch e {
	case edgeTop:
		if ti.Tile.Overlap.Top == 0 {
			return false
		}
		region = tilegrid.Rect{Top: coords.Top, Left: coords.Left, Bottom: coords.Top + ti.Tile.Overlap.Top, Right: coords.Right}
	case edgeBottom:
		if ti.Tile.Overlap.Bottom == 0 {
			return false
		}
		region = tilegrid.Rect{Top: coords.Bottom - ti.Tile.Overlap.Bottom, Left: coords.Left, Bottom: coords.Bottom, Right: coords.Right}
	case edgeLeft:
		if ti.Tile.Overlap.Left == 0 {
			return false
		}
		region = tilegrid.Rect{Top: coords.Top, Left: coords.Left, Bottom: coords.Bottom, Right: coords.Left + ti.Tile.Overlap.Left}
	case edgeRight:
		if ti.Tile.Overlap.Right == 0 {
			return false
		}
		region = tilegrid.Rect{Top: coords.Top, Left: coords.Right - ti.Tile.Overlap.Right, Bottom: coords.Bottom, Right: coords.Right}
	}

	for _, r := range written {
		if region.Intersects(r) {
			return true
		}
	}
	return false
}

// rampAlpha returns the blend weight at position k within a strip of the
// given width, with k counted inward from the tile edge. The ramp runs
// linearly from 0 at the edge to 1 at the inner end of the strip. A
// single-pixel strip keeps the existing canvas value.
func rampAlpha(k, width int) float64 {
	if width <= 1 {
		return 0
	}
	return float64(k) / float64(width-1)
}
