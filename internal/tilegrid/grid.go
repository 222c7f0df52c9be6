// Package tilegrid computes overlapping tile grids that cover a raster image.
package tilegrid

import (
	"errors"
	"fmt"
)

// ErrInvalidGeometry is returned when the requested image/tile/overlap
// combination cannot produce a valid positive-stride grid.
var ErrInvalidGeometry = errors.New("invalid tile geometry")

// Rect is an axis-aligned rectangle in pixel coordinates.
// Bottom and Right are exclusive bounds.
type Rect struct {
	Top    int `json:"top"`
	Left   int `json:"left"`
	Bottom int `json:"bottom"`
	Right  int `json:"right"`
}

// Width returns the rectangle width in pixels.
func (r Rect) Width() int {
	return r.Right - r.Left
}

// Height returns the rectangle height in pixels.
func (r Rect) Height() int {
	return r.Bottom - r.Top
}

// Intersects reports whether r and other share at least one pixel.
func (r Rect) Intersects(other Rect) bool {
	return r.Left < other.Right && other.Left < r.Right &&
		r.Top < other.Bottom && other.Top < r.Bottom
}

// String returns a human-readable representation of the rectangle.
func (r Rect) String() string {
	return fmt.Sprintf("rect(t%d_l%d_b%d_r%d)", r.Top, r.Left, r.Bottom, r.Right)
}

// Overlap records the pixel overlap between a tile and each of its
// neighbors. An edge touching the image boundary has overlap 0.
type Overlap struct {
	Top    int `json:"top"`
	Bottom int `json:"bottom"`
	Left   int `json:"left"`
	Right  int `json:"right"`
}

// Tile is a rectangular sub-region of a larger image plus the overlap it
// shares with its grid neighbors. Tiles are value objects produced by Plan
// and must not be mutated afterwards.
type Tile struct {
	Coords  Rect    `json:"coords"`
	Overlap Overlap `json:"overlap"`
}

// String returns a human-readable representation of the tile.
func (t Tile) String() string {
	return fmt.Sprintf("tile(%s overlap(t%d_b%d_l%d_r%d))",
		t.Coords, t.Overlap.Top, t.Overlap.Bottom, t.Overlap.Left, t.Overlap.Right)
}

// Scaled returns a copy of the tile with all coordinates and overlaps
// multiplied by factor. Used when tiles are upscaled before merging, so
// that the merged canvas geometry matches the processed tile images.
func (t Tile) Scaled(factor int) Tile {
	return Tile{
		Coords: Rect{
			Top:    t.Coords.Top * factor,
			Left:   t.Coords.Left * factor,
			Bottom: t.Coords.Bottom * factor,
			Right:  t.Coords.Right * factor,
		},
		Overlap: Overlap{
			Top:    t.Overlap.Top * factor,
			Bottom: t.Overlap.Bottom * factor,
			Left:   t.Overlap.Left * factor,
			Right:  t.Overlap.Right * factor,
		},
	}
}

// Plan computes the grid of overlapping tiles covering an imageWidth x
// imageHeight image. Adjacent tiles overlap by at least minOverlap pixels;
// the last tile in each row/column is clamped flush against the image
// boundary, which can increase its actual overlap beyond minOverlap.
//
// Tiles are returned in row-major order (row 0 left-to-right, then row 1, ...).
func Plan(imageWidth, imageHeight, tileWidth, tileHeight, minOverlap int) ([]Tile, error) {
	if imageWidth <= 0 || imageHeight <= 0 {
		return nil, fmt.Errorf("%w: image size %dx%d must be positive", ErrInvalidGeometry, imageWidth, imageHeight)
	}
	if tileWidth <= 0 || tileHeight <= 0 {
		return nil, fmt.Errorf("%w: tile size %dx%d must be positive", ErrInvalidGeometry, tileWidth, tileHeight)
	}
	if minOverlap < 0 {
		return nil, fmt.Errorf("%w: overlap %d must be non-negative", ErrInvalidGeometry, minOverlap)
	}
	if tileWidth > imageWidth || tileHeight > imageHeight {
		return nil, fmt.Errorf("%w: tile size %dx%d exceeds image size %dx%d",
			ErrInvalidGeometry, tileWidth, tileHeight, imageWidth, imageHeight)
	}

	colStarts, err := axisStarts(imageWidth, tileWidth, minOverlap)
	if err != nil {
		return nil, err
	}
	rowStarts, err := axisStarts(imageHeight, tileHeight, minOverlap)
	if err != nil {
		return nil, err
	}

	tiles := make([]Tile, 0, len(rowStarts)*len(colStarts))
	for row, top := range rowStarts {
		for col, left := range colStarts {
			t := Tile{
				Coords: Rect{
					Top:    top,
					Left:   left,
					Bottom: top + tileHeight,
					Right:  left + tileWidth,
				},
			}
			// Recorded overlaps are the actual overlaps between the
			// clamped rectangles, not the nominal minOverlap.
			if row > 0 {
				t.Overlap.Top = rowStarts[row-1] + tileHeight - top
			}
			if row < len(rowStarts)-1 {
				t.Overlap.Bottom = top + tileHeight - rowStarts[row+1]
			}
			if col > 0 {
				t.Overlap.Left = colStarts[col-1] + tileWidth - left
			}
			if col < len(colStarts)-1 {
				t.Overlap.Right = left + tileWidth - colStarts[col+1]
			}
			tiles = append(tiles, t)
		}
	}
	return tiles, nil
}

// axisStarts returns the start offset of each tile along one axis.
// The final start is clamped so the last tile ends exactly at imageDim.
func axisStarts(imageDim, tileDim, minOverlap int) ([]int, error) {
	if imageDim == tileDim {
		return []int{0}, nil
	}

	stride := tileDim - minOverlap
	if stride <= 0 {
		return nil, fmt.Errorf("%w: overlap %d leaves no stride for tile size %d",
			ErrInvalidGeometry, minOverlap, tileDim)
	}

	num := ceilDiv(imageDim-tileDim, stride) + 1
	starts := make([]int, num)
	for i := range starts {
		start := i * stride
		if start > imageDim-tileDim {
			start = imageDim - tileDim
		}
		starts[i] = start
	}
	return starts, nil
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}
