// Package tilestore persists planned tile grids and their tile images in a
// SQLite database, so that per-tile processing and the final merge can run
// as separate steps (or separate processes).
package tilestore

import "fmt"

// Grid describes the tile grid stored in a database.
type Grid struct {
	ImageWidth  int // Source image width in pixels
	ImageHeight int // Source image height in pixels
	TileWidth   int // Tile width in pixels
	TileHeight  int // Tile height in pixels
	MinOverlap  int // Requested minimum overlap in pixels
	Format      string
}

// ToMap converts the grid description to a map for metadata insertion.
func (g Grid) ToMap() map[string]string {
	result := map[string]string{
		"image_width":  fmt.Sprintf("%d", g.ImageWidth),
		"image_height": fmt.Sprintf("%d", g.ImageHeight),
		"tile_width":   fmt.Sprintf("%d", g.TileWidth),
		"tile_height":  fmt.Sprintf("%d", g.TileHeight),
		"min_overlap":  fmt.Sprintf("%d", g.MinOverlap),
	}
	if g.Format != "" {
		result["format"] = g.Format
	}
	return result
}
