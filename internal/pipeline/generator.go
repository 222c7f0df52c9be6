// Package pipeline wires tile planning, parallel per-tile processing, and
// seam blending into a single split-process-merge run.
package pipeline

import (
	"context"
	"fmt"
	"sort"

	"log/slog"

	"github.com/MeKo-Tech/tilemerge/internal/composite"
	"github.com/MeKo-Tech/tilemerge/internal/raster"
	"github.com/MeKo-Tech/tilemerge/internal/tilegrid"
	"github.com/MeKo-Tech/tilemerge/internal/worker"
)

// Options configures a pipeline run.
type Options struct {
	TileWidth   int // Tile width in pixels
	TileHeight  int // Tile height in pixels
	MinOverlap  int // Minimum overlap between adjacent tiles in pixels
	BlendAmount int // Seam blend width in pixels (source scale)
	ScaleFactor int // Output scale factor; tile geometry and blend are scaled with it
	Workers     int // Parallel per-tile workers (default: 1)
}

// Generator runs the split-process-merge pipeline over in-memory images.
type Generator struct {
	processor  worker.Processor
	logger     *slog.Logger
	onProgress worker.ProgressFunc
	opts       Options
}

// NewGenerator prepares a pipeline. The processor may be nil, in which case
// tiles pass through unchanged (a pure split/merge round trip).
func NewGenerator(processor worker.Processor, opts Options, logger *slog.Logger) (*Generator, error) {
	if opts.TileWidth <= 0 || opts.TileHeight <= 0 {
		return nil, fmt.Errorf("tile size must be positive")
	}
	if opts.BlendAmount < 0 {
		return nil, fmt.Errorf("blend amount must be non-negative")
	}
	if opts.BlendAmount > opts.MinOverlap {
		return nil, fmt.Errorf("blend amount %d exceeds minimum overlap %d", opts.BlendAmount, opts.MinOverlap)
	}
	if opts.ScaleFactor <= 0 {
		opts.ScaleFactor = 1
	}

	return &Generator{
		processor: processor,
		opts:      opts,
		logger:    logger,
	}, nil
}

// SetProgress installs a progress callback invoked after each processed tile.
func (g *Generator) SetProgress(fn worker.ProgressFunc) {
	g.onProgress = fn
}

// Run splits src into overlapping tiles, processes them in parallel, and
// merges the results into a new canvas. The source buffer is not modified.
func (g *Generator) Run(ctx context.Context, src *raster.Buffer) (*raster.Buffer, error) {
	tiles, err := tilegrid.Plan(src.Width, src.Height, g.opts.TileWidth, g.opts.TileHeight, g.opts.MinOverlap)
	if err != nil {
		return nil, fmt.Errorf("failed to plan tile grid: %w", err)
	}
	g.log().Info("Planned tile grid",
		"image", fmt.Sprintf("%dx%d", src.Width, src.Height),
		"tile", fmt.Sprintf("%dx%d", g.opts.TileWidth, g.opts.TileHeight),
		"tiles", len(tiles))

	tasks := make([]worker.Task, len(tiles))
	for i, t := range tiles {
		img, err := src.Crop(t.Coords.Top, t.Coords.Left, t.Coords.Bottom, t.Coords.Right)
		if err != nil {
			return nil, fmt.Errorf("failed to crop tile %d: %w", i, err)
		}
		tasks[i] = worker.Task{Index: i, Tile: t, Image: img}
	}

	processed, err := g.processTiles(ctx, tasks)
	if err != nil {
		return nil, err
	}

	scale := g.opts.ScaleFactor
	merged := make([]composite.TileImage, len(processed))
	for i, r := range processed {
		tile := r.Task.Tile
		if scale > 1 {
			tile = tile.Scaled(scale)
		}
		merged[i] = composite.TileImage{Tile: tile, Image: r.Image}
	}

	canvas := raster.New(src.Width*scale, src.Height*scale, merged[0].Image.Channels)
	if err := composite.Merge(canvas, merged, g.opts.BlendAmount*scale); err != nil {
		return nil, fmt.Errorf("failed to merge tiles: %w", err)
	}

	g.log().Info("Merged tiles", "canvas", fmt.Sprintf("%dx%d", canvas.Width, canvas.Height),
		"blend", g.opts.BlendAmount*scale)
	return canvas, nil
}

// processTiles runs the per-tile stage. With a nil processor the tiles pass
// through unchanged. Results come back in completion order and are re-sorted
// into grid order via the task index before merging.
func (g *Generator) processTiles(ctx context.Context, tasks []worker.Task) ([]worker.Result, error) {
	if g.processor == nil {
		results := make([]worker.Result, len(tasks))
		for i, t := range tasks {
			results[i] = worker.Result{Task: t, Image: t.Image}
		}
		return results, nil
	}

	pool := worker.New(worker.Config{
		Workers:    g.opts.Workers,
		Processor:  g.processor,
		OnProgress: g.onProgress,
	})

	results := pool.Run(ctx, tasks)
	for _, r := range results {
		if r.Err != nil {
			return nil, fmt.Errorf("failed to process tile %s: %w", r.Task.Tile.Coords, r.Err)
		}
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Task.Index < results[j].Task.Index
	})
	return results, nil
}

func (g *Generator) log() *slog.Logger {
	if g.logger != nil {
		return g.logger
	}
	return slog.Default()
}
