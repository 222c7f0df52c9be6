// Package worker provides a parallel per-tile processing pool.
//
// Only the per-tile stage runs in parallel; merging the processed tiles back
// into one canvas is order-sensitive at the seams and stays sequential.
package worker

import (
	"context"
	"sync"
	"time"

	"github.com/MeKo-Tech/tilemerge/internal/raster"
	"github.com/MeKo-Tech/tilemerge/internal/tilegrid"
)

// Processor transforms a single tile image. Implementations must not mutate
// the input buffer; they return a new buffer (which may have different
// dimensions, e.g. when upscaling).
type Processor interface {
	Process(ctx context.Context, tile tilegrid.Tile, img *raster.Buffer) (*raster.Buffer, error)
}

// Task represents a single tile processing task.
type Task struct {
	Image *raster.Buffer
	Tile  tilegrid.Tile
	Index int
}

// Result represents the outcome of a tile processing task.
type Result struct {
	Task    Task
	Image   *raster.Buffer
	Err     error
	Elapsed time.Duration
}

// ProgressFunc is called after each task completes.
type ProgressFunc func(completed, total, failed int)

// Config configures the worker pool.
type Config struct {
	Processor  Processor
	OnProgress ProgressFunc
	Workers    int
}

// Pool manages parallel tile processing.
type Pool struct {
	processor  Processor
	onProgress ProgressFunc
	workers    int
}

// New creates a new worker pool.
func New(cfg Config) *Pool {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}

	return &Pool{
		workers:    workers,
		processor:  cfg.Processor,
		onProgress: cfg.OnProgress,
	}
}

// Run executes all tasks and returns results. Results are appended in
// completion order, not task order; callers correlate them through
// Result.Task. The function blocks until all tasks complete or the context
// is cancelled.
func (p *Pool) Run(ctx context.Context, tasks []Task) []Result {
	if len(tasks) == 0 {
		return nil
	}

	taskCh := make(chan Task, len(tasks))
	resultCh := make(chan Result, len(tasks))

	var (
		completed int
		failed    int
		mu        sync.Mutex
	)

	var wg sync.WaitGroup
	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.worker(ctx, taskCh, resultCh)
		}()
	}

	go func() {
		for _, task := range tasks {
			select {
			case taskCh <- task:
			case <-ctx.Done():
				// Context cancelled, stop feeding
				break
			}
		}
		close(taskCh)
	}()

	results := make([]Result, 0, len(tasks))
	done := make(chan struct{})

	go func() {
		for result := range resultCh {
			results = append(results, result)

			mu.Lock()
			completed++
			if result.Err != nil {
				failed++
			}
			c, f := completed, failed
			mu.Unlock()

			if p.onProgress != nil {
				p.onProgress(c, len(tasks), f)
			}
		}
		close(done)
	}()

	wg.Wait()
	close(resultCh)
	<-done

	return results
}

// worker processes tasks from the task channel and sends results to the result channel.
func (p *Pool) worker(ctx context.Context, tasks <-chan Task, results chan<- Result) {
	for task := range tasks {
		select {
		case <-ctx.Done():
			results <- Result{
				Task: task,
				Err:  ctx.Err(),
			}
			continue
		default:
		}

		start := time.Now()
		img, err := p.processor.Process(ctx, task.Tile, task.Image)
		elapsed := time.Since(start)

		results <- Result{
			Task:    task,
			Image:   img,
			Err:     err,
			Elapsed: elapsed,
		}
	}
}
