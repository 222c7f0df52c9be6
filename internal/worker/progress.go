package worker

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

const barWidth = 30

// Progress tracks the per-tile processing stage and renders a live progress
// bar on stderr. Updates arrive through the pool's progress callback,
// usually from another goroutine.
type Progress struct {
	startTime time.Time
	output    io.Writer
	total     int
	completed int
	failed    int
	mu        sync.RWMutex
	enabled   bool
}

// NewProgress creates a progress tracker for total tiles. With enabled false
// nothing is rendered; Summary still reports the counters.
func NewProgress(total int, enabled bool) *Progress {
	return &Progress{
		total:     total,
		startTime: time.Now(),
		output:    os.Stderr,
		enabled:   enabled,
	}
}

// Update records the state after another tile finished.
func (p *Progress) Update(completed, total, failed int) {
	p.mu.Lock()
	p.completed = completed
	p.total = total
	p.failed = failed
	p.mu.Unlock()

	if p.enabled {
		p.render()
	}
}

// Callback returns a ProgressFunc wired to Update, for use with Pool.
func (p *Progress) Callback() ProgressFunc {
	return p.Update
}

// snapshot returns a consistent view of the counters.
func (p *Progress) snapshot() (completed, total, failed int, elapsed time.Duration) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.completed, p.total, p.failed, time.Since(p.startTime)
}

// render redraws the progress line in place.
func (p *Progress) render() {
	completed, total, failed, elapsed := p.snapshot()

	var rate float64
	var avg time.Duration
	if completed > 0 && elapsed > 0 {
		rate = float64(completed) / elapsed.Seconds()
		avg = elapsed / time.Duration(completed)
	}

	line := fmt.Sprintf("\r[%s] %d/%d tiles", bar(completed, total), completed, total)
	if failed > 0 {
		line += fmt.Sprintf(" (%d failed)", failed)
	}
	if avg > 0 {
		line += fmt.Sprintf(" | %s/tile", avg.Round(time.Millisecond))
	}
	switch {
	case completed < total && rate > 0:
		remaining := time.Duration(float64(total-completed)/rate) * time.Second
		line += fmt.Sprintf(" | ETA %s", formatDuration(remaining))
	case completed == total && total > 0:
		line += fmt.Sprintf(" | done in %s", formatDuration(elapsed))
	}

	// Trailing spaces wipe leftovers from a longer previous line.
	fmt.Fprint(p.output, line+"          ")
}

// bar renders the filled/empty segments for the current completion ratio.
func bar(completed, total int) string {
	if total <= 0 {
		return strings.Repeat("░", barWidth)
	}
	filled := completed * barWidth / total
	if filled > barWidth {
		filled = barWidth
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)
}

// Done finishes the progress line with a newline.
func (p *Progress) Done() {
	if p.enabled {
		p.render()
		fmt.Fprintln(p.output)
	}
}

// Summary returns a one-line account of the finished stage.
func (p *Progress) Summary() string {
	completed, total, failed, elapsed := p.snapshot()
	succeeded := completed - failed

	var rate float64
	if elapsed > 0 {
		rate = float64(completed) / elapsed.Seconds()
	}

	return fmt.Sprintf("%d/%d tiles succeeded, %d failed, %s total (%.1f tiles/s)",
		succeeded, total, failed, formatDuration(elapsed), rate)
}

// formatDuration trims a duration to a coarse human-readable form.
func formatDuration(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%.0fs", d.Seconds())
	case d < time.Hour:
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	default:
		return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
	}
}
