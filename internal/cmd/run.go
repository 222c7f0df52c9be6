package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MeKo-Tech/tilemerge/internal/pipeline"
	"github.com/MeKo-Tech/tilemerge/internal/process"
	"github.com/MeKo-Tech/tilemerge/internal/raster"
	"github.com/MeKo-Tech/tilemerge/internal/worker"
)

var runCmd = &cobra.Command{
	Use:   "run <image>",
	Short: "Split, process, and merge an image in one pass",
	Long: `Run the full pipeline in memory: split the image into overlapping tiles,
process each tile in parallel (filter and/or upscale), and merge the
processed tiles back into one seamless image.`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().Int("tile-width", 576, "Tile width in pixels")
	runCmd.Flags().Int("tile-height", 576, "Tile height in pixels")
	runCmd.Flags().Int("min-overlap", 128, "Minimum overlap between adjacent tiles in pixels")
	runCmd.Flags().Int("blend", 64, "Seam blend width in pixels")
	runCmd.Flags().String("filter", "", "Per-tile filter: blur, sharpen, contrast, saturation, grayscale")
	runCmd.Flags().Float32("strength", 1.0, "Filter strength (sigma or percentage, filter-specific)")
	runCmd.Flags().Int("scale", 1, "Integer upscale factor applied per tile")
	runCmd.Flags().IntP("workers", "w", 0, "Number of parallel workers (default: number of CPUs)")
	runCmd.Flags().Bool("progress", true, "Show progress bar")
	runCmd.Flags().StringP("output", "o", "out.png", "Output image path")

	bindFlags := []struct {
		key  string
		flag string
	}{
		{"run.tile_width", "tile-width"},
		{"run.tile_height", "tile-height"},
		{"run.min_overlap", "min-overlap"},
		{"run.blend", "blend"},
		{"run.filter", "filter"},
		{"run.strength", "strength"},
		{"run.scale", "scale"},
		{"run.workers", "workers"},
		{"run.progress", "progress"},
		{"run.output", "output"},
	}

	for _, bf := range bindFlags {
		if err := viper.BindPFlag(bf.key, runCmd.Flags().Lookup(bf.flag)); err != nil {
			panic(fmt.Sprintf("failed to bind flag %s: %v", bf.flag, err))
		}
	}
}

func runRun(cmd *cobra.Command, args []string) error {
	filterName := viper.GetString("run.filter")
	strength := float32(viper.GetFloat64("run.strength"))
	scale := viper.GetInt("run.scale")
	workers := viper.GetInt("run.workers")
	showProgress := viper.GetBool("run.progress")
	output := viper.GetString("run.output")

	if logger == nil {
		initLogging()
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	processor, err := buildProcessor(filterName, strength, scale)
	if err != nil {
		return err
	}

	src, err := raster.LoadImage(args[0])
	if err != nil {
		return err
	}

	gen, err := pipeline.NewGenerator(processor, pipeline.Options{
		TileWidth:   viper.GetInt("run.tile_width"),
		TileHeight:  viper.GetInt("run.tile_height"),
		MinOverlap:  viper.GetInt("run.min_overlap"),
		BlendAmount: viper.GetInt("run.blend"),
		ScaleFactor: scale,
		Workers:     workers,
	}, logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("Interrupted, cancelling")
		cancel()
	}()

	if processor != nil {
		progress := worker.NewProgress(0, showProgress)
		gen.SetProgress(progress.Callback())
		defer progress.Done()
	}

	out, err := gen.Run(ctx, src)
	if err != nil {
		return err
	}

	if err := out.SavePNG(output); err != nil {
		return err
	}

	logger.Info("Wrote output image", "path", output,
		"size", fmt.Sprintf("%dx%d", out.Width, out.Height))
	return nil
}

// buildProcessor assembles the per-tile processing chain from the filter and
// scale flags. Returns nil when there is nothing to do per tile.
func buildProcessor(filterName string, strength float32, scale int) (worker.Processor, error) {
	var chain process.Chain

	if filterName != "" {
		filter, err := process.NewFilter(filterName, strength)
		if err != nil {
			return nil, err
		}
		chain = append(chain, filter)
	}

	if scale > 1 {
		upscaler, err := process.NewUpscaler(scale)
		if err != nil {
			return nil, err
		}
		chain = append(chain, upscaler)
	}

	if len(chain) == 0 {
		return nil, nil
	}
	return chain, nil
}
