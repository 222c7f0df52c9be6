package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MeKo-Tech/tilemerge/internal/raster"
	"github.com/MeKo-Tech/tilemerge/internal/tilegrid"
	"github.com/MeKo-Tech/tilemerge/internal/tilestore"
)

var splitCmd = &cobra.Command{
	Use:   "split <image>",
	Short: "Split an image into overlapping tiles",
	Long: `Split an image into a grid of overlapping tiles and write them, together
with the grid geometry, into a SQLite tile store. The store can be merged
back into a seamless image with the merge command.`,
	Args: cobra.ExactArgs(1),
	RunE: runSplit,
}

func init() {
	rootCmd.AddCommand(splitCmd)

	splitCmd.Flags().Int("tile-width", 576, "Tile width in pixels")
	splitCmd.Flags().Int("tile-height", 576, "Tile height in pixels")
	splitCmd.Flags().Int("min-overlap", 128, "Minimum overlap between adjacent tiles in pixels")
	splitCmd.Flags().StringP("output", "o", "tiles.db", "Output tile store path")

	bindFlags := []struct {
		key  string
		flag string
	}{
		{"split.tile_width", "tile-width"},
		{"split.tile_height", "tile-height"},
		{"split.min_overlap", "min-overlap"},
		{"split.output", "output"},
	}

	for _, bf := range bindFlags {
		if err := viper.BindPFlag(bf.key, splitCmd.Flags().Lookup(bf.flag)); err != nil {
			panic(fmt.Sprintf("failed to bind flag %s: %v", bf.flag, err))
		}
	}
}

func runSplit(cmd *cobra.Command, args []string) error {
	tileWidth := viper.GetInt("split.tile_width")
	tileHeight := viper.GetInt("split.tile_height")
	minOverlap := viper.GetInt("split.min_overlap")
	output := viper.GetString("split.output")

	if logger == nil {
		initLogging()
	}

	src, err := raster.LoadImage(args[0])
	if err != nil {
		return err
	}

	tiles, err := tilegrid.Plan(src.Width, src.Height, tileWidth, tileHeight, minOverlap)
	if err != nil {
		return err
	}
	logger.Info("Planned tile grid", "image", args[0], "tiles", len(tiles))

	writer, err := tilestore.New(output, tilestore.Grid{
		ImageWidth:  src.Width,
		ImageHeight: src.Height,
		TileWidth:   tileWidth,
		TileHeight:  tileHeight,
		MinOverlap:  minOverlap,
		Format:      "png",
	})
	if err != nil {
		return err
	}
	defer writer.Close() // nolint:errcheck

	cols := 0
	for _, t := range tiles {
		if t.Coords.Top == tiles[0].Coords.Top {
			cols++
		}
	}

	for i, t := range tiles {
		img, err := src.Crop(t.Coords.Top, t.Coords.Left, t.Coords.Bottom, t.Coords.Right)
		if err != nil {
			return fmt.Errorf("failed to crop tile %d: %w", i, err)
		}

		data, err := img.EncodePNG()
		if err != nil {
			return fmt.Errorf("failed to encode tile %d: %w", i, err)
		}

		if err := writer.WriteTile(i%cols, i/cols, t, data); err != nil {
			return fmt.Errorf("failed to store tile %d: %w", i, err)
		}
	}

	if err := writer.Flush(); err != nil {
		return err
	}

	logger.Info("Wrote tile store", "path", output, "tiles", len(tiles))
	return nil
}
