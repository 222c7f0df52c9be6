package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MeKo-Tech/tilemerge/internal/composite"
	"github.com/MeKo-Tech/tilemerge/internal/raster"
	"github.com/MeKo-Tech/tilemerge/internal/tilestore"
)

var mergeCmd = &cobra.Command{
	Use:   "merge <tilestore>",
	Short: "Merge a tile store back into a single image",
	Long: `Read all tiles from a tile store and composite them into one seamless
image, blending the overlap regions with a linear alpha ramp of the given
width.`,
	Args: cobra.ExactArgs(1),
	RunE: runMerge,
}

func init() {
	rootCmd.AddCommand(mergeCmd)

	mergeCmd.Flags().Int("blend", 64, "Seam blend width in pixels (must not exceed tile overlap)")
	mergeCmd.Flags().StringP("output", "o", "merged.png", "Output image path")

	bindFlags := []struct {
		key  string
		flag string
	}{
		{"merge.blend", "blend"},
		{"merge.output", "output"},
	}

	for _, bf := range bindFlags {
		if err := viper.BindPFlag(bf.key, mergeCmd.Flags().Lookup(bf.flag)); err != nil {
			panic(fmt.Sprintf("failed to bind flag %s: %v", bf.flag, err))
		}
	}
}

func runMerge(cmd *cobra.Command, args []string) error {
	blend := viper.GetInt("merge.blend")
	output := viper.GetString("merge.output")

	if logger == nil {
		initLogging()
	}

	reader, err := tilestore.OpenReader(args[0])
	if err != nil {
		return err
	}
	defer reader.Close() // nolint:errcheck

	grid, err := reader.Grid()
	if err != nil {
		return err
	}
	if grid.ImageWidth <= 0 || grid.ImageHeight <= 0 {
		return fmt.Errorf("tile store %s has no image dimensions in metadata", args[0])
	}

	stored, err := reader.ReadAll()
	if err != nil {
		return err
	}
	if len(stored) == 0 {
		return fmt.Errorf("tile store %s contains no tiles", args[0])
	}
	logger.Info("Read tile store", "path", args[0], "tiles", len(stored))

	tiles := make([]composite.TileImage, len(stored))
	for i, st := range stored {
		img, err := raster.DecodePNG(st.Data)
		if err != nil {
			return fmt.Errorf("failed to decode tile %d/%d: %w", st.Col, st.Row, err)
		}
		tiles[i] = composite.TileImage{Tile: st.Tile, Image: img}
	}

	canvas := raster.New(grid.ImageWidth, grid.ImageHeight, tiles[0].Image.Channels)
	if err := composite.Merge(canvas, tiles, blend); err != nil {
		return err
	}

	if err := canvas.SavePNG(output); err != nil {
		return err
	}

	logger.Info("Wrote merged image", "path", output,
		"size", fmt.Sprintf("%dx%d", canvas.Width, canvas.Height), "blend", blend)
	return nil
}
