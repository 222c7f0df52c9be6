package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MeKo-Tech/tilemerge/internal/tilegrid"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Compute the tile grid for an image size",
	Long: `Compute the coordinates and overlaps of the tiles that cover an image of
the given size, without touching any pixels. Tiles are listed in row-major
order.`,
	RunE: runPlan,
}

func init() {
	rootCmd.AddCommand(planCmd)

	planCmd.Flags().Int("image-width", 1024, "Image width in pixels")
	planCmd.Flags().Int("image-height", 1024, "Image height in pixels")
	planCmd.Flags().Int("tile-width", 576, "Tile width in pixels")
	planCmd.Flags().Int("tile-height", 576, "Tile height in pixels")
	planCmd.Flags().Int("min-overlap", 128, "Minimum overlap between adjacent tiles in pixels")
	planCmd.Flags().Bool("json", false, "Print the tile list as JSON")

	bindFlags := []struct {
		key  string
		flag string
	}{
		{"plan.image_width", "image-width"},
		{"plan.image_height", "image-height"},
		{"plan.tile_width", "tile-width"},
		{"plan.tile_height", "tile-height"},
		{"plan.min_overlap", "min-overlap"},
		{"plan.json", "json"},
	}

	for _, bf := range bindFlags {
		if err := viper.BindPFlag(bf.key, planCmd.Flags().Lookup(bf.flag)); err != nil {
			panic(fmt.Sprintf("failed to bind flag %s: %v", bf.flag, err))
		}
	}
}

func runPlan(cmd *cobra.Command, args []string) error {
	imageWidth := viper.GetInt("plan.image_width")
	imageHeight := viper.GetInt("plan.image_height")
	tileWidth := viper.GetInt("plan.tile_width")
	tileHeight := viper.GetInt("plan.tile_height")
	minOverlap := viper.GetInt("plan.min_overlap")
	asJSON := viper.GetBool("plan.json")

	tiles, err := tilegrid.Plan(imageWidth, imageHeight, tileWidth, tileHeight, minOverlap)
	if err != nil {
		return err
	}

	if asJSON {
		data, err := json.MarshalIndent(tiles, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal tiles: %w", err)
		}
		fmt.Println(string(data))
		return nil
	}

	fmt.Printf("%d tiles for %dx%d image (tile %dx%d, min overlap %d):\n",
		len(tiles), imageWidth, imageHeight, tileWidth, tileHeight, minOverlap)
	for i, t := range tiles {
		fmt.Printf("  %3d: %s\n", i, t)
	}
	return nil
}
