package process

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/tilemerge/internal/raster"
	"github.com/MeKo-Tech/tilemerge/internal/tilegrid"
)

func solidBuffer(width, height, channels int, value uint8) *raster.Buffer {
	buf := raster.New(width, height, channels)
	for i := range buf.Pix {
		buf.Pix[i] = value
	}
	return buf
}

func TestNewFilterKnownNames(t *testing.T) {
	for _, name := range []string{"blur", "sharpen", "contrast", "saturation", "grayscale"} {
		f, err := NewFilter(name, 1.0)
		require.NoError(t, err, name)
		require.Equal(t, name, f.Name())
	}
}

func TestNewFilterUnknown(t *testing.T) {
	_, err := NewFilter("emboss", 1.0)
	require.Error(t, err)
}

func TestFilterPreservesGeometry(t *testing.T) {
	f, err := NewFilter("blur", 2.0)
	require.NoError(t, err)

	in := solidBuffer(16, 12, 4, 100)
	out, err := f.Process(context.Background(), tilegrid.Tile{}, in)
	require.NoError(t, err)

	require.Equal(t, 16, out.Width)
	require.Equal(t, 12, out.Height)
	require.Equal(t, 4, out.Channels)
}

func TestFilterGrayTile(t *testing.T) {
	f, err := NewFilter("blur", 1.0)
	require.NoError(t, err)

	in := solidBuffer(8, 8, 1, 77)
	out, err := f.Process(context.Background(), tilegrid.Tile{}, in)
	require.NoError(t, err)

	require.Equal(t, 1, out.Channels)
	// Blurring a uniform tile changes nothing.
	require.Equal(t, in.Pix, out.Pix)
}

func TestFilterContextCancelled(t *testing.T) {
	f, err := NewFilter("blur", 1.0)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = f.Process(ctx, tilegrid.Tile{}, solidBuffer(4, 4, 1, 0))
	require.ErrorIs(t, err, context.Canceled)
}

func TestNewUpscalerInvalidFactor(t *testing.T) {
	_, err := NewUpscaler(0)
	require.Error(t, err)
	_, err = NewUpscaler(-2)
	require.Error(t, err)
}

func TestUpscalerFactorOne(t *testing.T) {
	u, err := NewUpscaler(1)
	require.NoError(t, err)
	require.Equal(t, 1, u.Factor())

	in := solidBuffer(6, 4, 4, 42)
	out, err := u.Process(context.Background(), tilegrid.Tile{}, in)
	require.NoError(t, err)

	require.Equal(t, in.Pix, out.Pix)

	// Output must be a copy, not the same buffer.
	out.Pix[0] = 0
	require.EqualValues(t, 42, in.Pix[0])
}

func TestUpscalerScalesDimensions(t *testing.T) {
	u, err := NewUpscaler(2)
	require.NoError(t, err)

	for _, channels := range []int{1, 4} {
		in := solidBuffer(8, 6, channels, 128)
		out, err := u.Process(context.Background(), tilegrid.Tile{}, in)
		require.NoError(t, err)

		require.Equal(t, 16, out.Width)
		require.Equal(t, 12, out.Height)
		require.Equal(t, channels, out.Channels)

		// Resampling a uniform tile keeps it uniform.
		for i := range out.Pix {
			require.EqualValues(t, 128, out.Pix[i])
		}
	}
}

func TestChainRunsStagesInOrder(t *testing.T) {
	f, err := NewFilter("blur", 1.0)
	require.NoError(t, err)
	u, err := NewUpscaler(2)
	require.NoError(t, err)

	chain := Chain{f, u}
	in := solidBuffer(8, 8, 4, 60)
	out, err := chain.Process(context.Background(), tilegrid.Tile{}, in)
	require.NoError(t, err)

	require.Equal(t, 16, out.Width)
	require.Equal(t, 16, out.Height)
}

type failingStage struct{}

func (failingStage) Process(ctx context.Context, tile tilegrid.Tile, img *raster.Buffer) (*raster.Buffer, error) {
	return nil, errors.New("stage failed")
}

func TestChainPropagatesError(t *testing.T) {
	u, err := NewUpscaler(2)
	require.NoError(t, err)

	chain := Chain{failingStage{}, u}
	_, err = chain.Process(context.Background(), tilegrid.Tile{}, solidBuffer(4, 4, 1, 0))
	require.EqualError(t, err, "stage failed")
}
