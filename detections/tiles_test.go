package detections

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rgbaBuffer(width, height int) []byte {
	pix := make([]byte, width*height*BytesPerPixel)
	for i := range pix {
		pix[i] = byte(i%251) + 1
	}
	return pix
}

func TestSplitTiles(t *testing.T) {
	t.Run("image that fits is a single tile", func(t *testing.T) {
		for _, size := range [][2]int{{1, 1}, {320, 200}, {640, 640}, {640, 10}} {
			pix := rgbaBuffer(size[0], size[1])
			tiles, err := SplitTiles(pix, size[0], size[1])
			require.NoError(t, err)
			require.Len(t, tiles, 1)
			assert.Equal(t, 0, tiles[0].OffsetX)
			assert.Equal(t, 0, tiles[0].OffsetY)
			assert.Equal(t, size[0], tiles[0].Width)
			assert.Equal(t, size[1], tiles[0].Height)
		}
	})

	t.Run("wide image splits along x", func(t *testing.T) {
		tiles, err := SplitTiles(rgbaBuffer(1280, 640), 1280, 640)
		require.NoError(t, err)
		require.Len(t, tiles, 2)
		assert.Equal(t, [2]int{0, 0}, [2]int{tiles[0].OffsetX, tiles[0].OffsetY})
		assert.Equal(t, [2]int{640, 0}, [2]int{tiles[1].OffsetX, tiles[1].OffsetY})
	})

	t.Run("tiles are row-major and padded", func(t *testing.T) {
		width, height := 700, 650
		pix := rgbaBuffer(width, height)

		tiles, err := SplitTiles(pix, width, height)
		require.NoError(t, err)
		require.Len(t, tiles, 4)

		offsets := make([][2]int, len(tiles))
		for i, tile := range tiles {
			offsets[i] = [2]int{tile.OffsetX, tile.OffsetY}
			assert.Len(t, tile.Pix, SideLength*SideLength*BytesPerPixel)
		}
		assert.Equal(t, [][2]int{{0, 0}, {640, 0}, {0, 640}, {640, 640}}, offsets)

		// Last tile: 60 valid columns, 10 valid rows.
		last := tiles[3]
		srcIdx := (640*width + 640) * BytesPerPixel
		assert.Equal(t, pix[srcIdx:srcIdx+60*BytesPerPixel], last.Pix[:60*BytesPerPixel])
		assert.Zero(t, last.Pix[60*BytesPerPixel])

		rowBytes := SideLength * BytesPerPixel
		srcIdx = (649*width + 640) * BytesPerPixel
		assert.Equal(t, pix[srcIdx:srcIdx+60*BytesPerPixel], last.Pix[9*rowBytes:9*rowBytes+60*BytesPerPixel])
		for _, b := range last.Pix[10*rowBytes:] {
			if b != 0 {
				t.Fatal("rows below the source image must be zero")
			}
		}
	})

	t.Run("inconsistent buffer", func(t *testing.T) {
		_, err := SplitTiles(make([]byte, 10), 4, 4)
		assert.ErrorIs(t, err, ErrBounds)

		_, err = SplitTiles(nil, 0, 0)
		assert.ErrorIs(t, err, ErrBounds)
	})

	t.Run("dimensions that overflow the buffer size", func(t *testing.T) {
		for _, size := range [][2]int{{1 << 31, 1 << 31}, {1 << 32, 1 << 32}, {1 << 30, 2}} {
			assert.NotPanics(t, func() {
				_, err := SplitTiles(nil, size[0], size[1])
				assert.ErrorIs(t, err, ErrBounds)
			})
		}
	})
}
