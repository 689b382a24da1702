package detections

import (
	"fmt"
	"math"

	"github.com/Tutortoise/sentinel-detection-service/models"
)

// SplitTiles decomposes an RGBA pixel buffer into SideLength square tiles in
// row-major order. Images that already fit are returned as a single tile at
// (0,0) sharing the source buffer. Tile bytes that fall outside the source
// are left zero.
func SplitTiles(pix []byte, width, height int) ([]models.Tile, error) {
	if width <= 0 || height <= 0 || width > math.MaxInt32/BytesPerPixel/height || len(pix) != width*height*BytesPerPixel {
		return nil, fmt.Errorf("%w: %d bytes for %dx%d image", ErrBounds, len(pix), width, height)
	}

	if width <= SideLength && height <= SideLength {
		return []models.Tile{{Pix: pix, Width: width, Height: height}}, nil
	}

	widthSteps := (width + SideLength - 1) / SideLength
	heightSteps := (height + SideLength - 1) / SideLength
	tiles := make([]models.Tile, 0, widthSteps*heightSteps)

	for heightStep := 0; heightStep < heightSteps; heightStep++ {
		offsetY := heightStep * SideLength
		for widthStep := 0; widthStep < widthSteps; widthStep++ {
			offsetX := widthStep * SideLength
			tiles = append(tiles, clipTile(pix, width, height, offsetX, offsetY))
		}
	}

	return tiles, nil
}

func clipTile(pix []byte, width, height, offsetX, offsetY int) models.Tile {
	frame := make([]byte, SideLength*SideLength*BytesPerPixel)
	rowBytes := SideLength * BytesPerPixel
	srcStride := width * BytesPerPixel

	cols := min(SideLength, width-offsetX)
	for row := 0; row < SideLength; row++ {
		srcY := offsetY + row
		if srcY >= height {
			break
		}
		start := srcY*srcStride + offsetX*BytesPerPixel
		copy(frame[row*rowBytes:], pix[start:start+cols*BytesPerPixel])
	}

	return models.Tile{
		Pix:     frame,
		Width:   SideLength,
		Height:  SideLength,
		OffsetX: offsetX,
		OffsetY: offsetY,
	}
}
