package detections

import (
	"bytes"
	"fmt"
	"image"
	"time"

	"github.com/Tutortoise/sentinel-detection-service/models"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// DecodeImage decodes any registered image format.
func DecodeImage(data []byte) (image.Image, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, &ProcessingError{Message: "decode image", Cause: err}
	}
	return img, nil
}

// RGBAPixels returns the 4-byte-per-pixel buffer of img with its origin at (0,0).
func RGBAPixels(img image.Image) (pix []byte, width, height int) {
	nrgba := imaging.Clone(img)
	return nrgba.Pix, nrgba.Rect.Dx(), nrgba.Rect.Dy()
}

// detectFrame runs every tile of one image through the engine and
// concatenates the parsed boxes. Overlapping detections at tile seams are
// returned as-is.
func detectFrame(engine InferenceEngine, parser *Parser, pix []byte, width, height int, timings *models.ProcessingTimings) ([]models.BoundingBox, error) {
	tilingStart := time.Now()
	tiles, err := SplitTiles(pix, width, height)
	if err != nil {
		return nil, err
	}
	timings.Tiling = time.Since(tilingStart)

	classNames := engine.ClassNames()
	boxes := make([]models.BoundingBox, 0, 16)
	for _, tile := range tiles {
		inferStart := time.Now()
		output, err := engine.Predict(tile)
		timings.Inference += time.Since(inferStart)
		if err != nil {
			return nil, err
		}

		postStart := time.Now()
		boxes = append(boxes, parser.Parse(output, width, height, classNames, tile.OffsetX, tile.OffsetY)...)
		timings.Postprocess += time.Since(postStart)
	}

	return boxes, nil
}

func describeTimings(t *models.ProcessingTimings) string {
	return fmt.Sprintf("decode=%v tiling=%v inference=%v postprocess=%v total=%v",
		t.ImageDecode, t.Tiling, t.Inference, t.Postprocess, t.Total)
}
