package pipeline

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
	"strings"

	"github.com/Tutortoise/sentinel-detection-service/models"

	"github.com/disintegration/imaging"
)

const JPEGQuality = 85

var (
	ErrPayloadSize       = errors.New("frame payload does not match its dimensions")
	ErrUnsupportedFormat = errors.New("unsupported pixel format")
)

// EncodeFrame turns a captured frame into an encoded image the detector can
// consume. Encoded payloads pass through untouched; raw payloads are rotated
// upright and JPEG encoded. The returned dimensions are those of the encoded
// image.
func EncodeFrame(frame models.VideoFrame) (data []byte, width, height int, err error) {
	format := models.PixelFormat(strings.ToUpper(string(frame.PixelFormat)))
	if format == models.PixelFormatJPEG {
		width, height = frame.Width, frame.Height
		if cfg, _, err := image.DecodeConfig(bytes.NewReader(frame.Data)); err == nil {
			width, height = cfg.Width, cfg.Height
		}
		return frame.Data, width, height, nil
	}

	img, err := rawImage(format, frame)
	if err != nil {
		return nil, 0, 0, err
	}
	img = rotate(img, frame.Rotation)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(JPEGQuality)); err != nil {
		return nil, 0, 0, fmt.Errorf("encode frame: %w", err)
	}
	bounds := img.Bounds()
	return buf.Bytes(), bounds.Dx(), bounds.Dy(), nil
}

func rawImage(format models.PixelFormat, frame models.VideoFrame) (image.Image, error) {
	w, h := frame.Width, frame.Height
	if w <= 0 || h <= 0 || w > math.MaxInt32/4/h {
		return nil, fmt.Errorf("%w: %dx%d", ErrPayloadSize, w, h)
	}

	switch format {
	case models.PixelFormatRGBA32, "":
		if len(frame.Data) != w*h*4 {
			return nil, fmt.Errorf("%w: %d bytes for %dx%d RGBA", ErrPayloadSize, len(frame.Data), w, h)
		}
		return &image.NRGBA{Pix: frame.Data, Stride: w * 4, Rect: image.Rect(0, 0, w, h)}, nil
	case models.PixelFormatNV21:
		if w%2 != 0 || h%2 != 0 || len(frame.Data) != w*h*3/2 {
			return nil, fmt.Errorf("%w: %d bytes for %dx%d NV21", ErrPayloadSize, len(frame.Data), w, h)
		}
		return nv21ToNRGBA(frame.Data, w, h), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, frame.PixelFormat)
	}
}

// nv21ToNRGBA converts a full-resolution Y plane followed by an interleaved
// half-resolution V/U plane.
func nv21ToNRGBA(data []byte, w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	chroma := data[w*h:]
	for y := 0; y < h; y++ {
		row := (y / 2) * w
		for x := 0; x < w; x++ {
			uv := row + (x/2)*2
			r, g, b := color.YCbCrToRGB(data[y*w+x], chroma[uv+1], chroma[uv])
			i := img.PixOffset(x, y)
			img.Pix[i] = r
			img.Pix[i+1] = g
			img.Pix[i+2] = b
			img.Pix[i+3] = 0xff
		}
	}
	return img
}

// rotate applies a clockwise rotation in degrees.
func rotate(img image.Image, degrees int) image.Image {
	switch ((degrees % 360) + 360) % 360 {
	case 0:
		return img
	case 90:
		return imaging.Rotate270(img)
	case 180:
		return imaging.Rotate180(img)
	case 270:
		return imaging.Rotate90(img)
	default:
		return imaging.Rotate(img, -float64(degrees), color.Black)
	}
}
