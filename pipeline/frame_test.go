package pipeline

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"testing"

	"github.com/Tutortoise/sentinel-detection-service/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rgbaFrame(w, h int) models.VideoFrame {
	return models.VideoFrame{
		Data:        bytes.Repeat([]byte{200, 100, 50, 255}, w*h),
		Width:       w,
		Height:      h,
		PixelFormat: models.PixelFormatRGBA32,
	}
}

func decodedSize(t *testing.T, data []byte) (int, int) {
	t.Helper()
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	return cfg.Width, cfg.Height
}

func TestEncodeFrame(t *testing.T) {
	t.Run("raw rgba is jpeg encoded", func(t *testing.T) {
		data, w, h, err := EncodeFrame(rgbaFrame(16, 8))
		require.NoError(t, err)
		assert.Equal(t, 16, w)
		assert.Equal(t, 8, h)
		dw, dh := decodedSize(t, data)
		assert.Equal(t, [2]int{16, 8}, [2]int{dw, dh})
	})

	t.Run("rotation is applied before encoding", func(t *testing.T) {
		for _, rotation := range []int{90, 270, -90} {
			frame := rgbaFrame(16, 8)
			frame.Rotation = rotation
			data, w, h, err := EncodeFrame(frame)
			require.NoError(t, err)
			assert.Equal(t, [2]int{8, 16}, [2]int{w, h}, "rotation %d", rotation)
			dw, dh := decodedSize(t, data)
			assert.Equal(t, [2]int{8, 16}, [2]int{dw, dh})
		}

		frame := rgbaFrame(16, 8)
		frame.Rotation = 180
		_, w, h, err := EncodeFrame(frame)
		require.NoError(t, err)
		assert.Equal(t, [2]int{16, 8}, [2]int{w, h})
	})

	t.Run("nv21 is converted", func(t *testing.T) {
		w, h := 4, 2
		data := append(bytes.Repeat([]byte{128}, w*h), bytes.Repeat([]byte{128}, w*h/2)...)
		out, ow, oh, err := EncodeFrame(models.VideoFrame{Data: data, Width: w, Height: h, PixelFormat: models.PixelFormatNV21})
		require.NoError(t, err)
		assert.Equal(t, [2]int{4, 2}, [2]int{ow, oh})

		img, err := jpeg.Decode(bytes.NewReader(out))
		require.NoError(t, err)
		r, g, b, _ := img.At(1, 1).RGBA()
		assert.InDelta(t, 128, r>>8, 4)
		assert.InDelta(t, 128, g>>8, 4)
		assert.InDelta(t, 128, b>>8, 4)
	})

	t.Run("jpeg passes through", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, jpeg.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 20, 10)), nil))

		data, w, h, err := EncodeFrame(models.VideoFrame{Data: buf.Bytes(), PixelFormat: "jpeg"})
		require.NoError(t, err)
		assert.Equal(t, buf.Bytes(), data)
		assert.Equal(t, [2]int{20, 10}, [2]int{w, h})
	})

	t.Run("payload must match dimensions", func(t *testing.T) {
		bad := []models.VideoFrame{
			{Data: make([]byte, 10), Width: 4, Height: 4, PixelFormat: models.PixelFormatRGBA32},
			{Data: make([]byte, 12), Width: 3, Height: 2, PixelFormat: models.PixelFormatNV21},
			{Data: make([]byte, 11), Width: 4, Height: 2, PixelFormat: models.PixelFormatNV21},
			{Data: nil, Width: 0, Height: 0, PixelFormat: models.PixelFormatRGBA32},
			{Data: nil, Width: 1 << 31, Height: 1 << 31, PixelFormat: models.PixelFormatRGBA32},
			{Data: nil, Width: 1 << 32, Height: 1 << 32, PixelFormat: models.PixelFormatNV21},
			{Data: make([]byte, 4), Width: 1 << 30, Height: 2, PixelFormat: models.PixelFormatRGBA32},
		}
		for _, frame := range bad {
			assert.NotPanics(t, func() {
				_, _, _, err := EncodeFrame(frame)
				assert.ErrorIs(t, err, ErrPayloadSize, "%dx%d", frame.Width, frame.Height)
			})
		}
	})

	t.Run("unknown format", func(t *testing.T) {
		_, _, _, err := EncodeFrame(models.VideoFrame{Data: make([]byte, 4), Width: 1, Height: 1, PixelFormat: "YUYV"})
		assert.ErrorIs(t, err, ErrUnsupportedFormat)
	})
}

func TestRotateIsClockwise(t *testing.T) {
	red := color.NRGBA{R: 255, A: 255}
	img := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	img.Set(0, 0, red)

	rotated := rotate(img, 90)
	assert.Equal(t, image.Rect(0, 0, 1, 2), rotated.Bounds())
	assert.Equal(t, red, color.NRGBAModel.Convert(rotated.At(0, 0)))
	assert.Equal(t, img, rotate(img, 360))
}
