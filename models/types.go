package models

import (
	"image"
	"time"
)

// Tile is one model-sized crop of a source image. Pix holds 4 bytes per
// pixel (RGBA) in row-major order with a stride of Width*4.
type Tile struct {
	Pix     []byte
	Width   int
	Height  int
	OffsetX int
	OffsetY int
}

// Category is the semantic class a detection label maps to.
type Category int

const (
	CategoryUnknown Category = iota
	CategoryHuman
	CategoryCar
	CategoryMotorbike
	CategoryTruck
	CategoryBicycle
	CategoryOther
)

var categoryNames = map[Category]string{
	CategoryUnknown:   "unknown",
	CategoryHuman:     "human",
	CategoryCar:       "car",
	CategoryMotorbike: "motorbike",
	CategoryTruck:     "truck",
	CategoryBicycle:   "bicycle",
	CategoryOther:     "other",
}

func (c Category) String() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}
	return "other"
}

// MarshalText lets categories appear by name in JSON payloads.
func (c Category) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Category) UnmarshalText(text []byte) error {
	for k, name := range categoryNames {
		if name == string(text) {
			*c = k
			return nil
		}
	}
	*c = CategoryOther
	return nil
}

// BoundingBox is one decoded detection in source-image pixel coordinates.
type BoundingBox struct {
	InputWidth   int      `json:"input_width"`
	InputHeight  int      `json:"input_height"`
	TopLeftX     int      `json:"top_left_x"`
	TopLeftY     int      `json:"top_left_y"`
	BottomRightX int      `json:"bottom_right_x"`
	BottomRightY int      `json:"bottom_right_y"`
	Score        float32  `json:"score"`
	Label        string   `json:"label"`
	Category     Category `json:"category"`
}

func (b BoundingBox) Rect() image.Rectangle {
	return image.Rect(b.TopLeftX, b.TopLeftY, b.BottomRightX, b.BottomRightY)
}

func (b BoundingBox) Width() float64 {
	return float64(b.BottomRightX - b.TopLeftX)
}

func (b BoundingBox) Height() float64 {
	return float64(b.BottomRightY - b.TopLeftY)
}

// Center returns the midpoint of the box.
func (b BoundingBox) Center() (x, y float64) {
	return float64(b.TopLeftX+b.BottomRightX) / 2, float64(b.TopLeftY+b.BottomRightY) / 2
}

// PixelFormat tags the layout of a VideoFrame payload.
type PixelFormat string

const (
	PixelFormatRGBA32 PixelFormat = "RGBA32"
	PixelFormatNV21   PixelFormat = "NV21"
	PixelFormatJPEG   PixelFormat = "JPEG"
)

// VideoFrame is one captured frame as delivered by a capture source.
type VideoFrame struct {
	Data        []byte
	Width       int
	Height      int
	PixelFormat PixelFormat
	Rotation    int
	Timestamp   int64
}

// DetectionResult is the output of processing one frame.
type DetectionResult struct {
	Boxes     []BoundingBox `json:"boxes"`
	Width     int           `json:"width"`
	Height    int           `json:"height"`
	LatencyMs float64       `json:"latency_ms"`
	Timestamp int64         `json:"timestamp"`
}

// Stats summarises queue throughput since the previous tick.
type Stats struct {
	FPS        float64 `json:"fps"`
	DropRate   float64 `json:"drop_rate"`
	QueueDepth int     `json:"queue_depth"`
}

type ProcessingTimings struct {
	RequestID   string
	ImageDecode time.Duration
	Tiling      time.Duration
	Inference   time.Duration
	Postprocess time.Duration
	Total       time.Duration
}
