package detections

const (
	// SideLength is the square input edge of the detector, in pixels.
	SideLength    = 640
	Channels      = 3
	BytesPerPixel = 4

	MaxDetectionsPerInput = 300
	ValuesPerBoundingBox  = 6
	OutputLength          = MaxDetectionsPerInput * ValuesPerBoundingBox

	MinConfidence = 0.25
	UnknownLabel  = "unknown"

	InputLayerName  = "images"
	OutputLayerName = "output0"
)

// Offsets of the values inside one output record.
const (
	topLeftXIdx = iota
	topLeftYIdx
	bottomRightXIdx
	bottomRightYIdx
	scoreIdx
	labelIdx
)
