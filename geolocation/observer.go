package geolocation

import (
	"image"

	geo "github.com/kellydunn/golang-geo"
)

// CameraTelemetry is the pointing direction of an observer's camera.
type CameraTelemetry struct {
	BearingDeg float64 `json:"bearing"`
	TiltDeg    float64 `json:"tilt"`
}

func (c CameraTelemetry) BearingRad() float64 { return toRadians(c.BearingDeg) }

func (c CameraTelemetry) TiltRad() float64 { return toRadians(c.TiltDeg) }

type Status int

const (
	StatusPassive Status = iota
	StatusActive
)

type ObserverKind int

const (
	KindStatic ObserverKind = iota
	KindMobile
)

func (k ObserverKind) String() string {
	if k == KindMobile {
		return "mobile"
	}
	return "static"
}

// GeolocatedFrame is a captured image tagged with the position it was taken
// from. Width and Height are used when Image is nil.
type GeolocatedFrame struct {
	Image             image.Image
	Width             int
	Height            int
	Location          *geo.Point
	HorizontalBearing *float64
	VerticalAngle     *float64
}

func NewGeolocatedFrame(img image.Image, location *geo.Point) *GeolocatedFrame {
	f := &GeolocatedFrame{Image: img, Location: location}
	if img != nil {
		b := img.Bounds()
		f.Width, f.Height = b.Dx(), b.Dy()
	}
	return f
}

// Size returns the frame dimensions in pixels.
func (f *GeolocatedFrame) Size() (width, height int) {
	if f.Image != nil {
		b := f.Image.Bounds()
		return b.Dx(), b.Dy()
	}
	return f.Width, f.Height
}

// Observer is a fixed or moving entity making observations. Mobile
// observers also record their path and infer facing direction from
// consecutive frames.
type Observer struct {
	ID       int
	Name     string
	Status   Status
	Kind     ObserverKind
	Location *geo.Point
	Camera   *CameraTelemetry

	CurrentFrame  *GeolocatedFrame
	PreviousFrame *GeolocatedFrame
	Path          []*geo.Point
}

func NewStaticObserver(id int, name string) *Observer {
	return &Observer{ID: id, Name: name, Kind: KindStatic}
}

func NewMobileObserver(id int, name string) *Observer {
	return &Observer{ID: id, Name: name, Kind: KindMobile}
}

// UpdateFrames makes frame the current frame and shifts the old current
// frame to previous.
func (o *Observer) UpdateFrames(frame *GeolocatedFrame) {
	o.PreviousFrame = o.CurrentFrame
	o.CurrentFrame = frame

	switch o.Kind {
	case KindMobile:
		o.trackMovement()
	}
}

func (o *Observer) trackMovement() {
	cur, prev := o.CurrentFrame, o.PreviousFrame
	if cur != nil && cur.Location != nil {
		o.Path = append(o.Path, cur.Location)
	}
	if prev == nil || cur == nil || prev.HorizontalBearing != nil {
		return
	}

	if initial, ok := InitialBearing(prev.Location, cur.Location); ok {
		prev.HorizontalBearing = &initial
	}
	// The current frame faces the direction of travel on arrival, not back
	// towards the previous fix.
	if final, ok := FinalBearing(prev.Location, cur.Location); ok {
		cur.HorizontalBearing = &final
	}
}
