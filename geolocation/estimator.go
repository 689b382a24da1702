package geolocation

import (
	"fmt"
	"math"

	"github.com/Tutortoise/sentinel-detection-service/models"

	geo "github.com/kellydunn/golang-geo"
)

// ReferenceFillDistance is the distance in metres at which a reference
// object exactly fills the frame height.
const ReferenceFillDistance = 2.0

const personHeight = 1.75

// ReferenceDimensions is the nominal real-world size of a category.
type ReferenceDimensions struct {
	HeightM float64
	WidthM  float64
}

var personReference = ReferenceDimensions{HeightM: personHeight, WidthM: personHeight / 7.5 * 2}

var referenceDimensions = map[models.Category]ReferenceDimensions{
	models.CategoryHuman:     personReference,
	models.CategoryCar:       {HeightM: 1.5, WidthM: 1.8},
	models.CategoryTruck:     {HeightM: 3.0, WidthM: 2.5},
	models.CategoryMotorbike: {HeightM: 1.2, WidthM: 0.8},
	models.CategoryBicycle:   {HeightM: 1.1, WidthM: 0.6},
}

// ReferenceFor returns the reference size for c. Categories without their
// own entry use the person reference.
func ReferenceFor(c models.Category) ReferenceDimensions {
	if ref, ok := referenceDimensions[c]; ok {
		return ref
	}
	return personReference
}

// Projection holds the intermediate values of one estimate.
type Projection struct {
	DistanceZ              float64    `json:"distance_z"`
	HorizontalDeviationDeg float64    `json:"horizontal_deviation"`
	VerticalDeviationDeg   float64    `json:"vertical_deviation"`
	BearingDeg             float64    `json:"bearing"`
	TiltDeg                float64    `json:"tilt"`
	GroundDistance         float64    `json:"ground_distance"`
	North                  float64    `json:"north"`
	East                   float64    `json:"east"`
	Location               *geo.Point `json:"location"`
}

// Estimate resolves box, seen in frame by observer, to a geographic
// coordinate.
func Estimate(observer *Observer, frame *GeolocatedFrame, box models.BoundingBox) (*geo.Point, error) {
	p, err := Project(observer, frame, box)
	if err != nil {
		return nil, err
	}
	return p.Location, nil
}

// Project is Estimate returning every step of the computation.
func Project(observer *Observer, frame *GeolocatedFrame, box models.BoundingBox) (Projection, error) {
	if observer == nil || observer.Location == nil {
		return Projection{}, ErrMissingLocation
	}
	if observer.Camera == nil {
		return Projection{}, ErrMissingTelemetry
	}
	if frame == nil {
		return Projection{}, ErrMissingFrame
	}

	frameWidth, frameHeight := frame.Size()
	boxWidth, boxHeight := box.Width(), box.Height()
	if frameWidth <= 0 || frameHeight <= 0 || boxHeight <= 0 {
		return Projection{}, fmt.Errorf("%w: frame %dx%d, box height %.0f", ErrDegenerateBox, frameWidth, frameHeight, boxHeight)
	}

	ref := ReferenceFor(box.Category)
	distanceZ := ReferenceFillDistance * float64(frameHeight) / boxHeight

	cx, cy := box.Center()
	devX := deviation(ref.WidthM*boxWidth, cx-float64(frameWidth)/2, distanceZ)
	devY := deviation(ref.HeightM*boxHeight, cy-float64(frameHeight)/2, distanceZ)

	bearing := observer.Camera.BearingRad() + devX
	tilt := observer.Camera.TiltRad() + devY

	ground := distanceZ * math.Cos(tilt)
	north := ground * math.Cos(bearing)
	east := ground * math.Sin(bearing)

	return Projection{
		DistanceZ:              distanceZ,
		HorizontalDeviationDeg: toDegrees(devX),
		VerticalDeviationDeg:   toDegrees(devY),
		BearingDeg:             toDegrees(bearing),
		TiltDeg:                toDegrees(tilt),
		GroundDistance:         ground,
		North:                  north,
		East:                   east,
		Location:               Displace(observer.Location, north, east),
	}, nil
}

// deviation is the angle off the optical axis. The physical offset is the
// reference size scaled by the box size and divided by the pixel offset, so a
// centred box has no offset at all.
func deviation(scaledRef, pixelOffset, distanceZ float64) float64 {
	if pixelOffset == 0 {
		return 0
	}
	return math.Atan(scaledRef / pixelOffset / distanceZ)
}

// Displace moves origin by the given north and east offsets in metres.
func Displace(origin *geo.Point, north, east float64) *geo.Point {
	dist := math.Hypot(north, east)
	if dist == 0 {
		return geo.NewPoint(origin.Lat(), origin.Lng())
	}
	bearing := normalizeDegrees(toDegrees(math.Atan2(east, north)))
	return origin.PointAtDistanceAndBearing(dist/1000, bearing)
}
