package geolocation

import (
	"math"

	geo "github.com/kellydunn/golang-geo"
)

// InitialBearing returns the great-circle bearing in degrees [0,360) for
// leaving from towards to.
func InitialBearing(from, to *geo.Point) (float64, bool) {
	if from == nil || to == nil {
		return 0, false
	}
	return normalizeDegrees(from.BearingTo(to)), true
}

// FinalBearing returns the bearing in degrees [0,360) on arrival at to when
// travelling from from. It is the reverse bearing turned around.
func FinalBearing(from, to *geo.Point) (float64, bool) {
	if from == nil || to == nil {
		return 0, false
	}
	return normalizeDegrees(to.BearingTo(from) + 180), true
}

func normalizeDegrees(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	return deg
}

func toRadians(deg float64) float64 { return deg * math.Pi / 180 }

func toDegrees(rad float64) float64 { return rad * 180 / math.Pi }
