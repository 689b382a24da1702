package geolocation

import (
	"time"

	"github.com/Tutortoise/sentinel-detection-service/models"

	"github.com/google/uuid"
	geo "github.com/kellydunn/golang-geo"
)

// Observation is a detection resolved to an absolute coordinate.
type Observation struct {
	ID           uuid.UUID       `json:"id"`
	ObserverID   int             `json:"observer_id"`
	ObserverName string          `json:"observer_name"`
	Location     *geo.Point      `json:"location"`
	Category     models.Category `json:"category"`
	Label        string          `json:"label"`
	Confidence   float32         `json:"confidence"`
	Timestamp    time.Time       `json:"timestamp"`
}

// NewObservation estimates where box is and records it against observer.
func NewObservation(observer *Observer, frame *GeolocatedFrame, box models.BoundingBox, at time.Time) (*Observation, error) {
	location, err := Estimate(observer, frame, box)
	if err != nil {
		return nil, err
	}
	return &Observation{
		ID:           uuid.New(),
		ObserverID:   observer.ID,
		ObserverName: observer.Name,
		Location:     location,
		Category:     box.Category,
		Label:        box.Label,
		Confidence:   box.Score,
		Timestamp:    at,
	}, nil
}
