package sightings

import (
	"sync"
	"time"

	"github.com/Tutortoise/sentinel-detection-service/models"
	"github.com/Tutortoise/sentinel-detection-service/pipeline"

	"github.com/google/uuid"
	geo "github.com/kellydunn/golang-geo"
)

// Sighting is one recorded detection of interest at a place and time.
type Sighting struct {
	ID         uuid.UUID       `json:"id"`
	Location   *geo.Point      `json:"location"`
	Timestamp  time.Time       `json:"timestamp"`
	Category   models.Category `json:"category"`
	Confidence float32         `json:"confidence"`
}

func NewSighting(location *geo.Point, category models.Category, confidence float32, at time.Time) Sighting {
	return Sighting{
		ID:         uuid.New(),
		Location:   location,
		Timestamp:  at,
		Category:   category,
		Confidence: confidence,
	}
}

// Store is an append-only list of sightings. Listeners registered with
// Subscribe receive every sighting added after they subscribed.
type Store struct {
	mu        sync.RWMutex
	sightings []Sighting
	added     *pipeline.Broadcaster[Sighting]
}

func NewStore() *Store {
	return &Store{added: pipeline.NewBroadcaster[Sighting]()}
}

func (s *Store) Add(sighting Sighting) {
	s.mu.Lock()
	s.sightings = append(s.sightings, sighting)
	s.mu.Unlock()

	s.added.Publish(sighting)
}

// All returns a copy of the sightings in insertion order.
func (s *Store) All() []Sighting {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Sighting, len(s.sightings))
	copy(out, s.sightings)
	return out
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sightings)
}

func (s *Store) Subscribe(buffer int) (<-chan Sighting, func()) {
	return s.added.Subscribe(buffer)
}
