package sightings

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Tutortoise/sentinel-detection-service/geolocation"
	"github.com/Tutortoise/sentinel-detection-service/models"
	"github.com/Tutortoise/sentinel-detection-service/pipeline"

	"github.com/benbjohnson/clock"
	"github.com/sirupsen/logrus"
)

const (
	DefaultLabel    = "person"
	DefaultCooldown = 2 * time.Second
)

type RecorderConfig struct {
	// Label selects which detections produce sightings.
	Label string
	// Cooldown is the minimum time between two sightings.
	Cooldown time.Duration
}

// Recorder turns detection results into sightings, at most one per
// cooldown period.
type Recorder struct {
	store   *Store
	locator geolocation.Locator
	cfg     RecorderConfig
	clock   clock.Clock
	log     logrus.FieldLogger

	mu   sync.Mutex
	last time.Time
}

func NewRecorder(store *Store, locator geolocation.Locator, cfg RecorderConfig, clk clock.Clock, log logrus.FieldLogger) *Recorder {
	if cfg.Label == "" {
		cfg.Label = DefaultLabel
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = DefaultCooldown
	}
	if clk == nil {
		clk = clock.New()
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Recorder{
		store:   store,
		locator: locator,
		cfg:     cfg,
		clock:   clk,
		log:     log.WithField("component", "sighting-recorder"),
	}
}

// Run consumes events until ctx is done or the channel is closed.
func (r *Recorder) Run(ctx context.Context, events <-chan pipeline.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			de, isDetection := ev.(pipeline.DetectionEvent)
			if !isDetection {
				continue
			}
			if _, err := r.Record(ctx, de.Result); err != nil {
				r.log.WithError(err).Warn("sighting not recorded")
			}
		}
	}
}

// Record stores a sighting for result if it contains the configured label
// and the cooldown has passed. It reports whether a sighting was added.
func (r *Recorder) Record(ctx context.Context, result models.DetectionResult) (bool, error) {
	var best *models.BoundingBox
	for i := range result.Boxes {
		box := &result.Boxes[i]
		if box.Label != r.cfg.Label {
			continue
		}
		if best == nil || box.Score > best.Score {
			best = box
		}
	}
	if best == nil {
		return false, nil
	}

	now := r.clock.Now()
	r.mu.Lock()
	if !r.last.IsZero() && now.Sub(r.last) < r.cfg.Cooldown {
		r.mu.Unlock()
		return false, nil
	}
	r.last = now
	r.mu.Unlock()

	location, err := r.locator.CurrentLocation(ctx)
	if err != nil {
		return false, fmt.Errorf("locate sighting: %w", err)
	}

	sighting := NewSighting(location, best.Category, best.Score, now)
	r.store.Add(sighting)
	r.log.WithFields(logrus.Fields{
		"sighting_id": sighting.ID,
		"confidence":  sighting.Confidence,
	}).Info("sighting recorded")
	return true, nil
}
