package geolocation

import (
	"context"
	"fmt"
	"sync"

	geo "github.com/kellydunn/golang-geo"
	"github.com/sirupsen/logrus"
)

// Locator provides the device's current position.
type Locator interface {
	CurrentLocation(ctx context.Context) (*geo.Point, error)
}

type LocatorFunc func(ctx context.Context) (*geo.Point, error)

func (f LocatorFunc) CurrentLocation(ctx context.Context) (*geo.Point, error) { return f(ctx) }

// StaticLocator always reports the same point.
type StaticLocator struct {
	Point *geo.Point
}

func (s StaticLocator) CurrentLocation(context.Context) (*geo.Point, error) {
	if s.Point == nil {
		return nil, ErrNoLocation
	}
	return s.Point, nil
}

// FallbackLocator asks its source for a fresh fix and falls back to the
// last fix it saw when the source fails or has none. It only errors when
// no fix has ever been obtained.
type FallbackLocator struct {
	source Locator
	log    logrus.FieldLogger

	mu   sync.Mutex
	last *geo.Point
}

func NewFallbackLocator(source Locator, log logrus.FieldLogger) *FallbackLocator {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &FallbackLocator{source: source, log: log.WithField("component", "locator")}
}

func (f *FallbackLocator) CurrentLocation(ctx context.Context) (*geo.Point, error) {
	point, err := f.source.CurrentLocation(ctx)
	if err == nil && point != nil {
		f.mu.Lock()
		f.last = point
		f.mu.Unlock()
		return point, nil
	}
	if err == nil {
		err = ErrNoLocation
	}

	f.mu.Lock()
	last := f.last
	f.mu.Unlock()
	if last != nil {
		f.log.WithError(err).Warn("location fix failed, using last known location")
		return last, nil
	}
	return nil, fmt.Errorf("current location: %w", err)
}

// LastKnown returns the most recent successful fix, or nil.
func (f *FallbackLocator) LastKnown() *geo.Point {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.last
}
