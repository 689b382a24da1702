package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Tutortoise/sentinel-detection-service/models"

	"github.com/benbjohnson/clock"
	"github.com/sirupsen/logrus"
)

const (
	DefaultMaxQueueSize    = 2
	DefaultFrameSkipFactor = 1
	DefaultIdleWait        = 10 * time.Millisecond
	DefaultStatsInterval   = time.Second
)

// Detector runs detection on one encoded image.
type Detector interface {
	Detect(ctx context.Context, data []byte) ([]models.BoundingBox, error)
}

type Config struct {
	// MaxQueueSize bounds the frames waiting for the detector; the oldest is
	// evicted to admit a new one.
	MaxQueueSize int
	// FrameSkipFactor admits only every Nth submitted frame.
	FrameSkipFactor int
	IdleWait        time.Duration
	StatsInterval   time.Duration
}

func DefaultConfig() Config {
	return Config{
		MaxQueueSize:    DefaultMaxQueueSize,
		FrameSkipFactor: DefaultFrameSkipFactor,
		IdleWait:        DefaultIdleWait,
		StatsInterval:   DefaultStatsInterval,
	}
}

func (c Config) withDefaults() Config {
	if c.MaxQueueSize <= 0 {
		c.MaxQueueSize = DefaultMaxQueueSize
	}
	if c.FrameSkipFactor <= 0 {
		c.FrameSkipFactor = DefaultFrameSkipFactor
	}
	if c.IdleWait <= 0 {
		c.IdleWait = DefaultIdleWait
	}
	if c.StatsInterval <= 0 {
		c.StatsInterval = DefaultStatsInterval
	}
	return c
}

type Option func(*Queue)

func WithClock(c clock.Clock) Option {
	return func(q *Queue) { q.clock = c }
}

func WithLogger(l logrus.FieldLogger) Option {
	return func(q *Queue) { q.log = l }
}

// Queue decouples frame producers from the detector. Frames are processed
// one at a time by a single background loop; producers are never blocked.
type Queue struct {
	detector Detector
	cfg      Config
	clock    clock.Clock
	log      logrus.FieldLogger
	events   *Broadcaster[Event]

	lifecycle sync.Mutex

	mu              sync.Mutex
	frames          []models.VideoFrame
	running         bool
	frameCounter    int
	framesProcessed int
	framesDropped   int
	lastStats       time.Time
	latestStats     models.Stats
	cancel          context.CancelFunc
	done            chan struct{}
}

func New(detector Detector, cfg Config, opts ...Option) *Queue {
	q := &Queue{
		detector: detector,
		cfg:      cfg.withDefaults(),
		clock:    clock.New(),
		log:      logrus.StandardLogger(),
		events:   NewBroadcaster[Event](),
	}
	for _, opt := range opts {
		opt(q)
	}
	q.log = q.log.WithField("component", "frame-queue")
	return q
}

// Start resets counters and the queue, then launches the processing loop.
// It does nothing if the queue is already running.
func (q *Queue) Start() {
	q.lifecycle.Lock()
	defer q.lifecycle.Unlock()

	q.mu.Lock()
	if q.running {
		q.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	q.running = true
	q.frames = nil
	q.frameCounter = 0
	q.framesProcessed = 0
	q.framesDropped = 0
	q.lastStats = q.clock.Now()
	q.cancel = cancel
	q.done = make(chan struct{})
	done := q.done
	q.mu.Unlock()

	go q.loop(ctx, done)
	q.log.Debug("frame queue started")
}

// Stop cancels the loop, waits for it to exit and discards queued frames.
// It is safe to call when the queue was never started.
func (q *Queue) Stop() {
	q.lifecycle.Lock()
	defer q.lifecycle.Unlock()

	q.mu.Lock()
	if !q.running {
		q.mu.Unlock()
		return
	}
	q.running = false
	cancel, done := q.cancel, q.done
	q.mu.Unlock()

	cancel()
	<-done

	q.mu.Lock()
	q.frames = nil
	q.cancel = nil
	q.mu.Unlock()
	q.log.Debug("frame queue stopped")
}

// Submit offers a frame for processing. It never blocks and is ignored
// while the queue is stopped.
func (q *Queue) Submit(frame models.VideoFrame) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.running {
		return
	}

	q.frameCounter++
	if q.cfg.FrameSkipFactor > 1 && q.frameCounter%q.cfg.FrameSkipFactor != 0 {
		q.framesDropped++
		return
	}

	if len(q.frames) >= q.cfg.MaxQueueSize {
		q.frames[0] = models.VideoFrame{}
		q.frames = q.frames[1:]
		q.framesDropped++
	}
	q.frames = append(q.frames, frame)
}

func (q *Queue) dequeue() (models.VideoFrame, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.frames) == 0 {
		return models.VideoFrame{}, false
	}
	frame := q.frames[0]
	q.frames[0] = models.VideoFrame{}
	q.frames = q.frames[1:]
	return frame, true
}

func (q *Queue) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	for {
		if ctx.Err() != nil {
			return
		}

		if frame, ok := q.dequeue(); ok {
			q.processFrame(ctx, frame)
		} else {
			select {
			case <-ctx.Done():
				return
			case <-q.clock.After(q.cfg.IdleWait):
			}
		}

		q.tick(q.clock.Now())
	}
}

func (q *Queue) processFrame(ctx context.Context, frame models.VideoFrame) {
	start := q.clock.Now()
	log := q.log.WithField("frame_timestamp", frame.Timestamp)

	result, err := q.detectFrame(ctx, frame)
	if err != nil {
		if ctx.Err() == nil {
			log.WithError(err).Error("frame processing failed")
		}
		return
	}
	result.LatencyMs = float64(q.clock.Since(start).Microseconds()) / 1000.0

	q.mu.Lock()
	q.framesProcessed++
	q.mu.Unlock()

	q.events.Publish(DetectionEvent{Result: result})
}

func (q *Queue) detectFrame(ctx context.Context, frame models.VideoFrame) (result models.DetectionResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("detector panic: %v", r)
		}
	}()

	data, width, height, err := EncodeFrame(frame)
	if err != nil {
		return result, err
	}

	boxes, err := q.detector.Detect(ctx, data)
	if err != nil {
		return result, fmt.Errorf("detect: %w", err)
	}
	if boxes == nil {
		boxes = []models.BoundingBox{}
	}

	return models.DetectionResult{
		Boxes:     boxes,
		Width:     width,
		Height:    height,
		Timestamp: frame.Timestamp,
	}, nil
}

// tick emits a StatsEvent once StatsInterval has elapsed since the previous
// one, then resets the per-interval counters.
func (q *Queue) tick(now time.Time) {
	q.mu.Lock()
	elapsed := now.Sub(q.lastStats)
	if elapsed < q.cfg.StatsInterval {
		q.mu.Unlock()
		return
	}

	seconds := elapsed.Seconds()
	stats := models.Stats{
		FPS:        float64(q.framesProcessed) / seconds,
		DropRate:   float64(q.framesDropped) / seconds,
		QueueDepth: len(q.frames),
	}
	q.framesProcessed = 0
	q.framesDropped = 0
	q.lastStats = now
	q.latestStats = stats
	q.mu.Unlock()

	q.events.Publish(StatsEvent{Stats: stats})
}

// Subscribe registers a listener for detection and stats events.
func (q *Queue) Subscribe(buffer int) (<-chan Event, func()) {
	return q.events.Subscribe(buffer)
}

func (q *Queue) Depth() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.frames)
}

func (q *Queue) Running() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.running
}

func (q *Queue) LatestStats() models.Stats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.latestStats
}

// Dropped returns the frames dropped since the last stats tick.
func (q *Queue) Dropped() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.framesDropped
}
