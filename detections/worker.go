package detections

import (
	"context"
	"fmt"
	"image"
	"strconv"
	"sync"
	"time"

	"github.com/Tutortoise/sentinel-detection-service/models"

	"github.com/sirupsen/logrus"
)

// InferenceEngine is the engine contract the worker drives.
type InferenceEngine interface {
	Initialize() error
	Predict(tile models.Tile) ([]float32, error)
	ClassNames() map[int]string
	Destroy()
}

type job struct {
	run   func(InferenceEngine) error
	reply chan error
}

// Worker owns an InferenceEngine on a single goroutine and serves
// initialisation and detection requests from its mailbox, one at a time.
type Worker struct {
	engine  InferenceEngine
	parser  *Parser
	log     logrus.FieldLogger
	mailbox chan job
	quit    chan struct{}
	done    chan struct{}
	once    sync.Once
	metrics *WorkerMetrics
}

type WorkerMetrics struct {
	mu            sync.RWMutex
	inFlight      int
	totalRequests int64
	totalFailures int64
	busyTime      time.Duration
	lastError     string
}

// MetricsSnapshot is a point-in-time copy of WorkerMetrics.
type MetricsSnapshot struct {
	InFlight      int           `json:"in_flight"`
	TotalRequests int64         `json:"total_requests"`
	TotalFailures int64         `json:"total_failures"`
	BusyTime      time.Duration `json:"busy_time_ns"`
	LastError     string        `json:"last_error,omitempty"`
}

func NewWorker(engine InferenceEngine, parser *Parser, log logrus.FieldLogger) *Worker {
	if parser == nil {
		parser = NewParser()
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	w := &Worker{
		engine:  engine,
		parser:  parser,
		log:     log.WithField("component", "inference-worker"),
		mailbox: make(chan job),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
		metrics: &WorkerMetrics{},
	}
	go w.run()
	return w
}

func (w *Worker) run() {
	defer close(w.done)
	defer w.engine.Destroy()

	for {
		select {
		case <-w.quit:
			return
		case j := <-w.mailbox:
			j.reply <- w.execute(j.run)
		}
	}
}

func (w *Worker) execute(fn func(InferenceEngine) error) (err error) {
	start := time.Now()
	w.metrics.mu.Lock()
	w.metrics.inFlight++
	w.metrics.totalRequests++
	w.metrics.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("inference worker panic: %v", r)
		}

		w.metrics.mu.Lock()
		w.metrics.inFlight--
		w.metrics.busyTime += time.Since(start)
		if err != nil {
			w.metrics.totalFailures++
			w.metrics.lastError = err.Error()
		}
		w.metrics.mu.Unlock()
	}()

	return fn(w.engine)
}

func (w *Worker) submit(ctx context.Context, fn func(InferenceEngine) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	reply := make(chan error, 1)

	select {
	case <-w.quit:
		return ErrWorkerClosed
	case <-ctx.Done():
		return ctx.Err()
	case w.mailbox <- job{run: fn, reply: reply}:
	}

	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Initialize loads the engine. Callers should wait for it before submitting
// detection work.
func (w *Worker) Initialize(ctx context.Context) error {
	err := w.submit(ctx, func(engine InferenceEngine) error {
		return engine.Initialize()
	})
	if err != nil {
		w.log.WithError(err).Error("engine initialization failed")
		return err
	}
	w.log.Info("engine initialized")
	return nil
}

// Detect decodes an encoded image and returns its detections in source
// pixel coordinates.
func (w *Worker) Detect(ctx context.Context, data []byte) ([]models.BoundingBox, error) {
	start := time.Now()
	timings := &models.ProcessingTimings{RequestID: strconv.FormatInt(start.UnixNano(), 10)}

	img, err := DecodeImage(data)
	if err != nil {
		return nil, err
	}
	timings.ImageDecode = time.Since(start)

	boxes, err := w.detect(ctx, img, timings)
	if err != nil {
		return nil, err
	}

	timings.Total = time.Since(start)
	w.log.WithField("request_id", timings.RequestID).Debugf("processing times: %s", describeTimings(timings))
	return boxes, nil
}

// DetectImage is Detect for an already decoded image.
func (w *Worker) DetectImage(ctx context.Context, img image.Image) ([]models.BoundingBox, error) {
	return w.detect(ctx, img, &models.ProcessingTimings{})
}

func (w *Worker) detect(ctx context.Context, img image.Image, timings *models.ProcessingTimings) ([]models.BoundingBox, error) {
	pix, width, height := RGBAPixels(img)

	var boxes []models.BoundingBox
	err := w.submit(ctx, func(engine InferenceEngine) error {
		var err error
		boxes, err = detectFrame(engine, w.parser, pix, width, height, timings)
		return err
	})
	if err != nil {
		return nil, err
	}
	return boxes, nil
}

func (w *Worker) GetMetrics() MetricsSnapshot {
	w.metrics.mu.RLock()
	defer w.metrics.mu.RUnlock()
	return MetricsSnapshot{
		InFlight:      w.metrics.inFlight,
		TotalRequests: w.metrics.totalRequests,
		TotalFailures: w.metrics.totalFailures,
		BusyTime:      w.metrics.busyTime,
		LastError:     w.metrics.lastError,
	}
}

// Close stops the worker after the request in progress, then destroys the
// engine. It is safe to call more than once.
func (w *Worker) Close() {
	w.once.Do(func() {
		close(w.quit)
	})
	<-w.done
}
