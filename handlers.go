package main

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"sync"
	"time"

	"github.com/Tutortoise/sentinel-detection-service/detections"
	"github.com/Tutortoise/sentinel-detection-service/geolocation"
	"github.com/Tutortoise/sentinel-detection-service/models"
	"github.com/Tutortoise/sentinel-detection-service/pipeline"
	"github.com/Tutortoise/sentinel-detection-service/sightings"

	"github.com/gorilla/mux"
	geo "github.com/kellydunn/golang-geo"
	"github.com/sirupsen/logrus"
)

const maxUploadSize = 10 << 20

// maxFrameSize bounds a /frames body. A base64 1080p RGBA frame is about 11 MiB.
var maxFrameSize int64 = 64 << 20

type AppState struct {
	Worker    *detections.Worker
	Queue     *pipeline.Queue
	Store     *sightings.Store
	Publisher *sightings.KafkaPublisher
	Log       logrus.FieldLogger

	mu       sync.RWMutex
	observer *geolocation.Observer
}

type DetectResponse struct {
	Count   int                  `json:"count"`
	Boxes   []models.BoundingBox `json:"boxes"`
	Message string               `json:"message"`
}

type FrameRequest struct {
	Data        string `json:"data"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	PixelFormat string `json:"pixel_format"`
	Rotation    int    `json:"rotation"`
	Timestamp   int64  `json:"timestamp"`
}

type ObserverRequest struct {
	ID       int                          `json:"id"`
	Name     string                       `json:"name"`
	Location *geo.Point                   `json:"location"`
	Camera   *geolocation.CameraTelemetry `json:"camera"`
}

type EstimateRequest struct {
	// Observer defaults to the service's own observer.
	Observer *ObserverRequest `json:"observer,omitempty"`
	Frame    struct {
		Width  int `json:"width"`
		Height int `json:"height"`
	} `json:"frame"`
	Box models.BoundingBox `json:"box"`
}

type EstimateResponse struct {
	Observation *geolocation.Observation `json:"observation"`
	Projection  geolocation.Projection   `json:"projection"`
}

type PositionRequest struct {
	Location *geo.Point `json:"location"`
}

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func (s *AppState) addRoutes(r *mux.Router) {
	r.HandleFunc("/detect", s.handleDetect).Methods("POST")
	r.HandleFunc("/frames", s.handleSubmitFrame).Methods("POST")
	r.HandleFunc("/estimate", s.handleEstimate).Methods("POST")
	r.HandleFunc("/observer/position", s.handleObserverPosition).Methods("POST")
	r.HandleFunc("/sightings", s.handleSightings).Methods("GET")
	r.HandleFunc("/metrics", s.handleMetrics).Methods("GET")
}

func (s *AppState) handleDetect(w http.ResponseWriter, r *http.Request) {
	var (
		imgBytes []byte
		err      error
	)
	switch mediaType(r) {
	case "application/json":
		imgBytes, err = handleJSONRequest(r)
	case "multipart/form-data":
		imgBytes, err = handleMultipartRequest(r)
	default:
		imgBytes, err = handleRawRequest(r)
	}
	if err != nil {
		sendErrorResponse(w, "invalid_request", err.Error(), http.StatusBadRequest)
		return
	}

	boxes, err := s.Worker.Detect(r.Context(), imgBytes)
	if err != nil {
		var procErr *detections.ProcessingError
		var initErr *detections.InitializationError
		switch {
		case errors.As(err, &procErr):
			sendErrorResponse(w, "invalid_image", err.Error(), http.StatusBadRequest)
		case errors.As(err, &initErr), errors.Is(err, detections.ErrNotInitialized), errors.Is(err, detections.ErrWorkerClosed):
			sendErrorResponse(w, "engine_unavailable", err.Error(), http.StatusServiceUnavailable)
		default:
			s.Log.WithError(err).Error("detection failed")
			sendErrorResponse(w, "processing_error", err.Error(), http.StatusInternalServerError)
		}
		return
	}
	if boxes == nil {
		boxes = []models.BoundingBox{}
	}

	sendJSON(w, http.StatusOK, DetectResponse{
		Count:   len(boxes),
		Boxes:   boxes,
		Message: detectionMessage(len(boxes)),
	})
}

func (s *AppState) handleSubmitFrame(w http.ResponseWriter, r *http.Request) {
	var req FrameRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxFrameSize)).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			sendErrorResponse(w, "frame_too_large", MsgFrameTooLarge, http.StatusRequestEntityTooLarge)
			return
		}
		sendErrorResponse(w, "invalid_request", err.Error(), http.StatusBadRequest)
		return
	}
	data, err := base64.StdEncoding.DecodeString(req.Data)
	if err != nil {
		sendErrorResponse(w, "invalid_request", "frame data must be base64", http.StatusBadRequest)
		return
	}
	if !s.Queue.Running() {
		sendErrorResponse(w, "queue_stopped", MsgQueueStopped, http.StatusServiceUnavailable)
		return
	}

	timestamp := req.Timestamp
	if timestamp == 0 {
		timestamp = time.Now().UnixMilli()
	}
	s.Queue.Submit(models.VideoFrame{
		Data:        data,
		Width:       req.Width,
		Height:      req.Height,
		PixelFormat: models.PixelFormat(req.PixelFormat),
		Rotation:    req.Rotation,
		Timestamp:   timestamp,
	})

	sendJSON(w, http.StatusAccepted, map[string]interface{}{
		"message":     MsgFrameAccepted,
		"queue_depth": s.Queue.Depth(),
	})
}

func (s *AppState) handleEstimate(w http.ResponseWriter, r *http.Request) {
	var req EstimateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendErrorResponse(w, "invalid_request", err.Error(), http.StatusBadRequest)
		return
	}

	observer := s.observerSnapshot()
	if req.Observer != nil {
		observer = geolocation.NewStaticObserver(req.Observer.ID, req.Observer.Name)
		observer.Location = req.Observer.Location
		observer.Camera = req.Observer.Camera
	}
	frame := &geolocation.GeolocatedFrame{
		Width:    req.Frame.Width,
		Height:   req.Frame.Height,
		Location: observer.Location,
	}
	if req.Box.Label != "" {
		req.Box.Category = detections.CategoryForLabel(req.Box.Label)
	}

	projection, err := geolocation.Project(observer, frame, req.Box)
	if err != nil {
		sendErrorResponse(w, "precondition_failed", err.Error(), http.StatusUnprocessableEntity)
		return
	}
	observation, err := geolocation.NewObservation(observer, frame, req.Box, time.Now().UTC())
	if err != nil {
		sendErrorResponse(w, "precondition_failed", err.Error(), http.StatusUnprocessableEntity)
		return
	}

	sendJSON(w, http.StatusOK, EstimateResponse{Observation: observation, Projection: projection})
}

// handleObserverPosition records a new position fix for the service's
// observer. A mobile observer turns its camera to the direction of travel.
func (s *AppState) handleObserverPosition(w http.ResponseWriter, r *http.Request) {
	var req PositionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Location == nil {
		sendErrorResponse(w, "invalid_request", "location is required", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	o := s.observer
	o.UpdateFrames(&geolocation.GeolocatedFrame{Location: req.Location})
	o.Location = req.Location
	if o.Kind == geolocation.KindMobile && o.CurrentFrame.HorizontalBearing != nil {
		camera := geolocation.CameraTelemetry{BearingDeg: *o.CurrentFrame.HorizontalBearing}
		if o.Camera != nil {
			camera.TiltDeg = o.Camera.TiltDeg
		}
		o.Camera = &camera
	}
	resp := map[string]interface{}{
		"id":       o.ID,
		"kind":     o.Kind.String(),
		"location": o.Location,
		"camera":   o.Camera,
	}
	s.mu.Unlock()

	sendJSON(w, http.StatusOK, resp)
}

func (s *AppState) handleSightings(w http.ResponseWriter, _ *http.Request) {
	sendJSON(w, http.StatusOK, s.Store.All())
}

func (s *AppState) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	response := map[string]interface{}{
		"worker":    s.Worker.GetMetrics(),
		"queue":     s.Queue.LatestStats(),
		"running":   s.Queue.Running(),
		"sightings": s.Store.Len(),
	}
	if s.Publisher != nil {
		response["kafka"] = s.Publisher.GetMetrics()
	}
	sendJSON(w, http.StatusOK, response)
}

// observerSnapshot returns a copy of the service's observer that handlers
// can use without holding the lock.
func (s *AppState) observerSnapshot() *geolocation.Observer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o := *s.observer
	if o.Camera != nil {
		camera := *o.Camera
		o.Camera = &camera
	}
	o.Path = nil
	return &o
}

// currentLocation reports the observer's latest position for the sighting
// recorder.
func (s *AppState) currentLocation() (*geo.Point, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.observer.Location == nil {
		return nil, geolocation.ErrNoLocation
	}
	return s.observer.Location, nil
}

func mediaType(r *http.Request) string {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return ""
	}
	return mt
}

func handleJSONRequest(r *http.Request) ([]byte, error) {
	var req struct {
		Image string `json:"image"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, err
	}
	return base64.StdEncoding.DecodeString(req.Image)
}

func handleMultipartRequest(r *http.Request) ([]byte, error) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		return nil, err
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return io.ReadAll(file)
}

func handleRawRequest(r *http.Request) ([]byte, error) {
	return io.ReadAll(io.LimitReader(r.Body, maxUploadSize))
}

func sendJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func sendErrorResponse(w http.ResponseWriter, code, message string, status int) {
	sendJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}
