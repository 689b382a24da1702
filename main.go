package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Tutortoise/sentinel-detection-service/config"
	"github.com/Tutortoise/sentinel-detection-service/detections"
	"github.com/Tutortoise/sentinel-detection-service/geolocation"
	"github.com/Tutortoise/sentinel-detection-service/logging"
	"github.com/Tutortoise/sentinel-detection-service/pipeline"
	"github.com/Tutortoise/sentinel-detection-service/sightings"

	"github.com/benbjohnson/clock"
	"github.com/gorilla/mux"
	geo "github.com/kellydunn/golang-geo"
	"github.com/sirupsen/logrus"
)

func newObserver(cfg config.ObserverConfig) *geolocation.Observer {
	observer := geolocation.NewStaticObserver(1, cfg.Name)
	if cfg.Mobile {
		observer = geolocation.NewMobileObserver(1, cfg.Name)
	}
	observer.Status = geolocation.StatusActive
	if cfg.HasFix {
		observer.Location = geo.NewPoint(cfg.Lat, cfg.Lon)
	}
	observer.Camera = &geolocation.CameraTelemetry{BearingDeg: cfg.BearingDeg, TiltDeg: cfg.TiltDeg}
	return observer
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("failed to load configuration")
	}
	log := logging.New(cfg.Debug)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	classesFS, classesFile := classesSource(cfg.ClassesPath)
	engine := detections.NewEngine(detections.EngineConfig{
		ModelPath:         cfg.ModelPath,
		ClassesFS:         classesFS,
		ClassesFile:       classesFile,
		SharedLibraryPath: cfg.SharedLibraryPath,
	})
	parser := &detections.Parser{
		FilterByMinConfidence: cfg.FilterMinConfidence,
		MinConfidence:         cfg.MinConfidence,
	}
	worker := detections.NewWorker(engine, parser, log)
	defer worker.Close()

	if err := worker.Initialize(ctx); err != nil {
		log.WithError(err).Fatal("failed to initialize inference engine")
	}

	queue := pipeline.New(worker, pipeline.Config{
		MaxQueueSize:    cfg.MaxQueueSize,
		FrameSkipFactor: cfg.FrameSkipFactor,
	}, pipeline.WithLogger(log))

	state := &AppState{
		Worker:   worker,
		Queue:    queue,
		Store:    sightings.NewStore(),
		Log:      log,
		observer: newObserver(cfg.Observer),
	}

	locator := geolocation.NewFallbackLocator(geolocation.LocatorFunc(func(context.Context) (*geo.Point, error) {
		return state.currentLocation()
	}), log)
	recorder := sightings.NewRecorder(state.Store, locator, sightings.RecorderConfig{
		Label:    cfg.SightingLabel,
		Cooldown: cfg.SightingCooldown,
	}, clock.New(), log)

	events, unsubscribe := queue.Subscribe(pipeline.DefaultSubscriberBuffer)
	defer unsubscribe()
	go recorder.Run(ctx, events)

	if cfg.Kafka.Enabled() {
		publisher, err := sightings.NewKafkaPublisher(sightings.KafkaConfig{
			BootstrapServers: cfg.Kafka.BootstrapServers,
			Topic:            cfg.Kafka.Topic,
		}, log)
		if err != nil {
			log.WithError(err).Fatal("failed to create kafka publisher")
		}
		defer publisher.Close()

		added, unsubscribeAdded := state.Store.Subscribe(pipeline.DefaultSubscriberBuffer)
		defer unsubscribeAdded()
		go publisher.Run(ctx, added)
		state.Publisher = publisher
	}

	queue.Start()
	defer queue.Stop()

	r := mux.NewRouter()
	state.addRoutes(r)

	srv := &http.Server{
		Handler:      r,
		Addr:         cfg.ListenAddr,
		WriteTimeout: 60 * time.Second,
		ReadTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("server shutdown")
		}
	}()

	log.WithField("addr", srv.Addr).Info("starting server")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.WithError(err).Error("server stopped")
	}
}
