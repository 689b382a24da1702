package detections

import (
	"fmt"
	"io/fs"
	"os"

	"github.com/Tutortoise/sentinel-detection-service/models"
)

type EngineConfig struct {
	ModelPath         string
	ClassesFS         fs.FS
	ClassesFile       string
	SharedLibraryPath string
	// NewSession defaults to ONNXSessionFactory(SharedLibraryPath).
	NewSession SessionFactory
}

// Engine owns a loaded detection model and its class table. It is not safe
// for concurrent use; Worker serialises access to it.
type Engine struct {
	cfg        EngineConfig
	session    Runner
	classNames map[int]string
}

func NewEngine(cfg EngineConfig) *Engine {
	if cfg.NewSession == nil {
		cfg.NewSession = ONNXSessionFactory(cfg.SharedLibraryPath)
	}
	return &Engine{cfg: cfg}
}

// Initialize loads the class table and the model. It is a no-op once it has
// succeeded; after a failure the engine holds no partial state.
func (e *Engine) Initialize() error {
	if e.Initialized() {
		return nil
	}

	if e.cfg.ClassesFS == nil || e.cfg.ClassesFile == "" {
		return &InitializationError{Resource: "class names", Cause: fs.ErrNotExist}
	}
	classNames, err := loadClassNamesFS(e.cfg.ClassesFS, e.cfg.ClassesFile)
	if err != nil {
		return &InitializationError{Resource: "class names", Cause: err}
	}

	if _, err := os.Stat(e.cfg.ModelPath); err != nil {
		return &InitializationError{Resource: "model", Cause: err}
	}
	session, err := e.cfg.NewSession(e.cfg.ModelPath)
	if err != nil {
		return &InitializationError{Resource: "model", Cause: err}
	}

	e.session = session
	e.classNames = classNames
	return nil
}

func (e *Engine) Initialized() bool {
	return e.session != nil && e.classNames != nil
}

// Predict runs one forward pass and returns the flat detection buffer.
func (e *Engine) Predict(tile models.Tile) ([]float32, error) {
	if !e.Initialized() {
		return nil, ErrNotInitialized
	}
	output, err := e.session.Run(tile)
	if err != nil {
		return nil, fmt.Errorf("predict tile at (%d,%d): %w", tile.OffsetX, tile.OffsetY, err)
	}
	return output, nil
}

func (e *Engine) ClassNames() map[int]string {
	return e.classNames
}

func (e *Engine) Destroy() {
	if e.session != nil {
		e.session.Destroy()
	}
	e.session = nil
	e.classNames = nil
}
