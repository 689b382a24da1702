package detections

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/Tutortoise/sentinel-detection-service/models"

	ort "github.com/yalue/onnxruntime_go"
)

// Runner executes one forward pass of the detector for a tile.
type Runner interface {
	Run(tile models.Tile) ([]float32, error)
	Destroy()
}

// SessionFactory opens a Runner for the model at modelPath.
type SessionFactory func(modelPath string) (Runner, error)

type ModelSession struct {
	Session      *ort.AdvancedSession
	Input        *ort.Tensor[float32]
	Output       *ort.Tensor[float32]
	preprocessor *Preprocessor
}

func (m *ModelSession) Run(tile models.Tile) ([]float32, error) {
	m.preprocessor.Fill(tile, m.Input.GetData())

	if err := m.Session.Run(); err != nil {
		return nil, fmt.Errorf("model inference: %w", err)
	}

	data := m.Output.GetData()
	output := make([]float32, len(data))
	copy(output, data)
	return output, nil
}

func (m *ModelSession) Destroy() {
	if m.Session != nil {
		m.Session.Destroy()
	}
	if m.Input != nil {
		m.Input.Destroy()
	}
	if m.Output != nil {
		m.Output.Destroy()
	}
}

var environmentMu sync.Mutex

func ensureEnvironment(libPath string) error {
	environmentMu.Lock()
	defer environmentMu.Unlock()

	if ort.IsInitialized() {
		return nil
	}
	if libPath != "" {
		ort.SetSharedLibraryPath(libPath)
	}
	return ort.InitializeEnvironment()
}

// ONNXSessionFactory returns a SessionFactory backed by ONNX Runtime, loading
// the shared library from libPath on first use.
func ONNXSessionFactory(libPath string) SessionFactory {
	return func(modelPath string) (Runner, error) {
		if err := ensureEnvironment(libPath); err != nil {
			return nil, fmt.Errorf("error initializing onnxruntime environment: %w", err)
		}
		return initSession(modelPath)
	}
}

func initSession(modelPath string) (*ModelSession, error) {
	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("error creating session options: %w", err)
	}
	defer options.Destroy()

	options.SetIntraOpNumThreads(runtime.NumCPU())
	options.SetInterOpNumThreads(1)

	inputShape := ort.NewShape(1, Channels, SideLength, SideLength)
	outputShape := ort.NewShape(1, MaxDetectionsPerInput, ValuesPerBoundingBox)

	inputTensor, err := ort.NewEmptyTensor[float32](inputShape)
	if err != nil {
		return nil, fmt.Errorf("error creating input tensor: %w", err)
	}

	outputTensor, err := ort.NewEmptyTensor[float32](outputShape)
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("error creating output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(
		modelPath,
		[]string{InputLayerName},
		[]string{OutputLayerName},
		[]ort.ArbitraryTensor{inputTensor},
		[]ort.ArbitraryTensor{outputTensor},
		options,
	)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("error creating session: %w", err)
	}

	return &ModelSession{
		Session:      session,
		Input:        inputTensor,
		Output:       outputTensor,
		preprocessor: NewPreprocessor(),
	}, nil
}
