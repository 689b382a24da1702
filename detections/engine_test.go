package detections

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/Tutortoise/sentinel-detection-service/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	output    []float32
	err       error
	destroyed bool
}

func (f *fakeRunner) Run(models.Tile) ([]float32, error) { return f.output, f.err }

func (f *fakeRunner) Destroy() { f.destroyed = true }

func modelFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "model.onnx")
	require.NoError(t, os.WriteFile(path, []byte("onnx"), 0o644))
	return path
}

func classesFS() fstest.MapFS {
	return fstest.MapFS{"classes.txt": {Data: []byte("person\ncar\n")}}
}

func TestEngineInitialize(t *testing.T) {
	t.Run("loads classes and model", func(t *testing.T) {
		runner := &fakeRunner{output: output(record(1, 1, 5, 5, 0.9, 1))}
		var opened string
		engine := NewEngine(EngineConfig{
			ModelPath:   modelFile(t),
			ClassesFS:   classesFS(),
			ClassesFile: "classes.txt",
			NewSession: func(path string) (Runner, error) {
				opened = path
				return runner, nil
			},
		})

		require.NoError(t, engine.Initialize())
		assert.True(t, engine.Initialized())
		assert.NotEmpty(t, opened)
		assert.Equal(t, map[int]string{0: "person", 1: "car"}, engine.ClassNames())

		out, err := engine.Predict(models.Tile{})
		require.NoError(t, err)
		assert.Equal(t, runner.output, out)

		require.NoError(t, engine.Initialize(), "second initialize is a no-op")

		engine.Destroy()
		assert.True(t, runner.destroyed)
		assert.False(t, engine.Initialized())
	})

	t.Run("predict before initialize", func(t *testing.T) {
		engine := NewEngine(EngineConfig{NewSession: func(string) (Runner, error) { return &fakeRunner{}, nil }})
		_, err := engine.Predict(models.Tile{})
		assert.ErrorIs(t, err, ErrNotInitialized)
	})

	failures := []struct {
		name     string
		cfg      func(t *testing.T) EngineConfig
		resource string
	}{
		{
			name: "missing class file",
			cfg: func(t *testing.T) EngineConfig {
				return EngineConfig{ModelPath: modelFile(t), ClassesFS: fstest.MapFS{}, ClassesFile: "classes.txt"}
			},
			resource: "class names",
		},
		{
			name: "empty class file",
			cfg: func(t *testing.T) EngineConfig {
				return EngineConfig{ModelPath: modelFile(t), ClassesFS: fstest.MapFS{"classes.txt": {Data: []byte("\n")}}, ClassesFile: "classes.txt"}
			},
			resource: "class names",
		},
		{
			name: "missing model",
			cfg: func(t *testing.T) EngineConfig {
				return EngineConfig{ModelPath: filepath.Join(t.TempDir(), "absent.onnx"), ClassesFS: classesFS(), ClassesFile: "classes.txt"}
			},
			resource: "model",
		},
		{
			name: "malformed model",
			cfg: func(t *testing.T) EngineConfig {
				return EngineConfig{
					ModelPath:   modelFile(t),
					ClassesFS:   classesFS(),
					ClassesFile: "classes.txt",
					NewSession:  func(string) (Runner, error) { return nil, errors.New("bad protobuf") },
				}
			},
			resource: "model",
		},
	}
	for _, tt := range failures {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg(t)
			if cfg.NewSession == nil {
				cfg.NewSession = func(string) (Runner, error) { return &fakeRunner{}, nil }
			}
			engine := NewEngine(cfg)

			err := engine.Initialize()
			var initErr *InitializationError
			require.ErrorAs(t, err, &initErr)
			assert.Equal(t, tt.resource, initErr.Resource)
			assert.False(t, engine.Initialized())
			assert.Nil(t, engine.ClassNames())

			_, err = engine.Predict(models.Tile{})
			assert.ErrorIs(t, err, ErrNotInitialized)
		})
	}

	t.Run("missing file unwraps to fs error", func(t *testing.T) {
		engine := NewEngine(EngineConfig{ModelPath: modelFile(t), ClassesFS: fstest.MapFS{}, ClassesFile: "classes.txt"})
		assert.ErrorIs(t, engine.Initialize(), fs.ErrNotExist)
	})
}
