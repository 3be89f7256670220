package model

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Engine runs a fixed-function classifier over a flat float32 tensor.
type Engine interface {
	Infer(input []float32) ([]float32, error)
	InputSize() int
	OutputSize() int
	Close()
}

const (
	BackendTFLite = "tflite"
	BackendONNX   = "onnx"
)

type EngineConfig struct {
	Backend       string
	ModelPath     string
	MetadataPath  string
	SharedLibrary string
	InputName     string
	OutputName    string
	Threads       int
}

// ResolveBackend resolves the configured backend, falling back to the model file extension.
func (c EngineConfig) ResolveBackend() (string, error) {
	if c.Backend != "" {
		b := strings.ToLower(c.Backend)
		if b != BackendTFLite && b != BackendONNX {
			return "", fmt.Errorf("unknown backend %q", c.Backend)
		}
		return b, nil
	}
	switch strings.ToLower(filepath.Ext(c.ModelPath)) {
	case ".tflite":
		return BackendTFLite, nil
	case ".onnx":
		return BackendONNX, nil
	}
	return "", fmt.Errorf("cannot infer backend from %q", c.ModelPath)
}

// Open loads the model named by cfg with the matching runtime.
func Open(cfg EngineConfig) (Engine, error) {
	backend, err := cfg.ResolveBackend()
	if err != nil {
		return nil, &OpError{Op: "model.open", Kind: KindInvalidInput, Path: cfg.ModelPath, Err: err}
	}
	switch backend {
	case BackendONNX:
		return NewONNXEngine(cfg)
	default:
		return NewTFLiteEngine(cfg)
	}
}

func checkInput(input []float32, want int) error {
	if len(input) != want {
		return &OpError{
			Op:   "model.infer",
			Kind: KindInvalidInput,
			Err:  fmt.Errorf("expected %d values, got %d", want, len(input)),
		}
	}
	return nil
}
