package model

import (
	"encoding/json"
	"fmt"
	"os"
)

type Metadata struct {
	InputShape  []int64  `json:"input_shape"`
	OutputShape []int64  `json:"output_shape"`
	Classes     []string `json:"classes"`
	ImageSize   int      `json:"image_size"`
	Layout      string   `json:"layout,omitempty"`
}

// InputSize is the number of float32 values the input shape holds.
func (m Metadata) InputSize() int {
	return shapeSize(m.InputShape)
}

func shapeSize(shape []int64) int {
	if len(shape) == 0 {
		return 0
	}
	n := 1
	for _, dim := range shape {
		n *= int(dim)
	}
	return n
}

// LoadMetadata reads the JSON sidecar exported next to an ONNX model.
func LoadMetadata(path string) (Metadata, error) {
	metaFile, err := os.ReadFile(path)
	if err != nil {
		return Metadata{}, &OpError{Op: "model.load_metadata", Kind: KindNotFound, Path: path, Err: err}
	}

	var metadata Metadata
	if err := json.Unmarshal(metaFile, &metadata); err != nil {
		return Metadata{}, &OpError{
			Op:   "model.load_metadata",
			Kind: KindInvalidInput,
			Path: path,
			Err:  fmt.Errorf("failed to parse metadata: %w", err),
		}
	}
	if len(metadata.InputShape) == 0 || len(metadata.OutputShape) == 0 {
		return Metadata{}, &OpError{
			Op:   "model.load_metadata",
			Kind: KindInvalidInput,
			Path: path,
			Err:  fmt.Errorf("input_shape and output_shape are required"),
		}
	}
	return metadata, nil
}

type PredictionRequest struct {
	Image []float32 `json:"image"`
}

// Prediction is the decoded output of one inference.
type Prediction struct {
	Label      string             `json:"class"`
	Index      int                `json:"index"`
	Confidence float32            `json:"confidence"`
	Recognized bool               `json:"recognized"`
	Scores     map[string]float32 `json:"predictions"`
}

// Percent is the confidence as a whole percentage.
func (p Prediction) Percent() int {
	return int(p.Confidence*100 + 0.5)
}
