package model

import (
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

type ONNXEngine struct {
	mu           sync.Mutex
	session      *ort.AdvancedSession
	Metadata     Metadata
	inputTensor  *ort.Tensor[float32]
	outputTensor *ort.Tensor[float32]
}

func NewONNXEngine(cfg EngineConfig) (*ONNXEngine, error) {
	if cfg.SharedLibrary != "" {
		ort.SetSharedLibraryPath(cfg.SharedLibrary)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return nil, fmt.Errorf("failed to initialize ONNX environment: %w", err)
	}

	inputName, outputName := cfg.InputName, cfg.OutputName
	if inputName == "" {
		inputName = "input"
	}
	if outputName == "" {
		outputName = "output"
	}

	var metadata Metadata
	var err error
	if cfg.MetadataPath != "" {
		metadata, err = LoadMetadata(cfg.MetadataPath)
	} else {
		metadata, err = probeMetadata(cfg.ModelPath)
	}
	if err != nil {
		ort.DestroyEnvironment()
		return nil, err
	}

	inputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(metadata.InputShape...))
	if err != nil {
		ort.DestroyEnvironment()
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}

	outputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(metadata.OutputShape...))
	if err != nil {
		inputTensor.Destroy()
		ort.DestroyEnvironment()
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(cfg.ModelPath,
		[]string{inputName}, []string{outputName},
		[]ort.ArbitraryTensor{inputTensor}, []ort.ArbitraryTensor{outputTensor},
		nil)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		ort.DestroyEnvironment()
		return nil, &OpError{Op: "model.open_onnx", Kind: KindNotFound, Path: cfg.ModelPath, Err: err}
	}

	return &ONNXEngine{
		session:      session,
		Metadata:     metadata,
		inputTensor:  inputTensor,
		outputTensor: outputTensor,
	}, nil
}

// probeMetadata reads tensor shapes from the model itself when no sidecar is
// shipped. Dynamic batch dimensions are pinned to 1.
func probeMetadata(modelPath string) (Metadata, error) {
	inputs, outputs, err := ort.GetInputOutputInfo(modelPath)
	if err != nil {
		return Metadata{}, &OpError{Op: "model.probe_onnx", Kind: KindNotFound, Path: modelPath, Err: err}
	}
	if len(inputs) == 0 || len(outputs) == 0 {
		return Metadata{}, &OpError{
			Op:   "model.probe_onnx",
			Kind: KindInvalidInput,
			Path: modelPath,
			Err:  fmt.Errorf("model has %d inputs and %d outputs", len(inputs), len(outputs)),
		}
	}
	return Metadata{
		InputShape:  pinDynamic(inputs[0].Dimensions),
		OutputShape: pinDynamic(outputs[0].Dimensions),
	}, nil
}

func pinDynamic(shape ort.Shape) []int64 {
	dims := make([]int64, len(shape))
	for i, d := range shape {
		if d < 1 {
			d = 1
		}
		dims[i] = d
	}
	return dims
}

func (s *ONNXEngine) InputSize() int  { return s.Metadata.InputSize() }
func (s *ONNXEngine) OutputSize() int { return shapeSize(s.Metadata.OutputShape) }

func (s *ONNXEngine) Geometry() (InputGeometry, error) { return s.Metadata.Geometry() }

// Classes is the class list from the metadata sidecar, if one was loaded.
func (s *ONNXEngine) Classes() []string { return s.Metadata.Classes }

func (s *ONNXEngine) Infer(inputData []float32) ([]float32, error) {
	if err := checkInput(inputData, s.InputSize()); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	copy(s.inputTensor.GetData(), inputData)

	if err := s.session.Run(); err != nil {
		return nil, &OpError{Op: "model.infer_onnx", Kind: KindInference, Err: fmt.Errorf("inference failed: %w", err)}
	}

	out := s.outputTensor.GetData()
	scores := make([]float32, len(out))
	copy(scores, out)
	return scores, nil
}

func (s *ONNXEngine) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.inputTensor != nil {
		s.inputTensor.Destroy()
		s.inputTensor = nil
	}
	if s.outputTensor != nil {
		s.outputTensor.Destroy()
		s.outputTensor = nil
	}
	if s.session != nil {
		s.session.Destroy()
		s.session = nil
	}
	ort.DestroyEnvironment()
}
