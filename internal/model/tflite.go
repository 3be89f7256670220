package model

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/mattn/go-tflite"
)

type TFLiteEngine struct {
	mu          sync.Mutex
	model       *tflite.Model
	options     *tflite.InterpreterOptions
	interpreter *tflite.Interpreter
	inputShape  []int64
	outputShape []int64
}

func NewTFLiteEngine(cfg EngineConfig) (*TFLiteEngine, error) {
	m := tflite.NewModelFromFile(cfg.ModelPath)
	if m == nil {
		return nil, &OpError{Op: "model.open_tflite", Kind: KindNotFound, Path: cfg.ModelPath, Err: fmt.Errorf("cannot load model")}
	}

	options := tflite.NewInterpreterOptions()
	threads := cfg.Threads
	if threads <= 0 {
		threads = 1
	}
	options.SetNumThread(threads)
	options.SetErrorReporter(func(msg string, _ interface{}) {
		slog.Default().Error("tflite.reporter", "msg", msg)
	}, nil)

	interpreter := tflite.NewInterpreter(m, options)
	if interpreter == nil {
		options.Delete()
		m.Delete()
		return nil, &OpError{Op: "model.open_tflite", Kind: KindInference, Path: cfg.ModelPath, Err: fmt.Errorf("cannot create interpreter")}
	}

	e := &TFLiteEngine{model: m, options: options, interpreter: interpreter}
	if status := interpreter.AllocateTensors(); status != tflite.OK {
		e.Close()
		return nil, &OpError{Op: "model.open_tflite", Kind: KindInference, Path: cfg.ModelPath, Err: fmt.Errorf("allocate tensors: status %v", status)}
	}

	input := interpreter.GetInputTensor(0)
	if input == nil || input.Type() != tflite.Float32 {
		e.Close()
		return nil, &OpError{Op: "model.open_tflite", Kind: KindInvalidInput, Path: cfg.ModelPath, Err: fmt.Errorf("model input must be float32")}
	}
	output := interpreter.GetOutputTensor(0)
	if output == nil || output.Type() != tflite.Float32 {
		e.Close()
		return nil, &OpError{Op: "model.open_tflite", Kind: KindInvalidInput, Path: cfg.ModelPath, Err: fmt.Errorf("model output must be float32")}
	}

	e.inputShape = tensorShape(input)
	e.outputShape = tensorShape(output)
	return e, nil
}

func tensorShape(t *tflite.Tensor) []int64 {
	dims := make([]int64, t.NumDims())
	for i := range dims {
		dims[i] = int64(t.Dim(i))
	}
	return dims
}

// Geometry reads size and layout from the declared input shape, e.g. [1 224 224 3].
func (e *TFLiteEngine) Geometry() (InputGeometry, error) {
	return GeometryFromShape(e.inputShape)
}

func (e *TFLiteEngine) InputSize() int  { return shapeSize(e.inputShape) }
func (e *TFLiteEngine) OutputSize() int { return shapeSize(e.outputShape) }

func (e *TFLiteEngine) Infer(inputData []float32) ([]float32, error) {
	if err := checkInput(inputData, e.InputSize()); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	copy(e.interpreter.GetInputTensor(0).Float32s(), inputData)

	if status := e.interpreter.Invoke(); status != tflite.OK {
		return nil, &OpError{Op: "model.infer_tflite", Kind: KindInference, Err: fmt.Errorf("invoke: status %v", status)}
	}

	out := e.interpreter.GetOutputTensor(0).Float32s()
	scores := make([]float32, len(out))
	copy(scores, out)
	return scores, nil
}

func (e *TFLiteEngine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.interpreter != nil {
		e.interpreter.Delete()
		e.interpreter = nil
	}
	if e.options != nil {
		e.options.Delete()
		e.options = nil
	}
	if e.model != nil {
		e.model.Delete()
		e.model = nil
	}
}
