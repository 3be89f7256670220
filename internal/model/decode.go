package model

import (
	"fmt"
	"math"
)

// DefaultThreshold is the confidence a class must exceed to be reported.
const DefaultThreshold = 0.5

// Decode picks the arg-max of scores and applies the confidence threshold.
// The first maximum wins on ties. Labels past the last score are ignored.
func Decode(scores []float32, labels Labels, threshold float32) (Prediction, error) {
	if len(scores) == 0 {
		return Prediction{}, &OpError{Op: "model.decode", Kind: KindInference, Err: fmt.Errorf("empty output vector")}
	}
	n := len(scores)
	if len(labels) < n {
		if len(labels) == 0 {
			return Prediction{}, &OpError{Op: "model.decode", Kind: KindInvalidInput, Err: fmt.Errorf("no labels loaded")}
		}
		return Prediction{}, &OpError{
			Op:   "model.decode",
			Kind: KindInvalidInput,
			Err:  fmt.Errorf("model produced %d scores but only %d labels are loaded", n, len(labels)),
		}
	}

	maxIdx := 0
	maxVal := scores[0]
	predictions := make(map[string]float32, n)

	for i, val := range scores {
		if math.IsNaN(float64(val)) || math.IsInf(float64(val), 0) {
			return Prediction{}, &OpError{
				Op:   "model.decode",
				Kind: KindInference,
				Err:  fmt.Errorf("score %d for %q is %v", i, labels[i], val),
			}
		}
		predictions[labels[i]] = val
		if val > maxVal {
			maxVal = val
			maxIdx = i
		}
	}

	label := labels[maxIdx]
	return Prediction{
		Label:      label,
		Index:      maxIdx,
		Confidence: maxVal,
		Recognized: maxVal > threshold && !IsNoCurrency(label),
		Scores:     predictions,
	}, nil
}

// NoCurrency is the prediction reported when a frame is rejected before inference.
func NoCurrency() Prediction {
	return Prediction{Label: "no_currency", Index: -1}
}
