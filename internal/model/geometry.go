package model

import (
	"fmt"
	"math"
	"strings"
)

// Tensor layouts as written in metadata sidecars and config.
const (
	LayoutNHWC = "nhwc"
	LayoutNCHW = "nchw"
)

// InputGeometry is the square RGB frame an engine consumes.
type InputGeometry struct {
	Size   int
	Layout string
}

// GeometryFromShape reads a [1,H,W,3] or [1,3,H,W] input shape. The batch
// dimension may be omitted.
func GeometryFromShape(shape []int64) (InputGeometry, error) {
	dims := shape
	if len(dims) == 4 {
		if dims[0] != 1 {
			return InputGeometry{}, fmt.Errorf("input shape %v: batch must be 1", shape)
		}
		dims = dims[1:]
	}
	if len(dims) == 3 {
		switch {
		case dims[2] == 3 && dims[0] == dims[1] && dims[0] > 0:
			return InputGeometry{Size: int(dims[0]), Layout: LayoutNHWC}, nil
		case dims[0] == 3 && dims[1] == dims[2] && dims[1] > 0:
			return InputGeometry{Size: int(dims[1]), Layout: LayoutNCHW}, nil
		}
	}
	return InputGeometry{}, fmt.Errorf("input shape %v is not a square RGB frame", shape)
}

// Geometry prefers the input shape; image_size covers sidecars whose shape
// is missing or dynamic. An explicit layout always wins.
func (m Metadata) Geometry() (InputGeometry, error) {
	g, err := GeometryFromShape(m.InputShape)
	if err != nil {
		if m.ImageSize <= 0 {
			return InputGeometry{}, err
		}
		g = InputGeometry{Size: m.ImageSize, Layout: LayoutNCHW}
	}
	if m.Layout != "" {
		g.Layout = strings.ToLower(m.Layout)
	}
	return g, nil
}

type geometryReporter interface {
	Geometry() (InputGeometry, error)
}

type classReporter interface {
	Classes() []string
}

// GeometryOf asks e for its input geometry. Engines that cannot say are
// assumed to take an interleaved square frame matching InputSize.
func GeometryOf(e Engine) (InputGeometry, error) {
	if g, ok := e.(geometryReporter); ok {
		return g.Geometry()
	}
	n := e.InputSize()
	side := int(math.Sqrt(float64(n / 3)))
	if side == 0 || side*side*3 != n {
		return InputGeometry{}, fmt.Errorf("input of %d values is not a square RGB frame", n)
	}
	return InputGeometry{Size: side, Layout: LayoutNHWC}, nil
}

// CheckClasses compares labels with the class list shipped in the model's
// metadata, when there is one.
func CheckClasses(e Engine, labels Labels) error {
	r, ok := e.(classReporter)
	if !ok {
		return nil
	}
	for i, class := range r.Classes() {
		if i >= len(labels) || labels[i] != class {
			got := "<missing>"
			if i < len(labels) {
				got = labels[i]
			}
			return &OpError{
				Op:   "model.check_classes",
				Kind: KindInvalidInput,
				Err:  fmt.Errorf("label %d is %q but the model metadata names %q", i, got, class),
			}
		}
	}
	return nil
}
