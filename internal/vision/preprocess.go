// Package vision turns captured frames into model tensors and rejects
// frames that are unlikely to contain a banknote.
package vision

import (
	"fmt"
	"image"
	"strings"

	"github.com/nfnt/resize"
	"golang.org/x/image/draw"
)

// Layout is the memory order of the model's input tensor.
type Layout string

const (
	// LayoutNHWC interleaves channels per pixel: R,G,B,R,G,B,...
	LayoutNHWC Layout = "nhwc"
	// LayoutNCHW stores one full plane per channel.
	LayoutNCHW Layout = "nchw"
)

func ParseLayout(s string) (Layout, error) {
	switch Layout(strings.ToLower(strings.TrimSpace(s))) {
	case "", LayoutNHWC:
		return LayoutNHWC, nil
	case LayoutNCHW:
		return LayoutNCHW, nil
	}
	return "", fmt.Errorf("unknown tensor layout %q", s)
}

const channels = 3

type Preprocessor struct {
	Size   int
	Layout Layout
}

// TensorSize is the number of float32 values Tensor produces.
func (p Preprocessor) TensorSize() int {
	return p.Size * p.Size * channels
}

// Tensor resizes img to Size×Size and normalizes each RGB channel to [0,1].
func (p Preprocessor) Tensor(img image.Image) ([]float32, error) {
	if p.Size <= 0 {
		return nil, fmt.Errorf("invalid target size %d", p.Size)
	}
	if img == nil || img.Bounds().Empty() {
		return nil, fmt.Errorf("empty image")
	}

	resized := toRGBA(resize.Resize(uint(p.Size), uint(p.Size), img, resize.Bilinear))

	width, height := p.Size, p.Size
	plane := width * height
	inputData := make([]float32, channels*plane)

	for y := 0; y < height; y++ {
		row := resized.Pix[y*resized.Stride:]
		for x := 0; x < width; x++ {
			px := row[x*4 : x*4+3]
			r := float32(px[0]) / 255.0
			g := float32(px[1]) / 255.0
			b := float32(px[2]) / 255.0

			pixelIndex := y*width + x
			if p.Layout == LayoutNCHW {
				inputData[pixelIndex] = r
				inputData[plane+pixelIndex] = g
				inputData[2*plane+pixelIndex] = b
				continue
			}
			inputData[pixelIndex*channels] = r
			inputData[pixelIndex*channels+1] = g
			inputData[pixelIndex*channels+2] = b
		}
	}

	return inputData, nil
}

// toRGBA copies img into a zero-origin RGBA buffer unless it already is one.
func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Rect.Min == (image.Point{}) {
		return rgba
	}
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}
