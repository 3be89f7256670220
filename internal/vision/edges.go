package vision

import (
	"image"

	"github.com/nfnt/resize"
)

// Default pre-filter parameters. A banknote's print, portrait and numerals
// produce dense gradients; a blank wall or covered lens does not.
const (
	DefaultEdgeSize      = 128
	DefaultEdgeMagnitude = 100
	DefaultMinEdges      = 400
)

// EdgeFilter counts strong Sobel gradients on a downscaled grayscale copy of
// a frame and rejects frames with too few of them.
type EdgeFilter struct {
	Size      int
	Magnitude int
	MinEdges  int
}

func DefaultEdgeFilter() EdgeFilter {
	return EdgeFilter{
		Size:      DefaultEdgeSize,
		Magnitude: DefaultEdgeMagnitude,
		MinEdges:  DefaultMinEdges,
	}
}

// Count returns the number of interior pixels whose gradient magnitude is at
// least f.Magnitude.
func (f EdgeFilter) Count(img image.Image) int {
	if img == nil || img.Bounds().Empty() || f.Size < 3 {
		return 0
	}

	gray := luma(toRGBA(resize.Resize(uint(f.Size), uint(f.Size), img, resize.Bilinear)))
	w, h := f.Size, f.Size
	limit := f.Magnitude * f.Magnitude

	edges := 0
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			p := func(dx, dy int) int { return gray[(y+dy)*w+x+dx] }

			gx := -p(-1, -1) - 2*p(-1, 0) - p(-1, 1) +
				p(1, -1) + 2*p(1, 0) + p(1, 1)
			gy := -p(-1, -1) - 2*p(0, -1) - p(1, -1) +
				p(-1, 1) + 2*p(0, 1) + p(1, 1)

			if gx*gx+gy*gy >= limit {
				edges++
			}
		}
	}
	return edges
}

// Plausible reports whether img has enough edges to be worth classifying,
// along with the edge count it measured.
func (f EdgeFilter) Plausible(img image.Image) (bool, int) {
	n := f.Count(img)
	return n >= f.MinEdges, n
}

func luma(img *image.RGBA) []int {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	out := make([]int, w*h)
	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride:]
		for x := 0; x < w; x++ {
			r, g, b := int(row[x*4]), int(row[x*4+1]), int(row[x*4+2])
			out[y*w+x] = (299*r + 587*g + 114*b) / 1000
		}
	}
	return out
}
