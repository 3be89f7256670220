package vision

import (
	"image"
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
)

// Rotate turns img clockwise by degrees. Right angles move pixels exactly;
// anything else is resampled onto a canvas large enough to hold the result.
func Rotate(img image.Image, degrees int) image.Image {
	degrees %= 360
	if degrees < 0 {
		degrees += 360
	}
	if degrees == 0 {
		return img
	}

	src := toRGBA(img)
	w, h := src.Rect.Dx(), src.Rect.Dy()

	switch degrees {
	case 90:
		dst := image.NewRGBA(image.Rect(0, 0, h, w))
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				dst.SetRGBA(h-1-y, x, src.RGBAAt(x, y))
			}
		}
		return dst
	case 180:
		dst := image.NewRGBA(image.Rect(0, 0, w, h))
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				dst.SetRGBA(w-1-x, h-1-y, src.RGBAAt(x, y))
			}
		}
		return dst
	case 270:
		dst := image.NewRGBA(image.Rect(0, 0, h, w))
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				dst.SetRGBA(y, w-1-x, src.RGBAAt(x, y))
			}
		}
		return dst
	}

	theta := float64(degrees) * math.Pi / 180
	sin, cos := math.Sincos(theta)
	fw, fh := float64(w), float64(h)
	nw := int(math.Ceil(math.Abs(fw*cos) + math.Abs(fh*sin)))
	nh := int(math.Ceil(math.Abs(fw*sin) + math.Abs(fh*cos)))

	cx, cy := fw/2, fh/2
	ncx, ncy := float64(nw)/2, float64(nh)/2

	// y grows downward, so this matrix turns the picture clockwise.
	m := f64.Aff3{
		cos, -sin, ncx - (cos*cx - sin*cy),
		sin, cos, ncy - (sin*cx + cos*cy),
	}

	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	draw.BiLinear.Transform(dst, m, src, src.Bounds(), draw.Src, nil)
	return dst
}
