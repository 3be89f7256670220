package vision

import (
	"bytes"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"image"
	"image/color"
	"image/png"
	"math"
	"testing"
)

func solid(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func stripes(w, h, width int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := color.RGBA{A: 255}
			if (x/width)%2 == 1 {
				c = color.RGBA{R: 255, G: 255, B: 255, A: 255}
			}
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func near(a, b float32) bool {
	return math.Abs(float64(a-b)) <= 2.0/255
}

func TestTensorNHWC(t *testing.T) {
	p := Preprocessor{Size: 8, Layout: LayoutNHWC}
	data, err := p.Tensor(solid(40, 30, color.RGBA{R: 255, G: 0, B: 51, A: 255}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(data) != p.TensorSize() {
		t.Fatalf("expected %d values, got %d", p.TensorSize(), len(data))
	}
	for i := 0; i < len(data); i += 3 {
		if !near(data[i], 1) || !near(data[i+1], 0) || !near(data[i+2], 0.2) {
			t.Fatalf("pixel %d: got %v %v %v", i/3, data[i], data[i+1], data[i+2])
		}
	}
}

func TestTensorNCHW(t *testing.T) {
	p := Preprocessor{Size: 4, Layout: LayoutNCHW}
	data, err := p.Tensor(solid(10, 10, color.RGBA{R: 255, G: 0, B: 0, A: 255}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	plane := 16
	for i := 0; i < plane; i++ {
		if !near(data[i], 1) {
			t.Fatalf("red plane %d = %v", i, data[i])
		}
		if !near(data[plane+i], 0) || !near(data[2*plane+i], 0) {
			t.Fatalf("green/blue plane %d not zero", i)
		}
	}
}

func TestTensorRejectsEmpty(t *testing.T) {
	p := Preprocessor{Size: 4}
	if _, err := p.Tensor(image.NewRGBA(image.Rect(0, 0, 0, 0))); err == nil {
		t.Fatalf("expected error for empty image")
	}
	if _, err := (Preprocessor{}).Tensor(solid(2, 2, color.RGBA{A: 255})); err == nil {
		t.Fatalf("expected error for zero size")
	}
}

func TestParseLayout(t *testing.T) {
	if l, err := ParseLayout(""); err != nil || l != LayoutNHWC {
		t.Fatalf("expected default nhwc, got %q %v", l, err)
	}
	if l, err := ParseLayout("NCHW"); err != nil || l != LayoutNCHW {
		t.Fatalf("expected nchw, got %q %v", l, err)
	}
	if _, err := ParseLayout("chw"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestEdgeFilterUniformImage(t *testing.T) {
	f := DefaultEdgeFilter()
	ok, n := f.Plausible(solid(300, 200, color.RGBA{R: 120, G: 130, B: 140, A: 255}))
	if ok || n != 0 {
		t.Fatalf("uniform image should have no edges, got ok=%v n=%d", ok, n)
	}
}

func TestEdgeFilterStripes(t *testing.T) {
	f := DefaultEdgeFilter()
	ok, n := f.Plausible(stripes(256, 256, 8))
	if !ok {
		t.Fatalf("striped image should pass, got %d edges", n)
	}
}

func TestEdgeFilterThresholdIsInclusive(t *testing.T) {
	img := stripes(256, 256, 8)
	n := DefaultEdgeFilter().Count(img)
	f := EdgeFilter{Size: DefaultEdgeSize, Magnitude: DefaultEdgeMagnitude, MinEdges: n}
	if ok, _ := f.Plausible(img); !ok {
		t.Fatalf("count equal to MinEdges should pass")
	}
	f.MinEdges = n + 1
	if ok, _ := f.Plausible(img); ok {
		t.Fatalf("count below MinEdges should fail")
	}
}

func TestRotateRightAngles(t *testing.T) {
	red := color.RGBA{R: 255, A: 255}
	blue := color.RGBA{B: 255, A: 255}
	src := image.NewRGBA(image.Rect(0, 0, 2, 1))
	src.SetRGBA(0, 0, red)
	src.SetRGBA(1, 0, blue)

	r90 := Rotate(src, 90).(*image.RGBA)
	if r90.Bounds().Dx() != 1 || r90.Bounds().Dy() != 2 {
		t.Fatalf("unexpected bounds %v", r90.Bounds())
	}
	if r90.RGBAAt(0, 0) != red || r90.RGBAAt(0, 1) != blue {
		t.Fatalf("90: unexpected pixels")
	}

	r180 := Rotate(src, 180).(*image.RGBA)
	if r180.RGBAAt(0, 0) != blue || r180.RGBAAt(1, 0) != red {
		t.Fatalf("180: unexpected pixels")
	}

	r270 := Rotate(src, -90).(*image.RGBA)
	if r270.RGBAAt(0, 0) != blue || r270.RGBAAt(0, 1) != red {
		t.Fatalf("270: unexpected pixels")
	}

	if Rotate(src, 360) != image.Image(src) {
		t.Fatalf("full turn should return the input")
	}
}

func TestRotateArbitraryAngleGrowsCanvas(t *testing.T) {
	out := Rotate(solid(100, 50, color.RGBA{G: 255, A: 255}), 45)
	b := out.Bounds()
	if b.Dx() < 100 || b.Dy() < 100 {
		t.Fatalf("expected enlarged canvas, got %v", b)
	}
}

func TestDecode(t *testing.T) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, solid(3, 2, color.RGBA{A: 255})); err != nil {
		t.Fatalf("encode: %v", err)
	}
	img, format, err := Decode(&buf, DefaultMaxPixels)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if format != "png" || img.Bounds().Dx() != 3 {
		t.Fatalf("unexpected result %s %v", format, img.Bounds())
	}
	if _, _, err := Decode(bytes.NewReader([]byte("not an image")), 0); err == nil {
		t.Fatalf("expected error")
	}
}

// hugePNG is a valid 1x1 grayscale PNG whose header is rewritten to claim
// w x h pixels. Only the header is consistent, which is all DecodeConfig reads.
func hugePNG(t *testing.T, w, h uint32) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, 1, 1))); err != nil {
		t.Fatalf("encode: %v", err)
	}
	b := buf.Bytes()
	binary.BigEndian.PutUint32(b[16:20], w)
	binary.BigEndian.PutUint32(b[20:24], h)
	binary.BigEndian.PutUint32(b[29:33], crc32.ChecksumIEEE(b[12:29]))
	return b
}

func TestDecodeRejectsOversizedFrame(t *testing.T) {
	_, format, err := Decode(bytes.NewReader(hugePNG(t, 16000, 16000)), DefaultMaxPixels)
	if !errors.Is(err, ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}
	if format != "png" {
		t.Fatalf("expected format from header, got %q", format)
	}
}

func TestDecodeLimitIsInclusive(t *testing.T) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, solid(10, 10, color.RGBA{A: 255})); err != nil {
		t.Fatalf("encode: %v", err)
	}
	data := buf.Bytes()

	if _, _, err := Decode(bytes.NewReader(data), 100); err != nil {
		t.Fatalf("frame at the limit should decode: %v", err)
	}
	if _, _, err := Decode(bytes.NewReader(data), 99); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge one pixel over, got %v", err)
	}
}
