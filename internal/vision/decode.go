package vision

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// DefaultMaxPixels bounds decoded frames to roughly a 40 MP photo.
const DefaultMaxPixels = 40_000_000

// ErrTooLarge is returned for frames whose header declares more pixels than
// the caller allows.
var ErrTooLarge = errors.New("image dimensions exceed limit")

// Decode reads a JPEG, PNG, GIF, WebP or BMP frame. The header is checked
// against maxPixels before any pixel data is decoded; maxPixels <= 0
// disables the check.
func Decode(r io.Reader, maxPixels int) (image.Image, string, error) {
	var head bytes.Buffer
	cfg, format, err := image.DecodeConfig(io.TeeReader(r, &head))
	if err != nil {
		return nil, "", fmt.Errorf("decode image: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, format, fmt.Errorf("decode image: empty %s", format)
	}
	if maxPixels > 0 && int64(cfg.Width)*int64(cfg.Height) > int64(maxPixels) {
		return nil, format, fmt.Errorf("decode image: %dx%d %s: %w", cfg.Width, cfg.Height, format, ErrTooLarge)
	}

	img, format, err := image.Decode(io.MultiReader(&head, r))
	if err != nil {
		return nil, "", fmt.Errorf("decode image: %w", err)
	}
	if img.Bounds().Empty() {
		return nil, format, fmt.Errorf("decode image: empty %s", format)
	}
	return img, format, nil
}
