package imagefit

import (
	"bytes"
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// Default thumbnail box for catalog covers.
const (
	ThumbWidth  = 300
	ThumbHeight = 400
)

// FitPNG scales src to fit inside width x height preserving aspect ratio
// (never upscaling), centers it on an opaque white canvas of exactly that
// size, and re-encodes as PNG.
func FitPNG(src []byte, width, height int) ([]byte, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid target box %dx%d", width, height)
	}
	img, err := imaging.Decode(bytes.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	fitted := img
	b := img.Bounds()
	if b.Dx() > width || b.Dy() > height {
		fitted = imaging.Fit(img, width, height, imaging.Lanczos)
	}

	canvas := imaging.New(width, height, color.White)
	canvas = imaging.PasteCenter(canvas, fitted)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, canvas, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode sniffs and decodes without transforming, reporting the source size.
func Decode(src []byte) (image.Image, int, int, error) {
	img, err := imaging.Decode(bytes.NewReader(src))
	if err != nil {
		return nil, 0, 0, fmt.Errorf("decode image: %w", err)
	}
	b := img.Bounds()
	return img, b.Dx(), b.Dy(), nil
}
