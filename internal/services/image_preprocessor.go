package services

import (
	"bytes"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

type ImagePreprocessor interface {
	// Prepare returns bytes ready for OCR and their MIME type. Formats it
	// does not handle are returned unchanged.
	Prepare(data []byte, mimeType string) ([]byte, string, error)
}

type imagePreprocessor struct {
	maxDimension int
}

func NewImagePreprocessor(maxDimension int) ImagePreprocessor {
	if maxDimension <= 0 {
		maxDimension = 2000
	}
	return &imagePreprocessor{maxDimension: maxDimension}
}

func (p *imagePreprocessor) Prepare(data []byte, mimeType string) ([]byte, string, error) {
	if mimeType != MimeJPEG && mimeType != MimePNG {
		return data, mimeType, nil
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image: %w", err)
	}

	img = p.enhance(img)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(90)); err != nil {
		return nil, "", fmt.Errorf("failed to encode image: %w", err)
	}

	return buf.Bytes(), MimeJPEG, nil
}

// enhance downsizes to maxDimension and lifts text contrast for OCR.
func (p *imagePreprocessor) enhance(img image.Image) image.Image {
	b := img.Bounds()
	if b.Dx() > p.maxDimension || b.Dy() > p.maxDimension {
		img = imaging.Fit(img, p.maxDimension, p.maxDimension, imaging.Lanczos)
	}

	out := imaging.Grayscale(img)
	out = imaging.AdjustContrast(out, 20)
	out = imaging.Sharpen(out, 1.0)
	return out
}
