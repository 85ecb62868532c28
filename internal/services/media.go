package services

import (
	"fmt"

	"github.com/gabriel-vasile/mimetype"
)

const (
	MimePDF  = "application/pdf"
	MimeJPEG = "image/jpeg"
	MimePNG  = "image/png"
	MimeWEBP = "image/webp"
)

var allowedMimeTypes = []string{MimePDF, MimeJPEG, MimePNG, MimeWEBP}

// DetectMimeType sniffs the content and returns its canonical type when it
// is one of the accepted invoice formats.
func DetectMimeType(data []byte) (string, error) {
	detected := mimetype.Detect(data)
	for _, allowed := range allowedMimeTypes {
		if detected.Is(allowed) {
			return allowed, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedMediaType, detected.String())
}

func extensionFor(mimeType string) string {
	switch mimeType {
	case MimePDF:
		return ".pdf"
	case MimePNG:
		return ".png"
	case MimeWEBP:
		return ".webp"
	case MimeJPEG:
		return ".jpg"
	default:
		return ".bin"
	}
}
