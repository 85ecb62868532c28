package services

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

type PDFParserService interface {
	Inspect(data []byte) (*PDFContent, error)
}

type PDFContent struct {
	PageCount int
	// Text is the embedded text layer, empty for scanned documents.
	Text string
}

type pdfParserService struct{}

func NewPDFParserService() PDFParserService {
	return &pdfParserService{}
}

// Inspect opens the document from memory. A malformed file that makes the
// reader panic is reported as ErrInvalidPDF.
func (p *pdfParserService) Inspect(data []byte) (content *PDFContent, err error) {
	defer func() {
		if r := recover(); r != nil {
			content = nil
			err = fmt.Errorf("%w: %v", ErrInvalidPDF, r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPDF, err)
	}

	totalPage := r.NumPage()
	if totalPage == 0 {
		return nil, fmt.Errorf("%w: no pages", ErrInvalidPDF)
	}

	var textBuilder strings.Builder
	for pageIndex := 1; pageIndex <= totalPage; pageIndex++ {
		page := r.Page(pageIndex)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		textBuilder.WriteString(text)
		textBuilder.WriteString("\n")
	}

	return &PDFContent{
		PageCount: totalPage,
		Text:      CleanText(textBuilder.String()),
	}, nil
}

// CleanText trims each line and drops blank ones.
func CleanText(text string) string {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	cleaned := make([]string, 0, len(lines))
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			cleaned = append(cleaned, line)
		}
	}
	return strings.Join(cleaned, "\n")
}
