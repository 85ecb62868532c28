// Command extract_invoice runs OCR and extraction over local invoice files
// and prints the extracted records as JSON. Nothing is stored.
//
//	go run ./scripts/extract_invoice.go invoice1.pdf invoice2.jpg
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"alfredoptarigan/gst-invoice-extractor/internal/config"
	"alfredoptarigan/gst-invoice-extractor/internal/logging"
	"alfredoptarigan/gst-invoice-extractor/internal/models"
	"alfredoptarigan/gst-invoice-extractor/internal/services"
)

type fileResult struct {
	File    string                       `json:"file"`
	Invoice *models.ExtractedInvoiceData `json:"invoice,omitempty"`
	Error   string                       `json:"error,omitempty"`
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: extract_invoice <file> [file...]")
		os.Exit(2)
	}

	cfg := config.Load()
	log := logging.New(os.Stderr, "text", cfg.Log.Level)
	ctx := context.Background()

	ocrService, err := services.NewOCRService(cfg.OCR, log)
	if err != nil {
		log.Error(ctx, "failed to initialize OCR", "error", err)
		os.Exit(1)
	}
	geminiService, err := services.NewGeminiService(ctx, cfg.Gemini, log)
	if err != nil {
		log.Error(ctx, "failed to initialize Gemini", "error", err)
		os.Exit(1)
	}

	extractor := services.NewInvoiceExtractor(ocrService, geminiService, log)
	pdfParser := services.NewPDFParserService()
	var preprocessor services.ImagePreprocessor
	if cfg.Extraction.EnablePreprocess {
		preprocessor = services.NewImagePreprocessor(cfg.Extraction.MaxImageDimension)
	}

	var (
		results  []fileResult
		failures int
	)
	for _, path := range os.Args[1:] {
		res := fileResult{File: filepath.Base(path)}

		invoice, err := extractFile(ctx, path, cfg, extractor, pdfParser, preprocessor)
		if err != nil {
			failures++
			res.Error = err.Error()
			log.Warn(ctx, "extraction failed", "file", path, "error", err)
		} else {
			res.Invoice = invoice
			log.Info(ctx, "extracted", "file", path, "invoice_number", invoice.InvoiceNumber, "confidence", invoice.ConfidenceScore)
		}
		results = append(results, res)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(results); err != nil {
		log.Error(ctx, "failed to write output", "error", err)
		os.Exit(1)
	}

	if failures == len(results) {
		os.Exit(1)
	}
}

func extractFile(
	ctx context.Context,
	path string,
	cfg *config.Config,
	extractor services.InvoiceExtractor,
	pdfParser services.PDFParserService,
	preprocessor services.ImagePreprocessor,
) (*models.ExtractedInvoiceData, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	mimeType, err := services.DetectMimeType(data)
	if err != nil {
		return nil, err
	}

	if mimeType == services.MimePDF {
		content, err := pdfParser.Inspect(data)
		if err != nil {
			return nil, err
		}
		if content.PageCount > cfg.OCR.MaxPDFPages {
			return nil, fmt.Errorf("%w: %d pages", services.ErrTooManyPages, content.PageCount)
		}
	} else if preprocessor != nil {
		if prepared, mt, err := preprocessor.Prepare(data, mimeType); err == nil {
			data, mimeType = prepared, mt
		}
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.Extraction.FileTimeout)
	defer cancel()
	return extractor.Extract(ctx, data, mimeType)
}
