package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"alfredoptarigan/gst-invoice-extractor/internal/logging"
	"alfredoptarigan/gst-invoice-extractor/internal/models"
)

const (
	DefaultVendorName = "Unknown Vendor"

	confidenceFull    = 100
	confidenceRetried = 50
)

// InvoiceExtractor runs OCR, the generative extraction and the repair pass
// over one file.
type InvoiceExtractor interface {
	Extract(ctx context.Context, data []byte, mimeType string) (*models.ExtractedInvoiceData, error)
}

type invoiceExtractor struct {
	ocr           OCRService
	gemini        GeminiService
	promptBuilder *PromptBuilder
	log           logging.Logger
	now           func() time.Time
}

func NewInvoiceExtractor(ocr OCRService, gemini GeminiService, log logging.Logger) InvoiceExtractor {
	return &invoiceExtractor{
		ocr:           ocr,
		gemini:        gemini,
		promptBuilder: NewPromptBuilder(),
		log:           log.With("component", "extractor"),
		now:           time.Now,
	}
}

// Extract returns *ProcessingError wrapping *OcrError or *ExtractionError
// when the OCR or primary extraction step fails. A failed retry pass only
// lowers the confidence score.
func (e *invoiceExtractor) Extract(ctx context.Context, data []byte, mimeType string) (*models.ExtractedInvoiceData, error) {
	start := e.now()

	rawText, err := e.runOCR(ctx, data, mimeType)
	if err != nil {
		return nil, &ProcessingError{Err: err}
	}

	primary, err := e.runPrimary(ctx, rawText)
	if err != nil {
		return nil, &ProcessingError{Err: err}
	}

	result, triple := e.correct(rawText, primary)
	result.ConfidenceScore = confidenceFull

	if needsAmountRetry(triple) {
		e.log.Info(ctx, "money fields incomplete, running retry pass",
			"amount", decimalString(triple.Amount),
			"gst_amount", decimalString(triple.GSTAmount),
			"gst_rate", decimalString(triple.GSTRate),
		)
		triple = e.runRetry(ctx, rawText, triple)
		result.ConfidenceScore = confidenceRetried
	}

	applyTriple(result, triple)
	result.RawText = rawText
	result.ExtractionTime = e.now()

	e.log.Info(ctx, "invoice extracted",
		"invoice_number", result.InvoiceNumber,
		"confidence", result.ConfidenceScore,
		"duration", time.Since(start),
	)
	return result, nil
}

func (e *invoiceExtractor) runOCR(ctx context.Context, data []byte, mimeType string) (string, error) {
	text, err := e.ocr.ExtractText(ctx, data, mimeType)
	if err != nil {
		var ocrErr *OcrError
		if errors.As(err, &ocrErr) {
			return "", ocrErr
		}
		return "", &OcrError{Provider: e.ocr.Name(), Err: err}
	}
	if strings.TrimSpace(text) == "" {
		return "", &OcrError{Provider: e.ocr.Name(), Err: ErrEmptyOCRText}
	}
	return text, nil
}

func (e *invoiceExtractor) runPrimary(ctx context.Context, rawText string) (*llmInvoiceResponse, error) {
	raw, err := e.gemini.GenerateJSON(ctx, e.promptBuilder.BuildExtractionPrompt(rawText))
	if err != nil {
		return nil, &ExtractionError{Stage: StagePrimary, Err: err}
	}

	var resp llmInvoiceResponse
	if err := decodeJSONResponse(StagePrimary, raw, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// runRetry asks only for the money fields. Every non-null, non-negative
// value it returns replaces the current one, zero included. Failures are
// logged and the incoming triple is returned as is.
func (e *invoiceExtractor) runRetry(ctx context.Context, rawText string, triple GSTTriple) GSTTriple {
	raw, err := e.gemini.GenerateJSON(ctx, e.promptBuilder.BuildAmountsRetryPrompt(rawText))
	if err != nil {
		e.log.Warn(ctx, "retry pass failed", "stage", StageRetry, "error", err)
		return triple
	}

	var resp llmAmountsResponse
	if err := decodeJSONResponse(StageRetry, raw, &resp); err != nil {
		e.log.Warn(ctx, "retry pass returned invalid JSON", "stage", StageRetry, "error", err)
		return triple
	}

	if v := nonNegative(resp.Amount.Value); v != nil {
		triple.Amount = v
	}
	if v := nonNegative(resp.GSTAmount.Value); v != nil {
		triple.GSTAmount = v
	}
	if v := nonNegative(resp.GSTRate.Value); v != nil {
		triple.GSTRate = v
	}
	return ReconcileGST(triple)
}

// correct validates and repairs the primary response, filling defaults for
// anything still missing.
func (e *invoiceExtractor) correct(rawText string, resp *llmInvoiceResponse) (*models.ExtractedInvoiceData, GSTTriple) {
	fields := FallbackFields{
		InvoiceNumber: cleanString(resp.InvoiceNumber),
		InvoiceDate:   normalizeLLMDate(resp.InvoiceDate),
		VendorGSTIN:   normalizeGSTIN(resp.VendorGSTIN),
	}

	triple := ReconcileGST(GSTTriple{
		Amount:    nonNegative(resp.Amount.Value),
		GSTAmount: nonNegative(resp.GSTAmount.Value),
		GSTRate:   nonNegative(resp.GSTRate.Value),
	})

	ApplyFieldFallbacks(rawText, &fields)

	now := e.now()
	result := &models.ExtractedInvoiceData{
		InvoiceNumber: fmt.Sprintf("INV-%d", now.UnixMilli()),
		InvoiceDate:   now.Format(isoDate),
		VendorName:    DefaultVendorName,
		VendorGSTIN:   fields.VendorGSTIN,
	}
	if fields.InvoiceNumber != nil {
		result.InvoiceNumber = *fields.InvoiceNumber
	}
	if fields.InvoiceDate != nil {
		result.InvoiceDate = *fields.InvoiceDate
	}
	if resp.VendorName != nil {
		if name := NormalizeVendorName(*resp.VendorName); name != "" {
			result.VendorName = name
		}
	}

	return result, triple
}

func needsAmountRetry(t GSTTriple) bool {
	return !known(t.Amount) || !known(t.GSTAmount) || t.GSTRate == nil
}

func applyTriple(d *models.ExtractedInvoiceData, t GSTTriple) {
	if t.Amount != nil {
		d.Amount = t.Amount.Round(2).InexactFloat64()
	}
	if t.GSTAmount != nil {
		d.GSTAmount = t.GSTAmount.Round(2).InexactFloat64()
	}
	if t.GSTRate != nil {
		rate := t.GSTRate.Round(2).InexactFloat64()
		d.GSTRate = &rate
	}
}

func nonNegative(d *decimal.Decimal) *decimal.Decimal {
	if d == nil || d.IsNegative() {
		return nil
	}
	return d
}

func cleanString(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" || strings.EqualFold(v, "null") {
		return nil
	}
	return &v
}

// normalizeLLMDate accepts ISO dates and the day-first forms printed on
// invoices.
func normalizeLLMDate(s *string) *string {
	v := cleanString(s)
	if v == nil {
		return nil
	}
	if t, err := time.Parse(isoDate, *v); err == nil {
		iso := t.Format(isoDate)
		return &iso
	}
	if iso, ok := parseInvoiceDate(*v); ok {
		return &iso
	}
	return nil
}

func decimalString(d *decimal.Decimal) string {
	if d == nil {
		return "null"
	}
	return d.String()
}
