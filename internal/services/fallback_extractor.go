package services

import (
	"regexp"
	"strings"
	"time"
)

var (
	invoiceNumberPattern = regexp.MustCompile(`(?i)\binv(?:oice)?\b\s*(?:no\b\.?|number\b|num\b|#|id\b)\s*[:.\-#]?\s*([A-Za-z0-9/\-]+)`)
	invoiceDatePattern   = regexp.MustCompile(`(?i)dated?\s*[:\-]?\s*(\d{1,2}[\-/\s.][A-Za-z0-9]{1,9}[\-/\s.,]*\d{2,4})`)
	gstinPattern         = regexp.MustCompile(`\d{2}[A-Z]{5}\d{4}[A-Z][A-Z\d]Z[A-Z\d]`)
	gstinExactPattern    = regexp.MustCompile(`^\d{2}[A-Z]{5}\d{4}[A-Z][A-Z\d]Z[A-Z\d]$`)
	dateSeparators       = regexp.MustCompile(`[\-/\s.,]+`)
)

// Day first, as printed on Indian invoices.
var invoiceDateLayouts = []string{
	"2-Jan-2006",
	"2-January-2006",
	"2-1-2006",
	"2-Jan-06",
	"2-January-06",
	"2-1-06",
}

const isoDate = "2006-01-02"

// FallbackFields are the fields that can be recovered from raw OCR text.
type FallbackFields struct {
	InvoiceNumber *string
	InvoiceDate   *string
	VendorGSTIN   *string
}

// ApplyFieldFallbacks fills every nil field it can find in rawText. Present
// values are never replaced.
func ApplyFieldFallbacks(rawText string, fields *FallbackFields) {
	if fields == nil {
		return
	}

	if fields.InvoiceNumber == nil {
		fields.InvoiceNumber = findInvoiceNumber(rawText)
	}
	if fields.InvoiceDate == nil {
		fields.InvoiceDate = findInvoiceDate(rawText)
	}
	if fields.VendorGSTIN == nil {
		if m := gstinPattern.FindString(rawText); m != "" {
			fields.VendorGSTIN = &m
		}
	}
}

func findInvoiceNumber(text string) *string {
	m := invoiceNumberPattern.FindStringSubmatch(text)
	if len(m) < 2 {
		return nil
	}
	number := strings.TrimSpace(m[1])
	if number == "" {
		return nil
	}
	return &number
}

func findInvoiceDate(text string) *string {
	m := invoiceDatePattern.FindStringSubmatch(text)
	if len(m) < 2 {
		return nil
	}
	iso, ok := parseInvoiceDate(m[1])
	if !ok {
		return nil
	}
	return &iso
}

func parseInvoiceDate(raw string) (string, bool) {
	normalized := strings.Trim(dateSeparators.ReplaceAllString(strings.TrimSpace(raw), "-"), "-")
	for _, layout := range invoiceDateLayouts {
		if t, err := time.Parse(layout, normalized); err == nil {
			return t.Format(isoDate), true
		}
	}
	return "", false
}

// normalizeGSTIN uppercases and strips spaces, returning nil unless the
// result is a well-formed GSTIN.
func normalizeGSTIN(v *string) *string {
	if v == nil {
		return nil
	}
	s := strings.ToUpper(strings.Join(strings.Fields(*v), ""))
	if !gstinExactPattern.MatchString(s) {
		return nil
	}
	return &s
}
