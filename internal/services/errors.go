package services

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyOCRText         = errors.New("ocr returned no text")
	ErrDuplicateInvoice     = errors.New("invoice already exists for this user")
	ErrUnsupportedMediaType = errors.New("unsupported file type")
	ErrFileTooLarge         = errors.New("file too large")
	ErrTooManyPages         = errors.New("pdf has too many pages")
	ErrInvalidPDF           = errors.New("invalid pdf")
)

const (
	StagePrimary = "primary"
	StageRetry   = "retry"
)

// OcrError means the OCR provider could not be reached or produced no text.
type OcrError struct {
	Provider string
	Err      error
}

func (e *OcrError) Error() string {
	return fmt.Sprintf("ocr failed (%s): %v", e.Provider, e.Err)
}

func (e *OcrError) Unwrap() error { return e.Err }

// ExtractionError means the generative call failed or its body was not the
// expected JSON. Raw holds the model output when there was one.
type ExtractionError struct {
	Stage string
	Raw   string
	Err   error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction failed (%s): %v", e.Stage, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// ProcessingError ties a pipeline failure to the uploaded file it belongs to.
type ProcessingError struct {
	FileName string
	Err      error
}

func (e *ProcessingError) Error() string {
	if e.FileName == "" {
		return fmt.Sprintf("processing failed: %v", e.Err)
	}
	return fmt.Sprintf("processing %s failed: %v", e.FileName, e.Err)
}

func (e *ProcessingError) Unwrap() error { return e.Err }
