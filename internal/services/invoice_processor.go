package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"alfredoptarigan/gst-invoice-extractor/internal/config"
	"alfredoptarigan/gst-invoice-extractor/internal/logging"
	"alfredoptarigan/gst-invoice-extractor/internal/models"
	"alfredoptarigan/gst-invoice-extractor/internal/repositories"
)

type FileInput struct {
	FileName string
	Data     []byte
}

// FileOutcome is the result of one input file; exactly one field is set.
type FileOutcome struct {
	Invoice *models.Invoice
	Err     *ProcessingError
}

// BatchResult keeps input order in every slice. Outcomes has one entry per
// input file.
type BatchResult struct {
	Results  []models.Invoice
	Errors   []*ProcessingError
	Outcomes []FileOutcome
}

type InvoiceProcessor interface {
	ProcessBatch(ctx context.Context, userID, invoiceType string, files []FileInput) BatchResult
	ProcessFile(ctx context.Context, userID, invoiceType string, file FileInput) (*models.Invoice, error)
}

type ProcessorOptions struct {
	MaxFileSize  int64
	MaxPDFPages  int
	Concurrency  int
	FileTimeout  time.Duration
	Preprocess   bool
	MaxImageSize int
}

func ProcessorOptionsFromConfig(cfg *config.Config) ProcessorOptions {
	return ProcessorOptions{
		MaxFileSize:  cfg.Storage.MaxFileSize,
		MaxPDFPages:  cfg.OCR.MaxPDFPages,
		Concurrency:  cfg.Extraction.Concurrency,
		FileTimeout:  cfg.Extraction.FileTimeout,
		Preprocess:   cfg.Extraction.EnablePreprocess,
		MaxImageSize: cfg.Extraction.MaxImageDimension,
	}
}

type invoiceProcessor struct {
	extractor    InvoiceExtractor
	repo         repositories.InvoiceRepository
	storage      StorageService
	pdfParser    PDFParserService
	preprocessor ImagePreprocessor
	opts         ProcessorOptions
	log          logging.Logger
	now          func() time.Time
}

func NewInvoiceProcessor(
	extractor InvoiceExtractor,
	repo repositories.InvoiceRepository,
	storage StorageService,
	pdfParser PDFParserService,
	opts ProcessorOptions,
	log logging.Logger,
) InvoiceProcessor {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}

	var preprocessor ImagePreprocessor
	if opts.Preprocess {
		preprocessor = NewImagePreprocessor(opts.MaxImageSize)
	}

	return &invoiceProcessor{
		extractor:    extractor,
		repo:         repo,
		storage:      storage,
		pdfParser:    pdfParser,
		preprocessor: preprocessor,
		opts:         opts,
		log:          log.With("component", "processor"),
		now:          time.Now,
	}
}

// ProcessBatch runs every file independently and folds the outcomes. One
// file failing never affects the others.
func (p *invoiceProcessor) ProcessBatch(ctx context.Context, userID, invoiceType string, files []FileInput) BatchResult {
	invoices := make([]*models.Invoice, len(files))
	failures := make([]error, len(files))

	var g errgroup.Group
	g.SetLimit(p.opts.Concurrency)

	for i, f := range files {
		g.Go(func() error {
			invoices[i], failures[i] = p.ProcessFile(ctx, userID, invoiceType, f)
			return nil
		})
	}
	_ = g.Wait()

	result := BatchResult{
		Results:  []models.Invoice{},
		Errors:   []*ProcessingError{},
		Outcomes: make([]FileOutcome, len(files)),
	}
	for i := range files {
		if failures[i] != nil {
			pe := asProcessingError(files[i].FileName, failures[i])
			result.Errors = append(result.Errors, pe)
			result.Outcomes[i] = FileOutcome{Err: pe}
			continue
		}
		result.Results = append(result.Results, *invoices[i])
		result.Outcomes[i] = FileOutcome{Invoice: invoices[i]}
	}

	p.log.Info(ctx, "batch processed",
		"user_id", userID,
		"files", len(files),
		"succeeded", len(result.Results),
		"failed", len(result.Errors),
	)
	return result
}

// ProcessFile validates, extracts, stores and records one upload.
func (p *invoiceProcessor) ProcessFile(ctx context.Context, userID, invoiceType string, file FileInput) (*models.Invoice, error) {
	log := p.log.With("file", file.FileName, "user_id", userID)

	if p.opts.FileTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.opts.FileTimeout)
		defer cancel()
	}

	if p.opts.MaxFileSize > 0 && int64(len(file.Data)) > p.opts.MaxFileSize {
		return nil, p.fail(file, fmt.Errorf("%w: %d bytes exceeds %d", ErrFileTooLarge, len(file.Data), p.opts.MaxFileSize))
	}

	mimeType, err := DetectMimeType(file.Data)
	if err != nil {
		return nil, p.fail(file, err)
	}

	pageCount := 1
	if mimeType == MimePDF {
		content, err := p.pdfParser.Inspect(file.Data)
		if err != nil {
			return nil, p.fail(file, err)
		}
		if p.opts.MaxPDFPages > 0 && content.PageCount > p.opts.MaxPDFPages {
			return nil, p.fail(file, fmt.Errorf("%w: %d pages, limit is %d", ErrTooManyPages, content.PageCount, p.opts.MaxPDFPages))
		}
		pageCount = content.PageCount
		log.Debug(ctx, "pdf inspected", "pages", pageCount, "text_layer_chars", len(content.Text))
	}

	ocrData, ocrMime := file.Data, mimeType
	if p.preprocessor != nil {
		if data, mt, err := p.preprocessor.Prepare(file.Data, mimeType); err != nil {
			log.Warn(ctx, "image preprocessing failed, using original", "error", err)
		} else {
			ocrData, ocrMime = data, mt
		}
	}

	extracted, err := p.extractor.Extract(ctx, ocrData, ocrMime)
	if err != nil {
		log.Error(ctx, "extraction failed", "error", err)
		return nil, p.fail(file, err)
	}

	dup, err := p.repo.FindDuplicate(userID, extracted.InvoiceNumber, extracted.InvoiceDate)
	if err != nil {
		return nil, p.fail(file, err)
	}
	if dup != nil {
		return nil, p.fail(file, fmt.Errorf("%w: %s dated %s (id %s)", ErrDuplicateInvoice, extracted.InvoiceNumber, extracted.InvoiceDate, dup.ID))
	}

	key := BuildStorageKey(userID, mimeType, p.now())
	fileURL, err := p.storage.Save(ctx, key, file.Data, mimeType)
	if err != nil {
		return nil, p.fail(file, fmt.Errorf("failed to store file: %w", err))
	}

	inv := &models.Invoice{
		UserID:               userID,
		InvoiceType:          invoiceType,
		FileName:             file.FileName,
		MimeType:             mimeType,
		FileSize:             int64(len(file.Data)),
		PageCount:            pageCount,
		StorageKey:           key,
		FileURL:              fileURL,
		ExtractedInvoiceData: *extracted,
		ProcessingStatus:     models.StatusCompleted,
		ReconciliationStatus: models.ReconciliationPending,
		NeedsReview:          extracted.NeedsReview(),
	}

	if err := p.repo.Create(inv); err != nil {
		if delErr := p.storage.Delete(context.WithoutCancel(ctx), key); delErr != nil {
			log.Warn(ctx, "failed to clean up stored file", "key", key, "error", delErr)
		}
		return nil, p.fail(file, err)
	}

	log.Info(ctx, "invoice stored",
		"invoice_id", inv.ID,
		"invoice_number", inv.InvoiceNumber,
		"needs_review", inv.NeedsReview,
	)
	return inv, nil
}

func (p *invoiceProcessor) fail(file FileInput, err error) error {
	return asProcessingError(file.FileName, err)
}

// asProcessingError tags err with the file name, reusing an existing
// *ProcessingError from the chain.
func asProcessingError(fileName string, err error) *ProcessingError {
	var pe *ProcessingError
	if errors.As(err, &pe) {
		if pe.FileName == "" {
			pe.FileName = fileName
		}
		return pe
	}
	return &ProcessingError{FileName: fileName, Err: err}
}
