package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"alfredoptarigan/gst-invoice-extractor/internal/logging"
	"alfredoptarigan/gst-invoice-extractor/internal/models"
	"alfredoptarigan/gst-invoice-extractor/internal/repositories"
)

// Reprocessor re-runs extraction over a file that is already stored and
// writes the outcome back onto its record.
type Reprocessor interface {
	Reprocess(ctx context.Context, invoiceID uuid.UUID) error
}

type reprocessor struct {
	repo         repositories.InvoiceRepository
	storage      StorageService
	extractor    InvoiceExtractor
	preprocessor ImagePreprocessor
	timeout      time.Duration
	log          logging.Logger
}

func NewReprocessor(
	repo repositories.InvoiceRepository,
	storage StorageService,
	extractor InvoiceExtractor,
	opts ProcessorOptions,
	log logging.Logger,
) Reprocessor {
	var preprocessor ImagePreprocessor
	if opts.Preprocess {
		preprocessor = NewImagePreprocessor(opts.MaxImageSize)
	}
	return &reprocessor{
		repo:         repo,
		storage:      storage,
		extractor:    extractor,
		preprocessor: preprocessor,
		timeout:      opts.FileTimeout,
		log:          log.With("component", "reprocessor"),
	}
}

func (r *reprocessor) Reprocess(ctx context.Context, invoiceID uuid.UUID) error {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	inv, err := r.repo.FindByID(invoiceID)
	if err != nil {
		return fmt.Errorf("failed to load invoice: %w", err)
	}

	if err := r.repo.UpdateStatus(invoiceID, models.StatusProcessing); err != nil {
		return fmt.Errorf("failed to update status: %w", err)
	}

	extracted, err := r.extract(ctx, inv)
	if err != nil {
		if updErr := r.repo.UpdateError(invoiceID, err.Error()); updErr != nil {
			r.log.Error(ctx, "failed to record reprocessing error", "invoice_id", invoiceID, "error", updErr)
		}
		return err
	}

	if err := r.repo.UpdateResult(invoiceID, extracted); err != nil {
		return fmt.Errorf("failed to save result: %w", err)
	}

	r.log.Info(ctx, "invoice reprocessed",
		"invoice_id", invoiceID,
		"invoice_number", extracted.InvoiceNumber,
		"confidence", extracted.ConfidenceScore,
	)
	return nil
}

func (r *reprocessor) extract(ctx context.Context, inv *models.Invoice) (*models.ExtractedInvoiceData, error) {
	data, err := r.storage.Open(ctx, inv.StorageKey)
	if err != nil {
		return nil, &ProcessingError{FileName: inv.FileName, Err: fmt.Errorf("failed to open stored file: %w", err)}
	}

	mimeType := inv.MimeType
	if r.preprocessor != nil {
		if prepared, mt, err := r.preprocessor.Prepare(data, mimeType); err == nil {
			data, mimeType = prepared, mt
		} else {
			r.log.Warn(ctx, "image preprocessing failed, using original", "invoice_id", inv.ID, "error", err)
		}
	}

	extracted, err := r.extractor.Extract(ctx, data, mimeType)
	if err != nil {
		return nil, asProcessingError(inv.FileName, err)
	}
	return extracted, nil
}
