package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alfredoptarigan/gst-invoice-extractor/internal/logging"
	"alfredoptarigan/gst-invoice-extractor/internal/models"
	"alfredoptarigan/gst-invoice-extractor/internal/repositories"
)

func newTestReprocessor(f *processorFixture) Reprocessor {
	return NewReprocessor(f.repo, f.storage, f.extractor, ProcessorOptions{FileTimeout: time.Minute}, logging.Nop())
}

func TestReprocess_OverwritesExtractedFields(t *testing.T) {
	f := newProcessorFixture(t, nil, invoiceJSON("A-1"))
	ctx := context.Background()

	inv, err := f.processor.ProcessFile(ctx, "u1", "purchase", pngFile("a.png", 1))
	require.NoError(t, err)

	f.gemini.responses = []fakeReply{invoiceJSON("A-1-REV")}
	require.NoError(t, newTestReprocessor(f).Reprocess(ctx, inv.ID))

	got, err := f.repo.FindByID(inv.ID)
	require.NoError(t, err)
	assert.Equal(t, "A-1-REV", got.InvoiceNumber)
	assert.Equal(t, models.StatusCompleted, got.ProcessingStatus)
	assert.Nil(t, got.ErrorMessage)
	assert.Equal(t, inv.StorageKey, got.StorageKey)
}

func TestReprocess_FailureIsRecorded(t *testing.T) {
	f := newProcessorFixture(t, nil, invoiceJSON("A-1"))
	ctx := context.Background()

	inv, err := f.processor.ProcessFile(ctx, "u1", "", pngFile("a.png", 1))
	require.NoError(t, err)

	f.ocr.err = &OcrError{Provider: "fake", Err: errors.New("quota exceeded")}
	err = newTestReprocessor(f).Reprocess(ctx, inv.ID)
	require.Error(t, err)

	var pe *ProcessingError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "a.png", pe.FileName)

	got, err := f.repo.FindByID(inv.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, got.ProcessingStatus)
	require.NotNil(t, got.ErrorMessage)
	assert.Contains(t, *got.ErrorMessage, "quota exceeded")
	assert.Equal(t, "A-1", got.InvoiceNumber)
}

func TestReprocess_UnknownInvoice(t *testing.T) {
	f := newProcessorFixture(t, nil, invoiceJSON("A-1"))

	err := newTestReprocessor(f).Reprocess(context.Background(), uuid.New())
	assert.ErrorIs(t, err, repositories.ErrInvoiceNotFound)
}
