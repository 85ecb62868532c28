package handlers

import (
	"fmt"
	"io"
	"mime/multipart"
	"strings"

	"github.com/gofiber/fiber/v2"

	"alfredoptarigan/gst-invoice-extractor/internal/logging"
	"alfredoptarigan/gst-invoice-extractor/internal/models"
	"alfredoptarigan/gst-invoice-extractor/internal/services"
)

type UploadHandler struct {
	processor   services.InvoiceProcessor
	maxFiles    int
	maxFileSize int64
	log         logging.Logger
}

func NewUploadHandler(
	processor services.InvoiceProcessor,
	maxFiles int,
	maxFileSize int64,
	log logging.Logger,
) *UploadHandler {
	return &UploadHandler{
		processor:   processor,
		maxFiles:    maxFiles,
		maxFileSize: maxFileSize,
		log:         log.With("handler", "upload"),
	}
}

func (h *UploadHandler) HandleUpload(c *fiber.Ctx) error {
	form, err := c.MultipartForm()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "failed to parse multipart form",
		})
	}

	userID := strings.TrimSpace(formValue(form, "user_id"))
	if userID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "user_id is required",
		})
	}
	invoiceType := strings.TrimSpace(formValue(form, "invoice_type"))

	headers := form.File["files"]
	if len(headers) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "no files uploaded, send one or more 'files' parts",
		})
	}
	if len(headers) > h.maxFiles {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": fmt.Sprintf("too many files. Max files per upload: %d", h.maxFiles),
		})
	}

	// rejects is indexed like headers; nil marks a part sent to the processor.
	var inputs []services.FileInput
	rejects := make([]*models.UploadError, len(headers))
	for i, fh := range headers {
		if fh.Size > h.maxFileSize {
			rejects[i] = &models.UploadError{
				FileName: fh.Filename,
				Error:    fmt.Sprintf("%v: max size %d bytes", services.ErrFileTooLarge, h.maxFileSize),
			}
			continue
		}

		data, err := readFile(fh)
		if err != nil {
			rejects[i] = &models.UploadError{FileName: fh.Filename, Error: err.Error()}
			continue
		}
		inputs = append(inputs, services.FileInput{FileName: fh.Filename, Data: data})
	}

	ctx := c.UserContext()
	var batch services.BatchResult
	if len(inputs) > 0 {
		batch = h.processor.ProcessBatch(ctx, userID, invoiceType, inputs)
	}

	resp := models.UploadResponse{
		Results: []models.UploadedInvoice{},
		Errors:  []models.UploadError{},
	}
	next := 0
	for i := range headers {
		if rejects[i] != nil {
			resp.Errors = append(resp.Errors, *rejects[i])
			continue
		}
		if next >= len(batch.Outcomes) {
			continue
		}
		outcome := batch.Outcomes[next]
		next++

		if outcome.Err != nil {
			resp.Errors = append(resp.Errors, models.UploadError{
				FileName: outcome.Err.FileName,
				Error:    uploadErrorMessage(outcome.Err),
			})
			continue
		}
		inv := outcome.Invoice
		resp.Results = append(resp.Results, models.UploadedInvoice{
			ID:       inv.ID.String(),
			FileName: inv.FileName,
			FileURL:  inv.FileURL,
			Invoice:  inv,
		})
	}

	total := len(headers)
	resp.Success = len(resp.Results) > 0
	resp.Message = fmt.Sprintf("%d of %d files processed successfully", len(resp.Results), total)

	h.log.Info(ctx, "upload processed",
		"user_id", userID,
		"files", total,
		"succeeded", len(resp.Results),
		"failed", len(resp.Errors),
	)

	if !resp.Success {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(resp)
	}
	return c.Status(fiber.StatusOK).JSON(resp)
}

func formValue(form *multipart.Form, key string) string {
	if values := form.Value[key]; len(values) > 0 {
		return values[0]
	}
	return ""
}

func readFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read uploaded file: %w", err)
	}
	return data, nil
}

// uploadErrorMessage drops the file name prefix, it is already in the entry.
func uploadErrorMessage(pe *services.ProcessingError) string {
	if pe.Err == nil {
		return pe.Error()
	}
	return pe.Err.Error()
}
