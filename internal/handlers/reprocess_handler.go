package handlers

import (
	"github.com/gofiber/fiber/v2"

	"alfredoptarigan/gst-invoice-extractor/internal/models"
	"alfredoptarigan/gst-invoice-extractor/internal/repositories"
	"alfredoptarigan/gst-invoice-extractor/internal/services"
)

type ReprocessHandler struct {
	repo   repositories.InvoiceRepository
	worker services.Worker
}

func NewReprocessHandler(repo repositories.InvoiceRepository, worker services.Worker) *ReprocessHandler {
	return &ReprocessHandler{
		repo:   repo,
		worker: worker,
	}
}

func (h *ReprocessHandler) HandleReprocess(c *fiber.Ctx) error {
	id, err := invoiceIDParam(c)
	if err != nil {
		return invalidIDResponse(c)
	}

	inv, err := h.repo.FindByID(id)
	if err != nil {
		return lookupErrorResponse(c, err)
	}

	if inv.ProcessingStatus == models.StatusProcessing {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "invoice is already being processed",
		})
	}

	if err := h.repo.UpdateStatus(id, models.StatusQueued); err != nil {
		return lookupErrorResponse(c, err)
	}

	// A false return means the id is already queued; the poller covers a
	// stopped worker since the record stays queued.
	h.worker.EnqueueJob(id)

	return c.Status(fiber.StatusAccepted).JSON(models.ReprocessResponse{
		ID:     id.String(),
		Status: string(models.StatusQueued),
	})
}
