package handlers

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"alfredoptarigan/gst-invoice-extractor/internal/logging"
	"alfredoptarigan/gst-invoice-extractor/internal/models"
	"alfredoptarigan/gst-invoice-extractor/internal/repositories"
	"alfredoptarigan/gst-invoice-extractor/internal/services"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

type InvoiceHandler struct {
	repo    repositories.InvoiceRepository
	storage services.StorageService
	log     logging.Logger
}

func NewInvoiceHandler(
	repo repositories.InvoiceRepository,
	storage services.StorageService,
	log logging.Logger,
) *InvoiceHandler {
	return &InvoiceHandler{
		repo:    repo,
		storage: storage,
		log:     log.With("handler", "invoice"),
	}
}

func (h *InvoiceHandler) HandleList(c *fiber.Ctx) error {
	userID := c.Query("user_id")
	if userID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "user_id query parameter is required",
		})
	}

	limit := c.QueryInt("limit", defaultListLimit)
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	offset := c.QueryInt("offset", 0)
	if offset < 0 {
		offset = 0
	}

	invoices, total, err := h.repo.FindByUser(userID, limit, offset)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to list invoices",
		})
	}
	if invoices == nil {
		invoices = []models.Invoice{}
	}

	return c.JSON(models.InvoiceListResponse{
		Invoices: invoices,
		Total:    total,
		Limit:    limit,
		Offset:   offset,
	})
}

func (h *InvoiceHandler) HandleGet(c *fiber.Ctx) error {
	id, err := invoiceIDParam(c)
	if err != nil {
		return invalidIDResponse(c)
	}

	inv, err := h.repo.FindByID(id)
	if err != nil {
		return lookupErrorResponse(c, err)
	}

	return c.JSON(inv)
}

func (h *InvoiceHandler) HandleUpdateReconciliation(c *fiber.Ctx) error {
	id, err := invoiceIDParam(c)
	if err != nil {
		return invalidIDResponse(c)
	}

	var req models.UpdateReconciliationRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	status := models.ReconciliationStatus(req.Status)
	if !status.Valid() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": fmt.Sprintf("invalid status %q (allowed: %s, %s, %s)",
				req.Status, models.ReconciliationPending, models.ReconciliationMatched, models.ReconciliationMismatched),
		})
	}

	if err := h.repo.UpdateReconciliationStatus(id, status); err != nil {
		return lookupErrorResponse(c, err)
	}

	inv, err := h.repo.FindByID(id)
	if err != nil {
		return lookupErrorResponse(c, err)
	}
	return c.JSON(inv)
}

func (h *InvoiceHandler) HandleDelete(c *fiber.Ctx) error {
	id, err := invoiceIDParam(c)
	if err != nil {
		return invalidIDResponse(c)
	}

	inv, err := h.repo.FindByID(id)
	if err != nil {
		return lookupErrorResponse(c, err)
	}

	if err := h.repo.Delete(id); err != nil {
		return lookupErrorResponse(c, err)
	}

	// The record is gone either way; a leftover file is only logged.
	if inv.StorageKey != "" {
		if err := h.storage.Delete(c.UserContext(), inv.StorageKey); err != nil {
			h.log.Warn(c.UserContext(), "failed to delete stored file",
				"invoice_id", id, "storage_key", inv.StorageKey, "error", err)
		}
	}

	return c.JSON(fiber.Map{
		"message": "invoice deleted",
		"id":      id.String(),
	})
}

func invoiceIDParam(c *fiber.Ctx) (uuid.UUID, error) {
	return uuid.Parse(c.Params("id"))
}

func invalidIDResponse(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": "Invalid invoice ID format",
	})
}

func lookupErrorResponse(c *fiber.Ctx, err error) error {
	if errors.Is(err, repositories.ErrInvoiceNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Invoice not found",
		})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": err.Error(),
	})
}
