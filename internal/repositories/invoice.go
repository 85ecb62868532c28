package repositories

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"alfredoptarigan/gst-invoice-extractor/internal/models"
)

var ErrInvoiceNotFound = errors.New("invoice not found")

type InvoiceRepository interface {
	Create(inv *models.Invoice) error
	FindByID(id uuid.UUID) (*models.Invoice, error)
	FindByUser(userID string, limit, offset int) ([]models.Invoice, int64, error)
	// FindDuplicate returns nil, nil when the user has no invoice with this
	// number and date.
	FindDuplicate(userID, invoiceNumber, invoiceDate string) (*models.Invoice, error)
	UpdateStatus(id uuid.UUID, status models.ProcessingStatus) error
	UpdateResult(id uuid.UUID, data *models.ExtractedInvoiceData) error
	UpdateError(id uuid.UUID, errorMsg string) error
	UpdateReconciliationStatus(id uuid.UUID, status models.ReconciliationStatus) error
	Delete(id uuid.UUID) error
	FindPendingJobs(limit int) ([]models.Invoice, error)
}

type invoiceRepository struct {
	db *gorm.DB
}

func NewInvoiceRepository(db *gorm.DB) InvoiceRepository {
	return &invoiceRepository{db: db}
}

func (r *invoiceRepository) Create(inv *models.Invoice) error {
	if err := r.db.Create(inv).Error; err != nil {
		return fmt.Errorf("failed to create invoice: %w", err)
	}
	return nil
}

func (r *invoiceRepository) FindByID(id uuid.UUID) (*models.Invoice, error) {
	var inv models.Invoice
	if err := r.db.Where("id = ?", id).First(&inv).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvoiceNotFound
		}
		return nil, fmt.Errorf("failed to find invoice: %w", err)
	}
	return &inv, nil
}

func (r *invoiceRepository) FindByUser(userID string, limit, offset int) ([]models.Invoice, int64, error) {
	var total int64
	if err := r.db.Model(&models.Invoice{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count invoices: %w", err)
	}

	invoices := []models.Invoice{}
	err := r.db.
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&invoices).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list invoices: %w", err)
	}

	return invoices, total, nil
}

func (r *invoiceRepository) FindDuplicate(userID, invoiceNumber, invoiceDate string) (*models.Invoice, error) {
	var invoices []models.Invoice
	err := r.db.
		Where("user_id = ? AND invoice_number = ? AND invoice_date = ?", userID, invoiceNumber, invoiceDate).
		Limit(1).
		Find(&invoices).Error
	if err != nil {
		return nil, fmt.Errorf("failed to check duplicate invoice: %w", err)
	}
	if len(invoices) == 0 {
		return nil, nil
	}
	return &invoices[0], nil
}

func (r *invoiceRepository) UpdateStatus(id uuid.UUID, status models.ProcessingStatus) error {
	return r.update(id, "status", map[string]interface{}{
		"processing_status": status,
		"updated_at":        time.Now(),
	})
}

func (r *invoiceRepository) UpdateResult(id uuid.UUID, data *models.ExtractedInvoiceData) error {
	return r.update(id, "result", map[string]interface{}{
		"invoice_number":    data.InvoiceNumber,
		"invoice_date":      data.InvoiceDate,
		"vendor_name":       data.VendorName,
		"vendor_gstin":      data.VendorGSTIN,
		"amount":            data.Amount,
		"gst_amount":        data.GSTAmount,
		"gst_rate":          data.GSTRate,
		"confidence_score":  data.ConfidenceScore,
		"raw_text":          data.RawText,
		"extraction_time":   data.ExtractionTime,
		"needs_review":      data.NeedsReview(),
		"processing_status": models.StatusCompleted,
		"error_message":     nil,
		"updated_at":        time.Now(),
	})
}

func (r *invoiceRepository) UpdateError(id uuid.UUID, errorMsg string) error {
	return r.update(id, "error", map[string]interface{}{
		"processing_status": models.StatusFailed,
		"error_message":     errorMsg,
		"updated_at":        time.Now(),
	})
}

func (r *invoiceRepository) UpdateReconciliationStatus(id uuid.UUID, status models.ReconciliationStatus) error {
	return r.update(id, "reconciliation status", map[string]interface{}{
		"reconciliation_status": status,
		"updated_at":            time.Now(),
	})
}

func (r *invoiceRepository) Delete(id uuid.UUID) error {
	result := r.db.Where("id = ?", id).Delete(&models.Invoice{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete invoice: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrInvoiceNotFound
	}
	return nil
}

func (r *invoiceRepository) FindPendingJobs(limit int) ([]models.Invoice, error) {
	var invoices []models.Invoice
	err := r.db.
		Where("processing_status = ?", models.StatusQueued).
		Order("created_at ASC").
		Limit(limit).
		Find(&invoices).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find pending jobs: %w", err)
	}
	return invoices, nil
}

func (r *invoiceRepository) update(id uuid.UUID, what string, updates map[string]interface{}) error {
	result := r.db.Model(&models.Invoice{}).
		Where("id = ?", id).
		Updates(updates)

	if result.Error != nil {
		return fmt.Errorf("failed to update %s: %w", what, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrInvoiceNotFound
	}
	return nil
}
