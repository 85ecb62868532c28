package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ProcessingStatus string

const (
	StatusQueued     ProcessingStatus = "queued"
	StatusProcessing ProcessingStatus = "processing"
	StatusCompleted  ProcessingStatus = "completed"
	StatusFailed     ProcessingStatus = "failed"
)

type ReconciliationStatus string

const (
	ReconciliationPending    ReconciliationStatus = "pending"
	ReconciliationMatched    ReconciliationStatus = "matched"
	ReconciliationMismatched ReconciliationStatus = "mismatched"
)

func (s ReconciliationStatus) Valid() bool {
	switch s {
	case ReconciliationPending, ReconciliationMatched, ReconciliationMismatched:
		return true
	}
	return false
}

// ExtractedInvoiceData is the corrected output of one extraction run.
// InvoiceDate is always YYYY-MM-DD.
type ExtractedInvoiceData struct {
	InvoiceNumber   string    `gorm:"type:varchar(100);index:idx_invoice_duplicate,priority:2" json:"invoice_number"`
	InvoiceDate     string    `gorm:"type:varchar(10);index:idx_invoice_duplicate,priority:3" json:"invoice_date"`
	VendorName      string    `gorm:"type:text" json:"vendor_name"`
	VendorGSTIN     *string   `gorm:"type:varchar(15)" json:"vendor_gstin"`
	Amount          float64   `gorm:"type:decimal(14,2)" json:"amount"`
	GSTAmount       float64   `gorm:"type:decimal(14,2)" json:"gst_amount"`
	GSTRate         *float64  `gorm:"type:decimal(5,2)" json:"gst_rate"`
	ConfidenceScore int       `json:"confidence_score"`
	RawText         string    `gorm:"type:text" json:"raw_text"`
	ExtractionTime  time.Time `json:"extraction_time"`
}

// NeedsReview reports whether any field was defaulted or retried.
func (d *ExtractedInvoiceData) NeedsReview() bool {
	return d.ConfidenceScore < 100
}

type Invoice struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID      string    `gorm:"type:varchar(100);not null;index;index:idx_invoice_duplicate,priority:1" json:"user_id"`
	InvoiceType string    `gorm:"type:varchar(50)" json:"invoice_type,omitempty"`

	FileName   string `gorm:"type:text" json:"file_name"`
	MimeType   string `gorm:"type:varchar(100)" json:"mime_type"`
	FileSize   int64  `json:"file_size"`
	PageCount  int    `json:"page_count"`
	StorageKey string `gorm:"type:text" json:"storage_key"`
	FileURL    string `gorm:"type:text" json:"file_url"`

	ExtractedInvoiceData `gorm:"embedded"`

	ProcessingStatus     ProcessingStatus     `gorm:"type:varchar(20);not null;default:'queued';index" json:"processing_status"`
	ReconciliationStatus ReconciliationStatus `gorm:"type:varchar(20);not null;default:'pending'" json:"reconciliation_status"`
	NeedsReview          bool                 `gorm:"not null;default:false" json:"needs_review"`
	ErrorMessage         *string              `gorm:"type:text" json:"error_message,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Invoice) TableName() string {
	return "invoices"
}

// BeforeCreate assigns the id in Go so the schema does not depend on a
// database-side uuid generator.
func (i *Invoice) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
