package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"alfredoptarigan/gst-invoice-extractor/internal/models"
)

const (
	invoiceCollection = "invoices"
	mongoOpTimeout    = 10 * time.Second
)

// invoiceDocument is the stored shape; ids are kept as strings.
type invoiceDocument struct {
	ID          string `bson:"_id"`
	UserID      string `bson:"user_id"`
	InvoiceType string `bson:"invoice_type,omitempty"`

	FileName   string `bson:"file_name"`
	MimeType   string `bson:"mime_type"`
	FileSize   int64  `bson:"file_size"`
	PageCount  int    `bson:"page_count"`
	StorageKey string `bson:"storage_key"`
	FileURL    string `bson:"file_url"`

	InvoiceNumber   string    `bson:"invoice_number"`
	InvoiceDate     string    `bson:"invoice_date"`
	VendorName      string    `bson:"vendor_name"`
	VendorGSTIN     *string   `bson:"vendor_gstin"`
	Amount          float64   `bson:"amount"`
	GSTAmount       float64   `bson:"gst_amount"`
	GSTRate         *float64  `bson:"gst_rate"`
	ConfidenceScore int       `bson:"confidence_score"`
	RawText         string    `bson:"raw_text"`
	ExtractionTime  time.Time `bson:"extraction_time"`

	ProcessingStatus     string  `bson:"processing_status"`
	ReconciliationStatus string  `bson:"reconciliation_status"`
	NeedsReview          bool    `bson:"needs_review"`
	ErrorMessage         *string `bson:"error_message,omitempty"`

	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

func toDocument(inv *models.Invoice) invoiceDocument {
	return invoiceDocument{
		ID:                   inv.ID.String(),
		UserID:               inv.UserID,
		InvoiceType:          inv.InvoiceType,
		FileName:             inv.FileName,
		MimeType:             inv.MimeType,
		FileSize:             inv.FileSize,
		PageCount:            inv.PageCount,
		StorageKey:           inv.StorageKey,
		FileURL:              inv.FileURL,
		InvoiceNumber:        inv.InvoiceNumber,
		InvoiceDate:          inv.InvoiceDate,
		VendorName:           inv.VendorName,
		VendorGSTIN:          inv.VendorGSTIN,
		Amount:               inv.Amount,
		GSTAmount:            inv.GSTAmount,
		GSTRate:              inv.GSTRate,
		ConfidenceScore:      inv.ConfidenceScore,
		RawText:              inv.RawText,
		ExtractionTime:       inv.ExtractionTime,
		ProcessingStatus:     string(inv.ProcessingStatus),
		ReconciliationStatus: string(inv.ReconciliationStatus),
		NeedsReview:          inv.NeedsReview,
		ErrorMessage:         inv.ErrorMessage,
		CreatedAt:            inv.CreatedAt,
		UpdatedAt:            inv.UpdatedAt,
	}
}

func (d invoiceDocument) toModel() (models.Invoice, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return models.Invoice{}, fmt.Errorf("invalid invoice id %q: %w", d.ID, err)
	}
	return models.Invoice{
		ID:          id,
		UserID:      d.UserID,
		InvoiceType: d.InvoiceType,
		FileName:    d.FileName,
		MimeType:    d.MimeType,
		FileSize:    d.FileSize,
		PageCount:   d.PageCount,
		StorageKey:  d.StorageKey,
		FileURL:     d.FileURL,
		ExtractedInvoiceData: models.ExtractedInvoiceData{
			InvoiceNumber:   d.InvoiceNumber,
			InvoiceDate:     d.InvoiceDate,
			VendorName:      d.VendorName,
			VendorGSTIN:     d.VendorGSTIN,
			Amount:          d.Amount,
			GSTAmount:       d.GSTAmount,
			GSTRate:         d.GSTRate,
			ConfidenceScore: d.ConfidenceScore,
			RawText:         d.RawText,
			ExtractionTime:  d.ExtractionTime,
		},
		ProcessingStatus:     models.ProcessingStatus(d.ProcessingStatus),
		ReconciliationStatus: models.ReconciliationStatus(d.ReconciliationStatus),
		NeedsReview:          d.NeedsReview,
		ErrorMessage:         d.ErrorMessage,
		CreatedAt:            d.CreatedAt,
		UpdatedAt:            d.UpdatedAt,
	}, nil
}

type mongoInvoiceRepository struct {
	coll *mongo.Collection
}

func NewMongoInvoiceRepository(db *mongo.Database) InvoiceRepository {
	return &mongoInvoiceRepository{coll: db.Collection(invoiceCollection)}
}

// EnsureMongoIndexes creates the lookup indexes used by the repository.
func EnsureMongoIndexes(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), mongoOpTimeout)
	defer cancel()

	_, err := db.Collection(invoiceCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "invoice_number", Value: 1}, {Key: "invoice_date", Value: 1}}},
		{Keys: bson.D{{Key: "processing_status", Value: 1}, {Key: "created_at", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create invoice indexes: %w", err)
	}
	return nil
}

func (r *mongoInvoiceRepository) Create(inv *models.Invoice) error {
	ctx, cancel := context.WithTimeout(context.Background(), mongoOpTimeout)
	defer cancel()

	now := time.Now()
	if inv.ID == uuid.Nil {
		inv.ID = uuid.New()
	}
	if inv.CreatedAt.IsZero() {
		inv.CreatedAt = now
	}
	inv.UpdatedAt = now
	if inv.ProcessingStatus == "" {
		inv.ProcessingStatus = models.StatusQueued
	}
	if inv.ReconciliationStatus == "" {
		inv.ReconciliationStatus = models.ReconciliationPending
	}

	if _, err := r.coll.InsertOne(ctx, toDocument(inv)); err != nil {
		return fmt.Errorf("failed to create invoice: %w", err)
	}
	return nil
}

func (r *mongoInvoiceRepository) FindByID(id uuid.UUID) (*models.Invoice, error) {
	ctx, cancel := context.WithTimeout(context.Background(), mongoOpTimeout)
	defer cancel()

	var doc invoiceDocument
	if err := r.coll.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrInvoiceNotFound
		}
		return nil, fmt.Errorf("failed to find invoice: %w", err)
	}

	inv, err := doc.toModel()
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *mongoInvoiceRepository) FindByUser(userID string, limit, offset int) ([]models.Invoice, int64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), mongoOpTimeout)
	defer cancel()

	filter := bson.M{"user_id": userID}
	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count invoices: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	invoices, err := r.find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list invoices: %w", err)
	}
	return invoices, total, nil
}

func (r *mongoInvoiceRepository) FindDuplicate(userID, invoiceNumber, invoiceDate string) (*models.Invoice, error) {
	ctx, cancel := context.WithTimeout(context.Background(), mongoOpTimeout)
	defer cancel()

	var doc invoiceDocument
	err := r.coll.FindOne(ctx, bson.M{
		"user_id":        userID,
		"invoice_number": invoiceNumber,
		"invoice_date":   invoiceDate,
	}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to check duplicate invoice: %w", err)
	}

	inv, err := doc.toModel()
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *mongoInvoiceRepository) UpdateStatus(id uuid.UUID, status models.ProcessingStatus) error {
	return r.set(id, "status", bson.M{"processing_status": string(status)})
}

func (r *mongoInvoiceRepository) UpdateResult(id uuid.UUID, data *models.ExtractedInvoiceData) error {
	return r.set(id, "result", bson.M{
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
		"processing_status": string(models.StatusCompleted),
		"error_message":     nil,
	})
}

func (r *mongoInvoiceRepository) UpdateError(id uuid.UUID, errorMsg string) error {
	return r.set(id, "error", bson.M{
		"processing_status": string(models.StatusFailed),
		"error_message":     errorMsg,
	})
}

func (r *mongoInvoiceRepository) UpdateReconciliationStatus(id uuid.UUID, status models.ReconciliationStatus) error {
	return r.set(id, "reconciliation status", bson.M{"reconciliation_status": string(status)})
}

func (r *mongoInvoiceRepository) Delete(id uuid.UUID) error {
	ctx, cancel := context.WithTimeout(context.Background(), mongoOpTimeout)
	defer cancel()

	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id.String()})
	if err != nil {
		return fmt.Errorf("failed to delete invoice: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrInvoiceNotFound
	}
	return nil
}

func (r *mongoInvoiceRepository) FindPendingJobs(limit int) ([]models.Invoice, error) {
	ctx, cancel := context.WithTimeout(context.Background(), mongoOpTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}}).
		SetLimit(int64(limit))

	invoices, err := r.find(ctx, bson.M{"processing_status": string(models.StatusQueued)}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find pending jobs: %w", err)
	}
	return invoices, nil
}

func (r *mongoInvoiceRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.Invoice, error) {
	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []invoiceDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	invoices := make([]models.Invoice, 0, len(docs))
	for _, d := range docs {
		inv, err := d.toModel()
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, inv)
	}
	return invoices, nil
}

func (r *mongoInvoiceRepository) set(id uuid.UUID, what string, fields bson.M) error {
	ctx, cancel := context.WithTimeout(context.Background(), mongoOpTimeout)
	defer cancel()

	fields["updated_at"] = time.Now()
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id.String()}, bson.M{"$set": fields})
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", what, err)
	}
	if res.MatchedCount == 0 {
		return ErrInvoiceNotFound
	}
	return nil
}
