package models

import (
	"context"
	"errors"
	"time"

	"github.com/mmdatafocus/ledgermirror_backend/config"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// AccountingDocument mirrors one external invoice. The natural key is
// (provider_id, document_type, external_id); upserts must conflict on exactly
// that triple.
type AccountingDocument struct {
	ID                 int             `gorm:"primary_key" json:"id"`
	ProviderId         int             `gorm:"uniqueIndex:idx_document_natural_key,priority:1;not null" json:"provider_id"`
	DocumentType       DocumentType    `gorm:"uniqueIndex:idx_document_natural_key,priority:2;size:30;not null" json:"document_type"`
	ExternalId         string          `gorm:"uniqueIndex:idx_document_natural_key,priority:3;size:128;not null" json:"external_id"`
	DocumentNumber     string          `gorm:"index;size:128" json:"document_number"`
	CounterpartyName   string          `gorm:"size:255" json:"counterparty_name"`
	CounterpartyRegId  string          `gorm:"size:64" json:"counterparty_reg_id"`
	CounterpartyTaxId  string          `gorm:"size:64" json:"counterparty_tax_id"`
	Amount             decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"amount"`
	PaidAmount         decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"paid_amount"`
	Currency           string          `gorm:"size:10" json:"currency"`
	IssueDate          *time.Time      `json:"issue_date"`
	DueDate            *time.Time      `json:"due_date"`
	TaxDate            *time.Time      `json:"tax_date"`
	Description        string          `gorm:"type:text" json:"description"`
	Status             string          `gorm:"size:50" json:"status"`
	RawPayload         []byte          `gorm:"type:json" json:"raw_payload"`
	ManuallyPaid       bool            `gorm:"default:false" json:"manually_paid"`
	CreatedAt          time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (d AccountingDocument) fillable() map[string]interface{} {
	return map[string]interface{}{
		"document_number":     d.DocumentNumber,
		"counterparty_name":   d.CounterpartyName,
		"counterparty_reg_id": d.CounterpartyRegId,
		"counterparty_tax_id": d.CounterpartyTaxId,
		"amount":              d.Amount,
		"currency":            d.Currency,
		"issue_date":          d.IssueDate,
		"due_date":            d.DueDate,
		"tax_date":            d.TaxDate,
		"description":         d.Description,
		"status":              d.Status,
		"raw_payload":         d.RawPayload,
	}
}

// UpsertAccountingDocument inserts or refreshes a document row by its natural
// key. When the stored row carries manually_paid, paid_amount is left alone
// no matter what the input says.
func UpsertAccountingDocument(ctx context.Context, input *AccountingDocument) error {
	db := config.GetDB()

	var existing AccountingDocument
	err := db.WithContext(ctx).
		Where("provider_id = ? AND document_type = ? AND external_id = ?",
			input.ProviderId, input.DocumentType, input.ExternalId).
		Take(&existing).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return db.WithContext(ctx).Create(input).Error
		}
		return err
	}

	updates := input.fillable()
	if !existing.ManuallyPaid {
		updates["paid_amount"] = input.PaidAmount
	}
	return db.WithContext(ctx).Model(&AccountingDocument{}).
		Where("id = ?", existing.ID).
		Updates(updates).Error
}

// SetDocumentPaidAmount is the reconciliation write path. It refuses to touch
// manually settled documents.
func SetDocumentPaidAmount(ctx context.Context, documentId int, paidAmount decimal.Decimal) error {
	db := config.GetDB()
	return db.WithContext(ctx).Model(&AccountingDocument{}).
		Where("id = ? AND manually_paid = ?", documentId, false).
		Update("paid_amount", paidAmount).Error
}

// ListUnpaidDocuments returns documents of one type whose paid amount does not
// cover the invoiced amount. Manually settled documents are excluded.
func ListUnpaidDocuments(ctx context.Context, providerId int, docType DocumentType) ([]*AccountingDocument, error) {
	db := config.GetDB()
	docs := make([]*AccountingDocument, 0)
	if err := db.WithContext(ctx).
		Where("provider_id = ? AND document_type = ? AND manually_paid = ?", providerId, docType, false).
		Where("ABS(paid_amount) < ABS(amount)").
		Order("issue_date").
		Find(&docs).Error; err != nil {
		return nil, err
	}
	return docs, nil
}

func FindDocumentByNumber(ctx context.Context, providerId int, docType DocumentType, documentNumber string) (*AccountingDocument, error) {
	if documentNumber == "" {
		return nil, nil
	}
	db := config.GetDB()
	var doc AccountingDocument
	err := db.WithContext(ctx).
		Where("provider_id = ? AND document_type = ? AND document_number = ?", providerId, docType, documentNumber).
		Take(&doc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &doc, nil
}
