package models

import (
	"context"
	"errors"
	"time"

	"github.com/mmdatafocus/ledgermirror_backend/config"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// JournalEntry mirrors one general-ledger posting, keyed by the provider's
// record id (uol_id). The provider is the source of truth for a fiscal
// year's open set; entries it no longer returns are pruned.
type JournalEntry struct {
	ID                int             `gorm:"primary_key" json:"id"`
	ProviderId        int             `gorm:"index;not null" json:"provider_id"`
	UolId             string          `gorm:"uniqueIndex;size:128;not null" json:"uol_id"`
	EntryDate         *time.Time      `json:"entry_date"`
	DebitAccountCode  string          `gorm:"size:32" json:"debit_account_code"`
	CreditAccountCode string          `gorm:"size:32" json:"credit_account_code"`
	Amount            decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"amount"`
	Text              string          `gorm:"type:text" json:"text"`
	FiscalYear        int             `gorm:"index;not null" json:"fiscal_year"`
	CreatedAt         time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (e JournalEntry) fillable() map[string]interface{} {
	return map[string]interface{}{
		"entry_date":          e.EntryDate,
		"debit_account_code":  e.DebitAccountCode,
		"credit_account_code": e.CreditAccountCode,
		"amount":              e.Amount,
		"text":                e.Text,
		"fiscal_year":         e.FiscalYear,
	}
}

func UpsertJournalEntry(ctx context.Context, input *JournalEntry) error {
	db := config.GetDB()

	var existing JournalEntry
	err := db.WithContext(ctx).
		Where("uol_id = ?", input.UolId).
		Take(&existing).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return db.WithContext(ctx).Create(input).Error
		}
		return err
	}

	return db.WithContext(ctx).Model(&JournalEntry{}).
		Where("id = ?", existing.ID).
		Updates(input.fillable()).Error
}

// DeleteStaleJournalEntries removes entries of one fiscal year whose uol_id is
// absent from keepIds. Other years are never touched. With an empty keepIds
// the provider returned nothing for that year, so the whole year is cleared.
func DeleteStaleJournalEntries(ctx context.Context, providerId int, fiscalYear int, keepIds []string) (int64, error) {
	db := config.GetDB()
	dbCtx := db.WithContext(ctx).
		Where("provider_id = ? AND fiscal_year = ?", providerId, fiscalYear)
	if len(keepIds) > 0 {
		dbCtx = dbCtx.Where("uol_id NOT IN ?", keepIds)
	}
	result := dbCtx.Delete(&JournalEntry{})
	return result.RowsAffected, result.Error
}
