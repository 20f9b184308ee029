package models

import (
	"context"
	"errors"
	"time"

	"github.com/mmdatafocus/ledgermirror_backend/config"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// BankMovement mirrors one external bank transaction, keyed by the provider's
// movement id.
type BankMovement struct {
	ID             int             `gorm:"primary_key" json:"id"`
	ProviderId     int             `gorm:"index;not null" json:"provider_id"`
	MovementId     string          `gorm:"uniqueIndex;size:128;not null" json:"movement_id"`
	AccountId      string          `gorm:"index;size:128" json:"account_id"`
	MovementDate   *time.Time      `json:"movement_date"`
	Amount         decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"amount"`
	Currency       string          `gorm:"size:10" json:"currency"`
	VariableSymbol string          `gorm:"index;size:64" json:"variable_symbol"`
	Note           string          `gorm:"type:text" json:"note"`
	RawPayload     []byte          `gorm:"type:json" json:"raw_payload"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (m BankMovement) fillable() map[string]interface{} {
	return map[string]interface{}{
		"account_id":      m.AccountId,
		"movement_date":   m.MovementDate,
		"amount":          m.Amount,
		"currency":        m.Currency,
		"variable_symbol": m.VariableSymbol,
		"note":            m.Note,
		"raw_payload":     m.RawPayload,
	}
}

func UpsertBankMovement(ctx context.Context, input *BankMovement) error {
	db := config.GetDB()

	var existing BankMovement
	err := db.WithContext(ctx).
		Where("movement_id = ?", input.MovementId).
		Take(&existing).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return db.WithContext(ctx).Create(input).Error
		}
		return err
	}

	return db.WithContext(ctx).Model(&BankMovement{}).
		Where("id = ?", existing.ID).
		Updates(input.fillable()).Error
}

// LatestMovementDate is the incremental-fetch watermark for one account.
// Returns nil when no movement is stored yet (fetch everything).
func LatestMovementDate(ctx context.Context, providerId int, accountId string) (*time.Time, error) {
	db := config.GetDB()
	var latest *time.Time
	if err := db.WithContext(ctx).Model(&BankMovement{}).
		Where("provider_id = ? AND account_id = ?", providerId, accountId).
		Select("MAX(movement_date)").
		Scan(&latest).Error; err != nil {
		return nil, err
	}
	return latest, nil
}

// ListMovementsForMatching returns movements in one flow direction.
// outflow=true selects negative amounts (payments out), false positive ones.
func ListMovementsForMatching(ctx context.Context, providerId int, outflow bool) ([]*BankMovement, error) {
	db := config.GetDB()
	movements := make([]*BankMovement, 0)
	dbCtx := db.WithContext(ctx).Where("provider_id = ?", providerId)
	if outflow {
		dbCtx = dbCtx.Where("amount < 0")
	} else {
		dbCtx = dbCtx.Where("amount > 0")
	}
	if err := dbCtx.Order("movement_date").Find(&movements).Error; err != nil {
		return nil, err
	}
	return movements, nil
}
