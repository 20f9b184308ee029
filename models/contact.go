package models

import (
	"context"
	"errors"
	"time"

	"github.com/mmdatafocus/ledgermirror_backend/config"
	"gorm.io/gorm"
)

// Contact mirrors one external counterparty. Used for linking only; it
// carries no financial totals.
type Contact struct {
	ID          int       `gorm:"primary_key" json:"id"`
	ProviderId  int       `gorm:"uniqueIndex:idx_contact_natural_key,priority:1;not null" json:"provider_id"`
	ExternalId  string    `gorm:"uniqueIndex:idx_contact_natural_key,priority:2;size:128;not null" json:"external_id"`
	Name        string    `gorm:"size:255" json:"name"`
	RegId       string    `gorm:"size:64" json:"reg_id"`
	TaxId       string    `gorm:"size:64" json:"tax_id"`
	Street      string    `gorm:"size:255" json:"street"`
	City        string    `gorm:"size:255" json:"city"`
	Zip         string    `gorm:"size:32" json:"zip"`
	BankAccount string    `gorm:"size:64" json:"bank_account"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (c Contact) fillable() map[string]interface{} {
	return map[string]interface{}{
		"name":         c.Name,
		"reg_id":       c.RegId,
		"tax_id":       c.TaxId,
		"street":       c.Street,
		"city":         c.City,
		"zip":          c.Zip,
		"bank_account": c.BankAccount,
	}
}

func UpsertContact(ctx context.Context, input *Contact) error {
	db := config.GetDB()

	var existing Contact
	err := db.WithContext(ctx).
		Where("provider_id = ? AND external_id = ?", input.ProviderId, input.ExternalId).
		Take(&existing).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return db.WithContext(ctx).Create(input).Error
		}
		return err
	}

	return db.WithContext(ctx).Model(&Contact{}).
		Where("id = ?", existing.ID).
		Updates(input.fillable()).Error
}

func GetContactByExternalId(ctx context.Context, providerId int, externalId string) (*Contact, error) {
	db := config.GetDB()
	var contact Contact
	err := db.WithContext(ctx).
		Where("provider_id = ? AND external_id = ?", providerId, externalId).
		Take(&contact).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &contact, nil
}
