package models

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/mmdatafocus/ledgermirror_backend/config"
)

// ProviderConfig is one configured external accounting platform account.
// Rows are created and edited by the administration UI; sync only reads them.
type ProviderConfig struct {
	ID        int       `gorm:"primary_key" json:"id"`
	Name      string    `gorm:"size:255;not null" json:"name" validate:"required"`
	BaseURL   string    `gorm:"size:512;not null" json:"base_url" validate:"required,url"`
	AuthEmail string    `gorm:"size:255;not null" json:"auth_email" validate:"required,email"`
	ApiKey    string    `gorm:"size:255;not null" json:"api_key" validate:"required"`
	Enabled   bool      `gorm:"default:true" json:"enabled"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

var providerValidate = validator.New()

// Validate rejects incomplete provider rows at startup rather than letting a
// half-configured provider fail mid-run.
func (p *ProviderConfig) Validate() error {
	if err := providerValidate.Struct(p); err != nil {
		return fmt.Errorf("provider %d (%s) misconfigured: %w", p.ID, p.Name, err)
	}
	return nil
}

func GetProviderConfig(ctx context.Context, id int) (*ProviderConfig, error) {
	db := config.GetDB()
	var provider ProviderConfig
	if err := db.WithContext(ctx).Where("id = ?", id).Take(&provider).Error; err != nil {
		return nil, err
	}
	if err := provider.Validate(); err != nil {
		return nil, err
	}
	return &provider, nil
}

func GetEnabledProviderConfigs(ctx context.Context) ([]*ProviderConfig, error) {
	db := config.GetDB()
	providers := make([]*ProviderConfig, 0)
	if err := db.WithContext(ctx).
		Where("enabled = ?", true).
		Order("id").
		Find(&providers).Error; err != nil {
		return nil, err
	}
	for _, p := range providers {
		if err := p.Validate(); err != nil {
			return nil, err
		}
	}
	return providers, nil
}
