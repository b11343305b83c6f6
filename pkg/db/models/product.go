package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product is the catalogue row whose stock the inventory ledger owns.
type Product struct {
	ID         uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	Name       string           `gorm:"type:text;not null" json:"name"`
	Price      decimal.Decimal  `gorm:"type:numeric(12,2);not null" json:"price"`
	PromoPrice *decimal.Decimal `gorm:"type:numeric(12,2)" json:"promo_price,omitempty"`
	Stock      int              `gorm:"not null;default:0;check:stock >= 0" json:"stock"`
	IsActive   bool             `gorm:"not null;default:true" json:"is_active"`
	CategoryID *uuid.UUID       `gorm:"type:uuid" json:"category_id,omitempty"`
	CreatedAt  time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}

// EffectivePrice is the unit price snapshotted onto order lines.
func (p Product) EffectivePrice() decimal.Decimal {
	if p.PromoPrice != nil && p.PromoPrice.IsPositive() && p.PromoPrice.LessThan(p.Price) {
		return *p.PromoPrice
	}
	return p.Price
}
