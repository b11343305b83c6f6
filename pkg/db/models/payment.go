package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/ordercore-backend/pkg/enums"
)

// Payment is a single settlement attempt against an order.
type Payment struct {
	ID            uuid.UUID           `gorm:"type:uuid;primaryKey" json:"id"`
	OrderID       uuid.UUID           `gorm:"type:uuid;not null;index" json:"order_id"`
	Amount        decimal.Decimal     `gorm:"type:numeric(12,2);not null" json:"amount"`
	Status        enums.PaymentStatus `gorm:"type:varchar(16);not null" json:"status"`
	PaymentMethod enums.PaymentMethod `gorm:"type:varchar(32);not null" json:"payment_method"`
	TransactionID *string             `gorm:"type:varchar(64);uniqueIndex:ux_payments_transaction_id" json:"transaction_id,omitempty"`
	PaidAt        *time.Time          `json:"paid_at,omitempty"`
	CreatedAt     time.Time           `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time           `gorm:"autoUpdateTime" json:"updated_at"`
}

func (p *Payment) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}

// GatewayTrade maps a merchant trade number issued to ECPay back to its order.
type GatewayTrade struct {
	ID              uuid.UUID                `gorm:"type:uuid;primaryKey" json:"id"`
	MerchantTradeNo string                   `gorm:"type:varchar(20);not null;uniqueIndex:ux_gateway_trades_merchant_trade_no" json:"merchant_trade_no"`
	OrderID         uuid.UUID                `gorm:"type:uuid;not null;index" json:"order_id"`
	PaymentID       uuid.UUID                `gorm:"type:uuid;not null" json:"payment_id"`
	Amount          decimal.Decimal          `gorm:"type:numeric(12,2);not null" json:"amount"`
	Status          enums.GatewayTradeStatus `gorm:"type:varchar(16);not null" json:"status"`
	GatewayTradeNo  *string                  `gorm:"type:varchar(32)" json:"gateway_trade_no,omitempty"`
	RtnCode         *int                     `json:"rtn_code,omitempty"`
	RtnMsg          *string                  `gorm:"type:text" json:"rtn_msg,omitempty"`
	CreatedAt       time.Time                `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time                `gorm:"autoUpdateTime" json:"updated_at"`
}

func (t *GatewayTrade) BeforeCreate(*gorm.DB) error {
	ensureID(&t.ID)
	return nil
}
