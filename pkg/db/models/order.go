package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/ordercore-backend/pkg/enums"
)

// Order is the aggregate root for a customer purchase.
type Order struct {
	ID              uuid.UUID                `gorm:"type:uuid;primaryKey" json:"id"`
	OrderSN         string                   `gorm:"column:order_sn;type:varchar(32);not null;uniqueIndex:ux_orders_order_sn" json:"order_sn"`
	UserID          uuid.UUID                `gorm:"type:uuid;not null;index" json:"user_id"`
	CustomerID      *uuid.UUID               `gorm:"type:uuid" json:"customer_id,omitempty"`
	TotalAmount     decimal.Decimal          `gorm:"type:numeric(12,2);not null" json:"total_amount"`
	ShippingFee     decimal.Decimal          `gorm:"type:numeric(12,2);not null;default:0" json:"shipping_fee"`
	Status          enums.OrderStatus        `gorm:"type:varchar(16);not null;index" json:"status"`
	PaymentStatus   enums.OrderPaymentStatus `gorm:"type:varchar(16);not null" json:"payment_status"`
	ReceiverName    string                   `gorm:"type:text;not null" json:"receiver_name"`
	ReceiverPhone   string                   `gorm:"type:text;not null" json:"receiver_phone"`
	ShippingAddress string                   `gorm:"type:text;not null" json:"shipping_address"`
	Remark          *string                  `gorm:"type:text" json:"remark,omitempty"`
	CreatedAt       time.Time                `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt       time.Time                `gorm:"autoUpdateTime" json:"updated_at"`

	Items     []OrderItem    `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items,omitempty"`
	Histories []OrderHistory `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"history,omitempty"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	ensureID(&o.ID)
	return nil
}

// OrderItem snapshots a product line at purchase time.
type OrderItem struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	OrderID     uuid.UUID       `gorm:"type:uuid;not null;index" json:"order_id"`
	ProductID   uuid.UUID       `gorm:"type:uuid;not null" json:"product_id"`
	ProductName string          `gorm:"type:text;not null" json:"product_name"`
	Price       decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price"`
	Quantity    int             `gorm:"not null;check:quantity >= 1" json:"quantity"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

func (i *OrderItem) BeforeCreate(*gorm.DB) error {
	ensureID(&i.ID)
	return nil
}

// Subtotal is price times quantity.
func (i OrderItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// OrderHistory is an immutable status timeline entry.
type OrderHistory struct {
	ID         uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	OrderID    uuid.UUID         `gorm:"type:uuid;not null;index" json:"order_id"`
	Status     enums.OrderStatus `gorm:"type:varchar(16);not null" json:"status"`
	Operator   string            `gorm:"type:text;not null" json:"operator"`
	OperatedAt time.Time         `gorm:"not null" json:"operated_at"`
	Remark     *string           `gorm:"type:text" json:"remark,omitempty"`
}

func (OrderHistory) TableName() string {
	return "order_histories"
}

func (h *OrderHistory) BeforeCreate(*gorm.DB) error {
	ensureID(&h.ID)
	if h.OperatedAt.IsZero() {
		h.OperatedAt = time.Now().UTC()
	}
	return nil
}
