package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/ordercore-backend/pkg/enums"
)

// OrderLine is the item snapshot carried on order events.
type OrderLine struct {
	ProductID uuid.UUID       `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

// OrderCreatedEvent is emitted once the order, its lines and stock deduction commit.
type OrderCreatedEvent struct {
	OrderID     uuid.UUID       `json:"order_id"`
	OrderSN     string          `json:"order_sn"`
	UserID      uuid.UUID       `json:"user_id"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Items       []OrderLine     `json:"items"`
}

// OrderUpdatedEvent lists the fields a typed patch changed.
type OrderUpdatedEvent struct {
	OrderID       uuid.UUID       `json:"order_id"`
	OrderSN       string          `json:"order_sn"`
	ChangedFields []string        `json:"changed_fields"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
}

// OrderStatusChangedEvent records an applied transition.
type OrderStatusChangedEvent struct {
	OrderID  uuid.UUID         `json:"order_id"`
	OrderSN  string            `json:"order_sn"`
	UserID   uuid.UUID         `json:"user_id"`
	From     enums.OrderStatus `json:"from"`
	To       enums.OrderStatus `json:"to"`
	Operator string            `json:"operator"`
}

// OrderPaidEvent is emitted when a payment settles an order.
type OrderPaidEvent struct {
	OrderID         uuid.UUID           `json:"order_id"`
	OrderSN         string              `json:"order_sn"`
	UserID          uuid.UUID           `json:"user_id"`
	PaymentID       uuid.UUID           `json:"payment_id"`
	Amount          decimal.Decimal     `json:"amount"`
	PaymentMethod   enums.PaymentMethod `json:"payment_method"`
	MerchantTradeNo *string             `json:"merchant_trade_no,omitempty"`
	PaidAt          time.Time           `json:"paid_at"`
}

// OrderDeletedEvent is emitted when an order and its dependents are removed.
type OrderDeletedEvent struct {
	OrderID   uuid.UUID         `json:"order_id"`
	OrderSN   string            `json:"order_sn"`
	Status    enums.OrderStatus `json:"status"`
	Restocked bool              `json:"restocked"`
}

// PaymentFailedEvent is emitted when the gateway reports a failed attempt.
type PaymentFailedEvent struct {
	OrderID         uuid.UUID `json:"order_id"`
	PaymentID       uuid.UUID `json:"payment_id"`
	MerchantTradeNo string    `json:"merchant_trade_no"`
	RtnCode         int       `json:"rtn_code"`
	RtnMsg          string    `json:"rtn_msg"`
}

// StockAdjustedEvent is emitted by manual stock adjustments.
type StockAdjustedEvent struct {
	ProductID uuid.UUID `json:"product_id"`
	Delta     int       `json:"delta"`
	Stock     int       `json:"stock"`
}

// NotificationCreatedEvent fans an in-app notification out to push channels.
type NotificationCreatedEvent struct {
	NotificationID uuid.UUID              `json:"notification_id"`
	UserID         uuid.UUID              `json:"user_id"`
	Type           enums.NotificationType `json:"type"`
	Title          string                 `json:"title"`
	Link           *string                `json:"link,omitempty"`
}
