package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/ordercore-backend/pkg/db/models"
	"github.com/angelmondragon/ordercore-backend/pkg/enums"
	"github.com/angelmondragon/ordercore-backend/pkg/pagination"
)

// ItemInput is one requested order line.
type ItemInput struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,min=1"`
}

// CreateInput is the order creation contract.
type CreateInput struct {
	ReceiverName    string           `json:"receiver_name" validate:"required,max=100"`
	ReceiverPhone   string           `json:"receiver_phone" validate:"required,max=32"`
	ShippingAddress string           `json:"shipping_address" validate:"required,max=500"`
	Items           []ItemInput      `json:"items" validate:"required,min=1,dive"`
	Remark          *string          `json:"remark,omitempty" validate:"omitempty,max=500"`
	CustomerID      *uuid.UUID       `json:"customer_id,omitempty"`
	ShippingFee     *decimal.Decimal `json:"shipping_fee,omitempty"`
}

// UpdateInput is the typed patch accepted by PUT /orders/{id}. Nil fields are left untouched.
type UpdateInput struct {
	ReceiverName    *string      `json:"receiver_name,omitempty" validate:"omitempty,min=1,max=100"`
	ReceiverPhone   *string      `json:"receiver_phone,omitempty" validate:"omitempty,min=1,max=32"`
	ShippingAddress *string      `json:"shipping_address,omitempty" validate:"omitempty,min=1,max=500"`
	Remark          *string      `json:"remark,omitempty" validate:"omitempty,max=500"`
	Items           *[]ItemInput `json:"items,omitempty" validate:"omitempty,min=1,dive"`
}

// IsEmpty reports whether the patch changes nothing.
func (u UpdateInput) IsEmpty() bool {
	return u.ReceiverName == nil && u.ReceiverPhone == nil && u.ShippingAddress == nil && u.Remark == nil && u.Items == nil
}

// ListFilters narrow GET /orders.
type ListFilters struct {
	UserID    *uuid.UUID
	Status    *enums.OrderStatus
	DateStart *time.Time
	DateEnd   *time.Time
	Keyword   string
	SortBy    string
	SortOrder string
}

// ListParams is the service-level listing request.
type ListParams struct {
	Status       string
	DateStart    *time.Time
	DateEnd      *time.Time
	Keyword      string
	SortBy       string
	SortOrder    string
	IncludeItems bool
	Page         pagination.PageParams
}

// OrderList is one page of orders.
type OrderList struct {
	Items []models.Order `json:"items"`
	pagination.PageMeta
}

// GetOptions selects the associations loaded with an order.
type GetOptions struct {
	IncludeItems   bool
	IncludeHistory bool
}

// BatchStatusInput drives PUT /orders/status.
type BatchStatusInput struct {
	IDs    []uuid.UUID `json:"ids" validate:"required,min=1,max=100"`
	Status string      `json:"status" validate:"required"`
	Remark *string     `json:"remark,omitempty" validate:"omitempty,max=500"`
}

// Skip reasons reported by the batch status update.
const (
	SkipNotFound          = "not_found"
	SkipForbidden         = "forbidden"
	SkipInvalidTransition = "invalid_transition"
	SkipStateChanged      = "state_changed"
	SkipError             = "error"
)

// SkippedOrder explains why one id of a batch was not updated.
type SkippedOrder struct {
	ID     uuid.UUID `json:"id"`
	Reason string    `json:"reason"`
}

// BatchStatusResult reports the outcome per id.
type BatchStatusResult struct {
	Updated []uuid.UUID    `json:"updated"`
	Skipped []SkippedOrder `json:"skipped"`
}
