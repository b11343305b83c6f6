package history

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/ordercore-backend/pkg/db/models"
	"github.com/angelmondragon/ordercore-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/ordercore-backend/pkg/errors"
)

// Transition is a guarded status change. The update only lands when the order
// is currently in one of From.
type Transition struct {
	OrderID       uuid.UUID
	From          []enums.OrderStatus
	To            enums.OrderStatus
	Operator      string
	Remark        string
	PaymentStatus *enums.OrderPaymentStatus
}

// Tracker is the only writer of orders.status and order_histories.
type Tracker interface {
	Record(ctx context.Context, tx *gorm.DB, t Transition) (bool, error)
	Append(ctx context.Context, tx *gorm.DB, entry *models.OrderHistory) error
	Timeline(ctx context.Context, orderID uuid.UUID) ([]models.OrderHistory, error)
}

type tracker struct {
	db  *gorm.DB
	now func() time.Time
}

func NewTracker(db *gorm.DB) (Tracker, error) {
	if db == nil {
		return nil, fmt.Errorf("database required")
	}
	return &tracker{db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

// Record applies the transition and appends a history row. It reports false,
// with no writes, when the order was not in an expected source status.
func (t *tracker) Record(ctx context.Context, tx *gorm.DB, tr Transition) (bool, error) {
	if tx == nil {
		return false, pkgerrors.New(pkgerrors.CodeDependency, "transaction required for status change")
	}
	if tr.OrderID == uuid.Nil {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if !tr.To.IsValid() {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "invalid target status")
	}
	if len(tr.From) == 0 {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "source status required")
	}

	now := t.now()
	updates := map[string]any{
		"status":     tr.To,
		"updated_at": now,
	}
	if tr.PaymentStatus != nil {
		updates["payment_status"] = *tr.PaymentStatus
	}

	res := tx.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status IN ?", tr.OrderID, tr.From).
		UpdateColumns(updates)
	if res.Error != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "update order status")
	}
	if res.RowsAffected == 0 {
		return false, nil
	}

	entry := &models.OrderHistory{
		OrderID:    tr.OrderID,
		Status:     tr.To,
		Operator:   tr.Operator,
		OperatedAt: now,
	}
	if remark := strings.TrimSpace(tr.Remark); remark != "" {
		entry.Remark = &remark
	}
	if err := t.Append(ctx, tx, entry); err != nil {
		return false, err
	}
	return true, nil
}

// Append writes a history row without touching the order.
func (t *tracker) Append(ctx context.Context, tx *gorm.DB, entry *models.OrderHistory) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "transaction required for history")
	}
	if entry == nil || entry.OrderID == uuid.Nil || !entry.Status.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "history entry requires order and status")
	}
	if entry.OperatedAt.IsZero() {
		entry.OperatedAt = t.now()
	}
	if err := tx.WithContext(ctx).Create(entry).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append order history")
	}
	return nil
}

func (t *tracker) Timeline(ctx context.Context, orderID uuid.UUID) ([]models.OrderHistory, error) {
	var rows []models.OrderHistory
	err := t.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("operated_at ASC").
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order history")
	}
	return rows, nil
}
