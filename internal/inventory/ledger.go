package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/ordercore-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/ordercore-backend/pkg/errors"
)

// Ledger is the only writer of products.stock.
type Ledger interface {
	Deduct(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) error
	Restock(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) error
	Adjust(ctx context.Context, tx *gorm.DB, productID uuid.UUID, delta int) error
}

// StockShortage is attached to INSUFFICIENT_STOCK errors.
type StockShortage struct {
	ProductID uuid.UUID `json:"product_id"`
	Requested int       `json:"requested"`
	Available int       `json:"available"`
}

type ledger struct{}

// NewLedger returns the conditional-update stock ledger.
func NewLedger() Ledger {
	return ledger{}
}

// Deduct atomically decrements stock when at least qty units are on hand.
func (ledger) Deduct(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) error {
	if err := validate(tx, productID, qty); err != nil {
		return err
	}

	res := tx.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ? AND stock >= ?", productID, qty).
		UpdateColumns(map[string]any{
			"stock":      gorm.Expr("stock - ?", qty),
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "deduct stock")
	}
	if res.RowsAffected == 1 {
		return nil
	}

	var product models.Product
	err := tx.WithContext(ctx).Select("id", "stock").Where("id = ?", productID).First(&product).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not found").
			WithDetails(map[string]any{"product_id": productID})
	}
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product stock")
	}
	return pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock").
		WithDetails(StockShortage{ProductID: productID, Requested: qty, Available: product.Stock})
}

// Restock returns qty units to the product.
func (ledger) Restock(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) error {
	if err := validate(tx, productID, qty); err != nil {
		return err
	}

	res := tx.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", productID).
		UpdateColumns(map[string]any{
			"stock":      gorm.Expr("stock + ?", qty),
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "restock product")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not found").
			WithDetails(map[string]any{"product_id": productID})
	}
	return nil
}

// Adjust applies a signed delta; negative deltas go through Deduct.
func (l ledger) Adjust(ctx context.Context, tx *gorm.DB, productID uuid.UUID, delta int) error {
	switch {
	case delta > 0:
		return l.Restock(ctx, tx, productID, delta)
	case delta < 0:
		return l.Deduct(ctx, tx, productID, -delta)
	default:
		return pkgerrors.New(pkgerrors.CodeValidation, "stock delta must be non-zero")
	}
}

func validate(tx *gorm.DB, productID uuid.UUID, qty int) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "transaction required for stock change")
	}
	if productID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive").
			WithDetails(map[string]any{"product_id": productID, "quantity": qty})
	}
	return nil
}
