package payments

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/ordercore-backend/pkg/db/models"
	"github.com/angelmondragon/ordercore-backend/pkg/enums"
	"github.com/angelmondragon/ordercore-backend/pkg/pagination"
)

// Repository persists payments and gateway trades.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindOrderForUpdate(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	FindOrderItems(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error)
	CreatePayment(ctx context.Context, payment *models.Payment) error
	CreateTrade(ctx context.Context, trade *models.GatewayTrade) error
	FindTradeForUpdate(ctx context.Context, merchantTradeNo string) (*models.GatewayTrade, error)
	FindTrade(ctx context.Context, merchantTradeNo string) (*models.GatewayTrade, error)
	FindPayment(ctx context.Context, id uuid.UUID) (*models.Payment, error)
	FindOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)
	MarkPaymentSuccess(ctx context.Context, id uuid.UUID, paidAt time.Time) (bool, error)
	MarkPaymentFailed(ctx context.Context, id uuid.UUID) (bool, error)
	UpdateTrade(ctx context.Context, id uuid.UUID, updates map[string]any) error
	List(ctx context.Context, filter ListFilter, page pagination.PageParams) ([]models.Payment, int64, error)
}

// ListFilter narrows GET /payments.
type ListFilter struct {
	OwnerID *uuid.UUID
	OrderID *uuid.UUID
	Status  *enums.PaymentStatus
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindOrderForUpdate(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", orderID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindOrderItems(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error) {
	var items []models.OrderItem
	err := r.db.WithContext(ctx).Where("order_id = ?", orderID).Order("created_at ASC").Find(&items).Error
	return items, err
}

func (r *repository) CreatePayment(ctx context.Context, payment *models.Payment) error {
	return r.db.WithContext(ctx).Create(payment).Error
}

func (r *repository) CreateTrade(ctx context.Context, trade *models.GatewayTrade) error {
	return r.db.WithContext(ctx).Create(trade).Error
}

func (r *repository) FindTradeForUpdate(ctx context.Context, merchantTradeNo string) (*models.GatewayTrade, error) {
	var trade models.GatewayTrade
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("merchant_trade_no = ?", merchantTradeNo).
		First(&trade).Error
	if err != nil {
		return nil, err
	}
	return &trade, nil
}

func (r *repository) FindTrade(ctx context.Context, merchantTradeNo string) (*models.GatewayTrade, error) {
	var trade models.GatewayTrade
	if err := r.db.WithContext(ctx).Where("merchant_trade_no = ?", merchantTradeNo).First(&trade).Error; err != nil {
		return nil, err
	}
	return &trade, nil
}

func (r *repository) FindPayment(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&payment).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

// MarkPaymentSuccess settles the payment unless it already succeeded. It reports whether the row changed.
func (r *repository) MarkPaymentSuccess(ctx context.Context, id uuid.UUID, paidAt time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("id = ? AND status <> ?", id, enums.PaymentStatusSuccess).
		UpdateColumns(map[string]any{
			"status":     enums.PaymentStatusSuccess,
			"paid_at":    paidAt,
			"updated_at": time.Now().UTC(),
		})
	return res.RowsAffected == 1, res.Error
}

// MarkPaymentFailed never downgrades a settled payment.
func (r *repository) MarkPaymentFailed(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("id = ? AND status NOT IN ?", id, []enums.PaymentStatus{enums.PaymentStatusSuccess, enums.PaymentStatusFailed}).
		UpdateColumns(map[string]any{
			"status":     enums.PaymentStatusFailed,
			"updated_at": time.Now().UTC(),
		})
	return res.RowsAffected == 1, res.Error
}

func (r *repository) UpdateTrade(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	updates["updated_at"] = time.Now().UTC()
	return r.db.WithContext(ctx).Model(&models.GatewayTrade{}).Where("id = ?", id).UpdateColumns(updates).Error
}

func (r *repository) List(ctx context.Context, filter ListFilter, page pagination.PageParams) ([]models.Payment, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Payment{})
	if filter.OwnerID != nil {
		query = query.Where("payments.order_id IN (?)",
			r.db.Model(&models.Order{}).Select("id").Where("user_id = ?", *filter.OwnerID))
	}
	if filter.OrderID != nil {
		query = query.Where("payments.order_id = ?", *filter.OrderID)
	}
	if filter.Status != nil {
		query = query.Where("payments.status = ?", *filter.Status)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	n := page.Normalize()
	var rows []models.Payment
	err := query.
		Order("payments.created_at DESC").
		Order("payments.id DESC").
		Offset(n.Offset()).
		Limit(n.PageSize).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}
