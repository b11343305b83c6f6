package orders

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/ordercore-backend/pkg/db/models"
	"github.com/angelmondragon/ordercore-backend/pkg/enums"
	"github.com/angelmondragon/ordercore-backend/pkg/pagination"
)

var sortColumns = map[string]string{
	"created_at":   "created_at",
	"updated_at":   "updated_at",
	"total_amount": "total_amount",
	"order_sn":     "order_sn",
	"status":       "status",
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindProducts(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error) {
	out := make(map[uuid.UUID]models.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []models.Product
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, p := range rows {
		out[p.ID] = p
	}
	return out, nil
}

func (r *repository) SerialExists(ctx context.Context, orderSN string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Order{}).Where("order_sn = ?", orderSN).Count(&count).Error
	return count > 0, err
}

func (r *repository) CreateOrder(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(order).Error
}

func (r *repository) CreateItems(ctx context.Context, items []models.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&items).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID, opts GetOptions) (*models.Order, error) {
	var order models.Order
	if err := preload(r.db.WithContext(ctx), opts).Where("id = ?", id).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindBySN(ctx context.Context, orderSN string, opts GetOptions) (*models.Order, error) {
	var order models.Order
	if err := preload(r.db.WithContext(ctx), opts).Where("order_sn = ?", orderSN).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// FindForUpdate loads the order row with a row lock held until the transaction ends.
func (r *repository) FindForUpdate(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindItems(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error) {
	var items []models.OrderItem
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) List(ctx context.Context, filters ListFilters, page pagination.PageParams, includeItems bool) ([]models.Order, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Order{})
	if filters.UserID != nil {
		query = query.Where("user_id = ?", *filters.UserID)
	}
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.DateStart != nil {
		query = query.Where("created_at >= ?", *filters.DateStart)
	}
	if filters.DateEnd != nil {
		query = query.Where("created_at < ?", *filters.DateEnd)
	}
	if kw := strings.TrimSpace(filters.Keyword); kw != "" {
		like := "%" + strings.ToLower(kw) + "%"
		query = query.Where(
			"LOWER(order_sn) LIKE ? OR LOWER(receiver_name) LIKE ? OR receiver_phone LIKE ?",
			like, like, like,
		)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	column, ok := sortColumns[filters.SortBy]
	if !ok {
		column = "created_at"
	}
	direction := "DESC"
	if strings.EqualFold(filters.SortOrder, "asc") {
		direction = "ASC"
	}

	n := page.Normalize()
	query = query.Order(column + " " + direction).Order("id " + direction).Offset(n.Offset()).Limit(n.PageSize)
	if includeItems {
		query = query.Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") })
	}

	var rows []models.Order
	if err := query.Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func (r *repository) UpdateFields(ctx context.Context, orderID uuid.UUID, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Model(&models.Order{}).Where("id = ?", orderID).UpdateColumns(updates).Error
}

func (r *repository) DeleteItems(ctx context.Context, orderID uuid.UUID) error {
	return r.db.WithContext(ctx).Where("order_id = ?", orderID).Delete(&models.OrderItem{}).Error
}

func (r *repository) HasSuccessfulPayment(ctx context.Context, orderID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("order_id = ? AND status = ?", orderID, enums.PaymentStatusSuccess).
		Count(&count).Error
	return count > 0, err
}

// HasOpenCheckout reports whether a gateway trade was issued for the order and
// has not been settled or failed yet.
func (r *repository) HasOpenCheckout(ctx context.Context, orderID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.GatewayTrade{}).
		Where("order_id = ? AND status = ?", orderID, enums.GatewayTradeIssued).
		Count(&count).Error
	return count > 0, err
}

// DeleteCascade removes the order and every dependent row that is not a settled payment.
func (r *repository) DeleteCascade(ctx context.Context, orderID uuid.UUID) error {
	db := r.db.WithContext(ctx)
	steps := []func() error{
		func() error { return db.Where("order_id = ?", orderID).Delete(&models.GatewayTrade{}).Error },
		func() error {
			return db.Where("order_id = ? AND status <> ?", orderID, enums.PaymentStatusSuccess).Delete(&models.Payment{}).Error
		},
		func() error { return db.Where("order_id = ?", orderID).Delete(&models.OrderItem{}).Error },
		func() error { return db.Where("order_id = ?", orderID).Delete(&models.OrderHistory{}).Error },
		func() error { return db.Where("id = ?", orderID).Delete(&models.Order{}).Error },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}

func preload(db *gorm.DB, opts GetOptions) *gorm.DB {
	if opts.IncludeItems {
		db = db.Preload("Items", func(tx *gorm.DB) *gorm.DB { return tx.Order("created_at ASC").Order("id ASC") })
	}
	if opts.IncludeHistory {
		db = db.Preload("Histories", func(tx *gorm.DB) *gorm.DB { return tx.Order("operated_at ASC").Order("id ASC") })
	}
	return db
}
