package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/ordercore-backend/pkg/db/models"
	"github.com/angelmondragon/ordercore-backend/pkg/pagination"
)

// Repository defines persistence operations for orders and their lines.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindProducts(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error)
	SerialExists(ctx context.Context, orderSN string) (bool, error)
	CreateOrder(ctx context.Context, order *models.Order) error
	CreateItems(ctx context.Context, items []models.OrderItem) error
	FindByID(ctx context.Context, id uuid.UUID, opts GetOptions) (*models.Order, error)
	FindBySN(ctx context.Context, orderSN string, opts GetOptions) (*models.Order, error)
	FindForUpdate(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindItems(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error)
	List(ctx context.Context, filters ListFilters, page pagination.PageParams, includeItems bool) ([]models.Order, int64, error)
	UpdateFields(ctx context.Context, orderID uuid.UUID, updates map[string]any) error
	DeleteItems(ctx context.Context, orderID uuid.UUID) error
	HasSuccessfulPayment(ctx context.Context, orderID uuid.UUID) (bool, error)
	HasOpenCheckout(ctx context.Context, orderID uuid.UUID) (bool, error)
	DeleteCascade(ctx context.Context, orderID uuid.UUID) error
}

// Metrics observes order outcomes. Implementations must be safe for concurrent use.
type Metrics interface {
	OrderCreated()
	StockRejected()
	StatusChanged(to string)
}

type noopMetrics struct{}

func (noopMetrics) OrderCreated()        {}
func (noopMetrics) StockRejected()       {}
func (noopMetrics) StatusChanged(string) {}
