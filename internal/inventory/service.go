package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/ordercore-backend/internal/audit"
	"github.com/angelmondragon/ordercore-backend/pkg/db"
	"github.com/angelmondragon/ordercore-backend/pkg/db/models"
	"github.com/angelmondragon/ordercore-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/ordercore-backend/pkg/errors"
	"github.com/angelmondragon/ordercore-backend/pkg/outbox"
	"github.com/angelmondragon/ordercore-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/ordercore-backend/pkg/types"
)

// Service exposes manual stock adjustment for administrators.
type Service interface {
	AdjustStock(ctx context.Context, actor types.Actor, input AdjustInput) (*models.Product, error)
}

// AdjustInput is a signed stock change for one product.
type AdjustInput struct {
	ProductID uuid.UUID
	Delta     int
	Reason    string
}

type service struct {
	tx     db.TxRunner
	ledger Ledger
	audit  audit.Recorder
	outbox outbox.Emitter
}

func NewService(tx db.TxRunner, ledger Ledger, recorder audit.Recorder, emitter outbox.Emitter) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("inventory ledger required")
	}
	if recorder == nil {
		return nil, fmt.Errorf("audit recorder required")
	}
	if emitter == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	return &service{tx: tx, ledger: ledger, audit: recorder, outbox: emitter}, nil
}

func (s *service) AdjustStock(ctx context.Context, actor types.Actor, input AdjustInput) (*models.Product, error) {
	if !actor.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}

	var product models.Product
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.ledger.Adjust(ctx, tx, input.ProductID, input.Delta); err != nil {
			return err
		}
		if err := tx.WithContext(ctx).Where("id = ?", input.ProductID).First(&product).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload product")
		}

		content := fmt.Sprintf("stock %+d -> %d", input.Delta, product.Stock)
		if input.Reason != "" {
			content += " (" + input.Reason + ")"
		}
		if err := s.audit.Record(ctx, tx, audit.Entry{
			Actor:      actor,
			Action:     enums.AuditStockAdjust,
			TargetType: audit.TargetProduct,
			TargetID:   product.ID.String(),
			Content:    content,
		}); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventStockAdjusted,
			AggregateType: enums.AggregateProduct,
			AggregateID:   product.ID,
			Actor:         &outbox.ActorRef{UserID: actor.UserID, Role: actor.Role.String(), Username: actor.Username},
			Data: payloads.StockAdjustedEvent{
				ProductID: product.ID,
				Delta:     input.Delta,
				Stock:     product.Stock,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return &product, nil
}
