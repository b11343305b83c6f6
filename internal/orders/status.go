package orders

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/ordercore-backend/internal/audit"
	"github.com/angelmondragon/ordercore-backend/internal/history"
	"github.com/angelmondragon/ordercore-backend/internal/notifications"
	"github.com/angelmondragon/ordercore-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/ordercore-backend/pkg/errors"
	"github.com/angelmondragon/ordercore-backend/pkg/outbox"
	"github.com/angelmondragon/ordercore-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/ordercore-backend/pkg/types"
)

// manualTransitions maps a target status to the statuses it may be set from by
// an operator. paid is only reachable through a payment.
var manualTransitions = map[enums.OrderStatus][]enums.OrderStatus{
	enums.OrderStatusCancelled: {enums.OrderStatusPending, enums.OrderStatusPaid},
	enums.OrderStatusShipped:   {enums.OrderStatusPaid},
	enums.OrderStatusDelivered: {enums.OrderStatusShipped},
}

// UpdateStatus applies one status to many orders, each in its own transaction.
// Orders that cannot move are reported as skipped rather than failing the batch.
func (s *service) UpdateStatus(ctx context.Context, actor types.Actor, input BatchStatusInput) (*BatchStatusResult, error) {
	if actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if len(input.IDs) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "ids required").
			WithDetails(map[string]string{"ids": "at least one id required"})
	}
	target, err := enums.ParseOrderStatus(input.Status)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid status").
			WithDetails(map[string]string{"status": input.Status})
	}
	sources, ok := manualTransitions[target]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "status cannot be set manually").
			WithDetails(map[string]string{"status": target.String()})
	}
	remark := ""
	if input.Remark != nil {
		remark = strings.TrimSpace(*input.Remark)
	}

	result := &BatchStatusResult{Updated: []uuid.UUID{}, Skipped: []SkippedOrder{}}
	seen := make(map[uuid.UUID]struct{}, len(input.IDs))
	var errs error
	for _, id := range input.IDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		reason, err := s.transitionOne(ctx, actor, id, target, sources, remark)
		switch {
		case err != nil:
			errs = multierr.Append(errs, fmt.Errorf("order %s: %w", id, err))
			result.Skipped = append(result.Skipped, SkippedOrder{ID: id, Reason: SkipError})
			s.logg.Error(s.logg.WithOrderID(ctx, id.String()), "status update failed", err)
		case reason != "":
			result.Skipped = append(result.Skipped, SkippedOrder{ID: id, Reason: reason})
		default:
			result.Updated = append(result.Updated, id)
			s.metrics.StatusChanged(target.String())
		}
	}

	if len(result.Updated) == 0 && errs != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, errs, "batch status update failed")
	}
	return result, nil
}

func (s *service) transitionOne(ctx context.Context, actor types.Actor, id uuid.UUID, target enums.OrderStatus, sources []enums.OrderStatus, remark string) (string, error) {
	var reason string
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindForUpdate(ctx, id)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			reason = SkipNotFound
			return nil
		}
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if !actor.CanAccess(order.UserID) {
			reason = SkipForbidden
			return nil
		}
		if target != enums.OrderStatusCancelled && actor.Role == enums.RoleCustomer {
			reason = SkipForbidden
			return nil
		}
		if !slices.Contains(sources, order.Status) {
			reason = SkipInvalidTransition
			return nil
		}

		applied, err := s.tracker.Record(ctx, tx, history.Transition{
			OrderID:  order.ID,
			From:     []enums.OrderStatus{order.Status},
			To:       target,
			Operator: actor.Operator(),
			Remark:   remark,
		})
		if err != nil {
			return err
		}
		if !applied {
			reason = SkipStateChanged
			return nil
		}

		if target == enums.OrderStatusCancelled {
			if err := s.restockOrder(ctx, tx, repo, order.ID); err != nil {
				return err
			}
		}

		link := "/orders/" + order.ID.String()
		if _, err := s.notifier.Notify(ctx, tx, notifications.Input{
			UserID:  order.UserID,
			Type:    enums.NotificationTypeOrderStatus,
			Title:   "Order status updated",
			Content: fmt.Sprintf("Order %s is now %s", order.OrderSN, target),
			Link:    &link,
		}); err != nil {
			return err
		}
		if err := s.audit.Record(ctx, tx, audit.Entry{
			Actor:      actor,
			Action:     enums.AuditOrderStatus,
			TargetType: audit.TargetOrder,
			TargetID:   order.ID.String(),
			Content:    fmt.Sprintf("order %s: %s -> %s", order.OrderSN, order.Status, target),
		}); err != nil {
			return err
		}
		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderStatusChanged,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         actorRef(actor),
			Data: payloads.OrderStatusChangedEvent{
				OrderID:  order.ID,
				OrderSN:  order.OrderSN,
				UserID:   order.UserID,
				From:     order.Status,
				To:       target,
				Operator: actor.Operator(),
			},
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit status change")
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return reason, nil
}
