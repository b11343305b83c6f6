package notifications

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/ordercore-backend/pkg/db/models"
	"github.com/angelmondragon/ordercore-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/ordercore-backend/pkg/errors"
	"github.com/angelmondragon/ordercore-backend/pkg/outbox"
	"github.com/angelmondragon/ordercore-backend/pkg/outbox/payloads"
)

// Input describes a notification to deliver to one user.
type Input struct {
	UserID  uuid.UUID
	Type    enums.NotificationType
	Title   string
	Content string
	Link    *string
}

// Notifier writes notifications inside the caller's transaction.
type Notifier interface {
	Notify(ctx context.Context, tx *gorm.DB, input Input) (*models.Notification, error)
}

type sink struct {
	repo   Repository
	outbox outbox.Emitter
}

// NewSink builds the transactional notifier. The emitter is optional; when set a
// notification_created event is queued for push fan-out.
func NewSink(repo Repository, emitter outbox.Emitter) (Notifier, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	return &sink{repo: repo, outbox: emitter}, nil
}

func (s *sink) Notify(ctx context.Context, tx *gorm.DB, input Input) (*models.Notification, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction required for notification")
	}
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "notification recipient required")
	}
	if !input.Type.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid notification type")
	}

	row := &models.Notification{
		UserID:  input.UserID,
		Type:    input.Type,
		Title:   input.Title,
		Content: input.Content,
		Link:    input.Link,
	}
	if err := s.repo.WithTx(tx).Create(ctx, row); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create notification")
	}

	if s.outbox != nil {
		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventNotificationCreated,
			AggregateType: enums.AggregateNotification,
			AggregateID:   row.ID,
			Data: payloads.NotificationCreatedEvent{
				NotificationID: row.ID,
				UserID:         row.UserID,
				Type:           row.Type,
				Title:          row.Title,
				Link:           row.Link,
			},
		}); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit notification event")
		}
	}
	return row, nil
}
