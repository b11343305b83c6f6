package notifications

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/ordercore-backend/pkg/db/dbtest"
	"github.com/angelmondragon/ordercore-backend/pkg/db/models"
	"github.com/angelmondragon/ordercore-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/ordercore-backend/pkg/errors"
	"github.com/angelmondragon/ordercore-backend/pkg/outbox"
	"github.com/angelmondragon/ordercore-backend/pkg/pagination"
)

type fakeRepository struct {
	Repository
	listFn        func(ctx context.Context, params listNotificationsParams) ([]models.Notification, *pagination.Cursor, error)
	markAllReadFn func(ctx context.Context, userID uuid.UUID, now time.Time) (int64, error)
}

func (f *fakeRepository) List(ctx context.Context, params listNotificationsParams) ([]models.Notification, *pagination.Cursor, error) {
	return f.listFn(ctx, params)
}

func (f *fakeRepository) MarkAllRead(ctx context.Context, userID uuid.UUID, now time.Time) (int64, error) {
	return f.markAllReadFn(ctx, userID, now)
}

func seedNotifications(t *testing.T, db *gorm.DB, userID uuid.UUID, n int) []models.Notification {
	t.Helper()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rows := make([]models.Notification, 0, n)
	for i := 0; i < n; i++ {
		row := models.Notification{
			UserID:    userID,
			Type:      enums.NotificationTypeOrderStatus,
			Title:     "status",
			Content:   "changed",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, db.Create(&row).Error)
		rows = append(rows, row)
	}
	return rows
}

func TestService_ListPagesNewestFirst(t *testing.T) {
	client := dbtest.Open(t)
	userID := uuid.New()
	rows := seedNotifications(t, client.DB(), userID, 3)
	seedNotifications(t, client.DB(), uuid.New(), 2)

	svc, err := NewService(NewRepository(client.DB()))
	require.NoError(t, err)

	first, err := svc.List(context.Background(), ListParams{UserID: userID, Limit: 2})
	require.NoError(t, err)
	require.Len(t, first.Items, 2)
	assert.Equal(t, rows[2].ID, first.Items[0].ID)
	assert.Equal(t, rows[1].ID, first.Items[1].ID)
	require.NotEmpty(t, first.Cursor)

	second, err := svc.List(context.Background(), ListParams{UserID: userID, Limit: 2, Cursor: first.Cursor})
	require.NoError(t, err)
	require.Len(t, second.Items, 1)
	assert.Equal(t, rows[0].ID, second.Items[0].ID)
	assert.Empty(t, second.Cursor)
}

func TestService_MarkReadScopedToOwner(t *testing.T) {
	client := dbtest.Open(t)
	userID := uuid.New()
	rows := seedNotifications(t, client.DB(), userID, 2)
	svc, err := NewService(NewRepository(client.DB()))
	require.NoError(t, err)
	ctx := context.Background()

	err = svc.MarkRead(ctx, uuid.New(), rows[0].ID)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())

	require.NoError(t, svc.MarkRead(ctx, userID, rows[0].ID))
	require.NoError(t, svc.MarkRead(ctx, userID, rows[0].ID), "marking twice is a no-op")

	unread, err := svc.List(ctx, ListParams{UserID: userID, UnreadOnly: true})
	require.NoError(t, err)
	require.Len(t, unread.Items, 1)
	assert.Equal(t, rows[1].ID, unread.Items[0].ID)

	count, err := svc.MarkAllRead(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestService_ListValidation(t *testing.T) {
	svc, err := NewService(&fakeRepository{})
	require.NoError(t, err)

	_, err = svc.List(context.Background(), ListParams{})
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	_, err = svc.List(context.Background(), ListParams{UserID: uuid.New(), Cursor: "bad"})
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestService_RepositoryErrorsAreDependencyErrors(t *testing.T) {
	svc, err := NewService(&fakeRepository{
		listFn: func(context.Context, listNotificationsParams) ([]models.Notification, *pagination.Cursor, error) {
			return nil, nil, errors.New("db down")
		},
		markAllReadFn: func(context.Context, uuid.UUID, time.Time) (int64, error) {
			return 0, errors.New("db down")
		},
	})
	require.NoError(t, err)

	_, err = svc.List(context.Background(), ListParams{UserID: uuid.New()})
	assert.Equal(t, pkgerrors.CodeDependency, pkgerrors.As(err).Code())
	_, err = svc.MarkAllRead(context.Background(), uuid.New())
	assert.Equal(t, pkgerrors.CodeDependency, pkgerrors.As(err).Code())
}

func TestSink_NotifyWritesRowAndEvent(t *testing.T) {
	client := dbtest.Open(t)
	emitter := outbox.NewService(outbox.NewRepository(client.DB()), nil)
	notifier, err := NewSink(NewRepository(client.DB()), emitter)
	require.NoError(t, err)
	userID := uuid.New()

	var created *models.Notification
	require.NoError(t, client.WithTx(context.Background(), func(tx *gorm.DB) error {
		var err error
		created, err = notifier.Notify(context.Background(), tx, Input{
			UserID:  userID,
			Type:    enums.NotificationTypePaymentSuccess,
			Title:   "Payment received",
			Content: "Order ORD1 has been paid",
		})
		return err
	}))
	require.NotNil(t, created)

	var stored models.Notification
	require.NoError(t, client.DB().First(&stored, "id = ?", created.ID).Error)
	assert.Equal(t, userID, stored.UserID)
	assert.Nil(t, stored.ReadAt)

	var events []models.OutboxEvent
	require.NoError(t, client.DB().Find(&events).Error)
	require.Len(t, events, 1)
	assert.Equal(t, enums.EventNotificationCreated, events[0].EventType)
	assert.Equal(t, created.ID, events[0].AggregateID)
}

func TestSink_NotifyValidates(t *testing.T) {
	client := dbtest.Open(t)
	notifier, err := NewSink(NewRepository(client.DB()), nil)
	require.NoError(t, err)

	_, err = notifier.Notify(context.Background(), nil, Input{UserID: uuid.New(), Type: enums.NotificationTypeSystem})
	assert.Equal(t, pkgerrors.CodeDependency, pkgerrors.As(err).Code())

	err = client.WithTx(context.Background(), func(tx *gorm.DB) error {
		_, err := notifier.Notify(context.Background(), tx, Input{Type: enums.NotificationTypeSystem})
		return err
	})
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}
