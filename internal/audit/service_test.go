package audit

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/ordercore-backend/pkg/db/dbtest"
	"github.com/angelmondragon/ordercore-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/ordercore-backend/pkg/errors"
	"github.com/angelmondragon/ordercore-backend/pkg/pagination"
	"github.com/angelmondragon/ordercore-backend/pkg/types"
)

func TestRecordAndListScopedByRole(t *testing.T) {
	client := dbtest.Open(t)
	svc, err := NewService(NewRepository(client.DB()))
	require.NoError(t, err)
	ctx := context.Background()

	alice := types.Actor{UserID: uuid.New(), Role: enums.RoleCustomer, Username: "alice"}
	bob := types.Actor{UserID: uuid.New(), Role: enums.RoleCustomer, Username: "bob"}
	admin := types.Actor{UserID: uuid.New(), Role: enums.RoleAdmin}

	require.NoError(t, client.WithTx(ctx, func(tx *gorm.DB) error {
		for _, actor := range []types.Actor{alice, alice, bob} {
			if err := svc.Record(ctx, tx, Entry{
				Actor:      actor,
				Action:     enums.AuditOrderCreate,
				TargetType: TargetOrder,
				TargetID:   uuid.NewString(),
				Content:    "created order",
			}); err != nil {
				return err
			}
		}
		return nil
	}))

	own, err := svc.List(ctx, alice, ListParams{UserID: &bob.UserID})
	require.NoError(t, err)
	assert.Equal(t, int64(2), own.Total, "non-admin filter on another user is ignored")
	for _, row := range own.Items {
		assert.Equal(t, alice.UserID, *row.UserID)
		assert.Equal(t, "alice", row.Username)
	}

	all, err := svc.List(ctx, admin, ListParams{Page: pagination.PageParams{Page: 1, PageSize: 2}})
	require.NoError(t, err)
	assert.Equal(t, int64(3), all.Total)
	assert.Len(t, all.Items, 2)
	assert.Equal(t, 2, all.TotalPages)

	filtered, err := svc.List(ctx, admin, ListParams{UserID: &bob.UserID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), filtered.Total)

	none, err := svc.List(ctx, admin, ListParams{Action: string(enums.AuditPaymentSuccess)})
	require.NoError(t, err)
	assert.Empty(t, none.Items)
	assert.NotNil(t, none.Items)
}

func TestRecordValidation(t *testing.T) {
	client := dbtest.Open(t)
	svc, err := NewService(NewRepository(client.DB()))
	require.NoError(t, err)

	err = svc.Record(context.Background(), nil, Entry{Action: enums.AuditOrderCreate, TargetType: TargetOrder})
	assert.Equal(t, pkgerrors.CodeDependency, pkgerrors.As(err).Code())

	err = client.WithTx(context.Background(), func(tx *gorm.DB) error {
		return svc.Record(context.Background(), tx, Entry{TargetType: TargetOrder})
	})
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestListRequiresIdentityForNonAdmins(t *testing.T) {
	client := dbtest.Open(t)
	svc, err := NewService(NewRepository(client.DB()))
	require.NoError(t, err)

	_, err = svc.List(context.Background(), types.Actor{Role: enums.RoleSeller}, ListParams{})
	assert.Equal(t, pkgerrors.CodeUnauthorized, pkgerrors.As(err).Code())
}
