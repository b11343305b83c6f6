package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/angelmondragon/ordercore-backend/pkg/enums"
	"github.com/angelmondragon/ordercore-backend/pkg/types"
)

func TestRequireRole(t *testing.T) {
	handler := RequireRole(nil, enums.RoleAdmin, enums.RoleSeller)(okHandler())

	tests := []struct {
		name string
		role enums.Role
		auth bool
		want int
	}{
		{"admin", enums.RoleAdmin, true, http.StatusOK},
		{"seller", enums.RoleSeller, true, http.StatusOK},
		{"customer", enums.RoleCustomer, true, http.StatusForbidden},
		{"anonymous", "", false, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", nil)
			if tt.auth {
				req = req.WithContext(WithActor(req.Context(), types.Actor{UserID: uuid.New(), Role: tt.role}))
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestRequireActor(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, err := RequireActor(req.Context())
	assert.Error(t, err)

	id := uuid.New()
	ctx := WithActor(req.Context(), types.Actor{UserID: id, Role: enums.RoleCustomer, Username: "mei"})
	actor, err := RequireActor(ctx)
	assert.NoError(t, err)
	assert.Equal(t, id, actor.UserID)
	assert.Equal(t, "mei", actor.Username)
}
