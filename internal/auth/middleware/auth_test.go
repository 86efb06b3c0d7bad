package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/univdept/backend/internal/auth/service"
	"github.com/univdept/backend/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// mockAccountSource is a mock implementation of AccountSource
type mockAccountSource struct {
	user *models.User
	err  error
}

func (m *mockAccountSource) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.user != nil && m.user.ID == id {
		return m.user, nil
	}
	return nil, nil
}

const genericBody = `{"error":"not authorized to access this route"}`

func authedRequest(t *testing.T, tg *service.TokenGenerator, accountID string) *http.Request {
	t.Helper()
	token, err := tg.GenerateAccessToken(accountID)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func TestRequireAuth(t *testing.T) {
	tg := service.NewTokenGenerator("secret", time.Hour)
	activeUser := &models.User{
		ID:       primitive.NewObjectID(),
		Role:     models.RoleEditor,
		IsActive: true,
	}
	disabledUser := &models.User{
		ID:       primitive.NewObjectID(),
		Role:     models.RoleEditor,
		IsActive: false,
	}

	tests := []struct {
		name       string
		request    func(t *testing.T) *http.Request
		accounts   AccountSource
		wantStatus int
	}{
		{
			name: "missing header",
			request: func(t *testing.T) *http.Request {
				return httptest.NewRequest(http.MethodGet, "/", nil)
			},
			accounts:   &mockAccountSource{user: activeUser},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name: "malformed header",
			request: func(t *testing.T) *http.Request {
				req := httptest.NewRequest(http.MethodGet, "/", nil)
				req.Header.Set("Authorization", "Token abc")
				return req
			},
			accounts:   &mockAccountSource{user: activeUser},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name: "invalid token",
			request: func(t *testing.T) *http.Request {
				req := httptest.NewRequest(http.MethodGet, "/", nil)
				req.Header.Set("Authorization", "Bearer garbage")
				return req
			},
			accounts:   &mockAccountSource{user: activeUser},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name: "unknown account",
			request: func(t *testing.T) *http.Request {
				return authedRequest(t, tg, primitive.NewObjectID().Hex())
			},
			accounts:   &mockAccountSource{user: activeUser},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name: "disabled account",
			request: func(t *testing.T) *http.Request {
				return authedRequest(t, tg, disabledUser.ID.Hex())
			},
			accounts:   &mockAccountSource{user: disabledUser},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name: "active account",
			request: func(t *testing.T) *http.Request {
				return authedRequest(t, tg, activeUser.ID.Hex())
			},
			accounts:   &mockAccountSource{user: activeUser},
			wantStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotUser *models.User
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotUser, _ = GetUser(r.Context())
				w.WriteHeader(http.StatusOK)
			})

			rec := httptest.NewRecorder()
			RequireAuth(tg, tt.accounts, zap.NewNop())(next).ServeHTTP(rec, tt.request(t))

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusUnauthorized {
				// Every credential failure produces the identical body
				assert.JSONEq(t, genericBody, rec.Body.String())
				assert.Nil(t, gotUser)
			} else {
				require.NotNil(t, gotUser)
				assert.Equal(t, activeUser.ID, gotUser.ID)
			}
		})
	}
}

func TestRequireRoles(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name       string
		role       models.Role
		allowed    []models.Role
		wantStatus int
	}{
		{"member allowed", models.RoleEditor, models.NewsEditors, http.StatusOK},
		{"admin allowed", models.RoleAdmin, models.NewsEditors, http.StatusOK},
		{"faculty rejected for news", models.RoleFaculty, models.NewsEditors, http.StatusForbidden},
		{"moderator rejected everywhere", models.RoleModerator, models.ProjectEditors, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user := &models.User{ID: primitive.NewObjectID(), Role: tt.role, IsActive: true}
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req = req.WithContext(WithUser(req.Context(), user))

			rec := httptest.NewRecorder()
			RequireRoles(tt.allowed...)(next).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestRequireRolesWithoutUser(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	RequireRoles(models.RoleAdmin)(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
