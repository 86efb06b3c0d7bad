package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	authmw "github.com/univdept/backend/internal/auth/middleware"
	"github.com/univdept/backend/internal/models"
	"github.com/univdept/backend/internal/services"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// AuthService defines the interface for auth service operations
type AuthService interface {
	Login(ctx context.Context, email, password string) (string, *models.User, error)
	CreateUser(ctx context.Context, input services.UserInput) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	SetUserActive(ctx context.Context, id primitive.ObjectID, active bool) error
}

// AuthHandler handles login and admin account management HTTP requests
type AuthHandler struct {
	BaseHandler
	authService AuthService
	authMw      func(http.Handler) http.Handler
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService AuthService, logger *zap.Logger, authMw func(http.Handler) http.Handler) *AuthHandler {
	return &AuthHandler{
		BaseHandler: BaseHandler{Logger: logger},
		authService: authService,
		authMw:      authMw,
	}
}

// RegisterRoutes registers all auth handler routes
func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", h.Login)

		r.Group(func(r chi.Router) {
			r.Use(h.authMw)
			r.Get("/me", h.Me)

			r.Group(func(r chi.Router) {
				r.Use(authmw.RequireRoles(models.RoleAdmin))
				r.Get("/users", h.ListUsers)
				r.Post("/users", h.CreateUser)
				r.Patch("/users/{id}/active", h.SetUserActive)
			})
		})
	})
}

// Login handles POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	token, user, err := h.authService.Login(r.Context(), body.Email, body.Password)
	if err != nil {
		h.RespondAppError(w, err)
		return
	}

	h.RespondJSON(w, http.StatusOK, map[string]any{
		"token": token,
		"user":  user,
	})
}

// Me handles GET /auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := authmw.GetUser(r.Context())
	if !ok {
		h.RespondError(w, http.StatusUnauthorized, "not authorized to access this route")
		return
	}
	h.RespondJSON(w, http.StatusOK, user)
}

// ListUsers handles GET /auth/users
func (h *AuthHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.authService.ListUsers(r.Context())
	if err != nil {
		h.RespondAppError(w, err)
		return
	}
	h.RespondJSON(w, http.StatusOK, users)
}

// CreateUser handles POST /auth/users
func (h *AuthHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
		Role     string `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.authService.CreateUser(r.Context(), services.UserInput{
		Name:     body.Name,
		Email:    body.Email,
		Password: body.Password,
		Role:     body.Role,
	})
	if err != nil {
		h.RespondAppError(w, err)
		return
	}
	h.RespondJSON(w, http.StatusCreated, user)
}

// SetUserActive handles PATCH /auth/users/{id}/active
func (h *AuthHandler) SetUserActive(w http.ResponseWriter, r *http.Request) {
	id, err := objectIDParam(r, "id")
	if err != nil {
		h.RespondAppError(w, err)
		return
	}

	var body struct {
		IsActive bool `json:"isActive"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.authService.SetUserActive(r.Context(), id, body.IsActive); err != nil {
		h.RespondAppError(w, err)
		return
	}
	h.RespondJSON(w, http.StatusOK, map[string]string{"message": "user updated"})
}
