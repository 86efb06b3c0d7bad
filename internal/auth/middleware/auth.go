package middleware

import (
	"context"
	"net/http"
	"slices"
	"strings"

	"github.com/univdept/backend/internal/auth/service"
	"github.com/univdept/backend/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type contextKey string

const userKey contextKey = "user"

// AccountSource looks up accounts referenced by token subjects
type AccountSource interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
}

// unauthenticated writes the single 401 body used for every credential
// failure. Missing token, bad signature, unknown account and disabled account
// must be indistinguishable to the caller.
func unauthenticated(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":"not authorized to access this route"}`))
}

// RequireAuth validates the bearer token and resolves it to a live account.
// The resolved account (password hash never serialized) is stored in the
// request context.
func RequireAuth(tokenGenerator *service.TokenGenerator, accounts AccountSource, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Extract token from Authorization header
			var token string
			authHeader := r.Header.Get("Authorization")
			if authHeader != "" {
				// Expected format: "Bearer <token>"
				parts := strings.Split(authHeader, " ")
				if len(parts) == 2 && strings.ToLower(parts[0]) == "bearer" {
					token = parts[1]
				}
			}

			if token == "" {
				unauthenticated(w)
				return
			}

			// Validate token and extract the account ID
			accountID, err := tokenGenerator.ValidateAccessToken(token)
			if err != nil {
				unauthenticated(w)
				return
			}

			oid, err := primitive.ObjectIDFromHex(accountID)
			if err != nil {
				unauthenticated(w)
				return
			}

			// Live lookup: the token alone is not enough, the account must
			// still exist and be active.
			user, err := accounts.GetByID(r.Context(), oid)
			if err != nil || user == nil {
				unauthenticated(w)
				return
			}

			if !user.IsActive {
				logger.Info("rejected token for deactivated account", zap.String("account_id", accountID))
				unauthenticated(w)
				return
			}

			ctx := context.WithValue(r.Context(), userKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRoles allows the request only when the authenticated account's role
// is a member of the allowed set. Must run after RequireAuth.
func RequireRoles(allowedRoles ...models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := GetUser(r.Context())
			if !ok {
				unauthenticated(w)
				return
			}

			if !slices.Contains(allowedRoles, user.Role) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				w.Write([]byte(`{"error":"insufficient permissions"}`))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// GetUser retrieves the authenticated account from context
func GetUser(ctx context.Context) (*models.User, bool) {
	user, ok := ctx.Value(userKey).(*models.User)
	return user, ok
}

// WithUser returns a context carrying the given account. Used by tests and by
// handlers that need to call services outside the middleware chain.
func WithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}
