package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/univdept/backend/internal/apperr"
	authservice "github.com/univdept/backend/internal/auth/service"
	"github.com/univdept/backend/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// UserRepository defines the interface for account data access
type UserRepository interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	List(ctx context.Context) ([]models.User, error)
	SetActive(ctx context.Context, id primitive.ObjectID, active bool) error
}

// UserInput carries the fields accepted when an admin creates an account
type UserInput struct {
	Name     string
	Email    string
	Password string
	Role     string
}

// AuthService handles login and admin account management
type AuthService struct {
	users  UserRepository
	tokens *authservice.TokenGenerator
	logger *zap.Logger
}

// NewAuthService creates a new auth service
func NewAuthService(users UserRepository, tokens *authservice.TokenGenerator, logger *zap.Logger) *AuthService {
	return &AuthService{
		users:  users,
		tokens: tokens,
		logger: logger,
	}
}

// Login verifies credentials and issues an access token. Every failure mode
// (unknown email, wrong password, disabled account) produces the same error
// so responses do not reveal which check failed.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, *models.User, error) {
	user, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return "", nil, err
	}
	if user == nil {
		return "", nil, fmt.Errorf("invalid credentials: %w", apperr.ErrUnauthenticated)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, fmt.Errorf("invalid credentials: %w", apperr.ErrUnauthenticated)
	}

	if !user.IsActive {
		return "", nil, fmt.Errorf("invalid credentials: %w", apperr.ErrUnauthenticated)
	}

	token, err := s.tokens.GenerateAccessToken(user.ID.Hex())
	if err != nil {
		return "", nil, fmt.Errorf("failed to issue access token: %w", err)
	}
	return token, user, nil
}

// CreateUser registers a new account. Admin-only at the router.
func (s *AuthService) CreateUser(ctx context.Context, input UserInput) (*models.User, error) {
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))

	if input.Name == "" {
		return nil, apperr.Validationf("name is required")
	}
	if input.Email == "" {
		return nil, apperr.Validationf("email is required")
	}
	if len(input.Password) < 8 {
		return nil, apperr.Validationf("password must be at least 8 characters")
	}
	role, ok := models.ParseRole(input.Role)
	if !ok {
		return nil, apperr.Validationf("unknown role %q", input.Role)
	}

	existing, err := s.users.GetByEmail(ctx, input.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperr.Validationf("email %q is already registered", input.Email)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Name:         input.Name,
		Email:        input.Email,
		PasswordHash: string(hash),
		Role:         role,
		IsActive:     true,
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// ListUsers retrieves every account. Admin-only at the router.
func (s *AuthService) ListUsers(ctx context.Context) ([]models.User, error) {
	return s.users.List(ctx)
}

// SetUserActive toggles the soft-disable flag on an account. A disabled
// account keeps its documents but can no longer authenticate.
func (s *AuthService) SetUserActive(ctx context.Context, id primitive.ObjectID, active bool) error {
	if err := s.users.SetActive(ctx, id, active); err != nil {
		if err == mongo.ErrNoDocuments {
			return apperr.NotFoundf("user %s", id.Hex())
		}
		return err
	}
	return nil
}
