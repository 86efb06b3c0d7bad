package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/univdept/backend/internal/apperr"
	authservice "github.com/univdept/backend/internal/auth/service"
	"github.com/univdept/backend/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// mockUserRepository is a mock implementation of UserRepository
type mockUserRepository struct {
	byEmail   map[string]*models.User
	created   *models.User
	setActive map[string]bool
}

func (m *mockUserRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	for _, u := range m.byEmail {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, nil
}

func (m *mockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return m.byEmail[email], nil
}

func (m *mockUserRepository) Create(ctx context.Context, user *models.User) error {
	user.ID = primitive.NewObjectID()
	m.created = user
	return nil
}

func (m *mockUserRepository) List(ctx context.Context) ([]models.User, error) {
	return nil, nil
}

func (m *mockUserRepository) SetActive(ctx context.Context, id primitive.ObjectID, active bool) error {
	if m.setActive == nil {
		m.setActive = map[string]bool{}
	}
	m.setActive[id.Hex()] = active
	return nil
}

func hashFor(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func newAuthFixture(repo *mockUserRepository) *AuthService {
	tokens := authservice.NewTokenGenerator("test-secret", time.Hour)
	return NewAuthService(repo, tokens, zap.NewNop())
}

func TestLoginSucceeds(t *testing.T) {
	user := &models.User{
		ID:           primitive.NewObjectID(),
		Email:        "dean@univ.edu",
		PasswordHash: hashFor(t, "correct horse"),
		Role:         models.RoleAdmin,
		IsActive:     true,
	}
	svc := newAuthFixture(&mockUserRepository{byEmail: map[string]*models.User{user.Email: user}})

	token, got, err := svc.Login(context.Background(), "  Dean@univ.edu ", "correct horse")

	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, user.ID, got.ID)
}

func TestLoginFailuresAreUniform(t *testing.T) {
	active := &models.User{
		ID:           primitive.NewObjectID(),
		Email:        "dean@univ.edu",
		PasswordHash: hashFor(t, "correct horse"),
		IsActive:     true,
	}
	disabled := &models.User{
		ID:           primitive.NewObjectID(),
		Email:        "gone@univ.edu",
		PasswordHash: hashFor(t, "correct horse"),
		IsActive:     false,
	}
	svc := newAuthFixture(&mockUserRepository{byEmail: map[string]*models.User{
		active.Email:   active,
		disabled.Email: disabled,
	}})

	tests := []struct {
		name     string
		email    string
		password string
	}{
		{"unknown email", "nobody@univ.edu", "correct horse"},
		{"wrong password", "dean@univ.edu", "wrong"},
		{"disabled account", "gone@univ.edu", "correct horse"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := svc.Login(context.Background(), tt.email, tt.password)
			// Every failure mode maps to the same sentinel so the handler
			// cannot leak which check failed
			require.ErrorIs(t, err, apperr.ErrUnauthenticated)
		})
	}
}

func TestCreateUserHashesPassword(t *testing.T) {
	repo := &mockUserRepository{byEmail: map[string]*models.User{}}
	svc := newAuthFixture(repo)

	user, err := svc.CreateUser(context.Background(), UserInput{
		Name:     "New Editor",
		Email:    "Editor@Univ.edu",
		Password: "long enough",
		Role:     "editor",
	})

	require.NoError(t, err)
	assert.Equal(t, "editor@univ.edu", user.Email)
	assert.Equal(t, models.RoleEditor, user.Role)
	assert.True(t, user.IsActive)
	assert.NotEqual(t, "long enough", user.PasswordHash)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("long enough")))
}

func TestCreateUserRejectsBadInput(t *testing.T) {
	existing := &models.User{ID: primitive.NewObjectID(), Email: "taken@univ.edu"}
	repo := &mockUserRepository{byEmail: map[string]*models.User{existing.Email: existing}}
	svc := newAuthFixture(repo)

	tests := []struct {
		name  string
		input UserInput
	}{
		{"missing name", UserInput{Email: "a@univ.edu", Password: "long enough", Role: "editor"}},
		{"short password", UserInput{Name: "A", Email: "a@univ.edu", Password: "short", Role: "editor"}},
		{"unknown role", UserInput{Name: "A", Email: "a@univ.edu", Password: "long enough", Role: "superuser"}},
		{"duplicate email", UserInput{Name: "A", Email: "taken@univ.edu", Password: "long enough", Role: "editor"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateUser(context.Background(), tt.input)
			require.ErrorIs(t, err, apperr.ErrValidation)
		})
	}
}

func TestSetUserActive(t *testing.T) {
	repo := &mockUserRepository{byEmail: map[string]*models.User{}}
	svc := newAuthFixture(repo)

	id := primitive.NewObjectID()
	require.NoError(t, svc.SetUserActive(context.Background(), id, false))
	assert.Equal(t, false, repo.setActive[id.Hex()])
}
