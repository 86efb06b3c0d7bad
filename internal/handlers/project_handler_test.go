package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/univdept/backend/internal/models"
	"github.com/univdept/backend/internal/repositories"
	"github.com/univdept/backend/internal/services"
	"github.com/univdept/backend/internal/storage"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// mockProjectService is a mock implementation of ProjectService
type mockProjectService struct {
	stats *repositories.ProjectStats
	err   error
}

func (m *mockProjectService) Create(ctx context.Context, actor *models.User, input services.ProjectInput, image *storage.StagedFile, attachments []*storage.StagedFile) (*models.Project, error) {
	return nil, m.err
}

func (m *mockProjectService) Get(ctx context.Context, id primitive.ObjectID) (*models.Project, error) {
	return nil, m.err
}

func (m *mockProjectService) List(ctx context.Context, filter repositories.ProjectFilter) ([]models.Project, error) {
	return nil, m.err
}

func (m *mockProjectService) Featured(ctx context.Context) ([]models.Project, error) {
	return nil, m.err
}

func (m *mockProjectService) Stats(ctx context.Context) (*repositories.ProjectStats, error) {
	return m.stats, m.err
}

func (m *mockProjectService) Update(ctx context.Context, actor *models.User, id primitive.ObjectID, update services.ProjectUpdate, image *storage.StagedFile, attachments []*storage.StagedFile) (*models.Project, error) {
	return nil, m.err
}

func (m *mockProjectService) Delete(ctx context.Context, actor *models.User, id primitive.ObjectID) error {
	return m.err
}

func (m *mockProjectService) DeleteAttachment(ctx context.Context, actor *models.User, id, attachmentID primitive.ObjectID) error {
	return m.err
}

func TestProjectStatsIsPublic(t *testing.T) {
	svc := &mockProjectService{stats: &repositories.ProjectStats{TotalProjects: 4}}

	// An auth middleware that rejects everything proves the stats route is
	// registered outside the authenticated group
	reject := func(http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		})
	}
	h := NewProjectHandler(svc, nil, 0, 0, zap.NewNop(), reject)

	r := chi.NewRouter()
	h.RegisterRoutes(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/projects/stats/overview", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"totalProjects":4`)
}
