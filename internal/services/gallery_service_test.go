package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/univdept/backend/internal/apperr"
	"github.com/univdept/backend/internal/models"
	"github.com/univdept/backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// mockGalleryRepository is a mock implementation of GalleryRepository
type mockGalleryRepository struct {
	log       *callLog
	item      *models.GalleryItem
	createErr error
	updateErr error
}

func (m *mockGalleryRepository) Create(ctx context.Context, item *models.GalleryItem) error {
	m.log.record("create")
	if m.createErr != nil {
		return m.createErr
	}
	item.ID = primitive.NewObjectID()
	return nil
}

func (m *mockGalleryRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.GalleryItem, error) {
	return m.item, nil
}

func (m *mockGalleryRepository) List(ctx context.Context, filter repositories.GalleryFilter) ([]models.GalleryItem, error) {
	return nil, nil
}

func (m *mockGalleryRepository) Categories(ctx context.Context) ([]string, error) {
	return []string{"events", "campus"}, nil
}

func (m *mockGalleryRepository) Update(ctx context.Context, id primitive.ObjectID, set bson.M) error {
	m.log.record("update")
	return m.updateErr
}

func (m *mockGalleryRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	m.log.record("delete")
	return nil
}

func (m *mockGalleryRepository) IncrementViews(ctx context.Context, id primitive.ObjectID) error {
	m.log.record("views")
	return nil
}

func adminUser() *models.User {
	return &models.User{ID: primitive.NewObjectID(), Role: models.RoleAdmin, IsActive: true}
}

func newGalleryFixture(repo *mockGalleryRepository, store *mockMediaStore) (*GalleryService, *mockDiscarder) {
	discard := &mockDiscarder{}
	svc := NewGalleryService(repo, store, discard, zap.NewNop())
	return svc, discard
}

func TestGalleryCreateRequiresImage(t *testing.T) {
	log := &callLog{}
	repo := &mockGalleryRepository{log: log}
	store := &mockMediaStore{log: log}
	svc, discard := newGalleryFixture(repo, store)

	_, err := svc.Create(context.Background(), adminUser(), GalleryInput{
		Title:    "Convocation",
		Category: "events",
	}, nil)

	require.ErrorIs(t, err, apperr.ErrValidation)
	assert.Empty(t, log.calls)
	assert.Equal(t, 1, discard.callCount)
}

func TestGalleryCreateUploadsBeforePersist(t *testing.T) {
	actor := adminUser()
	log := &callLog{}
	repo := &mockGalleryRepository{log: log}
	store := &mockMediaStore{log: log}
	svc, discard := newGalleryFixture(repo, store)

	item, err := svc.Create(context.Background(), actor, GalleryInput{
		Title:    "Convocation",
		Category: "events",
		Year:     2026,
	}, stagedFile("crowd.jpg"))

	require.NoError(t, err)
	assert.Equal(t, "gallery/crowd.jpg", item.ImagePublicID)
	assert.Equal(t, actor.ID, item.UploadedBy)
	assert.Equal(t, []string{"upload:gallery/crowd.jpg", "create"}, log.calls)
	assert.Equal(t, []string{"/tmp/staging/crowd.jpg"}, discard.discarded)
}

func TestGalleryCreatePersistFailureRemovesUpload(t *testing.T) {
	log := &callLog{}
	repo := &mockGalleryRepository{log: log, createErr: errors.New("write failed")}
	store := &mockMediaStore{log: log}
	svc, _ := newGalleryFixture(repo, store)

	_, err := svc.Create(context.Background(), adminUser(), GalleryInput{
		Title:    "Convocation",
		Category: "events",
	}, stagedFile("crowd.jpg"))

	require.Error(t, err)
	assert.Equal(t, []string{"upload:gallery/crowd.jpg", "create", "remove:gallery/crowd.jpg"}, log.calls)
}

func TestGalleryUpdateReplacesImageAfterUpload(t *testing.T) {
	owner := adminUser()
	log := &callLog{}
	repo := &mockGalleryRepository{log: log, item: &models.GalleryItem{
		ID:            primitive.NewObjectID(),
		UploadedBy:    owner.ID,
		ImagePublicID: "gallery/old.jpg",
	}}
	store := &mockMediaStore{log: log}
	svc, _ := newGalleryFixture(repo, store)

	item, err := svc.Update(context.Background(), owner, repo.item.ID, GalleryUpdate{}, stagedFile("new.jpg"))

	require.NoError(t, err)
	assert.Equal(t, "gallery/new.jpg", item.ImagePublicID)
	assert.Equal(t, []string{"upload:gallery/new.jpg", "remove:gallery/old.jpg", "update"}, log.calls)
}

func TestGalleryUpdateForbiddenForNonOwner(t *testing.T) {
	log := &callLog{}
	repo := &mockGalleryRepository{log: log, item: &models.GalleryItem{
		ID:         primitive.NewObjectID(),
		UploadedBy: primitive.NewObjectID(),
	}}
	store := &mockMediaStore{log: log}
	svc, _ := newGalleryFixture(repo, store)

	actor := &models.User{ID: primitive.NewObjectID(), Role: models.RoleModerator, IsActive: true}
	title := "renamed"
	_, err := svc.Update(context.Background(), actor, repo.item.ID, GalleryUpdate{Title: &title}, nil)

	require.ErrorIs(t, err, apperr.ErrForbidden)
	assert.Empty(t, log.calls)
}

func TestGalleryDeleteProceedsOnRemoteFailure(t *testing.T) {
	owner := adminUser()
	log := &callLog{}
	repo := &mockGalleryRepository{log: log, item: &models.GalleryItem{
		ID:            primitive.NewObjectID(),
		UploadedBy:    owner.ID,
		ImagePublicID: "gallery/a.jpg",
	}}
	store := &mockMediaStore{log: log, removeErr: errors.New("store down")}
	svc, _ := newGalleryFixture(repo, store)

	err := svc.Delete(context.Background(), owner, repo.item.ID)

	require.NoError(t, err)
	assert.Equal(t, []string{"remove:gallery/a.jpg", "delete"}, log.calls)
}
