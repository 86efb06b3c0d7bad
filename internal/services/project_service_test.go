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
	"github.com/univdept/backend/internal/storage"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// mockProjectRepository is a mock implementation of ProjectRepository
type mockProjectRepository struct {
	log       *callLog
	project   *models.Project
	createErr error
	updateErr error
	pushErr   error
	pushed    []models.Attachment
}

func (m *mockProjectRepository) Create(ctx context.Context, project *models.Project) error {
	m.log.record("create")
	if m.createErr != nil {
		return m.createErr
	}
	project.ID = primitive.NewObjectID()
	return nil
}

func (m *mockProjectRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Project, error) {
	return m.project, nil
}

func (m *mockProjectRepository) List(ctx context.Context, filter repositories.ProjectFilter) ([]models.Project, error) {
	return nil, nil
}

func (m *mockProjectRepository) Featured(ctx context.Context, limit int) ([]models.Project, error) {
	m.log.record("featured:%d", limit)
	return nil, nil
}

func (m *mockProjectRepository) Update(ctx context.Context, id primitive.ObjectID, set bson.M) error {
	m.log.record("update")
	return m.updateErr
}

func (m *mockProjectRepository) PushAttachments(ctx context.Context, id primitive.ObjectID, attachments []models.Attachment) error {
	m.log.record("push:%d", len(attachments))
	m.pushed = attachments
	return m.pushErr
}

func (m *mockProjectRepository) PullAttachment(ctx context.Context, id, attachmentID primitive.ObjectID) error {
	m.log.record("pull")
	return nil
}

func (m *mockProjectRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	m.log.record("delete")
	return nil
}

func (m *mockProjectRepository) IncrementViews(ctx context.Context, id primitive.ObjectID) error {
	m.log.record("views")
	return nil
}

func (m *mockProjectRepository) Stats(ctx context.Context) (*repositories.ProjectStats, error) {
	return &repositories.ProjectStats{}, nil
}

func facultyUser() *models.User {
	return &models.User{ID: primitive.NewObjectID(), Role: models.RoleFaculty, IsActive: true}
}

func validProjectInput() ProjectInput {
	return ProjectInput{
		Title:       "Solar car",
		Description: "Student built EV",
		Department:  "mechanical",
		Year:        2026,
		Status:      models.ProjectStatusOngoing,
	}
}

func newProjectFixture(repo *mockProjectRepository, store *mockMediaStore) (*ProjectService, *mockDiscarder) {
	discard := &mockDiscarder{}
	svc := NewProjectService(repo, store, discard, zap.NewNop())
	return svc, discard
}

func TestProjectCreateRequiresImage(t *testing.T) {
	log := &callLog{}
	repo := &mockProjectRepository{log: log}
	store := &mockMediaStore{log: log}
	svc, discard := newProjectFixture(repo, store)

	_, err := svc.Create(context.Background(), facultyUser(), validProjectInput(), nil, nil)

	require.ErrorIs(t, err, apperr.ErrValidation)
	assert.Empty(t, log.calls)
	assert.Equal(t, 2, discard.callCount) // image and attachments discards both run
}

func TestProjectCreateUploadsImageAndAttachments(t *testing.T) {
	log := &callLog{}
	repo := &mockProjectRepository{log: log}
	store := &mockMediaStore{log: log}
	svc, discard := newProjectFixture(repo, store)

	attachments := []*storage.StagedFile{
		{Path: "/tmp/staging/proposal.pdf", FieldName: "attachments", OriginalName: "proposal.pdf"},
		{Path: "/tmp/staging/slides.pptx", FieldName: "attachments", OriginalName: "slides.pptx"},
	}

	project, err := svc.Create(context.Background(), facultyUser(), validProjectInput(), stagedFile("cover.jpg"), attachments)

	require.NoError(t, err)
	assert.Equal(t, "projects/cover.jpg", project.ImagePublicID)
	require.Len(t, project.Attachments, 2)
	assert.Equal(t, "proposal.pdf", project.Attachments[0].Name)
	assert.False(t, project.Attachments[0].ID.IsZero())
	assert.Equal(t, []string{
		"upload:projects/cover.jpg",
		"upload:projects/proposal.pdf",
		"upload:projects/slides.pptx",
		"create",
	}, log.calls)
	assert.Len(t, discard.discarded, 3)
}

func TestProjectCreateAttachmentFailureRemovesEverythingUploaded(t *testing.T) {
	log := &callLog{}
	repo := &mockProjectRepository{log: log}
	store := &mockMediaStore{log: log, uploadErrAt: 3}
	svc, _ := newProjectFixture(repo, store)

	attachments := []*storage.StagedFile{
		{Path: "/tmp/staging/proposal.pdf", OriginalName: "proposal.pdf"},
		{Path: "/tmp/staging/slides.pptx", OriginalName: "slides.pptx"},
	}

	_, err := svc.Create(context.Background(), facultyUser(), validProjectInput(), stagedFile("cover.jpg"), attachments)

	require.Error(t, err)
	// Nothing persisted; the image and first attachment already transferred
	// are removed again
	assert.Equal(t, []string{
		"upload:projects/cover.jpg",
		"upload:projects/proposal.pdf",
		"upload:projects/slides.pptx",
		"remove:projects/proposal.pdf",
		"remove:projects/cover.jpg",
	}, log.calls)
}

func TestProjectCreatePersistFailureRemovesUploads(t *testing.T) {
	log := &callLog{}
	repo := &mockProjectRepository{log: log, createErr: errors.New("write failed")}
	store := &mockMediaStore{log: log}
	svc, _ := newProjectFixture(repo, store)

	_, err := svc.Create(context.Background(), facultyUser(), validProjectInput(), stagedFile("cover.jpg"),
		[]*storage.StagedFile{{Path: "/tmp/staging/proposal.pdf", OriginalName: "proposal.pdf"}})

	require.Error(t, err)
	assert.Equal(t, []string{
		"upload:projects/cover.jpg",
		"upload:projects/proposal.pdf",
		"create",
		"remove:projects/cover.jpg",
		"remove:projects/proposal.pdf",
	}, log.calls)
}

func TestProjectDeleteRemovesAllRemoteObjects(t *testing.T) {
	owner := facultyUser()
	log := &callLog{}
	repo := &mockProjectRepository{log: log, project: &models.Project{
		ID:            primitive.NewObjectID(),
		CreatedBy:     owner.ID,
		ImagePublicID: "projects/cover.jpg",
		Attachments: []models.Attachment{
			{ID: primitive.NewObjectID(), PublicID: "projects/proposal.pdf"},
			{ID: primitive.NewObjectID(), PublicID: "projects/slides.pptx"},
		},
	}}
	store := &mockMediaStore{log: log, removeErr: errors.New("store down")}
	svc, _ := newProjectFixture(repo, store)

	err := svc.Delete(context.Background(), owner, repo.project.ID)

	// Every removal fails, the document is still deleted
	require.NoError(t, err)
	assert.Equal(t, []string{
		"remove:projects/cover.jpg",
		"remove:projects/proposal.pdf",
		"remove:projects/slides.pptx",
		"delete",
	}, log.calls)
}

func TestProjectDeletePartialRemoteFailureStillDeletes(t *testing.T) {
	owner := facultyUser()
	log := &callLog{}
	repo := &mockProjectRepository{log: log, project: &models.Project{
		ID:            primitive.NewObjectID(),
		CreatedBy:     owner.ID,
		ImagePublicID: "projects/cover.jpg",
		Attachments: []models.Attachment{
			{ID: primitive.NewObjectID(), PublicID: "projects/proposal.pdf"},
			{ID: primitive.NewObjectID(), PublicID: "projects/slides.pptx"},
		},
	}}
	store := &mockMediaStore{log: log, removeErrFor: map[string]error{
		"projects/proposal.pdf": errors.New("store down"),
	}}
	svc, _ := newProjectFixture(repo, store)

	err := svc.Delete(context.Background(), owner, repo.project.ID)

	// One of three removals fails; the others are still attempted, the batch
	// counts reflect the split and the document is deleted anyway
	require.NoError(t, err)
	assert.Equal(t, []string{
		"remove:projects/cover.jpg",
		"remove:projects/proposal.pdf",
		"remove:projects/slides.pptx",
		"delete",
	}, log.calls)
	assert.Equal(t, 2, store.lastBatch.Succeeded)
	assert.Equal(t, 1, store.lastBatch.Failed)
	require.Len(t, store.lastBatch.Failures, 1)
	assert.Equal(t, "projects/proposal.pdf", store.lastBatch.Failures[0].PublicID)
}

func TestProjectDeleteForbiddenForNonOwner(t *testing.T) {
	log := &callLog{}
	repo := &mockProjectRepository{log: log, project: &models.Project{
		ID:        primitive.NewObjectID(),
		CreatedBy: primitive.NewObjectID(),
	}}
	store := &mockMediaStore{log: log}
	svc, _ := newProjectFixture(repo, store)

	err := svc.Delete(context.Background(), facultyUser(), repo.project.ID)

	require.ErrorIs(t, err, apperr.ErrForbidden)
	assert.Empty(t, log.calls)
}

func TestProjectUpdateAppendsAttachments(t *testing.T) {
	owner := facultyUser()
	log := &callLog{}
	repo := &mockProjectRepository{log: log, project: &models.Project{
		ID:        primitive.NewObjectID(),
		CreatedBy: owner.ID,
	}}
	store := &mockMediaStore{log: log}
	svc, _ := newProjectFixture(repo, store)

	project, err := svc.Update(context.Background(), owner, repo.project.ID, ProjectUpdate{}, nil,
		[]*storage.StagedFile{{Path: "/tmp/staging/report.pdf", OriginalName: "report.pdf"}})

	require.NoError(t, err)
	require.Len(t, project.Attachments, 1)
	assert.Equal(t, "report.pdf", project.Attachments[0].Name)
	assert.Equal(t, []string{"upload:projects/report.pdf", "push:1"}, log.calls)
}

func TestProjectUpdatePushFailureRemovesUploads(t *testing.T) {
	owner := facultyUser()
	log := &callLog{}
	repo := &mockProjectRepository{log: log, pushErr: errors.New("write failed"), project: &models.Project{
		ID:        primitive.NewObjectID(),
		CreatedBy: owner.ID,
	}}
	store := &mockMediaStore{log: log}
	svc, _ := newProjectFixture(repo, store)

	_, err := svc.Update(context.Background(), owner, repo.project.ID, ProjectUpdate{}, nil,
		[]*storage.StagedFile{{Path: "/tmp/staging/report.pdf", OriginalName: "report.pdf"}})

	require.Error(t, err)
	assert.Equal(t, []string{"upload:projects/report.pdf", "push:1", "remove:projects/report.pdf"}, log.calls)
}

func TestProjectDeleteAttachmentPullsDespiteRemoteFailure(t *testing.T) {
	owner := facultyUser()
	attachmentID := primitive.NewObjectID()
	log := &callLog{}
	repo := &mockProjectRepository{log: log, project: &models.Project{
		ID:        primitive.NewObjectID(),
		CreatedBy: owner.ID,
		Attachments: []models.Attachment{
			{ID: attachmentID, PublicID: "projects/proposal.pdf"},
		},
	}}
	store := &mockMediaStore{log: log, removeErr: errors.New("store down")}
	svc, _ := newProjectFixture(repo, store)

	err := svc.DeleteAttachment(context.Background(), owner, repo.project.ID, attachmentID)

	require.NoError(t, err)
	assert.Equal(t, []string{"remove:projects/proposal.pdf", "pull"}, log.calls)
}

func TestProjectDeleteAttachmentUnknownID(t *testing.T) {
	owner := facultyUser()
	log := &callLog{}
	repo := &mockProjectRepository{log: log, project: &models.Project{
		ID:        primitive.NewObjectID(),
		CreatedBy: owner.ID,
	}}
	store := &mockMediaStore{log: log}
	svc, _ := newProjectFixture(repo, store)

	err := svc.DeleteAttachment(context.Background(), owner, repo.project.ID, primitive.NewObjectID())

	require.ErrorIs(t, err, apperr.ErrNotFound)
	assert.Empty(t, log.calls)
}

func TestProjectCreateRejectsUnknownStatus(t *testing.T) {
	log := &callLog{}
	repo := &mockProjectRepository{log: log}
	store := &mockMediaStore{log: log}
	svc, _ := newProjectFixture(repo, store)

	input := validProjectInput()
	input.Status = "paused"
	_, err := svc.Create(context.Background(), facultyUser(), input, stagedFile("cover.jpg"), nil)

	require.ErrorIs(t, err, apperr.ErrValidation)
	assert.Empty(t, log.calls)
}
