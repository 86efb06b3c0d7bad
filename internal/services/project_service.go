package services

import (
	"context"
	"fmt"
	"time"

	"github.com/univdept/backend/internal/apperr"
	"github.com/univdept/backend/internal/models"
	"github.com/univdept/backend/internal/repositories"
	"github.com/univdept/backend/internal/storage"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// ProjectRepository defines the interface for project data access
type ProjectRepository interface {
	Create(ctx context.Context, project *models.Project) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Project, error)
	List(ctx context.Context, filter repositories.ProjectFilter) ([]models.Project, error)
	Featured(ctx context.Context, limit int) ([]models.Project, error)
	Update(ctx context.Context, id primitive.ObjectID, set bson.M) error
	PushAttachments(ctx context.Context, id primitive.ObjectID, attachments []models.Attachment) error
	PullAttachment(ctx context.Context, id, attachmentID primitive.ObjectID) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	IncrementViews(ctx context.Context, id primitive.ObjectID) error
	Stats(ctx context.Context) (*repositories.ProjectStats, error)
}

// ProjectInput carries the fields accepted when creating a project
type ProjectInput struct {
	Title       string
	Description string
	Abstract    string
	Department  string
	Year        int
	Status      string
	Supervisor  primitive.ObjectID
	TeamMembers []primitive.ObjectID
	Tags        []string
	IsFeatured  bool
}

// ProjectUpdate carries the fields accepted when updating a project.
// Nil pointers mean "leave unchanged".
type ProjectUpdate struct {
	Title       *string
	Description *string
	Abstract    *string
	Department  *string
	Year        *int
	Status      *string
	Supervisor  *primitive.ObjectID
	IsFeatured  *bool
	TeamMembers []primitive.ObjectID
	Tags        []string
}

// featuredProjectsLimit caps the featured-projects listing
const featuredProjectsLimit = 6

// ProjectService handles business logic for department projects
type ProjectService struct {
	repo    ProjectRepository
	media   MediaStore
	discard Discarder
	logger  *zap.Logger
}

// NewProjectService creates a new project service
func NewProjectService(repo ProjectRepository, media MediaStore, discard Discarder, logger *zap.Logger) *ProjectService {
	return &ProjectService{
		repo:    repo,
		media:   media,
		discard: discard,
		logger:  logger,
	}
}

// Create adds a project with a mandatory cover image and optional file
// attachments. Any upload failure aborts the whole operation: nothing is
// persisted, and objects already transferred in this request are removed
// best-effort.
func (s *ProjectService) Create(ctx context.Context, actor *models.User, input ProjectInput, image *storage.StagedFile, attachments []*storage.StagedFile) (*models.Project, error) {
	defer func() {
		s.discard.Discard(image)
		s.discard.Discard(attachments...)
	}()

	if image == nil {
		return nil, apperr.Validationf("image is required")
	}
	if err := validateProjectInput(input); err != nil {
		return nil, err
	}

	obj, err := s.media.Upload(ctx, image.Path, projectFolder)
	if err != nil {
		return nil, fmt.Errorf("failed to upload project image: %w", err)
	}
	uploaded := []string{obj.ID}

	attached, err := s.uploadAttachments(ctx, attachments)
	if err != nil {
		removeOrphans(ctx, s.media, s.logger, uploaded...)
		return nil, err
	}
	for _, a := range attached {
		uploaded = append(uploaded, a.PublicID)
	}

	project := &models.Project{
		Title:         input.Title,
		Description:   input.Description,
		Abstract:      input.Abstract,
		Image:         obj.URL,
		ImagePublicID: obj.ID,
		Department:    input.Department,
		Year:          input.Year,
		Status:        input.Status,
		Supervisor:    input.Supervisor,
		TeamMembers:   input.TeamMembers,
		Attachments:   attached,
		Tags:          input.Tags,
		IsFeatured:    input.IsFeatured,
		CreatedBy:     actor.ID,
	}

	if err := s.repo.Create(ctx, project); err != nil {
		removeOrphans(ctx, s.media, s.logger, uploaded...)
		return nil, err
	}
	return project, nil
}

// Get retrieves one project. The view counter increment is best-effort and
// never fails the read.
func (s *ProjectService) Get(ctx context.Context, id primitive.ObjectID) (*models.Project, error) {
	project, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, apperr.NotFoundf("project %s", id.Hex())
	}

	if err := s.repo.IncrementViews(ctx, id); err != nil {
		s.logger.Warn("failed to increment project views", zap.String("id", id.Hex()), zap.Error(err))
	} else {
		project.Views++
	}
	return project, nil
}

// List retrieves projects matching the filter
func (s *ProjectService) List(ctx context.Context, filter repositories.ProjectFilter) ([]models.Project, error) {
	return s.repo.List(ctx, filter)
}

// Featured retrieves the featured projects for the landing page
func (s *ProjectService) Featured(ctx context.Context) ([]models.Project, error) {
	return s.repo.Featured(ctx, featuredProjectsLimit)
}

// Stats aggregates project counts and views across the collection
func (s *ProjectService) Stats(ctx context.Context) (*repositories.ProjectStats, error) {
	return s.repo.Stats(ctx)
}

// Update modifies a project. Only the creator or an admin may update it.
// A replacement image is uploaded first; the displaced remote object is
// removed only after the new upload succeeds. New attachments are appended
// to the existing list.
func (s *ProjectService) Update(ctx context.Context, actor *models.User, id primitive.ObjectID, update ProjectUpdate, image *storage.StagedFile, attachments []*storage.StagedFile) (*models.Project, error) {
	defer func() {
		s.discard.Discard(image)
		s.discard.Discard(attachments...)
	}()

	project, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, apperr.NotFoundf("project %s", id.Hex())
	}
	if !models.CanModify(actor, project.CreatedBy) {
		return nil, apperr.Forbiddenf("not allowed to modify project %s", id.Hex())
	}

	set := bson.M{}
	if update.Title != nil {
		project.Title = *update.Title
		set["title"] = project.Title
	}
	if update.Description != nil {
		project.Description = *update.Description
		set["description"] = project.Description
	}
	if update.Abstract != nil {
		project.Abstract = *update.Abstract
		set["abstract"] = project.Abstract
	}
	if update.Department != nil {
		project.Department = *update.Department
		set["department"] = project.Department
	}
	if update.Year != nil {
		project.Year = *update.Year
		set["year"] = project.Year
	}
	if update.Status != nil {
		if !validProjectStatus(*update.Status) {
			return nil, apperr.Validationf("unknown project status %q", *update.Status)
		}
		project.Status = *update.Status
		set["status"] = project.Status
	}
	if update.Supervisor != nil {
		project.Supervisor = *update.Supervisor
		set["supervisor"] = project.Supervisor
	}
	if update.IsFeatured != nil {
		project.IsFeatured = *update.IsFeatured
		set["isFeatured"] = project.IsFeatured
	}
	if update.TeamMembers != nil {
		project.TeamMembers = update.TeamMembers
		set["teamMembers"] = project.TeamMembers
	}
	if update.Tags != nil {
		project.Tags = update.Tags
		set["tags"] = project.Tags
	}

	var newImageID string
	if image != nil {
		obj, err := s.media.Upload(ctx, image.Path, projectFolder)
		if err != nil {
			return nil, fmt.Errorf("failed to upload project image: %w", err)
		}
		newImageID = obj.ID
		removeReplaced(ctx, s.media, s.logger, project.ImagePublicID)
		project.Image = obj.URL
		project.ImagePublicID = obj.ID
		set["image"] = project.Image
		set["imagePublicId"] = project.ImagePublicID
	}

	if len(set) > 0 {
		if err := s.repo.Update(ctx, id, set); err != nil {
			if err == mongo.ErrNoDocuments {
				return nil, apperr.NotFoundf("project %s", id.Hex())
			}
			removeOrphans(ctx, s.media, s.logger, newImageID)
			return nil, err
		}
	}

	if len(attachments) > 0 {
		attached, err := s.uploadAttachments(ctx, attachments)
		if err != nil {
			return nil, err
		}
		if err := s.repo.PushAttachments(ctx, id, attached); err != nil {
			ids := make([]string, 0, len(attached))
			for _, a := range attached {
				ids = append(ids, a.PublicID)
			}
			removeOrphans(ctx, s.media, s.logger, ids...)
			return nil, err
		}
		project.Attachments = append(project.Attachments, attached...)
	}

	return project, nil
}

// Delete removes a project, its remote image and every remote attachment.
// Removal failures are logged with counts but never block the document
// deletion.
func (s *ProjectService) Delete(ctx context.Context, actor *models.User, id primitive.ObjectID) error {
	project, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if project == nil {
		return apperr.NotFoundf("project %s", id.Hex())
	}
	if !models.CanModify(actor, project.CreatedBy) {
		return apperr.Forbiddenf("not allowed to delete project %s", id.Hex())
	}

	if ids := project.RemotePublicIDs(); len(ids) > 0 {
		result := s.media.RemoveMany(ctx, ids)
		if result.Failed > 0 {
			s.logger.Warn("project remote cleanup incomplete",
				zap.String("id", id.Hex()),
				zap.Int("succeeded", result.Succeeded),
				zap.Int("failed", result.Failed),
			)
		}
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if err == mongo.ErrNoDocuments {
			return apperr.NotFoundf("project %s", id.Hex())
		}
		return err
	}
	return nil
}

// DeleteAttachment removes one attachment from a project. The remote removal
// is best-effort; the attachment reference is pulled regardless.
func (s *ProjectService) DeleteAttachment(ctx context.Context, actor *models.User, id, attachmentID primitive.ObjectID) error {
	project, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if project == nil {
		return apperr.NotFoundf("project %s", id.Hex())
	}
	if !models.CanModify(actor, project.CreatedBy) {
		return apperr.Forbiddenf("not allowed to modify project %s", id.Hex())
	}

	var attachment *models.Attachment
	for i := range project.Attachments {
		if project.Attachments[i].ID == attachmentID {
			attachment = &project.Attachments[i]
			break
		}
	}
	if attachment == nil {
		return apperr.NotFoundf("attachment %s", attachmentID.Hex())
	}

	if attachment.PublicID != "" {
		if err := s.media.Remove(ctx, attachment.PublicID); err != nil {
			s.logger.Warn("failed to remove remote attachment",
				zap.String("public_id", attachment.PublicID),
				zap.Error(err),
			)
		}
	}

	if err := s.repo.PullAttachment(ctx, id, attachmentID); err != nil {
		if err == mongo.ErrNoDocuments {
			return apperr.NotFoundf("project %s", id.Hex())
		}
		return err
	}
	return nil
}

// uploadAttachments transfers staged attachment files to the remote store.
// On failure the objects uploaded so far by this call are removed best-effort
// before the error is returned.
func (s *ProjectService) uploadAttachments(ctx context.Context, files []*storage.StagedFile) ([]models.Attachment, error) {
	attached := make([]models.Attachment, 0, len(files))
	for _, f := range files {
		obj, err := s.media.Upload(ctx, f.Path, projectFolder)
		if err != nil {
			ids := make([]string, 0, len(attached))
			for _, a := range attached {
				ids = append(ids, a.PublicID)
			}
			removeOrphans(ctx, s.media, s.logger, ids...)
			return nil, fmt.Errorf("failed to upload attachment %q: %w", f.OriginalName, err)
		}
		attached = append(attached, models.Attachment{
			ID:         primitive.NewObjectID(),
			Name:       f.OriginalName,
			URL:        obj.URL,
			PublicID:   obj.ID,
			Type:       obj.Format,
			UploadedAt: time.Now(),
		})
	}
	return attached, nil
}

func validateProjectInput(input ProjectInput) error {
	if input.Title == "" {
		return apperr.Validationf("title is required")
	}
	if input.Description == "" {
		return apperr.Validationf("description is required")
	}
	if input.Department == "" {
		return apperr.Validationf("department is required")
	}
	if input.Year == 0 {
		return apperr.Validationf("year is required")
	}
	if !validProjectStatus(input.Status) {
		return apperr.Validationf("unknown project status %q", input.Status)
	}
	return nil
}

func validProjectStatus(status string) bool {
	switch status {
	case models.ProjectStatusOngoing, models.ProjectStatusCompleted, models.ProjectStatusUpcoming:
		return true
	default:
		return false
	}
}
