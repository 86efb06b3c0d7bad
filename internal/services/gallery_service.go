package services

import (
	"context"
	"fmt"

	"github.com/univdept/backend/internal/apperr"
	"github.com/univdept/backend/internal/models"
	"github.com/univdept/backend/internal/repositories"
	"github.com/univdept/backend/internal/storage"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// GalleryRepository defines the interface for gallery data access
type GalleryRepository interface {
	Create(ctx context.Context, item *models.GalleryItem) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.GalleryItem, error)
	List(ctx context.Context, filter repositories.GalleryFilter) ([]models.GalleryItem, error)
	Categories(ctx context.Context) ([]string, error)
	Update(ctx context.Context, id primitive.ObjectID, set bson.M) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	IncrementViews(ctx context.Context, id primitive.ObjectID) error
}

// GalleryInput carries the fields accepted when creating a gallery item
type GalleryInput struct {
	Title       string
	Description string
	Category    string
	Year        int
	Tags        []string
	IsFeatured  bool
}

// GalleryUpdate carries the fields accepted when updating a gallery item.
// Nil pointers mean "leave unchanged".
type GalleryUpdate struct {
	Title       *string
	Description *string
	Category    *string
	Year        *int
	IsFeatured  *bool
	Tags        []string
}

// GalleryService handles business logic for the image gallery
type GalleryService struct {
	repo    GalleryRepository
	media   MediaStore
	discard Discarder
	logger  *zap.Logger
}

// NewGalleryService creates a new gallery service
func NewGalleryService(repo GalleryRepository, media MediaStore, discard Discarder, logger *zap.Logger) *GalleryService {
	return &GalleryService{
		repo:    repo,
		media:   media,
		discard: discard,
		logger:  logger,
	}
}

// Create adds an image to the gallery. The image is mandatory; nothing is
// persisted or uploaded when it is absent or when validation fails.
func (s *GalleryService) Create(ctx context.Context, actor *models.User, input GalleryInput, image *storage.StagedFile) (*models.GalleryItem, error) {
	defer s.discard.Discard(image)

	if image == nil {
		return nil, apperr.Validationf("image is required")
	}
	if input.Title == "" {
		return nil, apperr.Validationf("title is required")
	}
	if input.Category == "" {
		return nil, apperr.Validationf("category is required")
	}

	obj, err := s.media.Upload(ctx, image.Path, galleryFolder)
	if err != nil {
		return nil, fmt.Errorf("failed to upload gallery image: %w", err)
	}

	item := &models.GalleryItem{
		Title:         input.Title,
		Description:   input.Description,
		Image:         obj.URL,
		ImagePublicID: obj.ID,
		Category:      input.Category,
		Year:          input.Year,
		UploadedBy:    actor.ID,
		Tags:          input.Tags,
		IsFeatured:    input.IsFeatured,
	}

	if err := s.repo.Create(ctx, item); err != nil {
		removeOrphans(ctx, s.media, s.logger, obj.ID)
		return nil, err
	}
	return item, nil
}

// Get retrieves one gallery item. The view counter increment is best-effort
// and never fails the read.
func (s *GalleryService) Get(ctx context.Context, id primitive.ObjectID) (*models.GalleryItem, error) {
	item, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, apperr.NotFoundf("gallery item %s", id.Hex())
	}

	if err := s.repo.IncrementViews(ctx, id); err != nil {
		s.logger.Warn("failed to increment gallery views", zap.String("id", id.Hex()), zap.Error(err))
	} else {
		item.Views++
	}
	return item, nil
}

// List retrieves gallery items matching the filter
func (s *GalleryService) List(ctx context.Context, filter repositories.GalleryFilter) ([]models.GalleryItem, error) {
	return s.repo.List(ctx, filter)
}

// Categories returns the distinct set of categories in use
func (s *GalleryService) Categories(ctx context.Context) ([]string, error) {
	return s.repo.Categories(ctx)
}

// Update modifies a gallery item. Only the uploader or an admin may update
// it. A replacement image is uploaded first; the displaced remote object is
// removed only after the new upload succeeds.
func (s *GalleryService) Update(ctx context.Context, actor *models.User, id primitive.ObjectID, update GalleryUpdate, image *storage.StagedFile) (*models.GalleryItem, error) {
	defer s.discard.Discard(image)

	item, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, apperr.NotFoundf("gallery item %s", id.Hex())
	}
	if !models.CanModify(actor, item.UploadedBy) {
		return nil, apperr.Forbiddenf("not allowed to modify gallery item %s", id.Hex())
	}

	set := bson.M{}
	if update.Title != nil {
		item.Title = *update.Title
		set["title"] = item.Title
	}
	if update.Description != nil {
		item.Description = *update.Description
		set["description"] = item.Description
	}
	if update.Category != nil {
		item.Category = *update.Category
		set["category"] = item.Category
	}
	if update.Year != nil {
		item.Year = *update.Year
		set["year"] = item.Year
	}
	if update.IsFeatured != nil {
		item.IsFeatured = *update.IsFeatured
		set["isFeatured"] = item.IsFeatured
	}
	if update.Tags != nil {
		item.Tags = update.Tags
		set["tags"] = item.Tags
	}

	if image != nil {
		obj, err := s.media.Upload(ctx, image.Path, galleryFolder)
		if err != nil {
			return nil, fmt.Errorf("failed to upload gallery image: %w", err)
		}
		removeReplaced(ctx, s.media, s.logger, item.ImagePublicID)
		item.Image = obj.URL
		item.ImagePublicID = obj.ID
		set["image"] = item.Image
		set["imagePublicId"] = item.ImagePublicID
	}

	if len(set) == 0 {
		return item, nil
	}

	if err := s.repo.Update(ctx, id, set); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, apperr.NotFoundf("gallery item %s", id.Hex())
		}
		if image != nil {
			removeOrphans(ctx, s.media, s.logger, item.ImagePublicID)
		}
		return nil, err
	}
	return item, nil
}

// Delete removes a gallery item and its remote image. Remote removal
// failures are logged but never block the document deletion.
func (s *GalleryService) Delete(ctx context.Context, actor *models.User, id primitive.ObjectID) error {
	item, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if item == nil {
		return apperr.NotFoundf("gallery item %s", id.Hex())
	}
	if !models.CanModify(actor, item.UploadedBy) {
		return apperr.Forbiddenf("not allowed to delete gallery item %s", id.Hex())
	}

	if item.ImagePublicID != "" {
		result := s.media.RemoveMany(ctx, []string{item.ImagePublicID})
		if result.Failed > 0 {
			s.logger.Warn("gallery remote cleanup incomplete",
				zap.String("id", id.Hex()),
				zap.Int("failed", result.Failed),
			)
		}
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if err == mongo.ErrNoDocuments {
			return apperr.NotFoundf("gallery item %s", id.Hex())
		}
		return err
	}
	return nil
}
