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

// NewsRepository defines the interface for news data access
type NewsRepository interface {
	Create(ctx context.Context, news *models.News) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.News, error)
	List(ctx context.Context, filter repositories.NewsFilter) ([]models.News, int64, error)
	Related(ctx context.Context, category string, excludeID primitive.ObjectID, limit int) ([]models.News, error)
	Update(ctx context.Context, id primitive.ObjectID, set bson.M) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	IncrementViews(ctx context.Context, id primitive.ObjectID) error
}

// NewsInput carries the fields accepted when creating a news item
type NewsInput struct {
	Title       string
	Content     string
	Excerpt     string
	Category    string
	IsImportant bool
	Tags        []string
}

// NewsUpdate carries the fields accepted when updating a news item.
// Nil pointers mean "leave unchanged".
type NewsUpdate struct {
	Title       *string
	Content     *string
	Excerpt     *string
	Category    *string
	IsImportant *bool
	IsPublished *bool
	Tags        []string
}

// NewsDetail is a single news item plus related items in the same category
type NewsDetail struct {
	News    *models.News  `json:"news"`
	Related []models.News `json:"related"`
}

// relatedNewsLimit caps the related-items block on a single-item read
const relatedNewsLimit = 3

// NewsService handles business logic for news and notifications
type NewsService struct {
	repo    NewsRepository
	media   MediaStore
	discard Discarder
	logger  *zap.Logger
}

// NewNewsService creates a new news service
func NewNewsService(repo NewsRepository, media MediaStore, discard Discarder, logger *zap.Logger) *NewsService {
	return &NewsService{
		repo:    repo,
		media:   media,
		discard: discard,
		logger:  logger,
	}
}

// Create publishes a news item. An optional image is transferred to the
// remote media store before the document is persisted; the staged file is
// always discarded, success or failure.
func (s *NewsService) Create(ctx context.Context, actor *models.User, input NewsInput, image *storage.StagedFile) (*models.News, error) {
	defer s.discard.Discard(image)

	if err := validateNewsInput(input.Title, input.Content, input.Category); err != nil {
		return nil, err
	}

	news := &models.News{
		Title:       input.Title,
		Content:     input.Content,
		Excerpt:     input.Excerpt,
		Category:    input.Category,
		IsImportant: input.IsImportant,
		Tags:        input.Tags,
		Author:      actor.ID,
		IsPublished: true,
	}
	if news.Excerpt == "" {
		news.Excerpt = models.MakeExcerpt(news.Content)
	}

	if image != nil {
		obj, err := s.media.Upload(ctx, image.Path, newsFolder)
		if err != nil {
			return nil, fmt.Errorf("failed to upload news image: %w", err)
		}
		news.Image = models.ImageRef{URL: obj.URL, PublicID: obj.ID}
	}

	if err := s.repo.Create(ctx, news); err != nil {
		removeOrphans(ctx, s.media, s.logger, news.Image.PublicID)
		return nil, err
	}
	return news, nil
}

// Get retrieves one news item with related items in the same category. The
// view counter increment is best-effort and never fails the read.
func (s *NewsService) Get(ctx context.Context, id primitive.ObjectID) (*NewsDetail, error) {
	news, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if news == nil {
		return nil, apperr.NotFoundf("news %s", id.Hex())
	}

	if err := s.repo.IncrementViews(ctx, id); err != nil {
		s.logger.Warn("failed to increment news views", zap.String("id", id.Hex()), zap.Error(err))
	} else {
		news.Views++
	}

	related, err := s.repo.Related(ctx, news.Category, news.ID, relatedNewsLimit)
	if err != nil {
		return nil, err
	}

	return &NewsDetail{News: news, Related: related}, nil
}

// List retrieves a page of published news plus the total match count
func (s *NewsService) List(ctx context.Context, filter repositories.NewsFilter) ([]models.News, int64, error) {
	return s.repo.List(ctx, filter)
}

// Update modifies a news item. Only the author or an admin may update it.
// A replacement image is uploaded first; the displaced remote object is
// removed only after the new upload succeeds.
func (s *NewsService) Update(ctx context.Context, actor *models.User, id primitive.ObjectID, update NewsUpdate, image *storage.StagedFile) (*models.News, error) {
	defer s.discard.Discard(image)

	news, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if news == nil {
		return nil, apperr.NotFoundf("news %s", id.Hex())
	}
	if !models.CanModify(actor, news.Author) {
		return nil, apperr.Forbiddenf("not allowed to modify news %s", id.Hex())
	}

	set := bson.M{}
	if update.Title != nil {
		news.Title = *update.Title
		set["title"] = news.Title
	}
	if update.Content != nil {
		news.Content = *update.Content
		set["content"] = news.Content
		if update.Excerpt == nil {
			news.Excerpt = models.MakeExcerpt(news.Content)
			set["excerpt"] = news.Excerpt
		}
	}
	if update.Excerpt != nil {
		news.Excerpt = *update.Excerpt
		set["excerpt"] = news.Excerpt
	}
	if update.Category != nil {
		if *update.Category != models.NewsCategoryNews && *update.Category != models.NewsCategoryNotification {
			return nil, apperr.Validationf("unknown news category %q", *update.Category)
		}
		news.Category = *update.Category
		set["category"] = news.Category
	}
	if update.IsImportant != nil {
		news.IsImportant = *update.IsImportant
		set["isImportant"] = news.IsImportant
	}
	if update.IsPublished != nil {
		news.IsPublished = *update.IsPublished
		set["isPublished"] = news.IsPublished
	}
	if update.Tags != nil {
		news.Tags = update.Tags
		set["tags"] = news.Tags
	}

	if image != nil {
		obj, err := s.media.Upload(ctx, image.Path, newsFolder)
		if err != nil {
			return nil, fmt.Errorf("failed to upload news image: %w", err)
		}
		removeReplaced(ctx, s.media, s.logger, news.Image.PublicID)
		news.Image = models.ImageRef{URL: obj.URL, PublicID: obj.ID}
		set["image"] = news.Image
	}

	if len(set) == 0 {
		return news, nil
	}

	if err := s.repo.Update(ctx, id, set); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, apperr.NotFoundf("news %s", id.Hex())
		}
		if image != nil {
			removeOrphans(ctx, s.media, s.logger, news.Image.PublicID)
		}
		return nil, err
	}
	return news, nil
}

// Delete removes a news item and its remote image. Remote removal failures
// are logged but never block the document deletion.
func (s *NewsService) Delete(ctx context.Context, actor *models.User, id primitive.ObjectID) error {
	news, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if news == nil {
		return apperr.NotFoundf("news %s", id.Hex())
	}
	if !models.CanModify(actor, news.Author) {
		return apperr.Forbiddenf("not allowed to delete news %s", id.Hex())
	}

	if news.Image.PublicID != "" {
		result := s.media.RemoveMany(ctx, []string{news.Image.PublicID})
		if result.Failed > 0 {
			s.logger.Warn("news remote cleanup incomplete",
				zap.String("id", id.Hex()),
				zap.Int("failed", result.Failed),
			)
		}
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if err == mongo.ErrNoDocuments {
			return apperr.NotFoundf("news %s", id.Hex())
		}
		return err
	}
	return nil
}

func validateNewsInput(title, content, category string) error {
	if title == "" {
		return apperr.Validationf("title is required")
	}
	if content == "" {
		return apperr.Validationf("content is required")
	}
	if category != models.NewsCategoryNews && category != models.NewsCategoryNotification {
		return apperr.Validationf("unknown news category %q", category)
	}
	return nil
}
