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

// ProgramRepository defines the interface for program data access
type ProgramRepository interface {
	Create(ctx context.Context, program *models.Program) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Program, error)
	List(ctx context.Context, filter repositories.ProgramFilter) ([]models.Program, error)
	Update(ctx context.Context, id primitive.ObjectID, set bson.M) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	Stats(ctx context.Context) (*repositories.ProgramStats, error)
}

// ProgramInput carries the fields accepted when creating a program
type ProgramInput struct {
	Title        string
	Description  string
	Year         int
	Department   string
	Duration     string
	Participants int
	Date         time.Time
	Highlights   []string
	Status       string
}

// ProgramUpdate carries the fields accepted when updating a program.
// Nil pointers mean "leave unchanged".
type ProgramUpdate struct {
	Title        *string
	Description  *string
	Year         *int
	Department   *string
	Duration     *string
	Participants *int
	Date         *time.Time
	Status       *string
	Highlights   []string
}

// ProgramService handles business logic for department programs and events
type ProgramService struct {
	repo    ProgramRepository
	media   MediaStore
	discard Discarder
	logger  *zap.Logger
}

// NewProgramService creates a new program service
func NewProgramService(repo ProgramRepository, media MediaStore, discard Discarder, logger *zap.Logger) *ProgramService {
	return &ProgramService{
		repo:    repo,
		media:   media,
		discard: discard,
		logger:  logger,
	}
}

// Create adds a program. An optional image is transferred to the remote
// media store before the document is persisted.
func (s *ProgramService) Create(ctx context.Context, actor *models.User, input ProgramInput, image *storage.StagedFile) (*models.Program, error) {
	defer s.discard.Discard(image)

	if err := validateProgramInput(input); err != nil {
		return nil, err
	}

	program := &models.Program{
		Title:        input.Title,
		Description:  input.Description,
		Year:         input.Year,
		Department:   input.Department,
		Duration:     input.Duration,
		Participants: input.Participants,
		Date:         input.Date,
		Highlights:   input.Highlights,
		Status:       input.Status,
		CreatedBy:    actor.ID,
	}

	if image != nil {
		obj, err := s.media.Upload(ctx, image.Path, programFolder)
		if err != nil {
			return nil, fmt.Errorf("failed to upload program image: %w", err)
		}
		program.Image = models.ImageRef{URL: obj.URL, PublicID: obj.ID}
	}

	if err := s.repo.Create(ctx, program); err != nil {
		removeOrphans(ctx, s.media, s.logger, program.Image.PublicID)
		return nil, err
	}
	return program, nil
}

// Get retrieves one program
func (s *ProgramService) Get(ctx context.Context, id primitive.ObjectID) (*models.Program, error) {
	program, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if program == nil {
		return nil, apperr.NotFoundf("program %s", id.Hex())
	}
	return program, nil
}

// List retrieves programs matching the filter
func (s *ProgramService) List(ctx context.Context, filter repositories.ProgramFilter) ([]models.Program, error) {
	return s.repo.List(ctx, filter)
}

// ByYear retrieves all programs held in a given year
func (s *ProgramService) ByYear(ctx context.Context, year int) ([]models.Program, error) {
	return s.repo.List(ctx, repositories.ProgramFilter{Year: year})
}

// Stats aggregates program counts across the collection
func (s *ProgramService) Stats(ctx context.Context) (*repositories.ProgramStats, error) {
	return s.repo.Stats(ctx)
}

// Update modifies a program. Only the creator or an admin may update it.
// A replacement image is uploaded first; the displaced remote object is
// removed only after the new upload succeeds.
func (s *ProgramService) Update(ctx context.Context, actor *models.User, id primitive.ObjectID, update ProgramUpdate, image *storage.StagedFile) (*models.Program, error) {
	defer s.discard.Discard(image)

	program, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if program == nil {
		return nil, apperr.NotFoundf("program %s", id.Hex())
	}
	if !models.CanModify(actor, program.CreatedBy) {
		return nil, apperr.Forbiddenf("not allowed to modify program %s", id.Hex())
	}

	set := bson.M{}
	if update.Title != nil {
		program.Title = *update.Title
		set["title"] = program.Title
	}
	if update.Description != nil {
		program.Description = *update.Description
		set["description"] = program.Description
	}
	if update.Year != nil {
		program.Year = *update.Year
		set["year"] = program.Year
	}
	if update.Department != nil {
		program.Department = *update.Department
		set["department"] = program.Department
	}
	if update.Duration != nil {
		program.Duration = *update.Duration
		set["duration"] = program.Duration
	}
	if update.Participants != nil {
		program.Participants = *update.Participants
		set["participants"] = program.Participants
	}
	if update.Date != nil {
		program.Date = *update.Date
		set["date"] = program.Date
	}
	if update.Status != nil {
		if !validProgramStatus(*update.Status) {
			return nil, apperr.Validationf("unknown program status %q", *update.Status)
		}
		program.Status = *update.Status
		set["status"] = program.Status
	}
	if update.Highlights != nil {
		program.Highlights = update.Highlights
		set["highlights"] = program.Highlights
	}

	if image != nil {
		obj, err := s.media.Upload(ctx, image.Path, programFolder)
		if err != nil {
			return nil, fmt.Errorf("failed to upload program image: %w", err)
		}
		removeReplaced(ctx, s.media, s.logger, program.Image.PublicID)
		program.Image = models.ImageRef{URL: obj.URL, PublicID: obj.ID}
		set["image"] = program.Image
	}

	if len(set) == 0 {
		return program, nil
	}

	if err := s.repo.Update(ctx, id, set); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, apperr.NotFoundf("program %s", id.Hex())
		}
		if image != nil {
			removeOrphans(ctx, s.media, s.logger, program.Image.PublicID)
		}
		return nil, err
	}
	return program, nil
}

// Delete removes a program and its remote image. Remote removal failures are
// logged but never block the document deletion.
func (s *ProgramService) Delete(ctx context.Context, actor *models.User, id primitive.ObjectID) error {
	program, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if program == nil {
		return apperr.NotFoundf("program %s", id.Hex())
	}
	if !models.CanModify(actor, program.CreatedBy) {
		return apperr.Forbiddenf("not allowed to delete program %s", id.Hex())
	}

	if program.Image.PublicID != "" {
		result := s.media.RemoveMany(ctx, []string{program.Image.PublicID})
		if result.Failed > 0 {
			s.logger.Warn("program remote cleanup incomplete",
				zap.String("id", id.Hex()),
				zap.Int("failed", result.Failed),
			)
		}
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if err == mongo.ErrNoDocuments {
			return apperr.NotFoundf("program %s", id.Hex())
		}
		return err
	}
	return nil
}

func validateProgramInput(input ProgramInput) error {
	if input.Title == "" {
		return apperr.Validationf("title is required")
	}
	if input.Description == "" {
		return apperr.Validationf("description is required")
	}
	if input.Year == 0 {
		return apperr.Validationf("year is required")
	}
	if !validProgramStatus(input.Status) {
		return apperr.Validationf("unknown program status %q", input.Status)
	}
	return nil
}

func validProgramStatus(status string) bool {
	switch status {
	case models.ProgramStatusActive, models.ProgramStatusCompleted, models.ProgramStatusUpcoming:
		return true
	default:
		return false
	}
}
