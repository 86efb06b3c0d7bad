package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/univdept/backend/internal/apperr"
	authmw "github.com/univdept/backend/internal/auth/middleware"
	"github.com/univdept/backend/internal/models"
	"github.com/univdept/backend/internal/repositories"
	"github.com/univdept/backend/internal/services"
	"github.com/univdept/backend/internal/storage"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// ProgramService defines the interface for program service operations
type ProgramService interface {
	Create(ctx context.Context, actor *models.User, input services.ProgramInput, image *storage.StagedFile) (*models.Program, error)
	Get(ctx context.Context, id primitive.ObjectID) (*models.Program, error)
	List(ctx context.Context, filter repositories.ProgramFilter) ([]models.Program, error)
	ByYear(ctx context.Context, year int) ([]models.Program, error)
	Stats(ctx context.Context) (*repositories.ProgramStats, error)
	Update(ctx context.Context, actor *models.User, id primitive.ObjectID, update services.ProgramUpdate, image *storage.StagedFile) (*models.Program, error)
	Delete(ctx context.Context, actor *models.User, id primitive.ObjectID) error
}

// ProgramHandler handles program HTTP requests
type ProgramHandler struct {
	BaseHandler
	programService ProgramService
	stager         *storage.Stager
	maxFileBytes   int64
	authMw         func(http.Handler) http.Handler
}

// NewProgramHandler creates a new program handler
func NewProgramHandler(programService ProgramService, stager *storage.Stager, maxFileBytes int64, logger *zap.Logger, authMw func(http.Handler) http.Handler) *ProgramHandler {
	return &ProgramHandler{
		BaseHandler:    BaseHandler{Logger: logger},
		programService: programService,
		stager:         stager,
		maxFileBytes:   maxFileBytes,
		authMw:         authMw,
	}
}

// RegisterRoutes registers all program handler routes
func (h *ProgramHandler) RegisterRoutes(r chi.Router) {
	r.Route("/programs", func(r chi.Router) {
		r.Get("/", h.List)
		r.Get("/year/{year}", h.ByYear)
		r.Get("/{id}", h.Get)

		r.Group(func(r chi.Router) {
			r.Use(h.authMw)
			r.Use(authmw.RequireRoles(models.ProgramEditors...))
			r.Post("/", h.Create)
			r.Put("/{id}", h.Update)
			r.Delete("/{id}", h.Delete)
			r.Get("/stats/overview", h.Stats)
		})
	})
}

// List handles GET /programs
func (h *ProgramHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := repositories.ProgramFilter{
		Year:       queryInt(r, "year", 0),
		Department: r.URL.Query().Get("department"),
		Status:     r.URL.Query().Get("status"),
	}

	programs, err := h.programService.List(r.Context(), filter)
	if err != nil {
		h.RespondAppError(w, err)
		return
	}
	h.RespondJSON(w, http.StatusOK, programs)
}

// ByYear handles GET /programs/year/{year}
func (h *ProgramHandler) ByYear(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil {
		h.RespondError(w, http.StatusBadRequest, "invalid year")
		return
	}

	programs, err := h.programService.ByYear(r.Context(), year)
	if err != nil {
		h.RespondAppError(w, err)
		return
	}
	h.RespondJSON(w, http.StatusOK, programs)
}

// Stats handles GET /programs/stats/overview
func (h *ProgramHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.programService.Stats(r.Context())
	if err != nil {
		h.RespondAppError(w, err)
		return
	}
	h.RespondJSON(w, http.StatusOK, stats)
}

// Get handles GET /programs/{id}
func (h *ProgramHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := objectIDParam(r, "id")
	if err != nil {
		h.RespondAppError(w, err)
		return
	}

	program, err := h.programService.Get(r.Context(), id)
	if err != nil {
		h.RespondAppError(w, err)
		return
	}
	h.RespondJSON(w, http.StatusOK, program)
}

// Create handles POST /programs
func (h *ProgramHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := authmw.GetUser(r.Context())
	if !ok {
		h.RespondError(w, http.StatusUnauthorized, "not authorized to access this route")
		return
	}

	input, image, err := h.parseCreate(r)
	if err != nil {
		h.RespondAppError(w, err)
		return
	}

	program, err := h.programService.Create(r.Context(), user, input, image)
	if err != nil {
		h.RespondAppError(w, err)
		return
	}
	h.RespondJSON(w, http.StatusCreated, program)
}

// Update handles PUT /programs/{id}
func (h *ProgramHandler) Update(w http.ResponseWriter, r *http.Request) {
	user, ok := authmw.GetUser(r.Context())
	if !ok {
		h.RespondError(w, http.StatusUnauthorized, "not authorized to access this route")
		return
	}

	id, err := objectIDParam(r, "id")
	if err != nil {
		h.RespondAppError(w, err)
		return
	}

	update, image, err := h.parseUpdate(r)
	if err != nil {
		h.RespondAppError(w, err)
		return
	}

	program, err := h.programService.Update(r.Context(), user, id, update, image)
	if err != nil {
		h.RespondAppError(w, err)
		return
	}
	h.RespondJSON(w, http.StatusOK, program)
}

// Delete handles DELETE /programs/{id}
func (h *ProgramHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, ok := authmw.GetUser(r.Context())
	if !ok {
		h.RespondError(w, http.StatusUnauthorized, "not authorized to access this route")
		return
	}

	id, err := objectIDParam(r, "id")
	if err != nil {
		h.RespondAppError(w, err)
		return
	}

	if err := h.programService.Delete(r.Context(), user, id); err != nil {
		h.RespondAppError(w, err)
		return
	}
	h.RespondJSON(w, http.StatusOK, map[string]string{"message": "program deleted"})
}

func (h *ProgramHandler) parseCreate(r *http.Request) (services.ProgramInput, *storage.StagedFile, error) {
	var input services.ProgramInput

	if isMultipart(r) {
		if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
			return input, nil, apperr.Validationf("invalid request body")
		}
		form := url.Values(r.MultipartForm.Value)

		input.Title = firstValue(form, "title")
		input.Description = firstValue(form, "description")
		input.Department = firstValue(form, "department")
		input.Duration = firstValue(form, "duration")
		input.Status = firstValue(form, "status")
		input.Highlights = formList(form, "highlights")

		if y, err := formInt(form, "year"); err != nil {
			return input, nil, err
		} else if y != nil {
			input.Year = *y
		}
		if p, err := formInt(form, "participants"); err != nil {
			return input, nil, err
		} else if p != nil {
			input.Participants = *p
		}
		if d := firstValue(form, "date"); d != "" {
			date, err := parseDate(d)
			if err != nil {
				return input, nil, err
			}
			input.Date = date
		}
		if input.Status == "" {
			input.Status = models.ProgramStatusUpcoming
		}

		image, err := h.stageImage(r)
		if err != nil {
			return input, nil, err
		}
		return input, image, nil
	}

	var body struct {
		Title        string   `json:"title"`
		Description  string   `json:"description"`
		Year         int      `json:"year"`
		Department   string   `json:"department"`
		Duration     string   `json:"duration"`
		Participants int      `json:"participants"`
		Date         string   `json:"date"`
		Highlights   []string `json:"highlights"`
		Status       string   `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return input, nil, apperr.Validationf("invalid request body")
	}
	if body.Status == "" {
		body.Status = models.ProgramStatusUpcoming
	}

	input = services.ProgramInput{
		Title:        body.Title,
		Description:  body.Description,
		Year:         body.Year,
		Department:   body.Department,
		Duration:     body.Duration,
		Participants: body.Participants,
		Highlights:   body.Highlights,
		Status:       body.Status,
	}
	if body.Date != "" {
		date, err := parseDate(body.Date)
		if err != nil {
			return input, nil, err
		}
		input.Date = date
	}
	return input, nil, nil
}

func (h *ProgramHandler) parseUpdate(r *http.Request) (services.ProgramUpdate, *storage.StagedFile, error) {
	var update services.ProgramUpdate

	if isMultipart(r) {
		if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
			return update, nil, apperr.Validationf("invalid request body")
		}
		form := url.Values(r.MultipartForm.Value)

		update.Title = formString(form, "title")
		update.Description = formString(form, "description")
		update.Department = formString(form, "department")
		update.Duration = formString(form, "duration")
		update.Status = formString(form, "status")
		update.Highlights = formList(form, "highlights")

		var err error
		if update.Year, err = formInt(form, "year"); err != nil {
			return update, nil, err
		}
		if update.Participants, err = formInt(form, "participants"); err != nil {
			return update, nil, err
		}
		if d := formString(form, "date"); d != nil {
			date, err := parseDate(*d)
			if err != nil {
				return update, nil, err
			}
			update.Date = &date
		}

		image, err := h.stageImage(r)
		if err != nil {
			return update, nil, err
		}
		return update, image, nil
	}

	var body struct {
		Title        *string  `json:"title"`
		Description  *string  `json:"description"`
		Year         *int     `json:"year"`
		Department   *string  `json:"department"`
		Duration     *string  `json:"duration"`
		Participants *int     `json:"participants"`
		Date         *string  `json:"date"`
		Status       *string  `json:"status"`
		Highlights   []string `json:"highlights"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return update, nil, apperr.Validationf("invalid request body")
	}

	update = services.ProgramUpdate{
		Title:        body.Title,
		Description:  body.Description,
		Year:         body.Year,
		Department:   body.Department,
		Duration:     body.Duration,
		Participants: body.Participants,
		Status:       body.Status,
		Highlights:   body.Highlights,
	}
	if body.Date != nil {
		date, err := parseDate(*body.Date)
		if err != nil {
			return update, nil, err
		}
		update.Date = &date
	}
	return update, nil, nil
}

func (h *ProgramHandler) stageImage(r *http.Request) (*storage.StagedFile, error) {
	fhs := r.MultipartForm.File["image"]
	if len(fhs) == 0 {
		return nil, nil
	}
	staged, err := h.stager.StageAll("image", fhs, storage.ImageConstraints(h.maxFileBytes))
	if err != nil {
		return nil, err
	}
	return staged[0], nil
}

// parseDate accepts RFC 3339 timestamps and plain dates
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Time{}, apperr.Validationf("invalid date %q", s)
}
