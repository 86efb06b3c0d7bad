package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

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

// ProjectService defines the interface for project service operations
type ProjectService interface {
	Create(ctx context.Context, actor *models.User, input services.ProjectInput, image *storage.StagedFile, attachments []*storage.StagedFile) (*models.Project, error)
	Get(ctx context.Context, id primitive.ObjectID) (*models.Project, error)
	List(ctx context.Context, filter repositories.ProjectFilter) ([]models.Project, error)
	Featured(ctx context.Context) ([]models.Project, error)
	Stats(ctx context.Context) (*repositories.ProjectStats, error)
	Update(ctx context.Context, actor *models.User, id primitive.ObjectID, update services.ProjectUpdate, image *storage.StagedFile, attachments []*storage.StagedFile) (*models.Project, error)
	Delete(ctx context.Context, actor *models.User, id primitive.ObjectID) error
	DeleteAttachment(ctx context.Context, actor *models.User, id, attachmentID primitive.ObjectID) error
}

// ProjectHandler handles project HTTP requests
type ProjectHandler struct {
	BaseHandler
	projectService   ProjectService
	stager           *storage.Stager
	maxFileBytes     int64
	maxFilesPerField int
	authMw           func(http.Handler) http.Handler
}

// NewProjectHandler creates a new project handler
func NewProjectHandler(projectService ProjectService, stager *storage.Stager, maxFileBytes int64, maxFilesPerField int, logger *zap.Logger, authMw func(http.Handler) http.Handler) *ProjectHandler {
	return &ProjectHandler{
		BaseHandler:      BaseHandler{Logger: logger},
		projectService:   projectService,
		stager:           stager,
		maxFileBytes:     maxFileBytes,
		maxFilesPerField: maxFilesPerField,
		authMw:           authMw,
	}
}

// RegisterRoutes registers all project handler routes
func (h *ProjectHandler) RegisterRoutes(r chi.Router) {
	r.Route("/projects", func(r chi.Router) {
		r.Get("/", h.List)
		r.Get("/featured", h.Featured)
		r.Get("/stats/overview", h.Stats)
		r.Get("/{id}", h.Get)

		r.Group(func(r chi.Router) {
			r.Use(h.authMw)
			r.With(authmw.RequireRoles(models.ProjectEditors...)).Post("/", h.Create)
			r.With(authmw.RequireRoles(models.ProjectEditors...)).Put("/{id}", h.Update)
			r.With(authmw.RequireRoles(models.ProjectEditors...)).Delete("/{id}/attachments/{attachmentId}", h.DeleteAttachment)
			r.With(authmw.RequireRoles(models.ProjectDeleters...)).Delete("/{id}", h.Delete)
		})
	})
}

// List handles GET /projects
func (h *ProjectHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := repositories.ProjectFilter{
		Status:     r.URL.Query().Get("status"),
		Department: r.URL.Query().Get("department"),
		Year:       queryInt(r, "year", 0),
	}

	projects, err := h.projectService.List(r.Context(), filter)
	if err != nil {
		h.RespondAppError(w, err)
		return
	}
	h.RespondJSON(w, http.StatusOK, projects)
}

// Featured handles GET /projects/featured
func (h *ProjectHandler) Featured(w http.ResponseWriter, r *http.Request) {
	projects, err := h.projectService.Featured(r.Context())
	if err != nil {
		h.RespondAppError(w, err)
		return
	}
	h.RespondJSON(w, http.StatusOK, projects)
}

// Stats handles GET /projects/stats/overview
func (h *ProjectHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.projectService.Stats(r.Context())
	if err != nil {
		h.RespondAppError(w, err)
		return
	}
	h.RespondJSON(w, http.StatusOK, stats)
}

// Get handles GET /projects/{id}
func (h *ProjectHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := objectIDParam(r, "id")
	if err != nil {
		h.RespondAppError(w, err)
		return
	}

	project, err := h.projectService.Get(r.Context(), id)
	if err != nil {
		h.RespondAppError(w, err)
		return
	}
	h.RespondJSON(w, http.StatusOK, project)
}

// Create handles POST /projects. The image part is mandatory, so only
// multipart bodies are accepted.
func (h *ProjectHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := authmw.GetUser(r.Context())
	if !ok {
		h.RespondError(w, http.StatusUnauthorized, "not authorized to access this route")
		return
	}

	if !isMultipart(r) {
		h.RespondError(w, http.StatusBadRequest, "multipart form with an image is required")
		return
	}
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		h.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	form := url.Values(r.MultipartForm.Value)

	input := services.ProjectInput{
		Title:       firstValue(form, "title"),
		Description: firstValue(form, "description"),
		Abstract:    firstValue(form, "abstract"),
		Department:  firstValue(form, "department"),
		Status:      firstValue(form, "status"),
		Tags:        formList(form, "tags"),
	}
	if input.Status == "" {
		input.Status = models.ProjectStatusOngoing
	}
	if y, err := formInt(form, "year"); err != nil {
		h.RespondAppError(w, err)
		return
	} else if y != nil {
		input.Year = *y
	}
	if b, err := formBool(form, "isFeatured"); err != nil {
		h.RespondAppError(w, err)
		return
	} else if b != nil {
		input.IsFeatured = *b
	}
	if sup := firstValue(form, "supervisor"); sup != "" {
		oid, err := primitive.ObjectIDFromHex(sup)
		if err != nil {
			h.RespondAppError(w, apperr.Validationf("invalid supervisor id %q", sup))
			return
		}
		input.Supervisor = oid
	}
	members, err := objectIDList(formList(form, "teamMembers"))
	if err != nil {
		h.RespondAppError(w, err)
		return
	}
	input.TeamMembers = members

	image, attachments, err := h.stageFiles(r)
	if err != nil {
		h.RespondAppError(w, err)
		return
	}

	project, err := h.projectService.Create(r.Context(), user, input, image, attachments)
	if err != nil {
		h.RespondAppError(w, err)
		return
	}
	h.RespondJSON(w, http.StatusCreated, project)
}

// Update handles PUT /projects/{id}
func (h *ProjectHandler) Update(w http.ResponseWriter, r *http.Request) {
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

	update, image, attachments, err := h.parseUpdate(r)
	if err != nil {
		h.RespondAppError(w, err)
		return
	}

	project, err := h.projectService.Update(r.Context(), user, id, update, image, attachments)
	if err != nil {
		h.RespondAppError(w, err)
		return
	}
	h.RespondJSON(w, http.StatusOK, project)
}

// Delete handles DELETE /projects/{id}
func (h *ProjectHandler) Delete(w http.ResponseWriter, r *http.Request) {
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

	if err := h.projectService.Delete(r.Context(), user, id); err != nil {
		h.RespondAppError(w, err)
		return
	}
	h.RespondJSON(w, http.StatusOK, map[string]string{"message": "project deleted"})
}

// DeleteAttachment handles DELETE /projects/{id}/attachments/{attachmentId}
func (h *ProjectHandler) DeleteAttachment(w http.ResponseWriter, r *http.Request) {
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
	attachmentID, err := objectIDParam(r, "attachmentId")
	if err != nil {
		h.RespondAppError(w, err)
		return
	}

	if err := h.projectService.DeleteAttachment(r.Context(), user, id, attachmentID); err != nil {
		h.RespondAppError(w, err)
		return
	}
	h.RespondJSON(w, http.StatusOK, map[string]string{"message": "attachment deleted"})
}

func (h *ProjectHandler) parseUpdate(r *http.Request) (services.ProjectUpdate, *storage.StagedFile, []*storage.StagedFile, error) {
	var update services.ProjectUpdate

	if isMultipart(r) {
		if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
			return update, nil, nil, apperr.Validationf("invalid request body")
		}
		form := url.Values(r.MultipartForm.Value)

		update.Title = formString(form, "title")
		update.Description = formString(form, "description")
		update.Abstract = formString(form, "abstract")
		update.Department = formString(form, "department")
		update.Status = formString(form, "status")
		update.Tags = formList(form, "tags")

		var err error
		if update.Year, err = formInt(form, "year"); err != nil {
			return update, nil, nil, err
		}
		if update.IsFeatured, err = formBool(form, "isFeatured"); err != nil {
			return update, nil, nil, err
		}
		if sup := formString(form, "supervisor"); sup != nil {
			oid, err := primitive.ObjectIDFromHex(*sup)
			if err != nil {
				return update, nil, nil, apperr.Validationf("invalid supervisor id %q", *sup)
			}
			update.Supervisor = &oid
		}
		if raw := formList(form, "teamMembers"); raw != nil {
			members, err := objectIDList(raw)
			if err != nil {
				return update, nil, nil, err
			}
			update.TeamMembers = members
		}

		image, attachments, err := h.stageFiles(r)
		if err != nil {
			return update, nil, nil, err
		}
		return update, image, attachments, nil
	}

	var body struct {
		Title       *string  `json:"title"`
		Description *string  `json:"description"`
		Abstract    *string  `json:"abstract"`
		Department  *string  `json:"department"`
		Year        *int     `json:"year"`
		Status      *string  `json:"status"`
		Supervisor  *string  `json:"supervisor"`
		IsFeatured  *bool    `json:"isFeatured"`
		TeamMembers []string `json:"teamMembers"`
		Tags        []string `json:"tags"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return update, nil, nil, apperr.Validationf("invalid request body")
	}

	update = services.ProjectUpdate{
		Title:       body.Title,
		Description: body.Description,
		Abstract:    body.Abstract,
		Department:  body.Department,
		Year:        body.Year,
		Status:      body.Status,
		IsFeatured:  body.IsFeatured,
		Tags:        body.Tags,
	}
	if body.Supervisor != nil {
		oid, err := primitive.ObjectIDFromHex(*body.Supervisor)
		if err != nil {
			return update, nil, nil, apperr.Validationf("invalid supervisor id %q", *body.Supervisor)
		}
		update.Supervisor = &oid
	}
	if body.TeamMembers != nil {
		members, err := objectIDList(body.TeamMembers)
		if err != nil {
			return update, nil, nil, err
		}
		update.TeamMembers = members
	}
	return update, nil, nil, nil
}

// stageFiles stages the optional "image" part and the optional multi-file
// "attachments" field. A staging failure on attachments discards the already
// staged image before returning.
func (h *ProjectHandler) stageFiles(r *http.Request) (*storage.StagedFile, []*storage.StagedFile, error) {
	var image *storage.StagedFile
	if fhs := r.MultipartForm.File["image"]; len(fhs) > 0 {
		staged, err := h.stager.StageAll("image", fhs, storage.ImageConstraints(h.maxFileBytes))
		if err != nil {
			return nil, nil, err
		}
		image = staged[0]
	}

	var attachments []*storage.StagedFile
	if fhs := r.MultipartForm.File["attachments"]; len(fhs) > 0 {
		staged, err := h.stager.StageAll("attachments", fhs, storage.AttachmentConstraints(h.maxFileBytes, h.maxFilesPerField))
		if err != nil {
			h.stager.Discard(image)
			return nil, nil, err
		}
		attachments = staged
	}

	return image, attachments, nil
}

// objectIDList parses a list of hex IDs
func objectIDList(raw []string) ([]primitive.ObjectID, error) {
	if raw == nil {
		return nil, nil
	}
	ids := make([]primitive.ObjectID, 0, len(raw))
	for _, s := range raw {
		oid, err := primitive.ObjectIDFromHex(s)
		if err != nil {
			return nil, apperr.Validationf("invalid team member id %q", s)
		}
		ids = append(ids, oid)
	}
	return ids, nil
}
