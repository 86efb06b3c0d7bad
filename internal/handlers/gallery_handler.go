package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

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

// GalleryService defines the interface for gallery service operations
type GalleryService interface {
	Create(ctx context.Context, actor *models.User, input services.GalleryInput, image *storage.StagedFile) (*models.GalleryItem, error)
	Get(ctx context.Context, id primitive.ObjectID) (*models.GalleryItem, error)
	List(ctx context.Context, filter repositories.GalleryFilter) ([]models.GalleryItem, error)
	Categories(ctx context.Context) ([]string, error)
	Update(ctx context.Context, actor *models.User, id primitive.ObjectID, update services.GalleryUpdate, image *storage.StagedFile) (*models.GalleryItem, error)
	Delete(ctx context.Context, actor *models.User, id primitive.ObjectID) error
}

// GalleryHandler handles gallery HTTP requests
type GalleryHandler struct {
	BaseHandler
	galleryService GalleryService
	stager         *storage.Stager
	maxFileBytes   int64
	authMw         func(http.Handler) http.Handler
}

// NewGalleryHandler creates a new gallery handler
func NewGalleryHandler(galleryService GalleryService, stager *storage.Stager, maxFileBytes int64, logger *zap.Logger, authMw func(http.Handler) http.Handler) *GalleryHandler {
	return &GalleryHandler{
		BaseHandler:    BaseHandler{Logger: logger},
		galleryService: galleryService,
		stager:         stager,
		maxFileBytes:   maxFileBytes,
		authMw:         authMw,
	}
}

// RegisterRoutes registers all gallery handler routes
func (h *GalleryHandler) RegisterRoutes(r chi.Router) {
	r.Route("/gallery", func(r chi.Router) {
		r.Get("/", h.List)
		r.Get("/categories", h.Categories)
		r.Get("/years/{year}", h.ByYear)
		r.Get("/{id}", h.Get)

		r.Group(func(r chi.Router) {
			r.Use(h.authMw)
			r.Use(authmw.RequireRoles(models.GalleryEditors...))
			r.Post("/", h.Create)
			r.Put("/{id}", h.Update)
			r.Delete("/{id}", h.Delete)
		})
	})
}

// List handles GET /gallery
func (h *GalleryHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := repositories.GalleryFilter{
		Category: r.URL.Query().Get("category"),
		Year:     queryInt(r, "year", 0),
		Tag:      r.URL.Query().Get("tag"),
	}
	if v := r.URL.Query().Get("featured"); v != "" {
		featured := v == "true"
		filter.Featured = &featured
	}

	items, err := h.galleryService.List(r.Context(), filter)
	if err != nil {
		h.RespondAppError(w, err)
		return
	}
	h.RespondJSON(w, http.StatusOK, items)
}

// Categories handles GET /gallery/categories
func (h *GalleryHandler) Categories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.galleryService.Categories(r.Context())
	if err != nil {
		h.RespondAppError(w, err)
		return
	}
	h.RespondJSON(w, http.StatusOK, categories)
}

// ByYear handles GET /gallery/years/{year}
func (h *GalleryHandler) ByYear(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil {
		h.RespondError(w, http.StatusBadRequest, "invalid year")
		return
	}

	items, err := h.galleryService.List(r.Context(), repositories.GalleryFilter{Year: year})
	if err != nil {
		h.RespondAppError(w, err)
		return
	}
	h.RespondJSON(w, http.StatusOK, items)
}

// Get handles GET /gallery/{id}
func (h *GalleryHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := objectIDParam(r, "id")
	if err != nil {
		h.RespondAppError(w, err)
		return
	}

	item, err := h.galleryService.Get(r.Context(), id)
	if err != nil {
		h.RespondAppError(w, err)
		return
	}
	h.RespondJSON(w, http.StatusOK, item)
}

// Create handles POST /gallery. The image part is mandatory, so only
// multipart bodies are accepted.
func (h *GalleryHandler) Create(w http.ResponseWriter, r *http.Request) {
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

	input := services.GalleryInput{
		Title:       firstValue(form, "title"),
		Description: firstValue(form, "description"),
		Category:    firstValue(form, "category"),
		Tags:        formList(form, "tags"),
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

	image, err := h.stageImage(r)
	if err != nil {
		h.RespondAppError(w, err)
		return
	}

	item, err := h.galleryService.Create(r.Context(), user, input, image)
	if err != nil {
		h.RespondAppError(w, err)
		return
	}
	h.RespondJSON(w, http.StatusCreated, item)
}

// Update handles PUT /gallery/{id}
func (h *GalleryHandler) Update(w http.ResponseWriter, r *http.Request) {
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

	item, err := h.galleryService.Update(r.Context(), user, id, update, image)
	if err != nil {
		h.RespondAppError(w, err)
		return
	}
	h.RespondJSON(w, http.StatusOK, item)
}

// Delete handles DELETE /gallery/{id}
func (h *GalleryHandler) Delete(w http.ResponseWriter, r *http.Request) {
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

	if err := h.galleryService.Delete(r.Context(), user, id); err != nil {
		h.RespondAppError(w, err)
		return
	}
	h.RespondJSON(w, http.StatusOK, map[string]string{"message": "gallery item deleted"})
}

func (h *GalleryHandler) parseUpdate(r *http.Request) (services.GalleryUpdate, *storage.StagedFile, error) {
	var update services.GalleryUpdate

	if isMultipart(r) {
		if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
			return update, nil, apperr.Validationf("invalid request body")
		}
		form := url.Values(r.MultipartForm.Value)

		update.Title = formString(form, "title")
		update.Description = formString(form, "description")
		update.Category = formString(form, "category")
		update.Tags = formList(form, "tags")

		var err error
		if update.Year, err = formInt(form, "year"); err != nil {
			return update, nil, err
		}
		if update.IsFeatured, err = formBool(form, "isFeatured"); err != nil {
			return update, nil, err
		}

		image, err := h.stageImage(r)
		if err != nil {
			return update, nil, err
		}
		return update, image, nil
	}

	var body struct {
		Title       *string  `json:"title"`
		Description *string  `json:"description"`
		Category    *string  `json:"category"`
		Year        *int     `json:"year"`
		IsFeatured  *bool    `json:"isFeatured"`
		Tags        []string `json:"tags"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return update, nil, apperr.Validationf("invalid request body")
	}

	update = services.GalleryUpdate{
		Title:       body.Title,
		Description: body.Description,
		Category:    body.Category,
		Year:        body.Year,
		IsFeatured:  body.IsFeatured,
		Tags:        body.Tags,
	}
	return update, nil, nil
}

func (h *GalleryHandler) stageImage(r *http.Request) (*storage.StagedFile, error) {
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
