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

// NewsService defines the interface for news service operations
type NewsService interface {
	Create(ctx context.Context, actor *models.User, input services.NewsInput, image *storage.StagedFile) (*models.News, error)
	Get(ctx context.Context, id primitive.ObjectID) (*services.NewsDetail, error)
	List(ctx context.Context, filter repositories.NewsFilter) ([]models.News, int64, error)
	Update(ctx context.Context, actor *models.User, id primitive.ObjectID, update services.NewsUpdate, image *storage.StagedFile) (*models.News, error)
	Delete(ctx context.Context, actor *models.User, id primitive.ObjectID) error
}

// NewsHandler handles news and notification HTTP requests
type NewsHandler struct {
	BaseHandler
	newsService  NewsService
	stager       *storage.Stager
	maxFileBytes int64
	authMw       func(http.Handler) http.Handler
}

// NewNewsHandler creates a new news handler
func NewNewsHandler(newsService NewsService, stager *storage.Stager, maxFileBytes int64, logger *zap.Logger, authMw func(http.Handler) http.Handler) *NewsHandler {
	return &NewsHandler{
		BaseHandler:  BaseHandler{Logger: logger},
		newsService:  newsService,
		stager:       stager,
		maxFileBytes: maxFileBytes,
		authMw:       authMw,
	}
}

// RegisterRoutes registers all news handler routes
func (h *NewsHandler) RegisterRoutes(r chi.Router) {
	r.Route("/news", func(r chi.Router) {
		r.Get("/", h.List)
		r.Get("/{id}", h.Get)

		r.Group(func(r chi.Router) {
			r.Use(h.authMw)
			r.Use(authmw.RequireRoles(models.NewsEditors...))
			r.Post("/", h.Create)
			r.Put("/{id}", h.Update)
			r.Delete("/{id}", h.Delete)
		})
	})
}

// List handles GET /news
func (h *NewsHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := repositories.NewsFilter{
		Category: r.URL.Query().Get("category"),
		Search:   r.URL.Query().Get("search"),
		Page:     queryInt(r, "page", 1),
		Limit:    queryInt(r, "limit", 10),
	}
	if v := r.URL.Query().Get("isImportant"); v != "" {
		important, err := strconv.ParseBool(v)
		if err == nil {
			filter.IsImportant = &important
		}
	}

	items, total, err := h.newsService.List(r.Context(), filter)
	if err != nil {
		h.RespondAppError(w, err)
		return
	}

	limit := filter.Limit
	if limit < 1 {
		limit = 10
	}
	totalPages := (total + int64(limit) - 1) / int64(limit)

	h.RespondJSON(w, http.StatusOK, map[string]any{
		"news":       items,
		"total":      total,
		"page":       filter.Page,
		"totalPages": totalPages,
	})
}

// Get handles GET /news/{id}
func (h *NewsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := objectIDParam(r, "id")
	if err != nil {
		h.RespondAppError(w, err)
		return
	}

	detail, err := h.newsService.Get(r.Context(), id)
	if err != nil {
		h.RespondAppError(w, err)
		return
	}
	h.RespondJSON(w, http.StatusOK, detail)
}

// Create handles POST /news
func (h *NewsHandler) Create(w http.ResponseWriter, r *http.Request) {
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

	news, err := h.newsService.Create(r.Context(), user, input, image)
	if err != nil {
		h.RespondAppError(w, err)
		return
	}
	h.RespondJSON(w, http.StatusCreated, news)
}

// Update handles PUT /news/{id}
func (h *NewsHandler) Update(w http.ResponseWriter, r *http.Request) {
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

	news, err := h.newsService.Update(r.Context(), user, id, update, image)
	if err != nil {
		h.RespondAppError(w, err)
		return
	}
	h.RespondJSON(w, http.StatusOK, news)
}

// Delete handles DELETE /news/{id}
func (h *NewsHandler) Delete(w http.ResponseWriter, r *http.Request) {
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

	if err := h.newsService.Delete(r.Context(), user, id); err != nil {
		h.RespondAppError(w, err)
		return
	}
	h.RespondJSON(w, http.StatusOK, map[string]string{"message": "news deleted"})
}

// parseCreate accepts either a multipart form with an optional image part or
// a plain JSON body.
func (h *NewsHandler) parseCreate(r *http.Request) (services.NewsInput, *storage.StagedFile, error) {
	var input services.NewsInput

	if isMultipart(r) {
		if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
			return input, nil, apperr.Validationf("invalid request body")
		}
		form := url.Values(r.MultipartForm.Value)

		input.Title = firstValue(form, "title")
		input.Content = firstValue(form, "content")
		input.Excerpt = firstValue(form, "excerpt")
		input.Category = firstValue(form, "category")
		input.Tags = formList(form, "tags")
		if b, err := formBool(form, "isImportant"); err != nil {
			return input, nil, err
		} else if b != nil {
			input.IsImportant = *b
		}
		if input.Category == "" {
			input.Category = models.NewsCategoryNews
		}

		image, err := h.stageImage(r)
		if err != nil {
			return input, nil, err
		}
		return input, image, nil
	}

	var body struct {
		Title       string   `json:"title"`
		Content     string   `json:"content"`
		Excerpt     string   `json:"excerpt"`
		Category    string   `json:"category"`
		IsImportant bool     `json:"isImportant"`
		Tags        []string `json:"tags"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return input, nil, apperr.Validationf("invalid request body")
	}
	if body.Category == "" {
		body.Category = models.NewsCategoryNews
	}

	input = services.NewsInput{
		Title:       body.Title,
		Content:     body.Content,
		Excerpt:     body.Excerpt,
		Category:    body.Category,
		IsImportant: body.IsImportant,
		Tags:        body.Tags,
	}
	return input, nil, nil
}

func (h *NewsHandler) parseUpdate(r *http.Request) (services.NewsUpdate, *storage.StagedFile, error) {
	var update services.NewsUpdate

	if isMultipart(r) {
		if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
			return update, nil, apperr.Validationf("invalid request body")
		}
		form := url.Values(r.MultipartForm.Value)

		update.Title = formString(form, "title")
		update.Content = formString(form, "content")
		update.Excerpt = formString(form, "excerpt")
		update.Category = formString(form, "category")
		update.Tags = formList(form, "tags")

		var err error
		if update.IsImportant, err = formBool(form, "isImportant"); err != nil {
			return update, nil, err
		}
		if update.IsPublished, err = formBool(form, "isPublished"); err != nil {
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
		Content     *string  `json:"content"`
		Excerpt     *string  `json:"excerpt"`
		Category    *string  `json:"category"`
		IsImportant *bool    `json:"isImportant"`
		IsPublished *bool    `json:"isPublished"`
		Tags        []string `json:"tags"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return update, nil, apperr.Validationf("invalid request body")
	}

	update = services.NewsUpdate{
		Title:       body.Title,
		Content:     body.Content,
		Excerpt:     body.Excerpt,
		Category:    body.Category,
		IsImportant: body.IsImportant,
		IsPublished: body.IsPublished,
		Tags:        body.Tags,
	}
	return update, nil, nil
}

// stageImage stages the single optional "image" part of a parsed multipart
// form. Returns (nil, nil) when the part is absent.
func (h *NewsHandler) stageImage(r *http.Request) (*storage.StagedFile, error) {
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
