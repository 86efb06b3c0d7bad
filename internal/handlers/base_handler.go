// Package handlers implements the HTTP layer: routing, request parsing and
// the mapping from service errors to HTTP responses.
package handlers

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/univdept/backend/internal/apperr"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// maxMultipartMemory caps the in-memory portion of multipart parsing; larger
// parts spill to temp files.
const maxMultipartMemory = 32 << 20

// BaseHandler provides common handler functionality
type BaseHandler struct {
	Logger *zap.Logger
}

// RespondJSON sends a JSON response
func (h *BaseHandler) RespondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.Logger.Error("failed to encode JSON response", zap.Error(err))
	}
}

// RespondError sends an error JSON response
func (h *BaseHandler) RespondError(w http.ResponseWriter, status int, message string) {
	h.RespondJSON(w, status, map[string]string{"error": message})
}

// RespondAppError maps a service error to its HTTP response. Client-caused
// failures carry their message; unexpected failures are logged and reported
// as a generic 500.
func (h *BaseHandler) RespondAppError(w http.ResponseWriter, err error) {
	var uploadErr *apperr.UploadError
	var remoteErr *apperr.RemoteError

	switch {
	case errors.Is(err, apperr.ErrUnauthenticated):
		h.RespondError(w, http.StatusUnauthorized, apperr.ErrUnauthenticated.Error())
	case errors.Is(err, apperr.ErrForbidden):
		h.RespondError(w, http.StatusForbidden, clientMessage(err, apperr.ErrForbidden))
	case errors.Is(err, apperr.ErrNotFound):
		h.RespondError(w, http.StatusNotFound, clientMessage(err, apperr.ErrNotFound))
	case errors.Is(err, apperr.ErrValidation):
		h.RespondError(w, http.StatusBadRequest, clientMessage(err, apperr.ErrValidation))
	case errors.As(err, &uploadErr):
		h.RespondError(w, http.StatusBadRequest, uploadErr.Reason)
	case errors.As(err, &remoteErr):
		h.Logger.Error("remote media store failure", zap.Error(err))
		h.RespondError(w, http.StatusInternalServerError, "internal server error")
	default:
		h.Logger.Error("unhandled service error", zap.Error(err))
		h.RespondError(w, http.StatusInternalServerError, "internal server error")
	}
}

// clientMessage strips the wrapped sentinel suffix so the client sees only
// the contextual part of the error.
func clientMessage(err error, sentinel error) string {
	msg := strings.TrimSuffix(err.Error(), ": "+sentinel.Error())
	if msg == "" {
		return sentinel.Error()
	}
	return msg
}

// objectIDParam parses a URL parameter as an ObjectID
func objectIDParam(r *http.Request, name string) (primitive.ObjectID, error) {
	raw := chi.URLParam(r, name)
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return primitive.NilObjectID, apperr.Validationf("invalid id %q", raw)
	}
	return id, nil
}

// isMultipart reports whether the request body is multipart/form-data
func isMultipart(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "multipart/form-data"
}

// Form helpers for partial updates: a key that is absent means "leave
// unchanged", so presence has to be distinguished from an empty value.

// firstValue returns the first value for a key, empty when absent
func firstValue(form url.Values, key string) string {
	if vals, ok := form[key]; ok && len(vals) > 0 {
		return vals[0]
	}
	return ""
}

func formString(form url.Values, key string) *string {
	if vals, ok := form[key]; ok && len(vals) > 0 {
		return &vals[0]
	}
	return nil
}

func formBool(form url.Values, key string) (*bool, error) {
	v := formString(form, key)
	if v == nil {
		return nil, nil
	}
	b, err := strconv.ParseBool(*v)
	if err != nil {
		return nil, apperr.Validationf("invalid boolean %q for %q", *v, key)
	}
	return &b, nil
}

func formInt(form url.Values, key string) (*int, error) {
	v := formString(form, key)
	if v == nil {
		return nil, nil
	}
	n, err := strconv.Atoi(*v)
	if err != nil {
		return nil, apperr.Validationf("invalid number %q for %q", *v, key)
	}
	return &n, nil
}

// formList splits a comma-separated form value into trimmed entries.
// Returns nil when the key is absent.
func formList(form url.Values, key string) []string {
	v := formString(form, key)
	if v == nil {
		return nil
	}
	parts := strings.Split(*v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// queryInt parses an optional integer query parameter, falling back to def
func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
