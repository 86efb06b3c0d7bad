package middlewares

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusWriterCapturesStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	sw := NewStatusWriter(rec)

	assert.Equal(t, http.StatusOK, sw.Status)

	sw.WriteHeader(http.StatusNotFound)

	assert.Equal(t, http.StatusNotFound, sw.Status)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStatusWriterForwardsFlush(t *testing.T) {
	rec := httptest.NewRecorder()
	sw := NewStatusWriter(rec)

	sw.Flush()

	assert.True(t, rec.Flushed)
}

func TestStatusWriterHijackUnsupported(t *testing.T) {
	_, _, err := NewStatusWriter(httptest.NewRecorder()).Hijack()
	assert.Error(t, err)
}
