package storage

import (
	"bytes"
	"mime/multipart"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/univdept/backend/internal/apperr"
	"go.uber.org/zap"
)

// buildForm assembles a real multipart form and parses it back so tests work
// against genuine *multipart.FileHeader values.
type formFile struct {
	field       string
	filename    string
	contentType string
	content     string
}

func buildForm(t *testing.T, files ...formFile) *multipart.Form {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="`+f.field+`"; filename="`+f.filename+`"`)
		h.Set("Content-Type", f.contentType)
		part, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write([]byte(f.content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	form, err := multipart.NewReader(&buf, w.Boundary()).ReadForm(32 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { form.RemoveAll() })
	return form
}

func newTestStager(t *testing.T) (*Stager, string) {
	t.Helper()
	dir := t.TempDir()
	s, err := NewStager(dir, zap.NewNop())
	require.NoError(t, err)
	return s, dir
}

func dirEntries(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestStageFileAcceptsImage(t *testing.T) {
	s, dir := newTestStager(t)
	form := buildForm(t, formFile{"image", "photo.PNG", "image/png", "fake png bytes"})

	staged, err := s.StageFile("image", form.File["image"][0], ImageConstraints(1024))
	require.NoError(t, err)

	assert.Equal(t, "photo.PNG", staged.OriginalName)
	assert.Equal(t, dir, filepath.Dir(staged.Path))
	assert.True(t, strings.HasPrefix(filepath.Base(staged.Path), "image-"))
	assert.True(t, strings.HasSuffix(staged.Path, ".png"))
	assert.EqualValues(t, len("fake png bytes"), staged.Size)

	content, err := os.ReadFile(staged.Path)
	require.NoError(t, err)
	assert.Equal(t, "fake png bytes", string(content))
}

func TestStageFileUniqueNames(t *testing.T) {
	s, _ := newTestStager(t)
	form := buildForm(t,
		formFile{"image", "photo.png", "image/png", "one"},
		formFile{"image", "photo.png", "image/png", "two"},
	)

	a, err := s.StageFile("image", form.File["image"][0], ImageConstraints(1024))
	require.NoError(t, err)
	b, err := s.StageFile("image", form.File["image"][1], ImageConstraints(1024))
	require.NoError(t, err)

	// Identically-named originals never collide in the staging directory
	assert.NotEqual(t, a.Path, b.Path)
}

func TestStageFileRejections(t *testing.T) {
	s, dir := newTestStager(t)

	tests := []struct {
		name string
		file formFile
		c    Constraints
	}{
		{"bad extension", formFile{"image", "run.exe", "image/png", "x"}, ImageConstraints(1024)},
		{"mismatched mime", formFile{"image", "photo.jpg", "text/plain", "x"}, ImageConstraints(1024)},
		{"oversize", formFile{"image", "photo.jpg", "image/jpeg", strings.Repeat("x", 20)}, ImageConstraints(10)},
		{"document on image field", formFile{"image", "notes.pdf", "application/pdf", "x"}, ImageConstraints(1024)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := buildForm(t, tt.file)

			_, err := s.StageFile("image", form.File["image"][0], tt.c)

			var uploadErr *apperr.UploadError
			require.ErrorAs(t, err, &uploadErr)
			assert.Empty(t, dirEntries(t, dir))
		})
	}
}

func TestAttachmentConstraintsAcceptDocuments(t *testing.T) {
	s, _ := newTestStager(t)
	form := buildForm(t, formFile{"attachments", "paper.pdf", "application/pdf", "pdf bytes"})

	staged, err := s.StageFile("attachments", form.File["attachments"][0], AttachmentConstraints(1024, 10))
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(staged.Path, ".pdf"))
}

func TestStageAllEnforcesCountLimit(t *testing.T) {
	s, dir := newTestStager(t)
	form := buildForm(t,
		formFile{"attachments", "a.pdf", "application/pdf", "a"},
		formFile{"attachments", "b.pdf", "application/pdf", "b"},
		formFile{"attachments", "c.pdf", "application/pdf", "c"},
	)

	_, err := s.StageAll("attachments", form.File["attachments"], AttachmentConstraints(1024, 2))

	var uploadErr *apperr.UploadError
	require.ErrorAs(t, err, &uploadErr)
	assert.Empty(t, dirEntries(t, dir))
}

func TestStageAllCleansUpOnPartialFailure(t *testing.T) {
	s, dir := newTestStager(t)
	form := buildForm(t,
		formFile{"attachments", "a.pdf", "application/pdf", "a"},
		formFile{"attachments", "b.exe", "application/pdf", "b"},
	)

	_, err := s.StageAll("attachments", form.File["attachments"], AttachmentConstraints(1024, 10))

	var uploadErr *apperr.UploadError
	require.ErrorAs(t, err, &uploadErr)
	// The first file was staged before the second was rejected; it must be gone
	assert.Empty(t, dirEntries(t, dir))
}

func TestDiscardRemovesFilesAndToleratesRepeats(t *testing.T) {
	s, dir := newTestStager(t)
	form := buildForm(t, formFile{"image", "photo.png", "image/png", "x"})

	staged, err := s.StageFile("image", form.File["image"][0], ImageConstraints(1024))
	require.NoError(t, err)

	s.Discard(staged)
	assert.Empty(t, dirEntries(t, dir))

	// Second discard of the same file and nil entries are no-ops
	s.Discard(staged, nil)
}
