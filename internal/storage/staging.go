// Package storage stages uploaded multipart files on local disk before they
// are transferred to the remote media store.
package storage

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/univdept/backend/internal/apperr"
	"go.uber.org/zap"
)

// StagedFile is a transient on-disk copy of an uploaded part awaiting
// transfer to the remote media store. Whoever receives a StagedFile owns its
// removal: Discard must be called exactly once, success or failure.
type StagedFile struct {
	Path         string
	FieldName    string
	OriginalName string
	ContentType  string
	Size         int64
}

// Constraints restrict what a multipart field accepts.
type Constraints struct {
	MaxBytes   int64
	MaxFiles   int
	Extensions []string // lowercase, leading dot
	MIMETypes  []string // exact match, or prefix when the entry ends with "/"
}

var imageExtensions = []string{".jpeg", ".jpg", ".png", ".gif", ".webp"}

var imageMIMETypes = []string{"image/"}

var documentExtensions = []string{
	".pdf", ".doc", ".docx", ".ppt", ".pptx", ".xls", ".xlsx", ".txt",
}

var documentMIMETypes = []string{
	"application/pdf",
	"application/msword",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"application/vnd.ms-powerpoint",
	"application/vnd.openxmlformats-officedocument.presentationml.presentation",
	"application/vnd.ms-excel",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"text/plain",
}

// ImageConstraints accepts image files only (single-image fields).
func ImageConstraints(maxBytes int64) Constraints {
	return Constraints{
		MaxBytes:   maxBytes,
		MaxFiles:   1,
		Extensions: imageExtensions,
		MIMETypes:  imageMIMETypes,
	}
}

// AttachmentConstraints accepts images plus common document formats
// (multi-file fields).
func AttachmentConstraints(maxBytes int64, maxFiles int) Constraints {
	return Constraints{
		MaxBytes:   maxBytes,
		MaxFiles:   maxFiles,
		Extensions: append(append([]string{}, imageExtensions...), documentExtensions...),
		MIMETypes:  append(append([]string{}, imageMIMETypes...), documentMIMETypes...),
	}
}

// allowsMIME checks the declared content type against the allow-list.
func (c Constraints) allowsMIME(contentType string) bool {
	// Strip parameters such as "; charset=utf-8"
	if i := strings.Index(contentType, ";"); i >= 0 {
		contentType = contentType[:i]
	}
	contentType = strings.TrimSpace(strings.ToLower(contentType))

	for _, allowed := range c.MIMETypes {
		if strings.HasSuffix(allowed, "/") {
			if strings.HasPrefix(contentType, allowed) {
				return true
			}
		} else if contentType == allowed {
			return true
		}
	}
	return false
}

// Stager writes accepted multipart parts into a local staging directory.
type Stager struct {
	dir    string
	logger *zap.Logger
}

// NewStager creates a stager rooted at dir, creating the directory if needed
func NewStager(dir string, logger *zap.Logger) (*Stager, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create staging directory: %w", err)
	}
	return &Stager{dir: dir, logger: logger}, nil
}

// StageFile validates one multipart part and writes it to the staging
// directory under a process-unique name that preserves the original
// extension. Both the extension and the declared MIME type must pass the
// allow-lists; a mismatch on either rejects the part.
func (s *Stager) StageFile(fieldName string, fh *multipart.FileHeader, c Constraints) (*StagedFile, error) {
	ext := strings.ToLower(filepath.Ext(fh.Filename))
	if !slices.Contains(c.Extensions, ext) {
		return nil, &apperr.UploadError{
			Reason: fmt.Sprintf("file type %q is not allowed for field %q", ext, fieldName),
		}
	}

	contentType := fh.Header.Get("Content-Type")
	if !c.allowsMIME(contentType) {
		return nil, &apperr.UploadError{
			Reason: fmt.Sprintf("content type %q is not allowed for field %q", contentType, fieldName),
		}
	}

	if fh.Size > c.MaxBytes {
		return nil, &apperr.UploadError{
			Reason: fmt.Sprintf("file %q exceeds the maximum size of %d bytes", fh.Filename, c.MaxBytes),
		}
	}

	src, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open uploaded part: %w", err)
	}
	defer src.Close()

	// Unique name: field + timestamp + random suffix + original extension.
	// The extension is preserved so downstream content type detection by the
	// remote media store stays accurate.
	name := fmt.Sprintf("%s-%d-%s%s", fieldName, time.Now().UnixNano(), uuid.New().String(), ext)
	path := filepath.Join(s.dir, name)

	dst, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create staged file: %w", err)
	}

	written, err := io.Copy(dst, src)
	closeErr := dst.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("failed to write staged file: %w", err)
	}

	return &StagedFile{
		Path:         path,
		FieldName:    fieldName,
		OriginalName: fh.Filename,
		ContentType:  contentType,
		Size:         written,
	}, nil
}

// StageAll stages every part of a multi-file field. The whole field is
// rejected when the count limit is exceeded or any single part fails
// validation; files already staged by this call are discarded before the
// error is returned, so partial acceptance never escapes.
func (s *Stager) StageAll(fieldName string, fhs []*multipart.FileHeader, c Constraints) ([]*StagedFile, error) {
	if len(fhs) > c.MaxFiles {
		return nil, &apperr.UploadError{
			Reason: fmt.Sprintf("field %q accepts at most %d files, got %d", fieldName, c.MaxFiles, len(fhs)),
		}
	}

	staged := make([]*StagedFile, 0, len(fhs))
	for _, fh := range fhs {
		f, err := s.StageFile(fieldName, fh, c)
		if err != nil {
			s.Discard(staged...)
			return nil, err
		}
		staged = append(staged, f)
	}
	return staged, nil
}

// Discard removes staged files from local storage. Removal failures are
// logged, never returned: by this point the request outcome is already
// decided and a leftover staging file is an ops concern only.
func (s *Stager) Discard(files ...*StagedFile) {
	for _, f := range files {
		if f == nil {
			continue
		}
		if err := os.Remove(f.Path); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("failed to remove staged file",
				zap.String("path", f.Path),
				zap.Error(err),
			)
		}
	}
}
