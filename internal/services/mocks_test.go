package services

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/univdept/backend/internal/media"
	"github.com/univdept/backend/internal/storage"
)

// callLog records the order of side effects across mocks, so tests can assert
// sequencing (upload before persist, new upload before old removal, ...).
type callLog struct {
	calls []string
}

func (l *callLog) record(format string, args ...any) {
	l.calls = append(l.calls, fmt.Sprintf(format, args...))
}

// mockMediaStore is a mock implementation of MediaStore
type mockMediaStore struct {
	log          *callLog
	uploadErrAt  int // 1-based index of the upload that fails, 0 = never
	removeErr    error
	removeErrFor map[string]error // per-object failures, checked before removeErr
	uploads      int
	lastBatch    media.BatchResult
}

func (m *mockMediaStore) Upload(ctx context.Context, localPath, folder string) (*media.Object, error) {
	m.uploads++
	m.log.record("upload:%s/%s", folder, filepath.Base(localPath))
	if m.uploadErrAt != 0 && m.uploads == m.uploadErrAt {
		return nil, fmt.Errorf("upload failed")
	}
	id := folder + "/" + filepath.Base(localPath)
	return &media.Object{
		ID:     id,
		URL:    "http://media.local/bucket/" + id,
		Format: "jpg",
		Bytes:  1,
	}, nil
}

func (m *mockMediaStore) Remove(ctx context.Context, publicID string) error {
	m.log.record("remove:%s", publicID)
	if err, ok := m.removeErrFor[publicID]; ok {
		return err
	}
	return m.removeErr
}

func (m *mockMediaStore) RemoveMany(ctx context.Context, publicIDs []string) media.BatchResult {
	var result media.BatchResult
	for _, id := range publicIDs {
		if err := m.Remove(ctx, id); err != nil {
			result.Failed++
			result.Failures = append(result.Failures, media.BatchFailure{PublicID: id, Err: err})
			continue
		}
		result.Succeeded++
	}
	m.lastBatch = result
	return result
}

// mockDiscarder is a mock implementation of Discarder
type mockDiscarder struct {
	callCount int
	discarded []string
}

func (m *mockDiscarder) Discard(files ...*storage.StagedFile) {
	m.callCount++
	for _, f := range files {
		if f != nil {
			m.discarded = append(m.discarded, f.Path)
		}
	}
}

func stagedFile(name string) *storage.StagedFile {
	return &storage.StagedFile{
		Path:         "/tmp/staging/" + name,
		FieldName:    "image",
		OriginalName: name,
		ContentType:  "image/jpeg",
		Size:         1,
	}
}
