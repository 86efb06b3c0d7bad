// Package media implements the remote media store client backed by an
// S3-compatible object store.
package media

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/univdept/backend/internal/apperr"
	"github.com/univdept/backend/internal/config"
	"github.com/univdept/backend/internal/metrics"
	"go.uber.org/zap"
)

// Object is the stable reference returned for an uploaded file
type Object struct {
	ID     string `json:"publicId"`
	URL    string `json:"url"`
	Format string `json:"format,omitempty"`
	Bytes  int64  `json:"bytes"`
}

// BatchFailure records one failed removal inside a batch
type BatchFailure struct {
	PublicID string
	Err      error
}

// BatchResult summarizes a batch removal. Failures are independent: every
// removal is attempted and partial success is the normal outcome for the
// batch, not an error state.
type BatchResult struct {
	Succeeded int
	Failed    int
	Failures  []BatchFailure
}

// Client talks to the remote media store. Credentials are static and
// configured once at startup.
type Client struct {
	mc         *minio.Client
	bucket     string
	publicBase string
	logger     *zap.Logger
}

// NewClient creates a media store client and ensures the bucket exists
func NewClient(ctx context.Context, cfg config.MediaConfig, logger *zap.Logger) (*Client, error) {
	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create media store client: %w", err)
	}

	exists, err := mc.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		if err := mc.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	publicBase := strings.TrimSuffix(cfg.PublicBaseURL, "/")
	if publicBase == "" {
		publicBase = mc.EndpointURL().String()
	}

	return &Client{
		mc:         mc,
		bucket:     cfg.Bucket,
		publicBase: publicBase,
		logger:     logger,
	}, nil
}

// Upload transfers a staged local file into the given folder and returns its
// stable reference. The object key embeds the staged file's unique base name,
// so repeated uploads of identically-named originals coexist instead of
// overwriting each other.
func (c *Client) Upload(ctx context.Context, localPath, folder string) (*Object, error) {
	key := objectKey(folder, filepath.Base(localPath))

	info, err := c.mc.FPutObject(ctx, c.bucket, key, localPath, minio.PutObjectOptions{
		ContentType: contentTypeFor(localPath),
	})
	if err != nil {
		metrics.MediaUploadsTotal.WithLabelValues("error").Inc()
		return nil, &apperr.RemoteError{Op: "upload", PublicID: key, Err: err}
	}

	metrics.MediaUploadsTotal.WithLabelValues("ok").Inc()
	return &Object{
		ID:     key,
		URL:    fmt.Sprintf("%s/%s/%s", c.publicBase, c.bucket, key),
		Format: strings.TrimPrefix(strings.ToLower(filepath.Ext(localPath)), "."),
		Bytes:  info.Size,
	}, nil
}

// Remove deletes one object by its public ID. A missing object is a
// reportable error, not a silent success: callers decide whether that is
// fatal to their operation.
func (c *Client) Remove(ctx context.Context, publicID string) error {
	_, err := c.mc.StatObject(ctx, c.bucket, publicID, minio.StatObjectOptions{})
	if err != nil {
		metrics.MediaRemovalsTotal.WithLabelValues("error").Inc()
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return &apperr.RemoteError{Op: "remove", PublicID: publicID, Err: errors.New("object not found")}
		}
		return &apperr.RemoteError{Op: "remove", PublicID: publicID, Err: err}
	}

	if err := c.mc.RemoveObject(ctx, c.bucket, publicID, minio.RemoveObjectOptions{}); err != nil {
		metrics.MediaRemovalsTotal.WithLabelValues("error").Inc()
		return &apperr.RemoteError{Op: "remove", PublicID: publicID, Err: err}
	}

	metrics.MediaRemovalsTotal.WithLabelValues("ok").Inc()
	return nil
}

// RemoveMany attempts every removal independently and reports per-object
// failures. One failing deletion never aborts the others.
func (c *Client) RemoveMany(ctx context.Context, publicIDs []string) BatchResult {
	var result BatchResult
	for _, id := range publicIDs {
		if err := c.Remove(ctx, id); err != nil {
			result.Failed++
			result.Failures = append(result.Failures, BatchFailure{PublicID: id, Err: err})
			c.logger.Warn("failed to remove remote object",
				zap.String("public_id", id),
				zap.Error(err),
			)
			continue
		}
		result.Succeeded++
	}
	return result
}

// objectKey builds the object key for a staged file inside a folder
func objectKey(folder, baseName string) string {
	folder = strings.Trim(folder, "/")
	if folder == "" {
		return baseName
	}
	return folder + "/" + baseName
}

// contentTypeFor resolves the content type from the preserved file extension
func contentTypeFor(path string) string {
	if ct := mime.TypeByExtension(filepath.Ext(path)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
