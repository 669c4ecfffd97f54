package minio

import (
	"bytes"
	"context"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"

	"github.com/turtacn/plotinfo/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/plotinfo/pkg/errors"
)

var (
	ErrObjectNotFound = errors.New(errors.ErrCodeNotFound, "object not found")
	ErrInvalidName    = errors.New(errors.ErrCodeValidation, "invalid document name")
)

// DocumentStore saves downloaded documents as objects under a key prefix.
type DocumentStore struct {
	client *Client
	prefix string
	now    func() time.Time
}

// NewDocumentStore returns a store writing below prefix.
func NewDocumentStore(client *Client, prefix string) *DocumentStore {
	return &DocumentStore{client: client, prefix: strings.Trim(prefix, "/"), now: time.Now}
}

// ObjectKey returns the key a document called name is stored under. Keys are
// partitioned by UTC day. A same-day download of the same name replaces the
// earlier object.
func (s *DocumentStore) ObjectKey(name string) string {
	return path.Join(s.prefix, s.now().UTC().Format("2006/01/02"), name)
}

// Save uploads data and returns its location: a presigned URL when the
// client is configured for it, otherwise s3://bucket/key.
func (s *DocumentStore) Save(ctx context.Context, name, contentType string, data []byte) (string, error) {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	switch name {
	case "", ".", "..", "/":
		return "", ErrInvalidName
	}
	if contentType == "" {
		contentType = http.DetectContentType(data[:min(512, len(data))])
	}
	key := s.ObjectKey(name)
	bucket := s.client.Bucket()

	info, err := s.client.api.PutObject(ctx, bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType:        contentType,
		ContentDisposition: `attachment; filename="` + name + `"`,
	})
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeStorageError, "upload failed").WithDetail(key)
	}
	s.client.logger.Debug("Stored document",
		logging.String("bucket", bucket), logging.String("key", key), logging.Int64("size", info.Size))

	if expiry := s.client.cfg.PresignExpiry; expiry > 0 {
		u, err := s.client.api.PresignedGetObject(ctx, bucket, key, expiry, nil)
		if err != nil {
			return "", errors.Wrap(err, errors.ErrCodeStorageError, "presign failed").WithDetail(key)
		}
		return u.String(), nil
	}
	return "s3://" + bucket + "/" + key, nil
}

// Stat returns the stored object's metadata.
func (s *DocumentStore) Stat(ctx context.Context, key string) (minio.ObjectInfo, error) {
	info, err := s.client.api.StatObject(ctx, s.client.Bucket(), key, minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return minio.ObjectInfo{}, ErrObjectNotFound.WithDetail(key)
		}
		return minio.ObjectInfo{}, errors.Wrap(err, errors.ErrCodeStorageError, "stat failed").WithDetail(key)
	}
	return info, nil
}

// Remove deletes the object at key.
func (s *DocumentStore) Remove(ctx context.Context, key string) error {
	if err := s.client.api.RemoveObject(ctx, s.client.Bucket(), key, minio.RemoveObjectOptions{}); err != nil {
		return errors.Wrap(err, errors.ErrCodeStorageError, "remove failed").WithDetail(key)
	}
	return nil
}
