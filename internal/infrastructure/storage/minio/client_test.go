package minio

import (
	"context"
	"errors"
	"io"
	"net/url"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/lifecycle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/plotinfo/internal/config"
	"github.com/turtacn/plotinfo/internal/infrastructure/monitoring/logging"
	apperrors "github.com/turtacn/plotinfo/pkg/errors"
)

type MockMinIOAPI struct {
	mock.Mock
}

func (m *MockMinIOAPI) BucketExists(ctx context.Context, bucketName string) (bool, error) {
	args := m.Called(ctx, bucketName)
	return args.Bool(0), args.Error(1)
}

func (m *MockMinIOAPI) MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error {
	return m.Called(ctx, bucketName, opts).Error(0)
}

func (m *MockMinIOAPI) SetBucketLifecycle(ctx context.Context, bucketName string, cfg *lifecycle.Configuration) error {
	return m.Called(ctx, bucketName, cfg).Error(0)
}

func (m *MockMinIOAPI) PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	data, _ := io.ReadAll(reader)
	args := m.Called(ctx, bucketName, objectName, string(data), objectSize, opts)
	return args.Get(0).(minio.UploadInfo), args.Error(1)
}

func (m *MockMinIOAPI) StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error) {
	args := m.Called(ctx, bucketName, objectName, opts)
	return args.Get(0).(minio.ObjectInfo), args.Error(1)
}

func (m *MockMinIOAPI) RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error {
	return m.Called(ctx, bucketName, objectName, opts).Error(0)
}

func (m *MockMinIOAPI) PresignedGetObject(ctx context.Context, bucketName, objectName string, expiry time.Duration, reqParams url.Values) (*url.URL, error) {
	args := m.Called(ctx, bucketName, objectName, expiry, reqParams)
	u, _ := args.Get(0).(*url.URL)
	return u, args.Error(1)
}

func TestEnsureBucket_CreatesMissing(t *testing.T) {
	api := new(MockMinIOAPI)
	ctx := context.Background()
	api.On("BucketExists", ctx, "plots").Return(false, nil)
	api.On("MakeBucket", ctx, "plots", minio.MakeBucketOptions{Region: "us-east-1"}).Return(nil)

	c := NewClientFromAPI(api, config.MinIOConfig{Bucket: "plots"}, logging.NewNopLogger())
	require.NoError(t, c.EnsureBucket(ctx))
	api.AssertExpectations(t)
	api.AssertNotCalled(t, "SetBucketLifecycle", mock.Anything, mock.Anything, mock.Anything)
}

func TestEnsureBucket_InstallsExpiryRule(t *testing.T) {
	api := new(MockMinIOAPI)
	ctx := context.Background()
	api.On("BucketExists", ctx, "plots").Return(true, nil)
	api.On("SetBucketLifecycle", ctx, "plots", mock.MatchedBy(func(cfg *lifecycle.Configuration) bool {
		return len(cfg.Rules) == 1 && cfg.Rules[0].Expiration.Days == 7
	})).Return(errors.New("not supported"))

	c := NewClientFromAPI(api, config.MinIOConfig{Bucket: "plots", ExpiryDays: 7}, logging.NewNopLogger())
	assert.NoError(t, c.EnsureBucket(ctx), "lifecycle errors are logged only")
	api.AssertExpectations(t)
}

func TestEnsureBucket_ExistsError(t *testing.T) {
	api := new(MockMinIOAPI)
	api.On("BucketExists", mock.Anything, "plots").Return(false, errors.New("connection refused"))

	c := NewClientFromAPI(api, config.MinIOConfig{Bucket: "plots"}, logging.NewNopLogger())
	err := c.EnsureBucket(context.Background())
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeStorageError))
}

func newTestStore(api *MockMinIOAPI, cfg config.MinIOConfig) *DocumentStore {
	cfg.Bucket = "plots"
	s := NewDocumentStore(NewClientFromAPI(api, cfg, logging.NewNopLogger()), "/downloads/")
	s.now = func() time.Time { return time.Date(2024, 3, 5, 23, 0, 0, 0, time.UTC) }
	return s
}

func TestDocumentStore_Save(t *testing.T) {
	api := new(MockMinIOAPI)
	ctx := context.Background()
	api.On("PutObject", ctx, "plots", "downloads/2024/03/05/extract.pdf", "%PDF", int64(4), mock.MatchedBy(func(o minio.PutObjectOptions) bool {
		return o.ContentType == "application/pdf" && o.ContentDisposition == `attachment; filename="extract.pdf"`
	})).Return(minio.UploadInfo{Size: 4}, nil)

	loc, err := newTestStore(api, config.MinIOConfig{}).Save(ctx, "extract.pdf", "application/pdf", []byte("%PDF"))
	require.NoError(t, err)
	assert.Equal(t, "s3://plots/downloads/2024/03/05/extract.pdf", loc)
	api.AssertExpectations(t)
}

func TestDocumentStore_SavePresigned(t *testing.T) {
	api := new(MockMinIOAPI)
	ctx := context.Background()
	key := "downloads/2024/03/05/extract.pdf"
	signed, _ := url.Parse("https://s3.example.ch/plots/" + key + "?X-Amz-Signature=abc")
	api.On("PutObject", ctx, "plots", key, "%PDF", int64(4), mock.Anything).Return(minio.UploadInfo{}, nil)
	api.On("PresignedGetObject", ctx, "plots", key, time.Hour, url.Values(nil)).Return(signed, nil)

	loc, err := newTestStore(api, config.MinIOConfig{PresignExpiry: time.Hour}).Save(ctx, "extract.pdf", "application/pdf", []byte("%PDF"))
	require.NoError(t, err)
	assert.Equal(t, signed.String(), loc)
}

func TestDocumentStore_SaveSanitizesName(t *testing.T) {
	api := new(MockMinIOAPI)
	api.On("PutObject", mock.Anything, "plots", "downloads/2024/03/05/passwd.pdf", "%PDF", int64(4), mock.Anything).
		Return(minio.UploadInfo{}, nil)
	store := newTestStore(api, config.MinIOConfig{})

	_, err := store.Save(context.Background(), `..\..\passwd.pdf`, "", []byte("%PDF"))
	require.NoError(t, err)

	for _, name := range []string{"", ".", "..", "/", `a\..`} {
		_, err = store.Save(context.Background(), name, "", []byte("x"))
		assert.ErrorIs(t, err, ErrInvalidName, name)
	}
	api.AssertNumberOfCalls(t, "PutObject", 1)
}

func TestDocumentStore_SaveError(t *testing.T) {
	api := new(MockMinIOAPI)
	api.On("PutObject", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(minio.UploadInfo{}, errors.New("access denied"))

	_, err := newTestStore(api, config.MinIOConfig{}).Save(context.Background(), "a.pdf", "application/pdf", []byte("x"))
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeStorageError))
}

func TestDocumentStore_StatAndRemove(t *testing.T) {
	api := new(MockMinIOAPI)
	api.On("StatObject", mock.Anything, "plots", "missing", mock.Anything).
		Return(minio.ObjectInfo{}, minio.ErrorResponse{Code: "NoSuchKey"})
	api.On("StatObject", mock.Anything, "plots", "present", mock.Anything).
		Return(minio.ObjectInfo{Key: "present", Size: 10}, nil)
	api.On("RemoveObject", mock.Anything, "plots", "present", mock.Anything).Return(nil)
	store := newTestStore(api, config.MinIOConfig{})
	ctx := context.Background()

	_, err := store.Stat(ctx, "missing")
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeNotFound))

	info, err := store.Stat(ctx, "present")
	require.NoError(t, err)
	assert.Equal(t, int64(10), info.Size)

	assert.NoError(t, store.Remove(ctx, "present"))
}
