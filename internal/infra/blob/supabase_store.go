package blob

import (
	"bytes"
	"context"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"lecturehall/internal/domain/service"

	"github.com/pkg/errors"
	storage "github.com/supabase-community/storage-go"
)

// supabaseClient is the subset of the storage-go client used by SupabaseStore.
type supabaseClient interface {
	UploadFile(bucketID, relativePath string, data io.Reader, fileOptions ...storage.FileOptions) (storage.FileUploadResponse, error)
	DownloadFile(bucketID, filePath string, urlOptions ...storage.UrlOptions) ([]byte, error)
	RemoveFile(bucketID string, paths []string) ([]storage.FileUploadResponse, error)
	CreateSignedUrl(bucketID, filePath string, expiresIn int) (storage.SignedUrlResponse, error)
}

// SupabaseStore stores lecture files in a Supabase Storage bucket.
// The storage-go client has no context support, so ctx is only checked before each call.
type SupabaseStore struct {
	client  supabaseClient
	bucket  string
	baseURL string
}

// NewSupabaseStore connects to the storage API of the project at projectURL.
func NewSupabaseStore(projectURL, key, bucket string) (*SupabaseStore, error) {
	if projectURL == "" || key == "" || bucket == "" {
		return nil, errors.New("supabase url, key and bucket are required")
	}

	baseURL := strings.TrimRight(projectURL, "/") + "/storage/v1"

	return newSupabaseStore(storage.NewClient(baseURL, key, nil), baseURL, bucket), nil
}

func newSupabaseStore(client supabaseClient, baseURL, bucket string) *SupabaseStore {
	return &SupabaseStore{
		client:  client,
		bucket:  bucket,
		baseURL: baseURL,
	}
}

// Put uploads content under path without overwriting.
func (s *SupabaseStore) Put(ctx context.Context, path string, content io.Reader, contentType string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	upsert := false
	options := storage.FileOptions{
		ContentType: &contentType,
		Upsert:      &upsert,
	}

	if _, err := s.client.UploadFile(s.bucket, path, content, options); err != nil {
		return errors.Wrapf(err, "failed to upload blob %s", path)
	}

	return nil
}

// Open downloads the object at path into memory and streams it back.
func (s *SupabaseStore) Open(ctx context.Context, path string) (*service.BlobObject, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := s.client.DownloadFile(s.bucket, path)
	if err != nil {
		return nil, s.translateError(err, "failed to download blob "+path)
	}

	return &service.BlobObject{
		ReadCloser:  io.NopCloser(bytes.NewReader(data)),
		ContentType: http.DetectContentType(data),
		Size:        int64(len(data)),
	}, nil
}

// Delete removes the object at path.
func (s *SupabaseStore) Delete(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	removed, err := s.client.RemoveFile(s.bucket, []string{path})
	if err != nil {
		return s.translateError(err, "failed to delete blob "+path)
	}
	if len(removed) == 0 {
		return errors.Wrap(service.ErrBlobNotFound, path)
	}

	return nil
}

// Exists reports whether path holds an object.
func (s *SupabaseStore) Exists(ctx context.Context, path string) (bool, error) {
	object, err := s.Open(ctx, path)
	if errors.Is(err, service.ErrBlobNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	return true, object.Close()
}

// SignedURL asks Supabase for a download URL valid for ttl.
func (s *SupabaseStore) SignedURL(ctx context.Context, path string, ttl time.Duration) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	seconds := int(math.Ceil(ttl.Seconds()))
	if seconds <= 0 {
		seconds = 1
	}

	resp, err := s.client.CreateSignedUrl(s.bucket, path, seconds)
	if err != nil {
		return "", s.translateError(err, "failed to sign url for blob "+path)
	}

	if strings.HasPrefix(resp.SignedURL, "http://") || strings.HasPrefix(resp.SignedURL, "https://") {
		return resp.SignedURL, nil
	}

	return s.baseURL + "/" + strings.TrimLeft(resp.SignedURL, "/"), nil
}

// Close is a no-op; the storage client holds no resources.
func (s *SupabaseStore) Close() error {
	return nil
}

func (s *SupabaseStore) translateError(err error, message string) error {
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "not found") || strings.Contains(msg, "404") {
		return errors.Wrap(service.ErrBlobNotFound, message)
	}

	return errors.Wrap(err, message)
}
