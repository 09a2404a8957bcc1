// Package blob implements service.BlobStore on gocloud.dev buckets and on Supabase Storage.
package blob

import (
	"context"
	"io"
	"time"

	"lecturehall/internal/domain/service"

	"github.com/pkg/errors"
	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob" // file:// buckets
	_ "gocloud.dev/blob/gcsblob"  // gs:// buckets
	_ "gocloud.dev/blob/memblob"  // mem:// buckets
	_ "gocloud.dev/blob/s3blob"   // s3:// buckets
	"gocloud.dev/gcerrors"
)

// BucketStore stores lecture files in any bucket addressable by a gocloud.dev URL.
type BucketStore struct {
	bucket *blob.Bucket
}

// OpenBucketStore opens the bucket named by url, e.g. "mem://" or "s3://lectures?region=eu-west-1".
func OpenBucketStore(ctx context.Context, url string) (*BucketStore, error) {
	bucket, err := blob.OpenBucket(ctx, url)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open bucket %q", url)
	}

	return NewBucketStore(bucket), nil
}

// NewBucketStore wraps an already opened bucket.
func NewBucketStore(bucket *blob.Bucket) *BucketStore {
	return &BucketStore{bucket: bucket}
}

// Put uploads content under path.
func (s *BucketStore) Put(ctx context.Context, path string, content io.Reader, contentType string) error {
	opts := &blob.WriterOptions{ContentType: contentType}
	if err := s.bucket.Upload(ctx, path, content, opts); err != nil {
		return errors.Wrapf(err, "failed to upload blob %s", path)
	}

	return nil
}

// Open streams the object stored at path.
func (s *BucketStore) Open(ctx context.Context, path string) (*service.BlobObject, error) {
	reader, err := s.bucket.NewReader(ctx, path, nil)
	if err != nil {
		return nil, translateError(err, "failed to open blob "+path)
	}

	return &service.BlobObject{
		ReadCloser:  reader,
		ContentType: reader.ContentType(),
		Size:        reader.Size(),
	}, nil
}

// Delete removes the object stored at path.
func (s *BucketStore) Delete(ctx context.Context, path string) error {
	if err := s.bucket.Delete(ctx, path); err != nil {
		return translateError(err, "failed to delete blob "+path)
	}

	return nil
}

// Exists reports whether path holds an object.
func (s *BucketStore) Exists(ctx context.Context, path string) (bool, error) {
	ok, err := s.bucket.Exists(ctx, path)
	if err != nil {
		return false, errors.Wrapf(err, "failed to stat blob %s", path)
	}

	return ok, nil
}

// SignedURL returns a download URL valid for ttl when the driver supports signing.
func (s *BucketStore) SignedURL(ctx context.Context, path string, ttl time.Duration) (string, error) {
	url, err := s.bucket.SignedURL(ctx, path, &blob.SignedURLOptions{Expiry: ttl})
	if err != nil {
		return "", translateError(err, "failed to sign url for blob "+path)
	}

	return url, nil
}

// Close releases the bucket.
func (s *BucketStore) Close() error {
	return s.bucket.Close()
}

func translateError(err error, message string) error {
	switch gcerrors.Code(err) {
	case gcerrors.NotFound:
		return errors.Wrap(service.ErrBlobNotFound, message)
	case gcerrors.Unimplemented:
		return errors.Wrap(service.ErrSignedURLUnsupported, message)
	default:
		return errors.Wrap(err, message)
	}
}
