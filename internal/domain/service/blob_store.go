package service

import (
	"context"
	"errors"
	"io"
	"time"
)

var (
	// ErrBlobNotFound is returned when no object exists at the given path.
	ErrBlobNotFound = errors.New("blob not found")

	// ErrSignedURLUnsupported is returned by backends that cannot sign URLs.
	ErrSignedURLUnsupported = errors.New("signed urls not supported by blob backend")
)

// BlobObject is an open stream over a stored object. Callers must close it.
type BlobObject struct {
	io.ReadCloser
	ContentType string
	Size        int64
}

// BlobStore is the external binary store addressed by storage paths.
// It does not participate in metadata transactions.
type BlobStore interface {
	// Put writes the object at path, replacing nothing: paths are generated fresh for every upload.
	Put(ctx context.Context, path string, content io.Reader, contentType string) error

	// Open streams the object at path.
	Open(ctx context.Context, path string) (*BlobObject, error)

	// Delete removes the object at path. A missing object is reported as ErrBlobNotFound.
	Delete(ctx context.Context, path string) error

	// Exists reports whether an object is stored at path.
	Exists(ctx context.Context, path string) (bool, error)

	// SignedURL returns a time-limited URL for direct download.
	SignedURL(ctx context.Context, path string, ttl time.Duration) (string, error)
}
