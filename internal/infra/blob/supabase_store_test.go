package blob

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"lecturehall/internal/domain/service"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	storage "github.com/supabase-community/storage-go"
)

type fakeSupabase struct {
	objects   map[string][]byte
	expiresIn int
}

func (f *fakeSupabase) UploadFile(_, path string, data io.Reader, _ ...storage.FileOptions) (storage.FileUploadResponse, error) {
	body, err := io.ReadAll(data)
	if err != nil {
		return storage.FileUploadResponse{}, err
	}
	f.objects[path] = body

	return storage.FileUploadResponse{}, nil
}

func (f *fakeSupabase) DownloadFile(_, path string, _ ...storage.UrlOptions) ([]byte, error) {
	body, ok := f.objects[path]
	if !ok {
		return nil, errors.New("Object not found")
	}

	return body, nil
}

func (f *fakeSupabase) RemoveFile(_ string, paths []string) ([]storage.FileUploadResponse, error) {
	var removed []storage.FileUploadResponse
	for _, path := range paths {
		if _, ok := f.objects[path]; ok {
			delete(f.objects, path)
			removed = append(removed, storage.FileUploadResponse{})
		}
	}

	return removed, nil
}

func (f *fakeSupabase) CreateSignedUrl(_, path string, expiresIn int) (storage.SignedUrlResponse, error) {
	f.expiresIn = expiresIn

	return storage.SignedUrlResponse{SignedURL: "/object/sign/lectures/" + path + "?token=t"}, nil
}

func TestSupabaseStore_Lifecycle(t *testing.T) {
	ctx := context.Background()
	fake := &fakeSupabase{objects: map[string][]byte{}}
	store := newSupabaseStore(fake, "https://example.supabase.co/storage/v1", "lectures")

	require.NoError(t, store.Put(ctx, "SAT/a.mp3", strings.NewReader("audio"), "audio/mpeg"))

	ok, err := store.Exists(ctx, "SAT/a.mp3")
	require.NoError(t, err)
	assert.True(t, ok)

	object, err := store.Open(ctx, "SAT/a.mp3")
	require.NoError(t, err)
	body, err := io.ReadAll(object)
	require.NoError(t, err)
	assert.Equal(t, "audio", string(body))
	assert.EqualValues(t, 5, object.Size)

	url, err := store.SignedURL(ctx, "SAT/a.mp3", 90*time.Second)
	require.NoError(t, err)
	assert.Equal(t, "https://example.supabase.co/storage/v1/object/sign/lectures/SAT/a.mp3?token=t", url)
	assert.Equal(t, 90, fake.expiresIn)

	require.NoError(t, store.Delete(ctx, "SAT/a.mp3"))
	assert.ErrorIs(t, store.Delete(ctx, "SAT/a.mp3"), service.ErrBlobNotFound)

	ok, err = store.Exists(ctx, "SAT/a.mp3")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSupabaseStore_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	store := newSupabaseStore(&fakeSupabase{objects: map[string][]byte{}}, "https://x/storage/v1", "b")
	assert.ErrorIs(t, store.Put(ctx, "p", strings.NewReader("x"), "audio/mpeg"), context.Canceled)
}
