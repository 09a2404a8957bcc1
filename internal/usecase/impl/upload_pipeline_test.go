package impl

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"lecturehall/internal/domain/entity"
	domainerrors "lecturehall/internal/domain/errors"
	"lecturehall/internal/domain/repository"
	"lecturehall/internal/usecase"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func fileUpload(folderID uuid.UUID, title, name, declared string, content []byte) *usecase.UploadInput {
	return &usecase.UploadInput{
		FolderID: folderID,
		Title:    title,
		File: &usecase.UploadFile{
			Name:         name,
			Size:         int64(len(content)),
			DeclaredMIME: declared,
			Content:      bytes.NewReader(content),
		},
	}
}

// testMP3 returns n silent 128 kbit/s 44.1 kHz MPEG-1 layer III frames.
func testMP3(n int) []byte {
	out := make([]byte, 0, n*417)
	for range n {
		frame := make([]byte, 417)
		copy(frame, []byte{0xFF, 0xFB, 0x90, 0x00})
		out = append(out, frame...)
	}

	return out
}

func TestUploadPipeline_StoresAndRecordsAsset(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sat := f.mkdir(t, "SAT", "Math", nil)
	algebra := f.mkdir(t, "SAT", "Algebra", &sat.ID)

	view, err := f.uploads.Upload(ctx, f.admin, &usecase.UploadInput{
		FolderID: algebra.ID,
		Title:    "  Intro  ",
		Metadata: entity.AssetMetadata{Tutor: "Ms. Kim", Duration: "12:00", Tag: "algebra"},
		File: &usecase.UploadFile{
			Name:         "Intro Lecture.MP3",
			Size:         2048,
			DeclaredMIME: "audio/mpeg",
			Content:      bytes.NewReader(bytes.Repeat([]byte{0x01}, 2048)),
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "Intro", view.Title)
	assert.Equal(t, "Ms. Kim", view.Tutor)
	assert.Equal(t, "12:00", view.Duration)
	assert.Equal(t, "audio/mpeg", view.MimeType)
	assert.Equal(t, entity.MediaKindAudio, view.Kind)
	assert.EqualValues(t, 2048, view.SizeBytes)
	assert.Equal(t, "Intro Lecture.MP3", view.OriginalName)
	assert.Equal(t, algebra.ID, view.Folder.ID)
	assert.True(t, strings.HasPrefix(view.StoragePath, "sat/"), view.StoragePath)
	assert.True(t, strings.HasSuffix(view.StoragePath, view.ID.String()+".mp3"), view.StoragePath)
	assert.NotContains(t, view.StoragePath, "Intro")

	listed, err := f.assets.ListAssets(ctx, f.user, usecase.AssetFilter{FolderID: &algebra.ID})
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, view.ID, listed[0].ID)
	assert.Equal(t, "Algebra", listed[0].Folder.Name)

	content, err := f.assets.OpenContent(ctx, f.user, view.ID)
	require.NoError(t, err)
	defer content.Close()

	stored, err := io.ReadAll(content)
	require.NoError(t, err)
	assert.Len(t, stored, 2048)
}

func TestUploadPipeline_ValidationOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	folder := f.mkdir(t, "SAT", "Math", nil)

	_, err := f.uploads.Upload(ctx, f.admin, fileUpload(uuid.New(), "", "a.mp3", "audio/mpeg", []byte("x")))
	assert.ErrorIs(t, err, domainerrors.ErrInvalidFolder, "folder is checked before title")

	_, err = f.uploads.Upload(ctx, f.admin, fileUpload(folder.ID, "   ", "a.mp3", "audio/mpeg", []byte("x")))
	assert.ErrorIs(t, err, domainerrors.ErrValidationFailed)

	_, err = f.uploads.Upload(ctx, f.admin, &usecase.UploadInput{FolderID: folder.ID, Title: "No file"})
	assert.ErrorIs(t, err, domainerrors.ErrValidationFailed)

	_, err = f.uploads.Upload(ctx, f.admin, fileUpload(folder.ID, "Notes", "notes.pdf", "application/pdf", []byte("%PDF-1.4")))
	assert.ErrorIs(t, err, domainerrors.ErrUnsupportedMedia)

	tooLarge := fileUpload(folder.ID, "Big", "big.pdf", "application/pdf", []byte("x"))
	tooLarge.File.Size = 2 << 20
	_, err = f.uploads.Upload(ctx, f.admin, tooLarge)
	assert.ErrorIs(t, err, domainerrors.ErrUnsupportedMedia, "media type is checked before size")

	assert.Zero(t, f.blobs.Puts())

	assets, err := f.assets.ListAssets(ctx, f.user, usecase.AssetFilter{})
	require.NoError(t, err)
	assert.Empty(t, assets)
}

func TestUploadPipeline_AccessControl(t *testing.T) {
	f := newFixture(t)
	folder := f.mkdir(t, "SAT", "Math", nil)

	_, err := f.uploads.Upload(context.Background(), f.user, audioUpload(folder.ID, "Intro"))
	assert.ErrorIs(t, err, domainerrors.ErrForbidden)

	_, err = f.uploads.Upload(context.Background(), nil, audioUpload(folder.ID, "Intro"))
	assert.ErrorIs(t, err, domainerrors.ErrUnauthenticated)

	assert.Zero(t, f.blobs.Puts())
}

func TestUploadPipeline_AcceptsByExtensionOrMIME(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	folder := f.mkdir(t, "IELTS", "Listening", nil)

	byExt, err := f.uploads.Upload(ctx, f.admin,
		fileUpload(folder.ID, "By extension", "part1.mp3", "application/octet-stream", []byte("ID3\x03\x00\x00\x00\x00\x00\x00tail")))
	require.NoError(t, err)
	assert.Equal(t, "audio/mpeg", byExt.MimeType)
	assert.True(t, strings.HasSuffix(byExt.StoragePath, ".mp3"))

	byMIME, err := f.uploads.Upload(ctx, f.admin,
		fileUpload(folder.ID, "By MIME", "part2.bin", "audio/ogg; codecs=vorbis", []byte("opaque bytes")))
	require.NoError(t, err)
	assert.Equal(t, "audio/ogg", byMIME.MimeType)
	assert.Equal(t, entity.MediaKindAudio, byMIME.Kind)

	video, err := f.uploads.Upload(ctx, f.admin,
		fileUpload(folder.ID, "Walkthrough", "walkthrough.mp4", "video/mp4", []byte("not really a movie")))
	require.NoError(t, err)
	assert.Equal(t, entity.MediaKindVideo, video.Kind)

	assert.Equal(t, 3, f.blobs.Live())
}

func TestUploadPipeline_FileTooLarge(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	folder := f.mkdir(t, "SAT", "Math", nil)

	declared := fileUpload(folder.ID, "Huge", "huge.mp3", "audio/mpeg", []byte("x"))
	declared.File.Size = 1<<20 + 1
	_, err := f.uploads.Upload(ctx, f.admin, declared)
	assert.ErrorIs(t, err, domainerrors.ErrFileTooLarge)
	assert.Zero(t, f.blobs.Puts())

	// The declared size lies; the stream is cut off at the limit and the blob removed.
	lying := fileUpload(folder.ID, "Huge", "huge.mp3", "audio/mpeg", bytes.Repeat([]byte{0x02}, 1<<20+10))
	lying.File.Size = 100
	_, err = f.uploads.Upload(ctx, f.admin, lying)
	assert.ErrorIs(t, err, domainerrors.ErrFileTooLarge)
	assert.Equal(t, 1, f.blobs.Puts())
	assert.Zero(t, f.blobs.Live())

	assets, err := f.assets.ListAssets(ctx, f.user, usecase.AssetFilter{})
	require.NoError(t, err)
	assert.Empty(t, assets)
}

func TestUploadPipeline_MetadataFailureRemovesBlob(t *testing.T) {
	f := newFixture(t, withTxManager(func(tm repository.TransactionManager) repository.TransactionManager {
		return failingAssetInsert{tm}
	}))
	ctx := context.Background()
	folder := f.mkdir(t, "SAT", "Math", nil)

	_, err := f.uploads.Upload(ctx, f.admin, audioUpload(folder.ID, "Intro"))
	assert.ErrorIs(t, err, domainerrors.ErrStorage)

	assert.Equal(t, 1, f.blobs.Puts())
	assert.Zero(t, f.blobs.Live(), "no orphaned blob")

	assets, err := f.assets.ListAssets(ctx, f.user, usecase.AssetFilter{})
	require.NoError(t, err)
	assert.Empty(t, assets, "no dangling row")
}

func TestUploadPipeline_FolderDeletedBeforeInsert(t *testing.T) {
	f := newFixture(t, withTxManager(func(tm repository.TransactionManager) repository.TransactionManager {
		return vanishingFolder{tm}
	}))
	ctx := context.Background()
	folder := f.mkdir(t, "SAT", "Math", nil)

	_, err := f.uploads.Upload(ctx, f.admin, audioUpload(folder.ID, "Intro"))
	assert.ErrorIs(t, err, domainerrors.ErrInvalidFolder)

	assert.Equal(t, 1, f.blobs.Puts())
	assert.Zero(t, f.blobs.Live(), "no orphaned blob")

	assets, err := f.assetRepo.List(ctx, repository.AssetFilter{})
	require.NoError(t, err)
	assert.Empty(t, assets, "no asset without a folder")
}

func TestUploadPipeline_BlobFailureWritesNoRow(t *testing.T) {
	store := &mockBlobStore{}
	store.On("Put", mock.Anything, mock.Anything, mock.Anything, "audio/mpeg").
		Return(errors.New("bucket unavailable")).Once()

	f := newFixture(t, withBlobStore(store))
	ctx := context.Background()
	folder := f.mkdir(t, "SAT", "Math", nil)

	_, err := f.uploads.Upload(ctx, f.admin, audioUpload(folder.ID, "Intro"))
	assert.ErrorIs(t, err, domainerrors.ErrStorage)

	assets, err := f.assets.ListAssets(ctx, f.user, usecase.AssetFilter{})
	require.NoError(t, err)
	assert.Empty(t, assets)
	store.AssertExpectations(t)
}

func TestUploadPipeline_MeasuresMP3Duration(t *testing.T) {
	f := newFixture(t)
	folder := f.mkdir(t, "SAT", "Math", nil)

	// 100 frames of 1152 samples at 44.1 kHz play for about 2.6 seconds.
	view, err := f.uploads.Upload(context.Background(), f.admin,
		fileUpload(folder.ID, "Tone", "tone.mp3", "audio/mpeg", testMP3(100)))
	require.NoError(t, err)
	assert.Regexp(t, `^0:0[23]$`, view.Duration)

	explicit := fileUpload(folder.ID, "Tone again", "tone.mp3", "audio/mpeg", testMP3(100))
	explicit.Metadata.Duration = "45:00"
	view, err = f.uploads.Upload(context.Background(), f.admin, explicit)
	require.NoError(t, err)
	assert.Equal(t, "45:00", view.Duration, "client duration wins")
}
