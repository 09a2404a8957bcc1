package impl

import (
	"context"
	"io"
	"log/slog"
	"mime"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"lecturehall/config"
	deliverycontext "lecturehall/internal/delivery/context"
	"lecturehall/internal/domain/access"
	"lecturehall/internal/domain/entity"
	domainerrors "lecturehall/internal/domain/errors"
	"lecturehall/internal/domain/repository"
	"lecturehall/internal/domain/service"
	"lecturehall/internal/usecase"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/pkg/errors"
	"go.uber.org/fx"
)

const (
	sniffLength      = 3072
	maxTitleLength   = 255
	fallbackMIMEType = "application/octet-stream"
)

// Extension fallbacks for files whose MIME type could neither be trusted nor sniffed.
var extensionMIMETypes = map[string]string{
	".mp3":  "audio/mpeg",
	".m4a":  "audio/mp4",
	".wav":  "audio/wav",
	".ogg":  "audio/ogg",
	".mp4":  "video/mp4",
	".m4v":  "video/mp4",
	".mov":  "video/quicktime",
	".webm": "video/webm",
}

// uploadPipeline implements the UploadUsecase interface.
// It writes the blob first and the metadata row second, deleting the blob if the row cannot be written.
type uploadPipeline struct {
	txManager         repository.TransactionManager
	folderRepo        repository.FolderRepository
	blobStore         service.BlobStore
	probe             service.MediaProbe
	allowedExtensions []string
	maxSize           int64
	now               func() time.Time
	logger            *slog.Logger
}

// UploadPipelineParams holds dependencies for UploadPipeline, injected by Fx.
type UploadPipelineParams struct {
	fx.In

	TxManager  repository.TransactionManager
	FolderRepo repository.FolderRepository
	BlobStore  service.BlobStore
	Probe      service.MediaProbe
	Config     *config.Config
	Logger     *slog.Logger
}

// NewUploadPipeline is the constructor for uploadPipeline.
func NewUploadPipeline(params UploadPipelineParams) (usecase.UploadUsecase, error) {
	maxSize, err := params.Config.Content.MaxUploadBytes()
	if err != nil {
		return nil, err
	}

	allowed := make([]string, 0, len(params.Config.Content.AllowedExtensions))
	for _, ext := range params.Config.Content.AllowedExtensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		allowed = append(allowed, ext)
	}

	return &uploadPipeline{
		txManager:         params.TxManager,
		folderRepo:        params.FolderRepo,
		blobStore:         params.BlobStore,
		probe:             params.Probe,
		allowedExtensions: allowed,
		maxSize:           maxSize,
		now:               time.Now,
		logger:            params.Logger,
	}, nil
}

func (p *uploadPipeline) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, p.logger)
}

// Upload validates the request, stores the file and records the asset.
func (p *uploadPipeline) Upload(ctx context.Context, actor *entity.Session, input *usecase.UploadInput) (*usecase.AssetView, error) {
	if err := access.Authorize(actor, access.OpManageAssets); err != nil {
		return nil, err
	}

	folder, err := p.validate(ctx, input)
	if err != nil {
		p.log(ctx).Info("Upload rejected", slog.Any("folder_id", input.FolderID), slog.Any("error", err))

		return nil, err
	}

	file := input.File
	ext := strings.ToLower(filepath.Ext(file.Name))
	mimeType, err := p.effectiveMIME(file, ext)
	if err != nil {
		return nil, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate asset id")
	}
	now := p.now().UTC()

	asset := &entity.Asset{
		ID:           id,
		FolderID:     folder.ID,
		Title:        strings.TrimSpace(input.Title),
		Description:  strings.TrimSpace(input.Metadata.Description),
		Tutor:        strings.TrimSpace(input.Metadata.Tutor),
		Tag:          strings.TrimSpace(input.Metadata.Tag),
		Duration:     strings.TrimSpace(input.Metadata.Duration),
		ThumbnailRef: strings.TrimSpace(input.Metadata.ThumbnailRef),
		StoragePath:  storagePath(folder.Namespace, now, id, ext),
		MimeType:     mimeType,
		Kind:         entity.KindFromMIME(mimeType),
		SizeBytes:    file.Size,
		OriginalName: filepath.Base(file.Name),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if asset.Duration == "" {
		asset.Duration = p.measureDuration(ctx, file.Content, mimeType)
	}

	if err := p.storeBlob(ctx, asset, file.Content); err != nil {
		return nil, err
	}

	if err := p.commit(ctx, asset); err != nil {
		p.compensate(ctx, asset)

		return nil, err
	}

	p.log(ctx).Info("Asset uploaded",
		slog.Any("asset_id", asset.ID),
		slog.Any("folder_id", folder.ID),
		slog.String("storage_path", asset.StoragePath),
		slog.String("size", humanize.Bytes(uint64(asset.SizeBytes))),
	)

	return &usecase.AssetView{Asset: asset, Folder: folder}, nil
}

// validate applies the upload rules in order; the first failure wins and nothing is stored.
func (p *uploadPipeline) validate(ctx context.Context, input *usecase.UploadInput) (*entity.Folder, error) {
	folder, err := p.folderRepo.FindByID(ctx, input.FolderID)
	if errors.Is(err, repository.ErrFolderNotFound) {
		return nil, errors.Wrapf(domainerrors.ErrInvalidFolder, "folder %s does not exist", input.FolderID)
	}
	if err != nil {
		return nil, storageFailure(err, "failed to load upload folder")
	}

	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, errors.Wrap(domainerrors.ErrValidationFailed, "title is required")
	}
	if len([]rune(title)) > maxTitleLength {
		return nil, errors.Wrap(domainerrors.ErrValidationFailed, "title is too long")
	}

	file := input.File
	if file == nil || file.Content == nil || file.Size <= 0 {
		return nil, errors.Wrap(domainerrors.ErrValidationFailed, "file is required")
	}

	if !p.acceptedMedia(file) {
		return nil, errors.Wrapf(domainerrors.ErrUnsupportedMedia, "%q (%s) is not an audio or video file", file.Name, file.DeclaredMIME)
	}

	if file.Size > p.maxSize {
		return nil, errors.Wrapf(domainerrors.ErrFileTooLarge, "%s exceeds the %s limit",
			humanize.Bytes(uint64(file.Size)), humanize.Bytes(uint64(p.maxSize)))
	}

	return folder, nil
}

// acceptedMedia passes when either the extension or the declared MIME type says audio or video.
func (p *uploadPipeline) acceptedMedia(file *usecase.UploadFile) bool {
	ext := strings.ToLower(filepath.Ext(file.Name))
	if ext != "" && slices.Contains(p.allowedExtensions, ext) {
		return true
	}

	return isAudioVideo(baseMIME(file.DeclaredMIME))
}

// effectiveMIME prefers a declared audio/video type, then sniffed content, then the extension.
func (p *uploadPipeline) effectiveMIME(file *usecase.UploadFile, ext string) (string, error) {
	if declared := baseMIME(file.DeclaredMIME); isAudioVideo(declared) {
		return declared, nil
	}

	head := make([]byte, sniffLength)
	n, err := io.ReadFull(file.Content, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", errors.Wrap(domainerrors.ErrValidationFailed, "failed to read uploaded file")
	}
	if _, err := file.Content.Seek(0, io.SeekStart); err != nil {
		return "", errors.Wrap(err, "failed to rewind uploaded file")
	}

	if sniffed := p.probe.DetectMIME(head[:n]); isAudioVideo(sniffed) {
		return sniffed, nil
	}
	if byExt := baseMIME(mime.TypeByExtension(ext)); isAudioVideo(byExt) {
		return byExt, nil
	}
	if byExt, ok := extensionMIMETypes[ext]; ok {
		return byExt, nil
	}

	return fallbackMIMEType, nil
}

// measureDuration asks the probe for the playing time. Failures leave the duration empty.
func (p *uploadPipeline) measureDuration(ctx context.Context, content io.ReadSeeker, mimeType string) string {
	defer func() {
		if _, err := content.Seek(0, io.SeekStart); err != nil {
			p.log(ctx).Warn("Failed to rewind upload after probing", slog.Any("error", err))
		}
	}()

	d, err := p.probe.Duration(mimeType, content)
	if err != nil {
		p.log(ctx).Debug("Duration probe failed", slog.String("mime_type", mimeType), slog.Any("error", err))

		return ""
	}

	return entity.FormatDuration(d)
}

// storeBlob writes the file, refusing to store more bytes than the configured ceiling.
func (p *uploadPipeline) storeBlob(ctx context.Context, asset *entity.Asset, content io.Reader) error {
	limited := &countingReader{r: io.LimitReader(content, p.maxSize+1)}

	if err := p.blobStore.Put(ctx, asset.StoragePath, limited, asset.MimeType); err != nil {
		p.log(ctx).Error("Blob write failed", slog.String("storage_path", asset.StoragePath), slog.Any("error", err))

		return errors.Wrapf(domainerrors.ErrStorage, "failed to store upload: %v", err)
	}

	if limited.n > p.maxSize {
		p.compensate(ctx, asset)

		return errors.Wrapf(domainerrors.ErrFileTooLarge, "upload exceeds the %s limit", humanize.Bytes(uint64(p.maxSize)))
	}
	asset.SizeBytes = limited.n

	return nil
}

// commit inserts the row, re-checking the folder inside the transaction.
func (p *uploadPipeline) commit(ctx context.Context, asset *entity.Asset) error {
	return p.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		// The row lock orders this insert against a concurrent DeleteFolder.
		if _, err := repoFactory.FolderRepo().LockByID(ctx, asset.FolderID); err != nil {
			if errors.Is(err, repository.ErrFolderNotFound) {
				return folderRemoved(asset.FolderID)
			}

			return storageFailure(err, "failed to re-check upload folder")
		}

		if err := repoFactory.AssetRepo().Create(ctx, asset); err != nil {
			if errors.Is(err, repository.ErrFolderNotFound) {
				return folderRemoved(asset.FolderID)
			}

			return storageFailure(err, "failed to record asset")
		}

		return nil
	})
}

func folderRemoved(id uuid.UUID) error {
	return errors.Wrapf(domainerrors.ErrInvalidFolder, "folder %s was removed during upload", id)
}

// compensate deletes a blob whose metadata row could not be written.
func (p *uploadPipeline) compensate(ctx context.Context, asset *entity.Asset) {
	if err := p.blobStore.Delete(context.WithoutCancel(ctx), asset.StoragePath); err != nil && !errors.Is(err, service.ErrBlobNotFound) {
		p.log(ctx).Error("Compensating blob delete failed, blob is orphaned",
			slog.String("storage_path", asset.StoragePath),
			slog.Any("error", err),
		)

		return
	}

	p.log(ctx).Warn("Upload rolled back", slog.String("storage_path", asset.StoragePath))
}

// storagePath builds <namespace>/<yyyy>/<mm>/<id><ext>. No part of it comes from the client verbatim.
func storagePath(namespace string, now time.Time, id uuid.UUID, ext string) string {
	prefix := slug.Make(namespace)
	if prefix == "" {
		prefix = "misc"
	}

	suffix := ""
	if cleaned := slug.Make(strings.TrimPrefix(ext, ".")); cleaned != "" {
		suffix = "." + cleaned
	}

	return prefix + "/" + now.Format("2006/01") + "/" + id.String() + suffix
}

func baseMIME(mimeType string) string {
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = mimeType[:i]
	}

	return strings.ToLower(strings.TrimSpace(mimeType))
}

func isAudioVideo(mimeType string) bool {
	return strings.HasPrefix(mimeType, "audio/") || strings.HasPrefix(mimeType, "video/")
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(b []byte) (int, error) {
	n, err := c.r.Read(b)
	c.n += int64(n)

	return n, err
}
