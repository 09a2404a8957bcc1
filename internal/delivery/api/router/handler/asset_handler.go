package handler

import (
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"

	"lecturehall/internal/delivery/api/middleware"
	"lecturehall/internal/delivery/api/response"
	deliverycontext "lecturehall/internal/delivery/context"
	"lecturehall/internal/domain/entity"
	domainerrors "lecturehall/internal/domain/errors"
	"lecturehall/internal/usecase"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"go.uber.org/fx"
)

// AssetHandlerParams holds dependencies for AssetHandler, injected by Fx.
type AssetHandlerParams struct {
	fx.In

	AssetUC  usecase.AssetUsecase
	UploadUC usecase.UploadUsecase
	Logger   *slog.Logger
}

// AssetHandler serves the media catalog under /videos.
type AssetHandler struct {
	assetUC  usecase.AssetUsecase
	uploadUC usecase.UploadUsecase
	logger   *slog.Logger
}

// NewAssetHandler is the constructor for AssetHandler
func NewAssetHandler(params AssetHandlerParams) *AssetHandler {
	return &AssetHandler{
		assetUC:  params.AssetUC,
		uploadUC: params.UploadUC,
		logger:   params.Logger,
	}
}

// UpdateAssetRequest represents the request body for editing an asset
type UpdateAssetRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Tutor       *string `json:"tutor"`
	Tag         *string `json:"tag"`
	Duration    *string `json:"duration"`
	Thumbnail   *string `json:"thumbnail"`
	FolderID    *string `json:"folderId"`
}

// ListAssets returns assets newest first.
func (h *AssetHandler) ListAssets(c echo.Context) error {
	folderParam := c.QueryParam("folderId")
	folderID, err := optionalID(&folderParam, "folderId")
	if err != nil {
		return err
	}

	views, err := h.assetUC.ListAssets(c.Request().Context(), middleware.GetSession(c), usecase.AssetFilter{
		FolderID:  folderID,
		Namespace: c.QueryParam("namespace"),
	})
	if err != nil {
		return err
	}

	return response.List(c, toMediaAssets(views))
}

// GetAsset returns one asset.
func (h *AssetHandler) GetAsset(c echo.Context) error {
	id, err := pathID(c, domainerrors.ErrAssetNotFound)
	if err != nil {
		return err
	}

	view, err := h.assetUC.GetAsset(c.Request().Context(), middleware.GetSession(c), id)
	if err != nil {
		return err
	}

	return response.Success(c, http.StatusOK, toMediaAsset(view))
}

// Upload accepts a multipart form with the file and its metadata.
func (h *AssetHandler) Upload(c echo.Context) error {
	ctx := c.Request().Context()

	if _, err := c.MultipartForm(); err != nil {
		if errors.Is(err, echo.ErrStatusRequestEntityTooLarge) {
			return errors.Wrap(domainerrors.ErrFileTooLarge, "request body exceeds the upload limit")
		}

		return errors.WithStack(domainerrors.ErrValidationFailed.WithDetails("expected a multipart form"))
	}

	folderID, err := uuid.Parse(c.FormValue("folderId"))
	if err != nil {
		// An unparsable id names no folder.
		folderID = uuid.Nil
	}

	input := &usecase.UploadInput{
		FolderID: folderID,
		Title:    c.FormValue("title"),
		Metadata: entity.AssetMetadata{
			Description:  c.FormValue("description"),
			Tutor:        c.FormValue("tutor"),
			Tag:          c.FormValue("tag"),
			Duration:     c.FormValue("duration"),
			ThumbnailRef: c.FormValue("thumbnail"),
		},
	}

	fileHeader, err := c.FormFile("file")
	switch {
	case errors.Is(err, http.ErrMissingFile):
		// Missing file is reported by the pipeline after the folder and title checks.
	case err != nil:
		return errors.WithStack(domainerrors.ErrValidationFailed.WithDetails("malformed multipart body"))
	default:
		file, err := fileHeader.Open()
		if err != nil {
			return errors.Wrap(err, "failed to open uploaded file")
		}
		defer closeUpload(h.logger, c, file)

		input.File = &usecase.UploadFile{
			Name:         fileHeader.Filename,
			Size:         fileHeader.Size,
			DeclaredMIME: fileHeader.Header.Get(echo.HeaderContentType),
			Content:      file,
		}
	}

	view, err := h.uploadUC.Upload(ctx, middleware.GetSession(c), input)
	if err != nil {
		return err
	}

	return response.Success(c, http.StatusCreated, toMediaAsset(view))
}

// UpdateAsset edits descriptive metadata or moves the asset to another folder.
func (h *AssetHandler) UpdateAsset(c echo.Context) error {
	id, err := pathID(c, domainerrors.ErrAssetNotFound)
	if err != nil {
		return err
	}

	var req UpdateAssetRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	folderID, err := optionalID(req.FolderID, "folderId")
	if err != nil {
		return err
	}

	view, err := h.assetUC.UpdateAsset(c.Request().Context(), middleware.GetSession(c), id, &usecase.UpdateAssetInput{
		Title:        req.Title,
		Description:  req.Description,
		Tutor:        req.Tutor,
		Tag:          req.Tag,
		Duration:     req.Duration,
		ThumbnailRef: req.Thumbnail,
		FolderID:     folderID,
	})
	if err != nil {
		return err
	}

	return response.Success(c, http.StatusOK, toMediaAsset(view))
}

// DeleteAsset removes an asset and its stored file.
func (h *AssetHandler) DeleteAsset(c echo.Context) error {
	id, err := pathID(c, domainerrors.ErrAssetNotFound)
	if err != nil {
		return err
	}

	if err := h.assetUC.DeleteAsset(c.Request().Context(), middleware.GetSession(c), id); err != nil {
		return err
	}

	return response.Success(c, http.StatusOK, map[string]bool{"ok": true})
}

// Content streams the stored bytes.
func (h *AssetHandler) Content(c echo.Context) error {
	id, err := pathID(c, domainerrors.ErrAssetNotFound)
	if err != nil {
		return err
	}

	content, err := h.assetUC.OpenContent(c.Request().Context(), middleware.GetSession(c), id)
	if err != nil {
		return err
	}
	defer content.Close()

	header := c.Response().Header()
	if content.Size > 0 {
		header.Set(echo.HeaderContentLength, strconv.FormatInt(content.Size, 10))
	}
	if content.Name != "" {
		header.Set(echo.HeaderContentDisposition, mime.FormatMediaType("inline", map[string]string{"filename": content.Name}))
	}

	return c.Stream(http.StatusOK, content.MimeType, content)
}

// ContentURL returns a time-limited direct download link.
func (h *AssetHandler) ContentURL(c echo.Context) error {
	id, err := pathID(c, domainerrors.ErrAssetNotFound)
	if err != nil {
		return err
	}

	signed, err := h.assetUC.ContentURL(c.Request().Context(), middleware.GetSession(c), id)
	if err != nil {
		return err
	}

	return response.Success(c, http.StatusOK, map[string]any{
		"signedUrl": signed.URL,
		"expiresAt": signed.ExpiresAt,
	})
}

func closeUpload(logger *slog.Logger, c echo.Context, file multipart.File) {
	if err := file.Close(); err != nil {
		deliverycontext.GetLoggerOrDefault(c.Request().Context(), logger).
			Warn("Failed to close uploaded file", slog.Any("error", err))
	}
}
