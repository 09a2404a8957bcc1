package handler

import (
	"time"

	"lecturehall/internal/domain/entity"
	domainerrors "lecturehall/internal/domain/errors"
	"lecturehall/internal/usecase"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

// FolderNode is the wire form of a folder.
type FolderNode struct {
	ID        uuid.UUID  `json:"id"`
	Namespace string     `json:"namespace"`
	Name      string     `json:"name"`
	Subtitle  string     `json:"subtitle"`
	Badge     string     `json:"badge"`
	SortOrder int        `json:"sortOrder"`
	ParentID  *uuid.UUID `json:"parentId"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// FolderSummary is the folder reference embedded in a MediaAsset.
type FolderSummary struct {
	ID        uuid.UUID `json:"id"`
	Namespace string    `json:"namespace"`
	Name      string    `json:"name"`
}

// MediaAsset is the wire form of an asset.
type MediaAsset struct {
	ID           uuid.UUID      `json:"id"`
	FolderID     uuid.UUID      `json:"folderId"`
	Folder       *FolderSummary `json:"folder,omitempty"`
	Title        string         `json:"title"`
	Description  string         `json:"description"`
	Tutor        string         `json:"tutor"`
	Tag          string         `json:"tag"`
	Duration     string         `json:"duration"`
	Thumbnail    string         `json:"thumbnail"`
	MimeType     string         `json:"mimeType"`
	Kind         string         `json:"kind"`
	SizeBytes    int64          `json:"sizeBytes"`
	OriginalName string         `json:"originalName"`
	ContentURL   string         `json:"contentUrl"`
	CreatedAt    time.Time      `json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`
}

func toFolderNode(folder *entity.Folder) *FolderNode {
	return &FolderNode{
		ID:        folder.ID,
		Namespace: folder.Namespace,
		Name:      folder.Name,
		Subtitle:  folder.Subtitle,
		Badge:     folder.Badge,
		SortOrder: folder.SortOrder,
		ParentID:  folder.ParentID,
		CreatedAt: folder.CreatedAt,
		UpdatedAt: folder.UpdatedAt,
	}
}

func toFolderNodes(folders []*entity.Folder) []*FolderNode {
	nodes := make([]*FolderNode, 0, len(folders))
	for _, folder := range folders {
		nodes = append(nodes, toFolderNode(folder))
	}

	return nodes
}

func toMediaAsset(view *usecase.AssetView) *MediaAsset {
	asset := &MediaAsset{
		ID:           view.ID,
		FolderID:     view.FolderID,
		Title:        view.Title,
		Description:  view.Description,
		Tutor:        view.Tutor,
		Tag:          view.Tag,
		Duration:     view.Duration,
		Thumbnail:    view.ThumbnailRef,
		MimeType:     view.MimeType,
		Kind:         string(view.Kind),
		SizeBytes:    view.SizeBytes,
		OriginalName: view.OriginalName,
		ContentURL:   "/api/videos/" + view.ID.String() + "/content",
		CreatedAt:    view.CreatedAt,
		UpdatedAt:    view.UpdatedAt,
	}
	if view.Folder != nil {
		asset.Folder = &FolderSummary{
			ID:        view.Folder.ID,
			Namespace: view.Folder.Namespace,
			Name:      view.Folder.Name,
		}
	}

	return asset
}

func toMediaAssets(views []*usecase.AssetView) []*MediaAsset {
	assets := make([]*MediaAsset, 0, len(views))
	for _, view := range views {
		assets = append(assets, toMediaAsset(view))
	}

	return assets
}

// pathID parses the :id route parameter. A malformed id cannot name anything, so it reports notFound.
func pathID(c echo.Context, notFound *domainerrors.BaseError) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, errors.Wrapf(notFound, "malformed id %q", c.Param("id"))
	}

	return id, nil
}

// optionalID parses an optional uuid from a query, form or body value.
func optionalID(raw *string, field string) (*uuid.UUID, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}

	id, err := uuid.Parse(*raw)
	if err != nil {
		return nil, errors.WithStack(domainerrors.ErrValidationFailed.WithDetails(field + " is not a valid id"))
	}

	return &id, nil
}

// bind decodes and validates a request body.
func bind(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return errors.WithStack(domainerrors.ErrValidationFailed.WithDetails("malformed request body"))
	}

	return c.Validate(req)
}
