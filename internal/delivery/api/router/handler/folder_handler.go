package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"lecturehall/internal/delivery/api/middleware"
	"lecturehall/internal/delivery/api/response"
	domainerrors "lecturehall/internal/domain/errors"
	"lecturehall/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"go.uber.org/fx"
)

// FolderHandlerParams holds dependencies for FolderHandler, injected by Fx.
type FolderHandlerParams struct {
	fx.In

	FolderUC usecase.FolderUsecase
	Logger   *slog.Logger
}

// FolderHandler serves the folder tree.
type FolderHandler struct {
	folderUC usecase.FolderUsecase
	logger   *slog.Logger
}

// NewFolderHandler is the constructor for FolderHandler
func NewFolderHandler(params FolderHandlerParams) *FolderHandler {
	return &FolderHandler{
		folderUC: params.FolderUC,
		logger:   params.Logger,
	}
}

// CreateFolderRequest represents the request body for creating a folder
type CreateFolderRequest struct {
	Namespace string  `json:"namespace" validate:"max=64"`
	Name      string  `json:"name" validate:"required"`
	Subtitle  string  `json:"subtitle"`
	Badge     string  `json:"badge"`
	SortOrder int     `json:"sortOrder"`
	ParentID  *string `json:"parentId"`
}

// UpdateFolderRequest represents the request body for renaming a folder
type UpdateFolderRequest struct {
	Name      *string `json:"name"`
	Subtitle  *string `json:"subtitle"`
	Badge     *string `json:"badge"`
	SortOrder *int    `json:"sortOrder"`
}

// MoveFolderRequest names the new parent; null or absent makes the folder a root
type MoveFolderRequest struct {
	ParentID *string `json:"parentId"`
}

// ListFolders returns folders filtered by namespace, parent or roots only.
func (h *FolderHandler) ListFolders(c echo.Context) error {
	parentParam := c.QueryParam("parentId")
	parentID, err := optionalID(&parentParam, "parentId")
	if err != nil {
		return err
	}

	rootsOnly := false
	if raw := c.QueryParam("roots"); raw != "" {
		rootsOnly, err = strconv.ParseBool(raw)
		if err != nil {
			return errors.WithStack(domainerrors.ErrValidationFailed.WithDetails("roots must be a boolean"))
		}
	}

	folders, err := h.folderUC.ListFolders(c.Request().Context(), middleware.GetSession(c), usecase.FolderFilter{
		Namespace: c.QueryParam("namespace"),
		ParentID:  parentID,
		RootsOnly: rootsOnly,
	})
	if err != nil {
		return err
	}

	return response.List(c, toFolderNodes(folders))
}

// GetFolder returns one folder.
func (h *FolderHandler) GetFolder(c echo.Context) error {
	id, err := pathID(c, domainerrors.ErrFolderNotFound)
	if err != nil {
		return err
	}

	folder, err := h.folderUC.GetFolder(c.Request().Context(), middleware.GetSession(c), id)
	if err != nil {
		return err
	}

	return response.Success(c, http.StatusOK, toFolderNode(folder))
}

// ListPath returns the breadcrumb from the root down to the folder.
func (h *FolderHandler) ListPath(c echo.Context) error {
	id, err := pathID(c, domainerrors.ErrFolderNotFound)
	if err != nil {
		return err
	}

	path, err := h.folderUC.ListPath(c.Request().Context(), middleware.GetSession(c), id)
	if err != nil {
		return err
	}

	return response.List(c, toFolderNodes(path))
}

// CreateFolder adds a root or child folder.
func (h *FolderHandler) CreateFolder(c echo.Context) error {
	var req CreateFolderRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	parentID, err := optionalID(req.ParentID, "parentId")
	if err != nil {
		return err
	}

	folder, err := h.folderUC.CreateFolder(c.Request().Context(), middleware.GetSession(c), &usecase.CreateFolderInput{
		ParentID:  parentID,
		Namespace: req.Namespace,
		Name:      req.Name,
		Subtitle:  req.Subtitle,
		Badge:     req.Badge,
		SortOrder: req.SortOrder,
	})
	if err != nil {
		return err
	}

	return response.Success(c, http.StatusCreated, toFolderNode(folder))
}

// RenameFolder updates the name and display fields.
func (h *FolderHandler) RenameFolder(c echo.Context) error {
	id, err := pathID(c, domainerrors.ErrFolderNotFound)
	if err != nil {
		return err
	}

	var req UpdateFolderRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	folder, err := h.folderUC.RenameFolder(c.Request().Context(), middleware.GetSession(c), id, &usecase.UpdateFolderInput{
		Name:      req.Name,
		Subtitle:  req.Subtitle,
		Badge:     req.Badge,
		SortOrder: req.SortOrder,
	})
	if err != nil {
		return err
	}

	return response.Success(c, http.StatusOK, toFolderNode(folder))
}

// MoveFolder changes the parent of a folder.
func (h *FolderHandler) MoveFolder(c echo.Context) error {
	id, err := pathID(c, domainerrors.ErrFolderNotFound)
	if err != nil {
		return err
	}

	var req MoveFolderRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	parentID, err := optionalID(req.ParentID, "parentId")
	if err != nil {
		return err
	}

	folder, err := h.folderUC.MoveFolder(c.Request().Context(), middleware.GetSession(c), id, parentID)
	if err != nil {
		return err
	}

	return response.Success(c, http.StatusOK, toFolderNode(folder))
}

// DeleteFolder removes the folder and its assets and reparents its children.
func (h *FolderHandler) DeleteFolder(c echo.Context) error {
	id, err := pathID(c, domainerrors.ErrFolderNotFound)
	if err != nil {
		return err
	}

	out, err := h.folderUC.DeleteFolder(c.Request().Context(), middleware.GetSession(c), id)
	if err != nil {
		return err
	}

	return response.Success(c, http.StatusOK, map[string]any{
		"deletedAssetCount":  out.DeletedAssetCount,
		"reparentedChildren": out.ReparentedChildren,
	})
}
