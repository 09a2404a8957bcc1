// Package router contains routing and server setup for the HTTP delivery.
package router

import (
	"lecturehall/config"
	"lecturehall/internal/delivery/api/middleware"
	"lecturehall/internal/delivery/api/router/handler"
	"lecturehall/internal/domain/access"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

const (
	// UploadPath is the multipart upload route. It carries its own body limit.
	UploadPath = "/api/videos"

	// HealthPath is the liveness probe, left out of access logs.
	HealthPath = "/health"
)

type RouterParams struct {
	fx.In

	AuthHandler    *handler.AuthHandler
	FolderHandler  *handler.FolderHandler
	AssetHandler   *handler.AssetHandler
	AuthMiddleware *middleware.AuthMiddleware
	Config         *config.Config
}

// router holds all the handlers that need to be registered.
type router struct {
	authHandler    *handler.AuthHandler
	folderHandler  *handler.FolderHandler
	assetHandler   *handler.AssetHandler
	authMiddleware *middleware.AuthMiddleware
	config         *config.Config
}

// NewRouter is the constructor for the Router.
// Fx will inject the required handlers here.
func NewRouter(params RouterParams) *router {
	return &router{
		authHandler:    params.AuthHandler,
		folderHandler:  params.FolderHandler,
		assetHandler:   params.AssetHandler,
		authMiddleware: params.AuthMiddleware,
		config:         params.Config,
	}
}

// RegisterRoutes sets up all the API routes for the application.
// uploadLimit guards the multipart upload route in place of the global body limit.
func (r *router) RegisterRoutes(e *echo.Echo, uploadLimit echo.MiddlewareFunc) {
	e.GET(HealthPath, handler.HealthCheck)

	// Every API route resolves the caller; guarded routes are rejected before their body is read.
	api := e.Group("/api", r.authMiddleware.Resolve)

	readContent := r.authMiddleware.Require(access.OpReadContent)
	manageFolders := r.authMiddleware.Require(access.OpManageFolders)
	manageAssets := r.authMiddleware.Require(access.OpManageAssets)

	api.POST("/signup", r.authHandler.Signup)
	api.POST("/login", r.authHandler.Login)
	api.POST("/logout", r.authHandler.Logout)
	api.GET("/me", r.authHandler.Me, r.authMiddleware.Require(access.OpReadIdentity))

	folders := api.Group("/folders")
	{
		folders.GET("", r.folderHandler.ListFolders, readContent)
		folders.POST("", r.folderHandler.CreateFolder, manageFolders)
		folders.GET("/:id", r.folderHandler.GetFolder, readContent)
		folders.GET("/:id/path", r.folderHandler.ListPath, readContent)
		folders.PUT("/:id", r.folderHandler.RenameFolder, manageFolders)
		folders.PUT("/:id/parent", r.folderHandler.MoveFolder, manageFolders)
		folders.DELETE("/:id", r.folderHandler.DeleteFolder, manageFolders)
	}

	videos := api.Group("/videos")
	{
		videos.GET("", r.assetHandler.ListAssets, readContent)
		videos.POST("", r.assetHandler.Upload, manageAssets, uploadLimit)
		videos.GET("/:id", r.assetHandler.GetAsset, readContent)
		videos.GET("/:id/content", r.assetHandler.Content, readContent)
		videos.GET("/:id/url", r.assetHandler.ContentURL, readContent)
		videos.PUT("/:id", r.assetHandler.UpdateAsset, manageAssets)
		videos.DELETE("/:id", r.assetHandler.DeleteAsset, manageAssets)
	}
}
