// Package handler maps HTTP requests onto the usecases.
package handler

import (
	"log/slog"
	"net/http"
	"time"

	"lecturehall/config"
	"lecturehall/internal/delivery/api/middleware"
	"lecturehall/internal/delivery/api/response"
	"lecturehall/internal/usecase"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

// AuthHandlerParams holds dependencies for AuthHandler, injected by Fx.
type AuthHandlerParams struct {
	fx.In

	AuthUC         usecase.AuthUsecase
	AuthMiddleware *middleware.AuthMiddleware
	Config         *config.Config
	Logger         *slog.Logger
}

// AuthHandler serves signup, login, logout and me.
type AuthHandler struct {
	authUC       usecase.AuthUsecase
	tokens       *middleware.AuthMiddleware
	cookieName   string
	cookieSecure bool
	logger       *slog.Logger
}

// NewAuthHandler is the constructor for AuthHandler
func NewAuthHandler(params AuthHandlerParams) *AuthHandler {
	return &AuthHandler{
		authUC:       params.AuthUC,
		tokens:       params.AuthMiddleware,
		cookieName:   params.Config.Session.CookieName,
		cookieSecure: params.Config.Session.CookieSecure,
		logger:       params.Logger,
	}
}

// SignupRequest represents the request body for creating an account
type SignupRequest struct {
	UsernameOrEmail string `json:"usernameOrEmail" validate:"required"`
	Credential      string `json:"credential" validate:"required"`
	InviteCode      string `json:"inviteCode"`
}

// LoginRequest represents the request body for logging in
type LoginRequest struct {
	UsernameOrEmail string `json:"usernameOrEmail" validate:"required"`
	Credential      string `json:"credential" validate:"required"`
}

// LogoutRequest optionally names the token to revoke
type LogoutRequest struct {
	Token string `json:"token"`
}

// Signup creates an account. It does not log the caller in.
func (h *AuthHandler) Signup(c echo.Context) error {
	var req SignupRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	account, err := h.authUC.Signup(c.Request().Context(), &usecase.CreateAccountInput{
		Identifier: req.UsernameOrEmail,
		Credential: req.Credential,
		InviteCode: req.InviteCode,
	})
	if err != nil {
		return err
	}

	return response.Success(c, http.StatusCreated, map[string]any{
		"accountId": account.ID,
		"role":      account.Role,
	})
}

// Login verifies the credential, returns the token and sets the session cookie.
func (h *AuthHandler) Login(c echo.Context) error {
	var req LoginRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	out, err := h.authUC.Login(c.Request().Context(), &usecase.LoginInput{
		Identifier: req.UsernameOrEmail,
		Credential: req.Credential,
	})
	if err != nil {
		return err
	}

	cookie := h.newCookie(out.Token)
	if !out.Session.ExpiresAt.IsZero() {
		cookie.Expires = out.Session.ExpiresAt
	}
	c.SetCookie(cookie)

	body := map[string]any{
		"token": out.Token,
		"role":  out.Session.Role,
	}
	if !out.Session.ExpiresAt.IsZero() {
		body["expiresAt"] = out.Session.ExpiresAt
	}

	return response.Success(c, http.StatusOK, body)
}

// Logout revokes the presented token and clears the cookie. It always succeeds.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req LogoutRequest
	_ = c.Bind(&req)

	token := req.Token
	if token == "" {
		token = h.tokens.Token(c)
	}
	if token != "" {
		h.authUC.Logout(c.Request().Context(), token)
	}

	cookie := h.newCookie("")
	cookie.MaxAge = -1
	cookie.Expires = time.Unix(0, 0)
	c.SetCookie(cookie)

	return response.Success(c, http.StatusOK, map[string]bool{"ok": true})
}

// Me returns the caller's identity snapshot.
func (h *AuthHandler) Me(c echo.Context) error {
	me, err := h.authUC.Me(c.Request().Context(), middleware.GetSession(c))
	if err != nil {
		return err
	}

	return response.Success(c, http.StatusOK, map[string]any{
		"accountId":       me.AccountID,
		"usernameOrEmail": me.Identifier,
		"role":            me.Role,
	})
}

func (h *AuthHandler) newCookie(value string) *http.Cookie {
	return &http.Cookie{
		Name:     h.cookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
}
