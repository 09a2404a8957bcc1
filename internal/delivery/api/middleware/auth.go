package middleware

import (
	"log/slog"
	"strings"

	"lecturehall/config"
	deliverycontext "lecturehall/internal/delivery/context"
	"lecturehall/internal/domain/access"
	"lecturehall/internal/domain/entity"
	"lecturehall/internal/usecase"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

const bearerPrefix = "Bearer "

// AuthMiddlewareParams holds dependencies for AuthMiddleware, injected by Fx.
type AuthMiddlewareParams struct {
	fx.In

	Sessions usecase.SessionUsecase
	Config   *config.Config
	Logger   *slog.Logger
}

// AuthMiddleware resolves the bearer token of each request into a session.
// Resolve never rejects; Require gates a route on the resolved session.
type AuthMiddleware struct {
	sessions   usecase.SessionUsecase
	cookieName string
	logger     *slog.Logger
}

// NewAuthMiddleware is the constructor for AuthMiddleware.
func NewAuthMiddleware(params AuthMiddlewareParams) *AuthMiddleware {
	return &AuthMiddleware{
		sessions:   params.Sessions,
		cookieName: params.Config.Session.CookieName,
		logger:     params.Logger,
	}
}

// Resolve attaches the caller's session, if any, to the request.
func (m *AuthMiddleware) Resolve(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token := m.Token(c)
		if token == "" {
			return next(c)
		}

		ctx := c.Request().Context()
		session := m.sessions.Resolve(ctx, token)
		if session == nil {
			deliverycontext.GetLoggerOrDefault(ctx, m.logger).Debug("Ignoring unknown bearer token")

			return next(c)
		}

		deliverycontext.SetSession(c, session)
		reqLogger := deliverycontext.GetLoggerOrDefault(c.Request().Context(), m.logger).
			With(slog.String("account_id", session.AccountID.String()))
		c.SetRequest(c.Request().WithContext(deliverycontext.WithLogger(c.Request().Context(), reqLogger)))

		return next(c)
	}
}

// Require rejects the request before the handler reads its body unless the resolved
// session may perform op. It must run after Resolve.
func (m *AuthMiddleware) Require(op access.Operation) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if err := access.Authorize(deliverycontext.GetSession(c), op); err != nil {
				return err
			}

			return next(c)
		}
	}
}

// Token extracts the bearer token from the Authorization header, falling back to the session cookie.
func (m *AuthMiddleware) Token(c echo.Context) string {
	if header := c.Request().Header.Get(echo.HeaderAuthorization); header != "" {
		if len(header) > len(bearerPrefix) && strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
			return strings.TrimSpace(header[len(bearerPrefix):])
		}

		return ""
	}

	if cookie, err := c.Cookie(m.cookieName); err == nil {
		return cookie.Value
	}

	return ""
}

// GetSession returns the session resolved for this request, or nil.
func GetSession(c echo.Context) *entity.Session {
	return deliverycontext.GetSession(c)
}
