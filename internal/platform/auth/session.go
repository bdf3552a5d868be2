package auth

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// RequireSession rejects requests with 401 unless the manager holds a live
// token. The refresh threshold is applied first, so a token about to
// expire is cleared and the request rejected.
func RequireSession(m *Manager) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			m.CheckRefresh(c.Request().Context())
			if !m.IsAuthenticated() {
				return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated with the terminology server")
			}
			return next(c)
		}
	}
}

// SessionStatus is the body of GET /auth/session.
type SessionStatus struct {
	Authenticated bool       `json:"authenticated"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
}

// Handler exposes login, logout and session status over HTTP.
type Handler struct {
	m *Manager
}

func NewHandler(m *Manager) *Handler {
	return &Handler{m: m}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("/auth/login", h.Login)
	g.POST("/auth/logout", h.Logout)
	g.GET("/auth/session", h.Session)
}

// Login handles POST /auth/login with a JSON or form body.
func (h *Handler) Login(c echo.Context) error {
	var creds Credentials
	if err := c.Bind(&creds); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if creds.Username == "" || creds.Password == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "username and password are required")
	}
	tok, err := h.m.Login(c.Request().Context(), creds)
	if err != nil {
		if errors.Is(err, ErrAuthFailed) {
			return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
		}
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
	return c.JSON(http.StatusOK, SessionStatus{Authenticated: true, ExpiresAt: &tok.ExpiresAt})
}

// Logout handles POST /auth/logout.
func (h *Handler) Logout(c echo.Context) error {
	if err := h.m.Logout(c.Request().Context()); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Session handles GET /auth/session.
func (h *Handler) Session(c echo.Context) error {
	h.m.CheckRefresh(c.Request().Context())
	status := SessionStatus{Authenticated: h.m.IsAuthenticated()}
	if status.Authenticated {
		if exp, ok := h.m.ExpiresAt(); ok {
			status.ExpiresAt = &exp
		}
	}
	return c.JSON(http.StatusOK, status)
}
