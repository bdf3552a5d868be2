package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
)

func TestRequireSession(t *testing.T) {
	clk := newFakeClock()
	m := newTestManager(tokenServer(t, 3600), NewMemoryStore(), clk)
	e := echo.New()
	handler := RequireSession(m)(func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/search", nil)
	rec := httptest.NewRecorder()
	err := handler(e.NewContext(req, rec))
	var httpErr *echo.HTTPError
	if !errors.As(err, &httpErr) || httpErr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without a session, got %v", err)
	}

	m.Login(context.Background(), Credentials{Username: "demo", Password: "demo"})
	rec = httptest.NewRecorder()
	if err := handler(e.NewContext(req, rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}

	clk.Advance(57 * time.Minute)
	rec = httptest.NewRecorder()
	err = handler(e.NewContext(req, rec))
	if !errors.As(err, &httpErr) || httpErr.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 once inside the refresh threshold, got %v", err)
	}
}

func TestHandler_LoginSessionLogout(t *testing.T) {
	m := newTestManager(tokenServer(t, 3600), NewMemoryStore(), newFakeClock())
	h := NewHandler(m)
	e := echo.New()

	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"username":"demo","password":"demo"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	if err := h.Login(e.NewContext(req, rec)); err != nil {
		t.Fatalf("login: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/auth/session", nil)
	rec = httptest.NewRecorder()
	if err := h.Session(e.NewContext(req, rec)); err != nil {
		t.Fatalf("session: %v", err)
	}
	var status SessionStatus
	json.Unmarshal(rec.Body.Bytes(), &status)
	if !status.Authenticated || status.ExpiresAt == nil {
		t.Errorf("expected authenticated session with expiry, got %+v", status)
	}

	req = httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	rec = httptest.NewRecorder()
	if err := h.Logout(e.NewContext(req, rec)); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}
	if m.IsAuthenticated() {
		t.Error("expected unauthenticated after logout")
	}
}

func TestHandler_LoginErrors(t *testing.T) {
	m := newTestManager(tokenServer(t, 3600), NewMemoryStore(), newFakeClock())
	h := NewHandler(m)
	e := echo.New()

	tests := []struct {
		body string
		code int
	}{
		{`{"username":"demo"}`, http.StatusBadRequest},
		{`{"username":"demo","password":"bad"}`, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(tt.body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec := httptest.NewRecorder()
		err := h.Login(e.NewContext(req, rec))
		var httpErr *echo.HTTPError
		if !errors.As(err, &httpErr) || httpErr.Code != tt.code {
			t.Errorf("body %s: expected %d, got %v", tt.body, tt.code, err)
		}
	}
}
