package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"go.uber.org/multierr"

	"github.com/namaste/namaste/internal/platform/auth"
	"github.com/namaste/namaste/internal/platform/fhir"
	"github.com/namaste/namaste/internal/platform/fhirclient"
)

type badInput struct{}

func (badInput) Error() string   { return "patient: patient is required" }
func (badInput) HTTPStatus() int { return http.StatusBadRequest }

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"no token", fhirclient.ErrNoToken, http.StatusUnauthorized},
		{"auth expired", fmt.Errorf("lookup: %w", fhirclient.ErrAuthExpired), http.StatusUnauthorized},
		{"login rejected", auth.ErrAuthFailed, http.StatusUnauthorized},
		{"validation", badInput{}, http.StatusBadRequest},
		{"request error", &fhirclient.RequestError{Operation: "lookup", StatusCode: 404, Message: "not found"}, http.StatusBadGateway},
		{"parse error", &fhir.ParseError{Path: "result", Reason: "bad"}, http.StatusBadGateway},
		{"timeout", fmt.Errorf("translate: %w", fhirclient.ErrTimeout), http.StatusGatewayTimeout},
		{"echo error", echo.NewHTTPError(http.StatusConflict, "superseded"), http.StatusConflict},
		{"joined", multierr.Combine(fhirclient.ErrTimeout, &fhirclient.RequestError{StatusCode: 500}), http.StatusGatewayTimeout},
		{"unknown", fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got, _ := StatusFor(tt.err); got != tt.want {
				t.Errorf("StatusFor(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestErrorHandler_WritesOperationOutcome(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/v1/lookup", nil), rec)

	ErrorHandler(zerolog.Nop())(&fhirclient.RequestError{Operation: "lookup", StatusCode: 404, Message: "Code 'X' not found"}, c)

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
	var oo fhir.OperationOutcome
	if err := json.Unmarshal(rec.Body.Bytes(), &oo); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if oo.ResourceType != "OperationOutcome" || oo.Issue[0].Code != "exception" {
		t.Errorf("unexpected outcome %+v", oo)
	}
	if oo.Issue[0].Diagnostics == "" {
		t.Error("expected diagnostics")
	}
}

func TestErrorHandler_HidesInternalErrors(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

	ErrorHandler(zerolog.Nop())(fmt.Errorf("pq: password authentication failed"), c)

	var oo fhir.OperationOutcome
	json.Unmarshal(rec.Body.Bytes(), &oo)
	if rec.Code != http.StatusInternalServerError || oo.Issue[0].Diagnostics != "internal server error" {
		t.Errorf("expected a generic 500, got %d %+v", rec.Code, oo)
	}
}

func TestErrorHandler_Head(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodHead, "/", nil), rec)

	ErrorHandler(zerolog.Nop())(fhirclient.ErrNoToken, c)
	if rec.Code != http.StatusUnauthorized || rec.Body.Len() != 0 {
		t.Errorf("expected empty 401, got %d %q", rec.Code, rec.Body.String())
	}
}
