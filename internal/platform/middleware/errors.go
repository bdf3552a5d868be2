package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/namaste/namaste/internal/platform/auth"
	"github.com/namaste/namaste/internal/platform/fhir"
	"github.com/namaste/namaste/internal/platform/fhirclient"
)

// statusCoder is implemented by domain errors that know their HTTP status.
type statusCoder interface {
	HTTPStatus() int
}

// StatusFor maps an error to the gateway's HTTP status and message.
func StatusFor(err error) (int, string) {
	var (
		he *echo.HTTPError
		sc statusCoder
		re *fhirclient.RequestError
		pe *fhir.ParseError
	)
	switch {
	case errors.As(err, &he):
		return he.Code, fmt.Sprint(he.Message)
	case errors.Is(err, fhirclient.ErrNoToken),
		errors.Is(err, fhirclient.ErrAuthExpired),
		errors.Is(err, auth.ErrAuthFailed):
		return http.StatusUnauthorized, err.Error()
	case errors.Is(err, fhirclient.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, err.Error()
	case errors.As(err, &sc):
		return sc.HTTPStatus(), err.Error()
	case errors.As(err, &re), errors.As(err, &pe):
		return http.StatusBadGateway, err.Error()
	}
	return http.StatusInternalServerError, "internal server error"
}

var issueCodes = map[int]string{
	http.StatusBadRequest:            "invalid",
	http.StatusUnauthorized:          "login",
	http.StatusForbidden:             "forbidden",
	http.StatusNotFound:              "not-found",
	http.StatusMethodNotAllowed:      "not-supported",
	http.StatusConflict:              "conflict",
	http.StatusRequestEntityTooLarge: "too-costly",
	http.StatusGatewayTimeout:        "timeout",
}

// ErrorHandler renders errors as FHIR OperationOutcome bodies.
func ErrorHandler(logger zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		status, msg := StatusFor(err)
		if status >= http.StatusInternalServerError && status != http.StatusBadGateway && status != http.StatusGatewayTimeout {
			logger.Error().Err(err).Str("request_id", GetRequestID(c)).Msg("unhandled error")
		}

		code, ok := issueCodes[status]
		if !ok {
			code = "exception"
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, fhir.NewOperationOutcome("error", code, msg))
		}
		if err != nil {
			logger.Error().Err(err).Msg("failed to write error response")
		}
	}
}
