package clinical

import (
	"mime"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

// Handler exposes the clinical session of the gateway. The gateway serves
// a single user, so it owns one Session.
type Handler struct {
	svc     *Service
	session *Session
}

func NewHandler(svc *Service, session *Session) *Handler {
	return &Handler{svc: svc, session: session}
}

// RegisterRoutes registers the clinical routes under /clinical. mw guards
// bundle submission, the only route that calls the terminology server.
func (h *Handler) RegisterRoutes(api *echo.Group, mw ...echo.MiddlewareFunc) {
	g := api.Group("/clinical")
	g.PUT("/patient", h.SelectPatient)
	g.DELETE("/patient", h.ClearPatient)
	g.POST("/diagnoses", h.AddDiagnosis)
	g.DELETE("/diagnoses/:index", h.RemoveDiagnosis)
	g.GET("/session", h.GetSession)
	g.GET("/bundle", h.GetBundle)
	g.POST("/bundle/submit", h.SubmitBundle, mw...)
}

func (h *Handler) SelectPatient(c echo.Context) error {
	var p Patient
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := h.session.SelectPatient(p); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, h.session.Snapshot())
}

func (h *Handler) ClearPatient(c echo.Context) error {
	h.session.ClearPatient()
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) AddDiagnosis(c echo.Context) error {
	var in DiagnosisInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	d, err := h.session.AddDiagnosis(in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, d)
}

func (h *Handler) RemoveDiagnosis(c echo.Context) error {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid index")
	}
	if err := h.session.RemoveDiagnosis(index); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) GetSession(c echo.Context) error {
	return c.JSON(http.StatusOK, h.session.Snapshot())
}

// GetBundle handles GET /api/v1/clinical/bundle; ?download=true returns
// the bundle as an attachment.
func (h *Handler) GetBundle(c echo.Context) error {
	b, err := h.svc.Preview(h.session)
	if err != nil {
		return err
	}
	if download, _ := strconv.ParseBool(c.QueryParam("download")); !download {
		return c.JSON(http.StatusOK, b)
	}
	exp, err := h.svc.Export(b)
	if err != nil {
		return err
	}
	c.Response().Header().Set(echo.HeaderContentDisposition,
		mime.FormatMediaType("attachment", map[string]string{"filename": exp.Filename}))
	return c.Blob(http.StatusOK, echo.MIMEApplicationJSON, exp.Data)
}

func (h *Handler) SubmitBundle(c echo.Context) error {
	res, err := h.svc.Submit(c.Request().Context(), h.session)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}
