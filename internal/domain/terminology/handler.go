package terminology

import (
	"errors"
	"mime"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/namaste/namaste/pkg/pagination"
)

// Handler exposes the terminology workflows over REST. Client errors are
// returned unchanged so the gateway error handler can map them.
type Handler struct {
	svc      *Service
	searcher *Searcher
}

func NewHandler(svc *Service, searcher *Searcher) *Handler {
	return &Handler{svc: svc, searcher: searcher}
}

// RegisterRoutes registers terminology routes on the API group. mw guards
// the routes that call the terminology server.
func (h *Handler) RegisterRoutes(api *echo.Group, mw ...echo.MiddlewareFunc) {
	g := api.Group("", mw...)
	g.GET("/search", h.Search)
	g.POST("/translate", h.Translate)
	g.GET("/lookup", h.Lookup)

	api.GET("/history", h.ListHistory)
	api.DELETE("/history", h.ClearHistory)
	api.GET("/systems/classify", h.Classify)
}

type SearchResponse struct {
	Query   string    `json:"query"`
	Results []Concept `json:"results"`
}

// Search handles GET /api/v1/search?q=...&system=...&has_definition=...
// format=csv returns the results as a CSV attachment.
func (h *Handler) Search(c echo.Context) error {
	q := c.QueryParam("q")
	format := c.QueryParam("format")
	if format != "" && format != "json" && format != "csv" {
		return echo.NewHTTPError(http.StatusBadRequest, "format must be json or csv")
	}

	hasDefinition := false
	if v := c.QueryParam("has_definition"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "has_definition must be a boolean")
		}
		hasDefinition = b
	}
	filter, err := h.svc.SearchFilter(c.QueryParams()["system"], hasDefinition)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	results, err := h.searcher.Search(c.Request().Context(), q)
	if errors.Is(err, ErrSuperseded) {
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	}
	if err != nil {
		return err
	}
	results = h.svc.Filter(results, filter)

	if format == "csv" {
		c.Response().Header().Set(echo.HeaderContentType, "text/csv; charset=utf-8")
		c.Response().Header().Set(echo.HeaderContentDisposition,
			mime.FormatMediaType("attachment", map[string]string{"filename": SearchResultsFilename}))
		c.Response().WriteHeader(http.StatusOK)
		return WriteSearchCSV(c.Response(), results)
	}
	return c.JSON(http.StatusOK, SearchResponse{Query: q, Results: results})
}

// Translate handles POST /api/v1/translate.
func (h *Handler) Translate(c echo.Context) error {
	var concept Concept
	if err := c.Bind(&concept); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	res, err := h.svc.Translate(c.Request().Context(), concept)
	if errors.Is(err, ErrInvalidConcept) {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

// Lookup handles GET /api/v1/lookup?system=...&code=...
func (h *Handler) Lookup(c echo.Context) error {
	out, err := h.svc.LookupAndValidate(c.Request().Context(), c.QueryParam("system"), c.QueryParam("code"))
	if errors.Is(err, ErrInvalidConcept) {
		return echo.NewHTTPError(http.StatusBadRequest, "query parameters 'system' and 'code' are required")
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) ListHistory(c echo.Context) error {
	pg := pagination.FromContext(c)
	entries, total, err := h.svc.History(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	if entries == nil {
		entries = []*HistoryEntry{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(entries, total, pg))
}

func (h *Handler) ClearHistory(c echo.Context) error {
	if err := h.svc.ClearHistory(c.Request().Context()); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

type ClassifyResponse struct {
	System string `json:"system"`
	Label  Label  `json:"label"`
}

// Classify handles GET /api/v1/systems/classify?system=...; without a
// system it lists the active token table.
func (h *Handler) Classify(c echo.Context) error {
	system := c.QueryParam("system")
	if system == "" {
		return c.JSON(http.StatusOK, h.svc.Rules())
	}
	return c.JSON(http.StatusOK, ClassifyResponse{System: system, Label: h.svc.Classify(system)})
}
