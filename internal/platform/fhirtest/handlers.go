package fhirtest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/namaste/namaste/internal/platform/fhir"
)

func outcome(code, diagnostics string) *fhir.OperationOutcome {
	return fhir.NewOperationOutcome("error", code, diagnostics)
}

// handleToken handles POST /auth/token with a form-encoded body.
func (s *Server) handleToken(c echo.Context) error {
	username := c.FormValue("username")
	password := c.FormValue("password")
	if username != s.opts.Username || password != s.opts.Password {
		return c.JSON(http.StatusUnauthorized, map[string]string{
			"error":             "invalid_grant",
			"error_description": "invalid username or password",
		})
	}

	token, err := s.issueToken(username)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, outcome("exception", err.Error()))
	}
	body := map[string]interface{}{
		"access_token": token,
		"token_type":   "bearer",
	}
	if !s.opts.OmitExpiresIn {
		body["expires_in"] = int64(s.opts.TokenLifetime.Seconds())
	}
	return c.JSON(http.StatusOK, body)
}

// handleExpand handles GET /fhir/ValueSet/$expand.
func (s *Server) handleExpand(c echo.Context) error {
	s.record("expand")
	vsURL := c.QueryParam("url")
	if vsURL == "" {
		return c.JSON(http.StatusBadRequest, outcome("required", "Parameter 'url' is required"))
	}
	if vsURL != ValueSetURL {
		return c.JSON(http.StatusNotFound, outcome("not-found", "ValueSet not found: "+vsURL))
	}

	count, _ := strconv.Atoi(c.QueryParam("count"))
	if count <= 0 {
		count = 10
	}
	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	if offset < 0 {
		offset = 0
	}
	filter := strings.ToLower(strings.TrimSpace(c.QueryParam("filter")))

	var all []fhir.ValueSetContains
	for _, cs := range s.order {
		for _, con := range cs.Concepts {
			if con.Status != "active" {
				continue
			}
			if filter != "" &&
				!strings.Contains(strings.ToLower(con.Code), filter) &&
				!strings.Contains(strings.ToLower(con.Display), filter) &&
				!strings.Contains(strings.ToLower(con.Definition), filter) {
				continue
			}
			all = append(all, fhir.ValueSetContains{
				System:     cs.URL,
				Version:    cs.Version,
				Code:       con.Code,
				Display:    con.Display,
				Definition: con.Definition,
			})
		}
	}

	total := len(all)
	if offset > total {
		offset = total
	}
	end := offset + count
	if end > total {
		end = total
	}

	return c.JSON(http.StatusOK, fhir.ValueSet{
		ResourceType: "ValueSet",
		ID:           "ayush",
		URL:          ValueSetURL,
		Name:         "AYUSH",
		Status:       "active",
		Expansion: &fhir.Expansion{
			Identifier: "urn:uuid:" + uuid.NewString(),
			Timestamp:  s.now().UTC().Format("2006-01-02T15:04:05Z"),
			Total:      &total,
			Offset:     &offset,
			Contains:   all[offset:end],
		},
	})
}

// handleTranslate handles POST /fhir/ConceptMap/$translate with a
// Parameters body. url and system may be valueUri or valueString, code may
// be valueCode or valueString.
func (s *Server) handleTranslate(c echo.Context) error {
	s.record("translate")
	var in fhir.Parameters
	if err := json.NewDecoder(c.Request().Body).Decode(&in); err != nil {
		return c.JSON(http.StatusBadRequest, outcome("structure", "Invalid JSON: "+err.Error()))
	}
	if err := in.Validate(); err != nil {
		return c.JSON(http.StatusBadRequest, outcome("structure", err.Error()))
	}

	mapURL, system, code := paramText(&in, "url"), paramText(&in, "system"), paramText(&in, "code")
	if code == "" {
		return c.JSON(http.StatusBadRequest, outcome("required", "Parameter 'code' is required"))
	}
	if system == "" {
		return c.JSON(http.StatusBadRequest, outcome("required", "Parameter 'system' is required"))
	}
	if mapURL != "" && mapURL != s.cm.URL {
		return c.JSON(http.StatusNotFound, outcome("not-found", "ConceptMap not found: "+mapURL))
	}

	cs, ok := s.systems[system]
	if !ok || cs.byCode[code] == nil {
		return c.JSON(http.StatusOK, fhir.NewParameters(
			fhir.BooleanParam("result", false),
			fhir.StringParam("message", fmt.Sprintf("Code '%s' not found in system '%s'", code, system)),
		))
	}
	if msg, ok := s.cm.NoMapping[code]; ok {
		return c.JSON(http.StatusOK, fhir.NewParameters(
			fhir.BooleanParam("result", false),
			fhir.StringParam("message", msg),
		))
	}

	mappings := s.cm.Mappings[code]
	if len(mappings) == 0 {
		return c.JSON(http.StatusOK, fhir.NewParameters(
			fhir.BooleanParam("result", true),
			fhir.StringParam("message", "Code is valid but has no ICD-11 mapping"),
		))
	}

	out := fhir.NewParameters(
		fhir.BooleanParam("result", true),
		fhir.StringParam("message", fmt.Sprintf("Found %d mapping(s)", len(mappings))),
	)
	for _, m := range mappings {
		parts := []fhir.Parameter{
			fhir.CodeParam("equivalence", m.Equivalence),
			fhir.CodingParam("concept", fhir.Coding{System: m.TargetSystem, Code: m.TargetCode, Display: m.TargetDisplay}),
		}
		if m.Score >= 0 {
			parts = append(parts, fhir.DecimalParam("score", m.Score))
		}
		parts = append(parts, fhir.UriParam("source", s.cm.URL))
		out.Parameter = append(out.Parameter, fhir.PartParam("match", parts...))
	}
	return c.JSON(http.StatusOK, out)
}

func paramText(p *fhir.Parameters, name string) string {
	if v, ok := p.Lookup(name); ok {
		return strings.TrimSpace(v.Text())
	}
	return ""
}

// handleLookup handles GET /fhir/CodeSystem/$lookup.
func (s *Server) handleLookup(c echo.Context) error {
	s.record("lookup")
	system, code := c.QueryParam("system"), c.QueryParam("code")
	if system == "" || code == "" {
		return c.JSON(http.StatusBadRequest, outcome("required", "Parameters 'system' and 'code' are required"))
	}
	cs, ok := s.systems[system]
	if !ok {
		return c.JSON(http.StatusNotFound, outcome("not-found", "CodeSystem not found: "+system))
	}
	con := cs.byCode[code]
	if con == nil {
		return c.JSON(http.StatusNotFound, outcome("not-found", fmt.Sprintf("Code '%s' not found in %s", code, cs.Name)))
	}

	out := fhir.NewParameters(
		fhir.StringParam("name", cs.Name),
		fhir.StringParam("version", cs.Version),
		fhir.StringParam("display", con.Display),
	)
	if con.Definition != "" {
		out.Parameter = append(out.Parameter, fhir.StringParam("definition", con.Definition))
	}
	out.Parameter = append(out.Parameter,
		fhir.StringParam("publisher", cs.Publisher),
		fhir.PartParam("property", fhir.CodeParam("code", "status"), fhir.CodeParam("value", con.Status)),
	)
	if con.Parent != "" {
		out.Parameter = append(out.Parameter, fhir.PartParam("property",
			fhir.CodeParam("code", "parent"),
			fhir.CodeParam("value", con.Parent),
		))
	}
	for _, p := range con.Properties {
		out.Parameter = append(out.Parameter, fhir.PartParam("property",
			fhir.CodeParam("code", p.Code),
			fhir.StringParam("value", p.Value),
			fhir.StringParam("description", p.Description),
		))
	}
	return c.JSON(http.StatusOK, out)
}

// handleValidateCode handles GET /fhir/CodeSystem/$validate-code.
func (s *Server) handleValidateCode(c echo.Context) error {
	s.record("validate-code")
	system, code := c.QueryParam("system"), c.QueryParam("code")
	if system == "" || code == "" {
		return c.JSON(http.StatusBadRequest, outcome("required", "Parameters 'system' and 'code' are required"))
	}
	cs, ok := s.systems[system]
	if !ok {
		return c.JSON(http.StatusOK, fhir.NewParameters(
			fhir.BooleanParam("result", false),
			fhir.StringParam("message", "Unknown code system: "+system),
		))
	}
	con := cs.byCode[code]
	if con == nil {
		return c.JSON(http.StatusOK, fhir.NewParameters(
			fhir.BooleanParam("result", false),
			fhir.StringParam("message", "Code not found in the specified system"),
		))
	}
	if con.Status != "active" {
		return c.JSON(http.StatusOK, fhir.NewParameters(
			fhir.BooleanParam("result", false),
			fhir.StringParam("message", "Code is "+con.Status+" in the specified system"),
			fhir.StringParam("display", con.Display),
		))
	}
	return c.JSON(http.StatusOK, fhir.NewParameters(
		fhir.BooleanParam("result", true),
		fhir.StringParam("message", "Code is valid and active in the specified system"),
		fhir.StringParam("display", con.Display),
	))
}

// handleBundle handles POST /fhir/Bundle and echoes the stored bundle.
func (s *Server) handleBundle(c echo.Context) error {
	s.record("bundle")
	var b fhir.Bundle
	if err := json.NewDecoder(c.Request().Body).Decode(&b); err != nil {
		return c.JSON(http.StatusBadRequest, outcome("structure", "Invalid JSON: "+err.Error()))
	}
	if b.ResourceType != "Bundle" {
		return c.JSON(http.StatusBadRequest, outcome("structure", "expected a Bundle resource"))
	}
	if b.Type != fhir.BundleTypeCollection {
		return c.JSON(http.StatusUnprocessableEntity, outcome("business-rule", "only collection bundles are accepted"))
	}
	if len(b.Entry) == 0 {
		return c.JSON(http.StatusUnprocessableEntity, outcome("business-rule", "bundle has no entries"))
	}
	if b.ID == "" {
		b.ID = uuid.NewString()
	}

	s.mu.Lock()
	s.uploads = append(s.uploads, b)
	s.mu.Unlock()

	s.logger.Info().Str("bundle_id", b.ID).Int("entries", len(b.Entry)).Msg("bundle received")
	return c.JSON(http.StatusCreated, b)
}
