// Package fhirtest provides an in-process NAMASTE terminology server for
// tests and local development. It serves the token endpoint and the FHIR
// terminology operations the client uses, backed by built-in Ayurveda,
// Siddha and Unani code systems and a NAMASTE to ICD-11 concept map.
package fhirtest

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/namaste/namaste/internal/platform/fhir"
	"github.com/namaste/namaste/pkg/fhirmodels"
)

const (
	DefaultUsername = "demo"
	DefaultPassword = "demo"
)

type Options struct {
	Username      string
	Password      string
	Secret        []byte
	TokenLifetime time.Duration
	// OmitExpiresIn drops expires_in from token responses.
	OmitExpiresIn bool
	Now           func() time.Time
	Logger        zerolog.Logger
}

// Server is the mock terminology server. It implements http.Handler.
type Server struct {
	opts    Options
	e       *echo.Echo
	logger  zerolog.Logger
	systems map[string]*codeSystem
	order   []*codeSystem
	cm      *conceptMap

	generation atomic.Int64
	latency    atomic.Int64

	mu      sync.Mutex
	calls   map[string]int
	uploads []fhir.Bundle
}

func New(opts Options) *Server {
	if opts.Username == "" {
		opts.Username = DefaultUsername
	}
	if opts.Password == "" {
		opts.Password = DefaultPassword
	}
	if len(opts.Secret) == 0 {
		opts.Secret = []byte("namaste-mock-secret")
	}
	if opts.TokenLifetime <= 0 {
		opts.TokenLifetime = time.Hour
	}

	s := &Server{
		opts:    opts,
		e:       echo.New(),
		logger:  opts.Logger.With().Str("component", "fhirtest").Logger(),
		systems: make(map[string]*codeSystem),
		cm:      builtinConceptMap(),
		calls:   make(map[string]int),
	}
	for _, cs := range builtinCodeSystems() {
		s.systems[cs.URL] = cs
		s.order = append(s.order, cs)
	}

	s.e.HideBanner = true
	s.e.HidePort = true
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.e.POST("/auth/token", s.handleToken)
	s.e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	g := s.e.Group("/fhir", s.requireBearer, s.simulateLatency)
	g.GET("/ValueSet/$expand", s.handleExpand)
	g.POST("/ConceptMap/$translate", s.handleTranslate)
	g.GET("/CodeSystem/$lookup", s.handleLookup)
	g.GET("/CodeSystem/$validate-code", s.handleValidateCode)
	g.POST("/Bundle", s.handleBundle)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.e.ServeHTTP(w, r)
}

// Echo exposes the underlying router for callers that start it themselves.
func (s *Server) Echo() *echo.Echo {
	return s.e
}

// Revoke invalidates every token issued so far. Subsequent FHIR calls
// with an old token receive 401.
func (s *Server) Revoke() {
	s.generation.Add(1)
}

// SetLatency delays every FHIR response by d, or until the request is
// cancelled.
func (s *Server) SetLatency(d time.Duration) {
	s.latency.Store(int64(d))
}

// Calls returns how many authorized requests reached the named operation
// ("expand", "translate", "lookup", "validate-code", "bundle").
func (s *Server) Calls(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

// Uploads returns the bundles received on POST /fhir/Bundle.
func (s *Server) Uploads() []fhir.Bundle {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]fhir.Bundle, len(s.uploads))
	copy(out, s.uploads)
	return out
}

func (s *Server) record(op string) {
	s.mu.Lock()
	s.calls[op]++
	s.mu.Unlock()
}

func (s *Server) requireBearer(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		sub, err := s.verifyBearer(c.Request().Header.Get(echo.HeaderAuthorization))
		if err != nil {
			s.logger.Debug().Err(err).Str("path", c.Path()).Msg("rejected bearer token")
			return c.JSON(http.StatusUnauthorized, fhir.NewOperationOutcome("error", "login", err.Error()))
		}
		c.Set("subject", sub)
		return next(c)
	}
}

func (s *Server) simulateLatency(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if d := time.Duration(s.latency.Load()); d > 0 {
			select {
			case <-time.After(d):
			case <-c.Request().Context().Done():
				return c.Request().Context().Err()
			}
		}
		return next(c)
	}
}

// NewTestServer starts a Server behind httptest and closes it when the
// test ends.
func NewTestServer(tb testing.TB, opts Options) (*httptest.Server, *Server) {
	tb.Helper()
	s := New(opts)
	hs := httptest.NewServer(s)
	tb.Cleanup(hs.Close)
	return hs, s
}

// ValueSetURL is the value set served by $expand.
const ValueSetURL = fhirmodels.ValueSetAyush
