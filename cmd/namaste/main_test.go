package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/namaste/namaste/internal/config"
	"github.com/namaste/namaste/internal/domain/terminology"
	"github.com/namaste/namaste/internal/platform/auth"
	"github.com/namaste/namaste/internal/platform/fhirtest"
	"github.com/namaste/namaste/pkg/fhirmodels"
)

// setupEnv points the CLI at a mock terminology server and a miniredis
// token store shared by every invocation in the test.
func setupEnv(t *testing.T) (*httptest.Server, *fhirtest.Server) {
	t.Helper()
	hs, mock := fhirtest.NewTestServer(t, fhirtest.Options{})
	mr := miniredis.RunT(t)

	t.Setenv("ENV", "test")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("TERMINOLOGY_BASE_URL", hs.URL)
	t.Setenv("REDIS_URL", "redis://"+mr.Addr())
	t.Setenv("RETRY_MAX", "0")
	t.Setenv("DATABASE_URL", "")
	return hs, mock
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestNewLogger_Level(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"WARN", zerolog.WarnLevel},
		{"", zerolog.InfoLevel},
		{"chatty", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		l := newLogger(&config.Config{Env: "production", LogLevel: tt.in}, &bytes.Buffer{})
		assert.Equal(t, tt.want, l.GetLevel(), "level %q", tt.in)
	}
}

func TestRootCmd_Subcommands(t *testing.T) {
	root := newRootCmd()
	for _, name := range []string{"serve", "mock-server", "login", "logout", "status", "search", "translate", "lookup"} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, cmd.Name())
	}
}

func TestCLI_RequiresLogin(t *testing.T) {
	setupEnv(t)
	_, err := run(t, "translate", "--system", fhirmodels.SystemAyurveda, "--code", "AY001")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no token")
}

func TestCLI_LoginTranslateLogout(t *testing.T) {
	_, mock := setupEnv(t)

	out, err := run(t, "login", "--username", "demo", "--password", "demo")
	require.NoError(t, err)
	assert.Contains(t, out, "logged in")

	out, err = run(t, "status")
	require.NoError(t, err)
	var st auth.SessionStatus
	require.NoError(t, json.Unmarshal([]byte(out), &st))
	assert.True(t, st.Authenticated)
	assert.NotNil(t, st.ExpiresAt)

	out, err = run(t, "translate", "--system", fhirmodels.SystemAyurveda, "--code", "AY001", "--display", "Vata Dosha")
	require.NoError(t, err)
	var res terminology.TranslationResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.True(t, res.Success)
	require.Len(t, res.MappedCodes, 1)
	assert.Equal(t, 1, mock.Calls("translate"))

	out, err = run(t, "search", "kabam")
	require.NoError(t, err)
	var concepts []terminology.Concept
	require.NoError(t, json.Unmarshal([]byte(out), &concepts))
	require.Len(t, concepts, 1)
	assert.Equal(t, "SI045", concepts[0].Code)

	out, err = run(t, "search", "excess", "--system", "siddha", "--csv")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Code,Display,System,Definition", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "SI045,Kabam Excess,"))

	out, err = run(t, "lookup", "--system", fhirmodels.SystemSiddha, "--code", "SI045")
	require.NoError(t, err)
	var lo terminology.LookupOutcome
	require.NoError(t, json.Unmarshal([]byte(out), &lo))
	assert.Equal(t, "Siddha", lo.SystemLabel)
	require.NotNil(t, lo.Validation)
	assert.True(t, lo.Validation.Valid)

	_, err = run(t, "logout")
	require.NoError(t, err)
	out, err = run(t, "status")
	require.NoError(t, err)
	assert.Contains(t, out, `"authenticated": false`)
}

func TestCLI_LoginNeedsCredentials(t *testing.T) {
	setupEnv(t)
	t.Setenv("NAMASTE_USERNAME", "")
	t.Setenv("NAMASTE_PASSWORD", "")
	_, err := run(t, "login")
	require.Error(t, err)
}

func TestGateway_Routes(t *testing.T) {
	setupEnv(t)
	cfg, err := config.Load()
	require.NoError(t, err)
	ctx := context.Background()
	a, err := newApp(ctx, cfg, zerolog.Nop())
	require.NoError(t, err)
	defer a.close()
	gw, err := newGateway(ctx, a)
	require.NoError(t, err)
	defer gw.close()

	srv := httptest.NewServer(gw.e)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Post(srv.URL+"/api/v1/translate", "application/json",
		strings.NewReader(`{"system":"`+fhirmodels.SystemAyurveda+`","code":"AY001"}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, "translate needs a session")

	resp, err = http.Post(srv.URL+"/api/v1/auth/login", "application/json",
		strings.NewReader(`{"username":"demo","password":"demo"}`))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Post(srv.URL+"/api/v1/translate", "application/json",
		strings.NewReader(`{"system":"`+fhirmodels.SystemAyurveda+`","code":"AY001"}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/api/v1/history")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}
