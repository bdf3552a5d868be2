package transport

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func testOptions(retries int, buf *bytes.Buffer) Options {
	return Options{
		RetryMax:     retries,
		RetryWaitMin: time.Millisecond,
		RetryWaitMax: 5 * time.Millisecond,
		Timeout:      2 * time.Second,
		Logger:       zerolog.New(buf).Level(zerolog.TraceLevel),
	}
}

func TestNewHTTPClient_RetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	var buf bytes.Buffer
	client := NewHTTPClient(testOptions(3, &buf))
	resp, err := client.Get(srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK || string(body) != "ok" {
		t.Errorf("expected 200 ok, got %d %q", resp.StatusCode, body)
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Errorf("expected 3 attempts, got %d", got)
	}
	if !strings.Contains(buf.String(), `"component":"transport"`) {
		t.Errorf("expected retry logs tagged with component, got %s", buf.String())
	}
}

func TestNewHTTPClient_PassesThroughFinalResponse(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	var buf bytes.Buffer
	client := NewHTTPClient(testOptions(1, &buf))
	resp, err := client.Get(srv.URL)
	if err != nil {
		t.Fatalf("expected the last response, got error: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadGateway {
		t.Errorf("expected 502, got %d", resp.StatusCode)
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Errorf("expected 2 attempts, got %d", got)
	}
}

func TestNewHTTPClient_DoesNotRetryUnauthorized(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	var buf bytes.Buffer
	client := NewHTTPClient(testOptions(3, &buf))
	resp, err := client.Get(srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp.Body.Close()
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("expected a single attempt for 401, got %d", got)
	}
}

func TestLeveledLogger_Fields(t *testing.T) {
	var buf bytes.Buffer
	l := NewLeveledLogger(zerolog.New(&buf))
	l.Warn("retrying", "url", "http://x", "attempt", 2, "dangling")

	out := buf.String()
	for _, want := range []string{`"level":"warn"`, `"url":"http://x"`, `"attempt":2`, `"extra":"dangling"`, `"message":"retrying"`} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %s in %s", want, out)
		}
	}
}
