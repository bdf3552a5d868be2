package fhirclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/namaste/namaste/internal/platform/fhir"
)

const (
	DefaultTimeout     = 10 * time.Second
	DefaultExpandCount = 10

	mimeFHIRJSON = "application/fhir+json"
)

// TokenSource supplies the bearer token for outgoing calls and is told when
// the server rejects it.
type TokenSource interface {
	Token() (string, bool)
	Invalidate(ctx context.Context)
}

type Options struct {
	BaseURL    string
	HTTPClient *http.Client
	Tokens     TokenSource
	// Timeout bounds each call including retries. Defaults to 10s.
	Timeout time.Duration
	Logger  zerolog.Logger
}

// Client calls the NAMASTE terminology server. It is safe for concurrent
// use; the token source is the only state shared between calls.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
	timeout time.Duration
	logger  zerolog.Logger
}

func New(opts Options) *Client {
	c := &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		http:    opts.HTTPClient,
		tokens:  opts.Tokens,
		timeout: opts.Timeout,
		logger:  opts.Logger.With().Str("component", "fhirclient").Logger(),
	}
	if c.http == nil {
		c.http = http.DefaultClient
	}
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}
	return c
}

// Expand runs ValueSet/$expand. An empty filter is omitted and a
// non-positive count becomes DefaultExpandCount.
func (c *Client) Expand(ctx context.Context, valueSetURL, filter string, count int) (*fhir.ValueSet, error) {
	if count <= 0 {
		count = DefaultExpandCount
	}
	q := url.Values{}
	q.Set("url", valueSetURL)
	if filter != "" {
		q.Set("filter", filter)
	}
	q.Set("count", strconv.Itoa(count))

	var vs fhir.ValueSet
	if err := c.do(ctx, "expand", http.MethodGet, "/fhir/ValueSet/$expand", q, nil, &vs); err != nil {
		return nil, err
	}
	if vs.ResourceType != "ValueSet" {
		return nil, fmt.Errorf("expand: %w", &fhir.ParseError{Path: "resourceType", Reason: fmt.Sprintf("expected ValueSet, got %q", vs.ResourceType)})
	}
	return &vs, nil
}

// Translate runs ConceptMap/$translate for one source coding and returns
// the raw Parameters response.
func (c *Client) Translate(ctx context.Context, conceptMapURL, system, code string) (*fhir.Parameters, error) {
	body := fhir.NewParameters(
		fhir.UriParam("url", conceptMapURL),
		fhir.UriParam("system", system),
		fhir.CodeParam("code", code),
	)
	return c.parameters(ctx, "translate", http.MethodPost, "/fhir/ConceptMap/$translate", nil, body)
}

// Lookup runs CodeSystem/$lookup.
func (c *Client) Lookup(ctx context.Context, system, code string) (*fhir.Parameters, error) {
	return c.parameters(ctx, "lookup", http.MethodGet, "/fhir/CodeSystem/$lookup", codingQuery(system, code), nil)
}

// ValidateCode runs CodeSystem/$validate-code.
func (c *Client) ValidateCode(ctx context.Context, system, code string) (*fhir.Parameters, error) {
	return c.parameters(ctx, "validate-code", http.MethodGet, "/fhir/CodeSystem/$validate-code", codingQuery(system, code), nil)
}

// UploadBundle posts a bundle and returns the server's confirmation.
func (c *Client) UploadBundle(ctx context.Context, b *fhir.Bundle) (*fhir.Bundle, error) {
	var out fhir.Bundle
	if err := c.do(ctx, "upload-bundle", http.MethodPost, "/fhir/Bundle", nil, b, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Ping checks that the server answers GET /health. It needs no token.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("ping: build request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return c.transportError(ctx, "ping", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ping: terminology server answered %d", resp.StatusCode)
	}
	return nil
}

func codingQuery(system, code string) url.Values {
	q := url.Values{}
	q.Set("system", system)
	q.Set("code", code)
	return q
}

func (c *Client) parameters(ctx context.Context, op, method, path string, q url.Values, body interface{}) (*fhir.Parameters, error) {
	var p fhir.Parameters
	if err := c.do(ctx, op, method, path, q, body, &p); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &p, nil
}

func (c *Client) do(ctx context.Context, op, method, path string, q url.Values, body, out interface{}) error {
	token, ok := c.tokens.Token()
	if !ok {
		return fmt.Errorf("%s: %w", op, ErrNoToken)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	endpoint := c.baseURL + path
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Accept", mimeFHIRJSON)
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", mimeFHIRJSON)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return c.transportError(ctx, op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return c.transportError(ctx, op, err)
	}

	c.logger.Debug().
		Str("operation", op).
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("latency", time.Since(start)).
		Msg("terminology call")

	if resp.StatusCode == http.StatusUnauthorized {
		c.tokens.Invalidate(context.WithoutCancel(ctx))
		return fmt.Errorf("%s: %w", op, ErrAuthExpired)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newRequestError(op, resp, raw)
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%s: %w", op, &fhir.ParseError{Reason: "decode response: " + err.Error()})
	}
	return nil
}

func (c *Client) transportError(ctx context.Context, op string, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		c.logger.Warn().Str("operation", op).Dur("timeout", c.timeout).Msg("terminology call timed out")
		return fmt.Errorf("%s: %w after %s", op, ErrTimeout, c.timeout)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func newRequestError(op string, resp *http.Response, raw []byte) *RequestError {
	re := &RequestError{
		Operation:  op,
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Message:    http.StatusText(resp.StatusCode),
	}
	var outcome fhir.OperationOutcome
	if json.Unmarshal(raw, &outcome) == nil && outcome.ResourceType == "OperationOutcome" {
		re.Outcome = &outcome
		if msg := outcome.Summary(); msg != "" {
			re.Message = msg
		}
	}
	if re.Message == "" {
		re.Message = resp.Status
	}
	return re
}
