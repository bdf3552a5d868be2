package transport

import (
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"
)

// Options configures the outbound HTTP client shared by the terminology
// client and the login call.
type Options struct {
	RetryMax     int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
	// Timeout bounds a single attempt. Callers bound the whole call,
	// retries included, through the request context.
	Timeout time.Duration
	Logger  zerolog.Logger
}

// NewHTTPClient returns a standard *http.Client that retries connection
// failures, 429s and 5xx responses. Once retries are exhausted the last
// response is handed back unchanged so callers can inspect its status.
func NewHTTPClient(opts Options) *http.Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = opts.RetryMax
	if opts.RetryWaitMin > 0 {
		rc.RetryWaitMin = opts.RetryWaitMin
	}
	if opts.RetryWaitMax > 0 {
		rc.RetryWaitMax = opts.RetryWaitMax
	}
	if opts.Timeout > 0 {
		rc.HTTPClient.Timeout = opts.Timeout
	}
	rc.Logger = NewLeveledLogger(opts.Logger)
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	return rc.StandardClient()
}
