package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"FinRisk/internal/service/metrics"
	"FinRisk/pkg/config"
	xhttp "FinRisk/pkg/http"
	applogger "FinRisk/pkg/logger"

	"github.com/kaptinlin/jsonrepair"
)

// ErrNoData means the analytics service has nothing for the symbol.
var ErrNoData = errors.New("analytics: no data for symbol")

// UpstreamError describes a failed analytics call.
type UpstreamError struct {
	Endpoint string
	Status   int
	Message  string
	Err      error
}

func (e *UpstreamError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("analytics %s: status %d: %s", e.Endpoint, e.Status, e.Message)
	}
	return fmt.Sprintf("analytics %s: %v", e.Endpoint, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// HTTPServiceBase provides shared plumbing for analytics HTTP clients:
// base URL, timeouts, retries with linear backoff and lenient JSON decoding.
type HTTPServiceBase struct {
	baseURL string
	client  *xhttp.Client
	retries int
	backoff time.Duration
	log     *applogger.Logger
}

// Option configures HTTPServiceBase.
type Option func(*HTTPServiceBase)

// WithRetries sets how many extra attempts follow a transient failure.
func WithRetries(n int) Option {
	return func(b *HTTPServiceBase) { b.retries = n }
}

// WithBackoff sets the base delay; attempt i waits i*d.
func WithBackoff(d time.Duration) Option {
	return func(b *HTTPServiceBase) { b.backoff = d }
}

func WithLogger(l *applogger.Logger) Option {
	return func(b *HTTPServiceBase) { b.log = l }
}

// NewHTTPServiceBase builds the client from the analytics config section.
func NewHTTPServiceBase(cfg *config.Config, opts ...Option) *HTTPServiceBase {
	opts = append([]Option{WithRetries(cfg.Analytics.MaxRetries)}, opts...)
	return NewHTTPServiceBaseURL(cfg.Analytics.BaseURL, cfg.Analytics.Timeout, opts...)
}

// NewHTTPServiceBaseURL builds a client for an explicit base URL.
func NewHTTPServiceBaseURL(baseURL string, timeout time.Duration, opts ...Option) *HTTPServiceBase {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	metrics.Register()
	b := &HTTPServiceBase{
		baseURL: strings.TrimRight(baseURL, "/"),
		backoff: 100 * time.Millisecond,
		log:     applogger.Nop(),
	}
	for _, o := range opts {
		o(b)
	}
	b.client = xhttp.NewClient(xhttp.WithTimeout(timeout), xhttp.WithDecoder(b.decode))
	return b
}

// GetJSON fetches path and decodes the JSON response into dest.
func (b *HTTPServiceBase) GetJSON(ctx context.Context, endpoint, path string, dest interface{}) error {
	return b.do(ctx, endpoint, &xhttp.RequestOptions{Method: xhttp.MethodGet, URL: b.baseURL + path}, dest)
}

// PostJSON posts payload to path and decodes the JSON response into dest.
func (b *HTTPServiceBase) PostJSON(ctx context.Context, endpoint, path string, payload, dest interface{}) error {
	return b.do(ctx, endpoint, &xhttp.RequestOptions{Method: xhttp.MethodPost, URL: b.baseURL + path, Body: payload}, dest)
}

func (b *HTTPServiceBase) do(ctx context.Context, endpoint string, req *xhttp.RequestOptions, dest interface{}) error {
	if b.baseURL == "" {
		return &UpstreamError{Endpoint: endpoint, Err: errors.New("base url not configured")}
	}

	start := time.Now()
	defer func() { metrics.AnalyticsLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds()) }()

	var err error
	for attempt := 0; attempt <= b.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(time.Duration(attempt) * b.backoff):
			case <-ctx.Done():
				return b.fail(endpoint, ctx.Err())
			}
		}
		err = b.client.SendAndParse(ctx, req, withEndpoint(dest, endpoint))
		if err == nil || !transient(err) || ctx.Err() != nil {
			break
		}
		b.log.Debug("analytics retry",
			applogger.String("endpoint", endpoint),
			applogger.Int("attempt", attempt+1),
			applogger.Error(err),
		)
	}
	if err != nil {
		return b.fail(endpoint, err)
	}
	return nil
}

func (b *HTTPServiceBase) fail(endpoint string, err error) error {
	ue := &UpstreamError{Endpoint: endpoint, Err: err}
	cause := "transport"

	var se *xhttp.StatusError
	if errors.As(err, &se) {
		ue.Status = se.StatusCode
		ue.Message = errorMessage(se.Body)
		cause = fmt.Sprintf("%dxx", se.StatusCode/100)
		if se.StatusCode == 404 {
			ue.Err = ErrNoData
		}
	} else if errors.Is(err, xhttp.ErrDecode) {
		cause = "decode"
	}
	metrics.AnalyticsErrors.WithLabelValues(endpoint, cause).Inc()
	return ue
}

// decode accepts strict JSON and falls back to a repaired document, since
// the service occasionally emits Python literals such as None or trailing commas.
func (b *HTTPServiceBase) decode(body []byte, dest interface{}) error {
	target := dest
	endpoint := ""
	if t, ok := dest.(endpointTarget); ok {
		target, endpoint = t.dest, t.endpoint
	}
	err := json.Unmarshal(body, target)
	if err == nil {
		return nil
	}
	repaired, rerr := jsonrepair.JSONRepair(string(body))
	if rerr != nil {
		return err
	}
	if err := json.Unmarshal([]byte(repaired), target); err != nil {
		return err
	}
	metrics.AnalyticsRepairs.WithLabelValues(endpoint).Inc()
	b.log.Warn("analytics response repaired", applogger.String("endpoint", endpoint))
	return nil
}

// endpointTarget carries the endpoint label through the client's decode hook.
type endpointTarget struct {
	dest     interface{}
	endpoint string
}

func withEndpoint(dest interface{}, endpoint string) interface{} {
	if dest == nil {
		return nil
	}
	return endpointTarget{dest: dest, endpoint: endpoint}
}

func transient(err error) bool {
	var se *xhttp.StatusError
	if errors.As(err, &se) {
		return se.StatusCode >= 500 || se.StatusCode == 429
	}
	return !errors.Is(err, xhttp.ErrDecode)
}

// errorMessage extracts {"error": "..."} bodies, falling back to raw text.
func errorMessage(body string) string {
	var e struct {
		Error string `json:"error"`
	}
	if json.Unmarshal([]byte(body), &e) == nil && e.Error != "" {
		return e.Error
	}
	return body
}
