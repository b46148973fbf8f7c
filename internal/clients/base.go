package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/apierr"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/logging"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/middleware"
)

// errServerStatus marks a 5xx answer as a breaker failure; the response is
// still handed back to the caller.
var errServerStatus = errors.New("server error status")

// Observer is told about every finished call.
type Observer interface {
	ObserveCall(ctx context.Context, op string, status int, elapsed time.Duration, err error)
}

type Client struct {
	Name    string
	BaseURL *url.URL
	HTTP    *http.Client

	breaker  *gobreaker.CircuitBreaker[*http.Response]
	logger   *zap.Logger
	observer Observer
}

type Option func(*Client)

func WithLogger(l *zap.Logger) Option { return func(c *Client) { c.logger = logging.OrNop(l) } }

func WithObserver(o Observer) Option { return func(c *Client) { c.observer = o } }

// WithBreaker opens the circuit after maxFailures consecutive transport
// failures or 5xx answers and keeps it open for openTimeout.
func WithBreaker(maxFailures uint32, openTimeout time.Duration) Option {
	return func(c *Client) {
		if maxFailures == 0 {
			c.breaker = nil
			return
		}
		c.breaker = gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
			Name:        c.Name,
			MaxRequests: 1,
			Timeout:     openTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= maxFailures
			},
			IsSuccessful: func(err error) bool {
				// A cancelled caller says nothing about the API's health.
				return err == nil || errors.Is(err, context.Canceled)
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				c.logger.Warn("circuit breaker state changed",
					zap.String("client", name),
					zap.String("from", from.String()),
					zap.String("to", to.String()))
			},
		})
	}
}

// NewHTTPClient builds the shared transport: a cookie jar for the API's
// session cookie and otelhttp instrumentation.
func NewHTTPClient(timeout time.Duration) *http.Client {
	jar, _ := cookiejar.New(nil) // only fails on a bad PublicSuffixList
	return &http.Client{
		Timeout:   timeout,
		Jar:       jar,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
}

func NewClient(name string, baseURL string, httpClient *http.Client, opts ...Option) *Client {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		// Fail fast: config error
		panic(fmt.Sprintf("invalid %s base url %q: %v", name, baseURL, err))
	}
	c := &Client{Name: name, BaseURL: u, HTTP: httpClient, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Do sends one request below BaseURL. path elements must already be escaped.
func (c *Client) Do(ctx context.Context, method, path, rawQuery string, body io.Reader, headers http.Header) (*http.Response, error) {
	u := c.BaseURL.JoinPath(path)
	u.RawQuery = rawQuery

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, err
	}
	for k, vv := range headers {
		for _, v := range vv {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "application/json")

	// Every call carries a correlation id, the caller's or a fresh one.
	cid := middleware.GetCorrelationID(ctx)
	if cid == "" {
		cid = uuid.NewString()
	}
	req.Header.Set(middleware.HeaderCorrelationID, cid)

	if c.breaker == nil {
		return c.HTTP.Do(req)
	}
	resp, err := c.breaker.Execute(func() (*http.Response, error) {
		resp, err := c.HTTP.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			return resp, errServerStatus
		}
		return resp, nil
	})
	if errors.Is(err, errServerStatus) {
		return resp, nil
	}
	return resp, err
}

// call performs a JSON round trip. in is encoded as the body when non-nil;
// out receives a 2xx body when non-nil. Transport and decode failures come
// back as *apierr.NetworkError, non-2xx answers as *apierr.APIError.
func (c *Client) call(ctx context.Context, op, method, path string, in, out any) (err error) {
	start := time.Now()
	status := 0
	defer func() {
		if c.observer != nil {
			c.observer.ObserveCall(ctx, op, status, time.Since(start), err)
		}
		if err != nil {
			c.logger.Debug("api call failed",
				zap.String("op", op),
				zap.Int("status", status),
				zap.String("correlation_id", middleware.GetCorrelationID(ctx)),
				zap.Error(err))
		}
	}()

	var body io.Reader
	var headers http.Header
	if in != nil {
		buf, mErr := json.Marshal(in)
		if mErr != nil {
			return fmt.Errorf("%s: encode request: %w", op, mErr)
		}
		body = bytes.NewReader(buf)
		headers = http.Header{"Content-Type": []string{"application/json"}}
	}

	resp, err := c.Do(ctx, method, path, "", body, headers)
	if err != nil {
		return apierr.Network(op, err)
	}
	defer resp.Body.Close()
	status = resp.StatusCode

	if status < 200 || status > 299 {
		return &apierr.APIError{Op: op, StatusCode: status, Detail: readDetail(resp.Body)}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apierr.Network(op, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

// readDetail extracts the server message from an error body. FastAPI sends
// {"detail": "..."}; validation errors carry a list instead, which is
// reduced to its first msg.
func readDetail(r io.Reader) string {
	var body struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.NewDecoder(io.LimitReader(r, 64<<10)).Decode(&body); err != nil || len(body.Detail) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(body.Detail, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var list []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(body.Detail, &list); err == nil && len(list) > 0 {
		return strings.TrimSpace(list[0].Msg)
	}
	return ""
}
