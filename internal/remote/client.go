// Package remote implements application.Service against a remote
// application API over JSON/HTTP.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"orphanadmin/internal/application"
	"orphanadmin/internal/auth"
	"orphanadmin/internal/query"
)

// Options tune the client. Zero values pick defaults.
type Options struct {
	Timeout    time.Duration
	RatePerSec float64
	Burst      int
	HTTPClient *http.Client
}

// Client talks to the application API rooted at base.
type Client struct {
	base    *url.URL
	http    *http.Client
	limiter *rate.Limiter
}

var _ application.Service = (*Client)(nil)

func New(baseURL string, opts Options) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("remote: invalid base url %q", baseURL)
	}
	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	limit := rate.Inf
	if opts.RatePerSec > 0 {
		limit = rate.Limit(opts.RatePerSec)
	}
	burst := opts.Burst
	if burst <= 0 {
		burst = 10
	}
	return &Client{base: u, http: hc, limiter: rate.NewLimiter(limit, burst)}, nil
}

func (c *Client) ListApplications(ctx context.Context, q query.State) (application.Page, error) {
	var page application.Page
	err := c.do(ctx, http.MethodGet, "/v1/applications", query.Encode(q), nil, &page)
	if err != nil {
		return application.Page{}, err
	}
	if page.Content == nil {
		page.Content = []application.Summary{}
	}
	return page, nil
}

func (c *Client) GetApplication(ctx context.Context, id string) (application.Application, error) {
	var a application.Application
	err := c.do(ctx, http.MethodGet, "/v1/applications/"+url.PathEscape(id), nil, nil, &a)
	return a, err
}

func (c *Client) CreateApplication(ctx context.Context, d application.Draft) (application.Application, error) {
	var a application.Application
	err := c.do(ctx, http.MethodPost, "/v1/applications", nil, d, &a)
	return a, err
}

func (c *Client) UpdateApplication(ctx context.Context, id string, d application.Draft) (application.Application, error) {
	var a application.Application
	err := c.do(ctx, http.MethodPut, "/v1/applications/"+url.PathEscape(id), nil, d, &a)
	return a, err
}

// DeleteApplication sends the confirmation the API requires; callers must
// have obtained it from the user.
func (c *Client) DeleteApplication(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/v1/applications/"+url.PathEscape(id), url.Values{"confirm": {"true"}}, nil, nil)
}

type statusRequest struct {
	Status           application.Status `json:"status"`
	RejectionMessage string             `json:"rejectionMessage,omitempty"`
}

func (c *Client) UpdateApplicationStatus(ctx context.Context, id string, target application.Status, message string) error {
	body := statusRequest{Status: target, RejectionMessage: message}
	return c.do(ctx, http.MethodPatch, "/v1/applications/"+url.PathEscape(id)+"/status", nil, body, nil)
}

// Ping checks that the remote API answers its health endpoint.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/healthz", nil, nil, nil)
}

type errorBody struct {
	Error string `json:"error"`
}

func (c *Client) do(ctx context.Context, method, path string, params url.Values, in, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %v", application.ErrFetch, err)
	}
	u, err := url.Parse(c.base.String() + path)
	if err != nil {
		return fmt.Errorf("%w: %v", application.ErrFetch, err)
	}
	if len(params) > 0 {
		u.RawQuery = params.Encode()
	}

	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%w: encode request: %v", application.ErrValidation, err)
		}
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return fmt.Errorf("%w: %v", application.ErrFetch, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok, ok := auth.TokenFromContext(ctx); ok {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", application.ErrFetch, method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return mapStatus(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s %s: %v", application.ErrFetch, method, path, err)
	}
	return nil
}

// mapStatus turns an error response into the application error taxonomy.
func mapStatus(resp *http.Response) error {
	var eb errorBody
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err := json.Unmarshal(raw, &eb); err != nil || eb.Error == "" {
		eb.Error = strings.TrimSpace(string(raw))
	}
	if eb.Error == "" {
		eb.Error = http.StatusText(resp.StatusCode)
	}
	var kind error
	switch resp.StatusCode {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		kind = application.ErrValidation
	case http.StatusNotFound:
		kind = application.ErrNotFound
	case http.StatusConflict:
		kind = application.ErrInvalidTransition
	case http.StatusUnauthorized:
		kind = auth.ErrUnauthorized
	case http.StatusForbidden:
		kind = auth.ErrForbidden
	default:
		kind = application.ErrFetch
	}
	return &StatusError{Code: resp.StatusCode, Message: eb.Error, kind: kind}
}

// StatusError is a non-2xx response from the remote API.
type StatusError struct {
	Code    int
	Message string
	kind    error
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%v: remote %d: %s", e.kind, e.Code, e.Message)
}

func (e *StatusError) Unwrap() error { return e.kind }
