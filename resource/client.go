// Package resource talks to the recruiting API: it builds authenticated
// requests, rate-limits them and decodes the paginated list envelope.
package resource

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/teranos/hirepanel/am"
	"github.com/teranos/hirepanel/errors"
	"github.com/teranos/hirepanel/internal/httpclient"
	"github.com/teranos/hirepanel/logger"
	"github.com/teranos/hirepanel/query"
	"github.com/teranos/hirepanel/version"
)

// Header names
const (
	HeaderRequestID  = "X-Request-ID"
	HeaderAPIVersion = "X-API-Version"
)

// maxBody caps how much of a response is read
const maxBody = 8 << 20

// Config configures a Client
type Config struct {
	BaseURL           string
	Timeout           time.Duration
	RequestsPerSecond float64
	VersionConstraint string
	BlockPrivateIP    bool
}

// ConfigFrom maps the am configuration onto a client Config
func ConfigFrom(cfg *am.Config) Config {
	return Config{
		BaseURL:           cfg.API.BaseURL,
		Timeout:           cfg.Timeout(),
		RequestsPerSecond: cfg.API.RequestsPerSecond,
		VersionConstraint: cfg.API.VersionConstraint,
		BlockPrivateIP:    cfg.API.BlockPrivateIPs,
	}
}

// Client is an API client bound to one base URL
type Client struct {
	base       *url.URL
	http       *httpclient.SaferClient
	limiter    *rate.Limiter
	constraint *semver.Constraints
	log        *zap.SugaredLogger

	versionOnce sync.Once
}

// Response is a raw API response
type Response struct {
	Status    int
	Header    http.Header
	Body      []byte
	RequestID string
}

// OK reports a 2xx status
func (r *Response) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

// NewClient validates cfg and builds a client
func NewClient(cfg Config, log *zap.SugaredLogger) (*Client, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = am.DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = am.DefaultTimeoutSeconds * time.Second
	}

	transport := httpclient.New(httpclient.Options{
		Timeout:        cfg.Timeout,
		BlockPrivateIP: cfg.BlockPrivateIP,
	})
	base, err := transport.ValidateURL(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, errors.WithHint(errors.Wrapf(err, "invalid api.base_url %q", cfg.BaseURL),
			"set api.base_url in am.toml or HIREPANEL_API_BASE_URL")
	}

	c := &Client{
		base:    base,
		http:    transport,
		limiter: newLimiter(cfg.RequestsPerSecond),
		log:     logger.OrNop(log).Named("api"),
	}

	if cfg.VersionConstraint != "" {
		constraint, err := semver.NewConstraint(cfg.VersionConstraint)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid api.version_constraint %q", cfg.VersionConstraint)
		}
		c.constraint = constraint
	}
	return c, nil
}

func newLimiter(rps float64) *rate.Limiter {
	if rps <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}

// BaseURL is the API origin
func (c *Client) BaseURL() string {
	return c.base.String()
}

// URL resolves endpoint under {base}/api
func (c *Client) URL(endpoint string, params url.Values) string {
	u := c.base.JoinPath("api", strings.Trim(endpoint, "/"))
	if len(params) > 0 {
		u.RawQuery = params.Encode()
	}
	return u.String()
}

// Do sends one request. body, when not nil, is encoded as JSON. Only
// failures to get a response are errors; callers interpret the status.
func (c *Client) Do(ctx context.Context, method, endpoint, token string, params url.Values, body any) (*Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, errors.Wrap(err, "request cancelled while rate limited")
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, errors.Wrap(err, "failed to encode request body")
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.URL(endpoint, params), reader)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build request")
	}

	requestID := logger.RequestIDFromContext(ctx)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(HeaderRequestID, requestID)
	req.Header.Set("User-Agent", version.Get().UserAgent())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	log := c.log.With(logger.FieldRequestID, requestID, logger.FieldMethod, method, logger.FieldEndpoint, endpoint)
	start := time.Now()

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, errors.Wrap(ctx.Err(), "request cancelled")
		}
		log.Debugw("request failed", logger.FieldError, err)
		return nil, errors.Mark(errors.Wrapf(err, "%s %s", method, endpoint), errors.ErrTransport)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		if ctx.Err() != nil {
			return nil, errors.Wrap(ctx.Err(), "request cancelled")
		}
		return nil, errors.Mark(errors.Wrap(err, "failed to read response"), errors.ErrTransport)
	}

	log.Debugw("request complete",
		logger.FieldStatus, resp.StatusCode,
		logger.FieldDurationMS, time.Since(start).Milliseconds())

	c.checkVersion(resp.Header.Get(HeaderAPIVersion))

	return &Response{Status: resp.StatusCode, Header: resp.Header, Body: data, RequestID: requestID}, nil
}

// checkVersion warns once per client when the API reports a version
// outside the configured constraint
func (c *Client) checkVersion(header string) {
	if c.constraint == nil || header == "" {
		return
	}
	v, err := semver.NewVersion(header)
	if err == nil && c.constraint.Check(v) {
		return
	}
	c.versionOnce.Do(func() {
		c.log.Warnw("API version outside supported range",
			"api_version", header,
			"supported", c.constraint.String())
	})
}

// Fetch loads one page of endpoint
func (c *Client) Fetch(ctx context.Context, endpoint, token string, q query.State) (*Envelope, error) {
	resp, err := c.Do(ctx, http.MethodGet, endpoint, token, q.Values(), nil)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, &errors.StatusError{Code: resp.Status}
	}
	env, err := DecodeEnvelope(resp.Body, q.Page, q.PerPage)
	if err != nil {
		return nil, err
	}
	if len(env.Data) > env.Meta.PerPage && env.Meta.PerPage > 0 {
		c.log.Warnw("page larger than per_page",
			logger.FieldEndpoint, endpoint,
			"rows", len(env.Data),
			"per_page", env.Meta.PerPage)
	}
	return env, nil
}
