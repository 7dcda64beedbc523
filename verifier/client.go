// Package verifier is the HTTP client of the external verifier service that
// checks vLEI credentials, signed-request signatures and uploaded reports.
package verifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ronakseth96/reg-pilot-api/config"
)

const (
	defaultTimeout = 5 * time.Second

	// maxResponseBytes caps how much of a verifier response is read.
	maxResponseBytes = 1 << 20

	contentTypeJSON = "application/json"
	contentTypeCESR = "application/json+cesr"
)

// Response is a verifier answer with its body normalized to JSON.
type Response struct {
	StatusCode int
	Body       json.RawMessage
}

// Client talks to the verifier endpoints. The zero value is not usable; use
// New.
type Client struct {
	authorizations string
	presentations  string
	reports        string
	requests       string

	httpClient   *http.Client
	timeout      time.Duration
	pollAttempts int
	pollInterval time.Duration
	logger       zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithLogger sets the logger used for verifier traffic.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New creates a Client for the endpoints in cfg.
func New(cfg config.VerifierConfig, opts ...Option) (*Client, error) {
	for _, raw := range []string{cfg.AuthorizationsURL, cfg.PresentationsURL, cfg.ReportsURL, cfg.RequestsURL} {
		if _, err := url.Parse(raw); err != nil {
			return nil, fmt.Errorf("verifier: parse endpoint %q: %w", raw, err)
		}
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	c := &Client{
		authorizations: cfg.AuthorizationsURL,
		presentations:  cfg.PresentationsURL,
		reports:        cfg.ReportsURL,
		requests:       cfg.RequestsURL,
		httpClient:     &http.Client{},
		timeout:        timeout,
		pollAttempts:   cfg.PollAttempts,
		pollInterval:   cfg.PollInterval,
		logger:         zerolog.Nop(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Login presents a vLEI credential for said. The verifier accepts it with
// 202.
func (c *Client) Login(ctx context.Context, said, vlei string) (*Response, error) {
	c.logger.Info().Str("said", said).Str("vlei", truncate(vlei, 50)).Msg("presenting vlei credential")

	resp, err := c.do(ctx, http.MethodPut, c.presentations+url.PathEscape(said), contentTypeCESR, strings.NewReader(vlei))
	if err != nil {
		return nil, err
	}

	return expect("login", resp, http.StatusAccepted)
}

// CheckLogin reports the login state of aid. The verifier answers 200 with
// the aid, said and lei of an accepted credential.
func (c *Client) CheckLogin(ctx context.Context, aid string) (*Response, error) {
	c.logger.Info().Str("aid", aid).Msg("checking login")

	resp, err := c.do(ctx, http.MethodGet, c.authorizations+url.PathEscape(aid), contentTypeJSON, nil)
	if err != nil {
		return nil, err
	}

	return expect("check login", resp, http.StatusOK)
}

// VerifySignature asks the verifier to check sig over base against the
// current keys of aid. The verifier accepts a valid signature with 202.
func (c *Client) VerifySignature(ctx context.Context, aid, sig, base string) (*Response, error) {
	c.logger.Debug().Str("aid", aid).Str("sig", sig).Msg("verifying request signature")

	query := url.Values{}
	query.Set("sig", sig)
	query.Set("data", base)

	resp, err := c.do(ctx, http.MethodPost, c.requests+url.PathEscape(aid)+"?"+query.Encode(), "", nil)
	if err != nil {
		return nil, err
	}

	return expect("verify signature", resp, http.StatusAccepted)
}

// CheckUpload returns the verification status of report dig submitted by
// aid. The verifier answers 200 once the report is known.
func (c *Client) CheckUpload(ctx context.Context, aid, dig string) (*Response, error) {
	resp, err := c.checkUpload(ctx, aid, dig)
	if err != nil {
		return nil, err
	}

	return expect("check upload", resp, http.StatusOK)
}

// Upload submits a report. A report the verifier already knows is not sent
// again. After a successful post the status is polled while the verifier
// still answers 404.
func (c *Client) Upload(ctx context.Context, aid, dig, contentType string, report []byte) (*Response, error) {
	resp, err := c.checkUpload(ctx, aid, dig)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusOK {
		c.logger.Info().Str("aid", aid).Str("dig", dig).Msg("report already uploaded")
		return resp, nil
	}

	c.logger.Info().Str("aid", aid).Str("dig", dig).Int("bytes", len(report)).Msg("uploading report")

	resp, err = c.do(ctx, http.MethodPost, c.reportURL(aid, dig), contentType, bytes.NewReader(report))
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= http.StatusMultipleChoices {
		return expect("upload", resp, http.StatusOK)
	}

	resp, err = c.checkUpload(ctx, aid, dig)
	if err != nil {
		return nil, err
	}

	for attempt := 0; attempt < c.pollAttempts && resp.StatusCode == http.StatusNotFound; attempt++ {
		c.logger.Debug().Str("aid", aid).Str("dig", dig).Int("attempt", attempt+1).Msg("polling upload status")

		if err := sleep(ctx, c.pollInterval); err != nil {
			return nil, wrapTransportErr(err)
		}

		resp, err = c.checkUpload(ctx, aid, dig)
		if err != nil {
			return nil, err
		}
	}

	return expect("upload", resp, http.StatusOK)
}

func (c *Client) checkUpload(ctx context.Context, aid, dig string) (*Response, error) {
	c.logger.Debug().Str("aid", aid).Str("dig", dig).Msg("checking upload")
	return c.do(ctx, http.MethodGet, c.reportURL(aid, dig), contentTypeJSON, nil)
}

func (c *Client) reportURL(aid, dig string) string {
	return c.reports + url.PathEscape(aid) + "/" + url.PathEscape(dig)
}

// do performs one request bounded by the client timeout and normalizes the
// response body.
func (c *Client) do(ctx context.Context, method, target, contentType string, body io.Reader) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("verifier: create request: %w", err)
	}

	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", contentTypeJSON)

	start := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, wrapTransportErr(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, wrapTransportErr(err)
	}

	c.logger.Debug().
		Str("method", method).
		Str("url", req.URL.Redacted()).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("verifier response")

	return &Response{
		StatusCode: resp.StatusCode,
		Body:       normalizeBody(raw, resp.StatusCode),
	}, nil
}

func expect(op string, resp *Response, status int) (*Response, error) {
	if resp.StatusCode != status {
		return nil, &StatusError{Op: op, StatusCode: resp.StatusCode, Body: resp.Body}
	}

	return resp, nil
}

func wrapTransportErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}

	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}

	return fmt.Errorf("verifier: %w", err)
}

// normalizeBody keeps JSON bodies as they are and wraps anything else as
// {"msg": text}.
func normalizeBody(raw []byte, status int) json.RawMessage {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && json.Valid(trimmed) {
		return json.RawMessage(trimmed)
	}

	msg := string(trimmed)
	if msg == "" {
		msg = http.StatusText(status)
	}

	wrapped, _ := json.Marshal(map[string]string{"msg": msg})

	return wrapped
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}

	return s[:n]
}
