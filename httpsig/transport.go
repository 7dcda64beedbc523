package httpsig

import (
	"fmt"
	"net/http"
	"time"
)

// Transport is an http.RoundTripper that signs each request as one signify
// identity before passing it on. The caller's request is never modified.
type Transport struct {
	next http.RoundTripper
	cfg  SignConfig
	err  error
	now  func() time.Time
}

// NewTransport returns a Transport that signs with cfg and sends through
// next, or http.DefaultTransport when next is nil. A cfg without a signer
// or identity gives a Transport whose round trips all fail.
func NewTransport(next http.RoundTripper, cfg SignConfig) *Transport {
	if next == nil {
		next = http.DefaultTransport
	}

	t := &Transport{next: next, cfg: cfg, now: time.Now}

	switch {
	case cfg.Signer == nil:
		t.err = ErrNoSigner
	case cfg.Identity == "":
		t.err = ErrNoIdentity
	}

	return t
}

// RoundTrip signs a clone of req stamped with the current time and sends it.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.err != nil {
		closeBody(req)
		return nil, fmt.Errorf("httpsig: transport: %w", t.err)
	}

	out := req.Clone(req.Context())

	cfg := t.cfg
	if cfg.Created.IsZero() {
		cfg.Created = t.now()
	}

	if err := SignRequest(out, cfg); err != nil {
		closeBody(req)
		return nil, fmt.Errorf("httpsig: sign %s %s: %w", req.Method, req.URL.Path, err)
	}

	return t.next.RoundTrip(out)
}

// closeBody honors the RoundTripper contract of closing the body on error.
func closeBody(req *http.Request) {
	if req.Body != nil {
		_ = req.Body.Close()
	}
}
