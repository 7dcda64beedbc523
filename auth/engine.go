// Package auth decides whether a signify-signed request may act on behalf
// of the identity it targets, and whether that identity may see a given
// report.
//
// A request is authorized when its signature headers are well formed, the
// signer named in Signify-Resource is the identity in the request path, and
// the external verifier accepts the signature over the rebuilt signing
// base. Report access is granted per organization through the registry.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/ronakseth96/reg-pilot-api/httpsig"
	"github.com/ronakseth96/reg-pilot-api/registry"
	"github.com/ronakseth96/reg-pilot-api/verifier"
)

// DefaultTimeout bounds each external signature verification.
const DefaultTimeout = 5 * time.Second

// SignatureVerifier checks a signature over a signing base on behalf of an
// identity. *verifier.Client implements it.
type SignatureVerifier interface {
	VerifySignature(ctx context.Context, aid, sig, base string) (*verifier.Response, error)
}

// Scope selects which reports ListReports returns.
type Scope int

const (
	// ScopeOwn lists the reports the identity submitted itself.
	ScopeOwn Scope = iota

	// ScopeOrganization lists the reports of every identity in the same
	// organization.
	ScopeOrganization
)

// ParseScope parses the scope query parameter. An empty value is ScopeOwn.
func ParseScope(s string) (Scope, error) {
	switch s {
	case "", "own", "aid":
		return ScopeOwn, nil
	case "organization", "lei":
		return ScopeOrganization, nil
	default:
		return ScopeOwn, fmt.Errorf("auth: unknown scope %q", s)
	}
}

// Result describes an authorized request.
type Result struct {
	Identity string
	Request  *httpsig.SignedRequest
	Verifier *verifier.Response
	State    State
}

// Engine runs the authorization flow. It is safe for concurrent use.
type Engine struct {
	verifier SignatureVerifier
	registry *registry.Registry
	logger   zerolog.Logger
	timeout  time.Duration
	metrics  *Metrics
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger. Request-scoped loggers found in the
// context take precedence.
func WithLogger(logger zerolog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithTimeout bounds each external verification. Non-positive values keep
// DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithMetrics records decisions and verifier latency in m.
func WithMetrics(m *Metrics) Option {
	return func(e *Engine) {
		if m != nil {
			e.metrics = m
		}
	}
}

// New creates an Engine that delegates signature checks to v and keeps
// identity and report state in reg.
func New(v SignatureVerifier, reg *registry.Registry, opts ...Option) *Engine {
	e := &Engine{
		verifier: v,
		registry: reg,
		logger:   zerolog.Nop(),
		timeout:  DefaultTimeout,
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.metrics == nil {
		// unregistered collectors keep the call sites unconditional
		e.metrics, _ = NewMetrics(nil)
	}

	return e
}

// Authenticate runs AuthenticateRequest with the request's context, headers,
// method and URL path.
func (e *Engine) Authenticate(r *http.Request, claimed string) (*Result, error) {
	return e.AuthenticateRequest(r.Context(), r.Header, r.Method, r.URL.Path, claimed)
}

// AuthenticateRequest authorizes a signed request for the claimed
// identity. Every error is an *Error.
func (e *Engine) AuthenticateRequest(ctx context.Context, h http.Header, method, path, claimed string) (*Result, error) {
	res, err := e.authenticate(ctx, h, method, path, claimed)
	e.metrics.observeDecision(err)

	return res, err
}

// authenticate runs the signature flow without recording a decision.
func (e *Engine) authenticate(ctx context.Context, h http.Header, method, path, claimed string) (res *Result, err error) {
	logger := e.loggerFrom(ctx).With().Str("aid", claimed).Logger()
	state := StateReceived

	defer func() {
		if rec := recover(); rec != nil {
			res = nil
			err = newError(ErrInternal, http.StatusInternalServerError, "internal error", fmt.Errorf("panic: %v", rec))
		}

		if err != nil {
			logger.Warn().Err(err).Str("state", state.String()).Msg("request rejected")
		} else {
			logger.Debug().Msg("request authorized")
		}
	}()

	sr, err := httpsig.BuildSigningBase(h, method, path)
	if err != nil {
		return nil, newError(ErrMalformedSignatureHeaders, http.StatusUnauthorized, "Incorrect Headers", err)
	}
	state = StateHeadersParsed

	if sr.Identity != claimed {
		return nil, newError(ErrIdentityMismatch, http.StatusUnauthorized,
			fmt.Sprintf("Header AID %s does not match request %s", sr.Identity, claimed), nil)
	}
	state = StateIdentityMatched

	resp, err := e.verify(ctx, claimed, sr)
	if err != nil {
		return nil, err
	}
	state = StateExternallyVerified
	logger.Debug().Str("state", state.String()).Msg("signature accepted by verifier")

	state = StateAuthorized

	return &Result{
		Identity: claimed,
		Request:  sr,
		Verifier: resp,
		State:    state,
	}, nil
}

func (e *Engine) verify(ctx context.Context, aid string, sr *httpsig.SignedRequest) (*verifier.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	start := time.Now()
	resp, err := e.verifier.VerifySignature(ctx, aid, sr.Signature, sr.Base)
	e.metrics.observeVerifier(time.Since(start).Seconds(), err)

	if err == nil {
		return resp, nil
	}

	var se *verifier.StatusError

	switch {
	case errors.As(err, &se):
		ae := newError(ErrExternalVerificationFailed, se.StatusCode, "signature verification failed", err)
		ae.Body = se.Body

		return nil, ae

	case errors.Is(err, verifier.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return nil, newError(ErrExternalVerificationFailed, http.StatusUnauthorized, "signature verification timed out", err)

	default:
		return nil, newError(ErrExternalVerificationFailed, http.StatusBadGateway, "verifier unavailable", err)
	}
}

// AuthorizeDigest authenticates r for claimed and then requires that the
// claimed identity's organization submitted digest.
func (e *Engine) AuthorizeDigest(r *http.Request, claimed, digest string) (res *Result, err error) {
	defer func() { e.metrics.observeDecision(err) }()

	res, err = e.authenticate(r.Context(), r.Header, r.Method, r.URL.Path, claimed)
	if err != nil {
		return nil, err
	}

	if !e.registry.IsAuthorized(claimed, digest) {
		e.loggerFrom(r.Context()).Warn().Str("aid", claimed).Str("dig", digest).Msg("digest not authorized")

		return nil, newError(ErrNotAuthorizedForDigest, http.StatusForbidden,
			fmt.Sprintf("AID %s is not authorized to check the status of %s", claimed, digest), nil)
	}

	return res, nil
}

// VerifyDigest checks payload against a prefixed digest. Only failures are
// counted as decisions.
func (e *Engine) VerifyDigest(payload []byte, digest string) error {
	ok, err := httpsig.VerifyDigest(payload, digest)
	if err != nil {
		ae := newError(ErrMalformedDigest, http.StatusBadRequest, "Report digest is malformed", err)
		e.metrics.observeDecision(ae)

		return ae
	}

	if !ok {
		ae := newError(ErrDigestMismatch, http.StatusBadRequest, "Report digest verification failed", nil)
		e.metrics.observeDecision(ae)

		return ae
	}

	return nil
}

// Register maps identity to its organization.
func (e *Engine) Register(identity, org string) {
	e.registry.Register(identity, org)
}

// IsAuthorizedForDigest reports whether identity's organization submitted
// digest.
func (e *Engine) IsAuthorizedForDigest(identity, digest string) bool {
	return e.registry.IsAuthorized(identity, digest)
}

// RecordReport stores an accepted report and authorizes its digest for the
// submitter's organization.
func (e *Engine) RecordReport(identity, digest string, payload json.RawMessage) registry.Report {
	return e.registry.Record(identity, digest, payload)
}

// ListReports returns the reports visible to identity in scope.
func (e *Engine) ListReports(identity string, scope Scope) []registry.Report {
	if scope == ScopeOrganization {
		return e.registry.ForOrganization(identity)
	}

	return e.registry.ForIdentity(identity)
}

// ClearReports empties identity's own report list.
func (e *Engine) ClearReports(identity string) {
	e.registry.Clear(identity)
}

func (e *Engine) loggerFrom(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		return l
	}

	return &e.logger
}
