package httpsig

import (
	"crypto/ed25519"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

type closeTracker struct {
	io.Reader
	closed bool
}

func (c *closeTracker) Close() error {
	c.closed = true
	return nil
}

func TestNewTransport(t *testing.T) {
	_, signer := newTestSigner(t)

	t.Run("nil next uses default transport", func(t *testing.T) {
		transport := NewTransport(nil, SignConfig{Signer: signer, Identity: "E"})
		assert.Equal(t, http.DefaultTransport, transport.next)
		assert.NoError(t, transport.err)
	})

	t.Run("missing signer", func(t *testing.T) {
		transport := NewTransport(nil, SignConfig{Identity: "E"})
		assert.ErrorIs(t, transport.err, ErrNoSigner)
	})

	t.Run("missing identity", func(t *testing.T) {
		transport := NewTransport(nil, SignConfig{Signer: signer})
		assert.ErrorIs(t, transport.err, ErrNoIdentity)
	})
}

func TestTransportSignsWithClock(t *testing.T) {
	_, signer := newTestSigner(t)

	var got *http.Request
	next := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		got = r
		return &http.Response{StatusCode: http.StatusOK, Body: http.NoBody, Request: r}, nil
	})

	transport := NewTransport(next, SignConfig{Signer: signer, Identity: fixtureResource})
	transport.now = func() time.Time { return time.Unix(1714854033, 0) }

	req := httptest.NewRequest(http.MethodGet, "/status/"+fixtureResource, nil)

	resp, err := transport.RoundTrip(req)
	require.NoError(t, err)
	resp.Body.Close()

	require.NotNil(t, got)
	assert.NotSame(t, req, got)
	assert.Equal(t, "2024-05-04T20:20:33.000000+00:00", got.Header.Get(HeaderTimestamp))
	assert.Contains(t, got.Header.Get(HeaderSignatureInput), ";created=1714854033;")
	assert.Empty(t, req.Header.Get(HeaderSignatureInput))
}

func TestTransportInvalidConfig(t *testing.T) {
	called := false
	next := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		called = true
		return nil, nil
	})

	body := &closeTracker{Reader: strings.NewReader("report")}
	req := httptest.NewRequest(http.MethodPost, "/upload", nil)
	req.Body = body

	_, err := NewTransport(next, SignConfig{Identity: "E"}).RoundTrip(req)
	assert.ErrorIs(t, err, ErrNoSigner)
	assert.False(t, called)
	assert.True(t, body.closed)
}

func TestTransportRoundTrip(t *testing.T) {
	pub, signer := newTestSigner(t)

	var (
		gotBase string
		gotSig  string
		gotBody string
		gotID   string
	)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sr, err := FromRequest(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}

		body, _ := io.ReadAll(r.Body)

		gotBase = sr.Base
		gotSig = sr.Signature
		gotID = sr.Identity
		gotBody = string(body)

		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	client := &http.Client{Transport: NewTransport(nil, SignConfig{Signer: signer, Identity: fixtureResource})}

	t.Run("signed request accepted", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodPost, srv.URL+"/upload/"+fixtureResource+"/sha256-abc", strings.NewReader("report"))
		require.NoError(t, err)

		resp, err := client.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusAccepted, resp.StatusCode)
		assert.Equal(t, fixtureResource, gotID)
		assert.Equal(t, "report", gotBody)
		assert.Contains(t, gotBase, "\"@path\": /upload/"+fixtureResource+"/sha256-abc\n")

		raw, err := decodeQualified(codeEd25519Signature, gotSig)
		require.NoError(t, err)
		assert.True(t, ed25519.Verify(pub, []byte(gotBase), raw))
	})

	t.Run("original request not mutated", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodGet, srv.URL+"/ping", nil)
		require.NoError(t, err)

		resp, err := client.Do(req)
		require.NoError(t, err)
		resp.Body.Close()

		assert.Empty(t, req.Header.Get(HeaderSignature))
		assert.Empty(t, req.Header.Get(HeaderResource))
	})

	t.Run("sign error surfaces", func(t *testing.T) {
		bad := &http.Client{Transport: NewTransport(nil, SignConfig{Signer: signer})}

		req, err := http.NewRequest(http.MethodGet, srv.URL+"/ping", nil)
		require.NoError(t, err)

		_, err = bad.Do(req)
		assert.ErrorIs(t, err, ErrNoIdentity)
	})
}
