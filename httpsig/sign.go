package httpsig

import (
	"crypto/rand"
	"encoding/base64"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// nonceSize is the number of random bytes used to generate a nonce.
const nonceSize = 16

// TimestampLayout is the Signify-Timestamp format: ISO 8601 with
// microseconds and a numeric UTC offset.
const TimestampLayout = "2006-01-02T15:04:05.000000-07:00"

// GenerateNonce returns a cryptographically random nonce string suitable
// for use in SignConfig.Nonce. The returned value is 16 random bytes
// encoded as unpadded base64url (22 characters).
func GenerateNonce() (string, error) {
	b := make([]byte, nonceSize)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}

	return base64.RawURLEncoding.EncodeToString(b), nil
}

// SignConfig configures signify request signing.
type SignConfig struct {
	// Signer produces signatures. Required.
	Signer Signer

	// Identity is the autonomous identifier sent in Signify-Resource.
	// Required.
	Identity string

	// Nonce is an optional nonce value included in signature parameters.
	Nonce string

	// Context is an optional context tag included in signature parameters.
	Context string

	// Created sets the signature creation time. When zero, time.Now() is
	// used. It also determines the Signify-Timestamp header value.
	Created time.Time

	// Expires sets the signature expiration time. When zero, no expiration
	// is set.
	Expires time.Time
}

// SignRequest signs r in-place the way signify clients do: it sets
// Signify-Resource and Signify-Timestamp, declares the default covered
// components under the signify label in Signature-Input, and adds the
// non-indexed Signature. Existing signature headers are replaced.
func SignRequest(r *http.Request, cfg SignConfig) error {
	if cfg.Signer == nil {
		return ErrNoSigner
	}

	if cfg.Identity == "" {
		return ErrNoIdentity
	}

	created := cfg.Created
	if created.IsZero() {
		created = time.Now()
	}

	r.Header.Set(HeaderResource, cfg.Identity)
	r.Header.Set(HeaderTimestamp, created.UTC().Format(TimestampLayout))

	in := SignatureInput{
		Label:      Label,
		Components: DefaultCoveredComponents,
		Created:    created.Unix(),
		Nonce:      cfg.Nonce,
		KeyID:      cfg.Signer.KeyID(),
		Context:    cfg.Context,
		Alg:        cfg.Signer.Algorithm().String(),
	}

	if !cfg.Expires.IsZero() {
		in.Expires = cfg.Expires.Unix()
	}

	base, err := buildSigningBase(in, r.Header, r.Method, r.URL.Path)
	if err != nil {
		return err
	}

	sig, err := cfg.Signer.Sign([]byte(base))
	if err != nil {
		return err
	}

	r.Header.Set(HeaderSignatureInput, Label+"="+serializeSignatureInput(in))
	r.Header.Set(HeaderSignature, "indexed=\"?0\";"+Label+"="+quoteRFC8941(sig))

	return nil
}

// serializeSignatureInput renders the structured Signature-Input member
// value: quoted component identifiers, integer timestamps and quoted string
// parameters.
func serializeSignatureInput(in SignatureInput) string {
	var b strings.Builder

	b.WriteByte('(')
	for i, id := range in.Components {
		if i > 0 {
			b.WriteByte(' ')
		}

		b.WriteString(quoteRFC8941(id))
	}
	b.WriteByte(')')

	b.WriteString(";created=")
	b.WriteString(strconv.FormatInt(in.Created, 10))

	if in.Expires != 0 {
		b.WriteString(";expires=")
		b.WriteString(strconv.FormatInt(in.Expires, 10))
	}

	for _, p := range []struct{ key, value string }{
		{"nonce", in.Nonce},
		{"keyid", in.KeyID},
		{"context", in.Context},
		{"alg", in.Alg},
	} {
		if p.value == "" {
			continue
		}

		b.WriteString(";")
		b.WriteString(p.key)
		b.WriteString("=")
		b.WriteString(quoteRFC8941(p.value))
	}

	return b.String()
}
