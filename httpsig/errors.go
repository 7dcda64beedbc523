package httpsig

import "errors"

// Signing errors.
var (
	// ErrNoSigner is returned when SignConfig has no Signer configured.
	ErrNoSigner = errors.New("httpsig: signer must not be nil")

	// ErrNoIdentity is returned when SignConfig has an empty Identity.
	ErrNoIdentity = errors.New("httpsig: identity must not be empty")
)

// Parsing errors.
var (
	// ErrMalformedHeaders is returned when one of the required signed
	// headers is absent or cannot be parsed.
	ErrMalformedHeaders = errors.New("httpsig: malformed signature headers")

	// ErrMissingHeader is returned when a required header is absent or empty.
	// It is always wrapped together with ErrMalformedHeaders.
	ErrMissingHeader = errors.New("httpsig: required header missing")

	// ErrSignatureNotFound is returned when no entry carries the signify
	// label in the Signature-Input or Signature header.
	ErrSignatureNotFound = errors.New("httpsig: signature not found")

	// ErrIndexedSignature is returned when the signify signature is flagged
	// as indexed. Only non-indexed signatures are accepted.
	ErrIndexedSignature = errors.New("httpsig: indexed signatures are not supported")

	// ErrCreatedRequired is returned when the Signature-Input entry has no
	// created parameter.
	ErrCreatedRequired = errors.New("httpsig: created parameter required")
)

// Key material errors.
var (
	// ErrInvalidKey is returned when key material is invalid.
	ErrInvalidKey = errors.New("httpsig: invalid key material")
)

// Digest errors.
var (
	// ErrMalformedDigest is returned when a digest string does not consist of
	// exactly one prefix and one value around the separator.
	ErrMalformedDigest = errors.New("httpsig: malformed digest")
)

// Component errors.
var (
	// ErrUnknownComponent is returned when an unrecognized derived component
	// identifier is used.
	ErrUnknownComponent = errors.New("httpsig: unknown component identifier")

	// ErrInvalidComponent is returned when a covered header component is not
	// a valid HTTP field name.
	ErrInvalidComponent = errors.New("httpsig: invalid component name")
)
