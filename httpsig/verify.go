package httpsig

import (
	"fmt"
	"net/http"
)

// SignedRequest is the result of reconstructing a signify signing base from
// request headers.
type SignedRequest struct {
	// Identity is the value of the Signify-Resource header: the signer's
	// claimed autonomous identifier.
	Identity string

	// Signature is the encoded signature carried under the signify label.
	Signature string

	// Base is the signing base passed byte-for-byte to the verifier.
	Base string

	// Input is the Signature-Input entry the base was built from.
	Input SignatureInput

	// Timestamp is the value of the Signify-Timestamp header.
	Timestamp string
}

// requiredHeaders must all be present and non-empty on a signed request.
var requiredHeaders = []string{
	HeaderSignatureInput,
	HeaderSignature,
	HeaderResource,
	HeaderTimestamp,
}

// FromRequest builds the signing base for r using its method and URL path.
func FromRequest(r *http.Request) (*SignedRequest, error) {
	return BuildSigningBase(r.Header, r.Method, r.URL.Path)
}

// BuildSigningBase reconstructs the signing base of a signify-signed
// request and extracts the signature and claimed identity.
//
// Every error wraps ErrMalformedHeaders. When the Signature-Input header
// carries several entries labelled signify, the last one wins.
func BuildSigningBase(h http.Header, method, path string) (*SignedRequest, error) {
	for _, name := range requiredHeaders {
		if headerValue(h, name) == "" {
			return nil, fmt.Errorf("%w: %w: %s", ErrMalformedHeaders, ErrMissingHeader, name)
		}
	}

	input, err := findSignatureInput(joinedHeader(h, HeaderSignatureInput), Label)
	if err != nil {
		return nil, err
	}

	base, err := buildSigningBase(input, h, method, path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedHeaders, err)
	}

	sig, err := findSignature(joinedHeader(h, HeaderSignature), Label)
	if err != nil {
		return nil, err
	}

	return &SignedRequest{
		Identity:  headerValue(h, HeaderResource),
		Signature: sig,
		Base:      base,
		Input:     input,
		Timestamp: headerValue(h, HeaderTimestamp),
	}, nil
}

// findSignatureInput returns the last Signature-Input entry with the given
// label. Entries with other labels are ignored without being parsed.
func findSignatureInput(header, label string) (SignatureInput, error) {
	var (
		selected SignatureInput
		found    bool
	)

	for _, entry := range splitQuoteAware(header, ',') {
		if entryLabel(entry) != label {
			continue
		}

		in, err := parseSignatureInputEntry(entry)
		if err != nil {
			return SignatureInput{}, err
		}

		selected = in
		found = true
	}

	if !found {
		return SignatureInput{}, fmt.Errorf("%w: %w: no %q input", ErrMalformedHeaders, ErrSignatureNotFound, label)
	}

	return selected, nil
}
