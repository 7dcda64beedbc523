package httpsig

import (
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/net/http/httpguts"
)

// Derived component identifiers recognized by the signing base builder.
const (
	ComponentMethod = "@method"
	ComponentPath   = "@path"
)

// Header names of the signify header set.
const (
	HeaderSignatureInput = "Signature-Input"
	HeaderSignature      = "Signature"
	HeaderResource       = "Signify-Resource"
	HeaderTimestamp      = "Signify-Timestamp"
)

// DefaultCoveredComponents is the component list signify clients sign.
var DefaultCoveredComponents = []string{
	ComponentMethod,
	ComponentPath,
	"signify-resource",
	"signify-timestamp",
}

// componentLine resolves a covered component to its signing base line.
// The boolean result is false when a header component is absent from the
// request, in which case the component is skipped.
func componentLine(id string, h http.Header, method, path string) (string, bool, error) {
	if strings.HasPrefix(id, "@") {
		val, err := derivedComponentValue(id, method, path)
		if err != nil {
			return "", false, err
		}

		return fmt.Sprintf("%q: %s", id, val), true, nil
	}

	if !httpguts.ValidHeaderFieldName(id) {
		return "", false, fmt.Errorf("%w: %q", ErrInvalidComponent, id)
	}

	values := headerValues(h, id)
	if len(values) == 0 {
		return "", false, nil
	}

	return fmt.Sprintf("%q: %s", strings.ToLower(id), normalize(strings.Join(values, ", "))), true, nil
}

// derivedComponentValue returns the value of @method or @path. The method is
// used verbatim and the path is taken as delivered by the transport.
func derivedComponentValue(id, method, path string) (string, error) {
	switch id {
	case ComponentMethod:
		return method, nil

	case ComponentPath:
		if path == "" {
			path = "/"
		}

		return path, nil

	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownComponent, id)
	}
}

// headerValues looks a header up case-insensitively. Canonical keys are
// tried first; maps populated without canonicalization fall back to a scan.
func headerValues(h http.Header, name string) []string {
	if values := h.Values(name); len(values) > 0 {
		return values
	}

	for key, values := range h {
		if strings.EqualFold(key, name) && len(values) > 0 {
			return values
		}
	}

	return nil
}

// headerValue returns the first non-empty value of a header, matched
// case-insensitively.
func headerValue(h http.Header, name string) string {
	for _, v := range headerValues(h, name) {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}

	return ""
}

// joinedHeader combines every field line of a dictionary header into one
// value, as RFC 8941 prescribes for repeated field lines.
func joinedHeader(h http.Header, name string) string {
	return strings.Join(headerValues(h, name), ", ")
}

// normalize collapses runs of whitespace into single spaces and trims the
// result.
func normalize(v string) string {
	return strings.Join(strings.Fields(v), " ")
}
