package httpsig

import (
	"fmt"
	"strings"
)

// Signage is one signature group of a Signature header. A group is a
// ;-separated parameter list; reserved keys describe the group and every
// other key is a marker mapping a label to an encoded signature.
//
// Example: indexed="?0";signify="0BBbeeBw3lVm..."
type Signage struct {
	Indexed bool
	Signer  string
	Ordinal string
	Digest  string
	Kind    string
	Markers map[string]string
}

// ParseSignature parses a Signature header into its signature groups.
// Groups are separated by commas.
func ParseSignature(header string) ([]Signage, error) {
	var signages []Signage

	for _, group := range splitQuoteAware(header, ',') {
		s := Signage{Markers: make(map[string]string)}

		for _, part := range splitParams(group) {
			key, value, ok := strings.Cut(part, "=")
			key = strings.TrimSpace(key)

			if !ok {
				// RFC 8941 bare key means boolean true.
				if key == "indexed" {
					s.Indexed = true
				}

				continue
			}

			value = unquote(strings.TrimSpace(value))

			switch key {
			case "indexed":
				indexed, err := parseBoolean(value)
				if err != nil {
					return nil, err
				}
				s.Indexed = indexed

			case "signer":
				s.Signer = value

			case "ordinal":
				s.Ordinal = value

			case "digest":
				s.Digest = value

			case "kind":
				s.Kind = value

			default:
				s.Markers[key] = stripByteSequence(value)
			}
		}

		signages = append(signages, s)
	}

	if len(signages) == 0 {
		return nil, fmt.Errorf("%w: empty signature header", ErrMalformedHeaders)
	}

	return signages, nil
}

// findSignature returns the encoded signature carried under label. Exactly
// one group must carry the label and that group must not be indexed.
func findSignature(header, label string) (string, error) {
	signages, err := ParseSignature(header)
	if err != nil {
		return "", err
	}

	var (
		found   string
		indexed bool
		count   int
	)

	for _, s := range signages {
		sig, ok := s.Markers[label]
		if !ok {
			continue
		}

		found = sig
		indexed = s.Indexed
		count++
	}

	switch {
	case count == 0:
		return "", fmt.Errorf("%w: %w: no %q marker", ErrMalformedHeaders, ErrSignatureNotFound, label)
	case count > 1:
		return "", fmt.Errorf("%w: %d signatures labelled %q", ErrMalformedHeaders, count, label)
	case indexed:
		return "", fmt.Errorf("%w: %w", ErrMalformedHeaders, ErrIndexedSignature)
	case found == "":
		return "", fmt.Errorf("%w: empty %q signature", ErrMalformedHeaders, label)
	}

	return found, nil
}

// parseBoolean parses an RFC 8941 boolean (?0 or ?1).
func parseBoolean(v string) (bool, error) {
	switch v {
	case "?0":
		return false, nil
	case "?1":
		return true, nil
	default:
		return false, fmt.Errorf("%w: invalid boolean %q", ErrMalformedHeaders, v)
	}
}

// stripByteSequence removes the colons of an RFC 8941 byte sequence so that
// :base64: and bare encodings yield the same value.
func stripByteSequence(v string) string {
	if len(v) >= 2 && v[0] == ':' && v[len(v)-1] == ':' {
		return v[1 : len(v)-1]
	}

	return v
}
