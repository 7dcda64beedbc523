package httpsig

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// Label is the only signature label this package recognizes.
const Label = "signify"

// SignatureInput is one parsed Signature-Input dictionary member. A
// parameter is serialized when it was declared in the parsed header or,
// for values built in code, when it is not zero.
type SignatureInput struct {
	Label      string
	Components []string
	Created    int64
	Expires    int64
	Nonce      string
	KeyID      string
	Context    string
	Alg        string

	declared paramSet
}

// paramSet records which optional parameters a parsed input declared, so
// that expires=0 or an empty nonce survive into the trailer.
type paramSet uint8

const (
	paramExpires paramSet = 1 << iota
	paramNonce
	paramKeyID
	paramContext
	paramAlg
)

func (in SignatureInput) has(p paramSet, nonZero bool) bool {
	return nonZero || in.declared&p != 0
}

// Params serializes the signature parameters in the form used by the
// @signature-params trailer line: the parenthesized component list followed
// by unquoted key=value assignments for created, expires, nonce, keyid,
// context and alg, in that order.
func (in SignatureInput) Params() string {
	values := []string{
		"(" + strings.Join(in.Components, " ") + ")",
		"created=" + strconv.FormatInt(in.Created, 10),
	}

	if in.has(paramExpires, in.Expires != 0) {
		values = append(values, "expires="+strconv.FormatInt(in.Expires, 10))
	}

	for _, p := range []struct {
		flag  paramSet
		key   string
		value string
	}{
		{paramNonce, "nonce", in.Nonce},
		{paramKeyID, "keyid", in.KeyID},
		{paramContext, "context", in.Context},
		{paramAlg, "alg", in.Alg},
	} {
		if in.has(p.flag, p.value != "") {
			values = append(values, p.key+"="+p.value)
		}
	}

	return strings.Join(values, ";")
}

// buildSigningBase constructs the signing base for one signature input.
// Each resolved covered component produces a line "<name>": <value>, and the
// final line is "@signature-params: <params>" quoted as a whole, which is
// the form signify clients sign. Lines are joined with "\n".
func buildSigningBase(in SignatureInput, h http.Header, method, path string) (string, error) {
	lines := make([]string, 0, len(in.Components)+1)

	for _, id := range in.Components {
		line, ok, err := componentLine(id, h, method, path)
		if err != nil {
			return "", err
		}

		if !ok {
			continue
		}

		lines = append(lines, line)
	}

	lines = append(lines, fmt.Sprintf("\"@signature-params: %s\"", in.Params()))

	return strings.Join(lines, "\n"), nil
}

// parseSignatureInputEntry parses one Signature-Input dictionary member.
//
// Expected format: label=("@method" "@path" ...);created=...;keyid="..."
func parseSignatureInputEntry(entry string) (SignatureInput, error) {
	key, value, ok := strings.Cut(entry, "=")
	if !ok {
		return SignatureInput{}, fmt.Errorf("%w: signature input member without value", ErrMalformedHeaders)
	}

	in, err := parseSignatureParams(strings.TrimSpace(value))
	if err != nil {
		return in, err
	}

	in.Label = strings.TrimSpace(key)

	return in, nil
}

// entryLabel returns the dictionary key of a member without parsing its value.
func entryLabel(entry string) string {
	key, _, _ := strings.Cut(entry, "=")
	return strings.TrimSpace(key)
}

// parseSignatureParams parses an inner list of component identifiers
// followed by ;key=value parameters.
func parseSignatureParams(raw string) (SignatureInput, error) {
	var in SignatureInput

	if !strings.HasPrefix(raw, "(") {
		return in, fmt.Errorf("%w: invalid signature params format", ErrMalformedHeaders)
	}

	closeParen := strings.IndexByte(raw, ')')
	if closeParen < 0 {
		return in, fmt.Errorf("%w: invalid signature params format", ErrMalformedHeaders)
	}

	in.Components = parseInnerList(raw[1:closeParen])

	hasCreated := false

	for _, part := range splitParams(raw[closeParen+1:]) {
		key, value, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}

		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		switch key {
		case "created":
			ts, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return in, fmt.Errorf("%w: invalid created timestamp", ErrMalformedHeaders)
			}
			in.Created = ts
			hasCreated = true

		case "expires":
			ts, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return in, fmt.Errorf("%w: invalid expires timestamp", ErrMalformedHeaders)
			}
			in.Expires = ts
			in.declared |= paramExpires

		case "nonce":
			in.Nonce = unquote(value)
			in.declared |= paramNonce

		case "keyid":
			in.KeyID = unquote(value)
			in.declared |= paramKeyID

		case "context":
			in.Context = unquote(value)
			in.declared |= paramContext

		case "alg":
			in.Alg = unquote(value)
			in.declared |= paramAlg
		}
	}

	if !hasCreated {
		return in, fmt.Errorf("%w: %w", ErrMalformedHeaders, ErrCreatedRequired)
	}

	return in, nil
}

// parseInnerList parses a space-separated list of quoted strings or tokens
// inside parentheses.
func parseInnerList(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	var items []string
	for len(s) > 0 {
		s = strings.TrimLeft(s, " ")
		if len(s) == 0 {
			break
		}

		if s[0] == '"' {
			end := strings.IndexByte(s[1:], '"')
			if end < 0 {
				// Malformed, take the rest.
				items = append(items, s[1:])
				break
			}

			items = append(items, s[1:end+1])
			s = s[end+2:]
		} else {
			end := strings.IndexByte(s, ' ')
			if end < 0 {
				items = append(items, s)
				break
			}

			items = append(items, s[:end])
			s = s[end+1:]
		}
	}

	return items
}

// splitQuoteAware splits s on delim while respecting "..." quoted regions.
// Backslash-escaped quotes (\") inside quoted strings are handled. Each
// resulting part is trimmed of whitespace and empty parts are skipped.
func splitQuoteAware(s string, delim byte) []string {
	var result []string
	var part strings.Builder
	inQuote := false

	for i := 0; i < len(s); i++ {
		ch := s[i]

		if inQuote {
			if ch == '\\' && i+1 < len(s) {
				part.WriteByte(ch)
				i++
				part.WriteByte(s[i])
				continue
			}

			if ch == '"' {
				inQuote = false
			}

			part.WriteByte(ch)
			continue
		}

		if ch == '"' {
			inQuote = true
			part.WriteByte(ch)
			continue
		}

		if ch == delim {
			p := strings.TrimSpace(part.String())
			if p != "" {
				result = append(result, p)
			}

			part.Reset()
			continue
		}

		part.WriteByte(ch)
	}

	if p := strings.TrimSpace(part.String()); p != "" {
		result = append(result, p)
	}

	return result
}

// splitParams splits ";key=value" parameter pairs.
func splitParams(s string) []string {
	s = strings.TrimLeft(s, " ")
	if s == "" {
		return nil
	}

	return splitQuoteAware(s, ';')
}

// quoteRFC8941 produces an RFC 8941 quoted-string. Only backslash and
// double-quote are escaped (Section 3.3.3).
func quoteRFC8941(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')

	for i := 0; i < len(s); i++ {
		ch := s[i]
		if ch == '\\' || ch == '"' {
			b.WriteByte('\\')
		}

		b.WriteByte(ch)
	}

	b.WriteByte('"')

	return b.String()
}

// unquote removes surrounding double quotes and unescapes RFC 8941
// escape sequences (\\ → \ and \" → ").
func unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}

	if !strings.Contains(s, `\`) {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))

	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			i++
			b.WriteByte(s[i])

			continue
		}

		b.WriteByte(s[i])
	}

	return b.String()
}
