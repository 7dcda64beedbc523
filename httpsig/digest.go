package httpsig

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

const (
	// DigestSeparator separates the algorithm prefix from the hex digest.
	DigestSeparator = "-"

	// DigestPrefix is the prefix Digest emits.
	DigestPrefix = "sha256"
)

// Digest returns the prefixed digest string of payload: "sha256-<hex>".
func Digest(payload []byte) string {
	return DigestPrefix + DigestSeparator + computeDigest(payload)
}

// VerifyDigest reports whether the SHA-256 of payload, rendered as lowercase
// hex, equals the value part of digest exactly.
//
// The digest must contain exactly one separator between a prefix and the
// value, otherwise ErrMalformedDigest is returned before any hashing. The
// prefix itself is not interpreted.
func VerifyDigest(payload []byte, digest string) (bool, error) {
	parts := strings.Split(digest, DigestSeparator)
	if len(parts) != 2 {
		return false, fmt.Errorf("%w: digest %q must be <prefix>%s<hex>", ErrMalformedDigest, digest, DigestSeparator)
	}

	return computeDigest(payload) == parts[1], nil
}

// computeDigest returns the lowercase hex SHA-256 of data.
func computeDigest(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
