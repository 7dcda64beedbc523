package httpsig

import (
	"crypto/ed25519"
	"encoding/base64"
	"fmt"
)

// CESR derivation codes for the primitives produced here.
const (
	codeEd25519NonTransferable = "B"
	codeEd25519Signature       = "0B"
)

type ed25519Signer struct {
	key   ed25519.PrivateKey
	keyID string
}

// NewEd25519Signer creates a Signer using Ed25519. The key ID is the
// CESR-qualified non-transferable public key and signatures are
// CESR-qualified as well, matching what signify clients send.
func NewEd25519Signer(key ed25519.PrivateKey) (Signer, error) {
	if len(key) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("%w: ed25519 private key must be %d bytes", ErrInvalidKey, ed25519.PrivateKeySize)
	}

	pub, ok := key.Public().(ed25519.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: ed25519 public key unavailable", ErrInvalidKey)
	}

	return &ed25519Signer{
		key:   key,
		keyID: encodeQualified(codeEd25519NonTransferable, pub),
	}, nil
}

func (s *ed25519Signer) Sign(message []byte) (string, error) {
	return encodeQualified(codeEd25519Signature, ed25519.Sign(s.key, message)), nil
}

func (s *ed25519Signer) Algorithm() Algorithm { return AlgorithmEd25519 }
func (s *ed25519Signer) KeyID() string        { return s.keyID }

// encodeQualified renders raw as qualified base64: raw is left-padded with
// zero bytes to a multiple of three, encoded as base64url, and the leading
// pad characters are replaced with the derivation code. The code length
// equals the pad size for every code used in this package.
func encodeQualified(code string, raw []byte) string {
	pad := (3 - len(raw)%3) % 3

	padded := make([]byte, pad+len(raw))
	copy(padded[pad:], raw)

	encoded := base64.URLEncoding.EncodeToString(padded)

	return code + encoded[len(code):]
}
