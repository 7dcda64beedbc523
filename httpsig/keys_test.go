package httpsig

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// decodeQualified reverses encodeQualified for codes whose length equals
// the pad size.
func decodeQualified(code, qb64 string) ([]byte, error) {
	if len(qb64) <= len(code) || qb64[:len(code)] != code {
		return nil, fmt.Errorf("%w: expected derivation code %q", ErrInvalidKey, code)
	}

	padded := strings.Repeat("A", len(code))

	raw, err := base64.URLEncoding.DecodeString(padded + qb64[len(code):])
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidKey, err)
	}

	return raw[len(code):], nil
}

func TestNewEd25519Signer(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	t.Run("valid key", func(t *testing.T) {
		signer, err := NewEd25519Signer(priv)
		require.NoError(t, err)

		assert.Equal(t, AlgorithmEd25519, signer.Algorithm())
		assert.Equal(t, "ed25519", signer.Algorithm().String())
		assert.Len(t, signer.KeyID(), 44)
		assert.True(t, strings.HasPrefix(signer.KeyID(), "B"))

		decoded, err := decodeQualified(codeEd25519NonTransferable, signer.KeyID())
		require.NoError(t, err)
		assert.Equal(t, []byte(pub), decoded)
	})

	t.Run("short key", func(t *testing.T) {
		_, err := NewEd25519Signer(priv[:16])
		assert.ErrorIs(t, err, ErrInvalidKey)
	})

	t.Run("nil key", func(t *testing.T) {
		_, err := NewEd25519Signer(nil)
		assert.ErrorIs(t, err, ErrInvalidKey)
	})
}

func TestEd25519SignerSign(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	signer, err := NewEd25519Signer(priv)
	require.NoError(t, err)

	message := []byte(fixtureBase)

	sig, err := signer.Sign(message)
	require.NoError(t, err)

	assert.Len(t, sig, 88)
	assert.True(t, strings.HasPrefix(sig, "0B"))

	raw, err := decodeQualified(codeEd25519Signature, sig)
	require.NoError(t, err)
	require.Len(t, raw, ed25519.SignatureSize)

	assert.True(t, ed25519.Verify(pub, message, raw))
	assert.False(t, ed25519.Verify(pub, []byte("other"), raw))
}

func TestEncodeQualified(t *testing.T) {
	t.Run("fixture key id", func(t *testing.T) {
		const keyID = "BPoZo2b3r--lPBpURvEDyjyDkS65xBEpmpQhHQvrwlBE"

		raw, err := decodeQualified("B", keyID)
		require.NoError(t, err)
		require.Len(t, raw, ed25519.PublicKeySize)

		assert.Equal(t, keyID, encodeQualified("B", raw))
	})

	t.Run("fixture signature", func(t *testing.T) {
		const sig = "0BBbeeBw3lVmQWYBpcFH9KmRXZocrqLH_LZL4aqg5W9-NMdXqIYJ-Sao7colSTJOuYllMXFfggoMhkfpTKnvPhUF"

		raw, err := decodeQualified("0B", sig)
		require.NoError(t, err)
		require.Len(t, raw, ed25519.SignatureSize)

		assert.Equal(t, sig, encodeQualified("0B", raw))
	})

	t.Run("wrong code", func(t *testing.T) {
		_, err := decodeQualified("0B", "BPoZo2b3r--lPBpURvEDyjyDkS65xBEpmpQhHQvrwlBE")
		assert.ErrorIs(t, err, ErrInvalidKey)
	})
}
