package httpsig

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDigest(t *testing.T) {
	t.Run("known value", func(t *testing.T) {
		assert.Equal(t, "sha256-ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", Digest([]byte("abc")))
	})

	t.Run("empty payload", func(t *testing.T) {
		assert.Equal(t, "sha256-e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", Digest(nil))
	})
}

func TestVerifyDigest(t *testing.T) {
	payload := []byte(`{"report":"contents"}`)

	t.Run("matches own digest", func(t *testing.T) {
		ok, err := VerifyDigest(payload, Digest(payload))
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("prefix not interpreted", func(t *testing.T) {
		ok, err := VerifyDigest(payload, "sha512"+DigestSeparator+computeDigest(payload))
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("single byte change", func(t *testing.T) {
		digest := Digest(payload)

		mutated := append([]byte(nil), payload...)
		mutated[3] ^= 0x01

		ok, err := VerifyDigest(mutated, digest)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("uppercase hex does not match", func(t *testing.T) {
		ok, err := VerifyDigest([]byte("abc"), "sha256-BA7816BF8F01CFEA414140DE5DAE2223B00361A396177A9CB410FF61F20015AD")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("no separator", func(t *testing.T) {
		_, err := VerifyDigest(payload, computeDigest(payload))
		assert.ErrorIs(t, err, ErrMalformedDigest)
	})

	t.Run("extra separator", func(t *testing.T) {
		_, err := VerifyDigest(payload, "sha-256-"+computeDigest(payload))
		assert.ErrorIs(t, err, ErrMalformedDigest)
	})

	t.Run("empty digest", func(t *testing.T) {
		_, err := VerifyDigest(payload, "")
		assert.ErrorIs(t, err, ErrMalformedDigest)
	})
}
