package httpsig

// Algorithm identifies the signature algorithm announced in the alg
// parameter of Signature-Input.
type Algorithm string

// AlgorithmEd25519 is the Edwards-Curve Digital Signature Algorithm using
// curve 25519, the algorithm signify clients use.
const AlgorithmEd25519 Algorithm = "ed25519"

// String returns the string representation of the algorithm.
func (a Algorithm) String() string {
	return string(a)
}

// Signer creates signatures over signing bases.
type Signer interface {
	// Sign produces the encoded signature over the given message bytes.
	Sign(message []byte) (string, error)

	// Algorithm returns the algorithm identifier for this signer.
	Algorithm() Algorithm

	// KeyID returns the key identifier included in signature parameters.
	KeyID() string
}
