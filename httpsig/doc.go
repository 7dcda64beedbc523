// Package httpsig reconstructs the signing base of signify-signed HTTP
// requests and verifies prefixed content digests.
//
// Signify clients sign four covered components under the single label
// "signify": the request method, the request path, and the
// Signify-Resource and Signify-Timestamp headers. The signature itself is
// checked by an external verifier; this package only rebuilds the exact
// string the client signed and extracts the encoded signature and the
// claimed identity.
//
// # Building the Signing Base
//
//	sr, err := httpsig.FromRequest(req)
//	if err != nil {
//	    // errors.Is(err, httpsig.ErrMalformedHeaders)
//	}
//
//	// sr.Identity, sr.Signature and sr.Base go to the verifier.
//
// For a POST to / the base looks like:
//
//	"@method": POST
//	"@path": /
//	"signify-resource": EP4kdoVrDh4Mpzh2QbocUYIv4IjLZLDU367UO0b40f6x
//	"signify-timestamp": 2024-05-04T20:20:33.730000+00:00
//	"@signature-params: (@method @path signify-resource signify-timestamp);created=1714854033;keyid=BPoZ...;alg=ed25519"
//
// # Digests
//
// Uploaded reports are addressed by a prefixed SHA-256 digest:
//
//	ok, err := httpsig.VerifyDigest(report, "sha256-ba486c1a...")
//
// # Signing Requests
//
// SignRequest and Transport produce the same headers a signify client
// sends, which is useful for tooling and tests:
//
//	signer, err := httpsig.NewEd25519Signer(privateKey)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	client := &http.Client{
//	    Transport: httpsig.NewTransport(nil, httpsig.SignConfig{
//	        Signer:   signer,
//	        Identity: aid,
//	    }),
//	}
package httpsig
