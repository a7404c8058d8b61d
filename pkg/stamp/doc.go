// Package stamp produces Turnkey API stamps: the per-request authentication
// signatures the signer service verifies before processing any call.
//
// A stamp is an ECDSA P-256 signature over the SHA-256 digest of the exact
// request body bytes, DER-encoded, hex-encoded, and wrapped in a small JSON
// envelope that is base64-encoded into the X-Stamp header:
//
//	base64(JSON{publicKey, signature, scheme})
//
// The body must be transmitted byte-for-byte as it was signed. Any
// re-serialization between stamping and sending invalidates the request at
// the service.
//
// # Security Design
//
// The private API key is parsed once at construction and held only as an
// in-memory signing key. The package never exposes private key material:
// Stamper has no accessor for it, String/GoString are not implemented over
// it, and no code path serializes it into logs or errors.
//
// Usage
//
//	stamper, err := stamp.New(apiPublicKeyHex, apiPrivateKeyHex)
//	if err != nil {
//	    return err
//	}
//	header, err := stamper.Stamp(bodyBytes)
//	if err != nil {
//	    return err
//	}
//	req.Header.Set(stamp.HeaderName, header)
package stamp
