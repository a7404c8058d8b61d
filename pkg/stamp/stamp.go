package stamp

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
)

const (
	// Scheme is the signature scheme identifier Turnkey expects for
	// P-256 API key stamps.
	Scheme = "SIGNATURE_SCHEME_TK_API_P256"

	// HeaderName is the HTTP header that carries the encoded stamp.
	HeaderName = "X-Stamp"
)

// Stamp is the decoded form of the X-Stamp header value.
type Stamp struct {
	PublicKey string `json:"publicKey"`
	Signature string `json:"signature"`
	Scheme    string `json:"scheme"`
}

// Stamper holds a Turnkey API key pair and signs outbound request bodies.
// It is immutable after construction and safe for concurrent use.
type Stamper struct {
	privateKey   *ecdsa.PrivateKey
	publicKeyHex string
}

// New creates a Stamper from a hex-encoded API key pair. The private key is
// the 32-byte P-256 scalar, the public key the compressed SEC1 point, both
// as Turnkey displays them. When publicKeyHex is non-empty it is checked
// against the key derived from the private scalar, which catches swapped or
// mismatched credentials before the first request.
func New(publicKeyHex, privateKeyHex string) (*Stamper, error) {
	privateKeyHex = strings.TrimPrefix(privateKeyHex, "0x")
	publicKeyHex = strings.TrimPrefix(publicKeyHex, "0x")

	raw, err := hex.DecodeString(privateKeyHex)
	if err != nil {
		return nil, &SigningError{Reason: "private key is not valid hex", Err: err}
	}
	if len(raw) != 32 {
		return nil, &SigningError{Reason: fmt.Sprintf("private key must be 32 bytes, got %d", len(raw))}
	}

	curve := elliptic.P256()
	d := new(big.Int).SetBytes(raw)
	if d.Sign() == 0 || d.Cmp(curve.Params().N) >= 0 {
		return nil, &SigningError{Reason: "private key scalar is out of range"}
	}

	privateKey := &ecdsa.PrivateKey{
		PublicKey: ecdsa.PublicKey{Curve: curve},
		D:         d,
	}
	privateKey.PublicKey.X, privateKey.PublicKey.Y = curve.ScalarBaseMult(raw)

	derived := hex.EncodeToString(elliptic.MarshalCompressed(curve, privateKey.PublicKey.X, privateKey.PublicKey.Y))
	if publicKeyHex != "" && !strings.EqualFold(publicKeyHex, derived) {
		return nil, &SigningError{Reason: "public key does not match the key derived from the private key"}
	}

	return &Stamper{
		privateKey:   privateKey,
		publicKeyHex: derived,
	}, nil
}

// PublicKeyHex returns the compressed SEC1 public key in lowercase hex.
func (s *Stamper) PublicKeyHex() string {
	return s.publicKeyHex
}

// Stamp signs the exact body bytes and returns the X-Stamp header value.
func (s *Stamper) Stamp(body []byte) (string, error) {
	digest := sha256.Sum256(body)

	der, err := ecdsa.SignASN1(rand.Reader, s.privateKey, digest[:])
	if err != nil {
		return "", &SigningError{Reason: "signing request digest failed", Err: err}
	}

	encoded, err := json.Marshal(Stamp{
		PublicKey: s.publicKeyHex,
		Signature: hex.EncodeToString(der),
		Scheme:    Scheme,
	})
	if err != nil {
		return "", &SigningError{Reason: "encoding stamp failed", Err: err}
	}

	return base64.StdEncoding.EncodeToString(encoded), nil
}

// Verify decodes an X-Stamp header value and checks its signature over body
// against the public key it declares. This is the check the signer service
// performs on every request; tests use it to validate generated stamps.
func Verify(headerValue string, body []byte) error {
	raw, err := base64.StdEncoding.DecodeString(headerValue)
	if err != nil {
		return fmt.Errorf("stamp is not valid base64: %w", err)
	}

	var st Stamp
	if err := json.Unmarshal(raw, &st); err != nil {
		return fmt.Errorf("stamp is not valid JSON: %w", err)
	}
	if st.Scheme != Scheme {
		return fmt.Errorf("unexpected stamp scheme %q", st.Scheme)
	}

	pubBytes, err := hex.DecodeString(st.PublicKey)
	if err != nil {
		return fmt.Errorf("stamp public key is not valid hex: %w", err)
	}
	x, y := elliptic.UnmarshalCompressed(elliptic.P256(), pubBytes)
	if x == nil {
		return fmt.Errorf("stamp public key is not a compressed P-256 point")
	}

	sig, err := hex.DecodeString(st.Signature)
	if err != nil {
		return fmt.Errorf("stamp signature is not valid hex: %w", err)
	}

	digest := sha256.Sum256(body)
	publicKey := &ecdsa.PublicKey{Curve: elliptic.P256(), X: x, Y: y}
	if !ecdsa.VerifyASN1(publicKey, digest[:], sig) {
		return fmt.Errorf("stamp signature does not verify against declared public key")
	}

	return nil
}
