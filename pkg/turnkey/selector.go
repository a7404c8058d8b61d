package turnkey

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
)

type keySelectorKind int

const (
	selectExampleKey keySelectorKind = iota + 1
	selectPublicKey
	selectKeyID
)

// KeySelector names the signing identity an operation should use. Exactly
// one variant is active; construct one with ExampleKey, WithPublicKey or
// WithKeyID. The zero value is invalid and fails resolution.
type KeySelector struct {
	kind      keySelectorKind
	publicKey string
	keyID     string
}

// ExampleKey selects the pre-configured example key: TURNKEY_PRIVATE_KEY_ID
// as the signer, TURNKEY_EXAMPLE_PUBLIC_KEY as its Solana address.
func ExampleKey() KeySelector {
	return KeySelector{kind: selectExampleKey}
}

// WithPublicKey selects a signing key by its base58 Solana address. The
// service resolves the key holding that address, and the same address
// locates the signature slot in the transaction.
func WithPublicKey(publicKey string) KeySelector {
	return KeySelector{kind: selectPublicKey, publicKey: publicKey}
}

// WithKeyID selects a signing key by its Turnkey key id. The key's base58
// Solana address must be supplied alongside: resolution never calls the
// service, and the address is what locates the signature slot.
func WithKeyID(keyID, publicKey string) KeySelector {
	return KeySelector{kind: selectKeyID, keyID: keyID, publicKey: publicKey}
}

// String describes the selector for logs without resolving it.
func (s KeySelector) String() string {
	switch s.kind {
	case selectExampleKey:
		return "example-key"
	case selectPublicKey:
		return "public-key:" + s.publicKey
	case selectKeyID:
		return "key-id:" + s.keyID
	}
	return "invalid"
}

// SignerIdentity is a resolved signing identity: the signWith value the
// service accepts, and the Solana public key owning the transaction's
// signature slot.
type SignerIdentity struct {
	SignWith  string
	PublicKey solana.PublicKey
}

// resolveSigner maps a selector to a concrete identity. It is a pure
// function of the selector and the configuration; it never calls the
// service and never returns a partially populated identity.
func resolveSigner(selector KeySelector, cfg Config) (SignerIdentity, error) {
	switch selector.kind {
	case selectExampleKey:
		if cfg.PrivateKeyID == "" {
			return SignerIdentity{}, &ConfigurationError{
				Field:  "PrivateKeyID",
				Reason: "the example key selector requires TURNKEY_PRIVATE_KEY_ID",
			}
		}
		if cfg.ExamplePublicKey == "" {
			return SignerIdentity{}, &ConfigurationError{
				Field:  "ExamplePublicKey",
				Reason: "the example key selector requires TURNKEY_EXAMPLE_PUBLIC_KEY",
			}
		}
		publicKey, err := solana.PublicKeyFromBase58(cfg.ExamplePublicKey)
		if err != nil {
			return SignerIdentity{}, &InvalidKeyFormatError{
				Value:  cfg.ExamplePublicKey,
				Reason: fmt.Sprintf("example public key is not a base58 Solana public key: %v", err),
			}
		}
		return SignerIdentity{SignWith: cfg.PrivateKeyID, PublicKey: publicKey}, nil

	case selectPublicKey:
		publicKey, err := solana.PublicKeyFromBase58(selector.publicKey)
		if err != nil {
			return SignerIdentity{}, &InvalidKeyFormatError{
				Value:  selector.publicKey,
				Reason: fmt.Sprintf("not a base58 Solana public key: %v", err),
			}
		}
		return SignerIdentity{SignWith: publicKey.String(), PublicKey: publicKey}, nil

	case selectKeyID:
		if _, err := uuid.Parse(selector.keyID); err != nil {
			return SignerIdentity{}, &InvalidKeyFormatError{
				Value:  selector.keyID,
				Reason: "key id must be a UUID",
			}
		}
		publicKey, err := solana.PublicKeyFromBase58(selector.publicKey)
		if err != nil {
			return SignerIdentity{}, &InvalidKeyFormatError{
				Value:  selector.publicKey,
				Reason: fmt.Sprintf("not a base58 Solana public key: %v", err),
			}
		}
		return SignerIdentity{SignWith: selector.keyID, PublicKey: publicKey}, nil
	}

	return SignerIdentity{}, &InvalidKeyFormatError{Reason: "uninitialized key selector"}
}
