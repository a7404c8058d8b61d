package turnkey

import (
	"context"

	"github.com/gagliardetto/solana-go"
	"github.com/pkg/errors"
)

// solanaSignatureLen is the length of an Ed25519 transaction signature.
const solanaSignatureLen = 64

// SignTransaction signs a Solana transaction with the key named by the
// selector and writes the returned signature into the matching signature
// slot. It returns the signed transaction together with the detached
// signature, which callers may need independently of the transaction.
//
// The byte span that is signed is the transaction's canonical message
// encoding, so the signature stays valid for exactly the instructions,
// blockhash and fee payer the transaction carried when this was called.
// On any error the transaction is left unmodified.
//
// Example:
//
//	tx, err := solana.NewTransaction(instructions, blockhash, solana.TransactionPayer(payer))
//	if err != nil {
//	    return err
//	}
//	signedTx, sig, err := client.SignTransaction(ctx, tx, turnkey.ExampleKey())
//	if err != nil {
//	    return err
//	}
//	fmt.Println("signature:", sig)
func (c *Client) SignTransaction(ctx context.Context, tx *solana.Transaction, selector KeySelector) (*solana.Transaction, solana.Signature, error) {
	if tx == nil {
		return nil, solana.Signature{}, errors.New("nil transaction")
	}

	identity, err := resolveSigner(selector, c.cfg)
	if err != nil {
		return nil, solana.Signature{}, err
	}

	message, err := tx.Message.MarshalBinary()
	if err != nil {
		return nil, solana.Signature{}, errors.Wrap(err, "serializing transaction message")
	}

	sigBytes, err := c.SignRawPayload(ctx, identity.SignWith, message)
	if err != nil {
		return nil, solana.Signature{}, err
	}

	signature, err := applySignature(tx, identity.PublicKey, sigBytes)
	if err != nil {
		return nil, solana.Signature{}, err
	}

	c.lg.Info("transaction signed",
		"selector", selector.String(),
		"signer", identity.PublicKey.String(),
		"signature", signature.String(),
	)
	return tx, signature, nil
}

// applySignature writes sig into the signature slot belonging to signer.
// The signer must occupy a slot below the message's required-signature
// count; otherwise nothing is written and the caller gets
// SignerNotRequiredError. Only the matched slot is touched, so applying the
// same signature twice is idempotent.
func applySignature(tx *solana.Transaction, signer solana.PublicKey, sig []byte) (solana.Signature, error) {
	if len(sig) != solanaSignatureLen {
		return solana.Signature{}, errors.Errorf("signature must be %d bytes, got %d", solanaSignatureLen, len(sig))
	}

	index := -1
	for i, key := range tx.Message.AccountKeys {
		if key.Equals(signer) {
			index = i
			break
		}
	}
	required := int(tx.Message.Header.NumRequiredSignatures)
	if index < 0 || index >= required {
		return solana.Signature{}, &SignerNotRequiredError{PublicKey: signer}
	}

	// An unsigned transaction may carry fewer slots than required signers;
	// absent slots hold the default all-zero signature.
	for len(tx.Signatures) < required {
		tx.Signatures = append(tx.Signatures, solana.Signature{})
	}

	var signature solana.Signature
	copy(signature[:], sig)
	tx.Signatures[index] = signature
	return signature, nil
}
