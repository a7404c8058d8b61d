package turnkey

import (
	"context"
	"encoding/hex"
	"strings"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
)

// SignEthereumTransaction signs an RLP-serialized unsigned Ethereum
// transaction with the key named in signWith (a private key id or the
// key's 0x address) and returns the decoded signed transaction, ready to
// broadcast with an Ethereum client.
func (c *Client) SignEthereumTransaction(ctx context.Context, unsignedTx []byte, signWith string) (*types.Transaction, error) {
	signedHex, err := c.SignSerializedTransaction(ctx, TransactionTypeEthereum, unsignedTx, signWith)
	if err != nil {
		return nil, err
	}
	return ParseSignedEthereumTransaction(signedHex)
}

// ParseSignedEthereumTransaction decodes the hex transaction serialization
// returned by a completed sign-transaction activity. It accepts both legacy
// RLP and typed (EIP-2718) envelopes, with or without a 0x prefix.
func ParseSignedEthereumTransaction(signedHex string) (*types.Transaction, error) {
	raw, err := hex.DecodeString(strings.TrimPrefix(signedHex, "0x"))
	if err != nil {
		return nil, errors.Wrap(err, "decoding signed transaction hex")
	}

	tx := new(types.Transaction)
	if err := tx.UnmarshalBinary(raw); err != nil {
		return nil, errors.Wrap(err, "decoding signed transaction")
	}
	return tx, nil
}
