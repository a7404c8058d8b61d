package main

import (
	"os"

	"github.com/gagliardetto/solana-go"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/Eliascm17/turnkey/pkg/turnkey"
)

// transferJob describes one transfer for the signer service to authorize,
// read from a YAML file so runs are reproducible.
type transferJob struct {
	Recipient string `yaml:"recipient"`
	AmountSOL string `yaml:"amount_sol"`
	Broadcast bool   `yaml:"broadcast"`

	// Optional signer override. When both are empty the transfer is signed
	// with the example key from the environment.
	KeyID     string `yaml:"key_id"`
	PublicKey string `yaml:"public_key"`

	recipient solana.PublicKey
	lamports  uint64
}

func loadTransferJob(path string) (*transferJob, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading job file")
	}

	var job transferJob
	if err := yaml.Unmarshal(raw, &job); err != nil {
		return nil, errors.Wrap(err, "parsing job file")
	}
	if err := job.validate(); err != nil {
		return nil, err
	}
	return &job, nil
}

func (j *transferJob) validate() error {
	recipient, err := solana.PublicKeyFromBase58(j.Recipient)
	if err != nil {
		return errors.Wrapf(err, "recipient %q", j.Recipient)
	}
	j.recipient = recipient

	amount, err := decimal.NewFromString(j.AmountSOL)
	if err != nil {
		return errors.Wrapf(err, "amount %q", j.AmountSOL)
	}
	if !amount.IsPositive() {
		return errors.Errorf("amount %s must be positive", amount)
	}

	// SOL amounts settle in whole lamports.
	lamports := amount.Mul(decimal.NewFromInt(int64(solana.LAMPORTS_PER_SOL)))
	if !lamports.IsInteger() {
		return errors.Errorf("amount %s is finer than one lamport", amount)
	}
	if !lamports.BigInt().IsUint64() {
		return errors.Errorf("amount %s overflows lamports", amount)
	}
	j.lamports = lamports.BigInt().Uint64()
	return nil
}

// selector picks the signing key the job asks for, defaulting to the
// example key configured in the environment.
func (j *transferJob) selector(sender solana.PublicKey) turnkey.KeySelector {
	switch {
	case j.KeyID != "":
		return turnkey.WithKeyID(j.KeyID, sender.String())
	case j.PublicKey != "":
		return turnkey.WithPublicKey(j.PublicKey)
	default:
		return turnkey.ExampleKey()
	}
}
