package main

import (
	"context"
	"encoding/base64"
	"os"
	"os/signal"
	"syscall"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/Eliascm17/turnkey/pkg/log"
	"github.com/Eliascm17/turnkey/pkg/turnkey"
)

// solana-transfer signs a devnet SOL transfer through the Turnkey service
// and optionally broadcasts it. The transfer is described by a YAML job
// file (default transfer.yaml, overridable as the first argument); the
// credential and signing key come from the environment.
func main() {
	logger := NewLoggerIPFS("solana-transfer")

	jobPath := "transfer.yaml"
	if len(os.Args) > 1 {
		jobPath = os.Args[1]
	}

	job, err := loadTransferJob(jobPath)
	if err != nil {
		logger.Fatal("failed to load transfer job", "path", jobPath, "error", err)
	}

	var logConf log.Config
	if err := cleanenv.ReadEnv(&logConf); err != nil {
		logger.Fatal("failed to read logger configuration", "error", err)
	}
	clientLg := log.NewZapLogger(logConf)

	cfg, err := turnkey.LoadConfig()
	if err != nil {
		logger.Fatal("failed to load configuration", "error", err)
	}

	client, err := turnkey.NewClientWithConfig(cfg, clientLg, turnkey.NewMetrics())
	if err != nil {
		logger.Fatal("failed to initialize signer client", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, client, cfg, job, logger); err != nil {
		logger.Fatal("transfer failed", "error", err)
	}
}

func run(ctx context.Context, client *turnkey.Client, cfg turnkey.Config, job *transferJob, logger Logger) error {
	who, err := client.Whoami(ctx)
	if err != nil {
		return errors.Wrap(err, "verifying credential")
	}
	logger.Info("credential verified",
		"organization", who.OrganizationName,
		"user", who.Username,
	)

	sender, err := senderAddress(job, cfg)
	if err != nil {
		return err
	}

	rpcURL := os.Getenv("HELIUS_DEVNET_RPC_URL")
	if rpcURL == "" {
		rpcURL = rpc.DevNet_RPC
	}
	rpcClient := rpc.New(rpcURL)

	balance, err := rpcClient.GetBalance(ctx, sender, rpc.CommitmentFinalized)
	if err != nil {
		return errors.Wrap(err, "fetching sender balance")
	}
	logger.Info("sender funded",
		"sender", sender.String(),
		"balanceSol", lamportsToSol(balance.Value),
	)
	if balance.Value < job.lamports {
		logger.Warn("sender balance below transfer amount, expect a preflight failure",
			"balance", balance.Value,
			"lamports", job.lamports,
		)
	}

	recent, err := rpcClient.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		return errors.Wrap(err, "fetching recent blockhash")
	}

	tx, err := solana.NewTransaction(
		[]solana.Instruction{
			system.NewTransferInstruction(job.lamports, sender, job.recipient).Build(),
		},
		recent.Value.Blockhash,
		solana.TransactionPayer(sender),
	)
	if err != nil {
		return errors.Wrap(err, "building transaction")
	}

	signedTx, sig, err := client.SignTransaction(ctx, tx, job.selector(sender))
	if err != nil {
		return err
	}
	logger.Info("transaction signed",
		"signature", sig.String(),
		"recipient", job.recipient.String(),
		"amountSol", job.AmountSOL,
	)

	if !job.Broadcast {
		raw, err := signedTx.MarshalBinary()
		if err != nil {
			return errors.Wrap(err, "serializing signed transaction")
		}
		logger.Info("broadcast disabled, transaction ready",
			"base64", base64.StdEncoding.EncodeToString(raw),
		)
		return nil
	}

	txSig, err := rpcClient.SendTransactionWithOpts(ctx, signedTx, rpc.TransactionOpts{
		PreflightCommitment: rpc.CommitmentProcessed,
	})
	if err != nil {
		return errors.Wrap(err, "broadcasting transaction")
	}
	logger.Info("transaction broadcast",
		"signature", txSig.String(),
		"explorer", "https://explorer.solana.com/tx/"+txSig.String()+"?cluster=devnet",
	)
	return nil
}

// senderAddress resolves the account the transfer spends from: the job's
// explicit public key, or the configured example key.
func senderAddress(job *transferJob, cfg turnkey.Config) (solana.PublicKey, error) {
	source := job.PublicKey
	if source == "" {
		source = cfg.ExamplePublicKey
	}
	if source == "" {
		return solana.PublicKey{}, errors.New("no sender available: set public_key in the job file or TURNKEY_EXAMPLE_PUBLIC_KEY")
	}

	sender, err := solana.PublicKeyFromBase58(source)
	if err != nil {
		return solana.PublicKey{}, errors.Wrapf(err, "sender %q", source)
	}
	return sender, nil
}

func lamportsToSol(lamports uint64) string {
	return decimal.NewFromUint64(lamports).
		Div(decimal.NewFromInt(int64(solana.LAMPORTS_PER_SOL))).
		String()
}
