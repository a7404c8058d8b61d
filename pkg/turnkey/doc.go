// Package turnkey is a client for the Turnkey remote signing service, where
// private keys live inside secure enclaves and every signing operation is an
// authenticated HTTP request.
//
// # Activity Lifecycle
//
// Signing is asynchronous on the service side. Submitting a request creates
// an activity that moves through a small state machine:
//
//	CREATED / PENDING / CONSENSUS_NEEDED   still running
//	COMPLETED                              terminal, carries the result
//	FAILED / REJECTED                      terminal, carries a failure
//
// The client hides this from callers: every signing method submits the
// activity and then polls it with exponential backoff until it reaches a
// terminal state or the configured activity timeout expires. Simple
// policies complete synchronously and never poll at all; policies that
// require human approval can take as long as the approver does.
//
// A timed out activity has an unknown outcome, not a failed one. The
// returned ActivityTimeoutError carries the activity id so callers can pick
// the activity back up with GetActivity.
//
// # Request Stamping
//
// Every request body is signed with the organization's P-256 API key and
// the signature travels in the X-Stamp header (see the stamp package). The
// service binds the stamp to the exact body bytes, so the client never
// re-serializes a request after stamping it.
//
// # Signing Solana Transactions
//
// SignTransaction is the high-level path. It serializes the transaction
// message, has the service sign those exact bytes as a raw payload, and
// writes the returned Ed25519 signature into the transaction's signature
// slot for that key:
//
//	client, err := turnkey.NewClient(logger)
//	if err != nil {
//	    return err
//	}
//
//	signedTx, sig, err := client.SignTransaction(ctx, tx, turnkey.ExampleKey())
//	if err != nil {
//	    return err
//	}
//
// The signing key is chosen with a KeySelector:
//
//	turnkey.ExampleKey()                        // key named in the environment
//	turnkey.WithPublicKey(base58Address)        // sign with the key's address
//	turnkey.WithKeyID(keyID, base58Address)     // sign with the key's id
//
// # Error Handling
//
// Failures are typed so callers can branch on them:
//
//	_, _, err := client.SignTransaction(ctx, tx, selector)
//
//	var timeoutErr *turnkey.ActivityTimeoutError
//	var failedErr *turnkey.ActivityFailedError
//	switch {
//	case errors.As(err, &timeoutErr):
//	    // outcome unknown, resume with client.GetActivity(ctx, timeoutErr.ActivityID)
//	case errors.As(err, &failedErr):
//	    // the service rejected the activity, err carries the failure detail
//	}
//
// NetworkError and retryable HTTPError values (HTTP 5xx) are retried
// automatically while polling; HTTP 4xx responses fail immediately. On any
// error the caller's transaction is left unmodified.
//
// # Configuration
//
// NewClient reads the environment (and a .env file when present):
//
//	TURNKEY_API_PUBLIC_KEY    stamping key, compressed P-256 hex
//	TURNKEY_API_PRIVATE_KEY   stamping key scalar, hex
//	TURNKEY_ORGANIZATION_ID   organization the credential belongs to
//	TURNKEY_PRIVATE_KEY_ID    id of the key ExampleKey() signs with
//	TURNKEY_EXAMPLE_PUBLIC_KEY  Solana address of that key
//
// Timeouts and poll intervals have working defaults and matching
// TURNKEY_* variables; see Config. Embedders that manage configuration
// themselves use NewClientWithConfig.
package turnkey
