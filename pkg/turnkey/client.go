package turnkey

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/Eliascm17/turnkey/pkg/log"
	"github.com/Eliascm17/turnkey/pkg/stamp"
)

// Client talks to the Turnkey signing service. It holds the API credential,
// stamps every outbound request with it, and drives submitted activities to
// a terminal state before returning. A Client is immutable after
// construction and safe for concurrent use by multiple goroutines.
type Client struct {
	cfg       Config
	transport *transport
	lg        log.Logger
	metrics   *Metrics
}

// NewClient builds a client from the process environment, loading a .env
// file first when one is present. See Config for the variables read.
//
// Example:
//
//	client, err := turnkey.NewClient(logger)
//	if err != nil {
//	    return err
//	}
//	who, err := client.Whoami(ctx)
func NewClient(lg log.Logger) (*Client, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, err
	}
	return NewClientWithConfig(cfg, lg, nil)
}

// NewClientWithConfig builds a client from an explicit configuration.
// Unset optional fields are filled with defaults before validation. lg may
// be nil for silent operation and metrics may be nil to skip
// instrumentation.
func NewClientWithConfig(cfg Config, lg log.Logger, metrics *Metrics) (*Client, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if lg == nil {
		lg = log.NewNoopLogger()
	}
	lg = lg.WithName("turnkey")

	stamper, err := stamp.New(cfg.APIPublicKey, cfg.APIPrivateKey)
	if err != nil {
		return nil, err
	}

	c := &Client{
		cfg:     cfg,
		lg:      lg,
		metrics: metrics,
	}
	c.transport = &transport{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		stamper: stamper,
		hc:      &http.Client{Timeout: cfg.HTTPTimeout},
		lg:      lg,
		metrics: metrics,
	}
	return c, nil
}

// SignRawPayload submits payload for signing by the key named in signWith
// (a private key id or the key's address) and awaits the result. The
// payload is signed exactly as given, with no service-side hashing, which
// is what Ed25519 message signing requires. The returned bytes are the
// concatenated r and s signature components, 64 bytes for an Ed25519 key.
//
// Example:
//
//	message, err := tx.Message.MarshalBinary()
//	if err != nil {
//	    return err
//	}
//	sig, err := client.SignRawPayload(ctx, keyID, message)
func (c *Client) SignRawPayload(ctx context.Context, signWith string, payload []byte) ([]byte, error) {
	req := activityRequest{
		Type:           ActivityTypeSignRawPayload,
		TimestampMs:    timestampMs(),
		OrganizationID: c.cfg.OrganizationID,
		Parameters: signRawPayloadParameters{
			SignWith:     signWith,
			Payload:      hex.EncodeToString(payload),
			Encoding:     payloadEncodingHexadecimal,
			HashFunction: hashFunctionNotApplicable,
		},
	}

	act, err := c.submitAndAwait(ctx, endpointSignRawPayload, req)
	if err != nil {
		return nil, err
	}
	if act.Result == nil || act.Result.SignRawPayloadResult == nil {
		return nil, ErrMissingResult
	}
	return act.Result.SignRawPayloadResult.SignatureBytes()
}

// SignSerializedTransaction submits an already serialized unsigned
// transaction for signing and returns the signed serialization, hex
// encoded, once the activity completes. The unsigned bytes are treated as
// opaque; the service validates and re-encodes them according to txType.
func (c *Client) SignSerializedTransaction(ctx context.Context, txType TransactionType, unsignedTx []byte, signWith string) (string, error) {
	req := activityRequest{
		Type:           ActivityTypeSignTransaction,
		TimestampMs:    timestampMs(),
		OrganizationID: c.cfg.OrganizationID,
		Parameters: signTransactionParameters{
			SignWith:            signWith,
			UnsignedTransaction: hex.EncodeToString(unsignedTx),
			Type:                txType,
		},
	}

	act, err := c.submitAndAwait(ctx, endpointSignTransaction, req)
	if err != nil {
		return "", err
	}
	if act.Result == nil || act.Result.SignTransactionResult == nil {
		return "", ErrMissingResult
	}
	return act.Result.SignTransactionResult.SignedTransaction, nil
}

// GetActivity fetches the current state of a previously submitted activity.
// Callers use it to resume after an ActivityTimeoutError, whose activity
// may still have completed server-side.
func (c *Client) GetActivity(ctx context.Context, activityID string) (*Activity, error) {
	return c.getActivity(ctx, activityID)
}

// Whoami verifies the credential against the service and reports the
// organization and user it belongs to. Useful as a connectivity and
// configuration check before signing anything.
func (c *Client) Whoami(ctx context.Context) (*WhoamiResponse, error) {
	body, err := json.Marshal(whoamiRequest{OrganizationID: c.cfg.OrganizationID})
	if err != nil {
		return nil, errors.Wrap(err, "encoding whoami request")
	}

	raw, err := c.transport.post(ctx, endpointWhoami, body)
	if err != nil {
		return nil, err
	}

	var res WhoamiResponse
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, errors.Wrap(err, "decoding whoami response")
	}
	return &res, nil
}

// timestampMs is the request timestamp the service checks for replay
// protection, Unix milliseconds rendered as a decimal string.
func timestampMs() string {
	return strconv.FormatInt(time.Now().UnixMilli(), 10)
}
