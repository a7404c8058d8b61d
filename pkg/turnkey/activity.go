package turnkey

import (
	"encoding/hex"
	"fmt"
)

// Activity types for the signing operations this client submits.
const (
	ActivityTypeSignRawPayload  = "ACTIVITY_TYPE_SIGN_RAW_PAYLOAD_V2"
	ActivityTypeSignTransaction = "ACTIVITY_TYPE_SIGN_TRANSACTION_V2"
)

// Activity statuses reported by the service. Anything that is not terminal
// keeps the poller waiting.
const (
	ActivityStatusCreated         = "ACTIVITY_STATUS_CREATED"
	ActivityStatusPending         = "ACTIVITY_STATUS_PENDING"
	ActivityStatusConsensusNeeded = "ACTIVITY_STATUS_CONSENSUS_NEEDED"
	ActivityStatusCompleted       = "ACTIVITY_STATUS_COMPLETED"
	ActivityStatusFailed          = "ACTIVITY_STATUS_FAILED"
	ActivityStatusRejected        = "ACTIVITY_STATUS_REJECTED"
)

const (
	payloadEncodingHexadecimal = "PAYLOAD_ENCODING_HEXADECIMAL"
	hashFunctionNotApplicable  = "HASH_FUNCTION_NOT_APPLICABLE"
)

// Service endpoints, relative to the configured base URL.
const (
	endpointSignRawPayload  = "/public/v1/submit/sign_raw_payload"
	endpointSignTransaction = "/public/v1/submit/sign_transaction"
	endpointGetActivity     = "/public/v1/query/get_activity"
	endpointWhoami          = "/public/v1/query/whoami"
)

// TransactionType tags a serialized transaction with its chain format for
// sign_transaction activities.
type TransactionType string

const (
	TransactionTypeSolana   TransactionType = "TRANSACTION_TYPE_SOLANA"
	TransactionTypeEthereum TransactionType = "TRANSACTION_TYPE_ETHEREUM"
)

// activityRequest is the request envelope for submit endpoints. The stamped
// bytes are exactly the serialized form of this struct.
type activityRequest struct {
	Type           string `json:"type"`
	TimestampMs    string `json:"timestampMs"`
	OrganizationID string `json:"organizationId"`
	Parameters     any    `json:"parameters"`
}

type signRawPayloadParameters struct {
	SignWith     string `json:"signWith"`
	Payload      string `json:"payload"`
	Encoding     string `json:"encoding"`
	HashFunction string `json:"hashFunction"`
}

type signTransactionParameters struct {
	SignWith            string          `json:"signWith"`
	UnsignedTransaction string          `json:"unsignedTransaction"`
	Type                TransactionType `json:"type"`
}

type getActivityRequest struct {
	OrganizationID string `json:"organizationId"`
	ActivityID     string `json:"activityId"`
}

type whoamiRequest struct {
	OrganizationID string `json:"organizationId"`
}

// activityResponse is the envelope every activity endpoint returns.
type activityResponse struct {
	Activity Activity `json:"activity"`
}

// Activity is the service-side record of an asynchronous signing request.
type Activity struct {
	ID             string          `json:"id"`
	OrganizationID string          `json:"organizationId"`
	Type           string          `json:"type"`
	Status         string          `json:"status"`
	Result         *ActivityResult `json:"result,omitempty"`
	Failure        *ResponseError  `json:"failure,omitempty"`
}

// Terminal reports whether the activity has reached a final state.
// Terminal states are final and idempotently re-fetchable.
func (a *Activity) Terminal() bool {
	switch a.Status {
	case ActivityStatusCompleted, ActivityStatusFailed, ActivityStatusRejected:
		return true
	}
	return false
}

// Completed reports whether the activity finished successfully.
func (a *Activity) Completed() bool {
	return a.Status == ActivityStatusCompleted
}

// Failed reports whether the service definitively refused the activity.
func (a *Activity) Failed() bool {
	return a.Status == ActivityStatusFailed || a.Status == ActivityStatusRejected
}

// ActivityResult holds the per-activity-type result payloads. Only the field
// matching the activity's type is populated.
type ActivityResult struct {
	SignRawPayloadResult  *SignRawPayloadResult  `json:"signRawPayloadResult,omitempty"`
	SignTransactionResult *SignTransactionResult `json:"signTransactionResult,omitempty"`
}

// SignRawPayloadResult carries the signature components for a raw payload
// signing activity, hex-encoded.
type SignRawPayloadResult struct {
	R string `json:"r"`
	S string `json:"s"`
	V string `json:"v,omitempty"`
}

// SignatureBytes returns the raw signature: the hex-decoded concatenation of
// the r and s components.
func (r *SignRawPayloadResult) SignatureBytes() ([]byte, error) {
	raw, err := hex.DecodeString(r.R + r.S)
	if err != nil {
		return nil, fmt.Errorf("decoding signature components: %w", err)
	}
	return raw, nil
}

// SignTransactionResult carries the fully signed, serialized transaction for
// a sign_transaction activity, hex-encoded.
type SignTransactionResult struct {
	SignedTransaction string `json:"signedTransaction"`
}

// WhoamiResponse identifies the organization and user behind the configured
// API key.
type WhoamiResponse struct {
	OrganizationID   string `json:"organizationId"`
	OrganizationName string `json:"organizationName"`
	UserID           string `json:"userId"`
	Username         string `json:"username"`
}
