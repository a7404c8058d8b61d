package turnkey

import (
	"fmt"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
)

// Ensure the typed errors implement the error interface at compile time.
var (
	_ error = (*ConfigurationError)(nil)
	_ error = (*InvalidKeyFormatError)(nil)
	_ error = (*NetworkError)(nil)
	_ error = (*HTTPError)(nil)
	_ error = (*ResponseError)(nil)
	_ error = (*ActivityFailedError)(nil)
	_ error = (*ActivityTimeoutError)(nil)
	_ error = (*SignerNotRequiredError)(nil)
)

var (
	// ErrMissingResult is returned when the service reports an activity as
	// completed but the expected signing result is absent from the payload.
	ErrMissingResult = fmt.Errorf("activity completed without a signing result")
)

// ConfigurationError indicates missing or invalid client setup. It is fatal
// and never retried.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("turnkey: configuration: %s: %s", e.Field, e.Reason)
}

// InvalidKeyFormatError indicates a malformed key selector input. It is
// fatal and never retried.
type InvalidKeyFormatError struct {
	Value  string
	Reason string
}

func (e *InvalidKeyFormatError) Error() string {
	return fmt.Sprintf("turnkey: invalid key format %q: %s", e.Value, e.Reason)
}

// NetworkError wraps a transport-level failure: connection refusals, DNS
// faults, timeouts. It is retried only inside the poll budget and is fatal
// on submission.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("turnkey: network: %v", e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// HTTPError is a non-2xx response from the service. A 4xx status is a
// definitive rejection; a 5xx status is treated as transient during polling
// only. Response carries the decoded Turnkey error payload when the body
// contained one.
type HTTPError struct {
	Status   int
	Body     []byte
	Response *ResponseError
}

func (e *HTTPError) Error() string {
	if e.Response != nil {
		return fmt.Sprintf("turnkey: http %d: %v", e.Status, e.Response)
	}
	body := strings.TrimSpace(string(e.Body))
	if len(body) > 256 {
		body = body[:256] + "..."
	}
	if body == "" {
		return fmt.Sprintf("turnkey: http %d", e.Status)
	}
	return fmt.Sprintf("turnkey: http %d: %s", e.Status, body)
}

// Retryable reports whether the status indicates a service fault that is
// safe to retry while polling.
func (e *HTTPError) Retryable() bool {
	return e.Status >= 500
}

// ResponseError is the error payload the service returns on rejected
// requests.
type ResponseError struct {
	Code    int           `json:"code"`
	Message string        `json:"message"`
	Details []ErrorDetail `json:"details"`
}

// ErrorDetail carries structured context for a ResponseError, typically
// field-level validation violations.
type ErrorDetail struct {
	Type            string           `json:"@type"`
	FieldViolations []FieldViolation `json:"fieldViolations"`
}

// FieldViolation names a request field the service rejected and why.
type FieldViolation struct {
	Field       string `json:"field"`
	Description string `json:"description"`
}

func (e *ResponseError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "code %d: %s", e.Code, e.Message)
	for _, detail := range e.Details {
		for _, violation := range detail.FieldViolations {
			fmt.Fprintf(&b, " (%s: %s)", violation.Field, violation.Description)
		}
	}
	return b.String()
}

// ActivityFailedError indicates the service reached a terminal failure state
// for the activity: a definitive refusal to sign, for example a policy
// rejection. It is never retried.
type ActivityFailedError struct {
	ActivityID     string
	ActivityStatus string
	Cause          string
}

func (e *ActivityFailedError) Error() string {
	msg := fmt.Sprintf("turnkey: activity %s ended with status %s", e.ActivityID, e.ActivityStatus)
	if e.Cause != "" {
		msg += ": " + e.Cause
	}
	return msg
}

// ActivityTimeoutError indicates the deadline elapsed while the activity was
// still pending. The outcome is unknown, not failed: the activity may still
// complete server-side. Callers can resume with Client.GetActivity.
type ActivityTimeoutError struct {
	ActivityID string
	Timeout    time.Duration
}

func (e *ActivityTimeoutError) Error() string {
	return fmt.Sprintf(
		"turnkey: activity %s still pending after %s; outcome unknown, it may yet complete server-side",
		e.ActivityID, e.Timeout,
	)
}

// SignerNotRequiredError indicates the resolved public key is not among the
// transaction's required signers, so there is no signature slot to fill.
// The transaction is left unchanged.
type SignerNotRequiredError struct {
	PublicKey solana.PublicKey
}

func (e *SignerNotRequiredError) Error() string {
	return fmt.Sprintf("turnkey: public key %s is not a required signer of the transaction", e.PublicKey)
}
