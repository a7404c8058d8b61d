package stamp

import "fmt"

// SigningError indicates that a local cryptographic operation failed,
// usually because of malformed key material. It is fatal for the call and
// never retried.
type SigningError struct {
	Reason string
	Err    error
}

func (e *SigningError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("stamp: %s: %v", e.Reason, e.Err)
	}
	return "stamp: " + e.Reason
}

func (e *SigningError) Unwrap() error {
	return e.Err
}
