package wallet

import (
	"errors"
	"fmt"
)

// Error classes shared by the wallet packages. Errors returned by the workflow
// wrap exactly one of these and are classified with errors.Is.
var (
	ErrNotFound       = errors.New("not found")
	ErrInvalidInput   = errors.New("invalid input")
	ErrNetworkFailure = errors.New("network failure")
	ErrChainRejection = errors.New("rejected by chain")
	ErrStorageFailure = errors.New("wallet storage failure")
)

// Classify returns the error class "err" belongs to or nil if it is not
// wrapping any of the known classes.
func Classify(err error) error {
	for _, class := range []error{ErrNotFound, ErrInvalidInput, ErrNetworkFailure, ErrChainRejection, ErrStorageFailure} {
		if errors.Is(err, class) {
			return class
		}
	}
	return nil
}

// RejectionError carries the reason reported by the chain for not accepting a transaction.
type RejectionError struct {
	TxHash []byte
	Code   uint32
	Log    string
}

func (e *RejectionError) Error() string {
	if e.Log == "" {
		return fmt.Sprintf("transaction rejected with code %d", e.Code)
	}
	return fmt.Sprintf("transaction rejected with code %d: %s", e.Code, e.Log)
}

func (e *RejectionError) Unwrap() error {
	return ErrChainRejection
}
