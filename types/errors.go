package types

import (
	"errors"
	"fmt"
)

// Admission errors: rejected before any execution, no state change, no gas charged.
var (
	ErrInsufficientFeeBalance = errors.New("insufficient balance to cover gas limit")
	ErrMalformedRequest       = errors.New("malformed execution request")
)

// Execution-frame errors: abort the current call frame, gas already consumed
// stays consumed. A parent frame may catch the failure and continue.
var (
	ErrOutOfGas                 = errors.New("out of gas")
	ErrDepthLimit               = errors.New("max call depth exceeded")
	ErrInsufficientBalance      = errors.New("insufficient balance for transfer")
	ErrInvalidValueScale        = errors.New("value not representable in native units")
	ErrContractAddressCollision = errors.New("contract address collision")
	ErrMaxCodeSizeExceeded      = errors.New("max code size exceeded")
	ErrPrecompileInput          = errors.New("malformed precompile input")
	ErrWriteProtection          = errors.New("write protection")
	ErrExecutionAborted         = errors.New("execution aborted")
)

// RevertError carries the payload a contract supplied through an explicit
// revert. State changes of the reverting frame are discarded, gas is not.
type RevertError struct {
	Data []byte
}

func (e *RevertError) Error() string { return "execution reverted" }

// NewRevert wraps data into a RevertError. The slice is retained as-is.
func NewRevert(data []byte) *RevertError {
	return &RevertError{Data: data}
}

// RevertData extracts the revert payload if err is (or wraps) a RevertError.
func RevertData(err error) ([]byte, bool) {
	var rev *RevertError
	if errors.As(err, &rev) {
		return rev.Data, true
	}
	return nil, false
}

// FatalError marks storage corruption or interpreter panics. It must abort
// the whole top-level request and propagate to the host ledger untouched;
// swallowing it would fork consensus.
type FatalError struct {
	Inner error
}

func (e *FatalError) Error() string { return fmt.Sprintf("fatal: %v", e.Inner) }

func (e *FatalError) Unwrap() error { return e.Inner }

// Fatal wraps err as a FatalError, preserving an existing one.
func Fatal(err error) error {
	var f *FatalError
	if errors.As(err, &f) {
		return err
	}
	return &FatalError{Inner: err}
}

// IsFatal reports whether err carries a FatalError anywhere in its chain.
func IsFatal(err error) bool {
	var f *FatalError
	return errors.As(err, &f)
}
