package flashloan

import (
	"errors"
	"fmt"

	"github.com/michaelpento.lv/flashswap/utils"
)

// Kind classifies why a settlement aborted
type Kind int

const (
	KindUnauthorizedCallback Kind = iota + 1
	KindSlippageViolation
	KindInsufficientRepayment
	KindArithmeticOverflow
	KindExternalCallFailure
	KindMalformedParams
	KindInvalidRequest
)

func (k Kind) String() string {
	switch k {
	case KindUnauthorizedCallback:
		return "unauthorized_callback"
	case KindSlippageViolation:
		return "slippage_violation"
	case KindInsufficientRepayment:
		return "insufficient_repayment"
	case KindArithmeticOverflow:
		return "arithmetic_overflow"
	case KindExternalCallFailure:
		return "external_call_failure"
	case KindMalformedParams:
		return "malformed_params"
	case KindInvalidRequest:
		return "invalid_request"
	default:
		return "unknown"
	}
}

// Sentinels matching each Kind; errors.Is(err, ErrSlippage) holds for any
// *RevertError of KindSlippageViolation
var (
	ErrUnauthorizedCallback  = errors.New("unauthorized callback")
	ErrSlippage              = errors.New("slippage violation")
	ErrInsufficientRepayment = errors.New("insufficient repayment")
	ErrArithmetic            = errors.New("arithmetic overflow")
	ErrExternalCall          = errors.New("external call failure")
	ErrMalformedParams       = errors.New("malformed params")
	ErrInvalidRequest        = errors.New("invalid request")
)

var kindSentinels = map[Kind]error{
	KindUnauthorizedCallback:  ErrUnauthorizedCallback,
	KindSlippageViolation:     ErrSlippage,
	KindInsufficientRepayment: ErrInsufficientRepayment,
	KindArithmeticOverflow:    ErrArithmetic,
	KindExternalCallFailure:   ErrExternalCall,
	KindMalformedParams:       ErrMalformedParams,
	KindInvalidRequest:        ErrInvalidRequest,
}

// Revert reasons surfaced to the caller
const (
	ReasonUnauthorized          = "FlashSwap: unauthorized callback"
	ReasonInsufficientRepayment = "FlashSwap: Insufficient funds to repay loan"
	ReasonSlippage              = "FlashSwap: insufficient output amount"
	ReasonOverflow              = "FlashSwap: arithmetic overflow"
	ReasonMalformedParams       = "FlashSwap: malformed params"
	ReasonInFlight              = "FlashSwap: flash swap already in flight"
	ReasonNotSettled            = "FlashSwap: callback did not settle"
)

// RevertError aborts a settlement. Everything done since the flash swap
// was initiated is rolled back when it propagates.
type RevertError struct {
	Kind   Kind
	Reason string
	Err    error
}

func newRevert(kind Kind, reason string, err error) *RevertError {
	return &RevertError{Kind: kind, Reason: reason, Err: err}
}

func (e *RevertError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Reason, e.Err)
	}
	return e.Reason
}

// Unwrap returns the underlying cause
func (e *RevertError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel of the error's kind
func (e *RevertError) Is(target error) bool {
	return kindSentinels[e.Kind] == target
}

// RevertData encodes the reason as an Error(string) revert payload
func (e *RevertError) RevertData() []byte {
	data, err := utils.EncodeRevertReason(e.Reason)
	if err != nil {
		return nil
	}
	return data
}

// KindOf returns the kind of a settlement error, or 0 if err is not one
func KindOf(err error) Kind {
	var rerr *RevertError
	if errors.As(err, &rerr) {
		return rerr.Kind
	}
	return 0
}
