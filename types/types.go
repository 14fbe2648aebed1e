package types

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// FlashLoanRequest asks a lending pool for a flash swap. Exactly one of the
// amounts is nonzero; CallbackParams is handed back verbatim to the callback.
type FlashLoanRequest struct {
	LendingPool    common.Address
	Amount0        *uint256.Int
	Amount1        *uint256.Int
	CallbackParams []byte
}

// ArbitrageParams describes the two swap legs executed inside the callback
type ArbitrageParams struct {
	IntermediateAsset common.Address
	PoolA             common.Address
	PoolB             common.Address
	FeeTierA          uint32
	FeeTierB          uint32
	MinOutLeg1        *uint256.Int
	MinOutLeg2        *uint256.Int
}

// CallbackContext is what the lending pool reports when it calls back
type CallbackContext struct {
	Sender  common.Address
	Fee0    *uint256.Int
	Fee1    *uint256.Int
	Amount0 *uint256.Int
	Amount1 *uint256.Int
}

// Borrowed returns the side that was lent (0 or 1), its amount and its fee
func (c *CallbackContext) Borrowed() (int, *uint256.Int, *uint256.Int) {
	if c.Amount0 != nil && !c.Amount0.IsZero() {
		return 0, c.Amount0, c.Fee0
	}
	return 1, c.Amount1, c.Fee1
}

// SettlementOutcome is the result of a settled flash swap
type SettlementOutcome struct {
	Pool      common.Address
	Asset     common.Address
	Borrowed  *uint256.Int
	Fee       *uint256.Int
	Owed      *uint256.Int
	Leg1Out   *uint256.Int
	Realized  *uint256.Int
	Profit    *big.Int
	Committed bool
}

// SettlementState is a step of the callback state machine
type SettlementState int

const (
	AwaitingCallback SettlementState = iota
	Authorizing
	Leg1Executing
	Leg2Executing
	RepaymentCheck
	Committed
	Aborted
)

func (s SettlementState) String() string {
	switch s {
	case AwaitingCallback:
		return "awaiting_callback"
	case Authorizing:
		return "authorizing"
	case Leg1Executing:
		return "leg1_executing"
	case Leg2Executing:
		return "leg2_executing"
	case RepaymentCheck:
		return "repayment_check"
	case Committed:
		return "committed"
	case Aborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition can happen
func (s SettlementState) Terminal() bool {
	return s == Committed || s == Aborted
}
