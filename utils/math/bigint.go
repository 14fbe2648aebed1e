package math

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/holiman/uint256"
)

var (
	// ErrOverflow is returned when a result does not fit in 256 bits
	ErrOverflow = errors.New("arithmetic overflow")
	// ErrUnderflow is returned when a subtraction would go below zero
	ErrUnderflow = errors.New("arithmetic underflow")
	// ErrDivisionByZero is returned for a zero denominator
	ErrDivisionByZero = errors.New("division by zero")
	// ErrNilOperand is returned when an operand is missing
	ErrNilOperand = errors.New("nil operand")
)

// Add returns x + y. It never wraps: a sum past 2^256-1 is an error.
func Add(x, y *uint256.Int) (*uint256.Int, error) {
	if x == nil || y == nil {
		return nil, ErrNilOperand
	}
	z, overflow := new(uint256.Int).AddOverflow(x, y)
	if overflow {
		return nil, fmt.Errorf("%w: %s + %s", ErrOverflow, x.Dec(), y.Dec())
	}
	return z, nil
}

// Sub returns x - y, failing when y > x
func Sub(x, y *uint256.Int) (*uint256.Int, error) {
	if x == nil || y == nil {
		return nil, ErrNilOperand
	}
	z, underflow := new(uint256.Int).SubOverflow(x, y)
	if underflow {
		return nil, fmt.Errorf("%w: %s - %s", ErrUnderflow, x.Dec(), y.Dec())
	}
	return z, nil
}

// Mul returns x * y
func Mul(x, y *uint256.Int) (*uint256.Int, error) {
	if x == nil || y == nil {
		return nil, ErrNilOperand
	}
	z, overflow := new(uint256.Int).MulOverflow(x, y)
	if overflow {
		return nil, fmt.Errorf("%w: %s * %s", ErrOverflow, x.Dec(), y.Dec())
	}
	return z, nil
}

// MulDiv returns floor(x * y / d) computed with a 512-bit intermediate,
// so only the final quotient has to fit in 256 bits.
func MulDiv(x, y, d *uint256.Int) (*uint256.Int, error) {
	if x == nil || y == nil || d == nil {
		return nil, ErrNilOperand
	}
	if d.IsZero() {
		return nil, ErrDivisionByZero
	}
	z, overflow := new(uint256.Int).MulDivOverflow(x, y, d)
	if overflow {
		return nil, fmt.Errorf("%w: %s * %s / %s", ErrOverflow, x.Dec(), y.Dec(), d.Dec())
	}
	return z, nil
}

// MulDivRoundingUp returns ceil(x * y / d)
func MulDivRoundingUp(x, y, d *uint256.Int) (*uint256.Int, error) {
	z, err := MulDiv(x, y, d)
	if err != nil {
		return nil, err
	}
	if new(uint256.Int).MulMod(x, y, d).IsZero() {
		return z, nil
	}
	return Add(z, uint256.NewInt(1))
}

// SignedDiff returns x - y as a signed integer
func SignedDiff(x, y *uint256.Int) *big.Int {
	return new(big.Int).Sub(x.ToBig(), y.ToBig())
}

// IsOverflow reports whether err comes from a checked operation in this package
func IsOverflow(err error) bool {
	return errors.Is(err, ErrOverflow) || errors.Is(err, ErrUnderflow) || errors.Is(err, ErrDivisionByZero)
}
