package math

import (
	"fmt"
	"strings"

	"github.com/holiman/uint256"
)

// ParseUnits converts a decimal string such as "1.0005" into its integer
// representation with the given number of decimals.
func ParseUnits(value string, decimals uint8) (*uint256.Int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, fmt.Errorf("empty amount")
	}

	whole, frac, hasPoint := strings.Cut(value, ".")
	if hasPoint && frac == "" {
		return nil, fmt.Errorf("invalid amount %q", value)
	}
	if whole == "" {
		whole = "0"
	}
	if len(frac) > int(decimals) {
		return nil, fmt.Errorf("amount %q has more than %d decimals", value, decimals)
	}
	for _, part := range []string{whole, frac} {
		for _, r := range part {
			if r < '0' || r > '9' {
				return nil, fmt.Errorf("invalid amount %q", value)
			}
		}
	}

	digits := strings.TrimLeft(whole+frac+strings.Repeat("0", int(decimals)-len(frac)), "0")
	if digits == "" {
		return new(uint256.Int), nil
	}
	amount, err := uint256.FromDecimal(digits)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", value, err)
	}
	return amount, nil
}

// FormatUnits renders an integer amount with the given number of decimals,
// trimming trailing zeros of the fractional part.
func FormatUnits(amount *uint256.Int, decimals uint8) string {
	if amount == nil {
		return "0"
	}
	digits := amount.Dec()
	if decimals == 0 {
		return digits
	}
	if len(digits) <= int(decimals) {
		digits = strings.Repeat("0", int(decimals)-len(digits)+1) + digits
	}

	point := len(digits) - int(decimals)
	whole, frac := digits[:point], strings.TrimRight(digits[point:], "0")
	if frac == "" {
		return whole
	}
	return whole + "." + frac
}
