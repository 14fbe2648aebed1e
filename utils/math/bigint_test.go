package math

import (
	"errors"
	"math/big"
	"testing"

	"github.com/holiman/uint256"
)

var maxUint256 = new(uint256.Int).SetAllOne()

func TestCheckedArithmetic(t *testing.T) {
	tests := []struct {
		name string
		fn   func(t *testing.T)
	}{
		{"TestAdd", testAdd},
		{"TestAddOverflow", testAddOverflow},
		{"TestSubUnderflow", testSubUnderflow},
		{"TestMulOverflow", testMulOverflow},
		{"TestMulDiv", testMulDiv},
		{"TestMulDivRoundingUp", testMulDivRoundingUp},
		{"TestDivisionByZero", testDivisionByZero},
		{"TestSignedDiff", testSignedDiff},
		{"TestNilOperand", testNilOperand},
	}

	for _, tt := range tests {
		t.Run(tt.name, tt.fn)
	}
}

func testAdd(t *testing.T) {
	z, err := Add(uint256.NewInt(100), uint256.NewInt(50))
	if err != nil {
		t.Fatalf("Add(100, 50) returned error: %v", err)
	}
	if z.Uint64() != 150 {
		t.Errorf("Add(100, 50) = %v; want 150", z.Dec())
	}
}

func testAddOverflow(t *testing.T) {
	_, err := Add(maxUint256, uint256.NewInt(1))
	if !errors.Is(err, ErrOverflow) {
		t.Errorf("Add(max, 1) error = %v; want ErrOverflow", err)
	}
	if !IsOverflow(err) {
		t.Errorf("IsOverflow(%v) = false; want true", err)
	}
}

func testSubUnderflow(t *testing.T) {
	_, err := Sub(uint256.NewInt(1), uint256.NewInt(2))
	if !errors.Is(err, ErrUnderflow) {
		t.Errorf("Sub(1, 2) error = %v; want ErrUnderflow", err)
	}

	z, err := Sub(uint256.NewInt(2), uint256.NewInt(2))
	if err != nil || !z.IsZero() {
		t.Errorf("Sub(2, 2) = %v, %v; want 0, nil", z, err)
	}
}

func testMulOverflow(t *testing.T) {
	_, err := Mul(maxUint256, uint256.NewInt(2))
	if !errors.Is(err, ErrOverflow) {
		t.Errorf("Mul(max, 2) error = %v; want ErrOverflow", err)
	}
}

func testMulDiv(t *testing.T) {
	// the intermediate product does not fit in 256 bits, the quotient does
	z, err := MulDiv(maxUint256, uint256.NewInt(3), uint256.NewInt(6))
	if err != nil {
		t.Fatalf("MulDiv returned error: %v", err)
	}
	want := new(uint256.Int).Rsh(maxUint256, 1)
	if !z.Eq(want) {
		t.Errorf("MulDiv(max, 3, 6) = %v; want %v", z.Dec(), want.Dec())
	}

	_, err = MulDiv(maxUint256, uint256.NewInt(2), uint256.NewInt(1))
	if !errors.Is(err, ErrOverflow) {
		t.Errorf("MulDiv(max, 2, 1) error = %v; want ErrOverflow", err)
	}
}

func testMulDivRoundingUp(t *testing.T) {
	tests := []struct {
		x, y, d uint64
		want    uint64
	}{
		{1, 500, 1_000_000, 1},
		{1_000_000, 500, 1_000_000, 500},
		{1_000_001, 500, 1_000_000, 501},
		{0, 500, 1_000_000, 0},
		{7, 0, 1_000_000, 0},
	}

	for _, tt := range tests {
		z, err := MulDivRoundingUp(uint256.NewInt(tt.x), uint256.NewInt(tt.y), uint256.NewInt(tt.d))
		if err != nil {
			t.Fatalf("MulDivRoundingUp(%d, %d, %d) returned error: %v", tt.x, tt.y, tt.d, err)
		}
		if z.Uint64() != tt.want {
			t.Errorf("MulDivRoundingUp(%d, %d, %d) = %v; want %v", tt.x, tt.y, tt.d, z.Dec(), tt.want)
		}
	}
}

func testDivisionByZero(t *testing.T) {
	_, err := MulDivRoundingUp(uint256.NewInt(1), uint256.NewInt(1), new(uint256.Int))
	if !errors.Is(err, ErrDivisionByZero) {
		t.Errorf("MulDivRoundingUp(1, 1, 0) error = %v; want ErrDivisionByZero", err)
	}
}

func testSignedDiff(t *testing.T) {
	got := SignedDiff(uint256.NewInt(3), uint256.NewInt(10))
	if got.Cmp(big.NewInt(-7)) != 0 {
		t.Errorf("SignedDiff(3, 10) = %v; want -7", got)
	}
}

func testNilOperand(t *testing.T) {
	if _, err := Add(nil, uint256.NewInt(1)); !errors.Is(err, ErrNilOperand) {
		t.Errorf("Add(nil, 1) error = %v; want ErrNilOperand", err)
	}
}

func TestParseUnits(t *testing.T) {
	tests := []struct {
		value    string
		decimals uint8
		want     string
		wantErr  bool
	}{
		{"1", 18, "1000000000000000000", false},
		{"1.01", 18, "1010000000000000000", false},
		{"0.0095", 18, "9500000000000000", false},
		{".5", 6, "500000", false},
		{"2000", 6, "2000000000", false},
		{"0", 18, "0", false},
		{"1.0000001", 6, "", true},
		{"-1", 18, "", true},
		{"1.", 18, "", true},
		{"abc", 18, "", true},
		{"", 18, "", true},
	}

	for _, tt := range tests {
		got, err := ParseUnits(tt.value, tt.decimals)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseUnits(%q, %d) = %v; want error", tt.value, tt.decimals, got.Dec())
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseUnits(%q, %d) returned error: %v", tt.value, tt.decimals, err)
			continue
		}
		if got.Dec() != tt.want {
			t.Errorf("ParseUnits(%q, %d) = %v; want %v", tt.value, tt.decimals, got.Dec(), tt.want)
		}
	}
}

func TestFormatUnits(t *testing.T) {
	tests := []struct {
		amount   string
		decimals uint8
		want     string
	}{
		{"1000000000000000000", 18, "1"},
		{"1000500000000000000", 18, "1.0005"},
		{"9500000000000000", 18, "0.0095"},
		{"0", 18, "0"},
		{"123", 0, "123"},
	}

	for _, tt := range tests {
		amount := uint256.MustFromDecimal(tt.amount)
		if got := FormatUnits(amount, tt.decimals); got != tt.want {
			t.Errorf("FormatUnits(%s, %d) = %q; want %q", tt.amount, tt.decimals, got, tt.want)
		}
	}
}
