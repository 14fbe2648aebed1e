package utils

import (
	"bytes"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

var (
	// ErrorSelector is the selector of Error(string)
	ErrorSelector = []byte{0x08, 0xc3, 0x79, 0xa0}
	// PanicSelector is the selector of Panic(uint256)
	PanicSelector = []byte{0x4e, 0x48, 0x7b, 0x71}

	// ErrNoRevertData is returned for a revert without a payload
	ErrNoRevertData = errors.New("execution reverted without reason")
	// ErrUnknownRevert is returned for payloads that are neither Error nor Panic
	ErrUnknownRevert = errors.New("unknown revert payload")
)

var (
	abiString, _  = abi.NewType("string", "", nil)
	abiUint256, _ = abi.NewType("uint256", "", nil)
)

var panicReasons = map[uint64]string{
	0x00: "generic panic",
	0x01: "assert(false)",
	0x11: "arithmetic underflow or overflow",
	0x12: "division or modulo by zero",
	0x21: "enum overflow",
	0x22: "invalid encoded storage byte array accessed",
	0x31: "out-of-bounds array access; popping on an empty array",
	0x32: "out-of-bounds access of an array or bytesN",
	0x41: "out of memory",
	0x51: "uninitialized function",
}

// RevertReason is a decoded revert payload
type RevertReason struct {
	Message   string
	Panic     bool
	PanicCode *big.Int
}

func (r *RevertReason) String() string {
	if r.Panic {
		return fmt.Sprintf("panic: %s (%s)", r.Message, hexutil.EncodeBig(r.PanicCode))
	}
	return r.Message
}

// EncodeRevertReason builds the Error(string) payload a contract reverts with
func EncodeRevertReason(reason string) ([]byte, error) {
	packed, err := abi.Arguments{{Type: abiString}}.Pack(reason)
	if err != nil {
		return nil, fmt.Errorf("failed to pack revert reason: %w", err)
	}
	return append(append([]byte{}, ErrorSelector...), packed...), nil
}

// EncodePanic builds the Panic(uint256) payload for a panic code
func EncodePanic(code uint64) ([]byte, error) {
	packed, err := abi.Arguments{{Type: abiUint256}}.Pack(new(big.Int).SetUint64(code))
	if err != nil {
		return nil, fmt.Errorf("failed to pack panic code: %w", err)
	}
	return append(append([]byte{}, PanicSelector...), packed...), nil
}

// DecodeRevertReason decodes an Error(string) or Panic(uint256) payload
func DecodeRevertReason(data []byte) (*RevertReason, error) {
	if len(data) == 0 {
		return nil, ErrNoRevertData
	}
	if len(data) < 4 {
		return nil, fmt.Errorf("%w: %d bytes", ErrUnknownRevert, len(data))
	}

	switch {
	case bytes.Equal(data[:4], ErrorSelector):
		values, err := abi.Arguments{{Type: abiString}}.Unpack(data[4:])
		if err != nil {
			return nil, fmt.Errorf("failed to decode revert reason: %w", err)
		}
		reason, ok := values[0].(string)
		if !ok {
			return nil, fmt.Errorf("invalid revert reason")
		}
		return &RevertReason{Message: reason}, nil

	case bytes.Equal(data[:4], PanicSelector):
		values, err := abi.Arguments{{Type: abiUint256}}.Unpack(data[4:])
		if err != nil {
			return nil, fmt.Errorf("failed to decode panic code: %w", err)
		}
		code, ok := values[0].(*big.Int)
		if !ok {
			return nil, fmt.Errorf("invalid panic code")
		}
		message := "unknown panic code"
		if code.IsUint64() {
			if m, ok := panicReasons[code.Uint64()]; ok {
				message = m
			}
		}
		return &RevertReason{Message: message, Panic: true, PanicCode: code}, nil
	}

	return nil, fmt.Errorf("%w: selector %s", ErrUnknownRevert, hexutil.Encode(data[:4]))
}
