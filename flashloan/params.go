package flashloan

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/michaelpento.lv/flashswap/dex"
	"github.com/michaelpento.lv/flashswap/types"
)

var (
	abiAddress, _ = abi.NewType("address", "", nil)
	abiUint24, _  = abi.NewType("uint24", "", nil)
	abiUint256, _ = abi.NewType("uint256", "", nil)
)

// paramsV1Args is (intermediate, poolA, poolB, feeTierA, feeTierB, minOutLeg1, minOutLeg2)
var paramsV1Args = abi.Arguments{
	{Name: "intermediateAsset", Type: abiAddress},
	{Name: "poolA", Type: abiAddress},
	{Name: "poolB", Type: abiAddress},
	{Name: "feeTierA", Type: abiUint24},
	{Name: "feeTierB", Type: abiUint24},
	{Name: "minOutLeg1", Type: abiUint256},
	{Name: "minOutLeg2", Type: abiUint256},
}

// ParamsV1Size is the exact length of an encoded ParamsV1 payload
const ParamsV1Size = 7 * 32

// ParamsV1 is the ABI tuple encoding of ArbitrageParams. Decoding is
// strict: the payload must be exactly seven words, addresses and fee tiers
// must be zero-padded, and fee tiers must fit in 24 bits.
type ParamsV1 struct{}

var _ ParamsCodec = ParamsV1{}

// Version returns the codec version
func (ParamsV1) Version() uint8 {
	return 1
}

// Encode packs params into the callback payload
func (ParamsV1) Encode(params *types.ArbitrageParams) ([]byte, error) {
	if params == nil {
		return nil, newRevert(KindMalformedParams, ReasonMalformedParams, fmt.Errorf("params cannot be nil"))
	}
	if params.MinOutLeg1 == nil || params.MinOutLeg2 == nil {
		return nil, newRevert(KindMalformedParams, ReasonMalformedParams, fmt.Errorf("both leg minimums are required"))
	}
	if params.FeeTierA > dex.MaxFeeTier || params.FeeTierB > dex.MaxFeeTier {
		return nil, newRevert(KindMalformedParams, ReasonMalformedParams, fmt.Errorf("fee tier exceeds uint24"))
	}

	data, err := paramsV1Args.Pack(
		params.IntermediateAsset,
		params.PoolA,
		params.PoolB,
		new(big.Int).SetUint64(uint64(params.FeeTierA)),
		new(big.Int).SetUint64(uint64(params.FeeTierB)),
		params.MinOutLeg1.ToBig(),
		params.MinOutLeg2.ToBig(),
	)
	if err != nil {
		return nil, newRevert(KindMalformedParams, ReasonMalformedParams, fmt.Errorf("failed to pack params: %w", err))
	}
	return data, nil
}

// Decode unpacks a callback payload
func (ParamsV1) Decode(data []byte) (*types.ArbitrageParams, error) {
	malformed := func(format string, args ...interface{}) error {
		return newRevert(KindMalformedParams, ReasonMalformedParams, fmt.Errorf(format, args...))
	}

	if len(data) != ParamsV1Size {
		return nil, malformed("expected %d bytes, got %d", ParamsV1Size, len(data))
	}
	for i := 0; i < 3; i++ {
		if !zeroPadded(data[i*32:(i+1)*32], 32-common.AddressLength) {
			return nil, malformed("word %d is not a padded address", i)
		}
	}
	for i := 3; i < 5; i++ {
		if !zeroPadded(data[i*32:(i+1)*32], 29) {
			return nil, malformed("word %d does not fit in uint24", i)
		}
	}

	values, err := paramsV1Args.Unpack(data)
	if err != nil {
		return nil, malformed("failed to unpack params: %v", err)
	}
	if len(values) != len(paramsV1Args) {
		return nil, malformed("expected %d values, got %d", len(paramsV1Args), len(values))
	}

	intermediate, ok1 := values[0].(common.Address)
	poolA, ok2 := values[1].(common.Address)
	poolB, ok3 := values[2].(common.Address)
	feeA, ok4 := values[3].(*big.Int)
	feeB, ok5 := values[4].(*big.Int)
	min1, ok6 := values[5].(*big.Int)
	min2, ok7 := values[6].(*big.Int)
	if !(ok1 && ok2 && ok3 && ok4 && ok5 && ok6 && ok7) {
		return nil, malformed("unexpected value types")
	}

	minOut1, overflow1 := uint256.FromBig(min1)
	minOut2, overflow2 := uint256.FromBig(min2)
	if overflow1 || overflow2 {
		return nil, malformed("minimum does not fit in uint256")
	}

	return &types.ArbitrageParams{
		IntermediateAsset: intermediate,
		PoolA:             poolA,
		PoolB:             poolB,
		FeeTierA:          uint32(feeA.Uint64()),
		FeeTierB:          uint32(feeB.Uint64()),
		MinOutLeg1:        minOut1,
		MinOutLeg2:        minOut2,
	}, nil
}

func zeroPadded(word []byte, n int) bool {
	for _, b := range word[:n] {
		if b != 0 {
			return false
		}
	}
	return true
}
