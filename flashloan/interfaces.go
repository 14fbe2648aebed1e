package flashloan

import (
	"github.com/michaelpento.lv/flashswap/types"
)

// ParamsCodec encodes the arbitrage params carried through the flash callback
type ParamsCodec interface {
	Version() uint8
	Encode(params *types.ArbitrageParams) ([]byte, error)
	Decode(data []byte) (*types.ArbitrageParams, error)
}
