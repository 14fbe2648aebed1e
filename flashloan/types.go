package flashloan

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/michaelpento.lv/flashswap/dex"
)

// Config wires the settlement engine to its collaborators
type Config struct {
	Executor common.Address // Account that receives the loan and holds swap proceeds
	Factory  dex.Factory    // Pool registry used to authenticate callers
	Router   dex.Router     // Router both legs swap through
	Codec    ParamsCodec    // Callback payload codec; ParamsV1 when nil
}

func (c *Config) validate() error {
	if c.Executor == (common.Address{}) {
		return fmt.Errorf("executor address is required")
	}
	if c.Factory == nil {
		return fmt.Errorf("factory is required")
	}
	if c.Router == nil {
		return fmt.Errorf("router is required")
	}
	if c.Codec == nil {
		c.Codec = ParamsV1{}
	}
	return nil
}
