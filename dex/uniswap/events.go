package uniswap

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/holiman/uint256"
)

// Pool contract events
const poolABIJson = `[{
	"anonymous": false,
	"inputs": [
		{"indexed": true, "name": "sender", "type": "address"},
		{"indexed": true, "name": "recipient", "type": "address"},
		{"indexed": false, "name": "amount0", "type": "int256"},
		{"indexed": false, "name": "amount1", "type": "int256"}
	],
	"name": "Swap",
	"type": "event"
}, {
	"anonymous": false,
	"inputs": [
		{"indexed": true, "name": "sender", "type": "address"},
		{"indexed": true, "name": "recipient", "type": "address"},
		{"indexed": false, "name": "amount0", "type": "uint256"},
		{"indexed": false, "name": "amount1", "type": "uint256"},
		{"indexed": false, "name": "paid0", "type": "uint256"},
		{"indexed": false, "name": "paid1", "type": "uint256"}
	],
	"name": "Flash",
	"type": "event"
}]`

// PoolABI holds the pool events; use it to decode logs emitted by Pool
var PoolABI abi.ABI

func init() {
	parsed, err := abi.JSON(strings.NewReader(poolABIJson))
	if err != nil {
		panic(fmt.Errorf("failed to parse pool ABI: %w", err))
	}
	PoolABI = parsed
}

func addressTopic(addr common.Address) common.Hash {
	return common.BytesToHash(addr.Bytes())
}

// swapLog builds a Swap event. Amounts are signed from the pool's point of
// view: positive was received, negative was paid out.
func swapLog(pool, sender, recipient common.Address, amount0, amount1 *big.Int) (*gethtypes.Log, error) {
	event := PoolABI.Events["Swap"]
	data, err := event.Inputs.NonIndexed().Pack(amount0, amount1)
	if err != nil {
		return nil, fmt.Errorf("failed to pack swap event: %w", err)
	}
	return &gethtypes.Log{
		Address: pool,
		Topics:  []common.Hash{event.ID, addressTopic(sender), addressTopic(recipient)},
		Data:    data,
	}, nil
}

func flashLog(pool, sender, recipient common.Address, amount0, amount1, paid0, paid1 *uint256.Int) (*gethtypes.Log, error) {
	event := PoolABI.Events["Flash"]
	data, err := event.Inputs.NonIndexed().Pack(amount0.ToBig(), amount1.ToBig(), paid0.ToBig(), paid1.ToBig())
	if err != nil {
		return nil, fmt.Errorf("failed to pack flash event: %w", err)
	}
	return &gethtypes.Log{
		Address: pool,
		Topics:  []common.Hash{event.ID, addressTopic(sender), addressTopic(recipient)},
		Data:    data,
	}, nil
}
