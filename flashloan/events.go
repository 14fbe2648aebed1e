package flashloan

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/holiman/uint256"
)

// Executor events
const executorABIJson = `[{
	"anonymous": false,
	"inputs": [
		{"indexed": true, "internalType": "address", "name": "pool", "type": "address"},
		{"indexed": true, "internalType": "address", "name": "asset", "type": "address"},
		{"indexed": false, "internalType": "uint256", "name": "owed", "type": "uint256"},
		{"indexed": false, "internalType": "uint256", "name": "realized", "type": "uint256"},
		{"indexed": false, "internalType": "int256", "name": "profit", "type": "int256"}
	],
	"name": "Settlement",
	"type": "event"
}]`

var executorABI abi.ABI

func init() {
	parsed, err := abi.JSON(strings.NewReader(executorABIJson))
	if err != nil {
		panic(fmt.Errorf("failed to parse executor ABI: %w", err))
	}
	executorABI = parsed
}

// SettlementTopic is the topic of the Settlement event
func SettlementTopic() common.Hash {
	return executorABI.Events["Settlement"].ID
}

// SettlementEvent is a decoded Settlement log
type SettlementEvent struct {
	Pool     common.Address
	Asset    common.Address
	Owed     *uint256.Int
	Realized *uint256.Int
	Profit   *big.Int
}

func settlementLog(executor, pool, asset common.Address, owed, realized *uint256.Int, profit *big.Int) (*gethtypes.Log, error) {
	event := executorABI.Events["Settlement"]
	data, err := event.Inputs.NonIndexed().Pack(owed.ToBig(), realized.ToBig(), profit)
	if err != nil {
		return nil, fmt.Errorf("failed to pack settlement event: %w", err)
	}
	return &gethtypes.Log{
		Address: executor,
		Topics: []common.Hash{
			event.ID,
			common.BytesToHash(pool.Bytes()),
			common.BytesToHash(asset.Bytes()),
		},
		Data: data,
	}, nil
}

// ParseSettlement decodes a Settlement log
func ParseSettlement(log *gethtypes.Log) (*SettlementEvent, error) {
	event := executorABI.Events["Settlement"]
	if len(log.Topics) != 3 || log.Topics[0] != event.ID {
		return nil, fmt.Errorf("not a settlement log")
	}
	values, err := event.Inputs.NonIndexed().Unpack(log.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack settlement event: %w", err)
	}
	owed, ok1 := values[0].(*big.Int)
	realized, ok2 := values[1].(*big.Int)
	profit, ok3 := values[2].(*big.Int)
	if !(ok1 && ok2 && ok3) {
		return nil, fmt.Errorf("unexpected settlement event values")
	}
	return &SettlementEvent{
		Pool:     common.BytesToAddress(log.Topics[1].Bytes()),
		Asset:    common.BytesToAddress(log.Topics[2].Bytes()),
		Owed:     uint256.MustFromBig(owed),
		Realized: uint256.MustFromBig(realized),
		Profit:   profit,
	}, nil
}
