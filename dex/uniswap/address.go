package uniswap

import (
	"bytes"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Contract addresses
var (
	MainnetFactory = common.HexToAddress("0x1F98431c8aD98523631AE4a59f267346ea31F984")
	MainnetRouter  = common.HexToAddress("0xE592427A0AEce92De3Edee1F18E0157C05861564")
	WETHAddress    = common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")
	USDCAddress    = common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")

	// PoolInitCodeHash is keccak256 of the V3 pool creation code
	PoolInitCodeHash = common.HexToHash("0xe34f199b19b2b4f47f68442619d555527d244f78a3297ea89325f843f87b8b54")
)

// Fee tiers enabled on a fresh factory, in hundredths of a basis point
const (
	FeeLowest uint32 = 100
	FeeLow    uint32 = 500
	FeeMedium uint32 = 3000
	FeeHigh   uint32 = 10000
)

// SortTokens orders two token addresses the way pools store them
func SortTokens(tokenA, tokenB common.Address) (common.Address, common.Address) {
	if bytes.Compare(tokenA.Bytes(), tokenB.Bytes()) > 0 {
		return tokenB, tokenA
	}
	return tokenA, tokenB
}

// PoolSalt returns keccak256(abi.encode(token0, token1, fee)) for a sorted pair
func PoolSalt(token0, token1 common.Address, fee uint32) common.Hash {
	var feeWord [32]byte
	feeWord[29] = byte(fee >> 16)
	feeWord[30] = byte(fee >> 8)
	feeWord[31] = byte(fee)
	return crypto.Keccak256Hash(
		common.LeftPadBytes(token0.Bytes(), 32),
		common.LeftPadBytes(token1.Bytes(), 32),
		feeWord[:],
	)
}

// ComputeAddress derives the CREATE2 address of the pool deployed by factory
// for a token pair and fee tier. Token order does not matter.
func ComputeAddress(factory common.Address, initCodeHash common.Hash, tokenA, tokenB common.Address, fee uint32) common.Address {
	token0, token1 := SortTokens(tokenA, tokenB)
	salt := PoolSalt(token0, token1, fee)
	return crypto.CreateAddress2(factory, salt, initCodeHash.Bytes())
}
