package uniswap

import (
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	lru "github.com/hashicorp/golang-lru"
	"go.uber.org/zap"

	"github.com/michaelpento.lv/flashswap/dex"
	"github.com/michaelpento.lv/flashswap/simulator"
)

const addressCacheSize = 1024

type poolKey struct {
	token0 common.Address
	token1 common.Address
	fee    uint32
}

// Factory deploys pools at their CREATE2 addresses and keeps the registry
// of every pool it created
type Factory struct {
	address      common.Address
	initCodeHash common.Hash
	state        *simulator.State
	logger       *zap.Logger

	mu       sync.RWMutex
	feeTiers map[uint32]bool
	pools    map[common.Address]*Pool
	byKey    map[poolKey]*Pool

	addresses *lru.Cache
}

var _ dex.Factory = (*Factory)(nil)

// NewFactory creates a factory with the standard fee tiers enabled
func NewFactory(address common.Address, initCodeHash common.Hash, state *simulator.State, logger *zap.Logger) (*Factory, error) {
	if state == nil {
		return nil, fmt.Errorf("state is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	cache, err := lru.New(addressCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create address cache: %w", err)
	}

	return &Factory{
		address:      address,
		initCodeHash: initCodeHash,
		state:        state,
		logger:       logger,
		feeTiers: map[uint32]bool{
			FeeLowest: true,
			FeeLow:    true,
			FeeMedium: true,
			FeeHigh:   true,
		},
		pools:     make(map[common.Address]*Pool),
		byKey:     make(map[poolKey]*Pool),
		addresses: cache,
	}, nil
}

// Address returns the factory address
func (f *Factory) Address() common.Address {
	return f.address
}

// InitCodeHash returns the pool creation code hash used for derivation
func (f *Factory) InitCodeHash() common.Hash {
	return f.initCodeHash
}

// EnableFeeAmount allows pools to be created with the given fee tier
func (f *Factory) EnableFeeAmount(fee uint32) error {
	if fee >= dex.FeeDenominator {
		return fmt.Errorf("%w: %d", dex.ErrInvalidFeeTier, fee)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.feeTiers[fee] = true
	return nil
}

// ComputeAddress derives the pool address for a pair and fee tier. The
// pool does not have to exist.
func (f *Factory) ComputeAddress(tokenA, tokenB common.Address, fee uint32) common.Address {
	token0, token1 := SortTokens(tokenA, tokenB)
	key := poolKey{token0, token1, fee}
	if cached, ok := f.addresses.Get(key); ok {
		return cached.(common.Address)
	}
	addr := ComputeAddress(f.address, f.initCodeHash, token0, token1, fee)
	f.addresses.Add(key, addr)
	return addr
}

// CreatePool deploys a pool for the pair and fee tier
func (f *Factory) CreatePool(tokenA, tokenB common.Address, fee uint32) (*Pool, error) {
	if tokenA == tokenB {
		return nil, dex.ErrIdenticalAddresses
	}
	token0, token1 := SortTokens(tokenA, tokenB)
	if token0 == (common.Address{}) {
		return nil, dex.ErrZeroAddress
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.feeTiers[fee] {
		return nil, fmt.Errorf("%w: %d", dex.ErrInvalidFeeTier, fee)
	}
	key := poolKey{token0, token1, fee}
	if _, ok := f.byKey[key]; ok {
		return nil, dex.ErrPoolExists
	}

	pool := &Pool{
		address: f.ComputeAddress(token0, token1, fee),
		token0:  token0,
		token1:  token1,
		fee:     fee,
		state:   f.state,
		logger:  f.logger,
	}
	f.pools[pool.address] = pool
	f.byKey[key] = pool

	f.logger.Debug("Pool created",
		zap.String("pool", pool.address.Hex()),
		zap.String("token0", token0.Hex()),
		zap.String("token1", token1.Hex()),
		zap.Uint32("fee", fee))

	return pool, nil
}

// GetPool returns the pool for a pair and fee tier, if one was created
func (f *Factory) GetPool(tokenA, tokenB common.Address, fee uint32) (*Pool, bool) {
	token0, token1 := SortTokens(tokenA, tokenB)
	f.mu.RLock()
	defer f.mu.RUnlock()
	pool, ok := f.byKey[poolKey{token0, token1, fee}]
	return pool, ok
}

// Pool returns the concrete pool deployed at addr
func (f *Factory) Pool(addr common.Address) (*Pool, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	pool, ok := f.pools[addr]
	if !ok {
		return nil, fmt.Errorf("%w: %s", dex.ErrPoolNotFound, addr.Hex())
	}
	return pool, nil
}

// PoolByAddress implements dex.Factory
func (f *Factory) PoolByAddress(addr common.Address) (dex.Pool, error) {
	pool, err := f.Pool(addr)
	if err != nil {
		return nil, err
	}
	return pool, nil
}
