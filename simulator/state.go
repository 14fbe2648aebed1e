package simulator

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"sort"

	"github.com/cespare/xxhash/v2"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/holiman/uint256"
)

var (
	ErrInsufficientBalance   = errors.New("ERC20: transfer amount exceeds balance")
	ErrInsufficientAllowance = errors.New("ERC20: insufficient allowance")
	ErrBalanceOverflow       = errors.New("ERC20: balance overflow")
	ErrZeroAddress           = errors.New("ERC20: zero address")
)

type allowanceKey struct {
	token   common.Address
	owner   common.Address
	spender common.Address
}

// State is an in-memory ledger of token balances, allowances and emitted logs.
// Every mutation is journaled so that a failed call frame can be rolled back
// with RevertToSnapshot, the same way an EVM call frame is.
//
// State is not safe for concurrent use; Simulator serializes access.
type State struct {
	balances   map[common.Address]map[common.Address]*uint256.Int
	allowances map[allowanceKey]*uint256.Int
	logs       []*gethtypes.Log
	journal    []func()
}

// NewState creates an empty ledger
func NewState() *State {
	return &State{
		balances:   make(map[common.Address]map[common.Address]*uint256.Int),
		allowances: make(map[allowanceKey]*uint256.Int),
	}
}

// BalanceOf returns a copy of holder's balance of token
func (s *State) BalanceOf(token, holder common.Address) *uint256.Int {
	if bal, ok := s.balances[token][holder]; ok {
		return bal.Clone()
	}
	return new(uint256.Int)
}

// Allowance returns how much spender may move out of owner's token balance
func (s *State) Allowance(token, owner, spender common.Address) *uint256.Int {
	if v, ok := s.allowances[allowanceKey{token, owner, spender}]; ok {
		return v.Clone()
	}
	return new(uint256.Int)
}

// Mint credits amount of token to holder out of thin air. Used to fund
// pools and accounts when a scenario is set up.
func (s *State) Mint(token, to common.Address, amount *uint256.Int) error {
	if to == (common.Address{}) {
		return ErrZeroAddress
	}
	next, overflow := new(uint256.Int).AddOverflow(s.BalanceOf(token, to), amount)
	if overflow {
		return ErrBalanceOverflow
	}
	s.setBalance(token, to, next)
	return nil
}

// Transfer moves amount of token from one holder to another
func (s *State) Transfer(token, from, to common.Address, amount *uint256.Int) error {
	if to == (common.Address{}) {
		return ErrZeroAddress
	}
	fromBal := s.BalanceOf(token, from)
	if fromBal.Lt(amount) {
		return fmt.Errorf("%w: %s has %s of %s, needs %s",
			ErrInsufficientBalance, from.Hex(), fromBal.Dec(), token.Hex(), amount.Dec())
	}
	if from == to {
		return nil
	}
	toBal, overflow := new(uint256.Int).AddOverflow(s.BalanceOf(token, to), amount)
	if overflow {
		return ErrBalanceOverflow
	}
	s.setBalance(token, from, new(uint256.Int).Sub(fromBal, amount))
	s.setBalance(token, to, toBal)
	return nil
}

// Approve sets spender's allowance over owner's balance of token
func (s *State) Approve(token, owner, spender common.Address, amount *uint256.Int) {
	key := allowanceKey{token, owner, spender}
	prev, had := s.allowances[key]
	s.journal = append(s.journal, func() {
		if had {
			s.allowances[key] = prev
		} else {
			delete(s.allowances, key)
		}
	})
	s.allowances[key] = amount.Clone()
}

// TransferFrom moves tokens on behalf of owner, consuming spender's allowance
func (s *State) TransferFrom(token, spender, from, to common.Address, amount *uint256.Int) error {
	allowed := s.Allowance(token, from, spender)
	if allowed.Lt(amount) {
		return fmt.Errorf("%w: %s may spend %s, needs %s",
			ErrInsufficientAllowance, spender.Hex(), allowed.Dec(), amount.Dec())
	}
	id := s.Snapshot()
	s.Approve(token, from, spender, new(uint256.Int).Sub(allowed, amount))
	if err := s.Transfer(token, from, to, amount); err != nil {
		s.RevertToSnapshot(id)
		return err
	}
	return nil
}

// EmitLog appends a log; it disappears again if the enclosing frame reverts
func (s *State) EmitLog(log *gethtypes.Log) {
	log.Index = uint(len(s.logs))
	s.logs = append(s.logs, log)
	s.journal = append(s.journal, func() {
		s.logs = s.logs[:len(s.logs)-1]
	})
}

// Logs returns every log emitted so far
func (s *State) Logs() []*gethtypes.Log {
	out := make([]*gethtypes.Log, len(s.logs))
	copy(out, s.logs)
	return out
}

// Snapshot returns an identifier for the current revision of the state
func (s *State) Snapshot() int {
	return len(s.journal)
}

// RevertToSnapshot undoes every change made since the given snapshot
func (s *State) RevertToSnapshot(id int) {
	if id < 0 || id > len(s.journal) {
		panic(fmt.Errorf("revision id %v cannot be reverted", id))
	}
	for i := len(s.journal) - 1; i >= id; i-- {
		s.journal[i]()
	}
	s.journal = s.journal[:id]
}

// Atomic runs fn as one call frame: if fn fails every change it made is
// rolled back and the error is returned unchanged.
func (s *State) Atomic(fn func() error) error {
	id := s.Snapshot()
	if err := fn(); err != nil {
		s.RevertToSnapshot(id)
		return err
	}
	return nil
}

// Finalise drops the journal. Changes made so far can no longer be reverted.
func (s *State) Finalise() {
	s.journal = nil
}

// Fingerprint hashes every balance and allowance. Two states with the same
// fingerprint hold the same assets bit for bit.
func (s *State) Fingerprint() uint64 {
	type entry struct {
		key   []byte
		value *uint256.Int
	}
	var entries []entry
	for token, holders := range s.balances {
		for holder, bal := range holders {
			if bal.IsZero() {
				continue
			}
			entries = append(entries, entry{append(append([]byte{'b'}, token.Bytes()...), holder.Bytes()...), bal})
		}
	}
	for key, v := range s.allowances {
		if v.IsZero() {
			continue
		}
		k := append([]byte{'a'}, key.token.Bytes()...)
		k = append(k, key.owner.Bytes()...)
		k = append(k, key.spender.Bytes()...)
		entries = append(entries, entry{k, v})
	}
	sort.Slice(entries, func(i, j int) bool {
		return bytes.Compare(entries[i].key, entries[j].key) < 0
	})

	d := xxhash.New()
	var n [8]byte
	binary.BigEndian.PutUint64(n[:], uint64(len(entries)))
	d.Write(n[:])
	for _, e := range entries {
		d.Write(e.key)
		b := e.value.Bytes32()
		d.Write(b[:])
	}
	return d.Sum64()
}

func (s *State) setBalance(token, holder common.Address, amount *uint256.Int) {
	holders, ok := s.balances[token]
	if !ok {
		holders = make(map[common.Address]*uint256.Int)
		s.balances[token] = holders
	}
	prev, had := holders[holder]
	s.journal = append(s.journal, func() {
		if had {
			holders[holder] = prev
		} else {
			delete(holders, holder)
		}
	})
	holders[holder] = amount
}
