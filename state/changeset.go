package state

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/lumenchain/evm-engine/types"
)

// ChangeSet collects every write staged during one top-level execution,
// including all nested frames. Nothing touches the keeper until Commit; a
// failing frame is undone with RevertToSnapshot, leaving effects of sibling
// frames that completed before it intact.
type ChangeSet struct {
	balances  map[common.Address]*big.Int
	nonces    map[common.Address]uint64
	codes     map[common.Address][]byte
	storage   map[common.Address]map[common.Hash]common.Hash
	destructs map[common.Address]struct{}
	logs      []types.Log

	journal []journalEntry
}

// NewChangeSet returns an empty change set.
func NewChangeSet() *ChangeSet {
	return &ChangeSet{
		balances:  make(map[common.Address]*big.Int),
		nonces:    make(map[common.Address]uint64),
		codes:     make(map[common.Address][]byte),
		storage:   make(map[common.Address]map[common.Hash]common.Hash),
		destructs: make(map[common.Address]struct{}),
	}
}

// journalEntry undoes a single staged write.
type journalEntry interface {
	revert(cs *ChangeSet)
}

type balanceChange struct {
	addr    common.Address
	prev    *big.Int
	existed bool
}

func (c balanceChange) revert(cs *ChangeSet) {
	if c.existed {
		cs.balances[c.addr] = c.prev
	} else {
		delete(cs.balances, c.addr)
	}
}

type nonceChange struct {
	addr    common.Address
	prev    uint64
	existed bool
}

func (c nonceChange) revert(cs *ChangeSet) {
	if c.existed {
		cs.nonces[c.addr] = c.prev
	} else {
		delete(cs.nonces, c.addr)
	}
}

type codeChange struct {
	addr    common.Address
	prev    []byte
	existed bool
}

func (c codeChange) revert(cs *ChangeSet) {
	if c.existed {
		cs.codes[c.addr] = c.prev
	} else {
		delete(cs.codes, c.addr)
	}
}

type storageChange struct {
	addr    common.Address
	slot    common.Hash
	prev    common.Hash
	existed bool
}

func (c storageChange) revert(cs *ChangeSet) {
	slots := cs.storage[c.addr]
	if c.existed {
		slots[c.slot] = c.prev
	} else {
		delete(slots, c.slot)
		if len(slots) == 0 {
			delete(cs.storage, c.addr)
		}
	}
}

type destructChange struct {
	addr common.Address
}

func (c destructChange) revert(cs *ChangeSet) {
	delete(cs.destructs, c.addr)
}

type logChange struct{}

func (c logChange) revert(cs *ChangeSet) {
	cs.logs = cs.logs[:len(cs.logs)-1]
}

// Snapshot marks the current journal position. Frames take one on entry.
func (cs *ChangeSet) Snapshot() int {
	return len(cs.journal)
}

// RevertToSnapshot undoes every write staged after the given snapshot, in
// reverse order.
func (cs *ChangeSet) RevertToSnapshot(snap int) {
	for i := len(cs.journal) - 1; i >= snap; i-- {
		cs.journal[i].revert(cs)
	}
	cs.journal = cs.journal[:snap]
}

func (cs *ChangeSet) setBalance(addr common.Address, value *big.Int) {
	prev, existed := cs.balances[addr]
	cs.journal = append(cs.journal, balanceChange{addr: addr, prev: prev, existed: existed})
	cs.balances[addr] = value
}

func (cs *ChangeSet) setNonce(addr common.Address, nonce uint64) {
	prev, existed := cs.nonces[addr]
	cs.journal = append(cs.journal, nonceChange{addr: addr, prev: prev, existed: existed})
	cs.nonces[addr] = nonce
}

func (cs *ChangeSet) setCode(addr common.Address, code []byte) {
	prev, existed := cs.codes[addr]
	cs.journal = append(cs.journal, codeChange{addr: addr, prev: prev, existed: existed})
	cs.codes[addr] = code
}

func (cs *ChangeSet) setStorage(addr common.Address, slot, value common.Hash) {
	slots, ok := cs.storage[addr]
	if !ok {
		slots = make(map[common.Hash]common.Hash)
		cs.storage[addr] = slots
	}
	prev, existed := slots[slot]
	cs.journal = append(cs.journal, storageChange{addr: addr, slot: slot, prev: prev, existed: existed})
	slots[slot] = value
}

func (cs *ChangeSet) markDestructed(addr common.Address) {
	if _, ok := cs.destructs[addr]; ok {
		return
	}
	cs.journal = append(cs.journal, destructChange{addr: addr})
	cs.destructs[addr] = struct{}{}
}

func (cs *ChangeSet) addLog(log types.Log) {
	cs.journal = append(cs.journal, logChange{})
	cs.logs = append(cs.logs, log)
}

// Logs returns the staged logs in emission order.
func (cs *ChangeSet) Logs() []types.Log {
	out := make([]types.Log, len(cs.logs))
	copy(out, cs.logs)
	return out
}

// BalanceDelta sums all staged balances minus their durable counterparts.
// Exposed for conservation checks: outside of fees and the explicit value
// transfer the total must not drift.
func (cs *ChangeSet) BalanceDelta(k *Keeper) (*big.Int, error) {
	delta := new(big.Int)
	for addr, staged := range cs.balances {
		durable, err := k.GetAccount(addr)
		if err != nil {
			return nil, err
		}
		delta.Add(delta, staged)
		delta.Sub(delta, durable.Balance)
	}
	return delta, nil
}
