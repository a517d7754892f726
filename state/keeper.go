// Package state holds the durable account store, the pending change set
// accumulated during one execution, and the merged read/write view exposed
// to the bytecode interpreter.
package state

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/lumenchain/evm-engine/db"
	"github.com/lumenchain/evm-engine/types"
)

const (
	accountPrefix = "acct:"
	codePrefix    = "code:"
	storagePrefix = "stor:"
)

// emptyCodeHash is the keccak256 of empty input; accounts without code carry it.
var emptyCodeHash = common.BytesToHash(crypto.Keccak256(nil))

// Account is the durable per-address record. Contract code is stored
// separately under its content hash so identical code is kept once.
type Account struct {
	Nonce    uint64
	Balance  *big.Int
	CodeHash common.Hash
}

// IsEmpty reports whether the account carries no balance, nonce or code.
func (a *Account) IsEmpty() bool {
	return a.Nonce == 0 && a.Balance.Sign() == 0 &&
		(a.CodeHash == common.Hash{} || a.CodeHash == emptyCodeHash)
}

// Keeper is the durable state store. All mutation during execution goes
// through a ChangeSet; the keeper itself is only written at top-level commit.
type Keeper struct {
	store db.DB
}

// NewKeeper wraps the given database.
func NewKeeper(store db.DB) *Keeper {
	return &Keeper{store: store}
}

// GetAccount loads the account for addr. Missing accounts come back as a
// fresh zero account, matching EVM semantics where every address is valid.
func (k *Keeper) GetAccount(addr common.Address) (*Account, error) {
	data, err := k.store.Get(accountKey(addr))
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %v", err)
	}
	if data == nil {
		return &Account{Balance: new(big.Int)}, nil
	}
	var acc Account
	if err := rlp.DecodeBytes(data, &acc); err != nil {
		return nil, types.Fatal(fmt.Errorf("failed to decode account %s: %v", addr.Hex(), err))
	}
	if acc.Balance == nil {
		acc.Balance = new(big.Int)
	}
	return &acc, nil
}

// SaveAccount persists the account record. Empty accounts are pruned to
// bound storage growth.
func (k *Keeper) SaveAccount(addr common.Address, acc *Account) error {
	if acc.IsEmpty() {
		return k.store.Delete(accountKey(addr))
	}
	data, err := rlp.EncodeToBytes(acc)
	if err != nil {
		return fmt.Errorf("failed to encode account: %v", err)
	}
	return k.store.Put(accountKey(addr), data)
}

// GetCode returns the bytecode stored under the given content hash.
func (k *Keeper) GetCode(hash common.Hash) ([]byte, error) {
	if hash == (common.Hash{}) || hash == emptyCodeHash {
		return nil, nil
	}
	code, err := k.store.Get(codeKey(hash))
	if err != nil {
		return nil, fmt.Errorf("failed to get code: %v", err)
	}
	return code, nil
}

// PutCode stores code under its keccak256 hash and returns the hash.
// Storing the same code twice is a no-op, which is what gives content
// deduplication.
func (k *Keeper) PutCode(code []byte) (common.Hash, error) {
	if len(code) == 0 {
		return emptyCodeHash, nil
	}
	hash := common.BytesToHash(crypto.Keccak256(code))
	if err := k.store.Put(codeKey(hash), code); err != nil {
		return common.Hash{}, fmt.Errorf("failed to store code: %v", err)
	}
	return hash, nil
}

// GetStorage reads one 256-bit storage slot. Missing slots read as zero.
func (k *Keeper) GetStorage(addr common.Address, slot common.Hash) (common.Hash, error) {
	data, err := k.store.Get(storageKey(addr, slot))
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to get storage: %v", err)
	}
	return common.BytesToHash(data), nil
}

// SetStorage writes one storage slot. Zero values delete the entry instead
// of storing an explicit zero.
func (k *Keeper) SetStorage(addr common.Address, slot, value common.Hash) error {
	if value == (common.Hash{}) {
		return k.store.Delete(storageKey(addr, slot))
	}
	return k.store.Put(storageKey(addr, slot), value.Bytes())
}

// WipeStorage removes every storage slot of the given contract.
func (k *Keeper) WipeStorage(addr common.Address) error {
	prefix := []byte(storagePrefix + strings.ToLower(addr.Hex()) + ":")
	var keys [][]byte
	err := k.store.IteratePrefix(prefix, func(key, _ []byte) bool {
		keys = append(keys, key)
		return true
	})
	if err != nil {
		return fmt.Errorf("failed to iterate storage: %v", err)
	}
	for _, key := range keys {
		if err := k.store.Delete(key); err != nil {
			return fmt.Errorf("failed to delete storage slot: %v", err)
		}
	}
	return nil
}

// DeleteAccount removes the account record and its storage. The code blob
// stays in place because other contracts may share it by content.
func (k *Keeper) DeleteAccount(addr common.Address) error {
	if err := k.store.Delete(accountKey(addr)); err != nil {
		return fmt.Errorf("failed to delete account: %v", err)
	}
	return k.WipeStorage(addr)
}

// MergeBalance moves the full balance of from into to. Used when a claimed
// EVM address absorbs funds that accrued on its default account.
func (k *Keeper) MergeBalance(from, to common.Address) error {
	if from == to {
		return nil
	}
	src, err := k.GetAccount(from)
	if err != nil {
		return err
	}
	if src.Balance.Sign() == 0 {
		return nil
	}
	dst, err := k.GetAccount(to)
	if err != nil {
		return err
	}
	dst.Balance = new(big.Int).Add(dst.Balance, src.Balance)
	src.Balance = new(big.Int)
	if err := k.SaveAccount(to, dst); err != nil {
		return err
	}
	return k.SaveAccount(from, src)
}

func accountKey(addr common.Address) []byte {
	return []byte(accountPrefix + strings.ToLower(addr.Hex()))
}

func codeKey(hash common.Hash) []byte {
	return []byte(codePrefix + strings.ToLower(hash.Hex()))
}

func storageKey(addr common.Address, slot common.Hash) []byte {
	return []byte(storagePrefix + strings.ToLower(addr.Hex()) + ":" + strings.ToLower(slot.Hex()))
}
