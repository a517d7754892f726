package state

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"

	"github.com/lumenchain/evm-engine/types"
)

// Backend is the state surface handed to the bytecode interpreter. Reads
// observe the keeper merged with everything staged so far in the change set
// (read-your-own-writes across the whole call tree); writes only ever touch
// the change set.
type Backend struct {
	keeper *Keeper
	cs     *ChangeSet
	scaler *types.Scaler
	block  types.BlockContext
}

// NewBackend builds a backend over keeper for one execution.
func NewBackend(keeper *Keeper, cs *ChangeSet, scaler *types.Scaler, block types.BlockContext) *Backend {
	return &Backend{keeper: keeper, cs: cs, scaler: scaler, block: block}
}

// ChangeSet exposes the pending change set for snapshotting by the frame
// machinery.
func (b *Backend) ChangeSet() *ChangeSet { return b.cs }

// Keeper returns the durable store underneath this backend.
func (b *Backend) Keeper() *Keeper { return b.keeper }

// NativeBalance returns the merged balance of addr in native units.
func (b *Backend) NativeBalance(addr common.Address) (*big.Int, error) {
	if staged, ok := b.cs.balances[addr]; ok {
		return new(big.Int).Set(staged), nil
	}
	acc, err := b.keeper.GetAccount(addr)
	if err != nil {
		return nil, err
	}
	return acc.Balance, nil
}

// BalanceOf returns the merged balance of addr scaled to wei.
func (b *Backend) BalanceOf(addr common.Address) (*uint256.Int, error) {
	native, err := b.NativeBalance(addr)
	if err != nil {
		return nil, err
	}
	wei, err := b.scaler.ToWei(native)
	if err != nil {
		return nil, types.Fatal(err)
	}
	return wei, nil
}

// NonceOf returns the merged nonce of addr.
func (b *Backend) NonceOf(addr common.Address) (uint64, error) {
	if staged, ok := b.cs.nonces[addr]; ok {
		return staged, nil
	}
	acc, err := b.keeper.GetAccount(addr)
	if err != nil {
		return 0, err
	}
	return acc.Nonce, nil
}

// CodeOf returns the merged bytecode of addr.
func (b *Backend) CodeOf(addr common.Address) ([]byte, error) {
	if staged, ok := b.cs.codes[addr]; ok {
		return staged, nil
	}
	acc, err := b.keeper.GetAccount(addr)
	if err != nil {
		return nil, err
	}
	return b.keeper.GetCode(acc.CodeHash)
}

// CodeHashOf returns the content hash of the merged bytecode of addr.
func (b *Backend) CodeHashOf(addr common.Address) (common.Hash, error) {
	if staged, ok := b.cs.codes[addr]; ok {
		return common.BytesToHash(crypto.Keccak256(staged)), nil
	}
	acc, err := b.keeper.GetAccount(addr)
	if err != nil {
		return common.Hash{}, err
	}
	if acc.CodeHash == (common.Hash{}) {
		return emptyCodeHash, nil
	}
	return acc.CodeHash, nil
}

// CodeSizeOf returns the merged bytecode length of addr.
func (b *Backend) CodeSizeOf(addr common.Address) (int, error) {
	code, err := b.CodeOf(addr)
	if err != nil {
		return 0, err
	}
	return len(code), nil
}

// GetState reads one storage slot through the merged view.
func (b *Backend) GetState(addr common.Address, slot common.Hash) (common.Hash, error) {
	if slots, ok := b.cs.storage[addr]; ok {
		if value, ok := slots[slot]; ok {
			return value, nil
		}
	}
	return b.keeper.GetStorage(addr, slot)
}

// SetState stages one storage write. A zero value stages removal of the
// slot rather than an explicit zero entry.
func (b *Backend) SetState(addr common.Address, slot, value common.Hash) {
	b.cs.setStorage(addr, slot, value)
}

// Exists reports whether addr has any observable state.
func (b *Backend) Exists(addr common.Address) (bool, error) {
	if _, ok := b.cs.balances[addr]; ok {
		return true, nil
	}
	if _, ok := b.cs.nonces[addr]; ok {
		return true, nil
	}
	if _, ok := b.cs.codes[addr]; ok {
		return true, nil
	}
	acc, err := b.keeper.GetAccount(addr)
	if err != nil {
		return false, err
	}
	return !acc.IsEmpty(), nil
}

// Transfer moves value (wei) from one address to another. Insufficient
// funds fail the current call, not the whole transaction. Values below the
// native unit resolution are rejected, never truncated.
func (b *Backend) Transfer(from, to common.Address, value *uint256.Int) error {
	if value == nil || value.IsZero() {
		return nil
	}
	native, err := b.scaler.ToNative(value)
	if err != nil {
		return err
	}
	return b.TransferNative(from, to, native)
}

// TransferNative moves a native-unit amount between addresses.
func (b *Backend) TransferNative(from, to common.Address, amount *big.Int) error {
	if amount.Sign() == 0 {
		return nil
	}
	fromBal, err := b.NativeBalance(from)
	if err != nil {
		return err
	}
	if fromBal.Cmp(amount) < 0 {
		return types.ErrInsufficientBalance
	}
	// Self-directed transfers move nothing once funds are checked; staging
	// both sides would let the credit overwrite the debit.
	if from == to {
		return nil
	}
	toBal, err := b.NativeBalance(to)
	if err != nil {
		return err
	}
	b.cs.setBalance(from, new(big.Int).Sub(fromBal, amount))
	b.cs.setBalance(to, new(big.Int).Add(toBal, amount))
	return nil
}

// Debit removes a native amount from addr, failing on insufficient funds.
func (b *Backend) Debit(addr common.Address, amount *big.Int) error {
	bal, err := b.NativeBalance(addr)
	if err != nil {
		return err
	}
	if bal.Cmp(amount) < 0 {
		return types.ErrInsufficientBalance
	}
	b.cs.setBalance(addr, new(big.Int).Sub(bal, amount))
	return nil
}

// Credit adds a native amount to addr.
func (b *Backend) Credit(addr common.Address, amount *big.Int) error {
	bal, err := b.NativeBalance(addr)
	if err != nil {
		return err
	}
	b.cs.setBalance(addr, new(big.Int).Add(bal, amount))
	return nil
}

// SetNonce stages a nonce write.
func (b *Backend) SetNonce(addr common.Address, nonce uint64) {
	b.cs.setNonce(addr, nonce)
}

// IncNonce stages a nonce increment.
func (b *Backend) IncNonce(addr common.Address) error {
	nonce, err := b.NonceOf(addr)
	if err != nil {
		return err
	}
	b.cs.setNonce(addr, nonce+1)
	return nil
}

// SetCode stages immutable bytecode for a freshly created contract.
func (b *Backend) SetCode(addr common.Address, code []byte) {
	b.cs.setCode(addr, code)
}

// SelfDestruct credits the contract's full remaining balance to the
// beneficiary and schedules code and storage removal for commit time.
func (b *Backend) SelfDestruct(addr, beneficiary common.Address) error {
	balance, err := b.NativeBalance(addr)
	if err != nil {
		return err
	}
	if balance.Sign() > 0 {
		if addr == beneficiary {
			b.cs.setBalance(addr, new(big.Int))
		} else {
			if err := b.TransferNative(addr, beneficiary, balance); err != nil {
				return err
			}
		}
	}
	b.cs.markDestructed(addr)
	return nil
}

// HasDestructed reports whether addr was self-destructed in this execution.
func (b *Backend) HasDestructed(addr common.Address) bool {
	_, ok := b.cs.destructs[addr]
	return ok
}

// AddLog stages one log record.
func (b *Backend) AddLog(log types.Log) {
	b.cs.addLog(log)
}

// Block context accessors, per the interpreter contract.

func (b *Backend) BlockNumber() uint64    { return b.block.Number }
func (b *Backend) BlockTimestamp() uint64 { return b.block.Timestamp }
func (b *Backend) ChainID() uint64        { return b.block.ChainID }

func (b *Backend) BaseFee() *uint256.Int {
	if b.block.BaseFee == nil {
		return new(uint256.Int)
	}
	return new(uint256.Int).Set(b.block.BaseFee)
}

// Commit merges the change set wholesale into the keeper: balances, nonces,
// deposited code, storage writes, then destructed accounts. Any store error
// here is fatal; half-applied commits would fork consensus.
func (b *Backend) Commit() error {
	for addr, balance := range b.cs.balances {
		acc, err := b.keeper.GetAccount(addr)
		if err != nil {
			return types.Fatal(err)
		}
		acc.Balance = balance
		if err := b.keeper.SaveAccount(addr, acc); err != nil {
			return types.Fatal(err)
		}
	}
	for addr, nonce := range b.cs.nonces {
		acc, err := b.keeper.GetAccount(addr)
		if err != nil {
			return types.Fatal(err)
		}
		acc.Nonce = nonce
		if err := b.keeper.SaveAccount(addr, acc); err != nil {
			return types.Fatal(err)
		}
	}
	for addr, code := range b.cs.codes {
		hash, err := b.keeper.PutCode(code)
		if err != nil {
			return types.Fatal(err)
		}
		acc, err := b.keeper.GetAccount(addr)
		if err != nil {
			return types.Fatal(err)
		}
		acc.CodeHash = hash
		if err := b.keeper.SaveAccount(addr, acc); err != nil {
			return types.Fatal(err)
		}
	}
	for addr, slots := range b.cs.storage {
		if _, destructed := b.cs.destructs[addr]; destructed {
			continue
		}
		for slot, value := range slots {
			if err := b.keeper.SetStorage(addr, slot, value); err != nil {
				return types.Fatal(err)
			}
		}
	}
	for addr := range b.cs.destructs {
		if err := b.keeper.DeleteAccount(addr); err != nil {
			return types.Fatal(err)
		}
	}
	return nil
}

// String implements fmt.Stringer for debug logging.
func (b *Backend) String() string {
	return fmt.Sprintf("backend{staged: %d balances, %d storage accounts, %d logs}",
		len(b.cs.balances), len(b.cs.storage), len(b.cs.logs))
}
