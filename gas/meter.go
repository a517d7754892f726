// Package gas meters execution against a per-request limit and settles the
// resulting fee in the ledger's native unit. One meter serves an entire call
// tree: nested frames spend from the same remaining budget.
package gas

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/lumenchain/evm-engine/state"
	"github.com/lumenchain/evm-engine/types"
)

// Meter is the per-execution gas state machine: Reserve debits the
// worst-case fee up front, Consume burns gas as the interpreter runs, and
// Settle finalizes the actual fee and refunds the rest. Reserve and Settle
// write through the shared change set, so fee movement commits or reverts
// atomically with the rest of the execution.
type Meter struct {
	limit     uint64
	remaining uint64
	price     *big.Int
	sender    common.Address
	collector common.Address

	reserved bool
	settled  bool
}

// NewMeter builds a meter for one top-level execution. price is the
// native-unit cost of one gas; collector receives the realized fee (the
// zero address burns it).
func NewMeter(limit uint64, price uint64, sender, collector common.Address) *Meter {
	return &Meter{
		limit:     limit,
		remaining: limit,
		price:     new(big.Int).SetUint64(price),
		sender:    sender,
		collector: collector,
	}
}

// Reserve debits limit*price from the sender before any execution. If the
// balance cannot cover it the whole request is rejected at admission with
// no state change and no gas charged.
func (m *Meter) Reserve(backend *state.Backend) error {
	if m.reserved {
		return fmt.Errorf("gas already reserved")
	}
	worstCase := new(big.Int).Mul(new(big.Int).SetUint64(m.limit), m.price)
	if err := backend.Debit(m.sender, worstCase); err != nil {
		if errors.Is(err, types.ErrInsufficientBalance) {
			return types.ErrInsufficientFeeBalance
		}
		return err
	}
	m.reserved = true
	return nil
}

// Consume deducts amount from the remaining budget, failing the current
// frame with out-of-gas if it would go negative. Gas consumed before the
// failure stays consumed.
func (m *Meter) Consume(amount uint64) error {
	if amount > m.remaining {
		m.remaining = 0
		return types.ErrOutOfGas
	}
	m.remaining -= amount
	return nil
}

// ConsumeAll burns the remaining budget. Frame errors other than an
// explicit revert forfeit unused frame gas.
func (m *Meter) ConsumeAll() {
	m.remaining = 0
}

// Remaining returns the gas still available to the call tree.
func (m *Meter) Remaining() uint64 { return m.remaining }

// Used returns the gas consumed so far.
func (m *Meter) Used() uint64 { return m.limit - m.remaining }

// Limit returns the gas limit the meter was created with.
func (m *Meter) Limit() uint64 { return m.limit }

// Settle refunds the unused part of the reservation to the sender and
// credits the realized fee to the collector, all inside the change set that
// commits with the execution. A reverted call still pays for the work it
// performed; only unused gas comes back.
func (m *Meter) Settle(backend *state.Backend) error {
	if !m.reserved {
		return fmt.Errorf("gas not reserved")
	}
	if m.settled {
		return fmt.Errorf("gas already settled")
	}
	refund := new(big.Int).Mul(new(big.Int).SetUint64(m.remaining), m.price)
	if refund.Sign() > 0 {
		if err := backend.Credit(m.sender, refund); err != nil {
			return err
		}
	}
	if m.collector != (common.Address{}) {
		fee := new(big.Int).Mul(new(big.Int).SetUint64(m.Used()), m.price)
		if fee.Sign() > 0 {
			if err := backend.Credit(m.collector, fee); err != nil {
				return err
			}
		}
	}
	m.settled = true
	return nil
}
