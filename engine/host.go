package engine

import (
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"

	"github.com/lumenchain/evm-engine/gas"
	"github.com/lumenchain/evm-engine/precompiles"
	"github.com/lumenchain/evm-engine/state"
	"github.com/lumenchain/evm-engine/types"
)

// CodeDepositGas is charged per byte of returned code when a CREATE
// succeeds.
const CodeDepositGas uint64 = 200

// Interpreter executes EVM bytecode. It is an external dependency of this
// engine: opcode semantics live behind this interface, and every state
// read/write, gas deduction, nested call and log emission comes back
// through the Host. Run returns the frame's return data; frame failures are
// signalled through the error taxonomy in the types package, an explicit
// revert through *types.RevertError.
type Interpreter interface {
	Run(host *Host, frame *Frame) ([]byte, error)
}

// Frame is one entry of the synchronous EVM call stack.
type Frame struct {
	Caller   common.Address
	Address  common.Address
	Code     []byte
	Input    []byte
	Value    *uint256.Int
	Depth    int
	ReadOnly bool
}

// Host is the callback surface shared by every frame of one top-level
// execution. Nested CALL/CREATE recurse through it into the same change set
// and the same gas meter, so a child only ever spends from its parent's
// remaining budget and a failing child only unwinds its own subtree.
type Host struct {
	backend     *state.Backend
	meter       *gas.Meter
	interp      Interpreter
	maxDepth    int
	maxCodeSize uint64
}

// NewHost wires the execution surfaces for one request.
func NewHost(backend *state.Backend, meter *gas.Meter, interp Interpreter, maxDepth int, maxCodeSize uint64) *Host {
	return &Host{
		backend:     backend,
		meter:       meter,
		interp:      interp,
		maxDepth:    maxDepth,
		maxCodeSize: maxCodeSize,
	}
}

// Backend exposes the merged state view.
func (h *Host) Backend() *state.Backend { return h.backend }

// Meter exposes the shared gas meter.
func (h *Host) Meter() *gas.Meter { return h.meter }

// EmitLog stages a log record; it is discarded with the frame if the frame
// reverts.
func (h *Host) EmitLog(addr common.Address, topics []common.Hash, data []byte) {
	h.backend.AddLog(types.Log{
		Address: addr,
		Topics:  append([]common.Hash(nil), topics...),
		Data:    append([]byte(nil), data...),
	})
}

// SelfDestruct schedules the executing contract for destruction, crediting
// its full remaining balance to the beneficiary.
func (h *Host) SelfDestruct(addr, beneficiary common.Address) error {
	return h.backend.SelfDestruct(addr, beneficiary)
}

// Call runs one CALL frame: value transfer, then precompile dispatch or
// bytecode execution. On any frame failure the frame's own writes are
// discarded; gas consumed stays consumed. The parent may catch the error
// and continue.
func (h *Host) Call(caller, target common.Address, input []byte, value *uint256.Int, depth int, readOnly bool) ([]byte, error) {
	if depth > h.maxDepth {
		return nil, types.ErrDepthLimit
	}

	snapshot := h.backend.ChangeSet().Snapshot()

	if value != nil && !value.IsZero() {
		if readOnly {
			return nil, types.ErrWriteProtection
		}
		if err := h.backend.Transfer(caller, target, value); err != nil {
			return nil, err
		}
	}

	// Precompile addresses shadow any contract code.
	if contract, ok := precompiles.Lookup(target); ok {
		if err := h.meter.Consume(contract.Gas(input)); err != nil {
			h.backend.ChangeSet().RevertToSnapshot(snapshot)
			return nil, err
		}
		out, err := contract.Run(input)
		if err != nil {
			h.backend.ChangeSet().RevertToSnapshot(snapshot)
			return nil, err
		}
		return out, nil
	}

	code, err := h.backend.CodeOf(target)
	if err != nil {
		return nil, err
	}
	if len(code) == 0 {
		// Plain value transfer.
		return nil, nil
	}

	ret, err := h.interp.Run(h, &Frame{
		Caller:   caller,
		Address:  target,
		Code:     code,
		Input:    input,
		Value:    value,
		Depth:    depth,
		ReadOnly: readOnly,
	})
	if err != nil {
		h.backend.ChangeSet().RevertToSnapshot(snapshot)
		if types.IsFatal(err) {
			return nil, err
		}
		return ret, err
	}
	return ret, nil
}

// Create runs one CREATE frame. The new address derives from the creator
// and its current nonce, or from creator, salt and init-code hash for the
// salted variant. Returned bytes become the contract's immutable code only
// if init execution succeeded and the code fits the protocol maximum.
func (h *Host) Create(caller common.Address, initCode []byte, value *uint256.Int, salt *common.Hash, depth int) (common.Address, []byte, error) {
	if depth > h.maxDepth {
		return common.Address{}, nil, types.ErrDepthLimit
	}

	nonce, err := h.backend.NonceOf(caller)
	if err != nil {
		return common.Address{}, nil, err
	}
	var contractAddr common.Address
	if salt != nil {
		contractAddr = crypto.CreateAddress2(caller, *salt, crypto.Keccak256(initCode))
	} else {
		contractAddr = crypto.CreateAddress(caller, nonce)
	}

	// Precompile slots are never valid CREATE targets, and an address that
	// already carries code or a nonce is a collision.
	if precompiles.IsPrecompile(contractAddr) {
		return common.Address{}, nil, types.ErrContractAddressCollision
	}
	existingCode, err := h.backend.CodeSizeOf(contractAddr)
	if err != nil {
		return common.Address{}, nil, err
	}
	existingNonce, err := h.backend.NonceOf(contractAddr)
	if err != nil {
		return common.Address{}, nil, err
	}
	if existingCode > 0 || existingNonce > 0 {
		return common.Address{}, nil, types.ErrContractAddressCollision
	}

	snapshot := h.backend.ChangeSet().Snapshot()

	if err := h.backend.IncNonce(caller); err != nil {
		return common.Address{}, nil, err
	}
	h.backend.SetNonce(contractAddr, 1)

	if value != nil && !value.IsZero() {
		if err := h.backend.Transfer(caller, contractAddr, value); err != nil {
			h.backend.ChangeSet().RevertToSnapshot(snapshot)
			return common.Address{}, nil, err
		}
	}

	code, err := h.interp.Run(h, &Frame{
		Caller:  caller,
		Address: contractAddr,
		Code:    initCode,
		Value:   value,
		Depth:   depth,
	})
	if err != nil {
		h.backend.ChangeSet().RevertToSnapshot(snapshot)
		if types.IsFatal(err) {
			return common.Address{}, nil, err
		}
		return common.Address{}, code, err
	}

	if uint64(len(code)) > h.maxCodeSize {
		h.backend.ChangeSet().RevertToSnapshot(snapshot)
		return common.Address{}, nil, types.ErrMaxCodeSizeExceeded
	}
	if err := h.meter.Consume(CodeDepositGas * uint64(len(code))); err != nil {
		h.backend.ChangeSet().RevertToSnapshot(snapshot)
		return common.Address{}, nil, err
	}
	h.backend.SetCode(contractAddr, code)

	return contractAddr, code, nil
}

// frameFailure reports whether err is an ordinary frame-level failure that
// a parent frame may catch, as opposed to a fatal abort.
func frameFailure(err error) bool {
	if err == nil || types.IsFatal(err) {
		return false
	}
	var rev *types.RevertError
	if errors.As(err, &rev) {
		return true
	}
	return errors.Is(err, types.ErrOutOfGas) ||
		errors.Is(err, types.ErrDepthLimit) ||
		errors.Is(err, types.ErrInsufficientBalance) ||
		errors.Is(err, types.ErrInvalidValueScale) ||
		errors.Is(err, types.ErrContractAddressCollision) ||
		errors.Is(err, types.ErrMaxCodeSizeExceeded) ||
		errors.Is(err, types.ErrPrecompileInput) ||
		errors.Is(err, types.ErrWriteProtection) ||
		errors.Is(err, types.ErrExecutionAborted)
}
