// Package engine orchestrates top-level EVM CALL and CREATE requests
// against the native ledger state: gas reservation, interpreter execution,
// atomic commit or rollback, and event emission.
package engine

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/sirupsen/logrus"

	"github.com/lumenchain/evm-engine/addrmap"
	"github.com/lumenchain/evm-engine/config"
	"github.com/lumenchain/evm-engine/db"
	"github.com/lumenchain/evm-engine/gas"
	"github.com/lumenchain/evm-engine/state"
	"github.com/lumenchain/evm-engine/types"
)

// Intrinsic gas charged before any byte of code runs.
const (
	TxGas       uint64 = 21000
	TxGasCreate uint64 = 53000
)

// Engine is the execution coordinator. One Engine serves the host ledger
// for the lifetime of the process; each Execute call is a self-contained
// state machine over a fresh change set. Execution is synchronous and
// single-threaded per request, matching the host's sequential
// state-transition step.
type Engine struct {
	keeper *state.Keeper
	mapper *addrmap.Mapper
	interp Interpreter
	scaler *types.Scaler
	sink   EventSink
	log    *logrus.Logger

	chainID      uint64
	gasPrice     uint64
	feeCollector common.Address
	maxDepth     int
	maxCodeSize  uint64
}

// New builds an engine over the given store. The interpreter is the
// external bytecode execution dependency; passing a nil sink routes events
// into the logger.
func New(cfg config.ChainConfig, store db.DB, interp Interpreter, sink EventSink, log *logrus.Logger) (*Engine, error) {
	scaler, err := types.NewScaler(cfg.NativeDecimals)
	if err != nil {
		return nil, fmt.Errorf("failed to build unit scaler: %v", err)
	}
	mapper := addrmap.NewMapper(store, log)

	var collector common.Address
	if cfg.FeeCollector != "" {
		id, err := types.ParseAccountID(cfg.FeeCollector)
		if err != nil {
			return nil, fmt.Errorf("failed to parse fee collector: %v", err)
		}
		collector, err = mapper.EvmAddressOf(id)
		if err != nil {
			return nil, err
		}
	}

	if sink == nil {
		sink = &LogrusSink{Log: log}
	}
	maxDepth := cfg.MaxCallDepth
	if maxDepth == 0 {
		maxDepth = 1024
	}
	maxCodeSize := cfg.MaxCodeSize
	if maxCodeSize == 0 {
		maxCodeSize = 24576
	}

	return &Engine{
		keeper:       state.NewKeeper(store),
		mapper:       mapper,
		interp:       interp,
		scaler:       scaler,
		sink:         sink,
		log:          log,
		chainID:      cfg.ChainID,
		gasPrice:     cfg.GasPrice,
		feeCollector: collector,
		maxDepth:     maxDepth,
		maxCodeSize:  maxCodeSize,
	}, nil
}

// Keeper exposes the durable state store for host-side inspection.
func (e *Engine) Keeper() *state.Keeper { return e.keeper }

// Mapper exposes the address mapper.
func (e *Engine) Mapper() *addrmap.Mapper { return e.mapper }

// Execute runs one top-level CALL or CREATE and commits its effects. The
// returned error is non-nil only for admission failures (no state change,
// no gas charged) and fatal aborts; every execution-level failure is
// reported through the outcome status instead.
func (e *Engine) Execute(req types.ExecutionRequest) (*types.ExecutionOutcome, error) {
	return e.run(req, true)
}

// Query runs the request against current state without committing anything:
// the gas-estimation / simulation entry point. Identical inputs produce
// identical outcomes and zero durable state change.
func (e *Engine) Query(req types.ExecutionRequest) (*types.ExecutionOutcome, error) {
	return e.run(req, false)
}

func (e *Engine) run(req types.ExecutionRequest, commit bool) (*types.ExecutionOutcome, error) {
	if req.GasLimit == 0 {
		return nil, fmt.Errorf("gas limit must be positive: %w", types.ErrMalformedRequest)
	}
	value := req.Value
	if value == nil {
		value = new(uint256.Int)
	}

	sender, err := e.mapper.EvmAddressOf(req.Sender)
	if err != nil {
		return nil, err
	}

	block := req.Block
	block.ChainID = e.chainID

	cs := state.NewChangeSet()
	backend := state.NewBackend(e.keeper, cs, e.scaler, block)
	meter := gas.NewMeter(req.GasLimit, e.gasPrice, sender, e.feeCollector)
	host := NewHost(backend, meter, e.interp, e.maxDepth, e.maxCodeSize)

	if err := meter.Reserve(backend); err != nil {
		return nil, err
	}

	intrinsic := TxGas
	if req.Target == nil {
		intrinsic = TxGasCreate
	}
	if err := meter.Consume(intrinsic); err != nil {
		return nil, fmt.Errorf("intrinsic gas exceeds gas limit: %w", types.ErrMalformedRequest)
	}

	outcome := &types.ExecutionOutcome{Status: types.StatusSuccess}

	var execErr error
	if req.Target == nil {
		var contractAddr common.Address
		contractAddr, _, execErr = host.Create(sender, req.Input, value, req.Salt, 0)
		if execErr == nil {
			outcome.ContractAddress = &contractAddr
		}
	} else {
		outcome.ReturnData, execErr = host.Call(sender, *req.Target, req.Input, value, 0, false)
	}

	switch {
	case execErr == nil:
		if req.Target != nil {
			if err := backend.IncNonce(sender); err != nil {
				return nil, types.Fatal(err)
			}
		}
		outcome.Logs = cs.Logs()
	case types.IsFatal(execErr):
		return nil, execErr
	default:
		if data, ok := types.RevertData(execErr); ok {
			outcome.Status = types.StatusReverted
			outcome.ReturnData = data
		} else if frameFailure(execErr) {
			outcome.Status = types.StatusError
			outcome.ReturnData = nil
		} else {
			// Unknown interpreter failure: treat as fatal rather than guess.
			return nil, types.Fatal(execErr)
		}
		outcome.Err = execErr
	}

	if err := meter.Settle(backend); err != nil {
		return nil, types.Fatal(err)
	}
	outcome.GasUsed = meter.Used()

	if commit {
		if err := backend.Commit(); err != nil {
			return nil, err
		}
		for _, l := range outcome.Logs {
			e.sink.LogEmitted(l)
		}
		if outcome.ContractAddress != nil {
			e.sink.ContractCreated(req.Sender, *outcome.ContractAddress)
		}
		e.sink.ExecutionCompleted(req.Sender, outcome.Status, outcome.GasUsed)
	}

	return outcome, nil
}

// Claim binds an EVM address to a native account after verifying the
// claimant's signature, merging any balance the default account gathered.
func (e *Engine) Claim(id types.AccountID, addr common.Address, sig [65]byte) error {
	err := e.mapper.Claim(id, addr, sig, &balanceMigrator{keeper: e.keeper, mapper: e.mapper})
	if err != nil {
		return err
	}
	e.sink.AccountClaimed(id, addr)
	return nil
}

// balanceMigrator adapts the keeper to the mapper's claim-time balance
// merge.
type balanceMigrator struct {
	keeper *state.Keeper
	mapper *addrmap.Mapper
}

func (m *balanceMigrator) MergeAccount(from, to types.AccountID) error {
	fromAddr, err := m.mapper.EvmAddressOf(from)
	if err != nil {
		return err
	}
	toAddr, err := m.mapper.EvmAddressOf(to)
	if err != nil {
		return err
	}
	return m.keeper.MergeBalance(fromAddr, toAddr)
}

// AccountBalance returns the wei-scaled balance of addr from durable state.
func (e *Engine) AccountBalance(addr common.Address) (*uint256.Int, error) {
	acc, err := e.keeper.GetAccount(addr)
	if err != nil {
		return nil, err
	}
	return e.scaler.ToWei(acc.Balance)
}

// AccountNonce returns the durable nonce of addr.
func (e *Engine) AccountNonce(addr common.Address) (uint64, error) {
	acc, err := e.keeper.GetAccount(addr)
	if err != nil {
		return 0, err
	}
	return acc.Nonce, nil
}

// AccountCode returns the durable bytecode of addr.
func (e *Engine) AccountCode(addr common.Address) ([]byte, error) {
	acc, err := e.keeper.GetAccount(addr)
	if err != nil {
		return nil, err
	}
	return e.keeper.GetCode(acc.CodeHash)
}

// AccountStorage returns the durable value of one storage slot of addr.
func (e *Engine) AccountStorage(addr common.Address, slot common.Hash) (common.Hash, error) {
	return e.keeper.GetStorage(addr, slot)
}

// StateRoot returns the deterministic commitment over durable state.
func (e *Engine) StateRoot() (string, error) {
	return e.keeper.StateRoot()
}

// IsAdmissionError reports whether err belongs to the admission class:
// rejected before execution with zero state change and zero gas charged.
func IsAdmissionError(err error) bool {
	return errors.Is(err, types.ErrInsufficientFeeBalance) ||
		errors.Is(err, types.ErrMalformedRequest)
}
