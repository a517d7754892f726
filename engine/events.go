package engine

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"github.com/lumenchain/evm-engine/types"
)

// EventSink receives the events the engine owes the host ledger: one per
// emitted log, one per successful contract creation, one per completed
// execution, and one per account claim.
type EventSink interface {
	ExecutionCompleted(sender types.AccountID, status types.Status, gasUsed uint64)
	ContractCreated(creator types.AccountID, contract common.Address)
	LogEmitted(log types.Log)
	AccountClaimed(id types.AccountID, addr common.Address)
}

// LogrusSink is the default sink: it renders events into the engine log.
// Hosts embedding the engine replace it with their own event pipeline.
type LogrusSink struct {
	Log *logrus.Logger
}

func (s *LogrusSink) ExecutionCompleted(sender types.AccountID, status types.Status, gasUsed uint64) {
	s.Log.Infof("Execution by %s completed: %s (gas used %d)", sender.Hex(), status, gasUsed)
}

func (s *LogrusSink) ContractCreated(creator types.AccountID, contract common.Address) {
	s.Log.Infof("Contract created at %s by %s", contract.Hex(), creator.Hex())
}

func (s *LogrusSink) LogEmitted(log types.Log) {
	s.Log.Debugf("Log emitted by %s (%d topics, %d data bytes)", log.Address.Hex(), len(log.Topics), len(log.Data))
}

func (s *LogrusSink) AccountClaimed(id types.AccountID, addr common.Address) {
	s.Log.Infof("Account %s claimed EVM address %s", id.Hex(), addr.Hex())
}
