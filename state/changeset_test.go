package state

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/lumenchain/evm-engine/types"
)

func TestSnapshotRevertBalances(t *testing.T) {
	cs := NewChangeSet()
	addr := common.HexToAddress("0x01")

	cs.setBalance(addr, big.NewInt(100))
	snap := cs.Snapshot()
	cs.setBalance(addr, big.NewInt(50))

	cs.RevertToSnapshot(snap)
	if cs.balances[addr].Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("expected 100 after revert, got %s", cs.balances[addr])
	}
}

func TestSnapshotRevertRemovesFreshEntries(t *testing.T) {
	cs := NewChangeSet()
	addr := common.HexToAddress("0x02")
	slot := common.HexToHash("0x01")

	snap := cs.Snapshot()
	cs.setBalance(addr, big.NewInt(1))
	cs.setNonce(addr, 1)
	cs.setCode(addr, []byte{0x00})
	cs.setStorage(addr, slot, common.HexToHash("0xff"))
	cs.markDestructed(addr)
	cs.addLog(types.Log{Address: addr})

	cs.RevertToSnapshot(snap)

	if len(cs.balances) != 0 || len(cs.nonces) != 0 || len(cs.codes) != 0 {
		t.Fatal("account writes survived the revert")
	}
	if len(cs.storage) != 0 {
		t.Fatal("storage writes survived the revert")
	}
	if len(cs.destructs) != 0 {
		t.Fatal("destruct mark survived the revert")
	}
	if len(cs.Logs()) != 0 {
		t.Fatal("logs survived the revert")
	}
}

func TestNestedSnapshots(t *testing.T) {
	cs := NewChangeSet()
	addr := common.HexToAddress("0x03")
	slot := common.HexToHash("0x01")

	outer := cs.Snapshot()
	cs.setStorage(addr, slot, common.HexToHash("0x01"))

	inner := cs.Snapshot()
	cs.setStorage(addr, slot, common.HexToHash("0x02"))
	cs.addLog(types.Log{Address: addr})

	// Unwinding the inner frame keeps the outer frame's write.
	cs.RevertToSnapshot(inner)
	if cs.storage[addr][slot] != common.HexToHash("0x01") {
		t.Fatalf("expected outer write to survive, got %s", cs.storage[addr][slot].Hex())
	}
	if len(cs.Logs()) != 0 {
		t.Fatal("inner frame log survived")
	}

	cs.RevertToSnapshot(outer)
	if len(cs.storage) != 0 {
		t.Fatal("outer revert left storage behind")
	}
}

func TestRevertOrderIsLifo(t *testing.T) {
	cs := NewChangeSet()
	addr := common.HexToAddress("0x04")

	cs.setNonce(addr, 1)
	snap := cs.Snapshot()
	cs.setNonce(addr, 2)
	cs.setNonce(addr, 3)

	cs.RevertToSnapshot(snap)
	if cs.nonces[addr] != 1 {
		t.Fatalf("expected nonce 1 after revert, got %d", cs.nonces[addr])
	}
}

func TestLogsAccumulateInOrder(t *testing.T) {
	cs := NewChangeSet()

	cs.addLog(types.Log{Data: []byte{1}})
	cs.addLog(types.Log{Data: []byte{2}})

	logs := cs.Logs()
	if len(logs) != 2 || logs[0].Data[0] != 1 || logs[1].Data[0] != 2 {
		t.Fatalf("unexpected logs: %v", logs)
	}
}
