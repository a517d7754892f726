package types

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	subkey "github.com/vedhavyas/go-subkey/v2"
)

// AccountID is a native ledger account identifier (32 bytes, Substrate-style).
type AccountID [32]byte

// AccountIDFromBytes copies b into an AccountID. The input must be exactly 32 bytes.
func AccountIDFromBytes(b []byte) (AccountID, error) {
	var id AccountID
	if len(b) != len(id) {
		return id, fmt.Errorf("invalid account id length: %d", len(b))
	}
	copy(id[:], b)
	return id, nil
}

// ParseAccountID accepts either an SS58-encoded address or a 0x-prefixed
// 32-byte hex string.
func ParseAccountID(s string) (AccountID, error) {
	if strings.HasPrefix(s, "0x") {
		raw, err := hex.DecodeString(s[2:])
		if err != nil {
			return AccountID{}, fmt.Errorf("failed to decode account id hex: %v", err)
		}
		return AccountIDFromBytes(raw)
	}
	_, pubkey, err := subkey.SS58Decode(s)
	if err != nil {
		return AccountID{}, fmt.Errorf("failed to decode SS58 address: %v", err)
	}
	return AccountIDFromBytes(pubkey)
}

// SS58 renders the account id as an SS58 address for the given network prefix.
func (id AccountID) SS58(network uint16) string {
	return subkey.SS58Encode(id[:], network)
}

func (id AccountID) Hex() string {
	return "0x" + hex.EncodeToString(id[:])
}

func (id AccountID) String() string { return id.Hex() }

// Status classifies the result of one top-level execution.
type Status uint8

const (
	StatusSuccess Status = iota
	StatusReverted
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusReverted:
		return "reverted"
	case StatusError:
		return "error"
	default:
		return fmt.Sprintf("status(%d)", uint8(s))
	}
}

// Log is a single EVM log record emitted during execution.
type Log struct {
	Address common.Address `json:"address"`
	Topics  []common.Hash  `json:"topics"`
	Data    []byte         `json:"data"`
}

// BlockContext carries the host chain values the interpreter may observe.
// The host ledger fills it in once per state-transition step.
type BlockContext struct {
	Number    uint64
	Timestamp uint64
	ChainID   uint64
	BaseFee   *uint256.Int
}

// ExecutionRequest is the input of one top-level CALL or CREATE. A nil Target
// signals contract creation. Value is denominated in wei; Salt is only
// consulted for the salted CREATE variant.
type ExecutionRequest struct {
	Sender   AccountID
	Target   *common.Address
	Value    *uint256.Int
	Input    []byte
	GasLimit uint64
	Salt     *common.Hash
	Block    BlockContext
}

// ExecutionOutcome is the immutable result of one top-level execution.
type ExecutionOutcome struct {
	Status          Status
	ReturnData      []byte
	GasUsed         uint64
	Logs            []Log
	ContractAddress *common.Address
	Err             error
}
