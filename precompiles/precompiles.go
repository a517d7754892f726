// Package precompiles implements the fixed table of native contracts that
// every Ethereum-compatible chain exposes in the low address range. Each
// entry prices its input before running so the gas meter can be charged
// atomically with the call, and insufficient gas fails exactly like a
// bytecode out-of-gas.
package precompiles

import (
	"crypto/sha256"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/crypto/ripemd160"

	"github.com/lumenchain/evm-engine/types"
)

// Gas costs per the Ethereum fee schedule.
const (
	EcrecoverGas        uint64 = 3000
	Sha256BaseGas       uint64 = 60
	Sha256PerWordGas    uint64 = 12
	Ripemd160BaseGas    uint64 = 600
	Ripemd160PerWordGas uint64 = 120
	IdentityBaseGas     uint64 = 15
	IdentityPerWordGas  uint64 = 3
)

// Contract is one precompiled contract: a pure function from input bytes to
// output bytes with an input-length-dependent gas cost.
type Contract interface {
	// Gas returns the cost of running the contract on the given input.
	Gas(input []byte) uint64
	// Run executes the contract. It must be deterministic and side-effect
	// free.
	Run(input []byte) ([]byte, error)
}

// table is the fixed, ordered dispatch map, built once at process start.
var table = map[common.Address]Contract{
	addressOf(1): &ecrecover{},
	addressOf(2): &sha256hash{},
	addressOf(3): &ripemd160hash{},
	addressOf(4): &identity{},
}

func addressOf(n byte) common.Address {
	var addr common.Address
	addr[common.AddressLength-1] = n
	return addr
}

// Lookup returns the precompile registered at addr, if any. Dispatch is
// consulted before ordinary contract-code lookup, so precompile addresses
// shadow any code that might occupy those slots.
func Lookup(addr common.Address) (Contract, bool) {
	c, ok := table[addr]
	return c, ok
}

// IsPrecompile reports whether addr is reserved by the dispatch table.
// Reserved addresses must never hold code or be CREATE targets.
func IsPrecompile(addr common.Address) bool {
	_, ok := table[addr]
	return ok
}

// Addresses returns the reserved addresses in ascending order.
func Addresses() []common.Address {
	out := make([]common.Address, 0, len(table))
	for i := byte(1); int(i) <= len(table); i++ {
		out = append(out, addressOf(i))
	}
	return out
}

func wordCount(input []byte) uint64 {
	return uint64(len(input)+31) / 32
}

// ecrecover recovers the signer address of a 65-byte secp256k1 signature.
type ecrecover struct{}

func (c *ecrecover) Gas(input []byte) uint64 { return EcrecoverGas }

func (c *ecrecover) Run(input []byte) ([]byte, error) {
	const inputLen = 128
	if len(input) > inputLen {
		return nil, types.ErrPrecompileInput
	}
	padded := make([]byte, inputLen)
	copy(padded, input)

	r := new(big.Int).SetBytes(padded[64:96])
	s := new(big.Int).SetBytes(padded[96:128])
	v := padded[63]

	// v must be 27 or 28 with the rest of that word all zero.
	if !allZero(padded[32:63]) || v < 27 || v > 28 {
		return nil, types.ErrPrecompileInput
	}
	if !crypto.ValidateSignatureValues(v-27, r, s, false) {
		return nil, types.ErrPrecompileInput
	}

	sig := make([]byte, 65)
	copy(sig[0:64], padded[64:128])
	sig[64] = v - 27

	pubkey, err := crypto.Ecrecover(padded[0:32], sig)
	if err != nil {
		return nil, types.ErrPrecompileInput
	}
	addr := common.BytesToAddress(crypto.Keccak256(pubkey[1:])[12:])
	return common.LeftPadBytes(addr.Bytes(), 32), nil
}

func allZero(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}

// sha256hash is the SHA-256 precompile at 0x02.
type sha256hash struct{}

func (c *sha256hash) Gas(input []byte) uint64 {
	return Sha256BaseGas + Sha256PerWordGas*wordCount(input)
}

func (c *sha256hash) Run(input []byte) ([]byte, error) {
	sum := sha256.Sum256(input)
	return sum[:], nil
}

// ripemd160hash is the RIPEMD-160 precompile at 0x03; the 20-byte digest is
// left-padded to a word.
type ripemd160hash struct{}

func (c *ripemd160hash) Gas(input []byte) uint64 {
	return Ripemd160BaseGas + Ripemd160PerWordGas*wordCount(input)
}

func (c *ripemd160hash) Run(input []byte) ([]byte, error) {
	hasher := ripemd160.New()
	hasher.Write(input)
	return common.LeftPadBytes(hasher.Sum(nil), 32), nil
}

// identity is the data-copy precompile at 0x04.
type identity struct{}

func (c *identity) Gas(input []byte) uint64 {
	return IdentityBaseGas + IdentityPerWordGas*wordCount(input)
}

func (c *identity) Run(input []byte) ([]byte, error) {
	return append([]byte(nil), input...), nil
}
