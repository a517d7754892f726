package state

import (
	"encoding/hex"
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/rlp"
	"golang.org/x/crypto/sha3"
)

// StateRoot computes a deterministic keccak commitment over the whole
// durable state: every account record, every code blob and every storage
// slot, folded in ascending key order. Every validator replaying the same
// requests must land on the same root; it is the cheap cross-check that the
// per-request commits stayed bit-identical.
func (k *Keeper) StateRoot() (string, error) {
	type entry struct {
		Key   []byte
		Value []byte
	}
	var entries []entry
	for _, prefix := range []string{accountPrefix, codePrefix, storagePrefix} {
		err := k.store.IteratePrefix([]byte(prefix), func(key, value []byte) bool {
			entries = append(entries, entry{Key: key, Value: value})
			return true
		})
		if err != nil {
			return "", fmt.Errorf("failed to iterate state: %v", err)
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		return string(entries[i].Key) < string(entries[j].Key)
	})

	hasher := sha3.NewLegacyKeccak256()
	for _, e := range entries {
		encoded, err := rlp.EncodeToBytes([][]byte{e.Key, e.Value})
		if err != nil {
			return "", fmt.Errorf("failed to encode state entry: %v", err)
		}
		hasher.Write(encoded)
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}
