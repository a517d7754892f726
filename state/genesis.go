package state

import (
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"github.com/lumenchain/evm-engine/addrmap"
	"github.com/lumenchain/evm-engine/types"
)

// Genesis describes the initial allocation. Keys of Alloc are either SS58
// native account ids or 0x-prefixed EVM addresses; native ids are mapped to
// their derived EVM address before the balance is written.
type Genesis struct {
	ChainID uint64                    `json:"chainId"`
	Alloc   map[string]GenesisAccount `json:"alloc"`
}

// GenesisAccount is one allocation entry. Balance is a decimal string in
// native units. Code and storage predeploy a contract.
type GenesisAccount struct {
	Balance string            `json:"balance"`
	Code    string            `json:"code,omitempty"`
	Storage map[string]string `json:"storage,omitempty"`
}

// LoadGenesis applies the allocation file to the keeper and returns the
// resulting state root.
func (k *Keeper) LoadGenesis(genesisPath string, log *logrus.Logger) (string, error) {
	data, err := os.ReadFile(genesisPath)
	if err != nil {
		return "", fmt.Errorf("failed to read genesis file: %v", err)
	}

	var genesis Genesis
	if err := json.Unmarshal(data, &genesis); err != nil {
		return "", fmt.Errorf("failed to parse genesis file: %v", err)
	}

	for key, alloc := range genesis.Alloc {
		addr, err := resolveGenesisAddress(key)
		if err != nil {
			return "", fmt.Errorf("failed to resolve genesis account %s: %v", key, err)
		}

		balance, ok := new(big.Int).SetString(alloc.Balance, 10)
		if !ok {
			return "", fmt.Errorf("invalid balance for genesis account %s", key)
		}

		acc, err := k.GetAccount(addr)
		if err != nil {
			return "", err
		}
		acc.Balance = balance

		if alloc.Code != "" {
			code := common.FromHex(alloc.Code)
			hash, err := k.PutCode(code)
			if err != nil {
				return "", err
			}
			acc.CodeHash = hash
			acc.Nonce = 1
		}

		if err := k.SaveAccount(addr, acc); err != nil {
			return "", fmt.Errorf("failed to save genesis account %s: %v", key, err)
		}

		for slot, value := range alloc.Storage {
			if err := k.SetStorage(addr, common.HexToHash(slot), common.HexToHash(value)); err != nil {
				return "", fmt.Errorf("failed to set genesis storage for %s: %v", key, err)
			}
		}

		if log != nil {
			log.Infof("Loaded genesis account %s (balance %s)", addr.Hex(), balance.String())
		}
	}

	root, err := k.StateRoot()
	if err != nil {
		return "", err
	}
	if log != nil {
		log.Infof("Genesis state root: %s", root)
	}
	return root, nil
}

// resolveGenesisAddress accepts a 20-byte hex EVM address, a 32-byte hex
// account id, or an SS58 address. Native ids resolve to their derived EVM
// address.
func resolveGenesisAddress(key string) (common.Address, error) {
	if strings.HasPrefix(key, "0x") && len(key) == 2+2*common.AddressLength {
		return common.HexToAddress(key), nil
	}
	id, err := types.ParseAccountID(key)
	if err != nil {
		return common.Address{}, err
	}
	return addrmap.EvmAddress(id), nil
}
