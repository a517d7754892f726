package commands

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/lumenchain/evm-engine/addrmap"
	"github.com/lumenchain/evm-engine/db"
	"github.com/lumenchain/evm-engine/state"
	"github.com/lumenchain/evm-engine/types"
)

// InspectCmd represents the inspect command
var InspectCmd = &cobra.Command{
	Use:   "inspect [address]",
	Short: "Inspect an account in the state store",
	Long: `Inspect the EVM-side state of an account: balance, nonce, code size and
the native/EVM address mapping. The address may be a 0x EVM address, a 0x
32-byte account id, or an SS58 native address.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		slot, _ := cmd.Flags().GetString("slot")
		return inspectCommand(args[0], slot)
	},
}

func init() {
	InspectCmd.Flags().String("slot", "", "Also print this storage slot (0x hex)")
}

func inspectCommand(arg, slot string) error {
	log := newLogger()

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %v", err)
	}

	store, err := db.NewLevelDB(cfg.Database.StatePath)
	if err != nil {
		return fmt.Errorf("failed to open state database: %v", err)
	}
	defer store.Close()

	keeper := state.NewKeeper(store)
	mapper := addrmap.NewMapper(store, log)

	var addr common.Address
	if strings.HasPrefix(arg, "0x") && len(arg) == 2+2*common.AddressLength {
		addr = common.HexToAddress(arg)
	} else {
		id, err := types.ParseAccountID(arg)
		if err != nil {
			return fmt.Errorf("failed to parse address: %v", err)
		}
		addr, err = mapper.EvmAddressOf(id)
		if err != nil {
			return err
		}
		fmt.Printf("Native account: %s (%s)\n", id.SS58(cfg.Chain.SS58Prefix), id.Hex())
	}

	acc, err := keeper.GetAccount(addr)
	if err != nil {
		return err
	}
	code, err := keeper.GetCode(acc.CodeHash)
	if err != nil {
		return err
	}
	nativeID, err := mapper.NativeID(addr)
	if err != nil {
		return err
	}

	fmt.Printf("EVM address:    %s\n", addr.Hex())
	fmt.Printf("Owner account:  %s\n", nativeID.SS58(cfg.Chain.SS58Prefix))
	fmt.Printf("Balance:        %s (native units)\n", acc.Balance.String())
	fmt.Printf("Nonce:          %d\n", acc.Nonce)
	fmt.Printf("Code size:      %d bytes\n", len(code))
	if len(code) > 0 {
		fmt.Printf("Code hash:      %s\n", acc.CodeHash.Hex())
	}
	if slot != "" {
		value, err := keeper.GetStorage(addr, common.HexToHash(slot))
		if err != nil {
			return err
		}
		fmt.Printf("Storage[%s]: 0x%s\n", slot, hex.EncodeToString(value.Bytes()))
	}

	return nil
}

// StateRootCmd represents the state-root command
var StateRootCmd = &cobra.Command{
	Use:   "state-root",
	Short: "Print the deterministic commitment over the state store",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %v", err)
		}
		store, err := db.NewLevelDB(cfg.Database.StatePath)
		if err != nil {
			return fmt.Errorf("failed to open state database: %v", err)
		}
		defer store.Close()

		root, err := state.NewKeeper(store).StateRoot()
		if err != nil {
			return fmt.Errorf("failed to compute state root: %v", err)
		}
		fmt.Println(root)
		return nil
	},
}
