package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/lumenchain/evm-engine/cmd/evm-engine/commands"
)

func main() {
	// Create root command
	rootCmd := &cobra.Command{
		Use:   "evm-engine",
		Short: "EVM execution engine over a native ledger state store",
		Long: `An EVM execution engine that settles contract deployment and calls in a
native ledger's account model. It manages the durable account state store,
the genesis allocation, and the address mapping between native accounts and
EVM addresses.`,
	}

	// Add commands
	rootCmd.AddCommand(commands.InitCmd)
	rootCmd.AddCommand(commands.GenesisCmd)
	rootCmd.AddCommand(commands.InspectCmd)
	rootCmd.AddCommand(commands.StateRootCmd)

	// Execute root command
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
