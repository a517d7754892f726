package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lumenchain/evm-engine/db"
	"github.com/lumenchain/evm-engine/state"
)

// GenesisCmd represents the genesis command
var GenesisCmd = &cobra.Command{
	Use:   "genesis",
	Short: "Load the genesis allocation into the state store",
	Long: `Load the genesis allocation from the configured genesis.json into the
state store and print the resulting state root.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return genesisCommand()
	},
}

func genesisCommand() error {
	log := newLogger()

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %v", err)
	}

	if _, err := os.Stat(cfg.Genesis.FilePath); os.IsNotExist(err) {
		return fmt.Errorf("genesis.json not found at %s", cfg.Genesis.FilePath)
	}

	store, err := db.NewLevelDB(cfg.Database.StatePath)
	if err != nil {
		return fmt.Errorf("failed to open state database: %v", err)
	}
	defer store.Close()

	keeper := state.NewKeeper(store)
	root, err := keeper.LoadGenesis(cfg.Genesis.FilePath, log)
	if err != nil {
		return fmt.Errorf("failed to load genesis: %v", err)
	}

	log.Infof("Genesis State Root: %s", root)
	return nil
}
