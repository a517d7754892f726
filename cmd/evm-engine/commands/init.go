package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/lumenchain/evm-engine/config"
)

// InitCmd represents the init command
var InitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize the execution engine",
	Long: `Initialize the execution engine with the required configuration.
This command creates the data directories and the config file under ~/.evm-engine.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return initCommand(cmd)
	},
}

func init() {
	InitCmd.Flags().Uint64("chain.id", 787, "EVM chain id")
	InitCmd.Flags().Uint64("chain.gas-price", 1, "Gas price in native units per gas")
	InitCmd.Flags().Uint8("chain.native-decimals", 12, "Decimals of the native token")
	InitCmd.Flags().Uint16("chain.ss58-prefix", 42, "SS58 network prefix for native addresses")
	InitCmd.Flags().String("chain.fee-collector", "", "Account receiving execution fees (SS58 or 0x hex)")
	InitCmd.Flags().String("genesis.file", "", "Path to genesis.json")
}

func initCommand(cmd *cobra.Command) error {
	chainID, _ := cmd.Flags().GetUint64("chain.id")
	gasPrice, _ := cmd.Flags().GetUint64("chain.gas-price")
	decimals, _ := cmd.Flags().GetUint8("chain.native-decimals")
	ss58Prefix, _ := cmd.Flags().GetUint16("chain.ss58-prefix")
	feeCollector, _ := cmd.Flags().GetString("chain.fee-collector")
	genesisFile, _ := cmd.Flags().GetString("genesis.file")

	log := newLogger()

	// Get user's home directory
	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %v", err)
	}

	engineDir := filepath.Join(home, ".evm-engine")
	if err := os.MkdirAll(engineDir, 0755); err != nil {
		return fmt.Errorf("failed to create .evm-engine directory: %v", err)
	}

	stateDir := filepath.Join(engineDir, "data", "state_db")
	if err := os.MkdirAll(stateDir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %v", stateDir, err)
	}

	cfg := config.DefaultConfig()
	cfg.Chain.ChainID = chainID
	cfg.Chain.GasPrice = gasPrice
	cfg.Chain.NativeDecimals = decimals
	cfg.Chain.SS58Prefix = ss58Prefix
	cfg.Chain.FeeCollector = feeCollector
	cfg.Database.StatePath = stateDir
	if genesisFile != "" {
		cfg.Genesis.FilePath = genesisFile
	} else {
		cfg.Genesis.FilePath = filepath.Join(engineDir, "genesis.json")
	}

	configPath := filepath.Join(engineDir, "config.toml")
	if err := cfg.Save(configPath); err != nil {
		return fmt.Errorf("failed to create config file: %v", err)
	}
	log.Infof("Created config file at: %s", configPath)

	fmt.Println("\n=== Configuration Summary ===")
	fmt.Printf("Chain ID: %d\n", cfg.Chain.ChainID)
	fmt.Printf("Gas Price: %d\n", cfg.Chain.GasPrice)
	fmt.Printf("Native Decimals: %d\n", cfg.Chain.NativeDecimals)
	fmt.Printf("State DB: %s\n", cfg.Database.StatePath)
	fmt.Printf("Genesis File: %s\n", cfg.Genesis.FilePath)
	fmt.Printf("Config File: %s\n", configPath)

	log.Info("Initialization completed successfully!")
	log.Infof("Place a genesis.json at %s and run: evm-engine genesis", cfg.Genesis.FilePath)

	return nil
}

// loadConfig reads the config file from its default location.
func loadConfig() (config.Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return config.Config{}, fmt.Errorf("failed to get home directory: %v", err)
	}
	return config.LoadConfig(filepath.Join(home, ".evm-engine", "config.toml"))
}

// newLogger builds the standard command logger.
func newLogger() *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
		ForceColors:     true,
	})
	log.SetLevel(logrus.InfoLevel)
	return log
}
