package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml"
)

// Config holds the application configuration
type Config struct {
	Chain    ChainConfig    `toml:"chain"`
	Database DatabaseConfig `toml:"database"`
	Genesis  GenesisConfig  `toml:"genesis"`
}

// ChainConfig holds the execution-engine parameters shared by every validator.
type ChainConfig struct {
	ChainID        uint64 `toml:"chain_id"`
	GasPrice       uint64 `toml:"gas_price"`        // native units per gas
	NativeDecimals uint8  `toml:"native_decimals"`  // resolution of the native token
	SS58Prefix     uint16 `toml:"ss58_prefix"`      // network prefix for native addresses
	FeeCollector   string `toml:"fee_collector"`    // account receiving execution fees
	MaxCodeSize    uint64 `toml:"max_code_size"`    // CREATE code deposit cap in bytes
	MaxCallDepth   int    `toml:"max_call_depth"`   // nested CALL/CREATE bound
}

// DatabaseConfig holds database paths
type DatabaseConfig struct {
	StatePath string `toml:"state_path"`
}

type GenesisConfig struct {
	FilePath string `toml:"file_path"`
}

// DefaultConfig returns the configuration used when init is run without flags.
func DefaultConfig() Config {
	return Config{
		Chain: ChainConfig{
			ChainID:        787,
			GasPrice:       1,
			NativeDecimals: 12,
			SS58Prefix:     42,
			MaxCodeSize:    24576,
			MaxCallDepth:   1024,
		},
		Database: DatabaseConfig{
			StatePath: "./data/state_db",
		},
		Genesis: GenesisConfig{
			FilePath: "./genesis.json",
		},
	}
}

// LoadConfig reads from config.toml and returns Config struct
func LoadConfig(path string) (Config, error) {
	var cfg Config
	file, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %v", err)
	}

	err = toml.Unmarshal(file, &cfg)
	if err != nil {
		return cfg, fmt.Errorf("failed to parse config file: %v", err)
	}

	return cfg, nil
}

// Save writes the configuration to the given path in TOML format.
func (c Config) Save(path string) error {
	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode config: %v", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %v", err)
	}
	return nil
}
