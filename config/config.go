package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/michaelpento.lv/flashswap/dex"
	"github.com/michaelpento.lv/flashswap/dex/uniswap"
)

const defaultConfigName = ".flashswap.json"

type Config struct {
	// Chain and deployment
	ChainID      uint64         `json:"chain_id"`
	Executor     common.Address `json:"executor"`
	Factory      common.Address `json:"factory"`
	InitCodeHash common.Hash    `json:"init_code_hash"`
	Router       common.Address `json:"router"`

	// Extra fee tiers enabled on the factory, in pips
	FeeTiers []uint32 `json:"fee_tiers"`

	// Tolerance used when minimums are planned from quotes
	SlippageBps uint32 `json:"slippage_bps"`

	MetricsNamespace string `json:"metrics_namespace"`
	Debug            bool   `json:"debug"`
	LogFile          string `json:"log_file"`
	FixturePath      string `json:"fixture_path"`

	Logger *zap.Logger `json:"-"`
}

func (c *Config) ValidateConfig() error {
	var errors []string

	if c.ChainID == 0 {
		errors = append(errors, "chain_id must be specified")
	}
	if c.Executor == (common.Address{}) {
		errors = append(errors, "executor must be specified")
	}
	if c.Factory == (common.Address{}) {
		errors = append(errors, "factory must be specified")
	}
	if c.InitCodeHash == (common.Hash{}) {
		errors = append(errors, "init_code_hash must be specified")
	}
	if c.Router == (common.Address{}) {
		errors = append(errors, "router must be specified")
	}
	for _, fee := range c.FeeTiers {
		if fee >= dex.FeeDenominator {
			errors = append(errors, fmt.Sprintf("fee tier %d must be below %d", fee, dex.FeeDenominator))
		}
	}
	if c.SlippageBps > 10_000 {
		errors = append(errors, "slippage_bps must not exceed 10000")
	}
	if c.MetricsNamespace == "" {
		errors = append(errors, "metrics_namespace must be specified")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errors, "; "))
	}

	return nil
}

// DefaultConfigPath returns $HOME/.flashswap.json
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(home, defaultConfigName), nil
}

// LoadConfig reads cfgFile over DefaultConfig, applies environment
// overrides and validates the result. An empty cfgFile means the default
// path, which may be absent.
func LoadConfig(cfgFile string) (*Config, error) {
	explicit := cfgFile != ""
	if !explicit {
		path, err := DefaultConfigPath()
		if err != nil {
			return nil, err
		}
		cfgFile = path
	}

	config := DefaultConfig()

	file, err := os.Open(cfgFile)
	switch {
	case err == nil:
		defer file.Close()
		if err := json.NewDecoder(file).Decode(config); err != nil {
			return nil, fmt.Errorf("failed to decode config file: %w", err)
		}
	case explicit || !errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}

	if err := ApplyEnv(config); err != nil {
		return nil, err
	}

	if err := config.ValidateConfig(); err != nil {
		return nil, err
	}

	return config, nil
}

func SaveConfig(cfg *Config, cfgFile string) error {
	if cfgFile == "" {
		path, err := DefaultConfigPath()
		if err != nil {
			return err
		}
		cfgFile = path
	}

	file, err := os.Create(cfgFile)
	if err != nil {
		return err
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "    ")
	return encoder.Encode(cfg)
}

// DefaultConfig is a mainnet Uniswap V3 deployment
func DefaultConfig() *Config {
	return &Config{
		Logger:           zap.NewNop(),
		ChainID:          1,
		Executor:         common.HexToAddress("0x000000000000000000000000000000000000f1a5"),
		Factory:          uniswap.MainnetFactory,
		InitCodeHash:     uniswap.PoolInitCodeHash,
		Router:           uniswap.MainnetRouter,
		SlippageBps:      50, // 0.5%
		MetricsNamespace: "flashswap",
		FixturePath:      "scenarios/weth-usdc.yaml",
	}
}
