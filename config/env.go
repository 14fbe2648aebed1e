package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/joho/godotenv"
)

// Environment variables
const (
	EnvChainID          = "FLASHSWAP_CHAIN_ID"
	EnvExecutor         = "FLASHSWAP_EXECUTOR"
	EnvFactory          = "FLASHSWAP_FACTORY"
	EnvInitCodeHash     = "FLASHSWAP_INIT_CODE_HASH"
	EnvRouter           = "FLASHSWAP_ROUTER"
	EnvFeeTiers         = "FLASHSWAP_FEE_TIERS" // comma separated, e.g. 200,2500
	EnvSlippageBps      = "FLASHSWAP_SLIPPAGE_BPS"
	EnvMetricsNamespace = "FLASHSWAP_METRICS_NAMESPACE"
	EnvFixture          = "FLASHSWAP_FIXTURE"
)

// LoadEnv loads environment variables from the given .env files, or from
// .env in the working directory. A missing default file is not an error.
func LoadEnv(filenames ...string) error {
	err := godotenv.Load(filenames...)
	if err != nil && len(filenames) == 0 && errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// GetEnvWithDefault gets an environment variable with a default value
func GetEnvWithDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// ApplyEnv overrides cfg with every FLASHSWAP_* variable that is set
func ApplyEnv(cfg *Config) error {
	var errs []string
	fail := func(key, value string, err error) {
		errs = append(errs, fmt.Sprintf("%s=%q: %v", key, value, err))
	}

	if v := os.Getenv(EnvChainID); v != "" {
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			fail(EnvChainID, v, err)
		} else {
			cfg.ChainID = id
		}
	}

	addresses := []struct {
		key    string
		target *common.Address
	}{
		{EnvExecutor, &cfg.Executor},
		{EnvFactory, &cfg.Factory},
		{EnvRouter, &cfg.Router},
	}
	for _, a := range addresses {
		v := os.Getenv(a.key)
		if v == "" {
			continue
		}
		if !common.IsHexAddress(v) {
			fail(a.key, v, errors.New("not a hex address"))
			continue
		}
		*a.target = common.HexToAddress(v)
	}

	if v := os.Getenv(EnvInitCodeHash); v != "" {
		b, err := hexutil.Decode(v)
		switch {
		case err != nil:
			fail(EnvInitCodeHash, v, err)
		case len(b) != common.HashLength:
			fail(EnvInitCodeHash, v, fmt.Errorf("want %d bytes, got %d", common.HashLength, len(b)))
		default:
			cfg.InitCodeHash = common.BytesToHash(b)
		}
	}

	if v := os.Getenv(EnvFeeTiers); v != "" {
		var tiers []uint32
		for _, part := range strings.Split(v, ",") {
			fee, err := strconv.ParseUint(strings.TrimSpace(part), 10, 32)
			if err != nil {
				fail(EnvFeeTiers, v, err)
				tiers = nil
				break
			}
			tiers = append(tiers, uint32(fee))
		}
		if tiers != nil {
			cfg.FeeTiers = tiers
		}
	}

	if v := os.Getenv(EnvSlippageBps); v != "" {
		bps, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			fail(EnvSlippageBps, v, err)
		} else {
			cfg.SlippageBps = uint32(bps)
		}
	}

	cfg.MetricsNamespace = GetEnvWithDefault(EnvMetricsNamespace, cfg.MetricsNamespace)
	cfg.FixturePath = GetEnvWithDefault(EnvFixture, cfg.FixturePath)

	if len(errs) > 0 {
		return fmt.Errorf("invalid environment: %s", strings.Join(errs, "; "))
	}
	return nil
}
