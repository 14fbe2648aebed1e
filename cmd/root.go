package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/michaelpento.lv/flashswap/config"
	"github.com/michaelpento.lv/flashswap/utils"
)

var (
	cfgFile string
	envFile string
	debug   bool

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "flashswap",
	Short: "Flash swap arbitrage settlement engine",
	Long: `Settles two-leg flash swap arbitrage atomically against an in-memory
Uniswap V3 style market: borrow from one pool, swap through two pools and
repay the loan plus fee, or leave every balance as it was.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig()
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.flashswap.json)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env", "", ".env file to load (default is ./.env if present)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

func initConfig() error {
	var err error
	if envFile != "" {
		err = config.LoadEnv(envFile)
	} else {
		err = config.LoadEnv()
	}
	if err != nil {
		return err
	}

	cfg, err = config.LoadConfig(cfgFile)
	if err != nil {
		return err
	}

	var paths []string
	if cfg.LogFile != "" {
		paths = append(paths, cfg.LogFile)
	}
	cfg.Logger = utils.InitLogger(debug || cfg.Debug, paths...)
	cfg.Logger.Debug("Configuration loaded",
		zap.Uint64("chainId", cfg.ChainID),
		zap.String("factory", cfg.Factory.Hex()),
		zap.String("router", cfg.Router.Hex()))
	return nil
}
