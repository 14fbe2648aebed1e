package cmd

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"
	"github.com/spf13/cobra"

	"github.com/michaelpento.lv/flashswap/flashloan"
	"github.com/michaelpento.lv/flashswap/types"
	"github.com/michaelpento.lv/flashswap/utils"
)

var encodeFlags struct {
	intermediate string
	poolA        string
	poolB        string
	feeA         uint32
	feeB         uint32
	minOut1      string
	minOut2      string
}

var encodeParamsCmd = &cobra.Command{
	Use:   "encode-params",
	Short: "ABI-encode arbitrage params for a flash swap callback",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		params := &types.ArbitrageParams{
			FeeTierA: encodeFlags.feeA,
			FeeTierB: encodeFlags.feeB,
		}
		for _, a := range []struct {
			flag   string
			value  string
			target *common.Address
		}{
			{"intermediate", encodeFlags.intermediate, &params.IntermediateAsset},
			{"pool-a", encodeFlags.poolA, &params.PoolA},
			{"pool-b", encodeFlags.poolB, &params.PoolB},
		} {
			if !common.IsHexAddress(a.value) {
				return fmt.Errorf("--%s: %q is not an address", a.flag, a.value)
			}
			*a.target = common.HexToAddress(a.value)
		}

		var err error
		if params.MinOutLeg1, err = uint256.FromDecimal(encodeFlags.minOut1); err != nil {
			return fmt.Errorf("--min-out-1: %w", err)
		}
		if params.MinOutLeg2, err = uint256.FromDecimal(encodeFlags.minOut2); err != nil {
			return fmt.Errorf("--min-out-2: %w", err)
		}

		data, err := flashloan.ParamsV1{}.Encode(params)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), hexutil.Encode(data))
		return nil
	},
}

var decodeParamsCmd = &cobra.Command{
	Use:   "decode-params <hex>",
	Short: "Decode arbitrage params",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := hexutil.Decode(args[0])
		if err != nil {
			return err
		}
		p, err := flashloan.ParamsV1{}.Decode(data)
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "intermediate: %s\n", p.IntermediateAsset.Hex())
		fmt.Fprintf(w, "pool_a:       %s (fee %d)\n", p.PoolA.Hex(), p.FeeTierA)
		fmt.Fprintf(w, "pool_b:       %s (fee %d)\n", p.PoolB.Hex(), p.FeeTierB)
		fmt.Fprintf(w, "min_out_1:    %s\n", p.MinOutLeg1.Dec())
		fmt.Fprintf(w, "min_out_2:    %s\n", p.MinOutLeg2.Dec())
		return nil
	},
}

var decodeRevertCmd = &cobra.Command{
	Use:   "decode-revert <hex>",
	Short: "Decode Error(string) or Panic(uint256) revert data",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := hexutil.Decode(args[0])
		if err != nil {
			return err
		}
		reason, err := utils.DecodeRevertReason(data)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), reason)
		return nil
	},
}

func init() {
	f := encodeParamsCmd.Flags()
	f.StringVar(&encodeFlags.intermediate, "intermediate", "", "intermediate asset address")
	f.StringVar(&encodeFlags.poolA, "pool-a", "", "lending pool address")
	f.StringVar(&encodeFlags.poolB, "pool-b", "", "second leg pool address")
	f.Uint32Var(&encodeFlags.feeA, "fee-a", 500, "lending pool fee tier in pips")
	f.Uint32Var(&encodeFlags.feeB, "fee-b", 3000, "second leg fee tier in pips")
	f.StringVar(&encodeFlags.minOut1, "min-out-1", "", "minimum leg 1 output in base units")
	f.StringVar(&encodeFlags.minOut2, "min-out-2", "", "minimum leg 2 output in base units")
	for _, name := range []string{"intermediate", "pool-a", "pool-b", "min-out-1", "min-out-2"} {
		_ = encodeParamsCmd.MarkFlagRequired(name)
	}

	rootCmd.AddCommand(encodeParamsCmd, decodeParamsCmd, decodeRevertCmd)
}
