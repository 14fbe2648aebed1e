package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/michaelpento.lv/flashswap/flashloan"
	"github.com/michaelpento.lv/flashswap/scenario"
	"github.com/michaelpento.lv/flashswap/utils/metrics"
)

var fixturePath string

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run a YAML scenario through the settlement engine",
	RunE: func(cmd *cobra.Command, args []string) error {
		log := cfg.Logger

		path := fixturePath
		if path == "" {
			path = cfg.FixturePath
		}
		fixture, err := scenario.Load(path)
		if err != nil {
			return err
		}

		reg := prometheus.NewRegistry()
		opts := scenario.Options{
			Factory:      cfg.Factory,
			InitCodeHash: cfg.InitCodeHash,
			Router:       cfg.Router,
			Executor:     cfg.Executor,
			FeeTiers:     cfg.FeeTiers,
			Metrics:      metrics.NewSettlementMetrics(reg, cfg.MetricsNamespace),
			Logger:       log,
		}
		if fixture.Route.Planned() && fixture.Route.SlippageBps == 0 {
			fixture.Route.SlippageBps = cfg.SlippageBps
		}

		report, err := scenario.Run(cmd.Context(), fixture, opts)
		if err != nil {
			return err
		}
		printReport(cmd.OutOrStdout(), report)

		samples, err := metrics.Gather(reg)
		if err != nil {
			log.Warn("Failed to gather metrics", zap.Error(err))
		}
		for _, s := range samples {
			fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", s)
		}

		if !report.Matched() {
			return fmt.Errorf("scenario %s ended with %s, expected %s", report.Name, report.Label(), report.Expected)
		}
		return nil
	},
}

func printReport(w io.Writer, r *scenario.Report) {
	fmt.Fprintf(w, "scenario:  %s\n", r.Name)
	fmt.Fprintf(w, "pool:      %s\n", r.Request.LendingPool.Hex())
	fmt.Fprintf(w, "borrow:    amount0=%s amount1=%s\n", r.Request.Amount0.Dec(), r.Request.Amount1.Dec())
	if q := r.Quote; q != nil {
		fmt.Fprintf(w, "quote:     leg1=%s leg2=%s owed=%s profit=%s\n",
			q.Leg1Out.Dec(), q.Leg2Out.Dec(), q.Owed.Dec(), q.ExpectedProfit)
	}
	fmt.Fprintf(w, "result:    %s\n", r.Label())
	if o := r.Outcome; o != nil {
		fmt.Fprintf(w, "settled:   owed=%s realized=%s profit=%s\n", o.Owed.Dec(), o.Realized.Dec(), o.Profit)
	}
	if r.Err != nil {
		fmt.Fprintf(w, "reason:    %s\n", r.Reason)
		var rerr *flashloan.RevertError
		if errors.As(r.Err, &rerr) {
			fmt.Fprintf(w, "revert:    0x%x\n", rerr.RevertData())
		}
	}
	fmt.Fprintf(w, "unchanged: %t\n", r.Result.Unchanged())
	if r.Expected != "" {
		fmt.Fprintf(w, "expected:  %s (matched=%t)\n", r.Expected, r.Matched())
	}
	fmt.Fprintln(w, "metrics:")
}

func init() {
	simulateCmd.Flags().StringVar(&fixturePath, "fixture", "", "scenario fixture (default from config)")
	rootCmd.AddCommand(simulateCmd)
}
