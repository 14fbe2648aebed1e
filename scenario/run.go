package scenario

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/michaelpento.lv/flashswap/flashloan"
	"github.com/michaelpento.lv/flashswap/simulator"
	"github.com/michaelpento.lv/flashswap/strategies/arbitrage"
	"github.com/michaelpento.lv/flashswap/types"
	"github.com/michaelpento.lv/flashswap/utils"
)

// Report is the result of running a fixture
type Report struct {
	Name     string
	Request  *types.FlashLoanRequest
	Quote    *arbitrage.Quote
	Outcome  *types.SettlementOutcome
	Result   *simulator.SimulationResult
	Err      error
	Kind     flashloan.Kind
	Reason   string
	Expected string
}

// Label is "committed" or the abort kind
func (r *Report) Label() string {
	if r.Err == nil {
		return ExpectCommitted
	}
	if errors.Is(r.Err, context.Canceled) || errors.Is(r.Err, context.DeadlineExceeded) {
		return "cancelled"
	}
	return r.Kind.String()
}

// Matched reports whether the run ended the way the fixture expected
func (r *Report) Matched() bool {
	return r.Expected == "" || r.Expected == r.Label()
}

// Run deploys the fixture and executes its route once
func Run(ctx context.Context, f *Fixture, opts Options) (*Report, error) {
	w, err := Build(f, opts)
	if err != nil {
		return nil, err
	}
	return w.Run(ctx)
}

// Run executes the fixture's route as one top-level execution. Settlement
// failures are reported, not returned; the error is for broken fixtures.
func (w *World) Run(ctx context.Context) (*Report, error) {
	req, quote, err := w.Request(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	report := &Report{
		Name:     w.Fixture.Name,
		Request:  req,
		Quote:    quote,
		Expected: w.Fixture.Expect,
	}
	report.Result = w.Simulator.Execute(ctx, func(ctx context.Context) error {
		outcome, err := w.Initiator.Initiate(ctx, *req)
		report.Outcome = outcome
		return err
	})

	if err := report.Result.Error; err != nil {
		report.Err = err
		report.Kind = flashloan.KindOf(err)
		report.Reason = revertReason(err)
	}

	fields := []zap.Field{
		zap.String("scenario", report.Name),
		zap.String("result", report.Label()),
		zap.Bool("unchanged", report.Result.Unchanged()),
		zap.Int("logs", len(report.Result.Logs)),
	}
	if report.Reason != "" {
		fields = append(fields, zap.String("reason", report.Reason))
	}
	if report.Matched() {
		w.logger.Info("Scenario finished", fields...)
	} else {
		w.logger.Warn("Scenario finished with unexpected result", append(fields, zap.String("expected", report.Expected))...)
	}

	return report, nil
}

func revertReason(err error) string {
	var rerr *flashloan.RevertError
	if !errors.As(err, &rerr) {
		return err.Error()
	}
	reason, decodeErr := utils.DecodeRevertReason(rerr.RevertData())
	if decodeErr != nil {
		return rerr.Reason
	}
	return reason.String()
}
