package simulator

import (
	"context"
	"sync"
	"time"

	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"
)

// SimulationResult represents the result of one top-level execution
type SimulationResult struct {
	Success           bool
	Error             error
	Logs              []*gethtypes.Log
	FingerprintBefore uint64
	FingerprintAfter  uint64
	Duration          time.Duration
}

// Unchanged reports whether the execution left every balance as it found it
func (r *SimulationResult) Unchanged() bool {
	return r.FingerprintBefore == r.FingerprintAfter
}

// Simulator runs top-level executions against a State one at a time
type Simulator struct {
	mu     sync.Mutex
	state  *State
	logger *zap.Logger
}

// NewSimulator creates a new simulator over the given state
func NewSimulator(state *State, logger *zap.Logger) *Simulator {
	if state == nil {
		state = NewState()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Simulator{
		state:  state,
		logger: logger,
	}
}

// State returns the underlying ledger
func (s *Simulator) State() *State {
	return s.state
}

// Execute runs fn as a single indivisible execution. Either everything fn
// did is kept, or the state is rolled back to exactly where it was.
func (s *Simulator) Execute(ctx context.Context, fn func(ctx context.Context) error) *SimulationResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	result := &SimulationResult{
		FingerprintBefore: s.state.Fingerprint(),
	}
	logsBefore := len(s.state.logs)

	err := ctx.Err()
	if err == nil {
		err = s.state.Atomic(func() error {
			return fn(ctx)
		})
	}
	s.state.Finalise()

	result.Success = err == nil
	result.Error = err
	result.Logs = s.state.Logs()[logsBefore:]
	result.FingerprintAfter = s.state.Fingerprint()
	result.Duration = time.Since(start)

	s.logger.Debug("Execution finished",
		zap.Bool("success", result.Success),
		zap.Int("logs", len(result.Logs)),
		zap.Uint64("fingerprint_before", result.FingerprintBefore),
		zap.Uint64("fingerprint_after", result.FingerprintAfter),
		zap.Duration("duration", result.Duration),
		zap.Error(err))

	return result
}
