// Package voting resolves a single task step against an unreliable oracle
// using first-to-ahead-by-k voting: keep sampling until one candidate action
// leads every other candidate by at least k votes. Red-flagged responses are
// discarded without being counted, and a per-step sample budget turns a
// persistently useless oracle into a stalled-step failure instead of an
// infinite loop.
package voting

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	vlog "github.com/bigdegenenergy/maker-framework/internal/log"
	"github.com/bigdegenenergy/maker-framework/internal/oracle"
	"github.com/bigdegenenergy/maker-framework/internal/types"
)

// ErrStalled reports a step that exhausted its sample budget without
// reaching agreement.
var ErrStalled = errors.New("voting stalled: sample budget exhausted")

// DefaultMaxSamples bounds oracle calls per step when no explicit budget is
// configured.
const DefaultMaxSamples = 64

// Engine resolves steps one at a time by repeated sampling. An Engine is
// bound to one step type: its gateway and validator carry that type's oracle
// binding and red-flag configuration.
type Engine struct {
	Gateway   oracle.Gateway
	Validator *Validator
	// K is the required lead; the caller validates K >= 1 before any
	// sampling happens.
	K int
	// MaxSamples caps oracle calls per round, flagged samples included.
	// Zero means DefaultMaxSamples.
	MaxSamples int
	// Parallelism is the number of concurrent sample requests. Zero or one
	// means fully sequential sampling.
	Parallelism int
}

// Result describes one voting round, complete or aborted. Counts and cost
// are populated even when an error is returned.
type Result struct {
	Action    types.Action
	Samples   int // oracle calls consumed, flagged ones included
	Flagged   int
	Distinct  int // distinct candidate actions seen
	Cost      float64
	TokensIn  int
	TokensOut int
}

// Resolve runs one voting round for the given state and returns the winning
// action. The next state is the caller's concern: the engine only answers
// "what is the action", never "what comes after".
func (e *Engine) Resolve(ctx context.Context, state types.State) (*Result, error) {
	if e.Parallelism > 1 {
		return e.resolveParallel(ctx, state)
	}
	return e.resolveSequential(ctx, state)
}

func (e *Engine) maxSamples() int {
	if e.MaxSamples > 0 {
		return e.MaxSamples
	}
	return DefaultMaxSamples
}

func (e *Engine) resolveSequential(ctx context.Context, state types.State) (*Result, error) {
	t := newTally()
	res := &Result{}

	for res.Samples < e.maxSamples() {
		if err := ctx.Err(); err != nil {
			res.Distinct = t.distinct()
			return res, err
		}

		s, err := e.Gateway.Sample(ctx, state)
		if err != nil {
			res.Distinct = t.distinct()
			return res, fmt.Errorf("sampling oracle: %w", err)
		}
		e.record(res, s)

		if done := e.ingest(t, res, s.Text); done {
			winner, max, runnerUp := t.leader()
			vlog.Debug("vote decided", "samples", res.Samples, "max", max, "runner_up", runnerUp)
			res.Action = winner
			res.Distinct = t.distinct()
			return res, nil
		}
	}

	res.Distinct = t.distinct()
	return res, ErrStalled
}

// ingest validates one response and updates the tally, returning true once
// the round is decided. Red-flagged responses never touch the tally.
func (e *Engine) ingest(t *tally, res *Result, text string) bool {
	action, verdict := e.Validator.Validate(text)
	if verdict.Flagged {
		res.Flagged++
		vlog.Debug("discarding red-flagged response", "reason", verdict.Reason)
		return false
	}
	t.add(action)
	return t.decided(e.K)
}

func (e *Engine) record(res *Result, s *oracle.Sample) {
	res.Samples++
	res.Cost += s.Cost
	res.TokensIn += s.TokensIn
	res.TokensOut += s.TokensOut
}

// resolveParallel fans sampling out over a bounded worker pool. Workers only
// sample and report; the aggregator loop below is the single owner of the
// tally. Once the threshold is met, new requests stop and in-flight samples
// are discarded rather than awaited.
func (e *Engine) resolveParallel(ctx context.Context, state types.State) (*Result, error) {
	type outcome struct {
		sample *oracle.Sample
		err    error
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	outcomes := make(chan outcome)
	var g errgroup.Group
	for i := 0; i < e.Parallelism; i++ {
		g.Go(func() error {
			for ctx.Err() == nil {
				s, err := e.Gateway.Sample(ctx, state)
				select {
				case outcomes <- outcome{sample: s, err: err}:
				case <-ctx.Done():
					return nil
				}
				if err != nil {
					// The aggregator decides whether this ends the round;
					// either way this worker has nothing useful to add.
					return nil
				}
			}
			return nil
		})
	}
	// Workers exit on cancellation; never leave them sending into the void.
	defer g.Wait()

	t := newTally()
	res := &Result{}

	for res.Samples < e.maxSamples() {
		select {
		case <-ctx.Done():
			res.Distinct = t.distinct()
			return res, ctx.Err()
		case o := <-outcomes:
			if o.err != nil {
				res.Distinct = t.distinct()
				if ctx.Err() != nil {
					return res, ctx.Err()
				}
				cancel()
				return res, fmt.Errorf("sampling oracle: %w", o.err)
			}
			e.record(res, o.sample)
			if done := e.ingest(t, res, o.sample.Text); done {
				winner, _, _ := t.leader()
				res.Action = winner
				res.Distinct = t.distinct()
				cancel()
				return res, nil
			}
		}
	}

	res.Distinct = t.distinct()
	cancel()
	return res, ErrStalled
}
