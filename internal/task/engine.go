package task

import (
	"context"
	"errors"
	"fmt"
	"time"

	vlog "github.com/bigdegenenergy/maker-framework/internal/log"
	"github.com/bigdegenenergy/maker-framework/internal/run"
	"github.com/bigdegenenergy/maker-framework/internal/types"
	"github.com/bigdegenenergy/maker-framework/internal/voting"
)

// BoundStep pairs a step type with the voting engine configured for it. The
// binding happens once at load time so the step loop never resolves names.
type BoundStep struct {
	Type  StepType
	Voter *voting.Engine
}

// Engine drives a task from step 0 to total_steps, one voting round per
// step. Run and Display are optional; a nil Run records nothing and a nil
// Display stays silent.
type Engine struct {
	Task     *Task
	Steps    []BoundStep
	Selector Selector
	Run      *run.Run
	Display  *Display
}

// Result is the outcome of a task execution, partial or complete. Actions
// holds the winning action of every resolved step in order.
type Result struct {
	Completed      bool
	StepsCompleted int
	Actions        []types.Action
	FinalState     types.State
	TotalCost      float64
	TotalSamples   int
	TotalFlagged   int
}

// Execute resolves steps in sequence until the task completes, the context
// is cancelled, or a step fails. Cancellation is a normal partial outcome:
// the result reports the steps resolved so far and the error is nil. A
// stalled or failed step returns the partial result together with the error.
func (e *Engine) Execute(ctx context.Context) (*Result, error) {
	start := time.Now()
	state := e.Task.InitialState()
	res := &Result{FinalState: state}

	for step := 0; step < e.Task.TotalSteps; step++ {
		if ctx.Err() != nil {
			return e.interrupted(res)
		}

		idx := e.Selector.Select(ctx, state)
		bound := e.Steps[idx]
		model := e.Task.StepTypeModel(bound.Type)

		e.Display.StepStart(step, e.Task.TotalSteps, bound.Type.Name, model)
		stepStart := time.Now()

		vote, err := bound.Voter.Resolve(ctx, state)
		duration := time.Since(stepStart)
		e.absorb(res, vote)

		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				e.Display.StepInterrupted(bound.Type.Name, model)
				return e.interrupted(res)
			}
			e.Display.StepFailed(bound.Type.Name, model, err)
			e.recordFailure(err)
			e.Display.Failed(err)
			return res, fmt.Errorf("step %d (%s): %w", step, bound.Type.Name, err)
		}

		state = state.Fold(vote.Action, step+1)
		res.Actions = append(res.Actions, vote.Action)
		res.StepsCompleted = step + 1
		res.FinalState = state

		e.recordStep(step, bound.Type.Name, vote, duration)
		e.Display.StepDone(bound.Type.Name, model, vote, duration)
	}

	res.Completed = true
	if e.Run != nil {
		if err := e.Run.Complete(); err != nil {
			vlog.Warn("failed to mark run complete", "err", err)
		}
	}
	e.Display.Summary(res.TotalCost, res.TotalSamples, time.Since(start))
	return res, nil
}

// absorb folds a voting round's counters into the task totals. Counts are
// kept even for rounds that ended in an error.
func (e *Engine) absorb(res *Result, vote *voting.Result) {
	if vote == nil {
		return
	}
	res.TotalCost += vote.Cost
	res.TotalSamples += vote.Samples
	res.TotalFlagged += vote.Flagged
}

func (e *Engine) interrupted(res *Result) (*Result, error) {
	if e.Run != nil {
		if err := e.Run.Interrupted(); err != nil {
			vlog.Warn("failed to mark run interrupted", "err", err)
		}
	}
	e.Display.Interrupted(res.StepsCompleted, e.Task.TotalSteps)
	return res, nil
}

func (e *Engine) recordStep(index int, typeName string, vote *voting.Result, duration time.Duration) {
	if e.Run == nil {
		return
	}
	sr := run.StepRecord{
		Index:      index,
		Type:       typeName,
		Action:     vote.Action.Preview(120),
		Samples:    vote.Samples,
		Flagged:    vote.Flagged,
		Cost:       vote.Cost,
		DurationMS: duration.Milliseconds(),
	}
	if err := e.Run.AddStep(sr); err != nil {
		vlog.Warn("failed to save step record", "step", index, "err", err)
	}
}

func (e *Engine) recordFailure(stepErr error) {
	if e.Run == nil {
		return
	}
	var err error
	if errors.Is(stepErr, voting.ErrStalled) {
		err = e.Run.Stalled(stepErr.Error())
	} else {
		err = e.Run.Fail(stepErr.Error())
	}
	if err != nil {
		vlog.Error("failed to update run meta", "err", err)
	}
}
