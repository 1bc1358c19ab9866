package task

import (
	"context"
	"fmt"
	"strings"

	vlog "github.com/bigdegenenergy/maker-framework/internal/log"
	"github.com/bigdegenenergy/maker-framework/internal/oracle"
	"github.com/bigdegenenergy/maker-framework/internal/types"
)

// Selector picks which step type resolves the current step. The returned
// index refers to the task's step_types slice; selectors never return an
// out-of-range index.
type Selector interface {
	Select(ctx context.Context, state types.State) int
}

// NewSelector builds the selector the task asks for. A single-type task
// always gets the constant selector regardless of the configured name.
func NewSelector(t *Task, gateway oracle.Gateway) Selector {
	if len(t.StepTypes) == 1 {
		return constantSelector{}
	}
	switch t.Selector {
	case "", "round-robin":
		return &roundRobinSelector{n: len(t.StepTypes)}
	case "oracle":
		return &oracleSelector{task: t, gateway: gateway}
	default:
		vlog.Warn("unknown selector, using round-robin", "selector", t.Selector)
		return &roundRobinSelector{n: len(t.StepTypes)}
	}
}

type constantSelector struct{}

func (constantSelector) Select(context.Context, types.State) int { return 0 }

// roundRobinSelector cycles through step types by step index, so a task with
// types [plan, act] alternates them deterministically.
type roundRobinSelector struct {
	n int
}

func (s *roundRobinSelector) Select(_ context.Context, state types.State) int {
	return state.Step % s.n
}

// oracleSelector asks a selection oracle which step type fits the current
// state. Any failure, transport or an unrecognized answer, falls back to the
// first configured type so selection never aborts a run.
type oracleSelector struct {
	task    *Task
	gateway oracle.Gateway
}

func (s *oracleSelector) Select(ctx context.Context, state types.State) int {
	// The selection gateway renders {task_description} verbatim, so the
	// whole selection prompt rides in that field.
	sel := state
	sel.TaskDescription = s.buildPrompt(state)
	sample, err := s.gateway.Sample(ctx, sel)
	if err != nil {
		vlog.Warn("step type selection failed, using first type", "err", err)
		return 0
	}
	answer := strings.ToLower(strings.TrimSpace(sample.Text))
	for i, st := range s.task.StepTypes {
		if strings.Contains(answer, strings.ToLower(st.Name)) {
			return i
		}
	}
	vlog.Warn("step type selection unrecognized, using first type", "answer", sample.Text)
	return 0
}

func (s *oracleSelector) buildPrompt(state types.State) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Task: %s\n\n", s.task.Description)
	fmt.Fprintf(&b, "Step %d of %d. Choose the step type that should handle the next step.\n\n", state.Step+1, state.TotalSteps)
	b.WriteString("Available step types:\n")
	for _, st := range s.task.StepTypes {
		fmt.Fprintf(&b, "- %s: %s\n", st.Name, st.Description)
	}
	if last, ok := state.LastAction(); ok {
		fmt.Fprintf(&b, "\nPrevious action: %s\n", last.Preview(200))
	}
	b.WriteString("\nAnswer with the name of one step type and nothing else.")
	return b.String()
}
