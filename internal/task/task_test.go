package task

import (
	"strings"
	"testing"
)

const hanoiYAML = `
name: hanoi-3
description: Solve Towers of Hanoi with 3 disks.
success_criteria: All disks on the final peg.
model: google/gemini-2.0-flash-001
k: 3
total_steps: 7
vars:
  num_disks: "3"
step_types:
  - name: move
    description: Emit the next move.
    prompt: "Step {current_step} of {total_steps}. History: {action_history}"
    max_response_words: 750
    red_flags:
      - "cannot"
`

func TestParse(t *testing.T) {
	task, err := Parse([]byte(hanoiYAML))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if task.Name != "hanoi-3" {
		t.Errorf("name = %q", task.Name)
	}
	if task.K != 3 || task.TotalSteps != 7 {
		t.Errorf("k=%d total_steps=%d, want 3,7", task.K, task.TotalSteps)
	}
	if task.Vars["num_disks"] != "3" {
		t.Errorf("vars = %v", task.Vars)
	}
	if len(task.StepTypes) != 1 || task.StepTypes[0].Name != "move" {
		t.Fatalf("step types = %+v", task.StepTypes)
	}
	if got := task.StepTypes[0].RedFlags; len(got) != 1 || got[0] != "cannot" {
		t.Errorf("red flags = %v", got)
	}
	if err := task.Validate(); err != nil {
		t.Errorf("Validate() on example task: %v", err)
	}
}

func TestParseRejectsUnnamed(t *testing.T) {
	if _, err := Parse([]byte("description: no name here\n")); err == nil {
		t.Fatal("expected error for task without a name")
	}
}

func TestValidate(t *testing.T) {
	base := func() *Task {
		return &Task{
			Name:       "t",
			K:          1,
			TotalSteps: 1,
			StepTypes:  []StepType{{Name: "s", Prompt: "p"}},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Task)
		wantErr string
	}{
		{"valid", func(*Task) {}, ""},
		{"k zero", func(t *Task) { t.K = 0 }, "k must be >= 1"},
		{"k negative", func(t *Task) { t.K = -2 }, "k must be >= 1"},
		{"zero steps", func(t *Task) { t.TotalSteps = 0 }, "total_steps must be >= 1"},
		{"no step types", func(t *Task) { t.StepTypes = nil }, "at least one step type"},
		{"unnamed step type", func(t *Task) { t.StepTypes[0].Name = "" }, "has no name"},
		{"step type without prompt", func(t *Task) { t.StepTypes[0].Prompt = "" }, "has no prompt"},
		{"negative max samples", func(t *Task) { t.MaxSamples = -1 }, "max_samples"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task := base()
			tt.mutate(task)
			err := task.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestStepTypeModelFallback(t *testing.T) {
	task := &Task{Model: "task-default"}
	if got := task.StepTypeModel(StepType{}); got != "task-default" {
		t.Errorf("empty step model = %q, want task default", got)
	}
	if got := task.StepTypeModel(StepType{Model: "override"}); got != "override" {
		t.Errorf("step model = %q, want override", got)
	}
}

func TestInitialState(t *testing.T) {
	task, err := Parse([]byte(hanoiYAML))
	if err != nil {
		t.Fatal(err)
	}
	s := task.InitialState()
	if s.Step != 0 || s.TotalSteps != 7 {
		t.Errorf("step=%d total=%d, want 0,7", s.Step, s.TotalSteps)
	}
	if len(s.History) != 0 {
		t.Errorf("initial history = %v, want empty", s.History)
	}
	if s.TaskDescription == "" || s.SuccessCriteria == "" {
		t.Error("description and success criteria must carry over")
	}
}
