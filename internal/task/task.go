// Package task defines long sequential tasks and the orchestrator that drives
// them step by step through the voting engine.
package task

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/bigdegenenergy/maker-framework/internal/types"
)

// Task describes a decomposed sequential task: how many steps it has, which
// step types resolve them, and the voting parameters.
type Task struct {
	Name            string            `yaml:"name"`
	Description     string            `yaml:"description"`
	SuccessCriteria string            `yaml:"success_criteria"`
	Model           string            `yaml:"model"`
	K               int               `yaml:"k"`
	TotalSteps      int               `yaml:"total_steps"`
	Selector        string            `yaml:"selector"`
	MaxSamples      int               `yaml:"max_samples"`
	Vars            map[string]string `yaml:"vars"`
	StepTypes       []StepType        `yaml:"step_types"`
}

// StepType is one kind of step the task can take, with its own prompt and
// red-flag configuration. Model falls back to the task model when empty.
type StepType struct {
	Name             string   `yaml:"name"`
	Description      string   `yaml:"description"`
	Prompt           string   `yaml:"prompt"`
	SystemPrompt     string   `yaml:"system_prompt"`
	Model            string   `yaml:"model"`
	MaxResponseWords int      `yaml:"max_response_words"`
	RedFlags         []string `yaml:"red_flags"`
}

// Parse decodes a task from YAML bytes.
func Parse(data []byte) (*Task, error) {
	var t Task
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parsing task: %w", err)
	}
	if t.Name == "" {
		return nil, fmt.Errorf("task must have a name")
	}
	return &t, nil
}

// ParseFile reads and parses a task YAML file.
func ParseFile(path string) (*Task, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading task file %s: %w", path, err)
	}
	return Parse(data)
}

// Validate checks the task definition. It runs before any oracle call is
// made, so a malformed task never spends a single sample.
func (t *Task) Validate() error {
	if t.K < 1 {
		return fmt.Errorf("task %q: k must be >= 1, got %d", t.Name, t.K)
	}
	if t.TotalSteps < 1 {
		return fmt.Errorf("task %q: total_steps must be >= 1, got %d", t.Name, t.TotalSteps)
	}
	if len(t.StepTypes) == 0 {
		return fmt.Errorf("task %q: at least one step type is required", t.Name)
	}
	for i, st := range t.StepTypes {
		if st.Name == "" {
			return fmt.Errorf("task %q: step type %d has no name", t.Name, i)
		}
		if st.Prompt == "" {
			return fmt.Errorf("task %q: step type %q has no prompt", t.Name, st.Name)
		}
	}
	if t.MaxSamples < 0 {
		return fmt.Errorf("task %q: max_samples must not be negative", t.Name)
	}
	return nil
}

// StepTypeModel resolves the model for a step type, falling back to the task
// default.
func (t *Task) StepTypeModel(st StepType) string {
	if st.Model != "" {
		return st.Model
	}
	return t.Model
}

// InitialState builds the step-zero state for the task.
func (t *Task) InitialState() types.State {
	return types.State{
		TaskDescription: t.Description,
		SuccessCriteria: t.SuccessCriteria,
		Step:            0,
		TotalSteps:      t.TotalSteps,
		Vars:            t.Vars,
	}
}
