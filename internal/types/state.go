package types

// State is a snapshot of task progress threaded between steps. Each
// completed step produces a new State value; earlier values are never
// modified, which is what makes retries and replay safe.
type State struct {
	TaskDescription string            `json:"task_description"`
	SuccessCriteria string            `json:"success_criteria,omitempty"`
	Step            int               `json:"current_step"`
	TotalSteps      int               `json:"total_steps"`
	Vars            map[string]string `json:"vars,omitempty"`
	History         []Action          `json:"action_history"`
}

// Fold returns the state after a winning action: the step counter advanced
// to step and the action appended to history. The receiver is left
// untouched; the history slice is copied, never shared.
func (s State) Fold(a Action, step int) State {
	history := make([]Action, len(s.History), len(s.History)+1)
	copy(history, s.History)

	next := s
	next.Step = step
	next.History = append(history, a)
	return next
}

// LastAction returns the most recent action in the history, if any.
func (s State) LastAction() (Action, bool) {
	if len(s.History) == 0 {
		return Action{}, false
	}
	return s.History[len(s.History)-1], true
}
