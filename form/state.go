// Package form holds the per-session state of the loan form, the actions a
// user can take on it, and the view rendered from that state.
package form

import "fmt"

// Phase is where a session is in the form lifecycle.
type Phase string

const (
	PhaseIdle             Phase = "idle"
	PhaseEditing          Phase = "editing"
	PhaseSubmittedValid   Phase = "submitted_valid"
	PhaseSubmittedInvalid Phase = "submitted_invalid"
)

// State is the session-scoped form state. Widget values are stored under
// generation keys, so bumping a trigger orphans the old values and the
// affected widgets fall back to their defaults.
type State struct {
	ResetTrigger          int               `json:"reset_trigger"`
	ResetFinancialTrigger int               `json:"reset_financial_trigger"`
	Phase                 Phase             `json:"phase"`
	Values                map[string]string `json:"values,omitempty"`
}

// NewState returns the state of a fresh session.
func NewState() State {
	return State{Phase: PhaseIdle, Values: map[string]string{}}
}

// WidgetKey returns the identity of w in the current generation.
// Personal widgets depend on ResetTrigger only; financial widgets on both.
func (s State) WidgetKey(w Widget) string {
	if w.Section == SectionFinancial {
		return fmt.Sprintf("%s_%d_%d", w.Key, s.ResetTrigger, s.ResetFinancialTrigger)
	}
	return fmt.Sprintf("%s_%d", w.Key, s.ResetTrigger)
}

// Value returns the current value of w, or its default.
func (s State) Value(w Widget) string {
	if v, ok := s.Values[s.WidgetKey(w)]; ok {
		return v
	}
	return w.Default
}

// Snapshot returns the current value of every widget keyed by field name.
func (s State) Snapshot() map[string]string {
	out := make(map[string]string, len(widgets))
	for _, w := range widgets {
		out[w.Field] = s.Value(w)
	}
	return out
}

func (s State) clone() State {
	c := s
	c.Values = make(map[string]string, len(s.Values))
	for k, v := range s.Values {
		c.Values[k] = v
	}
	if c.Phase == "" {
		c.Phase = PhaseIdle
	}
	return c
}

// prune drops values stored under keys that no longer belong to any widget.
func (s *State) prune() {
	live := make(map[string]bool, len(widgets))
	for _, w := range widgets {
		live[s.WidgetKey(w)] = true
	}
	for k := range s.Values {
		if !live[k] {
			delete(s.Values, k)
		}
	}
}
