package form

import (
	"errors"
	"fmt"

	"github.com/liamcoop/homeloan/application"
	"github.com/liamcoop/homeloan/internal/logger"
	"github.com/liamcoop/homeloan/internal/metrics"
	"github.com/liamcoop/homeloan/pipeline"
)

// Action is a user interaction with the form.
type Action string

const (
	ActionNone           Action = ""
	ActionPredict        Action = "predict"
	ActionResetAll       Action = "reset_all"
	ActionResetFinancial Action = "reset_financial"
)

const (
	msgResetAll       = "All fields reset successfully!"
	msgResetFinancial = "Financial fields reset successfully!"
)

// ParseAction maps a submitted button value to an Action.
func ParseAction(s string) (Action, error) {
	switch a := Action(s); a {
	case ActionNone, ActionPredict, ActionResetAll, ActionResetFinancial:
		return a, nil
	default:
		return ActionNone, fmt.Errorf("unknown action %q", s)
	}
}

// Predictor is the capability the controller needs from the pipeline.
type Predictor interface {
	Predict(app *application.Application) (pipeline.Verdict, error)
}

// Outcome is what a single action produced, besides the new state.
type Outcome struct {
	Action  Action
	Banner  *Banner
	Verdict pipeline.Verdict
	Err     error
}

// Controller applies actions to form state.
type Controller struct {
	predictor Predictor
}

func NewController(p Predictor) *Controller {
	return &Controller{predictor: p}
}

// Handle records the submitted widget values, keyed by generation key, and
// then applies action. The input state is never modified.
func (c *Controller) Handle(state State, action Action, submitted map[string]string) (State, Outcome) {
	next := state.clone()
	captured := capture(&next, submitted)

	var out Outcome
	switch action {
	case ActionNone:
		if captured {
			next.Phase = PhaseEditing
		}
		out = Outcome{Action: action}

	case ActionResetAll:
		next.ResetTrigger++
		next.ResetFinancialTrigger++
		next.prune()
		next.Phase = PhaseIdle
		out = Outcome{Action: action, Banner: NoticeBanner(msgResetAll)}

	case ActionResetFinancial:
		next.ResetFinancialTrigger++
		next.prune()
		next.Phase = PhaseIdle
		out = Outcome{Action: action, Banner: NoticeBanner(msgResetFinancial)}

	case ActionPredict:
		out = c.predict(&next)

	default:
		err := fmt.Errorf("unknown action %q", action)
		return state, Outcome{Action: action, Banner: ErrorBanner(err), Err: err}
	}

	metrics.FormActions.WithLabelValues(actionLabel(action), string(next.Phase)).Inc()
	return next, out
}

func (c *Controller) predict(state *State) (out Outcome) {
	out.Action = ActionPredict
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("%v", r)
			logger.Error("predict action panicked", "error", err)
			state.Phase = PhaseSubmittedInvalid
			out = Outcome{Action: ActionPredict, Banner: ErrorBanner(err), Err: err}
		}
	}()

	raw := make(map[string]any, len(widgets))
	for field, v := range state.Snapshot() {
		raw[field] = v
	}

	app, err := application.New(raw)
	if err != nil {
		recordValidationFailure(err)
		state.Phase = PhaseSubmittedInvalid
		return Outcome{Action: ActionPredict, Banner: ErrorBanner(err), Err: err}
	}

	verdict, err := c.predictor.Predict(app)
	if err != nil {
		state.Phase = PhaseSubmittedInvalid
		return Outcome{Action: ActionPredict, Banner: ErrorBanner(err), Err: err}
	}

	state.Phase = PhaseSubmittedValid
	return Outcome{Action: ActionPredict, Banner: VerdictBanner(verdict), Verdict: verdict}
}

// capture stores submitted values that address a widget of the current
// generation. Values posted under stale keys are dropped.
func capture(state *State, submitted map[string]string) bool {
	captured := false
	for _, w := range widgets {
		key := state.WidgetKey(w)
		if v, ok := submitted[key]; ok {
			state.Values[key] = v
			captured = true
		}
	}
	return captured
}

func recordValidationFailure(err error) {
	var verr *application.ValidationError
	if !errors.As(err, &verr) {
		return
	}
	for _, p := range verr.Problems {
		metrics.ValidationFailures.WithLabelValues(string(p.Code())).Inc()
	}
}

func actionLabel(a Action) string {
	if a == ActionNone {
		return "edit"
	}
	return string(a)
}
