package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
	"github.com/liamcoop/homeloan/form"
	"github.com/urfave/cli/v2"
)

var formCmd = &cli.Command{
	Name:   "form",
	Usage:  "Fill in the loan form interactively",
	Action: cmdForm,
}

// errAborted signals the user pressed Ctrl+C.
var errAborted = errors.New("aborted")

// Menu entries
const (
	menuPersonal       = "Edit personal information"
	menuFinancial      = "Edit financial information"
	menuPredict        = "Predict"
	menuResetAll       = "Reset All"
	menuResetFinancial = "Reset Financial"
	menuQuit           = "Quit"
)

var menu = []string{menuPersonal, menuFinancial, menuPredict, menuResetAll, menuResetFinancial, menuQuit}

// prompter asks the user for one value at a time. It lets the form loop run
// without a terminal in tests.
type prompter interface {
	Select(message, help string, options []string, def string) (string, error)
	Input(message, help, def string, validate func(string) error) (string, error)
}

type surveyPrompter struct{}

func (surveyPrompter) Select(message, help string, options []string, def string) (string, error) {
	var out string
	prompt := &survey.Select{
		Message:  message,
		Help:     help,
		Options:  options,
		PageSize: len(options),
	}
	if def != "" {
		prompt.Default = def
	}
	if err := survey.AskOne(prompt, &out); err != nil {
		return "", translateSurveyErr(err)
	}
	return out, nil
}

func (surveyPrompter) Input(message, help, def string, validate func(string) error) (string, error) {
	var out string
	prompt := &survey.Input{
		Message: message,
		Help:    help,
		Default: def,
	}
	var opts []survey.AskOpt
	if validate != nil {
		opts = append(opts, survey.WithValidator(func(ans interface{}) error {
			s, _ := ans.(string)
			return validate(s)
		}))
	}
	if err := survey.AskOne(prompt, &out, opts...); err != nil {
		return "", translateSurveyErr(err)
	}
	return out, nil
}

func translateSurveyErr(err error) error {
	if errors.Is(err, terminal.InterruptErr) {
		return errAborted
	}
	return err
}

func cmdForm(c *cli.Context) error {
	predictor, err := loadPredictor(c)
	if err != nil {
		return err
	}

	err = runForm(surveyPrompter{}, form.NewController(predictor), c.App.Writer)
	if errors.Is(err, errAborted) {
		return nil
	}
	return err
}

// runForm drives the form controller from the menu until the user quits.
// The state lives for the duration of the run, like a browser session.
func runForm(p prompter, controller *form.Controller, out io.Writer) error {
	state := form.NewState()
	fmt.Fprintln(out, form.Render(state, nil).Title)

	for {
		choice, err := p.Select("What next?", "", menu, menuPredict)
		if err != nil {
			return err
		}

		var (
			action    form.Action
			submitted map[string]string
		)
		switch choice {
		case menuPersonal:
			submitted, err = askSection(p, state, form.SectionPersonal)
		case menuFinancial:
			submitted, err = askSection(p, state, form.SectionFinancial)
		case menuPredict:
			action = form.ActionPredict
		case menuResetAll:
			action = form.ActionResetAll
		case menuResetFinancial:
			action = form.ActionResetFinancial
		case menuQuit:
			return nil
		default:
			return fmt.Errorf("unknown menu entry %q", choice)
		}
		if err != nil {
			return err
		}

		var outcome form.Outcome
		state, outcome = controller.Handle(state, action, submitted)
		if outcome.Banner != nil {
			fmt.Fprintln(out, outcome.Banner.Text())
		}
	}
}

// askSection prompts for every widget of section, prefilled with its current
// value, and returns the answers under the current generation keys.
func askSection(p prompter, state form.State, section form.Section) (map[string]string, error) {
	answers := map[string]string{}
	for _, w := range form.Widgets() {
		if w.Section != section {
			continue
		}

		var (
			value string
			err   error
		)
		switch w.Control {
		case form.ControlSelect:
			value, err = p.Select(w.Label, w.Help, w.Options, state.Value(w))
		default:
			value, err = p.Input(w.Label, w.Help, state.Value(w), numberValidator(w))
		}
		if err != nil {
			return nil, err
		}
		answers[state.WidgetKey(w)] = value
	}
	return answers, nil
}

// numberValidator mirrors the min and max of a number input.
func numberValidator(w form.Widget) func(string) error {
	return func(s string) error {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("%s must be a number", w.Label)
		}
		if v < w.Min || v > w.Max {
			return fmt.Errorf("%s must be between %g and %g", w.Label, w.Min, w.Max)
		}
		return nil
	}
}
