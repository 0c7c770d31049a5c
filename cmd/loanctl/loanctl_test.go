package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/liamcoop/homeloan/form"
	"github.com/liamcoop/homeloan/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const artifactPath = "../../models/pipeline.yaml"

const exampleJSON = `{
  "Gender": "Male",
  "Married": "Yes",
  "Dependents": "0",
  "Education": "Graduate",
  "Self_Employed": "No",
  "Property_Area": "Urban",
  "ApplicantIncome": 5000,
  "CoapplicantIncome": 0,
  "LoanAmount": 128,
  "Loan_Amount_Term": 360,
  "Credit_History": 1,
  "ApplicantIncome_Category": "High",
  "LoanAmount_bin": "Average"
}`

func writeApplication(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "application.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

// run executes the CLI with args and returns stdout, stderr and the error.
func run(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	app := newApp()
	app.Reader = strings.NewReader(stdin)
	app.Writer = &stdout
	app.ErrWriter = &stderr
	err := app.Run(append([]string{"loanctl"}, args...))
	return stdout.String(), stderr.String(), err
}

func TestPredictCommand(t *testing.T) {
	input := writeApplication(t, exampleJSON)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"example", []string{"--input", input}, "✅ Eligible\n"},
		{"override", []string{"--input", input, "--set", "Credit_History=0"}, "❌ Not Eligible\n"},
		{"override category", []string{"--input", input, "--set", "Property_Area=Rural"}, "✅ Eligible\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"--artifact", artifactPath, "predict"}, tt.args...)
			stdout, _, err := run(t, "", args...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, stdout)
		})
	}
}

func TestPredictCommandJSON(t *testing.T) {
	stdout, _, err := run(t, exampleJSON, "--artifact", artifactPath, "predict", "--input", "-", "--json",
		"--set", "ApplicantIncome_Category=Low")
	require.NoError(t, err)

	var res predictResult
	require.NoError(t, json.Unmarshal([]byte(stdout), &res))
	assert.Equal(t, string(pipeline.Eligible), res.Verdict)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "ApplicantIncome_Category")
}

// TestPredictCommandRejectsOutOfRange verifies an out-of-range value is reported per field
func TestPredictCommandRejectsOutOfRange(t *testing.T) {
	input := writeApplication(t, exampleJSON)

	stdout, stderr, err := run(t, "", "--artifact", artifactPath,
		"predict", "--input", input, "--set", "ApplicantIncome=100000")

	require.Error(t, err)
	var loadErr *pipeline.LoadError
	assert.NotErrorAs(t, err, &loadErr)
	assert.Contains(t, err.Error(), "ApplicantIncome")
	assert.Contains(t, stderr, "OUT_OF_RANGE")
	assert.Empty(t, stdout)
}

// TestPredictCommandLoadFailureFirst verifies a broken artifact aborts before the input is looked at
func TestPredictCommandLoadFailureFirst(t *testing.T) {
	input := writeApplication(t, exampleJSON)

	_, stderr, err := run(t, "", "--artifact", filepath.Join(t.TempDir(), "missing.yaml"),
		"predict", "--input", input, "--set", "ApplicantIncome=100000")

	var loadErr *pipeline.LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.NotContains(t, stderr, "OUT_OF_RANGE")
}

func TestPredictCommandErrors(t *testing.T) {
	input := writeApplication(t, exampleJSON)

	tests := []struct {
		name string
		args []string
	}{
		{"unknown field", []string{"--input", input, "--set", "Salary=1"}},
		{"malformed override", []string{"--input", input, "--set", "Credit_History"}},
		{"missing input", []string{"--input", filepath.Join(t.TempDir(), "nope.json")}},
		{"bad json", []string{"--input", writeApplication(t, "{")}},
		{"incomplete", []string{"--set", "Gender=Male"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"--artifact", artifactPath, "predict"}, tt.args...)
			_, _, err := run(t, "", args...)
			assert.Error(t, err)
		})
	}
}

func TestPredictCommandMissingArtifact(t *testing.T) {
	input := writeApplication(t, exampleJSON)

	_, _, err := run(t, "", "--artifact", filepath.Join(t.TempDir(), "missing.yaml"), "predict", "--input", input)

	var loadErr *pipeline.LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, "An error occurred: "+err.Error(), form.ErrorBanner(err).Text())
}

// scriptedPrompter answers prompts from a fixed script. An empty answer
// accepts the default.
type scriptedPrompter struct {
	answers  []string
	defaults map[string]string
	err      error
}

func (s *scriptedPrompter) next(message, def string) (string, error) {
	if s.defaults == nil {
		s.defaults = map[string]string{}
	}
	s.defaults[message] = def
	if len(s.answers) == 0 {
		if s.err != nil {
			return "", s.err
		}
		return menuQuit, nil
	}
	a := s.answers[0]
	s.answers = s.answers[1:]
	if a == "" {
		return def, nil
	}
	return a, nil
}

func (s *scriptedPrompter) Select(message, help string, options []string, def string) (string, error) {
	return s.next(message, def)
}

func (s *scriptedPrompter) Input(message, help, def string, validate func(string) error) (string, error) {
	a, err := s.next(message, def)
	if err == nil && validate != nil {
		err = validate(a)
	}
	return a, err
}

func newController(t *testing.T) *form.Controller {
	t.Helper()
	p, err := pipeline.Load(context.Background(), pipeline.FileSource{Path: artifactPath})
	require.NoError(t, err)
	return form.NewController(pipeline.NewPredictor(p))
}

func TestRunForm(t *testing.T) {
	p := &scriptedPrompter{answers: []string{
		menuPredict,
		menuFinancial, "", "", "", "", "0", "", "",
		menuPredict,
		menuResetFinancial,
		menuFinancial, "", "", "", "", "", "", "",
		menuPredict,
		menuQuit,
	}}
	var out bytes.Buffer

	require.NoError(t, runForm(p, newController(t), &out))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	assert.Equal(t, []string{
		"🏠 Home Loan Approval Predictor",
		"✅ Eligible",
		"❌ Not Eligible",
		"🔄 Financial fields reset successfully!",
		"✅ Eligible",
	}, lines)
	assert.Equal(t, "1", p.defaults["Credit History"], "reset restores the default")
}

func TestRunFormKeepsPersonalOnFinancialReset(t *testing.T) {
	p := &scriptedPrompter{answers: []string{
		menuPersonal, "Female", "", "", "", "", "",
		menuResetFinancial,
		menuPersonal, "", "", "", "", "", "",
		menuResetAll,
		menuPersonal, "", "", "", "", "", "",
	}}
	var out bytes.Buffer
	defaults := []string{}
	require.NoError(t, runForm(&recordingPrompter{scriptedPrompter: p, seen: &defaults}, newController(t), &out))

	// Gender default as offered on each visit of the personal section
	assert.Equal(t, []string{"Male", "Female", "Male"}, defaults)
}

// recordingPrompter records the default offered for the Gender select.
type recordingPrompter struct {
	*scriptedPrompter
	seen *[]string
}

func (r *recordingPrompter) Select(message, help string, options []string, def string) (string, error) {
	if message == "Gender" {
		*r.seen = append(*r.seen, def)
	}
	return r.scriptedPrompter.Select(message, help, options, def)
}

func TestRunFormAborted(t *testing.T) {
	p := &scriptedPrompter{answers: []string{menuPersonal, "Female"}, err: errAborted}

	err := runForm(p, newController(t), &bytes.Buffer{})
	assert.ErrorIs(t, err, errAborted)
}

func TestNumberValidator(t *testing.T) {
	var income form.Widget
	for _, w := range form.Widgets() {
		if w.Label == "Applicant Income" {
			income = w
		}
	}
	require.Equal(t, form.ControlNumber, income.Control)

	validate := numberValidator(income)
	assert.NoError(t, validate("5000"))
	assert.NoError(t, validate("150"))
	assert.NoError(t, validate("81000"))
	assert.Error(t, validate("100000"))
	assert.Error(t, validate("abc"))
	assert.Error(t, validate(""))
}
