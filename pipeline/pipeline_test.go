package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/liamcoop/homeloan/application"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const artifactPath = "../models/pipeline.yaml"

func exampleApplication(t *testing.T, overrides map[string]any) *application.Application {
	t.Helper()
	raw := map[string]any{
		"Gender":                   "Male",
		"Married":                  "Yes",
		"Dependents":               "0",
		"Education":                "Graduate",
		"Self_Employed":            "No",
		"Property_Area":            "Urban",
		"ApplicantIncome":          5000.0,
		"CoapplicantIncome":        0.0,
		"LoanAmount":               128.0,
		"Loan_Amount_Term":         360.0,
		"Credit_History":           1.0,
		"ApplicantIncome_Category": "High",
		"LoanAmount_bin":           "Average",
	}
	for k, v := range overrides {
		raw[k] = v
	}
	app, err := application.New(raw)
	require.NoError(t, err)
	return app
}

func loadDefault(t *testing.T) *Pipeline {
	t.Helper()
	p, err := Load(context.Background(), FileSource{Path: artifactPath})
	require.NoError(t, err)
	return p
}

// mutatedArtifact returns the shipped artifact re-serialized after fn edits it.
func mutatedArtifact(t *testing.T, fn func(a *Artifact)) []byte {
	t.Helper()
	data, err := os.ReadFile(artifactPath)
	require.NoError(t, err)

	var a Artifact
	require.NoError(t, yaml.Unmarshal(data, &a))
	fn(&a)

	out, err := yaml.Marshal(&a)
	require.NoError(t, err)
	return out
}

func writeTemp(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pipeline.yaml")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

// TestLoadShippedArtifact verifies the artifact in models/ loads and keeps training column order
func TestLoadShippedArtifact(t *testing.T) {
	p := loadDefault(t)

	assert.Equal(t, "home-loan-logistic-v1", p.Name())
	assert.Equal(t, application.ColumnNames(), p.Columns())
}

// TestPredictExample verifies the documented example predicts without error
func TestPredictExample(t *testing.T) {
	predictor := NewPredictor(loadDefault(t))

	verdict, err := predictor.Predict(exampleApplication(t, nil))
	require.NoError(t, err)
	assert.Equal(t, Eligible, verdict)

	verdict, err = predictor.Predict(exampleApplication(t, map[string]any{"Credit_History": 0.0}))
	require.NoError(t, err)
	assert.Equal(t, NotEligible, verdict)
}

// TestPredictDeterministic verifies the same application always gets the same verdict
func TestPredictDeterministic(t *testing.T) {
	predictor := NewPredictor(loadDefault(t))
	app := exampleApplication(t, map[string]any{"Property_Area": "Rural", "LoanAmount": 600.0})

	first, err := predictor.Predict(app)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := predictor.Predict(app)
			assert.NoError(t, err)
			assert.Equal(t, first, v)
		}()
	}
	wg.Wait()
}

// TestPredictVerdictDomain verifies every categorical combination yields one of the two verdicts
func TestPredictVerdictDomain(t *testing.T) {
	predictor := NewPredictor(loadDefault(t))

	for _, f := range application.Fields() {
		if f.Kind != application.Categorical {
			continue
		}
		for _, opt := range f.Options {
			v, err := predictor.Predict(exampleApplication(t, map[string]any{f.Name: opt}))
			require.NoError(t, err, "%s=%s", f.Name, opt)
			assert.Contains(t, []Verdict{Eligible, NotEligible}, v)
		}
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{
			name: "corrupt yaml",
			data: []byte("format_version: [1\n"),
		},
		{
			name: "empty document",
			data: []byte(""),
		},
		{
			name: "schema violation",
			data: []byte("format_version: 1\nname: partial\n"),
		},
		{
			name: "version mismatch",
			data: mutatedArtifact(t, func(a *Artifact) { a.FormatVersion = 2 }),
		},
		{
			name: "column order mismatch",
			data: mutatedArtifact(t, func(a *Artifact) {
				a.Columns[0], a.Columns[1] = a.Columns[1], a.Columns[0]
			}),
		},
		{
			name: "missing encoder",
			data: mutatedArtifact(t, func(a *Artifact) { delete(a.Encoders, "Gender") }),
		},
		{
			name: "encoder on numeric column",
			data: mutatedArtifact(t, func(a *Artifact) {
				a.Encoders["LoanAmount"] = map[string]float64{"x": 1}
			}),
		},
		{
			name: "zero scale",
			data: mutatedArtifact(t, func(a *Artifact) {
				a.Scalers["LoanAmount"] = Scaler{Center: 1, Scale: 0}
			}),
		},
		{
			name: "expression does not compile",
			data: mutatedArtifact(t, func(a *Artifact) { a.Classifier.Expression = "x.Gender +" }),
		},
		{
			name: "expression yields string",
			data: mutatedArtifact(t, func(a *Artifact) { a.Classifier.Expression = `"approved"` }),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(context.Background(), FileSource{Path: writeTemp(t, tt.data)})

			var loadErr *LoadError
			require.ErrorAs(t, err, &loadErr)
			assert.Contains(t, loadErr.Origin, "pipeline.yaml")
		})
	}
}

// TestLoadMissingFile verifies a missing artifact fails with a LoadError
func TestLoadMissingFile(t *testing.T) {
	_, err := Load(context.Background(), FileSource{Path: filepath.Join(t.TempDir(), "nope.yaml")})

	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

// TestPredictUnseenCategory verifies a level absent from the encoder surfaces as a PredictionError
func TestPredictUnseenCategory(t *testing.T) {
	data := mutatedArtifact(t, func(a *Artifact) { delete(a.Encoders["Property_Area"], "Semiurban") })
	p, err := FromBytes(data)
	require.NoError(t, err)

	_, err = NewPredictor(p).Predict(exampleApplication(t, map[string]any{"Property_Area": "Semiurban"}))

	var predErr *PredictionError
	require.ErrorAs(t, err, &predErr)
	assert.ErrorIs(t, err, ErrUnseenCategory)
	assert.Contains(t, err.Error(), "Semiurban")
}

// TestClassifyRowShape verifies rows that do not match training columns are rejected
func TestClassifyRowShape(t *testing.T) {
	p := loadDefault(t)
	row := exampleApplication(t, nil).Row()

	_, err := p.Classify(row[:5])
	assert.ErrorIs(t, err, ErrRowShape)

	swapped := append(application.Row(nil), row...)
	swapped[0], swapped[1] = swapped[1], swapped[0]
	_, err = p.Classify(swapped)
	assert.ErrorIs(t, err, ErrRowShape)

	wrongType := append(application.Row(nil), row...)
	wrongType[6].Value = "5000"
	_, err = p.Classify(wrongType)
	assert.ErrorIs(t, err, ErrRowShape)
}

// TestClassifyBoolExpression verifies bool-valued classifiers map true to label 1
func TestClassifyBoolExpression(t *testing.T) {
	data := mutatedArtifact(t, func(a *Artifact) { a.Classifier.Expression = "x.Credit_History > 0.5" })
	p, err := FromBytes(data)
	require.NoError(t, err)

	label, err := p.Classify(exampleApplication(t, nil).Row())
	require.NoError(t, err)
	assert.Equal(t, 1, label)

	label, err = p.Classify(exampleApplication(t, map[string]any{"Credit_History": 0}).Row())
	require.NoError(t, err)
	assert.Equal(t, 0, label)
}

// TestClassifyMissingFeature verifies a runtime lookup failure is an error, not a verdict
func TestClassifyMissingFeature(t *testing.T) {
	data := mutatedArtifact(t, func(a *Artifact) { a.Classifier.Expression = `x["Loan_Status"] > 0.0` })
	p, err := FromBytes(data)
	require.NoError(t, err)

	_, err = NewPredictor(p).Predict(exampleApplication(t, nil))
	var predErr *PredictionError
	require.ErrorAs(t, err, &predErr)
	assert.Contains(t, err.Error(), "Loan_Status")
}

func TestFileSourceDefaultPath(t *testing.T) {
	assert.Equal(t, "file models/pipeline.yaml", FileSource{}.String())
}

func TestResolvePathAbsolute(t *testing.T) {
	abs, err := filepath.Abs(artifactPath)
	require.NoError(t, err)

	got, err := ResolvePath(abs)
	require.NoError(t, err)
	assert.Equal(t, abs, got)

	missing := filepath.Join(t.TempDir(), "missing.yaml")
	_, err = ResolvePath(missing)
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Contains(t, err.Error(), "artifact not found")

	_, err = ResolvePath(filepath.Join("nowhere", "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "artifact not found")
}

func TestValidateIdentifier(t *testing.T) {
	assert.NoError(t, validateIdentifier("Loan_Amount_Term"))
	assert.Error(t, validateIdentifier(""))
	assert.Error(t, validateIdentifier("3+"))
	assert.Error(t, validateIdentifier("in"))
}
