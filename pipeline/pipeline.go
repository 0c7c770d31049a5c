// Package pipeline loads the trained eligibility pipeline and turns validated
// applications into verdicts.
package pipeline

import (
	"context"
	"fmt"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/liamcoop/homeloan/application"
	"github.com/liamcoop/homeloan/internal/logger"
)

// costLimit bounds a single classifier evaluation.
const costLimit = 1000000

// Pipeline is a loaded, compiled artifact. It is immutable after Load and
// safe for concurrent use.
type Pipeline struct {
	artifact *Artifact
	program  cel.Program
}

// Load reads the artifact from src, validates it and compiles the classifier.
// Any failure is returned as a *LoadError.
func Load(ctx context.Context, src Source) (*Pipeline, error) {
	data, err := src.Load(ctx)
	if err != nil {
		return nil, &LoadError{Origin: src.String(), Err: err}
	}

	p, err := FromBytes(data)
	if err != nil {
		return nil, &LoadError{Origin: src.String(), Err: err}
	}

	logger.Info("pipeline loaded",
		"origin", src.String(),
		"name", p.artifact.Name,
		"format_version", p.artifact.FormatVersion)
	return p, nil
}

// FromBytes builds a Pipeline from a serialized artifact.
func FromBytes(data []byte) (*Pipeline, error) {
	a, err := ParseArtifact(data)
	if err != nil {
		return nil, err
	}
	return Compile(a)
}

// Compile compiles the classifier expression of an already validated artifact.
func Compile(a *Artifact) (*Pipeline, error) {
	env, err := cel.NewEnv(
		cel.Variable("x", cel.MapType(cel.StringType, cel.DoubleType)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	ast, issues := env.Compile(a.Classifier.Expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("classifier compile error: %w", issues.Err())
	}

	switch ast.OutputType().Kind() {
	case types.BoolKind, types.IntKind, types.DynKind:
	default:
		return nil, fmt.Errorf("classifier must yield bool or int, got %s", ast.OutputType())
	}

	prog, err := env.Program(ast, cel.CostLimit(costLimit))
	if err != nil {
		return nil, fmt.Errorf("program creation error: %w", err)
	}

	return &Pipeline{artifact: a, program: prog}, nil
}

// Name returns the artifact name.
func (p *Pipeline) Name() string { return p.artifact.Name }

// Columns returns the training column order.
func (p *Pipeline) Columns() []string {
	return append([]string(nil), p.artifact.Columns...)
}

// Classify runs the pipeline on a single row and returns the raw label.
func (p *Pipeline) Classify(row application.Row) (int, error) {
	features, err := p.transform(row)
	if err != nil {
		return 0, err
	}

	out, _, err := p.program.Eval(map[string]any{"x": features})
	if err != nil {
		return 0, fmt.Errorf("classifier evaluation: %w", err)
	}

	switch v := out.Value().(type) {
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	case int64:
		return int(v), nil
	default:
		return 0, fmt.Errorf("classifier returned %T, want bool or int", v)
	}
}

// transform applies the encoders and scalers, producing the feature map the
// classifier expression sees as x.
func (p *Pipeline) transform(row application.Row) (map[string]float64, error) {
	if len(row) != len(p.artifact.Columns) {
		return nil, fmt.Errorf("%w: got %d columns, want %d", ErrRowShape, len(row), len(p.artifact.Columns))
	}

	features := make(map[string]float64, len(row))
	for i, col := range row {
		if col.Name != p.artifact.Columns[i] {
			return nil, fmt.Errorf("%w: column %d is %q, want %q", ErrRowShape, i, col.Name, p.artifact.Columns[i])
		}

		switch v := col.Value.(type) {
		case string:
			enc, ok := p.artifact.Encoders[col.Name]
			if !ok {
				return nil, fmt.Errorf("%w: column %q is not categorical", ErrRowShape, col.Name)
			}
			code, ok := enc[v]
			if !ok {
				return nil, fmt.Errorf("%w %q in column %q", ErrUnseenCategory, v, col.Name)
			}
			features[col.Name] = code
		case float64:
			if _, ok := p.artifact.Encoders[col.Name]; ok {
				return nil, fmt.Errorf("%w: column %q is categorical", ErrRowShape, col.Name)
			}
			if s, ok := p.artifact.Scalers[col.Name]; ok {
				v = (v - s.Center) / s.Scale
			}
			features[col.Name] = v
		default:
			return nil, fmt.Errorf("%w: column %q has unsupported value type %T", ErrRowShape, col.Name, col.Value)
		}
	}
	return features, nil
}
