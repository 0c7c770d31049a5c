package pipeline

import (
	_ "embed"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/liamcoop/homeloan/application"
	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

// SupportedFormatVersion is the only artifact format this build can run.
const SupportedFormatVersion = 1

//go:embed artifact_schema.json
var artifactSchema string

var identifierPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Artifact is the serialized form of a trained pipeline: the column order it
// was trained on, the feature transforms, and the classifier expression.
type Artifact struct {
	FormatVersion int                           `yaml:"format_version"`
	Name          string                        `yaml:"name"`
	Description   string                        `yaml:"description,omitempty"`
	Columns       []string                      `yaml:"columns"`
	Encoders      map[string]map[string]float64 `yaml:"encoders"`
	Scalers       map[string]Scaler             `yaml:"scalers,omitempty"`
	Classifier    ClassifierSpec                `yaml:"classifier"`
}

// Scaler standardises a numeric column as (value - Center) / Scale.
type Scaler struct {
	Center float64 `yaml:"center"`
	Scale  float64 `yaml:"scale"`
}

// ClassifierSpec holds a CEL expression over x, the map of transformed
// features, that yields the binary label as an int or a bool.
type ClassifierSpec struct {
	Expression string `yaml:"expression"`
}

// ParseArtifact decodes a YAML document, checks it against the artifact
// schema and then against the application field catalogue.
func ParseArtifact(data []byte) (*Artifact, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("corrupt artifact: %w", err)
	}
	if doc == nil {
		return nil, fmt.Errorf("corrupt artifact: empty document")
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(artifactSchema),
		gojsonschema.NewGoLoader(doc),
	)
	if err != nil {
		return nil, fmt.Errorf("artifact schema check: %w", err)
	}
	if !result.Valid() {
		errs := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			errs[i] = desc.String()
		}
		return nil, fmt.Errorf("artifact does not match schema: %s", strings.Join(errs, "; "))
	}

	var a Artifact
	if err := yaml.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("corrupt artifact: %w", err)
	}

	if err := ValidateArtifact(&a); err != nil {
		return nil, err
	}
	return &a, nil
}

// ValidateArtifact checks that an artifact can run against applications
// built by this version of the application package.
func ValidateArtifact(a *Artifact) error {
	if a.FormatVersion != SupportedFormatVersion {
		return fmt.Errorf("version mismatch: artifact format_version %d, supported %d",
			a.FormatVersion, SupportedFormatVersion)
	}

	for _, col := range a.Columns {
		if err := validateIdentifier(col); err != nil {
			return fmt.Errorf("invalid column name %q: %w", col, err)
		}
	}

	want := application.ColumnNames()
	if !slices.Equal(a.Columns, want) {
		return fmt.Errorf("column mismatch: artifact trained on %v, applications provide %v", a.Columns, want)
	}

	for _, f := range application.Fields() {
		switch f.Kind {
		case application.Categorical:
			if len(a.Encoders[f.Name]) == 0 {
				return fmt.Errorf("categorical column %q has no encoder", f.Name)
			}
			if _, ok := a.Scalers[f.Name]; ok {
				return fmt.Errorf("categorical column %q cannot have a scaler", f.Name)
			}
		case application.Numeric:
			if _, ok := a.Encoders[f.Name]; ok {
				return fmt.Errorf("numeric column %q cannot have an encoder", f.Name)
			}
			if s, ok := a.Scalers[f.Name]; ok && s.Scale == 0 {
				return fmt.Errorf("scaler for column %q has zero scale", f.Name)
			}
		}
	}

	for name := range a.Encoders {
		if !slices.Contains(want, name) {
			return fmt.Errorf("encoder for unknown column %q", name)
		}
	}
	for name := range a.Scalers {
		if !slices.Contains(want, name) {
			return fmt.Errorf("scaler for unknown column %q", name)
		}
	}

	return nil
}

// validateIdentifier checks a column can be selected as x.<name> in CEL.
func validateIdentifier(name string) error {
	if len(name) == 0 {
		return fmt.Errorf("identifier cannot be empty")
	}
	if len(name) > 100 {
		return fmt.Errorf("identifier length %d exceeds maximum of 100 characters", len(name))
	}
	if !identifierPattern.MatchString(name) {
		return fmt.Errorf("must match pattern ^[a-zA-Z_][a-zA-Z0-9_]*$")
	}
	if isReservedKeyword(name) {
		return fmt.Errorf("cannot use reserved keyword %q as identifier", name)
	}
	return nil
}

func isReservedKeyword(name string) bool {
	reserved := map[string]bool{
		"true": true, "false": true, "null": true,
		"if": true, "else": true, "for": true, "while": true,
		"break": true, "continue": true, "return": true,
		"var": true, "let": true, "const": true, "function": true,
		"in": true, "as": true, "import": true, "package": true,
		"namespace": true, "loop": true, "void": true,
	}
	return reserved[name]
}
