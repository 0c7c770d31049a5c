// Package application defines the loan application record and the
// validation gate every raw input must pass before it reaches the classifier.
package application

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
)

// Application is a fully validated loan application. Values of this type only
// come out of New, so every field is present, in domain and in range.
type Application struct {
	Gender                  Gender         `json:"Gender"`
	Married                 YesNo          `json:"Married"`
	Dependents              Dependents     `json:"Dependents"`
	Education               Education      `json:"Education"`
	SelfEmployed            YesNo          `json:"Self_Employed"`
	PropertyArea            PropertyArea   `json:"Property_Area"`
	ApplicantIncome         float64        `json:"ApplicantIncome"`
	CoapplicantIncome       float64        `json:"CoapplicantIncome"`
	LoanAmount              float64        `json:"LoanAmount"`
	LoanAmountTerm          float64        `json:"Loan_Amount_Term"`
	CreditHistory           float64        `json:"Credit_History"`
	ApplicantIncomeCategory IncomeCategory `json:"ApplicantIncome_Category"`
	LoanAmountBin           LoanAmountBin  `json:"LoanAmount_bin"`
}

// New validates raw and builds an Application. Every offending field is
// reported in a single *ValidationError; unknown keys are ignored.
func New(raw map[string]any) (*Application, error) {
	cats := make(map[string]string)
	nums := make(map[string]float64)
	var problems []FieldError

	for _, f := range catalogue {
		v, ok := raw[f.Name]
		if !ok || v == nil {
			problems = append(problems, &MissingFieldError{Field: f.Name})
			continue
		}

		switch f.Kind {
		case Categorical:
			s, ok := v.(string)
			if !ok || !slices.Contains(f.Options, s) {
				problems = append(problems, &TypeError{
					Field:    f.Name,
					Value:    v,
					Expected: "one of " + strings.Join(quoted(f.Options), ", "),
				})
				continue
			}
			cats[f.Name] = s

		case Numeric:
			n, err := toFloat(v)
			if err != nil {
				problems = append(problems, &TypeError{Field: f.Name, Value: v, Expected: "a finite number"})
				continue
			}
			if n < f.Min || n > f.Max {
				problems = append(problems, &RangeError{Field: f.Name, Value: n, Min: f.Min, Max: f.Max})
				continue
			}
			nums[f.Name] = n
		}
	}

	if len(problems) > 0 {
		return nil, &ValidationError{Problems: problems}
	}

	return &Application{
		Gender:                  Gender(cats[FieldGender]),
		Married:                 YesNo(cats[FieldMarried]),
		Dependents:              Dependents(cats[FieldDependents]),
		Education:               Education(cats[FieldEducation]),
		SelfEmployed:            YesNo(cats[FieldSelfEmployed]),
		PropertyArea:            PropertyArea(cats[FieldPropertyArea]),
		ApplicantIncome:         nums[FieldApplicantIncome],
		CoapplicantIncome:       nums[FieldCoapplicantIncome],
		LoanAmount:              nums[FieldLoanAmount],
		LoanAmountTerm:          nums[FieldLoanAmountTerm],
		CreditHistory:           nums[FieldCreditHistory],
		ApplicantIncomeCategory: IncomeCategory(cats[FieldApplicantIncomeCategory]),
		LoanAmountBin:           LoanAmountBin(cats[FieldLoanAmountBin]),
	}, nil
}

// Raw returns the application as a raw field map that New accepts.
func (a *Application) Raw() map[string]any {
	raw := make(map[string]any, len(catalogue))
	for _, c := range a.Row() {
		raw[c.Name] = c.Value
	}
	return raw
}

// Row returns the single-row feature vector in training column order.
func (a *Application) Row() Row {
	return Row{
		{Name: FieldGender, Value: string(a.Gender)},
		{Name: FieldMarried, Value: string(a.Married)},
		{Name: FieldDependents, Value: string(a.Dependents)},
		{Name: FieldEducation, Value: string(a.Education)},
		{Name: FieldSelfEmployed, Value: string(a.SelfEmployed)},
		{Name: FieldPropertyArea, Value: string(a.PropertyArea)},
		{Name: FieldApplicantIncome, Value: a.ApplicantIncome},
		{Name: FieldCoapplicantIncome, Value: a.CoapplicantIncome},
		{Name: FieldLoanAmount, Value: a.LoanAmount},
		{Name: FieldLoanAmountTerm, Value: a.LoanAmountTerm},
		{Name: FieldCreditHistory, Value: a.CreditHistory},
		{Name: FieldApplicantIncomeCategory, Value: string(a.ApplicantIncomeCategory)},
		{Name: FieldLoanAmountBin, Value: string(a.LoanAmountBin)},
	}
}

// Column is one named cell of a feature row. Value is a string for
// categorical columns and a float64 for numeric ones.
type Column struct {
	Name  string
	Value any
}

type Row []Column

// Get returns the value stored under name.
func (r Row) Get(name string) (any, bool) {
	for _, c := range r {
		if c.Name == name {
			return c.Value, true
		}
	}
	return nil, false
}

// Names returns the column names in row order.
func (r Row) Names() []string {
	names := make([]string, len(r))
	for i, c := range r {
		names[i] = c.Name
	}
	return names
}

// Fingerprint renders the row as a stable string, usable as a cache key.
func (r Row) Fingerprint() string {
	var b strings.Builder
	for i, c := range r {
		if i > 0 {
			b.WriteByte('|')
		}
		b.WriteString(c.Name)
		b.WriteByte('=')
		switch v := c.Value.(type) {
		case float64:
			b.WriteString(formatNumber(v))
		default:
			b.WriteString(fmt.Sprint(v))
		}
	}
	return b.String()
}

func toFloat(v any) (float64, error) {
	var n float64
	switch x := v.(type) {
	case float64:
		n = x
	case float32:
		n = float64(x)
	case int:
		n = float64(x)
	case int8:
		n = float64(x)
	case int16:
		n = float64(x)
	case int32:
		n = float64(x)
	case int64:
		n = float64(x)
	case uint:
		n = float64(x)
	case uint8:
		n = float64(x)
	case uint16:
		n = float64(x)
	case uint32:
		n = float64(x)
	case uint64:
		n = float64(x)
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return 0, err
		}
		n = f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, err
		}
		n = f
	default:
		return 0, fmt.Errorf("unsupported numeric type %T", v)
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, fmt.Errorf("non-finite number %v", n)
	}
	return n, nil
}

func quoted(opts []string) []string {
	out := make([]string, len(opts))
	for i, o := range opts {
		out[i] = strconv.Quote(o)
	}
	return out
}
