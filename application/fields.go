package application

import "strconv"

// Column names as the classifier was trained on them. Do not rename.
const (
	FieldGender                  = "Gender"
	FieldMarried                 = "Married"
	FieldDependents              = "Dependents"
	FieldEducation               = "Education"
	FieldSelfEmployed            = "Self_Employed"
	FieldPropertyArea            = "Property_Area"
	FieldApplicantIncome         = "ApplicantIncome"
	FieldCoapplicantIncome       = "CoapplicantIncome"
	FieldLoanAmount              = "LoanAmount"
	FieldLoanAmountTerm          = "Loan_Amount_Term"
	FieldCreditHistory           = "Credit_History"
	FieldApplicantIncomeCategory = "ApplicantIncome_Category"
	FieldLoanAmountBin           = "LoanAmount_bin"
)

type Gender string

const (
	GenderMale   Gender = "Male"
	GenderFemale Gender = "Female"
)

// YesNo is shared by Married and Self_Employed.
type YesNo string

const (
	Yes YesNo = "Yes"
	No  YesNo = "No"
)

type Dependents string

const (
	Dependents0     Dependents = "0"
	Dependents1     Dependents = "1"
	Dependents2     Dependents = "2"
	Dependents3Plus Dependents = "3+"
)

type Education string

const (
	Graduate    Education = "Graduate"
	NotGraduate Education = "Not Graduate"
)

type PropertyArea string

const (
	Urban     PropertyArea = "Urban"
	Rural     PropertyArea = "Rural"
	Semiurban PropertyArea = "Semiurban"
)

type IncomeCategory string

const (
	IncomeLow      IncomeCategory = "Low"
	IncomeAverage  IncomeCategory = "Average"
	IncomeHigh     IncomeCategory = "High"
	IncomeVeryHigh IncomeCategory = "Very High"
)

type LoanAmountBin string

const (
	LoanLow     LoanAmountBin = "Low"
	LoanAverage LoanAmountBin = "Average"
	LoanHigh    LoanAmountBin = "High"
)

// Kind tells categorical fields from numeric ones.
type Kind int

const (
	Categorical Kind = iota
	Numeric
)

func (k Kind) String() string {
	if k == Numeric {
		return "numeric"
	}
	return "categorical"
}

// Field describes one column of a loan application.
type Field struct {
	Name    string
	Kind    Kind
	Options []string // categorical domain, exact case-sensitive literals
	Min     float64  // inclusive numeric bounds
	Max     float64
}

var catalogue = []Field{
	{Name: FieldGender, Kind: Categorical, Options: options(GenderMale, GenderFemale)},
	{Name: FieldMarried, Kind: Categorical, Options: options(Yes, No)},
	{Name: FieldDependents, Kind: Categorical, Options: options(Dependents0, Dependents1, Dependents2, Dependents3Plus)},
	{Name: FieldEducation, Kind: Categorical, Options: options(Graduate, NotGraduate)},
	{Name: FieldSelfEmployed, Kind: Categorical, Options: options(Yes, No)},
	{Name: FieldPropertyArea, Kind: Categorical, Options: options(Urban, Rural, Semiurban)},
	{Name: FieldApplicantIncome, Kind: Numeric, Min: 150, Max: 81000},
	{Name: FieldCoapplicantIncome, Kind: Numeric, Min: 0, Max: 41667},
	{Name: FieldLoanAmount, Kind: Numeric, Min: 9, Max: 700},
	{Name: FieldLoanAmountTerm, Kind: Numeric, Min: 12, Max: 480},
	{Name: FieldCreditHistory, Kind: Numeric, Min: 0, Max: 1},
	{Name: FieldApplicantIncomeCategory, Kind: Categorical, Options: options(IncomeLow, IncomeAverage, IncomeHigh, IncomeVeryHigh)},
	{Name: FieldLoanAmountBin, Kind: Categorical, Options: options(LoanLow, LoanAverage, LoanHigh)},
}

// Fields returns the field catalogue in training column order.
func Fields() []Field {
	out := make([]Field, len(catalogue))
	for i, f := range catalogue {
		f.Options = append([]string(nil), f.Options...)
		out[i] = f
	}
	return out
}

// Lookup returns the catalogue entry for name.
func Lookup(name string) (Field, bool) {
	for _, f := range catalogue {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// ColumnNames returns the training column names in order.
func ColumnNames() []string {
	names := make([]string, len(catalogue))
	for i, f := range catalogue {
		names[i] = f.Name
	}
	return names
}

func options[T ~string](vals ...T) []string {
	out := make([]string, len(vals))
	for i, v := range vals {
		out[i] = string(v)
	}
	return out
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
