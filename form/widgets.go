package form

import (
	"strconv"

	"github.com/liamcoop/homeloan/application"
)

// Section groups widgets. Reset Financial only touches SectionFinancial.
type Section string

const (
	SectionPersonal  Section = "personal"
	SectionFinancial Section = "financial"
)

// Control is the kind of input a widget renders as.
type Control string

const (
	ControlSelect Control = "select"
	ControlNumber Control = "number"
)

// Widget is one input of the form, bound to one application field.
type Widget struct {
	Key     string // stable prefix of the generation key
	Field   string
	Label   string
	Help    string
	Section Section
	Control Control
	Options []string
	Default string
	Min     float64
	Max     float64
	Step    float64 // suggested increment, never a validation rule
}

var widgets = []Widget{
	selectWidget("gender", application.FieldGender, "Gender", "Select your gender", SectionPersonal),
	selectWidget("married", application.FieldMarried, "Married", "Marital status", SectionPersonal),
	selectWidget("dependents", application.FieldDependents, "Dependents", "Number of dependents", SectionPersonal),
	selectWidget("education", application.FieldEducation, "Education", "Education level", SectionPersonal),
	selectWidget("self_employed", application.FieldSelfEmployed, "Self Employed", "Are you self-employed?", SectionPersonal,
		string(application.No), string(application.Yes)),
	selectWidget("property_area", application.FieldPropertyArea, "Property Area", "Location of property", SectionPersonal),

	numberWidget("applicant_income", application.FieldApplicantIncome, "Applicant Income",
		"Enter your income (USD). Range: 150 to 81,000. Median: 3,812.", 3812, 100),
	numberWidget("coapplicant_income", application.FieldCoapplicantIncome, "Coapplicant Income",
		"Enter co-applicant's income, if any (USD). Range: 0 to 41,667. Often 0.", 0, 100),
	numberWidget("loan_amount", application.FieldLoanAmount, "Loan Amount",
		"Enter loan amount in thousands (e.g., 128 for 128,000 USD). Range: 9 to 700. Median: 128.", 128, 10),
	numberWidget("loan_amount_term", application.FieldLoanAmountTerm, "Loan Amount Term",
		"Loan term in months (e.g., 360 for 30 years). Range: 12 to 480. Common: 360.", 360, 12),
	numberWidget("credit_history", application.FieldCreditHistory, "Credit History",
		"Enter 1 for good credit history, 0 for none/bad.", 1, 1),
	selectWidget("applicant_income_category", application.FieldApplicantIncomeCategory, "Income Category",
		"Select based on income: Low (≤2,874), Average (2,875–3,812), High (3,813–5,798), Very High (>5,798).", SectionFinancial),
	selectWidget("loan_amount_bin", application.FieldLoanAmountBin, "Loan Amount Category",
		"Select based on loan amount: Low (≤100), Average (101–151), High (>151).", SectionFinancial),
}

// Widgets returns the form widgets in display order.
func Widgets() []Widget {
	out := make([]Widget, len(widgets))
	for i, w := range widgets {
		w.Options = append([]string(nil), w.Options...)
		out[i] = w
	}
	return out
}

// selectWidget builds a select over the field's domain. The first option is
// the default; order overrides the catalogue order when given.
func selectWidget(key, field, label, help string, section Section, order ...string) Widget {
	f, ok := application.Lookup(field)
	if !ok {
		panic("form: unknown field " + field)
	}
	opts := f.Options
	if len(order) > 0 {
		opts = order
	}
	return Widget{
		Key:     key,
		Field:   field,
		Label:   label,
		Help:    help,
		Section: section,
		Control: ControlSelect,
		Options: opts,
		Default: opts[0],
	}
}

func numberWidget(key, field, label, help string, def, step float64) Widget {
	f, ok := application.Lookup(field)
	if !ok {
		panic("form: unknown field " + field)
	}
	return Widget{
		Key:     key,
		Field:   field,
		Label:   label,
		Help:    help,
		Section: SectionFinancial,
		Control: ControlNumber,
		Default: formatNumber(def),
		Min:     f.Min,
		Max:     f.Max,
		Step:    step,
	}
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
