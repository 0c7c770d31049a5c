package application

import "fmt"

// Bucket thresholds shown to the user in the form help texts.
const (
	incomeLowMax     = 2874
	incomeAverageMax = 3812
	incomeHighMax    = 5798

	loanLowMax     = 100
	loanAverageMax = 151
)

// IncomeCategoryFor returns the bucket an applicant income falls into.
func IncomeCategoryFor(income float64) IncomeCategory {
	switch {
	case income <= incomeLowMax:
		return IncomeLow
	case income <= incomeAverageMax:
		return IncomeAverage
	case income <= incomeHighMax:
		return IncomeHigh
	default:
		return IncomeVeryHigh
	}
}

// LoanAmountBinFor returns the bucket a loan amount (in thousands) falls into.
func LoanAmountBinFor(amount float64) LoanAmountBin {
	switch {
	case amount <= loanLowMax:
		return LoanLow
	case amount <= loanAverageMax:
		return LoanAverage
	default:
		return LoanHigh
	}
}

// BucketWarnings lists bucket fields whose user-selected value disagrees with
// the numeric field it summarises. The buckets are user input and are never
// corrected; the warnings are informational.
func (a *Application) BucketWarnings() []string {
	var warnings []string
	if want := IncomeCategoryFor(a.ApplicantIncome); want != a.ApplicantIncomeCategory {
		warnings = append(warnings, fmt.Sprintf("%s is %q but %s %s falls in %q",
			FieldApplicantIncomeCategory, a.ApplicantIncomeCategory, FieldApplicantIncome, formatNumber(a.ApplicantIncome), want))
	}
	if want := LoanAmountBinFor(a.LoanAmount); want != a.LoanAmountBin {
		warnings = append(warnings, fmt.Sprintf("%s is %q but %s %s falls in %q",
			FieldLoanAmountBin, a.LoanAmountBin, FieldLoanAmount, formatNumber(a.LoanAmount), want))
	}
	return warnings
}
