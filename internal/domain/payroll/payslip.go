package payroll

import (
	"errors"
	"fmt"
	"time"

	"github.com/FACorreiaa/salary-insights/internal/domain/period"
	"github.com/FACorreiaa/salary-insights/pkg/money"
)

var (
	// ErrDuplicatePeriod means two payslips claim the same month.
	ErrDuplicatePeriod = errors.New("duplicate payslip month")
	// ErrImplausibleSalary rejects zero or negative salaries.
	ErrImplausibleSalary = errors.New("salary must be positive")
)

// Payslip is the salary paid for one month, read from one document.
type Payslip struct {
	Source string       `validate:"required"`
	Index  int          `validate:"gte=0"`
	Year   string       `validate:"len=4,numeric"`
	Month  string       `validate:"len=2,numeric"`
	Salary *money.Money `validate:"required"`
}

// Period returns the month the payslip belongs to.
func (p Payslip) Period() (period.YearMonth, error) {
	return period.FromParts(p.Year, p.Month)
}

// NewPayslip builds a validated payslip from extracted field values.
func NewPayslip(source string, index int, values map[string]string, tpl *Template, currency string) (Payslip, error) {
	dateField := tpl.field(FieldPaymentDate)
	paid, err := time.Parse(dateField.Layout, values[FieldPaymentDate])
	if err != nil {
		return Payslip{}, &FieldError{
			Document: source,
			Field:    FieldPaymentDate,
			Reason:   fmt.Sprintf("%q is not a %q date", values[FieldPaymentDate], dateField.Layout),
			Err:      ErrFieldMismatch,
		}
	}

	salaryField := tpl.field(FieldSalary)
	amount, err := money.ParseAmount(values[FieldSalary], salaryField.Notation == NotationEuropean)
	if err != nil {
		return Payslip{}, &FieldError{
			Document: source,
			Field:    FieldSalary,
			Reason:   err.Error(),
			Err:      ErrFieldMismatch,
		}
	}
	salary := money.NewFromDecimal(amount.Mul(salaryField.scale), currency)

	ym := period.FromTime(paid)
	p := Payslip{
		Source: source,
		Index:  index,
		Year:   ym.YearString(),
		Month:  ym.MonthString(),
		Salary: salary,
	}

	if err := validate.Struct(p); err != nil {
		return Payslip{}, fmt.Errorf("%s: invalid payslip: %s", source, describeValidation(err))
	}
	if !p.Salary.IsPositive() {
		return Payslip{}, fmt.Errorf("%s: %w (got %s)", source, ErrImplausibleSalary, p.Salary)
	}

	return p, nil
}
