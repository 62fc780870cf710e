// Package payroll extracts one salary record per payslip document using a
// template of named page areas.
package payroll

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// Required template fields.
const (
	FieldPaymentDate = "payment_date"
	FieldSalary      = "salary"
)

// Amount notations.
const (
	NotationEuropean = "european" // 1.234,56
	NotationAmerican = "american" // 1,234.56
)

// LineMatchPattern selects the first line in the area that matches the pattern.
const LineMatchPattern = -1

// ErrInvalidTemplate is returned when a template fails validation.
var ErrInvalidTemplate = errors.New("invalid payslip template")

var validate = validator.New(validator.WithRequiredStructEnabled())

// Area is a rectangle in PDF points measured from the top-left corner of the page.
type Area struct {
	X1 float64 `json:"x1" validate:"gte=0"`
	Y1 float64 `json:"y1" validate:"gte=0"`
	X2 float64 `json:"x2" validate:"gtfield=X1"`
	Y2 float64 `json:"y2" validate:"gtfield=Y1"`
}

// Contains reports whether the point lies inside the area, borders included.
func (a Area) Contains(x, y float64) bool {
	return x >= a.X1 && x <= a.X2 && y >= a.Y1 && y <= a.Y2
}

// Field describes where a named value lives and how to read it.
type Field struct {
	Name string `json:"name" validate:"required"`
	Page int    `json:"page" validate:"gte=1"`
	Area Area   `json:"area"`

	// Line is the 0-based text line inside Area, or LineMatchPattern.
	Line int `json:"line" validate:"gte=-1"`

	// Pattern must match the selected text. The first capture group, when
	// present, becomes the value.
	Pattern string `json:"pattern"`

	// Layout is the time layout of date fields.
	Layout string `json:"layout"`

	// Slice is a [start, end) rune range applied before Pattern. Negative
	// indices count from the end of the line; an end of 0 means the end.
	Slice []int `json:"slice" validate:"omitempty,len=2"`

	// Notation and Scale apply to amount fields.
	Notation string `json:"notation" validate:"omitempty,oneof=european american"`
	Scale    string `json:"scale" validate:"omitempty,numeric"`

	re    *regexp.Regexp
	scale decimal.Decimal
}

// Template is the extraction contract shared by every payslip of one issuer.
type Template struct {
	Fields []Field `json:"fields" validate:"required,min=1,dive"`
}

// LoadTemplate reads and validates a JSON template file.
func LoadTemplate(path string) (*Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read template: %w", err)
	}
	return ParseTemplate(data)
}

// ParseTemplate decodes and validates a JSON template.
func ParseTemplate(data []byte) (*Template, error) {
	var tpl Template
	if err := json.Unmarshal(data, &tpl); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTemplate, err)
	}
	if err := tpl.Validate(); err != nil {
		return nil, err
	}
	return &tpl, nil
}

// Validate checks the schema, compiles patterns and ensures the required
// fields are declared exactly once.
func (t *Template) Validate() error {
	if err := validate.Struct(t); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidTemplate, describeValidation(err))
	}

	seen := make(map[string]bool, len(t.Fields))
	for i := range t.Fields {
		f := &t.Fields[i]
		if seen[f.Name] {
			return fmt.Errorf("%w: field %q declared twice", ErrInvalidTemplate, f.Name)
		}
		seen[f.Name] = true

		if f.Pattern != "" {
			re, err := regexp.Compile(f.Pattern)
			if err != nil {
				return fmt.Errorf("%w: field %q pattern: %v", ErrInvalidTemplate, f.Name, err)
			}
			f.re = re
		}
		if f.Line == LineMatchPattern && f.re == nil {
			return fmt.Errorf("%w: field %q selects by pattern but has none", ErrInvalidTemplate, f.Name)
		}

		f.scale = decimal.NewFromInt(1)
		if f.Scale != "" {
			f.scale = decimal.RequireFromString(f.Scale)
		}
		if f.Notation == "" {
			f.Notation = NotationEuropean
		}
	}

	for _, required := range []string{FieldPaymentDate, FieldSalary} {
		if !seen[required] {
			return fmt.Errorf("%w: missing required field %q", ErrInvalidTemplate, required)
		}
	}

	if t.field(FieldPaymentDate).Layout == "" {
		t.field(FieldPaymentDate).Layout = "02-01-2006"
	}

	return nil
}

func (t *Template) field(name string) *Field {
	for i := range t.Fields {
		if t.Fields[i].Name == name {
			return &t.Fields[i]
		}
	}
	return nil
}

// Pages returns the distinct pages referenced by the template.
func (t *Template) Pages() []int {
	var pages []int
	seen := make(map[int]bool)
	for _, f := range t.Fields {
		if !seen[f.Page] {
			seen[f.Page] = true
			pages = append(pages, f.Page)
		}
	}
	return pages
}

func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
	}
	return strings.Join(msgs, "; ")
}
