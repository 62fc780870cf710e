package payroll

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrFieldMissing means the area has no text where the field should be.
	ErrFieldMissing = errors.New("field not found")
	// ErrFieldMismatch means text was found but does not fit the contract.
	ErrFieldMismatch = errors.New("field does not match template")
)

// FieldError reports a template field that could not be read from a document.
type FieldError struct {
	Document string
	Field    string
	Reason   string
	Err      error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: field %s: %s", e.Document, e.Field, e.Reason)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

// ExtractFields reads every template field from src. It fails on the first
// field that does not satisfy its contract.
func ExtractFields(document string, src PageSource, tpl *Template) (map[string]string, error) {
	pages := make(map[int][]Fragment)
	for _, n := range tpl.Pages() {
		frags, err := src.Page(n)
		if err != nil {
			return nil, fmt.Errorf("%s: page %d: %w", document, n, err)
		}
		pages[n] = frags
	}

	values := make(map[string]string, len(tpl.Fields))
	for i := range tpl.Fields {
		f := &tpl.Fields[i]
		value, err := f.read(pages[f.Page])
		if err != nil {
			var fe *FieldError
			if errors.As(err, &fe) {
				fe.Document = document
			}
			return nil, err
		}
		values[f.Name] = value
	}

	return values, nil
}

func (f *Field) read(fragments []Fragment) (string, error) {
	lines := Lines(fragments, f.Area)

	var text string
	switch {
	case f.Line == LineMatchPattern:
		for _, l := range lines {
			if f.re.MatchString(l) {
				text = l
				break
			}
		}
		if text == "" {
			return "", f.fail(ErrFieldMismatch, "no line in area matches %q (area has %d lines)", f.Pattern, len(lines))
		}
	case f.Line >= len(lines):
		return "", f.fail(ErrFieldMissing, "line %d requested, area has %d", f.Line, len(lines))
	default:
		text = lines[f.Line]
	}

	if len(f.Slice) == 2 {
		sliced, ok := sliceRunes(text, f.Slice[0], f.Slice[1])
		if !ok {
			return "", f.fail(ErrFieldMismatch, "slice %v out of range for %q", f.Slice, text)
		}
		text = sliced
	}

	if f.re != nil {
		m := f.re.FindStringSubmatch(text)
		if m == nil {
			return "", f.fail(ErrFieldMismatch, "%q does not match %q", text, f.Pattern)
		}
		text = m[0]
		if len(m) > 1 {
			text = m[1]
		}
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", f.fail(ErrFieldMissing, "empty value")
	}
	return text, nil
}

func (f *Field) fail(err error, format string, args ...any) error {
	return &FieldError{Field: f.Name, Reason: fmt.Sprintf(format, args...), Err: err}
}

// sliceRunes applies [start, end) with negative indices counted from the end.
// Unlike a lenient substring it reports ranges that fall outside the text.
func sliceRunes(s string, start, end int) (string, bool) {
	r := []rune(s)
	n := len(r)
	if start < 0 {
		start += n
	}
	if end <= 0 {
		end += n
	}
	if start < 0 || end > n || start >= end {
		return "", false
	}
	return string(r[start:end]), true
}
