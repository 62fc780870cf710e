package payroll

import (
	"errors"
	"fmt"
	"os"

	"github.com/ledongthuc/pdf"
)

// defaultPageHeight is A4 in points, used when a page declares no MediaBox.
const defaultPageHeight = 842.0

var (
	// ErrPageOutOfRange is returned for pages the document does not have.
	ErrPageOutOfRange = errors.New("page out of range")
	// ErrMalformedPDF is returned when the reader cannot decode the document.
	ErrMalformedPDF = errors.New("malformed pdf")
)

// Document is an opened payslip.
type Document interface {
	PageSource
	Close() error
}

// Opener opens a payslip file.
type Opener func(path string) (Document, error)

type pdfDocument struct {
	file   *os.File
	reader *pdf.Reader
}

// OpenPDF opens a payslip PDF for text extraction.
func OpenPDF(path string) (doc Document, err error) {
	defer func() {
		if r := recover(); r != nil {
			doc = nil
			err = fmt.Errorf("%w: %v", ErrMalformedPDF, r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open pdf: %w", err)
	}
	return &pdfDocument{file: f, reader: r}, nil
}

func (d *pdfDocument) Close() error {
	return d.file.Close()
}

// Page returns the positioned text of page n with Y measured from the top.
func (d *pdfDocument) Page(n int) (frags []Fragment, err error) {
	// The page tree walk and the content stream decoder panic on malformed input.
	defer func() {
		if r := recover(); r != nil {
			frags = nil
			err = fmt.Errorf("%w: page %d: %v", ErrMalformedPDF, n, r)
		}
	}()

	if n < 1 || n > d.reader.NumPage() {
		return nil, fmt.Errorf("%w: %d of %d", ErrPageOutOfRange, n, d.reader.NumPage())
	}

	p := d.reader.Page(n)
	if p.V.IsNull() {
		return nil, fmt.Errorf("%w: page %d is empty", ErrPageOutOfRange, n)
	}

	height := pageHeight(p)
	content := p.Content()
	frags = make([]Fragment, 0, len(content.Text))
	for _, t := range content.Text {
		frags = append(frags, Fragment{
			X:    t.X,
			Y:    height - t.Y,
			W:    t.W,
			Size: t.FontSize,
			Text: t.S,
		})
	}

	return frags, nil
}

// pageHeight reads the MediaBox, following the Parent chain for inherited boxes.
func pageHeight(p pdf.Page) float64 {
	v := p.V
	for depth := 0; depth < 16 && !v.IsNull(); depth++ {
		box := v.Key("MediaBox")
		if box.Kind() == pdf.Array && box.Len() == 4 {
			if h := box.Index(3).Float64() - box.Index(1).Float64(); h > 0 {
				return h
			}
		}
		v = v.Key("Parent")
	}
	return defaultPageHeight
}
