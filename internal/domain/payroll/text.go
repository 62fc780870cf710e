package payroll

import (
	"math"
	"sort"
	"strings"
)

// lineTolerance is how far apart, in points, two baselines may be and still
// belong to the same text line.
const lineTolerance = 2.0

// Fragment is a run of text placed on a page. Y grows downwards from the top
// edge, matching template areas.
type Fragment struct {
	X    float64
	Y    float64
	W    float64
	Size float64
	Text string
}

// PageSource exposes the positioned text of a document's pages (1-based).
type PageSource interface {
	Page(n int) ([]Fragment, error)
}

// Lines groups the fragments inside area into text lines, top to bottom.
func Lines(fragments []Fragment, area Area) []string {
	var inside []Fragment
	for _, f := range fragments {
		if f.Text == "" {
			continue
		}
		if area.Contains(f.X, f.Y) {
			inside = append(inside, f)
		}
	}
	if len(inside) == 0 {
		return nil
	}

	sort.SliceStable(inside, func(i, j int) bool { return inside[i].Y < inside[j].Y })

	var (
		lines   []string
		current []Fragment
		lineY   = inside[0].Y
	)
	flush := func() {
		if text := joinLine(current); text != "" {
			lines = append(lines, text)
		}
		current = current[:0]
	}

	for _, f := range inside {
		if math.Abs(f.Y-lineY) > lineTolerance {
			flush()
			lineY = f.Y
		}
		current = append(current, f)
	}
	flush()

	return lines
}

// joinLine concatenates fragments left to right, inserting a space where the
// horizontal gap is wider than a fraction of the font size.
func joinLine(frags []Fragment) string {
	sort.SliceStable(frags, func(i, j int) bool { return frags[i].X < frags[j].X })

	var b strings.Builder
	prevEnd := math.Inf(-1)
	for _, f := range frags {
		gap := f.X - prevEnd
		threshold := math.Max(1.0, 0.25*f.Size)
		if b.Len() > 0 && gap > threshold {
			b.WriteByte(' ')
		}
		b.WriteString(f.Text)
		prevEnd = f.X + f.W
	}

	return strings.Join(strings.Fields(b.String()), " ")
}
