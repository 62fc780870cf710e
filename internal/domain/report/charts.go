package report

import (
	"bytes"
	"errors"
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/FACorreiaa/salary-insights/internal/domain/analysis"
)

// Chart titles.
const (
	TitleUSD  = "Salario USD en el tiempo"
	TitleReal = "Salario real en pesos ajustado por inflacion"
)

var (
	ErrNoUSDData  = errors.New("no month has a dollar salary")
	ErrNoRealData = errors.New("no month has an inflation-adjusted salary")
)

var (
	blue  = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	red   = color.RGBA{R: 214, G: 39, B: 40, A: 255}
	green = color.RGBA{R: 44, G: 160, B: 44, A: 255}
)

// USDChart plots the dollar salary with reference lines at its minimum,
// maximum and mean. Points at or below the mean are red crosses, points
// above it green circles. Months without a rate leave a gap on the axis.
func USDChart(table *analysis.Table) (*plot.Plot, error) {
	stats, ok := SummarizeUSD(table)
	if !ok {
		return nil, ErrNoUSDData
	}

	var all, below, above plotter.XYs
	for i, r := range table.Rows {
		if r.SalaryUSD == nil {
			continue
		}
		v := r.SalaryUSD.ToDecimal()
		pt := plotter.XY{X: float64(i), Y: v.InexactFloat64()}
		all = append(all, pt)
		if Classify(v, stats.Mean) == AboveMean {
			above = append(above, pt)
		} else {
			below = append(below, pt)
		}
	}

	p := newPlot(TitleUSD, "USD", table)
	last := float64(table.Len() - 1)

	for _, ref := range []struct {
		y     float64
		color color.Color
	}{
		{stats.Min.InexactFloat64(), red},
		{stats.Max.InexactFloat64(), red},
		{stats.Mean.InexactFloat64(), green},
	} {
		l, err := horizontal(ref.y, 0, last, ref.color)
		if err != nil {
			return nil, err
		}
		p.Add(l)
	}

	line, err := plotter.NewLine(all)
	if err != nil {
		return nil, fmt.Errorf("failed to build salary line: %w", err)
	}
	line.LineStyle.Color = blue
	line.LineStyle.Width = vg.Points(1.5)
	p.Add(line)

	for _, group := range []struct {
		pts   plotter.XYs
		shape draw.GlyphDrawer
		color color.Color
	}{
		{below, draw.CrossGlyph{}, red},
		{above, draw.CircleGlyph{}, green},
	} {
		if len(group.pts) == 0 {
			continue
		}
		s, err := plotter.NewScatter(group.pts)
		if err != nil {
			return nil, fmt.Errorf("failed to build markers: %w", err)
		}
		s.GlyphStyle.Shape = group.shape
		s.GlyphStyle.Color = group.color
		s.GlyphStyle.Radius = vg.Points(4)
		p.Add(s)
	}

	return p, nil
}

// RealSalaryChart plots the inflation-adjusted local salary as a plain line.
func RealSalaryChart(table *analysis.Table) (*plot.Plot, error) {
	var pts plotter.XYs
	for i, r := range table.Rows {
		if r.SalaryLocalReal == nil {
			continue
		}
		pts = append(pts, plotter.XY{X: float64(i), Y: r.SalaryLocalReal.ToFloat64()})
	}
	if len(pts) == 0 {
		return nil, ErrNoRealData
	}

	p := newPlot(TitleReal, table.Currency, table)

	line, err := plotter.NewLine(pts)
	if err != nil {
		return nil, fmt.Errorf("failed to build real salary line: %w", err)
	}
	line.LineStyle.Color = blue
	line.LineStyle.Width = vg.Points(1.5)
	p.Add(line)

	return p, nil
}

// RenderJPEG draws the plot into a JPEG image of the given size.
func RenderJPEG(p *plot.Plot, width, height vg.Length) ([]byte, error) {
	wt, err := p.WriterTo(width, height, "jpeg")
	if err != nil {
		return nil, fmt.Errorf("failed to create jpeg canvas: %w", err)
	}

	var buf bytes.Buffer
	if _, err := wt.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

func newPlot(title, yLabel string, table *analysis.Table) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.Y.Label.Text = yLabel
	p.Add(plotter.NewGrid())

	labels := make([]string, 0, table.Len())
	for _, ym := range table.Periods() {
		labels = append(labels, ym.String())
	}
	p.NominalX(labels...)
	p.X.Tick.Label.Rotation = math.Pi / 4
	p.X.Tick.Label.XAlign = draw.XRight
	p.X.Tick.Label.YAlign = draw.YCenter

	return p
}

func horizontal(y, from, to float64, c color.Color) (*plotter.Line, error) {
	l, err := plotter.NewLine(plotter.XYs{{X: from, Y: y}, {X: to, Y: y}})
	if err != nil {
		return nil, fmt.Errorf("failed to build reference line: %w", err)
	}
	l.LineStyle.Color = c
	l.LineStyle.Width = vg.Points(1)
	return l, nil
}
