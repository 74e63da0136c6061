package report

import (
	"fmt"
	"image/color"
	"io"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/MJE43/montyhall-sim-go/internal/sweep"
)

// ChartOptions controls chart rendering. Width and Height are in points.
// Zero values pick defaults.
type ChartOptions struct {
	Width     int
	Height    int
	Title     string
	Precision int32
}

const (
	defaultWidth  = 800
	defaultHeight = 500
)

var (
	stayColor   = color.RGBA{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff}
	switchColor = color.RGBA{R: 0xff, G: 0x7f, B: 0x0e, A: 0xff}
)

// Line is a least-squares fit y = Intercept + Slope*x over [MinX, MaxX].
type Line struct {
	Slope     float64
	Intercept float64
	MinX      float64
	MaxX      float64
	N         int
}

// At evaluates the line at x.
func (l Line) At(x float64) float64 {
	return l.Intercept + l.Slope*x
}

// Fit regresses percentage on iterations for the records with the given
// switch flag. Fewer than two distinct x values give a flat line at the mean.
func Fit(records []sweep.Record, switched bool) Line {
	xs, ys := series(records, switched)
	if len(xs) == 0 {
		return Line{}
	}

	line := Line{MinX: xs[0], MaxX: xs[0], N: len(xs)}
	for _, x := range xs {
		line.MinX = min(line.MinX, x)
		line.MaxX = max(line.MaxX, x)
	}
	if line.MinX == line.MaxX {
		line.Intercept = stat.Mean(ys, nil)
		return line
	}
	line.Intercept, line.Slope = stat.LinearRegression(xs, ys, nil, false)
	return line
}

func series(records []sweep.Record, switched bool) (xs, ys []float64) {
	for _, rec := range records {
		if rec.Switched != switched {
			continue
		}
		xs = append(xs, float64(rec.Iterations))
		ys = append(ys, rec.Percentage)
	}
	return xs, ys
}

// Chart builds a scatter of percentage against iterations, coloured by
// switch flag, with one regression line per flag.
func Chart(records []sweep.Record, opts ChartOptions) (*plot.Plot, error) {
	if len(records) == 0 {
		return nil, ErrNoRecords
	}

	title := opts.Title
	if title == "" {
		title = fmt.Sprintf("Monty Hall: %d doors, %d iterations",
			records[0].Doors, records[len(records)-1].Iterations)
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "iterations"
	p.Y.Label.Text = "percentage"
	p.Legend.Top = true
	p.Add(plotter.NewGrid())

	for _, hue := range []struct {
		switched bool
		color    color.Color
	}{{false, stayColor}, {true, switchColor}} {
		xs, ys := series(records, hue.switched)
		if len(xs) == 0 {
			continue
		}

		pts := make(plotter.XYs, len(xs))
		for i := range xs {
			pts[i].X, pts[i].Y = xs[i], ys[i]
		}
		scatter, err := plotter.NewScatter(pts)
		if err != nil {
			return nil, fmt.Errorf("scatter switched=%t: %w", hue.switched, err)
		}
		scatter.GlyphStyle.Color = hue.color
		scatter.GlyphStyle.Shape = draw.CircleGlyph{}
		scatter.GlyphStyle.Radius = vg.Points(2.5)

		fit := Fit(records, hue.switched)
		line, err := plotter.NewLine(plotter.XYs{
			{X: fit.MinX, Y: fit.At(fit.MinX)},
			{X: fit.MaxX, Y: fit.At(fit.MaxX)},
		})
		if err != nil {
			return nil, fmt.Errorf("regression switched=%t: %w", hue.switched, err)
		}
		line.LineStyle.Color = hue.color
		line.LineStyle.Width = vg.Points(2)

		p.Add(scatter, line)
		p.Legend.Add(fmt.Sprintf("switched=%t", hue.switched), scatter, line)
	}
	return p, nil
}

// WriteSVG renders the chart as SVG.
func WriteSVG(w io.Writer, records []sweep.Record, opts ChartOptions) error {
	return writeChart(w, FormatSVG, records, opts)
}

// WritePNG renders the chart as PNG.
func WritePNG(w io.Writer, records []sweep.Record, opts ChartOptions) error {
	return writeChart(w, FormatPNG, records, opts)
}

func writeChart(w io.Writer, f Format, records []sweep.Record, opts ChartOptions) error {
	p, err := Chart(records, opts)
	if err != nil {
		return err
	}
	if opts.Width <= 0 {
		opts.Width = defaultWidth
	}
	if opts.Height <= 0 {
		opts.Height = defaultHeight
	}

	wt, err := p.WriterTo(vg.Points(float64(opts.Width)), vg.Points(float64(opts.Height)), string(f))
	if err != nil {
		return fmt.Errorf("chart %s: %w", f, err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("write %s chart: %w", f, err)
	}
	return nil
}
