// Package export renders the dashboard chart selection to PNG.
package export

import (
	"errors"
	"fmt"
	"io"
	"math"
	"sort"

	"github.com/KaramelBytes/datadash-cli/internal/dataset"
	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// MaxBars caps the bar chart at one bar per leading record.
const MaxBars = 50

// ChartSpec selects what to draw.
type ChartSpec struct {
	Type   string
	X      string
	Y      string
	Title  string
	Width  int
	Height int
}

// ExportError reports a chart that could not be rendered.
type ExportError struct {
	Type string
	Err  error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("error exporting %s chart: %v", e.Type, e.Err)
}

func (e *ExportError) Unwrap() error { return e.Err }

var errNoPoints = errors.New("no plottable values")

var seriesColor = drawing.ColorFromHex("4bc0c0")

// RenderChart writes a PNG of ds according to spec.
func RenderChart(ds *dataset.Dataset, spec ChartSpec, w io.Writer) error {
	if spec.Width <= 0 {
		spec.Width = 1024
	}
	if spec.Height <= 0 {
		spec.Height = 512
	}
	if spec.Title == "" {
		spec.Title = fmt.Sprintf("%s by %s", spec.Y, spec.X)
	}
	if err := render(ds, spec, w); err != nil {
		return &ExportError{Type: spec.Type, Err: err}
	}
	return nil
}

func render(ds *dataset.Dataset, spec ChartSpec, w io.Writer) error {
	if ds == nil {
		return errors.New("no dataset")
	}
	for _, col := range []string{spec.X, spec.Y} {
		if !ds.HasColumn(col) {
			return fmt.Errorf("unknown column %q", col)
		}
	}
	switch spec.Type {
	case "bar":
		return renderBar(ds, spec, w)
	case "line", "scatter":
		return renderXY(ds, spec, w)
	case "pie", "doughnut":
		return renderPie(ds, spec, w)
	default:
		return fmt.Errorf("unsupported chart type %q", spec.Type)
	}
}

func renderBar(ds *dataset.Dataset, spec ChartSpec, w io.Writer) error {
	var bars []chart.Value
	for _, r := range ds.Records {
		if len(bars) == MaxBars {
			break
		}
		y, ok := r.Get(spec.Y).Float()
		if !ok {
			continue
		}
		bars = append(bars, chart.Value{
			Label: r.Get(spec.X).String(),
			Value: y,
			Style: chart.Style{FillColor: seriesColor, StrokeColor: seriesColor},
		})
	}
	if len(bars) == 0 {
		return errNoPoints
	}
	bc := chart.BarChart{
		Title:      spec.Title,
		Width:      spec.Width,
		Height:     spec.Height,
		Background: chart.Style{Padding: chart.Box{Top: 40}},
		BarWidth:   barWidth(spec.Width, len(bars)),
		Bars:       bars,
	}
	lo, hi := valueRange(bars)
	lo, hi = math.Min(lo, 0), math.Max(hi, 0)
	if lo == hi {
		hi = lo + 1
	}
	bc.YAxis.Range = &chart.ContinuousRange{Min: lo, Max: hi}
	return bc.Render(chart.PNG, w)
}

func barWidth(width, n int) int {
	bw := width / (n * 2)
	switch {
	case bw < 4:
		return 4
	case bw > 60:
		return 60
	}
	return bw
}

func valueRange(vals []chart.Value) (lo, hi float64) {
	lo, hi = vals[0].Value, vals[0].Value
	for _, v := range vals[1:] {
		if v.Value < lo {
			lo = v.Value
		}
		if v.Value > hi {
			hi = v.Value
		}
	}
	return lo, hi
}

type point struct{ x, y float64 }

// renderXY plots numeric X against Y, or the record index when X is not numeric.
func renderXY(ds *dataset.Dataset, spec ChartSpec, w io.Writer) error {
	numericX := ds.Kind(spec.X) == dataset.KindNumeric
	var pts []point
	for i, r := range ds.Records {
		y, ok := r.Get(spec.Y).Float()
		if !ok {
			continue
		}
		x := float64(i)
		if numericX {
			if x, ok = r.Get(spec.X).Float(); !ok {
				continue
			}
		}
		pts = append(pts, point{x, y})
	}
	if len(pts) == 0 {
		return errNoPoints
	}
	if spec.Type == "line" {
		sort.SliceStable(pts, func(i, j int) bool { return pts[i].x < pts[j].x })
	}
	if len(pts) == 1 {
		pts = append(pts, point{pts[0].x + 1, pts[0].y})
	}
	xs := make([]float64, len(pts))
	ys := make([]float64, len(pts))
	for i, p := range pts {
		xs[i], ys[i] = p.x, p.y
	}

	st := chart.Style{StrokeColor: seriesColor, StrokeWidth: 2}
	if spec.Type == "scatter" {
		st = chart.Style{StrokeWidth: chart.Disabled, DotWidth: 4, DotColor: seriesColor}
	}
	xName := spec.X
	if !numericX {
		xName = "row"
	}
	ch := chart.Chart{
		Title:      spec.Title,
		Width:      spec.Width,
		Height:     spec.Height,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 12}},
		XAxis:      chart.XAxis{Name: xName},
		YAxis:      chart.YAxis{Name: spec.Y},
		Series:     []chart.Series{chart.ContinuousSeries{Name: spec.Y, XValues: xs, YValues: ys, Style: st}},
	}
	if lo, hi := minMax(ys); lo == hi {
		ch.YAxis.Range = &chart.ContinuousRange{Min: lo - 1, Max: hi + 1}
	}
	if lo, hi := minMax(xs); lo == hi {
		ch.XAxis.Range = &chart.ContinuousRange{Min: lo - 1, Max: hi + 1}
	}
	return ch.Render(chart.PNG, w)
}

func minMax(v []float64) (lo, hi float64) {
	lo, hi = v[0], v[0]
	for _, f := range v[1:] {
		if f < lo {
			lo = f
		}
		if f > hi {
			hi = f
		}
	}
	return lo, hi
}

// renderPie sums Y per distinct X label, keeping first-seen order. Non-positive
// totals are left out.
func renderPie(ds *dataset.Dataset, spec ChartSpec, w io.Writer) error {
	totals := map[string]float64{}
	var order []string
	for _, r := range ds.Records {
		y, ok := r.Get(spec.Y).Float()
		if !ok {
			continue
		}
		label := r.Get(spec.X).String()
		if _, seen := totals[label]; !seen {
			order = append(order, label)
		}
		totals[label] += y
	}
	var vals []chart.Value
	for _, label := range order {
		if totals[label] > 0 {
			vals = append(vals, chart.Value{Label: label, Value: totals[label]})
		}
	}
	if len(vals) == 0 {
		return errNoPoints
	}
	if spec.Type == "doughnut" {
		dc := chart.DonutChart{Title: spec.Title, Width: spec.Width, Height: spec.Height, Values: vals}
		return dc.Render(chart.PNG, w)
	}
	pc := chart.PieChart{Title: spec.Title, Width: spec.Width, Height: spec.Height, Values: vals}
	return pc.Render(chart.PNG, w)
}
