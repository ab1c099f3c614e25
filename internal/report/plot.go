package report

import (
	"errors"
	"fmt"
	"io"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/banshee-data/sensitivity.report/internal/sensitivity"
	"github.com/banshee-data/sensitivity.report/internal/units"
)

// ErrNothingToPlot is returned when no band has finite figures.
var ErrNothingToPlot = errors.New("no band with finite results to plot")

const (
	plotWidth  = 8 * vg.Inch
	plotHeight = 10 * vg.Inch
)

// series is one set of points with symmetric errors, in display units.
type series struct {
	name string
	pts  plotter.XYs
	errs plotter.YErrors
}

func (s *series) add(x float64, st sensitivity.Stat, scale float64) {
	y := st.Mean * scale
	e := math.Abs(st.Std * scale)
	if !(y > 0) || math.IsInf(y, 0) || math.IsNaN(e) {
		return
	}
	// Keep the lower bar above zero on the log axis.
	low := math.Min(e, 0.9*y)
	s.pts = append(s.pts, plotter.XY{X: x, Y: y})
	s.errs = append(s.errs, struct{ Low, High float64 }{Low: low, High: e})
}

// errorPoints implements plotter.XYer and plotter.YErrorer.
type errorPoints struct {
	plotter.XYs
	plotter.YErrors
}

// SensitivityPlots returns two panels against band centre: detector and
// array NET, and mapping speed. Bands that failed or have non-finite
// figures are left out.
func SensitivityPlots(title string, results []sensitivity.BandResult) (net, ms *plot.Plot, err error) {
	netDet := &series{name: "NET detector"}
	netArr := &series{name: "NET array"}
	speed := &series{name: "mapping speed"}
	for _, br := range results {
		if br.Err != nil {
			continue
		}
		r := br.Result
		x := r.Centre * units.GHz
		netDet.add(x, r.NETDetector, units.UKRtS)
		netArr.add(x, r.NETArray, units.UKRtS)
		speed.add(x, r.MappingSpeed, units.InvUK2S)
	}
	if len(netDet.pts) == 0 && len(netArr.pts) == 0 && len(speed.pts) == 0 {
		return nil, nil, ErrNothingToPlot
	}

	net = plot.New()
	net.Title.Text = title
	net.X.Label.Text = fmt.Sprintf("Band centre (%s)", units.LabelGHz)
	net.Y.Label.Text = fmt.Sprintf("NET (%s)", units.LabelUKRtS)
	if err := addSeries(net, 0, netDet, netArr); err != nil {
		return nil, nil, err
	}

	ms = plot.New()
	ms.X.Label.Text = fmt.Sprintf("Band centre (%s)", units.LabelGHz)
	ms.Y.Label.Text = fmt.Sprintf("Mapping speed %s", units.LabelInvUK2S)
	if err := addSeries(ms, 2, speed); err != nil {
		return nil, nil, err
	}

	for _, p := range []*plot.Plot{net, ms} {
		p.Legend.Top = true
		p.Legend.Left = false
		p.Legend.XOffs = -10
		p.Legend.YOffs = -10
	}
	return net, ms, nil
}

func addSeries(p *plot.Plot, colour int, ss ...*series) error {
	added := false
	for i, s := range ss {
		if len(s.pts) == 0 {
			continue
		}
		sc, err := plotter.NewScatter(s.pts)
		if err != nil {
			return fmt.Errorf("%s scatter: %w", s.name, err)
		}
		sc.GlyphStyle.Color = plotutil.Color(colour + i)
		sc.GlyphStyle.Shape = plotutil.Shape(colour + i)
		sc.GlyphStyle.Radius = vg.Points(3)

		bars, err := plotter.NewYErrorBars(errorPoints{XYs: s.pts, YErrors: s.errs})
		if err != nil {
			return fmt.Errorf("%s error bars: %w", s.name, err)
		}
		bars.LineStyle.Color = plotutil.Color(colour + i)
		bars.LineStyle.Width = vg.Points(1)

		p.Add(sc, bars)
		p.Legend.Add(s.name, sc)
		added = true
	}
	if added && p.Y.Min > 0 && p.Y.Max > p.Y.Min {
		p.Y.Scale = plot.LogScale{}
		p.Y.Tick.Marker = plot.LogTicks{Prec: -1}
	}
	return nil
}

// WritePlotPNG draws the panels one above the other and writes them as PNG.
func WritePlotPNG(w io.Writer, panels ...*plot.Plot) error {
	if len(panels) == 0 {
		return ErrNothingToPlot
	}
	grid := make([][]*plot.Plot, len(panels))
	for i, p := range panels {
		grid[i] = []*plot.Plot{p}
	}

	img := vgimg.New(plotWidth, plotHeight)
	dc := draw.New(img)
	t := draw.Tiles{
		Rows:      len(panels),
		Cols:      1,
		PadTop:    vg.Points(10),
		PadBottom: vg.Points(10),
		PadLeft:   vg.Points(10),
		PadRight:  vg.Points(10),
		PadY:      vg.Points(20),
	}
	canvases := plot.Align(grid, t, dc)
	for i := range grid {
		grid[i][0].Draw(canvases[i][0])
	}

	if _, err := (vgimg.PngCanvas{Canvas: img}).WriteTo(w); err != nil {
		return fmt.Errorf("write png: %w", err)
	}
	return nil
}
