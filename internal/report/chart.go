package report

import (
	"fmt"
	"io"
	"math"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/sensitivity.report/internal/sensitivity"
	"github.com/banshee-data/sensitivity.report/internal/units"
)

// echartsAssetsPrefix is where the rendered page loads echarts from.
const echartsAssetsPrefix = "https://go-echarts.github.io/go-echarts-assets/assets/"

// missing is how echarts marks an absent data point.
const missing = "-"

func barValue(si, scale float64) opts.BarData {
	v := si * scale
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return opts.BarData{Value: missing}
	}
	return opts.BarData{Value: math.Round(v*1e4) / 1e4}
}

type barSeries struct {
	name  string
	scale float64
	value func(sensitivity.SensitivityResult) float64
}

func newBar(title, subtitle, yName string, bands []string, results []sensitivity.BandResult, ss ...barSeries) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "420px", AssetsHost: echartsAssetsPrefix}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(len(ss) > 1), Right: "5%"}),
		charts.WithYAxisOpts(opts.YAxis{Name: yName}),
	)
	bar.SetXAxis(bands)
	for _, s := range ss {
		data := make([]opts.BarData, len(results))
		for i, br := range results {
			if br.Err != nil {
				data[i] = opts.BarData{Value: missing}
				continue
			}
			data[i] = barValue(s.value(br.Result), s.scale)
		}
		bar.AddSeries(s.name, data,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(len(ss) == 1), Position: "top"}),
		)
	}
	return bar
}

// ChartPage builds the HTML report: optical loading, NEP components, NET and
// mapping speed per band. Failed bands appear with empty bars.
func ChartPage(name, runID string, generated time.Time, results []sensitivity.BandResult) *components.Page {
	bands := make([]string, len(results))
	for i, br := range results {
		bands[i] = rowName(br)
	}
	subtitle := fmt.Sprintf("run=%s bands=%d %s", runID, len(results), generated.Format(time.RFC3339))

	popt := newBar("Optical loading", subtitle, units.LabelPW, bands, results,
		barSeries{"Popt", units.PW, func(r sensitivity.SensitivityResult) float64 { return r.Popt.Mean }},
	)
	nep := newBar("Noise-equivalent power", subtitle, units.LabelAWRtHz, bands, results,
		barSeries{"photon", units.AWRtHz, func(r sensitivity.SensitivityResult) float64 { return r.NEPPhoton.Mean }},
		barSeries{"bolometer", units.AWRtHz, func(r sensitivity.SensitivityResult) float64 { return r.NEPBolometer.Mean }},
		barSeries{"readout", units.AWRtHz, func(r sensitivity.SensitivityResult) float64 { return r.NEPReadout.Mean }},
		barSeries{"total", units.AWRtHz, func(r sensitivity.SensitivityResult) float64 { return r.NEPTotal.Mean }},
	)
	net := newBar("Array NET", subtitle, units.LabelUKRtS, bands, results,
		barSeries{"NET array", units.UKRtS, func(r sensitivity.SensitivityResult) float64 { return r.NETArray.Mean }},
	)
	ms := newBar("Mapping speed", subtitle, units.LabelInvUK2S, bands, results,
		barSeries{"mapping speed", units.InvUK2S, func(r sensitivity.SensitivityResult) float64 { return r.MappingSpeed.Mean }},
	)

	page := components.NewPage()
	page.SetPageTitle(fmt.Sprintf("%s sensitivity", name))
	page.SetAssetsHost(echartsAssetsPrefix)
	page.AddCharts(popt, nep, net, ms)
	return page
}

// WriteChartHTML renders the report page.
func WriteChartHTML(w io.Writer, name, runID string, generated time.Time, results []sensitivity.BandResult) error {
	if err := ChartPage(name, runID, generated, results).Render(w); err != nil {
		return fmt.Errorf("render chart page: %w", err)
	}
	return nil
}
