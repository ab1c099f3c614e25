package sensitivity

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/sensitivity.report/internal/monitoring"
	"github.com/banshee-data/sensitivity.report/internal/optics"
)

// ErrNoObservations is returned for a band with no (observation, detector)
// cells.
var ErrNoObservations = errors.New("band has no observations")

// Experiment is a set of bands evaluated under one survey.
type Experiment struct {
	Name   string
	RunID  string
	Bands  []Band
	Survey Survey
}

// BandResult is the outcome for one band. Err is non-nil when the band could
// not be evaluated; Result then carries only the band's identity.
type BandResult struct {
	Band   Band
	Result SensitivityResult
	Err    error
}

// Run evaluates every band of e in order. A band that fails does not stop the
// remaining bands.
func (c *Calculator) Run(e Experiment) []BandResult {
	out := make([]BandResult, 0, len(e.Bands))
	for _, b := range e.Bands {
		res, err := c.Sensitivity(b, e.Survey)
		if err != nil {
			monitoring.Logf("run %s: band %s skipped: %v", e.RunID, b.Name, err)
			res = identity(b)
		} else if res.Degenerate != "" {
			monitoring.Logf("run %s: band %s degenerate: %s", e.RunID, b.Name, res.Degenerate)
		}
		out = append(out, BandResult{Band: b, Result: res, Err: err})
	}
	return out
}

// Sensitivity evaluates the noise of every (observation, detector) cell of b
// and aggregates them into the band's array figures.
func (c *Calculator) Sensitivity(b Band, s Survey) (SensitivityResult, error) {
	if err := checkGrid(b); err != nil {
		return SensitivityResult{}, err
	}
	var corr *Correlation
	if c.opts.Correlated {
		corr = &Correlation{PixelSize: b.PixelSize, FNumber: b.FNumber, Centre: b.Centre}
	}

	var cells []DetectorNoise
	var yields []float64
	for i, row := range b.Observations {
		for j, cell := range row {
			d, err := c.ComputeNoise(cell.Chain, cell.Detector, corr)
			if err != nil {
				return SensitivityResult{}, &ConfigurationError{Band: b.Name, Observation: i, Detector: j, Err: err}
			}
			cells = append(cells, d)
			yields = append(yields, cell.Detector.Yield)
		}
	}

	clocked := b.ClockedDetectors
	if clocked <= 0 {
		clocked = float64(len(b.Observations[0]))
	}
	r := c.Aggregate(cells, ArrayParams{
		DetectorCount:       b.NumDetectors,
		Yield:               stat.Mean(yields, nil),
		ClockedDetectors:    clocked,
		Observations:        len(b.Observations),
		NETMargin:           s.NETMargin,
		SkyFraction:         s.SkyFraction,
		ObservationTime:     s.ObservationTime,
		ObservingEfficiency: s.ObservingEfficiency,
	})
	id := identity(b)
	r.Band, r.Centre, r.FBW, r.PixelSize, r.NumDetectors = id.Band, id.Centre, id.FBW, id.PixelSize, id.NumDetectors
	r.ApertureEff, _ = c.acc.ApertureEfficiency(b.Observations[0][0].Chain, c.opts.StopElement)
	return r, nil
}

func identity(b Band) SensitivityResult {
	return SensitivityResult{
		Band:         b.Name,
		Centre:       b.Centre,
		FBW:          b.FBW,
		PixelSize:    b.PixelSize,
		NumDetectors: b.NumDetectors,
		ApertureEff:  math.NaN(),
	}
}

// checkGrid rejects bands that failed to build, and requires at least one
// observation and the same number of detector variants in every observation.
func checkGrid(b Band) error {
	if b.Err != nil {
		var ce *ConfigurationError
		if errors.As(b.Err, &ce) {
			return b.Err
		}
		return bandError(b.Name, b.Err)
	}
	if len(b.Observations) == 0 || len(b.Observations[0]) == 0 {
		return bandError(b.Name, ErrNoObservations)
	}
	want := len(b.Observations[0])
	for i, row := range b.Observations {
		if len(row) != want {
			return &ConfigurationError{Band: b.Name, Observation: i, Detector: -1,
				Err: fmt.Errorf("%w: %d detectors, want %d", optics.ErrLengthMismatch, len(row), want)}
		}
	}
	return nil
}

// Estimate is the closed-form single-chain figure of merit for a band.
type Estimate struct {
	Band         string
	Popt         float64 // [W]
	NEP          float64 // [W/rtHz]
	NET          float64 // [K rt(s)]
	NETArray     float64 // [K rt(s)]
	MappingSpeed float64 // [(K^2 s)^-1]
	Sensitivity  float64 // [K-arcmin]
	ETF          float64
}

// Estimate evaluates the band's nominal cell (first observation, first
// detector) without pixel correlation and scales it to the array in closed
// form.
func (c *Calculator) Estimate(b Band, s Survey) (Estimate, error) {
	if err := checkGrid(b); err != nil {
		return Estimate{}, err
	}
	cell := b.Observations[0][0]
	d, err := c.ComputeNoise(cell.Chain, cell.Detector, nil)
	if err != nil {
		return Estimate{}, &ConfigurationError{Band: b.Name, Observation: 0, Detector: 0, Err: err}
	}
	d = c.Backfill(d)
	net := d.TotalNET.Value * s.NETMargin
	y := cell.Detector.Yield
	arr := c.nse.NETArray(net, b.NumDetectors, y)
	return Estimate{
		Band:         b.Name,
		Popt:         d.Popt,
		NEP:          d.TotalNEP.Value,
		NET:          net,
		NETArray:     arr,
		MappingSpeed: c.nse.MappingSpeed(net, b.NumDetectors, y),
		Sensitivity:  c.nse.Sensitivity(arr, s.SkyFraction, s.ObservationTime*s.ObservingEfficiency),
		ETF:          ETF(cell.Detector, d.Popt),
	}, nil
}

// ElementStats is an element's loading over every cell of a band.
type ElementStats struct {
	Name         string
	SkySide      Stat // [W]
	DetectorSide Stat // [W]
	Efficiency   Stat
}

// OpticalBreakdown returns the sky-side and detector-side loading of every
// element of the band, as mean and spread over its cells. Every cell must
// have the same number of elements.
func (c *Calculator) OpticalBreakdown(b Band) ([]ElementStats, error) {
	if err := checkGrid(b); err != nil {
		return nil, err
	}
	var rows [][]optics.ElementLoading
	for i, row := range b.Observations {
		for j, cell := range row {
			l, err := c.acc.Breakdown(cell.Chain)
			if err == nil && len(rows) > 0 && len(l) != len(rows[0]) {
				err = fmt.Errorf("%w: %d elements, want %d", optics.ErrLengthMismatch, len(l), len(rows[0]))
			}
			if err != nil {
				return nil, &ConfigurationError{Band: b.Name, Observation: i, Detector: j, Err: err}
			}
			rows = append(rows, l)
		}
	}

	out := make([]ElementStats, len(rows[0]))
	sky := make([]float64, len(rows))
	det := make([]float64, len(rows))
	eff := make([]float64, len(rows))
	for k := range out {
		for n, l := range rows {
			sky[n] = l[k].SkySide
			det[n] = l[k].DetectorSide
			eff[n] = l[k].Efficiency
		}
		out[k] = ElementStats{
			Name:         rows[0][k].Name,
			SkySide:      meanStd(sky),
			DetectorSide: meanStd(det),
			Efficiency:   meanStd(eff),
		}
	}
	return out, nil
}

// SplitResult is the sky/receiver/HWP division of the nominal cell's loading
// with its electrothermal factor.
type SplitResult struct {
	optics.PowerSplit
	ETF float64
}

// Split divides the nominal cell's optical power using the calculator's sky
// element count and HWP name.
func (c *Calculator) Split(b Band) (SplitResult, error) {
	if err := checkGrid(b); err != nil {
		return SplitResult{}, err
	}
	cell := b.Observations[0][0]
	s, err := c.acc.Split(cell.Chain, c.opts.SkyElements, c.opts.HWPElement)
	if err != nil {
		return SplitResult{}, &ConfigurationError{Band: b.Name, Observation: 0, Detector: 0, Err: err}
	}
	return SplitResult{PowerSplit: s, ETF: ETF(cell.Detector, s.Total)}, nil
}
