package sensitivity

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/sensitivity.report/internal/monitoring"
)

// ArrayParams are the array and survey inputs of Aggregate.
type ArrayParams struct {
	DetectorCount float64 // detectors in the band
	Yield         float64
	// ClockedDetectors is the detector count each observation's cells stand
	// for.
	ClockedDetectors float64
	Observations     int

	NETMargin           float64
	SkyFraction         float64
	ObservationTime     float64 // [s]
	ObservingEfficiency float64
}

// Degeneracy reasons reported on SensitivityResult.Degenerate.
const (
	DegenerateNoCells       = "no detector cells"
	DegenerateDetectorCount = "non-positive yield times detector count"
	DegenerateZeroNET       = "zero or undefined array NET"
	DegenerateObservingTime = "non-positive effective observing time"
)

// Aggregate combines the per-cell noise of a band into array NET, mapping
// speed and survey sensitivity, and reports the mean and population standard
// deviation of every per-detector figure. If any cell's readout NEP is
// undefined, every cell of the band is backfilled from its readout
// multiplier.
//
// Degenerate inputs never fail: the affected figures are NaN and Degenerate
// names the first cause.
func (c *Calculator) Aggregate(cells []DetectorNoise, p ArrayParams) SensitivityResult {
	var r SensitivityResult
	if len(cells) == 0 {
		r.degenerate(DegenerateNoCells)
		nan := Stat{Mean: math.NaN(), Std: math.NaN()}
		r.Popt, r.NEPPhoton, r.NEPBolometer, r.NEPReadout, r.NEPTotal = nan, nan, nan, nan, nan
		r.NETPhoton, r.NETBolometer, r.NETReadout, r.NETDetector = nan, nan, nan, nan
		r.NETArray, r.MappingSpeed, r.Sensitivity = nan, nan, nan
		return r
	}

	n := len(cells)
	popt := make([]float64, n)
	nepPh := make([]float64, n)
	nepBolo := make([]float64, n)
	nepRd := make([]float64, n)
	nep := make([]float64, n)
	netPh := make([]float64, n)
	netBolo := make([]float64, n)
	netRd := make([]float64, n)
	net := make([]float64, n)
	netArr := make([]float64, n)

	// One undefined cell puts the whole band on the multiplier estimate.
	backfill := false
	for _, d := range cells {
		if !d.ReadoutNEP.Defined {
			backfill = true
			break
		}
	}
	for i, d := range cells {
		if backfill {
			d = c.backfill(d)
			r.ReadoutBackfilled++
		}
		popt[i] = d.Popt
		nepPh[i] = d.PhotonNEP
		nepBolo[i] = d.BolometerNEP
		nepRd[i] = d.ReadoutNEP.Value
		nep[i] = d.TotalNEP.Value
		netPh[i] = d.PhotonNET * p.NETMargin
		netBolo[i] = d.BolometerNET * p.NETMargin
		netRd[i] = d.ReadoutNET.Value * p.NETMargin
		net[i] = d.TotalNET.Value * p.NETMargin
		netArr[i] = c.nse.NETFromNEP(d.TotalArrayNEP.Value, d.Freqs, d.Efficiency) * p.NETMargin
	}
	if r.ReadoutBackfilled > 0 {
		monitoring.Debugf("readout NEP backfilled for %d of %d detector cells", r.ReadoutBackfilled, n)
	}

	r.Popt = meanStd(popt)
	r.NEPPhoton = meanStd(nepPh)
	r.NEPBolometer = meanStd(nepBolo)
	r.NEPReadout = meanStd(nepRd)
	r.NEPTotal = meanStd(nep)
	r.NETPhoton = meanStd(netPh)
	r.NETBolometer = meanStd(netBolo)
	r.NETReadout = meanStd(netRd)
	r.NETDetector = meanStd(net)

	r.NETArray = c.arrayNET(netArr, r.NETDetector.Std, p, &r)
	r.MappingSpeed = Stat{
		Mean: mappingSpeed(r.NETArray.Mean),
		Std:  MappingSpeedSpread(r.NETArray.Mean, r.NETArray.Std),
	}
	if math.IsNaN(r.MappingSpeed.Mean) {
		r.degenerate(DegenerateZeroNET)
	}

	tobs := p.ObservationTime * p.ObservingEfficiency
	if !(tobs > 0) {
		r.degenerate(DegenerateObservingTime)
		r.Sensitivity = Stat{Mean: math.NaN(), Std: math.NaN()}
	} else {
		r.Sensitivity = Stat{
			Mean: c.nse.Sensitivity(r.NETArray.Mean, p.SkyFraction, tobs),
			Std:  c.nse.Sensitivity(r.NETArray.Std, p.SkyFraction, tobs),
		}
	}
	return r
}

// arrayNET combines the per-cell array NETs by inverse variance and rescales
// for repeated observations, clocking and yield. The spread is the
// per-detector spread scaled as for independent detectors.
func (c *Calculator) arrayNET(netArr []float64, netStd float64, p ArrayParams, r *SensitivityResult) Stat {
	live := p.Yield * p.DetectorCount
	if !(live > 0) {
		r.degenerate(DegenerateDetectorCount)
		return Stat{Mean: math.NaN(), Std: math.NaN()}
	}
	obs := p.Observations
	if obs < 1 {
		obs = 1
	}
	mean := c.ph.InvVar(netArr) * math.Sqrt(float64(obs)) * math.Sqrt(p.ClockedDetectors/live)
	std := netStd * math.Sqrt(1/p.DetectorCount)
	return Stat{Mean: mean, Std: std}
}

func (r *SensitivityResult) degenerate(reason string) {
	if r.Degenerate == "" {
		r.Degenerate = reason
	}
}

// MappingSpeedSpread returns half the absolute spread of 1/NET^2 evaluated at
// net+std and net-std.
func MappingSpeedSpread(net, std float64) float64 {
	hi := net + std
	lo := net - std
	return math.Abs(1/(hi*hi)-1/(lo*lo)) / 2
}

func mappingSpeed(netArr float64) float64 {
	if netArr == 0 || math.IsNaN(netArr) {
		return math.NaN()
	}
	return 1 / (netArr * netArr)
}

func meanStd(x []float64) Stat {
	m, s := stat.PopMeanStdDev(x, nil)
	return Stat{Mean: m, Std: s}
}
