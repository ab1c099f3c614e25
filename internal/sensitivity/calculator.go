package sensitivity

import (
	"math"

	"github.com/banshee-data/sensitivity.report/internal/noise"
	"github.com/banshee-data/sensitivity.report/internal/optics"
	"github.com/banshee-data/sensitivity.report/internal/physics"
)

// Physics is the blackbody and combination surface the calculator consumes.
type Physics interface {
	optics.Spectra
	Lamb(freq float64) float64
	InvVar(vals []float64) float64
}

// NoiseModel is the detector noise surface the calculator consumes.
type NoiseModel interface {
	PhotonNEP(integrands [][]float64, freqs []float64, nModes float64, coherence []float64) noise.PhotonNoise
	BolometerNEP(psat, n, tc, tb float64) float64
	ReadoutNEP(pElec, boloR, nei float64) float64
	NETFromNEP(nep float64, freqs, eff []float64) float64
	NETArray(net, nDet, detYield float64) float64
	MappingSpeed(net, nDet, detYield float64) float64
	Sensitivity(netArr, fsky, tobs float64) float64
}

// Options tune how chains are interpreted.
type Options struct {
	// StopElement names the aperture stop: its efficiency is the aperture
	// efficiency and it bounds the correlated part of the chain.
	StopElement string
	// HWPElement is matched as a substring of element names for the power
	// split.
	HWPElement string
	// SkyElements is how many leading elements count as sky loading.
	SkyElements int
	// Correlated enables the pixel-correlated photon NEP for the array.
	Correlated bool
}

// DefaultOptions returns the options used when none are configured.
func DefaultOptions() Options {
	return Options{
		StopElement: "LyotStop",
		HWPElement:  "HWP",
		SkyElements: 2,
		Correlated:  true,
	}
}

// Calculator evaluates the noise and array aggregators.
type Calculator struct {
	ph   Physics
	nse  NoiseModel
	acc  *optics.Accumulator
	opts Options
}

// NewCalculator returns a Calculator using the given primitives.
func NewCalculator(ph Physics, nse NoiseModel, opts Options) *Calculator {
	return &Calculator{ph: ph, nse: nse, acc: optics.NewAccumulator(ph), opts: opts}
}

// NewDefault returns a Calculator on the standard physics and noise models.
func NewDefault(opts Options) *Calculator {
	ph := physics.New()
	return NewCalculator(ph, noise.New(ph), opts)
}

// Correlation describes the pixel geometry used by the correlated photon NEP.
type Correlation struct {
	PixelSize float64 // [m]
	FNumber   float64
	Centre    float64 // band centre [Hz]
}

// DetectorNoise is the noise budget of one detector cell. Readout terms and
// the totals that depend on them stay undefined until Backfill.
type DetectorNoise struct {
	Popt float64

	PhotonNEP      float64
	PhotonArrayNEP float64
	BolometerNEP   float64
	ReadoutNEP     Quantity
	TotalNEP       Quantity
	TotalArrayNEP  Quantity

	PhotonNET    float64
	BolometerNET float64
	ReadoutNET   Quantity
	TotalNET     Quantity

	Freqs             []float64
	Efficiency        optics.Spectrum
	ReadoutMultiplier float64
}

// ComputeNoise evaluates photon, bolometer and readout noise for a detector
// viewing chain. corr selects the correlated photon NEP; nil means
// uncorrelated.
func (c *Calculator) ComputeNoise(chain optics.Chain, det DetectorParameters, corr *Correlation) (DetectorNoise, error) {
	if err := det.Validate(); err != nil {
		return DetectorNoise{}, err
	}
	ints, err := c.acc.PhotonIntegrands(chain)
	if err != nil {
		return DetectorNoise{}, err
	}
	popt, _ := c.acc.Power(chain.Freqs, ints)

	modes := chain.Modes
	if modes <= 0 {
		modes = 1
	}
	pn := c.nse.PhotonNEP(ints, chain.Freqs, modes, c.coherence(chain, corr))

	eff := chain.EndToEndEfficiency()
	d := DetectorNoise{
		Popt:              popt,
		PhotonNEP:         pn.NEP,
		PhotonArrayNEP:    pn.ArrayNEP,
		BolometerNEP:      c.bolometerNEP(popt, det),
		ReadoutNEP:        c.readoutNEP(popt, det),
		Freqs:             chain.Freqs,
		Efficiency:        eff,
		ReadoutMultiplier: det.ReadoutMultiplier,
	}
	d.PhotonNET = c.nse.NETFromNEP(d.PhotonNEP, d.Freqs, d.Efficiency)
	d.BolometerNET = c.nse.NETFromNEP(d.BolometerNEP, d.Freqs, d.Efficiency)
	if d.ReadoutNEP.Defined {
		d = c.complete(d)
	}
	return d, nil
}

// Backfill returns d with an undefined readout NEP replaced by
// sqrt((1+m)^2-1) * sqrt(NEPph^2 + NEPbolo^2), m being the readout multiplier,
// and the totals completed. A defined readout NEP is left alone.
func (c *Calculator) Backfill(d DetectorNoise) DetectorNoise {
	if d.ReadoutNEP.Defined {
		return d
	}
	return c.backfill(d)
}

// backfill replaces the readout NEP of d, defined or not, with the
// multiplier estimate and completes the totals.
func (c *Calculator) backfill(d DetectorNoise) DetectorNoise {
	m := d.ReadoutMultiplier
	d.ReadoutNEP = Defined(math.Sqrt((1+m)*(1+m)-1) * QuadratureSum(d.PhotonNEP, d.BolometerNEP))
	return c.complete(d)
}

// complete fills the readout NET and the totals. Totals combine at the NEP
// level and convert once, never by summing NETs.
func (c *Calculator) complete(d DetectorNoise) DetectorNoise {
	rd := d.ReadoutNEP.Value
	d.ReadoutNET = Defined(c.nse.NETFromNEP(rd, d.Freqs, d.Efficiency))
	total := QuadratureSum(d.PhotonNEP, d.BolometerNEP, rd)
	d.TotalNEP = Defined(total)
	d.TotalArrayNEP = Defined(QuadratureSum(d.PhotonArrayNEP, d.BolometerNEP, rd))
	d.TotalNET = Defined(c.nse.NETFromNEP(total, d.Freqs, d.Efficiency))
	return d
}

func (c *Calculator) bolometerNEP(popt float64, det DetectorParameters) float64 {
	psat, ok := det.Psat.Get()
	if !ok {
		psat = det.PsatFactor * popt
	}
	return c.nse.BolometerNEP(psat, det.CarrierIndex, det.CriticalTemp, det.BathTemp)
}

// readoutNEP applies the readout policy in order: no NEI or no bolometer
// resistance leaves it undefined; an undefined Psat uses the psat factor;
// otherwise the electrical power Psat-Popt is used and the noise is exactly
// zero once the optical load reaches saturation.
func (c *Calculator) readoutNEP(popt float64, det DetectorParameters) Quantity {
	nei, ok := det.NEI.Get()
	if !ok {
		return Undefined()
	}
	boloR, ok := det.BoloResistance.Get()
	if !ok {
		return Undefined()
	}
	psat, ok := det.Psat.Get()
	if !ok {
		return Defined(c.nse.ReadoutNEP((det.PsatFactor-1)*popt, boloR, nei))
	}
	if popt >= psat {
		return Defined(0)
	}
	return Defined(c.nse.ReadoutNEP(psat-popt, boloR, nei))
}

func (c *Calculator) coherence(chain optics.Chain, corr *Correlation) []float64 {
	if corr == nil || !(corr.PixelSize > 0) || !(corr.FNumber > 0) || !(corr.Centre > 0) {
		return nil
	}
	x := corr.PixelSize / (corr.FNumber * c.ph.Lamb(corr.Centre))
	return noise.Coherence(x, len(chain.Elements), chain.Index(c.opts.StopElement))
}

// QuadratureSum returns sqrt(sum v_i^2).
func QuadratureSum(vals ...float64) float64 {
	var s float64
	for _, v := range vals {
		s += v * v
	}
	return math.Sqrt(s)
}

// ETF returns the electrothermal factor Psat/Popt, or the psat factor when
// the saturation power is undefined.
func ETF(det DetectorParameters, popt float64) float64 {
	if psat, ok := det.Psat.Get(); ok {
		return psat / popt
	}
	return det.PsatFactor
}
