// Package noise implements the detector noise primitives: photon, bolometer
// and readout noise-equivalent power, conversion to noise-equivalent CMB
// temperature, and the array and survey figures of merit derived from it.
package noise

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/banshee-data/sensitivity.report/internal/physics"
)

// arcminPerRadian converts a K-radian survey depth into K-arcmin.
const arcminPerRadian = 10800 / math.Pi

// Noise evaluates the primitives using the blackbody functions of
// physics.Physics.
type Noise struct {
	ph physics.Physics
}

// New returns a Noise backed by ph.
func New(ph physics.Physics) Noise {
	return Noise{ph: ph}
}

// PhotonNoise is the result of a photon NEP evaluation.
type PhotonNoise struct {
	// NEP is the single-detector photon NEP [W/rtHz].
	NEP float64
	// ArrayNEP includes the extra bunching correlated between neighbouring
	// pixels. It equals NEP when no coherence is supplied.
	ArrayNEP float64
	// Pairs holds the bunching contribution [W^2/Hz] of every element pair
	// to ArrayNEP^2, coherence included. Nil for an empty chain.
	Pairs *mat.SymDense
}

// PhotonNEP combines the per-element spectral power densities reaching the
// detector into a photon NEP. integrands[i] is sampled on freqs. coherence,
// when non-nil, holds one pixel-to-pixel coherence per element (see
// Coherence) and selects the correlated variant.
func (n Noise) PhotonNEP(integrands [][]float64, freqs []float64, nModes float64, coherence []float64) PhotonNoise {
	total := make([]float64, len(freqs))
	for _, p := range integrands {
		floats.Add(total, p)
	}

	shot := make([]float64, len(freqs))
	for i, f := range freqs {
		shot[i] = 2 * physics.H * f * total[i]
	}
	shotTerm := n.ph.Integrate(freqs, shot)

	k := len(integrands)
	if k == 0 {
		nep := math.Sqrt(shotTerm)
		return PhotonNoise{NEP: nep, ArrayNEP: nep}
	}

	pairs := mat.NewSymDense(k, nil)
	prod := make([]float64, len(freqs))
	var bunch, arrBunch float64
	for i := 0; i < k; i++ {
		for j := i; j < k; j++ {
			floats.MulTo(prod, integrands[i], integrands[j])
			term := 2 * n.ph.Integrate(freqs, prod) / nModes
			mult := 1.0
			if j != i {
				mult = 2
			}
			bunch += mult * term
			if coherence != nil {
				term *= 1 + math.Sqrt(coherence[i]*coherence[j])
			}
			arrBunch += mult * term
			pairs.SetSym(i, j, term)
		}
	}

	return PhotonNoise{
		NEP:      math.Sqrt(shotTerm + bunch),
		ArrayNEP: math.Sqrt(shotTerm + arrBunch),
		Pairs:    pairs,
	}
}

// ApertureCoherence is the photon-noise coherence between adjacent pixels
// spaced x = pixSize/(F*lambda) apart when illuminated by a uniformly filled
// circular aperture: (2*J1(pi*x)/(pi*x))^2.
func ApertureCoherence(x float64) float64 {
	if x == 0 {
		return 1
	}
	u := math.Pi * x
	a := 2 * math.J1(u) / u
	return a * a
}

// Coherence returns per-element coherences for a chain of nElem elements
// whose aperture stop sits at stopIdx: elements up to and including the stop
// see ApertureCoherence(x), elements detector-side of it are uncorrelated.
// It returns nil when stopIdx is outside the chain.
func Coherence(x float64, nElem, stopIdx int) []float64 {
	if stopIdx < 0 || stopIdx >= nElem {
		return nil
	}
	c := ApertureCoherence(x)
	out := make([]float64, nElem)
	for i := 0; i <= stopIdx; i++ {
		out[i] = c
	}
	return out
}

// BolometerNEP returns the thermal-carrier (phonon) NEP [W/rtHz] of a
// bolometer with saturation power psat, carrier index n, critical temperature
// tc and bath temperature tb.
func (Noise) BolometerNEP(psat, n, tc, tb float64) float64 {
	r := tc / tb
	f := (n + 1) * (n + 1) / (2*n + 3) * (math.Pow(r, 2*n+3) - 1) / math.Pow(math.Pow(r, n+1)-1, 2)
	return math.Sqrt(4 * physics.KB * psat * tb * f)
}

// ReadoutNEP returns the readout NEP [W/rtHz] for electrical bias power
// pElec across a bolometer of resistance boloR read out with noise-equivalent
// current nei [A/rtHz].
func (Noise) ReadoutNEP(pElec, boloR, nei float64) float64 {
	return math.Sqrt(boloR*pElec) * nei
}

// NETFromNEP converts an NEP [W/rtHz] into an NET [K_CMB rt(s)] for a
// detector with optical efficiency eff (scalar or per frequency) over freqs.
func (n Noise) NETFromNEP(nep float64, freqs, eff []float64) float64 {
	dpdt := n.ph.Integrate(freqs, n.ph.AniPowSpec(freqs, physics.TCMB, eff))
	return nep / (math.Sqrt2 * dpdt)
}

// NETArray returns the array NET of nDet identical detectors of which the
// fraction detYield operate.
func (Noise) NETArray(net float64, nDet, detYield float64) float64 {
	return net / math.Sqrt(nDet*detYield)
}

// MappingSpeed returns 1/NETarr^2 [(K^2 s)^-1] for nDet detectors at the
// given yield.
func (n Noise) MappingSpeed(net float64, nDet, detYield float64) float64 {
	arr := n.NETArray(net, nDet, detYield)
	return 1 / (arr * arr)
}

// Sensitivity returns the polarisation map depth [K-arcmin] reached by an
// array NET netArr over sky fraction fsky in effective observing time tobs [s].
func (Noise) Sensitivity(netArr, fsky, tobs float64) float64 {
	return math.Sqrt(4*math.Pi*fsky*2*netArr*netArr/tobs) * arcminPerRadian
}
