// Package physics provides the blackbody and band-integration primitives
// consumed by the optical-chain and noise calculations. All inputs and
// outputs are SI: Hz, K, W, W/Hz.
package physics

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/integrate"
)

// Physical constants.
const (
	H    = 6.62606957e-34 // Planck constant [J s]
	KB   = 1.3806488e-23  // Boltzmann constant [J/K]
	C    = 299792458.0    // speed of light [m/s]
	TCMB = 2.725          // CMB temperature [K]
)

// DefaultBandSamples is the number of frequency points used when a band is
// described only by its centre and fractional bandwidth.
const DefaultBandSamples = 400

// Physics evaluates the primitives. It carries no state; the zero value is
// ready to use.
type Physics struct{}

// New returns a Physics value.
func New() Physics { return Physics{} }

// Lamb returns the free-space wavelength [m] at freq [Hz].
func (Physics) Lamb(freq float64) float64 {
	return C / freq
}

// BandGrid returns n equally spaced frequencies spanning
// [centre*(1-fbw/2), centre*(1+fbw/2)]. n below 2 is raised to 2.
func BandGrid(centre, fbw float64, n int) []float64 {
	if n < 2 {
		n = 2
	}
	return floats.Span(make([]float64, n), centre*(1-fbw/2), centre*(1+fbw/2))
}

// BBPowSpec returns the spectral power density [W/Hz] received from a
// greybody at temp with the given effective emissivity. emiss holds either one
// value applied to every frequency or one value per frequency.
//
// A zero temperature yields exactly zero power. NaN inputs propagate.
func (Physics) BBPowSpec(freqs []float64, temp float64, emiss []float64, nModes float64) []float64 {
	out := make([]float64, len(freqs))
	for i, f := range freqs {
		out[i] = nModes * at(emiss, i) * H * f / (math.Exp(H*f/(KB*temp)) - 1)
	}
	return out
}

// AniPowSpec returns dP/dT_CMB [W/Hz/K], the change in received spectral
// power per kelvin of CMB temperature, weighted by the optical efficiency eff
// (scalar or per frequency).
func (Physics) AniPowSpec(freqs []float64, temp float64, eff []float64) []float64 {
	out := make([]float64, len(freqs))
	for i, f := range freqs {
		x := H * f / (KB * temp)
		ex := math.Exp(x)
		out[i] = at(eff, i) * KB * x * x * ex / ((ex - 1) * (ex - 1))
	}
	return out
}

// Integrate applies the trapezoidal rule to y sampled at freqs. It returns
// NaN rather than panicking when the grid is too short, unsorted, or
// mismatched in length.
func (Physics) Integrate(freqs, y []float64) float64 {
	if len(freqs) < 2 || len(freqs) != len(y) || !sort.Float64sAreSorted(freqs) {
		return math.NaN()
	}
	return integrate.Trapezoidal(freqs, y)
}

// BBPower returns the in-band power [W] from a greybody of constant effective
// emissivity over the band described by centre and fbw, sampled on
// BandGrid(centre, fbw, DefaultBandSamples).
func (p Physics) BBPower(emiss, centre, fbw, temp, nModes float64) float64 {
	freqs := BandGrid(centre, fbw, DefaultBandSamples)
	return p.Integrate(freqs, p.BBPowSpec(freqs, temp, []float64{emiss}, nModes))
}

// InvVar combines independent noise figures by inverse-variance weighting:
// (sum 1/x_i^2)^(-1/2). An empty input returns NaN.
func (Physics) InvVar(vals []float64) float64 {
	if len(vals) == 0 {
		return math.NaN()
	}
	var sum float64
	for _, v := range vals {
		sum += 1 / (v * v)
	}
	return 1 / math.Sqrt(sum)
}

// at broadcasts a scalar-or-per-frequency slice.
func at(s []float64, i int) float64 {
	if len(s) == 1 {
		return s[0]
	}
	return s[i]
}
