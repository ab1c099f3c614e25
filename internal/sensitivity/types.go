// Package sensitivity combines optical loading and detector parameters into
// noise-equivalent power and temperature per detector, and aggregates those
// into array NET, mapping speed and survey depth per band.
package sensitivity

import (
	"fmt"
	"math"
	"strconv"

	"github.com/banshee-data/sensitivity.report/internal/optics"
)

// Quantity is a detector parameter or noise term that may be undefined.
// An undefined Quantity is never interchangeable with zero: it selects a
// fallback policy.
type Quantity struct {
	Value   float64
	Defined bool
}

// Defined returns a defined Quantity.
func Defined(v float64) Quantity { return Quantity{Value: v, Defined: true} }

// Undefined returns the "NA" Quantity.
func Undefined() Quantity { return Quantity{} }

// Get returns the value and whether it is defined.
func (q Quantity) Get() (float64, bool) { return q.Value, q.Defined }

func (q Quantity) String() string {
	if !q.Defined {
		return "NA"
	}
	return strconv.FormatFloat(q.Value, 'g', -1, 64)
}

// DetectorParameters describe one bolometer and its readout.
type DetectorParameters struct {
	// Psat is the saturation power [W]. When undefined it is derived as
	// PsatFactor times the optical power.
	Psat       Quantity
	PsatFactor float64

	CarrierIndex float64 // thermal carrier index n
	BathTemp     float64 // [K]
	CriticalTemp float64 // [K]

	BoloResistance Quantity // [Ohm]
	NEI            Quantity // readout noise-equivalent current [A/rtHz]
	// ReadoutMultiplier expresses readout noise as a fractional inflation of
	// photon+bolometer noise when NEI or BoloResistance is undefined.
	ReadoutMultiplier float64

	Yield float64 // operating fraction, 0-1
}

// Validate reports parameters with no defined fallback.
func (d DetectorParameters) Validate() error {
	if !d.Psat.Defined && !(d.PsatFactor > 0) {
		return fmt.Errorf("saturation power undefined and psat factor %v is not positive", d.PsatFactor)
	}
	if !(d.BathTemp > 0) || !(d.CriticalTemp > d.BathTemp) {
		return fmt.Errorf("need 0 < bath temperature (%v) < critical temperature (%v)", d.BathTemp, d.CriticalTemp)
	}
	if d.Yield < 0 || d.Yield > 1 {
		return fmt.Errorf("yield must be between 0 and 1, got %v", d.Yield)
	}
	return nil
}

// BandObservation is one (observation, detector) cell of a band: the chain
// the detector sees during that observation and the detector itself.
type BandObservation struct {
	Chain    optics.Chain
	Detector DetectorParameters
}

// Band is one frequency channel of an experiment.
type Band struct {
	Name      string
	Centre    float64 // [Hz]
	FBW       float64
	PixelSize float64 // [m]
	FNumber   float64

	NumDetectors float64 // detectors in the band
	// ClockedDetectors is the detector count the computed cells stand for
	// per observation. Zero means the number of detector variants.
	ClockedDetectors float64

	// Observations is indexed [observation][detector variant].
	Observations [][]BandObservation

	// Err is set when the band could not be assembled from its
	// configuration. Such a band is reported, never evaluated.
	Err error
}

// Survey holds the observing parameters shared by every band.
type Survey struct {
	SkyFraction         float64
	ObservationTime     float64 // [s]
	ObservingEfficiency float64
	NETMargin           float64
}

// Stat is a mean with its standard deviation.
type Stat struct {
	Mean float64
	Std  float64
}

// SensitivityResult is the per-band output of the aggregators. Values are SI:
// W, W/rtHz, K rt(s), (K^2 s)^-1, K-arcmin.
type SensitivityResult struct {
	Band         string
	Centre       float64
	FBW          float64
	PixelSize    float64
	NumDetectors float64

	ApertureEff float64

	Popt         Stat
	NEPPhoton    Stat
	NEPBolometer Stat
	NEPReadout   Stat
	NEPTotal     Stat

	NETPhoton    Stat
	NETBolometer Stat
	NETReadout   Stat
	NETDetector  Stat
	NETArray     Stat

	MappingSpeed Stat
	Sensitivity  Stat

	// ReadoutBackfilled counts detector cells whose readout NEP was derived
	// from the readout multiplier.
	ReadoutBackfilled int
	// Degenerate names the numeric degeneracy that left array figures NaN.
	Degenerate string
}

// Valid reports whether the headline figures are finite.
func (r SensitivityResult) Valid() bool {
	for _, v := range []float64{r.Popt.Mean, r.NEPTotal.Mean, r.NETDetector.Mean, r.NETArray.Mean, r.MappingSpeed.Mean} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
