package optics

import (
	"math"
	"strings"

	"gonum.org/v1/gonum/floats"
)

// Spectra is the blackbody surface the accumulator consumes.
type Spectra interface {
	BBPowSpec(freqs []float64, temp float64, emiss []float64, nModes float64) []float64
	Integrate(freqs, y []float64) float64
}

// Accumulator walks a chain from sky to detector and totals the power each
// element delivers.
type Accumulator struct {
	ph Spectra
}

// NewAccumulator returns an Accumulator evaluating blackbody spectra with ph.
func NewAccumulator(ph Spectra) *Accumulator {
	return &Accumulator{ph: ph}
}

// PhotonIntegrands returns, for each element, the spectral power density
// [W/Hz] it delivers to the detector: its emission attenuated by every
// element downstream of it.
func (a *Accumulator) PhotonIntegrands(c Chain) ([][]float64, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	cum := c.downstream()
	out := make([][]float64, len(c.Elements))
	effEmiss := make([]float64, len(c.Freqs))
	for j, e := range c.Elements {
		for i := range effEmiss {
			effEmiss[i] = e.Emissivity.At(i) * cum[j][i]
		}
		out[j] = a.ph.BBPowSpec(c.Freqs, e.Temperature, effEmiss, c.modes())
	}
	return out, nil
}

// OpticalPower returns the total in-band power [W] at the detector and the
// share contributed by each element.
func (a *Accumulator) OpticalPower(c Chain) (float64, []float64, error) {
	ints, err := a.PhotonIntegrands(c)
	if err != nil {
		return 0, nil, err
	}
	total, per := a.Power(c.Freqs, ints)
	return total, per, nil
}

// Power integrates per-element photon integrands over freqs and returns the
// total and the per-element powers [W].
func (a *Accumulator) Power(freqs []float64, ints [][]float64) (float64, []float64) {
	per := make([]float64, len(ints))
	for j, p := range ints {
		per[j] = a.ph.Integrate(freqs, p)
	}
	return floats.Sum(per), per
}

// ElementLoading describes the power budget around one element.
type ElementLoading struct {
	Name string
	// SkySide is the power [W] incident on the element from everything
	// sky-side of it.
	SkySide float64
	// DetectorSide is the power [W] the element's own emission delivers to
	// the detector.
	DetectorSide float64
	// Efficiency is the band-averaged efficiency from the element to the
	// detector.
	Efficiency float64
}

// Breakdown returns the sky-side and detector-side power of every element.
// Element 0 has nothing sky-side of it; element 1 receives element 0's
// emission unattenuated.
func (a *Accumulator) Breakdown(c Chain) ([]ElementLoading, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	cum := c.downstream()
	m := len(c.Freqs)
	out := make([]ElementLoading, len(c.Elements))

	// incident[i] is the spectral power reaching the current element from the
	// sky side. Each step forwards the previous element's emission in full and
	// everything before it through the previous element's efficiency.
	incident := make([]float64, m)
	prod := make([]float64, m)
	var prevEmission []float64
	for k, e := range c.Elements {
		if k > 0 {
			prev := c.Elements[k-1].Efficiency
			for i := range incident {
				incident[i] = prevEmission[i] + prev.At(i)*incident[i]
			}
		}
		emission := a.ph.BBPowSpec(c.Freqs, e.Temperature, e.Emissivity, c.modes())
		floats.MulTo(prod, emission, cum[k])
		out[k] = ElementLoading{
			Name:         e.Name,
			SkySide:      a.ph.Integrate(c.Freqs, incident),
			DetectorSide: a.ph.Integrate(c.Freqs, prod),
			Efficiency:   a.bandAverage(c.Freqs, cum[k]),
		}
		prevEmission = emission
	}
	return out, nil
}

// PowerSplit divides the detector loading between the sky (the first
// skyElements elements), the receiver (everything after) and a half-wave plate.
type PowerSplit struct {
	Total    float64
	Sky      float64
	Receiver float64
	HWP      float64

	// Band-averaged efficiency to the detector from element 0, from
	// element 1, and from the half-wave plate.
	TotalEff    float64
	ReceiverEff float64
	HWPEff      float64
}

// Split evaluates the sky/receiver/HWP division of the optical loading. The
// HWP is the first element whose name contains hwpName; when none does, HWP
// and HWPEff are zero.
func (a *Accumulator) Split(c Chain, skyElements int, hwpName string) (PowerSplit, error) {
	total, per, err := a.OpticalPower(c)
	if err != nil {
		return PowerSplit{}, err
	}
	cum := c.downstream()
	s := PowerSplit{Total: total, TotalEff: a.bandAverage(c.Freqs, cum[0])}
	if len(cum) > 1 {
		s.ReceiverEff = a.bandAverage(c.Freqs, cum[1])
	}
	hwpFound := false
	for j, p := range per {
		if j < skyElements {
			s.Sky += p
		} else {
			s.Receiver += p
		}
		if !hwpFound && hwpName != "" && strings.Contains(c.Elements[j].Name, hwpName) {
			hwpFound = true
			s.HWP = p
			s.HWPEff = a.bandAverage(c.Freqs, cum[j])
		}
	}
	return s, nil
}

// ApertureEfficiency returns the band-averaged efficiency of the element named
// stopName and its index. It returns NaN and -1 when the chain has no such
// element.
func (a *Accumulator) ApertureEfficiency(c Chain, stopName string) (float64, int) {
	idx := c.Index(stopName)
	if idx < 0 {
		return math.NaN(), -1
	}
	eff := c.Elements[idx].Efficiency
	if eff.IsScalar() {
		return eff[0], idx
	}
	return a.bandAverage(c.Freqs, eff), idx
}

func (a *Accumulator) bandAverage(freqs, s []float64) float64 {
	return a.ph.Integrate(freqs, s) / (freqs[len(freqs)-1] - freqs[0])
}
