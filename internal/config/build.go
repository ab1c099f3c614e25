package config

import (
	"errors"
	"fmt"

	"github.com/banshee-data/sensitivity.report/internal/optics"
	"github.com/banshee-data/sensitivity.report/internal/physics"
	"github.com/banshee-data/sensitivity.report/internal/sensitivity"
	"github.com/banshee-data/sensitivity.report/internal/units"
)

// errMissing marks a required band or element value that was not given.
var errMissing = errors.New("required value missing")

// CalculatorOptions returns the chain interpretation options.
func (c *ExperimentConfig) CalculatorOptions() sensitivity.Options {
	return sensitivity.Options{
		StopElement: c.Options.GetStopElement(),
		HWPElement:  c.Options.GetHWPElement(),
		SkyElements: c.Options.GetSkyElements(),
		Correlated:  c.Options.GetPixelCorrelation(),
	}
}

// SurveyParameters returns the survey in SI units.
func (c *ExperimentConfig) SurveyParameters() sensitivity.Survey {
	return sensitivity.Survey{
		SkyFraction:         c.Survey.GetSkyFraction(),
		ObservationTime:     units.YearsToSeconds(c.Survey.GetObservationYears()),
		ObservingEfficiency: c.Survey.GetObservingEfficiency(),
		NETMargin:           c.Survey.GetNETMargin(),
	}
}

// Experiment converts the configuration into calculator inputs. A band whose
// configuration is inconsistent is returned with Err set so that the
// remaining bands still run.
func (c *ExperimentConfig) Experiment(runID string) sensitivity.Experiment {
	e := sensitivity.Experiment{
		Name:   c.Name,
		RunID:  runID,
		Survey: c.SurveyParameters(),
		Bands:  make([]sensitivity.Band, 0, len(c.Bands)),
	}
	for _, bc := range c.Bands {
		e.Bands = append(e.Bands, c.band(bc))
	}
	return e
}

func (c *ExperimentConfig) band(bc BandConfig) sensitivity.Band {
	b := sensitivity.Band{
		Name:             bc.Name,
		FBW:              deref(bc.FBW),
		FNumber:          deref(bc.FNumber),
		NumDetectors:     deref(bc.NumDetectors),
		ClockedDetectors: deref(bc.ClockedDetectors),
	}
	if bc.CentreGHz != nil {
		b.Centre = units.FromDisplay(*bc.CentreGHz, units.GHz)
	}
	if bc.PixelSizeMM != nil {
		b.PixelSize = units.FromDisplay(*bc.PixelSizeMM, units.MM)
	}
	fail := func(obs int, err error) sensitivity.Band {
		b.Err = &sensitivity.ConfigurationError{Band: bc.Name, Observation: obs, Detector: -1, Err: err}
		return b
	}

	switch {
	case bc.CentreGHz == nil || !(*bc.CentreGHz > 0):
		return fail(-1, fmt.Errorf("centre_ghz: %w", errMissing))
	case bc.FBW == nil || !(*bc.FBW > 0 && *bc.FBW < 2):
		return fail(-1, fmt.Errorf("fbw must be in (0, 2)"))
	case bc.NumDetectors == nil:
		return fail(-1, fmt.Errorf("num_detectors: %w", errMissing))
	case len(bc.Elements) == 0:
		return fail(-1, optics.ErrEmptyChain)
	}

	samples := c.Options.GetBandSamples()
	if bc.Samples != nil {
		samples = *bc.Samples
	}
	freqs := physics.BandGrid(b.Centre, b.FBW, samples)
	modes := 1.0
	if bc.Modes != nil {
		modes = *bc.Modes
	}

	variants := bc.Detectors
	if len(variants) == 0 {
		variants = []DetectorConfig{{}}
	}
	dets := make([]sensitivity.DetectorParameters, len(variants))
	for j, v := range variants {
		dets[j] = c.Detector.Merge(bc.Detector).Merge(v).Parameters()
	}

	observations := bc.Observations
	if len(observations) == 0 {
		observations = []ObservationConfig{{}}
	}
	for i, oc := range observations {
		chain, err := buildChain(bc.Elements, oc, freqs, modes)
		if err != nil {
			return fail(i, err)
		}
		row := make([]sensitivity.BandObservation, len(dets))
		for j, d := range dets {
			row[j] = sensitivity.BandObservation{Chain: chain, Detector: d}
		}
		b.Observations = append(b.Observations, row)
	}
	return b
}

func buildChain(elems []ElementConfig, oc ObservationConfig, freqs []float64, modes float64) (optics.Chain, error) {
	n := len(elems)
	names := make([]string, n)
	emiss := make([]optics.Spectrum, n)
	eff := make([]optics.Spectrum, n)
	temps := make([]float64, n)

	used := 0
	for i, ec := range elems {
		if ec.TemperatureK == nil {
			return optics.Chain{}, fmt.Errorf("element %q temperature_k: %w", ec.Name, errMissing)
		}
		names[i] = ec.Name
		emiss[i] = spectrumOr(ec.Emissivity, 0)
		eff[i] = spectrumOr(ec.Efficiency, 1)
		temps[i] = *ec.TemperatureK

		if o, ok := oc.Elements[ec.Name]; ok {
			used++
			if o.Emissivity != nil {
				emiss[i] = optics.Spectrum(o.Emissivity)
			}
			if o.Efficiency != nil {
				eff[i] = optics.Spectrum(o.Efficiency)
			}
			if o.TemperatureK != nil {
				temps[i] = *o.TemperatureK
			}
		}
	}
	if used != len(oc.Elements) {
		for name := range oc.Elements {
			if !hasElement(elems, name) {
				return optics.Chain{}, fmt.Errorf("observation %q overrides unknown element %q", oc.Label, name)
			}
		}
	}
	return optics.FromArrays(names, emiss, eff, temps, freqs, modes)
}

func hasElement(elems []ElementConfig, name string) bool {
	for _, e := range elems {
		if e.Name == name {
			return true
		}
	}
	return false
}

func spectrumOr(s Spectrum, v float64) optics.Spectrum {
	if s == nil {
		return optics.Scalar(v)
	}
	return optics.Spectrum(s)
}

// Parameters converts the detector to SI calculator inputs, applying defaults
// for unset fields. Psat, bolometer resistance and NEI stay undefined unless
// given.
func (d DetectorConfig) Parameters() sensitivity.DetectorParameters {
	p := sensitivity.DetectorParameters{
		PsatFactor:        d.GetPsatFactor(),
		CarrierIndex:      d.GetCarrierIndex(),
		BathTemp:          d.GetBathTempK(),
		CriticalTemp:      d.GetCriticalTempK(),
		ReadoutMultiplier: d.GetReadoutMultiplier(),
		Yield:             d.GetYield(),
	}
	if d.PsatPW != nil {
		p.Psat = sensitivity.Defined(units.FromDisplay(*d.PsatPW, units.PW))
	}
	if d.BoloResistanceOhm != nil {
		p.BoloResistance = sensitivity.Defined(*d.BoloResistanceOhm)
	}
	if d.NEIPARtHz != nil {
		p.NEI = sensitivity.Defined(units.FromDisplay(*d.NEIPARtHz, units.PARtHz))
	}
	return p
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
