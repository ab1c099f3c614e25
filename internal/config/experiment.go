package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/banshee-data/sensitivity.report/internal/physics"
)

// DefaultConfigPath is the path to the reference experiment shipped with the
// repository.
const DefaultConfigPath = "config/experiment.defaults.json"

// ExperimentConfig is the root of an experiment file. Fields left out of the
// file fall back to the defaults documented on the Get* methods, so partial
// files are safe.
type ExperimentConfig struct {
	Name     string         `json:"name" yaml:"name"`
	Survey   SurveyConfig   `json:"survey" yaml:"survey"`
	Options  OptionsConfig  `json:"options" yaml:"options"`
	Detector DetectorConfig `json:"detector" yaml:"detector"`
	Bands    []BandConfig   `json:"bands" yaml:"bands"`
}

// SurveyConfig holds the observing parameters shared by every band.
type SurveyConfig struct {
	SkyFraction         *float64 `json:"sky_fraction,omitempty" yaml:"sky_fraction,omitempty"`
	ObservationYears    *float64 `json:"observation_years,omitempty" yaml:"observation_years,omitempty"`
	ObservingEfficiency *float64 `json:"observing_efficiency,omitempty" yaml:"observing_efficiency,omitempty"`
	NETMargin           *float64 `json:"net_margin,omitempty" yaml:"net_margin,omitempty"`
}

// OptionsConfig selects how optical chains are interpreted.
type OptionsConfig struct {
	StopElement      *string `json:"stop_element,omitempty" yaml:"stop_element,omitempty"`
	HWPElement       *string `json:"hwp_element,omitempty" yaml:"hwp_element,omitempty"`
	SkyElements      *int    `json:"sky_elements,omitempty" yaml:"sky_elements,omitempty"`
	PixelCorrelation *bool   `json:"pixel_correlation,omitempty" yaml:"pixel_correlation,omitempty"`
	BandSamples      *int    `json:"band_samples,omitempty" yaml:"band_samples,omitempty"`
}

// DetectorConfig describes a bolometer. At the experiment level it provides
// defaults; at band and variant level every set field overrides the level
// above.
type DetectorConfig struct {
	PsatPW            *float64 `json:"psat_pw,omitempty" yaml:"psat_pw,omitempty"`
	PsatFactor        *float64 `json:"psat_factor,omitempty" yaml:"psat_factor,omitempty"`
	CarrierIndex      *float64 `json:"carrier_index,omitempty" yaml:"carrier_index,omitempty"`
	BathTempK         *float64 `json:"bath_temp_k,omitempty" yaml:"bath_temp_k,omitempty"`
	CriticalTempK     *float64 `json:"critical_temp_k,omitempty" yaml:"critical_temp_k,omitempty"`
	BoloResistanceOhm *float64 `json:"bolo_resistance_ohm,omitempty" yaml:"bolo_resistance_ohm,omitempty"`
	NEIPARtHz         *float64 `json:"nei_pa_rthz,omitempty" yaml:"nei_pa_rthz,omitempty"`
	ReadoutMultiplier *float64 `json:"readout_multiplier,omitempty" yaml:"readout_multiplier,omitempty"`
	Yield             *float64 `json:"yield,omitempty" yaml:"yield,omitempty"`
}

// ElementConfig is one optical element. Emissivity defaults to 0 and
// efficiency to 1 when omitted; temperature is required.
type ElementConfig struct {
	Name         string   `json:"name" yaml:"name"`
	Emissivity   Spectrum `json:"emissivity,omitempty" yaml:"emissivity,omitempty"`
	Efficiency   Spectrum `json:"efficiency,omitempty" yaml:"efficiency,omitempty"`
	TemperatureK *float64 `json:"temperature_k,omitempty" yaml:"temperature_k,omitempty"`
}

// ElementOverride replaces selected properties of a named element for one
// observation.
type ElementOverride struct {
	Emissivity   Spectrum `json:"emissivity,omitempty" yaml:"emissivity,omitempty"`
	Efficiency   Spectrum `json:"efficiency,omitempty" yaml:"efficiency,omitempty"`
	TemperatureK *float64 `json:"temperature_k,omitempty" yaml:"temperature_k,omitempty"`
}

// ObservationConfig is one repeated observation of a band, for example a
// different elevation changing the atmosphere.
type ObservationConfig struct {
	Label    string                     `json:"label,omitempty" yaml:"label,omitempty"`
	Elements map[string]ElementOverride `json:"elements,omitempty" yaml:"elements,omitempty"`
}

// BandConfig is one frequency channel.
type BandConfig struct {
	Name             string   `json:"name" yaml:"name"`
	CentreGHz        *float64 `json:"centre_ghz,omitempty" yaml:"centre_ghz,omitempty"`
	FBW              *float64 `json:"fbw,omitempty" yaml:"fbw,omitempty"`
	PixelSizeMM      *float64 `json:"pixel_size_mm,omitempty" yaml:"pixel_size_mm,omitempty"`
	FNumber          *float64 `json:"f_number,omitempty" yaml:"f_number,omitempty"`
	NumDetectors     *float64 `json:"num_detectors,omitempty" yaml:"num_detectors,omitempty"`
	ClockedDetectors *float64 `json:"clocked_detectors,omitempty" yaml:"clocked_detectors,omitempty"`
	Modes            *float64 `json:"modes,omitempty" yaml:"modes,omitempty"`
	Samples          *int     `json:"samples,omitempty" yaml:"samples,omitempty"`

	Elements     []ElementConfig     `json:"elements" yaml:"elements"`
	Detector     DetectorConfig      `json:"detector" yaml:"detector"`
	Detectors    []DetectorConfig    `json:"detectors,omitempty" yaml:"detectors,omitempty"`
	Observations []ObservationConfig `json:"observations,omitempty" yaml:"observations,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// DefaultExperimentConfig returns a config with every survey, option and
// detector default set explicitly and no bands.
func DefaultExperimentConfig() *ExperimentConfig {
	return &ExperimentConfig{
		Name: "experiment",
		Survey: SurveyConfig{
			SkyFraction:         ptrFloat64(0.1),
			ObservationYears:    ptrFloat64(5),
			ObservingEfficiency: ptrFloat64(0.2),
			NETMargin:           ptrFloat64(1.0),
		},
		Options: OptionsConfig{
			StopElement:      ptrString("LyotStop"),
			HWPElement:       ptrString("HWP"),
			SkyElements:      ptrInt(2),
			PixelCorrelation: ptrBool(true),
			BandSamples:      ptrInt(physics.DefaultBandSamples),
		},
		Detector: DetectorConfig{
			PsatFactor:        ptrFloat64(3.0),
			CarrierIndex:      ptrFloat64(3.0),
			BathTempK:         ptrFloat64(0.1),
			CriticalTempK:     ptrFloat64(0.17),
			ReadoutMultiplier: ptrFloat64(0.1),
			Yield:             ptrFloat64(0.8),
		},
	}
}

// LoadExperimentConfig loads an ExperimentConfig from a JSON or YAML file,
// chosen by extension. The file must be under 1MB.
func LoadExperimentConfig(path string) (*ExperimentConfig, error) {
	cleanPath := filepath.Clean(path)
	ext := strings.ToLower(filepath.Ext(cleanPath))
	switch ext {
	case ".json", ".yaml", ".yml":
	default:
		return nil, fmt.Errorf("config file must have .json, .yaml or .yml extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return ParseExperimentConfig(data, ext)
}

// ParseExperimentConfig decodes and validates an experiment. format is a file
// extension (".json", ".yaml" or ".yml"). Unknown fields are rejected.
func ParseExperimentConfig(data []byte, format string) (*ExperimentConfig, error) {
	cfg := &ExperimentConfig{}
	switch format {
	case ".json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format %q", format)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// MustLoadDefaultConfig loads the reference experiment from DefaultConfigPath.
// It searches the current directory and its parents. Panics if the file cannot
// be loaded, intended for test setup.
func MustLoadDefaultConfig() *ExperimentConfig {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath, // from internal/config/ or cmd/sensitivity/
		"../../../" + DefaultConfigPath,
	}
	for _, path := range candidates {
		if cfg, err := LoadExperimentConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks file-level values. Problems confined to one band, such as
// mismatched spectrum lengths, are reported per band when the experiment is
// built so that the other bands still run.
func (c *ExperimentConfig) Validate() error {
	if v := c.Survey.SkyFraction; v != nil && (*v <= 0 || *v > 1) {
		return fmt.Errorf("sky_fraction must be in (0, 1], got %g", *v)
	}
	if v := c.Survey.ObservationYears; v != nil && *v < 0 {
		return fmt.Errorf("observation_years must be non-negative, got %g", *v)
	}
	if v := c.Survey.ObservingEfficiency; v != nil && (*v < 0 || *v > 1) {
		return fmt.Errorf("observing_efficiency must be between 0 and 1, got %g", *v)
	}
	if v := c.Survey.NETMargin; v != nil && *v <= 0 {
		return fmt.Errorf("net_margin must be positive, got %g", *v)
	}
	if v := c.Options.SkyElements; v != nil && *v < 0 {
		return fmt.Errorf("sky_elements must be non-negative, got %d", *v)
	}
	if v := c.Options.BandSamples; v != nil && *v < 2 {
		return fmt.Errorf("band_samples must be at least 2, got %d", *v)
	}
	if err := c.Detector.validate(); err != nil {
		return fmt.Errorf("detector: %w", err)
	}

	seen := make(map[string]bool, len(c.Bands))
	for i, b := range c.Bands {
		if b.Name == "" {
			return fmt.Errorf("band %d has no name", i)
		}
		if seen[b.Name] {
			return fmt.Errorf("duplicate band name %q", b.Name)
		}
		seen[b.Name] = true
	}
	return nil
}

func (d DetectorConfig) validate() error {
	if v := d.Yield; v != nil && (*v < 0 || *v > 1) {
		return fmt.Errorf("yield must be between 0 and 1, got %g", *v)
	}
	if v := d.ReadoutMultiplier; v != nil && *v < 0 {
		return fmt.Errorf("readout_multiplier must be non-negative, got %g", *v)
	}
	return nil
}

// GetSkyFraction returns the sky_fraction value or the default.
func (s SurveyConfig) GetSkyFraction() float64 {
	if s.SkyFraction == nil {
		return 0.1
	}
	return *s.SkyFraction
}

// GetObservationYears returns the observation_years value or the default.
func (s SurveyConfig) GetObservationYears() float64 {
	if s.ObservationYears == nil {
		return 5
	}
	return *s.ObservationYears
}

// GetObservingEfficiency returns the observing_efficiency value or the default.
func (s SurveyConfig) GetObservingEfficiency() float64 {
	if s.ObservingEfficiency == nil {
		return 0.2
	}
	return *s.ObservingEfficiency
}

// GetNETMargin returns the net_margin value or the default.
func (s SurveyConfig) GetNETMargin() float64 {
	if s.NETMargin == nil {
		return 1.0
	}
	return *s.NETMargin
}

// GetStopElement returns the stop_element value or the default.
func (o OptionsConfig) GetStopElement() string {
	if o.StopElement == nil {
		return "LyotStop"
	}
	return *o.StopElement
}

// GetHWPElement returns the hwp_element value or the default.
func (o OptionsConfig) GetHWPElement() string {
	if o.HWPElement == nil {
		return "HWP"
	}
	return *o.HWPElement
}

// GetSkyElements returns the sky_elements value or the default.
func (o OptionsConfig) GetSkyElements() int {
	if o.SkyElements == nil {
		return 2
	}
	return *o.SkyElements
}

// GetPixelCorrelation returns the pixel_correlation value or the default.
func (o OptionsConfig) GetPixelCorrelation() bool {
	if o.PixelCorrelation == nil {
		return true
	}
	return *o.PixelCorrelation
}

// GetBandSamples returns the band_samples value or the default.
func (o OptionsConfig) GetBandSamples() int {
	if o.BandSamples == nil {
		return physics.DefaultBandSamples
	}
	return *o.BandSamples
}

// GetPsatFactor returns the psat_factor value or the default.
func (d DetectorConfig) GetPsatFactor() float64 {
	if d.PsatFactor == nil {
		return 3.0
	}
	return *d.PsatFactor
}

// GetCarrierIndex returns the carrier_index value or the default.
func (d DetectorConfig) GetCarrierIndex() float64 {
	if d.CarrierIndex == nil {
		return 3.0
	}
	return *d.CarrierIndex
}

// GetBathTempK returns the bath_temp_k value or the default.
func (d DetectorConfig) GetBathTempK() float64 {
	if d.BathTempK == nil {
		return 0.1
	}
	return *d.BathTempK
}

// GetCriticalTempK returns the critical_temp_k value or the default.
func (d DetectorConfig) GetCriticalTempK() float64 {
	if d.CriticalTempK == nil {
		return 0.17
	}
	return *d.CriticalTempK
}

// GetReadoutMultiplier returns the readout_multiplier value or the default.
func (d DetectorConfig) GetReadoutMultiplier() float64 {
	if d.ReadoutMultiplier == nil {
		return 0.1
	}
	return *d.ReadoutMultiplier
}

// GetYield returns the yield value or the default.
func (d DetectorConfig) GetYield() float64 {
	if d.Yield == nil {
		return 0.8
	}
	return *d.Yield
}

// Merge returns d with every field set in over replacing d's.
func (d DetectorConfig) Merge(over DetectorConfig) DetectorConfig {
	pick := func(base, o *float64) *float64 {
		if o != nil {
			return o
		}
		return base
	}
	return DetectorConfig{
		PsatPW:            pick(d.PsatPW, over.PsatPW),
		PsatFactor:        pick(d.PsatFactor, over.PsatFactor),
		CarrierIndex:      pick(d.CarrierIndex, over.CarrierIndex),
		BathTempK:         pick(d.BathTempK, over.BathTempK),
		CriticalTempK:     pick(d.CriticalTempK, over.CriticalTempK),
		BoloResistanceOhm: pick(d.BoloResistanceOhm, over.BoloResistanceOhm),
		NEIPARtHz:         pick(d.NEIPARtHz, over.NEIPARtHz),
		ReadoutMultiplier: pick(d.ReadoutMultiplier, over.ReadoutMultiplier),
		Yield:             pick(d.Yield, over.Yield),
	}
}
