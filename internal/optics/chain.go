// Package optics models the ordered chain of optical elements between the sky
// and a detector and accumulates the in-band power each element delivers.
//
// Element 0 is nearest the sky; increasing index moves toward the detector.
package optics

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/banshee-data/sensitivity.report/internal/physics"
)

var (
	// ErrEmptyChain is returned for a chain with no elements.
	ErrEmptyChain = errors.New("optical chain has no elements")
	// ErrLengthMismatch is returned when parallel element arrays, or a
	// frequency-resolved spectrum and the frequency grid, disagree in length.
	ErrLengthMismatch = errors.New("array length mismatch")
	// ErrBadGrid is returned for a frequency grid that cannot be integrated.
	ErrBadGrid = errors.New("invalid frequency grid")
)

// Spectrum is an emissivity or efficiency that is either one value for the
// whole band or one value per frequency sample.
type Spectrum []float64

// Scalar returns a band-constant Spectrum.
func Scalar(v float64) Spectrum { return Spectrum{v} }

// At returns the value at frequency index i.
func (s Spectrum) At(i int) float64 {
	if len(s) == 1 {
		return s[0]
	}
	return s[i]
}

// IsScalar reports whether s is band-constant.
func (s Spectrum) IsScalar() bool { return len(s) == 1 }

// Element is one optical element of a chain.
type Element struct {
	Name        string
	Emissivity  Spectrum
	Efficiency  Spectrum // transmission toward the detector
	Temperature float64  // physical temperature [K]
}

// Chain is an ordered sequence of elements plus the frequency grid used for
// all spectral integration.
type Chain struct {
	Elements []Element
	Freqs    []float64 // [Hz], ascending
	Modes    float64   // number of optical modes
}

// ElementError identifies the element responsible for a validation failure.
type ElementError struct {
	Index int
	Name  string
	Field string
	Err   error
}

func (e *ElementError) Error() string {
	return fmt.Sprintf("element %d (%s) %s: %v", e.Index, e.Name, e.Field, e.Err)
}

func (e *ElementError) Unwrap() error { return e.Err }

// NewBandChain builds a chain on BandGrid(centre, fbw, samples).
func NewBandChain(centre, fbw float64, samples int, modes float64, elems ...Element) Chain {
	return Chain{
		Elements: elems,
		Freqs:    physics.BandGrid(centre, fbw, samples),
		Modes:    modes,
	}
}

// FromArrays builds a chain from parallel per-element arrays. Mismatched
// lengths are a configuration error.
func FromArrays(names []string, emiss, eff []Spectrum, temps, freqs []float64, modes float64) (Chain, error) {
	n := len(names)
	if len(emiss) != n || len(eff) != n || len(temps) != n {
		return Chain{}, fmt.Errorf("%w: %d names, %d emissivities, %d efficiencies, %d temperatures",
			ErrLengthMismatch, n, len(emiss), len(eff), len(temps))
	}
	elems := make([]Element, n)
	for i := range names {
		elems[i] = Element{Name: names[i], Emissivity: emiss[i], Efficiency: eff[i], Temperature: temps[i]}
	}
	c := Chain{Elements: elems, Freqs: freqs, Modes: modes}
	return c, c.Validate()
}

// Validate checks the structural invariants of the chain. Non-finite
// temperatures, emissivities and efficiencies are allowed through so that they
// taint the results instead of being silently clamped.
func (c Chain) Validate() error {
	if len(c.Elements) == 0 {
		return ErrEmptyChain
	}
	if len(c.Freqs) < 2 {
		return fmt.Errorf("%w: need at least 2 frequencies, got %d", ErrBadGrid, len(c.Freqs))
	}
	for _, f := range c.Freqs {
		if math.IsNaN(f) || math.IsInf(f, 0) || f <= 0 {
			return fmt.Errorf("%w: frequency %v", ErrBadGrid, f)
		}
	}
	if !sort.Float64sAreSorted(c.Freqs) {
		return fmt.Errorf("%w: frequencies must be ascending", ErrBadGrid)
	}
	for i, e := range c.Elements {
		if err := c.checkSpectrum(e.Emissivity); err != nil {
			return &ElementError{Index: i, Name: e.Name, Field: "emissivity", Err: err}
		}
		if err := c.checkSpectrum(e.Efficiency); err != nil {
			return &ElementError{Index: i, Name: e.Name, Field: "efficiency", Err: err}
		}
	}
	return nil
}

func (c Chain) checkSpectrum(s Spectrum) error {
	if len(s) == 1 || len(s) == len(c.Freqs) {
		return nil
	}
	return fmt.Errorf("%w: spectrum has %d values for %d frequencies", ErrLengthMismatch, len(s), len(c.Freqs))
}

// Index returns the position of the first element whose name matches name
// case-insensitively, or -1.
func (c Chain) Index(name string) int {
	for i, e := range c.Elements {
		if strings.EqualFold(e.Name, name) {
			return i
		}
	}
	return -1
}

// modes returns the mode count, treating an unset value as a single mode.
func (c Chain) modes() float64 {
	if c.Modes <= 0 {
		return 1
	}
	return c.Modes
}

// downstream returns, for each element j, the per-frequency product of the
// efficiencies of every element after j. Element j's own efficiency is
// excluded; the last element sees the implicit detector efficiency of 1.
// Suffix products keep this O(n) in the number of elements.
func (c Chain) downstream() [][]float64 {
	n, m := len(c.Elements), len(c.Freqs)
	cum := make([][]float64, n)
	next := make([]float64, m)
	for i := range next {
		next[i] = 1
	}
	for j := n - 1; j >= 0; j-- {
		cum[j] = next
		if j == 0 {
			break
		}
		cur := make([]float64, m)
		eff := c.Elements[j].Efficiency
		for i := range cur {
			cur[i] = next[i] * eff.At(i)
		}
		next = cur
	}
	return cum
}

// EndToEndEfficiency returns the per-frequency product of every element's
// efficiency.
func (c Chain) EndToEndEfficiency() Spectrum {
	out := make(Spectrum, len(c.Freqs))
	for i := range out {
		out[i] = 1
		for _, e := range c.Elements {
			out[i] *= e.Efficiency.At(i)
		}
	}
	return out
}
