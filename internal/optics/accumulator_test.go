package optics

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/sensitivity.report/internal/physics"
)

func elem(name string, emiss, eff, temp float64) Element {
	return Element{Name: name, Emissivity: Scalar(emiss), Efficiency: Scalar(eff), Temperature: temp}
}

func threeElementChain() Chain {
	return NewBandChain(150e9, 0.3, physics.DefaultBandSamples, 1,
		elem("Sky", 1.0, 1.0, 2.7),
		elem("Mirror", 0.01, 0.99, 270),
		elem("Coupling", 0, 0.4, 0.1),
	)
}

func TestSingleElementMatchesBlackbodyPower(t *testing.T) {
	ph := physics.New()
	acc := NewAccumulator(ph)
	c := NewBandChain(150e9, 0.3, physics.DefaultBandSamples, 1, elem("Window", 0.7, 0.5, 10))

	total, per, err := acc.OpticalPower(c)
	require.NoError(t, err)
	require.Len(t, per, 1)

	want := ph.BBPower(0.7, 150e9, 0.3, 10, 1)
	assert.InEpsilon(t, want, total, 1e-12)
}

func TestZeroElementInsertionInvariant(t *testing.T) {
	acc := NewAccumulator(physics.New())
	base := threeElementChain()
	baseTotal, _, err := acc.OpticalPower(base)
	require.NoError(t, err)

	for pos := 0; pos <= len(base.Elements); pos++ {
		elems := append([]Element{}, base.Elements[:pos]...)
		elems = append(elems, elem("Null", 0, 1, 0))
		elems = append(elems, base.Elements[pos:]...)
		c := base
		c.Elements = elems

		total, per, err := acc.OpticalPower(c)
		require.NoError(t, err)
		assert.InEpsilon(t, baseTotal, total, 1e-12, "insert at %d", pos)
		assert.Equal(t, 0.0, per[pos], "inserted element contributes power at %d", pos)
	}
}

func TestThreeElementScenario(t *testing.T) {
	ph := physics.New()
	acc := NewAccumulator(ph)

	total, per, err := acc.OpticalPower(threeElementChain())
	require.NoError(t, err)

	sky := ph.BBPower(1.0, 150e9, 0.3, 2.7, 1)
	mirror := ph.BBPower(0.01, 150e9, 0.3, 270, 1)
	assert.Greater(t, total, sky)
	assert.Less(t, total, sky+mirror)

	// Sky light passes the mirror and the coupling; the mirror's own
	// efficiency does not attenuate its emission.
	assert.InEpsilon(t, sky*0.99*0.4, per[0], 1e-9)
	assert.InEpsilon(t, mirror*0.4, per[1], 1e-9)
	assert.Equal(t, 0.0, per[2])
}

func TestDownstreamMatchesNaiveProduct(t *testing.T) {
	freqs := physics.BandGrid(90e9, 0.3, 3)
	c := Chain{
		Freqs: freqs,
		Elements: []Element{
			{Name: "a", Emissivity: Scalar(0), Efficiency: Spectrum{0.9, 0.8, 0.7}},
			{Name: "b", Emissivity: Scalar(0), Efficiency: Scalar(0.5)},
			{Name: "c", Emissivity: Scalar(0), Efficiency: Spectrum{0.1, 0.2, 0.3}},
			{Name: "d", Emissivity: Scalar(0), Efficiency: Scalar(0.25)},
		},
	}
	cum := c.downstream()
	for j := range c.Elements {
		for i := range freqs {
			want := 1.0
			for k := j + 1; k < len(c.Elements); k++ {
				want *= c.Elements[k].Efficiency.At(i)
			}
			assert.InDelta(t, want, cum[j][i], 1e-15, "j=%d i=%d", j, i)
		}
	}
	assert.Equal(t, []float64{1, 1, 1}, cum[3])
}

func TestLengthMismatchIsConfigurationError(t *testing.T) {
	freqs := physics.BandGrid(90e9, 0.3, 5)

	_, err := FromArrays(
		[]string{"a", "b"},
		[]Spectrum{Scalar(1), Scalar(0.1)},
		[]Spectrum{Scalar(1)},
		[]float64{2.7, 10},
		freqs, 1,
	)
	assert.ErrorIs(t, err, ErrLengthMismatch)

	_, err = FromArrays(
		[]string{"a"},
		[]Spectrum{{0.1, 0.2}},
		[]Spectrum{Scalar(1)},
		[]float64{2.7},
		freqs, 1,
	)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrLengthMismatch)
	var ee *ElementError
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, "emissivity", ee.Field)
	assert.Equal(t, "a", ee.Name)

	c, err := FromArrays([]string{"a"}, []Spectrum{Scalar(1)}, []Spectrum{Scalar(1)}, []float64{2.7}, freqs, 1)
	require.NoError(t, err)
	assert.Len(t, c.Elements, 1)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		chain Chain
		want  error
	}{
		{"empty", Chain{Freqs: []float64{1, 2}}, ErrEmptyChain},
		{"short grid", Chain{Elements: []Element{elem("a", 1, 1, 1)}, Freqs: []float64{1}}, ErrBadGrid},
		{"unsorted grid", Chain{Elements: []Element{elem("a", 1, 1, 1)}, Freqs: []float64{2, 1}}, ErrBadGrid},
		{"nan grid", Chain{Elements: []Element{elem("a", 1, 1, 1)}, Freqs: []float64{1, math.NaN()}}, ErrBadGrid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.chain.Validate(), tt.want)
		})
	}
}

func TestNonFiniteInputsTaintResult(t *testing.T) {
	acc := NewAccumulator(physics.New())

	c := threeElementChain()
	c.Elements[1].Temperature = math.NaN()
	total, _, err := acc.OpticalPower(c)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(total))

	c = threeElementChain()
	c.Elements[2].Efficiency = Scalar(math.NaN())
	total, _, err = acc.OpticalPower(c)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(total))
}

func TestBreakdown(t *testing.T) {
	ph := physics.New()
	acc := NewAccumulator(ph)
	c := threeElementChain()

	rows, err := acc.Breakdown(c)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, 0.0, rows[0].SkySide)
	sky := ph.BBPower(1.0, 150e9, 0.3, 2.7, 1)
	mirror := ph.BBPower(0.01, 150e9, 0.3, 270, 1)
	assert.InEpsilon(t, sky, rows[1].SkySide, 1e-9)
	assert.InEpsilon(t, mirror+0.99*sky, rows[2].SkySide, 1e-9)

	total, _, err := acc.OpticalPower(c)
	require.NoError(t, err)
	var detSum float64
	for _, r := range rows {
		detSum += r.DetectorSide
	}
	assert.InEpsilon(t, total, detSum, 1e-9)

	assert.InDelta(t, 0.396, rows[0].Efficiency, 1e-12)
	assert.InDelta(t, 0.4, rows[1].Efficiency, 1e-12)
	assert.InDelta(t, 1.0, rows[2].Efficiency, 1e-12)
}

func TestSplit(t *testing.T) {
	acc := NewAccumulator(physics.New())
	c := NewBandChain(90e9, 0.3, 50, 1,
		elem("CMB", 1, 1, 2.725),
		elem("Atmosphere", 0.02, 0.98, 250),
		elem("HWP", 0.01, 0.97, 50),
		elem("Lens", 0.005, 0.95, 4),
	)
	_, per, err := acc.OpticalPower(c)
	require.NoError(t, err)

	s, err := acc.Split(c, 2, "HWP")
	require.NoError(t, err)
	assert.InEpsilon(t, per[0]+per[1], s.Sky, 1e-12)
	assert.InEpsilon(t, per[2]+per[3], s.Receiver, 1e-12)
	assert.Equal(t, per[2], s.HWP)
	assert.InDelta(t, 0.98*0.97*0.95, s.TotalEff, 1e-12)
	assert.InDelta(t, 0.97*0.95, s.ReceiverEff, 1e-12)
	assert.InDelta(t, 0.95, s.HWPEff, 1e-12)

	noHWP, err := acc.Split(c, 2, "Polarizer")
	require.NoError(t, err)
	assert.Equal(t, 0.0, noHWP.HWP)
}

func TestApertureEfficiency(t *testing.T) {
	acc := NewAccumulator(physics.New())
	c := NewBandChain(90e9, 0.3, 3, 1,
		elem("Sky", 1, 1, 2.7),
		Element{Name: "LyotStop", Emissivity: Scalar(1), Efficiency: Spectrum{0.5, 0.6, 0.7}, Temperature: 1},
	)
	eff, idx := acc.ApertureEfficiency(c, "lyotstop")
	assert.Equal(t, 1, idx)
	assert.InDelta(t, 0.6, eff, 1e-12)

	eff, idx = acc.ApertureEfficiency(c, "Missing")
	assert.Equal(t, -1, idx)
	assert.True(t, math.IsNaN(eff))
}

func TestEndToEndEfficiency(t *testing.T) {
	c := threeElementChain()
	eff := c.EndToEndEfficiency()
	require.Len(t, eff, len(c.Freqs))
	assert.InDelta(t, 0.396, eff[0], 1e-12)
}
