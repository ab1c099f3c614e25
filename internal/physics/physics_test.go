package physics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLamb(t *testing.T) {
	p := New()
	got := p.Lamb(150e9)
	if math.Abs(got-1.99861639e-3) > 1e-10 {
		t.Errorf("Lamb(150 GHz) = %v, want ~1.9986e-3", got)
	}
}

func TestBandGrid(t *testing.T) {
	grid := BandGrid(100e9, 0.3, 4)
	assert.Len(t, grid, 4)
	assert.InDelta(t, 85e9, grid[0], 1)
	assert.InDelta(t, 115e9, grid[3], 1)

	short := BandGrid(100e9, 0.3, 1)
	assert.Len(t, short, 2)
}

func TestBBPowSpec(t *testing.T) {
	p := New()
	freqs := []float64{90e9, 150e9}

	t.Run("zero temperature emits nothing", func(t *testing.T) {
		density := p.BBPowSpec(freqs, 0, []float64{1}, 1)
		for i, v := range density {
			if v != 0 {
				t.Errorf("density[%d] = %v, want 0", i, v)
			}
		}
	})

	t.Run("per-frequency emissivity", func(t *testing.T) {
		full := p.BBPowSpec(freqs, 10, []float64{1}, 1)
		half := p.BBPowSpec(freqs, 10, []float64{0.5, 0.25}, 1)
		assert.InDelta(t, full[0]*0.5, half[0], 1e-30)
		assert.InDelta(t, full[1]*0.25, half[1], 1e-30)
	})

	t.Run("rayleigh-jeans limit", func(t *testing.T) {
		density := p.BBPowSpec([]float64{1e9}, 1000, []float64{1}, 1)
		assert.InEpsilon(t, KB*1000, density[0], 1e-3)
	})

	t.Run("NaN temperature propagates", func(t *testing.T) {
		density := p.BBPowSpec(freqs, math.NaN(), []float64{1}, 1)
		assert.True(t, math.IsNaN(density[0]))
	})
}

func TestBBPowerRayleighJeans(t *testing.T) {
	p := New()
	// hv << kT: P ~ emiss * k * T * bandwidth.
	got := p.BBPower(0.5, 10e9, 0.2, 3000, 1)
	want := 0.5 * KB * 3000 * 10e9 * 0.2
	assert.InEpsilon(t, want, got, 5e-3)
}

func TestAniPowSpecPositive(t *testing.T) {
	p := New()
	density := p.AniPowSpec([]float64{90e9, 150e9, 220e9}, TCMB, []float64{1})
	for i, v := range density {
		if v <= 0 {
			t.Errorf("density[%d] = %v, want > 0", i, v)
		}
	}
}

func TestIntegrate(t *testing.T) {
	p := New()
	assert.InDelta(t, 2.0, p.Integrate([]float64{0, 1, 2}, []float64{1, 1, 1}), 1e-12)
	assert.True(t, math.IsNaN(p.Integrate([]float64{1}, []float64{1})))
	assert.True(t, math.IsNaN(p.Integrate([]float64{2, 1}, []float64{1, 1})))
	assert.True(t, math.IsNaN(p.Integrate([]float64{1, 2}, []float64{1})))
}

func TestInvVar(t *testing.T) {
	p := New()
	tests := []struct {
		name string
		in   []float64
		want float64
	}{
		{"single", []float64{3}, 3},
		{"two equal", []float64{2, 2}, math.Sqrt2},
		{"four equal", []float64{10, 10, 10, 10}, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, p.InvVar(tt.in), 1e-12)
		})
	}
	assert.True(t, math.IsNaN(p.InvVar(nil)))
}
