package report

import (
	"bytes"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/sensitivity.report/internal/sensitivity"
)

func sampleResult(name string, centre float64) sensitivity.SensitivityResult {
	netArr := 300e-6 / math.Sqrt(6048*0.8)
	return sensitivity.SensitivityResult{
		Band:         name,
		Centre:       centre,
		FBW:          0.3,
		PixelSize:    5.3e-3,
		NumDetectors: 6048,
		ApertureEff:  0.62,
		Popt:         sensitivity.Stat{Mean: 3.217e-12, Std: 0.1e-12},
		NEPPhoton:    sensitivity.Stat{Mean: 31.456e-18},
		NEPBolometer: sensitivity.Stat{Mean: 18.2e-18},
		NEPReadout:   sensitivity.Stat{Mean: 12.01e-18},
		NEPTotal:     sensitivity.Stat{Mean: 38.27e-18},
		NETDetector:  sensitivity.Stat{Mean: 301.456e-6, Std: 12e-6},
		NETArray:     sensitivity.Stat{Mean: netArr, Std: 0.2e-6},
		MappingSpeed: sensitivity.Stat{Mean: 1 / (netArr * netArr)},
		Sensitivity:  sensitivity.Stat{Mean: 4.321e-6},
	}
}

func TestTableRoundTrip(t *testing.T) {
	results := []sensitivity.BandResult{
		{Result: sampleResult("MF90", 93e9)},
		{Result: sampleResult("MF150", 145e9)},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteTable(&buf, results))

	tbl, err := ParseTable(&buf)
	require.NoError(t, err)
	require.Len(t, tbl.Rows, 2)
	require.Len(t, tbl.Columns, len(Columns))

	for i, br := range results {
		assert.Equal(t, br.Result.Band, tbl.Rows[i].Band)
		for k, c := range Columns {
			want := c.Value(br.Result) * c.Scale
			tol := 0.5*math.Pow10(-c.Prec) + 1e-9
			assert.InDelta(t, want, tbl.Rows[i].Values[k], tol, "column %s", c.Name)
		}
	}
	assert.Equal(t, "GHz", tbl.Units[0])
	assert.Equal(t, "", tbl.Units[1])
	assert.InDelta(t, 62.0, tbl.Value(0, "ApertureEff"), 1e-9)
	assert.True(t, math.IsNaN(tbl.Value(0, "NoSuchColumn")))
}

func TestTableFixedWidth(t *testing.T) {
	results := []sensitivity.BandResult{
		{Result: sampleResult("MF90", 93e9)},
		{Result: sampleResult("a longer band name", 145e9)},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteTable(&buf, results))

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	for _, l := range lines[1:] {
		assert.Equal(t, len(lines[0]), len(l))
	}
	assert.True(t, strings.HasPrefix(lines[3], "a_longer_band_name "))
}

func TestTableWideValueKeepsColumns(t *testing.T) {
	wide := sampleResult("MF90", 93e9)
	wide.NETDetector.Mean = 12345.678
	results := []sensitivity.BandResult{
		{Result: wide},
		{Result: sampleResult("MF150", 145e9)},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteTable(&buf, results))

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	for _, l := range lines {
		assert.Len(t, strings.Fields(l), len(Columns)+1, l)
		assert.Equal(t, len(lines[0]), len(l))
	}

	tbl, err := ParseTable(strings.NewReader(buf.String()))
	require.NoError(t, err)
	require.Len(t, tbl.Rows, 2)
	assert.InDelta(t, 12345.678e6, tbl.Value(0, "NET_det"), 0.005)
	assert.InDelta(t, 301.456, tbl.Value(1, "NET_det"), 0.005)
}

func TestTableMarksFailedBand(t *testing.T) {
	failed := sensitivity.SensitivityResult{Band: "LF27", Centre: 27e9, FBW: 0.3, ApertureEff: math.NaN()}
	results := []sensitivity.BandResult{
		{Band: sensitivity.Band{Name: "LF27"}, Result: failed, Err: errors.New("band has no observations")},
		{Result: sampleResult("MF90", 93e9)},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteTable(&buf, results))

	tbl, err := ParseTable(&buf)
	require.NoError(t, err)
	require.Len(t, tbl.Rows, 2)

	row := tbl.Rows[0]
	assert.Equal(t, "LF27", row.Band)
	assert.InDelta(t, 27.0, row.Values[0], 1e-9)
	for k := identityColumns; k < len(row.Values); k++ {
		assert.True(t, math.IsNaN(row.Values[k]), "column %s", tbl.Columns[k])
	}
	assert.False(t, math.IsNaN(tbl.Rows[1].Values[len(Columns)-1]))
}

func TestTableNonFiniteValuesAreNA(t *testing.T) {
	r := sampleResult("MF90", 93e9)
	r.MappingSpeed.Mean = math.NaN()
	r.NETArray.Mean = math.Inf(1)

	var buf bytes.Buffer
	require.NoError(t, WriteTable(&buf, []sensitivity.BandResult{{Result: r}}))
	tbl, err := ParseTable(&buf)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(tbl.Value(0, "MappingSpeed")))
	assert.True(t, math.IsNaN(tbl.Value(0, "NET_array")))
	assert.False(t, math.IsNaN(tbl.Value(0, "NET_det")))
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "93.0", FormatValue(93e9, 1e-9, 1))
	assert.Equal(t, "0.0542", FormatValue(0.05421, 1, 4))
	assert.Equal(t, NA, FormatValue(math.NaN(), 1, 2))
	assert.Equal(t, NA, FormatValue(math.Inf(-1), 1, 2))
}

func TestParseTableMalformed(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"no units row", "Band Freq\n"},
		{"wrong first header", "Name Freq\n[GHz]\n"},
		{"unit count", "Band Freq FBW\n[GHz]\n"},
		{"short row", "Band Freq FBW\n[GHz] [-]\nMF90 93.0\n"},
		{"bad number", "Band Freq FBW\n[GHz] [-]\nMF90 93.0 abc\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseTable(strings.NewReader(tt.input))
			assert.ErrorIs(t, err, ErrMalformedTable)
		})
	}
}
