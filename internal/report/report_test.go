package report

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/sensitivity.report/internal/config"
	"github.com/banshee-data/sensitivity.report/internal/fsutil"
	"github.com/banshee-data/sensitivity.report/internal/sensitivity"
	"github.com/banshee-data/sensitivity.report/internal/timeutil"
)

var reportTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func runDefault(t *testing.T) (*sensitivity.Calculator, sensitivity.Experiment, []sensitivity.BandResult) {
	t.Helper()
	cfg := config.MustLoadDefaultConfig()
	calc := sensitivity.NewDefault(cfg.CalculatorOptions())
	exp := cfg.Experiment("run-0001")
	results := calc.Run(exp)
	for _, r := range results {
		require.NoError(t, r.Err, "band %s", r.Band.Name)
	}
	return calc, exp, results
}

func TestWriteOpticsTable(t *testing.T) {
	calc, exp, _ := runDefault(t)
	bands := CollectOptics(calc, exp.Bands)
	require.Len(t, bands, len(exp.Bands))
	bands = append(bands, OpticsBand{Name: "LF27", Err: errors.New("band has no observations")})

	var buf bytes.Buffer
	require.NoError(t, WriteOpticsTable(&buf, bands))
	out := buf.String()

	assert.Contains(t, out, "# MF90\n")
	assert.Contains(t, out, "# MF150\n")
	assert.Contains(t, out, "LyotStop")
	assert.Contains(t, out, "Atmosphere")
	assert.Equal(t, len(exp.Bands), strings.Count(out, "ETF="))
	assert.Contains(t, out, "# LF27\n# NA: band has no observations\n")
}

func TestCollectOpticsKeepsBandErrors(t *testing.T) {
	calc := sensitivity.NewDefault(sensitivity.DefaultOptions())
	bands := CollectOptics(calc, []sensitivity.Band{{Name: "empty"}})
	require.Len(t, bands, 1)
	assert.ErrorIs(t, bands[0].Err, sensitivity.ErrNoObservations)
	assert.Empty(t, bands[0].Elements)
}

func TestSensitivityPlotsPNG(t *testing.T) {
	_, _, results := runDefault(t)
	net, ms, err := SensitivityPlots("SmallApertureTelescope", results)
	require.NoError(t, err)
	require.NotNil(t, net)
	require.NotNil(t, ms)

	var buf bytes.Buffer
	require.NoError(t, WritePlotPNG(&buf, net, ms))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG")))
}

func TestSensitivityPlotsNothingToPlot(t *testing.T) {
	results := []sensitivity.BandResult{{Result: sampleResult("MF90", 93e9), Err: errors.New("failed")}}
	_, _, err := SensitivityPlots("x", results)
	assert.ErrorIs(t, err, ErrNothingToPlot)
	assert.ErrorIs(t, WritePlotPNG(&bytes.Buffer{}), ErrNothingToPlot)
}

func TestWriteChartHTML(t *testing.T) {
	results := []sensitivity.BandResult{
		{Result: sampleResult("MF90", 93e9)},
		{Result: sensitivity.SensitivityResult{Band: "LF27"}, Err: errors.New("failed")},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteChartHTML(&buf, "SmallApertureTelescope", "run-0001", reportTime, results))
	html := buf.String()

	assert.Contains(t, html, "SmallApertureTelescope sensitivity")
	assert.Contains(t, html, "run=run-0001 bands=2 2026-03-01T12:00:00Z")
	assert.Contains(t, html, "Noise-equivalent power")
	assert.Contains(t, html, "MF90")
	assert.Contains(t, html, "LF27")
	assert.NotContains(t, html, "NaN")
}

func TestWriterAll(t *testing.T) {
	calc, exp, results := runDefault(t)
	dir := t.TempDir()
	mem := fsutil.NewMemoryFileSystem()
	w := &Writer{FS: mem, Clock: timeutil.NewMockClock(reportTime), Dir: dir, Name: "Small Aperture/Telescope"}

	paths, err := w.All("run-0001", results, CollectOptics(calc, exp.Bands))
	require.NoError(t, err)

	want := []string{
		filepath.Join(dir, "Small_Aperture_Telescope_"+SuffixTable),
		filepath.Join(dir, "Small_Aperture_Telescope_"+SuffixOptics),
		filepath.Join(dir, "Small_Aperture_Telescope_"+SuffixPlot),
		filepath.Join(dir, "Small_Aperture_Telescope_"+SuffixHTML),
	}
	assert.Equal(t, want, paths)
	for _, p := range want {
		assert.True(t, mem.Exists(p), p)
	}

	data, err := mem.ReadFile(want[0])
	require.NoError(t, err)
	tbl, err := ParseTable(bytes.NewReader(data))
	require.NoError(t, err)
	require.Len(t, tbl.Rows, len(results))
	assert.Equal(t, "MF90", tbl.Rows[0].Band)

	html, err := mem.ReadFile(want[3])
	require.NoError(t, err)
	assert.Contains(t, string(html), "2026-03-01T12:00:00Z")
}

func TestWriterSkipsEmptyPlot(t *testing.T) {
	mem := fsutil.NewMemoryFileSystem()
	w := &Writer{FS: mem, Clock: timeutil.NewMockClock(reportTime), Dir: t.TempDir(), Name: "empty"}
	results := []sensitivity.BandResult{{Result: sensitivity.SensitivityResult{Band: "LF27"}, Err: errors.New("failed")}}

	paths, err := w.All("run-0002", results, nil)
	require.NoError(t, err)
	assert.Len(t, paths, 3)
	for _, p := range paths {
		assert.NotContains(t, p, SuffixPlot)
	}
}
