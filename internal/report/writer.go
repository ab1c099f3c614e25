package report

import (
	"errors"
	"fmt"
	"io"

	"github.com/banshee-data/sensitivity.report/internal/fsutil"
	"github.com/banshee-data/sensitivity.report/internal/monitoring"
	"github.com/banshee-data/sensitivity.report/internal/security"
	"github.com/banshee-data/sensitivity.report/internal/sensitivity"
	"github.com/banshee-data/sensitivity.report/internal/timeutil"
)

// Output file suffixes, appended to the sanitised experiment name.
const (
	SuffixTable  = "SensitivityTable.txt"
	SuffixOptics = "OpticalPowerTable.txt"
	SuffixPlot   = "Sensitivity.png"
	SuffixHTML   = "Report.html"
)

// Writer writes report files for one experiment into Dir. Clock stamps the
// HTML report.
type Writer struct {
	FS    fsutil.FileSystem
	Clock timeutil.Clock
	Dir   string
	Name  string
}

// NewWriter returns a Writer on the OS filesystem and clock.
func NewWriter(dir, name string) *Writer {
	return &Writer{FS: fsutil.OSFileSystem{}, Clock: timeutil.RealClock{}, Dir: dir, Name: name}
}

// create makes the output directory, validates the file path and writes the
// file through fn. It returns the path written.
func (w *Writer) create(suffix string, fn func(io.Writer) error) (string, error) {
	if err := w.FS.MkdirAll(w.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	path, err := security.OutputPath(w.Dir, w.Name, suffix)
	if err != nil {
		return "", err
	}
	f, err := w.FS.Create(path)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", path, err)
	}
	if err := fn(f); err != nil {
		f.Close()
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", path, err)
	}
	monitoring.Debugf("wrote %s", path)
	return path, nil
}

// Table writes the sensitivity table.
func (w *Writer) Table(results []sensitivity.BandResult) (string, error) {
	return w.create(SuffixTable, func(out io.Writer) error { return WriteTable(out, results) })
}

// Optics writes the optical power table.
func (w *Writer) Optics(bands []OpticsBand) (string, error) {
	return w.create(SuffixOptics, func(out io.Writer) error { return WriteOpticsTable(out, bands) })
}

// Plot writes the NET and mapping speed figure.
func (w *Writer) Plot(results []sensitivity.BandResult) (string, error) {
	net, ms, err := SensitivityPlots(w.Name, results)
	if err != nil {
		return "", err
	}
	return w.create(SuffixPlot, func(out io.Writer) error { return WritePlotPNG(out, net, ms) })
}

// HTML writes the chart page.
func (w *Writer) HTML(runID string, results []sensitivity.BandResult) (string, error) {
	clock := w.Clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	generated := clock.Now()
	return w.create(SuffixHTML, func(out io.Writer) error {
		return WriteChartHTML(out, w.Name, runID, generated, results)
	})
}

// All writes the sensitivity table, the optics table, the figure and the
// chart page. A figure with nothing to plot is skipped; other failures stop
// the remaining writes.
func (w *Writer) All(runID string, results []sensitivity.BandResult, bands []OpticsBand) ([]string, error) {
	var paths []string
	steps := []func() (string, error){
		func() (string, error) { return w.Table(results) },
		func() (string, error) { return w.Optics(bands) },
		func() (string, error) { return w.Plot(results) },
		func() (string, error) { return w.HTML(runID, results) },
	}
	for _, step := range steps {
		p, err := step()
		if errors.Is(err, ErrNothingToPlot) {
			monitoring.Logf("run %s: %v", runID, err)
			continue
		}
		if err != nil {
			return paths, err
		}
		paths = append(paths, p)
	}
	return paths, nil
}
