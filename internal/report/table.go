// Package report writes sensitivity results as fixed-width text tables, PNG
// figures and an HTML chart page.
package report

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/banshee-data/sensitivity.report/internal/sensitivity"
	"github.com/banshee-data/sensitivity.report/internal/units"
)

// NA is printed for a value that is undefined or could not be computed.
const NA = "NA"

// Column is one numeric column of the sensitivity table. Value returns the
// SI quantity; Scale converts it to Unit for printing with Prec decimals.
type Column struct {
	Name  string
	Unit  string
	Scale float64
	Prec  int
	Value func(sensitivity.SensitivityResult) float64
}

// Columns is the layout of the sensitivity table, after the band name.
var Columns = []Column{
	{"Freq", units.LabelGHz, units.GHz, 1, func(r sensitivity.SensitivityResult) float64 { return r.Centre }},
	{"FBW", "", 1, 2, func(r sensitivity.SensitivityResult) float64 { return r.FBW }},
	{"PixSize", units.LabelMM, units.MM, 1, func(r sensitivity.SensitivityResult) float64 { return r.PixelSize }},
	{"NumDet", "", 1, 0, func(r sensitivity.SensitivityResult) float64 { return r.NumDetectors }},
	{"ApertureEff", units.LabelPercent, units.Percent, 2, func(r sensitivity.SensitivityResult) float64 { return r.ApertureEff }},
	{"EdgeTaper", units.LabelDB, 1, 2, func(r sensitivity.SensitivityResult) float64 { return units.EdgeTaper(r.ApertureEff) }},
	{"Popt", units.LabelPW, units.PW, 2, func(r sensitivity.SensitivityResult) float64 { return r.Popt.Mean }},
	{"NEP_photon", units.LabelAWRtHz, units.AWRtHz, 2, func(r sensitivity.SensitivityResult) float64 { return r.NEPPhoton.Mean }},
	{"NEP_bolo", units.LabelAWRtHz, units.AWRtHz, 2, func(r sensitivity.SensitivityResult) float64 { return r.NEPBolometer.Mean }},
	{"NEP_readout", units.LabelAWRtHz, units.AWRtHz, 2, func(r sensitivity.SensitivityResult) float64 { return r.NEPReadout.Mean }},
	{"NEP_total", units.LabelAWRtHz, units.AWRtHz, 2, func(r sensitivity.SensitivityResult) float64 { return r.NEPTotal.Mean }},
	{"NET_det", units.LabelUKRtS, units.UKRtS, 2, func(r sensitivity.SensitivityResult) float64 { return r.NETDetector.Mean }},
	{"NET_array", units.LabelUKRtS, units.UKRtS, 2, func(r sensitivity.SensitivityResult) float64 { return r.NETArray.Mean }},
	{"MappingSpeed", units.LabelInvUK2S, units.InvUK2S, 4, func(r sensitivity.SensitivityResult) float64 { return r.MappingSpeed.Mean }},
	{"Sensitivity", units.LabelUKArcmin, units.UKArcmin, 2, func(r sensitivity.SensitivityResult) float64 { return r.Sensitivity.Mean }},
}

// identityColumns are printed even for a band that failed.
const identityColumns = 4

const (
	bandHeader = "Band"
	minWidth   = 12
)

// ErrMalformedTable is returned by ParseTable for input that does not have
// the two header rows and a consistent column count.
var ErrMalformedTable = errors.New("malformed sensitivity table")

func unitCell(u string) string {
	if u == "" {
		return "[-]"
	}
	return "[" + strings.ReplaceAll(u, " ", "") + "]"
}

func columnWidth(c Column) int {
	w := minWidth
	if n := len(c.Name) + 2; n > w {
		w = n
	}
	if n := len(unitCell(c.Unit)) + 2; n > w {
		w = n
	}
	return w
}

// FormatValue prints an SI value in display units, or NA when it is not
// finite.
func FormatValue(si, scale float64, prec int) string {
	v := units.ToDisplay(si, scale)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return NA
	}
	return strconv.FormatFloat(v, 'f', prec, 64)
}

// WriteTable writes one row per band result. A band that failed keeps its
// identity columns and has NA in every computed column. Columns widen to
// fit their widest cell and are always separated by at least one space.
func WriteTable(w io.Writer, results []sensitivity.BandResult) error {
	nameWidth := len(bandHeader)
	for _, br := range results {
		if n := len(rowName(br)); n > nameWidth {
			nameWidth = n
		}
	}
	nameWidth += 2

	widths := make([]int, len(Columns))
	for i, c := range Columns {
		widths[i] = columnWidth(c)
	}
	cells := make([][]string, len(results))
	for r, br := range results {
		cells[r] = make([]string, len(Columns))
		for i, c := range Columns {
			cell := NA
			if br.Err == nil || i < identityColumns {
				cell = FormatValue(c.Value(br.Result), c.Scale, c.Prec)
			}
			cells[r][i] = cell
			if n := len(cell) + 2; n > widths[i] {
				widths[i] = n
			}
		}
	}

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%-*s", nameWidth, bandHeader)
	for i, c := range Columns {
		fmt.Fprintf(bw, " %*s", widths[i]-1, c.Name)
	}
	fmt.Fprintf(bw, "\n%-*s", nameWidth, "")
	for i, c := range Columns {
		fmt.Fprintf(bw, " %*s", widths[i]-1, unitCell(c.Unit))
	}
	bw.WriteString("\n")

	for r, br := range results {
		fmt.Fprintf(bw, "%-*s", nameWidth, rowName(br))
		for i := range Columns {
			fmt.Fprintf(bw, " %*s", widths[i]-1, cells[r][i])
		}
		bw.WriteString("\n")
	}
	return bw.Flush()
}

func rowName(br sensitivity.BandResult) string {
	name := br.Result.Band
	if name == "" {
		name = br.Band.Name
	}
	name = strings.Join(strings.Fields(name), "_")
	if name == "" {
		return NA
	}
	return name
}

// Table is a parsed sensitivity table. Values are in display units; NA cells
// parse as NaN.
type Table struct {
	Columns []string
	Units   []string
	Rows    []Row
}

// Row is one band of a parsed table.
type Row struct {
	Band   string
	Values []float64
}

// Value returns the named column of row i, or NaN when the table has no such
// column.
func (t Table) Value(i int, column string) float64 {
	for k, c := range t.Columns {
		if c == column {
			return t.Rows[i].Values[k]
		}
	}
	return math.NaN()
}

// ParseTable reads a table written by WriteTable.
func ParseTable(r io.Reader) (Table, error) {
	sc := bufio.NewScanner(r)
	var lines [][]string
	for sc.Scan() {
		if f := strings.Fields(sc.Text()); len(f) > 0 {
			lines = append(lines, f)
		}
	}
	if err := sc.Err(); err != nil {
		return Table{}, err
	}
	if len(lines) < 2 || lines[0][0] != bandHeader {
		return Table{}, fmt.Errorf("%w: missing header rows", ErrMalformedTable)
	}

	t := Table{Columns: lines[0][1:], Units: lines[1]}
	if len(t.Units) != len(t.Columns) {
		return Table{}, fmt.Errorf("%w: %d units for %d columns", ErrMalformedTable, len(t.Units), len(t.Columns))
	}
	for i, u := range t.Units {
		t.Units[i] = strings.TrimSuffix(strings.TrimPrefix(u, "["), "]")
		if t.Units[i] == "-" {
			t.Units[i] = ""
		}
	}

	for n, f := range lines[2:] {
		if len(f) != len(t.Columns)+1 {
			return Table{}, fmt.Errorf("%w: row %d has %d cells, want %d", ErrMalformedTable, n+1, len(f), len(t.Columns)+1)
		}
		row := Row{Band: f[0], Values: make([]float64, len(t.Columns))}
		for k, cell := range f[1:] {
			if cell == NA {
				row.Values[k] = math.NaN()
				continue
			}
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return Table{}, fmt.Errorf("%w: row %d column %s: %v", ErrMalformedTable, n+1, t.Columns[k], err)
			}
			row.Values[k] = v
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}
