package report

import (
	"bufio"
	"fmt"
	"io"

	"github.com/banshee-data/sensitivity.report/internal/sensitivity"
	"github.com/banshee-data/sensitivity.report/internal/units"
)

// OpticsBand is the optical loading of one band: the per-element breakdown
// over every cell and the power split of its nominal cell. Err is set when
// either could not be computed.
type OpticsBand struct {
	Name     string
	Elements []sensitivity.ElementStats
	Split    sensitivity.SplitResult
	Err      error
}

// CollectOptics evaluates the element breakdown and power split of each band.
func CollectOptics(c *sensitivity.Calculator, bands []sensitivity.Band) []OpticsBand {
	out := make([]OpticsBand, len(bands))
	for i, b := range bands {
		out[i].Name = b.Name
		elems, err := c.OpticalBreakdown(b)
		if err != nil {
			out[i].Err = err
			continue
		}
		split, err := c.Split(b)
		if err != nil {
			out[i].Err = err
			continue
		}
		out[i].Elements, out[i].Split = elems, split
	}
	return out
}

var opticsColumns = []string{"Element", "SkySide", "+/-", "DetSide", "+/-", "CumEff"}
var opticsUnits = []string{"", "[" + units.LabelPW + "]", "[" + units.LabelPW + "]", "[" + units.LabelPW + "]", "[" + units.LabelPW + "]", "[" + units.LabelPercent + "]"}

// WriteOpticsTable writes one block per band: the element loading table
// followed by the sky, receiver and HWP split and the electrothermal factor.
func WriteOpticsTable(w io.Writer, bands []OpticsBand) error {
	bw := bufio.NewWriter(w)
	for n, b := range bands {
		if n > 0 {
			bw.WriteString("\n")
		}
		fmt.Fprintf(bw, "# %s\n", b.Name)
		if b.Err != nil {
			fmt.Fprintf(bw, "# %s: %v\n", NA, b.Err)
			continue
		}

		nameWidth := minWidth
		for _, e := range b.Elements {
			if len(e.Name)+2 > nameWidth {
				nameWidth = len(e.Name) + 2
			}
		}
		fmt.Fprintf(bw, "%-*s", nameWidth, opticsColumns[0])
		for _, c := range opticsColumns[1:] {
			fmt.Fprintf(bw, " %*s", minWidth-1, c)
		}
		fmt.Fprintf(bw, "\n%-*s", nameWidth, opticsUnits[0])
		for _, u := range opticsUnits[1:] {
			fmt.Fprintf(bw, " %*s", minWidth-1, u)
		}
		bw.WriteString("\n")

		for _, e := range b.Elements {
			fmt.Fprintf(bw, "%-*s %*s %*s %*s %*s %*s\n", nameWidth, e.Name,
				minWidth-1, FormatValue(e.SkySide.Mean, units.PW, 4),
				minWidth-1, FormatValue(e.SkySide.Std, units.PW, 4),
				minWidth-1, FormatValue(e.DetectorSide.Mean, units.PW, 4),
				minWidth-1, FormatValue(e.DetectorSide.Std, units.PW, 4),
				minWidth-1, FormatValue(e.Efficiency.Mean, units.Percent, 2))
		}

		s := b.Split
		fmt.Fprintf(bw, "Popt[%s] sky=%s receiver=%s hwp=%s total=%s\n", units.LabelPW,
			FormatValue(s.Sky, units.PW, 4),
			FormatValue(s.Receiver, units.PW, 4),
			FormatValue(s.HWP, units.PW, 4),
			FormatValue(s.Total, units.PW, 4))
		fmt.Fprintf(bw, "Eff[%s] total=%s receiver=%s hwp=%s\n", units.LabelPercent,
			FormatValue(s.TotalEff, units.Percent, 2),
			FormatValue(s.ReceiverEff, units.Percent, 2),
			FormatValue(s.HWPEff, units.Percent, 2))
		fmt.Fprintf(bw, "ETF=%s\n", FormatValue(s.ETF, 1, 2))
	}
	return bw.Flush()
}
