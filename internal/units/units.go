// Package units provides the fixed display scale factors applied to SI values
// at output time, and the inverse conversions used when reading configuration.
package units

import "math"

// Scale factors, applied multiplicatively to an SI value to obtain the
// display unit.
const (
	GHz            = 1e-9  // Hz -> GHz
	MM             = 1e3   // m -> mm
	Percent        = 1e2   // fraction -> %
	PW             = 1e12  // W -> pW
	AWRtHz         = 1e18  // W/rtHz -> aW/rtHz
	UKRtS          = 1e6   // K rt(s) -> uK rt(s)
	UKArcmin       = 1e6   // K-arcmin -> uK-arcmin
	InvUK2S        = 1e-12 // (K^2 s)^-1 -> (uK^2 s)^-1
	PARtHz         = 1e12  // A/rtHz -> pA/rtHz
	SecondsPerYear = 365.25 * 24 * 3600
)

// Unit labels as printed in table headers.
const (
	LabelGHz      = "GHz"
	LabelMM       = "mm"
	LabelPercent  = "%"
	LabelDB       = "dB"
	LabelPW       = "pW"
	LabelAWRtHz   = "aW/rtHz"
	LabelUKRtS    = "uK-rts"
	LabelUKArcmin = "uK-arcmin"
	LabelInvUK2S  = "(uK^2 s)^-1"
)

// ToDisplay converts an SI value to display units.
func ToDisplay(si, scale float64) float64 { return si * scale }

// FromDisplay converts a display value back to SI.
func FromDisplay(v, scale float64) float64 { return v / scale }

// EdgeTaper returns the edge taper [dB] at the aperture stop for an aperture
// efficiency apEff (fraction): 10*log10(1-apEff). It is NaN outside [0, 1).
func EdgeTaper(apEff float64) float64 {
	if !(apEff >= 0 && apEff < 1) {
		return math.NaN()
	}
	return 10 * math.Log10(1-apEff)
}

// YearsToSeconds converts an observing time in years to seconds.
func YearsToSeconds(years float64) float64 { return years * SecondsPerYear }
