package docx

import "math"

// Unit conversions.
const (
	TwipsPerInch = 1440
	EMUPerInch   = 914400
	EMUPerTwip   = EMUPerInch / TwipsPerInch
)

// Twips converts inches to twips.
func Twips(inches float64) int {
	return int(math.Round(inches * TwipsPerInch))
}

// EMU converts inches to English Metric Units.
func EMU(inches float64) int64 {
	return int64(math.Round(inches * EMUPerInch))
}

// HalfPoints converts a point size to the half-point unit used by w:sz.
func HalfPoints(points float64) int {
	return int(math.Round(points * 2))
}

// PageSettings describes page geometry in twips and the default run font.
type PageSettings struct {
	Width        int
	Height       int
	MarginTop    int
	MarginBottom int
	MarginLeft   int
	MarginRight  int
	FontName     string
	FontSize     int
}

// LetterPage is US Letter with the tight margins a one-page memo needs.
func LetterPage() PageSettings {
	return PageSettings{
		Width:        Twips(8.5),
		Height:       Twips(11),
		MarginTop:    Twips(0.3),
		MarginBottom: Twips(0.3),
		MarginLeft:   Twips(0.5),
		MarginRight:  Twips(0.5),
		FontName:     "Calibri",
		FontSize:     HalfPoints(11),
	}
}

// ContentWidth is the printable width in twips.
func (p PageSettings) ContentWidth() int {
	return p.Width - p.MarginLeft - p.MarginRight
}

// ContentWidthEMU is the printable width in EMUs, used to scale images.
func (p PageSettings) ContentWidthEMU() int64 {
	return int64(p.ContentWidth()) * EMUPerTwip
}
