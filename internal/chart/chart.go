// Package chart draws bar charts of survey results on a terminal.
package chart

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/rewired-gh/trafficsurvey/internal/models"
)

// DefaultWidth is the length in characters of the longest bar.
const DefaultWidth = 50

// glyphs distinguish junctions in the hourly histogram, in legend order.
var glyphs = []rune{'█', '░', '▓', '▒'}

// Bar is one labelled value in a category chart.
type Bar struct {
	Label string
	Value int
}

// Renderer writes charts to a terminal
type Renderer struct {
	w     io.Writer
	width int
}

// New creates a Renderer. A width of zero or less uses DefaultWidth.
func New(w io.Writer, width int) *Renderer {
	if width <= 0 {
		width = DefaultWidth
	}
	return &Renderer{w: w, width: width}
}

// ReportBars selects the headline figures of a report for a category chart.
func ReportBars(report *models.Report) []Bar {
	return []Bar{
		{Label: "Trucks", Value: report.TruckCount},
		{Label: "Two-Wheelers", Value: report.TwoWheelCount},
		{Label: "Overspeed", Value: report.OverSpeedCount},
		{Label: "Bicycles (Avg/Hour)", Value: report.AvgBicyclesPerHour},
	}
}

// Categories draws one horizontal bar per label, scaled to the largest value.
func (r *Renderer) Categories(title string, bars []Bar) error {
	bw := bufio.NewWriter(r.w)

	fmt.Fprintf(bw, "%s\n%s\n", title, strings.Repeat("=", len([]rune(title))))

	labelWidth, maxValue := 0, 0
	for _, b := range bars {
		labelWidth = max(labelWidth, len(b.Label))
		maxValue = max(maxValue, b.Value)
	}
	if len(bars) == 0 {
		fmt.Fprintln(bw, "No data available to display.")
	}
	for _, b := range bars {
		fmt.Fprintf(bw, "%-*s | %s %d\n", labelWidth, b.Label, r.bar(glyphs[0], b.Value, maxValue), b.Value)
	}

	return bw.Flush()
}

// Hourly draws a 24-hour histogram with one bar per junction for every hour.
// All junctions share one scale so their bars can be compared.
func (r *Renderer) Hourly(title string, junctions []string, freq map[string][24]int) error {
	bw := bufio.NewWriter(r.w)

	fmt.Fprintf(bw, "%s\n%s\n", title, strings.Repeat("=", len([]rune(title))))

	maxValue := 0
	for i, j := range junctions {
		fmt.Fprintf(bw, "%c %s\n", glyph(i), j)
		for _, v := range freq[j] {
			maxValue = max(maxValue, v)
		}
	}
	fmt.Fprintln(bw)

	for hour := 0; hour < 24; hour++ {
		for i, j := range junctions {
			label := "  "
			if i == 0 {
				label = fmt.Sprintf("%02d", hour)
			}
			v := freq[j][hour]
			fmt.Fprintf(bw, "%s | %s %d\n", label, r.bar(glyph(i), v, maxValue), v)
		}
	}
	fmt.Fprintf(bw, "Hours (00:00 to 23:00)\n")

	return bw.Flush()
}

// bar returns a bar of up to r.width glyphs. Non-zero values always get at
// least one glyph so they stay visible next to zeros.
func (r *Renderer) bar(g rune, value, maxValue int) string {
	if value <= 0 || maxValue <= 0 {
		return ""
	}
	n := max(value*r.width/maxValue, 1)
	return strings.Repeat(string(g), n)
}

func glyph(i int) rune {
	return glyphs[i%len(glyphs)]
}
