package chart

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rewired-gh/trafficsurvey/internal/models"
)

func TestCategories(t *testing.T) {
	var buf bytes.Buffer
	r := New(&buf, 10)

	err := r.Categories("Traffic 15062024", []Bar{
		{Label: "Trucks", Value: 20},
		{Label: "Overspeed", Value: 5},
		{Label: "None", Value: 0},
	})
	if err != nil {
		t.Fatalf("Categories failed: %v", err)
	}

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	if len(lines) != 5 {
		t.Fatalf("expected 5 lines, got %d:\n%s", len(lines), buf.String())
	}
	if lines[0] != "Traffic 15062024" || lines[1] != strings.Repeat("=", 16) {
		t.Errorf("unexpected title block: %q %q", lines[0], lines[1])
	}
	if want := "Trucks    | " + strings.Repeat("█", 10) + " 20"; lines[2] != want {
		t.Errorf("got %q, want %q", lines[2], want)
	}
	if want := "Overspeed | " + strings.Repeat("█", 2) + " 5"; lines[3] != want {
		t.Errorf("got %q, want %q", lines[3], want)
	}
	if want := "None      |  0"; lines[4] != want {
		t.Errorf("got %q, want %q", lines[4], want)
	}
}

func TestCategories_AllZero(t *testing.T) {
	var buf bytes.Buffer
	if err := New(&buf, 0).Categories("Empty", ReportBars(&models.Report{})); err != nil {
		t.Fatalf("Categories failed: %v", err)
	}
	if strings.Contains(buf.String(), "█") {
		t.Errorf("zero values should draw no bars:\n%s", buf.String())
	}
}

func TestCategories_NoBars(t *testing.T) {
	var buf bytes.Buffer
	if err := New(&buf, 0).Categories("Nothing", nil); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "No data available") {
		t.Errorf("expected empty-data notice:\n%s", buf.String())
	}
}

func TestBarMinimumOneGlyph(t *testing.T) {
	r := New(&bytes.Buffer{}, 10)
	if got := r.bar('#', 1, 1000); got != "#" {
		t.Errorf("small non-zero value should draw one glyph, got %q", got)
	}
}

func TestReportBars(t *testing.T) {
	bars := ReportBars(&models.Report{TruckCount: 4, TwoWheelCount: 3, OverSpeedCount: 2, AvgBicyclesPerHour: 1})
	want := []Bar{
		{Label: "Trucks", Value: 4},
		{Label: "Two-Wheelers", Value: 3},
		{Label: "Overspeed", Value: 2},
		{Label: "Bicycles (Avg/Hour)", Value: 1},
	}
	if len(bars) != len(want) {
		t.Fatalf("expected %d bars, got %d", len(want), len(bars))
	}
	for i := range want {
		if bars[i] != want[i] {
			t.Errorf("bar %d = %+v, want %+v", i, bars[i], want[i])
		}
	}
}

func TestHourly(t *testing.T) {
	var a, b [24]int
	a[8] = 10
	b[8] = 5
	b[23] = 1

	var buf bytes.Buffer
	err := New(&buf, 10).Hourly("Histogram (15/06/2024)", []string{"Elm", "Hanley"}, map[string][24]int{
		"Elm":    a,
		"Hanley": b,
	})
	if err != nil {
		t.Fatalf("Hourly failed: %v", err)
	}

	out := buf.String()
	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	// title, underline, 2 legend lines, blank, 48 bars, axis label
	if len(lines) != 2+2+1+48+1 {
		t.Fatalf("unexpected line count %d:\n%s", len(lines), out)
	}
	if lines[2] != "█ Elm" || lines[3] != "░ Hanley" {
		t.Errorf("unexpected legend: %q %q", lines[2], lines[3])
	}

	hour8 := 5 + 8*2
	if want := "08 | " + strings.Repeat("█", 10) + " 10"; lines[hour8] != want {
		t.Errorf("got %q, want %q", lines[hour8], want)
	}
	if want := "   | " + strings.Repeat("░", 5) + " 5"; lines[hour8+1] != want {
		t.Errorf("got %q, want %q", lines[hour8+1], want)
	}
	if lines[len(lines)-1] != "Hours (00:00 to 23:00)" {
		t.Errorf("missing axis label, got %q", lines[len(lines)-1])
	}
}
