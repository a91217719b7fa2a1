// Package aggregator computes the daily traffic report from survey records.
//
// Aggregation is a single forward pass over the records in file order. Most
// statistics are predicate counts; the rain duration is order dependent:
//
//	rain run     = maximal block of consecutive rain records
//	run duration = max(timestamp) - min(timestamp) within the run
//
// A run is only measured when a non-rain record closes it. A run still open
// at the end of the records contributes nothing.
//
// An Aggregator holds only its options, so one instance can be shared across
// dates and goroutines. All running state lives in a per-call accumulator.
package aggregator

import (
	"math"

	"github.com/rewired-gh/trafficsurvey/internal/models"
)

// Default junction names used by the survey.
const (
	DefaultJunctionA = "Elm Avenue/Rabbit Road"
	DefaultJunctionB = "Hanley Highway/Westway"
)

// hoursPerDay is the fixed denominator for per-hour averages.
const hoursPerDay = 24

// Options selects the junctions the report is keyed on.
type Options struct {
	// JunctionA is the junction for bus, scooter and junction A counts.
	JunctionA string
	// JunctionB is the junction whose hourly counts and peak hour are reported.
	JunctionB string
}

// Aggregator builds reports from survey records
type Aggregator struct {
	opts Options
}

// New creates a new Aggregator. Empty junction names fall back to the defaults.
func New(opts Options) *Aggregator {
	if opts.JunctionA == "" {
		opts.JunctionA = DefaultJunctionA
	}
	if opts.JunctionB == "" {
		opts.JunctionB = DefaultJunctionB
	}
	return &Aggregator{opts: opts}
}

// Options returns the options the aggregator was built with.
func (a *Aggregator) Options() Options {
	return a.opts
}

// accumulator is the running state of one Aggregate call.
type accumulator struct {
	report models.Report
	rain   rainTracker
}

// Aggregate computes the report for one survey date. records must be in file
// order. Empty input yields a zeroed report. The records are not modified.
func (a *Aggregator) Aggregate(date models.SurveyDate, records []models.Record) models.Report {
	acc := accumulator{
		report: models.Report{
			Date:            date,
			JunctionA:       a.opts.JunctionA,
			JunctionB:       a.opts.JunctionB,
			HourlyJunctionB: models.NewHourlyCounts(),
		},
	}

	for i := range records {
		acc.add(&records[i], a.opts)
	}

	return acc.finish()
}

func (acc *accumulator) add(rec *models.Record, opts Options) {
	r := &acc.report
	r.Total++

	if rec.VehicleType == models.VehicleTruck {
		r.TruckCount++
	}
	if rec.ElectricHybrid {
		r.ElectricCount++
	}
	if rec.VehicleType.TwoWheeled() {
		r.TwoWheelCount++
	}
	if rec.VehicleType == models.VehicleBus &&
		rec.Junction == opts.JunctionA &&
		rec.DirectionOut == models.DirectionNorth {
		r.BusesNorthFromJunctionA++
	}
	if rec.Straight() {
		r.NoTurnCount++
	}
	if rec.VehicleType == models.VehicleBicycle {
		r.BicycleCount++
	}
	if rec.OverSpeed() {
		r.OverSpeedCount++
	}

	switch rec.Junction {
	case opts.JunctionA:
		r.JunctionACount++
		if rec.VehicleType == models.VehicleScooter {
			r.JunctionAScooterCount++
		}
	case opts.JunctionB:
		r.JunctionBCount++
		r.HourlyJunctionB.Inc(rec.Time.Hour)
	}

	acc.rain.observe(rec, &r.RainDuration)
}

func (acc *accumulator) finish() models.Report {
	r := acc.report

	if r.Total > 0 {
		r.TruckPercentage = roundHalfEven(float64(r.TruckCount*100) / float64(r.Total))
	}
	r.AvgBicyclesPerHour = roundHalfEven(float64(r.BicycleCount) / hoursPerDay)
	if r.JunctionACount > 0 {
		r.JunctionAScooterPercentage = r.JunctionAScooterCount * 100 / r.JunctionACount
	}

	if hour, count, ok := r.HourlyJunctionB.Peak(); ok {
		r.PeakHour = models.PeakHour{Hour: hour, Count: count}
	}

	return r
}

// roundHalfEven rounds to the nearest integer, ties to even (12/24 -> 0, 36/24 -> 2).
func roundHalfEven(v float64) int {
	return int(math.RoundToEven(v))
}

// rainTracker measures rain runs as the records stream past.
type rainTracker struct {
	previousWeather string
	run             []int // minutes since midnight
}

func (t *rainTracker) observe(rec *models.Record, total *models.RainDuration) {
	if rec.IsRain() {
		t.run = append(t.run, rec.Time.Minutes())
	} else if models.IsRainWeather(t.previousWeather) && len(t.run) > 0 {
		total.Add(span(t.run))
		t.run = t.run[:0]
	}
	t.previousWeather = rec.Weather
}

// span returns max - min of the timestamps. Records are not assumed to be
// sorted by time, so both ends are searched.
func span(minutes []int) int {
	lo, hi := minutes[0], minutes[0]
	for _, m := range minutes[1:] {
		lo = min(lo, m)
		hi = max(hi, m)
	}
	return hi - lo
}
