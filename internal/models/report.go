package models

import (
	"errors"
	"fmt"
	"strconv"
)

// PeakHour is the busiest hour at a junction and its vehicle count.
type PeakHour struct {
	Hour  int `json:"hour"`
	Count int `json:"count"`
}

// Window renders the one-hour window starting at the peak hour.
func (p PeakHour) Window() string {
	return fmt.Sprintf("Between %02d:00 and %02d:00", p.Hour, p.Hour+1)
}

// Report holds the statistics computed from one survey date.
// A Report is built once by the aggregator and never modified afterwards.
type Report struct {
	Date      SurveyDate `json:"date"`
	JunctionA string     `json:"junction_a"`
	JunctionB string     `json:"junction_b"`

	Total                   int `json:"total"`
	TruckCount              int `json:"truck_count"`
	ElectricCount           int `json:"electric_count"`
	TwoWheelCount           int `json:"two_wheel_count"`
	BusesNorthFromJunctionA int `json:"buses_north_from_junction_a"`
	NoTurnCount             int `json:"no_turn_count"`
	BicycleCount            int `json:"bicycle_count"`
	OverSpeedCount          int `json:"over_speed_count"`
	JunctionACount          int `json:"junction_a_count"`
	JunctionBCount          int `json:"junction_b_count"`
	JunctionAScooterCount   int `json:"junction_a_scooter_count"`

	TruckPercentage            int `json:"truck_percentage"`              // rounded half to even
	AvgBicyclesPerHour         int `json:"avg_bicycles_per_hour"`         // over a fixed 24 hours
	JunctionAScooterPercentage int `json:"junction_a_scooter_percentage"` // truncated

	HourlyJunctionB HourlyCounts `json:"hourly_junction_b"`
	PeakHour        PeakHour     `json:"peak_hour"`
	RainDuration    RainDuration `json:"rain_duration"`
}

// Validate checks the internal consistency of a report
func (r *Report) Validate() error {
	if r.Total < 0 {
		return errors.New("total must not be negative")
	}
	counts := map[string]int{
		"truck count":         r.TruckCount,
		"electric count":      r.ElectricCount,
		"two-wheel count":     r.TwoWheelCount,
		"no-turn count":       r.NoTurnCount,
		"bicycle count":       r.BicycleCount,
		"over-speed count":    r.OverSpeedCount,
		"junction A count":    r.JunctionACount,
		"junction B count":    r.JunctionBCount,
		"junction A scooters": r.JunctionAScooterCount,
		"buses north from A":  r.BusesNorthFromJunctionA,
		"peak hour count":     r.PeakHour.Count,
	}
	for name, c := range counts {
		if c < 0 || c > r.Total {
			return fmt.Errorf("%s must be between 0 and total (%d), got %d", name, r.Total, c)
		}
	}
	if r.TruckPercentage < 0 || r.TruckPercentage > 100 {
		return errors.New("truck percentage must be between 0 and 100")
	}
	if r.JunctionAScooterPercentage < 0 || r.JunctionAScooterPercentage > 100 {
		return errors.New("junction A scooter percentage must be between 0 and 100")
	}
	if r.RainDuration.Minutes < 0 || r.RainDuration.Minutes > 59 {
		return errors.New("rain minutes must be between 0 and 59")
	}
	return nil
}

// Lines renders the report as the fixed list of result sentences.
func (r *Report) Lines() []string {
	return []string{
		"The total number of vehicles recorded for this date is " + strconv.Itoa(r.Total),
		"The total number of trucks recorded for this date is " + strconv.Itoa(r.TruckCount),
		"The total number of electric vehicles for this date is " + strconv.Itoa(r.ElectricCount),
		"The total number of two-wheeled vehicles for this date is " + strconv.Itoa(r.TwoWheelCount),
		fmt.Sprintf("The total number of Buses leaving %s heading North is %d", r.JunctionA, r.BusesNorthFromJunctionA),
		"The total number of vehicles through both junctions not turning left or right is " + strconv.Itoa(r.NoTurnCount),
		fmt.Sprintf("The percentage of all vehicles recorded that are Trucks for this date is %d%%", r.TruckPercentage),
		"The average number of Bikes per hour for this date is " + strconv.Itoa(r.AvgBicyclesPerHour),
		"The total number of vehicles recorded as over the speed limit for this date is " + strconv.Itoa(r.OverSpeedCount),
		fmt.Sprintf("The total number of vehicles recorded through %s junction is %d", r.JunctionA, r.JunctionACount),
		fmt.Sprintf("The total number of vehicles recorded through %s junction is %d", r.JunctionB, r.JunctionBCount),
		fmt.Sprintf("%d%% of vehicles recorded through %s are scooters.", r.JunctionAScooterPercentage, r.JunctionA),
		fmt.Sprintf("The highest number of vehicles in an hour on %s is %d", r.JunctionB, r.PeakHour.Count),
		fmt.Sprintf("The most vehicles through %s were recorded %s", r.JunctionB, r.PeakHour.Window()),
		"The number of hours of rain for this date is " + r.RainDuration.String(),
	}
}

// Header is the line written above a report in the results file.
func (r *Report) Header() string {
	return fmt.Sprintf("***** Results for %s *****", r.Date)
}

// SpeedProfile summarizes observed speeds at one junction.
type SpeedProfile struct {
	Junction        string  `json:"junction"`
	Count           int     `json:"count"`
	MeanSpeed       float64 `json:"mean_speed"`
	StdDevSpeed     float64 `json:"std_dev_speed"`
	OverSpeedCount  int     `json:"over_speed_count"`
	MeanExcessSpeed float64 `json:"mean_excess_speed"` // over-speed vehicles only
}

func (p SpeedProfile) String() string {
	if p.Count == 0 {
		return fmt.Sprintf("No speeds recorded through %s", p.Junction)
	}
	s := fmt.Sprintf("Speeds through %s: mean %.1f, std dev %.1f (%d vehicles), ",
		p.Junction, p.MeanSpeed, p.StdDevSpeed, p.Count)
	if p.OverSpeedCount == 0 {
		return s + "none over the limit"
	}
	return s + fmt.Sprintf("%d over the limit by %.1f on average", p.OverSpeedCount, p.MeanExcessSpeed)
}
