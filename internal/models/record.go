// Package models defines the core domain entities for the traffic survey tool.
// These models represent observed vehicles, survey dates and the daily report
// computed from them. Records carry built-in validation so that malformed rows
// are rejected where they are parsed, never inside the aggregation.
//
// Terminology (matching the survey sheets):
//   - Junction: a named road intersection being surveyed.
//   - Record: one observed vehicle passing through a junction.
//   - Rain run: consecutive records, in file order, with a rain weather tag.
package models

import (
	"errors"
	"fmt"
)

// VehicleType is the vehicle category tag recorded by the survey.
type VehicleType string

const (
	VehicleTruck      VehicleType = "Truck"
	VehicleBicycle    VehicleType = "Bicycle"
	VehicleMotorcycle VehicleType = "Motorcycle"
	VehicleScooter    VehicleType = "Scooter"
	VehicleBus        VehicleType = "Bus"
	VehicleCar        VehicleType = "Car"
	VehicleVan        VehicleType = "Van"
	VehicleTaxi       VehicleType = "Taxi"
	VehicleOther      VehicleType = "Other"
)

// legacyBusTag is how buses are spelled in the survey export.
const legacyBusTag = "Buss"

// ParseVehicleType maps a raw survey tag to a VehicleType.
// Unknown non-empty tags are kept verbatim since the category set is open.
func ParseVehicleType(tag string) (VehicleType, error) {
	if tag == "" {
		return "", errors.New("vehicle type must not be empty")
	}
	if tag == legacyBusTag {
		return VehicleBus, nil
	}
	return VehicleType(tag), nil
}

// TwoWheeled reports whether the vehicle is a bicycle, motorcycle or scooter.
func (v VehicleType) TwoWheeled() bool {
	switch v {
	case VehicleBicycle, VehicleMotorcycle, VehicleScooter:
		return true
	}
	return false
}

// Weather tags that count as rain.
const (
	WeatherLightRain = "Light Rain"
	WeatherHeavyRain = "Heavy Rain"
)

// DirectionNorth is the compass code for northbound travel.
const DirectionNorth = "N"

// TimeOfDay is a wall-clock time within the survey date.
type TimeOfDay struct {
	Hour   int `json:"hour"`
	Minute int `json:"minute"`
	Second int `json:"second"`
}

// Minutes returns minutes since midnight. Seconds are ignored.
func (t TimeOfDay) Minutes() int {
	return t.Hour*60 + t.Minute
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", t.Hour, t.Minute, t.Second)
}

// Validate checks that the time is a real time of day
func (t TimeOfDay) Validate() error {
	if t.Hour < 0 || t.Hour > 23 {
		return errors.New("hour must be between 0 and 23")
	}
	if t.Minute < 0 || t.Minute > 59 {
		return errors.New("minute must be between 0 and 59")
	}
	if t.Second < 0 || t.Second > 59 {
		return errors.New("second must be between 0 and 59")
	}
	return nil
}

// Record represents a single vehicle observed at a junction.
// Records are immutable once parsed.
type Record struct {
	Junction       string      `json:"junction"`
	VehicleType    VehicleType `json:"vehicle_type"`
	ElectricHybrid bool        `json:"electric_hybrid"`
	DirectionIn    string      `json:"direction_in"`
	DirectionOut   string      `json:"direction_out"`
	SpeedLimit     int         `json:"speed_limit"`
	Speed          int         `json:"speed"`
	Time           TimeOfDay   `json:"time"`
	Weather        string      `json:"weather"`
}

// Validate checks that all record fields are valid.
func (r *Record) Validate() error {
	if r.Junction == "" {
		return errors.New("junction must not be empty")
	}
	if r.VehicleType == "" {
		return errors.New("vehicle type must not be empty")
	}
	if r.SpeedLimit < 0 {
		return errors.New("speed limit must not be negative")
	}
	if r.Speed < 0 {
		return errors.New("vehicle speed must not be negative")
	}
	if err := r.Time.Validate(); err != nil {
		return fmt.Errorf("invalid time of day: %w", err)
	}
	return nil
}

// IsRain reports whether the record was taken in light or heavy rain.
func (r *Record) IsRain() bool {
	return IsRainWeather(r.Weather)
}

// IsRainWeather reports whether a weather tag is a rain variant.
func IsRainWeather(weather string) bool {
	return weather == WeatherLightRain || weather == WeatherHeavyRain
}

// OverSpeed reports whether the vehicle was strictly faster than the limit.
func (r *Record) OverSpeed() bool {
	return r.Speed > r.SpeedLimit
}

// Straight reports whether the vehicle left in the direction it arrived from,
// i.e. it went through the junction without turning.
func (r *Record) Straight() bool {
	return r.DirectionIn == r.DirectionOut
}
