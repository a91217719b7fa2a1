package models

import (
	"errors"
	"fmt"
	"strconv"
)

// SurveyDate identifies the day a survey file was recorded.
type SurveyDate struct {
	Day   int `json:"day"`
	Month int `json:"month"`
	Year  int `json:"year"`
}

// ErrInvalidDate is returned for dates that are not DDMMYYYY or are out of range.
var ErrInvalidDate = errors.New("invalid survey date")

// ParseSurveyDate parses a DDMMYYYY string, accepting years in [minYear, maxYear].
func ParseSurveyDate(s string, minYear, maxYear int) (SurveyDate, error) {
	if len(s) != 8 {
		return SurveyDate{}, fmt.Errorf("%w: %q must have 8 digits", ErrInvalidDate, s)
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return SurveyDate{}, fmt.Errorf("%w: %q must contain only digits", ErrInvalidDate, s)
		}
	}

	day, _ := strconv.Atoi(s[0:2])
	month, _ := strconv.Atoi(s[2:4])
	year, _ := strconv.Atoi(s[4:8])

	d := SurveyDate{Day: day, Month: month, Year: year}
	if err := d.validate(minYear, maxYear); err != nil {
		return SurveyDate{}, err
	}
	return d, nil
}

func (d SurveyDate) validate(minYear, maxYear int) error {
	if d.Day < 1 || d.Day > 31 {
		return fmt.Errorf("%w: day must be between 1 and 31", ErrInvalidDate)
	}
	if d.Month < 1 || d.Month > 12 {
		return fmt.Errorf("%w: month must be between 1 and 12", ErrInvalidDate)
	}
	if d.Year < minYear || d.Year > maxYear {
		return fmt.Errorf("%w: year must be between %d and %d", ErrInvalidDate, minYear, maxYear)
	}
	return nil
}

// Compact returns the date as DDMMYYYY, the form used in file names.
func (d SurveyDate) Compact() string {
	return fmt.Sprintf("%02d%02d%04d", d.Day, d.Month, d.Year)
}

// String returns the date as DD/MM/YYYY.
func (d SurveyDate) String() string {
	return fmt.Sprintf("%02d/%02d/%04d", d.Day, d.Month, d.Year)
}
