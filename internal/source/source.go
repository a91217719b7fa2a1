// Package source reads survey records for a date from CSV exports.
//
// Each survey date is one file, named from a pattern such as
// "traffic_data%s.csv" with the date in DDMMYYYY form. Columns are located by
// header name so extra columns and column order do not matter. Records are
// returned in file order, which the rain statistics depend on.
//
// Parsing fails fast: the first malformed row aborts the load with a
// *ParseError naming the line and column.
package source

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rewired-gh/trafficsurvey/internal/models"
)

// DefaultFilePattern is the survey export naming scheme.
const DefaultFilePattern = "traffic_data%s.csv"

// Column names in the survey export header.
const (
	ColJunction     = "JunctionName"
	ColTimeOfDay    = "timeOfDay"
	ColDirectionIn  = "travel_Direction_in"
	ColDirectionOut = "travel_Direction_out"
	ColWeather      = "Weather_Conditions"
	ColSpeedLimit   = "JunctionSpeedLimit"
	ColSpeed        = "VehicleSpeed"
	ColVehicleType  = "VehicleType"
	ColElectric     = "elctricHybrid" // spelled this way in the export
)

var requiredColumns = []string{
	ColJunction, ColTimeOfDay, ColDirectionIn, ColDirectionOut,
	ColWeather, ColSpeedLimit, ColSpeed, ColVehicleType,
}

// ErrNotFound is returned when no survey file exists for a date.
var ErrNotFound = errors.New("survey file not found")

// ParseError describes a malformed survey file.
type ParseError struct {
	File   string
	Line   int    // 1-based, header is line 1
	Column string // empty for row-level problems
	Err    error
}

func (e *ParseError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("%s:%d: column %s: %v", e.File, e.Line, e.Column, e.Err)
	}
	return fmt.Sprintf("%s:%d: %v", e.File, e.Line, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// CSV loads survey records from CSV files in a directory
type CSV struct {
	dir       string
	pattern   string
	junctions map[string]bool
}

// NewCSV creates a CSV source. An empty pattern uses DefaultFilePattern.
// When knownJunctions is non-empty, rows naming any other junction are rejected.
func NewCSV(dir, pattern string, knownJunctions []string) *CSV {
	if pattern == "" {
		pattern = DefaultFilePattern
	}
	var junctions map[string]bool
	if len(knownJunctions) > 0 {
		junctions = make(map[string]bool, len(knownJunctions))
		for _, j := range knownJunctions {
			junctions[j] = true
		}
	}
	return &CSV{dir: dir, pattern: pattern, junctions: junctions}
}

// Path returns the file that holds the records for date.
func (c *CSV) Path(date models.SurveyDate) string {
	return filepath.Join(c.dir, fmt.Sprintf(c.pattern, date.Compact()))
}

// Load reads all records for date in file order.
func (c *CSV) Load(ctx context.Context, date models.SurveyDate) ([]models.Record, error) {
	path := c.Path(date)
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("failed to open survey file: %w", err)
	}
	defer f.Close()

	return c.Read(ctx, filepath.Base(path), f)
}

// Read parses survey records from r. name is used in error messages.
func (c *CSV) Read(ctx context.Context, name string, r io.Reader) ([]models.Record, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, &ParseError{File: name, Line: 1, Err: errors.New("missing header row")}
	}
	if err != nil {
		return nil, &ParseError{File: name, Line: 1, Err: err}
	}

	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	for _, col := range requiredColumns {
		if _, ok := cols[col]; !ok {
			return nil, &ParseError{File: name, Line: 1, Column: col, Err: errors.New("missing required column")}
		}
	}

	var records []models.Record
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var csvErr *csv.ParseError
			if errors.As(err, &csvErr) {
				return nil, &ParseError{File: name, Line: csvErr.StartLine, Err: csvErr.Err}
			}
			return nil, &ParseError{File: name, Err: err}
		}
		line, _ := reader.FieldPos(0)
		if isBlank(row) {
			continue
		}

		rec, err := c.parseRow(row, cols)
		if err != nil {
			var pe *ParseError
			if errors.As(err, &pe) {
				pe.File, pe.Line = name, line
				return nil, pe
			}
			return nil, &ParseError{File: name, Line: line, Err: err}
		}
		records = append(records, rec)
	}

	return records, nil
}

func (c *CSV) parseRow(row []string, cols map[string]int) (models.Record, error) {
	field := func(col string) string {
		i, ok := cols[col]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var rec models.Record
	var err error

	rec.Junction = field(ColJunction)
	if c.junctions != nil && !c.junctions[rec.Junction] {
		return rec, &ParseError{Column: ColJunction, Err: fmt.Errorf("unknown junction %q", rec.Junction)}
	}

	if rec.VehicleType, err = models.ParseVehicleType(field(ColVehicleType)); err != nil {
		return rec, &ParseError{Column: ColVehicleType, Err: err}
	}
	if rec.SpeedLimit, err = strconv.Atoi(field(ColSpeedLimit)); err != nil {
		return rec, &ParseError{Column: ColSpeedLimit, Err: err}
	}
	if rec.Speed, err = strconv.Atoi(field(ColSpeed)); err != nil {
		return rec, &ParseError{Column: ColSpeed, Err: err}
	}
	if rec.Time, err = ParseTimeOfDay(field(ColTimeOfDay)); err != nil {
		return rec, &ParseError{Column: ColTimeOfDay, Err: err}
	}

	rec.DirectionIn = field(ColDirectionIn)
	rec.DirectionOut = field(ColDirectionOut)
	rec.Weather = field(ColWeather)
	rec.ElectricHybrid = strings.EqualFold(field(ColElectric), "true")

	if err := rec.Validate(); err != nil {
		return rec, err
	}
	return rec, nil
}

// ParseTimeOfDay parses HH:MM:SS or HH:MM.
func ParseTimeOfDay(s string) (models.TimeOfDay, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 && len(parts) != 3 {
		return models.TimeOfDay{}, fmt.Errorf("time %q must be HH:MM:SS", s)
	}

	nums := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return models.TimeOfDay{}, fmt.Errorf("time %q: %w", s, err)
		}
		nums[i] = n
	}

	t := models.TimeOfDay{Hour: nums[0], Minute: nums[1], Second: nums[2]}
	if err := t.Validate(); err != nil {
		return models.TimeOfDay{}, fmt.Errorf("time %q: %w", s, err)
	}
	return t, nil
}

func isBlank(row []string) bool {
	for _, f := range row {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
