// Package pedestrian models hourly pedestrian sensor readings and the fixed
// CSV schema they are stored in.
package pedestrian

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrSchemaMismatch indicates data that does not fit the 10-column record schema.
var ErrSchemaMismatch = errors.New("schema mismatch")

// Column positions of the fixed schema.
const (
	ColID = iota
	ColDateTime
	ColYear
	ColMonth
	ColDay
	ColWeekday
	ColHour
	ColSensorID
	ColSensorName
	ColHourlyCount

	// NumColumns is the number of columns in the schema.
	NumColumns
)

// HoursPerDay is the number of hourly readings a sensor produces per day.
const HoursPerDay = 24

// Columns holds the header names of the schema in positional order.
var Columns = [NumColumns]string{
	ColID:          "ID",
	ColDateTime:    "Date_Time",
	ColYear:        "Year",
	ColMonth:       "Month",
	ColDay:         "Mdate",
	ColWeekday:     "Day",
	ColHour:        "Time",
	ColSensorID:    "Sensor_ID",
	ColSensorName:  "Sensor_Name",
	ColHourlyCount: "Hourly_Counts",
}

// Record is one hourly observation from one sensor.
type Record struct {
	ID          int64
	DateTime    string
	Year        int
	Month       string
	Day         int
	Weekday     string
	Hour        int
	SensorID    int
	SensorName  string
	HourlyCount int64
}

// RecordSet is a collection of records. Order carries no meaning.
type RecordSet []Record

// ParseRow parses a positional row in schema order.
func ParseRow(fields []string) (Record, error) {
	if len(fields) != NumColumns {
		return Record{}, fmt.Errorf("%w: expected %d fields, got %d", ErrSchemaMismatch, NumColumns, len(fields))
	}
	return parse(func(col int) string { return fields[col] })
}

func parse(field func(col int) string) (Record, error) {
	var (
		r   Record
		err error
	)

	if r.ID, err = parseInt64(field, ColID); err != nil {
		return Record{}, err
	}
	r.DateTime = field(ColDateTime)
	if r.Year, err = parseInt(field, ColYear); err != nil {
		return Record{}, err
	}
	month, err := CanonicalMonth(field(ColMonth))
	if err != nil {
		return Record{}, fmt.Errorf("%w: %w", ErrSchemaMismatch, err)
	}
	r.Month = month
	if r.Day, err = parseInt(field, ColDay); err != nil {
		return Record{}, err
	}
	if r.Day < 1 || r.Day > 31 {
		return Record{}, fmt.Errorf("%w: %s %d out of range 1-31", ErrSchemaMismatch, Columns[ColDay], r.Day)
	}
	r.Weekday = strings.TrimSpace(field(ColWeekday))
	if r.Hour, err = parseInt(field, ColHour); err != nil {
		return Record{}, err
	}
	if r.Hour < 0 || r.Hour >= HoursPerDay {
		return Record{}, fmt.Errorf("%w: %s %d out of range 0-23", ErrSchemaMismatch, Columns[ColHour], r.Hour)
	}
	if r.SensorID, err = parseInt(field, ColSensorID); err != nil {
		return Record{}, err
	}
	r.SensorName = field(ColSensorName)
	if r.HourlyCount, err = parseInt64(field, ColHourlyCount); err != nil {
		return Record{}, err
	}
	if r.HourlyCount < 0 {
		return Record{}, fmt.Errorf("%w: negative %s %d", ErrSchemaMismatch, Columns[ColHourlyCount], r.HourlyCount)
	}
	return r, nil
}

func parseInt64(field func(col int) string, col int) (int64, error) {
	s := strings.TrimSpace(field(col))
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: parse %s %q: %w", ErrSchemaMismatch, Columns[col], s, err)
	}
	return v, nil
}

func parseInt(field func(col int) string, col int) (int, error) {
	v, err := parseInt64(field, col)
	if err != nil {
		return 0, err
	}
	return int(v), nil
}

// IsHeader reports whether a positional row is the schema header.
func IsHeader(fields []string) bool {
	if len(fields) != NumColumns {
		return false
	}
	for i, name := range Columns {
		if !strings.EqualFold(strings.TrimSpace(fields[i]), name) {
			return false
		}
	}
	return true
}
