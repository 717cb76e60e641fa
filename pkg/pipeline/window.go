package pipeline

import (
	"errors"
	"fmt"
	"time"
)

// WindowKind selects how a query window is specified.
type WindowKind int

const (
	// WindowToday queries the current day according to Config.Now.
	WindowToday WindowKind = iota
	// WindowDate queries a single calendar day.
	WindowDate
	// WindowMonth queries a whole month.
	WindowMonth
)

func (k WindowKind) String() string {
	switch k {
	case WindowToday:
		return "today"
	case WindowDate:
		return "date"
	case WindowMonth:
		return "month"
	default:
		return fmt.Sprintf("WindowKind(%d)", int(k))
	}
}

// Window is the requested query scope. Day is ignored for WindowMonth and
// all fields are ignored for WindowToday.
type Window struct {
	Kind  WindowKind
	Year  int
	Month int
	Day   int
}

// DateWindow returns a single-day window.
func DateWindow(year, month, day int) Window {
	return Window{Kind: WindowDate, Year: year, Month: month, Day: day}
}

// MonthWindow returns a whole-month window.
func MonthWindow(year, month int) Window {
	return Window{Kind: WindowMonth, Year: year, Month: month}
}

// TodayWindow returns a window resolved against the clock at run time.
func TodayWindow() Window {
	return Window{Kind: WindowToday}
}

// ResolvedWindow is a concrete window. Day is zero for a whole month.
type ResolvedWindow struct {
	Year  int
	Month int
	Day   int
}

// HasDay reports whether the window is a single day.
func (w ResolvedWindow) HasDay() bool {
	return w.Day != 0
}

// Label renders the window as YYYY-MM-DD or YYYY-MM.
func (w ResolvedWindow) Label() string {
	if w.HasDay() {
		return fmt.Sprintf("%04d-%02d-%02d", w.Year, w.Month, w.Day)
	}
	return fmt.Sprintf("%04d-%02d", w.Year, w.Month)
}

func (w ResolvedWindow) String() string {
	return w.Label()
}

// Resolve turns the window into concrete year, month and day values.
func (w Window) Resolve(now time.Time) (ResolvedWindow, error) {
	switch w.Kind {
	case WindowToday:
		return ResolvedWindow{Year: now.Year(), Month: int(now.Month()), Day: now.Day()}, nil
	case WindowMonth:
		if w.Month < 1 || w.Month > 12 {
			return ResolvedWindow{}, fmt.Errorf("month %d out of range 1-12", w.Month)
		}
		return ResolvedWindow{Year: w.Year, Month: w.Month}, nil
	case WindowDate:
		t := time.Date(w.Year, time.Month(w.Month), w.Day, 0, 0, 0, 0, time.UTC)
		if t.Year() != w.Year || int(t.Month()) != w.Month || t.Day() != w.Day {
			return ResolvedWindow{}, fmt.Errorf("invalid date %04d-%02d-%02d", w.Year, w.Month, w.Day)
		}
		return ResolvedWindow{Year: w.Year, Month: w.Month, Day: w.Day}, nil
	default:
		return ResolvedWindow{}, errors.New("unknown window kind")
	}
}
