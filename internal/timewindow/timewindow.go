// Package timewindow computes "logical day" boundaries. A logical day starts at a
// configured cutover hour instead of midnight, and weeks and months are built from
// logical days. Every duration sum in the application buckets records with these
// windows, so the live path, the archival path and the reporting path agree.
package timewindow

import (
	"fmt"
	"time"
)

// DefaultCutoverHour is the hour of day at which a new logical day begins.
const DefaultCutoverHour = 3

// Window is a half-open interval [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls in [Start, End).
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// Duration returns the length of the window.
func (w Window) Duration() time.Duration {
	return w.End.Sub(w.Start)
}

// Calculator anchors windows at a cutover hour in a fixed location.
type Calculator struct {
	hour int
	loc  *time.Location
}

// New creates a Calculator. hour must be within [0, 23]; a nil location means time.Local.
func New(hour int, loc *time.Location) (Calculator, error) {
	if hour < 0 || hour > 23 {
		return Calculator{}, fmt.Errorf("cutover hour must be within [0, 23], got %d", hour)
	}
	if loc == nil {
		loc = time.Local
	}
	return Calculator{hour: hour, loc: loc}, nil
}

// Default returns a Calculator for DefaultCutoverHour in the local zone.
func Default() Calculator {
	return Calculator{hour: DefaultCutoverHour, loc: time.Local}
}

// Hour returns the cutover hour.
func (c Calculator) Hour() int { return c.hour }

// Location returns the zone the boundaries are computed in.
func (c Calculator) Location() *time.Location {
	if c.loc == nil {
		return time.Local
	}
	return c.loc
}

// LogicalDate returns midnight (in the calculator's zone) of the calendar date that names
// the logical day containing t. With hour 3, 02:59:59 on day D belongs to D-1.
func (c Calculator) LogicalDate(t time.Time) time.Time {
	local := t.In(c.Location())
	date := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, c.Location())
	if local.Hour() < c.hour {
		date = date.AddDate(0, 0, -1)
	}
	return date
}

// DayOf returns the logical-day window named by the calendar date of d. Only the
// year, month and day of d (in the calculator's zone) are used.
func (c Calculator) DayOf(d time.Time) Window {
	local := d.In(c.Location())
	start := c.at(local.Year(), local.Month(), local.Day())
	return Window{Start: start, End: c.at(local.Year(), local.Month(), local.Day()+1)}
}

// Day returns the logical day containing t.
func (c Calculator) Day(t time.Time) Window {
	return c.DayOf(c.LogicalDate(t))
}

// Week returns the logical week containing t: Monday at the cutover hour up to the
// following Monday at the cutover hour.
func (c Calculator) Week(t time.Time) Window {
	date := c.LogicalDate(t)
	// time.Weekday has Sunday = 0; shift so Monday is 0.
	offset := (int(date.Weekday()) + 6) % 7
	monday := date.AddDate(0, 0, -offset)
	return Window{
		Start: c.at(monday.Year(), monday.Month(), monday.Day()),
		End:   c.at(monday.Year(), monday.Month(), monday.Day()+7),
	}
}

// Month returns the logical month containing t: the 1st at the cutover hour up to the
// 1st of the next month at the cutover hour.
func (c Calculator) Month(t time.Time) Window {
	date := c.LogicalDate(t)
	return Window{
		Start: c.at(date.Year(), date.Month(), 1),
		End:   c.at(date.Year(), date.Month()+1, 1),
	}
}

// IsToday reports whether the calendar date of d names the logical day containing now.
func (c Calculator) IsToday(d, now time.Time) bool {
	return c.DayOf(d).Start.Equal(c.Day(now).Start)
}

func (c Calculator) at(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, c.hour, 0, 0, 0, c.Location())
}
