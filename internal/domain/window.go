package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the calendar-date format used for windows, run dates and partitions.
const DateLayout = "2006-01-02"

// Interval is the orchestrator-provided data interval for one invocation.
// Start is inclusive, End is exclusive.
type Interval struct {
	Start time.Time
	End   time.Time
}

// RunWindow is the half-open calendar-date window sent to the source API.
type RunWindow struct {
	Start string
	End   string
}

// ComputeWindow truncates the interval bounds to UTC calendar dates.
// The host time zone is never consulted, so an interval that crosses a
// daylight-saving boundary in some local zone still maps to the same dates.
func ComputeWindow(iv Interval) (RunWindow, error) {
	if iv.Start.IsZero() || iv.End.IsZero() {
		return RunWindow{}, fmt.Errorf("%w: start and end are required", ErrInvalidInterval)
	}
	if iv.End.Before(iv.Start) {
		return RunWindow{}, fmt.Errorf("%w: end %s precedes start %s",
			ErrInvalidInterval, iv.End.UTC().Format(time.RFC3339), iv.Start.UTC().Format(time.RFC3339))
	}
	return RunWindow{
		Start: iv.Start.UTC().Format(DateLayout),
		End:   iv.End.UTC().Format(DateLayout),
	}, nil
}

// String renders the window as "start/end".
func (w RunWindow) String() string {
	return w.Start + "/" + w.End
}

// ParseDate parses a YYYY-MM-DD string as UTC midnight.
func ParseDate(s string) (time.Time, error) {
	d, err := time.ParseInLocation(DateLayout, strings.TrimSpace(s), time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return d, nil
}

// TruncateDate returns UTC midnight of t's UTC calendar date.
func TruncateDate(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// DailySchedule fires once per day at a fixed UTC time of day.
type DailySchedule struct {
	Hour   int
	Minute int
}

// ParseDailySchedule parses "HH:MM" (24-hour, UTC).
func ParseDailySchedule(s string) (DailySchedule, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return DailySchedule{}, fmt.Errorf("parse schedule %q: want HH:MM", s)
	}
	hour, errH := strconv.Atoi(hh)
	minute, errM := strconv.Atoi(mm)
	if errH != nil || errM != nil || hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return DailySchedule{}, fmt.Errorf("parse schedule %q: want HH:MM", s)
	}
	return DailySchedule{Hour: hour, Minute: minute}, nil
}

// String renders the schedule as "HH:MM".
func (s DailySchedule) String() string {
	return fmt.Sprintf("%02d:%02d", s.Hour, s.Minute)
}

// IntervalFor returns the data interval whose logical run date is runDate:
// [runDate at HH:MM, runDate+1 at HH:MM).
func (s DailySchedule) IntervalFor(runDate time.Time) Interval {
	d := TruncateDate(runDate)
	start := d.Add(time.Duration(s.Hour)*time.Hour + time.Duration(s.Minute)*time.Minute)
	return Interval{Start: start, End: start.AddDate(0, 0, 1)}
}

// Latest returns the most recent interval that has fully elapsed at now,
// which is the one the orchestrator triggers at the schedule tick.
func (s DailySchedule) Latest(now time.Time) (Interval, time.Time) {
	today := TruncateDate(now)
	tick := s.IntervalFor(today).Start
	runDate := today.AddDate(0, 0, -1)
	if now.UTC().Before(tick) {
		runDate = runDate.AddDate(0, 0, -1)
	}
	return s.IntervalFor(runDate), runDate
}
