package visit

import (
	"fmt"
	"time"
)

// OPD days: the clinic sees trial participants on Tuesday, Wednesday and
// Friday only. Weekday checks are done in UTC.
var opdWeekdays = map[time.Weekday]bool{
	time.Tuesday:   true,
	time.Wednesday: true,
	time.Friday:    true,
}

// NormalizeDate truncates a timestamp to its UTC calendar date. All window
// arithmetic operates on normalized dates.
func NormalizeDate(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// AllowedWeekday reports whether the date falls on an OPD day.
func AllowedWeekday(t time.Time) bool {
	return opdWeekdays[t.UTC().Weekday()]
}

// NextOPDDay returns the first OPD day on or after the given date.
func NextOPDDay(from time.Time) time.Time {
	d := NormalizeDate(from)
	for !AllowedWeekday(d) {
		d = d.AddDate(0, 0, 1)
	}
	return d
}

// Stamp holds the scheduling fields computed at visit-creation time.
type Stamp struct {
	ScheduledOn time.Time
	DueDate     time.Time
}

// CreationStamp computes the scheduled-on and due dates for a newly created
// visit. The anchor is the predecessor's visit date for visits 2 through 8
// and the creation time for the screening visit.
//
//	visit 1:   scheduledOn = next OPD day on/after anchor, dueDate = anchor + 14d
//	visit 2:   scheduledOn = anchor + 1d,  dueDate = scheduledOn + 7d
//	visits 3-5: scheduledOn = anchor + 30d, dueDate = scheduledOn + 7d
//	visits 6-8: scheduledOn = anchor + 90d, dueDate = scheduledOn + 14d
func CreationStamp(visitNumber int, anchor time.Time) (Stamp, error) {
	a := NormalizeDate(anchor)
	switch {
	case visitNumber == 1:
		return Stamp{ScheduledOn: NextOPDDay(a), DueDate: a.AddDate(0, 0, 14)}, nil
	case visitNumber == 2:
		on := a.AddDate(0, 0, 1)
		return Stamp{ScheduledOn: on, DueDate: on.AddDate(0, 0, 7)}, nil
	case visitNumber >= 3 && visitNumber <= 5:
		on := a.AddDate(0, 0, 30)
		return Stamp{ScheduledOn: on, DueDate: on.AddDate(0, 0, 7)}, nil
	case visitNumber >= 6 && visitNumber <= 8:
		on := a.AddDate(0, 0, 90)
		return Stamp{ScheduledOn: on, DueDate: on.AddDate(0, 0, 14)}, nil
	}
	return Stamp{}, fmt.Errorf("visit number %d out of range 1..8", visitNumber)
}

// Window is the inclusive range of dates an operator may pick for a visit's
// appointment. The OPD weekday filter applies on top of the bounds.
type Window struct {
	Start time.Time
	End   time.Time
}

// Degenerate reports whether the window admits no dates at all.
func (w Window) Degenerate() bool { return w.Start.After(w.End) }

// Contains reports whether the normalized date lies within the bounds,
// inclusive at both ends.
func (w Window) Contains(d time.Time) bool {
	d = NormalizeDate(d)
	return !d.Before(w.Start) && !d.After(w.End)
}

// ValidationWindow computes the bounds used when an operator picks or changes
// a visit's appointment date after the row exists. The window is anchored at
// the visit's creation date and, when a due date is stored, works backward
// from it: later visits permit only the final stretch before the due date.
func ValidationWindow(visitNumber int, createdAt time.Time, dueDate *time.Time) Window {
	anchor := NormalizeDate(createdAt)
	if dueDate == nil {
		return Window{Start: anchor, End: anchor.AddDate(0, 0, 14)}
	}
	end := NormalizeDate(*dueDate)
	start := anchor
	switch {
	case visitNumber >= 3 && visitNumber <= 5:
		start = laterOf(anchor, end.AddDate(0, 0, -7))
	case visitNumber >= 6 && visitNumber <= 8:
		start = laterOf(anchor, end.AddDate(0, 0, -14))
	}
	return Window{Start: start, End: end}
}

// OPDOptions enumerates every allowed appointment date within the window.
func OPDOptions(w Window) []time.Time {
	if w.Degenerate() {
		return nil
	}
	var opts []time.Time
	for d := w.Start; !d.After(w.End); d = d.AddDate(0, 0, 1) {
		if AllowedWeekday(d) {
			opts = append(opts, d)
		}
	}
	return opts
}

func laterOf(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}
