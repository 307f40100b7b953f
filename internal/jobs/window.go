package jobs

import "time"

// Window decides whether a pending job is executable on the current tick.
//
// A job runs when its execution time is today, not in the future and at most
// StaleAfter old. Inside the current Bucket it runs at once; outside it, only
// when it is at least Grace late. A job just past due but in the previous
// bucket is left for the next tick so adjacent polls do not both select it.
type Window struct {
	Loc        *time.Location
	Bucket     time.Duration
	StaleAfter time.Duration
	Grace      time.Duration
}

func DefaultWindow(loc *time.Location) Window {
	if loc == nil {
		loc = time.UTC
	}
	return Window{
		Loc:        loc,
		Bucket:     10 * time.Minute,
		StaleAfter: 60 * time.Minute,
		Grace:      2 * time.Minute,
	}
}

// Executable reports whether job should be selected at now.
func (w Window) Executable(job Job, now time.Time) bool {
	if job.Status != StatusPending {
		return false
	}
	return w.Due(job.ExecutionTime, now)
}

// Due applies the time rules to a stored execution time.
func (w Window) Due(executionTime, now time.Time) bool {
	sched := w.Wall(executionTime)
	now = now.In(w.Loc)

	sy, sm, sd := sched.Date()
	ny, nm, nd := now.Date()
	if sy != ny || sm != nm || sd != nd {
		return false
	}

	delta := now.Sub(sched)
	if delta < 0 || delta > w.StaleAfter {
		return false
	}
	if w.sameBucket(sched, now) {
		return true
	}
	return delta >= w.Grace
}

// Wall reinterprets a zone-less stored timestamp as wall clock time in Loc.
func (w Window) Wall(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), w.Loc)
}

// sameBucket compares bucket indexes counted from local midnight. Both times
// are on the same day.
func (w Window) sameBucket(a, b time.Time) bool {
	if w.Bucket <= 0 {
		return false
	}
	return sinceMidnight(a)/w.Bucket == sinceMidnight(b)/w.Bucket
}

func sinceMidnight(t time.Time) time.Duration {
	return time.Duration(t.Hour())*time.Hour +
		time.Duration(t.Minute())*time.Minute +
		time.Duration(t.Second())*time.Second +
		time.Duration(t.Nanosecond())
}
