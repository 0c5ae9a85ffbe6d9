package period

import (
	"fmt"
	"time"
)

// Scheduler generates the boundary grid for a fixed interval and session.
type Scheduler struct {
	interval time.Duration
	session  Session
}

// NewScheduler validates the interval and session.
func NewScheduler(interval time.Duration, session Session) (*Scheduler, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("invalid scheduler config: interval must be > 0")
	}
	session = session.withDefaults()
	if err := session.Validate(); err != nil {
		return nil, err
	}
	return &Scheduler{interval: interval, session: session}, nil
}

func (s *Scheduler) Interval() time.Duration {
	return s.interval
}

func (s *Scheduler) Session() Session {
	return s.session
}

// Boundaries returns the UnixNano boundary timestamps of the session on date,
// strictly increasing. The grid starts at session open; when from lies inside
// the session the sequence starts at the grid point at or before from, so the
// first boundary is the next one after it. A zero from, or one outside the
// session, anchors at open. Boundaries inside a recess are skipped and the
// trailing partial bucket before close is dropped.
func (s *Scheduler) Boundaries(date time.Time, from time.Time) []int64 {
	loc := s.session.Location
	open := s.session.Open.On(date, loc)
	closeAt := s.session.Close.On(date, loc)

	anchor := open
	if !from.IsZero() {
		if f := from.In(loc); !f.Before(open) && f.Before(closeAt) {
			steps := f.Sub(open) / s.interval
			anchor = open.Add(steps * s.interval)
		}
	}

	breaks := make([][2]time.Time, 0, len(s.session.Breaks))
	for _, b := range s.session.Breaks {
		breaks = append(breaks, [2]time.Time{b.Start.On(date, loc), b.End.On(date, loc)})
	}

	out := make([]int64, 0, int(closeAt.Sub(anchor)/s.interval))
	for t := anchor.Add(s.interval); !t.After(closeAt); t = t.Add(s.interval) {
		if inRecess(t, breaks) {
			continue
		}
		out = append(out, t.UnixNano())
	}
	return out
}

func inRecess(t time.Time, breaks [][2]time.Time) bool {
	for _, b := range breaks {
		if t.After(b[0]) && !t.After(b[1]) {
			return true
		}
	}
	return false
}
