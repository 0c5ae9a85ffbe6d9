package period

import (
	"fmt"
	"time"
)

// TimeOfDay is a wall clock time encoded as HHMMSS, e.g. 93000 for 09:30:00.
type TimeOfDay int32

func (t TimeOfDay) Hour() int   { return int(t) / 10000 }
func (t TimeOfDay) Minute() int { return int(t) / 100 % 100 }
func (t TimeOfDay) Second() int { return int(t) % 100 }

func (t TimeOfDay) Valid() bool {
	return t >= 0 && t.Hour() < 24 && t.Minute() < 60 && t.Second() < 60
}

// Seconds returns the offset from midnight.
func (t TimeOfDay) Seconds() int {
	return t.Hour()*3600 + t.Minute()*60 + t.Second()
}

// On places the time of day on the calendar date of d in loc.
func (t TimeOfDay) On(d time.Time, loc *time.Location) time.Time {
	d = d.In(loc)
	return time.Date(d.Year(), d.Month(), d.Day(), t.Hour(), t.Minute(), t.Second(), 0, loc)
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", t.Hour(), t.Minute(), t.Second())
}

// TimeOfDayOf returns the HHMMSS value of tm in loc.
func TimeOfDayOf(tm time.Time, loc *time.Location) TimeOfDay {
	tm = tm.In(loc)
	return TimeOfDay(tm.Hour()*10000 + tm.Minute()*100 + tm.Second())
}

// Break is a recess inside the session. No boundary falls in (Start, End].
type Break struct {
	Start TimeOfDay
	End   TimeOfDay
}

// Session is the regular trading window of one exchange day.
type Session struct {
	Location *time.Location
	Open     TimeOfDay
	Close    TimeOfDay
	Breaks   []Break
}

// DefaultSession is the 09:30-15:00 session with the 11:30-13:00 recess.
func DefaultSession(loc *time.Location) Session {
	return Session{
		Location: loc,
		Open:     93000,
		Close:    150000,
		Breaks:   []Break{{Start: 113000, End: 130000}},
	}
}

func (s Session) withDefaults() Session {
	if s.Location == nil {
		s.Location = time.Local
	}
	return s
}

// Validate checks if the session is usable.
func (s Session) Validate() error {
	if !s.Open.Valid() || !s.Close.Valid() {
		return fmt.Errorf("invalid session config: open %d or close %d is not HHMMSS", s.Open, s.Close)
	}
	if s.Close <= s.Open {
		return fmt.Errorf("invalid session config: Close must be > Open")
	}
	prev := s.Open
	for i, b := range s.Breaks {
		if !b.Start.Valid() || !b.End.Valid() {
			return fmt.Errorf("invalid session config: break %d is not HHMMSS", i)
		}
		if b.End <= b.Start {
			return fmt.Errorf("invalid session config: break %d End must be > Start", i)
		}
		if b.Start < prev || b.End > s.Close {
			return fmt.Errorf("invalid session config: break %d must be ordered and inside the session", i)
		}
		prev = b.End
	}
	return nil
}

// Date returns midnight of the session date that contains tsNano.
func (s Session) Date(tsNano int64) time.Time {
	s = s.withDefaults()
	t := time.Unix(0, tsNano).In(s.Location)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, s.Location)
}

// TradingDay returns the YYYYMMDD session date that contains tsNano.
func (s Session) TradingDay(tsNano int64) int32 {
	d := s.Date(tsNano)
	return int32(d.Year()*10000 + int(d.Month())*100 + d.Day())
}

// Contains reports whether t falls in regular hours outside every recess.
func (s Session) Contains(t time.Time) bool {
	s = s.withDefaults()
	tod := TimeOfDayOf(t, s.Location)
	if tod < s.Open || tod > s.Close {
		return false
	}
	return !s.InBreak(t)
}

// InBreak reports whether t falls strictly inside a recess.
func (s Session) InBreak(t time.Time) bool {
	s = s.withDefaults()
	tod := TimeOfDayOf(t, s.Location)
	for _, b := range s.Breaks {
		if tod > b.Start && tod < b.End {
			return true
		}
	}
	return false
}
