package createdat

import "time"

// Shift is a signed correction applied to every resolved timestamp of a run.
type Shift struct {
	Years   int `yaml:"years"`
	Months  int `yaml:"months"`
	Days    int `yaml:"days"`
	Hours   int `yaml:"hours"`
	Minutes int `yaml:"minutes"`
	Seconds int `yaml:"seconds"`
}

// IsZero reports whether s leaves timestamps unchanged.
func (s Shift) IsZero() bool {
	return s == Shift{}
}

// Apply adds the deltas to t one unit at a time, in the order year, month,
// day, hour, minute, second. Each step is normalized on t's wall clock, so
// December plus two months is February of the following year and 23:00
// plus four hours is 03:00 the next day.
func (s Shift) Apply(t time.Time) time.Time {
	t = addClock(t, s.Years, 0, 0, 0, 0, 0)
	t = addClock(t, 0, s.Months, 0, 0, 0, 0)
	t = addClock(t, 0, 0, s.Days, 0, 0, 0)
	t = addClock(t, 0, 0, 0, s.Hours, 0, 0)
	t = addClock(t, 0, 0, 0, 0, s.Minutes, 0)
	return addClock(t, 0, 0, 0, 0, 0, s.Seconds)
}

func addClock(t time.Time, years, months, days, hours, minutes, seconds int) time.Time {
	if years == 0 && months == 0 && days == 0 && hours == 0 && minutes == 0 && seconds == 0 {
		return t
	}
	y, mo, d := t.Date()
	h, mi, sec := t.Clock()
	return time.Date(y+years, mo+time.Month(months), d+days, h+hours, mi+minutes, sec+seconds, t.Nanosecond(), t.Location())
}
