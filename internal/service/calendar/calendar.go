package calendar

import (
	"fmt"
	"time"
)

// Session is one open interval within a trading day, clock times in the
// calendar's timezone. Close before Open means the session spans midnight
// (e.g. COMEX Sunday 18:00 through Monday 17:00 is expressed per weekday).
type Session struct {
	Weekday time.Weekday
	Open    string // "15:04"
	Close   string // "15:04"
}

// Calendar answers whether an instrument's market is open at a timestamp.
type Calendar struct {
	loc      *time.Location
	sessions map[time.Weekday][]span
	holidays map[string]struct{} // "2006-01-02" in loc
}

type span struct {
	open  int // minutes from midnight
	close int
}

// Config describes one instrument calendar.
type Config struct {
	Timezone string    `yaml:"timezone"`
	Sessions []Session `yaml:"sessions"`
	Holidays []string  `yaml:"holidays"` // "2006-01-02"
}

// New builds a calendar from config. An empty session list means always open
// (24h markets such as crypto).
func New(cfg Config) (*Calendar, error) {
	tz := cfg.Timezone
	if tz == "" {
		tz = "UTC"
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", tz, err)
	}

	c := &Calendar{
		loc:      loc,
		sessions: make(map[time.Weekday][]span),
		holidays: make(map[string]struct{}, len(cfg.Holidays)),
	}
	for _, s := range cfg.Sessions {
		open, err := parseClock(s.Open)
		if err != nil {
			return nil, fmt.Errorf("session open %q: %w", s.Open, err)
		}
		cl, err := parseClock(s.Close)
		if err != nil {
			return nil, fmt.Errorf("session close %q: %w", s.Close, err)
		}
		c.sessions[s.Weekday] = append(c.sessions[s.Weekday], span{open: open, close: cl})
	}
	for _, h := range cfg.Holidays {
		if _, err := time.ParseInLocation("2006-01-02", h, loc); err != nil {
			return nil, fmt.Errorf("holiday %q: %w", h, err)
		}
		c.holidays[h] = struct{}{}
	}
	return c, nil
}

// IsOpen reports whether the market is open at t.
func (c *Calendar) IsOpen(t time.Time) bool {
	lt := t.In(c.loc)
	if _, ok := c.holidays[lt.Format("2006-01-02")]; ok {
		return false
	}
	if len(c.sessions) == 0 {
		return true
	}

	minute := lt.Hour()*60 + lt.Minute()
	for _, s := range c.sessions[lt.Weekday()] {
		if s.open <= s.close {
			if minute >= s.open && minute < s.close {
				return true
			}
		} else if minute >= s.open { // overnight session, open side
			return true
		}
	}
	// overnight spillover from the previous weekday
	prev := lt.AddDate(0, 0, -1)
	if _, ok := c.holidays[prev.Format("2006-01-02")]; ok {
		return false
	}
	for _, s := range c.sessions[prev.Weekday()] {
		if s.open > s.close && minute < s.close {
			return true
		}
	}
	return false
}

// Registry maps instrument symbols to calendars, with a fallback default.
type Registry struct {
	cals map[string]*Calendar
	def  *Calendar
}

// NewRegistry builds per-symbol calendars. The "" key sets the default; when
// absent, symbols without a calendar are treated as always open.
func NewRegistry(cfgs map[string]Config) (*Registry, error) {
	r := &Registry{cals: make(map[string]*Calendar, len(cfgs))}
	for sym, cfg := range cfgs {
		cal, err := New(cfg)
		if err != nil {
			return nil, fmt.Errorf("calendar %s: %w", sym, err)
		}
		if sym == "" {
			r.def = cal
			continue
		}
		r.cals[sym] = cal
	}
	return r, nil
}

// IsOpen implements the domain Calendar interface.
func (r *Registry) IsOpen(symbol string, at time.Time) bool {
	if cal, ok := r.cals[symbol]; ok {
		return cal.IsOpen(at)
	}
	if r.def != nil {
		return r.def.IsOpen(at)
	}
	return true
}

func parseClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}
