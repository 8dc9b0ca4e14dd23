package session

import (
	"time"
)

// Name identifies a trading session
type Name string

const (
	SessionAsian   Name = "ASIAN"
	SessionLondon  Name = "LONDON"
	SessionNewYork Name = "NEW_YORK"
	SessionNone    Name = "NONE"
)

// KillZone identifies a fixed daily window of elevated institutional
// activity
type KillZone string

const (
	KillZoneLondonOpen  KillZone = "LONDON_OPEN"
	KillZoneNewYorkOpen KillZone = "NEW_YORK_OPEN"
	KillZoneLondonClose KillZone = "LONDON_CLOSE"
	KillZoneNone        KillZone = "NONE"
)

// Window is a daily UTC time window. End is exclusive. Windows that cross
// midnight wrap (Start > End).
type Window struct {
	StartHour int `json:"start_hour"`
	StartMin  int `json:"start_min"`
	EndHour   int `json:"end_hour"`
	EndMin    int `json:"end_min"`
}

// Contains reports whether the UTC time of day falls inside the window
func (w Window) Contains(t time.Time) bool {
	u := t.UTC()
	mins := u.Hour()*60 + u.Minute()
	start := w.StartHour*60 + w.StartMin
	end := w.EndHour*60 + w.EndMin

	if start <= end {
		return mins >= start && mins < end
	}
	// Window wraps midnight
	return mins >= start || mins < end
}

// Clock evaluates session and kill-zone membership for timestamps.
// Windows are configurable; the defaults are the conventional UTC windows.
type Clock struct {
	sessions  map[Name]Window
	killZones map[KillZone]Window
}

// NewClock creates a session clock with default windows
func NewClock() *Clock {
	return &Clock{
		sessions: map[Name]Window{
			SessionAsian:   {StartHour: 0, EndHour: 7},
			SessionLondon:  {StartHour: 7, EndHour: 16},
			SessionNewYork: {StartHour: 12, EndHour: 21},
		},
		killZones: map[KillZone]Window{
			KillZoneLondonOpen:  {StartHour: 7, EndHour: 10},
			KillZoneNewYorkOpen: {StartHour: 12, EndHour: 15},
			KillZoneLondonClose: {StartHour: 15, EndHour: 17},
		},
	}
}

// SetSession overrides a session window
func (c *Clock) SetSession(name Name, w Window) {
	c.sessions[name] = w
}

// SetKillZone overrides a kill-zone window
func (c *Clock) SetKillZone(kz KillZone, w Window) {
	c.killZones[kz] = w
}

// Status is the full session read for one timestamp
type Status struct {
	Session        Name     `json:"session"`
	KillZone       KillZone `json:"kill_zone"`
	InKillZone     bool     `json:"in_kill_zone"`
	SessionsActive []Name   `json:"sessions_active"`
}

// At evaluates which sessions and kill zones contain the timestamp.
// When sessions overlap, the later-opening one is reported as primary.
func (c *Clock) At(t time.Time) Status {
	s := Status{Session: SessionNone, KillZone: KillZoneNone}

	for _, name := range []Name{SessionAsian, SessionLondon, SessionNewYork} {
		if c.sessions[name].Contains(t) {
			s.SessionsActive = append(s.SessionsActive, name)
			s.Session = name
		}
	}

	for _, kz := range []KillZone{KillZoneLondonOpen, KillZoneNewYorkOpen, KillZoneLondonClose} {
		if c.killZones[kz].Contains(t) {
			s.KillZone = kz
			s.InKillZone = true
			break
		}
	}

	return s
}
