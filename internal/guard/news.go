// Package guard supplies the protective windows the validator consults:
// scheduled news cooldowns and session trade-cap accounting.
package guard

import (
	"sync"
	"time"
)

// Impact grades a scheduled news event
type Impact string

const (
	ImpactHigh   Impact = "high"
	ImpactMedium Impact = "medium"
)

// NewsEvent is one scheduled release with a protective window around it
type NewsEvent struct {
	Name   string    `json:"name"`
	At     time.Time `json:"at"`
	Impact Impact    `json:"impact"`
}

// Config holds guard windows
type Config struct {
	CooldownBefore time.Duration `json:"cooldown_before"` // Quiet period ahead of a release
	CooldownAfter  time.Duration `json:"cooldown_after"`  // Quiet period following it
}

// DefaultConfig returns the standard protective windows
func DefaultConfig() Config {
	return Config{
		CooldownBefore: 15 * time.Minute,
		CooldownAfter:  30 * time.Minute,
	}
}

// NewsGuard tracks scheduled events and answers whether a cooldown is
// active. Events are pruned once their window has fully passed.
type NewsGuard struct {
	mu     sync.RWMutex
	cfg    Config
	events []NewsEvent
	onTrip func(ev NewsEvent)
}

// NewNewsGuard creates a news guard
func NewNewsGuard(cfg Config) *NewsGuard {
	if cfg.CooldownBefore <= 0 {
		cfg.CooldownBefore = 15 * time.Minute
	}
	if cfg.CooldownAfter <= 0 {
		cfg.CooldownAfter = 30 * time.Minute
	}
	return &NewsGuard{cfg: cfg}
}

// OnTrip registers a callback fired when a cooldown first becomes active
func (g *NewsGuard) OnTrip(fn func(ev NewsEvent)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.onTrip = fn
}

// Schedule registers an upcoming news event
func (g *NewsGuard) Schedule(ev NewsEvent) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.events = append(g.events, ev)
}

// CooldownUntil reports whether now falls inside any event's protective
// window and, if so, when the latest such window ends.
func (g *NewsGuard) CooldownUntil(now time.Time) (time.Time, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	var until time.Time
	active := false
	kept := g.events[:0]

	for _, ev := range g.events {
		start := ev.At.Add(-g.cfg.CooldownBefore)
		end := ev.At.Add(g.cfg.CooldownAfter)

		if now.After(end) {
			continue // Window passed, prune
		}
		kept = append(kept, ev)

		if !now.Before(start) {
			active = true
			if end.After(until) {
				until = end
			}
			if g.onTrip != nil {
				go g.onTrip(ev)
			}
		}
	}
	g.events = kept

	return until, active
}

// Upcoming lists events whose windows have not yet passed
func (g *NewsGuard) Upcoming(now time.Time) []NewsEvent {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var out []NewsEvent
	for _, ev := range g.events {
		if now.Before(ev.At.Add(g.cfg.CooldownAfter)) {
			out = append(out, ev)
		}
	}
	return out
}
