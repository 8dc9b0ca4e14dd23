package session

import (
	"testing"
	"time"
)

func at(hour, min int) time.Time {
	return time.Date(2024, 3, 1, hour, min, 0, 0, time.UTC)
}

func TestSessionWindows(t *testing.T) {
	clock := NewClock()

	tests := []struct {
		hour, min int
		want      Name
	}{
		{3, 0, SessionAsian},
		{6, 59, SessionAsian},
		{7, 0, SessionLondon},
		{11, 30, SessionLondon},
		{12, 0, SessionNewYork}, // London/NY overlap resolves to the later opener
		{16, 0, SessionNewYork},
		{20, 59, SessionNewYork},
		{21, 0, SessionNone},
		{23, 0, SessionNone},
	}

	for _, tt := range tests {
		got := clock.At(at(tt.hour, tt.min))
		if got.Session != tt.want {
			t.Errorf("At(%02d:%02d) session = %s, want %s", tt.hour, tt.min, got.Session, tt.want)
		}
	}
}

func TestSessionOverlap(t *testing.T) {
	clock := NewClock()

	status := clock.At(at(13, 0))

	if len(status.SessionsActive) != 2 {
		t.Fatalf("Expected 2 active sessions at 13:00, got %d", len(status.SessionsActive))
	}
	if status.Session != SessionNewYork {
		t.Errorf("Primary session in the overlap must be NEW_YORK, got %s", status.Session)
	}
}

func TestKillZones(t *testing.T) {
	clock := NewClock()

	tests := []struct {
		hour int
		want KillZone
	}{
		{8, KillZoneLondonOpen},
		{10, KillZoneNone}, // End is exclusive
		{13, KillZoneNewYorkOpen},
		{16, KillZoneLondonClose},
		{18, KillZoneNone},
		{2, KillZoneNone},
	}

	for _, tt := range tests {
		got := clock.At(at(tt.hour, 0))
		if got.KillZone != tt.want {
			t.Errorf("At(%02d:00) kill zone = %s, want %s", tt.hour, got.KillZone, tt.want)
		}
		if got.InKillZone != (tt.want != KillZoneNone) {
			t.Errorf("At(%02d:00) InKillZone = %v inconsistent with zone %s", tt.hour, got.InKillZone, got.KillZone)
		}
	}
}

func TestWindowWrapsMidnight(t *testing.T) {
	w := Window{StartHour: 22, EndHour: 2}

	if !w.Contains(at(23, 0)) {
		t.Error("23:00 must fall inside a 22:00-02:00 window")
	}
	if !w.Contains(at(1, 30)) {
		t.Error("01:30 must fall inside a 22:00-02:00 window")
	}
	if w.Contains(at(3, 0)) {
		t.Error("03:00 must fall outside a 22:00-02:00 window")
	}
}

func TestSetSessionOverride(t *testing.T) {
	clock := NewClock()
	clock.SetSession(SessionAsian, Window{StartHour: 23, EndHour: 6})

	if got := clock.At(at(23, 30)); got.Session != SessionAsian {
		t.Errorf("Override window must apply, got %s", got.Session)
	}
}
