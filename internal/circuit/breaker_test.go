package circuit

import (
	"errors"
	"testing"
	"time"
)

var tripTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func TestBreakerTripsAfterThreshold(t *testing.T) {
	b := NewBreaker(DefaultConfig())
	errOracle := errors.New("timeout")

	b.RecordFailure(tripTime, errOracle)
	b.RecordFailure(tripTime, errOracle)
	if b.State() != StateClosed {
		t.Fatal("Breaker must stay closed below the threshold")
	}

	b.RecordFailure(tripTime, errOracle)
	if b.State() != StateOpen {
		t.Fatalf("Breaker state = %s, want open after 3 failures", b.State())
	}

	ok, reason := b.Allow(tripTime.Add(time.Minute))
	if ok {
		t.Error("Open breaker must block calls during cooldown")
	}
	if reason == "" {
		t.Error("Blocked call must carry a reason")
	}
}

func TestBreakerHalfOpensAfterCooldown(t *testing.T) {
	b := NewBreaker(Config{MaxConsecutiveFailures: 1, Cooldown: 5 * time.Minute})
	b.RecordFailure(tripTime, errors.New("boom"))

	if ok, _ := b.Allow(tripTime.Add(5 * time.Minute)); !ok {
		t.Fatal("Breaker must admit a probe once the cooldown passed")
	}
	if b.State() != StateHalfOpen {
		t.Errorf("Breaker state = %s, want half_open", b.State())
	}
}

func TestProbeFailureRetrips(t *testing.T) {
	b := NewBreaker(Config{MaxConsecutiveFailures: 3, Cooldown: 5 * time.Minute})
	for i := 0; i < 3; i++ {
		b.RecordFailure(tripTime, errors.New("boom"))
	}

	probeTime := tripTime.Add(5 * time.Minute)
	b.Allow(probeTime)
	b.RecordFailure(probeTime, errors.New("still down"))

	if b.State() != StateOpen {
		t.Fatalf("Probe failure must re-open the breaker, state = %s", b.State())
	}
	if ok, _ := b.Allow(probeTime.Add(time.Minute)); ok {
		t.Error("Re-opened breaker must block inside the new cooldown")
	}
}

func TestSuccessClosesBreaker(t *testing.T) {
	b := NewBreaker(Config{MaxConsecutiveFailures: 1, Cooldown: 5 * time.Minute})
	b.RecordFailure(tripTime, errors.New("boom"))

	b.Allow(tripTime.Add(5 * time.Minute))
	b.RecordSuccess()

	if b.State() != StateClosed {
		t.Fatalf("Successful probe must close the breaker, state = %s", b.State())
	}
	if ok, _ := b.Allow(tripTime.Add(6 * time.Minute)); !ok {
		t.Error("Closed breaker must allow calls")
	}
}

func TestSuccessResetsFailureCount(t *testing.T) {
	b := NewBreaker(Config{MaxConsecutiveFailures: 3, Cooldown: 5 * time.Minute})

	b.RecordFailure(tripTime, errors.New("boom"))
	b.RecordFailure(tripTime, errors.New("boom"))
	b.RecordSuccess()
	b.RecordFailure(tripTime, errors.New("boom"))
	b.RecordFailure(tripTime, errors.New("boom"))

	if b.State() != StateClosed {
		t.Error("Failures are consecutive: a success in between must reset the count")
	}
}

func TestOnTripCallback(t *testing.T) {
	b := NewBreaker(Config{MaxConsecutiveFailures: 1, Cooldown: 5 * time.Minute})

	var gotReason string
	b.OnTrip(func(reason string) { gotReason = reason })

	b.RecordFailure(tripTime, errors.New("boom"))

	if gotReason == "" {
		t.Error("OnTrip must fire with the trip reason")
	}
}
