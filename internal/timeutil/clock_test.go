package timeutil

import (
	"testing"
	"time"
)

func TestRealClockNow(t *testing.T) {
	clock := RealClock{}
	before := time.Now()
	now := clock.Now()
	after := time.Now()

	if now.Before(before) || now.After(after) {
		t.Errorf("RealClock.Now() = %v, want between %v and %v", now, before, after)
	}
}

func TestMockClockAdvance(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := NewMockClock(start)

	if got := clock.Now(); !got.Equal(start) {
		t.Fatalf("Now() = %v, want %v", got, start)
	}

	clock.Advance(1500 * time.Millisecond)
	want := start.Add(1500 * time.Millisecond)
	if got := clock.Now(); !got.Equal(want) {
		t.Errorf("Now() after Advance = %v, want %v", got, want)
	}

	if d := clock.Since(start); d != 1500*time.Millisecond {
		t.Errorf("Since(start) = %v, want 1.5s", d)
	}
}

func TestMockClockSleepRecorded(t *testing.T) {
	clock := NewMockClock(time.Now())
	clock.Sleep(40 * time.Millisecond)
	clock.Sleep(100 * time.Millisecond)

	sleeps := clock.Sleeps()
	if len(sleeps) != 2 {
		t.Fatalf("expected 2 recorded sleeps, got %d", len(sleeps))
	}
	if sleeps[0] != 40*time.Millisecond || sleeps[1] != 100*time.Millisecond {
		t.Errorf("unexpected sleeps: %v", sleeps)
	}
}

func TestMockTickerFiresOnAdvance(t *testing.T) {
	clock := NewMockClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	ticker := clock.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	select {
	case <-ticker.C():
		t.Fatal("ticker fired before any advance")
	default:
	}

	clock.Advance(100 * time.Millisecond)
	select {
	case <-ticker.C():
	default:
		t.Fatal("ticker did not fire after advancing one period")
	}
}

func TestMockTickerStop(t *testing.T) {
	clock := NewMockClock(time.Now())
	ticker := clock.NewTicker(50 * time.Millisecond)
	ticker.Stop()

	clock.Advance(200 * time.Millisecond)
	select {
	case <-ticker.C():
		t.Fatal("stopped ticker fired")
	default:
	}
}

func TestMockClockAfter(t *testing.T) {
	clock := NewMockClock(time.Now())
	ch := clock.After(time.Second)

	clock.Advance(999 * time.Millisecond)
	select {
	case <-ch:
		t.Fatal("After fired early")
	default:
	}

	clock.Advance(time.Millisecond)
	select {
	case <-ch:
	default:
		t.Fatal("After did not fire at deadline")
	}
}
