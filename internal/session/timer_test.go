package session

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestCountdownExpiresExactlyOnce(t *testing.T) {
	var fired atomic.Int32
	expired := make(chan struct{})
	c := NewCountdown(1, func() {
		fired.Add(1)
		close(expired)
	}, WithTickInterval(time.Millisecond))

	if got := c.Remaining(); got != 60 {
		t.Fatalf("initial remaining = %d, want 60", got)
	}
	c.Start()

	select {
	case <-expired:
	case <-time.After(5 * time.Second):
		t.Fatal("countdown never expired")
	}
	<-c.Done()

	if got := fired.Load(); got != 1 {
		t.Fatalf("expiry fired %d times, want exactly 1", got)
	}
	if got := c.Remaining(); got != 0 {
		t.Fatalf("remaining after expiry = %d, want 0", got)
	}
}

func TestCountdownStopSuppressesExpiry(t *testing.T) {
	var fired atomic.Int32
	c := NewCountdown(1, func() { fired.Add(1) }, WithTickInterval(time.Millisecond))
	c.Start()
	c.Stop()
	<-c.Done()

	// Give a stray callback time to show up if the stop raced a tick.
	time.Sleep(20 * time.Millisecond)
	if got := fired.Load(); got != 0 {
		t.Fatalf("expiry fired %d times after Stop", got)
	}

	// Stop again: must be a no-op, not a panic.
	c.Stop()
}

func TestCountdownTicksDown(t *testing.T) {
	c := NewCountdown(2, func() {}, WithTickInterval(10*time.Millisecond))
	c.Start()
	defer c.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if c.Remaining() < 120 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("remaining never decremented")
}
