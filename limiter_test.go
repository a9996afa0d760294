package atelier

import (
	"testing"
	"time"
)

func TestLoginLimiterBlocksAfterMax(t *testing.T) {
	l := NewLoginLimiter(2, 200*time.Millisecond)
	defer l.Close()
	ip := "203.0.113.10"

	if !l.Check(ip) {
		t.Fatal("expected first check to pass")
	}
	l.Record(ip)
	l.Record(ip)
	if l.Check(ip) {
		t.Fatal("expected check to fail after max attempts")
	}
}

func TestLoginLimiterResetsAfterWindow(t *testing.T) {
	l := NewLoginLimiter(1, 150*time.Millisecond)
	defer l.Close()
	ip := "203.0.113.20"

	l.Record(ip)
	if l.Check(ip) {
		t.Fatal("expected check to fail inside window")
	}
	time.Sleep(200 * time.Millisecond)
	if !l.Check(ip) {
		t.Fatal("expected check to pass after window")
	}
}

func TestLoginLimiterIsPerIP(t *testing.T) {
	l := NewLoginLimiter(1, 200*time.Millisecond)
	defer l.Close()

	l.Record("203.0.113.30")
	if l.Check("203.0.113.30") {
		t.Fatal("expected first ip to be blocked")
	}
	if !l.Check("203.0.113.31") {
		t.Fatal("expected second ip to be unaffected")
	}
}
