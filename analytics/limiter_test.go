package analytics

import (
	"testing"
	"time"
)

func TestIPLimiterBlocksAfterMax(t *testing.T) {
	l := newIPLimiter(2, 200*time.Millisecond)
	defer l.close()
	ip := "203.0.113.10"

	if !l.allow(ip) {
		t.Fatal("expected first request to be allowed")
	}
	if !l.allow(ip) {
		t.Fatal("expected second request to be allowed")
	}
	if l.allow(ip) {
		t.Fatal("expected third request to be blocked")
	}
}

func TestIPLimiterResetsAfterWindow(t *testing.T) {
	l := newIPLimiter(1, 150*time.Millisecond)
	defer l.close()
	ip := "203.0.113.20"

	if !l.allow(ip) {
		t.Fatal("expected first request to be allowed")
	}
	if l.allow(ip) {
		t.Fatal("expected second request to be blocked")
	}

	time.Sleep(200 * time.Millisecond)
	if !l.allow(ip) {
		t.Fatal("expected request after window to be allowed")
	}
}

func TestIPLimiterIsPerIP(t *testing.T) {
	l := newIPLimiter(1, 200*time.Millisecond)
	defer l.close()

	if !l.allow("203.0.113.30") {
		t.Fatal("expected first ip to be allowed")
	}
	if !l.allow("203.0.113.31") {
		t.Fatal("expected second ip to be allowed independently")
	}
	if l.allow("203.0.113.30") {
		t.Fatal("expected first ip to be blocked after max")
	}
}
