package http

import "testing"

func TestIPLimiterBurst(t *testing.T) {
	limiter := newIPLimiter(2)

	if !limiter.allow("10.0.0.1") {
		t.Fatalf("first request should pass")
	}
	if !limiter.allow("10.0.0.1") {
		t.Fatalf("second request should pass")
	}
	if limiter.allow("10.0.0.1") {
		t.Fatalf("third request should be limited")
	}
}

func TestIPLimiterIsolatesAddresses(t *testing.T) {
	limiter := newIPLimiter(1)

	if !limiter.allow("10.0.0.1") {
		t.Fatalf("first address should pass")
	}
	if !limiter.allow("10.0.0.2") {
		t.Fatalf("second address should have its own bucket")
	}
	if limiter.allow("10.0.0.1") {
		t.Fatalf("first address should now be limited")
	}
}

func TestIPLimiterDefaultRate(t *testing.T) {
	limiter := newIPLimiter(0)
	if limiter.burst != 30 {
		t.Fatalf("expected default burst 30, got %d", limiter.burst)
	}
}
