package ratelimit

import "testing"

func TestLimiterAllowsBurstThenBlocks(t *testing.T) {
	l := NewLimiter(Config{RequestsPerMinute: 60, Burst: 3})

	for i := 0; i < 3; i++ {
		if !l.Allow("user-1") {
			t.Fatalf("expected request %d within burst to be allowed", i)
		}
	}

	if l.Allow("user-1") {
		t.Fatal("expected request beyond burst to be rejected")
	}
}

func TestLimiterKeysAreIndependent(t *testing.T) {
	l := NewLimiter(Config{RequestsPerMinute: 60, Burst: 1})

	if !l.Allow("user-1") {
		t.Fatal("expected first request for user-1 to be allowed")
	}
	if !l.Allow("user-2") {
		t.Fatal("expected user-2's bucket to be independent of user-1's")
	}
	if l.Allow("user-1") {
		t.Fatal("expected user-1's second request to be rejected")
	}
}

func TestWaitTimeZeroWhenTokensAvailable(t *testing.T) {
	l := NewLimiter(DefaultConfig())
	if wt := l.WaitTime("fresh-user"); wt != 0 {
		t.Fatalf("expected zero wait for a fresh bucket, got %v", wt)
	}
}
