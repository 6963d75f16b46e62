package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func testAbusePolicy() AuthAbusePolicy {
	return AuthAbusePolicy{
		FreeAttempts: 1,
		BaseDelay:    time.Second,
		Multiplier:   2,
		MaxDelay:     3 * time.Second,
		ResetWindow:  time.Minute,
	}
}

func TestAbuseCooldownGrowsAndCaps(t *testing.T) {
	policy := testAbusePolicy()
	want := []time.Duration{0, time.Second, 2 * time.Second, 3 * time.Second, 3 * time.Second}
	for i, w := range want {
		if got := abuseCooldown(policy, i+1); got != w {
			t.Fatalf("failure #%d: got %v want %v", i+1, got, w)
		}
	}
}

func TestInMemoryAuthAbuseGuardCooldownAndReset(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	guard := NewInMemoryAuthAbuseGuard(testAbusePolicy())
	guard.now = func() time.Time { return now }
	ctx := context.Background()

	if d, _ := guard.RegisterFailure(ctx, AuthAbuseScopeLogin, "a@example.com", "10.0.0.1"); d != 0 {
		t.Fatalf("free attempt should not cool down, got %v", d)
	}
	if d, _ := guard.RegisterFailure(ctx, AuthAbuseScopeLogin, "a@example.com", "10.0.0.1"); d != time.Second {
		t.Fatalf("expected 1s cooldown, got %v", d)
	}
	if d, _ := guard.Check(ctx, AuthAbuseScopeLogin, "A@Example.com ", "10.0.0.9"); d != time.Second {
		t.Fatalf("identity should be normalized and still cooling down, got %v", d)
	}
	if d, _ := guard.Check(ctx, AuthAbuseScopeForgot, "a@example.com", "10.0.0.1"); d != 0 {
		t.Fatalf("scopes must be independent, got %v", d)
	}

	now = now.Add(2 * time.Second)
	if d, _ := guard.Check(ctx, AuthAbuseScopeLogin, "a@example.com", "10.0.0.1"); d != 0 {
		t.Fatalf("cooldown should have elapsed, got %v", d)
	}

	_, _ = guard.RegisterFailure(ctx, AuthAbuseScopeLogin, "a@example.com", "10.0.0.1")
	if err := guard.Reset(ctx, AuthAbuseScopeLogin, "a@example.com", "10.0.0.1"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if d, _ := guard.Check(ctx, AuthAbuseScopeLogin, "a@example.com", "10.0.0.1"); d != 0 {
		t.Fatalf("expected reset to clear cooldown, got %v", d)
	}
}

func TestInMemoryAuthAbuseGuardResetWindowForgetsFailures(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	guard := NewInMemoryAuthAbuseGuard(testAbusePolicy())
	guard.now = func() time.Time { return now }
	ctx := context.Background()

	_, _ = guard.RegisterFailure(ctx, AuthAbuseScopeLogin, "b@example.com", "10.0.0.2")
	now = now.Add(2 * time.Minute)
	if d, _ := guard.RegisterFailure(ctx, AuthAbuseScopeLogin, "b@example.com", "10.0.0.2"); d != 0 {
		t.Fatalf("failure after the reset window should count as first, got %v", d)
	}
}

func TestRedisAuthAbuseGuard(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	guard := NewRedisAuthAbuseGuard(client, "test", testAbusePolicy())
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := guard.RegisterFailure(ctx, AuthAbuseScopeLogin, "c@example.com", "10.0.0.3"); err != nil {
			t.Fatalf("register failure: %v", err)
		}
	}
	d, err := guard.Check(ctx, AuthAbuseScopeLogin, "c@example.com", "10.0.0.7")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if d <= 0 || d > time.Second {
		t.Fatalf("expected cooldown in (0,1s], got %v", d)
	}
	for _, key := range mr.Keys() {
		if key == "test:auth_abuse:login:id:c@example.com" {
			t.Fatal("raw identity must not be stored as a key")
		}
	}
	if err := guard.Reset(ctx, AuthAbuseScopeLogin, "c@example.com", "10.0.0.3"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if d, _ := guard.Check(ctx, AuthAbuseScopeLogin, "c@example.com", "10.0.0.3"); d != 0 {
		t.Fatalf("expected cleared cooldown, got %v", d)
	}
}
