package service

import (
	"context"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/sandeepkv93/booking-scheduler-backend/internal/config"
)

type AuthAbuseScope string

const (
	AuthAbuseScopeLogin  AuthAbuseScope = "login"
	AuthAbuseScopeForgot AuthAbuseScope = "forgot"
)

// AuthAbusePolicy grants FreeAttempts failures, then imposes BaseDelay growing by
// Multiplier per extra failure up to MaxDelay. Counters reset after ResetWindow of quiet.
type AuthAbusePolicy struct {
	FreeAttempts int
	BaseDelay    time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
	ResetWindow  time.Duration
}

func AuthAbusePolicyFromConfig(cfg *config.Config) AuthAbusePolicy {
	return normalizeAuthAbusePolicy(AuthAbusePolicy{
		FreeAttempts: cfg.AuthAbuseFreeAttempts,
		BaseDelay:    cfg.AuthAbuseBaseDelay,
		Multiplier:   2,
		MaxDelay:     cfg.AuthAbuseMaxDelay,
		ResetWindow:  cfg.AuthAbuseResetWindow,
	})
}

// AuthAbuseGuard tracks failures per identity (email) and per client IP; the
// larger of the two cooldowns applies.
type AuthAbuseGuard interface {
	Check(ctx context.Context, scope AuthAbuseScope, identity, ip string) (time.Duration, error)
	RegisterFailure(ctx context.Context, scope AuthAbuseScope, identity, ip string) (time.Duration, error)
	Reset(ctx context.Context, scope AuthAbuseScope, identity, ip string) error
}

type NoopAuthAbuseGuard struct{}

func (NoopAuthAbuseGuard) Check(context.Context, AuthAbuseScope, string, string) (time.Duration, error) {
	return 0, nil
}

func (NoopAuthAbuseGuard) RegisterFailure(context.Context, AuthAbuseScope, string, string) (time.Duration, error) {
	return 0, nil
}

func (NoopAuthAbuseGuard) Reset(context.Context, AuthAbuseScope, string, string) error {
	return nil
}

type abuseCounter struct {
	failures      int
	lastFailure   time.Time
	cooldownUntil time.Time
}

type InMemoryAuthAbuseGuard struct {
	mu       sync.Mutex
	policy   AuthAbusePolicy
	counters map[string]abuseCounter
	now      func() time.Time
}

func NewInMemoryAuthAbuseGuard(policy AuthAbusePolicy) *InMemoryAuthAbuseGuard {
	return &InMemoryAuthAbuseGuard{
		policy:   normalizeAuthAbusePolicy(policy),
		counters: make(map[string]abuseCounter),
		now:      time.Now,
	}
}

func (g *InMemoryAuthAbuseGuard) Check(_ context.Context, scope AuthAbuseScope, identity, ip string) (time.Duration, error) {
	now := g.now().UTC()
	g.mu.Lock()
	defer g.mu.Unlock()

	var longest time.Duration
	for _, key := range abuseKeys(scope, identity, ip) {
		longest = max(longest, g.remainingLocked(now, key))
	}
	return longest, nil
}

func (g *InMemoryAuthAbuseGuard) RegisterFailure(_ context.Context, scope AuthAbuseScope, identity, ip string) (time.Duration, error) {
	now := g.now().UTC()
	g.mu.Lock()
	defer g.mu.Unlock()

	var longest time.Duration
	for _, key := range abuseKeys(scope, identity, ip) {
		c := g.counters[key]
		if c.lastFailure.IsZero() || now.Sub(c.lastFailure) > g.policy.ResetWindow {
			c.failures = 0
		}
		c.failures++
		c.lastFailure = now
		delay := abuseCooldown(g.policy, c.failures)
		c.cooldownUntil = now.Add(delay)
		g.counters[key] = c
		longest = max(longest, delay)
	}
	return longest, nil
}

func (g *InMemoryAuthAbuseGuard) Reset(_ context.Context, scope AuthAbuseScope, identity, ip string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, key := range abuseKeys(scope, identity, ip) {
		delete(g.counters, key)
	}
	return nil
}

func (g *InMemoryAuthAbuseGuard) remainingLocked(now time.Time, key string) time.Duration {
	c, ok := g.counters[key]
	if !ok {
		return 0
	}
	if now.Sub(c.lastFailure) > g.policy.ResetWindow {
		delete(g.counters, key)
		return 0
	}
	if !now.Before(c.cooldownUntil) {
		return 0
	}
	return c.cooldownUntil.Sub(now)
}

func abuseCooldown(policy AuthAbusePolicy, failures int) time.Duration {
	if failures <= policy.FreeAttempts {
		return 0
	}
	delay := time.Duration(float64(policy.BaseDelay) * math.Pow(policy.Multiplier, float64(failures-policy.FreeAttempts-1)))
	return min(delay, policy.MaxDelay)
}

// abuseKeys returns the identity key and the ip key for a scope.
func abuseKeys(scope AuthAbuseScope, identity, ip string) [2]string {
	identity = strings.ToLower(strings.TrimSpace(identity))
	if identity == "" {
		identity = "anonymous"
	}
	ip = strings.TrimSpace(ip)
	if ip == "" {
		ip = "unknown"
	}
	return [2]string{
		string(scope) + ":id:" + identity,
		string(scope) + ":ip:" + ip,
	}
}

func normalizeAuthAbusePolicy(policy AuthAbusePolicy) AuthAbusePolicy {
	if policy.FreeAttempts < 0 {
		policy.FreeAttempts = 0
	}
	if policy.BaseDelay <= 0 {
		policy.BaseDelay = 2 * time.Second
	}
	if policy.Multiplier < 1 {
		policy.Multiplier = 2
	}
	if policy.MaxDelay < policy.BaseDelay {
		policy.MaxDelay = 5 * time.Minute
	}
	if policy.ResetWindow <= 0 {
		policy.ResetWindow = 30 * time.Minute
	}
	return policy
}
