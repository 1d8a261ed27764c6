// Package ratelimit enforces the per-address claim cool-down.
package ratelimit

import "time"

// CooldownPeriod is the minimum interval between two successful claims
// for the same address.
const CooldownPeriod = 24 * time.Hour

// Clock supplies the current time
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock
type SystemClock struct{}

// Now returns the current wall-clock time
func (SystemClock) Now() time.Time {
	return time.Now()
}

// ClockFunc adapts a function to the Clock interface
type ClockFunc func() time.Time

// Now calls f
func (f ClockFunc) Now() time.Time {
	return f()
}

// Cooldown decides whether an address may claim again.
// The decision is binary: there is no partial or graduated limiting.
type Cooldown struct {
	clock  Clock
	period time.Duration
}

// NewCooldown creates a cool-down check over CooldownPeriod.
// A nil clock uses the system clock.
func NewCooldown(clock Clock) *Cooldown {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Cooldown{
		clock:  clock,
		period: CooldownPeriod,
	}
}

// CanClaim reports whether a claim is allowed given the last claim time.
// A nil lastClaimedAt means the address never claimed. The boundary is
// inclusive: a claim exactly one period after the last one is allowed.
func (c *Cooldown) CanClaim(lastClaimedAt *time.Time) bool {
	if lastClaimedAt == nil || lastClaimedAt.IsZero() {
		return true
	}
	return c.clock.Now().Sub(*lastClaimedAt) >= c.period
}

// NextClaimAt returns the earliest time the address may claim again
func (c *Cooldown) NextClaimAt(lastClaimedAt *time.Time) time.Time {
	if lastClaimedAt == nil || lastClaimedAt.IsZero() {
		return c.clock.Now()
	}
	return lastClaimedAt.Add(c.period)
}

// Now returns the cool-down clock's current time
func (c *Cooldown) Now() time.Time {
	return c.clock.Now()
}

// Period returns the cool-down length
func (c *Cooldown) Period() time.Duration {
	return c.period
}
