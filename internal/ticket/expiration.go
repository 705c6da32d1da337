// ABOUTME: Expiration policies evaluated lazily on every ticket read
// ABOUTME: Hard timeout, idle timeout, and never-expires variants

package ticket

import "time"

// ExpirationPolicy decides whether a ticket has expired. Policies are
// evaluated on every read; a ticket whose policy reports expired stays
// expired permanently.
type ExpirationPolicy interface {
	// IsExpired reports whether a ticket created at created and last used
	// at lastUsed is expired as of now.
	IsExpired(created, lastUsed, now time.Time) bool

	// ExpiresAt returns the absolute time after which the ticket is
	// guaranteed expired, used by registries that persist a deadline.
	ExpiresAt(created time.Time) time.Time
}

// HardTimeoutPolicy expires a ticket a fixed duration after creation.
type HardTimeoutPolicy struct {
	TimeToLive time.Duration
}

// IsExpired implements ExpirationPolicy.
func (p HardTimeoutPolicy) IsExpired(created, lastUsed, now time.Time) bool {
	return now.Sub(created) >= p.TimeToLive
}

// ExpiresAt implements ExpirationPolicy.
func (p HardTimeoutPolicy) ExpiresAt(created time.Time) time.Time {
	return created.Add(p.TimeToLive)
}

// IdleTimeoutPolicy expires a ticket after a period of disuse, bounded by
// a maximum total lifetime.
type IdleTimeoutPolicy struct {
	IdleTimeout time.Duration
	MaxLifetime time.Duration
}

// IsExpired implements ExpirationPolicy.
func (p IdleTimeoutPolicy) IsExpired(created, lastUsed, now time.Time) bool {
	if now.Sub(created) >= p.MaxLifetime {
		return true
	}
	if lastUsed.IsZero() {
		lastUsed = created
	}
	return now.Sub(lastUsed) >= p.IdleTimeout
}

// ExpiresAt implements ExpirationPolicy. The absolute bound is the maximum
// lifetime; idle expiry inside that window is evaluated on read.
func (p IdleTimeoutPolicy) ExpiresAt(created time.Time) time.Time {
	return created.Add(p.MaxLifetime)
}

// NeverExpires is a policy for tickets with no time-based expiry.
type NeverExpires struct{}

// IsExpired implements ExpirationPolicy.
func (NeverExpires) IsExpired(created, lastUsed, now time.Time) bool { return false }

// ExpiresAt implements ExpirationPolicy. Returns a far-future sentinel.
func (NeverExpires) ExpiresAt(created time.Time) time.Time {
	return created.AddDate(100, 0, 0)
}
