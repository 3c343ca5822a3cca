package auth

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	loginIPMax       = 10
	loginIPWindow    = 5 * time.Minute
	failureRetention = 2 * time.Hour
)

// lockoutTier pairs a failure-count threshold with how long the lockout holds.
type lockoutTier struct {
	Threshold int
	Duration  time.Duration
}

// Ordered most severe first; the first tier whose threshold is met and whose
// lockout has not yet expired wins.
var defaultLockoutTiers = []lockoutTier{
	{Threshold: 20, Duration: 2 * time.Hour},
	{Threshold: 10, Duration: 30 * time.Minute},
	{Threshold: 5, Duration: 5 * time.Minute},
}

// evaluateWindowThrottle blocks when at least max failures fall inside the
// trailing window. Retry is the time until the earliest in-window failure
// ages out.
func evaluateWindowThrottle(now time.Time, failures []time.Time, max int, window time.Duration) (bool, time.Duration) {
	if max <= 0 || window <= 0 {
		return false, 0
	}

	cut := now.Add(-window)
	count := 0
	var earliest time.Time
	for _, f := range failures {
		if f.Before(cut) {
			continue
		}
		count++
		if earliest.IsZero() || f.Before(earliest) {
			earliest = f
		}
	}
	if count < max {
		return false, 0
	}
	return true, earliest.Add(window).Sub(now)
}

// evaluateProgressiveLockout applies tiered lockouts based on the total
// failure count and the time of the most recent failure.
func evaluateProgressiveLockout(now time.Time, failures []time.Time, tiers []lockoutTier) (bool, time.Duration) {
	if len(failures) == 0 {
		return false, 0
	}

	latest := failures[0]
	for _, f := range failures[1:] {
		if f.After(latest) {
			latest = f
		}
	}

	for _, t := range tiers {
		if t.Threshold <= 0 || len(failures) < t.Threshold {
			continue
		}
		if retry := latest.Add(t.Duration).Sub(now); retry > 0 {
			return true, retry
		}
	}
	return false, 0
}

// loginThrottle tracks failed logins per account and per client IP.
// State is process-local; multi-instance deployments get per-instance
// limits, which is still enough to blunt online guessing.
type loginThrottle struct {
	mu      sync.Mutex
	byIP    map[string][]time.Time
	byEmail map[string][]time.Time
}

func newLoginThrottle() *loginThrottle {
	return &loginThrottle{
		byIP:    make(map[string][]time.Time),
		byEmail: make(map[string][]time.Time),
	}
}

func (t *loginThrottle) check(now time.Time, email, ip string) (bool, time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if blocked, retry := evaluateWindowThrottle(now, t.byIP[ip], loginIPMax, loginIPWindow); blocked {
		return true, retry
	}
	if blocked, retry := evaluateProgressiveLockout(now, t.byEmail[email], defaultLockoutTiers); blocked {
		return true, retry
	}
	return false, 0
}

func (t *loginThrottle) recordFailure(now time.Time, email, ip string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if ip != "" {
		t.byIP[ip] = appendPruned(t.byIP[ip], now)
	}
	if email != "" {
		t.byEmail[email] = appendPruned(t.byEmail[email], now)
	}
}

func (t *loginThrottle) reset(email string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.byEmail, email)
}

func appendPruned(failures []time.Time, now time.Time) []time.Time {
	cut := now.Add(-failureRetention)
	kept := failures[:0]
	for _, f := range failures {
		if f.After(cut) {
			kept = append(kept, f)
		}
	}
	return append(kept, now)
}

// clientIP extracts the originating address, trusting the first
// X-Forwarded-For entry when a proxy set one.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first := strings.TrimSpace(strings.SplitN(fwd, ",", 2)[0])
		if net.ParseIP(first) != nil {
			return first
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeRateLimited(w http.ResponseWriter, retryAfter time.Duration) {
	if retryAfter > 0 {
		w.Header().Set("Retry-After", strconv.FormatInt(int64(retryAfter.Seconds()), 10))
	}
	writeError(w, http.StatusTooManyRequests, "rate_limited", "too many attempts")
}
