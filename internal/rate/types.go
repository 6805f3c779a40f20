package rate

import "time"

// Window is a provider quota period.
type Window int

const (
	Minute Window = iota
	Day
)

func (w Window) String() string {
	switch w {
	case Minute:
		return "minute"
	case Day:
		return "day"
	default:
		return "unknown"
	}
}

func (w Window) Duration() time.Duration {
	if w == Day {
		return 24 * time.Hour
	}
	return time.Minute
}

// Headers names the response headers that report the remaining quota. Empty
// names are ignored.
type Headers struct {
	RemainingMinute string
	RemainingDay    string
	RetryAfter      string
}

// StandardHeaders is the X-RateLimit-* convention plus Retry-After.
func StandardHeaders() Headers {
	return Headers{
		RemainingMinute: "X-RateLimit-Remaining-minute",
		RemainingDay:    "X-RateLimit-Remaining-day",
		RetryAfter:      "Retry-After",
	}
}

// DefaultCooldown applies after a 429 that carries no Retry-After.
const DefaultCooldown = time.Minute

// Declaration is a provider's request budget, built fluently:
//
//	rate.Provider("thinq").MaxRequestsPer(rate.Minute, 60).CacheFor(time.Minute)
type Declaration struct {
	provider string
	limits   map[Window]int
	cacheTTL time.Duration
	cooldown time.Duration
	headers  Headers
}

func Provider(name string) Declaration {
	return Declaration{provider: name}
}

func (d Declaration) ProviderName() string {
	return d.provider
}

// MaxRequestsPer caps requests per window. Each call copies the limit map so
// a shared base declaration is never mutated.
func (d Declaration) MaxRequestsPer(window Window, limit int) Declaration {
	limits := make(map[Window]int, len(d.limits)+1)
	for w, l := range d.limits {
		limits[w] = l
	}
	limits[window] = limit
	d.limits = limits
	return d
}

// CacheFor replays successful GET responses for ttl while the budget is
// exhausted.
func (d Declaration) CacheFor(ttl time.Duration) Declaration {
	d.cacheTTL = ttl
	return d
}

// CooldownFor overrides DefaultCooldown.
func (d Declaration) CooldownFor(cooldown time.Duration) Declaration {
	d.cooldown = cooldown
	return d
}

func (d Declaration) ReadHeaders(headers Headers) Declaration {
	d.headers = headers
	return d
}

func (d Declaration) Limits() map[Window]int {
	return d.limits
}

func (d Declaration) HasLimits() bool {
	return len(d.limits) > 0
}

func (d Declaration) Cooldown() time.Duration {
	if d.cooldown <= 0 {
		return DefaultCooldown
	}
	return d.cooldown
}

// RateLimited is implemented by plugins that call a metered cloud API.
type RateLimited interface {
	RateLimits() Declaration
}
