package auth

import "time"

// Option applies a configuration option to the TokenService.
type Option func(*TokenService)

// WithAccessTTL sets the access token lifetime.
func WithAccessTTL(d time.Duration) Option {
	return func(s *TokenService) {
		if d > 0 {
			s.accessTTL = d
		}
	}
}

// WithRefreshTTL sets the refresh token lifetime.
func WithRefreshTTL(d time.Duration) Option {
	return func(s *TokenService) {
		if d > 0 {
			s.refreshTTL = d
		}
	}
}

// WithLeeway sets the clock skew tolerated on expiry checks.
func WithLeeway(d time.Duration) Option {
	return func(s *TokenService) {
		if d >= 0 {
			s.leeway = d
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *TokenService) {
		if now != nil {
			s.now = now
		}
	}
}
