package ranking

import "fmt"

// Option configures a ranking call.
type Option func(*config)

type config struct {
	limit int
}

// WithLimit caps the number of returned entries. Zero means no limit.
// Result.Total still reports the full population.
func WithLimit(n int) Option {
	return func(c *config) {
		c.limit = n
	}
}

func newConfig(opts []Option) (config, error) {
	var c config
	for _, opt := range opts {
		opt(&c)
	}
	if c.limit < 0 {
		return c, fmt.Errorf("limit %d: %w", c.limit, ErrInvalidInput)
	}
	return c, nil
}
