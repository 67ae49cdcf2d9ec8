package api

import "github.com/okian/otherday/pkg/logger"

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the logger used for access logs and internal errors.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}
