package service

import (
	"github.com/okian/dailyboard/internal/domain/daily"
	"github.com/okian/dailyboard/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithHandleOptions passes options to every leaderboard handle, e.g. a fixed
// clock in tests.
func WithHandleOptions(opts ...daily.Option) Option {
	return func(s *Service) {
		s.handleOpts = append(s.handleOpts, opts...)
	}
}

// WithStoreName labels the store backend in stats.
func WithStoreName(name string) Option {
	return func(s *Service) {
		s.storeName = name
	}
}
