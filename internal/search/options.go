package search

import (
	"context"

	"github.com/rogersf/strips-engine/internal/domain"
)

// checkEvery is how many frontier pops run between context checks.
const checkEvery = 256

type settings struct {
	maxExpansions int
	onImprove     func(cost float64, length int)
}

// Option configures a searcher.
type Option func(*settings)

// WithMaxExpansions stops the search with domain.ErrExpansionLimit once n
// nodes have been expanded. Zero means no limit.
func WithMaxExpansions(n int) Option {
	return func(s *settings) {
		s.maxExpansions = n
	}
}

// WithOnImprove registers a callback invoked each time branch-and-bound finds
// a cheaper plan. MPP ignores it.
func WithOnImprove(fn func(cost float64, length int)) Option {
	return func(s *settings) {
		s.onImprove = fn
	}
}

func newSettings(opts []Option) settings {
	var s settings
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// checkpoint returns the context error on the first tick and every
// checkEvery ticks after it, and the expansion limit error once expanded
// reaches the configured maximum. Ticks start at 1.
func (s settings) checkpoint(ctx context.Context, tick int, expanded int) error {
	if (tick-1)%checkEvery == 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	if s.maxExpansions > 0 && expanded >= s.maxExpansions {
		return domain.ErrExpansionLimit.Detail("%d nodes expanded", expanded)
	}
	return nil
}
