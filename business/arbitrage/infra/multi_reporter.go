package infra

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/fd1az/flashpool/business/arbitrage/app"
	"github.com/fd1az/flashpool/business/arbitrage/domain"
)

// MultiReporter fans every event out to a set of reporters.
type MultiReporter struct {
	reporters []app.Reporter
}

// NewMultiReporter composes reporters into one.
func NewMultiReporter(reporters ...app.Reporter) *MultiReporter {
	return &MultiReporter{reporters: reporters}
}

// Start starts all reporters, failing on the first error.
func (m *MultiReporter) Start(ctx context.Context) error {
	for _, r := range m.reporters {
		if err := r.Start(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Report forwards to all reporters.
func (m *MultiReporter) Report(res *domain.Result) {
	for _, r := range m.reporters {
		r.Report(res)
	}
}

// UpdateSpot forwards to all reporters.
func (m *MultiReporter) UpdateSpot(venue string, price decimal.Decimal) {
	for _, r := range m.reporters {
		r.UpdateSpot(venue, price)
	}
}

// Stop stops all reporters, collecting errors.
func (m *MultiReporter) Stop() error {
	var errs []error
	for _, r := range m.reporters {
		if err := r.Stop(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
