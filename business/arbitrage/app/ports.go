// Package app contains application services and port definitions for the arbitrage context.
package app

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/fd1az/flashpool/business/arbitrage/domain"
)

// Reporter defines the interface for reporting settled attempts.
type Reporter interface {
	// Start initializes the reporter.
	Start(ctx context.Context) error

	// Report sends a settled attempt to be displayed/logged.
	Report(res *domain.Result)

	// UpdateSpot updates the displayed spot price for a venue.
	UpdateSpot(venue string, price decimal.Decimal)

	// Stop gracefully shuts down the reporter.
	Stop() error
}
