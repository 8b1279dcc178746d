// Package infra contains infrastructure adapters for the arbitrage context.
package infra

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fd1az/flashpool/business/arbitrage/domain"
)

// ConsoleReporter implements Reporter for CLI output.
type ConsoleReporter struct {
	out io.Writer

	mu    sync.Mutex
	spots map[string]decimal.Decimal
}

// NewConsoleReporter creates a new ConsoleReporter.
func NewConsoleReporter() *ConsoleReporter {
	return &ConsoleReporter{
		out:   os.Stdout,
		spots: make(map[string]decimal.Decimal),
	}
}

// Start initializes the console reporter.
func (r *ConsoleReporter) Start(ctx context.Context) error {
	fmt.Fprintln(r.out, "Flashpool Engine Started")
	fmt.Fprintln(r.out, "========================")
	return nil
}

// Report outputs a settled attempt to the console.
func (r *ConsoleReporter) Report(res *domain.Result) {
	fmt.Fprintln(r.out, "")
	fmt.Fprintln(r.out, "================================================================================")
	fmt.Fprintf(r.out, "ATTEMPT SETTLED: %s\n", res.Outcome)
	fmt.Fprintln(r.out, "================================================================================")
	fmt.Fprintf(r.out, "Timestamp:      %s\n", res.Timestamp.Format(time.RFC3339))
	fmt.Fprintf(r.out, "Route:          %s\n", res.Route.String())
	fmt.Fprintln(r.out, "--------------------------------------------------------------------------------")
	fmt.Fprintln(r.out, "TRIP")
	fmt.Fprintf(r.out, "  Borrowed:       %s\n", res.Borrowed.String())
	fmt.Fprintf(r.out, "  Loan Fee:       %s\n", res.Fee.String())
	fmt.Fprintf(r.out, "  Final:          %s\n", res.Final.String())
	fmt.Fprintln(r.out, "--------------------------------------------------------------------------------")
	if res.Outcome == domain.OutcomeReverted {
		fmt.Fprintf(r.out, "  Reverted:       %s\n", res.Err)
	} else {
		fmt.Fprintf(r.out, "  Net Profit:     %s %s\n",
			res.ProfitDecimal().StringFixed(6), res.Borrowed.Asset().Symbol())
	}
	fmt.Fprintln(r.out, "================================================================================")
}

// UpdateSpot records a venue spot price and prints it on change.
func (r *ConsoleReporter) UpdateSpot(venue string, price decimal.Decimal) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.spots[venue]; ok && prev.Equal(price) {
		return
	}
	r.spots[venue] = price
	fmt.Fprintf(r.out, "[%s] %s spot: %s\n",
		time.Now().Format("15:04:05"), venue, price.StringFixed(6))
}

// Stop gracefully shuts down the console reporter.
func (r *ConsoleReporter) Stop() error {
	fmt.Fprintln(r.out, "")
	fmt.Fprintln(r.out, "Flashpool Engine Stopped")
	return nil
}
