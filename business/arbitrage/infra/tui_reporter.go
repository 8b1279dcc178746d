package infra

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/shopspring/decimal"

	"github.com/fd1az/flashpool/business/arbitrage/domain"
	"github.com/fd1az/flashpool/pkg/ui"
)

// TUIReporter implements Reporter by forwarding events to the Bubble
// Tea dashboard as messages. The program itself is owned and run by
// main; this adapter only sends into it.
type TUIReporter struct {
	program *tea.Program
}

// NewTUIReporter creates a reporter bound to a running program.
func NewTUIReporter(program *tea.Program) *TUIReporter {
	return &TUIReporter{program: program}
}

// Start initializes the TUI reporter.
func (r *TUIReporter) Start(ctx context.Context) error {
	return nil
}

// Report sends a settled attempt to the dashboard.
func (r *TUIReporter) Report(res *domain.Result) {
	r.program.Send(ui.ResultMsg{Result: res})
}

// UpdateSpot sends a venue spot price to the dashboard.
func (r *TUIReporter) UpdateSpot(venue string, price decimal.Decimal) {
	r.program.Send(ui.SpotMsg{Venue: venue, Price: price})
}

// Stop asks the dashboard to shut down.
func (r *TUIReporter) Stop() error {
	r.program.Send(ui.QuitMsg{})
	return nil
}
