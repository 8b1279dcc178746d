package ui

import (
	"github.com/shopspring/decimal"

	"github.com/fd1az/flashpool/business/arbitrage/domain"
)

// Message types for TUI updates

// ResultMsg is sent when an arbitrage attempt settles.
type ResultMsg struct {
	Result *domain.Result
}

// SpotMsg is sent when a venue spot price is refreshed.
type SpotMsg struct {
	Venue string
	Price decimal.Decimal
}

// LogMsg is sent to display a log message in the UI.
type LogMsg struct {
	Level   string // "info", "warn", "error"
	Message string
}

// QuitMsg asks the program to shut down.
type QuitMsg struct{}
