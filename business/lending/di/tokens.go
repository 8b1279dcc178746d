// Package di contains dependency injection tokens for the lending context.
package di

import (
	"github.com/fd1az/flashpool/business/lending/app"
	"github.com/fd1az/flashpool/internal/di"
)

// DI tokens for the lending module.
const (
	LoanController = "lending.LoanController"
)

// GetLoanController resolves the flash loan controller from the registry.
func GetLoanController(sr di.ServiceRegistry) *app.FlashLoanController {
	return di.MustGet[*app.FlashLoanController](sr, LoanController)
}
