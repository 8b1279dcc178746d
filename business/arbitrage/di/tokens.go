// Package di contains dependency injection tokens for the arbitrage context.
package di

import (
	"github.com/fd1az/flashpool/business/arbitrage/app"
	"github.com/fd1az/flashpool/internal/di"
)

// DI tokens for the arbitrage module.
const (
	Executor = "arbitrage.Executor"
	Engine   = "arbitrage.Engine"
	Reporter = "arbitrage.Reporter"
)

// GetExecutor resolves the executor from the registry.
func GetExecutor(sr di.ServiceRegistry) *app.Executor {
	return di.MustGet[*app.Executor](sr, Executor)
}

// GetEngine resolves the engine from the registry.
func GetEngine(sr di.ServiceRegistry) *app.Engine {
	return di.MustGet[*app.Engine](sr, Engine)
}

// GetReporter resolves the reporter from the registry.
func GetReporter(sr di.ServiceRegistry) app.Reporter {
	return di.MustGet[app.Reporter](sr, Reporter)
}
