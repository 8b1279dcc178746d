// Package di contains dependency injection tokens for the pool context.
package di

import (
	"github.com/fd1az/flashpool/business/pool/app"
	"github.com/fd1az/flashpool/internal/di"
)

// DI tokens for the pool module.
const (
	PoolService = "pool.PoolService"
)

// GetPoolService resolves the pool service from the registry.
func GetPoolService(sr di.ServiceRegistry) *app.PoolService {
	return di.MustGet[*app.PoolService](sr, PoolService)
}
