// Package di provides a minimal service container used to wire modules.
package di

import (
	"fmt"
	"sync"
)

// ServiceRegistry is the read side of the container.
type ServiceRegistry interface {
	// Get returns the service registered under the token, or nil.
	Get(token string) any
}

// Container registers and resolves services by token.
type Container interface {
	ServiceRegistry

	// Register stores a service under the token, replacing any previous entry.
	Register(token string, service any)
}

type container struct {
	mu       sync.RWMutex
	services map[string]any
}

// NewContainer creates an empty container.
func NewContainer() Container {
	return &container{
		services: make(map[string]any),
	}
}

func (c *container) Register(token string, service any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.services[token] = service
}

func (c *container) Get(token string) any {
	c.mu.RLock()
	svc := c.services[token]
	c.mu.RUnlock()

	// Lazy registrations resolve on first use. The factory runs without
	// the container lock held so it may Get other tokens.
	if l, ok := svc.(*lazyService); ok {
		l.once.Do(func() {
			l.value = l.factory(c)
		})
		return l.value
	}

	return svc
}

type lazyService struct {
	once    sync.Once
	factory func(ServiceRegistry) any
	value   any
}

// RegisterToken registers a lazily-constructed service under the token.
// The factory runs once, on first resolution.
func RegisterToken[T any](c Container, token string, factory func(ServiceRegistry) T) {
	c.Register(token, &lazyService{
		factory: func(sr ServiceRegistry) any {
			return factory(sr)
		},
	})
}

// MustGet resolves a service and asserts its type, panicking on mismatch.
// Module di packages use this to expose typed getters.
func MustGet[T any](r ServiceRegistry, token string) T {
	svc := r.Get(token)
	typed, ok := svc.(T)
	if !ok {
		panic(fmt.Sprintf("di: service %q is %T, not the requested type", token, svc))
	}
	return typed
}
