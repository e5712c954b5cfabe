// Package middleware decorates storage backends with cross-cutting behavior.
package middleware

import (
	"github.com/aretw0/vignette/pkg/ports"
)

// Middleware allows wrapping a StorageBackend to add behavior.
type Middleware func(ports.StorageBackend) ports.StorageBackend

// Chain wraps backend with mws; the first middleware is the outermost.
func Chain(backend ports.StorageBackend, mws ...Middleware) ports.StorageBackend {
	for i := len(mws) - 1; i >= 0; i-- {
		backend = mws[i](backend)
	}
	return backend
}

// closeNext forwards Close to backends that hold a connection.
func closeNext(next ports.StorageBackend) error {
	if c, ok := next.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}
