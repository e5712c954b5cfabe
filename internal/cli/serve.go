package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	httpAdapter "github.com/aretw0/vignette/pkg/adapters/http"
)

// ShutdownTimeout bounds how long in-flight requests may take once serving stops.
const ShutdownTimeout = 5 * time.Second

// Handler builds the REST handler for app, exposing /metrics when configured.
func Handler(app *App) http.Handler {
	opts := []httpAdapter.Option{
		httpAdapter.WithLogger(app.Logger),
		httpAdapter.WithMetrics(app.Metrics),
	}
	if app.Config.HTTP.Metrics {
		opts = append(opts, httpAdapter.WithGatherer(app.Registry))
	}
	return httpAdapter.NewHandler(app.Engine, opts...)
}

// Serve runs the REST API on addr until ctx is cancelled, then shuts down
// gracefully. ready, when set, is called with the bound address.
func Serve(ctx context.Context, app *App, addr string, ready func(net.Addr)) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	// Request contexts end when shutdown starts, which releases event streams.
	base, cancelBase := context.WithCancel(context.Background())
	defer cancelBase()
	srv := &http.Server{
		Handler:           Handler(app),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return base },
	}
	srv.RegisterOnShutdown(cancelBase)

	// Channel to listen for errors coming from the listener.
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- srv.Serve(ln)
	}()
	app.Logger.Info("vignette server listening",
		"address", ln.Addr().String(),
		"store", app.Config.Store.Describe(),
	)
	if ready != nil {
		ready(ln.Addr())
	}

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)

	case <-ctx.Done():
		app.Logger.Info("shutting down server")

		// Give outstanding requests a deadline for completion.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			closeErr := srv.Close()
			return fmt.Errorf("graceful shutdown did not complete in %v: %w", ShutdownTimeout, errors.Join(err, closeErr))
		}
		app.Logger.Info("server stopped gracefully")
		return nil
	}
}
