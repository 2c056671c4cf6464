package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tripmazer/wayfarer"
	httpAdapter "github.com/tripmazer/wayfarer/pkg/adapters/http"
)

// NewHTTPHandler builds the HTTP surface for app.
func NewHTTPHandler(app *App) (http.Handler, error) {
	opts := []httpAdapter.Option{
		httpAdapter.WithLogger(app.Logger),
		httpAdapter.WithVersion(wayfarer.Version),
	}
	if app.Config.Server.Metrics {
		opts = append(opts, httpAdapter.WithMetricsHandler(promhttp.HandlerFor(app.Registry, promhttp.HandlerOpts{})))
	}
	return httpAdapter.NewHandler(app.Engine, opts...)
}

// Serve runs the HTTP server until ctx is done, then shuts it down gracefully.
func Serve(ctx context.Context, app *App) error {
	handler, err := NewHTTPHandler(app)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              app.Config.Server.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Channel to listen for errors coming from the listener.
	serverErrors := make(chan error, 1)
	go func() {
		app.Logger.Info("server listening", "addr", srv.Addr, "version", wayfarer.Version)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		app.Logger.Info("shutdown signal received, draining requests")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), app.Config.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			srv.Close()
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}
