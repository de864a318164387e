package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"quill/app/config"
	"quill/app/repositories"
	"quill/app/routes"
)

// App owns the open stores and the HTTP server built on them.
type App struct {
	cfg    *config.Config
	logger *slog.Logger
	stores *repositories.Stores
	server *http.Server
}

// NewApp opens storage for cfg and wires the API handler.
func NewApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	stores, err := repositories.Open(ctx, cfg.StoreOptions())
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	svc := routes.NewServices(stores, logger)
	return &App{
		cfg:    cfg,
		logger: logger,
		stores: stores,
		server: &http.Server{
			Addr:              cfg.Server.Addr,
			Handler:           routes.SetupRoutes(svc, logger),
			ReadHeaderTimeout: 10 * time.Second,
		},
	}, nil
}

// Serve accepts connections on ln until ctx is done, then drains in-flight
// requests within the configured shutdown timeout and closes storage.
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("blog API listening",
			slog.String("addr", ln.Addr().String()),
			slog.String("backend", a.cfg.Storage.Backend),
		)
		if err := a.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		a.logger.Info("shutting down", slog.String("reason", context.Cause(ctx).Error()))
	case serveErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		serveErr = errors.Join(serveErr, fmt.Errorf("graceful shutdown: %w", err))
	}
	if err := a.stores.Close(); err != nil {
		serveErr = errors.Join(serveErr, fmt.Errorf("close storage: %w", err))
	}
	if serveErr == nil {
		a.logger.Info("server stopped")
	}
	return serveErr
}

// ListenAndServe binds the configured address and calls Serve.
func (a *App) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.cfg.Server.Addr)
	if err != nil {
		a.stores.Close()
		return fmt.Errorf("listen on %s: %w", a.cfg.Server.Addr, err)
	}
	return a.Serve(ctx, ln)
}
