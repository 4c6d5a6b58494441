package builder

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// App is the HTTP API process: the server and the pool it owns
type App struct {
	server          *http.Server
	db              *pgxpool.Pool
	logger          *zap.Logger
	shutdownTimeout time.Duration
}

// Run serves HTTP until SIGINT or SIGTERM, then drains in-flight requests
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		a.logger.Info("Starting HTTP server", zap.String("addr", a.server.Addr))
		serveErr <- a.server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		a.closeDB()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		a.logger.Error("Server error", zap.Error(err))
		return fmt.Errorf("serve http: %w", err)
	case <-ctx.Done():
		a.logger.Info("Received shutdown signal")
	}

	return a.shutdown()
}

func (a *App) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
	defer cancel()
	defer a.closeDB()

	a.logger.Info("Shutting down server gracefully", zap.Duration("timeout", a.shutdownTimeout))

	if err := a.server.Shutdown(ctx); err != nil {
		a.logger.Error("Server shutdown error", zap.Error(err))
		return fmt.Errorf("shutdown http server: %w", err)
	}

	a.logger.Info("Application stopped gracefully")
	return nil
}

func (a *App) closeDB() {
	if a.db != nil {
		a.logger.Info("Closing database connections")
		a.db.Close()
	}
}
