package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/linesmerrill/dispute-case-api/api/handlers"
	"github.com/linesmerrill/dispute-case-api/config"
)

func main() {
	a := handlers.App{}
	a.Config = *config.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// initialize database and router
	if err := a.Initialize(ctx); err != nil {
		zap.S().Fatalw("failed to initialize", "error", err)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%v", a.Config.Port),
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		zap.S().Infow("dispute-case-api is up and running",
			"port", a.Config.Port,
			"url", a.Config.BaseURL,
			"store", a.Config.StoreDriver,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zap.S().Fatalw("server stopped", "error", err)
		}
	}()

	<-ctx.Done()
	zap.S().Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zap.S().Errorw("failed to shut down server", "error", err)
	}
	if err := a.Close(shutdownCtx); err != nil {
		zap.S().Errorw("failed to close store", "error", err)
	}
	_ = zap.S().Sync()
}
