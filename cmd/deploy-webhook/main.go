// Command deploy-webhook listens for push events and runs the deploy script.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vapecity/vapecity-api/logging"
	"github.com/vapecity/vapecity-api/webhook"
)

func main() {
	cfg, err := webhook.LoadConfig()
	if err != nil {
		logging.NewLogger("info").Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger := logging.NewLogger(cfg.LogLevel)

	if cfg.Secret == "" {
		logger.Warn("WEBHOOK_SECRET is empty, signatures are not checked", "env", cfg.Env)
	}

	handler := webhook.NewHandler(cfg.Secret, cfg.Branch, &webhook.ScriptRunner{Path: cfg.Script, Logger: logger}, logger)
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           webhook.NewRouter(handler),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("webhook server listening", "port", cfg.Port, "branch", cfg.Branch)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("webhook server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("webhook server shutdown failed", "error", err)
	}
	handler.Wait()
	logger.Info("webhook server stopped")
}
