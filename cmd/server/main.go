package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"blogapi/internal/api"
	"blogapi/internal/app/bootstrap"
	"blogapi/internal/app/service"
	"blogapi/internal/common/security"
	"blogapi/internal/platform/config"
	"blogapi/internal/platform/logging"
)

func main() {
	// 1. Load Configuration
	config.Load()
	cfg := config.AppConfig

	logger := logging.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	// 2. Initialize JWT
	security.InitJWT(cfg.JWTKey, cfg.JWTExp)

	// 3. Initialize storage
	startCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	backends, err := bootstrap.Open(startCtx, cfg)
	cancel()
	if err != nil {
		logger.Error("could not initialize storage", slog.String("driver", cfg.StoreDriver), slog.Any("error", err))
		os.Exit(1)
	}
	defer backends.Close()
	logger.Info("storage ready", slog.String("driver", cfg.StoreDriver))

	// 4. Initialize Services
	store := backends.Store
	svc := api.Services{
		Access:   service.NewAccessControl(store.Users, backends.Revocations, logger),
		Auth:     service.NewAuthService(store.Users, backends.Revocations, logger),
		Posts:    service.NewPostService(store, logger),
		Comments: service.NewCommentService(store, logger),
		Search:   service.NewSearchService(store),
		Users:    service.NewUserService(store, logger),
	}

	// 5. Router & HTTP Server
	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      api.NewRouter(svc, cfg.CORSAllowedOrigins),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 65 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// 6. Graceful Shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server starting", slog.String("port", cfg.APIPort))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case <-stop:
	case err := <-serveErr:
		logger.Error("could not listen", slog.String("port", cfg.APIPort), slog.Any("error", err))
		backends.Close()
		os.Exit(1)
	}

	logger.Info("shutting down server")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", slog.Any("error", err))
		return
	}
	logger.Info("server stopped gracefully")
}
