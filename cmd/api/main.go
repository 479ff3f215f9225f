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

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/zhouzirui/profile-assistant/backend/internal/config"
	"github.com/zhouzirui/profile-assistant/backend/internal/handler"
	"github.com/zhouzirui/profile-assistant/backend/internal/logger"
	"github.com/zhouzirui/profile-assistant/backend/internal/model/profile"
	"github.com/zhouzirui/profile-assistant/backend/internal/service/chat"
	"github.com/zhouzirui/profile-assistant/backend/internal/service/responder"
	"github.com/zhouzirui/profile-assistant/backend/internal/storage"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Log.Logger())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()
	zap.ReplaceGlobals(log)

	if envErr != nil {
		log.Warn("failed to load .env file, continuing with system environment variables only", zap.Error(envErr))
	}

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal("server error", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	kb := profile.Seed()
	if cfg.Profile.File != "" {
		loaded, err := profile.LoadFile(cfg.Profile.File)
		if err != nil {
			return fmt.Errorf("load profile: %w", err)
		}
		kb = loaded
		log.Info("profile loaded", zap.String("file", cfg.Profile.File), zap.String("name", kb.Name))
	}
	profileStore := profile.NewMemoryStore(kb)

	store, err := storage.Open(ctx, cfg.Storage.Options())
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Warn("close storage", zap.Error(err))
		}
	}()
	log.Info("storage ready", zap.String("driver", cfg.Storage.Driver))

	settings, err := cfg.Session.Settings()
	if err != nil {
		return err
	}
	chatService := chat.NewService(
		profileStore,
		responder.NewGenerator(responder.NewTemplateStore()),
		store,
		chat.Config{
			Timing:    chat.Timing{BaseDelay: cfg.Session.BaseDelay, SpeedFactor: cfg.Session.SpeedFactor},
			Settings:  settings,
			KeyPrefix: cfg.Storage.KeyPrefix,
		},
		log,
	)
	defer chatService.Shutdown()

	router := handler.NewRouter(profileStore, chatService, log)
	return startServer(ctx, cfg.Server, router, log)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler, log *zap.Logger) error {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Info("portfolio assistant listening", zap.String("addr", addr))
	return runServer(ctx, srv)
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
