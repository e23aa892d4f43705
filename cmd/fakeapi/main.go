package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/zhouzirui/gst-chat/client/internal/config"
	"github.com/zhouzirui/gst-chat/client/internal/fakeapi"
	"github.com/zhouzirui/gst-chat/client/internal/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Info().Err(err).Msg("no .env file, continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Pretty)

	responder := fakeapi.NewResponder(ctx, cfg.AI)
	if _, ok := responder.(*fakeapi.ArkResponder); ok {
		log.Info().Str("model", cfg.AI.Model).Msg("[fakeapi] ark responder initialized")
	} else {
		log.Info().Msg("[fakeapi] Ark 凭证未配置，使用 echo 回复")
	}

	store := fakeapi.NewStore()
	handler := fakeapi.New(store, fakeapi.NewTokens(cfg.Server.Secret, cfg.Server.TokenTTL), responder)

	startServer(ctx, cfg.Server, fakeapi.NewRouter(handler))
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	srv := &http.Server{
		Addr:              serverCfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Info().Str("addr", serverCfg.Addr).Msg("[fakeapi] listening")
	if err := runServer(ctx, srv); err != nil {
		log.Fatal().Err(err).Msg("server error")
	}
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
