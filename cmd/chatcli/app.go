package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/zhouzirui/gst-chat/client/internal/config"
	"github.com/zhouzirui/gst-chat/client/internal/logging"
	"github.com/zhouzirui/gst-chat/client/internal/service/api"
	"github.com/zhouzirui/gst-chat/client/internal/service/prefs"
	"github.com/zhouzirui/gst-chat/client/internal/service/socket"
	"github.com/zhouzirui/gst-chat/client/internal/ui/terminal"
)

var settings *config.Config

// loadSettings reads the environment and applies flag overrides.
func loadSettings() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	if flagAPI != "" {
		cfg.API.BaseURL = flagAPI
	}
	if flagStateDir != "" {
		cfg.Storage.Dir = flagStateDir
	}
	if flagLogLevel != "" {
		cfg.Log.Level = flagLogLevel
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Pretty)
	settings = cfg
	return nil
}

// app holds everything a command needs to talk to the backend.
type app struct {
	store  *prefs.Store
	jar    *prefs.Jar
	theme  *prefs.Theme
	client *api.Client
	dialer *socket.WSDialer
	term   *terminal.Terminal
}

func openApp() (*app, error) {
	store, err := prefs.Open(settings.Storage.Dir)
	if err != nil {
		return nil, fmt.Errorf("open local state in %s: %w", settings.Storage.Dir, err)
	}

	jar, err := prefs.NewJar(store)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("restore session cookies: %w", err)
	}

	client, err := api.New(settings.API.BaseURL,
		api.WithCookieJar(jar),
		api.WithTimeout(settings.API.Timeout),
	)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	log.Debug().Str("api", settings.API.BaseURL).Str("state", settings.Storage.Dir).Msg("[cli] ready")

	return &app{
		store:  store,
		jar:    jar,
		theme:  prefs.NewTheme(store),
		client: client,
		dialer: socket.NewDialer(client.ChatSocketURL, jar, settings.API.HandshakeTimeout),
		term:   terminal.New(os.Stdout, os.Stdin),
	}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		log.Warn().Err(err).Msg("[cli] close local state failed")
	}
}
