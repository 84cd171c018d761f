package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/AlecAivazis/survey/v2"

	"safeclaw/internal/config"
	"safeclaw/internal/docker"
	"safeclaw/internal/metrics"
	"safeclaw/internal/secrets"
	"safeclaw/internal/session"
)

// runtimeClient is the container runtime as the commands use it.
type runtimeClient interface {
	session.Runtime
	CheckDaemon(ctx context.Context) error
	Close() error
}

// newRuntimeClient is a variable so it can be replaced in tests.
var newRuntimeClient = func() (runtimeClient, error) {
	c, err := docker.NewClient()
	if err != nil {
		return nil, err
	}
	return c, nil
}

var askOneFunc = survey.AskOne

// app holds the wired session components for one command invocation.
type app struct {
	settings  config.Settings
	logger    *slog.Logger
	runtime   runtimeClient
	metrics   *metrics.Metrics
	secrets   *secrets.Store
	lister    *session.Lister
	registry  *session.Registry
	commander *session.Commander
}

func newSecretsStore(s config.Settings) *secrets.Store {
	return secrets.New(s.SecretsDir)
}

func newApp() (*app, error) {
	s := config.Get()
	rt, err := newRuntimeClient()
	if err != nil {
		return nil, fmt.Errorf("failed to create runtime client: %w", err)
	}

	logger := slog.Default()
	m := metrics.NewMetrics()
	store := newSecretsStore(s)

	lister := &session.Lister{
		Runtime:       rt,
		Prefix:        s.Prefix,
		TerminalPort:  uint16(s.TerminalPort),
		InternalMount: s.InternalMount,
		Logger:        logger,
	}
	commander := session.NewCommander(logger, rt, lister, store, m, session.CommanderConfig{
		Prefix:       s.Prefix,
		TerminalPort: uint16(s.TerminalPort),
		Wrapper:      s.Wrapper,
		Title:        s.Title,
		StopGrace:    s.StopGrace,
		CreateScript: s.CreateScript,
	})

	return &app{
		settings:  s,
		logger:    logger,
		runtime:   rt,
		metrics:   m,
		secrets:   store,
		lister:    lister,
		registry:  session.NewRegistry(lister),
		commander: commander,
	}, nil
}

func (a *app) Close() {
	if err := a.runtime.Close(); err != nil {
		a.logger.Debug("failed to close runtime client", "error", err)
	}
}
