// Package app wires configuration into a running assistant.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"calc-assistant/internal/assistant"
	"calc-assistant/internal/automation"
	"calc-assistant/internal/browser"
	"calc-assistant/internal/config"
	"calc-assistant/internal/credential"
	"calc-assistant/internal/events"
	"calc-assistant/internal/interpreter"
	"calc-assistant/internal/llm"
	"calc-assistant/internal/server"
)

// App owns every long-lived component of one process.
type App struct {
	Config      *config.Config
	Driver      browser.Driver
	Credentials credential.Store
	Assistant   *assistant.Assistant
	Hub         *server.Hub

	nats   *events.NATSPublisher
	logger *zap.Logger
}

// NewInterpreter builds the two-tier interpreter without a browser.
func NewInterpreter(cfg *config.Config, creds credential.Store, logger *zap.Logger) (*interpreter.Interpreter, error) {
	completer, err := llm.New(cfg.Remote)
	if err != nil {
		return nil, err
	}
	remote := interpreter.NewRemoteTier(creds, completer, logger)
	return interpreter.New(remote, logger), nil
}

// New starts the browser and assembles the assistant around it. Close
// releases everything New acquired.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	a := &App{Config: cfg, logger: logger}

	creds, err := credential.New(cfg.Credential)
	if err != nil {
		return nil, fmt.Errorf("credential store: %w", err)
	}
	a.Credentials = creds

	interp, err := NewInterpreter(cfg, creds, logger)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("interpreter: %w", err)
	}

	a.Hub = server.NewHub(logger)
	publisher := events.Multi{a.Hub}
	if cfg.Events.NATSURL != "" {
		a.nats, err = events.NewNATSPublisher(cfg.Events, logger)
		if err != nil {
			a.Close()
			return nil, err
		}
		publisher = append(publisher, a.nats)
	}

	a.Driver, err = browser.New(cfg.Browser, logger)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("start browser: %w", err)
	}
	if cfg.Browser.NavigateOnStart {
		if err := a.Driver.Navigate(ctx, cfg.CalculatorURL); err != nil {
			logger.Warn("initial navigation failed", zap.String("url", cfg.CalculatorURL), zap.Error(err))
		}
	}

	a.Assistant = assistant.New(assistant.Options{
		Interpreter:   interp,
		Executor:      automation.NewExecutor(a.Driver, automation.TimingFrom(cfg.Automation), logger),
		Page:          a.Driver,
		CalculatorURL: cfg.CalculatorURL,
		Publisher:     publisher,
		Logger:        logger,
	})
	return a, nil
}

// Server exposes the assistant on cfg.Server.Addr.
func (a *App) Server() *server.Server {
	return server.NewServer(server.Options{
		Addr:          a.Config.Server.Addr,
		CalculatorURL: a.Config.CalculatorURL,
		Assistant:     a.Assistant,
		Page:          a.Driver,
		Credentials:   a.Credentials,
		Hub:           a.Hub,
		Logger:        a.logger,
	})
}

func (a *App) Close() error {
	var errs []error
	if a.Driver != nil {
		errs = append(errs, a.Driver.Close())
	}
	if a.nats != nil {
		a.nats.Close()
	}
	if c, ok := a.Credentials.(io.Closer); ok {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}
