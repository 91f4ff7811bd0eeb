// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/samber/do/v2"
	"github.com/sirupsen/logrus"

	"github.com/jeranaias/codebuddy/internal/bridge"
	"github.com/jeranaias/codebuddy/internal/cloud"
	"github.com/jeranaias/codebuddy/internal/config"
	"github.com/jeranaias/codebuddy/internal/editor"
	"github.com/jeranaias/codebuddy/internal/logging"
	"github.com/jeranaias/codebuddy/internal/panel"
	"github.com/jeranaias/codebuddy/internal/telemetry"
	"github.com/jeranaias/codebuddy/internal/vault"
)

// Injector is the dependency container type.
type Injector = do.Injector

// WatchDebounce is the delay between a config file write and the reload.
const WatchDebounce = 250 * time.Millisecond

// Options selects how the application is assembled.
type Options struct {
	// ConfigPath overrides the default config file location
	ConfigPath string
	// Verbose forces debug logging
	Verbose bool
	// Version is reported by the panel and the bridge
	Version string
	// Editor provides the selection; nil uses the bridge's remote editor
	// when serving, or an empty selection otherwise
	Editor editor.Editor
	// Bridge wires the websocket bridge as the editor and UI transport
	Bridge bool
	// Logger replaces the file logger (tests)
	Logger logrus.FieldLogger
	// Connector replaces the Azure connector (tests)
	Connector panel.Connector
	// NoLedger disables usage recording
	NoLedger bool
}

// App is the assembled application. Services are created lazily on first
// use and stopped in reverse dependency order by Shutdown.
type App struct {
	injector *do.RootScope
}

// New registers every service provider.
func New(opts Options) *App {
	injector := do.New()
	do.ProvideValue(injector, opts)

	provideConfig(injector)
	provideLogFile(injector)
	provideLogger(injector)
	provideLedger(injector)
	provideConnector(injector)
	provideBridge(injector)
	provideEditor(injector)
	provideController(injector)
	provideWatcher(injector)

	return &App{injector: injector}
}

// Injector exposes the container.
func (a *App) Injector() Injector {
	return a.injector
}

// Config returns the loaded configuration.
func (a *App) Config() (*config.Config, error) {
	return resolve[*config.Config](a.injector, "config")
}

// Logger returns the application logger.
func (a *App) Logger() (logrus.FieldLogger, error) {
	return resolve[logrus.FieldLogger](a.injector, "logger")
}

// Ledger returns the usage ledger.
func (a *App) Ledger() (*telemetry.Ledger, error) {
	return resolve[*telemetry.Ledger](a.injector, "usage ledger")
}

// Controller returns the panel controller.
func (a *App) Controller() (*panel.Controller, error) {
	return resolve[*panel.Controller](a.injector, "panel controller")
}

// Bridge returns the websocket bridge bound to the controller.
func (a *App) Bridge() (*bridge.Server, error) {
	srv, err := resolve[*bridge.Server](a.injector, "bridge")
	if err != nil {
		return nil, err
	}
	ctrl, err := a.Controller()
	if err != nil {
		return nil, err
	}
	srv.Bind(ctrl)
	return srv, nil
}

// WatchConfig reloads the config file on change and hands each new
// snapshot to the controller until ctx is done.
func (a *App) WatchConfig(ctx context.Context) error {
	w, err := resolve[*config.Watcher](a.injector, "config watcher")
	if err != nil {
		return err
	}
	ctrl, err := a.Controller()
	if err != nil {
		return err
	}
	if err := w.Watch(ctx); err != nil {
		return fmt.Errorf("watch config: %w", err)
	}
	go ctrl.WatchSettings(ctx, w.Changes())
	return nil
}

// Shutdown stops every service that was created.
func (a *App) Shutdown() error {
	report := a.injector.Shutdown()
	if report != nil && !report.Succeed {
		return report
	}
	return nil
}

func resolve[T any](i Injector, name string) (T, error) {
	v, err := do.Invoke[T](i)
	if err != nil {
		var zero T
		return zero, fmt.Errorf("resolve %s: %w", name, err)
	}
	return v, nil
}

// =============================================================================
// PROVIDERS
// =============================================================================

func provideConfig(i Injector) {
	do.Provide(i, func(i Injector) (*config.Config, error) {
		opts := do.MustInvoke[Options](i)
		return LoadConfig(opts.ConfigPath)
	})
}

// LoadConfig loads path, or the default location when path is empty.
// A missing explicit file yields the defaults.
func LoadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Load()
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		cfg := config.Default()
		cfg.ApplyEnvOverrides()
		cfg.SetDefaults()
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid config: %w", err)
		}
		return cfg, nil
	}
	return config.LoadFromPath(path)
}

// ConfigPath returns the file a config would be read from and written to.
func ConfigPath(path string) (string, error) {
	if path != "" {
		return path, nil
	}
	return config.ResolvePath()
}

func provideLogFile(i Injector) {
	do.Provide(i, func(i Injector) (*logging.Logger, error) {
		opts := do.MustInvoke[Options](i)
		cfg, err := do.Invoke[*config.Config](i)
		if err != nil {
			return nil, err
		}
		return logging.Setup(cfg.Log, opts.Verbose)
	})
}

func provideLogger(i Injector) {
	do.Provide(i, func(i Injector) (logrus.FieldLogger, error) {
		opts := do.MustInvoke[Options](i)
		if opts.Logger != nil {
			return opts.Logger, nil
		}
		log, err := do.Invoke[*logging.Logger](i)
		if err != nil {
			return nil, err
		}
		return log, nil
	})
}

func provideLedger(i Injector) {
	do.Provide(i, func(i Injector) (*telemetry.Ledger, error) {
		dir, err := config.ConfigDir()
		if err != nil {
			return nil, err
		}
		path, err := telemetry.DefaultPath(dir)
		if err != nil {
			return nil, err
		}
		return telemetry.Open(path)
	})
}

func provideConnector(i Injector) {
	do.Provide(i, func(i Injector) (panel.Connector, error) {
		opts := do.MustInvoke[Options](i)
		if opts.Connector != nil {
			return opts.Connector, nil
		}
		log, err := do.Invoke[logrus.FieldLogger](i)
		if err != nil {
			return nil, err
		}
		cred, err := vault.NewCLICredential()
		if err != nil {
			return nil, fmt.Errorf("%w: %w", cloud.ErrConfiguration, err)
		}
		conn := cloud.NewConnector(cred, cloud.KeyVaultFactory(cred, log), cloud.AzureCompleterFactory(cloud.NewHTTPClient()), log)
		return panel.CloudConnector(conn), nil
	})
}

func provideBridge(i Injector) {
	do.Provide(i, func(i Injector) (*bridge.Server, error) {
		opts := do.MustInvoke[Options](i)
		cfg, err := do.Invoke[*config.Config](i)
		if err != nil {
			return nil, err
		}
		log, err := do.Invoke[logrus.FieldLogger](i)
		if err != nil {
			return nil, err
		}
		return bridge.NewServer(bridge.Options{
			Addr:              cfg.Bridge.Addr,
			Token:             cfg.Bridge.Token,
			MessagesPerSecond: cfg.Bridge.MessagesPerSecond,
			Version:           opts.Version,
			Logger:            log,
		}), nil
	})
}

func provideEditor(i Injector) {
	do.Provide(i, func(i Injector) (editor.Editor, error) {
		opts := do.MustInvoke[Options](i)
		switch {
		case opts.Editor != nil:
			return opts.Editor, nil
		case opts.Bridge:
			srv, err := do.Invoke[*bridge.Server](i)
			if err != nil {
				return nil, err
			}
			return srv.Editor(), nil
		default:
			return editor.NewStaticText(""), nil
		}
	})
}

func provideController(i Injector) {
	do.Provide(i, func(i Injector) (*panel.Controller, error) {
		opts := do.MustInvoke[Options](i)
		cfg, err := do.Invoke[*config.Config](i)
		if err != nil {
			return nil, err
		}
		log, err := do.Invoke[logrus.FieldLogger](i)
		if err != nil {
			return nil, err
		}
		conn, err := do.Invoke[panel.Connector](i)
		if err != nil {
			return nil, err
		}
		ed, err := do.Invoke[editor.Editor](i)
		if err != nil {
			return nil, err
		}

		panelOpts := panel.Options{Editor: ed, Logger: log}
		if !opts.NoLedger {
			if ledger, err := do.Invoke[*telemetry.Ledger](i); err == nil {
				panelOpts.Usage = ledger
			} else {
				log.WithError(err).Warn("usage ledger unavailable")
			}
		}
		return panel.NewController(cfg.Settings(), conn, panelOpts), nil
	})
}

func provideWatcher(i Injector) {
	do.Provide(i, func(i Injector) (*config.Watcher, error) {
		opts := do.MustInvoke[Options](i)
		log, err := do.Invoke[logrus.FieldLogger](i)
		if err != nil {
			return nil, err
		}
		path, err := ConfigPath(opts.ConfigPath)
		if err != nil {
			return nil, err
		}
		return config.NewWatcher(path, WatchDebounce, log)
	})
}
